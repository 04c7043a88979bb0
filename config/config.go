package config

import (
	"os"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	MySQL struct {
		DSN string `yaml:"dsn"`
	} `yaml:"mysql"`
	Store struct {
		// "mysql" or "file". The file backend keeps three JSON documents
		// under Dir and is meant for development.
		Backend string `yaml:"backend"`
		Dir     string `yaml:"dir"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
	} `yaml:"redis"`
	Worker struct {
		// "poll" runs the in-process lease-queue loop, "asynq" consumes
		// from Redis via asynq.
		Mode           string `yaml:"mode"`
		PollIntervalMs int    `yaml:"poll_interval_ms"`
		QueueFile      string `yaml:"queue_file"`
	} `yaml:"worker"`
	Images struct {
		DefaultProvider string   `yaml:"default_provider"`
		Fallbacks       []string `yaml:"fallbacks"`
		Size            string   `yaml:"size"`
		Quality         string   `yaml:"quality"`
	} `yaml:"images"`
	MinIO struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		UseSSL    bool   `yaml:"use_ssl"`
	} `yaml:"minio"`
	Secrets struct {
		// Optional directory of secret files, consulted for any credential
		// the environment does not provide.
		Dir string `yaml:"dir"`
	} `yaml:"secrets"`

	// Credentials come from the environment, never from the yaml file.
	Credentials Credentials `yaml:"-"`
}

// Credentials holds provider secrets. A missing key disables the matching
// provider instead of failing startup.
type Credentials struct {
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	AzureAPIKey     string `env:"AZURE_OPENAI_API_KEY"`
	AzureEndpoint   string `env:"AZURE_OPENAI_ENDPOINT"`
	AzureAPIVersion string `env:"AZURE_OPENAI_API_VERSION" envDefault:"2024-02-01"`
	SDWebUIEndpoint string `env:"SD_WEBUI_ENDPOINT"`
}

var AppConfig *Config

// InitConfig loads config/config.yaml plus environment credentials and
// fills AppConfig. Call once from main before anything else.
func InitConfig() {
	cfg, err := Load(configPath())
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	AppConfig = cfg
}

func configPath() string {
	if p := os.Getenv("BRANDCAST_CONFIG"); p != "" {
		return p
	}
	return "config/config.yaml"
}

// Load reads the yaml file at path and overlays environment credentials.
// The yaml file is optional: with no file present everything falls back to
// the file-backed store and poll worker, which is enough for dev mode.
func Load(path string) (*Config, error) {
	// .env is a convenience for development, ignore when absent.
	_ = godotenv.Load()

	cfg := &Config{}
	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if err := env.Parse(&cfg.Credentials); err != nil {
		return nil, err
	}
	cfg.resolveCredentials(NewSecretResolver(cfg.Secrets.Dir))
	cfg.applyDefaults()
	return cfg, nil
}

// resolveCredentials fills any credential the environment left empty via
// the secret resolver (env first, then the secrets directory). A secret
// that resolves nowhere stays empty and disables its provider.
func (c *Config) resolveCredentials(r *SecretResolver) {
	fill := func(dst *string, name string) {
		if *dst != "" {
			return
		}
		if v, err := r.Get(name); err == nil {
			*dst = v
		}
	}
	fill(&c.Credentials.OpenAIAPIKey, "openai-api-key")
	fill(&c.Credentials.AzureAPIKey, "azure-openai-api-key")
	fill(&c.Credentials.AzureEndpoint, "azure-openai-endpoint")
	fill(&c.Credentials.SDWebUIEndpoint, "sd-webui-endpoint")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Store.Backend == "" {
		if c.MySQL.DSN != "" {
			c.Store.Backend = "mysql"
		} else {
			c.Store.Backend = "file"
		}
	}
	if c.Store.Dir == "" {
		c.Store.Dir = ".store"
	}
	if c.Worker.Mode == "" {
		c.Worker.Mode = "poll"
	}
	if c.Worker.PollIntervalMs <= 0 {
		c.Worker.PollIntervalMs = 250
	}
	if c.Worker.QueueFile == "" {
		c.Worker.QueueFile = ".queue.json"
	}
	if c.Images.DefaultProvider == "" {
		c.Images.DefaultProvider = "openai"
	}
	if c.Images.Size == "" {
		c.Images.Size = "1024x1024"
	}
	if c.Images.Quality == "" {
		c.Images.Quality = "standard"
	}
}
