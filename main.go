package main

import (
	"context"
	"time"

	"brandcast-server/config"
	"brandcast-server/queue"
	"brandcast-server/routers"
	"brandcast-server/routers/api"
	"brandcast-server/service"
	"brandcast-server/storage"

	log "github.com/sirupsen/logrus"
)

func main() {
	config.InitConfig()
	cfg := config.AppConfig
	log.Printf("Server starting on port %s", cfg.Server.Port)

	store := buildStore(cfg)
	gen := buildGenerator(cfg)

	var producer queue.Producer
	switch cfg.Worker.Mode {
	case "asynq":
		client := queue.NewAsynqClient(cfg.Redis.Addr, cfg.Redis.Password)
		defer client.Close()
		producer = client

		processor := service.NewProcessor(store, nil, gen)
		processor.StartAsynq(cfg.Redis.Addr, cfg.Redis.Password, 5)

	default:
		adapter := queue.NewFileQueue(cfg.Worker.QueueFile)
		producer = adapter

		processor := service.NewProcessor(store, adapter, gen)
		processor.PollInterval = time.Duration(cfg.Worker.PollIntervalMs) * time.Millisecond
		go processor.Run(context.Background())
	}
	log.Printf("Worker started in %s mode", cfg.Worker.Mode)

	r := routers.InitRouter(api.NewHandler(store, producer))
	if err := r.Run(cfg.Server.Port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func buildStore(cfg *config.Config) storage.Store {
	if cfg.Store.Backend == "mysql" {
		store, err := storage.NewDBStore(cfg.MySQL.DSN)
		if err != nil {
			log.Fatalf("mysql store init failed: %v", err)
		}
		log.Printf("Database initialized")
		return store
	}

	store, err := storage.NewFileStore(cfg.Store.Dir)
	if err != nil {
		log.Fatalf("file store init failed: %v", err)
	}
	log.Printf("File store initialized at %s", cfg.Store.Dir)
	return store
}

func buildGenerator(cfg *config.Config) *service.Generator {
	creds := cfg.Credentials

	var providers []service.ImageProvider
	if p := service.NewOpenAIImageProvider(creds.OpenAIAPIKey, creds.OpenAIBaseURL); p != nil {
		providers = append(providers, p)
	}
	if p := service.NewAzureImageProvider(creds.AzureAPIKey, creds.AzureEndpoint, creds.AzureAPIVersion); p != nil {
		providers = append(providers, p)
	}
	if p := service.NewSDWebUIProvider(creds.SDWebUIEndpoint); p != nil {
		providers = append(providers, p)
	}
	images := service.NewImageService(cfg.Images.DefaultProvider, cfg.Images.Fallbacks, providers...)
	log.Printf("Image providers configured: %d", len(providers))

	var uploads *service.Uploader
	if cfg.MinIO.Endpoint != "" {
		var err error
		uploads, err = service.NewUploader(cfg.MinIO.Endpoint, cfg.MinIO.AccessKey,
			cfg.MinIO.SecretKey, cfg.MinIO.Bucket, cfg.MinIO.UseSSL)
		if err != nil {
			log.Fatalf("minio init failed: %v", err)
		}
		log.Printf("MinIO initialized")
	}

	text := service.NewTextClient(creds.OpenAIAPIKey, creds.OpenAIBaseURL)
	if text == nil {
		log.Printf("No text credentials, drafts will use mock generation")
	}

	return &service.Generator{
		Text:         text,
		Images:       images,
		Uploads:      uploads,
		ImageSize:    cfg.Images.Size,
		ImageQuality: cfg.Images.Quality,
	}
}
