package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const secretCacheTTL = 5 * time.Minute

type cachedSecret struct {
	value   string
	expires time.Time
}

// SecretResolver resolves named secrets from the environment or an optional
// secrets directory, caching hits for a few minutes. Secret names may use
// slashes ("brandcast/openai-api-key"); the environment lookup upper-cases
// and replaces separators, the directory lookup maps them to file paths.
type SecretResolver struct {
	dir string

	mu    sync.Mutex
	cache map[string]cachedSecret
}

func NewSecretResolver(dir string) *SecretResolver {
	return &SecretResolver{
		dir:   dir,
		cache: make(map[string]cachedSecret),
	}
}

func (r *SecretResolver) Get(name string) (string, error) {
	r.mu.Lock()
	if c, ok := r.cache[name]; ok && time.Now().Before(c.expires) {
		r.mu.Unlock()
		return c.value, nil
	}
	r.mu.Unlock()

	value, err := r.resolve(name)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.cache[name] = cachedSecret{value: value, expires: time.Now().Add(secretCacheTTL)}
	r.mu.Unlock()
	return value, nil
}

func (r *SecretResolver) resolve(name string) (string, error) {
	if v := os.Getenv(envName(name)); v != "" {
		return v, nil
	}
	if r.dir != "" {
		b, err := os.ReadFile(filepath.Join(r.dir, filepath.FromSlash(name)))
		if err == nil {
			return strings.TrimSpace(string(b)), nil
		}
	}
	return "", fmt.Errorf("secret %q not found", name)
}

func envName(name string) string {
	up := strings.ToUpper(name)
	up = strings.NewReplacer("/", "_", "-", "_", ".", "_").Replace(up)
	return up
}
