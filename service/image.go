package service

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ImageRequest is a normalized image-generation request.
type ImageRequest struct {
	Prompt  string
	Size    string // one of validImageSizes, default 1024x1024
	Quality string // "standard" | "hd"
	Style   string // "vivid" | "natural"
	N       int    // 1..10, default 1
}

type GeneratedImage struct {
	URL           string
	RevisedPrompt string
	Size          string
}

type ImageResponse struct {
	Images   []GeneratedImage
	Provider string
	Model    string
	Cost     float64
}

// ImageProvider is one concrete backend. IsAvailable is a cheap probe; a
// probe error counts as unavailable in the fallback loop but is recorded.
type ImageProvider interface {
	Name() string
	Generate(ctx context.Context, req ImageRequest) (*ImageResponse, error)
	IsAvailable(ctx context.Context) (bool, error)
	EstimateCost(req ImageRequest) float64
}

var validImageSizes = []string{"256x256", "512x512", "1024x1024", "1792x1024", "1024x1792"}

// ValidateImageRequest fails fast before any provider is contacted.
func ValidateImageRequest(req ImageRequest) error {
	if strings.TrimSpace(req.Prompt) == "" {
		return fmt.Errorf("image generation prompt is required")
	}
	if len(req.Prompt) > 4000 {
		return fmt.Errorf("image generation prompt is too long (max 4000 characters)")
	}
	if req.Size != "" {
		ok := false
		for _, s := range validImageSizes {
			if req.Size == s {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("invalid image size %q, must be one of: %s", req.Size, strings.Join(validImageSizes, ", "))
		}
	}
	if req.N != 0 && (req.N < 1 || req.N > 10) {
		return fmt.Errorf("number of images must be between 1 and 10")
	}
	return nil
}

// translateProviderError maps transport failures to domain-meaningful
// kinds. The mapping is advisory: the fallback loop treats everything as
// "try next provider" either way.
func translateProviderError(provider string, statusCode int, message string) error {
	switch {
	case statusCode == 429:
		return fmt.Errorf("%s rate limit exceeded, retry later", provider)
	case statusCode == 401:
		return fmt.Errorf("%s authentication failed, check API key", provider)
	case statusCode >= 500:
		return fmt.Errorf("%s service temporarily unavailable", provider)
	default:
		if message == "" {
			message = fmt.Sprintf("status %d", statusCode)
		}
		return fmt.Errorf("%s generation failed: %s", provider, message)
	}
}

// ImageService routes a request across providers in a configured
// preference order, falling through on failure or unavailability.
type ImageService struct {
	providers map[string]ImageProvider
	order     []string // [default, fallbacks...]
}

// NewImageService keeps only the providers that initialized (nil entries
// are providers whose credentials were absent).
func NewImageService(defaultProvider string, fallbacks []string, providers ...ImageProvider) *ImageService {
	s := &ImageService{providers: make(map[string]ImageProvider)}
	for _, p := range providers {
		if p != nil {
			s.providers[p.Name()] = p
		}
	}
	for _, name := range append([]string{defaultProvider}, fallbacks...) {
		if _, ok := s.providers[name]; ok {
			s.order = append(s.order, name)
		}
	}
	return s
}

// Generate tries each candidate provider in order and returns the first
// success. Every skip and failure is logged; if no candidate succeeds the
// aggregate error carries the last underlying one.
func (s *ImageService) Generate(ctx context.Context, req ImageRequest) (*ImageResponse, error) {
	if err := ValidateImageRequest(req); err != nil {
		return nil, err
	}
	if len(s.order) == 0 {
		return nil, fmt.Errorf("no image generation providers available")
	}

	var lastErr error
	for _, name := range s.order {
		provider := s.providers[name]

		available, err := provider.IsAvailable(ctx)
		if err != nil {
			log.Printf("[images] provider %s availability probe failed: %v", name, err)
			lastErr = err
			continue
		}
		if !available {
			log.Printf("[images] provider %s is not available, trying next", name)
			continue
		}

		log.Printf("[images] generating with provider %s", name)
		result, err := provider.Generate(ctx, req)
		if err != nil {
			log.Printf("[images] provider %s failed: %v", name, err)
			lastErr = err
			continue
		}
		log.Printf("[images] generated %d image(s) with %s (model=%s, cost=%.4f)",
			len(result.Images), result.Provider, result.Model, result.Cost)
		return result, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no provider was available")
	}
	return nil, fmt.Errorf("all image generation providers failed: %w", lastErr)
}

// AvailableProviders probes every initialized provider, for diagnostics.
func (s *ImageService) AvailableProviders(ctx context.Context) []string {
	var available []string
	for name, p := range s.providers {
		if ok, err := p.IsAvailable(ctx); err == nil && ok {
			available = append(available, name)
		}
	}
	return available
}

// EstimateCost reports the static price of a request on the named provider
// (the default one when name is empty).
func (s *ImageService) EstimateCost(req ImageRequest, name string) (float64, error) {
	if name == "" && len(s.order) > 0 {
		name = s.order[0]
	}
	p, ok := s.providers[name]
	if !ok {
		return 0, fmt.Errorf("provider %q not found", name)
	}
	return p.EstimateCost(req), nil
}
