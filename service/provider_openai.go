package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// dalleSize clamps a requested size to what DALL-E 3 actually supports.
func dalleSize(size string) string {
	switch size {
	case "1792x1024", "1024x1792":
		return size
	default:
		return "1024x1024"
	}
}

// dalleCost is the static DALL-E 3 pricing table; it is never queried live.
func dalleCost(req ImageRequest) float64 {
	n := req.N
	if n == 0 {
		n = 1
	}
	base := 0.040
	if dalleSize(req.Size) == "1024x1024" && req.Quality == "hd" {
		base = 0.080
	}
	return base * float64(n)
}

type dalleRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Size    string `json:"size"`
	Quality string `json:"quality"`
	Style   string `json:"style"`
	N       int    `json:"n"`
}

type dalleResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Data []struct {
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

// OpenAIImageProvider generates with DALL-E 3 over the public API.
type OpenAIImageProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIImageProvider returns nil when no key is configured, which
// drops the provider from the fallback order.
func NewOpenAIImageProvider(apiKey, baseURL string) *OpenAIImageProvider {
	if apiKey == "" {
		return nil
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIImageProvider{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *OpenAIImageProvider) Name() string { return "openai" }

func (p *OpenAIImageProvider) Generate(ctx context.Context, req ImageRequest) (*ImageResponse, error) {
	if err := ValidateImageRequest(req); err != nil {
		return nil, err
	}

	quality := req.Quality
	if quality == "" {
		quality = "standard"
	}
	style := req.Style
	if style == "" {
		style = "vivid"
	}
	body, err := json.Marshal(dalleRequest{
		Model:   "dall-e-3",
		Prompt:  req.Prompt,
		Size:    dalleSize(req.Size),
		Quality: quality,
		Style:   style,
		N:       1, // DALL-E 3 only supports n=1
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai image request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var parsed dalleResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode openai image response failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := ""
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, translateProviderError("OpenAI DALL-E", resp.StatusCode, msg)
	}

	out := &ImageResponse{
		Provider: p.Name(),
		Model:    "dall-e-3",
		Cost:     p.EstimateCost(req),
	}
	for _, img := range parsed.Data {
		out.Images = append(out.Images, GeneratedImage{
			URL:           img.URL,
			RevisedPrompt: img.RevisedPrompt,
			Size:          normalizeSize(req.Size),
		})
	}
	return out, nil
}

func (p *OpenAIImageProvider) IsAvailable(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models/dall-e-3", nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

func (p *OpenAIImageProvider) EstimateCost(req ImageRequest) float64 {
	return dalleCost(req)
}

func normalizeSize(size string) string {
	if size == "" {
		return "1024x1024"
	}
	return size
}

// sizeDimensions splits "WxH" into integers, defaulting to 1024x1024.
func sizeDimensions(size string) (int, int) {
	parts := strings.SplitN(normalizeSize(size), "x", 2)
	if len(parts) != 2 {
		return 1024, 1024
	}
	w, errW := strconv.Atoi(parts[0])
	h, errH := strconv.Atoi(parts[1])
	if errW != nil || errH != nil {
		return 1024, 1024
	}
	return w, h
}
