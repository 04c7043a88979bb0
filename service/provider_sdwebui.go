package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SDWebUIProvider generates with a self-hosted Stable Diffusion WebUI
// (txt2img API). It returns base64 payloads as data URLs; the worker
// re-hosts those on object storage before a draft is persisted.
type SDWebUIProvider struct {
	endpoint   string
	httpClient *http.Client
}

func NewSDWebUIProvider(endpoint string) *SDWebUIProvider {
	if endpoint == "" {
		return nil
	}
	return &SDWebUIProvider{
		endpoint: endpoint,
		// GPU boxes are slow; generation can take minutes.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (p *SDWebUIProvider) Name() string { return "sdwebui" }

type txt2imgRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	Steps          int    `json:"steps"`
	BatchSize      int    `json:"batch_size"`
}

type txt2imgResponse struct {
	Images []string `json:"images"` // base64 PNG
}

func (p *SDWebUIProvider) Generate(ctx context.Context, req ImageRequest) (*ImageResponse, error) {
	if err := ValidateImageRequest(req); err != nil {
		return nil, err
	}

	n := req.N
	if n == 0 {
		n = 1
	}
	width, height := sizeDimensions(req.Size)
	body, err := json.Marshal(txt2imgRequest{
		Prompt:         req.Prompt,
		NegativePrompt: "low quality, blurry, distorted",
		Width:          width,
		Height:         height,
		Steps:          30,
		BatchSize:      n,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.endpoint+"/sdapi/v1/txt2img", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sdwebui request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, translateProviderError("Stable Diffusion WebUI", resp.StatusCode, string(raw))
	}

	var parsed txt2imgResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode sdwebui response failed: %w", err)
	}
	if len(parsed.Images) == 0 {
		return nil, fmt.Errorf("sdwebui returned no images")
	}

	out := &ImageResponse{
		Provider: p.Name(),
		Model:    "stable-diffusion-webui",
		Cost:     p.EstimateCost(req),
	}
	for _, img := range parsed.Images {
		out.Images = append(out.Images, GeneratedImage{
			URL:  "data:image/png;base64," + img,
			Size: normalizeSize(req.Size),
		})
	}
	return out, nil
}

func (p *SDWebUIProvider) IsAvailable(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"/sdapi/v1/sd-models", nil)
	if err != nil {
		return false, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

// Self-hosted, so no per-image fee.
func (p *SDWebUIProvider) EstimateCost(ImageRequest) float64 {
	return 0
}
