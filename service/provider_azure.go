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

// AzureImageProvider generates with a DALL-E 3 deployment on Azure OpenAI.
// Same wire shape as the public API, different auth header and URL layout.
type AzureImageProvider struct {
	apiKey     string
	endpoint   string
	apiVersion string
	httpClient *http.Client
}

func NewAzureImageProvider(apiKey, endpoint, apiVersion string) *AzureImageProvider {
	if apiKey == "" || endpoint == "" {
		return nil
	}
	if apiVersion == "" {
		apiVersion = "2024-02-01"
	}
	return &AzureImageProvider{
		apiKey:     apiKey,
		endpoint:   endpoint,
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *AzureImageProvider) Name() string { return "azure" }

func (p *AzureImageProvider) Generate(ctx context.Context, req ImageRequest) (*ImageResponse, error) {
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
	body, err := json.Marshal(map[string]interface{}{
		"prompt":  req.Prompt,
		"size":    dalleSize(req.Size),
		"quality": quality,
		"style":   style,
		"n":       1, // Azure DALL-E 3 only supports n=1
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/openai/deployments/dall-e-3/images/generations?api-version=%s",
		p.endpoint, p.apiVersion)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("azure image request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var parsed dalleResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode azure image response failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := ""
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, translateProviderError("Azure OpenAI", resp.StatusCode, msg)
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

func (p *AzureImageProvider) IsAvailable(ctx context.Context) (bool, error) {
	url := fmt.Sprintf("%s/openai/deployments?api-version=%s", p.endpoint, p.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("api-key", p.apiKey)
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

// Azure pricing tracks the public DALL-E table.
func (p *AzureImageProvider) EstimateCost(req ImageRequest) float64 {
	return dalleCost(req)
}
