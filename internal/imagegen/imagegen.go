// Package imagegen produces poster backgrounds from a text prompt.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"postergen/internal/log"
)

// ErrNoImage is returned when the upstream answered without image data.
var ErrNoImage = errors.New("imagegen: no image generated")

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("imagegen: image generation is not configured")

// Image is a generated bitmap.
type Image struct {
	Data     []byte
	MimeType string
}

// Generator produces one background image. Implementations may fail; callers
// keep the previous background in that case.
type Generator interface {
	GenerateBackground(ctx context.Context) (Image, error)
}

// Config configures the Gemini image client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Prompt  string
	Timeout time.Duration
}

const (
	defaultModel   = "imagen-4.0-generate-001"
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultTimeout = 120 * time.Second
	aspectRatio    = "3:4"
)

// Gemini calls the Imagen predict endpoint of the Gemini API.
type Gemini struct {
	config Config
	client *http.Client
}

// NewGemini returns a Gemini client with defaults filled in.
func NewGemini(cfg Config) *Gemini {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Gemini{config: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// GenerateBackground requests a single 3:4 portrait PNG for the configured
// prompt.
func (g *Gemini) GenerateBackground(ctx context.Context) (Image, error) {
	if g.config.APIKey == "" {
		return Image{}, ErrDisabled
	}

	body := imagenRequest{
		Instances: []imagenInstance{{Prompt: g.config.Prompt}},
		Parameters: imagenParameters{
			SampleCount:    1,
			AspectRatio:    aspectRatio,
			OutputMimeType: "image/png",
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Image{}, fmt.Errorf("imagen marshal: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:predict", g.config.BaseURL, g.config.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Image{}, fmt.Errorf("imagen request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.config.APIKey)

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("imagen http: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Image{}, fmt.Errorf("imagen read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Image{}, fmt.Errorf("imagen API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result imagenResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return Image{}, fmt.Errorf("imagen unmarshal: %w", err)
	}

	for _, p := range result.Predictions {
		if p.BytesBase64Encoded == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.BytesBase64Encoded)
		if err != nil {
			return Image{}, fmt.Errorf("imagen decode base64: %w", err)
		}
		mime := p.MimeType
		if mime == "" {
			mime = "image/png"
		}
		log.Info("background generated", "model", g.config.Model, "bytes", len(data), "took", time.Since(start))
		return Image{Data: data, MimeType: mime}, nil
	}
	return Image{}, ErrNoImage
}

// --- Imagen API types ---

type imagenInstance struct {
	Prompt string `json:"prompt"`
}

type imagenParameters struct {
	SampleCount    int    `json:"sampleCount"`
	AspectRatio    string `json:"aspectRatio"`
	OutputMimeType string `json:"outputMimeType"`
}

type imagenRequest struct {
	Instances  []imagenInstance `json:"instances"`
	Parameters imagenParameters `json:"parameters"`
}

type imagenPrediction struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type imagenResponse struct {
	Predictions []imagenPrediction `json:"predictions"`
}
