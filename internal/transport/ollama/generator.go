package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/clinico-health/assist/internal/domain"
	"github.com/clinico-health/assist/internal/metrics"
)

// Generator produces completions from a local Ollama server.
// It implements domain.Generator and domain.VisionGenerator.
type Generator struct {
	baseURL     string
	model       string
	visionModel string
	client      *http.Client
	logger      *zap.Logger
}

// Config holds the local generation backend settings.
type Config struct {
	BaseURL     string
	Model       string
	VisionModel string
	Timeout     time.Duration
	Logger      *zap.Logger
}

// New creates an Ollama generation client.
func New(cfg *Config) *Generator {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	visionModel := cfg.VisionModel
	if visionModel == "" {
		visionModel = cfg.Model
	}

	return &Generator{
		baseURL:     baseURL,
		model:       cfg.Model,
		visionModel: visionModel,
		client:      &http.Client{Timeout: timeout},
		logger:      cfg.Logger,
	}
}

type generateRequest struct {
	Model  string   `json:"model"`
	System string   `json:"system,omitempty"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
	Stream bool     `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate implements domain.Generator.
func (g *Generator) Generate(ctx context.Context, system, prompt string) (string, error) {
	return g.generate(ctx, generateRequest{
		Model:  g.model,
		System: system,
		Prompt: prompt,
	}, g.model)
}

// GenerateVision implements domain.VisionGenerator. Ollama accepts the
// image as a raw base64 string in the images field.
func (g *Generator) GenerateVision(ctx context.Context, instruction, imageB64 string) (string, error) {
	return g.generate(ctx, generateRequest{
		Model:  g.visionModel,
		Prompt: instruction,
		Images: []string{imageB64},
	}, g.visionModel)
}

func (g *Generator) generate(ctx context.Context, reqBody generateRequest, model string) (string, error) {
	start := time.Now()

	out, err := g.doGenerate(ctx, reqBody)
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues("local", model, "error").Inc()
		return "", err
	}

	metrics.GenerationRequestsTotal.WithLabelValues("local", model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues("local", model).Observe(time.Since(start).Seconds())

	return out, nil
}

func (g *Generator) doGenerate(ctx context.Context, reqBody generateRequest) (string, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call generation backend: %w", domain.ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generation backend returned status %d: %w", resp.StatusCode, domain.ErrUpstream)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode generate response: %w", domain.ErrUpstream)
	}

	return genResp.Response, nil
}

// HealthCheck verifies the local server is reachable.
func (g *Generator) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("generation backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("generation backend returned status %d", resp.StatusCode)
	}
	return nil
}
