// Package ollama talks to the native Ollama /api/generate endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the local Ollama daemon.
	DefaultBaseURL = "http://localhost:11434"

	// UnexpectedFormat is returned as the answer text when a successful reply has no "response" field.
	UnexpectedFormat = "[Error: Unexpected LLM response format]"

	generatePath = "/api/generate"
	tagsPath     = "/api/tags"

	// cap on error bodies kept for messages
	maxErrorBody = 4 << 10
)

// ErrInvalidResponse is returned when the reply body is not JSON.
var ErrInvalidResponse = errors.New("invalid generation response")

// Config holds Ollama connection settings.
type Config struct {
	// BaseURL is the daemon root. A full .../api/generate URL is accepted too.
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Generator sends non-streaming generate requests.
type Generator struct {
	root   string
	model  string
	client *http.Client
	logger *zap.Logger
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// NewGenerator creates an Ollama generator.
func NewGenerator(cfg Config) *Generator {
	root := strings.TrimRight(cfg.BaseURL, "/")
	root = strings.TrimSuffix(root, generatePath)
	if root == "" {
		root = DefaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{root: root, model: cfg.Model, client: client, logger: logger}
}

// Generate returns the "response" field of the reply. Transport failures,
// non-2xx statuses and non-JSON bodies are errors.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: g.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.root+generatePath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post %s: %w", generatePath, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError(resp.StatusCode, data)
	}

	if !gjson.ValidBytes(data) {
		return "", fmt.Errorf("%w: body is not JSON", ErrInvalidResponse)
	}
	answer := gjson.GetBytes(data, "response")
	if !answer.Exists() {
		g.logger.Warn("Generation reply has no response field", zap.String("model", g.model))
		return UnexpectedFormat, nil
	}
	return answer.String(), nil
}

// HealthCheck lists local models and verifies the configured one is present.
func (g *Generator) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.root+tagsPath, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", tagsPath, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, data)
	}

	for _, name := range gjson.GetBytes(data, "models.#.name").Array() {
		if name.String() == g.model {
			return nil
		}
	}
	return fmt.Errorf("model %q is not pulled", g.model)
}

func statusError(status int, body []byte) error {
	if msg := gjson.GetBytes(body, "error"); msg.Exists() {
		return fmt.Errorf("ollama returned %d: %s", status, msg.String())
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return fmt.Errorf("ollama returned %d: %s", status, strings.TrimSpace(string(body)))
}
