// Package gemini serves Google Gemini text models over the generateContent REST API
// with URL-context and Google-search grounding enabled.
package gemini

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/upb/dtn-ai-router/config"
	"github.com/upb/dtn-ai-router/internal/shared"
	"github.com/upb/dtn-ai-router/processors"
	"github.com/upb/dtn-ai-router/services"
	"go.uber.org/zap"
)

// ProcessorName is the catalog key for this handler
const ProcessorName = "gemini"

const apiVersion = "v1beta"

// upstreamModels is checked in order; flash-lite must precede flash
var upstreamModels = []struct {
	marker string
	name   string
}{
	{"google-gemini-1_5-pro", "models/gemini-1.5-pro-latest"},
	{"google-gemini-1_5-flash", "models/gemini-1.5-flash-latest"},
	{"google-gemini-2_5-pro", "models/gemini-2.5-pro"},
	{"google-gemini-2_5-flash-lite", "models/gemini-2.5-flash-lite"},
	{"google-gemini-2_5-flash", "models/gemini-2.5-flash"},
}

// groundingTools enables URL context and Google search on every call
const groundingTools = `[{"url_context":{}},{"google_search":{}}]`

// Handler calls the Gemini generateContent endpoint
type Handler struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	logger     *zap.Logger
}

// New creates a handler from the provider configuration
func New(cfg config.GeminiConfig, logger *zap.Logger) *Handler {
	return &Handler{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		logger:     logger,
	}
}

// Factory builds the handler for the processor catalog
func Factory(cfg *config.Config, logger *zap.Logger) (processors.Handler, error) {
	if cfg.Providers.Gemini.APIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, gemini models will fail until it is configured")
	}
	return New(cfg.Providers.Gemini, logger), nil
}

// UpstreamModel translates a model id into the Gemini model resource name
func UpstreamModel(modelID string) (string, error) {
	for _, m := range upstreamModels {
		if strings.Contains(modelID, m.marker) {
			return m.name, nil
		}
	}
	return "", fmt.Errorf("unknown model name: %s", modelID)
}

// Execute generates text for the prompt in parameter 0
func (h *Handler) Execute(ctx context.Context, modelID string, parameters []any, types []string) (any, string, error) {
	prompt, err := processors.Prompt(parameters, types, true)
	if err != nil {
		return nil, "", err
	}
	if h.apiKey == "" {
		return nil, "", services.NewAPIError(services.CodeMissingAPIKey, "GEMINI_API_KEY environment variable is required")
	}

	model, err := UpstreamModel(modelID)
	if err != nil {
		return nil, "", services.WrapAPIError(services.CodeTextGenerationError, "Text generation failed", err)
	}

	text, err := h.generate(ctx, model, prompt)
	if err != nil {
		h.logger.Error("gemini text generation failed",
			zap.String("request_id", shared.RequestID(ctx)),
			zap.String("model", model),
			zap.Error(err))
		return nil, "", services.WrapAPIError(services.CodeTextGenerationError, "Text generation failed", err)
	}
	if text == "" {
		return nil, "", services.NewAPIError(services.CodeNoResponse, "No response generated from Gemini API")
	}

	text, err = processors.SanitizeText(text)
	if err != nil {
		return nil, "", err
	}

	h.logger.Debug("generated text", zap.String("model", model), zap.Int("length", len(text)))
	return text, processors.TypeString, nil
}

func (h *Handler) generate(ctx context.Context, model, prompt string) (string, error) {
	payload, err := buildRequest(prompt)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s/%s:generateContent", h.baseURL, apiVersion, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-goog-api-key", h.apiKey)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(data, "error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}

	return extractText(data), nil
}

func buildRequest(prompt string) ([]byte, error) {
	payload := []byte(`{}`)
	var err error
	if payload, err = sjson.SetBytes(payload, "contents.0.role", "user"); err != nil {
		return nil, err
	}
	if payload, err = sjson.SetBytes(payload, "contents.0.parts.0.text", prompt); err != nil {
		return nil, err
	}
	if payload, err = sjson.SetRawBytes(payload, "tools", []byte(groundingTools)); err != nil {
		return nil, err
	}
	// -1 lets the model pick its own thinking budget
	if payload, err = sjson.SetBytes(payload, "generationConfig.thinkingConfig.thinkingBudget", -1); err != nil {
		return nil, err
	}
	return payload, nil
}

// extractText concatenates the text parts of the first candidate, skipping thought summaries
func extractText(data []byte) string {
	var sb strings.Builder
	gjson.GetBytes(data, "candidates.0.content.parts").ForEach(func(_, part gjson.Result) bool {
		if part.Get("thought").Bool() {
			return true
		}
		sb.WriteString(part.Get("text").String())
		return true
	})
	return sb.String()
}

var _ processors.Handler = (*Handler)(nil)
