// Package openai serves the simpletext and simpleimage model variants through the OpenAI API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	oa "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/upb/dtn-ai-router/config"
	reqctx "github.com/upb/dtn-ai-router/internal/shared"
	"github.com/upb/dtn-ai-router/processors"
	"github.com/upb/dtn-ai-router/services"
	"go.uber.org/zap"
)

// ProcessorName is the catalog key for this handler
const ProcessorName = "openai"

const (
	variantText  = "simpletext"
	variantImage = "simpleimage"

	maxTokens     = 1000
	temperature   = 0.7
	defaultWidth  = 1024
	defaultHeight = 1024
)

// Handler calls OpenAI chat completions or image generation depending on the model id
type Handler struct {
	client     oa.Client
	hasKey     bool
	textModel  string
	imageModel string
	logger     *zap.Logger
}

// New creates a handler from the provider configuration.
// A missing API key is not an error here; calls fail with MISSING_API_KEY instead.
func New(cfg config.OpenAIConfig, logger *zap.Logger) *Handler {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	httpClient := &http.Client{Transport: transport, Timeout: cfg.Timeout}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Handler{
		client:     oa.NewClient(opts...),
		hasKey:     cfg.APIKey != "",
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		logger:     logger,
	}
}

// Factory builds the handler for the processor catalog
func Factory(cfg *config.Config, logger *zap.Logger) (processors.Handler, error) {
	if cfg.Providers.OpenAI.APIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, openai models will fail until it is configured")
	}
	return New(cfg.Providers.OpenAI, logger), nil
}

// Execute dispatches on the model id variant
func (h *Handler) Execute(ctx context.Context, modelID string, parameters []any, types []string) (any, string, error) {
	switch {
	case strings.Contains(modelID, variantText):
		return h.generateText(ctx, parameters, types)
	case strings.Contains(modelID, variantImage):
		return h.generateImage(ctx, parameters, types)
	default:
		return nil, "", services.NewAPIError(services.CodeUnsupportedModelVariant,
			fmt.Sprintf("Unknown model type: %s", modelID))
	}
}

func (h *Handler) generateText(ctx context.Context, parameters []any, types []string) (any, string, error) {
	prompt, err := processors.Prompt(parameters, types, false)
	if err != nil {
		return nil, "", err
	}
	if !h.hasKey {
		return nil, "", missingKey()
	}

	resp, err := h.client.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model:       shared.ChatModel(h.textModel),
		Messages:    []oa.ChatCompletionMessageParamUnion{oa.UserMessage(prompt)},
		MaxTokens:   oa.Int(maxTokens),
		Temperature: oa.Float(temperature),
	})
	if err != nil {
		h.logUpstreamError(ctx, "text generation failed", err)
		return nil, "", services.WrapAPIError(services.CodeTextGenerationError, "Text generation failed", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, "", services.NewAPIError(services.CodeNoResponse, "No response generated from OpenAI API")
	}

	text, err := processors.SanitizeText(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, "", err
	}

	h.logger.Debug("generated text", zap.String("model", h.textModel), zap.Int("length", len(text)))
	return text, processors.TypeString, nil
}

func (h *Handler) generateImage(ctx context.Context, parameters []any, types []string) (any, string, error) {
	prompt, err := processors.Prompt(parameters, types, false)
	if err != nil {
		return nil, "", err
	}
	width, err := processors.Uint64At(parameters, types, 1, defaultWidth)
	if err != nil {
		return nil, "", err
	}
	height, err := processors.Uint64At(parameters, types, 2, defaultHeight)
	if err != nil {
		return nil, "", err
	}
	if !h.hasKey {
		return nil, "", missingKey()
	}

	resp, err := h.client.Images.Generate(ctx, oa.ImageGenerateParams{
		Prompt:         prompt,
		Model:          oa.ImageModel(h.imageModel),
		ResponseFormat: oa.ImageGenerateParamsResponseFormatB64JSON,
		Size:           oa.ImageGenerateParamsSize(fmt.Sprintf("%dx%d", width, height)),
	})
	if err != nil {
		h.logUpstreamError(ctx, "image generation failed", err)
		return nil, "", services.WrapAPIError(services.CodeImageGenerationError, "Image generation failed", err)
	}

	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, "", services.NewAPIError(services.CodeNoImageData, "No image data returned from OpenAI API")
	}

	h.logger.Debug("generated image",
		zap.String("model", h.imageModel),
		zap.Uint64("width", width),
		zap.Uint64("height", height))
	return resp.Data[0].B64JSON, processors.TypeBytes, nil
}

func (h *Handler) logUpstreamError(ctx context.Context, msg string, err error) {
	fields := []zap.Field{zap.String("request_id", reqctx.RequestID(ctx)), zap.Error(err)}
	var apiErr *oa.Error
	if errors.As(err, &apiErr) {
		fields = append(fields, zap.Int("status", apiErr.StatusCode))
	}
	h.logger.Error(msg, fields...)
}

func missingKey() error {
	return services.NewAPIError(services.CodeMissingAPIKey, "OPENAI_API_KEY environment variable is required")
}

var _ processors.Handler = (*Handler)(nil)
