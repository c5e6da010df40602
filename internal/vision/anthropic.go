package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicConfig holds settings for the Claude vision backend.
type AnthropicConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// AnthropicBackend implements Backend using the Anthropic API: the page
// payload goes in as an image or document block alongside the category prompt.
type AnthropicBackend struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicBackend creates the Claude vision backend.
func NewAnthropicBackend(cfg AnthropicConfig) (*AnthropicBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required (vision.anthropic.api_key or ANTHROPIC_API_KEY)")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &AnthropicBackend{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Name returns the backend name.
func (b *AnthropicBackend) Name() string { return "anthropic" }

// Extract sends the page payload and prompt and returns the extracted text
// with derived confidence and token usage.
func (b *AnthropicBackend) Extract(ctx context.Context, req *Request) (*Result, error) {
	encoded := base64.StdEncoding.EncodeToString(req.Data)

	var payload anthropic.ContentBlockParamUnion
	if req.MediaType == "application/pdf" {
		payload = anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{Data: encoded})
	} else {
		payload = anthropic.NewImageBlockBase64(req.MediaType, encoded)
	}

	resp, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: int64(b.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(payload, anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &Result{
		Text:       strings.TrimSpace(text.String()),
		Confidence: deriveConfidence(text.Len(), string(resp.StopReason)),
		TokensUsed: int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}, nil
}

// deriveConfidence estimates extraction confidence from response shape. The
// model reports no confidence of its own; length and a clean stop are the
// usable signals.
func deriveConfidence(textLen int, stopReason string) float64 {
	var c float64
	switch {
	case textLen >= 200:
		c = 0.9
	case textLen >= 50:
		c = 0.7
	case textLen > 0:
		c = 0.4
	default:
		return 0
	}
	if stopReason == "max_tokens" {
		c -= 0.2
	}
	return c
}
