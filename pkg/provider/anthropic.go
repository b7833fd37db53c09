package provider

import (
	"context"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	anthropicMaxTokens    = 1024
)

/*
AnthropicProvider is a provider for the Anthropic API. It only generates;
Anthropic has no embedding endpoint.
*/
type AnthropicProvider struct {
	client  anthropic.Client
	options []option.RequestOption
	model   string
}

type AnthropicProviderOption func(*AnthropicProvider)

func NewAnthropicProvider(options ...AnthropicProviderOption) *AnthropicProvider {
	prvdr := &AnthropicProvider{model: DefaultAnthropicModel}

	for _, option := range options {
		option(prvdr)
	}

	prvdr.client = anthropic.NewClient(prvdr.options...)
	return prvdr
}

func (prvdr *AnthropicProvider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := prvdr.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(prvdr.model),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})

	if err != nil {
		return "", fmt.Errorf("anthropic: generate: %w", err)
	}

	var out strings.Builder

	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.WriteString(variant.Text)
		}
	}

	if out.Len() == 0 {
		return "", ErrEmptyResponse
	}

	return out.String(), nil
}

func WithAnthropicAPIKey(key string) AnthropicProviderOption {
	return func(prvdr *AnthropicProvider) {
		prvdr.options = append(prvdr.options, option.WithAPIKey(key))
	}
}

func WithAnthropicModel(model string) AnthropicProviderOption {
	return func(prvdr *AnthropicProvider) {
		if model != "" {
			prvdr.model = model
		}
	}
}

func WithAnthropicBaseURL(address string) AnthropicProviderOption {
	return func(prvdr *AnthropicProvider) {
		if address != "" {
			prvdr.options = append(prvdr.options, option.WithBaseURL(address))
		}
	}
}
