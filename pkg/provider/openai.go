package provider

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/theapemachine/hivemind/pkg/utils"
)

const DefaultOpenAIModel = "gpt-4o-mini"

/*
OpenAIProvider is a provider for the OpenAI API.
*/
type OpenAIProvider struct {
	client     openai.Client
	options    []option.RequestOption
	model      string
	embedModel string
}

type OpenAIProviderOption func(*OpenAIProvider)

func NewOpenAIProvider(options ...OpenAIProviderOption) *OpenAIProvider {
	prvdr := &OpenAIProvider{model: DefaultOpenAIModel}

	for _, option := range options {
		option(prvdr)
	}

	prvdr.client = openai.NewClient(prvdr.options...)
	return prvdr
}

func (prvdr *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := prvdr.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(prvdr.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})

	if err != nil {
		return "", fmt.Errorf("openai: generate: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}

func (prvdr *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := prvdr.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(prvdr.embedModel),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: []string{text}},
	})

	if err != nil {
		return nil, fmt.Errorf("openai: embed: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, ErrEmptyResponse
	}

	return utils.ConvertToFloat32(resp.Data[0].Embedding), nil
}

func WithOpenAIAPIKey(key string) OpenAIProviderOption {
	return func(prvdr *OpenAIProvider) {
		prvdr.options = append(prvdr.options, option.WithAPIKey(key))
	}
}

func WithOpenAIModel(model string) OpenAIProviderOption {
	return func(prvdr *OpenAIProvider) {
		if model != "" {
			prvdr.model = model
		}
	}
}

func WithOpenAIEmbedModel(model string) OpenAIProviderOption {
	return func(prvdr *OpenAIProvider) {
		prvdr.embedModel = model
	}
}

func WithOpenAIBaseURL(address string) OpenAIProviderOption {
	return func(prvdr *OpenAIProvider) {
		if address != "" {
			prvdr.options = append(prvdr.options, option.WithBaseURL(address))
		}
	}
}
