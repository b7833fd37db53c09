package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

const DefaultOllamaModel = "llama3.2"

/*
OllamaProvider is a provider for a local Ollama server. Without a base URL
it follows OLLAMA_HOST like the ollama CLI does.
*/
type OllamaProvider struct {
	client     *api.Client
	baseURL    string
	model      string
	embedModel string
}

type OllamaProviderOption func(*OllamaProvider)

func NewOllamaProvider(options ...OllamaProviderOption) (*OllamaProvider, error) {
	prvdr := &OllamaProvider{model: DefaultOllamaModel}

	for _, option := range options {
		option(prvdr)
	}

	if prvdr.baseURL == "" {
		client, err := api.ClientFromEnvironment()

		if err != nil {
			return nil, fmt.Errorf("ollama: create client: %w", err)
		}

		prvdr.client = client
		return prvdr, nil
	}

	base, err := url.Parse(prvdr.baseURL)

	if err != nil {
		return nil, fmt.Errorf("ollama: parse base url: %w", err)
	}

	prvdr.client = api.NewClient(base, http.DefaultClient)
	return prvdr, nil
}

func (prvdr *OllamaProvider) Generate(ctx context.Context, prompt string) (string, error) {
	var (
		out    strings.Builder
		stream = false
	)

	if err := prvdr.client.Generate(ctx, &api.GenerateRequest{
		Model:  prvdr.model,
		Prompt: prompt,
		Stream: &stream,
	}, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	}); err != nil {
		return "", fmt.Errorf("ollama: generate: %w", err)
	}

	if out.Len() == 0 {
		return "", ErrEmptyResponse
	}

	return out.String(), nil
}

func (prvdr *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := prvdr.client.Embed(ctx, &api.EmbedRequest{
		Model: prvdr.embedModel,
		Input: text,
	})

	if err != nil {
		return nil, fmt.Errorf("ollama: embed: %w", err)
	}

	if len(resp.Embeddings) == 0 {
		return nil, ErrEmptyResponse
	}

	return resp.Embeddings[0], nil
}

func WithOllamaModel(model string) OllamaProviderOption {
	return func(prvdr *OllamaProvider) {
		if model != "" {
			prvdr.model = model
		}
	}
}

func WithOllamaEmbedModel(model string) OllamaProviderOption {
	return func(prvdr *OllamaProvider) {
		prvdr.embedModel = model
	}
}

func WithOllamaBaseURL(address string) OllamaProviderOption {
	return func(prvdr *OllamaProvider) {
		prvdr.baseURL = address
	}
}
