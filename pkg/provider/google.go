package provider

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const DefaultGoogleModel = "gemini-3-flash-preview"

/*
GoogleProvider generates text and embeddings through the Gemini API.
*/
type GoogleProvider struct {
	client     *genai.Client
	apiKey     string
	baseURL    string
	model      string
	embedModel string
}

type GoogleProviderOption func(*GoogleProvider)

func NewGoogleProvider(
	ctx context.Context, options ...GoogleProviderOption,
) (*GoogleProvider, error) {
	prvdr := &GoogleProvider{model: DefaultGoogleModel}

	for _, option := range options {
		option(prvdr)
	}

	config := &genai.ClientConfig{
		APIKey:  prvdr.apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	if prvdr.baseURL != "" {
		config.HTTPOptions = genai.HTTPOptions{BaseURL: prvdr.baseURL}
	}

	client, err := genai.NewClient(ctx, config)

	if err != nil {
		return nil, fmt.Errorf("google: create client: %w", err)
	}

	prvdr.client = client
	return prvdr, nil
}

func (prvdr *GoogleProvider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := prvdr.client.Models.GenerateContent(ctx, prvdr.model, genai.Text(prompt), nil)

	if err != nil {
		return "", fmt.Errorf("google: generate: %w", err)
	}

	text := resp.Text()

	if text == "" {
		return "", ErrEmptyResponse
	}

	return text, nil
}

func (prvdr *GoogleProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := prvdr.client.Models.EmbedContent(ctx, prvdr.embedModel, genai.Text(text), nil)

	if err != nil {
		return nil, fmt.Errorf("google: embed: %w", err)
	}

	if len(resp.Embeddings) == 0 {
		return nil, ErrEmptyResponse
	}

	return resp.Embeddings[0].Values, nil
}

func WithGoogleAPIKey(key string) GoogleProviderOption {
	return func(prvdr *GoogleProvider) {
		prvdr.apiKey = key
	}
}

func WithGoogleModel(model string) GoogleProviderOption {
	return func(prvdr *GoogleProvider) {
		if model != "" {
			prvdr.model = model
		}
	}
}

func WithGoogleEmbedModel(model string) GoogleProviderOption {
	return func(prvdr *GoogleProvider) {
		prvdr.embedModel = model
	}
}

func WithGoogleBaseURL(address string) GoogleProviderOption {
	return func(prvdr *GoogleProvider) {
		prvdr.baseURL = address
	}
}
