package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/hivemind/pkg/errors"
	"github.com/theapemachine/hivemind/pkg/utils"
)

/*
Generator turns a single prompt into text. Every provider in this package
implements it, and so does Retrying.
*/
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

/*
Embedder turns text into a dense vector.
*/
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Kind string

const (
	KindGoogle    Kind = "google"
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
	KindOllama    Kind = "ollama"
	KindNone      Kind = "none"
)

var ErrEmptyResponse = errors.New("provider returned no text")

/*
Settings selects and configures a provider. An empty APIKey is resolved from
the provider's usual environment variables.
*/
type Settings struct {
	Kind       Kind
	Model      string
	EmbedModel string
	APIKey     string
	BaseURL    string
	Retry      *errors.RetryConfig
}

/*
New builds the generator and embedder for settings. Either may be nil: a nil
generator means no model is available, a nil embedder means the vector store
falls back to lexical ranking. A hosted provider without an API key yields a
nil generator rather than an error, so the system stays usable offline.
*/
func New(ctx context.Context, settings Settings) (Generator, Embedder, error) {
	var (
		generator Generator
		embedder  Embedder
		err       error
	)

	switch settings.Kind {
	case KindNone, "":
		return nil, nil, nil
	case KindGoogle:
		key := utils.FirstNonEmpty(
			settings.APIKey,
			os.Getenv("GENAI_API_KEY"),
			os.Getenv("GEMINI_API_KEY"),
			os.Getenv("GOOGLE_API_KEY"),
		)

		if key == "" {
			log.Warn("no Google API key found, running without a model")
			return nil, nil, nil
		}

		var google *GoogleProvider

		if google, err = NewGoogleProvider(
			ctx,
			WithGoogleAPIKey(key),
			WithGoogleModel(settings.Model),
			WithGoogleEmbedModel(settings.EmbedModel),
			WithGoogleBaseURL(settings.BaseURL),
		); err != nil {
			return nil, nil, err
		}

		generator = google

		if settings.EmbedModel != "" {
			embedder = google
		}
	case KindOpenAI:
		key := utils.FirstNonEmpty(settings.APIKey, os.Getenv("OPENAI_API_KEY"))

		if key == "" {
			log.Warn("no OpenAI API key found, running without a model")
			return nil, nil, nil
		}

		openai := NewOpenAIProvider(
			WithOpenAIAPIKey(key),
			WithOpenAIModel(settings.Model),
			WithOpenAIEmbedModel(settings.EmbedModel),
			WithOpenAIBaseURL(settings.BaseURL),
		)

		generator = openai

		if settings.EmbedModel != "" {
			embedder = openai
		}
	case KindAnthropic:
		key := utils.FirstNonEmpty(settings.APIKey, os.Getenv("ANTHROPIC_API_KEY"))

		if key == "" {
			log.Warn("no Anthropic API key found, running without a model")
			return nil, nil, nil
		}

		generator = NewAnthropicProvider(
			WithAnthropicAPIKey(key),
			WithAnthropicModel(settings.Model),
			WithAnthropicBaseURL(settings.BaseURL),
		)

		if settings.EmbedModel != "" {
			log.Warn("anthropic has no embedding endpoint, using lexical ranking", "embed_model", settings.EmbedModel)
		}
	case KindOllama:
		var ollama *OllamaProvider

		if ollama, err = NewOllamaProvider(
			WithOllamaModel(settings.Model),
			WithOllamaEmbedModel(settings.EmbedModel),
			WithOllamaBaseURL(settings.BaseURL),
		); err != nil {
			return nil, nil, err
		}

		generator = ollama

		if settings.EmbedModel != "" {
			embedder = ollama
		}
	default:
		return nil, nil, fmt.Errorf("provider: unknown kind %q", settings.Kind)
	}

	if settings.Retry != nil {
		generator = NewRetrying(generator, settings.Retry)
	}

	return generator, embedder, nil
}
