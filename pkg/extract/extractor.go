package extract

import (
	"context"
	"fmt"
	"strings"
)

/*
Extractor turns a chunk of text into newline-separated
"(Subject, relation, Object)" lines. Implementations are free to call out to
a language model; their output is never trusted and always goes through Parse.
*/
type Extractor interface {
	Extract(ctx context.Context, chunk string) (string, error)
}

/*
Generator is the minimal completion contract an LLMExtractor needs.
*/
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

/*
LLMExtractor prompts a text generator to act as a knowledge graph builder.
*/
type LLMExtractor struct {
	generator Generator
	prompt    string
}

type LLMExtractorOption func(*LLMExtractor)

func NewLLMExtractor(generator Generator, options ...LLMExtractorOption) *LLMExtractor {
	extractor := &LLMExtractor{
		generator: generator,
		prompt:    DefaultPrompt,
	}

	for _, option := range options {
		option(extractor)
	}

	return extractor
}

func (extractor *LLMExtractor) Extract(ctx context.Context, chunk string) (string, error) {
	out, err := extractor.generator.Generate(ctx, strings.ReplaceAll(extractor.prompt, "{{text}}", chunk))

	if err != nil {
		return "", fmt.Errorf("extract: %w", err)
	}

	return out, nil
}

/*
Fallback returns the same placeholder fact for every chunk. It keeps the
ingestion path exercisable when no model is configured.
*/
type Fallback struct{}

func (Fallback) Extract(ctx context.Context, chunk string) (string, error) {
	return FallbackOutput, nil
}

const FallbackOutput = "Paper, mentions, Concept"

/*
DefaultPrompt is the knowledge graph builder instruction. The chunk is
substituted for {{text}}.
*/
const DefaultPrompt = `You are a knowledge graph builder. Extract core scientific entities and their
relationships from this research text.

Output ONLY in this format:
(Entity1, relationship, Entity2)
(Entity2, relationship, Entity3)

Example: (Backpropagation, used_in, Neural Networks)

Text: {{text}}
`

func WithPrompt(prompt string) LLMExtractorOption {
	return func(extractor *LLMExtractor) {
		extractor.prompt = prompt
	}
}
