package provider

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/hivemind/pkg/errors"
)

/*
Retrying wraps a Generator and retries failed calls with exponential backoff.
*/
type Retrying struct {
	generator Generator
	config    *errors.RetryConfig
}

func NewRetrying(generator Generator, config *errors.RetryConfig) *Retrying {
	if config == nil {
		config = errors.DefaultRetryConfig()
	}

	return &Retrying{generator: generator, config: config}
}

func (retrying *Retrying) Generate(ctx context.Context, prompt string) (string, error) {
	var (
		out     string
		attempt int
	)

	err := errors.RetryWithBackoff(ctx, retrying.config, func() (err error) {
		attempt++

		if out, err = retrying.generator.Generate(ctx, prompt); err != nil {
			log.Debug("generation attempt failed", "attempt", attempt, "error", err)
		}

		return err
	})

	return out, err
}
