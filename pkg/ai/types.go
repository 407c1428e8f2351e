package ai

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable indicates the model endpoint could not be reached at all.
	ErrUnavailable = errors.New("language model unavailable")
	// ErrTimeout indicates every attempt timed out.
	ErrTimeout = errors.New("language model timed out")
	// ErrUpstream indicates the endpoint answered with an error.
	ErrUpstream = errors.New("language model returned an error")
	// ErrEmptyResponse indicates the endpoint answered without any content.
	ErrEmptyResponse = errors.New("language model returned no content")
)

// Completer sends a single prompt to a language model and returns its text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
