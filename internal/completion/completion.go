// Package completion issues single-shot language-model completions.
package completion

import (
	"context"
	"errors"
)

type Request struct {
	System string
	Prompt string
	// Operation names the caller for logs ("prioritize", "schedule").
	Operation string
}

type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Func adapts a function to Completer.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

var (
	ErrEmptyResponse = errors.New("completion returned no result")
	ErrModel         = errors.New("completion reported an error")
)
