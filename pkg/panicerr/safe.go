// Package panicerr turns panics in background work into errors so a single
// bad run cannot take the server down.
package panicerr

import (
	"context"

	"github.com/sourcegraph/conc/panics"
)

func Safe(fn func() error) func() error {
	return func() error {
		var (
			catcher panics.Catcher
			err     error
		)
		catcher.Try(func() {
			err = fn()
		})
		if err != nil {
			return err
		}
		return catcher.Recovered().AsError()
	}
}

func SafeContext(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return Safe(func() error { return fn(ctx) })()
	}
}

// Go runs fn on its own goroutine and reports a returned error or recovered
// panic to onErr.
func Go(ctx context.Context, fn func(context.Context) error, onErr func(error)) {
	go func() {
		if err := SafeContext(fn)(ctx); err != nil && onErr != nil {
			onErr(err)
		}
	}()
}
