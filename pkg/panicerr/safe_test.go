package panicerr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeRecoversPanic(t *testing.T) {
	err := Safe(func() error { panic("kaboom") })()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestSafePassesError(t *testing.T) {
	sentinel := errors.New("x")
	assert.ErrorIs(t, SafeContext(func(context.Context) error { return sentinel })(context.Background()), sentinel)
	assert.NoError(t, Safe(func() error { return nil })())
}

func TestGoReportsPanic(t *testing.T) {
	errs := make(chan error, 1)
	Go(context.Background(), func(context.Context) error { panic("late") }, func(err error) { errs <- err })
	select {
	case err := <-errs:
		assert.Contains(t, err.Error(), "late")
	case <-time.After(time.Second):
		t.Fatal("no error reported")
	}
}
