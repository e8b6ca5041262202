package cerr

import (
	"errors"
	"fmt"

	"github.com/kazz187/eisenhower/pkg/storage"
)

// storageError maps a storage failure on target. A missing key surfaces as
// NotFound when notFound is set; everything else is an opaque Internal.
func storageError(verb, target string, err error, notFound bool) error {
	if notFound && errors.Is(err, storage.ErrNotFound) {
		return NewError(NotFound, target+" not found", err)
	}
	return NewError(Internal, "server error", fmt.Errorf("failed to %s %s: %w", verb, target, err))
}

func WrapStorageReadError(target string, err error) error {
	return storageError("read", target, err, true)
}

// WrapStorageWriteError never reports NotFound: a write that misses its key
// is a backend fault, not a caller error.
func WrapStorageWriteError(target string, err error) error {
	return storageError("write", target, err, false)
}

func WrapStorageDeleteError(target string, err error) error {
	return storageError("delete", target, err, true)
}
