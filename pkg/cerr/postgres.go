package cerr

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const pqUniqueViolation = pq.ErrorCode("23505")

func WrapPostgresReadError(target string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return NewError(NotFound, fmt.Sprintf("%s not found", target), err)
	}
	return NewError(Internal, "server error", fmt.Errorf("failed to read %s: %w", target, err))
}

func WrapPostgresWriteError(target string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return NewError(AlreadyExists, fmt.Sprintf("%s already exists", target), err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return NewError(NotFound, fmt.Sprintf("%s not found", target), err)
	}
	return NewError(Internal, "server error", fmt.Errorf("failed to write %s: %w", target, err))
}
