package profile

import "context"

type Repository interface {
	// Get returns the stored profile or Default(userID) when none exists.
	Get(ctx context.Context, userID string) (*Profile, error)
	Save(ctx context.Context, p *Profile) error
}

// Reader is the read side consumed by the prioritization and scheduling runs.
type Reader interface {
	Get(ctx context.Context, userID string) (*Profile, error)
}
