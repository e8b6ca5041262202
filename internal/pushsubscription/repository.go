package pushsubscription

import "context"

type Repository interface {
	// Save creates the subscription or replaces the one with the same
	// endpoint.
	Save(ctx context.Context, s *Subscription) error
	ListByUser(ctx context.Context, userID string) ([]*Subscription, error)
	DeleteByEndpoint(ctx context.Context, userID, endpoint string) error
}
