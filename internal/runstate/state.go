package runstate

import (
	"context"
	"time"
)

// State is the per-user record that survives restarts: the fingerprint of
// the last prioritized task set and the outcome of the last runs.
type State struct {
	UserID             string     `yaml:"user_id" json:"userId"`
	PrioritizationHash string     `yaml:"prioritization_hash" json:"prioritizationHash"`
	LastPrioritizedAt  *time.Time `yaml:"last_prioritized_at,omitempty" json:"lastPrioritizedAt,omitempty"`
	LastScheduledAt    *time.Time `yaml:"last_scheduled_at,omitempty" json:"lastScheduledAt,omitempty"`
	LastScheduleError  string     `yaml:"last_schedule_error,omitempty" json:"lastScheduleError,omitempty"`
}

type Repository interface {
	// Get returns an empty State for users with no record.
	Get(ctx context.Context, userID string) (*State, error)
	Save(ctx context.Context, s *State) error
}
