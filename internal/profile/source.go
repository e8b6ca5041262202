package profile

import "context"

// Source answers the per-user questions the runs ask: rules and tier.
// It layers the optional rules directory over the stored profile.
type Source struct {
	repo  Reader
	rules *RulesDir
}

// NewSource returns a Source; rules may be nil.
func NewSource(repo Reader, rules *RulesDir) *Source {
	return &Source{repo: repo, rules: rules}
}

func (s *Source) Get(ctx context.Context, userID string) (*Profile, error) {
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.rules == nil {
		return p, nil
	}
	if r, ok := s.rules.Lookup(userID); ok {
		merged := *p
		if r.PrioritizingRules != "" {
			merged.PrioritizingRules = r.PrioritizingRules
		}
		if r.SchedulingRules != "" {
			merged.SchedulingRules = r.SchedulingRules
		}
		return &merged, nil
	}
	return p, nil
}
