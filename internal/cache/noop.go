package cache

import "context"

// Noop is a cache that never matches and stores nothing. Used when no
// database is configured so callers do not need nil checks.
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (n *Noop) FindSimilar(_ context.Context, _ string, _ Filters, _ float64) (*Match, error) {
	return nil, nil
}

func (n *Noop) Store(_ context.Context, entry Entry) (string, error) {
	return entry.ID, nil
}

func (n *Noop) RecordHit(_ context.Context, _ string) error {
	return nil
}
