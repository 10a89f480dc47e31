package quota

import "context"

// Store persists per-day request counts.
type Store interface {
	// Increment adds one to the count for day and returns the new count.
	Increment(ctx context.Context, day string) (int, error)

	// Count returns the current count for day without modifying it.
	// A day with no entry has count 0.
	Count(ctx context.Context, day string) (int, error)

	// History returns every recorded day in chronological order.
	History(ctx context.Context) ([]Entry, error)

	// Close releases any resources.
	Close() error
}
