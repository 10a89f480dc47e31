package quota

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/placeskit/pkg/observability"
)

// DefaultLimit is the daily request ceiling.
const DefaultLimit = 150000

// DayFormat is the layout of a tracker date (YYYYMMDD).
const DayFormat = "20060102"

// Tracker enforces a daily request ceiling against a [Store].
type Tracker struct {
	store  Store
	limit  int
	now    func() time.Time
	logger *log.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLimit sets the daily ceiling. Values below 1 are ignored.
func WithLimit(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.limit = n
		}
	}
}

// WithClock overrides the time source used to determine "today".
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLogger sets the logger for usage reports.
func WithLogger(l *log.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// New creates a Tracker over store with [DefaultLimit].
func New(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		limit:  DefaultLimit,
		now:    time.Now,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Limit returns the daily ceiling.
func (t *Tracker) Limit() int { return t.limit }

// Today returns the current day in [DayFormat], local time.
func (t *Tracker) Today() string { return t.now().Local().Format(DayFormat) }

// Allow counts one request against today's quota and reports whether quota
// remains, i.e. whether the new count is strictly below the limit.
//
// The store is updated on every call, including calls that report
// exhaustion. Store errors (missing or malformed tracker file) are returned
// unchanged and should abort the caller.
func (t *Tracker) Allow(ctx context.Context) (bool, error) {
	day := t.Today()
	count, err := t.store.Increment(ctx, day)
	if err != nil {
		return false, err
	}

	observability.Quota().OnIncrement(ctx, day, count, t.limit)
	if count < t.limit {
		t.logger.Debugf("quota %d/%d", count, t.limit)
		return true, nil
	}
	observability.Quota().OnExhausted(ctx, day, count, t.limit)
	t.logger.Warnf("places query quota exceeded: %d/%d", count, t.limit)
	return false, nil
}

// Usage describes today's consumption.
type Usage struct {
	Day   string
	Count int
	Limit int
}

// Remaining returns how many more requests Allow will accept today.
func (u Usage) Remaining() int {
	return max(u.Limit-1-u.Count, 0)
}

// Exhausted reports whether the next Allow call will be refused.
func (u Usage) Exhausted() bool { return u.Remaining() == 0 }

// Usage reads today's count without incrementing it.
func (t *Tracker) Usage(ctx context.Context) (Usage, error) {
	day := t.Today()
	count, err := t.store.Count(ctx, day)
	if err != nil {
		return Usage{}, err
	}
	return Usage{Day: day, Count: count, Limit: t.limit}, nil
}

// History returns all recorded days from the underlying store.
func (t *Tracker) History(ctx context.Context) ([]Entry, error) {
	return t.store.History(ctx)
}

// Close closes the underlying store.
func (t *Tracker) Close() error { return t.store.Close() }
