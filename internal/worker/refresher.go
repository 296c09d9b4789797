package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/itamdash/internal/clock"
)

// RefreshFunc re-fetches one view and stores the result.
type RefreshFunc func(ctx context.Context) error

type registration struct {
	fn       RefreshFunc
	lastSeen time.Time
}

// Refresher periodically re-fetches the views clients are looking at. A view
// counts as visible while it was requested within the visibility window;
// older registrations are dropped on the next tick.
type Refresher struct {
	id       string
	interval time.Duration
	window   time.Duration
	clock    clock.Clock
	log      zerolog.Logger

	mu    sync.Mutex
	views map[string]registration
}

// NewRefresher creates a refresher ticking every interval.
func NewRefresher(interval, window time.Duration, clk clock.Clock, log zerolog.Logger) *Refresher {
	if clk == nil {
		clk = clock.Real()
	}
	id := uuid.NewString()
	return &Refresher{
		id:       id,
		interval: interval,
		window:   window,
		clock:    clk,
		log:      log.With().Str("refresher", id).Logger(),
		views:    make(map[string]registration),
	}
}

// Touch marks key as visible now and sets its refresh function. Each key has
// at most one registration; touching again replaces it.
func (r *Refresher) Touch(key string, fn RefreshFunc) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.views[key] = registration{fn: fn, lastSeen: r.clock.Now()}
	r.mu.Unlock()
}

// Len returns the number of registered views.
func (r *Refresher) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Run starts the refresh loop and should be launched in its own goroutine.
func (r *Refresher) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("refresher shutting down")
			return
		case <-ticker.C:
			r.RefreshOnce(ctx)
		}
	}
}

// RefreshOnce refreshes every visible view and forgets the rest. It
// returns the number of views refreshed.
func (r *Refresher) RefreshOnce(ctx context.Context) int {
	now := r.clock.Now()
	due := make(map[string]RefreshFunc)

	r.mu.Lock()
	for key, reg := range r.views {
		if now.Sub(reg.lastSeen) > r.window {
			delete(r.views, key)
			continue
		}
		due[key] = reg.fn
	}
	r.mu.Unlock()

	for key, fn := range due {
		if ctx.Err() != nil {
			break
		}
		if err := fn(ctx); err != nil {
			r.log.Warn().Err(err).Str("view", key).Msg("refresh failed")
		}
	}
	return len(due)
}
