package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/example/itamdash/internal/cache"
	"github.com/example/itamdash/internal/clock"
	"github.com/example/itamdash/internal/itam"
	"github.com/example/itamdash/internal/models"
	"github.com/example/itamdash/internal/mq"
	"github.com/example/itamdash/internal/pipeline"
	"github.com/example/itamdash/internal/worker"
)

// Cache resources. Keys are "<resource>|<role>|<user>|<params>".
const (
	resTickets     = "tickets"
	resHardware    = "hardware"
	resSoftware    = "software"
	resUsers       = "users"
	resUserAssets  = "assets"
	resAssignments = "assignments"
	resAlerts      = "alerts"
	resTelemetry   = "telemetry"
)

// affected maps an upstream change resource to the cache resources it
// invalidates.
var affected = map[string][]string{
	"ticket":   {resTickets},
	"hardware": {resHardware, resUserAssets, resAssignments, resAlerts},
	"software": {resSoftware},
	"asset":    {resHardware, resUserAssets, resUsers, resAssignments},
	"user":     {resUsers, resAssignments},
	"alert":    {resAlerts},
}

// Result wraps data served by the gateway. Stale is set when the upstream
// fetch failed and an expired cache entry was served instead.
type Result[T any] struct {
	Data     T
	Stale    bool
	StoredAt time.Time
}

// Options configure a DashboardService.
type Options struct {
	Source    Source
	Backend   Backend
	Cache     *cache.Cache[any]
	Publisher mq.Publisher
	Refresher *worker.Refresher
	// Debounce coalesces bursts of change events. Zero applies each event
	// as it arrives.
	Debounce time.Duration
	Clock    clock.Clock
	Log      zerolog.Logger
}

// DashboardService shapes ITAM records into dashboard views. Reads are
// cached per viewer; mutations go to the backend, invalidate the affected
// views and publish an event.
type DashboardService struct {
	source    Source
	backend   Backend
	cache     *cache.Cache[any]
	publisher mq.Publisher
	refresher *worker.Refresher
	debouncer *worker.Debouncer
	latest    *Latest
	clock     clock.Clock
	log       zerolog.Logger

	cursorMu sync.Mutex
	cursors  map[string]pipeline.Cursor[pipeline.TicketFilter]
}

// New builds a service. Source defaults to the API source over Backend.
func New(opts Options) *DashboardService {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Cache == nil {
		opts.Cache = cache.New[any](cache.Options{Clock: opts.Clock})
	}
	if opts.Source == nil {
		opts.Source = NewAPISource(opts.Backend)
	}
	s := &DashboardService{
		source:    opts.Source,
		backend:   opts.Backend,
		cache:     opts.Cache,
		publisher: opts.Publisher,
		refresher: opts.Refresher,
		latest:    NewLatest(),
		clock:     opts.Clock,
		log:       opts.Log.With().Str("source", opts.Source.Name()).Logger(),
		cursors:   make(map[string]pipeline.Cursor[pipeline.TicketFilter]),
	}
	if opts.Debounce > 0 {
		s.debouncer = worker.NewDebouncer(opts.Debounce, func(resources []string) {
			s.Invalidate(resources...)
		})
	}
	return s
}

// Close applies change events still waiting in the debounce window.
func (s *DashboardService) Close() {
	if s.debouncer == nil {
		return
	}
	s.debouncer.Flush()
	s.debouncer.Stop()
}

// cacheKey scopes a key to the viewer. Admins share one entry per query.
func cacheKey(resource string, viewer models.Viewer, params ...string) string {
	user := viewer.UserID
	if viewer.IsAdmin() {
		user = "*"
	}
	return strings.Join([]string{resource, string(viewer.Role), user, strings.Join(params, "&")}, "|")
}

// cached serves key from the cache when fresh, and otherwise fetches it.
// A failed fetch falls back to the last stored value, marked stale.
func cached[T any](ctx context.Context, s *DashboardService, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (Result[T], error) {
	if e, ok := s.cache.Stale(key); ok && e.Fresh {
		if data, ok := e.Value.(T); ok {
			watch(ctx, s, key, ttl, fetch)
			return Result[T]{Data: data, StoredAt: e.StoredAt}, nil
		}
	}

	data, err := load(ctx, s, key, ttl, fetch)
	if err != nil {
		if e, ok := s.cache.Stale(key); ok {
			if old, ok := e.Value.(T); ok {
				s.log.Warn().Err(err).Str("key", key).Msg("upstream fetch failed, serving stale data")
				return Result[T]{Data: old, Stale: true, StoredAt: e.StoredAt}, nil
			}
		}
		return Result[T]{}, errors.Wrapf(err, "fetch %s", strings.SplitN(key, "|", 2)[0])
	}

	watch(ctx, s, key, ttl, fetch)
	return Result[T]{Data: data, StoredAt: s.clock.Now()}, nil
}

// load fetches key through the flight registry and stores the result. A
// fetch superseded by an invalidation is retried once so the caller sees
// the state after the change.
func load[T any](ctx context.Context, s *DashboardService, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	run := func(fctx context.Context) (any, error) {
		v, err := fetch(fctx)
		return v, err
	}
	commit := func(v any) { s.cache.SetTTL(key, v, ttl) }

	v, err := s.latest.Do(ctx, key, run, commit)
	if errors.Is(err, ErrSuperseded) {
		v, err = s.latest.Do(ctx, key, run, commit)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	data, _ := v.(T)
	return data, nil
}

// watch registers key with the refresher. The request token is captured so
// background refreshes run with the viewer's permissions.
func watch[T any](ctx context.Context, s *DashboardService, key string, ttl time.Duration, fetch func(context.Context) (T, error)) {
	if s.refresher == nil {
		return
	}
	token := itam.TokenFrom(ctx)
	s.refresher.Touch(key, func(rctx context.Context) error {
		_, err := load(itam.WithToken(rctx, token), s, key, ttl, fetch)
		return err
	})
}

// Invalidate drops the cached views affected by changes to the given
// upstream resources and returns the number of entries removed. Unknown
// resources invalidate everything.
func (s *DashboardService) Invalidate(resources ...string) int {
	seen := make(map[string]bool)
	removed := 0
	for _, r := range resources {
		targets, ok := affected[strings.ToLower(r)]
		if !ok {
			s.latest.Supersede("")
			n := s.cache.Len()
			s.cache.InvalidateAll()
			s.log.Info().Str("resource", r).Int("removed", n).Msg("cache cleared")
			return removed + n
		}
		for _, t := range targets {
			if seen[t] {
				continue
			}
			seen[t] = true
			s.latest.Supersede(t + "|")
			removed += s.cache.InvalidatePrefix(t + "|")
		}
	}
	s.log.Debug().Strs("resources", resources).Int("removed", removed).Msg("cache invalidated")
	return removed
}

// HandleEvent applies an upstream change event. With a debounce window the
// invalidation waits until the burst of events is over.
func (s *DashboardService) HandleEvent(_ context.Context, ev mq.Event) error {
	if s.debouncer != nil {
		s.debouncer.Trigger(ev.Resource)
		return nil
	}
	s.Invalidate(ev.Resource)
	return nil
}

func (s *DashboardService) invalidate(resources ...string) {
	for _, r := range resources {
		s.latest.Supersede(r + "|")
		s.cache.InvalidatePrefix(r + "|")
	}
}

func (s *DashboardService) publish(ctx context.Context, routingKey, id string, viewer models.Viewer, data map[string]any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, mq.NewEvent(routingKey, id, viewer.UserID, data)); err != nil {
		s.log.Error().Err(err).Str("event", routingKey).Msg("publish failed")
	}
}

func requireAdmin(viewer models.Viewer) error {
	if !viewer.IsAdmin() {
		return ErrForbidden
	}
	return nil
}
