package service

import (
	"context"
	"strings"
	"sync"
)

// Latest runs at most one fetch per cache key. Callers asking for a key that
// is already being fetched wait for that fetch instead of starting another.
// Invalidation supersedes running fetches: their contexts are cancelled and
// their results never reach the cache.
type Latest struct {
	mu      sync.Mutex
	flights map[string]*flight
}

type flight struct {
	done       chan struct{}
	cancel     context.CancelFunc
	val        any
	err        error
	superseded bool
}

// NewLatest creates an empty registry.
func NewLatest() *Latest {
	return &Latest{flights: make(map[string]*flight)}
}

// Do returns the result of fetch for key, sharing a running fetch when
// there is one. The fetch runs detached from ctx so one caller going away
// does not fail the others; ctx only bounds how long this caller waits.
// commit is called with a successful result while the fetch is still
// current, so a superseded value is never stored.
func (l *Latest) Do(ctx context.Context, key string, fetch func(context.Context) (any, error), commit func(any)) (any, error) {
	l.mu.Lock()
	f, ok := l.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{done: make(chan struct{}), cancel: cancel}
		l.flights[key] = f
		go l.run(fctx, key, f, fetch, commit)
	}
	l.mu.Unlock()

	select {
	case <-f.done:
		if f.superseded {
			return nil, ErrSuperseded
		}
		return f.val, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Latest) run(ctx context.Context, key string, f *flight, fetch func(context.Context) (any, error), commit func(any)) {
	defer close(f.done)
	defer f.cancel()

	val, err := fetch(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	f.val, f.err = val, err
	if f.superseded {
		return
	}
	delete(l.flights, key)
	if err == nil && commit != nil {
		commit(val)
	}
}

// Supersede cancels the running fetches whose key starts with prefix and
// returns how many there were.
func (l *Latest) Supersede(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, f := range l.flights {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		f.superseded = true
		f.cancel()
		delete(l.flights, k)
		n++
	}
	return n
}
