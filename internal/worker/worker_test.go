package worker

import (
	"context"
	"errors"
	"io"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/itamdash/internal/clock"
)

func TestRefresherDropsInvisibleViews(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC))
	r := NewRefresher(30*time.Second, time.Minute, clk, zerolog.New(io.Discard))

	calls := map[string]int{}
	fn := func(key string) RefreshFunc {
		return func(context.Context) error {
			calls[key]++
			if key == "broken" {
				return errors.New("upstream down")
			}
			return nil
		}
	}
	r.Touch("tickets|admin", fn("tickets|admin"))
	r.Touch("broken", fn("broken"))
	clk.Advance(45 * time.Second)
	r.Touch("hardware|u1", fn("hardware|u1"))

	if n := r.RefreshOnce(context.Background()); n != 3 {
		t.Fatalf("first tick refreshed %d, want 3", n)
	}

	clk.Advance(30 * time.Second)
	if n := r.RefreshOnce(context.Background()); n != 1 {
		t.Fatalf("second tick refreshed %d, want 1", n)
	}
	if r.Len() != 1 || calls["hardware|u1"] != 2 || calls["tickets|admin"] != 1 {
		t.Errorf("len=%d calls=%v", r.Len(), calls)
	}
}

func TestRefresherOneRegistrationPerKey(t *testing.T) {
	clk := clock.NewFake(time.Now())
	r := NewRefresher(time.Second, time.Minute, clk, zerolog.New(io.Discard))
	var first, second int
	r.Touch("k", func(context.Context) error { first++; return nil })
	r.Touch("k", func(context.Context) error { second++; return nil })
	r.RefreshOnce(context.Background())
	if r.Len() != 1 || first != 0 || second != 1 {
		t.Errorf("len=%d first=%d second=%d", r.Len(), first, second)
	}
}

func TestRefresherRunStops(t *testing.T) {
	r := NewRefresher(time.Hour, time.Minute, clock.NewFake(time.Now()), zerolog.New(io.Discard))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { r.Run(ctx); close(done) }()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestDebouncerCoalesces(t *testing.T) {
	var mu sync.Mutex
	var batches [][]string
	got := make(chan struct{}, 4)
	d := NewDebouncer(20*time.Millisecond, func(keys []string) {
		mu.Lock()
		batches = append(batches, keys)
		mu.Unlock()
		got <- struct{}{}
	})
	for _, k := range []string{"ticket", "asset", "ticket", "user"} {
		d.Trigger(k)
	}
	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("debouncer never fired")
	}
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 || !reflect.DeepEqual(batches[0], []string{"ticket", "asset", "user"}) {
		t.Errorf("batches = %v", batches)
	}
}

func TestDebouncerFlushAndStop(t *testing.T) {
	var calls [][]string
	d := NewDebouncer(time.Hour, func(keys []string) { calls = append(calls, keys) })
	d.Trigger("hardware")
	d.Flush()
	if len(calls) != 1 || calls[0][0] != "hardware" {
		t.Fatalf("calls = %v", calls)
	}
	d.Stop()
	d.Trigger("ticket")
	d.Flush()
	if len(calls) != 1 {
		t.Errorf("stopped debouncer fired: %v", calls)
	}
}
