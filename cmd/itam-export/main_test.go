package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/itamdash/internal/export"
	"github.com/example/itamdash/internal/itam"
	"github.com/example/itamdash/internal/pipeline"
)

func backend(t *testing.T) *itam.Client {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tickets":
			_, _ = io.WriteString(w, `{"data":[
				{"_id":"a","ticket_id":"TKT-1","title":"VPN drops","status":"Open","priority":"High","created_at":"2026-03-01T08:00:00Z"},
				{"_id":"b","ticket_id":"TKT-2","title":"Disk full","status":"Closed","priority":"Low","created_at":"2026-02-01T08:00:00Z"}
			]}`)
		case "/hardware":
			_, _ = io.WriteString(w, `{"data":[{"_id":"h1","system":{"hostname":"DESKTOP-7","mac_address":"AA:01","platform":"Windows"}}]}`)
		case "/auth/users":
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"message":"admin only"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ts.Close)
	return itam.NewClient(ts.URL, time.Second)
}

func defaults(kind string) options {
	return options{
		kind:     kind,
		ticket:   pipeline.TicketFilter{Status: pipeline.All, Priority: pipeline.All, Category: pipeline.All, DateRange: pipeline.All, AssignedTo: pipeline.All, SLA: pipeline.All},
		asset:    pipeline.AssetFilter{Filter: pipeline.All},
		days:     30,
		severity: pipeline.All,
	}
}

func TestRunWritesTicketReport(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	opts := defaults("tickets")
	opts.ticket.Status = "Open"
	opts.out = t.TempDir()

	path, err := run(context.Background(), backend(t), opts, now, zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if filepath.Base(path) != "tickets_Open_2026-03-02.csv" {
		t.Errorf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "TKT-1,") {
		t.Errorf("report = %q", lines)
	}
}

func TestRunHardwareWithoutUsers(t *testing.T) {
	opts := defaults("hardware")
	opts.out = t.TempDir()
	path, err := run(context.Background(), backend(t), opts, time.Now(), zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "DESKTOP-7") {
		t.Errorf("report = %s", data)
	}
}

func TestRunLeavesNoFileWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	opts := defaults("tickets")
	opts.ticket.Status = "Rejected"
	opts.out = dir

	if _, err := run(context.Background(), backend(t), opts, time.Now(), zerolog.New(io.Discard)); !errors.Is(err, export.ErrNoRows) {
		t.Fatalf("err = %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("left files behind: %v", entries)
	}
}

func TestBuildRejectsBadInput(t *testing.T) {
	opts := defaults("inventory")
	if _, err := build(context.Background(), backend(t), opts, time.Now(), zerolog.New(io.Discard)); err == nil {
		t.Error("unknown kind accepted")
	}
	opts = defaults("tickets")
	opts.from = "03/01/2026"
	if _, err := build(context.Background(), backend(t), opts, time.Now(), zerolog.New(io.Discard)); err == nil {
		t.Error("bad --from accepted")
	}
}
