package itam

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/example/itamdash/internal/models"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api", 5*time.Second)
}

func TestListHardwareForwardsTokenAndPagination(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/hardware" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer user-token" {
			t.Errorf("authorization = %q", got)
		}
		if r.URL.Query().Get("search") != "desk" || r.URL.Query().Get("page") != "2" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"message":"ok","data":[{"_id":"h1","system":{"hostname":"DESK-1","mac_address":"m1"}}],
			"pagination":{"currentPage":2,"totalPages":4,"totalItems":31,"itemsPerPage":10}}`))
	})

	ctx := WithToken(context.Background(), "user-token")
	list, err := c.ListHardware(ctx, HardwareParams{Page: 2, Limit: 10, Search: "desk", Filter: "all"})
	if err != nil {
		t.Fatalf("ListHardware: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].System.Hostname != "DESK-1" {
		t.Errorf("items = %+v", list.Items)
	}
	if list.Pagination == nil || list.Pagination.TotalItems != 31 || list.Pagination.CurrentPage != 2 {
		t.Errorf("pagination = %+v", list.Pagination)
	}
}

func TestListTicketsSnakePagination(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":[{"_id":"t1","title":"x"}],
			"pagination":{"current_page":1,"total_pages":3,"total_tickets":25,"per_page":10}}`))
	})
	list, err := c.ListTickets(context.Background(), TicketParams{Limit: 10})
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if list.Pagination == nil || list.Pagination.TotalPages != 3 || list.Pagination.TotalItems != 25 {
		t.Errorf("pagination = %+v", list.Pagination)
	}
}

func TestServiceTokenFallback(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer svc" {
			t.Errorf("authorization = %q", got)
		}
		w.Write([]byte(`[]`))
	}).WithServiceToken("svc")

	items, err := c.ListSoftware(context.Background())
	if err != nil || items == nil || len(items) != 0 {
		t.Fatalf("ListSoftware = %v, %v", items, err)
	}
}

func TestAPIErrorCarriesServerMessage(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"success":false,"message":"Admin access required"}`))
	})
	_, err := c.Users(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusForbidden || apiErr.Message != "Admin access required" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestAPIErrorWithoutBody(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})
	_, err := c.ListSoftware(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Server error (502)" {
		t.Fatalf("err = %v", err)
	}
}

func TestTelemetryNotFoundIsNil(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"No telemetry"}`))
	})
	tm, err := c.Telemetry(context.Background(), "aa:bb")
	if err != nil || tm != nil {
		t.Fatalf("Telemetry = %v, %v; want nil, nil", tm, err)
	}
}

func TestTelemetryPicksLatest(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/telemetry/aa:bb" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"data":[
			{"last_updated":"2026-03-01T10:00:00Z","current_data":{"cpu_percent":5}},
			{"last_updated":"2026-03-01T11:00:00Z","current_data":{"cpu_percent":75}}
		]}`))
	})
	tm, err := c.Telemetry(context.Background(), "aa:bb")
	if err != nil || tm == nil {
		t.Fatalf("Telemetry = %v, %v", tm, err)
	}
	if tm.CPUPercent != 75 || tm.MACAddress != "aa:bb" {
		t.Errorf("telemetry = %+v", tm)
	}
}

func TestWarrantyAlertsSummaryFallback(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("days") != "30" || q.Get("filter") != "all" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"success":true,"alerts":[
			{"id":"a1","severity":"CRITICAL","daysUntilExpiry":3},
			{"id":"a2","severity":"medium","daysUntilExpiry":"25"}
		]}`))
	})
	list, err := c.WarrantyAlerts(context.Background(), AlertParams{})
	if err != nil {
		t.Fatalf("WarrantyAlerts: %v", err)
	}
	want := models.AlertSummary{Total: 2, Critical: 1, Medium: 1}
	if list.Summary != want {
		t.Errorf("summary = %+v, want %+v", list.Summary, want)
	}
	if list.Alerts[1].DaysUntilExpiry != 25 {
		t.Errorf("days = %d", list.Alerts[1].DaysUntilExpiry)
	}
}

func TestBulkAssignBody(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/bulk-assign" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Assignments []models.Assignment `json:"assignments"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if len(body.Assignments) != 2 || body.Assignments[1].MACAddress != "m2" {
			t.Errorf("body = %+v", body)
		}
		w.Write([]byte(`{"success":true}`))
	})
	err := c.BulkAssign(context.Background(), []models.Assignment{{UserID: "u1", MACAddress: "m1"}, {UserID: "u2", MACAddress: "m2"}})
	if err != nil {
		t.Fatalf("BulkAssign: %v", err)
	}
}

func TestUpdateTicketKeepsID(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/tickets/t9" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"message":"Ticket updated successfully"}`))
	})
	status := models.TicketStatusResolved
	tk, err := c.UpdateTicket(context.Background(), "t9", models.TicketUpdate{Status: &status})
	if err != nil || tk.ID != "t9" {
		t.Fatalf("UpdateTicket = %+v, %v", tk, err)
	}
}

func TestAllTicketsWalksPages(t *testing.T) {
	var pages []string
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		if r.URL.Query().Get("limit") != "1000" {
			t.Errorf("limit = %s", r.URL.Query().Get("limit"))
		}
		switch page {
		case "1":
			w.Write([]byte(`{"data":[{"_id":"t1"},{"_id":"t2"}],"pagination":{"current_page":1,"total_pages":2,"total_tickets":3,"per_page":2}}`))
		case "2":
			w.Write([]byte(`{"data":[{"_id":"t3"}],"pagination":{"current_page":2,"total_pages":2,"total_tickets":3,"per_page":2}}`))
		default:
			t.Errorf("unexpected page %q", page)
			w.Write([]byte(`{"data":[]}`))
		}
	})

	tickets, err := c.AllTickets(context.Background())
	if err != nil {
		t.Fatalf("AllTickets: %v", err)
	}
	if len(tickets) != 3 || tickets[2].ID != "t3" {
		t.Errorf("tickets = %+v", tickets)
	}
	if len(pages) != 2 {
		t.Errorf("requested pages %v", pages)
	}
}

func TestAllTicketsRejectsIgnoredPage(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"_id":"t1"}],"pagination":{"current_page":1,"total_pages":2}}`))
	})
	if _, err := c.AllTickets(context.Background()); err == nil {
		t.Fatal("expected an error when the server repeats page 1")
	}
}

func TestNonJSONSuccessIsAnError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>Please sign in</body></html>`))
	})
	items, err := c.ListSoftware(context.Background())
	if err == nil {
		t.Fatalf("ListSoftware = %v, want error for an HTML body", items)
	}
}

func TestEmptySuccessBodyIsAccepted(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if err := c.RemoveAsset(context.Background(), "u1", "AA:01"); err != nil {
		t.Fatalf("RemoveAsset: %v", err)
	}
}
