package pipeline

import (
	"reflect"
	"testing"
	"time"

	"github.com/example/itamdash/internal/models"
)

var now = time.Date(2026, 6, 15, 14, 30, 0, 0, time.UTC)

func ticket(id string, status models.TicketStatus, p models.Priority, created time.Time) models.Ticket {
	return models.Ticket{ID: id, TicketID: id, Status: status, Priority: p, CreatedAt: created, UpdatedAt: created}
}

func ids(tickets []models.Ticket) []string {
	out := make([]string, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t.ID)
	}
	return out
}

func sample() []models.Ticket {
	return []models.Ticket{
		ticket("a", models.TicketStatusClosed, models.PriorityLow, now.Add(-72*time.Hour)),
		ticket("b", models.TicketStatusOpen, models.PriorityLow, now.Add(-2*time.Hour)),
		ticket("c", models.TicketStatusRejected, models.PriorityCritical, now.Add(-5*time.Hour)),
		ticket("d", models.TicketStatusInProgress, models.PriorityCritical, now.Add(-40*24*time.Hour)),
		ticket("e", models.TicketStatusOpen, models.PriorityCritical, now.Add(-time.Hour)),
		ticket("f", models.TicketStatusResolved, "Urgent", now.Add(-3*time.Hour)),
		ticket("g", models.TicketStatusClosed, models.PriorityHigh, now.Add(-10*time.Hour)),
	}
}

func TestExampleScenarioTwoPages(t *testing.T) {
	t0 := now.Add(-3 * time.Hour)
	input := []models.Ticket{
		ticket("T0", models.TicketStatusClosed, models.PriorityLow, t0),
		ticket("T1", models.TicketStatusOpen, models.PriorityCritical, t0.Add(time.Hour)),
		ticket("T2", models.TicketStatusOpen, models.PriorityHigh, t0.Add(2*time.Hour)),
	}
	for name, policy := range map[string]Policy{"dashboard": DashboardPolicy, "export": ExportPolicy} {
		first := RunTickets(input, TicketQuery{Page: 1, PerPage: 2}, policy, now)
		second := RunTickets(input, TicketQuery{Page: 2, PerPage: 2}, policy, now)

		if got := ids(first.Page.Items); !reflect.DeepEqual(got, []string{"T1", "T2"}) {
			t.Errorf("%s page 1 = %v", name, got)
		}
		if got := ids(second.Page.Items); !reflect.DeepEqual(got, []string{"T0"}) {
			t.Errorf("%s page 2 = %v", name, got)
		}
		if first.Page.TotalPages != 2 {
			t.Errorf("%s totalPages = %d, want 2", name, first.Page.TotalPages)
		}
	}
}

func TestSortPartitionsTerminalLast(t *testing.T) {
	for _, mode := range []SortMode{SortPartition, SortByPriority} {
		sorted := SortTickets(sample(), mode)
		seenTerminal := false
		for _, tk := range sorted {
			if tk.Terminal() {
				seenTerminal = true
			} else if seenTerminal {
				t.Fatalf("mode %d: active ticket %s after terminal one: %v", mode, tk.ID, ids(sorted))
			}
		}
	}
}

func TestSortOrders(t *testing.T) {
	input := sample()
	before := ids(input)

	if got, want := ids(SortTickets(input, SortPartition)), []string{"b", "d", "e", "f", "a", "c", "g"}; !reflect.DeepEqual(got, want) {
		t.Errorf("partition = %v, want %v", got, want)
	}
	// critical newest first, then low, then unknown rank; terminal in input order
	if got, want := ids(SortTickets(input, SortByPriority)), []string{"e", "d", "b", "f", "a", "c", "g"}; !reflect.DeepEqual(got, want) {
		t.Errorf("priority = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(ids(input), before) {
		t.Errorf("input reordered: %v", ids(input))
	}
}

func TestFilterIdempotentAndPure(t *testing.T) {
	input := sample()
	snapshot := append([]models.Ticket(nil), input...)
	f := TicketFilter{Priority: "Critical", Search: "", DateRange: RangeWeek}

	first := FilterTickets(input, f, ExcludeTerminalAlways, now)
	second := FilterTickets(input, f, ExcludeTerminalAlways, now)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("filter not idempotent: %v vs %v", ids(first), ids(second))
	}
	if !reflect.DeepEqual(input, snapshot) {
		t.Fatal("filter mutated its input")
	}
	if got := ids(first); !reflect.DeepEqual(got, []string{"e"}) {
		t.Errorf("filtered = %v, want [e]", got)
	}
}

func TestExclusionPolicies(t *testing.T) {
	cases := []struct {
		name   string
		filter TicketFilter
		policy ExclusionPolicy
		want   []string
	}{
		{"admin hides terminal", TicketFilter{}, ExcludeTerminalAlways, []string{"b", "d", "e", "f"}},
		{"dashboard unfiltered shows all", TicketFilter{Status: "all"}, ExcludeTerminalWhenFiltered, []string{"a", "b", "c", "d", "e", "f", "g"}},
		{"dashboard filtered hides terminal", TicketFilter{Priority: "Critical"}, ExcludeTerminalWhenFiltered, []string{"d", "e"}},
		{"explicit closed status", TicketFilter{Status: "Closed"}, ExcludeTerminalAlways, []string{"a", "g"}},
		{"show all keeps terminal", TicketFilter{Priority: "Critical"}, ShowAll, []string{"c", "d", "e"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(FilterTickets(sample(), tc.filter, tc.policy, now))
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSearchAndAssignee(t *testing.T) {
	input := []models.Ticket{
		{ID: "1", Title: "VPN drops", CreatedBy: "alice", Assignee: "bob"},
		{ID: "2", Description: "printer JAM", CreatedBy: "carol"},
		{ID: "3", TicketID: "TKT-0042", AssetHost: "desktop-07"},
	}
	cases := map[string]struct {
		filter TicketFilter
		want   []string
	}{
		"title":      {TicketFilter{Search: "vpn"}, []string{"1"}},
		"desc":       {TicketFilter{Search: "jam"}, []string{"2"}},
		"ticket id":  {TicketFilter{Search: "tkt-0042"}, []string{"3"}},
		"creator":    {TicketFilter{Search: "CAROL"}, []string{"2"}},
		"host":       {TicketFilter{Search: "DESKTOP"}, []string{"3"}},
		"assignee":   {TicketFilter{AssignedTo: "bob"}, []string{"1"}},
		"unassigned": {TicketFilter{AssignedTo: Unassigned}, []string{"2", "3"}},
	}
	for name, tc := range cases {
		got := ids(FilterTickets(input, tc.filter, ShowAll, now))
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: got %v, want %v", name, got, tc.want)
		}
	}
}

func TestDateRanges(t *testing.T) {
	midnight := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	input := []models.Ticket{
		{ID: "today", CreatedAt: midnight.Add(time.Minute)},
		{ID: "yesterday", CreatedAt: midnight.Add(-time.Minute)},
		{ID: "20d", CreatedAt: now.AddDate(0, 0, -20)},
		{ID: "60d", CreatedAt: now.AddDate(0, 0, -60)},
		{ID: "120d", CreatedAt: now.AddDate(0, 0, -120)},
	}
	cases := map[string][]string{
		RangeToday:   {"today"},
		RangeWeek:    {"today", "yesterday"},
		RangeMonth:   {"today", "yesterday", "20d"},
		RangeQuarter: {"today", "yesterday", "20d", "60d"},
		"bogus":      {"today", "yesterday", "20d", "60d", "120d"},
	}
	for token, want := range cases {
		got := ids(FilterTickets(input, TicketFilter{DateRange: token}, ShowAll, now))
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s: got %v, want %v", token, got, want)
		}
	}
}

func TestExplicitDateBoundsAndSLA(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 6, d, 0, 0, 0, 0, time.UTC) }
	input := []models.Ticket{
		{ID: "1", Priority: models.PriorityCritical, CreatedAt: day(1), UpdatedAt: day(1)},
		{ID: "2", Priority: models.PriorityLow, CreatedAt: day(10).Add(23 * time.Hour), UpdatedAt: day(14)},
		{ID: "3", Priority: models.PriorityLow, CreatedAt: day(11), UpdatedAt: day(14)},
	}
	f := TicketFilter{StartDate: day(2), EndDate: day(10)}
	if got := ids(FilterTickets(input, f, ShowAll, now)); !reflect.DeepEqual(got, []string{"2"}) {
		t.Errorf("date bounds = %v, want [2]", got)
	}
	if got := ids(FilterTickets(input, TicketFilter{SLA: "No"}, ShowAll, now)); !reflect.DeepEqual(got, []string{"1"}) {
		t.Errorf("sla=No = %v, want [1]", got)
	}
	if got := ids(FilterTickets(input, TicketFilter{SLA: "Yes"}, ShowAll, now)); !reflect.DeepEqual(got, []string{"2", "3"}) {
		t.Errorf("sla=Yes = %v, want [2 3]", got)
	}
}

func TestPaginationCoverage(t *testing.T) {
	items := make([]int, 23)
	for i := range items {
		items[i] = i
	}
	for _, per := range []int{1, 5, 7, 23, 50} {
		first := Paginate(items, 1, per)
		var all []int
		for p := 1; p <= first.TotalPages; p++ {
			all = append(all, Paginate(items, p, per).Items...)
		}
		if !reflect.DeepEqual(all, items) {
			t.Errorf("per=%d: concatenated pages = %v", per, all)
		}
	}
}

func TestPaginateEdges(t *testing.T) {
	empty := Paginate([]int{}, 3, 10)
	if empty.TotalPages != 1 || empty.CurrentPage != 1 || len(empty.Items) != 0 || empty.Items == nil {
		t.Errorf("empty = %+v", empty)
	}
	over := Paginate([]int{1, 2, 3}, 9, 2)
	if over.CurrentPage != 2 || !reflect.DeepEqual(over.Items, []int{3}) {
		t.Errorf("clamped = %+v", over)
	}
	if p := Paginate([]int{1}, 1, 0); p.ItemsPerPage != DefaultPerPage {
		t.Errorf("default per page = %d", p.ItemsPerPage)
	}
}

func TestCursorFilterReset(t *testing.T) {
	tickets := sample()
	c := NewCursor[TicketFilter](2).WithPage(3)
	if c.Page != 3 {
		t.Fatalf("page = %d", c.Page)
	}
	same := c.WithFilter(TicketFilter{})
	if same.Page != 3 {
		t.Errorf("unchanged filter reset page to %d", same.Page)
	}

	changed := c.WithFilter(TicketFilter{Priority: "Critical"})
	if changed.Page != 1 {
		t.Errorf("filter change left page at %d", changed.Page)
	}
	view := RunTickets(tickets, TicketQuery{Filter: changed.Filter, Page: changed.Page, PerPage: changed.PerPage}, AdminPolicy, now)
	if view.Page.TotalPages != TotalPages(view.Stats.Total, 2) || view.Page.TotalPages != 1 {
		t.Errorf("totalPages = %d for %d items", view.Page.TotalPages, view.Stats.Total)
	}
	if c.WithPage(5).Clamp(2).Page != 2 {
		t.Errorf("clamp did not cap page")
	}
	if c.WithPerPage(5).Page != 1 {
		t.Errorf("page size change should reset page")
	}
}

func TestTicketStats(t *testing.T) {
	view := RunTickets(sample(), TicketQuery{Filter: TicketFilter{Priority: "Critical"}}, AdminPolicy, now)
	s := view.Stats
	if s.Total != 2 || s.Unfiltered != 7 {
		t.Fatalf("stats = %+v", s)
	}
	if s.PercentOfTotal != 28.6 {
		t.Errorf("percent = %v, want 28.6", s.PercentOfTotal)
	}
	if s.ByStatus[models.TicketStatusOpen] != 1 || s.ByStatus[models.TicketStatusInProgress] != 1 || s.ByStatus[models.TicketStatusClosed] != 0 {
		t.Errorf("byStatus = %v", s.ByStatus)
	}
	if s.ByPriority[models.PriorityCritical] != 2 {
		t.Errorf("byPriority = %v", s.ByPriority)
	}
	if Percent(3, 0) != 0 {
		t.Errorf("empty unfiltered should give 0")
	}
}

func TestPolicyFor(t *testing.T) {
	if p, ok := PolicyFor("admin"); !ok || p != AdminPolicy {
		t.Errorf("admin = %+v", p)
	}
	if p, ok := PolicyFor(""); !ok || p != DashboardPolicy {
		t.Errorf("default = %+v", p)
	}
	if _, ok := PolicyFor("kiosk"); ok {
		t.Errorf("unknown view accepted")
	}
}
