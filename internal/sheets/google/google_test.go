package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tourledger/internal/core"

	"google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets emulates the values endpoints used by Client: get, update and
// append, keyed by tab name.
type fakeSheets struct {
	mu      sync.Mutex
	tabs    map[string][][]any
	appends int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, rng, ok := strings.Cut(r.URL.Path, "/values/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	tab := rng
	if strings.HasPrefix(tab, "'") {
		tab = tab[1:strings.LastIndex(tab, "'!")]
		tab = strings.ReplaceAll(tab, "''", "'")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		values := f.tabs[tab]
		if strings.HasSuffix(rng, "!1:1") && len(values) > 0 {
			values = values[:1]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"range": rng, "majorDimension": "ROWS", "values": values})
	case r.Method == http.MethodPut:
		var body struct{ Values [][]any }
		_ = json.NewDecoder(r.Body).Decode(&body)
		rows := f.tabs[tab]
		if len(rows) == 0 {
			rows = body.Values
		} else {
			rows[0] = body.Values[0]
		}
		f.tabs[tab] = rows
		_ = json.NewEncoder(w).Encode(map[string]any{"updatedRange": rng})
	case r.Method == http.MethodPost && strings.HasSuffix(rng, ":append"):
		var body struct{ Values [][]any }
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.tabs[tab] = append(f.tabs[tab], body.Values...)
		f.appends++
		_ = json.NewEncoder(w).Encode(map[string]any{"updates": map[string]any{"updatedRange": rng}})
	default:
		http.Error(w, "unsupported", http.StatusBadRequest)
	}
}

func newTestClient(t *testing.T, fake http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewWithService(svc, "sheet-id", Tabs{})
}

func TestClient_ShowsRoundTrip(t *testing.T) {
	fake := &fakeSheets{tabs: map[string][][]any{}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	created, err := c.CreateShow(ctx, core.Show{
		ShowID: "NYC-2025-01", Date: core.NewDate(2025, 3, 14), Venue: "MSG", City: "New York",
		DealType: core.DealHybrid, ArtistGuarantee: 500000, ArtistPercentOfNet: 0.85, Status: core.StatusDraft,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}
	if _, err := c.CreateShow(ctx, core.Show{ShowID: "LA-2025-02", Status: core.StatusDraft}); err != nil {
		t.Fatalf("create second: %v", err)
	}

	if got := len(fake.tabs["Shows"]); got != 3 {
		t.Fatalf("expected header + 2 rows, got %d", got)
	}
	if fake.tabs["Shows"][0][0] != "ID" {
		t.Fatalf("header not written: %v", fake.tabs["Shows"][0])
	}

	shows, err := c.ListShows(ctx)
	if err != nil || len(shows) != 2 {
		t.Fatalf("list: %v %v", shows, err)
	}
	found, err := c.FindShows(ctx, "NYC-2025-01")
	if err != nil || len(found) != 1 || found[0].ID != created.ID {
		t.Fatalf("find: %v %v", found, err)
	}
	if found[0].Date.String() != "2025-03-14" || found[0].ArtistPercentOfNet != 0.85 {
		t.Fatalf("decoded show mismatch: %+v", found[0])
	}
	got, err := c.GetShow(ctx, created.ID)
	if err != nil || got.ShowID != "NYC-2025-01" {
		t.Fatalf("get: %+v %v", got, err)
	}
	if _, err := c.GetShow(ctx, "recmissing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_FiltersByShowID(t *testing.T) {
	fake := &fakeSheets{tabs: map[string][][]any{}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	for _, e := range []core.Expense{
		{ShowID: "NYC-2025-01", Category: core.CategoryMarketing, Amount: 120000},
		{ShowID: "NYC-2025-01", Category: core.CategoryProduction, Amount: 100000},
		{ShowID: "NYC-2025-010", Category: core.CategoryTravel, Amount: 80000},
	} {
		if _, err := c.CreateExpense(ctx, e); err != nil {
			t.Fatalf("create expense: %v", err)
		}
	}
	exps, err := c.ListExpenses(ctx, "NYC-2025-01")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(exps) != 2 {
		t.Fatalf("exact match expected 2 expenses, got %d", len(exps))
	}
	none, err := c.ListRevenue(ctx, "NYC-2025-01")
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty revenue, got %v %v", none, err)
	}
}

func TestClient_PostSettlementAppends(t *testing.T) {
	fake := &fakeSheets{tabs: map[string][][]any{}}
	c := newTestClient(t, fake)
	ctx := context.Background()
	at := time.Date(2025, 3, 15, 22, 0, 0, 0, time.UTC)

	s := core.Settlement{ShowID: "NYC-2025-01", CashDueToArtist: 535218.75}
	p1, err := c.PostSettlement(ctx, s, at)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if _, err := c.PostSettlement(ctx, s, at); err != nil {
		t.Fatalf("second post: %v", err)
	}
	list, err := c.ListSettlements(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != p1.ID || list[0].CashDueToArtist != 535218.75 {
		t.Fatalf("unexpected settlements: %+v", list)
	}
	if !list[0].SettlementDate.Equal(at) {
		t.Fatalf("settlement date = %v", list[0].SettlementDate)
	}
	if fake.appends != 2 {
		t.Fatalf("expected 2 appends, got %d", fake.appends)
	}
}

func TestClient_RejectsInvalidRecord(t *testing.T) {
	fake := &fakeSheets{tabs: map[string][][]any{}}
	c := newTestClient(t, fake)
	_, err := c.CreateRevenue(context.Background(), core.Revenue{ShowID: "", TicketTaxPercent: 2})
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if fake.appends != 0 {
		t.Fatal("invalid record must not be written")
	}
}

func TestNew_RequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
}
