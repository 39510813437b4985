package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"tourledger/internal/core"
	ports "tourledger/internal/sheets"
	"tourledger/internal/sheets/memory"
)

var fixedNow = time.Date(2025, 6, 15, 23, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func seedTour(t *testing.T, store ports.Store) {
	t.Helper()
	ctx := context.Background()
	if _, err := store.CreateShow(ctx, core.Show{
		ShowID: "NYC-2025-01", Date: core.NewDate(2025, 6, 14), Venue: "Madison Square Garden",
		City: "New York", DealType: core.DealHybrid, ArtistGuarantee: 150000, ArtistPercentOfNet: 0.9,
		Status: core.StatusDraft,
	}); err != nil {
		t.Fatalf("seed show: %v", err)
	}
	if _, err := store.CreateRevenue(ctx, core.Revenue{
		ShowID: "NYC-2025-01", TicketGross: 2500000, TicketTaxPercent: 0.05,
		FacilityFeePercent: 0.03, CreditCardFeePercent: 0.025,
		SponsorshipRevenue: 50000, ParkingRevenue: 25000, ConcessionsRevenue: 75000,
	}); err != nil {
		t.Fatalf("seed revenue: %v", err)
	}
	for _, e := range []core.Expense{
		{ShowID: "NYC-2025-01", Category: core.CategoryMarketing, Amount: 120000},
		{ShowID: "NYC-2025-01", Category: core.CategoryProduction, Amount: 100000},
		{ShowID: "NYC-2025-01", Category: core.CategoryVenue, Amount: 80000},
	} {
		if _, err := store.CreateExpense(ctx, e); err != nil {
			t.Fatalf("seed expense: %v", err)
		}
	}
}

func TestSettlementService_Calculate(t *testing.T) {
	store := memory.New()
	seedTour(t, store)
	svc := NewSettlementService(store, nil, clock)

	s, err := svc.Calculate(context.Background(), "NYC-2025-01")
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if math.Abs(s.CashDueToArtist-535218.75) > 1e-6 {
		t.Fatalf("cash due = %v, want 535218.75", s.CashDueToArtist)
	}
	if math.Abs(s.TotalExpenses-300000) > 1e-6 || s.ShowID != "NYC-2025-01" {
		t.Fatalf("unexpected settlement: %+v", s)
	}
}

func TestSettlementService_CalculateUsesFirstRevenue(t *testing.T) {
	store := memory.New()
	seedTour(t, store)
	if _, err := store.CreateRevenue(context.Background(), core.Revenue{ShowID: "NYC-2025-01", TicketGross: 1}); err != nil {
		t.Fatalf("second revenue: %v", err)
	}
	svc := NewSettlementService(store, nil, clock)

	s, err := svc.Calculate(context.Background(), "NYC-2025-01")
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if math.Abs(s.AdjustedGross-2387500) > 1e-6 {
		t.Fatalf("adjusted gross = %v, expected first revenue record", s.AdjustedGross)
	}
}

func TestSettlementService_CalculateNoExpenses(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	_, _ = store.CreateShow(ctx, core.Show{ShowID: "BOS-2025-03"})
	_, _ = store.CreateRevenue(ctx, core.Revenue{ShowID: "BOS-2025-03", TicketGross: 100000})
	svc := NewSettlementService(store, nil, clock)

	s, err := svc.Calculate(ctx, "BOS-2025-03")
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if s.TotalExpenses != 0 || s.NOI != 100000 {
		t.Fatalf("unexpected settlement: %+v", s)
	}
	// Unset artist percent falls back to the default.
	if s.ArtistPercent != core.DefaultArtistPercent {
		t.Fatalf("artist percent = %v", s.ArtistPercent)
	}
}

func TestSettlementService_CalculateNotFound(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown show", func(t *testing.T) {
		svc := NewSettlementService(memory.New(), nil, clock)
		_, err := svc.Calculate(ctx, "NOPE-1")
		if !errors.Is(err, core.ErrShowNotFound) {
			t.Fatalf("expected ErrShowNotFound, got %v", err)
		}
	})

	t.Run("show without revenue is an error, never a zero settlement", func(t *testing.T) {
		store := memory.New()
		_, _ = store.CreateShow(ctx, core.Show{ShowID: "LA-2025-02"})
		_, _ = store.CreateExpense(ctx, core.Expense{ShowID: "LA-2025-02", Category: core.CategoryTravel, Amount: 500})
		svc := NewSettlementService(store, nil, clock)

		s, err := svc.Calculate(ctx, "LA-2025-02")
		if !errors.Is(err, core.ErrRevenueNotFound) {
			t.Fatalf("expected ErrRevenueNotFound, got %v", err)
		}
		if s != (core.Settlement{}) {
			t.Fatalf("expected empty settlement on error, got %+v", s)
		}
	})

	t.Run("missing show wins over missing revenue", func(t *testing.T) {
		store := memory.New()
		_, _ = store.CreateRevenue(ctx, core.Revenue{ShowID: "SEA-2025-04", TicketGross: 10})
		svc := NewSettlementService(store, nil, clock)
		if _, err := svc.Calculate(ctx, "SEA-2025-04"); !errors.Is(err, core.ErrShowNotFound) {
			t.Fatalf("expected ErrShowNotFound, got %v", err)
		}
	})
}

func TestSettlementService_CalculateUpstreamFailure(t *testing.T) {
	boom := errors.New("sheet unavailable")
	tests := []struct {
		name  string
		store *failingStore
	}{
		{"shows", &failingStore{Store: memory.New(), showsErr: boom}},
		{"revenue", &failingStore{Store: memory.New(), revenueErr: boom}},
		{"expenses", &failingStore{Store: memory.New(), expensesErr: boom}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seedTour(t, tt.store.Store)
			svc := NewSettlementService(tt.store, nil, clock)
			_, err := svc.Calculate(context.Background(), "NYC-2025-01")
			if !errors.Is(err, boom) {
				t.Fatalf("expected upstream error, got %v", err)
			}
			if errors.Is(err, core.ErrShowNotFound) || errors.Is(err, core.ErrRevenueNotFound) {
				t.Fatalf("upstream failure must not look like not found: %v", err)
			}
		})
	}
}

func TestSettlementService_PostVerbatim(t *testing.T) {
	store := memory.New()
	notifier := &recordingNotifier{}
	svc := NewSettlementService(store, notifier, clock)

	// Deliberately inconsistent figures are stored as given.
	in := core.Settlement{ShowID: "NYC-2025-01", NOI: 1, CashDueToArtist: 999}
	posted, err := svc.Post(context.Background(), in)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if posted.Settlement != in {
		t.Fatalf("settlement was modified: %+v", posted.Settlement)
	}
	if posted.ID == "" || !posted.SettlementDate.Equal(fixedNow) {
		t.Fatalf("unexpected id/date: %q %v", posted.ID, posted.SettlementDate)
	}
	msgs := notifier.published()
	if len(msgs) != 1 || msgs[0].table != ports.TableSettlements || msgs[0].recordID != posted.ID {
		t.Fatalf("unexpected notifications: %+v", msgs)
	}
}

func TestSettlementService_ConcurrentDoublePost(t *testing.T) {
	store := memory.New()
	seedTour(t, store)
	svc := NewSettlementService(store, nil, clock)
	ctx := context.Background()

	s, err := svc.Calculate(ctx, "NYC-2025-01")
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}

	var wg sync.WaitGroup
	ids := make([]string, 2)
	errs := make([]error, 2)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := svc.Post(ctx, s)
			ids[i], errs[i] = p.ID, err
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Fatalf("post: %v", err)
		}
	}
	if ids[0] == ids[1] {
		t.Fatal("expected two distinct records")
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 posted settlements, got %d", len(list))
	}
}

func TestSettlementService_ListError(t *testing.T) {
	boom := errors.New("quota exceeded")
	svc := NewSettlementService(&failingStore{Store: memory.New(), listSettlementsErr: boom}, nil, clock)
	if _, err := svc.List(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestSettlementService_CalculateRecoversStorePanic(t *testing.T) {
	for _, read := range []string{"shows", "revenue", "expenses"} {
		t.Run(read, func(t *testing.T) {
			svc := NewSettlementService(&failingStore{Store: memory.New(), panicOn: read}, nil, clock)
			_, err := svc.Calculate(context.Background(), "NYC-2025-01")
			if !errors.Is(err, ErrStorePanic) {
				t.Fatalf("expected ErrStorePanic, got %v", err)
			}
			if !strings.Contains(err.Error(), read+" read crashed") {
				t.Fatalf("panic value missing from %q", err)
			}
		})
	}
}
