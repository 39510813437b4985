package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tourledger/internal/core"
	ports "tourledger/internal/sheets"

	"golang.org/x/sync/errgroup"
)

// ErrStorePanic marks a store read that panicked during Calculate.
var ErrStorePanic = errors.New("store panicked")

// SettlementService computes and posts show settlements against a store.
type SettlementService struct {
	shows       ports.ShowStore
	revenue     ports.RevenueStore
	expenses    ports.ExpenseStore
	settlements ports.SettlementStore
	notifier    Notifier
	now         func() time.Time
}

// NewSettlementService wires the service to store. notifier may be nil; now
// defaults to time.Now.
func NewSettlementService(store ports.Store, notifier Notifier, now func() time.Time) *SettlementService {
	if now == nil {
		now = time.Now
	}
	return &SettlementService{
		shows:       store,
		revenue:     store,
		expenses:    store,
		settlements: store,
		notifier:    notifier,
		now:         now,
	}
}

// Calculate fetches the show, its revenue and its expenses concurrently and
// returns the settlement. The first matching show and the first revenue
// record are used. A missing show is reported before missing revenue.
func (s *SettlementService) Calculate(ctx context.Context, showID string) (core.Settlement, error) {
	var (
		shows    []core.Show
		revenue  []core.Revenue
		expenses []core.Expense
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(fetch("show", showID, func() (err error) {
		shows, err = s.shows.FindShows(gctx, showID)
		return err
	}))
	g.Go(fetch("revenue", showID, func() (err error) {
		revenue, err = s.revenue.ListRevenue(gctx, showID)
		return err
	}))
	g.Go(fetch("expenses", showID, func() (err error) {
		expenses, err = s.expenses.ListExpenses(gctx, showID)
		return err
	}))
	if err := g.Wait(); err != nil {
		return core.Settlement{}, err
	}

	if len(shows) == 0 {
		return core.Settlement{}, fmt.Errorf("%s: %w", showID, core.ErrShowNotFound)
	}
	if len(revenue) == 0 {
		return core.Settlement{}, fmt.Errorf("%s: %w", showID, core.ErrRevenueNotFound)
	}
	if len(revenue) > 1 {
		slog.WarnContext(ctx, "Multiple revenue records for show, using the first",
			"show_id", showID, "count", len(revenue))
	}

	settlement := core.Calculate(shows[0], revenue[0], expenses)
	slog.InfoContext(ctx, "Settlement calculated",
		"show_id", showID,
		"expenses", len(expenses),
		"cash_due_to_artist", settlement.CashDueToArtist)
	return settlement, nil
}

// fetch runs one store read of Calculate. errgroup goroutines are outside
// the HTTP recovery middleware, so a panicking store is turned into an error
// here.
func fetch(what, showID string, read func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("fetch %s %s: %w: %v", what, showID, ErrStorePanic, r)
			}
		}()
		if err := read(); err != nil {
			return fmt.Errorf("fetch %s %s: %w", what, showID, err)
		}
		return nil
	}
}

// Post stores a settlement exactly as given, stamped with the current time.
// Posting the same settlement twice creates two records.
func (s *SettlementService) Post(ctx context.Context, settlement core.Settlement) (core.PostedSettlement, error) {
	posted, err := s.settlements.PostSettlement(ctx, settlement, s.now())
	if err != nil {
		return core.PostedSettlement{}, fmt.Errorf("post settlement %s: %w", settlement.ShowID, err)
	}
	notify(ctx, s.notifier, ports.TableSettlements, posted.ID)
	return posted, nil
}

func (s *SettlementService) List(ctx context.Context) ([]core.PostedSettlement, error) {
	list, err := s.settlements.ListSettlements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	return list, nil
}
