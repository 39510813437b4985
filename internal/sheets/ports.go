package sheets

import (
	"context"
	"time"

	"tourledger/internal/core"
)

// Ports for outbound adapters. Every adapter reports a missing record with an
// error wrapping core.ErrNotFound.
type (
	ShowStore interface {
		CreateShow(ctx context.Context, s core.Show) (core.Show, error)
		ListShows(ctx context.Context) ([]core.Show, error)
		// GetShow finds a show by its store-assigned record id.
		GetShow(ctx context.Context, id string) (core.Show, error)
		// FindShows returns the shows whose show id matches exactly.
		FindShows(ctx context.Context, showID string) ([]core.Show, error)
	}

	RevenueStore interface {
		CreateRevenue(ctx context.Context, r core.Revenue) (core.Revenue, error)
		ListRevenue(ctx context.Context, showID string) ([]core.Revenue, error)
	}

	ExpenseStore interface {
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		ListExpenses(ctx context.Context, showID string) ([]core.Expense, error)
	}

	// SettlementStore is append-only: posted settlements are never updated.
	SettlementStore interface {
		PostSettlement(ctx context.Context, s core.Settlement, postedAt time.Time) (core.PostedSettlement, error)
		ListSettlements(ctx context.Context) ([]core.PostedSettlement, error)
	}

	// Store groups the four tables of a record store backend.
	Store interface {
		ShowStore
		RevenueStore
		ExpenseStore
		SettlementStore
	}

	// RecordMirror writes records that already carry an id into a replica.
	RecordMirror interface {
		MirrorShow(ctx context.Context, s core.Show) error
		MirrorRevenue(ctx context.Context, r core.Revenue) error
		MirrorExpense(ctx context.Context, e core.Expense) error
		MirrorSettlement(ctx context.Context, s core.PostedSettlement) error
	}
)

// Table names shared by all backends.
const (
	TableShows       = "shows"
	TableRevenue     = "revenue"
	TableExpenses    = "expenses"
	TableSettlements = "settlements"
)
