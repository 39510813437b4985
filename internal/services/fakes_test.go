package services

import (
	"context"
	"sync"

	"tourledger/internal/core"
	"tourledger/internal/sheets/memory"
)

// failingStore wraps the memory store and fails selected reads.
type failingStore struct {
	*memory.Store
	showsErr           error
	revenueErr         error
	expensesErr        error
	listSettlementsErr error
	// panicOn names a read (shows, revenue or expenses) that panics.
	panicOn string
}

func (f *failingStore) FindShows(ctx context.Context, showID string) ([]core.Show, error) {
	if f.panicOn == "shows" {
		panic("shows read crashed")
	}
	if f.showsErr != nil {
		return nil, f.showsErr
	}
	return f.Store.FindShows(ctx, showID)
}

func (f *failingStore) ListRevenue(ctx context.Context, showID string) ([]core.Revenue, error) {
	if f.panicOn == "revenue" {
		panic("revenue read crashed")
	}
	if f.revenueErr != nil {
		return nil, f.revenueErr
	}
	return f.Store.ListRevenue(ctx, showID)
}

func (f *failingStore) ListExpenses(ctx context.Context, showID string) ([]core.Expense, error) {
	if f.panicOn == "expenses" {
		panic("expenses read crashed")
	}
	if f.expensesErr != nil {
		return nil, f.expensesErr
	}
	return f.Store.ListExpenses(ctx, showID)
}

func (f *failingStore) ListSettlements(ctx context.Context) ([]core.PostedSettlement, error) {
	if f.listSettlementsErr != nil {
		return nil, f.listSettlementsErr
	}
	return f.Store.ListSettlements(ctx)
}

type publishedMsg struct {
	table    string
	recordID string
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []publishedMsg
	err  error
}

func (n *recordingNotifier) PublishRecordSync(_ context.Context, table, recordID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, publishedMsg{table: table, recordID: recordID})
	return n.err
}

func (n *recordingNotifier) published() []publishedMsg {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]publishedMsg(nil), n.msgs...)
}
