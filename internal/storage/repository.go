package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tourledger/internal/core"
	ports "tourledger/internal/sheets"

	_ "modernc.org/sqlite"
)

// MaxSyncAttempts is how many failed copies a record gets before it is
// parked in the error state.
const MaxSyncAttempts = 5

// Outbox entry states.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ ports.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite locks the whole file anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// withTx runs fn inside a transaction, rolling back on error.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// insertAndEnqueue stores a record and queues it for the sheet in one
// transaction.
func (r *SQLiteRepository) insertAndEnqueue(ctx context.Context, table, id string, insert func(q *Queries) error) error {
	return r.withTx(ctx, func(q *Queries) error {
		if err := insert(q); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
		if err := q.EnqueueSync(ctx, table, id); err != nil {
			return fmt.Errorf("enqueue %s %s: %w", table, id, err)
		}
		return nil
	})
}

func (r *SQLiteRepository) CreateShow(ctx context.Context, s core.Show) (core.Show, error) {
	if err := s.Validate(); err != nil {
		return core.Show{}, err
	}
	s.ID = ports.NewRecordID()
	if err := r.insertAndEnqueue(ctx, ports.TableShows, s.ID, func(q *Queries) error {
		return q.CreateShow(ctx, s)
	}); err != nil {
		return core.Show{}, err
	}
	slog.InfoContext(ctx, "Show saved to SQLite", "id", s.ID, "show_id", s.ShowID)
	return s, nil
}

func (r *SQLiteRepository) ListShows(ctx context.Context) ([]core.Show, error) {
	shows, err := r.queries.ListShows(ctx)
	if err != nil {
		return nil, fmt.Errorf("list shows: %w", err)
	}
	return shows, nil
}

func (r *SQLiteRepository) GetShow(ctx context.Context, id string) (core.Show, error) {
	s, err := r.queries.GetShow(ctx, id)
	if err != nil {
		return core.Show{}, notFound("show", id, err)
	}
	return s, nil
}

func (r *SQLiteRepository) FindShows(ctx context.Context, showID string) ([]core.Show, error) {
	shows, err := r.queries.FindShows(ctx, showID)
	if err != nil {
		return nil, fmt.Errorf("find shows %s: %w", showID, err)
	}
	return shows, nil
}

func (r *SQLiteRepository) CreateRevenue(ctx context.Context, rev core.Revenue) (core.Revenue, error) {
	if err := rev.Validate(); err != nil {
		return core.Revenue{}, err
	}
	rev.ID = ports.NewRecordID()
	if err := r.insertAndEnqueue(ctx, ports.TableRevenue, rev.ID, func(q *Queries) error {
		return q.CreateRevenue(ctx, rev)
	}); err != nil {
		return core.Revenue{}, err
	}
	slog.InfoContext(ctx, "Revenue saved to SQLite", "id", rev.ID, "show_id", rev.ShowID)
	return rev, nil
}

func (r *SQLiteRepository) ListRevenue(ctx context.Context, showID string) ([]core.Revenue, error) {
	revs, err := r.queries.ListRevenueByShow(ctx, showID)
	if err != nil {
		return nil, fmt.Errorf("list revenue %s: %w", showID, err)
	}
	return revs, nil
}

func (r *SQLiteRepository) GetRevenue(ctx context.Context, id string) (core.Revenue, error) {
	rev, err := r.queries.GetRevenue(ctx, id)
	if err != nil {
		return core.Revenue{}, notFound("revenue", id, err)
	}
	return rev, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.ID = ports.NewRecordID()
	if err := r.insertAndEnqueue(ctx, ports.TableExpenses, e.ID, func(q *Queries) error {
		return q.CreateExpense(ctx, e)
	}); err != nil {
		return core.Expense{}, err
	}
	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"show_id", e.ShowID,
		"category", e.Category,
		"amount", e.Amount)
	return e, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, showID string) ([]core.Expense, error) {
	exps, err := r.queries.ListExpensesByShow(ctx, showID)
	if err != nil {
		return nil, fmt.Errorf("list expenses %s: %w", showID, err)
	}
	return exps, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	e, err := r.queries.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, notFound("expense", id, err)
	}
	return e, nil
}

func (r *SQLiteRepository) PostSettlement(ctx context.Context, s core.Settlement, postedAt time.Time) (core.PostedSettlement, error) {
	p := core.PostedSettlement{
		Settlement:     s,
		ID:             ports.NewRecordID(),
		SettlementDate: postedAt.UTC(),
	}
	if err := r.insertAndEnqueue(ctx, ports.TableSettlements, p.ID, func(q *Queries) error {
		return q.CreateSettlement(ctx, p)
	}); err != nil {
		return core.PostedSettlement{}, err
	}
	slog.InfoContext(ctx, "Settlement posted to SQLite",
		"id", p.ID,
		"show_id", s.ShowID,
		"cash_due_to_artist", s.CashDueToArtist)
	return p, nil
}

func (r *SQLiteRepository) ListSettlements(ctx context.Context) ([]core.PostedSettlement, error) {
	list, err := r.queries.ListSettlements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	return list, nil
}

func (r *SQLiteRepository) GetSettlement(ctx context.Context, id string) (core.PostedSettlement, error) {
	p, err := r.queries.GetSettlement(ctx, id)
	if err != nil {
		return core.PostedSettlement{}, notFound("settlement", id, err)
	}
	return p, nil
}

// PendingSync returns up to limit outbox entries in insertion order.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]SyncQueueItem, error) {
	items, err := r.queries.GetPendingSync(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync: %w", err)
	}
	return items, nil
}

// SyncStatus returns the outbox state of a record, or core.ErrNotFound when
// the record was never enqueued.
func (r *SQLiteRepository) SyncStatus(ctx context.Context, table, recordID string) (string, error) {
	status, err := r.queries.GetSyncStatus(ctx, table, recordID)
	if err != nil {
		return "", notFound("sync entry "+table, recordID, err)
	}
	return status, nil
}

// MarkSynced marks a record as successfully copied to the sheet.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, table, recordID string) error {
	n, err := r.queries.MarkSynced(ctx, table, recordID)
	if err != nil {
		return fmt.Errorf("mark %s %s synced: %w", table, recordID, err)
	}
	if n == 0 {
		return fmt.Errorf("sync entry %s %s: %w", table, recordID, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Record marked as synced", "table", table, "record_id", recordID)
	return nil
}

// MarkSyncFailed records a failed copy attempt.
func (r *SQLiteRepository) MarkSyncFailed(ctx context.Context, table, recordID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if err := r.queries.MarkSyncFailed(ctx, table, recordID, msg, MaxSyncAttempts); err != nil {
		return fmt.Errorf("mark %s %s failed: %w", table, recordID, err)
	}
	slog.WarnContext(ctx, "Record marked with sync error", "table", table, "record_id", recordID, "error", msg)
	return nil
}

// SyncStats reports outbox entries per status.
func (r *SQLiteRepository) SyncStats(ctx context.Context) (map[string]int64, error) {
	stats := make(map[string]int64, 3)
	for _, status := range []string{SyncPending, SyncSynced, SyncError} {
		n, err := r.queries.CountSyncByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", status, err)
		}
		stats[status] = n
	}
	return stats, nil
}

func notFound(kind, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return fmt.Errorf("get %s %s: %w", kind, id, err)
}
