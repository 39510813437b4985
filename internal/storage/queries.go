package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tourledger/internal/core"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// SyncQueueItem is one outbox row.
type SyncQueueItem struct {
	ID        int64
	Table     string
	RecordID  string
	Attempts  int64
	LastError string
}

const showColumns = `id, show_id, date, venue_name, city, deal_type, artist_guarantee, artist_percent_of_net, status`

const createShow = `INSERT INTO shows (` + showColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateShow(ctx context.Context, s core.Show) error {
	_, err := q.db.ExecContext(ctx, createShow,
		s.ID, s.ShowID, s.Date.String(), s.Venue, s.City, string(s.DealType),
		s.ArtistGuarantee, s.ArtistPercentOfNet, s.Status)
	return err
}

const listShows = `SELECT ` + showColumns + ` FROM shows ORDER BY rowid`

func (q *Queries) ListShows(ctx context.Context) ([]core.Show, error) {
	return queryAll(ctx, q.db, scanShow, listShows)
}

const getShow = `SELECT ` + showColumns + ` FROM shows WHERE id = ?`

func (q *Queries) GetShow(ctx context.Context, id string) (core.Show, error) {
	return scanShow(q.db.QueryRowContext(ctx, getShow, id))
}

const findShows = `SELECT ` + showColumns + ` FROM shows WHERE show_id = ? ORDER BY rowid`

func (q *Queries) FindShows(ctx context.Context, showID string) ([]core.Show, error) {
	return queryAll(ctx, q.db, scanShow, findShows, showID)
}

const revenueColumns = `id, show_id, ticket_gross, ticket_tax_percent, facility_fee_percent, credit_card_fee_percent, sponsorship_revenue, parking_revenue, concessions_revenue`

const createRevenue = `INSERT INTO revenue (` + revenueColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateRevenue(ctx context.Context, r core.Revenue) error {
	_, err := q.db.ExecContext(ctx, createRevenue,
		r.ID, r.ShowID, r.TicketGross, r.TicketTaxPercent, r.FacilityFeePercent,
		r.CreditCardFeePercent, r.SponsorshipRevenue, r.ParkingRevenue, r.ConcessionsRevenue)
	return err
}

const listRevenueByShow = `SELECT ` + revenueColumns + ` FROM revenue WHERE show_id = ? ORDER BY rowid`

func (q *Queries) ListRevenueByShow(ctx context.Context, showID string) ([]core.Revenue, error) {
	return queryAll(ctx, q.db, scanRevenue, listRevenueByShow, showID)
}

const getRevenue = `SELECT ` + revenueColumns + ` FROM revenue WHERE id = ?`

func (q *Queries) GetRevenue(ctx context.Context, id string) (core.Revenue, error) {
	return scanRevenue(q.db.QueryRowContext(ctx, getRevenue, id))
}

const expenseColumns = `id, show_id, category, description, amount, vendor, invoice_number`

const createExpense = `INSERT INTO expenses (` + expenseColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateExpense(ctx context.Context, e core.Expense) error {
	_, err := q.db.ExecContext(ctx, createExpense,
		e.ID, e.ShowID, string(e.Category), e.Description, e.Amount, e.Vendor, e.InvoiceNumber)
	return err
}

const listExpensesByShow = `SELECT ` + expenseColumns + ` FROM expenses WHERE show_id = ? ORDER BY rowid`

func (q *Queries) ListExpensesByShow(ctx context.Context, showID string) ([]core.Expense, error) {
	return queryAll(ctx, q.db, scanExpense, listExpensesByShow, showID)
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id))
}

const settlementColumns = `id, show_id, adjusted_gross, total_expenses, noi, promoter_profit_percent, promoter_profit, nsp, artist_percent, artist_share, artist_guarantee, artist_overage, recoupment_sweep_percent, recoupment_sweep, cash_due_to_artist, settlement_date`

const createSettlement = `INSERT INTO settlements (` + settlementColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateSettlement(ctx context.Context, p core.PostedSettlement) error {
	s := p.Settlement
	_, err := q.db.ExecContext(ctx, createSettlement,
		p.ID, s.ShowID, s.AdjustedGross, s.TotalExpenses, s.NOI,
		s.PromoterProfitPercent, s.PromoterProfit, s.NSP, s.ArtistPercent, s.ArtistShare,
		s.ArtistGuarantee, s.ArtistOverage, s.RecoupmentSweepPercent, s.RecoupmentSweep,
		s.CashDueToArtist, p.SettlementDate.UTC().Format(time.RFC3339Nano))
	return err
}

const listSettlements = `SELECT ` + settlementColumns + ` FROM settlements ORDER BY rowid`

func (q *Queries) ListSettlements(ctx context.Context) ([]core.PostedSettlement, error) {
	return queryAll(ctx, q.db, scanSettlement, listSettlements)
}

const getSettlement = `SELECT ` + settlementColumns + ` FROM settlements WHERE id = ?`

func (q *Queries) GetSettlement(ctx context.Context, id string) (core.PostedSettlement, error) {
	return scanSettlement(q.db.QueryRowContext(ctx, getSettlement, id))
}

const enqueueSync = `INSERT INTO sync_queue (table_name, record_id) VALUES (?, ?)
ON CONFLICT (table_name, record_id) DO UPDATE SET status = 'pending', updated_at = CURRENT_TIMESTAMP`

func (q *Queries) EnqueueSync(ctx context.Context, table, recordID string) error {
	_, err := q.db.ExecContext(ctx, enqueueSync, table, recordID)
	return err
}

const getPendingSync = `SELECT id, table_name, record_id, attempts, last_error
FROM sync_queue WHERE status = 'pending' ORDER BY id LIMIT ?`

func (q *Queries) GetPendingSync(ctx context.Context, limit int64) ([]SyncQueueItem, error) {
	return queryAll(ctx, q.db, func(row scanner) (SyncQueueItem, error) {
		var i SyncQueueItem
		err := row.Scan(&i.ID, &i.Table, &i.RecordID, &i.Attempts, &i.LastError)
		return i, err
	}, getPendingSync, limit)
}

const markSynced = `UPDATE sync_queue SET status = 'synced', last_error = '', updated_at = CURRENT_TIMESTAMP
WHERE table_name = ? AND record_id = ?`

func (q *Queries) MarkSynced(ctx context.Context, table, recordID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, markSynced, table, recordID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// A record is parked in 'error' once attempts reach maxAttempts.
const markSyncFailed = `UPDATE sync_queue
SET attempts = attempts + 1,
    last_error = ?,
    status = CASE WHEN attempts + 1 >= ? THEN 'error' ELSE 'pending' END,
    updated_at = CURRENT_TIMESTAMP
WHERE table_name = ? AND record_id = ?`

func (q *Queries) MarkSyncFailed(ctx context.Context, table, recordID, lastError string, maxAttempts int64) error {
	_, err := q.db.ExecContext(ctx, markSyncFailed, lastError, maxAttempts, table, recordID)
	return err
}

const getSyncStatus = `SELECT status FROM sync_queue WHERE table_name = ? AND record_id = ?`

func (q *Queries) GetSyncStatus(ctx context.Context, table, recordID string) (string, error) {
	var status string
	err := q.db.QueryRowContext(ctx, getSyncStatus, table, recordID).Scan(&status)
	return status, err
}

const countSyncByStatus = `SELECT COUNT(*) FROM sync_queue WHERE status = ?`

func (q *Queries) CountSyncByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countSyncByStatus, status).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func queryAll[T any](ctx context.Context, db DBTX, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanShow(row scanner) (core.Show, error) {
	var (
		s        core.Show
		date     string
		dealType string
	)
	if err := row.Scan(&s.ID, &s.ShowID, &date, &s.Venue, &s.City, &dealType,
		&s.ArtistGuarantee, &s.ArtistPercentOfNet, &s.Status); err != nil {
		return core.Show{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Show{}, fmt.Errorf("show %s: %w", s.ID, err)
	}
	s.Date = d
	s.DealType = core.DealType(dealType)
	return s, nil
}

func scanRevenue(row scanner) (core.Revenue, error) {
	var r core.Revenue
	err := row.Scan(&r.ID, &r.ShowID, &r.TicketGross, &r.TicketTaxPercent, &r.FacilityFeePercent,
		&r.CreditCardFeePercent, &r.SponsorshipRevenue, &r.ParkingRevenue, &r.ConcessionsRevenue)
	return r, err
}

func scanExpense(row scanner) (core.Expense, error) {
	var (
		e        core.Expense
		category string
	)
	err := row.Scan(&e.ID, &e.ShowID, &category, &e.Description, &e.Amount, &e.Vendor, &e.InvoiceNumber)
	e.Category = core.ExpenseCategory(category)
	return e, err
}

func scanSettlement(row scanner) (core.PostedSettlement, error) {
	var (
		p    core.PostedSettlement
		date string
	)
	if err := row.Scan(&p.ID, &p.ShowID, &p.AdjustedGross, &p.TotalExpenses, &p.NOI,
		&p.PromoterProfitPercent, &p.PromoterProfit, &p.NSP, &p.ArtistPercent, &p.ArtistShare,
		&p.ArtistGuarantee, &p.ArtistOverage, &p.RecoupmentSweepPercent, &p.RecoupmentSweep,
		&p.CashDueToArtist, &date); err != nil {
		return core.PostedSettlement{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, date)
	if err != nil {
		return core.PostedSettlement{}, fmt.Errorf("settlement %s date: %w", p.ID, err)
	}
	p.SettlementDate = ts
	return p, nil
}
