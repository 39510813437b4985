package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"tourledger/internal/core"
	ports "tourledger/internal/sheets"
	"tourledger/internal/storage"
)

// SyncSource is the local database the processor copies from.
type SyncSource interface {
	GetShow(ctx context.Context, id string) (core.Show, error)
	GetRevenue(ctx context.Context, id string) (core.Revenue, error)
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	GetSettlement(ctx context.Context, id string) (core.PostedSettlement, error)

	SyncStatus(ctx context.Context, table, recordID string) (string, error)
	PendingSync(ctx context.Context, limit int) ([]storage.SyncQueueItem, error)
	MarkSynced(ctx context.Context, table, recordID string) error
	MarkSyncFailed(ctx context.Context, table, recordID string, cause error) error
}

var _ SyncSource = (*storage.SQLiteRepository)(nil)

// ErrCopyFailed reports a copy that failed after the attempt was counted on
// the outbox entry. The sweep retries it until MaxSyncAttempts.
var ErrCopyFailed = errors.New("copy to sheet failed")

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// BatchSize is the max number of outbox entries handled per sweep (default: 10)
	BatchSize int
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{BatchSize: 10}
}

// SyncProcessor copies locally stored records to the replica sheet.
type SyncProcessor struct {
	// mu serializes SyncRecord so a sweep and an AMQP message cannot both
	// copy the same pending entry.
	mu     sync.Mutex
	source SyncSource
	mirror ports.RecordMirror
	config SyncProcessorConfig
}

func NewSyncProcessor(source SyncSource, mirror ports.RecordMirror, config SyncProcessorConfig) *SyncProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultSyncProcessorConfig().BatchSize
	}
	return &SyncProcessor{
		source: source,
		mirror: mirror,
		config: config,
	}
}

// SyncRecord copies one pending record and updates its outbox entry.
// Records that are already synced, parked in error, or were never enqueued
// are skipped without error. A failed copy is counted against the entry and
// returned wrapped in ErrCopyFailed.
func (p *SyncProcessor) SyncRecord(ctx context.Context, table, recordID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	status, err := p.source.SyncStatus(ctx, table, recordID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		slog.WarnContext(ctx, "No outbox entry for record, skipping",
			"table", table, "record_id", recordID)
		return nil
	case err != nil:
		return fmt.Errorf("sync status %s %s: %w", table, recordID, err)
	case status != storage.SyncPending:
		slog.DebugContext(ctx, "Record already handled, skipping",
			"table", table, "record_id", recordID, "status", status)
		return nil
	}

	if err := p.copyRecord(ctx, table, recordID); err != nil {
		slog.WarnContext(ctx, "Sync processing failed",
			"table", table,
			"record_id", recordID,
			"error", err)
		if merr := p.source.MarkSyncFailed(ctx, table, recordID, err); merr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync as failed",
				"table", table, "record_id", recordID, "error", merr)
			return err
		}
		return fmt.Errorf("%w: %w", ErrCopyFailed, err)
	}
	if err := p.source.MarkSynced(ctx, table, recordID); err != nil {
		// The copy happened; a stale entry only causes a duplicate row later.
		slog.WarnContext(ctx, "Failed to mark record as synced",
			"table", table, "record_id", recordID, "error", err)
	}
	slog.InfoContext(ctx, "Synced record to Google Sheets", "table", table, "record_id", recordID)
	return nil
}

func (p *SyncProcessor) copyRecord(ctx context.Context, table, recordID string) error {
	switch table {
	case ports.TableShows:
		s, err := p.source.GetShow(ctx, recordID)
		if err != nil {
			return fmt.Errorf("get show %s: %w", recordID, err)
		}
		return p.mirror.MirrorShow(ctx, s)
	case ports.TableRevenue:
		r, err := p.source.GetRevenue(ctx, recordID)
		if err != nil {
			return fmt.Errorf("get revenue %s: %w", recordID, err)
		}
		return p.mirror.MirrorRevenue(ctx, r)
	case ports.TableExpenses:
		e, err := p.source.GetExpense(ctx, recordID)
		if err != nil {
			return fmt.Errorf("get expense %s: %w", recordID, err)
		}
		return p.mirror.MirrorExpense(ctx, e)
	case ports.TableSettlements:
		s, err := p.source.GetSettlement(ctx, recordID)
		if err != nil {
			return fmt.Errorf("get settlement %s: %w", recordID, err)
		}
		return p.mirror.MirrorSettlement(ctx, s)
	default:
		return fmt.Errorf("unknown table: %s", table)
	}
}

// ProcessBatch syncs up to BatchSize pending entries and returns how many
// were copied. Individual failures do not stop the batch.
func (p *SyncProcessor) ProcessBatch(ctx context.Context) (int, error) {
	items, err := p.source.PendingSync(ctx, p.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("dequeue sync batch: %w", err)
	}
	if len(items) == 0 {
		return 0, nil
	}

	slog.DebugContext(ctx, "Processing sync batch", "count", len(items))

	synced := 0
	for _, item := range items {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		if err := p.SyncRecord(ctx, item.Table, item.RecordID); err == nil {
			synced++
		}
	}
	return synced, nil
}
