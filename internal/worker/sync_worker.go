package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tourledger/internal/amqp"
	"tourledger/internal/services"

	"github.com/robfig/cron/v3"
)

// maxBatchesPerSweep bounds one sweep so a failing sheet cannot keep it busy.
const maxBatchesPerSweep = 20

// SyncWorker copies records from SQLite to Google Sheets, driven by AMQP
// messages and by a periodic sweep of the outbox.
type SyncWorker struct {
	processor *services.SyncProcessor
	schedule  string
	cron      *cron.Cron
}

// NewSyncWorker validates schedule (standard cron syntax or a descriptor such
// as "@every 1m").
func NewSyncWorker(processor *services.SyncProcessor, schedule string) (*SyncWorker, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", schedule, err)
	}
	return &SyncWorker{
		processor: processor,
		schedule:  schedule,
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}, nil
}

// HandleSyncMessage processes a single record sync message from AMQP. A
// returned error requeues the message, so only failures the outbox has not
// recorded are returned. Counted copy failures are acked and left to the
// sweep.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"table", msg.Table,
		"record_id", msg.RecordID,
		"published_at", msg.Timestamp)

	err := w.processor.SyncRecord(ctx, msg.Table, msg.RecordID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, services.ErrCopyFailed):
		slog.WarnContext(ctx, "Sync deferred to sweep",
			"table", msg.Table, "record_id", msg.RecordID, "error", err)
		return nil
	default:
		return fmt.Errorf("sync %s %s: %w", msg.Table, msg.RecordID, err)
	}
}

// Sweep drains the outbox in batches. This is the backstop for lost AMQP
// messages and worker downtime.
func (w *SyncWorker) Sweep(ctx context.Context) (int, error) {
	total := 0
	for i := 0; i < maxBatchesPerSweep; i++ {
		n, err := w.processor.ProcessBatch(ctx)
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	if total > 0 {
		slog.InfoContext(ctx, "Outbox sweep completed", "synced", total)
	}
	return total, nil
}

// Start schedules the sweep. Jobs run until Stop is called.
func (w *SyncWorker) Start(ctx context.Context) error {
	_, err := w.cron.AddFunc(w.schedule, func() {
		if _, err := w.Sweep(ctx); err != nil {
			slog.ErrorContext(ctx, "Outbox sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("register sweep: %w", err)
	}
	w.cron.Start()
	slog.InfoContext(ctx, "Sync sweep scheduled", "schedule", w.schedule)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (w *SyncWorker) Stop(ctx context.Context) {
	done := w.cron.Stop()
	select {
	case <-done.Done():
		slog.InfoContext(ctx, "Sync sweep stopped")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync sweep stop timed out")
	}
}
