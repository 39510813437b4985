package services

import (
	"context"
	"log/slog"
)

// Notifier announces stored records to the sync worker.
type Notifier interface {
	PublishRecordSync(ctx context.Context, table, recordID string) error
}

// notify publishes a sync message when a notifier is configured. Failures are
// logged only: the record is already stored and the outbox sweep picks it up.
func notify(ctx context.Context, n Notifier, table, recordID string) {
	if n == nil {
		return
	}
	if err := n.PublishRecordSync(ctx, table, recordID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"table", table,
			"record_id", recordID,
			"error", err)
	}
}
