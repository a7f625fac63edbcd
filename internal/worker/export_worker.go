// Package worker mirrors ledger aggregates from SQLite into the committee
// spreadsheet. It reacts to AMQP sync messages and runs a periodic sweep
// over aggregates still marked pending, so a lost message only delays an
// export instead of dropping it.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"fundbook/internal/amqp"
	"fundbook/internal/sheets"
	"fundbook/internal/storage"
)

type ExportWorker struct {
	storage   *storage.Repository
	sheets    sheets.SnapshotWriter
	batchSize int
}

func NewExportWorker(storage *storage.Repository, sheets sheets.SnapshotWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		sheets:    sheets,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single sync message from AMQP. The message
// carries only identity; the current snapshot is read from the database so
// out-of-order deliveries still export the latest state.
func (w *ExportWorker) HandleSyncMessage(ctx context.Context, msg *amqp.LedgerSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"kind", msg.Kind,
		"id", msg.ID,
		"version", msg.Version)

	return w.exportAggregate(ctx, msg.Kind, msg.ID)
}

// ProcessPending exports aggregates that have not reached the spreadsheet
// yet. This is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.PendingExports(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending exports: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	for _, p := range pending {
		if err := w.exportAggregate(ctx, p.Kind, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export aggregate",
				"kind", p.Kind,
				"id", p.ID,
				"error", err)
			continue
		}
	}

	return nil
}

// StartupCheck exports whatever is pending at worker startup. Useful to
// recover from missed AMQP messages or worker downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.storage.PendingExports(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending exports for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, p := range pending {
		if err := w.exportAggregate(ctx, p.Kind, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to export during startup",
				"kind", p.Kind,
				"id", p.ID,
				"error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending),
		"exported", successCount,
		"errors", errorCount)

	return nil
}

func (w *ExportWorker) exportAggregate(ctx context.Context, kind, id string) error {
	var ref string
	var version int64

	switch kind {
	case storage.KindContribution:
		c, err := w.storage.GetContribution(ctx, id)
		if err != nil {
			w.markError(ctx, kind, id)
			return fmt.Errorf("get contribution: %w", err)
		}
		version = c.Version
		ref, err = w.sheets.WriteContribution(ctx, c)
		if err != nil {
			w.markError(ctx, kind, id)
			return fmt.Errorf("write contribution to sheets: %w", err)
		}
	case storage.KindWithdrawal:
		a, err := w.storage.GetWithdrawalAccount(ctx, id)
		if err != nil {
			w.markError(ctx, kind, id)
			return fmt.Errorf("get withdrawal account: %w", err)
		}
		version = a.Version
		ref, err = w.sheets.WriteWithdrawalAccount(ctx, a)
		if err != nil {
			w.markError(ctx, kind, id)
			return fmt.Errorf("write withdrawal account to sheets: %w", err)
		}
	default:
		// redelivering cannot fix a kind this worker does not know
		return fmt.Errorf("unknown aggregate kind %q: %w", kind, amqp.ErrDiscard)
	}

	// the version guard keeps a mutation that committed after our read from
	// being stamped synced; the sweep picks that row up again
	if err := w.storage.MarkExported(ctx, kind, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as exported", "kind", kind, "id", id, "error", err)
		// the export itself worked, the sweep will retry the bookkeeping
	}

	slog.InfoContext(ctx, "Successfully exported aggregate",
		"kind", kind,
		"id", id,
		"version", version,
		"sheets_ref", ref)

	return nil
}

func (w *ExportWorker) markError(ctx context.Context, kind, id string) {
	if err := w.storage.MarkExportError(ctx, kind, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark export error", "kind", kind, "id", id, "error", err)
	}
}
