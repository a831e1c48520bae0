// Package worker mirrors expense line items from SQLite into Google Sheets.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"budgetcare/internal/amqp"
	"budgetcare/internal/core"
	"budgetcare/internal/log"
	"budgetcare/internal/storage"

	"golang.org/x/sync/errgroup"
)

// Source is the SQLite side of the mirror.
type Source interface {
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	GetPendingSyncExpenses(ctx context.Context, limit int) ([]storage.PendingSyncExpense, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

// Mirror is the spreadsheet side.
type Mirror interface {
	UpsertExpense(ctx context.Context, e core.Expense) (string, error)
	DeleteExpense(ctx context.Context, userID, id string) error
}

// Consumer delivers expense events until ctx is cancelled.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, *amqp.ExpenseEvent) error) error
}

// SyncWorker handles synchronization of expenses from SQLite to Google Sheets
type SyncWorker struct {
	source    Source
	mirror    Mirror
	batchSize int
}

func NewSyncWorker(source Source, mirror Mirror, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &SyncWorker{
		source:    source,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleEvent processes one expense event from AMQP. A returned error makes
// the consumer requeue the message.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	slog.InfoContext(ctx, "Processing expense event", log.FieldEvent, ev.Type, log.FieldExpenseID, ev.ID, log.FieldUserID, ev.UserID)

	switch ev.Type {
	case amqp.EventRecorded, amqp.EventUpdated:
		id, err := strconv.ParseInt(ev.ID, 10, 64)
		if err != nil {
			// Not a SQLite row; nothing to mirror.
			slog.WarnContext(ctx, "Ignoring event with non-numeric id", log.FieldExpenseID, ev.ID)
			return nil
		}
		return w.syncExpense(ctx, id)

	case amqp.EventDeleted:
		err := w.mirror.DeleteExpense(ctx, ev.UserID, ev.ID)
		if errors.Is(err, core.ErrNotFound) {
			slog.InfoContext(ctx, "Deleted expense was never mirrored", log.FieldExpenseID, ev.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("delete expense from sheets: %w", err)
		}
		slog.InfoContext(ctx, "Deleted expense from Google Sheets", log.FieldExpenseID, ev.ID)
		return nil
	}
	return fmt.Errorf("unsupported event type %q", ev.Type)
}

// ProcessPendingExpenses re-sends rows the queue missed. It returns how many
// rows reached the spreadsheet.
func (w *SyncWorker) ProcessPendingExpenses(ctx context.Context) (int, error) {
	pending, err := w.source.GetPendingSyncExpenses(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending expenses", "count", len(pending))
	synced := 0
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return synced, err
		}
		if err := w.syncExpense(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync expense", log.FieldExpenseID, p.ID, log.FieldError, err)
			continue
		}
		synced++
	}
	slog.InfoContext(ctx, "Pending sync pass completed", "total", len(pending), "synced", synced)
	return synced, nil
}

// Run consumes events and runs a pending pass every interval until ctx is
// cancelled or the consumer fails.
func (w *SyncWorker) Run(ctx context.Context, consumer Consumer, interval time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Consume(gctx, w.HandleEvent)
	})
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if _, err := w.ProcessPendingExpenses(gctx); err != nil && gctx.Err() == nil {
				slog.ErrorContext(gctx, "Periodic sync failed", log.FieldError, err)
			}
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (w *SyncWorker) syncExpense(ctx context.Context, id int64) error {
	e, err := w.source.GetExpense(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Expense vanished before sync", log.FieldExpenseID, id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}

	ref, err := w.mirror.UpsertExpense(ctx, e)
	if err != nil {
		if markErr := w.source.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", log.FieldExpenseID, id, log.FieldError, markErr)
		}
		return fmt.Errorf("write to sheets: %w", err)
	}

	// The row is in the sheet; a failed mark only means it will be rewritten.
	if err := w.source.MarkSynced(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", log.FieldExpenseID, id, log.FieldError, err)
	}
	slog.InfoContext(ctx, "Successfully synced expense", log.FieldExpenseID, id, log.FieldSheetsRef, ref)
	return nil
}
