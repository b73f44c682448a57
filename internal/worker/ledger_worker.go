// Package worker mirrors expenses into the ledger sheet, from events and
// from periodic reconciliation against the store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"expenseflow/internal/amqp"
	"expenseflow/internal/core"
	"expenseflow/internal/log"
	"expenseflow/internal/metrics"
	"expenseflow/internal/ports"
	"expenseflow/internal/sheets"
)

// EventSource delivers expense events until ctx ends.
type EventSource interface {
	ConsumeExpenseEvents(ctx context.Context, handler func(context.Context, *amqp.ExpenseEvent) error) error
}

// LedgerWorker keeps the ledger in line with the expense store.
type LedgerWorker struct {
	expenses ports.ExpenseRepository
	ledger   sheets.LedgerWriter
	metrics  *metrics.Metrics
	logger   *log.Logger
	events   *log.Events
	interval time.Duration
}

func NewLedgerWorker(expenses ports.ExpenseRepository, ledger sheets.LedgerWriter, m *metrics.Metrics, logger *log.Logger, interval time.Duration) *LedgerWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LedgerWorker{
		expenses: expenses,
		ledger:   ledger,
		metrics:  m,
		logger:   logger.WithComponent(log.ComponentWorker),
		events:   log.NewEvents(logger),
		interval: interval,
	}
}

// HandleEvent applies one expense event to the ledger. Unknown event types
// are acknowledged and ignored.
func (w *LedgerWorker) HandleEvent(ctx context.Context, msg *amqp.ExpenseEvent) error {
	e := msg.Expense
	switch msg.Type {
	case ports.EventExpenseSubmitted:
		ref, err := w.ledger.Append(ctx, e)
		w.metrics.IncLedgerWrite("append", err)
		if err != nil {
			return fmt.Errorf("append ledger row: %w", err)
		}
		w.logger.InfoContext(ctx, "Expense mirrored to ledger", log.FieldExpenseID, e.ID, log.FieldLedgerRef, ref)

	case ports.EventExpenseStatusChanged:
		ref, err := w.ledger.UpdateStatus(ctx, e.ID, e.Status)
		if errors.Is(err, core.ErrNotFound) {
			// The submission event was lost; write the whole row.
			ref, err = w.ledger.Append(ctx, e)
			w.metrics.IncLedgerWrite("append", err)
		} else {
			w.metrics.IncLedgerWrite("status", err)
		}
		if err != nil {
			return fmt.Errorf("update ledger status: %w", err)
		}
		w.logger.InfoContext(ctx, "Ledger status updated",
			log.FieldExpenseID, e.ID, log.FieldStatus, string(e.Status), log.FieldLedgerRef, ref)

	default:
		w.logger.WarnContext(ctx, "Ignoring unknown event type", "type", msg.Type, log.FieldExpenseID, e.ID)
	}
	return nil
}

// ReconcileResult counts what a reconciliation pass changed.
type ReconcileResult struct {
	Appended int
	Updated  int
	Failed   int
}

// Reconcile appends missing rows and fixes stale statuses. A record that
// cannot be written is counted and skipped.
func (w *LedgerWorker) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult

	expenses, err := w.expenses.Load(ctx)
	if err != nil {
		return res, fmt.Errorf("load expenses: %w", err)
	}
	rows, err := w.ledger.Rows(ctx)
	if err != nil {
		return res, fmt.Errorf("read ledger: %w", err)
	}
	byID := make(map[int64]sheets.Row, len(rows))
	for _, r := range rows {
		byID[r.ExpenseID] = r
	}

	for _, e := range expenses {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		row, ok := byID[e.ID]
		switch {
		case !ok:
			_, err = w.ledger.Append(ctx, e)
			w.metrics.IncLedgerWrite("append", err)
			if err == nil {
				res.Appended++
			}
		case row.Status != e.Status:
			_, err = w.ledger.UpdateStatus(ctx, e.ID, e.Status)
			w.metrics.IncLedgerWrite("status", err)
			if err == nil {
				res.Updated++
			}
		default:
			continue
		}
		if err != nil {
			res.Failed++
			w.events.Failed(ctx, log.ComponentWorker, log.OpSync, "Failed to reconcile expense", err, log.FieldExpenseID, e.ID)
		}
	}

	w.logger.InfoContext(ctx, "Ledger reconciled",
		"expenses", len(expenses), "appended", res.Appended, "updated", res.Updated, "failed", res.Failed)
	return res, nil
}

// Run reconciles once, then consumes events from source (if any) while
// reconciling every interval, until ctx ends or a loop fails.
func (w *LedgerWorker) Run(ctx context.Context, source EventSource) error {
	if _, err := w.Reconcile(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup reconciliation failed", log.FieldOperation, log.OpStartup, log.FieldError, err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if source != nil {
		g.Go(func() error {
			err := source.ConsumeExpenseEvents(ctx, w.HandleEvent)
			if ctx.Err() != nil {
				// Parent cancelled or timed out: a normal shutdown.
				return nil
			}
			return err
		})
	}

	if w.interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(w.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if _, err := w.Reconcile(ctx); err != nil && ctx.Err() == nil {
						w.logger.ErrorContext(ctx, "Periodic reconciliation failed", log.FieldOperation, log.OpSync, log.FieldError, err)
					}
				}
			}
		})
	}

	return g.Wait()
}
