package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"fintrack/internal/aggregate"
	"fintrack/internal/amqp"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/sheets"
	"fintrack/internal/store"
)

// ReportSource recomputes a user's aggregate report from current storage.
type ReportSource interface {
	Report(ctx context.Context, userID string) (aggregate.Report, error)
}

// Digest is the per-user summary logged after each event.
type Digest struct {
	UserID    string
	Balance   string
	LastMonth string
	Skipped   int
}

// MirrorWorker applies transaction events to a spreadsheet mirror and logs
// a fresh aggregate digest for the affected user.
type MirrorWorker struct {
	store   store.TransactionReader
	mirror  sheets.TransactionMirror
	reports ReportSource
	logger  *applog.Logger

	processed int64
	failed    int64
}

// NewMirrorWorker accepts a nil mirror; events then only produce digests.
func NewMirrorWorker(st store.TransactionReader, mirror sheets.TransactionMirror, reports ReportSource, logger *applog.Logger) *MirrorWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &MirrorWorker{
		store:   st,
		mirror:  mirror,
		reports: reports,
		logger:  logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleEvent is the consumer callback. A returned error requeues the event.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	w.logger.InfoContext(ctx, "Processing transaction event",
		"type", ev.Type,
		applog.FieldTransactionID, ev.TransactionID,
		applog.FieldUserID, ev.UserID,
		applog.FieldKind, ev.Kind)

	if err := w.applyToMirror(ctx, ev); err != nil {
		atomic.AddInt64(&w.failed, 1)
		return err
	}
	atomic.AddInt64(&w.processed, 1)

	if _, err := w.LogDigest(ctx, ev.UserID); err != nil {
		// The mirror is already updated; do not requeue.
		w.logger.ErrorContext(ctx, "Failed to compute digest",
			applog.FieldUserID, ev.UserID,
			applog.FieldError, err.Error())
	}
	return nil
}

func (w *MirrorWorker) applyToMirror(ctx context.Context, ev *amqp.TransactionEvent) error {
	if w.mirror == nil {
		return nil
	}

	switch ev.Type {
	case amqp.EventDeleted:
		if err := w.mirror.Remove(ctx, ev.Kind, ev.TransactionID); err != nil {
			return fmt.Errorf("remove mirrored %s %s: %w", ev.Kind, ev.TransactionID, err)
		}
		return nil

	case amqp.EventCreated, amqp.EventUpdated:
		tx, err := w.store.GetTransaction(ctx, ev.Kind, ev.UserID, ev.TransactionID)
		if errors.Is(err, store.ErrNotFound) {
			// Deleted before we got here; its delete event clears the row.
			w.logger.WarnContext(ctx, "Transaction no longer stored, skipping mirror",
				applog.FieldTransactionID, ev.TransactionID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("load %s %s: %w", ev.Kind, ev.TransactionID, err)
		}
		ref, err := w.mirror.Upsert(ctx, tx)
		if err != nil {
			return fmt.Errorf("mirror %s %s: %w", ev.Kind, ev.TransactionID, err)
		}
		w.logger.InfoContext(ctx, "Transaction mirrored",
			applog.FieldTransactionID, tx.ID,
			applog.FieldOperation, applog.OpMirror,
			"sheets_ref", ref)
		return nil
	}
	return fmt.Errorf("unknown event type %q", ev.Type)
}

// LogDigest recomputes the user's report and logs balance, the latest trend
// bucket and how many records the trend skipped.
func (w *MirrorWorker) LogDigest(ctx context.Context, userID string) (Digest, error) {
	report, err := w.reports.Report(ctx, userID)
	if err != nil {
		return Digest{}, err
	}

	d := Digest{
		UserID:  userID,
		Balance: core.FormatAmount(report.Summary.Balance),
		Skipped: report.Trend.Skipped,
	}
	if n := len(report.Trend.Rows); n > 0 {
		d.LastMonth = report.Trend.Rows[n-1].Month
	}

	w.logger.InfoContext(ctx, "User digest",
		applog.FieldUserID, d.UserID,
		"balance", d.Balance,
		"last_month", d.LastMonth,
		applog.FieldSkipped, d.Skipped,
		applog.FieldOperation, applog.OpAggregate)
	return d, nil
}

// ResyncUser mirrors every stored transaction of userID, for recovering
// from lost events. It returns how many rows were written.
func (w *MirrorWorker) ResyncUser(ctx context.Context, userID string) (int, error) {
	if w.mirror == nil {
		return 0, errors.New("no mirror configured")
	}

	written := 0
	for _, kind := range []core.Kind{core.KindIncome, core.KindExpense} {
		txs, err := w.store.ListTransactions(ctx, kind, userID)
		if err != nil {
			return written, fmt.Errorf("list %s: %w", kind, err)
		}
		for _, tx := range txs {
			if _, err := w.mirror.Upsert(ctx, tx); err != nil {
				return written, fmt.Errorf("mirror %s %s: %w", kind, tx.ID, err)
			}
			written++
		}
	}

	w.logger.InfoContext(ctx, "Resync completed",
		applog.FieldUserID, userID,
		"rows", written)
	return written, nil
}

// Stats returns how many events succeeded and failed since start.
func (w *MirrorWorker) Stats() (processed, failed int64) {
	return atomic.LoadInt64(&w.processed), atomic.LoadInt64(&w.failed)
}
