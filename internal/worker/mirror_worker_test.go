package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/aggregate"
	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/services"
	sheetsmem "fintrack/internal/sheets/memory"
	"fintrack/internal/store/memory"
)

func seedTx(t *testing.T, st *memory.Store, id string, kind core.Kind, amount string, date core.Date) core.Transaction {
	t.Helper()
	tx := core.Transaction{
		ID:        id,
		UserID:    "u1",
		Kind:      kind,
		Title:     "t-" + id,
		Amount:    decimal.RequireFromString(amount),
		Category:  "Other",
		Date:      date,
		CreatedAt: time.Now().UTC(),
	}
	if err := st.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
	return tx
}

func newWorker(st *memory.Store, mirror *sheetsmem.Mirror) *MirrorWorker {
	if mirror == nil {
		return NewMirrorWorker(st, nil, services.NewDashboardService(st, nil), nil)
	}
	return NewMirrorWorker(st, mirror, services.NewDashboardService(st, nil), nil)
}

func TestMirrorWorker_HandleEvent(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	mirror := sheetsmem.New()
	w := newWorker(st, mirror)

	inc := seedTx(t, st, "i1", core.KindIncome, "1000", core.NewDate(2024, 1, 10))
	exp := seedTx(t, st, "e1", core.KindExpense, "250.50", core.NewDate(2024, 2, 3))

	for _, tx := range []core.Transaction{inc, exp} {
		if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventCreated, tx)); err != nil {
			t.Fatalf("HandleEvent(created %s) error = %v", tx.ID, err)
		}
	}
	if rows := mirror.Rows(); len(rows) != 2 {
		t.Fatalf("mirrored rows = %d, want 2", len(rows))
	}

	exp.Amount = decimal.RequireFromString("300")
	if err := st.UpdateTransaction(ctx, exp); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventUpdated, exp)); err != nil {
		t.Fatalf("HandleEvent(updated) error = %v", err)
	}
	rows := mirror.Rows()
	if len(rows) != 2 || rows[1][6] != "300" {
		t.Errorf("rows after update = %v", rows)
	}

	if err := st.DeleteTransaction(ctx, core.KindIncome, "u1", "i1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := w.HandleEvent(ctx, amqp.NewTransactionEvent(amqp.EventDeleted, inc)); err != nil {
		t.Fatalf("HandleEvent(deleted) error = %v", err)
	}
	if rows := mirror.Rows(); len(rows) != 1 {
		t.Errorf("rows after delete = %d, want 1", len(rows))
	}

	processed, failed := w.Stats()
	if processed != 4 || failed != 0 {
		t.Errorf("Stats() = %d, %d; want 4, 0", processed, failed)
	}
}

func TestMirrorWorker_CreatedButAlreadyDeleted(t *testing.T) {
	st := memory.New()
	mirror := sheetsmem.New()
	w := newWorker(st, mirror)

	ghost := core.Transaction{ID: "gone", UserID: "u1", Kind: core.KindExpense}
	if err := w.HandleEvent(context.Background(), amqp.NewTransactionEvent(amqp.EventCreated, ghost)); err != nil {
		t.Fatalf("HandleEvent() error = %v, want nil", err)
	}
	if len(mirror.Rows()) != 0 {
		t.Error("ghost transaction should not be mirrored")
	}
}

type failingMirror struct{}

func (failingMirror) Upsert(context.Context, core.Transaction) (string, error) {
	return "", errors.New("quota exceeded")
}

func (failingMirror) Remove(context.Context, core.Kind, string) error {
	return errors.New("quota exceeded")
}

func TestMirrorWorker_MirrorFailureRequeues(t *testing.T) {
	st := memory.New()
	tx := seedTx(t, st, "e1", core.KindExpense, "10", core.NewDate(2024, 1, 1))
	w := NewMirrorWorker(st, failingMirror{}, services.NewDashboardService(st, nil), nil)

	if err := w.HandleEvent(context.Background(), amqp.NewTransactionEvent(amqp.EventCreated, tx)); err == nil {
		t.Fatal("expected error so the event is requeued")
	}
	if _, failed := w.Stats(); failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
}

func TestMirrorWorker_UnknownEventType(t *testing.T) {
	st := memory.New()
	w := newWorker(st, sheetsmem.New())
	ev := &amqp.TransactionEvent{Type: "archived", TransactionID: "x", UserID: "u1", Kind: core.KindIncome}
	if err := w.HandleEvent(context.Background(), ev); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestMirrorWorker_WithoutMirror(t *testing.T) {
	st := memory.New()
	tx := seedTx(t, st, "i1", core.KindIncome, "10", core.NewDate(2024, 1, 1))
	w := newWorker(st, nil)

	if err := w.HandleEvent(context.Background(), amqp.NewTransactionEvent(amqp.EventCreated, tx)); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if _, err := w.ResyncUser(context.Background(), "u1"); err == nil {
		t.Error("ResyncUser without mirror should fail")
	}
}

func TestMirrorWorker_LogDigest(t *testing.T) {
	st := memory.New()
	seedTx(t, st, "i1", core.KindIncome, "1000", core.NewDate(2024, 1, 10))
	seedTx(t, st, "e1", core.KindExpense, "250.50", core.NewDate(2024, 3, 3))
	w := newWorker(st, sheetsmem.New())

	d, err := w.LogDigest(context.Background(), "u1")
	if err != nil {
		t.Fatalf("LogDigest() error = %v", err)
	}
	want := Digest{UserID: "u1", Balance: "749.50", LastMonth: "Mar 2024", Skipped: 0}
	if d != want {
		t.Errorf("LogDigest() = %+v, want %+v", d, want)
	}
}

type errReports struct{}

func (errReports) Report(context.Context, string) (aggregate.Report, error) {
	return aggregate.Report{}, errors.New("db down")
}

func TestMirrorWorker_DigestFailureDoesNotRequeue(t *testing.T) {
	st := memory.New()
	tx := seedTx(t, st, "i1", core.KindIncome, "10", core.NewDate(2024, 1, 1))
	w := NewMirrorWorker(st, sheetsmem.New(), errReports{}, nil)

	if err := w.HandleEvent(context.Background(), amqp.NewTransactionEvent(amqp.EventCreated, tx)); err != nil {
		t.Fatalf("HandleEvent() error = %v, want nil", err)
	}
}

func TestMirrorWorker_ResyncUser(t *testing.T) {
	st := memory.New()
	seedTx(t, st, "i1", core.KindIncome, "10", core.NewDate(2024, 1, 1))
	seedTx(t, st, "i2", core.KindIncome, "20", core.NewDate(2024, 1, 2))
	seedTx(t, st, "e1", core.KindExpense, "5", core.NewDate(2024, 1, 3))
	mirror := sheetsmem.New()
	w := newWorker(st, mirror)

	n, err := w.ResyncUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ResyncUser() error = %v", err)
	}
	if n != 3 || len(mirror.Rows()) != 3 {
		t.Errorf("ResyncUser() = %d rows, mirror has %d; want 3", n, len(mirror.Rows()))
	}
}
