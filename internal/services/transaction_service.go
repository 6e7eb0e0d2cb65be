package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/store"
)

// EventPublisher announces committed transaction changes.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, event *amqp.TransactionEvent) error
}

type TransactionStore interface {
	store.TransactionWriter
	store.TransactionReader
}

// TransactionService validates and persists transactions, then publishes an
// event for each successful mutation.
type TransactionService struct {
	store      TransactionStore
	events     EventPublisher
	logger     *applog.Logger
	structured *applog.StructuredLogger
	now        func() time.Time
}

// NewTransactionService accepts a nil publisher when AMQP is not configured.
func NewTransactionService(st TransactionStore, events EventPublisher, logger *applog.Logger) *TransactionService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentTransaction)
	return &TransactionService{
		store:      st,
		events:     events,
		logger:     logger,
		structured: applog.NewStructuredLogger(logger),
		now:        time.Now,
	}
}

// Create assigns an id and creation time, then stores the record.
func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx.ID = uuid.NewString()
	tx.CreatedAt = s.now().UTC()
	tx.Title = strings.TrimSpace(tx.Title)
	tx.Category = strings.TrimSpace(tx.Category)

	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if !core.IsKnownCategory(tx.Kind, tx.Category) {
		s.logger.WarnContext(ctx, "Unknown category stored verbatim",
			applog.FieldKind, tx.Kind,
			applog.FieldCategory, tx.Category)
	}

	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("save %s: %w", tx.Kind, err)
	}

	s.structured.LogTransactionEvent(ctx, applog.OpCreate, tx.UserID, string(tx.Kind), tx.ID)
	s.publish(ctx, amqp.EventCreated, tx)
	return tx, nil
}

// List returns the user's records of one kind, most recent date first.
func (s *TransactionService) List(ctx context.Context, kind core.Kind, userID string) ([]core.Transaction, error) {
	if !kind.Valid() {
		return nil, core.ErrInvalidKind
	}
	txs, err := s.store.ListTransactions(ctx, kind, userID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return txs, nil
}

func (s *TransactionService) Get(ctx context.Context, kind core.Kind, userID, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, kind, userID, id)
}

// Update applies a partial update to a record owned by userID.
func (s *TransactionService) Update(ctx context.Context, kind core.Kind, userID, id string, patch core.TransactionPatch) error {
	if patch.IsEmpty() {
		return core.ErrEmptyPatch
	}

	current, err := s.store.GetTransaction(ctx, kind, userID, id)
	if err != nil {
		return err
	}

	updated := patch.Apply(current)
	updated.Title = strings.TrimSpace(updated.Title)
	updated.Category = strings.TrimSpace(updated.Category)
	if err := updated.Validate(); err != nil {
		return err
	}

	if err := s.store.UpdateTransaction(ctx, updated); err != nil {
		return fmt.Errorf("update %s: %w", kind, err)
	}

	s.structured.LogTransactionEvent(ctx, applog.OpUpdate, userID, string(kind), id)
	s.publish(ctx, amqp.EventUpdated, updated)
	return nil
}

func (s *TransactionService) Delete(ctx context.Context, kind core.Kind, userID, id string) error {
	if err := s.store.DeleteTransaction(ctx, kind, userID, id); err != nil {
		return err
	}

	tx := core.Transaction{ID: id, UserID: userID, Kind: kind}
	s.structured.LogTransactionEvent(ctx, applog.OpDelete, userID, string(kind), id)
	s.publish(ctx, amqp.EventDeleted, tx)
	return nil
}

// publish never fails the request; the change is already committed.
func (s *TransactionService) publish(ctx context.Context, typ amqp.EventType, tx core.Transaction) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(typ, tx)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			applog.FieldError, err,
			applog.FieldTransactionID, tx.ID,
			"event", typ)
	}
}
