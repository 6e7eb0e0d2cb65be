package store

import (
	"context"
	"errors"
	"sort"

	"fintrack/internal/core"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Ports for persistence backends. Every transaction operation is scoped
// by kind and owning user.
type (
	TransactionWriter interface {
		CreateTransaction(ctx context.Context, tx core.Transaction) error
		// UpdateTransaction replaces the stored record matching tx.Kind, tx.UserID and tx.ID.
		UpdateTransaction(ctx context.Context, tx core.Transaction) error
		DeleteTransaction(ctx context.Context, kind core.Kind, userID, id string) error
	}

	TransactionReader interface {
		GetTransaction(ctx context.Context, kind core.Kind, userID, id string) (core.Transaction, error)
		// ListTransactions returns the user's records of one kind, most recent date first.
		ListTransactions(ctx context.Context, kind core.Kind, userID string) ([]core.Transaction, error)
	}

	UserStore interface {
		CreateUser(ctx context.Context, u core.User) error
		GetUserByID(ctx context.Context, id string) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		UpdateUser(ctx context.Context, u core.User) error
	}

	Store interface {
		TransactionWriter
		TransactionReader
		UserStore
		Ping(ctx context.Context) error
		Close() error
	}
)

// SortByDateDesc orders records newest first, breaking ties on creation time.
func SortByDateDesc(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date.Time) {
			return txs[i].Date.After(txs[j].Date.Time)
		}
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
}
