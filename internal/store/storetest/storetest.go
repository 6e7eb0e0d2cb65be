// Package storetest holds behaviour tests shared by every store backend.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// Run exercises s through the store.Store contract. s must be empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	alice := core.User{ID: uuid.NewString(), Email: "Alice@Example.com", Name: "Alice", PasswordHash: "hash", CreatedAt: time.Now().UTC()}
	bob := core.User{ID: uuid.NewString(), Email: "bob@example.com", Name: "Bob", PasswordHash: "hash", CreatedAt: time.Now().UTC()}

	t.Run("users", func(t *testing.T) {
		require.NoError(t, s.CreateUser(ctx, alice))
		require.NoError(t, s.CreateUser(ctx, bob))

		err := s.CreateUser(ctx, core.User{ID: uuid.NewString(), Email: "alice@example.com", Name: "Dup", PasswordHash: "x"})
		assert.True(t, errors.Is(err, store.ErrEmailTaken), "got %v", err)

		got, err := s.GetUserByEmail(ctx, " ALICE@example.com ")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)
		assert.Equal(t, "alice@example.com", got.Email)

		_, err = s.GetUserByID(ctx, "missing")
		assert.True(t, errors.Is(err, store.ErrNotFound))

		got.Name = "Alice Liddell"
		got.PhoneNumber = "555-0100"
		got.Email = "changed@example.com"
		require.NoError(t, s.UpdateUser(ctx, got))

		reloaded, err := s.GetUserByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alice Liddell", reloaded.Name)
		assert.Equal(t, "555-0100", reloaded.PhoneNumber)
		assert.Equal(t, "alice@example.com", reloaded.Email, "email is immutable")

		err = s.UpdateUser(ctx, core.User{ID: "missing", Name: "x"})
		assert.True(t, errors.Is(err, store.ErrNotFound))
	})

	newTx := func(kind core.Kind, user, date, amount string) core.Transaction {
		d, err := core.ParseDate(date)
		require.NoError(t, err)
		return core.Transaction{
			ID:        uuid.NewString(),
			UserID:    user,
			Kind:      kind,
			Title:     "t-" + date,
			Amount:    decimal.RequireFromString(amount),
			Category:  "Other",
			Date:      d,
			CreatedAt: time.Now().UTC().Truncate(time.Second),
		}
	}

	t.Run("transactions", func(t *testing.T) {
		older := newTx(core.KindIncome, alice.ID, "2024-01-05", "100.10")
		newer := newTx(core.KindIncome, alice.ID, "2024-03-01", "0.30")
		expense := newTx(core.KindExpense, alice.ID, "2024-02-01", "12")
		foreign := newTx(core.KindIncome, bob.ID, "2024-02-01", "9")

		for _, tx := range []core.Transaction{older, newer, expense, foreign} {
			require.NoError(t, s.CreateTransaction(ctx, tx))
		}

		incomes, err := s.ListTransactions(ctx, core.KindIncome, alice.ID)
		require.NoError(t, err)
		require.Len(t, incomes, 2)
		assert.Equal(t, newer.ID, incomes[0].ID, "most recent first")
		assert.Equal(t, older.ID, incomes[1].ID)
		assert.True(t, incomes[1].Amount.Equal(decimal.RequireFromString("100.10")), "amounts are exact")
		assert.Equal(t, core.KindIncome, incomes[0].Kind)

		empty, err := s.ListTransactions(ctx, core.KindExpense, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)

		_, err = s.GetTransaction(ctx, core.KindIncome, alice.ID, foreign.ID)
		assert.True(t, errors.Is(err, store.ErrNotFound), "records are scoped by user")
		_, err = s.GetTransaction(ctx, core.KindExpense, alice.ID, older.ID)
		assert.True(t, errors.Is(err, store.ErrNotFound), "records are scoped by kind")

		updated := older
		updated.Title = "Bonus"
		updated.Amount = decimal.RequireFromString("150")
		require.NoError(t, s.UpdateTransaction(ctx, updated))
		got, err := s.GetTransaction(ctx, core.KindIncome, alice.ID, older.ID)
		require.NoError(t, err)
		assert.Equal(t, "Bonus", got.Title)
		assert.True(t, got.Amount.Equal(decimal.NewFromInt(150)))

		stolen := foreign
		stolen.UserID = alice.ID
		assert.True(t, errors.Is(s.UpdateTransaction(ctx, stolen), store.ErrNotFound))

		assert.True(t, errors.Is(s.DeleteTransaction(ctx, core.KindIncome, alice.ID, foreign.ID), store.ErrNotFound))
		require.NoError(t, s.DeleteTransaction(ctx, core.KindIncome, alice.ID, older.ID))
		assert.True(t, errors.Is(s.DeleteTransaction(ctx, core.KindIncome, alice.ID, older.ID), store.ErrNotFound))

		incomes, err = s.ListTransactions(ctx, core.KindIncome, alice.ID)
		require.NoError(t, err)
		assert.Len(t, incomes, 1)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, s.Ping(ctx))
	})
}
