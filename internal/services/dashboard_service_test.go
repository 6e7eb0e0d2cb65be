package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/store"
	"fintrack/internal/store/memory"
)

func seed(t *testing.T, s store.TransactionWriter, kind core.Kind, userID, amount, category string, y, m, d int) {
	t.Helper()
	err := s.CreateTransaction(context.Background(), core.Transaction{
		ID:       string(kind) + "-" + category + "-" + decimal.RequireFromString(amount).String() + "-" + core.NewDate(y, m, d).String(),
		UserID:   userID,
		Kind:     kind,
		Title:    category,
		Amount:   decimal.RequireFromString(amount),
		Category: category,
		Date:     core.NewDate(y, m, d),
	})
	require.NoError(t, err)
}

func TestDashboardService_Summary(t *testing.T) {
	st := memory.New()
	seed(t, st, core.KindIncome, "u1", "1000.10", "Salary", 2024, 1, 31)
	seed(t, st, core.KindIncome, "u1", "200.20", "Gift", 2024, 2, 14)
	seed(t, st, core.KindExpense, "u1", "50.05", "Food", 2024, 2, 1)
	seed(t, st, core.KindExpense, "u1", "25.00", "Food", 2024, 2, 3)
	seed(t, st, core.KindExpense, "u2", "999", "Bills", 2024, 2, 3)

	svc := NewDashboardService(st, nil)
	got, err := svc.Summary(context.Background(), "u1")
	require.NoError(t, err)

	assert.True(t, got.Summary.TotalIncome.Equal(decimal.RequireFromString("1200.30")))
	assert.True(t, got.Summary.TotalExpense.Equal(decimal.RequireFromString("75.05")))
	assert.True(t, got.Summary.Balance.Equal(decimal.RequireFromString("1125.25")))
	assert.Equal(t, 2, got.Summary.IncomeCount)
	assert.Equal(t, 2, got.Summary.ExpenseCount)

	assert.True(t, got.CategoryBreakdown.Expense["Food"].Equal(decimal.RequireFromString("75.05")))
	assert.NotContains(t, got.CategoryBreakdown.Expense, "Bills")

	require.Len(t, got.RecentTransactions.Incomes, 2)
	assert.Equal(t, core.KindIncome, got.RecentTransactions.Incomes[0].Type)
	assert.Equal(t, "Gift", got.RecentTransactions.Incomes[0].Category, "most recent first")
	assert.Equal(t, core.KindExpense, got.RecentTransactions.Expenses[0].Type)
}

func TestDashboardService_RecentLimit(t *testing.T) {
	st := memory.New()
	for d := 1; d <= 8; d++ {
		seed(t, st, core.KindExpense, "u1", "1", "Food", 2024, 4, d)
	}

	got, err := NewDashboardService(st, nil).Summary(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got.RecentTransactions.Expenses, RecentLimit)
	assert.Equal(t, 8, got.RecentTransactions.Expenses[0].Date.Day())
	assert.Empty(t, got.RecentTransactions.Incomes)
	assert.NotNil(t, got.RecentTransactions.Incomes)
}

func TestDashboardService_Trend(t *testing.T) {
	st := memory.New()
	seed(t, st, core.KindIncome, "u1", "100", "Salary", 2024, 12, 15)
	seed(t, st, core.KindExpense, "u1", "50", "Food", 2025, 1, 5)

	trend, err := NewDashboardService(st, nil).Trend(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, trend.Rows, 2)
	assert.Equal(t, "Dec 2024", trend.Rows[0].Month)
	assert.Equal(t, "Jan 2025", trend.Rows[1].Month)
	assert.Zero(t, trend.Skipped)
}

func TestDashboardService_TrendSkipsUndatedRecords(t *testing.T) {
	st := memory.New()
	seed(t, st, core.KindIncome, "u1", "100", "Salary", 2024, 3, 1)
	seed(t, st, core.KindExpense, "u1", "40", "Food", 2024, 3, 9)
	seed(t, st, core.KindExpense, "u1", "10", "Food", 2024, 4, 2)
	require.NoError(t, st.CreateTransaction(context.Background(), core.Transaction{
		ID:       "legacy",
		UserID:   "u1",
		Kind:     core.KindExpense,
		Title:    "Imported",
		Amount:   decimal.RequireFromString("999"),
		Category: "Other",
	}))

	var buf bytes.Buffer
	logger := applog.New(applog.Config{Level: slog.LevelDebug, JSON: true, Output: &buf})
	trend, err := NewDashboardService(st, logger).Trend(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, trend.Skipped)
	require.Len(t, trend.Rows, 2)
	assert.Equal(t, "Mar 2024", trend.Rows[0].Month)
	assert.True(t, trend.Rows[0].Income.Equal(decimal.RequireFromString("100")))
	assert.True(t, trend.Rows[0].Expense.Equal(decimal.RequireFromString("40")))
	assert.Equal(t, "Apr 2024", trend.Rows[1].Month)
	assert.True(t, trend.Rows[1].Expense.Equal(decimal.RequireFromString("10")))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line), "log output %q", buf.String())
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "u1", line[applog.FieldUserID])
	assert.EqualValues(t, 1, line[applog.FieldSkipped])

	// The summary still counts the undated record.
	summary, err := NewDashboardService(st, nil).Summary(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Summary.ExpenseCount)
}

func TestDashboardService_EmptyUser(t *testing.T) {
	svc := NewDashboardService(memory.New(), nil)

	report, err := svc.Report(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, report.Summary.Balance.IsZero())
	assert.Empty(t, report.Trend.Rows)
}

type failingReader struct{ store.TransactionReader }

func (failingReader) ListTransactions(context.Context, core.Kind, string) ([]core.Transaction, error) {
	return nil, errors.New("database is locked")
}

func TestDashboardService_SnapshotError(t *testing.T) {
	_, err := NewDashboardService(failingReader{}, nil).Summary(context.Background(), "u1")
	assert.ErrorContains(t, err, "database is locked")
}
