package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
)

// DashboardSummary is the decoded summary route. Recent lists keep the
// server order; records with an unreadable amount are counted in Malformed.
type DashboardSummary struct {
	Summary           aggregate.Summary
	RecentIncomes     []core.Transaction
	RecentExpenses    []core.Transaction
	CategoryBreakdown aggregate.Breakdowns
	Malformed         int
}

type wireSummary struct {
	Summary struct {
		TotalIncome  json.RawMessage `json:"total_income"`
		TotalExpense json.RawMessage `json:"total_expense"`
		Balance      json.RawMessage `json:"balance"`
		IncomeCount  json.RawMessage `json:"income_count"`
		ExpenseCount json.RawMessage `json:"expense_count"`
	} `json:"summary"`
	RecentTransactions struct {
		Incomes  []json.RawMessage `json:"incomes"`
		Expenses []json.RawMessage `json:"expenses"`
	} `json:"recent_transactions"`
	CategoryBreakdown struct {
		Income  map[string]json.RawMessage `json:"income"`
		Expense map[string]json.RawMessage `json:"expense"`
	} `json:"category_breakdown"`
}

// orZero falls back to zero for missing or non-numeric totals.
func orZero(raw json.RawMessage) decimal.Decimal {
	d, err := lenientDecimal(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func lenientInt(raw json.RawMessage) int {
	d, err := lenientDecimal(raw)
	if err != nil {
		return 0
	}
	return int(d.IntPart())
}

func decodeBreakdown(in map[string]json.RawMessage) (aggregate.Breakdown, int) {
	out := aggregate.Breakdown{}
	bad := 0
	for category, raw := range in {
		d, err := lenientDecimal(raw)
		if err != nil {
			bad++
			continue
		}
		out[category] = d
	}
	return out, bad
}

func decodeRecent(raws []json.RawMessage, kind core.Kind) ([]core.Transaction, int) {
	out := make([]core.Transaction, 0, len(raws))
	bad := 0
	for _, raw := range raws {
		var w wireTransaction
		if err := json.Unmarshal(raw, &w); err != nil {
			bad++
			continue
		}
		tx, err := w.toCore(kind)
		if err != nil {
			bad++
			continue
		}
		out = append(out, tx)
	}
	return out, bad
}

func (c *Client) DashboardSummary(ctx context.Context) (DashboardSummary, error) {
	var w wireSummary
	if err := c.do(ctx, http.MethodGet, "/api/dashboard/summary", true, nil, &w); err != nil {
		return DashboardSummary{}, err
	}

	out := DashboardSummary{
		Summary: aggregate.Summary{
			TotalIncome:  orZero(w.Summary.TotalIncome),
			TotalExpense: orZero(w.Summary.TotalExpense),
			Balance:      orZero(w.Summary.Balance),
			IncomeCount:  lenientInt(w.Summary.IncomeCount),
			ExpenseCount: lenientInt(w.Summary.ExpenseCount),
		},
	}

	var bad int
	out.RecentIncomes, bad = decodeRecent(w.RecentTransactions.Incomes, core.KindIncome)
	out.Malformed += bad
	out.RecentExpenses, bad = decodeRecent(w.RecentTransactions.Expenses, core.KindExpense)
	out.Malformed += bad
	out.CategoryBreakdown.Income, bad = decodeBreakdown(w.CategoryBreakdown.Income)
	out.Malformed += bad
	out.CategoryBreakdown.Expense, bad = decodeBreakdown(w.CategoryBreakdown.Expense)
	out.Malformed += bad
	return out, nil
}

// Trend fetches the server-computed monthly trend.
func (c *Client) Trend(ctx context.Context) (aggregate.Trend, error) {
	var w struct {
		Rows []struct {
			Month   string          `json:"month"`
			Income  json.RawMessage `json:"Income"`
			Expense json.RawMessage `json:"Expense"`
		} `json:"trend"`
		Skipped int `json:"skipped"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/dashboard/trend", true, nil, &w); err != nil {
		return aggregate.Trend{}, err
	}

	trend := aggregate.Trend{Rows: make([]aggregate.TrendRow, 0, len(w.Rows)), Skipped: w.Skipped}
	for _, row := range w.Rows {
		trend.Rows = append(trend.Rows, aggregate.TrendRow{
			Month:   row.Month,
			Income:  orZero(row.Income),
			Expense: orZero(row.Expense),
		})
	}
	return trend, nil
}

// Snapshot fetches both lists concurrently. The returned count is the number
// of records dropped as malformed across both.
func (c *Client) Snapshot(ctx context.Context) (aggregate.Snapshot, int, error) {
	var incomes, expenses TransactionList

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		incomes, err = c.ListTransactions(gctx, core.KindIncome)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = c.ListTransactions(gctx, core.KindExpense)
		return err
	})
	if err := g.Wait(); err != nil {
		return aggregate.Snapshot{}, 0, err
	}

	snap := aggregate.Snapshot{Incomes: incomes.Items, Expenses: expenses.Items}
	return snap, incomes.Malformed + expenses.Malformed, nil
}

// Report computes every dashboard view locally from a fresh snapshot.
func (c *Client) Report(ctx context.Context) (aggregate.Report, int, error) {
	snap, malformed, err := c.Snapshot(ctx)
	if err != nil {
		return aggregate.Report{}, 0, err
	}
	return aggregate.Build(snap), malformed, nil
}
