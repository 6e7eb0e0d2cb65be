// Package aggregate derives the summary, category breakdown and monthly
// trend views from a snapshot of a user's incomes and expenses.
//
// Every function is pure: it reads the records it is given and returns a
// fresh result. Callers recompute after every change to the snapshot.
package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// TrendWindow is the number of most recent month buckets kept by MonthlyTrend.
const TrendWindow = 6

const monthLabelLayout = "Jan 2006"

type (
	// Breakdown maps a category to the exact sum of its amounts.
	Breakdown map[string]decimal.Decimal

	Breakdowns struct {
		Income  Breakdown `json:"income"`
		Expense Breakdown `json:"expense"`
	}

	Summary struct {
		TotalIncome  decimal.Decimal `json:"total_income"`
		TotalExpense decimal.Decimal `json:"total_expense"`
		Balance      decimal.Decimal `json:"balance"`
		IncomeCount  int             `json:"income_count"`
		ExpenseCount int             `json:"expense_count"`
	}

	TrendRow struct {
		Month   string          `json:"month"`
		Income  decimal.Decimal `json:"Income"`
		Expense decimal.Decimal `json:"Expense"`

		bucket bucketKey
	}

	// Trend holds the chronologically ordered rows and the number of
	// records left out because their date could not be read.
	Trend struct {
		Rows    []TrendRow `json:"trend"`
		Skipped int        `json:"skipped"`
	}

	// Snapshot is a consistent view of one user's records at a point in time.
	Snapshot struct {
		Incomes  []core.Transaction
		Expenses []core.Transaction
	}

	Report struct {
		Summary           Summary    `json:"summary"`
		CategoryBreakdown Breakdowns `json:"category_breakdown"`
		Trend             Trend      `json:"trend"`
	}
)

type bucketKey struct {
	year  int
	month time.Month
}

func (k bucketKey) before(o bucketKey) bool {
	if k.year != o.year {
		return k.year < o.year
	}
	return k.month < o.month
}

func (k bucketKey) label() string {
	return time.Date(k.year, k.month, 1, 0, 0, 0, 0, time.UTC).Format(monthLabelLayout)
}

// CategoryBreakdown sums amounts per category. Unknown and empty category
// strings are kept verbatim as keys.
func CategoryBreakdown(records []core.Transaction) Breakdown {
	out := make(Breakdown)
	for _, r := range records {
		out[r.Category] = out[r.Category].Add(r.Amount)
	}
	return out
}

// Summarize computes totals and counts. Amounts are summed as given, so zero
// or negative values are tolerated.
func Summarize(incomes, expenses []core.Transaction) Summary {
	s := Summary{
		TotalIncome:  sum(incomes),
		TotalExpense: sum(expenses),
		IncomeCount:  len(incomes),
		ExpenseCount: len(expenses),
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpense)
	return s
}

// MonthlyTrend buckets records by calendar year and month and returns the
// most recent TrendWindow buckets present in the data, oldest first.
// Records with a zero date are skipped and counted in Trend.Skipped.
func MonthlyTrend(incomes, expenses []core.Transaction) Trend {
	type tagged struct {
		kind core.Kind
		tx   core.Transaction
	}

	merged := make([]tagged, 0, len(incomes)+len(expenses))
	for _, tx := range incomes {
		merged = append(merged, tagged{kind: core.KindIncome, tx: tx})
	}
	for _, tx := range expenses {
		merged = append(merged, tagged{kind: core.KindExpense, tx: tx})
	}

	trend := Trend{Rows: []TrendRow{}}
	buckets := make(map[bucketKey]*TrendRow)
	for _, r := range merged {
		if r.tx.Date.IsZero() {
			trend.Skipped++
			continue
		}
		key := bucketKey{year: r.tx.Date.Year(), month: r.tx.Date.Month()}
		row, ok := buckets[key]
		if !ok {
			row = &TrendRow{Month: key.label(), bucket: key}
			buckets[key] = row
		}
		switch r.kind {
		case core.KindIncome:
			row.Income = row.Income.Add(r.tx.Amount)
		case core.KindExpense:
			row.Expense = row.Expense.Add(r.tx.Amount)
		}
	}

	for _, row := range buckets {
		trend.Rows = append(trend.Rows, *row)
	}
	sort.Slice(trend.Rows, func(i, j int) bool {
		return trend.Rows[i].bucket.before(trend.Rows[j].bucket)
	})
	if len(trend.Rows) > TrendWindow {
		trend.Rows = trend.Rows[len(trend.Rows)-TrendWindow:]
	}
	return trend
}

// Build derives all three views from one snapshot.
func Build(s Snapshot) Report {
	return Report{
		Summary: Summarize(s.Incomes, s.Expenses),
		CategoryBreakdown: Breakdowns{
			Income:  CategoryBreakdown(s.Incomes),
			Expense: CategoryBreakdown(s.Expenses),
		},
		Trend: MonthlyTrend(s.Incomes, s.Expenses),
	}
}

// Total returns the sum of all values in the breakdown.
func (b Breakdown) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range b {
		total = total.Add(v)
	}
	return total
}

func sum(records []core.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}
