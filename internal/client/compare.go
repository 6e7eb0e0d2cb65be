package client

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"fintrack/internal/aggregate"
)

// Mismatch is one field where the locally computed report and the server
// summary disagree.
type Mismatch struct {
	Field  string
	Local  string
	Remote string
}

// Compare checks totals, counts and every category sum of local against
// remote. Amounts are compared exactly.
func Compare(local aggregate.Report, remote DashboardSummary) []Mismatch {
	var out []Mismatch
	amount := func(field string, l, r decimal.Decimal) {
		if !l.Equal(r) {
			out = append(out, Mismatch{Field: field, Local: l.String(), Remote: r.String()})
		}
	}
	count := func(field string, l, r int) {
		if l != r {
			out = append(out, Mismatch{Field: field, Local: strconv.Itoa(l), Remote: strconv.Itoa(r)})
		}
	}

	amount("total_income", local.Summary.TotalIncome, remote.Summary.TotalIncome)
	amount("total_expense", local.Summary.TotalExpense, remote.Summary.TotalExpense)
	amount("balance", local.Summary.Balance, remote.Summary.Balance)
	count("income_count", local.Summary.IncomeCount, remote.Summary.IncomeCount)
	count("expense_count", local.Summary.ExpenseCount, remote.Summary.ExpenseCount)

	breakdown := func(prefix string, l, r aggregate.Breakdown) {
		for _, category := range unionKeys(l, r) {
			amount(prefix+category, l[category], r[category])
		}
	}
	breakdown("income/", local.CategoryBreakdown.Income, remote.CategoryBreakdown.Income)
	breakdown("expense/", local.CategoryBreakdown.Expense, remote.CategoryBreakdown.Expense)
	return out
}

func unionKeys(a, b aggregate.Breakdown) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
