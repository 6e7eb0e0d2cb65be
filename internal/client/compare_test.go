package client

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fintrack/internal/aggregate"
)

func TestCompare(t *testing.T) {
	local := aggregate.Report{
		Summary: aggregate.Summary{
			TotalIncome: dec("100"), TotalExpense: dec("40.5"), Balance: dec("59.5"),
			IncomeCount: 1, ExpenseCount: 2,
		},
		CategoryBreakdown: aggregate.Breakdowns{
			Income:  aggregate.Breakdown{"Salary": dec("100")},
			Expense: aggregate.Breakdown{"Food": dec("40.5")},
		},
	}

	tests := []struct {
		name   string
		mutate func(*DashboardSummary)
		want   []Mismatch
	}{
		{
			name:   "identical",
			mutate: func(*DashboardSummary) {},
		},
		{
			name:   "trailing zeros are equal",
			mutate: func(s *DashboardSummary) { s.Summary.TotalExpense = dec("40.50") },
		},
		{
			name: "balance and count differ",
			mutate: func(s *DashboardSummary) {
				s.Summary.Balance = dec("60")
				s.Summary.ExpenseCount = 1
			},
			want: []Mismatch{
				{Field: "balance", Local: "59.5", Remote: "60"},
				{Field: "expense_count", Local: "2", Remote: "1"},
			},
		},
		{
			name: "category only on server",
			mutate: func(s *DashboardSummary) {
				s.CategoryBreakdown.Expense["Transport"] = dec("3")
			},
			want: []Mismatch{{Field: "expense/Transport", Local: "0", Remote: "3"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := DashboardSummary{
				Summary: local.Summary,
				CategoryBreakdown: aggregate.Breakdowns{
					Income:  aggregate.Breakdown{"Salary": dec("100")},
					Expense: aggregate.Breakdown{"Food": dec("40.5")},
				},
			}
			tt.mutate(&remote)
			assert.Equal(t, tt.want, Compare(local, remote))
		})
	}
}
