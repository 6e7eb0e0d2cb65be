package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/store"
)

// RecentLimit is how many of the latest records per kind the summary includes.
const RecentLimit = 5

type (
	// RecentTransaction is a transaction tagged with its kind for mixed lists.
	RecentTransaction struct {
		core.Transaction
		Type core.Kind `json:"type"`
	}

	RecentTransactions struct {
		Incomes  []RecentTransaction `json:"incomes"`
		Expenses []RecentTransaction `json:"expenses"`
	}

	DashboardSummary struct {
		Summary            aggregate.Summary    `json:"summary"`
		RecentTransactions RecentTransactions   `json:"recent_transactions"`
		CategoryBreakdown  aggregate.Breakdowns `json:"category_breakdown"`
	}
)

// DashboardService recomputes every view from a fresh snapshot on each call.
type DashboardService struct {
	store  store.TransactionReader
	logger *applog.Logger
}

func NewDashboardService(st store.TransactionReader, logger *applog.Logger) *DashboardService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DashboardService{
		store:  st,
		logger: logger.WithComponent(applog.ComponentDashboard),
	}
}

// Snapshot loads both kinds concurrently. Either both lists are returned or an error.
func (s *DashboardService) Snapshot(ctx context.Context, userID string) (aggregate.Snapshot, error) {
	var snap aggregate.Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		incomes, err := s.store.ListTransactions(gctx, core.KindIncome, userID)
		if err != nil {
			return fmt.Errorf("list incomes: %w", err)
		}
		snap.Incomes = incomes
		return nil
	})
	g.Go(func() error {
		expenses, err := s.store.ListTransactions(gctx, core.KindExpense, userID)
		if err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		snap.Expenses = expenses
		return nil
	})

	if err := g.Wait(); err != nil {
		return aggregate.Snapshot{}, err
	}
	return snap, nil
}

// Report runs the full aggregation for userID.
func (s *DashboardService) Report(ctx context.Context, userID string) (aggregate.Report, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return aggregate.Report{}, err
	}
	report := aggregate.Build(snap)
	s.warnSkipped(ctx, userID, report.Trend.Skipped)
	return report, nil
}

func (s *DashboardService) Summary(ctx context.Context, userID string) (DashboardSummary, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return DashboardSummary{}, err
	}

	return DashboardSummary{
		Summary: aggregate.Summarize(snap.Incomes, snap.Expenses),
		RecentTransactions: RecentTransactions{
			Incomes:  recent(snap.Incomes, core.KindIncome),
			Expenses: recent(snap.Expenses, core.KindExpense),
		},
		CategoryBreakdown: aggregate.Breakdowns{
			Income:  aggregate.CategoryBreakdown(snap.Incomes),
			Expense: aggregate.CategoryBreakdown(snap.Expenses),
		},
	}, nil
}

func (s *DashboardService) Trend(ctx context.Context, userID string) (aggregate.Trend, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return aggregate.Trend{}, err
	}
	trend := aggregate.MonthlyTrend(snap.Incomes, snap.Expenses)
	s.warnSkipped(ctx, userID, trend.Skipped)
	return trend, nil
}

func (s *DashboardService) warnSkipped(ctx context.Context, userID string, skipped int) {
	if skipped > 0 {
		s.logger.WarnContext(ctx, "Records with unreadable dates left out of trend",
			applog.FieldUserID, userID,
			applog.FieldSkipped, skipped,
			applog.FieldOperation, applog.OpAggregate)
	}
}

// recent expects txs already ordered most recent first.
func recent(txs []core.Transaction, kind core.Kind) []RecentTransaction {
	n := min(len(txs), RecentLimit)
	out := make([]RecentTransaction, 0, n)
	for _, tx := range txs[:n] {
		out = append(out, RecentTransaction{Transaction: tx, Type: kind})
	}
	return out
}
