package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"fintrack/internal/aggregate"
	"fintrack/internal/cli"
	"fintrack/internal/client"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

func main() {
	cli.LoadEnvFile()

	baseURL := flag.String("url", envOr("FINTRACK_API_URL", "http://localhost:5000"), "API base URL")
	email := flag.String("email", os.Getenv("FINTRACK_EMAIL"), "account email")
	compare := flag.Bool("compare", false, "also fetch the server summary and report mismatches")
	timeout := flag.Duration("timeout", 30*time.Second, "overall timeout")
	flag.Parse()

	logger := cli.SetupLogger(applog.DefaultConfig().Level, applog.ComponentClient)

	password := os.Getenv("FINTRACK_PASSWORD")
	if *email == "" || password == "" {
		logger.Error("Set -email (or FINTRACK_EMAIL) and FINTRACK_PASSWORD")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := client.New(*baseURL, client.WithLogger(logger))
	if _, err := c.Login(ctx, *email, password); err != nil {
		logger.Error("Login failed", applog.FieldError, err)
		os.Exit(1)
	}
	defer c.Logout()

	report, malformed, err := c.Report(ctx)
	if err != nil {
		logger.Error("Failed to fetch transactions", applog.FieldError, err)
		os.Exit(1)
	}
	if malformed > 0 {
		logger.Warn("Dropped malformed records", applog.FieldSkipped, malformed)
	}
	if report.Trend.Skipped > 0 {
		logger.Warn("Records without a usable date left out of the trend", applog.FieldSkipped, report.Trend.Skipped)
	}

	printReport(os.Stdout, report)

	if !*compare {
		return
	}
	remote, err := c.DashboardSummary(ctx)
	if err != nil {
		logger.Error("Failed to fetch server summary", applog.FieldError, err)
		os.Exit(1)
	}
	mismatches := client.Compare(report, remote)
	if len(mismatches) == 0 {
		fmt.Println("\nServer summary matches.")
		return
	}
	fmt.Printf("\n%d mismatch(es) with the server summary:\n", len(mismatches))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tLOCAL\tSERVER")
	for _, m := range mismatches {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.Field, m.Local, m.Remote)
	}
	_ = w.Flush()
	os.Exit(3)
}

func printReport(out io.Writer, r aggregate.Report) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(w, "SUMMARY\t\t")
	fmt.Fprintf(w, "Total income\t%s\t(%d)\n", core.FormatAmount(r.Summary.TotalIncome), r.Summary.IncomeCount)
	fmt.Fprintf(w, "Total expense\t%s\t(%d)\n", core.FormatAmount(r.Summary.TotalExpense), r.Summary.ExpenseCount)
	fmt.Fprintf(w, "Balance\t%s\t\n", core.FormatAmount(r.Summary.Balance))

	for _, section := range []struct {
		title string
		b     aggregate.Breakdown
	}{
		{"INCOME BY CATEGORY", r.CategoryBreakdown.Income},
		{"EXPENSE BY CATEGORY", r.CategoryBreakdown.Expense},
	} {
		fmt.Fprintf(w, "\t\t\n%s\t\t\n", section.title)
		categories := make([]string, 0, len(section.b))
		for category := range section.b {
			categories = append(categories, category)
		}
		sort.Strings(categories)
		for _, category := range categories {
			fmt.Fprintf(w, "%s\t%s\t\n", category, core.FormatAmount(section.b[category]))
		}
	}

	fmt.Fprintln(w, "\t\t\nMONTH\tINCOME\tEXPENSE")
	for _, row := range r.Trend.Rows {
		fmt.Fprintf(w, "%s\t%s\t%s\n", row.Month, core.FormatAmount(row.Income), core.FormatAmount(row.Expense))
	}
	_ = w.Flush()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
