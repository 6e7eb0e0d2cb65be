package sheets

import (
	"context"
	"strings"
	"time"

	"fintrack/internal/core"
)

// TransactionMirror keeps a spreadsheet copy of stored transactions, one row
// per transaction keyed by its id.
type TransactionMirror interface {
	// Upsert writes tx to its existing row, or appends a new one.
	Upsert(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	// Remove clears the row holding id. Missing rows are not an error.
	Remove(ctx context.Context, kind core.Kind, id string) error
}

// Header is the first row of a mirror sheet.
var Header = []any{"ID", "User", "Type", "Date", "Title", "Category", "Amount", "Description", "Created"}

// RowValues lays out tx in Header order. Rows are written as user-entered
// input, so free text is escaped to stay literal.
func RowValues(tx core.Transaction) []any {
	return []any{
		tx.ID,
		tx.UserID,
		tx.Kind.Label(),
		tx.Date.String(),
		literalText(tx.Title),
		literalText(tx.Category),
		tx.Amount.String(),
		literalText(tx.Description),
		tx.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// literalText prefixes an apostrophe to text Sheets would parse as a formula.
func literalText(s string) string {
	if s != "" && strings.ContainsRune("=+-@", rune(s[0])) {
		return "'" + s
	}
	return s
}
