package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

const dateLayout = "2006-01-02"

// MaxTitleLength is counted in characters, not bytes.
const MaxTitleLength = 200

type (
	Kind string

	Date struct {
		time.Time
	}

	// Transaction is one income or expense record owned by a user.
	Transaction struct {
		ID          string          `json:"_id"`
		UserID      string          `json:"user_id"`
		Kind        Kind            `json:"-"`
		Title       string          `json:"title"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
		Date        Date            `json:"date"`
		Description string          `json:"description"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	// TransactionPatch carries the fields of a partial update. Nil fields are left untouched.
	TransactionPatch struct {
		Title       *string
		Amount      *decimal.Decimal
		Category    *string
		Date        *Date
		Description *string
	}
)

var (
	ErrInvalidKind   = errors.New("invalid transaction kind")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyTitle    = errors.New("empty title")
	ErrTitleTooLong  = errors.New("title too long (max 200 characters)")
	ErrEmptyCategory = errors.New("empty category")
	ErrEmptyPatch    = errors.New("no fields to update")
	ErrMissingUser   = errors.New("missing user id")
)

var categories = map[Kind][]string{
	KindIncome:  {"Salary", "Freelance", "Business", "Investment", "Gift", "Other"},
	KindExpense: {"Food", "Transportation", "Shopping", "Entertainment", "Bills", "Healthcare", "Education", "Other"},
}

func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Label is the capitalized form used in trend rows.
func (k Kind) Label() string {
	switch k {
	case KindIncome:
		return "Income"
	case KindExpense:
		return "Expense"
	}
	return string(k)
}

// Categories returns the known category vocabulary for a kind.
func Categories(k Kind) []string {
	out := make([]string, len(categories[k]))
	copy(out, categories[k])
	return out
}

// IsKnownCategory reports whether category belongs to the vocabulary of k.
func IsKnownCategory(k Kind, category string) bool {
	for _, c := range categories[k] {
		if c == category {
			return true
		}
	}
	return false
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or a full RFC 3339 timestamp and keeps only the calendar day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return NewDate(t.Year(), int(t.Month()), t.Day()), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return NewDate(t.Year(), int(t.Month()), t.Day()), nil
	}
	return Date{}, ErrInvalidDate
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON leaves the Date zero when the value cannot be parsed.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		*d = Date{}
		return nil
	}
	*d = parsed
	return nil
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if strings.TrimSpace(t.UserID) == "" {
		return ErrMissingUser
	}
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (p TransactionPatch) IsEmpty() bool {
	return p.Title == nil && p.Amount == nil && p.Category == nil && p.Date == nil && p.Description == nil
}

// Apply returns a copy of t with the patch fields set.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	return t
}
