package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/store"

	_ "modernc.org/sqlite"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

type SQLiteRepository struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, kind, title, amount, category, date, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, string(tx.Kind), tx.Title, tx.Amount.String(), tx.Category,
		tx.Date.String(), tx.Description, tx.CreatedAt.UTC().Format(timestampLayout))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"kind", tx.Kind,
		"amount", tx.Amount.String(),
		"date", tx.Date.String())

	return nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET title = ?, amount = ?, category = ?, date = ?, description = ?
		WHERE id = ? AND user_id = ? AND kind = ?`,
		tx.Title, tx.Amount.String(), tx.Category, tx.Date.String(), tx.Description,
		tx.ID, tx.UserID, string(tx.Kind))
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", tx.ID, err)
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, kind core.Kind, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ? AND kind = ?`,
		id, userID, string(kind))
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return expectOneRow(res)
}

const transactionColumns = `id, user_id, kind, title, amount, category, date, description, created_at`

func (r *SQLiteRepository) GetTransaction(ctx context.Context, kind core.Kind, userID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ? AND kind = ?`,
		id, userID, string(kind))
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return tx, nil
}

// ListTransactions skips rows whose stored amount is not a number and keeps
// rows whose stored date is unreadable with a zero date.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, kind core.Kind, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? AND kind = ? ORDER BY date DESC, created_at DESC`,
		userID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if errors.Is(err, errMalformedAmount) {
			slog.WarnContext(ctx, "Skipping transaction with malformed amount", "error", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	store.SortByDateDesc(out)
	return out, nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, phone_number, profile_picture, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, core.NormalizeEmail(u.Email), u.Name, u.PasswordHash, u.PhoneNumber, u.ProfilePicture,
		u.CreatedAt.UTC().Format(timestampLayout))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const userColumns = `id, email, name, password_hash, phone_number, profile_picture, created_at`

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (core.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, core.NormalizeEmail(email))
}

func (r *SQLiteRepository) getUser(ctx context.Context, query string, arg string) (core.User, error) {
	var (
		u         core.User
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.PhoneNumber, &u.ProfilePicture, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, store.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt, _ = time.Parse(timestampLayout, createdAt)
	return u, nil
}

func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.User) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET name = ?, password_hash = ?, phone_number = ?, profile_picture = ?
		WHERE id = ?`,
		u.Name, u.PasswordHash, u.PhoneNumber, u.ProfilePicture, u.ID)
	if err != nil {
		return fmt.Errorf("update user %s: %w", u.ID, err)
	}
	return expectOneRow(res)
}

var errMalformedAmount = errors.New("malformed stored amount")

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx                     core.Transaction
		kind, amount, date, ts string
	)
	if err := row.Scan(&tx.ID, &tx.UserID, &kind, &tx.Title, &amount, &tx.Category, &date, &tx.Description, &ts); err != nil {
		return core.Transaction{}, err
	}
	tx.Kind = core.Kind(kind)

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: transaction %s: %q", errMalformedAmount, tx.ID, amount)
	}
	tx.Amount = d

	// An unreadable date leaves the zero Date so aggregation can report it.
	tx.Date, _ = core.ParseDate(date)
	tx.CreatedAt, _ = time.Parse(timestampLayout, ts)
	return tx, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
