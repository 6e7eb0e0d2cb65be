package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*PostgresRepository)(nil)

// NewPostgresRepository migrates the schema and opens a connection pool.
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	if err := RunPostgresMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) CreateTransaction(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO transactions (id, user_id, kind, title, amount, category, date, description, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9)`,
		tx.ID, tx.UserID, string(tx.Kind), tx.Title, tx.Amount.String(), tx.Category,
		tx.Date.Time, tx.Description, tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to Postgres",
		"id", tx.ID,
		"kind", tx.Kind,
		"amount", tx.Amount.String())

	return nil
}

func (r *PostgresRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE transactions
		SET title = $1, amount = $2::numeric, category = $3, date = $4, description = $5
		WHERE id = $6 AND user_id = $7 AND kind = $8`,
		tx.Title, tx.Amount.String(), tx.Category, tx.Date.Time, tx.Description,
		tx.ID, tx.UserID, string(tx.Kind))
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", tx.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteTransaction(ctx context.Context, kind core.Kind, userID, id string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM transactions WHERE id = $1 AND user_id = $2 AND kind = $3`,
		id, userID, string(kind))
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

const pgTransactionColumns = `id, user_id, kind, title, amount::text, category, date, description, created_at`

func (r *PostgresRepository) GetTransaction(ctx context.Context, kind core.Kind, userID, id string) (core.Transaction, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+pgTransactionColumns+` FROM transactions WHERE id = $1 AND user_id = $2 AND kind = $3`,
		id, userID, string(kind))
	tx, err := scanPgTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return tx, nil
}

func (r *PostgresRepository) ListTransactions(ctx context.Context, kind core.Kind, userID string) ([]core.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+pgTransactionColumns+` FROM transactions WHERE user_id = $1 AND kind = $2 ORDER BY date DESC, created_at DESC`,
		userID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		tx, err := scanPgTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) CreateUser(ctx context.Context, u core.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, name, password_hash, phone_number, profile_picture, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, core.NormalizeEmail(u.Email), u.Name, u.PasswordHash, u.PhoneNumber, u.ProfilePicture, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return store.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const pgUserColumns = `id, email, name, password_hash, phone_number, profile_picture, created_at`

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (core.User, error) {
	return r.getUser(ctx, `SELECT `+pgUserColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.getUser(ctx, `SELECT `+pgUserColumns+` FROM users WHERE email = $1`, core.NormalizeEmail(email))
}

func (r *PostgresRepository) getUser(ctx context.Context, query, arg string) (core.User, error) {
	var u core.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.PhoneNumber, &u.ProfilePicture, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.User{}, store.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) UpdateUser(ctx context.Context, u core.User) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET name = $1, password_hash = $2, phone_number = $3, profile_picture = $4
		WHERE id = $5`,
		u.Name, u.PasswordHash, u.PhoneNumber, u.ProfilePicture, u.ID)
	if err != nil {
		return fmt.Errorf("update user %s: %w", u.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanPgTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		tx     core.Transaction
		kind   string
		amount string
		date   time.Time
	)
	if err := row.Scan(&tx.ID, &tx.UserID, &kind, &tx.Title, &amount, &tx.Category, &date, &tx.Description, &tx.CreatedAt); err != nil {
		return core.Transaction{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	tx.Kind = core.Kind(kind)
	tx.Amount = d
	tx.Date = core.NewDate(date.Year(), int(date.Month()), date.Day())
	return tx, nil
}
