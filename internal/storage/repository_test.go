package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/store/storetest"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "fintrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepositoryContract(t *testing.T) {
	storetest.Run(t, newTestRepository(t))
}

func TestSQLiteRepository_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fintrack.db")

	first, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestSQLiteRepository_MalformedRows(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	insert := func(id, amount, date string) {
		_, err := repo.db.ExecContext(ctx, `
			INSERT INTO transactions (id, user_id, kind, title, amount, category, date, description, created_at)
			VALUES (?, 'u1', 'expense', 'x', ?, 'Food', ?, '', '2024-01-01T00:00:00.000000Z')`,
			id, amount, date)
		require.NoError(t, err)
	}
	insert("good", "10.50", "2024-01-10")
	insert("bad-date", "3", "yesterday")
	insert("bad-amount", "ten", "2024-01-11")

	list, err := repo.ListTransactions(ctx, core.KindExpense, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2, "rows with a malformed amount are dropped")

	assert.Equal(t, "good", list[0].ID)
	assert.Equal(t, "bad-date", list[1].ID)
	assert.True(t, list[1].Date.IsZero(), "unreadable dates are kept as zero dates")
}

func TestPgxMigrateURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/db":   "pgx5://u:p@localhost:5432/db",
		"postgresql://u:p@localhost:5432/db": "pgx5://u:p@localhost:5432/db",
		"pgx5://already":                     "pgx5://already",
	}
	for in, want := range cases {
		assert.Equal(t, want, pgxMigrateURL(in))
	}
}
