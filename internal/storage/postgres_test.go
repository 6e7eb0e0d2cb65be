package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"fintrack/internal/store/storetest"
)

// Set FINTRACK_TEST_DATABASE_URL to run against a disposable Postgres database.
func TestPostgresRepositoryContract(t *testing.T) {
	url := os.Getenv("FINTRACK_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("FINTRACK_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	repo, err := NewPostgresRepository(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	_, err = repo.pool.Exec(ctx, `TRUNCATE transactions, users`)
	require.NoError(t, err)

	storetest.Run(t, repo)
}
