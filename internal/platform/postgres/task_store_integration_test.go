//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/phrazzld/gamegen-api/internal/store"
	"github.com/phrazzld/gamegen-api/internal/store/storetest"
	"github.com/stretchr/testify/require"
)

// testDatabaseURL returns the database URL for integration tests, or skips.
func testDatabaseURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("GAMEGEN_TEST_DATABASE_URL")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		t.Skip("GAMEGEN_TEST_DATABASE_URL not set, skipping postgres integration test")
	}
	return url
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	db, err := Open(ctx, testDatabaseURL(t), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(ctx, db, logger))
	return db
}

func TestTaskStore_Conformance(t *testing.T) {
	db := setupTestDB(t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	storetest.RunTaskStoreSuite(t, func(t *testing.T) store.TaskStore {
		_, err := db.Exec(`TRUNCATE generation_tasks`)
		require.NoError(t, err)
		return NewTaskStore(db, logger)
	})
}
