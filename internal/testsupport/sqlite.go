package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"teamy/internal/adapters/config"
	"teamy/internal/adapters/sqlite"
)

// NewTestSQLite opens a fresh SQLite database in the test's temp dir.
// Unlike Postgres this needs no external service, so it never skips.
func NewTestSQLite(t *testing.T) *sqlx.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), UniqueName("teamy")+".db")
	client, err := sqlite.NewClient(context.Background(), config.SQLiteConfig{Path: path})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client.DB()
}
