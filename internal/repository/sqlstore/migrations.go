package sqlstore

import (
	"context"

	"teamy/pkg/errors"
)

// schema is valid for both PostgreSQL and SQLite
var schema = []string{`
CREATE TABLE IF NOT EXISTS command_usage (
    user_id              BIGINT PRIMARY KEY,
    start_count          INTEGER NOT NULL DEFAULT 0,
    analyze_count        INTEGER NOT NULL DEFAULT 0,
    analyze_for_me_count INTEGER NOT NULL DEFAULT 0,
    summarize_count      INTEGER NOT NULL DEFAULT 0,
    tz_count             INTEGER NOT NULL DEFAULT 0,
    premium_count        INTEGER NOT NULL DEFAULT 0
)`,
}

// Migrate creates the usage table if it does not exist
func Migrate(ctx context.Context, db DBTX) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to apply schema statement %d", i)
		}
	}
	return nil
}
