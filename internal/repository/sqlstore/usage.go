package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"teamy/internal/domain/usage"
	"teamy/pkg/errors"
)

// Compile-time check that we implement the interface
var _ usage.Repository = (*UsageRepository)(nil)

const usageTable = "command_usage"

var (
	selectColumns = strings.Join(usage.Columns(), ", ")

	// One upsert per tracked command, built from the closed command set.
	incrementQueries = func() map[usage.Command]string {
		queries := make(map[usage.Command]string)
		for _, cmd := range usage.Commands() {
			col := cmd.Column()
			queries[cmd] = fmt.Sprintf(`
		INSERT INTO %[1]s (user_id, %[2]s) VALUES (?, 1)
		ON CONFLICT (user_id) DO UPDATE SET %[2]s = %[1]s.%[2]s + 1`, usageTable, col)
		}
		return queries
	}()
)

// UsageRepository implements usage.Repository over PostgreSQL or SQLite via sqlx
type UsageRepository struct {
	db DBTX
}

// NewUsageRepository creates a new usage repository
func NewUsageRepository(db DBTX) *UsageRepository {
	return &UsageRepository{db: db}
}

// Touch inserts an all-zero row unless one exists
func (r *UsageRepository) Touch(ctx context.Context, userID int64) error {
	query := r.db.Rebind(`
		INSERT INTO command_usage (user_id) VALUES (?)
		ON CONFLICT (user_id) DO NOTHING`)

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return errors.Wrapf(err, "failed to touch usage record: user_id=%d", userID)
	}
	return nil
}

// Increment upserts the row and bumps cmd's counter in a single statement
func (r *UsageRepository) Increment(ctx context.Context, userID int64, cmd usage.Command) error {
	query, ok := incrementQueries[cmd]
	if !ok {
		return errors.Wrapf(errors.ErrInvalidInput, "untracked command %d", int(cmd))
	}

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), userID); err != nil {
		return errors.Wrapf(err, "failed to increment %s: user_id=%d", cmd, userID)
	}
	return nil
}

// Get retrieves the record for userID
func (r *UsageRepository) Get(ctx context.Context, userID int64) (*usage.Record, error) {
	query := r.db.Rebind(`SELECT ` + selectColumns + ` FROM command_usage WHERE user_id = ?`)

	rec := &usage.Record{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(scanTargets(rec)...)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "usage record not found: user_id=%d", userID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get usage record: user_id=%d", userID)
	}

	return rec, nil
}

// List retrieves every record ordered by user_id
func (r *UsageRepository) List(ctx context.Context) ([]*usage.Record, error) {
	query := `SELECT ` + selectColumns + ` FROM command_usage ORDER BY user_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list usage records")
	}
	defer rows.Close()

	records := make([]*usage.Record, 0)
	for rows.Next() {
		rec := &usage.Record{}
		if err := rows.Scan(scanTargets(rec)...); err != nil {
			return nil, errors.Wrap(err, "failed to scan usage record")
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Count returns the number of rows
func (r *UsageRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM command_usage`); err != nil {
		return 0, errors.Wrap(err, "failed to count usage records")
	}
	return count, nil
}

// DeleteAll removes every row
func (r *UsageRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM command_usage`)
	if err != nil {
		return 0, errors.Wrap(err, "failed to clear usage records")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read deleted row count")
	}
	return affected, nil
}

// scanTargets lines up with usage.Columns()
func scanTargets(rec *usage.Record) []interface{} {
	targets := make([]interface{}, 0, len(rec.Counters)+1)
	targets = append(targets, &rec.UserID)
	for i := range rec.Counters {
		targets = append(targets, &rec.Counters[i])
	}
	return targets
}
