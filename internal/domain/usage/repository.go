package usage

import "context"

// Repository persists usage records. Every mutating method is atomic for a
// single user_id; distinct users never contend.
type Repository interface {
	// Touch creates an all-zero record for userID if none exists
	Touch(ctx context.Context, userID int64) error

	// Increment creates the record if needed and adds 1 to cmd's counter
	Increment(ctx context.Context, userID int64, cmd Command) error

	// Get returns the record for userID or errors.ErrNotFound
	Get(ctx context.Context, userID int64) (*Record, error)

	// List returns every record ordered by user_id
	List(ctx context.Context) ([]*Record, error)

	// Count returns the number of records
	Count(ctx context.Context) (int64, error)

	// DeleteAll removes every record and reports how many were removed
	DeleteAll(ctx context.Context) (int64, error)
}
