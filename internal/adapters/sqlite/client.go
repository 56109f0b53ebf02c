package sqlite

import (
	"context"
	"net/url"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"teamy/internal/adapters/config"
	"teamy/pkg/errors"
)

// Client wraps sqlx.DB over a single SQLite database file
type Client struct {
	db *sqlx.DB
}

// NewClient opens (creating if needed) the database file at cfg.Path.
// The pool is capped at one connection so writers serialize.
func NewClient(ctx context.Context, cfg config.SQLiteConfig) (*Client, error) {
	if cfg.Path == "" {
		return nil, errors.Wrap(errors.ErrMissingConfig, "sqlite path is required")
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn(cfg.Path))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite database %s", cfg.Path)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return &Client{db: db}, nil
}

func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	return "file:" + path + "?" + q.Encode()
}

// DB returns the underlying sqlx.DB instance
func (c *Client) DB() *sqlx.DB {
	return c.db
}

// Close closes the database
func (c *Client) Close() error {
	return c.db.Close()
}

// Health checks database connectivity
func (c *Client) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
