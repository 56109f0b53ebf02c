package reconnect

import (
	"context"
	"sync"
	"time"

	"teamy/pkg/errors"
	"teamy/pkg/logger"
)

// Manager retries a connect function with exponential backoff.
// It is used at startup where the store or broker may still be coming up.
type Manager struct {
	minBackoff        time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
	maxAttempts       int

	mu             sync.Mutex
	currentBackoff time.Duration
	failures       int

	sleep  func(ctx context.Context, d time.Duration) error
	logger *logger.Logger
}

// Config configures the reconnect manager
type Config struct {
	MinBackoff        time.Duration // Initial backoff (e.g. 1s)
	MaxBackoff        time.Duration // Backoff ceiling (e.g. 30s)
	BackoffMultiplier float64       // e.g. 2.0
	MaxAttempts       int           // Attempts before giving up
}

// NewManager creates a new reconnect manager with sensible defaults
func NewManager(config Config, log *logger.Logger) *Manager {
	if config.MinBackoff == 0 {
		config.MinBackoff = 1 * time.Second
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if config.BackoffMultiplier == 0 {
		config.BackoffMultiplier = 2.0
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = 5
	}

	return &Manager{
		minBackoff:        config.MinBackoff,
		maxBackoff:        config.MaxBackoff,
		backoffMultiplier: config.BackoffMultiplier,
		maxAttempts:       config.MaxAttempts,
		currentBackoff:    config.MinBackoff,
		sleep:             sleepContext,
		logger:            log,
	}
}

// Connect calls connectFn until it succeeds, the attempts run out or ctx is done.
// The last connect error is returned wrapped.
func (m *Manager) Connect(ctx context.Context, name string, connectFn func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = connectFn(ctx)
		if lastErr == nil {
			m.recordSuccess(name)
			return nil
		}

		if attempt == m.maxAttempts {
			break
		}

		backoff := m.recordFailure()
		m.logger.Warnw("⏳ Connection failed, retrying",
			"target", name,
			"attempt", attempt,
			"next_backoff", backoff,
			"error", lastErr,
		)

		if err := m.sleep(ctx, backoff); err != nil {
			return err
		}
	}

	return errors.Wrapf(lastErr, "%s: giving up after %d attempts", name, m.maxAttempts)
}

// Failures returns the consecutive failure count since the last success
func (m *Manager) Failures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures
}

func (m *Manager) recordFailure() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures++
	backoff := m.currentBackoff

	next := time.Duration(float64(m.currentBackoff) * m.backoffMultiplier)
	if next > m.maxBackoff {
		next = m.maxBackoff
	}
	m.currentBackoff = next

	return backoff
}

func (m *Manager) recordSuccess(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failures > 0 {
		m.logger.Infow("✅ Connected after retries",
			"target", name,
			"previous_failures", m.failures,
		)
	}
	m.failures = 0
	m.currentBackoff = m.minBackoff
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
