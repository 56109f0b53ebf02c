package bootstrap

import (
	"context"
	"io"
	"sync"
	"time"

	"teamy/internal/adapters/kafka"
	"teamy/internal/api"
	"teamy/pkg/errors"
	"teamy/pkg/logger"
	tg "teamy/pkg/telegram"
)

type namedCloser struct {
	name   string
	closer io.Closer
}

// Lifecycle manages graceful shutdown of components
type Lifecycle struct {
	shutdownTimeout time.Duration
}

// NewLifecycle creates a new lifecycle manager
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		shutdownTimeout: 30 * time.Second,
	}
}

// Shutdown performs coordinated cleanup in order:
// 1. Stop accepting updates (HTTP, bot)
// 2. Wait for in-flight goroutines
// 3. Close the Kafka producer
// 4. Flush error tracker and logs
// 5. Close database connections last (in-flight handlers may need them)
func (l *Lifecycle) Shutdown(
	wg *sync.WaitGroup,
	httpServer *api.Server,
	bot tg.Bot,
	kafkaProducer *kafka.Producer,
	databases []namedCloser,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer shutdownCancel()

	log.Info("[1/6] Stopping HTTP server...")
	if httpServer != nil {
		httpCtx, httpCancel := context.WithTimeout(shutdownCtx, 5*time.Second)
		if err := httpServer.Shutdown(httpCtx); err != nil {
			log.Errorw("HTTP server shutdown failed", "error", err)
		}
		httpCancel()
	}

	log.Info("[2/6] Stopping Telegram bot...")
	if bot != nil {
		bot.Stop()
	}

	log.Info("[3/6] Waiting for goroutines and in-flight updates...")
	l.waitForGoroutines(wg, 10*time.Second, log)

	log.Info("[4/6] Closing Kafka producer...")
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			log.Errorw("Kafka producer close failed", "error", err)
		} else {
			log.Info("✓ Kafka producer closed")
		}
	}

	log.Info("[5/6] Flushing error tracker...")
	l.flushErrorTracker(shutdownCtx, errorTracker, log)

	log.Info("[6/6] Closing database connections...")
	l.closeDatabases(databases, log)

	log.Info("✅ Graceful shutdown complete")

	_ = logger.Sync()
}

// waitForGoroutines waits for all goroutines with a timeout
func (l *Lifecycle) waitForGoroutines(wg *sync.WaitGroup, timeout time.Duration, log *logger.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("✓ All goroutines finished")
	case <-time.After(timeout):
		log.Warnw("⚠ Some goroutines did not finish within timeout", "timeout", timeout)
	}
}

// flushErrorTracker flushes the error tracker (Sentry, etc.)
func (l *Lifecycle) flushErrorTracker(ctx context.Context, tracker errors.Tracker, log *logger.Logger) {
	if tracker == nil {
		return
	}

	flushCtx, flushCancel := context.WithTimeout(ctx, 3*time.Second)
	defer flushCancel()

	if err := tracker.Flush(flushCtx); err != nil {
		log.Warnw("Error tracker flush failed", "error", err)
	} else {
		log.Info("✓ Error tracker flushed")
	}
}

// closeDatabases closes all database connections
func (l *Lifecycle) closeDatabases(databases []namedCloser, log *logger.Logger) {
	var errs errors.MultiError

	for _, db := range databases {
		if err := db.closer.Close(); err != nil {
			errs.Add(errors.Wrap(err, db.name))
		}
	}

	if errs.HasErrors() {
		log.Errorw("Database close errors", "error", errs.ToError())
	} else {
		log.Info("✓ Database connections closed")
	}
}
