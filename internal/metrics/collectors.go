package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"teamy/pkg/logger"
)

// RecordCounter reports the number of usage records in the ledger
type RecordCounter interface {
	Count(ctx context.Context) (int64, error)
}

// LedgerCollector exposes ledger size, read from the store at scrape time
type LedgerCollector struct {
	log     *logger.Logger
	ledger  RecordCounter
	timeout time.Duration

	// Descriptors
	totalUsers *prometheus.Desc
}

// NewLedgerCollector creates a new ledger metrics collector
func NewLedgerCollector(log *logger.Logger, ledger RecordCounter) *LedgerCollector {
	return &LedgerCollector{
		log:     log,
		ledger:  ledger,
		timeout: 5 * time.Second,

		totalUsers: prometheus.NewDesc(
			"teamy_ledger_users",
			"Number of users with a usage record",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *LedgerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalUsers
}

// Collect implements prometheus.Collector
func (c *LedgerCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	count, err := c.ledger.Count(ctx)
	if err != nil {
		c.log.Errorw("Failed to collect ledger user count", "error", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(
		c.totalUsers,
		prometheus.GaugeValue,
		float64(count),
	)
}
