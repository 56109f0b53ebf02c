package metrics

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teamy/pkg/errors"
	"teamy/pkg/logger"
)

type stubCounter struct {
	count int64
	err   error
}

func (s stubCounter) Count(ctx context.Context) (int64, error) {
	return s.count, s.err
}

func TestLedgerCollector_ReportsCount(t *testing.T) {
	c := NewLedgerCollector(logger.NewNop(), stubCounter{count: 3})

	expected := `
# HELP teamy_ledger_users Number of users with a usage record
# TYPE teamy_ledger_users gauge
teamy_ledger_users 3
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected)))
}

func TestLedgerCollector_SkipsOnError(t *testing.T) {
	c := NewLedgerCollector(logger.NewNop(), stubCounter{err: errors.ErrUnavailable})

	assert.Equal(t, 0, testutil.CollectAndCount(c))
}

func TestRecordCommand(t *testing.T) {
	before := testutil.ToFloat64(CommandsHandled.WithLabelValues("metrics_test", "error"))
	RecordCommand("metrics_test", false, 10*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(CommandsHandled.WithLabelValues("metrics_test", "error")))
}
