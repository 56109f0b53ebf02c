package testsupport

import (
	"fmt"
	"sync/atomic"
	"time"
)

var (
	// Global counter for generating unique sequential IDs in tests
	testSequence uint64
)

func init() {
	// Seed from the clock so parallel packages don't collide on shared stores
	testSequence = uint64(time.Now().UnixNano() % 1000000)
}

// NextSequence returns next unique sequence number
func NextSequence() uint64 {
	return atomic.AddUint64(&testSequence, 1)
}

// UniqueName generates a unique name with given prefix
// Example: UniqueName("teamy_test") -> "teamy_test_123456"
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, NextSequence())
}

// UniqueTelegramID generates a unique telegram ID for testing
// Returns ID in range [100000000, 999999999]
func UniqueTelegramID() int64 {
	seq := NextSequence()
	return 100000000 + int64(seq%900000000)
}
