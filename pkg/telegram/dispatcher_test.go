package telegram

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"teamy/pkg/logger"
)

func TestDispatcher_WaitGroupCoversHandler(t *testing.T) {
	var wg sync.WaitGroup
	var finished atomic.Bool
	release := make(chan struct{})

	d := NewDispatcher(&wg, func(u Update) {
		<-release
		finished.Store(true)
	}, logger.NewNop())

	d.Dispatch(Update{UpdateID: 1})

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()

	wg.Wait()
	assert.True(t, finished.Load())
}

func TestDispatcher_RecoversPanics(t *testing.T) {
	var wg sync.WaitGroup
	d := NewDispatcher(&wg, func(u Update) { panic("boom") }, logger.NewNop())

	d.Dispatch(Update{UpdateID: 2})
	wg.Wait()
}
