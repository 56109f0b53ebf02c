package telegram

import (
	"sync"

	"teamy/pkg/logger"
)

// Dispatcher runs each update in its own goroutine, counted on a WaitGroup
// so shutdown can wait for in-flight updates before closing storage.
type Dispatcher struct {
	wg      *sync.WaitGroup
	handler func(Update)
	log     *logger.Logger
}

// NewDispatcher creates a dispatcher tracking handler goroutines on wg
func NewDispatcher(wg *sync.WaitGroup, handler func(Update), log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		wg:      wg,
		handler: handler,
		log:     log.With("component", "telegram_dispatcher"),
	}
}

// Dispatch starts handling update and returns immediately. The goroutine is
// added to the WaitGroup before Dispatch returns.
func (d *Dispatcher) Dispatch(update Update) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Errorw("Panic in update handler",
					"panic", r,
					"update_id", update.UpdateID,
				)
			}
		}()

		d.handler(update)
	}()
}
