// internal/app/system/workers/eventexpiry.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// ExpirySweeper deletes every event whose end time has passed.
type ExpirySweeper interface {
	RunExpirySweep(ctx context.Context) (int64, error)
}

// EventExpiry is a background worker that periodically removes expired
// events, so storage does not depend on someone listing them.
type EventExpiry struct {
	sweeper  ExpirySweeper
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewEventExpiry creates a new expiry worker that sweeps every interval.
func NewEventExpiry(sweeper ExpirySweeper, logger *zap.Logger, interval time.Duration) *EventExpiry {
	return &EventExpiry{
		sweeper:  sweeper,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *EventExpiry) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("event expiry worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for an in-flight sweep to finish.
// It is safe to call more than once.
func (w *EventExpiry) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("event expiry worker stopped")
	})
}

func (w *EventExpiry) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *EventExpiry) sweep() {
	ctx, cancel := timeouts.WithTimeout(context.Background(), timeouts.Long(), w.log, "event expiry sweep")
	defer cancel()

	count, err := w.sweeper.RunExpirySweep(ctx)
	if err != nil {
		w.log.Error("event expiry sweep failed", zap.Error(err))
		return
	}

	if count > 0 {
		w.log.Info("removed expired events", zap.Int64("count", count))
	}
}
