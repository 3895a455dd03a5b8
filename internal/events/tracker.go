// Package events records analytics and error events without blocking callers.
package events

import (
	"context"
	"sync"
	"time"

	"matching-platform/internal/common/logger"
	"matching-platform/internal/store"
)

const defaultTimeout = 3 * time.Second

// Inserter persists one event.
type Inserter interface {
	Insert(ctx context.Context, ev store.Event) error
}

// Tracker writes events in the background. Failures are logged and never reach the caller.
type Tracker struct {
	sink    Inserter
	timeout time.Duration
	log     logger.Logger
	wg      sync.WaitGroup
}

func NewTracker(sink Inserter, log logger.Logger) *Tracker {
	return &Tracker{
		sink:    sink,
		timeout: defaultTimeout,
		log:     log.WithFields(map[string]interface{}{"component": "events"}),
	}
}

// Track records an info-level analytics event.
func (t *Tracker) Track(eventType, source string, props map[string]interface{}) {
	t.emit(store.Event{Level: store.LevelInfo, Type: eventType, Source: source, Properties: props})
}

// Error records an error-level event for the admin error log.
func (t *Tracker) Error(eventType, source string, err error, props map[string]interface{}) {
	p := make(map[string]interface{}, len(props)+1)
	for k, v := range props {
		p[k] = v
	}
	if err != nil {
		p["error"] = err.Error()
	}
	t.emit(store.Event{Level: store.LevelError, Type: eventType, Source: source, Properties: p})
}

func (t *Tracker) emit(ev store.Event) {
	if t == nil || t.sink == nil {
		return
	}
	ev.CreatedAt = time.Now().UTC()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()

		if err := t.sink.Insert(ctx, ev); err != nil {
			t.log.Warn("Failed to record event", map[string]interface{}{
				"type":  ev.Type,
				"error": err.Error(),
			})
		}
	}()
}

// Wait blocks until pending writes finish or ctx is done.
func (t *Tracker) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
