package matchclock

import (
	"sync"
	"time"
)

// Ticker drives minute re-projection on a fixed interval, independent
// of whether any update has arrived from the server.
type Ticker struct {
	interval time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewTicker(interval time.Duration) *Ticker {
	return &Ticker{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start invokes fn on every tick until Stop. fn runs on the ticker's
// goroutine.
func (t *Ticker) Start(fn func()) {
	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-t.stopCh:
				return
			}
		}
	}()
}

// Stop cancels the ticker. No fn invocation happens after Stop returns
// unless one is already in flight.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}
