package poller

import (
	"context"
	"sync"
	"time"

	"github.com/pitchconnect/livesync/internal/telemetry"
)

const (
	defaultInterval = 30 * time.Second
	defaultGrace    = 5 * time.Second
	fetchTimeout    = 15 * time.Second
)

// Target is the slice of the engine the poller drives.
type Target interface {
	MatchID() string
	Refresh(ctx context.Context) error
	IsLive() bool
	SetPolling(active bool)
}

// Connected reports whether the transport channel is up. While it is,
// polling stands down completely — two update streams racing each
// other is exactly the failure mode this scheduler exists to avoid.
type Connected func() bool

// Poller issues periodic snapshot refreshes while the transport channel
// is down and the match is in a live status. Polling a finished or
// scheduled match is wasted work.
type Poller struct {
	target    Target
	connected Connected
	interval  time.Duration
	grace     time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New constructs a poller. Zero interval/grace get defaults.
func New(target Target, connected Connected, interval, grace time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	if grace <= 0 {
		grace = defaultGrace
	}
	return &Poller{
		target:    target,
		connected: connected,
		interval:  interval,
		grace:     grace,
		stopCh:    make(chan struct{}),
	}
}

// Start runs the loop until Stop or ctx cancellation. The grace period
// gives the channel a chance to connect before the first poll.
func (p *Poller) Start(ctx context.Context) {
	go p.loop(ctx)
}

func (p *Poller) loop(ctx context.Context) {
	defer p.target.SetPolling(false)

	select {
	case <-time.After(p.grace):
	case <-p.stopCh:
		return
	case <-ctx.Done():
		return
	}

	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.tick(ctx)
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if p.connected() {
		p.target.SetPolling(false)
		return
	}
	if !p.target.IsLive() {
		p.target.SetPolling(false)
		return
	}

	p.target.SetPolling(true)
	telemetry.Metrics.PollTicks.Inc()

	fctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	if err := p.target.Refresh(fctx); err != nil {
		telemetry.Warnf("poller %s: refresh: %v", p.target.MatchID(), err)
	}
}

// Stop cancels the loop. Idempotent; no refresh fires after it returns
// unless one is already in flight.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}
