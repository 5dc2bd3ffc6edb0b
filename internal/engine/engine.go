package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/pitchconnect/livesync/internal/livestate"
	"github.com/pitchconnect/livesync/internal/matchclock"
	"github.com/pitchconnect/livesync/internal/sportprofile"
	"github.com/pitchconnect/livesync/internal/telemetry"
	"github.com/pitchconnect/livesync/internal/transport"
)

// ChangeKind tells an observer what sort of mutation just landed.
type ChangeKind string

const (
	ChangeSnapshot   ChangeKind = "snapshot"
	ChangeEvent      ChangeKind = "event"
	ChangeScore      ChangeKind = "score"
	ChangeStatus     ChangeKind = "status"
	ChangeStats      ChangeKind = "stats"
	ChangeMinute     ChangeKind = "minute"
	ChangeConnection ChangeKind = "connection"
)

// Fetcher pulls authoritative snapshots. Satisfied by snapshot.Client.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, matchID string) (*livestate.Snapshot, error)
}

// Channel is the slice of the transport channel the engine needs.
type Channel interface {
	Subscribe(topic string, h transport.Handler) (func(), error)
	Send(frame transport.Frame) error
	State() transport.ConnState
	OnStateChange(fn func(transport.ConnState))
}

// Observer receives a copy of the state after every applied mutation.
// Observers run under the engine's lock: do not call back into the
// engine from one; read the passed state instead.
type Observer func(state livestate.MatchState, kind ChangeKind)

// ErrClosed is returned by mutations on a torn-down engine.
var ErrClosed = errors.New("engine: closed")

// Options tune one engine instance.
type Options struct {
	MaxEvents      int           // retained event cap, oldest evicted
	ReconcileDelay time.Duration // refresh backstop after a local optimistic event
	FetchTimeout   time.Duration
}

func (o *Options) withDefaults() Options {
	out := Options{MaxEvents: 100, ReconcileDelay: 10 * time.Second, FetchTimeout: 15 * time.Second}
	if o == nil {
		return out
	}
	if o.MaxEvents > 0 {
		out.MaxEvents = o.MaxEvents
	}
	if o.ReconcileDelay > 0 {
		out.ReconcileDelay = o.ReconcileDelay
	}
	if o.FetchTimeout > 0 {
		out.FetchTimeout = o.FetchTimeout
	}
	return out
}

// Engine owns the authoritative in-memory view of one match's live
// state. One match id, one engine, one mutation authority: transport
// messages, poll refreshes and local commands all funnel through the
// same reducers, applied atomically under mu — no mutation spans a
// suspension point.
type Engine struct {
	matchID string
	profile *sportprofile.Profile
	fetcher Fetcher
	channel Channel
	opts    Options

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     livestate.MatchState
	lastErr   error
	seen      map[string]struct{} // event ids applied this baseline, incl. evicted ones
	observers []Observer
	unsub     func()
	timers    []*time.Timer
	connState transport.ConnState
	polling   bool
	closed    bool

	sf singleflight.Group
}

// New constructs an engine for one match. A nil profile or empty match
// id is a wiring bug and fails fast.
func New(matchID string, profile *sportprofile.Profile, fetcher Fetcher, channel Channel, opts *Options) (*Engine, error) {
	if matchID == "" {
		return nil, fmt.Errorf("engine: empty match id")
	}
	if profile == nil {
		return nil, fmt.Errorf("engine: nil sport profile")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("engine: nil fetcher")
	}
	return &Engine{
		matchID: matchID,
		profile: profile,
		fetcher: fetcher,
		channel: channel,
		opts:    opts.withDefaults(),
		state: livestate.MatchState{
			MatchID: matchID,
			Sport:   profile.Key,
			Status:  sportprofile.StatusScheduled,
		},
		seen:      make(map[string]struct{}),
		connState: transport.StateDisconnected,
	}, nil
}

// Start subscribes to the match topic and performs the initial snapshot
// fetch. A failed fetch leaves state at defaults with the error flag
// set — retryable via Refresh — and does not fail Start.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	if e.channel != nil {
		unsub, err := e.channel.Subscribe(e.matchID, e.ApplyIncomingMessage)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", e.matchID, err)
		}
		e.mu.Lock()
		e.unsub = unsub
		e.connState = e.channel.State()
		e.mu.Unlock()

		e.channel.OnStateChange(e.onConnState)
	}

	if err := e.Refresh(e.ctx); err != nil {
		telemetry.Warnf("engine %s: initial snapshot failed: %v", e.matchID, err)
	}

	telemetry.Metrics.ActiveEngines.Inc()
	return nil
}

// Refresh re-fetches the full snapshot and replaces local state
// wholesale. The snapshot supersedes everything, optimistic local
// events included; a pending local event that the server has not yet
// acknowledged simply reappears on its authoritative echo. Concurrent
// refreshes collapse to one fetch.
func (e *Engine) Refresh(ctx context.Context) error {
	_, err, _ := e.sf.Do("refresh", func() (any, error) {
		fctx, cancel := context.WithTimeout(ctx, e.opts.FetchTimeout)
		defer cancel()

		snap, err := e.fetcher.FetchSnapshot(fctx, e.matchID)

		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed {
			return nil, nil
		}
		if err != nil {
			// Previous state stays untouched; the error is display-only.
			e.lastErr = err
			return nil, err
		}

		e.state = livestate.ApplySnapshot(e.state, *snap, e.opts.MaxEvents, time.Now())
		e.lastErr = nil
		e.seen = make(map[string]struct{}, len(snap.Events))
		for _, ev := range snap.Events {
			e.seen[ev.ID] = struct{}{}
		}
		e.notifyLocked(ChangeSnapshot)
		return nil, nil
	})
	return err
}

// ApplyIncomingMessage is the single funnel for transport-delivered
// updates. Malformed payloads are dropped with a diagnostic log, never
// surfaced as UI errors; unknown kinds are ignored.
func (e *Engine) ApplyIncomingMessage(frame transport.Frame) {
	switch frame.Type {
	case livestate.KindEvent:
		ev, err := livestate.DecodeEvent(frame.Data, e.profile)
		if err != nil {
			e.dropMalformed(err)
			return
		}
		e.applyEvent(ev)

	case livestate.KindScore:
		home, away, err := livestate.DecodeScore(frame.Data)
		if err != nil {
			e.dropMalformed(err)
			return
		}
		e.applyScore(home, away)

	case livestate.KindStatus:
		status, err := livestate.DecodeStatus(frame.Data)
		if err != nil {
			e.dropMalformed(err)
			return
		}
		e.applyStatus(status)

	case livestate.KindStats:
		stats, err := livestate.DecodeStats(frame.Data)
		if err != nil {
			e.dropMalformed(err)
			return
		}
		e.applyStats(stats)

	case livestate.KindSync:
		// Server asked for a resync; refresh off the handler goroutine.
		go func() {
			if err := e.Refresh(e.ctx); err != nil {
				telemetry.Warnf("engine %s: sync refresh: %v", e.matchID, err)
			}
		}()

	default:
		telemetry.Metrics.UnknownKinds.Inc()
		telemetry.Debugf("engine %s: ignoring unknown message kind %q", e.matchID, frame.Type)
	}
}

func (e *Engine) dropMalformed(err error) {
	telemetry.Metrics.MalformedFrames.Inc()
	telemetry.Warnf("engine %s: dropping malformed message: %v", e.matchID, err)
}

// AddLocalEvent records an event originated by the local actor (e.g. a
// referee view) before server acknowledgment. It gets a temporary id
// and an idempotency token; the authoritative echo carrying the same
// token replaces the temporary record instead of double-counting. A
// bounded-delay refresh backstops the reconciliation.
func (e *Engine) AddLocalEvent(partial livestate.MatchEvent) (livestate.MatchEvent, error) {
	if partial.Type == "" {
		return livestate.MatchEvent{}, fmt.Errorf("engine: local event missing type")
	}
	if !partial.Side.Valid() {
		return livestate.MatchEvent{}, fmt.Errorf("engine: local event has invalid side %q", partial.Side)
	}

	ev := partial
	ev.ID = "local-" + uuid.NewString()
	ev.Token = uuid.NewString()
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	if err := e.applyEvent(ev); err != nil {
		return livestate.MatchEvent{}, err
	}

	if e.channel != nil {
		frame, err := eventFrame(e.matchID, ev)
		if err == nil {
			if err := e.channel.Send(frame); err != nil {
				telemetry.Warnf("engine %s: emit local event: %v", e.matchID, err)
			}
		}
	}

	e.mu.Lock()
	if !e.closed {
		timer := time.AfterFunc(e.opts.ReconcileDelay, func() {
			if err := e.Refresh(e.ctx); err != nil {
				telemetry.Debugf("engine %s: reconcile refresh: %v", e.matchID, err)
			}
		})
		e.timers = append(e.timers, timer)
	}
	e.mu.Unlock()

	return ev, nil
}

// UpdateScore is the command entry point for an authorized local actor.
// Shares the mutation path with the score message kind.
func (e *Engine) UpdateScore(home, away int) error {
	if home < 0 || away < 0 {
		return fmt.Errorf("engine: negative score %d-%d", home, away)
	}
	return e.applyScore(home, away)
}

// UpdateStatus is the command entry point for status transitions.
func (e *Engine) UpdateStatus(status sportprofile.Status) error {
	if status == "" {
		return fmt.Errorf("engine: empty status")
	}
	return e.applyStatus(status)
}

func (e *Engine) applyEvent(ev livestate.MatchEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if _, dup := e.seen[ev.ID]; dup {
		telemetry.Metrics.DuplicatesDropped.Inc()
		return nil
	}

	next, changed := livestate.ApplyEvent(e.state, ev, e.profile, e.opts.MaxEvents, time.Now())
	e.seen[ev.ID] = struct{}{}
	if !changed {
		telemetry.Metrics.DuplicatesDropped.Inc()
		return nil
	}
	e.state = next
	telemetry.Metrics.EventsApplied.Inc()
	e.notifyLocked(ChangeEvent)
	return nil
}

func (e *Engine) applyScore(home, away int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	next, changed := livestate.ApplyScore(e.state, home, away, time.Now())
	if changed {
		e.state = next
		e.notifyLocked(ChangeScore)
	}
	return nil
}

func (e *Engine) applyStatus(status sportprofile.Status) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	next, changed := livestate.ApplyStatus(e.state, status, e.profile, time.Now())
	if changed {
		e.state = next
		e.notifyLocked(ChangeStatus)
	}
	return nil
}

func (e *Engine) applyStats(stats livestate.MatchStats) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.state = livestate.ApplyStats(e.state, stats, time.Now())
	e.notifyLocked(ChangeStats)
	return nil
}

// Tick re-projects the displayed minute. Wired to a matchclock.Ticker;
// fires independently of network activity.
func (e *Engine) Tick(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	minute := matchclock.Project(e.state.KickoffAt, now, e.state.Status, e.state.CurrentMinute, e.profile)
	if minute != e.state.CurrentMinute {
		e.state.CurrentMinute = minute
		e.notifyLocked(ChangeMinute)
	}
}

// OnChange registers an observer. See Observer for the locking rules.
func (e *Engine) OnChange(fn Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
}

// notifyLocked invokes observers with a copy of the current state.
// Caller holds mu.
func (e *Engine) notifyLocked(kind ChangeKind) {
	if len(e.observers) == 0 {
		return
	}
	snap := e.stateCopyLocked()
	for _, fn := range e.observers {
		fn(snap, kind)
	}
}

// State returns a copy of the current view.
func (e *Engine) State() livestate.MatchState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateCopyLocked()
}

func (e *Engine) stateCopyLocked() livestate.MatchState {
	out := e.state
	out.Events = make([]livestate.MatchEvent, len(e.state.Events))
	copy(out.Events, e.state.Events)
	return out
}

// Err returns the recoverable fetch error, if any. Stale-but-present
// state remains readable alongside it.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *Engine) MatchID() string { return e.matchID }

func (e *Engine) IsLive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile.IsLive(e.state.Status)
}

func (e *Engine) IsFinished() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile.IsFinished(e.state.Status)
}

// CurrentMinute is the projected display minute: derived from the
// wall clock while live, snapshot-driven otherwise.
func (e *Engine) CurrentMinute() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return matchclock.Project(e.state.KickoffAt, time.Now(), e.state.Status, e.state.CurrentMinute, e.profile)
}

// PeriodLabel renders the current phase of play for display.
func (e *Engine) PeriodLabel() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return matchclock.Label(e.state.Status, e.profile)
}

// ConnectionStatus reports disconnected/connecting/connected, or
// polling while the fallback scheduler is the active update source.
func (e *Engine) ConnectionStatus() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.polling && e.connState != transport.StateConnected {
		return "polling"
	}
	return string(e.connState)
}

// SetPolling marks the polling fallback as the active update source.
// Called by the poller on activation/suspension.
func (e *Engine) SetPolling(active bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.polling == active {
		return
	}
	e.polling = active
	e.notifyLocked(ChangeConnection)
}

func (e *Engine) onConnState(s transport.ConnState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.connState == s {
		return
	}
	e.connState = s
	e.notifyLocked(ChangeConnection)
}

// Close tears the engine down: unsubscribes the topic, aborts in-flight
// fetches and stops pending timers. No state mutation or observer
// callback happens afterwards, even if a previously in-flight fetch or
// timer fires late.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	unsub := e.unsub
	e.unsub = nil
	timers := e.timers
	e.timers = nil
	e.observers = nil
	e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
	}
	for _, t := range timers {
		t.Stop()
	}
	if unsub != nil {
		unsub()
	}
	telemetry.Metrics.ActiveEngines.Dec()
}

func eventFrame(matchID string, ev livestate.MatchEvent) (transport.Frame, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return transport.Frame{}, fmt.Errorf("marshal event: %w", err)
	}
	return transport.Frame{
		Type:      transport.FrameEvent,
		MatchID:   matchID,
		Data:      data,
		Timestamp: time.Now(),
	}, nil
}
