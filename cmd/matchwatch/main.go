package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pitchconnect/livesync/internal/config"
	"github.com/pitchconnect/livesync/internal/engine"
	"github.com/pitchconnect/livesync/internal/journal"
	"github.com/pitchconnect/livesync/internal/livestate"
	"github.com/pitchconnect/livesync/internal/matchclock"
	"github.com/pitchconnect/livesync/internal/poller"
	"github.com/pitchconnect/livesync/internal/snapshot"
	"github.com/pitchconnect/livesync/internal/sportprofile"
	"github.com/pitchconnect/livesync/internal/telemetry"
	"github.com/pitchconnect/livesync/internal/transport"
)

func main() {
	sport := flag.String("sport", "football", "sport key for all watched matches")
	flag.Parse()

	cfg := config.Load()
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))

	matchIDs := flag.Args()
	if len(matchIDs) == 0 {
		fmt.Fprintln(os.Stderr, "usage: matchwatch [-sport KEY] MATCH_ID [MATCH_ID...]")
		os.Exit(2)
	}

	if cfg.SportCatalogPath != "" {
		if err := sportprofile.LoadCatalog(cfg.SportCatalogPath); err != nil {
			telemetry.Errorf("sport catalog: %v", err)
			os.Exit(1)
		}
	}

	profile, err := sportprofile.Get(*sport)
	if err != nil {
		telemetry.Errorf("%v (known: %v)", err, sportprofile.Keys())
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Shared transport + snapshot client ──────────────────────
	channel := transport.NewChannel(cfg.StreamURL, &transport.Options{
		BackoffBase: cfg.BackoffBase,
		BackoffMax:  cfg.BackoffMax,
		MaxAttempts: cfg.MaxReconnectAttempts,
	})
	fetcher := snapshot.NewClient(cfg.APIBaseURL)

	go func() {
		if err := channel.Connect(ctx); err != nil {
			telemetry.Warnf("stream unavailable, relying on polling fallback: %v", err)
		}
	}()

	// ── Optional event journal ──────────────────────────────────
	var jnl *journal.Journal
	if cfg.JournalPath != "" {
		jnl, err = journal.Open(cfg.JournalPath)
		if err != nil {
			telemetry.Warnf("journal disabled: %v", err)
		} else {
			defer jnl.Close()
		}
	}

	// ── One engine + poller + clock per match ───────────────────
	var (
		engines []*engine.Engine
		pollers []*poller.Poller
		clocks  []*matchclock.Ticker
	)
	connected := func() bool { return channel.State() == transport.StateConnected }

	for _, id := range matchIDs {
		eng, err := engine.New(id, profile, fetcher, channel, &engine.Options{
			MaxEvents:      cfg.MaxEvents,
			ReconcileDelay: cfg.ReconcileDelay,
		})
		if err != nil {
			telemetry.Errorf("engine %s: %v", id, err)
			os.Exit(1)
		}

		eng.OnChange(printUpdate)
		if jnl != nil {
			eng.OnChange(jnl.Observer())
		}

		if err := eng.Start(ctx); err != nil {
			telemetry.Errorf("start %s: %v", id, err)
			os.Exit(1)
		}
		engines = append(engines, eng)

		p := poller.New(eng, connected, cfg.PollInterval, cfg.PollGrace)
		p.Start(ctx)
		pollers = append(pollers, p)

		clock := matchclock.NewTicker(cfg.ProjectorTick)
		clock.Start(func() { eng.Tick(time.Now()) })
		clocks = append(clocks, clock)

		st := eng.State()
		telemetry.Infof("watching %s  %s  %d-%d  [%s]",
			id, st.Status, st.HomeScore, st.AwayScore, eng.ConnectionStatus())
	}

	// ── Wait for shutdown ───────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	telemetry.Infof("shutting down")

	for _, p := range pollers {
		p.Stop()
	}
	for _, c := range clocks {
		c.Stop()
	}
	for _, e := range engines {
		e.Close()
	}
	channel.Disconnect()
	cancel()

	m := &telemetry.Metrics
	telemetry.Plainf("events=%d dup=%d malformed=%d fetches=%d (failed=%d) polls=%d reconnects=%d",
		m.EventsApplied.Value(), m.DuplicatesDropped.Value(), m.MalformedFrames.Value(),
		m.SnapshotFetches.Value(), m.SnapshotFailures.Value(),
		m.PollTicks.Value(), m.Reconnects.Value())
}

// printUpdate is the terminal "UI". Runs under the engine lock, so it
// only reads the state copy it was handed.
func printUpdate(st livestate.MatchState, kind engine.ChangeKind) {
	switch kind {
	case engine.ChangeEvent:
		if len(st.Events) > 0 {
			ev := st.Events[0]
			telemetry.Plainf("[%s] %d' %s (%s)  %d-%d", st.MatchID, ev.Minute, ev.Type, ev.Side, st.HomeScore, st.AwayScore)
		}
	case engine.ChangeScore:
		telemetry.Plainf("[%s] score %d-%d", st.MatchID, st.HomeScore, st.AwayScore)
	case engine.ChangeStatus:
		telemetry.Plainf("[%s] status %s", st.MatchID, st.Status)
	case engine.ChangeSnapshot:
		telemetry.Plainf("[%s] snapshot %s %d-%d (%d events, updated %s)",
			st.MatchID, st.Status, st.HomeScore, st.AwayScore, len(st.Events), humanize.Time(st.LastUpdated))
	case engine.ChangeMinute:
		telemetry.Plainf("[%s] %d'", st.MatchID, st.CurrentMinute)
	}
}
