package livestate

import (
	"sort"
	"time"

	"github.com/pitchconnect/livesync/internal/sportprofile"
)

// Reducers: every mutation is a pure function from (previous state,
// input) to (new state), applied by the engine in one synchronous step
// under its lock. Nothing here touches the network or the clock beyond
// the `now` argument.

// ApplyEvent appends an event and applies its score/stat effects.
// Returns the new state and whether anything changed.
//
// Dedup rules:
//   - an id already retained is a replay → no-op;
//   - a token matching a retained optimistic record is the authoritative
//     echo → the temp record is replaced, effects are NOT re-applied
//     (they already were when the optimistic record landed).
func ApplyEvent(s MatchState, ev MatchEvent, p *sportprofile.Profile, maxEvents int, now time.Time) (MatchState, bool) {
	if s.HasEvent(ev.ID) {
		return s, false
	}

	if idx := s.eventIndexByToken(ev.Token); idx >= 0 {
		events := make([]MatchEvent, len(s.Events))
		copy(events, s.Events)
		events[idx] = ev
		s.Events = events
		s.LastUpdated = now
		return s, true
	}

	if p.IsScoring(ev.Type) {
		pts, err := p.EventPoints(ev.Type)
		if err == nil {
			if ev.Side == SideHome {
				s.HomeScore += pts
			} else {
				s.AwayScore += pts
			}
		}
	}

	if p.IsDisciplinary(ev.Type) {
		stats := side(&s.Stats, ev.Side)
		switch p.CardSeverity(ev.Type) {
		case sportprofile.SeverityYellow:
			stats.YellowCards++
		case sportprofile.SeverityRed:
			stats.RedCards++
		}
	}

	events := make([]MatchEvent, 0, len(s.Events)+1)
	events = append(events, ev)
	events = append(events, s.Events...)
	if maxEvents > 0 && len(events) > maxEvents {
		events = events[:maxEvents]
	}
	s.Events = events
	s.LastUpdated = now
	return s, true
}

// ApplyScore is an absolute overwrite of both scores.
func ApplyScore(s MatchState, home, away int, now time.Time) (MatchState, bool) {
	if s.HomeScore == home && s.AwayScore == away {
		return s, false
	}
	s.HomeScore = home
	s.AwayScore = away
	s.LastUpdated = now
	return s, true
}

// ApplyStatus is an absolute overwrite of the match status.
func ApplyStatus(s MatchState, status sportprofile.Status, p *sportprofile.Profile, now time.Time) (MatchState, bool) {
	if s.Status == status {
		return s, false
	}
	s.Status = status
	if period, ok := p.PeriodByStatus[status]; ok {
		s.CurrentPeriod = period
	}
	s.LastUpdated = now
	return s, true
}

// ApplyStats wholesale-replaces both sides' aggregates.
func ApplyStats(s MatchState, stats MatchStats, now time.Time) MatchState {
	s.Stats = stats
	s.LastUpdated = now
	return s
}

// ApplySnapshot replaces local state with the fetched snapshot. The
// snapshot is the authority: no stale or optimistic local data survives
// beyond what the server returned.
func ApplySnapshot(s MatchState, snap Snapshot, maxEvents int, now time.Time) MatchState {
	events := make([]MatchEvent, len(snap.Events))
	copy(events, snap.Events)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Minute > events[j].Minute
	})
	if maxEvents > 0 && len(events) > maxEvents {
		events = events[:maxEvents]
	}

	var stats MatchStats
	if snap.Stats != nil {
		stats = *snap.Stats
	}

	matchID := snap.Match.ID
	if matchID == "" {
		matchID = s.MatchID
	}
	sport := snap.Match.Sport
	if sport == "" {
		sport = s.Sport
	}

	return MatchState{
		MatchID:       matchID,
		Sport:         sport,
		Status:        snap.Match.Status,
		HomeScore:     snap.Match.HomeScore,
		AwayScore:     snap.Match.AwayScore,
		CurrentPeriod: snap.Match.CurrentPeriod,
		CurrentMinute: snap.Match.CurrentMinute,
		InjuryTime:    snap.Match.InjuryTime,
		KickoffAt:     snap.Match.KickoffAt,
		Stats:         stats,
		Events:        events,
		LastUpdated:   now,
	}
}

func side(stats *MatchStats, s Side) *TeamStats {
	if s == SideAway {
		return &stats.Away
	}
	return &stats.Home
}
