package livestate

import (
	"encoding/json"
	"fmt"

	"github.com/pitchconnect/livesync/internal/sportprofile"
)

// Message kinds carried in transport frames. Unknown kinds are ignored
// by the engine, not fatal.
const (
	KindEvent  = "event"
	KindScore  = "score"
	KindStatus = "status"
	KindStats  = "stats"
	KindSync   = "sync"
)

// ScorePayload is an absolute score overwrite.
type ScorePayload struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

// StatusPayload is an absolute status overwrite.
type StatusPayload struct {
	Status sportprofile.Status `json:"status"`
}

// DecodeEvent parses and validates an event payload. A malformed
// payload is a validation error: the engine drops it with a diagnostic
// log and no state mutation.
func DecodeEvent(data []byte, p *sportprofile.Profile) (MatchEvent, error) {
	var ev MatchEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return MatchEvent{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.ID == "" {
		return MatchEvent{}, fmt.Errorf("event missing id")
	}
	if ev.Type == "" {
		return MatchEvent{}, fmt.Errorf("event %s missing type", ev.ID)
	}
	if !ev.Side.Valid() {
		return MatchEvent{}, fmt.Errorf("event %s has invalid side %q", ev.ID, ev.Side)
	}
	if ev.Minute < 0 {
		return MatchEvent{}, fmt.Errorf("event %s has negative minute %d", ev.ID, ev.Minute)
	}
	// Unknown event types are allowed through: catalogs lag behind the
	// backend, and a non-scoring non-disciplinary event is display-only.
	_ = p
	return ev, nil
}

// DecodeScore parses and validates a score payload.
func DecodeScore(data []byte) (home, away int, err error) {
	var sp ScorePayload
	if err := json.Unmarshal(data, &sp); err != nil {
		return 0, 0, fmt.Errorf("decode score: %w", err)
	}
	if sp.Home == nil || sp.Away == nil {
		return 0, 0, fmt.Errorf("score payload missing home/away")
	}
	if *sp.Home < 0 || *sp.Away < 0 {
		return 0, 0, fmt.Errorf("score payload negative: %d-%d", *sp.Home, *sp.Away)
	}
	return *sp.Home, *sp.Away, nil
}

// DecodeStatus parses and validates a status payload.
func DecodeStatus(data []byte) (sportprofile.Status, error) {
	var sp StatusPayload
	if err := json.Unmarshal(data, &sp); err != nil {
		return "", fmt.Errorf("decode status: %w", err)
	}
	if sp.Status == "" {
		return "", fmt.Errorf("status payload missing status")
	}
	return sp.Status, nil
}

// DecodeStats parses a stats payload.
func DecodeStats(data []byte) (MatchStats, error) {
	var ms MatchStats
	if err := json.Unmarshal(data, &ms); err != nil {
		return MatchStats{}, fmt.Errorf("decode stats: %w", err)
	}
	return ms, nil
}
