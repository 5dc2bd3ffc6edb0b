package livestate

import (
	"time"

	"github.com/pitchconnect/livesync/internal/sportprofile"
)

// Side identifies the team an event or stat line belongs to.
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

// Valid reports whether the side is one of the two known values.
func (s Side) Valid() bool { return s == SideHome || s == SideAway }

// MatchEvent is one occurrence in a match. Immutable once created.
// ID is the dedup key; Token is the client-generated idempotency token
// round-tripped by the server so an optimistic local record can be
// matched against its authoritative echo.
type MatchEvent struct {
	ID       string    `json:"id"`
	Token    string    `json:"token,omitempty"`
	Type     string    `json:"type"`
	Side     Side      `json:"side"`
	Minute   int       `json:"minute"`
	PlayerID string    `json:"playerId,omitempty"`
	AssistID string    `json:"assistId,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	At       time.Time `json:"at,omitempty"`
}

// TeamStats is the per-side aggregate counter block.
type TeamStats struct {
	Shots         int `json:"shots"`
	ShotsOnTarget int `json:"shotsOnTarget"`
	Possession    int `json:"possession"`
	Corners       int `json:"corners"`
	Fouls         int `json:"fouls"`
	Offsides      int `json:"offsides"`
	YellowCards   int `json:"yellowCards"`
	RedCards      int `json:"redCards"`
}

// MatchStats holds both sides' aggregates.
type MatchStats struct {
	Home TeamStats `json:"home"`
	Away TeamStats `json:"away"`
}

// MatchState is the authoritative in-memory view of one live match.
// Values are copied out to readers; the owning engine is the only
// writer. All mutations go through the reducers in this package.
type MatchState struct {
	MatchID string
	Sport   string

	Status    sportprofile.Status
	HomeScore int
	AwayScore int

	CurrentPeriod int
	CurrentMinute int
	InjuryTime    int
	KickoffAt     time.Time

	Stats MatchStats

	// Events is newest-first, capped by the engine's configured max.
	Events []MatchEvent

	LastUpdated time.Time
}

// Snapshot is a full authoritative read of one match, as returned by
// the snapshot endpoint. Events and Stats may be absent upstream and
// default to empty.
type Snapshot struct {
	Match  SnapshotMatch `json:"match"`
	Events []MatchEvent  `json:"events"`
	Stats  *MatchStats   `json:"stats"`
}

// SnapshotMatch is the match header block of a snapshot.
type SnapshotMatch struct {
	ID            string              `json:"id"`
	Sport         string              `json:"sport"`
	Status        sportprofile.Status `json:"status"`
	HomeScore     int                 `json:"homeScore"`
	AwayScore     int                 `json:"awayScore"`
	CurrentPeriod int                 `json:"currentPeriod"`
	CurrentMinute int                 `json:"currentMinute"`
	InjuryTime    int                 `json:"injuryTime"`
	KickoffAt     time.Time           `json:"kickoffAt"`
}

// HasEvent reports whether an event with the given id is retained.
func (s *MatchState) HasEvent(id string) bool {
	for i := range s.Events {
		if s.Events[i].ID == id {
			return true
		}
	}
	return false
}

// eventIndexByToken returns the index of the retained event carrying
// the given idempotency token, or -1.
func (s *MatchState) eventIndexByToken(token string) int {
	if token == "" {
		return -1
	}
	for i := range s.Events {
		if s.Events[i].Token == token {
			return i
		}
	}
	return -1
}
