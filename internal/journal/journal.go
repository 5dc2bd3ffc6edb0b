package journal

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pitchconnect/livesync/internal/engine"
	"github.com/pitchconnect/livesync/internal/livestate"
)

// Journal records every applied mutation to a local sqlite file for
// post-match debugging. It is a sink only: nothing in the
// reconciliation path ever reads it back, and the live state stays
// purely in-memory.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates (or appends to) the journal at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	ddl := `CREATE TABLE IF NOT EXISTS mutations (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		match_id    TEXT NOT NULL,
		kind        TEXT NOT NULL,
		status      TEXT NOT NULL,
		home_score  INTEGER NOT NULL,
		away_score  INTEGER NOT NULL,
		event_id    TEXT NOT NULL DEFAULT '',
		event_type  TEXT NOT NULL DEFAULT '',
		recorded_at TEXT NOT NULL
	)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_mutations_match ON mutations(match_id)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal index: %w", err)
	}

	return &Journal{db: db}, nil
}

// Observer returns an engine observer that records each mutation.
// Write failures are swallowed: a broken debugging aid must never
// affect reconciliation.
func (j *Journal) Observer() engine.Observer {
	return func(state livestate.MatchState, kind engine.ChangeKind) {
		var evID, evType string
		if kind == engine.ChangeEvent && len(state.Events) > 0 {
			evID = state.Events[0].ID
			evType = state.Events[0].Type
		}
		j.record(state, string(kind), evID, evType)
	}
}

func (j *Journal) record(state livestate.MatchState, kind, evID, evType string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.db == nil {
		return
	}
	_, _ = j.db.Exec(
		`INSERT INTO mutations
		(match_id, kind, status, home_score, away_score, event_id, event_type, recorded_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		state.MatchID, kind, string(state.Status),
		state.HomeScore, state.AwayScore,
		evID, evType,
		time.Now().UTC().Format(time.RFC3339),
	)
}

// Count returns the number of recorded mutations for a match.
func (j *Journal) Count(matchID string) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var n int
	err := j.db.QueryRow(`SELECT COUNT(*) FROM mutations WHERE match_id = ?`, matchID).Scan(&n)
	return n, err
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}
