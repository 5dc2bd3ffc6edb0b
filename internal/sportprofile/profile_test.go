package sportprofile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUnknownSportFails(t *testing.T) {
	_, err := Get("quidditch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quidditch")
}

func TestEventPointsAreSportAware(t *testing.T) {
	rugby, err := Get("rugby")
	require.NoError(t, err)

	pts, err := rugby.EventPoints("TRY")
	require.NoError(t, err)
	assert.Equal(t, 5, pts)

	pts, err = rugby.EventPoints("CONVERSION")
	require.NoError(t, err)
	assert.Equal(t, 2, pts)

	basketball, err := Get("basketball")
	require.NoError(t, err)
	pts, err = basketball.EventPoints("THREE_POINTER")
	require.NoError(t, err)
	assert.Equal(t, 3, pts)
}

func TestEventPointsUnknownKeyIsError(t *testing.T) {
	football, err := Get("football")
	require.NoError(t, err)

	// No silent default-to-1: an unknown key must fail loudly.
	_, err = football.EventPoints("TRY")
	require.Error(t, err)
}

func TestCardSeverity(t *testing.T) {
	football, err := Get("football")
	require.NoError(t, err)

	assert.Equal(t, SeverityYellow, football.CardSeverity("YELLOW_CARD"))
	assert.Equal(t, SeverityRed, football.CardSeverity("RED_CARD"))

	// Substring fallback for keys the catalog doesn't know.
	assert.Equal(t, SeverityYellow, football.CardSeverity("some_yellow_thing"))
	assert.Equal(t, SeverityRed, football.CardSeverity("STRAIGHT_RED"))
	assert.Equal(t, SeverityUnknown, football.CardSeverity("SUBSTITUTION"))
}

func TestStatusClassification(t *testing.T) {
	football, err := Get("football")
	require.NoError(t, err)

	assert.True(t, football.IsLive(StatusLive))
	assert.True(t, football.IsLive(StatusHalftime))
	assert.False(t, football.IsLive(StatusScheduled))
	assert.False(t, football.IsLive(StatusFinished))

	assert.True(t, football.IsFinished(StatusFinished))
	assert.True(t, football.IsFinished(StatusAbandoned))
	assert.False(t, football.IsFinished(StatusLive))
}

func TestPeriodEndMinute(t *testing.T) {
	football, err := Get("football")
	require.NoError(t, err)

	assert.Equal(t, 45, football.PeriodEndMinute(1))
	assert.Equal(t, 90, football.PeriodEndMinute(2))
	assert.Equal(t, 105, football.PeriodEndMinute(3)) // first ET period
}

func TestLoadCatalogOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sports.yaml")
	catalog := `sports:
  korfball:
    period_count: 2
    period_minutes: 25
    break_minutes: 10
    scoring_events:
      GOAL: 1
    disciplinary_events:
      YELLOW_CARD: yellow
    live_statuses: [live, halftime, second-half]
    finished_statuses: [finished]
    period_by_status:
      live: 1
      second-half: 2
    break_after:
      halftime: 1
`
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o644))
	require.NoError(t, LoadCatalog(path))

	p, err := Get("korfball")
	require.NoError(t, err)
	assert.Equal(t, 25, p.PeriodMinutes)
	assert.True(t, p.IsLive(StatusHalftime))

	pts, err := p.EventPoints("GOAL")
	require.NoError(t, err)
	assert.Equal(t, 1, pts)
}

func TestLoadCatalogMissingFileFails(t *testing.T) {
	require.Error(t, LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestLoadCatalogRejectsBadSeverity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	catalog := `sports:
  badminton:
    period_count: 3
    period_minutes: 20
    disciplinary_events:
      CARD: purple
`
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o644))
	require.Error(t, LoadCatalog(path))
}
