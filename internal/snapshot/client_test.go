package snapshot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/matches/m42/live", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{
			"match": {
				"id": "m42",
				"sport": "football",
				"status": "live",
				"homeScore": 2,
				"awayScore": 1,
				"currentMinute": 67
			},
			"events": [
				{"id": "ev-1", "type": "GOAL", "side": "home", "minute": 12},
				{"id": "ev-2", "type": "GOAL", "side": "away", "minute": 40}
			],
			"stats": {"home": {"shots": 9}, "away": {"shots": 4}}
		}`))
	}))
	defer srv.Close()

	snap, err := NewClient(srv.URL).FetchSnapshot(context.Background(), "m42")
	require.NoError(t, err)
	assert.Equal(t, "m42", snap.Match.ID)
	assert.Equal(t, 2, snap.Match.HomeScore)
	assert.Equal(t, 67, snap.Match.CurrentMinute)
	require.Len(t, snap.Events, 2)
	assert.Equal(t, "ev-1", snap.Events[0].ID)
	require.NotNil(t, snap.Stats)
	assert.Equal(t, 9, snap.Stats.Home.Shots)
}

func TestFetchSnapshotDefaultsAbsentBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"match": {"id": "m1", "sport": "football", "status": "scheduled"}}`))
	}))
	defer srv.Close()

	snap, err := NewClient(srv.URL).FetchSnapshot(context.Background(), "m1")
	require.NoError(t, err)
	assert.NotNil(t, snap.Events)
	assert.Empty(t, snap.Events)
	assert.Nil(t, snap.Stats)
}

func TestFetchSnapshotSurfacesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "match not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchSnapshot(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFetchSnapshotRejectsMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"match": `))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchSnapshot(context.Background(), "m1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode snapshot")
}

func TestFetchEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/matches/m7/events", r.URL.Path)
		w.Write([]byte(`{"events": [{"id": "ev-9", "type": "YELLOW_CARD", "side": "away", "minute": 55}]}`))
	}))
	defer srv.Close()

	events, err := NewClient(srv.URL).FetchEvents(context.Background(), "m7")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "YELLOW_CARD", events[0].Type)
}

func TestFetchStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/matches/m7/stats", r.URL.Path)
		w.Write([]byte(`{"stats": {"home": {"corners": 5}, "away": {"corners": 2}}}`))
	}))
	defer srv.Close()

	stats, err := NewClient(srv.URL).FetchStats(context.Background(), "m7")
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Home.Corners)
	assert.Equal(t, 2, stats.Away.Corners)
}

func TestFetchHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(srv.URL).FetchSnapshot(ctx, "m1")
	require.Error(t, err)
}
