package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/pitchconnect/livesync/internal/livestate"
	"github.com/pitchconnect/livesync/internal/telemetry"
)

// Client fetches authoritative match snapshots over HTTP. One client is
// shared by all engines; the rate limiter keeps a burst of mounting
// views from hammering the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(20), 20),
	}
}

// FetchSnapshot pulls the full authoritative state for one match.
// Absent events/stats blocks in the response default to empty.
func (c *Client) FetchSnapshot(ctx context.Context, matchID string) (*livestate.Snapshot, error) {
	start := time.Now()
	telemetry.Metrics.SnapshotFetches.Inc()

	body, err := c.get(ctx, fmt.Sprintf("/matches/%s/live", matchID))
	if err != nil {
		telemetry.Metrics.SnapshotFailures.Inc()
		return nil, err
	}

	var snap livestate.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		telemetry.Metrics.SnapshotFailures.Inc()
		return nil, fmt.Errorf("decode snapshot %s: %w", matchID, err)
	}
	if snap.Events == nil {
		snap.Events = []livestate.MatchEvent{}
	}

	telemetry.Metrics.SnapshotLatency.Record(time.Since(start))
	return &snap, nil
}

// FetchEvents pulls the event list only. Auxiliary read path for
// timeline views; not part of the reconciliation authority.
func (c *Client) FetchEvents(ctx context.Context, matchID string) ([]livestate.MatchEvent, error) {
	body, err := c.get(ctx, fmt.Sprintf("/matches/%s/events", matchID))
	if err != nil {
		return nil, err
	}
	var out struct {
		Events []livestate.MatchEvent `json:"events"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode events %s: %w", matchID, err)
	}
	if out.Events == nil {
		out.Events = []livestate.MatchEvent{}
	}
	return out.Events, nil
}

// FetchStats pulls the aggregate stats only. Auxiliary read path for
// stats-only views.
func (c *Client) FetchStats(ctx context.Context, matchID string) (*livestate.MatchStats, error) {
	body, err := c.get(ctx, fmt.Sprintf("/matches/%s/stats", matchID))
	if err != nil {
		return nil, err
	}
	var out struct {
		Stats *livestate.MatchStats `json:"stats"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode stats %s: %w", matchID, err)
	}
	if out.Stats == nil {
		out.Stats = &livestate.MatchStats{}
	}
	return out.Stats, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d: %s", url, resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
