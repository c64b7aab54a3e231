package tui

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultClientTimeout is the default timeout for API requests.
const DefaultClientTimeout = 10 * time.Second

// Client wraps HTTP calls to the Recall API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client with timeout
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultClientTimeout,
		},
	}
}

// Health reports whether the daemon is reachable
func (c *Client) Health() bool {
	resp, err := c.httpClient.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ListSessions fetches recent sessions from the API
func (c *Client) ListSessions(limit int) ([]SessionItem, error) {
	url := c.baseURL + "/sessions"
	if limit > 0 {
		url = fmt.Sprintf("%s?limit=%d", url, limit)
	}

	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	var sessions []struct {
		ID            string    `json:"id"`
		PrimaryWindow string    `json:"primary_window"`
		StartTime     time.Time `json:"start_time"`
		EndTime       time.Time `json:"end_time"`
		TotalDuration float64   `json:"total_duration"`
		Confidence    float64   `json:"confidence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		return nil, err
	}

	items := make([]SessionItem, len(sessions))
	for i, s := range sessions {
		items[i] = SessionItem{
			ID:            s.ID,
			PrimaryWindow: s.PrimaryWindow,
			StartTime:     s.StartTime,
			EndTime:       s.EndTime,
			DurationSec:   s.TotalDuration,
			Confidence:    s.Confidence,
		}
	}
	return items, nil
}

// SessionEvents fetches the events of one session
func (c *Client) SessionEvents(id string) ([]EventDetail, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/sessions/" + id + "/events")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	var events []struct {
		Timestamp      time.Time `json:"timestamp"`
		WindowTitle    string    `json:"window_title"`
		AppName        string    `json:"app_name"`
		DurationToNext float64   `json:"duration_to_next"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, err
	}

	details := make([]EventDetail, len(events))
	for i, ev := range events {
		details[i] = EventDetail{
			Timestamp:   ev.Timestamp,
			WindowTitle: ev.WindowTitle,
			AppName:     ev.AppName,
			DurationSec: ev.DurationToNext,
		}
	}
	return details, nil
}

// Stats fetches the combined statistics report
func (c *Client) Stats() (*StatsDetail, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/stats")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	var report struct {
		Store struct {
			SessionCount      int      `json:"session_count"`
			AvgDurationMin    float64  `json:"avg_duration_min"`
			AvgEventsPerTask  float64  `json:"avg_events_per_task"`
			TopPrimaryWindows []string `json:"top_primary_windows"`
		} `json:"store"`
		Detector struct {
			CommonTransitions []string `json:"common_transitions"`
			CurrentThreshold  float64  `json:"current_threshold"`
		} `json:"detector"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, err
	}

	return &StatsDetail{
		SessionCount:     report.Store.SessionCount,
		AvgDurationMin:   report.Store.AvgDurationMin,
		AvgEventsPerTask: report.Store.AvgEventsPerTask,
		TopWindows:       report.Store.TopPrimaryWindows,
		Transitions:      report.Detector.CommonTransitions,
		Threshold:        report.Detector.CurrentThreshold,
	}, nil
}
