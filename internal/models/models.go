// Package models defines the core domain types for Recall.
package models

import (
	"strings"
	"time"
)

// UnknownApp is the app label used when a window title carries no
// recognizable application suffix.
const UnknownApp = "Unknown"

// WindowEvent is one observed "user was looking at this window" sample.
type WindowEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	WindowTitle string    `json:"window_title"`
	AppName     string    `json:"app_name"`
	// DurationToNext is the gap in seconds until the following event in the
	// same stream. Zero for the most recent event.
	DurationToNext float64 `json:"duration_to_next"`
}

// NewWindowEvent builds an event from a raw title, deriving the app name.
func NewWindowEvent(title string, ts time.Time) WindowEvent {
	return WindowEvent{
		Timestamp:   ts,
		WindowTitle: title,
		AppName:     AppNameFromTitle(title),
	}
}

// AppNameFromTitle derives the short app label from a window title: the text
// after the last " - " separator, or UnknownApp when there is none.
func AppNameFromTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return UnknownApp
	}
	if idx := strings.LastIndex(title, " - "); idx >= 0 {
		app := strings.TrimSpace(title[idx+3:])
		if app != "" {
			return app
		}
		return UnknownApp
	}
	return UnknownApp
}

// TaskSession is a contiguous run of window events judged to belong to one
// user task.
type TaskSession struct {
	ID            string        `json:"id"`
	Events        []WindowEvent `json:"events"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	PrimaryWindow string        `json:"primary_window"`
	// TotalDuration is end minus start in seconds, recomputed on each append.
	TotalDuration float64 `json:"total_duration"`
	// Confidence is 1 minus the boundary probability of the event that
	// closed the session. Only set on finalized sessions.
	Confidence float64 `json:"confidence"`
	// TaskSignature is reserved for future classification output.
	TaskSignature string `json:"task_signature,omitempty"`
}

// AddEvent appends an event, updating the end time and duration. The gap to
// the new event is recorded on the previous event.
func (s *TaskSession) AddEvent(ev WindowEvent) {
	if len(s.Events) == 0 {
		s.StartTime = ev.Timestamp
	} else {
		prev := &s.Events[len(s.Events)-1]
		prev.DurationToNext = ev.Timestamp.Sub(prev.Timestamp).Seconds()
	}
	s.Events = append(s.Events, ev)
	s.EndTime = ev.Timestamp
	s.TotalDuration = s.EndTime.Sub(s.StartTime).Seconds()
}

// Finalize computes the primary window (most frequent title, first-seen wins
// ties) and stamps the confidence.
func (s *TaskSession) Finalize(confidence float64) {
	counts := make(map[string]int, len(s.Events))
	best := ""
	bestCount := 0
	for _, ev := range s.Events {
		counts[ev.WindowTitle]++
		if counts[ev.WindowTitle] > bestCount {
			best = ev.WindowTitle
			bestCount = counts[ev.WindowTitle]
		}
	}
	s.PrimaryWindow = best
	s.Confidence = confidence
}

// SessionStats is an aggregate report over stored sessions.
type SessionStats struct {
	SessionCount      int      `json:"session_count"`
	TotalDurationSec  float64  `json:"total_duration_sec"`
	AvgDurationMin    float64  `json:"avg_duration_min"`
	AvgEventsPerTask  float64  `json:"avg_events_per_task"`
	TopPrimaryWindows []string `json:"top_primary_windows,omitempty"`
	CommonTransitions []string `json:"common_transitions,omitempty"`
	CurrentThreshold  float64  `json:"current_threshold,omitempty"`
	AvgWindowSec      float64  `json:"avg_window_sec,omitempty"`
	TypicalBreakSec   float64  `json:"typical_break_sec,omitempty"`
}
