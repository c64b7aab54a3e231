package tui

import "time"

// SessionItem is a summary of a task session for the list view
type SessionItem struct {
	ID            string
	PrimaryWindow string
	StartTime     time.Time
	EndTime       time.Time
	DurationSec   float64
	Confidence    float64
}

// EventDetail is one window event inside a session
type EventDetail struct {
	Timestamp   time.Time
	WindowTitle string
	AppName     string
	DurationSec float64
}

// StatsDetail is the combined statistics payload
type StatsDetail struct {
	SessionCount     int
	AvgDurationMin   float64
	AvgEventsPerTask float64
	TopWindows       []string
	Transitions      []string
	Threshold        float64
}
