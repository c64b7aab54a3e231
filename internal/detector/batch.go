package detector

import (
	"time"

	"github.com/fentz26/recall/internal/models"
)

// Sample is one raw (title, timestamp) pair for batch processing.
type Sample struct {
	Title     string
	Timestamp time.Time
}

// ProcessAll feeds a chronologically sorted batch through ProcessEvent,
// collects every closed session, flushes the trailing open session when it
// has more than one event, and reports the resulting statistics.
func (d *Detector) ProcessAll(samples []Sample) ([]models.TaskSession, models.SessionStats) {
	var sessions []models.TaskSession
	for _, s := range samples {
		if closed := d.ProcessEvent(s.Title, s.Timestamp); closed != nil {
			sessions = append(sessions, *closed)
		}
	}
	if tail := d.Flush(); tail != nil {
		sessions = append(sessions, *tail)
	}
	return sessions, d.Statistics()
}

// Statistics reports aggregates over up to the last fifty completed
// sessions. It is a pure read; calling it repeatedly without new events
// yields identical results. With no completed sessions the zero value is
// returned.
func (d *Detector) Statistics() models.SessionStats {
	if len(d.completed) == 0 {
		return models.SessionStats{}
	}

	recent := d.completed
	if len(recent) > statsScanWindow {
		recent = recent[len(recent)-statsScanWindow:]
	}

	totalDur := 0.0
	totalEvents := 0
	for _, s := range recent {
		totalDur += s.TotalDuration
		totalEvents += len(s.Events)
	}

	transitions := d.metrics.continuationIndicators
	if len(transitions) > 10 {
		transitions = transitions[:10]
	}
	out := make([]string, len(transitions))
	copy(out, transitions)

	return models.SessionStats{
		SessionCount:      len(d.completed),
		TotalDurationSec:  totalDur,
		AvgDurationMin:    totalDur / float64(len(recent)) / 60,
		AvgEventsPerTask:  float64(totalEvents) / float64(len(recent)),
		CommonTransitions: out,
		CurrentThreshold:  d.AdaptiveThreshold(),
		AvgWindowSec:      d.metrics.avgWindowDuration,
		TypicalBreakSec:   d.metrics.typicalBreakDuration,
	}
}
