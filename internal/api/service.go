// Package api provides the HTTP API and service layer for Recall.
package api

import (
	"errors"
	"time"

	"github.com/fentz26/recall/internal/ingest"
	"github.com/fentz26/recall/internal/models"
	"github.com/fentz26/recall/internal/store"
)

// Service provides the query and ingest surface behind the HTTP server.
type Service struct {
	store    *store.Store
	pipeline *ingest.Pipeline
}

// NewService creates a new service.
func NewService(s *store.Store, p *ingest.Pipeline) *Service {
	return &Service{store: s, pipeline: p}
}

// ListSessions returns stored sessions, newest first.
func (s *Service) ListSessions(since, until time.Time, limit int) ([]models.TaskSession, error) {
	return s.store.ListSessions(since, until, limit)
}

// GetSession returns one session with its events.
func (s *Service) GetSession(id string) (*models.TaskSession, error) {
	sess, err := s.store.GetSession(id)
	if errors.Is(err, store.ErrSessionNotFound) {
		return nil, ErrSessionNotFound
	}
	return sess, err
}

// SessionEvents returns the ordered events of one session.
func (s *Service) SessionEvents(id string) ([]models.WindowEvent, error) {
	if _, err := s.GetSession(id); err != nil {
		return nil, err
	}
	return s.store.SessionEvents(id)
}

// StatsReport combines stored aggregates with the live detector's view.
type StatsReport struct {
	Store    models.SessionStats    `json:"store"`
	Detector models.SessionStats    `json:"detector,omitempty"`
	Pipeline map[string]interface{} `json:"pipeline,omitempty"`
}

// Stats builds the combined statistics report. since restricts the stored
// aggregates; the live detector always reports over its own window.
func (s *Service) Stats(since time.Time) (*StatsReport, error) {
	stored, err := s.store.SessionStats(since)
	if err != nil {
		return nil, err
	}
	report := &StatsReport{Store: stored}
	if s.pipeline != nil {
		report.Detector = s.pipeline.DetectorStatistics()
		report.Pipeline = s.pipeline.Stats()
	}
	return report, nil
}

// PushEvent feeds one window sample into the live pipeline. The returned
// session is nil when the event continued the current task.
func (s *Service) PushEvent(title string, ts time.Time) (*models.TaskSession, error) {
	if ts.IsZero() {
		return nil, ErrInvalidEvent
	}
	if s.pipeline == nil {
		return nil, errors.New("no live pipeline")
	}
	return s.pipeline.PushEvent(title, ts)
}
