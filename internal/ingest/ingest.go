// Package ingest runs the streaming pipeline: capture database in, task
// sessions out.
package ingest

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fentz26/recall/internal/detector"
	"github.com/fentz26/recall/internal/models"
	"github.com/fentz26/recall/internal/source"
	"github.com/fentz26/recall/internal/store"
)

// streamName keys the ingest watermark in the store. One pipeline owns one
// stream; concurrent streams need their own pipeline and detector.
const streamName = "capture"

// Pipeline polls the capture database and feeds new samples through the
// boundary detector, persisting each closed session.
type Pipeline struct {
	store      *store.Store
	reader     *source.Reader
	det        *detector.Detector
	sourcePath string

	pollInterval time.Duration
	batchLimit   int

	// mu guards the detector and counters; the HTTP API can push events
	// while the poll loop runs.
	mu             sync.Mutex
	eventsSeen     int64
	sessionsClosed int64
	lastPoll       time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	wake   chan struct{}
}

// New creates a pipeline. reader may be nil when no capture database is
// available; the pipeline then only serves pushed events.
func New(s *store.Store, reader *source.Reader, det *detector.Detector, sourcePath string, pollInterval time.Duration, batchLimit int) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		store:        s,
		reader:       reader,
		det:          det,
		sourcePath:   sourcePath,
		pollInterval: pollInterval,
		batchLimit:   batchLimit,
		ctx:          ctx,
		cancel:       cancel,
		wake:         make(chan struct{}, 1),
	}
}

// Start begins the ingest loop.
func (p *Pipeline) Start() {
	if p.reader == nil {
		log.Println("Ingest: no capture database configured, accepting pushed events only")
		return
	}
	p.wg.Add(1)
	go p.loop()
	log.Println("Ingest pipeline started")
}

// Stop gracefully stops the pipeline and flushes the trailing open session.
func (p *Pipeline) Stop() {
	p.cancel()
	p.wg.Wait()
	if closed := p.Flush(); closed != nil {
		log.Printf("Flushed trailing session %s (%d events)", closed.ID, len(closed.Events))
	}
	log.Println("Ingest pipeline stopped")
}

// Flush persists the open session if the detector considers it worth
// keeping, and returns it.
func (p *Pipeline) Flush() *models.TaskSession {
	p.mu.Lock()
	defer p.mu.Unlock()

	closed := p.det.Flush()
	if closed == nil {
		return nil
	}
	if err := p.store.SaveSession(closed); err != nil {
		log.Printf("Error saving flushed session: %v", err)
	}
	return closed
}

// PushEvent feeds one sample directly into the pipeline, bypassing the
// capture database. It returns the closed session if the event crossed a
// task boundary.
func (p *Pipeline) PushEvent(title string, ts time.Time) (*models.TaskSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.eventsSeen++
	closed := p.det.ProcessEvent(title, ts)
	if closed == nil {
		return nil, nil
	}
	p.sessionsClosed++
	if err := p.store.SaveSession(closed); err != nil {
		return nil, err
	}
	return closed, nil
}

// DetectorStatistics exposes the live detector's aggregates.
func (p *Pipeline) DetectorStatistics() models.SessionStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.det.Statistics()
}

// Stats returns current pipeline counters.
func (p *Pipeline) Stats() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]interface{}{
		"events_seen":     p.eventsSeen,
		"sessions_closed": p.sessionsClosed,
		"last_poll":       p.lastPoll,
		"source":          p.sourcePath,
	}
}

func (p *Pipeline) loop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	watcher := p.watchSource()
	if watcher != nil {
		defer watcher.Close()
	}

	// One eager poll so a server restart catches up immediately.
	p.pollOnce()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce()
		case <-p.wake:
			p.pollOnce()
		}
	}
}

// watchSource sets up an fsnotify watcher on the capture database directory
// so writes wake the poll loop before the next tick. The watcher is best
// effort: on failure the ticker alone drives polling.
func (p *Pipeline) watchSource() *fsnotify.Watcher {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("Ingest: fsnotify unavailable, polling only: %v", err)
		return nil
	}
	if err := watcher.Add(filepath.Dir(p.sourcePath)); err != nil {
		log.Printf("Ingest: cannot watch %s, polling only: %v", p.sourcePath, err)
		watcher.Close()
		return nil
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-p.ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				// SQLite writes land in the main file or its WAL sidecar.
				if !strings.HasPrefix(ev.Name, p.sourcePath) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				select {
				case p.wake <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("Ingest: watch error: %v", err)
			}
		}
	}()
	return watcher
}

// pollOnce pulls samples past the watermark, runs them through the
// detector, persists closed sessions and advances the watermark.
func (p *Pipeline) pollOnce() {
	watermark, _, err := p.store.Watermark(streamName)
	if err != nil {
		log.Printf("Error reading watermark: %v", err)
		return
	}

	events, err := p.reader.EventsSince(p.ctx, watermark, p.batchLimit)
	if err != nil {
		log.Printf("Error reading capture events: %v", err)
		return
	}

	p.mu.Lock()
	p.lastPoll = time.Now().UTC()
	p.mu.Unlock()

	if len(events) == 0 {
		return
	}

	for _, ev := range events {
		p.mu.Lock()
		p.eventsSeen++
		closed := p.det.ProcessEvent(ev.Title, ev.Timestamp)
		if closed != nil {
			p.sessionsClosed++
		}
		p.mu.Unlock()

		if closed != nil {
			if err := p.store.SaveSession(closed); err != nil {
				log.Printf("Error saving session %s: %v", closed.ID, err)
			} else {
				log.Printf("Closed session %s: %q, %d events, %.0fs",
					closed.ID, closed.PrimaryWindow, len(closed.Events), closed.TotalDuration)
			}
		}
	}

	if err := p.store.SetWatermark(streamName, events[len(events)-1].Timestamp); err != nil {
		log.Printf("Error advancing watermark: %v", err)
	}
}
