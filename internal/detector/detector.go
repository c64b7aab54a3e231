// Package detector segments an ordered stream of window-focus events into
// task sessions using weighted heuristic signals and an adaptive threshold.
package detector

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/fentz26/recall/internal/models"
)

// Signal weights. Positive pushes toward "new task", negative toward
// "same task".
const (
	weightGapP95      = 0.9
	weightGapP90      = 0.7
	weightGapP75      = 0.4
	weightNewContent  = 0.8
	weightRelatedOnly = 0.3
	weightSupportApp  = -0.5
	weightAppSwitch   = 0.5
	weightReturn      = -0.8
	weightTaskEnd     = 0.7
)

const (
	// gapSampleWindow is how many recent inter-event gaps feed the
	// percentile baseline.
	gapSampleWindow = 20
	// minGapSamples is the minimum baseline size before the gap signal
	// participates at all.
	minGapSamples = 5
	// returnWindowSec bounds how long after a session's last event a
	// revisited title still counts as "coming back".
	returnWindowSec = 300
	// breakGapSec marks a gap long enough that the apps on either side are
	// treated as break apps.
	breakGapSec = 300
	// endGapSec is the gap component of the task-end pattern.
	endGapSec = 60

	patternMinSessions   = 5
	patternScanWindow    = 20
	thresholdMinSessions = 10
	thresholdScanWindow  = 10
	statsScanWindow      = 50
)

var breakKeywords = []string{"home", "desktop", "explorer", "finder"}

// userMetrics holds aggregate statistics learned from completed sessions.
type userMetrics struct {
	avgWindowDuration    float64
	typicalBreakDuration float64
	// continuationIndicators are app transitions observed inside sessions
	// with more than three events.
	continuationIndicators []string
}

// Detector incrementally partitions a chronologically ordered stream of
// window events into task sessions. One instance serves exactly one stream;
// it is not safe for concurrent use.
type Detector struct {
	cfg       Config
	history   []models.WindowEvent
	completed []models.TaskSession
	current   *models.TaskSession
	metrics   userMetrics
}

// New creates a detector with the given configuration.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg.normalized()}
}

// ProcessEvent consumes one window sample. It returns the just-closed
// session when the event starts a new task, or nil when it continues the
// current one. Timestamps must be non-decreasing; out-of-order input is
// caller error and yields unspecified sessionization.
func (d *Detector) ProcessEvent(windowTitle string, ts time.Time) *models.TaskSession {
	ev := models.NewWindowEvent(windowTitle, ts)

	if d.current == nil {
		d.recordEvent(ev)
		d.current = newSession(ev)
		return nil
	}

	prev := d.history[len(d.history)-1]
	probability := d.boundaryProbability(prev, ev)
	d.recordEvent(ev)

	if probability > d.AdaptiveThreshold() {
		closed := d.closeCurrent(1 - probability)
		d.current = newSession(ev)
		return closed
	}

	d.current.AddEvent(ev)
	return nil
}

// Flush finalizes and returns the open session if it holds more than one
// event; shorter sessions are discarded. Either way the detector is left
// with no open session.
func (d *Detector) Flush() *models.TaskSession {
	if d.current == nil {
		return nil
	}
	if len(d.current.Events) < 2 {
		d.current = nil
		return nil
	}
	closed := d.closeCurrent(0.5)
	return closed
}

// CompletedSessions returns the retained finalized sessions in order.
func (d *Detector) CompletedSessions() []models.TaskSession {
	out := make([]models.TaskSession, len(d.completed))
	copy(out, d.completed)
	return out
}

func newSession(ev models.WindowEvent) *models.TaskSession {
	s := &models.TaskSession{
		ID: fmt.Sprintf("task-%d", ev.Timestamp.UnixMilli()),
	}
	s.AddEvent(ev)
	return s
}

// recordEvent stamps the gap onto the previous history entry and appends,
// evicting the oldest entries past the cap.
func (d *Detector) recordEvent(ev models.WindowEvent) {
	if n := len(d.history); n > 0 {
		gap := ev.Timestamp.Sub(d.history[n-1].Timestamp).Seconds()
		d.history[n-1].DurationToNext = gap
		if gap > breakGapSec {
			if d.metrics.typicalBreakDuration == 0 {
				d.metrics.typicalBreakDuration = gap
			} else {
				d.metrics.typicalBreakDuration = (d.metrics.typicalBreakDuration + gap) / 2
			}
		}
	}
	d.history = append(d.history, ev)
	if len(d.history) > d.cfg.HistoryCap {
		d.history = d.history[len(d.history)-d.cfg.HistoryCap:]
	}
}

func (d *Detector) closeCurrent(confidence float64) *models.TaskSession {
	closed := d.current
	closed.Finalize(confidence)
	d.learnFromSession(closed)
	d.completed = append(d.completed, *closed)
	if len(d.completed) > d.cfg.SessionCap {
		d.completed = d.completed[len(d.completed)-d.cfg.SessionCap:]
	}
	d.current = nil
	return closed
}

type signal struct {
	name   string
	weight float64
}

// boundaryProbability combines the independent weighted signals into a
// [0,1] probability that curr starts a new task. With no signals at all it
// is neutral 0.5.
func (d *Detector) boundaryProbability(prev, curr models.WindowEvent) float64 {
	gap := curr.Timestamp.Sub(prev.Timestamp).Seconds()
	var signals []signal

	if sig, ok := d.gapSignal(gap); ok {
		signals = append(signals, sig)
	}

	similarity := ContentSimilarity(
		ExtractContentSignature(prev.WindowTitle),
		ExtractContentSignature(curr.WindowTitle),
	)
	switch {
	case similarity < 0.2:
		signals = append(signals, signal{"different_content", weightNewContent})
	case similarity < 0.5:
		signals = append(signals, signal{"related_content", weightRelatedOnly})
	}

	if prev.AppName != curr.AppName {
		transition := prev.AppName + " -> " + curr.AppName
		if d.isCommonSupportPattern(transition) {
			signals = append(signals, signal{"support_transition", weightSupportApp})
		} else {
			signals = append(signals, signal{"app_switch", weightAppSwitch})
		}
	}

	if d.isReturnToSession(curr) {
		signals = append(signals, signal{"return_pattern", weightReturn})
	}

	if d.matchesTaskEndPattern(curr, similarity, gap) {
		signals = append(signals, signal{"task_end", weightTaskEnd})
	}

	if len(signals) == 0 {
		return 0.5
	}

	sum, sumAbs := 0.0, 0.0
	for _, sig := range signals {
		sum += sig.weight
		sumAbs += math.Abs(sig.weight)
	}
	raw := sum / sumAbs
	return math.Max(0, math.Min(1, (raw+1)/2))
}

// gapSignal compares the current gap against percentiles of the recent gap
// baseline. With too few samples the signal is omitted entirely.
func (d *Detector) gapSignal(gap float64) (signal, bool) {
	gaps := d.recentGaps()
	if len(gaps) < minGapSamples {
		return signal{}, false
	}
	sort.Float64s(gaps)
	switch {
	case gap > percentile(gaps, 95):
		return signal{"gap_p95", weightGapP95}, true
	case gap > percentile(gaps, 90):
		return signal{"gap_p90", weightGapP90}, true
	case gap > percentile(gaps, 75):
		return signal{"gap_p75", weightGapP75}, true
	}
	return signal{}, false
}

// recentGaps returns up to the last gapSampleWindow strictly positive
// inter-event gaps recorded in history.
func (d *Detector) recentGaps() []float64 {
	var gaps []float64
	for _, ev := range d.history {
		if ev.DurationToNext > 0 {
			gaps = append(gaps, ev.DurationToNext)
		}
	}
	if len(gaps) > gapSampleWindow {
		gaps = gaps[len(gaps)-gapSampleWindow:]
	}
	return gaps
}

// percentile computes the p-th percentile of sorted values using linear
// interpolation between ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// isReturnToSession reports whether curr revisits a title already present in
// the open session within the return window of the session's last event.
func (d *Detector) isReturnToSession(curr models.WindowEvent) bool {
	if d.current == nil || len(d.current.Events) == 0 {
		return false
	}
	sinceEnd := curr.Timestamp.Sub(d.current.EndTime).Seconds()
	if sinceEnd >= returnWindowSec {
		return false
	}
	for _, ev := range d.current.Events {
		if ev.WindowTitle == curr.WindowTitle {
			return true
		}
	}
	return false
}

// isCommonSupportPattern reports whether the transition has been seen often
// enough across recent completed sessions to count as an in-task support
// switch. Inactive until enough sessions have completed.
//
// Both counters are incremented on every match, so the ratio gate reduces
// to the total-count gate in practice. This mirrors the shipped behavior of
// the original heuristics; see DESIGN.md before changing it.
func (d *Detector) isCommonSupportPattern(transition string) bool {
	if len(d.completed) < patternMinSessions {
		return false
	}
	sessions := d.completed
	if len(sessions) > patternScanWindow {
		sessions = sessions[len(sessions)-patternScanWindow:]
	}

	totalCount, supportCount := 0, 0
	for _, s := range sessions {
		for i := 0; i+1 < len(s.Events); i++ {
			t := s.Events[i].AppName + " -> " + s.Events[i+1].AppName
			if t == transition {
				totalCount++
				supportCount++
			}
		}
	}
	return totalCount > 3 && float64(supportCount)/float64(totalCount) > 0.7
}

// matchesTaskEndPattern fires when at least two independent end indicators
// hold: a desktop-like title, a learned break app, or low similarity across
// a long gap.
func (d *Detector) matchesTaskEndPattern(curr models.WindowEvent, similarity, gap float64) bool {
	indicators := 0

	lowerTitle := strings.ToLower(curr.WindowTitle)
	for _, kw := range breakKeywords {
		if strings.Contains(lowerTitle, kw) {
			indicators++
			break
		}
	}

	if d.learnBreakApps()[strings.ToLower(curr.AppName)] {
		indicators++
	}

	if similarity < 0.3 && gap > endGapSec {
		indicators++
	}

	return indicators >= 2
}

// learnBreakApps scans the whole history for unusually long gaps and marks
// the apps on both sides. Recomputed on each call, O(history).
func (d *Detector) learnBreakApps() map[string]bool {
	apps := make(map[string]bool)
	for i := 0; i+1 < len(d.history); i++ {
		if d.history[i].DurationToNext > breakGapSec {
			apps[strings.ToLower(d.history[i].AppName)] = true
			apps[strings.ToLower(d.history[i+1].AppName)] = true
		}
	}
	return apps
}

// AdaptiveThreshold returns the boundary acceptance threshold: a fixed 0.7
// until enough sessions exist, then nudged by the mean duration of the last
// ten completed sessions.
func (d *Detector) AdaptiveThreshold() float64 {
	if len(d.completed) < thresholdMinSessions {
		return 0.7
	}
	recent := d.completed[len(d.completed)-thresholdScanWindow:]
	total := 0.0
	for _, s := range recent {
		total += s.TotalDuration
	}
	mean := total / float64(len(recent))
	switch {
	case mean < 60:
		return 0.8
	case mean > 1800:
		return 0.6
	}
	return 0.7
}

// learnFromSession updates the rolling user metrics from a just-closed
// session.
func (d *Detector) learnFromSession(s *models.TaskSession) {
	var gapSum float64
	var gapCount int
	for _, ev := range s.Events {
		if ev.DurationToNext > 0 {
			gapSum += ev.DurationToNext
			gapCount++
		}
	}
	if gapCount > 0 {
		mean := gapSum / float64(gapCount)
		if d.metrics.avgWindowDuration == 0 {
			d.metrics.avgWindowDuration = mean
		} else {
			d.metrics.avgWindowDuration = (d.metrics.avgWindowDuration + mean) / 2
		}
	}

	if len(s.Events) <= 3 {
		return
	}
	for i := 0; i+1 < len(s.Events); i++ {
		a, b := s.Events[i].AppName, s.Events[i+1].AppName
		if a == b {
			continue
		}
		transition := a + " -> " + b
		known := false
		for _, t := range d.metrics.continuationIndicators {
			if t == transition {
				known = true
				break
			}
		}
		if !known {
			d.metrics.continuationIndicators = append(d.metrics.continuationIndicators, transition)
		}
	}
}
