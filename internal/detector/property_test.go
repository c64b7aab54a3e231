package detector_test

import (
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fentz26/recall/internal/detector"
)

// generateStream produces an arbitrary chronologically ordered sample
// stream: titles drawn from a small vocabulary, gaps from seconds to hours.
func generateStream(t *rapid.T) []detector.Sample {
	titles := []string{
		"", // blank titles must degrade gracefully
		"Inbox - Mail",
		"Reply: budget question - Mail",
		"main.go - Editor",
		"detector.go - Editor",
		"Quarterly report.pdf - Reader",
		"Desktop",
		"Sprint board - Browser",
	}

	n := rapid.IntRange(0, 200).Draw(t, "n")
	ts := time.Unix(1_700_000_000, 0).UTC()
	samples := make([]detector.Sample, 0, n)
	for i := 0; i < n; i++ {
		ts = ts.Add(time.Duration(rapid.Int64Range(0, 7200).Draw(t, "gap_sec")) * time.Second)
		samples = append(samples, detector.Sample{
			Title:     titles[rapid.IntRange(0, len(titles)-1).Draw(t, "title_idx")],
			Timestamp: ts,
		})
	}
	return samples
}

// Property: identical streams yield identical sessionization.
func TestDetectorDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		samples := generateStream(t)

		first, _ := detector.New(detector.DefaultConfig()).ProcessAll(samples)
		second, _ := detector.New(detector.DefaultConfig()).ProcessAll(samples)

		if len(first) != len(second) {
			t.Fatalf("session counts differ: %d vs %d", len(first), len(second))
		}
		for i := range first {
			if first[i].ID != second[i].ID {
				t.Fatalf("session %d id differs: %s vs %s", i, first[i].ID, second[i].ID)
			}
			if len(first[i].Events) != len(second[i].Events) {
				t.Fatalf("session %d event counts differ", i)
			}
			if first[i].Confidence != second[i].Confidence {
				t.Fatalf("session %d confidence differs", i)
			}
		}
	})
}

// Property: every emitted session is well-formed — non-empty, confidence in
// [0,1], ordered events, and session starts never go backwards.
func TestSessionInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		samples := generateStream(t)
		sessions, _ := detector.New(detector.DefaultConfig()).ProcessAll(samples)

		for i, s := range sessions {
			if len(s.Events) == 0 {
				t.Fatalf("session %d has no events", i)
			}
			if s.Confidence < 0 || s.Confidence > 1 {
				t.Fatalf("session %d confidence %v out of range", i, s.Confidence)
			}
			if s.EndTime.Before(s.StartTime) {
				t.Fatalf("session %d ends before it starts", i)
			}
			for j := 1; j < len(s.Events); j++ {
				if s.Events[j].Timestamp.Before(s.Events[j-1].Timestamp) {
					t.Fatalf("session %d events out of order", i)
				}
			}
			if i > 0 && s.StartTime.Before(sessions[i-1].StartTime) {
				t.Fatalf("session %d starts before session %d", i, i-1)
			}
		}
	})
}

// Property: statistics are a pure read over detector state.
func TestStatisticsPure(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := detector.New(detector.DefaultConfig())
		_, stats := d.ProcessAll(generateStream(t))

		again := d.Statistics()
		if stats.SessionCount != again.SessionCount ||
			stats.AvgDurationMin != again.AvgDurationMin ||
			stats.AvgEventsPerTask != again.AvgEventsPerTask ||
			stats.CurrentThreshold != again.CurrentThreshold {
			t.Fatalf("statistics changed without new events:\n%+v\n%+v", stats, again)
		}
	})
}
