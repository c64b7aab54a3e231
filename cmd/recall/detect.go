package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/recall/internal/capture"
	"github.com/fentz26/recall/internal/config"
	"github.com/fentz26/recall/internal/detector"
	"github.com/fentz26/recall/internal/source"
	"github.com/fentz26/recall/internal/store"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run boundary detection over the capture database once",
	Long:  `Reads window events from the capture database, segments them into task sessions, and stores the result. Does not require the daemon.`,
	RunE:  runDetect,
}

var (
	detectSource string
	detectSince  string
	detectLimit  int
	detectSave   bool
)

func init() {
	detectCmd.Flags().StringVar(&detectSource, "source", "", "Path to the capture database (default: auto-detect)")
	detectCmd.Flags().StringVar(&detectSince, "since", "", "Only events after this time (RFC3339, default: 24h ago)")
	detectCmd.Flags().IntVar(&detectLimit, "limit", 5000, "Maximum number of events to read")
	detectCmd.Flags().BoolVar(&detectSave, "save", false, "Persist detected sessions to the Recall database")
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromHome()
	if err != nil {
		return err
	}

	srcPath := detectSource
	if srcPath == "" {
		srcPath = cfg.SourceDBPath
	}
	if srcPath == "" {
		det := capture.NewDetector()
		det.Scan()
		path, ok := det.DefaultDatabasePath()
		if !ok {
			return fmt.Errorf("no capture database found; pass --source")
		}
		srcPath = path
	}

	since := time.Now().Add(-24 * time.Hour)
	if detectSince != "" {
		since, err = time.Parse(time.RFC3339, detectSince)
		if err != nil {
			return fmt.Errorf("invalid --since value %q: %w", detectSince, err)
		}
	}

	reader, err := source.Open(srcPath)
	if err != nil {
		return err
	}
	defer reader.Close()

	events, err := reader.EventsSince(context.Background(), since, detectLimit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("No window events found.")
		return nil
	}

	samples := make([]detector.Sample, len(events))
	for i, ev := range events {
		samples[i] = detector.Sample{Title: ev.Title, Timestamp: ev.Timestamp}
	}

	d := detector.New(cfg.Detector)
	sessions, stats := d.ProcessAll(samples)

	fmt.Printf("Processed %d events into %d sessions.\n\n", len(events), len(sessions))

	lowConfidence := 0
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "START\tDURATION\tEVENTS\tCONFIDENCE\tPRIMARY WINDOW")
	for _, s := range sessions {
		mark := ""
		if s.Confidence < cfg.Detector.ConfidenceMinimum {
			mark = " *"
			lowConfidence++
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.0f%%%s\t%s\n",
			s.StartTime.Local().Format("2006-01-02 15:04"),
			formatSeconds(s.TotalDuration),
			len(s.Events),
			s.Confidence*100,
			mark,
			truncateTitle(s.PrimaryWindow, 50),
		)
	}
	w.Flush()
	if lowConfidence > 0 {
		fmt.Printf("\n* %d session(s) below the %.0f%% confidence floor\n",
			lowConfidence, cfg.Detector.ConfidenceMinimum*100)
	}

	if stats.SessionCount > 0 {
		fmt.Printf("\nAvg duration: %.1f min  Avg events/task: %.1f  Threshold: %.2f\n",
			stats.AvgDurationMin, stats.AvgEventsPerTask, stats.CurrentThreshold)
	}

	if !detectSave {
		return nil
	}

	s, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	for i := range sessions {
		if err := s.SaveSession(&sessions[i]); err != nil {
			log.Printf("Error saving session %s: %v", sessions[i].ID, err)
		}
	}
	fmt.Printf("\nSaved %d sessions to %s\n", len(sessions), cfg.DBPath)
	return nil
}
