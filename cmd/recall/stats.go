package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/recall/internal/api"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate session statistics",
	RunE:  runStats,
}

var statsSince string

func init() {
	statsCmd.Flags().StringVar(&statsSince, "since", "", "Only count sessions starting after this time (RFC3339)")
}

func runStats(cmd *cobra.Command, args []string) error {
	url := "/stats"
	if statsSince != "" {
		if _, err := time.Parse(time.RFC3339, statsSince); err != nil {
			return fmt.Errorf("invalid --since value %q: %w", statsSince, err)
		}
		url += "?since=" + statsSince
	}

	resp, err := apiGet(url)
	if err != nil {
		return err
	}

	var report api.StatsReport
	if err := json.Unmarshal(resp, &report); err != nil {
		return err
	}

	fmt.Printf("Sessions:        %d\n", report.Store.SessionCount)
	fmt.Printf("Total tracked:   %s\n", formatSeconds(report.Store.TotalDurationSec))
	fmt.Printf("Avg duration:    %.1f min\n", report.Store.AvgDurationMin)
	fmt.Printf("Avg events/task: %.1f\n", report.Store.AvgEventsPerTask)
	if len(report.Store.TopPrimaryWindows) > 0 {
		fmt.Printf("Top windows:\n")
		for _, win := range report.Store.TopPrimaryWindows {
			fmt.Printf("  - %s\n", truncateTitle(win, 70))
		}
	}
	if len(report.Detector.CommonTransitions) > 0 {
		fmt.Printf("Common transitions:\n")
		for _, tr := range report.Detector.CommonTransitions {
			fmt.Printf("  - %s\n", tr)
		}
	}
	if report.Detector.CurrentThreshold > 0 {
		fmt.Printf("Boundary threshold: %.2f\n", report.Detector.CurrentThreshold)
	}
	if len(report.Pipeline) > 0 {
		fmt.Printf("Pipeline: %s\n", formatPipeline(report.Pipeline))
	}
	return nil
}

func formatPipeline(stats map[string]interface{}) string {
	var parts []string
	for _, k := range []string{"events_seen", "sessions_closed", "last_poll"} {
		if v, ok := stats[k]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
	}
	return strings.Join(parts, " ")
}
