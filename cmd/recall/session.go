package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/recall/internal/models"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect detected task sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent task sessions",
	RunE:  runSessionList,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Show session details and events",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionShow,
}

var (
	sessionLimit int
	sessionSince string
)

func init() {
	sessionCmd.AddCommand(sessionListCmd, sessionShowCmd)

	sessionListCmd.Flags().IntVar(&sessionLimit, "limit", 20, "Maximum number of sessions to list")
	sessionListCmd.Flags().StringVar(&sessionSince, "since", "", "Only sessions starting after this time (RFC3339)")
}

func runSessionList(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("/sessions?limit=%d", sessionLimit)
	if sessionSince != "" {
		if _, err := time.Parse(time.RFC3339, sessionSince); err != nil {
			return fmt.Errorf("invalid --since value %q: %w", sessionSince, err)
		}
		url += "&since=" + sessionSince
	}

	resp, err := apiGet(url)
	if err != nil {
		return err
	}

	var sessions []models.TaskSession
	if err := json.Unmarshal(resp, &sessions); err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTART\tDURATION\tCONFIDENCE\tPRIMARY WINDOW")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f%%\t%s\n",
			s.ID,
			s.StartTime.Local().Format("2006-01-02 15:04"),
			formatSeconds(s.TotalDuration),
			s.Confidence*100,
			truncateTitle(s.PrimaryWindow, 50),
		)
	}
	return w.Flush()
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/sessions/" + args[0])
	if err != nil {
		return err
	}

	var s models.TaskSession
	if err := json.Unmarshal(resp, &s); err != nil {
		return err
	}

	fmt.Printf("Session:    %s\n", s.ID)
	fmt.Printf("Primary:    %s\n", s.PrimaryWindow)
	fmt.Printf("Start:      %s\n", s.StartTime.Local().Format(time.RFC3339))
	fmt.Printf("End:        %s\n", s.EndTime.Local().Format(time.RFC3339))
	fmt.Printf("Duration:   %s\n", formatSeconds(s.TotalDuration))
	fmt.Printf("Confidence: %.0f%%\n", s.Confidence*100)

	evResp, err := apiGet("/sessions/" + args[0] + "/events")
	if err != nil {
		return err
	}
	var events []models.WindowEvent
	if err := json.Unmarshal(evResp, &events); err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}
	fmt.Printf("\nEvents (%d):\n", len(events))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, ev := range events {
		fmt.Fprintf(w, "  %s\t%s\t%s\n",
			ev.Timestamp.Local().Format("15:04:05"),
			ev.AppName,
			truncateTitle(ev.WindowTitle, 60),
		)
	}
	return w.Flush()
}

func formatSeconds(sec float64) string {
	d := time.Duration(sec) * time.Second
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}

func truncateTitle(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
