// Package main implements the syncctl CLI for driving a syncd server.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/xiaethan/sync/internal/orchestrator"
	"github.com/xiaethan/sync/internal/schedule"
	"github.com/xiaethan/sync/internal/server"
)

var (
	// serverURL is the base URL for the syncd HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "syncctl",
	Short: "CLI for syncd availability sessions",
	Long: `syncctl is a command-line interface for the syncd HTTP server.
It starts and stops collection sessions, reports consensus status, and
exports the winning window as a calendar file.`,
	Version: version,
}

var startTitle string

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8790", "syncd server URL")
	startCmd.Flags().StringVar(&startTitle, "title", "", "session title")
	exportCmd.Flags().String("date", "", "event date (YYYY-MM-DD, default today)")
	exportCmd.Flags().StringP("output", "o", "", "write .ics to file instead of stdout")
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(healthCmd)
}

var startCmd = &cobra.Command{
	Use:   "start <scope>",
	Short: "Start a collection session for a scope",
	Long: `Start a new availability-collection session for a chat scope.

Examples:
  # Start collecting in #general
  syncctl start general --title "Friday plans"`,
	Args: cobra.ExactArgs(1),
	RunE: runStart,
}

var statusCmd = &cobra.Command{
	Use:   "status <scope>",
	Short: "Show the latest consensus for a scope",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var stopCmd = &cobra.Command{
	Use:   "stop <scope>",
	Short: "Stop a session and print the final consensus",
	Args:  cobra.ExactArgs(1),
	RunE:  runStop,
}

var exportCmd = &cobra.Command{
	Use:   "export <scope>",
	Short: "Export the top consensus window as an iCalendar file",
	Long: `Export the best consensus window as an .ics payload.

Examples:
  # Print to stdout
  syncctl export general

  # Save for a specific day
  syncctl export general --date 2026-09-04 -o friday.ics`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check syncd server health",
	RunE:  runHealth,
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// postJSON sends body to path and decodes the response into out.
func postJSON(path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(http.MethodPost, serverURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", serverURL+path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func getJSON(path string, out any) error {
	resp, err := httpClient().Get(serverURL + path)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", serverURL+path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return json.Unmarshal(respBody, out)
}

func runStart(cmd *cobra.Command, args []string) error {
	var sess struct {
		ID    string `json:"id"`
		Scope string `json:"scope"`
	}
	err := postJSON("/api/v1/sessions", server.StartRequest{Scope: args[0], Title: startTitle}, &sess)
	if err != nil {
		return err
	}
	fmt.Printf("Session %s started for scope %q\n", sess.ID, sess.Scope)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	var status orchestrator.Status
	if err := getJSON("/api/v1/sessions/"+url.PathEscape(args[0]), &status); err != nil {
		return err
	}

	if status.Collecting {
		fmt.Println("Still collecting; no aggregation has completed yet.")
		return nil
	}
	printResult(*status.Result)
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	var final orchestrator.FinalResult
	if err := postJSON("/api/v1/sessions/"+url.PathEscape(args[0])+"/stop", nil, &final); err != nil {
		return err
	}
	if !final.Completed {
		fmt.Println("Session stopped before any aggregation completed.")
		return nil
	}
	fmt.Println("Session stopped. Final consensus:")
	printResult(final.Result)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	path := "/api/v1/sessions/" + url.PathEscape(args[0]) + "/export"
	if date, _ := cmd.Flags().GetString("date"); date != "" {
		path += "?date=" + url.QueryEscape(date)
	}

	resp, err := httpClient().Get(serverURL + path)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", serverURL+path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	if output, _ := cmd.Flags().GetString("output"); output != "" {
		if err := os.WriteFile(output, body, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", output, err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", output)
		return nil
	}
	fmt.Print(string(body))
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	var health server.HealthResponse
	if err := getJSON("/health", &health); err != nil {
		return err
	}
	fmt.Printf("Server Status: %s\n", health.Status)
	return nil
}

// printResult renders an aggregation result for terminal reading.
func printResult(result schedule.AggregationResult) {
	if len(result.Windows) == 0 {
		fmt.Printf("No overlapping windows found across %d participant(s).\n", result.TotalParticipants)
		return
	}

	fmt.Printf("Consensus windows (%d participant(s) total):\n", result.TotalParticipants)
	for i, w := range result.Windows {
		fmt.Printf("  %d. %s-%s  %d/%d participants (%.0f%%)",
			i+1, w.Start, w.End, len(w.ParticipantIDs), result.TotalParticipants, w.Confidence*100)
		if w.Location != "" {
			fmt.Printf("  @ %s", w.Location)
		}
		fmt.Println()
		for _, name := range w.ParticipantNames {
			fmt.Printf("     - %s\n", name)
		}
	}

	if len(result.Locations) > 0 {
		fmt.Println("Locations:")
		for _, l := range result.Locations {
			fmt.Printf("  %s  %d participant(s) (%.0f%%)\n",
				l.Name, len(l.ParticipantIDs), l.Confidence*100)
		}
	}
}
