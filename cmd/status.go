package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

// jobStatus mirrors the fields of the status endpoint that are printed.
type jobStatus struct {
	ID         string    `json:"id"`
	State      string    `json:"state"`
	Params     []float64 `json:"params"`
	Inliers    int       `json:"inliers"`
	Points     int       `json:"points"`
	Cost       float64   `json:"cost"`
	TrialsDone int       `json:"trialsDone"`
	Refined    bool      `json:"refined"`
	Elapsed    float64   `json:"elapsed"`
	TPS        float64   `json:"trialsPerSecond"`
	Error      string    `json:"error"`
	Config     struct {
		Model      string  `json:"model"`
		DataPath   string  `json:"dataPath"`
		Trials     int     `json:"trials"`
		MaxError   float64 `json:"maxError"`
		MinInliers int     `json:"minInliers"`
		Workers    int     `json:"workers"`
	} `json:"config"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		return listJobs(out, fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}
	jobID := args[0]
	return getJobStatus(out, fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

func fetchJSON(url string, v interface{}) (int, error) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("server returned error: %s", string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

func listJobs(out io.Writer, url string) error {
	var jobs []jobStatus
	if _, err := fetchJSON(url, &jobs); err != nil {
		return err
	}

	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs found")
		return nil
	}

	fmt.Fprintf(out, "Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Fprintf(out, "Job ID: %s\n", job.ID)
		fmt.Fprintf(out, "  State: %s\n", job.State)
		fmt.Fprintf(out, "  Model: %s\n", job.Config.Model)
		fmt.Fprintf(out, "  Data: %s\n", job.Config.DataPath)
		if job.Inliers > 0 {
			fmt.Fprintf(out, "  Inliers: %d / %d\n", job.Inliers, job.Points)
		}
		fmt.Fprintln(out)
	}

	return nil
}

func getJobStatus(out io.Writer, url, jobID string) error {
	var status jobStatus
	code, err := fetchJSON(url, &status)
	if code == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Job: %s\n", status.ID)
	fmt.Fprintf(out, "State: %s\n", status.State)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintf(out, "  Model: %s\n", status.Config.Model)
	fmt.Fprintf(out, "  Data: %s\n", status.Config.DataPath)
	fmt.Fprintf(out, "  Trials: %d\n", status.Config.Trials)
	fmt.Fprintf(out, "  Max error: %g\n", status.Config.MaxError)
	fmt.Fprintf(out, "  Min inliers: %d\n", status.Config.MinInliers)
	fmt.Fprintf(out, "  Workers: %d\n", status.Config.Workers)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Progress:")
	fmt.Fprintf(out, "  Trials done: %d\n", status.TrialsDone)
	if status.Inliers > 0 {
		fmt.Fprintf(out, "  Inliers: %d / %d\n", status.Inliers, status.Points)
		fmt.Fprintf(out, "  Parameters: %s\n", formatParams(status.Params))
		fmt.Fprintf(out, "  Cost: %.6g\n", status.Cost)
		if status.Refined {
			fmt.Fprintln(out, "  Refined: yes")
		}
	}

	elapsed := time.Duration(status.Elapsed * float64(time.Second))
	fmt.Fprintf(out, "  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	if status.TPS > 0 {
		fmt.Fprintf(out, "  Throughput: %.0f trials/sec\n", status.TPS)
	}

	if status.Error != "" {
		fmt.Fprintf(out, "\nError: %s\n", status.Error)
	}

	return nil
}
