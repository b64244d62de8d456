package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cwbudde/ransacfit/internal/config"
	"github.com/cwbudde/ransacfit/internal/export"
	"github.com/cwbudde/ransacfit/internal/fit"
	"github.com/cwbudde/ransacfit/internal/models"
	"github.com/cwbudde/ransacfit/internal/ransac"
	"github.com/cwbudde/ransacfit/internal/store"
)

var (
	modelName   string
	trials      int
	maxError    float64
	minInliers  int
	dataPath    string
	inliersPath string
	geojsonPath string
	seed        int64
	workers     int
	refine      bool
	saveRecord  bool
	runDataDir  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fit a model to a data set",
	Long: `Reads whitespace-separated numbers from --data (or stdin), groups them into
points of the model's dimension and runs the consensus search.`,
	Example: `  ransacfit run --model line --trials 100 --max-error 0.1 --min-inliers 3 < points.txt
  ransacfit run --model hom --data pairs.txt --inliers inliers.txt --workers 4`,
	RunE: runFit,
}

func init() {
	d := config.Default()
	runCmd.Flags().StringVar(&modelName, "model", d.Run.Model, "Model family (see 'ransacfit models')")
	runCmd.Flags().IntVar(&trials, "trials", d.Run.Trials, "Number of trials")
	runCmd.Flags().Float64Var(&maxError, "max-error", d.Run.MaxError, "Inlier threshold (errors strictly below count)")
	runCmd.Flags().IntVar(&minInliers, "min-inliers", d.Run.MinInliers, "Minimum inliers for a candidate to count")
	runCmd.Flags().StringVar(&dataPath, "data", "", "Data file (default stdin)")
	runCmd.Flags().StringVar(&inliersPath, "inliers", "", "Write inlier points to this file")
	runCmd.Flags().StringVar(&geojsonPath, "geojson", "", "Write points and model as GeoJSON (2-D data only)")
	runCmd.Flags().Int64Var(&seed, "seed", d.Run.Seed, "Random seed")
	runCmd.Flags().IntVar(&workers, "workers", d.Run.Workers, "Parallel workers")
	runCmd.Flags().BoolVar(&refine, "refine", d.Run.Refine, "Polish the winning model")
	runCmd.Flags().BoolVar(&saveRecord, "save", false, "Store the result under --data-dir")
	runCmd.Flags().StringVar(&runDataDir, "data-dir", d.Server.DataDir, "Result store directory")

	rootCmd.AddCommand(runCmd)
}

// runSettings merges the file configuration with explicitly set flags.
func runSettings(cmd *cobra.Command, file config.RunConfig) config.RunConfig {
	rc := file
	flags := cmd.Flags()
	if flags.Changed("model") {
		rc.Model = modelName
	}
	if flags.Changed("trials") {
		rc.Trials = trials
	}
	if flags.Changed("max-error") {
		rc.MaxError = maxError
	}
	if flags.Changed("min-inliers") {
		rc.MinInliers = minInliers
	}
	if flags.Changed("seed") {
		rc.Seed = seed
	}
	if flags.Changed("workers") {
		rc.Workers = workers
	}
	if flags.Changed("refine") {
		rc.Refine = refine
	}
	return rc
}

func runFit(cmd *cobra.Command, args []string) error {
	rc := runSettings(cmd, cfg.Run)

	dataDir := cfg.Server.DataDir
	if cmd.Flags().Changed("data-dir") {
		dataDir = runDataDir
	}

	spec, err := models.Lookup(rc.Model)
	if err != nil {
		return err
	}

	ds, err := loadData(dataPath, spec.DataDim)
	if err != nil {
		return err
	}
	slog.Info("Loaded data", "model", spec.Name, "points", ds.Len(), "dim", ds.Dim)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	res, err := fit.Fit(ctx, ds, spec, fitOptions(rc))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("interrupted")
		}
		return err
	}

	slog.Info("Fit complete",
		"elapsed", time.Since(start),
		"found", res.Found(),
		"best_inliers", res.Inliers,
		"best_trial", res.BestTrial,
		"accepted", res.Accepted,
		"refined", res.Refined,
	)

	if err := report(cmd.OutOrStdout(), res); err != nil {
		return err
	}

	if res.Found() {
		if inliersPath != "" {
			if err := export.WriteInliersFile(inliersPath, ds, res.Mask); err != nil {
				return err
			}
		}
		if geojsonPath != "" {
			if err := export.WriteGeoJSONFile(geojsonPath, ds, res.Mask, spec.Name, res.Model); err != nil {
				return err
			}
		}
	}

	if saveRecord {
		jobID, err := saveRun(dataDir, rc, dataPath, ds.Len(), res)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved as %s\n", jobID)
	}
	return nil
}

func fitOptions(rc config.RunConfig) fit.Options {
	opts := fit.Options{
		Trials:     rc.Trials,
		MinInliers: rc.MinInliers,
		MaxError:   rc.MaxError,
		Seed:       rc.Seed,
		Workers:    rc.Workers,
		Refine:     fit.DefaultRefineOptions(),
	}
	opts.Refine.Enabled = rc.Refine
	return opts
}

// loadData reads a file, or stdin when path is empty.
func loadData(path string, dim int) (ransac.Dataset, error) {
	if path == "" {
		return fit.LoadDataset(os.Stdin, dim)
	}
	return fit.LoadFile(path, dim)
}

// report prints the outcome in the classic two-line form.
func report(w io.Writer, res *fit.Result) error {
	if !res.Found() {
		_, err := fmt.Fprintln(w, "RANSAC found no model")
		return err
	}
	if _, err := fmt.Fprintf(w, "RANSAC found a model with %d inliers\n", res.Inliers); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "parameters = %s\n", formatParams(res.Model))
	return err
}

func formatParams(params []float64) string {
	fields := make([]string, len(params))
	for i, p := range params {
		fields[i] = strconv.FormatFloat(p, 'g', -1, 64)
	}
	return strings.Join(fields, " ")
}

func saveRun(dataDir string, rc config.RunConfig, dataPath string, points int, res *fit.Result) (string, error) {
	resultStore, err := store.NewFSStore(dataDir)
	if err != nil {
		return "", fmt.Errorf("failed to create result store: %w", err)
	}

	jobID := uuid.New().String()
	record, err := store.NewRecord(jobID, res.Model, res.Mask, res.Cost, res.Trials, store.RunConfig{
		Model:      rc.Model,
		DataPath:   dataPath,
		Trials:     rc.Trials,
		MaxError:   rc.MaxError,
		MinInliers: rc.MinInliers,
		Seed:       rc.Seed,
		Workers:    rc.Workers,
		Refine:     rc.Refine,
	})
	if err != nil {
		return "", err
	}
	record.Points = points
	if err := resultStore.SaveResult(jobID, record); err != nil {
		return "", err
	}
	return jobID, nil
}
