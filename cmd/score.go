package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cwbudde/ransacfit/internal/export"
	"github.com/cwbudde/ransacfit/internal/models"
	"github.com/cwbudde/ransacfit/internal/ransac"
	"github.com/cwbudde/ransacfit/internal/store"
)

var (
	scoreDataPath    string
	scoreDataDir     string
	scoreMaxError    float64
	scoreInliersPath string
)

var scoreCmd = &cobra.Command{
	Use:   "score [job-id]",
	Short: "Score a stored model against a data set",
	Long: `Loads the model of a saved result and counts its inliers in --data
without running a new search. The threshold defaults to the one the
model was fitted with.`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().StringVar(&scoreDataPath, "data", "", "Data file (default stdin)")
	scoreCmd.Flags().StringVar(&scoreDataDir, "data-dir", "./data", "Result store directory")
	scoreCmd.Flags().Float64Var(&scoreMaxError, "max-error", 0, "Inlier threshold (0 = the stored one)")
	scoreCmd.Flags().StringVar(&scoreInliersPath, "inliers", "", "Write inlier points to this file")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	resultStore, err := store.NewFSStore(scoreDataDir)
	if err != nil {
		return fmt.Errorf("failed to create result store: %w", err)
	}

	record, err := resultStore.LoadResult(args[0])
	if err != nil {
		return err
	}

	sc, err := scoreRecord(record, scoreDataPath, scoreMaxError)
	if err != nil {
		return err
	}

	if err := printScore(cmd.OutOrStdout(), sc); err != nil {
		return err
	}
	if scoreInliersPath != "" {
		return export.WriteInliersFile(scoreInliersPath, sc.data, sc.mask)
	}
	return nil
}

// scoreResult is a stored model scored on a data set.
type scoreResult struct {
	data  ransac.Dataset
	mask  []bool
	count int

	// Set when the data has as many points as the stored fit: how many of
	// the stored consensus points are still inliers.
	compared bool
	stored   int
	kept     int
}

// scoreRecord rescores a stored model on the data at path.
func scoreRecord(record *store.Record, path string, threshold float64) (*scoreResult, error) {
	if !record.Found() {
		return nil, fmt.Errorf("result %s holds no model", record.JobID)
	}

	spec, err := models.Lookup(record.Model)
	if err != nil {
		return nil, err
	}
	if err := record.IsCompatible(spec.Name, spec.ModelDim); err != nil {
		return nil, err
	}

	if threshold == 0 {
		threshold = record.Config.MaxError
	}

	ds, err := loadData(path, spec.DataDim)
	if err != nil {
		return nil, err
	}

	mask, count, err := ransac.Score(ds, record.Params, threshold, spec.Model)
	if err != nil {
		return nil, err
	}
	sc := &scoreResult{data: ds, mask: mask, count: count}

	if record.Points == ds.Len() {
		stored, err := record.Mask()
		if err != nil {
			return nil, fmt.Errorf("result %s: %w", record.JobID, err)
		}
		sc.compared = true
		for i, in := range stored {
			if in {
				sc.stored++
				if mask[i] {
					sc.kept++
				}
			}
		}
	}

	slog.Info("Scored stored model", "job_id", record.JobID, "model", spec.Name, "inliers", count, "points", ds.Len(), "max_error", threshold)
	return sc, nil
}

func printScore(w io.Writer, sc *scoreResult) error {
	if _, err := fmt.Fprintf(w, "%d of %d points are inliers\n", sc.count, sc.data.Len()); err != nil {
		return err
	}
	if !sc.compared {
		return nil
	}
	_, err := fmt.Fprintf(w, "%d of %d stored inliers are still inliers\n", sc.kept, sc.stored)
	return err
}
