package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cwbudde/ransacfit/internal/fit"
	"github.com/cwbudde/ransacfit/internal/models"
	"github.com/cwbudde/ransacfit/internal/ransac"
	"github.com/cwbudde/ransacfit/internal/store"
)

// progress is written by the engine observer and read by monitorProgress.
type progress struct {
	trials atomic.Int64
	best   atomic.Int64
}

func (p *progress) observe(ev ransac.TrialEvent) {
	p.trials.Add(1)
	for {
		cur := p.best.Load()
		if int64(ev.Best) <= cur || p.best.CompareAndSwap(cur, int64(ev.Best)) {
			return
		}
	}
}

// runJob executes a fit job. The result record is saved to resultStore when
// it is not nil; a trial trace is written under traceDir when the job asks
// for one and traceDir is set.
func runJob(ctx context.Context, jm *JobManager, resultStore store.Store, traceDir, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	}); err != nil {
		return err
	}

	cfg := job.Config
	slog.Info("Starting job", "job_id", jobID, "model", cfg.Model, "data", cfg.DataPath)

	spec, err := models.Lookup(cfg.Model)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	ds, err := fit.LoadFile(cfg.DataPath, spec.DataDim)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}
	if err := jm.UpdateJob(jobID, func(j *Job) {
		j.Points = ds.Len()
	}); err != nil {
		return err
	}

	slog.Info("Loaded data", "job_id", jobID, "points", ds.Len(), "dim", ds.Dim)

	var prog progress
	observers := []func(ransac.TrialEvent){prog.observe}

	if cfg.Trace && traceDir != "" {
		tw, err := store.NewTraceWriter(traceDir, jobID)
		if err != nil {
			slog.Warn("Tracing disabled", "job_id", jobID, "error", err)
		} else {
			defer func() {
				if err := tw.Close(); err != nil {
					slog.Warn("Failed to close trace", "job_id", jobID, "error", err)
				}
			}()
			observers = append(observers, tw.Observe)
		}
	}

	opts := fit.Options{
		Trials:     cfg.Trials,
		MinInliers: cfg.MinInliers,
		MaxError:   cfg.MaxError,
		Seed:       cfg.Seed,
		Workers:    cfg.Workers,
		Refine:     fit.DefaultRefineOptions(),
		OnTrial: func(ev ransac.TrialEvent) {
			for _, observe := range observers {
				observe(ev)
			}
		},
	}
	opts.Refine.Enabled = cfg.Refine

	start := time.Now()
	progressDone := make(chan struct{})
	monitorExited := make(chan struct{})
	go func() {
		defer close(monitorExited)
		monitorProgress(ctx, jm, jobID, start, &prog, progressDone)
	}()

	res, err := fit.Fit(ctx, ds, spec, opts)
	close(progressDone)
	<-monitorExited
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			markJobCancelled(jm, jobID)
			return context.Canceled
		}
		markJobFailed(jm, jobID, err)
		return err
	}

	endTime := time.Now()
	if err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Params = res.Model
		j.Inliers = res.Inliers
		j.Cost = res.Cost
		j.TrialsDone = res.Trials
		j.Refined = res.Refined
		j.EndTime = &endTime
		j.data = ds
		j.mask = res.Mask
	}); err != nil {
		return err
	}

	if resultStore != nil {
		if err := saveResult(resultStore, jobID, cfg, ds.Len(), res); err != nil {
			slog.Error("Failed to save result", "job_id", jobID, "error", err)
		}
	}

	tps := float64(res.Trials) / elapsed.Seconds()
	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"found", res.Found(),
		"best_inliers", res.Inliers,
		"trials_per_second", tps,
	)

	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:           jobID,
		State:           StateCompleted,
		TrialsDone:      res.Trials,
		Trials:          cfg.Trials,
		BestInliers:     res.Inliers,
		TrialsPerSecond: tps,
		Timestamp:       time.Now(),
	})

	return nil
}

func saveResult(resultStore store.Store, jobID string, cfg JobConfig, points int, res *fit.Result) error {
	record, err := store.NewRecord(jobID, res.Model, res.Mask, res.Cost, res.Trials, cfg.RunConfig())
	if err != nil {
		return err
	}
	// Without a model there is no mask to count the points from.
	record.Points = points
	if err := resultStore.SaveResult(jobID, record); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	slog.Info("Result saved", "job_id", jobID, "best_inliers", record.Inliers)
	return nil
}

// monitorProgress broadcasts progress events, at most two per second,
// until done is closed.
func monitorProgress(ctx context.Context, jm *JobManager, jobID string, startTime time.Time, prog *progress, done chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			trials := int(prog.trials.Load())
			best := int(prog.best.Load())

			var job Job
			if err := jm.UpdateJob(jobID, func(j *Job) {
				j.TrialsDone = trials
				j.Inliers = best
				job = *j
			}); err != nil {
				return
			}

			var tps float64
			if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
				tps = float64(trials) / elapsed
			}

			jm.broadcaster.Broadcast(ProgressEvent{
				JobID:           jobID,
				State:           job.State,
				TrialsDone:      trials,
				Trials:          job.Config.Trials,
				BestInliers:     best,
				TrialsPerSecond: tps,
				Timestamp:       time.Now(),
			})
		}
	}
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)

	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:     jobID,
		State:     StateFailed,
		Error:     err.Error(),
		Timestamp: endTime,
	})
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)

	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:     jobID,
		State:     StateCancelled,
		Timestamp: endTime,
	})
}
