package server

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cwbudde/ransacfit/internal/models"
	"github.com/cwbudde/ransacfit/internal/ransac"
	"github.com/cwbudde/ransacfit/internal/store"
	"github.com/google/uuid"
)

// JobState represents the current state of a job
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

// Terminal reports whether the state is final.
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// JobConfig is the request body of a new job.
type JobConfig struct {
	Model      string  `json:"model"`
	DataPath   string  `json:"dataPath"`
	Trials     int     `json:"trials"`
	MaxError   float64 `json:"maxError"`
	MinInliers int     `json:"minInliers"`
	Seed       int64   `json:"seed"`
	Workers    int     `json:"workers,omitempty"`
	Refine     bool    `json:"refine,omitempty"`
	Trace      bool    `json:"trace,omitempty"`
}

// Validate fills defaults and rejects unusable configurations.
func (c *JobConfig) Validate() error {
	if c.DataPath == "" {
		return fmt.Errorf("dataPath is required")
	}
	if c.Model == "" {
		c.Model = "line"
	}
	if _, err := models.Lookup(c.Model); err != nil {
		return err
	}
	if c.Trials <= 0 {
		c.Trials = 1000
	}
	if !(c.MaxError > 0) {
		return fmt.Errorf("maxError must be positive")
	}
	if c.MinInliers < 0 {
		return fmt.Errorf("minInliers cannot be negative")
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return nil
}

// RunConfig converts the job config to its persisted form.
func (c JobConfig) RunConfig() store.RunConfig {
	return store.RunConfig{
		Model:      c.Model,
		DataPath:   c.DataPath,
		Trials:     c.Trials,
		MaxError:   c.MaxError,
		MinInliers: c.MinInliers,
		Seed:       c.Seed,
		Workers:    c.Workers,
		Refine:     c.Refine,
	}
}

// Job represents a fit job
type Job struct {
	ID         string     `json:"id"`
	State      JobState   `json:"state"`
	Config     JobConfig  `json:"config"`
	Params     []float64  `json:"params,omitempty"`
	Inliers    int        `json:"inliers"`
	Points     int        `json:"points"`
	Cost       float64    `json:"cost"`
	TrialsDone int        `json:"trialsDone"`
	Refined    bool       `json:"refined,omitempty"`
	StartTime  time.Time  `json:"startTime"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	Error      string     `json:"error,omitempty"`

	// Kept for the inliers endpoint once the job has finished.
	data ransac.Dataset
	mask []bool

	cancel context.CancelFunc
}

// JobManager manages the lifecycle of jobs
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	broadcaster *EventBroadcaster
}

// NewJobManager creates a new JobManager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:        make(map[string]*Job),
		broadcaster: NewEventBroadcaster(),
	}
}

// CreateJob registers a pending job with the given configuration
func (jm *JobManager) CreateJob(config JobConfig) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job := &Job{
		ID:        uuid.New().String(),
		State:     StatePending,
		Config:    config,
		StartTime: time.Now(),
	}

	jm.jobs[job.ID] = job
	snapshot := *job
	return &snapshot
}

// GetJob returns a snapshot of a job
func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, exists := jm.jobs[id]
	if !exists {
		return nil, false
	}
	snapshot := *job
	return &snapshot, true
}

// ListJobs returns snapshots of all jobs, oldest first
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	jobs := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		snapshot := *job
		jobs = append(jobs, &snapshot)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].StartTime.Before(jobs[j].StartTime)
	})
	return jobs
}

// UpdateJob atomically updates a job using the provided function
func (jm *JobManager) UpdateJob(id string, updateFn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	updateFn(job)
	return nil
}

// CancelJob stops a pending or running job. It reports false for unknown
// jobs and jobs that have already finished.
func (jm *JobManager) CancelJob(id string) bool {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, exists := jm.jobs[id]
	if !exists || job.State.Terminal() {
		return false
	}
	if job.cancel != nil {
		job.cancel()
	}
	return true
}

// GetRunningJobs returns all jobs currently in the running state
func (jm *JobManager) GetRunningJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	runningJobs := make([]*Job, 0)
	for _, job := range jm.jobs {
		if job.State == StateRunning {
			snapshot := *job
			runningJobs = append(runningJobs, &snapshot)
		}
	}
	return runningJobs
}

// RemoveJob forgets a finished job and drops its cached events
func (jm *JobManager) RemoveJob(id string) bool {
	jm.mu.Lock()
	job, exists := jm.jobs[id]
	if !exists || !job.State.Terminal() {
		jm.mu.Unlock()
		return false
	}
	delete(jm.jobs, id)
	jm.mu.Unlock()

	jm.broadcaster.CleanupJob(id)
	return true
}
