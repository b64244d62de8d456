package store

import (
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
)

// RunConfig is the configuration a result was produced with.
// It mirrors the server's job config to avoid an import cycle.
type RunConfig struct {
	Model      string  `json:"model"`
	DataPath   string  `json:"dataPath"`
	Trials     int     `json:"trials"`
	MaxError   float64 `json:"maxError"`
	MinInliers int     `json:"minInliers"`
	Seed       int64   `json:"seed"`
	Workers    int     `json:"workers,omitempty"`
	Refine     bool    `json:"refine,omitempty"`
}

// Record is the persisted form of a fit result.
//
// The consensus set is stored as a base64 encoded roaring bitmap of inlier
// indices rather than a mask, so large data sets with sparse or clustered
// inliers stay small on disk.
type Record struct {
	JobID string `json:"jobId"`

	// Model is the model family name.
	Model string `json:"model"`

	// Params are the model parameters, nil when no model was found.
	Params []float64 `json:"params"`

	Inliers int     `json:"inliers"`
	Points  int     `json:"points"`
	Cost    float64 `json:"cost"`
	Trials  int     `json:"trials"`

	// InlierSet holds the inlier indices.
	InlierSet string `json:"inlierSet,omitempty"`

	Timestamp time.Time `json:"timestamp"`
	Config    RunConfig `json:"config"`
}

// RecordInfo is the listing view of a Record.
type RecordInfo struct {
	JobID     string    `json:"jobId"`
	Model     string    `json:"model"`
	Inliers   int       `json:"inliers"`
	Points    int       `json:"points"`
	Found     bool      `json:"found"`
	Timestamp time.Time `json:"timestamp"`
	DataPath  string    `json:"dataPath"`
}

// NewRecord builds a record from a result. mask may be nil when no model
// was found.
func NewRecord(jobID string, params []float64, mask []bool, cost float64, trials int, config RunConfig) (*Record, error) {
	bm := roaring.New()
	for i, in := range mask {
		if in {
			bm.Add(uint32(i))
		}
	}

	r := &Record{
		JobID:     jobID,
		Model:     config.Model,
		Params:    params,
		Inliers:   int(bm.GetCardinality()),
		Points:    len(mask),
		Cost:      cost,
		Trials:    trials,
		Timestamp: time.Now(),
		Config:    config,
	}

	if !bm.IsEmpty() {
		enc, err := bm.ToBase64()
		if err != nil {
			return nil, fmt.Errorf("failed to encode inlier set: %w", err)
		}
		r.InlierSet = enc
	}
	return r, nil
}

// Found reports whether the record holds a model.
func (r *Record) Found() bool {
	return r.Inliers > 0 && len(r.Params) > 0
}

// Indices decodes the inlier set into ascending point indices.
func (r *Record) Indices() ([]uint32, error) {
	if r.InlierSet == "" {
		return nil, nil
	}
	bm := roaring.New()
	if _, err := bm.FromBase64(r.InlierSet); err != nil {
		return nil, fmt.Errorf("failed to decode inlier set: %w", err)
	}
	return bm.ToArray(), nil
}

// Mask reconstructs the consensus mask over Points points.
func (r *Record) Mask() ([]bool, error) {
	idx, err := r.Indices()
	if err != nil {
		return nil, err
	}
	mask := make([]bool, r.Points)
	for _, i := range idx {
		if int(i) >= r.Points {
			return nil, fmt.Errorf("inlier index %d out of range for %d points", i, r.Points)
		}
		mask[i] = true
	}
	return mask, nil
}

// ToInfo converts a Record to its listing view.
func (r *Record) ToInfo() RecordInfo {
	return RecordInfo{
		JobID:     r.JobID,
		Model:     r.Model,
		Inliers:   r.Inliers,
		Points:    r.Points,
		Found:     r.Found(),
		Timestamp: r.Timestamp,
		DataPath:  r.Config.DataPath,
	}
}

// Validate checks that the record is internally consistent.
func (r *Record) Validate() error {
	if r.JobID == "" {
		return &ValidationError{Field: "JobID", Reason: "cannot be empty"}
	}
	if r.Model == "" {
		return &ValidationError{Field: "Model", Reason: "cannot be empty"}
	}
	if r.Inliers < 0 {
		return &ValidationError{Field: "Inliers", Reason: "cannot be negative"}
	}
	if r.Inliers > r.Points {
		return &ValidationError{Field: "Inliers", Reason: "exceeds point count"}
	}
	if r.Inliers > 0 && len(r.Params) == 0 {
		return &ValidationError{Field: "Params", Reason: "cannot be empty when inliers are recorded"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if r.Config.Trials <= 0 {
		return &ValidationError{Field: "Config.Trials", Reason: "must be positive"}
	}
	if !(r.Config.MaxError > 0) {
		return &ValidationError{Field: "Config.MaxError", Reason: "must be positive"}
	}

	idx, err := r.Indices()
	if err != nil {
		return &ValidationError{Field: "InlierSet", Reason: err.Error()}
	}
	if len(idx) != r.Inliers {
		return &ValidationError{
			Field:  "InlierSet",
			Reason: fmt.Sprintf("holds %d indices, expected %d", len(idx), r.Inliers),
		}
	}
	return nil
}

// ValidationError represents a record validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks that the stored model can be applied to data of the
// given model family and point dimension. paramDim is the model family's
// parameter count.
func (r *Record) IsCompatible(model string, paramDim int) error {
	if r.Model != model {
		return &CompatibilityError{Field: "Model", Expected: r.Model, Actual: model}
	}
	if len(r.Params) != paramDim {
		return &CompatibilityError{
			Field:    "Params",
			Expected: fmt.Sprintf("%d", paramDim),
			Actual:   fmt.Sprintf("%d", len(r.Params)),
		}
	}
	return nil
}

// CompatibilityError represents a record/model mismatch.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
