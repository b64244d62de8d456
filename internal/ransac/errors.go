package ransac

import "fmt"

// ErrSampling is returned when the sampler cannot draw distinct indices.
// Use errors.Is(err, ErrSampling) to check for this error.
var ErrSampling = &SamplingError{}

// ErrNegativeError is returned when an Evaluator reports a negative or NaN error.
var ErrNegativeError = &EvaluationError{}

// ErrConfig is returned for invalid engine parameters.
var ErrConfig = &ConfigError{}

// SamplingError reports that no set of distinct indices could be drawn.
// This happens when NFit exceeds the number of points or the random
// source is degenerate.
type SamplingError struct {
	N        int // Number of points sampled from
	NFit     int // Requested sample size
	Attempts int // Attempts made before giving up
}

func (e *SamplingError) Error() string {
	if e.Attempts == 0 {
		return fmt.Sprintf("ransac: cannot sample %d indices from %d points", e.NFit, e.N)
	}
	return fmt.Sprintf("ransac: could not draw %d distinct indices from %d points in %d attempts",
		e.NFit, e.N, e.Attempts)
}

func (e *SamplingError) Is(target error) bool {
	_, ok := target.(*SamplingError)
	return ok
}

// EvaluationError reports an invalid fitting error returned by an Evaluator.
type EvaluationError struct {
	Index int
	Value float64
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("ransac: evaluation of point %d returned invalid error %g", e.Index, e.Value)
}

func (e *EvaluationError) Is(target error) bool {
	_, ok := target.(*EvaluationError)
	return ok
}

// ConfigError represents an invalid engine parameter.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "ransac: invalid configuration"
	}
	return "ransac: invalid configuration: " + e.Field + " " + e.Reason
}

func (e *ConfigError) Is(target error) bool {
	_, ok := target.(*ConfigError)
	return ok
}
