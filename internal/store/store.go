package store

// Store persists fit results.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return ErrNotFound if no result exists (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveResult atomically saves the result record of a job, replacing
	// any previous one.
	SaveResult(jobID string, record *Record) error

	// LoadResult retrieves the result record of a job.
	// Returns ErrNotFound if no record exists for this jobID.
	LoadResult(jobID string) (*Record, error)

	// ListResults returns metadata for all stored results.
	ListResults() ([]RecordInfo, error)

	// DeleteResult removes the result and all artifacts of a job
	// (result.json, trace.jsonl).
	// Returns ErrNotFound if the job has no stored data.
	DeleteResult(jobID string) error
}

// ErrNotFound is returned when a requested result does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing result.
type NotFoundError struct {
	JobID string
}

func (e *NotFoundError) Error() string {
	if e.JobID != "" {
		return "result not found: " + e.JobID
	}
	return "result not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
