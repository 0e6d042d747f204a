package pipeline

import (
	"fmt"

	"github.com/infraquery/infraquery/internal/security"
)

// InvalidQuestionError rejects input before any model spend.
type InvalidQuestionError struct {
	Reason string
}

func (e *InvalidQuestionError) Error() string {
	return "invalid question: " + e.Reason
}

// AttemptRecord is the outcome of one generation attempt, kept so the caller
// can show the user why every attempt was rejected.
type AttemptRecord struct {
	Attempt    int                  `json:"attempt"`
	SQL        string               `json:"sql"`
	Violations []security.Violation `json:"violations"`
}

// GenerationError is raised when the validator rejected every attempt up to
// the configured ceiling. History holds exactly one record per attempt.
type GenerationError struct {
	Attempts int
	History  []AttemptRecord
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("query generation failed after %d attempts", e.Attempts)
}

// LastSQL returns the SQL of the final rejected attempt for transparency.
func (e *GenerationError) LastSQL() string {
	if len(e.History) == 0 {
		return ""
	}
	return e.History[len(e.History)-1].SQL
}

// ExecutionFailure wraps an executor error together with the SQL that was
// running, so user-visible failures always carry the last known attempt.
type ExecutionFailure struct {
	SQL string
	Err error
}

func (e *ExecutionFailure) Error() string {
	return e.Err.Error()
}

func (e *ExecutionFailure) Unwrap() error { return e.Err }
