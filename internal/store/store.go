// Package store abstracts the analytical backends behind one read-only
// execution interface. Backends never retry on their own: a failure of
// already-validated SQL points at a validator gap, not a transient fault.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/infraquery/infraquery/internal/config"
	"github.com/infraquery/infraquery/internal/schema"
)

var (
	// ErrExecutionTimeout marks a query killed by the wall-clock limit.
	ErrExecutionTimeout = errors.New("query execution timed out")
	// ErrExecutionError marks a backend-reported failure of validated SQL.
	ErrExecutionError = errors.New("query execution failed")
)

// Result is one bounded tabular result. Truncated is set when the row cap
// cut the result short.
type Result struct {
	Columns   []string      `json:"columns"`
	Rows      [][]any       `json:"rows"`
	Truncated bool          `json:"row_count_truncated"`
	Duration  time.Duration `json:"-"`
}

func (r *Result) RowCount() int { return len(r.Rows) }

// Limits bound every execution regardless of what the SQL asks for.
type Limits struct {
	MaxRows int
	Timeout time.Duration
}

// Store is the execution interface over whichever backend is configured.
// Implementations are read-only: they never issue writes.
type Store interface {
	// Query runs one validated statement and returns a bounded result.
	Query(ctx context.Context, sqlText string) (*Result, error)
	// TableColumns introspects the physical columns of a table.
	TableColumns(ctx context.Context, table string) ([]schema.ColumnInfo, error)
	Ping(ctx context.Context) error
	Close() error
}

// New opens the backend selected by cfg.Backend.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	limits := Limits{MaxRows: cfg.RowLimit, Timeout: cfg.QueryTimeout()}
	switch cfg.Backend {
	case config.BackendLocal:
		return NewDuckDB(cfg.DuckDBPath, limits)
	case config.BackendHosted:
		return NewPostgres(ctx, cfg.DatabaseURL, limits)
	case config.BackendBigQuery:
		return NewBigQuery(ctx, cfg.GCPProjectID, cfg.GoogleApplicationCredentials, cfg.BigQueryDataset, limits)
	default:
		return nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
	}
}

// mapExecErr folds a backend error into the executor taxonomy.
func mapExecErr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrExecutionTimeout
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrExecutionError, err)
}
