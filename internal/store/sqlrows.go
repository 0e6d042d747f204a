package store

import (
	"database/sql"
	"fmt"
	"time"
)

// collectRows drains a database/sql result set into a bounded Result.
// Reading stops one row past maxRows so Truncated can be reported without
// materializing the full set.
func collectRows(rows *sql.Rows, maxRows int, started time.Time) (*Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	result := &Result{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		if maxRows > 0 && len(result.Rows) >= maxRows {
			result.Truncated = true
			break
		}
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		result.Rows = append(result.Rows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	result.Duration = time.Since(started)
	return result, nil
}

// normalizeValues makes driver-specific values JSON- and prompt-friendly.
func normalizeValues(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		switch typed := v.(type) {
		case []byte:
			out[i] = string(typed)
		default:
			out[i] = v
		}
	}
	return out
}
