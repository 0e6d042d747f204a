package models

import (
	"github.com/infraquery/infraquery/internal/domain"
	"github.com/infraquery/infraquery/internal/pipeline"
	"github.com/infraquery/infraquery/internal/security"
	"github.com/infraquery/infraquery/internal/store"
)

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// ResultPayload is the tabular part of a response.
type ResultPayload struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"row_count_truncated"`
}

func NewResultPayload(r *store.Result) ResultPayload {
	return ResultPayload{
		Columns:   r.Columns,
		Rows:      r.Rows,
		RowCount:  r.RowCount(),
		Truncated: r.Truncated,
	}
}

// AskResponse is returned by POST /api/v1/ask
type AskResponse struct {
	Status         string                `json:"status"`
	QuestionID     string                `json:"question_id"`
	Question       string                `json:"question"`
	Classification domain.Classification `json:"classification"`
	SQL            string                `json:"sql"`
	Provider       string                `json:"provider"`
	Attempts       int                   `json:"attempts"`
	Result         ResultPayload         `json:"result"`
	Narrative      string                `json:"narrative"`
	Caveats        []pipeline.Caveat     `json:"caveats"`
	DurationMillis int64                 `json:"duration_ms"`
}

// QueryResponse is returned by POST /api/v1/query
type QueryResponse struct {
	Status     string               `json:"status"`
	SQL        string               `json:"sql"`
	Violations []security.Violation `json:"violations,omitempty"`
	Result     *ResultPayload       `json:"result,omitempty"`
}

// SchemaColumn is one column of GET /api/v1/schema
type SchemaColumn struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Gloss string `json:"gloss,omitempty"`
}

// SchemaResponse is returned by GET /api/v1/schema
type SchemaResponse struct {
	Table   string         `json:"table"`
	Version string         `json:"version"`
	Columns []SchemaColumn `json:"columns"`
}

// ExamplesResponse is returned by GET /api/v1/examples
type ExamplesResponse struct {
	Examples []string `json:"examples"`
}
