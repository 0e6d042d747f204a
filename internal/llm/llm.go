// Package llm abstracts the language-model providers behind one interface
// and routes calls across them with fallback. All calls are stateless
// round-trips: no provider-side session survives between attempts.
package llm

import (
	"context"
	"strings"
)

// Task tags what a completion is for; providers may log it, the router does.
type Task string

const (
	TaskGeneration     Task = "sql_generation"
	TaskInterpretation Task = "interpretation"
)

// Request is one completion round-trip.
type Request struct {
	Task        Task
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Provider is a single model backend. Implementations must be safe for
// concurrent use and must honor ctx cancellation.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// StripSQLFences removes a surrounding markdown code fence from model output.
// Models frequently wrap SQL in ```sql blocks despite instructions.
func StripSQLFences(value string) string {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```sql")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
