package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/infraquery/infraquery/internal/config"
	"github.com/infraquery/infraquery/internal/llm"
)

type stubProvider struct {
	name  string
	text  string
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func transportErr(provider string) *llm.ProviderError {
	return &llm.ProviderError{Provider: provider, Class: llm.ClassTransport, Message: "connection refused"}
}

func TestRouterFallsBackOnRetryableError(t *testing.T) {
	failing := &stubProvider{name: "groq", err: transportErr("groq")}
	working := &stubProvider{name: "gemini", text: "SELECT 1"}

	r, err := llm.NewRouter([]llm.Provider{failing}, []llm.Provider{working})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}

	text, provider, err := r.Complete(context.Background(), config.SpeedFast, llm.Request{Task: llm.TaskGeneration})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if text != "SELECT 1" || provider != "gemini" {
		t.Errorf("got (%q, %q), want fallback to gemini", text, provider)
	}
	if failing.calls != 1 || working.calls != 1 {
		t.Errorf("calls = (%d, %d), want (1, 1)", failing.calls, working.calls)
	}
}

func TestRouterExhaustionReturnsModelUnavailable(t *testing.T) {
	a := &stubProvider{name: "groq", err: transportErr("groq")}
	b := &stubProvider{name: "gemini", err: &llm.ProviderError{
		Provider: "gemini", Class: llm.ClassRateLimit, Message: "rate limited",
	}}

	r, _ := llm.NewRouter([]llm.Provider{a}, []llm.Provider{b})
	_, _, err := r.Complete(context.Background(), config.SpeedFast, llm.Request{})
	if !errors.Is(err, llm.ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("calls = (%d, %d), want both providers tried", a.calls, b.calls)
	}
}

func TestRouterNonRetryableFailsFast(t *testing.T) {
	rejected := &llm.ProviderError{Provider: "groq", Class: llm.ClassProvider, Message: "bad request"}
	a := &stubProvider{name: "groq", err: rejected}
	b := &stubProvider{name: "gemini", text: "SELECT 1"}

	r, _ := llm.NewRouter([]llm.Provider{a}, []llm.Provider{b})
	_, _, err := r.Complete(context.Background(), config.SpeedFast, llm.Request{})

	var perr *llm.ProviderError
	if !errors.As(err, &perr) || perr.Class != llm.ClassProvider {
		t.Fatalf("err = %v, want the provider rejection", err)
	}
	if errors.Is(err, llm.ErrModelUnavailable) {
		t.Error("provider rejection must not read as exhaustion")
	}
	if b.calls != 0 {
		t.Errorf("second provider called %d times, want 0", b.calls)
	}
}

func TestRouterSpeedOrdering(t *testing.T) {
	fast := &stubProvider{name: "groq", text: "fast-answer"}
	advanced := &stubProvider{name: "gemini", text: "advanced-answer"}
	r, _ := llm.NewRouter([]llm.Provider{fast}, []llm.Provider{advanced})

	_, provider, err := r.Complete(context.Background(), config.SpeedFast, llm.Request{})
	if err != nil || provider != "groq" {
		t.Errorf("fast: provider = %q (err %v), want groq", provider, err)
	}

	_, provider, err = r.Complete(context.Background(), config.SpeedAdvanced, llm.Request{})
	if err != nil || provider != "gemini" {
		t.Errorf("advanced: provider = %q (err %v), want gemini", provider, err)
	}
}

func TestRouterContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := &stubProvider{name: "groq", text: "SELECT 1"}
	r, _ := llm.NewRouter([]llm.Provider{a}, nil)

	_, _, err := r.Complete(ctx, config.SpeedFast, llm.Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if a.calls != 0 {
		t.Errorf("provider called %d times after cancellation, want 0", a.calls)
	}
}

func TestStripSQLFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"```sql\nSELECT 1\n```", "SELECT 1"},
		{"```\nSELECT 1\n```", "SELECT 1"},
		{"  SELECT 1  ", "SELECT 1"},
	}
	for _, tt := range tests {
		if got := llm.StripSQLFences(tt.in); got != tt.want {
			t.Errorf("StripSQLFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
