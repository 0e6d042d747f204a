package interpret_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/infraquery/infraquery/internal/config"
	"github.com/infraquery/infraquery/internal/interpret"
	"github.com/infraquery/infraquery/internal/llm"
	"github.com/infraquery/infraquery/internal/store"
)

type stubProvider struct {
	text    string
	err     error
	lastReq llm.Request
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.lastReq = req
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func newInterpreter(p llm.Provider) *interpret.Interpreter {
	router, err := llm.NewRouter([]llm.Provider{p}, nil)
	if err != nil {
		panic(err)
	}
	return interpret.New(router, 50, 0.2, 1024)
}

func TestInterpretEmptyResult(t *testing.T) {
	i := newInterpreter(&stubProvider{err: errors.New("must not be called")})

	narrative, provider, err := i.Interpret(context.Background(), config.SpeedFast, "quantas multas?", &store.Result{})
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if provider != "" {
		t.Errorf("provider = %q, want empty for local answer", provider)
	}
	if !strings.Contains(narrative, "Não encontrei dados") {
		t.Errorf("narrative = %q, want empty-result message", narrative)
	}
}

func TestInterpretScalarMoney(t *testing.T) {
	i := newInterpreter(&stubProvider{err: errors.New("must not be called")})
	result := &store.Result{Columns: []string{"total"}, Rows: [][]any{{1234567.891}}}

	narrative, provider, err := i.Interpret(context.Background(), config.SpeedFast, "Qual o valor total de multas?", result)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if provider != "" {
		t.Error("scalar answers must not call the model")
	}
	if !strings.Contains(narrative, "R$ 1.234.567,89") {
		t.Errorf("narrative = %q, want Brazilian money formatting", narrative)
	}
}

func TestInterpretScalarCount(t *testing.T) {
	i := newInterpreter(&stubProvider{err: errors.New("must not be called")})
	result := &store.Result{Columns: []string{"n"}, Rows: [][]any{{int64(4521)}}}

	narrative, _, err := i.Interpret(context.Background(), config.SpeedFast, "Quantas infrações em SP?", result)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if !strings.Contains(narrative, "4.521") {
		t.Errorf("narrative = %q, want thousands separator", narrative)
	}
	if strings.Contains(narrative, "R$") {
		t.Errorf("narrative = %q, count question must not be money-formatted", narrative)
	}
}

func TestInterpretTableGoesThroughModel(t *testing.T) {
	stub := &stubProvider{text: "O Pará lidera com 120 infrações."}
	i := newInterpreter(stub)
	result := &store.Result{
		Columns: []string{"UF", "total"},
		Rows:    [][]any{{"PA", int64(120)}, {"MT", int64(95)}},
	}

	narrative, provider, err := i.Interpret(context.Background(), config.SpeedFast, "Quais estados têm mais infrações?", result)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if provider != "stub" {
		t.Errorf("provider = %q, want stub", provider)
	}
	if narrative != "O Pará lidera com 120 infrações." {
		t.Errorf("narrative = %q", narrative)
	}
	if !strings.Contains(stub.lastReq.User, "PA | 120") {
		t.Errorf("model prompt missing rendered rows: %q", stub.lastReq.User)
	}
	if !strings.Contains(stub.lastReq.User, "Quais estados têm mais infrações?") {
		t.Error("model prompt missing the question")
	}
	if stub.lastReq.Task != llm.TaskInterpretation {
		t.Errorf("task = %q, want interpretation", stub.lastReq.Task)
	}
}

func TestInterpretSurfacesRouterError(t *testing.T) {
	stub := &stubProvider{err: &llm.ProviderError{Provider: "stub", Class: llm.ClassTransport, Message: "down"}}
	i := newInterpreter(stub)
	result := &store.Result{
		Columns: []string{"UF", "total"},
		Rows:    [][]any{{"PA", int64(120)}, {"MT", int64(95)}},
	}

	_, _, err := i.Interpret(context.Background(), config.SpeedFast, "pergunta", result)
	if !errors.Is(err, llm.ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable so the caller can degrade", err)
	}
}

func TestRenderTable(t *testing.T) {
	result := &store.Result{
		Columns: []string{"UF", "total"},
		Rows:    [][]any{{"PA", int64(120)}, {"MT", nil}},
	}
	got := interpret.RenderTable(result, 50)
	want := "UF | total\nPA | 120\nMT | NULL\n"
	if got != want {
		t.Errorf("RenderTable = %q, want %q", got, want)
	}

	capped := interpret.RenderTable(result, 1)
	if strings.Contains(capped, "MT") {
		t.Errorf("RenderTable with cap 1 = %q, second row should be cut", capped)
	}
}
