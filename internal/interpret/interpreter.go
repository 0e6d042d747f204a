// Package interpret turns a tabular query result into a short pt-BR
// narrative. Single-value results are formatted locally without a model
// call; anything larger goes through the model router grounded in the
// actual returned rows.
package interpret

import (
	"context"
	"fmt"
	"strings"

	"github.com/infraquery/infraquery/internal/config"
	"github.com/infraquery/infraquery/internal/domain"
	"github.com/infraquery/infraquery/internal/llm"
	"github.com/infraquery/infraquery/internal/store"
)

type Interpreter struct {
	router      *llm.Router
	maxRows     int
	temperature float64
	maxTokens   int
}

func New(router *llm.Router, maxRows int, temperature float64, maxTokens int) *Interpreter {
	if maxRows <= 0 {
		maxRows = 50
	}
	return &Interpreter{router: router, maxRows: maxRows, temperature: temperature, maxTokens: maxTokens}
}

// Interpret returns the narrative and the provider that produced it (empty
// for locally formatted answers). A router failure is returned as-is so the
// pipeline can degrade to the raw result instead of aborting.
func (i *Interpreter) Interpret(ctx context.Context, speed config.ModelSpeed, question string, result *store.Result) (string, string, error) {
	if result == nil || len(result.Rows) == 0 {
		return "Não encontrei dados para sua consulta no banco de dados.", "", nil
	}

	if narrative, ok := formatScalar(question, result); ok {
		return narrative, "", nil
	}

	req := llm.Request{
		Task:        llm.TaskInterpretation,
		System:      interpretationSystemPrompt,
		User:        i.buildUserPrompt(question, result),
		Temperature: i.temperature,
		MaxTokens:   i.maxTokens,
	}
	narrative, provider, err := i.router.Complete(ctx, speed, req)
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(narrative), provider, nil
}

const interpretationSystemPrompt = "Você é um assistente que explica resultados de consultas sobre " +
	"autos de infração ambiental do IBAMA.\n" +
	"Responda à pergunta do usuário de forma clara e concisa, em português, " +
	"usando SOMENTE os dados da tabela fornecida. " +
	"Não invente valores que não estejam na tabela. " +
	"Se a tabela estiver truncada, mencione que há mais resultados."

func (i *Interpreter) buildUserPrompt(question string, result *store.Result) string {
	var b strings.Builder
	b.WriteString("Resultado da consulta:\n")
	b.WriteString(RenderTable(result, i.maxRows))
	if len(result.Rows) > i.maxRows || result.Truncated {
		fmt.Fprintf(&b, "(tabela truncada; %d linhas mostradas)\n", min(len(result.Rows), i.maxRows))
	}
	fmt.Fprintf(&b, "\nPergunta do usuário:\n%s", strings.TrimSpace(question))
	return b.String()
}

// RenderTable renders up to maxRows rows as a compact pipe-separated table.
// Deterministic, so interpretation prompts can be asserted in tests.
func RenderTable(result *store.Result, maxRows int) string {
	var b strings.Builder
	b.WriteString(strings.Join(result.Columns, " | "))
	b.WriteByte('\n')
	for idx, row := range result.Rows {
		if maxRows > 0 && idx >= maxRows {
			break
		}
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = formatCell(v)
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteByte('\n')
	}
	return b.String()
}

// formatScalar handles the one-row one-column case locally, mirroring the
// dashboard's behavior for count and money questions.
func formatScalar(question string, result *store.Result) (string, bool) {
	if len(result.Rows) != 1 || len(result.Rows[0]) != 1 {
		return "", false
	}
	value := result.Rows[0][0]

	folded := domain.Normalize(question)
	moneyQuestion := strings.Contains(folded, "valor") || strings.Contains(folded, "multa")

	switch v := value.(type) {
	case int, int32, int64, uint32, uint64:
		n := toFloat(v)
		if moneyQuestion {
			return fmt.Sprintf("O resultado da sua consulta é: R$ %s.", formatBRNumber(n, 2)), true
		}
		return fmt.Sprintf("O total encontrado é: %s.", formatBRNumber(n, 0)), true
	case float32, float64:
		n := toFloat(v)
		if moneyQuestion {
			return fmt.Sprintf("O resultado da sua consulta é: R$ %s.", formatBRNumber(n, 2)), true
		}
		return fmt.Sprintf("O resultado da sua consulta é: %s.", formatBRNumber(n, 2)), true
	case string:
		return fmt.Sprintf("O resultado encontrado é: %s.", v), true
	default:
		return fmt.Sprintf("O resultado encontrado é: %v.", v), true
	}
}

func formatCell(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	}
	return 0
}
