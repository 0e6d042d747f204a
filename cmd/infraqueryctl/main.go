// infraqueryctl is a terminal client that runs the question pipeline
// in-process, without the HTTP server. Useful for exploring a local DuckDB
// file and for smoke-testing provider credentials.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/infraquery/infraquery/internal/config"
	"github.com/infraquery/infraquery/internal/handler"
	"github.com/infraquery/infraquery/internal/llm"
	"github.com/infraquery/infraquery/internal/pipeline"
	"github.com/infraquery/infraquery/internal/schema"
	"github.com/infraquery/infraquery/internal/security"
	"github.com/infraquery/infraquery/internal/store"
)

func main() {
	_ = godotenv.Load()
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load config: %v", err)
	}

	ctx := context.Background()

	st, err := store.New(ctx, cfg)
	if err != nil {
		fatal("failed to open %s store: %v", cfg.Backend, err)
	}
	defer func() { _ = st.Close() }()

	router, closeProviders, err := buildRouter(ctx, cfg)
	if err != nil {
		fatal("%v", err)
	}
	defer closeProviders()

	audit, err := security.NewAuditLogger(false, security.AuditSinkConfig{})
	if err != nil {
		fatal("audit logger: %v", err)
	}

	pipe := pipeline.New(cfg, schema.NewLoader(st), router, st, audit)

	// One-shot mode: question passed as arguments.
	if len(os.Args) > 1 {
		ask(ctx, pipe, cfg, strings.Join(os.Args[1:], " "))
		return
	}

	interactive(ctx, pipe, cfg)
}

func interactive(ctx context.Context, pipe *pipeline.Pipeline, cfg *config.Config) {
	bold := color.New(color.Bold)
	bold.Printf("infraquery - perguntas sobre autos de infração do IBAMA (backend: %s)\n", cfg.Backend)
	fmt.Println("Digite uma pergunta, 'exemplos' para sugestões ou 'sair' para encerrar.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		bold.Print("\n> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "sair", "exit", "quit":
			return
		case "exemplos", "examples":
			for _, q := range handler.SampleQuestions {
				fmt.Println("  -", q)
			}
			continue
		}
		ask(ctx, pipe, cfg, line)
	}
}

func ask(ctx context.Context, pipe *pipeline.Pipeline, cfg *config.Config, question string) {
	answer, err := pipe.Ask(ctx, question, pipeline.Preferences{})
	if err != nil {
		printError(err)
		return
	}

	color.Cyan("\nSQL (%s, tentativa %d):", answer.Query.Provider, answer.Query.Attempts)
	fmt.Println(answer.Query.SQL)

	if answer.Result.RowCount() > 0 {
		renderResult(answer.Result)
	}

	color.Green("\n%s", answer.Narrative)
	if len(answer.Caveats) > 0 {
		caveats := make([]string, len(answer.Caveats))
		for i, c := range answer.Caveats {
			caveats[i] = string(c)
		}
		color.Yellow("avisos: %s", strings.Join(caveats, ", "))
	}
}

func renderResult(result *store.Result) {
	const displayRows = 20

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(result.Columns)
	for i, row := range result.Rows {
		if i >= displayRows {
			break
		}
		cells := make([]string, len(row))
		for j, v := range row {
			if v == nil {
				cells[j] = "NULL"
				continue
			}
			cells[j] = fmt.Sprintf("%v", v)
		}
		table.Append(cells)
	}
	fmt.Println()
	table.Render()
	if result.RowCount() > displayRows {
		fmt.Printf("(%d de %d linhas mostradas)\n", displayRows, result.RowCount())
	}
}

func printError(err error) {
	var (
		invalidErr *pipeline.InvalidQuestionError
		genErr     *pipeline.GenerationError
		execErr    *pipeline.ExecutionFailure
	)
	switch {
	case errors.As(err, &invalidErr):
		color.Red("pergunta rejeitada: %s", invalidErr.Reason)
	case errors.Is(err, llm.ErrModelUnavailable):
		color.Red("nenhum provedor de modelo disponível no momento; tente novamente mais tarde")
	case errors.As(err, &genErr):
		color.Red("não foi possível gerar uma consulta válida após %d tentativas", genErr.Attempts)
		if sql := genErr.LastSQL(); sql != "" {
			fmt.Println("última tentativa:", sql)
		}
	case errors.As(err, &execErr) && errors.Is(err, store.ErrExecutionTimeout):
		color.Red("a consulta excedeu o tempo limite de execução")
		fmt.Println("sql:", execErr.SQL)
	case errors.As(err, &execErr):
		color.Red("erro ao executar a consulta: %v", execErr.Err)
		fmt.Println("sql:", execErr.SQL)
	default:
		color.Red("erro: %v", err)
	}
}

func buildRouter(ctx context.Context, cfg *config.Config) (*llm.Router, func(), error) {
	var (
		fast, advanced []llm.Provider
		closers        []func() error
	)

	if cfg.GroqAPIKey != "" {
		groq, err := llm.NewGroq(llm.GroqConfig{
			BaseURL: cfg.GroqBaseURL,
			APIKey:  cfg.GroqAPIKey,
			Model:   cfg.GroqModel,
			Timeout: cfg.ModelTimeout(),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("groq provider: %w", err)
		}
		fast = append(fast, groq)
	}
	if cfg.GoogleAPIKey != "" {
		gemini, err := llm.NewGemini(ctx, cfg.GoogleAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, fmt.Errorf("gemini provider: %w", err)
		}
		advanced = append(advanced, gemini)
		closers = append(closers, gemini.Close)
	}
	if cfg.AnthropicAPIKey != "" {
		advanced = append(advanced, llm.NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicBaseURL))
	}

	router, err := llm.NewRouter(fast, advanced)
	if err != nil {
		return nil, nil, fmt.Errorf("model router: %w (set GROQ_API_KEY, GOOGLE_API_KEY or ANTHROPIC_API_KEY)", err)
	}
	closeAll := func() {
		for _, fn := range closers {
			if err := fn(); err != nil {
				log.Warn().Err(err).Msg("error closing provider")
			}
		}
	}
	return router, closeAll, nil
}

func fatal(format string, args ...any) {
	color.Red(format, args...)
	os.Exit(1)
}
