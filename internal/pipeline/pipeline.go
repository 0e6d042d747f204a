// Package pipeline orchestrates the full question-to-answer flow: guard the
// question, classify its domain, build the generation prompt, generate and
// validate SQL (retrying with violation feedback), execute the accepted
// statement and interpret the rows into a pt-BR narrative.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/infraquery/infraquery/internal/config"
	"github.com/infraquery/infraquery/internal/domain"
	"github.com/infraquery/infraquery/internal/interpret"
	"github.com/infraquery/infraquery/internal/llm"
	"github.com/infraquery/infraquery/internal/prompt"
	"github.com/infraquery/infraquery/internal/schema"
	"github.com/infraquery/infraquery/internal/security"
	"github.com/infraquery/infraquery/internal/store"
)

// Caveat is a machine-readable warning attached to an answer.
type Caveat string

const (
	// CaveatAIGenerated is attached to every answer: both the SQL and the
	// narrative come from a language model and may contain mistakes.
	CaveatAIGenerated Caveat = "ai_generated"
	// CaveatRowsTruncated signals the row cap cut the result short.
	CaveatRowsTruncated Caveat = "rows_truncated"
	// CaveatInterpretationFailed signals the narrative is a local fallback
	// because the interpretation model call failed.
	CaveatInterpretationFailed Caveat = "interpretation_failed"
)

// Preferences are the per-request knobs a caller may set.
type Preferences struct {
	// ModelSpeed overrides the configured default when non-empty.
	ModelSpeed config.ModelSpeed
	// Domain forces a sub-domain classification, bypassing term detection.
	// Used by clients with dedicated views per domain.
	Domain domain.Tag
}

// GeneratedQuery describes the SQL that was ultimately executed.
type GeneratedQuery struct {
	SQL      string `json:"sql"`
	Provider string `json:"provider"`
	Attempts int    `json:"attempts"`
}

// Answer is the complete result of one Ask invocation.
type Answer struct {
	QuestionID     string                `json:"question_id"`
	Question       string                `json:"question"`
	AskedAt        time.Time             `json:"asked_at"`
	Classification domain.Classification `json:"classification"`
	Query          GeneratedQuery        `json:"query"`
	Result         *store.Result         `json:"result"`
	Narrative      string                `json:"narrative"`
	NarrativeBy    string                `json:"narrative_by,omitempty"`
	Caveats        []Caveat              `json:"caveats"`
	Duration       time.Duration         `json:"-"`
}

// Pipeline wires the collaborators together. All fields are read-only after
// construction, so one Pipeline serves concurrent requests.
type Pipeline struct {
	cfg         *config.Config
	loader      *schema.Loader
	detector    *domain.Detector
	builder     *prompt.Builder
	guard       *security.QuestionValidator
	validator   *security.SQLValidator
	router      *llm.Router
	store       store.Store
	interpreter *interpret.Interpreter
	audit       *security.AuditLogger
}

func New(
	cfg *config.Config,
	loader *schema.Loader,
	router *llm.Router,
	st store.Store,
	audit *security.AuditLogger,
) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		loader:      loader,
		detector:    domain.NewDetector(),
		builder:     prompt.NewBuilder(cfg.Backend, cfg.DomainConfidenceThreshold, cfg.RowLimit),
		guard:       security.NewQuestionValidator(),
		validator:   security.NewSQLValidator(cfg.RowLimit),
		router:      router,
		store:       st,
		interpreter: interpret.New(router, cfg.InterpreterMaxRows, cfg.InterpretationTemperature, cfg.MaxTokens),
		audit:       audit,
	}
}

// Ask runs the full flow for one natural-language question.
//
// Failures map onto a small taxonomy the caller can branch on:
// *InvalidQuestionError (guard rejection, nothing was spent),
// llm.ErrModelUnavailable (all providers exhausted, nothing was executed),
// *GenerationError (validator rejected every attempt, carries the history),
// *ExecutionFailure wrapping store.ErrExecutionTimeout or
// store.ErrExecutionError (validated SQL failed; never retried).
// An interpretation failure is not an error: the answer degrades to the raw
// result with a caveat.
func (p *Pipeline) Ask(ctx context.Context, question string, prefs Preferences) (*Answer, error) {
	started := time.Now()
	questionID := uuid.NewString()
	speed := p.speed(prefs)

	logger := log.With().Str("question_id", questionID).Logger()

	folded := domain.Normalize(question)
	if guard := p.guard.Validate(question, folded); !guard.Valid {
		logger.Info().Str("reason", guard.Message).Msg("question rejected by guard")
		return nil, &InvalidQuestionError{Reason: guard.Message}
	}

	desc, err := p.loader.Descriptor(ctx, p.cfg.TableName)
	if err != nil {
		return nil, err
	}

	cls := p.classify(question, prefs)
	logger.Debug().Str("domain", string(cls.Tag)).Float64("confidence", cls.Confidence).
		Msg("question classified")

	verdict, generated, history, err := p.generate(ctx, speed, question, cls, desc)
	if err != nil {
		p.recordAudit(ctx, auditInput{
			questionID: questionID, question: question, cls: cls,
			attempts: len(history), started: started, err: err,
		})
		return nil, err
	}

	result, err := p.store.Query(ctx, verdict.SanitizedSQL)
	if err != nil {
		p.recordAudit(ctx, auditInput{
			questionID: questionID, question: question, cls: cls,
			sql: verdict.SanitizedSQL, provider: generated.Provider,
			attempts: generated.Attempts, started: started, err: err,
		})
		return nil, &ExecutionFailure{SQL: verdict.SanitizedSQL, Err: err}
	}

	answer := &Answer{
		QuestionID:     questionID,
		Question:       question,
		AskedAt:        started.UTC(),
		Classification: cls,
		Query:          generated,
		Result:         result,
		Caveats:        []Caveat{CaveatAIGenerated},
	}
	if result.Truncated {
		answer.Caveats = append(answer.Caveats, CaveatRowsTruncated)
	}

	narrative, narrator, ierr := p.interpret(ctx, speed, question, result)
	if ierr != nil {
		logger.Warn().Err(ierr).Msg("interpretation failed, degrading to raw result")
		answer.Narrative = "Não foi possível gerar uma interpretação automática; veja o resultado tabular abaixo."
		answer.Caveats = append(answer.Caveats, CaveatInterpretationFailed)
	} else {
		answer.Narrative = narrative
		answer.NarrativeBy = narrator
	}

	answer.Duration = time.Since(started)
	p.recordAudit(ctx, auditInput{
		questionID: questionID, question: question, cls: cls,
		sql: verdict.SanitizedSQL, provider: generated.Provider,
		attempts: generated.Attempts, rowCount: result.RowCount(),
		started: started,
	})
	return answer, nil
}

// RunSQL validates and executes caller-supplied SQL without any model call,
// backing the direct explorer endpoint. The verdict is returned even on
// rejection so callers can show the violations.
func (p *Pipeline) RunSQL(ctx context.Context, sqlText string) (*store.Result, security.Verdict, error) {
	desc, err := p.loader.Descriptor(ctx, p.cfg.TableName)
	if err != nil {
		return nil, security.Verdict{}, err
	}

	verdict := p.validator.Validate(sqlText, desc)
	if !verdict.Accepted {
		return nil, verdict, nil
	}

	result, err := p.store.Query(ctx, verdict.SanitizedSQL)
	if err != nil {
		return nil, verdict, &ExecutionFailure{SQL: verdict.SanitizedSQL, Err: err}
	}
	return result, verdict, nil
}

// Descriptor exposes the active schema descriptor for the schema endpoint.
func (p *Pipeline) Descriptor(ctx context.Context) (*schema.Descriptor, error) {
	return p.loader.Descriptor(ctx, p.cfg.TableName)
}

func (p *Pipeline) speed(prefs Preferences) config.ModelSpeed {
	if prefs.ModelSpeed == config.SpeedFast || prefs.ModelSpeed == config.SpeedAdvanced {
		return prefs.ModelSpeed
	}
	return p.cfg.ModelSpeed
}

func (p *Pipeline) classify(question string, prefs Preferences) domain.Classification {
	if prefs.Domain != "" && prefs.Domain != domain.TagGeneral {
		return p.detector.Force(prefs.Domain)
	}
	return p.detector.Classify(question)
}

// generate runs the generation/validation loop: each rejected attempt feeds
// its violations back into the next prompt, up to the configured ceiling.
func (p *Pipeline) generate(
	ctx context.Context,
	speed config.ModelSpeed,
	question string,
	cls domain.Classification,
	desc *schema.Descriptor,
) (security.Verdict, GeneratedQuery, []AttemptRecord, error) {
	var (
		history  []AttemptRecord
		feedback []string
	)

	for attempt := 1; attempt <= p.cfg.MaxGenerationAttempts; attempt++ {
		spec := p.builder.Build(question, cls, desc, feedback)

		callCtx, cancel := context.WithTimeout(ctx, p.cfg.ModelTimeout())
		raw, provider, err := p.router.Complete(callCtx, speed, llm.Request{
			Task:        llm.TaskGeneration,
			System:      spec.System,
			User:        spec.User,
			Temperature: p.cfg.GenerationTemperature,
			MaxTokens:   p.cfg.MaxTokens,
		})
		cancel()
		if err != nil {
			// ErrModelUnavailable and context errors end the loop: without a
			// working provider, retrying only repeats the same failure.
			return security.Verdict{}, GeneratedQuery{}, history, err
		}

		sqlText := llm.StripSQLFences(raw)
		verdict := p.validator.Validate(sqlText, desc)
		history = append(history, AttemptRecord{
			Attempt:    attempt,
			SQL:        sqlText,
			Violations: verdict.Violations,
		})

		if verdict.Accepted {
			log.Debug().Int("attempt", attempt).Str("provider", provider).
				Msg("generated sql accepted")
			return verdict, GeneratedQuery{
				SQL:      verdict.SanitizedSQL,
				Provider: provider,
				Attempts: attempt,
			}, history, nil
		}

		feedback = feedback[:0]
		for _, v := range verdict.Violations {
			feedback = append(feedback, v.String())
		}
		log.Warn().Int("attempt", attempt).Strs("violations", feedback).
			Msg("generated sql rejected")
	}

	return security.Verdict{}, GeneratedQuery{}, history, &GenerationError{
		Attempts: p.cfg.MaxGenerationAttempts,
		History:  history,
	}
}

func (p *Pipeline) interpret(ctx context.Context, speed config.ModelSpeed, question string, result *store.Result) (string, string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.ModelTimeout())
	defer cancel()
	return p.interpreter.Interpret(callCtx, speed, question, result)
}

type auditInput struct {
	questionID string
	question   string
	cls        domain.Classification
	sql        string
	provider   string
	attempts   int
	rowCount   int
	started    time.Time
	err        error
}

func (p *Pipeline) recordAudit(ctx context.Context, in auditInput) {
	evt := security.AuditEvent{
		QuestionID:     in.questionID,
		QuestionHash:   security.HashText(in.question),
		DomainTag:      string(in.cls.Tag),
		Provider:       in.provider,
		Attempts:       in.attempts,
		RowCount:       in.rowCount,
		DurationMillis: time.Since(in.started).Milliseconds(),
		Success:        in.err == nil,
	}
	if in.sql != "" {
		evt.SQLHash = security.HashText(in.sql)
	}
	if in.err != nil {
		evt.ErrorKind = errorKind(in.err)
	}
	p.audit.Record(ctx, evt)
}

// errorKind maps a pipeline error onto its audit label.
func errorKind(err error) string {
	var genErr *GenerationError
	switch {
	case errors.Is(err, llm.ErrModelUnavailable):
		return "model_unavailable"
	case errors.As(err, &genErr):
		return "query_generation_failed"
	case errors.Is(err, store.ErrExecutionTimeout):
		return "execution_timeout"
	case errors.Is(err, store.ErrExecutionError):
		return "execution_error"
	default:
		return "internal"
	}
}
