package security

import (
	"fmt"
	"regexp"
	"strings"
)

const MaxQuestionLength = 2000

// injectionPatterns covers prompt-injection phrasing and shell/code payloads
// that have no business in a data question.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?previous\s+instructions`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?previous\s+instructions`),
	regexp.MustCompile(`(?i)ignore\s+(todas\s+)?as\s+instrucoes\s+anteriores`),
	regexp.MustCompile(`(?i)esqueca\s+(todas\s+)?as\s+instrucoes`),
	regexp.MustCompile(`(?i)new\s+context\s*:`),
	regexp.MustCompile(`(?i)\brm\s+-`),
	regexp.MustCompile(`(?i)\bcurl\s+http`),
	regexp.MustCompile(`(?i)\bwget\s+http`),
	regexp.MustCompile(`(?i)eval\s*\(`),
	regexp.MustCompile(`(?i)exec\s*\(`),
	regexp.MustCompile(`(?i)__import__\s*\(`),
	regexp.MustCompile(`(?i)os\.system`),
	regexp.MustCompile(`\.\./`),
	regexp.MustCompile(`/etc/passwd`),
}

// dataKeywords: at least one must be present before any model spend. Listed
// accent-folded; the validator folds the question the same way.
var dataKeywords = []string{
	// pt-BR
	"quais", "qual", "quantos", "quantas", "quanto", "mostre", "mostrar",
	"liste", "listar", "exiba", "compare", "total", "soma", "media", "maior",
	"menor", "valor", "multa", "multas", "infracao", "infracoes", "auto",
	"autos", "estado", "estados", "municipio", "municipios", "uf", "ano",
	"infrator", "infratores", "fauna", "flora", "pesca", "desmatamento",
	"biopirataria", "gravidade", "evolucao", "ranking", "top",
	// English fallbacks for API callers
	"how many", "how much", "show", "list", "count", "sum", "average",
	"which", "what", "top", "total",
}

// QuestionValidator guards the pipeline entrance: length cap, injection
// patterns, and a requirement that the text looks like a data question.
type QuestionValidator struct{}

func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// ValidationResult is the guard outcome.
type ValidationResult struct {
	Valid   bool
	Message string
}

func (v *QuestionValidator) Validate(question string, folded string) ValidationResult {
	if strings.TrimSpace(question) == "" {
		return ValidationResult{Valid: false, Message: "question cannot be empty"}
	}
	if len(question) > MaxQuestionLength {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("question too long: %d chars (max %d)", len(question), MaxQuestionLength),
		}
	}

	for _, pattern := range injectionPatterns {
		if pattern.MatchString(folded) {
			return ValidationResult{Valid: false, Message: "question contains a disallowed pattern"}
		}
	}

	for _, kw := range dataKeywords {
		if strings.Contains(folded, kw) {
			return ValidationResult{Valid: true, Message: "ok"}
		}
	}
	return ValidationResult{
		Valid:   false,
		Message: "question does not look like a data question (ex: 'Quais estados têm mais infrações?')",
	}
}
