package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/infraquery/infraquery/internal/config"
	"github.com/infraquery/infraquery/internal/domain"
	"github.com/infraquery/infraquery/internal/llm"
	"github.com/infraquery/infraquery/internal/models"
	"github.com/infraquery/infraquery/internal/pipeline"
	"github.com/infraquery/infraquery/internal/store"
)

// AskHandler handles POST /api/v1/ask
type AskHandler struct {
	pipeline *pipeline.Pipeline
}

func NewAskHandler(p *pipeline.Pipeline) *AskHandler {
	return &AskHandler{pipeline: p}
}

// Ask handles POST /api/v1/ask
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Question == "" {
		models.WriteError(w, http.StatusBadRequest, "question is required")
		return
	}

	prefs := pipeline.Preferences{
		ModelSpeed: config.ModelSpeed(req.ModelSpeed),
		Domain:     domain.Tag(req.Domain),
	}

	answer, err := h.pipeline.Ask(r.Context(), req.Question, prefs)
	if err != nil {
		writeAskError(w, err)
		return
	}

	models.WriteJSON(w, http.StatusOK, models.AskResponse{
		Status:         "success",
		QuestionID:     answer.QuestionID,
		Question:       answer.Question,
		Classification: answer.Classification,
		SQL:            answer.Query.SQL,
		Provider:       answer.Query.Provider,
		Attempts:       answer.Query.Attempts,
		Result:         models.NewResultPayload(answer.Result),
		Narrative:      answer.Narrative,
		Caveats:        answer.Caveats,
		DurationMillis: answer.Duration.Milliseconds(),
	})
}

// writeAskError maps the pipeline error taxonomy onto HTTP statuses, always
// carrying the last known SQL when one exists.
func writeAskError(w http.ResponseWriter, err error) {
	var (
		invalidErr *pipeline.InvalidQuestionError
		genErr     *pipeline.GenerationError
		execErr    *pipeline.ExecutionFailure
	)
	switch {
	case errors.As(err, &invalidErr):
		models.WriteErrorKind(w, http.StatusBadRequest,
			"invalid_question", invalidErr.Reason, "")
	case errors.Is(err, llm.ErrModelUnavailable):
		models.WriteErrorKind(w, http.StatusServiceUnavailable,
			"model_unavailable", "no model provider is currently available", "")
	case errors.As(err, &genErr):
		models.WriteErrorKind(w, http.StatusUnprocessableEntity,
			"query_generation_failed", genErr.Error(), genErr.LastSQL())
	case errors.As(err, &execErr) && errors.Is(err, store.ErrExecutionTimeout):
		models.WriteErrorKind(w, http.StatusGatewayTimeout,
			"execution_timeout", "query exceeded the execution time limit", execErr.SQL)
	case errors.As(err, &execErr):
		models.WriteErrorKind(w, http.StatusInternalServerError,
			"execution_error", execErr.Error(), execErr.SQL)
	default:
		models.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
