package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/infraquery/infraquery/internal/models"
	"github.com/infraquery/infraquery/internal/pipeline"
	"github.com/infraquery/infraquery/internal/store"
)

// QueryHandler handles POST /api/v1/query: caller-supplied SQL through the
// same validator and executor as generated SQL, no model involved.
type QueryHandler struct {
	pipeline *pipeline.Pipeline
}

func NewQueryHandler(p *pipeline.Pipeline) *QueryHandler {
	return &QueryHandler{pipeline: p}
}

// Query handles POST /api/v1/query
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.SQL == "" {
		models.WriteError(w, http.StatusBadRequest, "sql is required")
		return
	}

	result, verdict, err := h.pipeline.RunSQL(r.Context(), req.SQL)
	if err != nil {
		var execErr *pipeline.ExecutionFailure
		switch {
		case errors.As(err, &execErr) && errors.Is(err, store.ErrExecutionTimeout):
			models.WriteErrorKind(w, http.StatusGatewayTimeout,
				"execution_timeout", "query exceeded the execution time limit", execErr.SQL)
		case errors.As(err, &execErr):
			models.WriteErrorKind(w, http.StatusInternalServerError,
				"execution_error", execErr.Error(), execErr.SQL)
		default:
			models.WriteError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if !verdict.Accepted {
		models.WriteJSON(w, http.StatusUnprocessableEntity, models.QueryResponse{
			Status:     "rejected",
			SQL:        req.SQL,
			Violations: verdict.Violations,
		})
		return
	}

	payload := models.NewResultPayload(result)
	models.WriteJSON(w, http.StatusOK, models.QueryResponse{
		Status: "success",
		SQL:    verdict.SanitizedSQL,
		Result: &payload,
	})
}
