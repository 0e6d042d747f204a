package handler

import (
	"net/http"

	"github.com/infraquery/infraquery/internal/models"
	"github.com/infraquery/infraquery/internal/pipeline"
)

// SchemaHandler handles GET /api/v1/schema
type SchemaHandler struct {
	pipeline *pipeline.Pipeline
}

func NewSchemaHandler(p *pipeline.Pipeline) *SchemaHandler {
	return &SchemaHandler{pipeline: p}
}

// Schema handles GET /api/v1/schema: the active descriptor clients can use
// to build their own direct queries.
func (h *SchemaHandler) Schema(w http.ResponseWriter, r *http.Request) {
	desc, err := h.pipeline.Descriptor(r.Context())
	if err != nil {
		models.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	columns := desc.Columns()
	out := make([]models.SchemaColumn, len(columns))
	for i, c := range columns {
		out[i] = models.SchemaColumn{Name: c.Name, Type: c.Type, Gloss: c.Gloss}
	}

	models.WriteJSON(w, http.StatusOK, models.SchemaResponse{
		Table:   desc.Table(),
		Version: desc.Version(),
		Columns: out,
	})
}
