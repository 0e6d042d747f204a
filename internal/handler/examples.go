package handler

import (
	"net/http"

	"github.com/infraquery/infraquery/internal/models"
)

// SampleQuestions are shown to first-time users so they know what the
// pipeline can answer.
var SampleQuestions = []string{
	"Quais são os 5 estados com mais infrações?",
	"Qual o valor total de multas aplicadas no estado do Pará?",
	"Quantas infrações de pesca foram registradas em Santa Catarina?",
	"Mostre a evolução anual do número de autos de infração.",
	"Quais municípios têm mais infrações relacionadas a fauna?",
	"Qual o valor médio das multas por gravidade da infração?",
	"Liste 10 infratores com os maiores valores de multa e seus CNPJs.",
	"Quantos casos de tráfico de animais silvestres foram autuados por estado?",
	"Compare o total de multas por desmatamento entre Pará e Amazonas.",
}

// ExamplesHandler handles GET /api/v1/examples
type ExamplesHandler struct{}

func NewExamplesHandler() *ExamplesHandler {
	return &ExamplesHandler{}
}

// Examples handles GET /api/v1/examples
func (h *ExamplesHandler) Examples(w http.ResponseWriter, r *http.Request) {
	models.WriteJSON(w, http.StatusOK, models.ExamplesResponse{Examples: SampleQuestions})
}
