package models

// AskRequest for POST /api/v1/ask
type AskRequest struct {
	Question   string `json:"question"`
	ModelSpeed string `json:"model_speed,omitempty"` // "fast" | "advanced"
	Domain     string `json:"domain,omitempty"`      // force a sub-domain view
}

// QueryRequest for POST /api/v1/query (direct SQL explorer)
type QueryRequest struct {
	SQL string `json:"sql"`
}
