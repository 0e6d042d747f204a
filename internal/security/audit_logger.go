package security

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/rs/zerolog/log"
)

// AuditEvent is one pipeline invocation record. Question and SQL are hashed:
// the audit trail proves what ran without retaining user text.
type AuditEvent struct {
	Timestamp      time.Time `json:"timestamp"`
	QuestionID     string    `json:"question_id"`
	QuestionHash   string    `json:"question_hash"`
	SQLHash        string    `json:"sql_hash,omitempty"`
	DomainTag      string    `json:"domain_tag"`
	Provider       string    `json:"provider,omitempty"`
	Attempts       int       `json:"attempts"`
	RowCount       int       `json:"row_count"`
	DurationMillis int64     `json:"duration_ms"`
	Success        bool      `json:"success"`
	ErrorKind      string    `json:"error_kind,omitempty"`
}

// AuditSinkConfig configures the optional Elasticsearch sink.
type AuditSinkConfig struct {
	Address  string // empty disables the sink; events still go to the log
	Index    string
	Username string
	Password string
}

// AuditLogger records pipeline invocations to the structured log and,
// when configured, indexes them into Elasticsearch for operators.
type AuditLogger struct {
	enabled bool
	index   string
	es      *elasticsearch.Client
}

func NewAuditLogger(enabled bool, sink AuditSinkConfig) (*AuditLogger, error) {
	a := &AuditLogger{enabled: enabled, index: sink.Index}
	if !enabled || sink.Address == "" {
		return a, nil
	}

	cfg := elasticsearch.Config{Addresses: []string{sink.Address}}
	if sink.Username != "" {
		cfg.Username = sink.Username
		cfg.Password = sink.Password
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	a.es = client
	return a, nil
}

// Record logs the event and ships it to the sink when one is configured.
// Sink failures are logged and swallowed: auditing never fails a request.
func (a *AuditLogger) Record(ctx context.Context, evt AuditEvent) {
	if !a.enabled {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	log.Info().
		Str("event", "ask_audit").
		Str("question_id", evt.QuestionID).
		Str("question_hash", evt.QuestionHash).
		Str("sql_hash", evt.SQLHash).
		Str("domain_tag", evt.DomainTag).
		Str("provider", evt.Provider).
		Int("attempts", evt.Attempts).
		Int("row_count", evt.RowCount).
		Int64("duration_ms", evt.DurationMillis).
		Bool("success", evt.Success).
		Str("error_kind", evt.ErrorKind).
		Msg("audit")

	if a.es == nil {
		return
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return
	}
	res, err := a.es.Index(a.index, bytes.NewReader(body),
		a.es.Index.WithContext(ctx),
		a.es.Index.WithDocumentID(evt.QuestionID),
	)
	if err != nil {
		log.Warn().Err(err).Msg("audit sink index failed")
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		log.Warn().Str("status", res.Status()).Msg("audit sink rejected document")
	}
}

// HashText returns the first 16 hex chars of the SHA-256 of s, the audit
// trail's stand-in for raw text.
func HashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}
