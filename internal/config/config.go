package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend selects the analytical store the generated SQL runs against.
type Backend string

const (
	BackendLocal    Backend = "local"    // DuckDB file
	BackendHosted   Backend = "hosted"   // Postgres / Supabase
	BackendBigQuery Backend = "bigquery" // Google BigQuery
)

// ModelSpeed is the caller-facing provider preference.
type ModelSpeed string

const (
	SpeedFast     ModelSpeed = "fast"     // Groq / Llama
	SpeedAdvanced ModelSpeed = "advanced" // Gemini (or Anthropic when configured)
)

type Config struct {
	// Server
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Environment string `json:"environment"`
	APIPrefix   string `json:"api_prefix"`
	LogLevel    string `json:"log_level"`

	// CORS
	CORSOrigins []string `json:"cors_origins"`

	// Auth
	APIKeyHeader string   `json:"api_key_header"`
	APIKeys      []string `json:"api_keys"`
	EnableAuth   bool     `json:"enable_auth"`

	// Rate limiting
	RateLimitPerMinute int `json:"rate_limit_per_minute"`

	// Analytical store
	Backend     Backend `json:"backend"`
	DuckDBPath  string  `json:"duckdb_path"`
	DatabaseURL string  `json:"database_url"`
	TableName   string  `json:"table_name"`

	// BigQuery (only used when Backend == "bigquery")
	GCPProjectID                 string `json:"gcp_project_id"`
	GoogleApplicationCredentials string `json:"google_application_credentials"`
	BigQueryDataset              string `json:"bigquery_dataset"`

	// Query execution
	RowLimit            int `json:"row_limit"`
	QueryTimeoutSeconds int `json:"query_timeout_seconds"`

	// Pipeline tuning
	MaxGenerationAttempts     int     `json:"max_generation_attempts"`
	DomainConfidenceThreshold float64 `json:"domain_confidence_threshold"`
	InterpreterMaxRows        int     `json:"interpreter_max_rows"`

	// Model providers
	ModelSpeed                ModelSpeed `json:"model_speed"`
	ModelTimeoutSeconds       int        `json:"model_timeout_seconds"`
	GenerationTemperature     float64    `json:"generation_temperature"`
	InterpretationTemperature float64    `json:"interpretation_temperature"`
	MaxTokens                 int        `json:"max_tokens"`

	GroqAPIKey  string `json:"groq_api_key"`
	GroqBaseURL string `json:"groq_base_url"`
	GroqModel   string `json:"groq_model"`

	GoogleAPIKey string `json:"google_api_key"`
	GeminiModel  string `json:"gemini_model"`

	AnthropicAPIKey  string `json:"anthropic_api_key"`
	AnthropicBaseURL string `json:"anthropic_base_url"`
	AnthropicModel   string `json:"anthropic_model"`

	// Audit
	EnableAuditLogging bool   `json:"enable_audit_logging"`
	AuditIndexURL      string `json:"audit_index_url"`  // Elasticsearch address, empty = log-only
	AuditIndexName     string `json:"audit_index_name"` // index for audit documents
	AuditIndexUser     string `json:"audit_index_user"`
	AuditIndexPassword string `json:"audit_index_password"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Host:                      DefaultHost,
		Port:                      DefaultPort,
		Environment:               DefaultEnvironment,
		APIPrefix:                 DefaultAPIPrefix,
		LogLevel:                  DefaultLogLevel,
		CORSOrigins:               DefaultCORSOrigins,
		APIKeyHeader:              "X-API-Key",
		RateLimitPerMinute:        DefaultRateLimitPerMinute,
		Backend:                   BackendLocal,
		DuckDBPath:                DefaultDuckDBPath,
		TableName:                 DefaultTableName,
		RowLimit:                  DefaultRowLimit,
		QueryTimeoutSeconds:       DefaultQueryTimeoutSeconds,
		MaxGenerationAttempts:     DefaultMaxGenerationAttempts,
		DomainConfidenceThreshold: DefaultDomainConfidenceThreshold,
		InterpreterMaxRows:        DefaultInterpreterMaxRows,
		ModelSpeed:                SpeedFast,
		ModelTimeoutSeconds:       DefaultModelTimeoutSeconds,
		GenerationTemperature:     DefaultGenerationTemperature,
		InterpretationTemperature: DefaultInterpretationTemperature,
		MaxTokens:                 DefaultMaxTokens,
		GroqBaseURL:               DefaultGroqBaseURL,
		GroqModel:                 DefaultGroqModel,
		GeminiModel:               DefaultGeminiModel,
		AnthropicModel:            DefaultAnthropicModel,
		EnableAuditLogging:        true,
		AuditIndexName:            DefaultAuditIndexName,
	}

	if path := getEnv("INFRAQUERY_CONFIG", ""); path != "" {
		if err := loadJSON(path, cfg); err != nil {
			return nil, fmt.Errorf("load config file %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the enumerated options once at startup so deep call
// chains never see free-form values.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLocal, BackendHosted, BackendBigQuery:
	default:
		return fmt.Errorf("invalid backend %q (expected local, hosted or bigquery)", c.Backend)
	}
	switch c.ModelSpeed {
	case SpeedFast, SpeedAdvanced:
	default:
		return fmt.Errorf("invalid model_speed %q (expected fast or advanced)", c.ModelSpeed)
	}
	if c.Backend == BackendHosted && c.DatabaseURL == "" {
		return fmt.Errorf("database_url is required for the hosted backend")
	}
	if c.Backend == BackendBigQuery && c.GCPProjectID == "" {
		return fmt.Errorf("gcp_project_id is required for the bigquery backend")
	}
	if c.MaxGenerationAttempts < 1 {
		return fmt.Errorf("max_generation_attempts must be >= 1, got %d", c.MaxGenerationAttempts)
	}
	if c.DomainConfidenceThreshold < 0 || c.DomainConfidenceThreshold > 1 {
		return fmt.Errorf("domain_confidence_threshold must be in [0,1], got %g", c.DomainConfidenceThreshold)
	}
	if c.RowLimit < 1 {
		return fmt.Errorf("row_limit must be >= 1, got %d", c.RowLimit)
	}
	if c.TableName == "" {
		return fmt.Errorf("table_name cannot be empty")
	}
	return nil
}

func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.ModelTimeoutSeconds) * time.Second
}

func loadJSON(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) {
	if v := getEnv("INFRAQUERY_HOST", ""); v != "" {
		cfg.Host = v
	}
	if v := getEnv("INFRAQUERY_PORT", ""); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := getEnv("INFRAQUERY_ENV", ""); v != "" {
		cfg.Environment = v
	}
	if v := getEnv("INFRAQUERY_LOG_LEVEL", ""); v != "" {
		cfg.LogLevel = v
	}
	if v := getEnv("INFRAQUERY_API_KEYS", ""); v != "" {
		cfg.APIKeys = strings.Split(v, ",")
		cfg.EnableAuth = true
	}
	if v := getEnv("INFRAQUERY_BACKEND", ""); v != "" {
		cfg.Backend = Backend(v)
	}
	if v := getEnv("INFRAQUERY_MODEL_SPEED", ""); v != "" {
		cfg.ModelSpeed = ModelSpeed(v)
	}
	if v := getEnv("DB_PATH", ""); v != "" {
		cfg.DuckDBPath = v
	}
	if v := getEnv("DATABASE_URL", ""); v != "" {
		cfg.DatabaseURL = v
	}
	if v := getEnv("GCP_PROJECT_ID", ""); v != "" {
		cfg.GCPProjectID = v
	}
	if v := getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""); v != "" {
		cfg.GoogleApplicationCredentials = v
	}
	if v := getEnv("GROQ_API_KEY", ""); v != "" {
		cfg.GroqAPIKey = v
	}
	if v := getEnv("GOOGLE_API_KEY", ""); v != "" {
		cfg.GoogleAPIKey = v
	}
	if v := getEnv("ANTHROPIC_API_KEY", ""); v != "" {
		cfg.AnthropicAPIKey = v
	}
	if v := getEnv("ANTHROPIC_BASE_URL", ""); v != "" {
		cfg.AnthropicBaseURL = v
	}
	if v := getEnv("INFRAQUERY_ROW_LIMIT", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RowLimit = n
		}
	}
	if v := getEnv("INFRAQUERY_MAX_ATTEMPTS", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxGenerationAttempts = n
		}
	}
	if v := getEnv("INFRAQUERY_DOMAIN_THRESHOLD", ""); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.DomainConfidenceThreshold = f
		}
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitPerMinute = n
		}
	}
	if v := getEnv("AUDIT_INDEX_URL", ""); v != "" {
		cfg.AuditIndexURL = v
	}
	if v := getEnv("AUDIT_INDEX_USER", ""); v != "" {
		cfg.AuditIndexUser = v
	}
	if v := getEnv("AUDIT_INDEX_PASSWORD", ""); v != "" {
		cfg.AuditIndexPassword = v
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
