package config

const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 8000
	DefaultEnvironment = "development"
	DefaultAPIPrefix   = "/api/v1"
	DefaultLogLevel    = "info"

	DefaultRateLimitPerMinute = 60

	DefaultDuckDBPath = "data/ibama_infracao.db"
	DefaultTableName  = "ibama_infracao"

	DefaultRowLimit            = 500
	DefaultQueryTimeoutSeconds = 30

	DefaultMaxGenerationAttempts     = 3
	DefaultDomainConfidenceThreshold = 0.5
	DefaultInterpreterMaxRows        = 50

	DefaultModelTimeoutSeconds       = 45
	DefaultGenerationTemperature     = 0.0
	DefaultInterpretationTemperature = 0.2
	DefaultMaxTokens                 = 1024

	DefaultGroqBaseURL = "https://api.groq.com/openai"
	DefaultGroqModel   = "llama-3.1-70b-versatile"

	DefaultGeminiModel    = "gemini-1.5-pro"
	DefaultAnthropicModel = "claude-sonnet-4-5"

	DefaultAuditIndexName = "infraquery-audit"

	DefaultMaxQuestionLength = 2000
)

var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
}
