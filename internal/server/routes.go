package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/infraquery/infraquery/internal/config"
	"github.com/infraquery/infraquery/internal/handler"
	"github.com/infraquery/infraquery/internal/llm"
	"github.com/infraquery/infraquery/internal/middleware"
	"github.com/infraquery/infraquery/internal/pipeline"
	"github.com/infraquery/infraquery/internal/schema"
	"github.com/infraquery/infraquery/internal/security"
	"github.com/infraquery/infraquery/internal/store"
)

func (s *Server) setupRoutes(ctx context.Context) (http.Handler, error) {
	cfg := s.cfg

	// ─── Store ──────────────────────────────────────────────────────────────
	st, err := store.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}
	s.store = st
	s.close = append(s.close, st.Close)

	loader := schema.NewLoader(st)

	// ─── Model providers ────────────────────────────────────────────────────
	router, err := s.buildModelRouter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// ─── Audit ──────────────────────────────────────────────────────────────
	audit, err := security.NewAuditLogger(cfg.EnableAuditLogging, security.AuditSinkConfig{
		Address:  cfg.AuditIndexURL,
		Index:    cfg.AuditIndexName,
		Username: cfg.AuditIndexUser,
		Password: cfg.AuditIndexPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("audit logger: %w", err)
	}

	pipe := pipeline.New(cfg, loader, router, st, audit)

	log.Info().
		Str("backend", string(cfg.Backend)).
		Str("model_speed", string(cfg.ModelSpeed)).
		Bool("auth_enabled", cfg.EnableAuth && len(cfg.APIKeys) > 0).
		Bool("audit_logging", cfg.EnableAuditLogging).
		Bool("audit_sink", cfg.AuditIndexURL != "").
		Msg("service configuration")

	// ─── Handlers ───────────────────────────────────────────────────────────
	healthH := handler.NewHealthHandler(st)
	askH := handler.NewAskHandler(pipe)
	queryH := handler.NewQueryHandler(pipe)
	schemaH := handler.NewSchemaHandler(pipe)
	examplesH := handler.NewExamplesHandler()

	// ─── Router ─────────────────────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))
	r.Use(chiMiddleware.RealIP)

	// Public routes
	r.Get("/health", healthH.Health)
	r.Get("/", healthH.Health)

	apiMiddleware := []func(http.Handler) http.Handler{
		middleware.RateLimit(cfg.RateLimitPerMinute),
	}
	if cfg.EnableAuth && len(cfg.APIKeys) > 0 {
		apiMiddleware = append(apiMiddleware, middleware.Auth(cfg.APIKeys, cfg.APIKeyHeader))
	}

	r.Group(func(r chi.Router) {
		for _, m := range apiMiddleware {
			r.Use(m)
		}

		r.Route(cfg.APIPrefix, func(r chi.Router) {
			r.Post("/ask", askH.Ask)
			r.Post("/query", queryH.Query)
			r.Get("/schema", schemaH.Schema)
			r.Get("/examples", examplesH.Examples)
		})
	})

	return r, nil
}

// buildModelRouter assembles the provider fallback chains from whatever keys
// are configured. Groq is the fast tier; Gemini and Anthropic form the
// advanced tier in that order.
func (s *Server) buildModelRouter(ctx context.Context, cfg *config.Config) (*llm.Router, error) {
	var fast, advanced []llm.Provider

	if cfg.GroqAPIKey != "" {
		groq, err := llm.NewGroq(llm.GroqConfig{
			BaseURL: cfg.GroqBaseURL,
			APIKey:  cfg.GroqAPIKey,
			Model:   cfg.GroqModel,
			Timeout: cfg.ModelTimeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("groq provider: %w", err)
		}
		fast = append(fast, groq)
	} else {
		log.Warn().Msg("GROQ_API_KEY not set - fast provider disabled")
	}

	if cfg.GoogleAPIKey != "" {
		gemini, err := llm.NewGemini(ctx, cfg.GoogleAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("gemini provider: %w", err)
		}
		advanced = append(advanced, gemini)
		s.close = append(s.close, gemini.Close)
	} else {
		log.Warn().Msg("GOOGLE_API_KEY not set - gemini provider disabled")
	}

	if cfg.AnthropicAPIKey != "" {
		advanced = append(advanced, llm.NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicBaseURL))
	}

	router, err := llm.NewRouter(fast, advanced)
	if err != nil {
		return nil, fmt.Errorf("model router: %w", err)
	}
	return router, nil
}
