// Package server assembles the HTTP service: collaborators, routes and the
// lifecycle around them.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/infraquery/infraquery/internal/config"
	"github.com/infraquery/infraquery/internal/store"
)

type Server struct {
	cfg   *config.Config
	http  *http.Server
	store store.Store
	close []func() error
}

func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	s := &Server{cfg: cfg}

	router, err := s.setupRoutes(ctx)
	if err != nil {
		return nil, fmt.Errorf("setup routes: %w", err)
	}

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Run serves until ctx is canceled, then shuts down gracefully and closes
// the store and provider clients.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.http.Addr).Msg("server listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("graceful shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := s.http.Shutdown(shutdownCtx)
		s.closeAll()
		return err
	case err := <-errCh:
		s.closeAll()
		return err
	}
}

func (s *Server) closeAll() {
	for _, fn := range s.close {
		if err := fn(); err != nil {
			log.Warn().Err(err).Msg("error closing resource")
		}
	}
}
