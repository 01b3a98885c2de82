package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dbquery-gateway/gateway/internal/config"
	"github.com/dbquery-gateway/gateway/internal/dbpool"
	"github.com/rs/zerolog/log"
)

type Server struct {
	cfg   *config.Config
	http  *http.Server
	pools *dbpool.Manager
}

func New(cfg *config.Config) (*Server, error) {
	s := &Server{cfg: cfg}

	router, pools, err := s.setupRoutes()
	if err != nil {
		return nil, fmt.Errorf("setup routes: %w", err)
	}
	s.pools = pools

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("graceful shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.Shutdown.DeadlineS)*time.Second)
		defer cancel()

		err := s.http.Shutdown(shutdownCtx)

		for _, outcome := range s.pools.CloseAll(shutdownCtx, time.Duration(s.cfg.Shutdown.DeadlineS)*time.Second) {
			if outcome.Err != nil {
				log.Warn().Str("database", outcome.Name).Err(outcome.Err).Msg("pool did not close gracefully")
			} else {
				log.Info().Str("database", outcome.Name).Msg("pool closed")
			}
		}

		return err
	case err := <-errCh:
		return err
	}
}
