package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/dbquery-gateway/gateway/internal/config"
	"github.com/dbquery-gateway/gateway/internal/dbpool"
	"github.com/dbquery-gateway/gateway/internal/dbregistry"
	"github.com/dbquery-gateway/gateway/internal/executor"
	"github.com/dbquery-gateway/gateway/internal/handler"
	"github.com/dbquery-gateway/gateway/internal/judge"
	"github.com/dbquery-gateway/gateway/internal/llm"
	"github.com/dbquery-gateway/gateway/internal/middleware"
	"github.com/dbquery-gateway/gateway/internal/observability"
	"github.com/dbquery-gateway/gateway/internal/orchestrator"
	"github.com/dbquery-gateway/gateway/internal/schema"
	"github.com/dbquery-gateway/gateway/internal/security"
)

// setupRoutes returns (router, pools, error) so pools can be drained on
// shutdown.
func (s *Server) setupRoutes() (http.Handler, *dbpool.Manager, error) {
	cfg := s.cfg

	registry, err := dbregistry.FromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	pools := dbpool.NewManager(registry)

	cache := schema.NewCache(schemaFetcher(registry, pools), time.Duration(cfg.Cache.SchemaTTLSeconds)*time.Second)
	if cfg.Cache.RefreshBackground {
		cache.StartBackgroundRefresh(time.Duration(cfg.Cache.SchemaTTLSeconds) * time.Second)
	}

	if cfg.LLM.APIKey == "" {
		log.Warn().Msg("ANTHROPIC_API_KEY not set - SQL generation will fail at request time")
	}
	llmClient := llm.New(cfg.LLM.APIKey, cfg.LLM.BaseURL, llm.Config{
		Model:            cfg.LLM.Model,
		MaxTokens:        cfg.LLM.MaxTokens,
		Temperature:      cfg.LLM.Temperature,
		Timeout:          time.Duration(cfg.LLM.TimeoutS) * time.Second,
		MaxRetries:       cfg.Resilience.MaxRetries,
		BaseDelay:        time.Duration(cfg.Resilience.BaseDelayMs) * time.Millisecond,
		BackoffFactor:    cfg.Resilience.Backoff,
		BreakerThreshold: cfg.Resilience.BreakerThreshold,
		BreakerCooldown:  time.Duration(cfg.Resilience.BreakerCooldownS) * time.Second,
		RateLimitRPS:     cfg.Resilience.RateLimitRPS,
		RateLimitBurst:   cfg.Resilience.RateLimitBurst,
	})

	exec := executor.New(pools)
	judgeValidator := judge.New(llmClient, cfg.LLM.JudgeEnabled, cfg.LLM.JudgeSampleRows)

	orch := orchestrator.New(registry, cache, llmClient, exec, judgeValidator,
		orchestrator.RetryPolicy{
			BaseDelay:     time.Duration(cfg.Resilience.BaseDelayMs) * time.Millisecond,
			BackoffFactor: cfg.Resilience.Backoff,
		},
		securityPolicyFor(cfg),
	)

	masker := security.NewDataMasker(cfg.Security.SensitiveColumns)
	auditLogger := security.NewAuditLogger(cfg.EnableAuditLogging)

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	healthH := handler.NewHealthHandler(pools)
	databasesH := handler.NewDatabasesHandler(registry, cache)
	queryH := handler.NewQueryHandler(orch, masker, auditLogger, metrics, cfg.Security.MaskPII)

	log.Info().
		Int("databases", len(registry.List())).
		Bool("llm_configured", cfg.LLM.APIKey != "").
		Bool("auth_enabled", cfg.EnableAuth && len(cfg.APIKeys) > 0).
		Bool("data_masking", cfg.Security.MaskPII).
		Bool("audit_logging", cfg.EnableAuditLogging).
		Bool("judging", cfg.LLM.JudgeEnabled).
		Msg("service configuration")

	if len(registry.List()) == 0 {
		log.Warn().Msg("no databases registered - /query will always return unknown_db")
	}
	if cfg.EnableAuth && len(cfg.APIKeys) == 0 {
		log.Warn().Msg("auth enabled but no API keys configured - all API requests will be rejected")
	}

	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins, cfg.APIKeyHeader)))
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Timeout(config.DefaultRequestDeadline))

	r.Get("/health", healthH.Health)
	r.Get("/", healthH.Health)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

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
			r.Post("/query", queryH.Execute)
			r.Get("/databases", databasesH.List)
			r.Post("/databases/{name}/refresh", databasesH.Refresh)
		})
	})

	return r, pools, nil
}

func schemaFetcher(registry *dbregistry.Registry, pools *dbpool.Manager) schema.Fetcher {
	return func(ctx context.Context, dbName string) (schema.Snapshot, error) {
		desc, ok := registry.Get(dbName)
		if !ok {
			return schema.Snapshot{}, fmt.Errorf("database %q is not registered", dbName)
		}
		pg, db, gerr := pools.RawHandles(ctx, dbName)
		if gerr != nil {
			return schema.Snapshot{}, gerr
		}
		switch desc.Dialect {
		case dbregistry.DialectPostgres:
			return schema.IntrospectPostgres(ctx, pg, dbName)
		case dbregistry.DialectMySQL:
			return schema.IntrospectMySQL(ctx, db, dbName, "")
		default:
			return schema.Snapshot{}, fmt.Errorf("unsupported dialect %q", desc.Dialect)
		}
	}
}

func securityPolicyFor(cfg *config.Config) func(dbregistry.Descriptor) orchestrator.SecurityPolicy {
	return func(desc dbregistry.Descriptor) orchestrator.SecurityPolicy {
		blocked := config.BlockedFunctionsFor(string(desc.Dialect), cfg.Security.BlockedFunctions)
		maxRows := desc.RowCap
		if maxRows == 0 {
			maxRows = cfg.Security.MaxRows
		}
		return orchestrator.SecurityPolicy{
			AllowWrite:       cfg.Security.AllowWrite,
			AllowExplain:     cfg.Security.AllowExplain,
			BlockedFunctions: blocked,
			AllowedTables:    cfg.Security.AllowedTables,
			MaxRows:          maxRows,
		}
	}
}
