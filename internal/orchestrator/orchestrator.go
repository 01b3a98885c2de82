// Package orchestrator drives the end-to-end query pipeline: given a
// natural language question, resolve the target database, generate
// and validate SQL, execute it, and score the result.
package orchestrator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dbquery-gateway/gateway/internal/config"
	"github.com/dbquery-gateway/gateway/internal/dbregistry"
	"github.com/dbquery-gateway/gateway/internal/errs"
	"github.com/dbquery-gateway/gateway/internal/executor"
	"github.com/dbquery-gateway/gateway/internal/judge"
	"github.com/dbquery-gateway/gateway/internal/llm"
	"github.com/dbquery-gateway/gateway/internal/prompt"
	"github.com/dbquery-gateway/gateway/internal/schema"
	"github.com/dbquery-gateway/gateway/internal/sqlsafety"
)

type ReturnType string

const (
	ReturnSQL    ReturnType = "sql"
	ReturnResult ReturnType = "result"
)

type Request struct {
	Question   string
	Database   string
	ReturnType ReturnType
	Context    string
}

type Response struct {
	Success      bool
	RequestID    string
	Database     string
	GeneratedSQL string
	Data         *executor.QueryResult
	Confidence   judge.Confidence
	Error        *errs.Error
	DurationMs   int64
	Stats        Stats
}

// Stats breaks the total request duration down per pipeline stage, so
// callers can see where time went rather than just the aggregate.
type Stats struct {
	SchemaMs   int64
	GenerateMs int64
	ValidateMs int64
	ExecuteMs  int64
	JudgeMs    int64
	Retries    int
}

// RetryPolicy configures the backoff between SQL-remediation attempts.
// The number of attempts itself is fixed by config.DefaultRemediationBudget,
// not by this policy: remediation (re-prompting the model with a validation
// error) and transient-provider retry (internal/llm's own backoff around a
// single call) are separate budgets and must not share a knob.
type RetryPolicy struct {
	BaseDelay     time.Duration
	BackoffFactor float64
}

type SecurityPolicy struct {
	AllowWrite       bool
	AllowExplain     bool
	BlockedFunctions []string
	AllowedTables    []string
	MaxRows          int
}

// Orchestrator wires every other component behind the single
// execute-a-question entry point.
type Orchestrator struct {
	registry *dbregistry.Registry
	cache    *schema.Cache
	llm      *llm.Client
	exec     *executor.Executor
	judge    *judge.Validator
	retry    RetryPolicy
	security func(dbregistry.Descriptor) SecurityPolicy
}

func New(
	registry *dbregistry.Registry,
	cache *schema.Cache,
	llmClient *llm.Client,
	exec *executor.Executor,
	judgeValidator *judge.Validator,
	retry RetryPolicy,
	security func(dbregistry.Descriptor) SecurityPolicy,
) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		cache:    cache,
		llm:      llmClient,
		exec:     exec,
		judge:    judgeValidator,
		retry:    retry,
		security: security,
	}
}

// Execute runs the full pipeline. Every error path returns a Response
// with Success=false and Error populated rather than a Go error, so
// the HTTP layer always has a structured body to serialize and no
// failure mode escapes as a panic or bare error.
func (o *Orchestrator) Execute(ctx context.Context, req Request) Response {
	requestID := uuid.NewString()
	start := time.Now()
	logger := log.With().Str("request_id", requestID).Logger()
	logger.Info().Str("question", truncate(req.Question, 100)).Msg("starting query execution")

	ctx, cancel := context.WithTimeout(ctx, config.DefaultRequestDeadline)
	defer cancel()

	resp := Response{RequestID: requestID}
	finish := func() Response {
		resp.DurationMs = time.Since(start).Milliseconds()
		return resp
	}

	// S0: resolve database
	desc, err := o.registry.Resolve(req.Database)
	if err != nil {
		return finish2(resp, requestID, asGatewayError(err, errs.KindUnknownDB))
	}
	resp.Database = desc.Name

	// S1: load schema
	schemaCtx, schemaCancel := context.WithTimeout(ctx, config.DefaultSchemaSubBudget)
	schemaStart := time.Now()
	snap, err := o.cache.Get(schemaCtx, desc.Name)
	resp.Stats.SchemaMs = time.Since(schemaStart).Milliseconds()
	schemaCancel()
	if err != nil {
		return finish2(resp, requestID, errs.Wrap(errs.KindSchemaUnavailable, err, fmt.Sprintf("failed to load schema for %q", desc.Name)))
	}

	// S2/S3: generate + validate SQL, with one remediation retry
	policy := o.security(desc)
	genCtx, genCancel := context.WithTimeout(ctx, config.DefaultGenerateSubBudget)
	validated, generatedText, stageStats, gerr := o.generateWithRetry(genCtx, req, desc, snap, policy, &logger)
	genCancel()
	resp.Stats.GenerateMs = stageStats.GenerateMs
	resp.Stats.ValidateMs = stageStats.ValidateMs
	resp.Stats.Retries = stageStats.Retries
	if gerr != nil {
		return finish2(resp, requestID, gerr)
	}
	resp.GeneratedSQL = generatedText

	// S4: SQL-only requests stop here
	if req.ReturnType == ReturnSQL {
		resp.Success = true
		hundred := 100
		resp.Confidence = judge.Confidence{Score: &hundred, Rationale: "sql_only"}
		return finish()
	}

	// S4: execute
	execCtx, execCancel := context.WithTimeout(ctx, config.DefaultExecuteSubBudget)
	execStart := time.Now()
	result, gerr := o.exec.Execute(execCtx, desc.Name, validated, desc.Dialect, desc.StatementTimeoutS, desc.RowCap)
	resp.Stats.ExecuteMs = time.Since(execStart).Milliseconds()
	execCancel()
	if gerr != nil {
		return finish2(resp, requestID, gerr)
	}
	resp.Data = &result

	// S5: judge a non-empty result (never fails the request)
	resp.Success = true
	if result.RowCount > 0 {
		judgeCtx, judgeCancel := context.WithTimeout(ctx, config.DefaultJudgeSubBudget)
		judgeStart := time.Now()
		sample := sampleRows(result, 20)
		resp.Confidence = o.judge.Judge(judgeCtx, req.Question, generatedText, sample, result.RowCount)
		resp.Stats.JudgeMs = time.Since(judgeStart).Milliseconds()
		judgeCancel()
	} else {
		resp.Confidence = judge.Confidence{Rationale: "empty_result"}
	}
	return finish()
}

func finish2(resp Response, requestID string, gerr *errs.Error) Response {
	gerr = gerr.WithRequestID(requestID)
	log.Warn().Str("request_id", requestID).Str("kind", string(gerr.Kind)).Msg("query execution failed")
	resp.Error = gerr
	resp.Success = false
	return resp
}

func asGatewayError(err error, fallback errs.Kind) *errs.Error {
	if ge, ok := errs.As(err); ok {
		return ge
	}
	return errs.Wrap(fallback, err, err.Error())
}

// generateWithRetry loops generate -> validate, feeding validation
// failures back to the model as error feedback on each retry. The loop
// runs at most config.DefaultRemediationBudget+1 times total: the first
// attempt plus one remediation cycle. Transient provider failures
// (timeouts, rate limits) are retried inside internal/llm itself and
// surface here as a plain error, not looped over again.
func (o *Orchestrator) generateWithRetry(ctx context.Context, req Request, desc dbregistry.Descriptor, snap schema.Snapshot, policy SecurityPolicy, logger *zerolog.Logger) (sqlsafety.ValidatedSQL, string, Stats, *errs.Error) {
	systemPrompt := prompt.GenerationSystemPrompt(desc.Dialect)
	var previousAttempt, errorFeedback string
	delay := o.retry.BaseDelay
	var stats Stats

	for attempt := 0; attempt <= config.DefaultRemediationBudget; attempt++ {
		stats.Retries = attempt
		userPrompt := prompt.GenerationUserPrompt(req.Question, snap, req.Context, previousAttempt, errorFeedback)

		genStart := time.Now()
		raw, err := o.llm.GenerateSQL(ctx, systemPrompt, userPrompt)
		stats.GenerateMs += time.Since(genStart).Milliseconds()
		if err != nil {
			return sqlsafety.ValidatedSQL{}, "", stats, asGatewayError(err, errs.KindLLMUnavailable)
		}
		candidate := prompt.ExtractSQL(raw)

		valStart := time.Now()
		validated, gerr := sqlsafety.Validate(candidate, sqlsafety.Options{
			Dialect:          desc.Dialect,
			AllowWrite:       policy.AllowWrite,
			AllowExplain:     policy.AllowExplain,
			BlockedFunctions: policy.BlockedFunctions,
			AllowedTables:    policy.AllowedTables,
			MaxRows:          policy.MaxRows,
		})
		stats.ValidateMs += time.Since(valStart).Milliseconds()
		if gerr == nil {
			return validated, validated.String(), stats, nil
		}

		if attempt == config.DefaultRemediationBudget {
			return sqlsafety.ValidatedSQL{}, "", stats, errs.Wrap(errs.KindUnsafeSQL, gerr, "generated SQL failed safety validation after remediation").
				WithDetail("last_validation_kind", string(gerr.Kind))
		}

		previousAttempt = candidate
		errorFeedback = gerr.Message
		select {
		case <-ctx.Done():
			return sqlsafety.ValidatedSQL{}, "", stats, errs.Wrap(errs.KindTimeout, ctx.Err(), "context cancelled during sql generation retry")
		case <-time.After(delay):
		}
		delay = time.Duration(math.Round(float64(delay) * o.retry.BackoffFactor))
	}

	return sqlsafety.ValidatedSQL{}, "", stats, errs.New(errs.KindUnsafeSQL, "sql generation failed after all remediation attempts")
}

func sampleRows(r executor.QueryResult, n int) []map[string]any {
	if n > len(r.Rows) {
		n = len(r.Rows)
	}
	out := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		row := make(map[string]any, len(r.Columns))
		for j, col := range r.Columns {
			row[col.Name] = r.Rows[i][j].Raw
		}
		out = append(out, row)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
