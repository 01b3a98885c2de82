// Package judge scores an executed query's result against the
// original question via a single LLM call, degrading gracefully when
// judging is disabled or fails rather than failing the overall
// request.
package judge

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dbquery-gateway/gateway/internal/llm"
	"github.com/dbquery-gateway/gateway/internal/prompt"
)

// Confidence is the judge's verdict. Score is nil when judging was
// disabled or failed: the gateway's contract with callers is "we
// don't know" rather than a false signal of high confidence.
type Confidence struct {
	Score      *int
	Rationale  string
	Suggestion string
}

func unjudged(reason string) Confidence {
	return Confidence{Rationale: reason}
}

// Validator wraps an llm.Client to produce judgments; nil disables
// judging entirely.
type Validator struct {
	client   *llm.Client
	enabled  bool
	sampleN  int
}

func New(client *llm.Client, enabled bool, sampleRows int) *Validator {
	return &Validator{client: client, enabled: enabled, sampleN: sampleRows}
}

// Judge scores the result set. rows is the already-serialized row
// sample (map form, ready for JSON) the caller has prepared from the
// executor's canonical rows; totalRows is the pre-truncation count.
func (v *Validator) Judge(ctx context.Context, question, sql string, rows []map[string]any, totalRows int) Confidence {
	if !v.enabled || v.client == nil {
		return unjudged("judging disabled")
	}

	sample := rows
	if len(sample) > v.sampleN {
		sample = sample[:v.sampleN]
	}

	userPrompt := prompt.JudgeUserPrompt(question, sql, sample, totalRows)
	raw, err := v.client.JudgeResult(ctx, prompt.JudgeSystemPrompt, userPrompt)
	if err != nil {
		log.Warn().Err(err).Msg("judge call failed, degrading to unjudged")
		return unjudged("unjudged")
	}

	verdict, err := llm.ParseJudgeVerdict(raw)
	if err != nil {
		log.Warn().Err(err).Msg("judge response unparseable, degrading to unjudged")
		return unjudged("unjudged")
	}

	score := verdict.Confidence
	return Confidence{Score: &score, Rationale: verdict.Rationale, Suggestion: verdict.Suggestion}
}
