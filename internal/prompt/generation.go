// Package prompt assembles the text payloads sent to the LLM client
// for SQL generation and result judging.
package prompt

import (
	"fmt"
	"strings"

	"github.com/dbquery-gateway/gateway/internal/dbregistry"
	"github.com/dbquery-gateway/gateway/internal/schema"
)

// GenerationSystemPrompt is dialect-parameterized so the same template
// serves both Postgres and MySQL targets.
func GenerationSystemPrompt(dialect dbregistry.Dialect) string {
	flavor := "PostgreSQL"
	if dialect == dbregistry.DialectMySQL {
		flavor = "MySQL"
	}
	fence := "```"
	return fmt.Sprintf(`You are a %s SQL expert.

Your task is to convert natural language questions into a single valid, read-only %s query.

## Rules:
1. ONLY generate SELECT queries or CTE (WITH ... SELECT) queries.
2. NEVER generate INSERT, UPDATE, DELETE, DROP, CREATE, ALTER, or any DDL/DML statement.
3. Generate exactly one statement. Never separate multiple statements with a semicolon.
4. Use proper %s syntax and functions.
5. Always use explicit table aliases for clarity.
6. Include an explicit LIMIT clause for result sets that could be large.
7. Handle NULL values appropriately.
8. Reference only the tables and columns given in the schema below.

## Output Format:
Return ONLY the SQL query wrapped in a %ssql ... %s code block. Do not include
any explanation before or after the query.`, flavor, flavor, flavor, fence, fence)
}

// GenerationUserPrompt assembles the question, schema context, and any
// remediation hint from a prior failed attempt into the user-turn
// payload.
func GenerationUserPrompt(question string, snap schema.Snapshot, extraContext, previousAttempt, errorFeedback string) string {
	var parts []string

	parts = append(parts, "## Database Schema:")
	parts = append(parts, snap.ToPromptContext())
	parts = append(parts, "")

	if extraContext != "" {
		parts = append(parts, "## Additional Context:", extraContext, "")
	}

	if previousAttempt != "" && errorFeedback != "" {
		parts = append(parts,
			"## Previous Attempt (Failed):",
			fmt.Sprintf("```sql\n%s\n```", previousAttempt),
			fmt.Sprintf("Error: %s", errorFeedback),
			"Please fix the issue and generate a correct query.",
			"",
		)
	}

	parts = append(parts, "## Question:", question)

	return strings.Join(parts, "\n")
}

// ExtractSQL pulls the SQL text out of a ```sql fenced block in the
// LLM's response. Returns the trimmed raw response if no fence is
// present, so callers still get a parse error from the safety
// validator rather than a silently empty string.
func ExtractSQL(response string) string {
	const fence = "```"
	start := strings.Index(response, fence)
	if start == -1 {
		return strings.TrimSpace(response)
	}
	rest := response[start+len(fence):]
	if nl := strings.Index(rest, "\n"); nl != -1 {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, fence)
	if end == -1 {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(rest[:end])
}
