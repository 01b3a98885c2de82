package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
)

const JudgeSystemPrompt = `You are a SQL query result validator. Your task is to evaluate whether the query results match the user's original question.

Analyze:
1. Does the SQL query correctly interpret the user's intent?
2. Do the results make sense given the question?
3. Are there any obvious errors or mismatches?
4. Are the column names and data types appropriate for the question?
5. Does the result set size seem reasonable for the question?

Return a JSON object with:
{
  "confidence": <0-100 integer>,
  "explanation": "<brief explanation of why the results match or don't match>",
  "suggestion": "<optional improvement suggestion or null>"
}

Confidence levels:
- 90-100: Results clearly match the question, SQL is well-formed and accurate
- 70-89: Results likely match, minor uncertainties or potential improvements exist
- 50-69: Results may not fully match, significant concerns or ambiguities present
- 0-49: Results likely don't match the question, major issues detected

Be concise but specific in your explanation. Focus on semantic correctness rather than minor formatting issues.`

// JudgeUserPrompt assembles the question, executed SQL, and a row
// sample (never the full result set — result size is bounded by
// sampleRows) into the validation turn. Ported from the original
// prototype's build_validation_prompt.
func JudgeUserPrompt(question, sql string, sampleRows []map[string]any, totalRows int) string {
	preview, err := json.MarshalIndent(sampleRows, "", "  ")
	if err != nil {
		preview = []byte("[]")
	}

	parts := []string{
		"## Original Question:",
		question,
		"",
		"## Executed SQL:",
		"```sql",
		sql,
		"```",
		"",
		fmt.Sprintf("## Results (showing %d of %d rows):", len(sampleRows), totalRows),
		"```json",
		string(preview),
		"```",
		"",
		"Please evaluate if the results match the user's question and return your assessment as a JSON object.",
	}
	return strings.Join(parts, "\n")
}
