// Package security holds result-data masking and query audit logging:
// the supporting security surfaces around the load-bearing safety
// boundary in internal/sqlsafety.
package security

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dbquery-gateway/gateway/internal/executor"
)

var (
	emailRe      = regexp.MustCompile(`(?i)email`)
	phoneRe      = regexp.MustCompile(`(?i)phone`)
	ssnRe        = regexp.MustCompile(`(?i)ssn|social_security`)
	creditCardRe = regexp.MustCompile(`(?i)credit_card|card_number`)
	fullMaskRe   = regexp.MustCompile(`(?i)password|secret|token|api_key|access_key|private_key`)
)

// DataMasker masks sensitive column values in a QueryResult before it
// leaves the gateway.
type DataMasker struct {
	sensitiveColumns []string
}

func NewDataMasker(sensitiveColumns []string) *DataMasker {
	return &DataMasker{sensitiveColumns: sensitiveColumns}
}

// Mask returns a copy of result with sensitive columns replaced by
// masked text values. Non-sensitive columns and their tags are left
// untouched.
func (m *DataMasker) Mask(result executor.QueryResult) executor.QueryResult {
	sensitiveIdx := make(map[int]bool)
	for i, col := range result.Columns {
		if m.isSensitive(col.Name) {
			sensitiveIdx[i] = true
		}
	}
	if len(sensitiveIdx) == 0 {
		return result
	}

	maskedRows := make([][]executor.Value, len(result.Rows))
	for r, row := range result.Rows {
		newRow := make([]executor.Value, len(row))
		copy(newRow, row)
		for i := range newRow {
			if sensitiveIdx[i] && newRow[i].Tag != executor.TagNull {
				newRow[i] = executor.Value{
					Tag: executor.TagText,
					Raw: m.maskValue(result.Columns[i].Name, fmt.Sprintf("%v", newRow[i].Raw)),
				}
			}
		}
		maskedRows[r] = newRow
	}
	result.Rows = maskedRows
	return result
}

func (m *DataMasker) isSensitive(col string) bool {
	lower := strings.ToLower(col)
	for _, s := range m.sensitiveColumns {
		if strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	return emailRe.MatchString(col) || phoneRe.MatchString(col) ||
		ssnRe.MatchString(col) || creditCardRe.MatchString(col) || fullMaskRe.MatchString(col)
}

func (m *DataMasker) maskValue(col, val string) string {
	lower := strings.ToLower(col)
	switch {
	case emailRe.MatchString(lower):
		return maskEmail(val)
	case phoneRe.MatchString(lower):
		return maskPhone(val)
	case ssnRe.MatchString(lower):
		return "***-**-****"
	case creditCardRe.MatchString(lower):
		return maskCreditCard(val)
	default:
		return "***"
	}
}

func maskEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***"
	}
	local := parts[0]
	domain := parts[1]

	visible := 2
	if len(local) < visible {
		visible = len(local)
	}
	maskedLocal := local[:visible] + "***"

	domainParts := strings.Split(domain, ".")
	ext := domainParts[len(domainParts)-1]
	return fmt.Sprintf("%s@***.%s", maskedLocal, ext)
}

func maskPhone(phone string) string {
	digits := ""
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			digits += string(c)
		}
	}
	if len(digits) < 4 {
		return "***-***-****"
	}
	last4 := digits[len(digits)-4:]
	return fmt.Sprintf("***-***-%s", last4)
}

func maskCreditCard(cc string) string {
	digits := ""
	for _, c := range cc {
		if c >= '0' && c <= '9' {
			digits += string(c)
		}
	}
	if len(digits) < 4 {
		return "****-****-****-****"
	}
	last4 := digits[len(digits)-4:]
	return fmt.Sprintf("****-****-****-%s", last4)
}
