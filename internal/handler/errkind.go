package handler

import (
	"net/http"

	"github.com/dbquery-gateway/gateway/internal/errs"
)

// statusForKind maps a gateway error kind onto the HTTP status a client
// should see. Kinds not listed here fall back to 500.
var statusForKind = map[errs.Kind]int{
	errs.KindConfigError:          http.StatusBadRequest,
	errs.KindUnknownDB:            http.StatusNotFound,
	errs.KindSchemaUnavailable:    http.StatusServiceUnavailable,
	errs.KindLLMUnavailable:       http.StatusServiceUnavailable,
	errs.KindLLMParseError:        http.StatusBadGateway,
	errs.KindRateLimited:          http.StatusTooManyRequests,
	errs.KindParseError:           http.StatusUnprocessableEntity,
	errs.KindNotReadonly:          http.StatusForbidden,
	errs.KindBlockedFunction:      http.StatusForbidden,
	errs.KindDisallowedIdentifier: http.StatusForbidden,
	errs.KindMultipleStatements:   http.StatusUnprocessableEntity,
	errs.KindEmptyStatement:       http.StatusUnprocessableEntity,
	errs.KindUnsafeSQL:            http.StatusForbidden,
	errs.KindTimeout:              http.StatusGatewayTimeout,
	errs.KindPoolExhausted:        http.StatusServiceUnavailable,
	errs.KindPoolClosing:          http.StatusServiceUnavailable,
	errs.KindConnectFailed:        http.StatusBadGateway,
	errs.KindDBError:              http.StatusBadGateway,
	errs.KindTruncatedBeyondCap:   http.StatusOK,
	errs.KindPoolError:            http.StatusServiceUnavailable,
	errs.KindCircuitOpen:          http.StatusServiceUnavailable,
	errs.KindInternalError:        http.StatusInternalServerError,
}

func statusForError(e *errs.Error) int {
	if e == nil {
		return http.StatusOK
	}
	if code, ok := statusForKind[e.Kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}
