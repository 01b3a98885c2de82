package handler

import (
	"net/http"
	"testing"

	"github.com/dbquery-gateway/gateway/internal/errs"
)

func TestStatusForErrorNil(t *testing.T) {
	if got := statusForError(nil); got != http.StatusOK {
		t.Errorf("expected 200 for nil error, got %d", got)
	}
}

func TestStatusForErrorKnownKinds(t *testing.T) {
	cases := map[errs.Kind]int{
		errs.KindUnknownDB:       http.StatusNotFound,
		errs.KindNotReadonly:     http.StatusForbidden,
		errs.KindRateLimited:     http.StatusTooManyRequests,
		errs.KindTimeout:         http.StatusGatewayTimeout,
		errs.KindTruncatedBeyondCap: http.StatusOK,
	}
	for kind, want := range cases {
		e := errs.New(kind, "boom")
		if got := statusForError(e); got != want {
			t.Errorf("kind %s: expected %d, got %d", kind, want, got)
		}
	}
}

func TestStatusForErrorUnmappedKind(t *testing.T) {
	e := errs.New(errs.Kind("some_future_kind"), "boom")
	if got := statusForError(e); got != http.StatusInternalServerError {
		t.Errorf("expected 500 for unmapped kind, got %d", got)
	}
}
