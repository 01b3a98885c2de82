package sqlsafety

import (
	"strings"
	"testing"

	"github.com/dbquery-gateway/gateway/internal/dbregistry"
	"github.com/dbquery-gateway/gateway/internal/errs"
)

func TestValidatePostgresRejectsWrite(t *testing.T) {
	opt := Options{Dialect: dbregistry.DialectPostgres, MaxRows: 100}
	_, gerr := Validate("DELETE FROM users", opt)
	if gerr == nil || gerr.Kind != errs.KindNotReadonly {
		t.Fatalf("expected not_readonly, got %v", gerr)
	}
}

func TestValidatePostgresRejectsMultipleStatements(t *testing.T) {
	opt := Options{Dialect: dbregistry.DialectPostgres, MaxRows: 100}
	_, gerr := Validate("SELECT 1; SELECT 2", opt)
	if gerr == nil || gerr.Kind != errs.KindMultipleStatements {
		t.Fatalf("expected multiple_statements, got %v", gerr)
	}
}

func TestValidatePostgresRejectsEmpty(t *testing.T) {
	opt := Options{Dialect: dbregistry.DialectPostgres, MaxRows: 100}
	_, gerr := Validate("   ", opt)
	if gerr == nil || gerr.Kind != errs.KindEmptyStatement {
		t.Fatalf("expected empty_statement, got %v", gerr)
	}
}

func TestValidatePostgresBlocksFunction(t *testing.T) {
	opt := Options{
		Dialect:          dbregistry.DialectPostgres,
		BlockedFunctions: []string{"pg_sleep"},
		MaxRows:          100,
	}
	_, gerr := Validate("SELECT pg_sleep(5)", opt)
	if gerr == nil || gerr.Kind != errs.KindBlockedFunction {
		t.Fatalf("expected blocked_function, got %v", gerr)
	}
}

func TestValidatePostgresInjectsLimit(t *testing.T) {
	opt := Options{Dialect: dbregistry.DialectPostgres, MaxRows: 50}
	v, gerr := Validate("SELECT id, name FROM accounts", opt)
	if gerr != nil {
		t.Fatalf("unexpected error: %v", gerr)
	}
	if !strings.Contains(strings.ToUpper(v.String()), "LIMIT") {
		t.Fatalf("expected injected LIMIT, got %q", v.String())
	}
}

func TestValidatePostgresClampsOversizedLimit(t *testing.T) {
	opt := Options{Dialect: dbregistry.DialectPostgres, MaxRows: 10}
	v, gerr := Validate("SELECT id FROM accounts LIMIT 10000", opt)
	if gerr != nil {
		t.Fatalf("unexpected error: %v", gerr)
	}
	if strings.Contains(v.String(), "10000") {
		t.Fatalf("expected clamp to max rows, got %q", v.String())
	}
}

func TestValidateMySQLRejectsWrite(t *testing.T) {
	opt := Options{Dialect: dbregistry.DialectMySQL, MaxRows: 100}
	_, gerr := Validate("UPDATE accounts SET balance = 0", opt)
	if gerr == nil || gerr.Kind != errs.KindNotReadonly {
		t.Fatalf("expected not_readonly, got %v", gerr)
	}
}

func TestValidateDisallowedTable(t *testing.T) {
	opt := Options{
		Dialect:       dbregistry.DialectPostgres,
		AllowedTables: []string{"accounts"},
		MaxRows:       100,
	}
	_, gerr := Validate("SELECT * FROM secrets", opt)
	if gerr == nil || gerr.Kind != errs.KindDisallowedIdentifier {
		t.Fatalf("expected disallowed_identifier, got %v", gerr)
	}
}
