// Package sqlsafety implements the read-only SQL safety boundary: the
// single most load-bearing correctness component in the gateway.
// Nothing reaches a database connection without first passing through
// Validate.
package sqlsafety

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dbquery-gateway/gateway/internal/config"
	"github.com/dbquery-gateway/gateway/internal/dbregistry"
	"github.com/dbquery-gateway/gateway/internal/errs"
)

// selectIntoPattern catches SELECT ... INTO <target>, which writes a
// new table/file as a side effect of what otherwise parses as a
// read-only select. Neither postgres_ast.go nor mysql_ast.go exposes a
// dedicated AST field for this across both dialects, so it is caught
// here on the raw text instead, gated on the statement already being
// classified read-only so it can never fire on INSERT INTO.
var selectIntoPattern = regexp.MustCompile(`(?is)^\s*SELECT\b.*\bINTO\b`)

// ValidatedSQL is a capability-style witness: the only way to obtain
// one is to pass every check in Validate. The executor accepts nothing
// else.
type ValidatedSQL struct {
	text    string
	dialect dbregistry.Dialect
}

func (v ValidatedSQL) String() string { return v.text }

// Options carries the per-database policy Validate enforces.
type Options struct {
	Dialect          dbregistry.Dialect
	AllowWrite       bool
	AllowExplain     bool
	BlockedFunctions []string
	AllowedTables    []string // empty means no allowlist restriction
	MaxRows          int
}

// parsedStatement is the dialect-neutral view Validate needs out of a
// parsed query. postgres_ast.go and mysql_ast.go each produce one of
// these from their respective AST library.
type parsedStatement struct {
	statementCount int
	readOnly       bool
	isExplain      bool
	functionCalls  []string
	tableRefs      []string
	hasLimit       bool
	// rewrite re-serializes the AST with a LIMIT clause injected or
	// clamped to at most maxRows. Returns the final SQL text.
	rewrite func(maxRows int) (string, error)
}

// Validate runs the full seven-step procedure: parse, single-statement
// check, read-only verdict, function blacklist, identifier check,
// LIMIT clamp, re-serialize. Any failure returns a *errs.Error with the
// appropriate safety Kind; success returns a ValidatedSQL built from
// the AST's own re-serialization, never the caller's raw text.
func Validate(sql string, opt Options) (ValidatedSQL, *errs.Error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return ValidatedSQL{}, errs.New(errs.KindEmptyStatement, "generated SQL was empty")
	}

	var (
		parsed parsedStatement
		err    error
	)
	switch opt.Dialect {
	case dbregistry.DialectPostgres:
		parsed, err = parsePostgres(trimmed)
	case dbregistry.DialectMySQL:
		parsed, err = parseMySQL(trimmed)
	default:
		return ValidatedSQL{}, errs.New(errs.KindInternalError, fmt.Sprintf("unsupported dialect %q", opt.Dialect))
	}
	if err != nil {
		return ValidatedSQL{}, errs.Wrap(errs.KindParseError, err, "could not parse generated SQL").
			WithDetail("dialect", string(opt.Dialect))
	}

	if parsed.statementCount != 1 {
		return ValidatedSQL{}, errs.New(errs.KindMultipleStatements, fmt.Sprintf("expected exactly one statement, found %d", parsed.statementCount))
	}

	if parsed.readOnly && selectIntoPattern.MatchString(trimmed) {
		return ValidatedSQL{}, errs.New(errs.KindNotReadonly, "SELECT ... INTO is not permitted")
	}

	if parsed.isExplain && !opt.AllowExplain {
		return ValidatedSQL{}, errs.New(errs.KindNotReadonly, "EXPLAIN is not permitted for this database")
	}
	if !parsed.readOnly && !parsed.isExplain {
		if !opt.AllowWrite {
			return ValidatedSQL{}, errs.New(errs.KindNotReadonly, "only read-only statements are permitted")
		}
	}

	blocked := make(map[string]bool, len(opt.BlockedFunctions))
	for _, f := range opt.BlockedFunctions {
		blocked[strings.ToLower(f)] = true
	}
	for _, fn := range parsed.functionCalls {
		if blocked[strings.ToLower(fn)] {
			return ValidatedSQL{}, errs.New(errs.KindBlockedFunction, fmt.Sprintf("function %q is not permitted", fn)).
				WithDetail("function", fn)
		}
	}

	if len(opt.AllowedTables) > 0 {
		allowed := make(map[string]bool, len(opt.AllowedTables))
		for _, t := range opt.AllowedTables {
			allowed[strings.ToLower(t)] = true
		}
		for _, ref := range parsed.tableRefs {
			if !allowed[strings.ToLower(ref)] {
				return ValidatedSQL{}, errs.New(errs.KindDisallowedIdentifier, fmt.Sprintf("table %q is not in the allowed list", ref)).
					WithDetail("table", ref)
			}
		}
	}

	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = config.DefaultMaxRows
	}
	rewritten, err := parsed.rewrite(maxRows)
	if err != nil {
		return ValidatedSQL{}, errs.Wrap(errs.KindUnsafeSQL, err, "failed to re-serialize validated SQL")
	}

	return ValidatedSQL{text: rewritten, dialect: opt.Dialect}, nil
}
