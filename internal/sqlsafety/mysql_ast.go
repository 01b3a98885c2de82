package sqlsafety

import (
	"fmt"

	"github.com/blastrain/vitess-sqlparser/sqlparser"
)

// parseMySQL runs the statement through vitess-sqlparser's MySQL-dialect
// AST parser, the same AST-based approach as parsePostgres rather than
// a second, divergent regex path.
func parseMySQL(sql string) (parsedStatement, error) {
	pieces, err := sqlparser.SplitStatementToPieces(sql)
	if err != nil {
		return parsedStatement{}, err
	}

	ps := parsedStatement{statementCount: len(pieces)}
	if len(pieces) != 1 {
		ps.rewrite = func(int) (string, error) {
			return "", fmt.Errorf("cannot rewrite a multi-statement batch")
		}
		return ps, nil
	}

	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return parsedStatement{}, err
	}

	var selectStmt *sqlparser.Select
	switch n := stmt.(type) {
	case *sqlparser.Select:
		ps.readOnly = n.Lock == ""
		selectStmt = n
	case *sqlparser.Union:
		ps.readOnly = true
	case *sqlparser.Show:
		ps.readOnly = true
	case *sqlparser.Explain:
		ps.isExplain = true
		if inner, ok := n.Statement.(*sqlparser.Select); ok {
			ps.readOnly = inner.Lock == ""
			selectStmt = inner
		}
	case *sqlparser.Insert, *sqlparser.Update, *sqlparser.Delete, *sqlparser.DDL:
		ps.readOnly = false
	default:
		ps.readOnly = false
	}

	_ = sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		switch n := node.(type) {
		case *sqlparser.FuncExpr:
			ps.functionCalls = append(ps.functionCalls, n.Name.String())
		case sqlparser.TableName:
			if !n.IsEmpty() {
				ps.tableRefs = append(ps.tableRefs, n.Name.String())
			}
		}
		return true, nil
	}, stmt)

	ps.hasLimit = selectStmt != nil && selectStmt.Limit != nil

	ps.rewrite = func(maxRows int) (string, error) {
		if selectStmt != nil {
			clampMySQLLimit(selectStmt, maxRows)
		}
		return sqlparser.String(stmt), nil
	}

	return ps, nil
}

func clampMySQLLimit(sel *sqlparser.Select, maxRows int) {
	cap := sqlparser.NewIntVal([]byte(fmt.Sprintf("%d", maxRows)))
	if sel.Limit == nil {
		sel.Limit = &sqlparser.Limit{Rowcount: cap}
		return
	}
	if lit, ok := sel.Limit.Rowcount.(*sqlparser.SQLVal); ok && lit.Type == sqlparser.IntVal {
		var n int
		fmt.Sscanf(string(lit.Val), "%d", &n)
		if n > maxRows || n <= 0 {
			sel.Limit.Rowcount = cap
		}
		return
	}
	sel.Limit.Rowcount = cap
}
