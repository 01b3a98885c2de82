package sqlsafety

import (
	"fmt"

	"github.com/auxten/postgresql-parser/pkg/sql/parser"
	"github.com/auxten/postgresql-parser/pkg/sql/sem/tree"
)

// parsePostgres runs the statement through a real PostgreSQL AST parser
// rather than pattern matching on the raw text.
func parsePostgres(sql string) (parsedStatement, error) {
	stmts, err := parser.Parse(sql)
	if err != nil {
		return parsedStatement{}, err
	}

	ps := parsedStatement{statementCount: len(stmts)}
	if len(stmts) != 1 {
		ps.rewrite = func(int) (string, error) {
			return "", fmt.Errorf("cannot rewrite a multi-statement batch")
		}
		return ps, nil
	}

	stmt := stmts[0].AST

	var selectStmt *tree.Select
	switch n := stmt.(type) {
	case *tree.Select:
		ps.readOnly = isPlainSelect(n)
		selectStmt = n
	case *tree.Explain:
		ps.isExplain = true
		if inner, ok := n.Statement.(*tree.Select); ok {
			ps.readOnly = isPlainSelect(inner)
			selectStmt = inner
		}
	case *tree.Insert, *tree.Update, *tree.Delete, *tree.Truncate, *tree.CreateTable,
		*tree.DropTable, *tree.AlterTable, *tree.CreateIndex, *tree.DropIndex:
		ps.readOnly = false
	default:
		ps.readOnly = false
	}

	v := &astVisitor{}
	tree.WalkStmt(v, stmt)
	ps.functionCalls = v.functions
	ps.tableRefs = collectTableRefs(selectStmt)
	ps.hasLimit = selectStmt != nil && selectStmt.Limit != nil

	ps.rewrite = func(maxRows int) (string, error) {
		if selectStmt != nil {
			clampLimit(selectStmt, maxRows)
		}
		return tree.AsString(stmt), nil
	}

	return ps, nil
}

// isPlainSelect rejects SELECT ... FOR UPDATE/SHARE. A locked select
// takes row locks as a side effect and does not belong on the
// read-only path even though it returns rows like any other select.
func isPlainSelect(sel *tree.Select) bool {
	return len(sel.Locking) == 0
}

// collectTableRefs walks a select's FROM clause (including joins and
// parenthesized table expressions) and returns the base table names it
// references, for the AllowedTables check. Subquery sources are not
// descended into; a table hidden behind a subquery in FROM is not
// covered by the allowlist.
func collectTableRefs(sel *tree.Select) []string {
	if sel == nil {
		return nil
	}
	clause, ok := sel.Select.(*tree.SelectClause)
	if !ok {
		return nil
	}
	var out []string
	walkTableExprs(clause.From.Tables, &out)
	return out
}

func walkTableExprs(exprs tree.TableExprs, out *[]string) {
	for _, te := range exprs {
		walkTableExpr(te, out)
	}
}

func walkTableExpr(te tree.TableExpr, out *[]string) {
	switch t := te.(type) {
	case *tree.TableName:
		*out = append(*out, t.Table())
	case *tree.AliasedTableExpr:
		walkTableExpr(t.Expr, out)
	case *tree.ParenTableExpr:
		walkTableExpr(t.Expr, out)
	case *tree.JoinTableExpr:
		walkTableExpr(t.Left, out)
		walkTableExpr(t.Right, out)
	}
}

func clampLimit(sel *tree.Select, maxRows int) {
	cap := tree.NewDInt(tree.DInt(maxRows))
	if sel.Limit == nil {
		sel.Limit = &tree.Limit{Count: cap}
		return
	}
	if lit, ok := sel.Limit.Count.(*tree.DInt); ok {
		if int64(*lit) > int64(maxRows) || int64(*lit) <= 0 {
			sel.Limit.Count = cap
		}
		return
	}
	// Non-literal limit expression (parameter, subquery): clamp
	// conservatively by overriding it outright.
	sel.Limit.Count = cap
}

// astVisitor walks the statement's expressions collecting function
// calls for the blocked-function check. tree.Visitor only visits
// tree.Expr nodes, not table expressions, so table references are
// collected separately by collectTableRefs.
type astVisitor struct {
	functions []string
}

func (v *astVisitor) VisitPre(expr tree.Expr) (recurse bool, newExpr tree.Expr) {
	if fn, ok := expr.(*tree.FuncExpr); ok {
		v.functions = append(v.functions, fn.Func.String())
	}
	return true, expr
}

func (v *astVisitor) VisitPost(expr tree.Expr) tree.Expr { return expr }
