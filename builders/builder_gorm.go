package builders

import (
	"fmt"
	"strings"

	"gorm.io/gorm/clause"

	"filterCompiler/types"
)

// GormExpression converts a where tree into a gorm clause expression, ready
// for db.Clauses(clause.Where{Exprs: ...}) or db.Where(expr).
func GormExpression(n Node) (clause.Expression, error) {
	switch t := n.(type) {
	case Tree:
		return gormTree(t)
	case *Comparison:
		return gormComparison(t)
	default:
		return nil, fmt.Errorf("unsupported where node %T", n)
	}
}

func gormTree(t Tree) (clause.Expression, error) {
	if len(t) != 1 {
		return nil, fmt.Errorf("where tree must have exactly one key, got %d", len(t))
	}
	for key, val := range t {
		switch v := val.(type) {
		case []Node:
			return gormGroup(key, v)
		case Tree:
			if len(v) != 1 {
				return nil, fmt.Errorf("field %q expects a single operator mapping", key)
			}
			for sym, arg := range v {
				return gormLeaf(key, sym, arg)
			}
		default:
			return nil, fmt.Errorf("key %q expects []Node or Tree, got %T", key, val)
		}
	}
	return nil, nil
}

// gormGroup lowers a group. Groups are told apart from leaves by their
// []Node value, so a column named "AND" or "OR" is still a leaf.
func gormGroup(sym string, children []Node) (clause.Expression, error) {
	if sym != "AND" && sym != "OR" {
		return nil, fmt.Errorf("unknown group symbol %q", sym)
	}
	exprs := make([]clause.Expression, 0, len(children))
	for _, child := range children {
		e, err := GormExpression(child)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	if sym == "OR" {
		return clause.Or(exprs...), nil
	}
	return clause.And(exprs...), nil
}

func gormLeaf(field, sym string, v any) (clause.Expression, error) {
	col := clause.Column{Name: field}
	switch sym {
	case "EQ":
		return clause.Eq{Column: col, Value: v}, nil
	case "NE":
		return clause.Neq{Column: col, Value: v}, nil
	case "GT":
		return clause.Gt{Column: col, Value: v}, nil
	case "GTE":
		return clause.Gte{Column: col, Value: v}, nil
	case "LT":
		return clause.Lt{Column: col, Value: v}, nil
	case "LTE":
		return clause.Lte{Column: col, Value: v}, nil
	case "LIKE":
		return clause.Like{Column: col, Value: v}, nil
	case "IN", "NOT_IN":
		list, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%s on %q expects a list", sym, field)
		}
		in := clause.IN{Column: col, Values: list}
		if sym == "NOT_IN" {
			return clause.Not(in), nil
		}
		return in, nil
	case "BETWEEN", "NOT_BETWEEN":
		pair, ok := v.([]any)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("%s on %q expects two values", sym, field)
		}
		return clause.Expr{SQL: "? " + gormKeyword(sym) + " ? AND ?", Vars: []any{col, pair[0], pair[1]}}, nil
	}

	kw := gormKeyword(sym)
	if kw == "" {
		return nil, fmt.Errorf("unsupported operator symbol %q", sym)
	}
	return clause.Expr{SQL: "? " + kw + " ?", Vars: []any{col, v}}, nil
}

func gormComparison(c *Comparison) (clause.Expression, error) {
	kw := gormKeyword(c.Op)
	if kw == "" {
		return nil, fmt.Errorf("unsupported operator symbol %q", c.Op)
	}

	left, leftVars := gormCast(c.Left)
	vars := append([]any{}, leftVars...)

	switch r := c.Right.(type) {
	case Cast:
		sql, v := gormCast(r)
		return clause.Expr{SQL: left + " " + kw + " " + sql, Vars: append(vars, v...)}, nil
	case []Cast:
		parts := make([]string, len(r))
		for i, item := range r {
			sql, v := gormCast(item)
			parts[i] = sql
			vars = append(vars, v...)
		}
		switch c.Op {
		case "BETWEEN", "NOT_BETWEEN":
			if len(parts) != 2 {
				return nil, fmt.Errorf("%s expects two values, got %d", c.Op, len(parts))
			}
			return clause.Expr{SQL: left + " " + kw + " " + parts[0] + " AND " + parts[1], Vars: vars}, nil
		default:
			return clause.Expr{SQL: left + " " + kw + " (" + strings.Join(parts, ", ") + ")", Vars: vars}, nil
		}
	default:
		return nil, fmt.Errorf("unsupported comparison operand %T", c.Right)
	}
}

func gormCast(c Cast) (string, []any) {
	v := c.Value
	if name, ok := v.(Column); ok {
		v = clause.Column{Name: string(name)}
	}
	return "CAST(? AS " + strings.ToUpper(c.Type) + ")", []any{v}
}

// gormKeyword returns the SQL keyword of an ORM operator symbol, shared with
// the SQL emitter through types.Op.
func gormKeyword(sym string) string {
	op, ok := types.OpBySymbol(sym)
	if !ok {
		return ""
	}
	return op.SQL()
}
