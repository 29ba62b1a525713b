package builders

import (
	"fmt"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"filterCompiler/coerce"
	"filterCompiler/grammar"
	"filterCompiler/schemas"
	"filterCompiler/types"
	"filterCompiler/utils"
)

// Placeholder selects how bound parameters are written into the fragment.
type Placeholder int

const (
	Dollar   Placeholder = iota // $1, $2
	Colon                       // :param1, :param2
	At                          // @param1, @param2 (pgx named args)
	Question                    // ?, for composing with squirrel
)

// ParsePlaceholder resolves a config name such as "dollar".
func ParsePlaceholder(name string) (Placeholder, error) {
	switch strings.ToLower(name) {
	case "", "dollar":
		return Dollar, nil
	case "colon":
		return Colon, nil
	case "at":
		return At, nil
	case "question":
		return Question, nil
	}
	return 0, fmt.Errorf("unknown placeholder style %q", name)
}

func (p Placeholder) format(n int) (text, name string) {
	switch p {
	case Colon:
		name = "param" + strconv.Itoa(n)
		return ":" + name, name
	case At:
		name = "param" + strconv.Itoa(n)
		return "@" + name, name
	case Question:
		return "?", strconv.Itoa(n)
	default:
		name = strconv.Itoa(n)
		return "$" + name, name
	}
}

// Fragment is a compiled WHERE body. Args[i] is bound to the i-th
// placeholder of Where, in reading order; Names[i] is its name without the
// sigil ("3" for $3, "param3" for :param3).
type Fragment struct {
	Where string
	Args  []any
	Names []string
}

// ToSql implements squirrel.Sqlizer. Only Question fragments compose with
// other squirrel parts; the builder renumbers them.
func (f *Fragment) ToSql() (string, []any, error) {
	return f.Where, f.Args, nil
}

// Params returns the parameters keyed by placeholder name.
func (f *Fragment) Params() map[string]any {
	out := make(map[string]any, len(f.Args))
	for i, name := range f.Names {
		out[name] = f.Args[i]
	}
	return out
}

// NamedArgs returns the parameters as pgx named arguments, for fragments
// built with the At style.
func (f *Fragment) NamedArgs() pgx.NamedArgs {
	return pgx.NamedArgs(f.Params())
}

// PGOptions configures a PGEncoder.
type PGOptions struct {
	Placeholder Placeholder
}

// PGEncoder compiles filters into PostgreSQL WHERE fragments. It holds no
// per-call state and is safe for concurrent use.
type PGEncoder struct {
	opts PGOptions
}

// NewPGEncoder creates an encoder. If opts is nil, $N placeholders are used.
func NewPGEncoder(opts *PGOptions) *PGEncoder {
	e := &PGEncoder{}
	if opts != nil {
		e.opts = *opts
	}
	return e
}

// BuildSQLFragment validates raw and compiles it with $N placeholders.
func BuildSQLFragment(raw any) (*Fragment, error) {
	return NewPGEncoder(nil).Encode(raw)
}

// Encode validates raw and compiles it into a fragment.
func (e *PGEncoder) Encode(raw any) (*Fragment, error) {
	f, err := grammar.Parse(raw)
	if err != nil {
		return nil, err
	}
	return e.EncodeFilter(f)
}

// EncodeFilter compiles an already parsed filter. Placeholders are numbered
// from 1 on every call.
func (e *PGEncoder) EncodeFilter(f types.Filter) (*Fragment, error) {
	st := &pgState{style: e.opts.Placeholder, next: 1}
	where, err := st.node(f)
	if err != nil {
		return nil, err
	}
	return &Fragment{Where: where, Args: st.args, Names: st.names}, nil
}

// pgState lives for one EncodeFilter call.
type pgState struct {
	style Placeholder
	next  int
	args  []any
	names []string
}

func (st *pgState) bind(v any) string {
	text, name := st.style.format(st.next)
	st.next++
	st.args = append(st.args, v)
	st.names = append(st.names, name)
	return text
}

func (st *pgState) node(f types.Filter) (string, error) {
	switch n := f.(type) {
	case *types.Group:
		return st.group(n)
	case *types.Leaf:
		return st.leaf(n)
	default:
		return "", fmt.Errorf("unsupported filter node %T", f)
	}
}

func (st *pgState) group(g *types.Group) (string, error) {
	parts := make([]string, 0, len(g.Children))
	for _, child := range g.Children {
		s, err := st.node(child)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	sep := " AND "
	if g.Logic == types.Or {
		sep = " OR "
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (st *pgState) leaf(l *types.Leaf) (string, error) {
	col, err := utils.EscapeIdent(l.Field)
	if err != nil {
		return "", err
	}
	col += schemas.CastSuffix(l.Type)

	v, err := coerce.CoerceValue(l.Value, l.Type)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(col)
	sb.WriteByte(' ')
	sb.WriteString(l.Op.SQL())

	switch {
	case l.Op.IsRange():
		pair := v.([]any)
		sb.WriteByte(' ')
		sb.WriteString(st.bind(pair[0]))
		sb.WriteString(" AND ")
		sb.WriteString(st.bind(pair[1]))
	case l.Op.IsList():
		sb.WriteString(" (")
		for k, item := range v.([]any) {
			if k > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(st.bind(item))
		}
		sb.WriteByte(')')
	default:
		sb.WriteByte(' ')
		sb.WriteString(st.bind(v))
	}
	return sb.String(), nil
}

// BuildSelect renders a SELECT over spec.Table with spec.Where compiled as
// its WHERE clause. All placeholders, LIMIT and OFFSET included, are
// numbered $1..$N in order.
func BuildSelect(spec types.QuerySpec) (string, []any, error) {
	b, err := selectBuilder(spec, true)
	if err != nil {
		return "", nil, err
	}
	return b.PlaceholderFormat(sq.Dollar).ToSql()
}

// BuildCount renders SELECT count(*) over the same WHERE, without ORDER BY
// and paging.
func BuildCount(spec types.QuerySpec) (string, []any, error) {
	// тот же WHERE, без ORDER/LIMIT
	spec2 := spec
	spec2.Select = nil
	spec2.Sort = nil
	spec2.Page = nil
	inner, err := selectBuilder(spec2, false)
	if err != nil {
		return "", nil, err
	}
	return sq.Select("count(*)").FromSelect(inner, "t").PlaceholderFormat(sq.Dollar).ToSql()
}

func selectBuilder(spec types.QuerySpec, withColumns bool) (sq.SelectBuilder, error) {
	table, err := utils.EscapeIdent(spec.Table)
	if err != nil {
		return sq.SelectBuilder{}, fmt.Errorf("table: %w", err)
	}

	cols := []string{"*"}
	if withColumns && len(spec.Select) > 0 {
		cols = make([]string, 0, len(spec.Select))
		for _, c := range spec.Select {
			qc, err := utils.EscapeIdent(c)
			if err != nil {
				return sq.SelectBuilder{}, fmt.Errorf("select: %w", err)
			}
			cols = append(cols, qc)
		}
	}

	b := sq.Select(cols...).From(table)

	if spec.Where != nil {
		frag, err := NewPGEncoder(&PGOptions{Placeholder: Question}).Encode(spec.Where)
		if err != nil {
			return sq.SelectBuilder{}, err
		}
		b = b.Where(frag)
	}

	// ORDER BY
	if len(spec.Sort) > 0 {
		for _, s := range spec.Sort {
			qs, err := utils.EscapeIdent(s.Field)
			if err != nil {
				return sq.SelectBuilder{}, fmt.Errorf("sort: %w", err)
			}
			if s.Dir == types.Desc {
				b = b.OrderBy(qs + " DESC")
			} else {
				b = b.OrderBy(qs + " ASC")
			}
		}
		// tie-break
		if spec.TieBreaker != "" && spec.Sort[len(spec.Sort)-1].Field != spec.TieBreaker {
			qt, err := utils.EscapeIdent(spec.TieBreaker)
			if err != nil {
				return sq.SelectBuilder{}, fmt.Errorf("tie-breaker: %w", err)
			}
			b = b.OrderBy(qt + " ASC")
		}
	}

	// LIMIT/OFFSET
	if spec.Page != nil {
		lim := spec.Page.Limit
		if lim <= 0 || lim > 1000 {
			lim = 100
		}
		off := spec.Page.Offset
		if off < 0 {
			off = 0
		}
		b = b.Suffix("LIMIT ? OFFSET ?", lim, off)
	}

	return b, nil
}
