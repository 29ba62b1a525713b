package types

// ValueType is the declared type of a leaf value. It only drives coercion
// and casting, never validation of the column itself.
type ValueType int

const (
	TypeString ValueType = iota
	TypeNumber
	TypeInt
	TypeBoolean
	TypeDate
)

var valueTypeNames = [...]string{
	TypeString:  "string",
	TypeNumber:  "number",
	TypeInt:     "int",
	TypeBoolean: "boolean",
	TypeDate:    "date",
}

func (t ValueType) String() string {
	if t < 0 || int(t) >= len(valueTypeNames) {
		return "unknown"
	}
	return valueTypeNames[t]
}

// ParseValueType resolves a grammar tag such as "date" into a ValueType.
func ParseValueType(tag string) (ValueType, bool) {
	for i, name := range valueTypeNames {
		if name == tag {
			return ValueType(i), true
		}
	}
	return 0, false
}

type Op int

const (
	OpEq Op = iota
	OpNe
	OpGt
	OpGte
	OpLt
	OpLte
	OpLike
	OpNotLike
	OpILike
	OpNotILike
	OpIn
	OpNotIn
	OpBetween
	OpNotBetween
	OpIs
	OpNot
)

type opInfo struct {
	tag    string // grammar tag
	symbol string // ORM operator symbol
	sql    string // SQL infix / keyword
}

var opTable = [...]opInfo{
	OpEq:         {"eq", "EQ", "="},
	OpNe:         {"ne", "NE", "!="},
	OpGt:         {"gt", "GT", ">"},
	OpGte:        {"gte", "GTE", ">="},
	OpLt:         {"lt", "LT", "<"},
	OpLte:        {"lte", "LTE", "<="},
	OpLike:       {"like", "LIKE", "LIKE"},
	OpNotLike:    {"notLike", "NOT_LIKE", "NOT LIKE"},
	OpILike:      {"iLike", "ILIKE", "ILIKE"},
	OpNotILike:   {"notILike", "NOT_ILIKE", "NOT ILIKE"},
	OpIn:         {"in", "IN", "IN"},
	OpNotIn:      {"notIn", "NOT_IN", "NOT IN"},
	OpBetween:    {"between", "BETWEEN", "BETWEEN"},
	OpNotBetween: {"notBetween", "NOT_BETWEEN", "NOT BETWEEN"},
	OpIs:         {"is", "IS", "IS"},
	OpNot:        {"not", "NOT", "IS NOT"},
}

func (o Op) valid() bool { return o >= 0 && int(o) < len(opTable) }

// String returns the grammar tag of the operator, e.g. "notLike".
func (o Op) String() string {
	if !o.valid() {
		return "unknown"
	}
	return opTable[o].tag
}

// Symbol returns the ORM operator symbol, e.g. "NOT_LIKE".
func (o Op) Symbol() string {
	if !o.valid() {
		return ""
	}
	return opTable[o].symbol
}

// SQL returns the SQL keyword, e.g. "NOT LIKE". For the IN and BETWEEN
// families only the leading keyword is returned.
func (o Op) SQL() string {
	if !o.valid() {
		return ""
	}
	return opTable[o].sql
}

// IsRange reports whether the operator takes a [low, high] pair.
func (o Op) IsRange() bool { return o == OpBetween || o == OpNotBetween }

// IsList reports whether the operator takes a list of values.
func (o Op) IsList() bool { return o == OpIn || o == OpNotIn }

// ParseOp resolves a grammar tag such as "gte" into an Op.
func ParseOp(tag string) (Op, bool) {
	for i, info := range opTable {
		if info.tag == tag {
			return Op(i), true
		}
	}
	return 0, false
}

// OpBySymbol resolves an ORM operator symbol such as "NOT_IN" into an Op.
func OpBySymbol(sym string) (Op, bool) {
	for i, info := range opTable {
		if info.symbol == sym {
			return Op(i), true
		}
	}
	return 0, false
}

// Ops returns every supported operator in declaration order.
func Ops() []Op {
	out := make([]Op, len(opTable))
	for i := range opTable {
		out[i] = Op(i)
	}
	return out
}

type Logic int

const (
	And Logic = iota
	Or
)

// Key is the grammar key of the compound, "and" or "or".
func (l Logic) Key() string {
	if l == Or {
		return "or"
	}
	return "and"
}

// Symbol is the ORM symbol of the compound, "AND" or "OR".
func (l Logic) Symbol() string {
	if l == Or {
		return "OR"
	}
	return "AND"
}

type SortDir int

const (
	Asc SortDir = iota
	Desc
)

type Sort struct {
	Field string
	Dir   SortDir
}

type Pagination struct {
	Limit  int
	Offset int
}

// QuerySpec describes a whole SELECT around a filter. Where holds a raw
// filter document, nil means no WHERE clause.
type QuerySpec struct {
	Table      string
	Select     []string
	Where      any
	Sort       []Sort
	Page       *Pagination
	TieBreaker string // appended to ORDER BY unless already last
}
