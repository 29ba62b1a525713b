package schemas

import "filterCompiler/types"

// Column is the PostgreSQL side of a filter value type.
type Column struct {
	PGType string // CAST target, empty when the column is compared as is
}

var columns = map[types.ValueType]Column{
	types.TypeString:  {},
	types.TypeNumber:  {},
	types.TypeInt:     {},
	types.TypeBoolean: {},
	types.TypeDate:    {PGType: "date"},
}

// ColumnFor returns the PostgreSQL mapping of t.
func ColumnFor(t types.ValueType) Column {
	return columns[t]
}

// NeedsCast reports whether comparisons on t must cast both sides.
// Only date does: the stored column may be a timestamp.
func NeedsCast(t types.ValueType) bool {
	return columns[t].PGType != ""
}

// CastSuffix returns the "::type" suffix for t, or "".
func CastSuffix(t types.ValueType) string {
	if c := columns[t]; c.PGType != "" {
		return "::" + c.PGType
	}
	return ""
}
