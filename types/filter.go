package types

// Filter is a validated filter node. It is implemented by *Leaf and *Group
// only; the set is closed so emitters can switch over it exhaustively.
type Filter interface {
	filterNode()
}

// Leaf is one field-to-literal comparison. Value is either a scalar or a
// []any, as it came out of the parser, and is not coerced yet.
type Leaf struct {
	Field string
	Op    Op
	Value any
	Type  ValueType
}

// Group is a boolean composition of filters. Implicit marks a bare
// top-level list, which composes exactly like an And group.
type Group struct {
	Logic    Logic
	Children []Filter
	Implicit bool
}

func (*Leaf) filterNode()  {}
func (*Group) filterNode() {}
