package builders

import (
	"fmt"

	"filterCompiler/coerce"
	"filterCompiler/grammar"
	"filterCompiler/schemas"
	"filterCompiler/types"
)

// Node is one lowered filter: a Tree, or a *Comparison when the column has
// to be cast before comparing.
type Node interface {
	whereNode()
}

// Tree is a single-key where mapping. A group maps its ORM symbol ("AND",
// "OR") to a []Node; a leaf maps the field name to Tree{symbol: value}.
type Tree map[string]any

// Column names a column inside a raw comparison.
type Column string

// Cast wraps a column or a literal in CAST(... AS Type).
type Cast struct {
	Value any    `json:"value"`
	Type  string `json:"type"`
}

// Comparison is a raw comparison between two cast expressions. Right is a
// Cast, or a []Cast for list and range operators.
type Comparison struct {
	Left  Cast   `json:"left"`
	Op    string `json:"op"`
	Right any    `json:"right"`
}

func (Tree) whereNode()        {}
func (*Comparison) whereNode() {}

// BuildWhereTree validates raw and lowers it into a where tree for an ORM
// query layer. A bare list is lowered like an "and" group.
func BuildWhereTree(raw any) (Node, error) {
	f, err := grammar.Parse(raw)
	if err != nil {
		return nil, err
	}
	return LowerFilter(f)
}

// LowerFilter lowers an already parsed filter.
func LowerFilter(f types.Filter) (Node, error) {
	switch n := f.(type) {
	case *types.Group:
		children := make([]Node, 0, len(n.Children))
		for _, child := range n.Children {
			c, err := LowerFilter(child)
			if err != nil {
				return nil, err
			}
			children = append(children, c)
		}
		return Tree{n.Logic.Symbol(): children}, nil
	case *types.Leaf:
		return lowerLeaf(n)
	default:
		return nil, fmt.Errorf("unsupported filter node %T", f)
	}
}

func lowerLeaf(l *types.Leaf) (Node, error) {
	v, err := coerce.CoerceValue(l.Value, l.Type)
	if err != nil {
		return nil, err
	}

	if !schemas.NeedsCast(l.Type) {
		return Tree{l.Field: Tree{l.Op.Symbol(): v}}, nil
	}

	pgType := schemas.ColumnFor(l.Type).PGType
	cmp := &Comparison{
		Left: Cast{Value: Column(l.Field), Type: pgType},
		Op:   l.Op.Symbol(),
	}
	if list, ok := v.([]any); ok {
		right := make([]Cast, len(list))
		for i, item := range list {
			right[i] = Cast{Value: item, Type: pgType}
		}
		cmp.Right = right
	} else {
		cmp.Right = Cast{Value: v, Type: pgType}
	}
	return cmp, nil
}
