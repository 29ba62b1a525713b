package grammar

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"filterCompiler/types"
)

var leafKeys = [...]string{"field", "operator", "value", "type"}

// ValidateFilter checks raw against the filter grammar and returns the first
// violation as a *ValidationError.
func ValidateFilter(raw any) error {
	_, err := Parse(raw)
	return err
}

// Parse validates raw and returns it as a typed filter. raw is a JSON-like
// document: map[string]any records, slices and scalars. A bare slice at the
// top level becomes an implicit And group.
//
// The whole tree is checked before anything is returned, so the error is
// always the first one met in a pre-order walk.
func Parse(raw any) (types.Filter, error) {
	return parseNode(raw, "")
}

func parseNode(raw any, path string) (types.Filter, error) {
	if list, ok := toSlice(raw); ok {
		if len(list) == 0 {
			return nil, fail(path, "Filter list must be a non-empty array")
		}
		children, err := parseChildren(list, path)
		if err != nil {
			return nil, err
		}
		return &types.Group{Logic: types.And, Children: children, Implicit: true}, nil
	}

	rec, ok := raw.(map[string]any)
	if !ok || rec == nil {
		return nil, fail(path, "Filter must be a non-null object")
	}

	if _, ok := rec["and"]; ok {
		return parseGroup(rec, types.And, path)
	}
	if _, ok := rec["or"]; ok {
		return parseGroup(rec, types.Or, path)
	}
	return parseLeaf(rec, path)
}

func parseChildren(list []any, path string) ([]types.Filter, error) {
	children := make([]types.Filter, 0, len(list))
	for i, item := range list {
		child, err := parseNode(item, path+"["+strconv.Itoa(i)+"]")
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

func parseGroup(rec map[string]any, logic types.Logic, path string) (types.Filter, error) {
	key := logic.Key()
	list, ok := toSlice(rec[key])
	if !ok {
		return nil, fail(path, fmt.Sprintf("%q must be an array", key))
	}

	children, err := parseChildren(list, join(path, key))
	if err != nil {
		return nil, err
	}

	for _, k := range sortedKeys(rec) {
		if k != key {
			return nil, fail(path, "Invalid key: "+k)
		}
	}

	if len(children) == 0 {
		return nil, fail(path, fmt.Sprintf("%q must be a non-empty array", key))
	}

	return &types.Group{Logic: logic, Children: children}, nil
}

func parseLeaf(rec map[string]any, path string) (types.Filter, error) {
	var missing []string
	for _, k := range leafKeys {
		if _, ok := rec[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fail(path, "Missing required field(s): "+strings.Join(missing, ", "))
	}

	var extra []string
	for _, k := range sortedKeys(rec) {
		if !isLeafKey(k) {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		return nil, fail(path, "Unexpected field(s): "+strings.Join(extra, ", "))
	}

	field, ok := rec["field"].(string)
	if !ok || strings.TrimSpace(field) == "" {
		return nil, fail(path, `"field" must be a non-empty string`)
	}

	opTag, _ := rec["operator"].(string)
	op, ok := types.ParseOp(opTag)
	if !ok {
		return nil, fail(path, fmt.Sprintf(`Unsupported "operator": %v`, rec["operator"]))
	}

	value := rec["value"]
	list, isList := toSlice(value)
	if value == nil || (isList && len(list) == 0) {
		return nil, fail(path, `"value" must not be null or an empty array`)
	}
	if isList {
		value = list
	}

	typeTag, _ := rec["type"].(string)
	vt, ok := types.ParseValueType(typeTag)
	if !ok {
		return nil, fail(path, fmt.Sprintf(`Unsupported "type": %v`, rec["type"]))
	}

	switch {
	case op.IsRange() && (!isList || len(list) != 2):
		return nil, fail(path, fmt.Sprintf("Operator %q requires a 2-element array", op))
	case op.IsList() && !isList:
		return nil, fail(path, fmt.Sprintf("Operator %q requires an array", op))
	}

	return &types.Leaf{Field: field, Op: op, Value: value, Type: vt}, nil
}

func isLeafKey(k string) bool {
	for _, lk := range leafKeys {
		if k == lk {
			return true
		}
	}
	return false
}

func sortedKeys(rec map[string]any) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// toSlice normalizes any slice or array into []any. Strings and byte
// slices are scalars, not lists.
func toSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case nil:
		return nil, false
	case []any:
		return s, true
	case []map[string]any:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	case []string:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	case []int:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	case []int64:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	case []float64:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	case []byte:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
