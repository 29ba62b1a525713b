package builders

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"testing"

	"filterCompiler/coerce"
	"filterCompiler/grammar"
	"filterCompiler/types"
	"filterCompiler/utils"
)

func leaf(field, op string, value any, typ string) map[string]any {
	return map[string]any{"field": field, "operator": op, "value": value, "type": typ}
}

func TestBuildSQLFragmentSimpleEquality(t *testing.T) {
	frag, err := BuildSQLFragment(leaf("a", "eq", 1, "number"))
	if err != nil {
		t.Fatalf("BuildSQLFragment failed: %v", err)
	}
	if frag.Where != `"a" = $1` {
		t.Errorf(`expected '"a" = $1', got '%s'`, frag.Where)
	}
	if !reflect.DeepEqual(frag.Args, []any{1.0}) {
		t.Errorf("expected args [1], got %#v", frag.Args)
	}
	if !reflect.DeepEqual(frag.Params(), map[string]any{"1": 1.0}) {
		t.Errorf("unexpected params %#v", frag.Params())
	}
}

func TestBuildSQLFragmentOperators(t *testing.T) {
	tests := []struct {
		op       string
		value    any
		typ      string
		expected string
		args     []any
	}{
		{"eq", "x", "string", `"f" = $1`, []any{"x"}},
		{"ne", "x", "string", `"f" != $1`, []any{"x"}},
		{"gt", "5", "int", `"f" > $1`, []any{5.0}},
		{"gte", 5, "number", `"f" >= $1`, []any{5.0}},
		{"lt", 5, "number", `"f" < $1`, []any{5.0}},
		{"lte", 5, "number", `"f" <= $1`, []any{5.0}},
		{"like", "a%", "string", `"f" LIKE $1`, []any{"a%"}},
		{"notLike", "a%", "string", `"f" NOT LIKE $1`, []any{"a%"}},
		{"iLike", "a%", "string", `"f" ILIKE $1`, []any{"a%"}},
		{"notILike", "a%", "string", `"f" NOT ILIKE $1`, []any{"a%"}},
		{"in", []any{1, "2", 3}, "number", `"f" IN ($1, $2, $3)`, []any{1.0, 2.0, 3.0}},
		{"notIn", []string{"a"}, "string", `"f" NOT IN ($1)`, []any{"a"}},
		{"between", []any{1, 10}, "int", `"f" BETWEEN $1 AND $2`, []any{1.0, 10.0}},
		{"notBetween", []any{1, 10}, "int", `"f" NOT BETWEEN $1 AND $2`, []any{1.0, 10.0}},
		{"is", "true", "boolean", `"f" IS $1`, []any{true}},
		{"not", "yes", "boolean", `"f" IS NOT $1`, []any{false}},
		{"eq", "2023-03-04T10:00:00Z", "date", `"f"::date = $1`, []any{"2023-03-04"}},
	}

	for _, tt := range tests {
		t.Run(tt.op+"/"+tt.typ, func(t *testing.T) {
			frag, err := BuildSQLFragment(leaf("f", tt.op, tt.value, tt.typ))
			if err != nil {
				t.Fatalf("BuildSQLFragment failed: %v", err)
			}
			if frag.Where != tt.expected {
				t.Errorf("expected '%s', got '%s'", tt.expected, frag.Where)
			}
			if !reflect.DeepEqual(frag.Args, tt.args) {
				t.Errorf("expected args %#v, got %#v", tt.args, frag.Args)
			}
		})
	}
}

func TestBuildSQLFragmentDateBetween(t *testing.T) {
	frag, err := BuildSQLFragment(leaf("created_at", "between", []any{"2023-01-01", "2023-01-31"}, "date"))
	if err != nil {
		t.Fatalf("BuildSQLFragment failed: %v", err)
	}
	if frag.Where != `"created_at"::date BETWEEN $1 AND $2` {
		t.Errorf("unexpected where '%s'", frag.Where)
	}
	if !reflect.DeepEqual(frag.Args, []any{"2023-01-01", "2023-01-31"}) {
		t.Errorf("unexpected args %#v", frag.Args)
	}
}

func TestBuildSQLFragmentNested(t *testing.T) {
	frag, err := BuildSQLFragment(map[string]any{"or": []any{
		leaf("a", "eq", 1, "number"),
		map[string]any{"and": []any{
			leaf("b", "gt", 2, "number"),
			leaf("c", "in", []any{"x", "y"}, "string"),
		}},
		leaf("d", "between", []any{3, 4}, "int"),
	}})
	if err != nil {
		t.Fatalf("BuildSQLFragment failed: %v", err)
	}

	expected := `("a" = $1 OR ("b" > $2 AND "c" IN ($3, $4)) OR "d" BETWEEN $5 AND $6)`
	if frag.Where != expected {
		t.Errorf("expected '%s', got '%s'", expected, frag.Where)
	}
	want := []any{1.0, 2.0, "x", "y", 3.0, 4.0}
	if !reflect.DeepEqual(frag.Args, want) {
		t.Errorf("expected args %#v, got %#v", want, frag.Args)
	}
	if !reflect.DeepEqual(frag.Names, []string{"1", "2", "3", "4", "5", "6"}) {
		t.Errorf("unexpected names %v", frag.Names)
	}
}

func TestBuildSQLFragmentImplicitList(t *testing.T) {
	l1 := leaf("a", "eq", 1, "number")
	l2 := leaf("b", "like", "x%", "string")

	list, err := BuildSQLFragment([]any{l1, l2})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	and, err := BuildSQLFragment(map[string]any{"and": []any{l1, l2}})
	if err != nil {
		t.Fatalf("and failed: %v", err)
	}
	if list.Where != and.Where || !reflect.DeepEqual(list.Args, and.Args) {
		t.Errorf("list %q %v differs from and %q %v", list.Where, list.Args, and.Where, and.Args)
	}
	if list.Where != `("a" = $1 AND "b" LIKE $2)` {
		t.Errorf("unexpected where '%s'", list.Where)
	}
}

func TestBuildSQLFragmentPlaceholderStyles(t *testing.T) {
	filter := []any{
		leaf("a", "eq", 1, "number"),
		leaf("b", "in", []any{"x", "y"}, "string"),
	}

	tests := []struct {
		style    Placeholder
		expected string
		names    []string
	}{
		{Dollar, `("a" = $1 AND "b" IN ($2, $3))`, []string{"1", "2", "3"}},
		{Colon, `("a" = :param1 AND "b" IN (:param2, :param3))`, []string{"param1", "param2", "param3"}},
		{At, `("a" = @param1 AND "b" IN (@param2, @param3))`, []string{"param1", "param2", "param3"}},
		{Question, `("a" = ? AND "b" IN (?, ?))`, []string{"1", "2", "3"}},
	}

	for _, tt := range tests {
		frag, err := NewPGEncoder(&PGOptions{Placeholder: tt.style}).Encode(filter)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		if frag.Where != tt.expected {
			t.Errorf("expected '%s', got '%s'", tt.expected, frag.Where)
		}
		if !reflect.DeepEqual(frag.Names, tt.names) {
			t.Errorf("expected names %v, got %v", tt.names, frag.Names)
		}
	}

	frag, err := NewPGEncoder(&PGOptions{Placeholder: At}).Encode(filter)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	named := frag.NamedArgs()
	if named["param1"] != 1.0 || named["param2"] != "x" || named["param3"] != "y" {
		t.Errorf("unexpected named args %#v", named)
	}
}

func TestParsePlaceholder(t *testing.T) {
	for name, want := range map[string]Placeholder{"": Dollar, "dollar": Dollar, "Colon": Colon, "at": At, "question": Question} {
		got, err := ParsePlaceholder(name)
		if err != nil || got != want {
			t.Errorf("ParsePlaceholder(%q): expected %d, got %d (%v)", name, want, got, err)
		}
	}
	if _, err := ParsePlaceholder("percent"); err == nil {
		t.Error("expected error for unknown style")
	}
}

func TestBuildSQLFragmentErrors(t *testing.T) {
	_, err := BuildSQLFragment(leaf("bad field", "eq", 1, "number"))
	var ierr *utils.IdentifierError
	if !errors.As(err, &ierr) {
		t.Fatalf("expected *utils.IdentifierError, got %v", err)
	}
	if ierr.Name != "bad field" {
		t.Errorf("unexpected name %q", ierr.Name)
	}

	_, err = BuildSQLFragment(leaf("a", "eq", "abc", "number"))
	var cerr *coerce.CoercionError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *coerce.CoercionError, got %v", err)
	}

	_, err = BuildSQLFragment(map[string]any{"field": "a", "operator": "eq", "value": 1})
	var verr *grammar.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *grammar.ValidationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Missing required field") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestBuildSQLFragmentValidatesBeforeEmitting(t *testing.T) {
	// The identifier error comes first in emission order, but the grammar
	// error further down the tree must win.
	_, err := BuildSQLFragment([]any{
		leaf("bad field", "eq", 1, "number"),
		leaf("b", "between", []any{1}, "number"),
	})
	var verr *grammar.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *grammar.ValidationError, got %v", err)
	}
}

var placeholderRe = regexp.MustCompile(`\$\d+`)

func TestPlaceholderCountMatchesArgs(t *testing.T) {
	filters := []any{
		leaf("a", "eq", 1, "number"),
		[]any{leaf("a", "in", []any{1, 2, 3, 4}, "int"), leaf("b", "notBetween", []any{"2023-01-01", "2023-02-01"}, "date")},
		map[string]any{"or": []any{
			map[string]any{"and": []any{leaf("a", "is", true, "boolean"), leaf("b", "ne", "x", "string")}},
			map[string]any{"or": []any{leaf("c", "notIn", []any{"p", "q"}, "string")}},
		}},
	}

	for i, f := range filters {
		frag, err := BuildSQLFragment(f)
		if err != nil {
			t.Fatalf("filter %d: %v", i, err)
		}
		found := placeholderRe.FindAllString(frag.Where, -1)
		if len(found) != len(frag.Args) {
			t.Errorf("filter %d: %d placeholders, %d args", i, len(found), len(frag.Args))
		}
		for k, p := range found {
			if p != "$"+frag.Names[k] {
				t.Errorf("filter %d: placeholder %d is %s, expected $%s", i, k, p, frag.Names[k])
			}
		}
	}
}

func TestEncoderConcurrentCalls(t *testing.T) {
	enc := NewPGEncoder(nil)
	filter := map[string]any{"and": []any{
		leaf("a", "eq", 1, "number"),
		leaf("b", "in", []any{1, 2}, "number"),
	}}
	expected := `("a" = $1 AND "b" IN ($2, $3))`

	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			frag, err := enc.Encode(filter)
			if err != nil {
				errs <- err.Error()
				return
			}
			if frag.Where != expected || len(frag.Args) != 3 {
				errs <- frag.Where
			}
		}()
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Errorf("unexpected result: %s", msg)
	}
}

func TestBuildSelect(t *testing.T) {
	spec := types.QuerySpec{
		Table:      "users",
		Select:     []string{"id", "name"},
		Where:      []any{leaf("age", "gte", 18, "int"), leaf("name", "iLike", "a%", "string")},
		Sort:       []types.Sort{{Field: "name", Dir: types.Desc}},
		Page:       &types.Pagination{Limit: 10, Offset: 20},
		TieBreaker: "id",
	}

	sql, args, err := BuildSelect(spec)
	if err != nil {
		t.Fatalf("BuildSelect failed: %v", err)
	}
	expected := `SELECT "id", "name" FROM "users" WHERE ("age" >= $1 AND "name" ILIKE $2) ORDER BY "name" DESC, "id" ASC LIMIT $3 OFFSET $4`
	if sql != expected {
		t.Errorf("expected '%s', got '%s'", expected, sql)
	}
	if !reflect.DeepEqual(args, []any{18.0, "a%", 10, 20}) {
		t.Errorf("unexpected args %#v", args)
	}
}

func TestBuildSelectDefaults(t *testing.T) {
	sql, args, err := BuildSelect(types.QuerySpec{Table: "t", Page: &types.Pagination{Limit: 5000}})
	if err != nil {
		t.Fatalf("BuildSelect failed: %v", err)
	}
	if sql != `SELECT * FROM "t" LIMIT $1 OFFSET $2` {
		t.Errorf("unexpected sql '%s'", sql)
	}
	if !reflect.DeepEqual(args, []any{100, 0}) {
		t.Errorf("expected clamped limit, got %#v", args)
	}

	if _, _, err := BuildSelect(types.QuerySpec{Table: "bad table"}); err == nil {
		t.Error("expected error for bad table name")
	}
	if _, _, err := BuildSelect(types.QuerySpec{Table: "t", Where: leaf("a", "bad", 1, "number")}); err == nil {
		t.Error("expected validation error")
	}
}

func TestBuildCount(t *testing.T) {
	sql, args, err := BuildCount(types.QuerySpec{
		Table: "orders",
		Where: leaf("created_at", "between", []any{"2023-01-01", "2023-01-31"}, "date"),
		Sort:  []types.Sort{{Field: "id"}},
		Page:  &types.Pagination{Limit: 10},
	})
	if err != nil {
		t.Fatalf("BuildCount failed: %v", err)
	}
	if !strings.HasPrefix(sql, "SELECT count(*) FROM (SELECT * FROM \"orders\" WHERE") {
		t.Errorf("unexpected sql '%s'", sql)
	}
	if !strings.Contains(sql, `"created_at"::date BETWEEN $1 AND $2`) {
		t.Errorf("expected renumbered between, got '%s'", sql)
	}
	if strings.Contains(sql, "ORDER BY") || strings.Contains(sql, "LIMIT") {
		t.Errorf("count must not sort or page: '%s'", sql)
	}
	if !reflect.DeepEqual(args, []any{"2023-01-01", "2023-01-31"}) {
		t.Errorf("unexpected args %#v", args)
	}
}
