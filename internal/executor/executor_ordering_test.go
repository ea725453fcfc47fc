package executor

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Pattern: Result comparison
func TestOrdering_FieldOutput_Order_Result(t *testing.T) {
	sch := mustBuildSchema(t, `
		type Query { a: String b: String c: String }
	`)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.a": NewMockValueResolver("A"),
		"Query.b": NewMockValueResolver("B"),
		"Query.c": NewMockValueResolver("C"),
	})
	exec := NewExecutor(rt, sch)
	doc := mustParseQuery(t, "{ c a b }")

	gotRes := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)
	gotCalls := rt.GetCalls()

	wantRes := &ExecutionResult{Data: map[string]any{"c": "C", "a": "A", "b": "B"}, Errors: []GraphQLError{}}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}

	wantCalls := []Call{
		{ObjectType: "Query", Field: "c", Source: nil, Args: map[string]any{}},
		{ObjectType: "Query", Field: "a", Source: nil, Args: map[string]any{}},
		{ObjectType: "Query", Field: "b", Source: nil, Args: map[string]any{}},
	}
	if diff := cmp.Diff(wantCalls, gotCalls); diff != "" {
		t.Fatalf("Runtime calls mismatch (-want +got):\n%s", diff)
	}
}

// Pattern: Result comparison
func TestOrdering_FragmentMerge_DuplicateFields_Result(t *testing.T) {
	sch := mustBuildSchema(t, `
		type Query { obj: Obj }
		type Obj { a: Sub }
		type Sub { x: String y: String }
	`)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.obj": NewMockValueResolver(map[string]any{}),
		"Obj.a":     NewMockValueResolver(map[string]any{}),
		"Sub.x":     NewMockValueResolver("X"),
		"Sub.y":     NewMockValueResolver("Y"),
	})
	exec := NewExecutor(rt, sch)
	doc := mustParseQuery(t, "{ obj { a { x } a { y } } }")

	gotRes := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)
	gotCalls := rt.GetCalls()

	wantRes := &ExecutionResult{Data: map[string]any{"obj": map[string]any{"a": map[string]any{"x": "X", "y": "Y"}}}, Errors: []GraphQLError{}}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}

	wantCalls := []Call{
		{ObjectType: "Query", Field: "obj", Source: nil, Args: map[string]any{}},
		{ObjectType: "Obj", Field: "a", Source: map[string]any{}, Args: map[string]any{}},
		{ObjectType: "Sub", Field: "x", Source: map[string]any{}, Args: map[string]any{}},
		{ObjectType: "Sub", Field: "y", Source: map[string]any{}, Args: map[string]any{}},
	}
	if diff := cmp.Diff(wantCalls, gotCalls); diff != "" {
		t.Fatalf("Runtime calls mismatch (-want +got):\n%s", diff)
	}
}

// Pattern: Result comparison
func TestOrdering_Aliases_Result(t *testing.T) {
	sch := mustBuildSchema(t, `
		type Query { a: String }
	`)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.a": NewMockValueResolver("A"),
	})
	exec := NewExecutor(rt, sch)
	doc := mustParseQuery(t, "{ second: a first: a }")

	gotRes := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)

	wantRes := &ExecutionResult{Data: map[string]any{"second": "A", "first": "A"}, Errors: []GraphQLError{}}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

// Pattern: Result comparison
func TestOrdering_SkipInclude_Result(t *testing.T) {
	sch := mustBuildSchema(t, `
		type Query { a: String b: String c: String }
	`)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.a": NewMockValueResolver("A"),
		"Query.b": NewMockValueResolver("B"),
		"Query.c": NewMockValueResolver("C"),
	})
	exec := NewExecutor(rt, sch)
	doc := mustParseQuery(t, `
		query Q($yes: Boolean!, $no: Boolean!) {
			a @skip(if: $yes)
			b @include(if: $yes)
			c @include(if: $no)
		}
	`)

	gotRes := exec.ExecuteRequest(context.Background(), doc, "Q", map[string]any{"yes": true, "no": false}, nil)

	wantRes := &ExecutionResult{Data: map[string]any{"b": "B"}, Errors: []GraphQLError{}}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

// Pattern: Result comparison
func TestOrdering_TypenameWithoutResolver_Result(t *testing.T) {
	sch := mustBuildSchema(t, `
		type Query { obj: Obj }
		type Obj { a: String }
	`)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.obj": NewMockValueResolver(map[string]any{}),
		"Obj.a":     NewMockValueResolver("A"),
	})
	exec := NewExecutor(rt, sch)
	doc := mustParseQuery(t, "{ obj { __typename a } }")

	gotRes := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)

	wantRes := &ExecutionResult{Data: map[string]any{"obj": map[string]any{"__typename": "Obj", "a": "A"}}, Errors: []GraphQLError{}}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}

	wantCalls := []Call{
		{ObjectType: "Query", Field: "obj", Source: nil, Args: map[string]any{}},
		{ObjectType: "Obj", Field: "a", Source: map[string]any{}, Args: map[string]any{}},
	}
	if diff := cmp.Diff(wantCalls, rt.GetCalls()); diff != "" {
		t.Fatalf("Runtime calls mismatch (-want +got):\n%s", diff)
	}
}
