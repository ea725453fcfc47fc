package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Pattern: Result comparison
func TestAbstract_UnionInlineFragments_Result(t *testing.T) {
	sch := mustBuildSchema(t, `
		type Query { node: Node }
		union Node = User | Widget
		type User { id: ID! name: String }
		type Widget { id: ID! price: Int }
	`)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.node": NewMockValueResolver(map[string]any{"__typename": "User", "id": "u1"}),
		"User.id":    NewMockValueResolver("u1"),
		"User.name":  NewMockValueResolver("Ada"),
	})
	exec := NewExecutor(rt, sch)
	doc := mustParseQuery(t, `
		{
			node {
				__typename
				... on User { id name }
				... on Widget { id price }
			}
		}
	`)

	gotRes := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)

	wantRes := &ExecutionResult{
		Data: map[string]any{"node": map[string]any{
			"__typename": "User",
			"id":         "u1",
			"name":       "Ada",
		}},
		Errors: []GraphQLError{},
	}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

// Pattern: Result comparison
func TestAbstract_InterfaceFragmentOnObject_Result(t *testing.T) {
	sch := mustBuildSchema(t, `
		type Query { user: User }
		interface Named { name: String }
		type User implements Named { id: ID! name: String }
	`)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.user": NewMockValueResolver(map[string]any{}),
		"User.id":    NewMockValueResolver("u1"),
		"User.name":  NewMockValueResolver("Ada"),
	})
	exec := NewExecutor(rt, sch)
	doc := mustParseQuery(t, `
		{
			user {
				id
				... on Named { name }
			}
		}
	`)

	gotRes := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)

	wantRes := &ExecutionResult{
		Data:   map[string]any{"user": map[string]any{"id": "u1", "name": "Ada"}},
		Errors: []GraphQLError{},
	}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

// Pattern: Result comparison
func TestAbstract_NamedFragmentSpread_Result(t *testing.T) {
	sch := mustBuildSchema(t, `
		type Query { node: Node }
		union Node = User
		type User { id: ID! }
	`)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.node": NewMockValueResolver(map[string]any{"__typename": "User"}),
		"User.id":    NewMockValueResolver("u1"),
	})
	exec := NewExecutor(rt, sch)
	doc := mustParseQuery(t, `
		{ node { ...UserBits } }
		fragment UserBits on User { id }
	`)

	gotRes := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)

	wantRes := &ExecutionResult{
		Data:   map[string]any{"node": map[string]any{"id": "u1"}},
		Errors: []GraphQLError{},
	}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

// Pattern: Result comparison
func TestAbstract_UnresolvableType_Result(t *testing.T) {
	sch := mustBuildSchema(t, `
		type Query { node: Node }
		union Node = User
		type User { id: ID! }
	`)
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.node": NewMockValueResolver(map[string]any{"no": "typename"}),
	})
	rt.SetTypeResolver(func(value any) (string, error) {
		return "", fmt.Errorf("cannot determine concrete type")
	})
	exec := NewExecutor(rt, sch)
	doc := mustParseQuery(t, "{ node { ... on User { id } } }")

	gotRes := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)

	wantRes := &ExecutionResult{
		Data:   map[string]any{"node": nil},
		Errors: []GraphQLError{{Message: "cannot determine concrete type", Path: Path{"node"}}},
	}
	if diff := cmp.Diff(wantRes, gotRes); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}
