package federation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func userWidgetKeys(t *testing.T) []EntityKey {
	t.Helper()
	sch := mustBuildSchema(t, `
		type Query { user: User }
		type User @key(fields: "id") { id: ID! username: String }
		type Widget @key(fields: "id") { id: ID! price: Int }
	`)
	keys, errs := CollectKeys(sch)
	require.Empty(t, errs)
	return keys
}

func TestFetch_OrderPreservedAcrossLatency(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("User", func(ctx context.Context, rep map[string]any) (any, error) {
		// Later representations finish first.
		if rep["id"] == "1" {
			time.Sleep(30 * time.Millisecond)
		}
		return map[string]any{"id": rep["id"]}, nil
	}))

	fetcher := NewFetcher(userWidgetKeys(t), reg, WithConcurrency(4))
	reps := []any{
		map[string]any{"__typename": "User", "id": "1"},
		map[string]any{"__typename": "User", "id": "2"},
		map[string]any{"__typename": "User", "id": "3"},
	}

	results, errs := fetcher.Fetch(context.Background(), reps)
	require.Empty(t, errs)
	require.Len(t, results, len(reps))
	for i, want := range []string{"1", "2", "3"} {
		require.Equal(t, "User", results[i].TypeName)
		require.Equal(t, want, results[i].Value.(map[string]any)["id"])
	}
}

func TestFetch_MalformedRepresentation(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("User", func(ctx context.Context, rep map[string]any) (any, error) {
		return map[string]any{}, nil
	}))
	fetcher := NewFetcher(userWidgetKeys(t), reg)

	results, errs := fetcher.Fetch(context.Background(), []any{
		"not an object",
		map[string]any{"id": "1"},
		map[string]any{"__typename": 7, "id": "1"},
	})

	require.Len(t, results, 3)
	require.Nil(t, results[0])
	require.Nil(t, results[1])
	require.Nil(t, results[2])
	require.Len(t, errs, 3)
	for i, e := range errs {
		require.Equal(t, KindMalformedRepresentation, e.Kind)
		require.Equal(t, i, e.Index)
	}
}

func TestFetch_KeyMismatchNeverInvokesResolver(t *testing.T) {
	invoked := false
	reg := NewRegistry()
	require.NoError(t, reg.Register("User", func(ctx context.Context, rep map[string]any) (any, error) {
		invoked = true
		return map[string]any{}, nil
	}))
	fetcher := NewFetcher(userWidgetKeys(t), reg)

	results, errs := fetcher.Fetch(context.Background(), []any{
		map[string]any{"__typename": "User", "username": "@ava"},
	})

	require.False(t, invoked)
	require.Nil(t, results[0])
	require.Len(t, errs, 1)
	require.Equal(t, KindKeyMismatch, errs[0].Kind)
	require.Equal(t, "User", errs[0].TypeName)
	require.Contains(t, errs[0].Error(), `"id"`)
}

func TestFetch_MultipleKeysDeclarationOrderPrecedence(t *testing.T) {
	sch := mustBuildSchema(t, `
		type Query { user: User }
		type User @key(fields: "id") @key(fields: "email") { id: ID! email: String! }
	`)
	keys, errs := CollectKeys(sch)
	require.Empty(t, errs)

	reg := NewRegistry()
	require.NoError(t, reg.Register("User", func(ctx context.Context, rep map[string]any) (any, error) {
		return map[string]any{"via": rep}, nil
	}))
	fetcher := NewFetcher(keys, reg)

	// Satisfies only the second declared key.
	results, fetchErrs := fetcher.Fetch(context.Background(), []any{
		map[string]any{"__typename": "User", "email": "a@b.c"},
	})
	require.Empty(t, fetchErrs)
	require.NotNil(t, results[0])
}

func TestFetch_UnknownTypeIsolation(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("User", func(ctx context.Context, rep map[string]any) (any, error) {
		return map[string]any{"id": rep["id"], "username": "@ava"}, nil
	}))
	fetcher := NewFetcher(userWidgetKeys(t), reg)

	results, errs := fetcher.Fetch(context.Background(), []any{
		map[string]any{"__typename": "User", "id": "5"},
		map[string]any{"__typename": "Widget", "id": "9"},
	})

	require.Len(t, results, 2)
	require.Nil(t, results[1])
	if diff := cmp.Diff(map[string]any{"id": "5", "username": "@ava"}, results[0].Value); diff != "" {
		t.Fatalf("resolved entity mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, errs, 1)
	require.Equal(t, KindUnresolvableType, errs[0].Kind)
	require.Equal(t, 1, errs[0].Index)
}

func TestFetch_UnregisteredTypename(t *testing.T) {
	fetcher := NewFetcher(userWidgetKeys(t), NewRegistry())

	results, errs := fetcher.Fetch(context.Background(), []any{
		map[string]any{"__typename": "Ghost", "id": "1"},
	})
	require.Nil(t, results[0])
	require.Len(t, errs, 1)
	require.Equal(t, KindUnresolvableType, errs[0].Kind)
	require.Contains(t, errs[0].Error(), "not an entity")
}

func TestFetch_NotFoundVersusFailure(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("User", func(ctx context.Context, rep map[string]any) (any, error) {
		switch rep["id"] {
		case "missing":
			return nil, ErrNotFound
		case "nil":
			return nil, nil
		case "broken":
			return nil, fmt.Errorf("backing store unavailable")
		}
		return map[string]any{"id": rep["id"]}, nil
	}))
	fetcher := NewFetcher(userWidgetKeys(t), reg)

	results, errs := fetcher.Fetch(context.Background(), []any{
		map[string]any{"__typename": "User", "id": "missing"},
		map[string]any{"__typename": "User", "id": "nil"},
		map[string]any{"__typename": "User", "id": "broken"},
		map[string]any{"__typename": "User", "id": "ok"},
	})

	require.Len(t, results, 4)
	require.Nil(t, results[0], "not found is null, not an error")
	require.Nil(t, results[1], "nil value with nil error is the same marker")
	require.Nil(t, results[2])
	require.NotNil(t, results[3])

	require.Len(t, errs, 1)
	require.Equal(t, KindResolverFailure, errs[0].Kind)
	require.Equal(t, 2, errs[0].Index)
	require.Contains(t, errs[0].Error(), "backing store unavailable")
	require.ErrorContains(t, errs[0].Cause, "backing store unavailable")
}

func TestFetch_EntityTypes(t *testing.T) {
	fetcher := NewFetcher(userWidgetKeys(t), NewRegistry())
	require.Equal(t, []string{"User", "Widget"}, fetcher.EntityTypes())
}
