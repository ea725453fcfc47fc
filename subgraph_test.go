package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const accountsSDL = `
	type Query {
		me: User
	}
	type User @key(fields: "id") {
		id: ID!
		username: String
	}
	type Widget @key(fields: "id") {
		id: ID!
		name: String
	}
`

func newAccounts(t *testing.T) *Subgraph {
	t.Helper()
	s, err := New(Config{
		SDL: accountsSDL,
		Resolvers: map[string]FieldFunc{
			"Query.me": func(ctx context.Context, source any, args map[string]any) (any, error) {
				return map[string]any{"__typename": "User", "id": "1", "username": "@root"}, nil
			},
		},
		ReferenceResolvers: map[string]ReferenceResolver{
			"User": func(ctx context.Context, rep map[string]any) (any, error) {
				switch rep["id"] {
				case "5":
					return map[string]any{"__typename": "User", "id": "5", "username": "@ava"}, nil
				case "404":
					return nil, ErrNotFound
				}
				return nil, ErrNotFound
			},
			"Widget": func(ctx context.Context, rep map[string]any) (any, error) {
				return map[string]any{"__typename": "Widget", "id": rep["id"], "name": "gizmo"}, nil
			},
		},
	})
	require.NoError(t, err)
	return s
}

func TestNew_InvalidKeyFails(t *testing.T) {
	_, err := New(Config{SDL: `
		type Query { ok: String }
		type User @key(fields: "nope") { id: ID! }
	`})
	require.Error(t, err)
	require.Contains(t, err.Error(), "nope")
}

func TestNew_InvalidResolverKey(t *testing.T) {
	_, err := New(Config{
		SDL: `type Query { ok: String }`,
		Resolvers: map[string]FieldFunc{
			"noDot": func(ctx context.Context, source any, args map[string]any) (any, error) {
				return nil, nil
			},
		},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "noDot")
}

func TestNew_ResolverForNonEntityFails(t *testing.T) {
	_, err := New(Config{
		SDL: `
			type Query { me: User }
			type User @key(fields: "id") { id: ID! }
		`,
		ReferenceResolvers: map[string]ReferenceResolver{
			"User": func(ctx context.Context, rep map[string]any) (any, error) { return nil, nil },
			"Ghost": func(ctx context.Context, rep map[string]any) (any, error) {
				return nil, nil
			},
		},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), `"Ghost"`)
}

func TestSDLCarriesFederationSurface(t *testing.T) {
	s := newAccounts(t)
	sdl := s.SDL()
	require.Contains(t, sdl, `type User @key(fields: "id")`)
	require.Contains(t, sdl, "union _Entity = User | Widget")
	require.Contains(t, sdl, "_entities(representations: [_Any!]!): [_Entity]!")
	require.Contains(t, sdl, "_service: _Service!")
}

func TestExecute_ServiceField(t *testing.T) {
	s := newAccounts(t)
	res := s.Execute(context.Background(), Request{Query: `{ _service { sdl } }`})
	require.Empty(t, res.Errors)
	data := res.Data.(map[string]any)
	svc := data["_service"].(map[string]any)
	require.Equal(t, s.SDL(), svc["sdl"])
}

func TestExecute_Entities(t *testing.T) {
	s := newAccounts(t)
	res := s.Execute(context.Background(), Request{
		Query: `query ($reps: [_Any!]!) {
			_entities(representations: $reps) {
				__typename
				... on User { id username }
				... on Widget { id name }
			}
		}`,
		Variables: map[string]any{
			"reps": []any{
				map[string]any{"__typename": "Widget", "id": "9"},
				map[string]any{"__typename": "User", "id": "5"},
			},
		},
	})
	require.Empty(t, res.Errors)

	want := map[string]any{
		"_entities": []any{
			map[string]any{"__typename": "Widget", "id": "9", "name": "gizmo"},
			map[string]any{"__typename": "User", "id": "5", "username": "@ava"},
		},
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("unexpected data (-want +got):\n%s", diff)
	}
}

func TestExecute_EntitiesPartialFailure(t *testing.T) {
	s, err := New(Config{
		SDL: `
			type Query { me: User }
			type User @key(fields: "id") {
				id: ID!
				username: String
			}
		`,
		ReferenceResolvers: map[string]ReferenceResolver{
			"User": func(ctx context.Context, rep map[string]any) (any, error) {
				return map[string]any{"__typename": "User", "id": rep["id"], "username": "@ava"}, nil
			},
		},
	})
	require.NoError(t, err)

	res := s.Execute(context.Background(), Request{
		Query: `query ($reps: [_Any!]!) {
			_entities(representations: $reps) {
				... on User { id username }
			}
		}`,
		Variables: map[string]any{
			"reps": []any{
				map[string]any{"__typename": "User", "id": "5"},
				map[string]any{"__typename": "Widget", "id": "9"},
			},
		},
	})

	data := res.Data.(map[string]any)
	entities := data["_entities"].([]any)
	require.Len(t, entities, 2)
	require.Equal(t, map[string]any{"id": "5", "username": "@ava"}, entities[0])
	require.Nil(t, entities[1])

	require.Len(t, res.Errors, 1)
	e := res.Errors[0]
	require.Equal(t, []any{"_entities", 1}, e.Path)
	require.Equal(t, "UNRESOLVABLE_TYPE", e.Extensions["code"])
	require.Contains(t, e.Message, `"Widget"`)
}

func TestExecute_NotFoundBecomesNull(t *testing.T) {
	s := newAccounts(t)
	res := s.Execute(context.Background(), Request{
		Query: `query ($reps: [_Any!]!) {
			_entities(representations: $reps) { ... on User { id } }
		}`,
		Variables: map[string]any{
			"reps": []any{map[string]any{"__typename": "User", "id": "404"}},
		},
	})
	require.Empty(t, res.Errors)
	data := res.Data.(map[string]any)
	require.Equal(t, []any{nil}, data["_entities"])
}

func TestExecute_OrdinaryField(t *testing.T) {
	s := newAccounts(t)
	res := s.Execute(context.Background(), Request{Query: `{ me { username } }`})
	require.Empty(t, res.Errors)
	data := res.Data.(map[string]any)
	require.Equal(t, map[string]any{"username": "@root"}, data["me"])
}

func TestExecute_Introspection(t *testing.T) {
	s := newAccounts(t)
	res := s.Execute(context.Background(), Request{Query: `{ __schema { queryType { name } } }`})
	require.Empty(t, res.Errors)

	off, err := New(Config{SDL: accountsSDL, DisableIntrospection: true})
	require.NoError(t, err)
	res = off.Execute(context.Background(), Request{Query: `{ __schema { queryType { name } } }`})
	require.NotEmpty(t, res.Errors)
}

func TestProgrammaticKeys(t *testing.T) {
	s, err := New(Config{
		SDL: `
			type Query { me: User }
			type User { id: ID! username: String }
		`,
		Keys: map[string][]string{"User": {"id"}},
		ReferenceResolvers: map[string]ReferenceResolver{
			"User": func(ctx context.Context, rep map[string]any) (any, error) {
				return map[string]any{"__typename": "User", "id": rep["id"]}, nil
			},
		},
	})
	require.NoError(t, err)
	require.Contains(t, s.SDL(), `type User @key(fields: "id")`)

	res := s.Execute(context.Background(), Request{
		Query: `query ($reps: [_Any!]!) {
			_entities(representations: $reps) { ... on User { id } }
		}`,
		Variables: map[string]any{
			"reps": []any{map[string]any{"__typename": "User", "id": "7"}},
		},
	})
	require.Empty(t, res.Errors)
}

func TestProgrammaticKeys_UnknownType(t *testing.T) {
	_, err := New(Config{
		SDL:  `type Query { ok: String }`,
		Keys: map[string][]string{"Ghost": {"id"}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "Ghost")
}

func TestHandler_ServesEntities(t *testing.T) {
	s := newAccounts(t)
	h, err := s.Handler()
	require.NoError(t, err)

	body := map[string]any{
		"query": `query ($reps: [_Any!]!) {
			_entities(representations: $reps) { ... on User { username } }
		}`,
		"variables": map[string]any{
			"reps": []any{map[string]any{"__typename": "User", "id": "5"}},
		},
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), `"@ava"`), w.Body.String())
}
