package federation

import (
	"testing"

	"github.com/stretchr/testify/require"

	schema "github.com/hanpama/subgraph/internal/schema"
)

func mustBuildSchema(t *testing.T, sdl string) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL("test", sdl)
	require.NoError(t, err)
	return sch
}

func TestParseFieldSet(t *testing.T) {
	t.Run("Flat", func(t *testing.T) {
		fields, err := ParseFieldSet("id email")
		require.NoError(t, err)
		require.Len(t, fields, 2)
		require.Equal(t, "id", fields[0].Name)
		require.Equal(t, "email", fields[1].Name)
	})

	t.Run("Nested", func(t *testing.T) {
		fields, err := ParseFieldSet("org { id region } email")
		require.NoError(t, err)
		require.Len(t, fields, 2)
		require.Equal(t, "org", fields[0].Name)
		require.Len(t, fields[0].Selections, 2)
		require.Equal(t, "email", fields[1].Name)
		require.Equal(t, "org { id region } email", normalizeFieldSet(fields))
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := ParseFieldSet("")
		require.Error(t, err)
	})

	t.Run("ArgumentsRejected", func(t *testing.T) {
		_, err := ParseFieldSet(`user(id: 1)`)
		require.Error(t, err)
	})
}

func TestEntityKeyMatches(t *testing.T) {
	fields, err := ParseFieldSet("org { id } email")
	require.NoError(t, err)
	key := EntityKey{TypeName: "User", Fields: fields}

	require.True(t, key.Matches(map[string]any{
		"email": "a@b.c",
		"org":   map[string]any{"id": "o1"},
		"extra": "ignored",
	}))
	require.False(t, key.Matches(map[string]any{
		"email": "a@b.c",
		"org":   map[string]any{},
	}), "nested key field missing")
	require.False(t, key.Matches(map[string]any{
		"org": map[string]any{"id": "o1"},
	}), "top-level key field missing")
	require.False(t, key.Matches(map[string]any{
		"email": nil,
		"org":   map[string]any{"id": "o1"},
	}), "null key value does not identify an entity")
}

func TestCollectKeys(t *testing.T) {
	t.Run("DeclarationOrderPerType", func(t *testing.T) {
		sch := mustBuildSchema(t, `
			type Query { user: User }
			type User @key(fields: "id") @key(fields: "email") {
				id: ID!
				email: String!
			}
		`)
		keys, errs := CollectKeys(sch)
		require.Empty(t, errs)
		require.Len(t, keys, 2)
		require.Equal(t, "id", keys[0].FieldSet)
		require.Equal(t, "email", keys[1].FieldSet)
	})

	t.Run("InvalidDeclarations", func(t *testing.T) {
		sch := mustBuildSchema(t, `
			type Query { user: User }
			type User @key(fields: "nope") @key(fields: "posts") @key(fields: "id") {
				id: ID!
				posts: [Post!]
			}
			type Post { id: ID! }
			union Thing @key(fields: "id") = Post
		`)
		_, errs := CollectKeys(sch)
		require.Len(t, errs, 3)
		messages := make([]string, len(errs))
		for i, e := range errs {
			messages[i] = e.Error()
		}
		require.Contains(t, messages[0], "only valid on object types")
		require.Contains(t, messages[1], `"nope" does not exist on User`)
		require.Contains(t, messages[2], "must be a scalar or enum")
	})

	t.Run("DuplicateKey", func(t *testing.T) {
		sch := mustBuildSchema(t, `
			type Query { user: User }
			type User @key(fields: "id") @key(fields: " id ") { id: ID! }
		`)
		_, errs := CollectKeys(sch)
		require.Len(t, errs, 1)
		require.Contains(t, errs[0].Error(), "duplicate key declaration")
	})

	t.Run("NestedKeyValidated", func(t *testing.T) {
		sch := mustBuildSchema(t, `
			type Query { user: User }
			type User @key(fields: "org { id }") { id: ID! org: Org! }
			type Org { id: ID! }
		`)
		keys, errs := CollectKeys(sch)
		require.Empty(t, errs)
		require.Len(t, keys, 1)
		require.Equal(t, "org { id }", keys[0].FieldSet)
	})
}
