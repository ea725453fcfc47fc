package executor

import (
	"testing"

	language "github.com/hanpama/subgraph/internal/language"
	schema "github.com/hanpama/subgraph/internal/schema"
)

func mustParseQuery(t *testing.T, query string) *language.QueryDocument {
	t.Helper()
	doc, err := language.ParseQuery(query)
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}
	return doc
}

func mustBuildSchema(t *testing.T, sdl string) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL("test", sdl)
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}
	return sch
}
