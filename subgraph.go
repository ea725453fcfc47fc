// Package subgraph builds Apollo-federation-compatible GraphQL subgraphs.
// A subgraph is an ordinary GraphQL schema whose entity types declare @key
// field sets; the gateway resolves cross-service references by calling the
// generated _entities root field with entity representations, and fetches
// the schema itself through _service { sdl }.
package subgraph

import (
	"context"
	"fmt"
	"net/http"
	"time"

	executor "github.com/hanpama/subgraph/internal/executor"
	federation "github.com/hanpama/subgraph/internal/federation"
	introspection "github.com/hanpama/subgraph/internal/introspection"
	language "github.com/hanpama/subgraph/internal/language"
	resolvers "github.com/hanpama/subgraph/internal/resolvers"
	schema "github.com/hanpama/subgraph/internal/schema"
	server "github.com/hanpama/subgraph/internal/server"
)

// ErrNotFound is returned by a reference resolver when the entity does not
// exist. The corresponding _entities position becomes null without an error.
var ErrNotFound = federation.ErrNotFound

// FieldFunc resolves one field of one object type.
type FieldFunc = resolvers.FieldFunc

// TypeFunc resolves the concrete type name for an abstract-typed value.
type TypeFunc = resolvers.TypeFunc

// ScalarFunc serializes a custom scalar leaf value.
type ScalarFunc = resolvers.ScalarFunc

// ReferenceResolver turns an entity representation into the entity value.
type ReferenceResolver = federation.ReferenceResolver

// Config describes a subgraph: its schema, resolvers, and entity wiring.
type Config struct {
	// SDL is the schema in GraphQL SDL. Entity keys are declared with
	// @key(fields: "...") directives on object types.
	SDL string

	// Resolvers maps "Type.field" to field resolvers. Fields without a
	// resolver fall back to source lookup (map key or struct field).
	Resolvers map[string]FieldFunc

	// Types maps abstract type names to concrete-type resolvers. Without
	// one, values resolve through their __typename entry.
	Types map[string]TypeFunc

	// Scalars maps custom scalar names to serializers.
	Scalars map[string]ScalarFunc

	// ReferenceResolvers maps entity type names to reference resolvers.
	// Registering a type twice (or one the schema does not declare a key
	// for) fails at construction time.
	ReferenceResolvers map[string]ReferenceResolver

	// Keys declares entity keys programmatically, per type name, as an
	// alternative to @key directives in the SDL. They are injected as
	// directive applications before augmentation, so they appear in the
	// _service SDL like any other key.
	Keys map[string][]string

	// EntityConcurrency bounds how many representations of one batch
	// resolve at once. 0 uses the default.
	EntityConcurrency int

	// DisableIntrospection turns off __schema/__type. The _service field
	// stays available; federation gateways depend on it.
	DisableIntrospection bool
}

// Subgraph is a ready-to-serve federation subgraph.
type Subgraph struct {
	exec   *executor.Executor
	rt     executor.Runtime
	schema *schema.Schema
	sdl    string
}

// New validates the configuration and builds the subgraph. Key declaration
// problems, duplicate reference resolvers, and resolvers for non-entity
// types all fail here rather than at request time.
func New(cfg Config) (*Subgraph, error) {
	sch, err := schema.BuildFromSDL("subgraph", cfg.SDL)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	injectKeys(sch, cfg.Keys)

	base := resolvers.New()
	for key, fn := range cfg.Resolvers {
		objectType, field, ok := splitFieldKey(key)
		if !ok {
			return nil, fmt.Errorf("invalid resolver key %q, want \"Type.field\"", key)
		}
		base.Field(objectType, field, fn)
	}
	for name, fn := range cfg.Types {
		base.Type(name, fn)
	}
	for name, fn := range cfg.Scalars {
		base.Scalar(name, fn)
	}

	registry := federation.NewRegistry()
	for name, fn := range cfg.ReferenceResolvers {
		if err := registry.Register(name, fn); err != nil {
			return nil, err
		}
	}

	var fetchOpts []federation.FetcherOption
	if cfg.EntityConcurrency > 0 {
		fetchOpts = append(fetchOpts, federation.WithConcurrency(cfg.EntityConcurrency))
	}
	fed, err := federation.Wrap(base, sch, registry, fetchOpts...)
	if err != nil {
		return nil, err
	}

	entityTypes := map[string]bool{}
	for _, k := range fed.Keys {
		entityTypes[k.TypeName] = true
	}
	for _, name := range registry.Types() {
		if !entityTypes[name] {
			return nil, fmt.Errorf("reference resolver registered for %q, which declares no key", name)
		}
	}

	rt, runtimeSchema := fed.Runtime, fed.Schema
	if !cfg.DisableIntrospection {
		intro := introspection.Wrap(rt, runtimeSchema)
		rt, runtimeSchema = intro.Runtime, intro.Schema
	}

	return &Subgraph{
		exec:   executor.NewExecutor(rt, runtimeSchema),
		rt:     rt,
		schema: runtimeSchema,
		sdl:    fed.SDL,
	}, nil
}

// SDL returns the schema served at _service { sdl }: the subgraph schema
// with its federation types, root fields, and directive definitions.
func (s *Subgraph) SDL() string { return s.sdl }

// Request is one GraphQL request.
type Request struct {
	Query         string
	OperationName string
	Variables     map[string]any
}

// Error is one GraphQL response error.
type Error struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Response is one GraphQL response.
type Response struct {
	Data   any     `json:"data"`
	Errors []Error `json:"errors,omitempty"`
}

// Execute runs a request against the subgraph without HTTP.
func (s *Subgraph) Execute(ctx context.Context, req Request) *Response {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		return &Response{Errors: []Error{{Message: err.Error()}}}
	}
	res := s.exec.ExecuteRequest(ctx, doc, req.OperationName, req.Variables, nil)
	out := &Response{Data: res.Data}
	for _, e := range res.Errors {
		out.Errors = append(out.Errors, Error{
			Message:    e.Message,
			Path:       append([]any(nil), e.Path...),
			Extensions: e.Extensions,
		})
	}
	return out
}

// ServerOption configures the HTTP handler returned by Handler.
type ServerOption = server.Option

func WithTimeout(d time.Duration) ServerOption        { return server.WithTimeout(d) }
func WithPretty() ServerOption                        { return server.WithPretty() }
func WithMaxBodyBytes(n int64) ServerOption           { return server.WithMaxBodyBytes(n) }
func WithCORS(origins ...string) ServerOption         { return server.WithCORS(origins...) }
func WithForwardHeaders(names ...string) ServerOption { return server.WithForwardHeaders(names...) }

// ForwardedHeaders returns the headers forwarded into the request context by
// a handler configured with WithForwardHeaders.
func ForwardedHeaders(ctx context.Context) http.Header { return server.ForwardedHeaders(ctx) }

// Handler returns an http.Handler serving the subgraph's GraphQL endpoint.
func (s *Subgraph) Handler(opts ...ServerOption) (http.Handler, error) {
	return server.New(s.rt, s.schema, opts...)
}

// injectKeys turns programmatic key declarations into @key applications so
// they flow through the same validation and rendering as SDL-declared keys.
func injectKeys(sch *schema.Schema, keys map[string][]string) {
	for typeName, fieldSets := range keys {
		t := sch.Types[typeName]
		if t == nil {
			// Non-object placeholder so CollectKeys rejects the declaration.
			t = &schema.Type{Name: typeName, Kind: schema.TypeKindUnion}
			sch.Types[typeName] = t
		}
		for _, fs := range fieldSets {
			t.Directives = append(t.Directives, &schema.AppliedDirective{
				Name:      "key",
				Arguments: []*schema.DirectiveArgument{{Name: "fields", Value: fs}},
			})
		}
	}
}

func splitFieldKey(key string) (string, string, bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			if i == 0 || i == len(key)-1 {
				return "", "", false
			}
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}
