package federation

import (
	"context"
	"fmt"
	"sort"
)

// ReferenceResolver turns a representation into a fully resolved entity
// value. Returning ErrNotFound (or a nil value with a nil error) means the
// entity does not exist, which is a valid outcome, not a failure.
type ReferenceResolver func(ctx context.Context, representation map[string]any) (any, error)

// Registry maps entity type names to their reference resolvers. It is wired
// once at startup and read-only afterwards, so lookups need no locking.
type Registry struct {
	resolvers map[string]ReferenceResolver
}

func NewRegistry() *Registry {
	return &Registry{resolvers: make(map[string]ReferenceResolver)}
}

// Register binds a reference resolver to an entity type name. Registering the
// same type twice fails; overwriting a resolver silently would hide wiring
// bugs.
func (r *Registry) Register(typeName string, fn ReferenceResolver) error {
	if typeName == "" {
		return fmt.Errorf("reference resolver type name must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("reference resolver for %q must not be nil", typeName)
	}
	if _, exists := r.resolvers[typeName]; exists {
		return fmt.Errorf("reference resolver for %q already registered", typeName)
	}
	r.resolvers[typeName] = fn
	return nil
}

// Lookup returns the resolver for typeName, if registered.
func (r *Registry) Lookup(typeName string) (ReferenceResolver, bool) {
	fn, ok := r.resolvers[typeName]
	return fn, ok
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.resolvers))
	for name := range r.resolvers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
