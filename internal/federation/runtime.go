package federation

import (
	"context"
	"fmt"

	executor "github.com/hanpama/subgraph/internal/executor"
	schema "github.com/hanpama/subgraph/internal/schema"
)

// Wrapper bundles the federation-augmented schema with the runtime serving
// it and the SDL snapshot exposed at Query._service.
type Wrapper struct {
	Runtime executor.Runtime
	Schema  *schema.Schema
	SDL     string
	Keys    []EntityKey
}

// Wrap augments the schema with the federation surface and returns a Runtime
// that intercepts Query._service, Query._entities, _Service.sdl, and _Entity
// type resolution, delegating everything else to base. The SDL snapshot is
// rendered once here; augmentation failures abort startup.
func Wrap(base executor.Runtime, sch *schema.Schema, registry *Registry, opts ...FetcherOption) (*Wrapper, error) {
	augmented, keys, err := Augment(sch)
	if err != nil {
		return nil, err
	}
	r := &runtime{
		base:      base,
		queryType: augmented.QueryType,
		sdl:       schema.Render(augmented),
		fetcher:   NewFetcher(keys, registry, opts...),
	}
	return &Wrapper{Runtime: r, Schema: augmented, SDL: r.sdl, Keys: keys}, nil
}

type runtime struct {
	base      executor.Runtime
	queryType string
	sdl       string
	fetcher   *Fetcher
}

func (r *runtime) ResolveField(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	if objectType == r.queryType {
		switch field {
		case "_service":
			return map[string]any{"sdl": r.sdl}, nil
		case "_entities":
			return r.resolveEntities(ctx, args)
		}
	}
	if objectType == "_Service" && field == "sdl" {
		return r.sdl, nil
	}
	return r.base.ResolveField(ctx, objectType, field, source, args)
}

// resolveEntities runs the batch and reports per-position failures as
// path-scoped errors on a partial value, so one bad representation never
// fails the whole field.
func (r *runtime) resolveEntities(ctx context.Context, args map[string]any) (any, error) {
	raw, ok := args["representations"].([]any)
	if !ok {
		return nil, fmt.Errorf("_entities requires a representations list")
	}
	entities, entityErrs := r.fetcher.Fetch(ctx, raw)

	value := make([]any, len(entities))
	for i, e := range entities {
		if e != nil {
			value[i] = e
		}
	}
	if len(entityErrs) == 0 {
		return value, nil
	}

	gqlErrs := make([]executor.GraphQLError, len(entityErrs))
	for i, ee := range entityErrs {
		gqlErrs[i] = executor.GraphQLError{
			Message:    ee.Error(),
			Path:       executor.Path{ee.Index},
			Extensions: map[string]any{"code": string(ee.Kind)},
		}
	}
	return nil, &executor.PartialError{Value: value, Errors: gqlErrs}
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	if abstractType == "_Entity" {
		if e, ok := value.(*Entity); ok {
			return e.TypeName, nil
		}
		return "", fmt.Errorf("unexpected _Entity value of type %T", value)
	}
	return r.base.ResolveType(ctx, abstractType, value)
}

func (r *runtime) ResolveConcreteValue(ctx context.Context, abstractType string, value any) (any, error) {
	if abstractType == "_Entity" {
		if e, ok := value.(*Entity); ok {
			return e.Value, nil
		}
		return nil, fmt.Errorf("unexpected _Entity value of type %T", value)
	}
	return r.base.ResolveConcreteValue(ctx, abstractType, value)
}

func (r *runtime) SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error) {
	return r.base.SerializeLeafValue(ctx, scalarOrEnumTypeName, value)
}
