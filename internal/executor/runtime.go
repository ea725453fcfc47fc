package executor

import (
	"context"
)

// Runtime defines the host integration surface for field resolution,
// abstract type resolution, and leaf-value serialization used by the Executor.
//
// General contract
//   - Errors returned from any method are converted into located GraphQL
//     errors. If the field's return type is Non-Null, the Executor propagates
//     the null up to the nearest nullable ancestor per GraphQL spec.
//   - A resolver may return *PartialError to deliver a usable value together
//     with position-scoped errors; the Executor records each sub-error with
//     its path rebased onto the field path and completes the value normally.
//   - Implementations should be stateless or otherwise concurrency-safe. The
//     Executor may call these methods concurrently for different operations.
//   - Implementations must not mutate source or args values.
//
// Object/field identifiers
//   - objectType is the GraphQL type name (e.g. "User").
//   - field is the GraphQL field name on that type (e.g. "reviews").
//   - For root fields, objectType is the root type name (e.g. "Query").
//   - source is the parent object value (nil for root).
//   - args is the map of argument names to already-coerced Go values.
type Runtime interface {
	// ResolveField resolves a single field value. Return (nil, nil) to
	// produce a GraphQL null for nullable fields.
	ResolveField(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error)

	// ResolveType determines the concrete runtime type name for a value of an
	// abstract GraphQL type (interface or union). The returned name must be a
	// possible type of abstractType in the schema.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// ResolveConcreteValue converts an abstract-typed envelope value into its
	// concrete representation prior to completion. Implementations that do
	// not wrap values return the value unchanged.
	ResolveConcreteValue(ctx context.Context, abstractType string, value any) (any, error)

	// SerializeLeafValue serializes a scalar or enum value to a JSON-safe Go
	// value. For enums, return the symbolic name as string.
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}
