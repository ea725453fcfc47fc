// Package resolvers provides a map-backed executor.Runtime. Field resolvers
// are registered per "Type.field" key; unregistered fields fall back to
// looking the field up on the source value (map key or exported struct field).
package resolvers

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// FieldFunc resolves one field of one object type.
type FieldFunc func(ctx context.Context, source any, args map[string]any) (any, error)

// TypeFunc resolves the concrete object type name for a value of an abstract
// type (interface or union).
type TypeFunc func(ctx context.Context, value any) (string, error)

// ScalarFunc serializes a leaf value of a custom scalar for the response.
type ScalarFunc func(value any) (any, error)

// Runtime dispatches resolution to registered functions.
type Runtime struct {
	mu      sync.RWMutex
	fields  map[string]FieldFunc
	types   map[string]TypeFunc
	scalars map[string]ScalarFunc
}

func New() *Runtime {
	return &Runtime{
		fields:  make(map[string]FieldFunc),
		types:   make(map[string]TypeFunc),
		scalars: make(map[string]ScalarFunc),
	}
}

// Field registers a resolver for objectType.field, replacing any previous one.
func (r *Runtime) Field(objectType, field string, fn FieldFunc) *Runtime {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields[objectType+"."+field] = fn
	return r
}

// Type registers a concrete-type resolver for an abstract type.
func (r *Runtime) Type(abstractType string, fn TypeFunc) *Runtime {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[abstractType] = fn
	return r
}

// Scalar registers a serializer for a custom scalar.
func (r *Runtime) Scalar(name string, fn ScalarFunc) *Runtime {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scalars[name] = fn
	return r
}

// HasField reports whether a resolver is registered for objectType.field.
func (r *Runtime) HasField(objectType, field string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.fields[objectType+"."+field]
	return ok
}

func (r *Runtime) ResolveField(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	r.mu.RLock()
	fn := r.fields[objectType+"."+field]
	r.mu.RUnlock()
	if fn != nil {
		return fn(ctx, source, args)
	}
	return defaultFieldValue(source, field), nil
}

func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	r.mu.RLock()
	fn := r.types[abstractType]
	r.mu.RUnlock()
	if fn != nil {
		return fn(ctx, value)
	}
	if obj, ok := value.(map[string]any); ok {
		if typename, ok := obj["__typename"].(string); ok && typename != "" {
			return typename, nil
		}
	}
	return "", fmt.Errorf("cannot resolve concrete type for abstract type %q", abstractType)
}

func (r *Runtime) ResolveConcreteValue(ctx context.Context, abstractType string, value any) (any, error) {
	return value, nil
}

func (r *Runtime) SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error) {
	r.mu.RLock()
	fn := r.scalars[scalarOrEnumTypeName]
	r.mu.RUnlock()
	if fn != nil {
		return fn(value)
	}
	switch scalarOrEnumTypeName {
	case "Int":
		return serializeInt(value)
	case "Float":
		return serializeFloat(value)
	case "String":
		return serializeString(value)
	case "Boolean":
		return serializeBoolean(value)
	case "ID":
		return serializeID(value)
	default:
		// Enums and unregistered custom scalars pass through as-is.
		return value, nil
	}
}

// defaultFieldValue looks the field up on the source: map key first, then an
// exported struct field with a matching name or json tag.
func defaultFieldValue(source any, field string) any {
	if source == nil {
		return nil
	}
	if m, ok := source.(map[string]any); ok {
		return m[field]
	}

	rv := reflect.ValueOf(source)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("json"); ok {
			if comma := strings.IndexByte(tag, ','); comma >= 0 {
				tag = tag[:comma]
			}
			if tag != "" && tag != "-" {
				name = tag
			}
		}
		if strings.EqualFold(name, field) {
			return rv.Field(i).Interface()
		}
	}
	return nil
}

func serializeInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		if iv, err := strconv.Atoi(v); err == nil {
			return iv, nil
		}
	}
	return nil, fmt.Errorf("cannot serialize %v (%T) as Int", value, value)
}

func serializeFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return nil, fmt.Errorf("cannot serialize %v (%T) as Float", value, value)
}

func serializeString(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return fmt.Sprintf("%v", value), nil
}

func serializeBoolean(value any) (any, error) {
	if v, ok := value.(bool); ok {
		return v, nil
	}
	return nil, fmt.Errorf("cannot serialize %v (%T) as Boolean", value, value)
}

func serializeID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatInt(int64(v), 10), nil
	default:
		return fmt.Sprintf("%v", value), nil
	}
}
