package federation

import (
	"fmt"
	"sort"
	"strings"

	language "github.com/hanpama/subgraph/internal/language"
	schema "github.com/hanpama/subgraph/internal/schema"
)

// KeyField is one node of a parsed key field set. A leaf selects a scalar or
// enum field; a non-leaf selects an object field with nested key fields.
type KeyField struct {
	Name       string
	Selections []*KeyField
}

// EntityKey is one declared key of an entity type, e.g.
// `@key(fields: "org { id } email")`.
type EntityKey struct {
	TypeName string
	FieldSet string // normalized source form
	Fields   []*KeyField
}

// Matches reports whether rep carries a non-null value for every field of the
// key, recursing into nested selections.
func (k *EntityKey) Matches(rep map[string]any) bool {
	return fieldsMatch(k.Fields, rep)
}

func fieldsMatch(fields []*KeyField, rep map[string]any) bool {
	for _, f := range fields {
		v, ok := rep[f.Name]
		if !ok || v == nil {
			return false
		}
		if len(f.Selections) > 0 {
			sub, ok := v.(map[string]any)
			if !ok || !fieldsMatch(f.Selections, sub) {
				return false
			}
		}
	}
	return true
}

// ParseFieldSet parses a @key fields string ("id", "org { id } email") into
// key field nodes.
func ParseFieldSet(fieldSet string) ([]*KeyField, error) {
	sel, err := language.ParseFieldSet(fieldSet)
	if err != nil {
		return nil, err
	}
	return keyFieldsFromSelections(sel)
}

func keyFieldsFromSelections(sel language.SelectionSet) ([]*KeyField, error) {
	if len(sel) == 0 {
		return nil, fmt.Errorf("empty field set")
	}
	out := make([]*KeyField, 0, len(sel))
	for _, s := range sel {
		field, ok := s.(*language.Field)
		if !ok {
			return nil, fmt.Errorf("key field sets may only contain plain fields")
		}
		if field.Alias != field.Name && field.Alias != "" {
			return nil, fmt.Errorf("key field %q must not be aliased", field.Name)
		}
		if len(field.Arguments) > 0 || len(field.Directives) > 0 {
			return nil, fmt.Errorf("key field %q must not take arguments or directives", field.Name)
		}
		kf := &KeyField{Name: field.Name}
		if len(field.SelectionSet) > 0 {
			sub, err := keyFieldsFromSelections(field.SelectionSet)
			if err != nil {
				return nil, err
			}
			kf.Selections = sub
		}
		out = append(out, kf)
	}
	return out, nil
}

// normalizeFieldSet renders key fields back to a canonical single-space form
// so that equivalent declarations compare equal.
func normalizeFieldSet(fields []*KeyField) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		if len(f.Selections) > 0 {
			parts[i] = fmt.Sprintf("%s { %s }", f.Name, normalizeFieldSet(f.Selections))
		} else {
			parts[i] = f.Name
		}
	}
	return strings.Join(parts, " ")
}

// CollectKeys extracts and validates every @key declaration in the schema.
// Keys on one type keep their declaration order; types are visited in name
// order so error output is deterministic.
func CollectKeys(sch *schema.Schema) ([]EntityKey, SchemaErrors) {
	var keys []EntityKey
	var errs SchemaErrors

	names := make([]string, 0, len(sch.Types))
	for name := range sch.Types {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		t := sch.Types[name]
		decls := t.DirectivesNamed("key")
		if len(decls) == 0 {
			continue
		}
		if t.Kind != schema.TypeKindObject {
			errs = append(errs, &SchemaError{TypeName: name, Message: fmt.Sprintf("@key is only valid on object types, not %s", t.Kind)})
			continue
		}
		seen := map[string]bool{}
		for _, d := range decls {
			raw, ok := d.Argument("fields")
			if !ok {
				errs = append(errs, &SchemaError{TypeName: name, Message: "@key requires a fields argument"})
				continue
			}
			fieldSet, ok := raw.(string)
			if !ok {
				errs = append(errs, &SchemaError{TypeName: name, Message: "@key fields argument must be a string"})
				continue
			}
			fields, err := ParseFieldSet(fieldSet)
			if err != nil {
				errs = append(errs, &SchemaError{TypeName: name, FieldSet: fieldSet, Message: err.Error()})
				continue
			}
			if keyErrs := validateKeyFields(sch, t, fields, fieldSet); len(keyErrs) > 0 {
				errs = append(errs, keyErrs...)
				continue
			}
			normalized := normalizeFieldSet(fields)
			if seen[normalized] {
				errs = append(errs, &SchemaError{TypeName: name, FieldSet: fieldSet, Message: "duplicate key declaration"})
				continue
			}
			seen[normalized] = true
			keys = append(keys, EntityKey{TypeName: name, FieldSet: normalized, Fields: fields})
		}
	}
	return keys, errs
}

// validateKeyFields checks that every key field exists on the type, that
// leaves are scalars or enums, and that nested selections target object or
// interface fields.
func validateKeyFields(sch *schema.Schema, t *schema.Type, fields []*KeyField, fieldSet string) SchemaErrors {
	var errs SchemaErrors
	for _, kf := range fields {
		fd := t.GetField(kf.Name)
		if fd == nil {
			errs = append(errs, &SchemaError{TypeName: t.Name, FieldSet: fieldSet, Message: fmt.Sprintf("field %q does not exist on %s", kf.Name, t.Name)})
			continue
		}
		named := sch.Types[fd.Type.GetNamedType()]
		if named == nil {
			errs = append(errs, &SchemaError{TypeName: t.Name, FieldSet: fieldSet, Message: fmt.Sprintf("field %q has undefined type", kf.Name)})
			continue
		}
		if len(kf.Selections) == 0 {
			if named.Kind != schema.TypeKindScalar && named.Kind != schema.TypeKindEnum {
				errs = append(errs, &SchemaError{TypeName: t.Name, FieldSet: fieldSet, Message: fmt.Sprintf("key leaf %q must be a scalar or enum, not %s", kf.Name, named.Kind)})
			}
			continue
		}
		if named.Kind != schema.TypeKindObject && named.Kind != schema.TypeKindInterface {
			errs = append(errs, &SchemaError{TypeName: t.Name, FieldSet: fieldSet, Message: fmt.Sprintf("key field %q selects into %s, which is not an object", kf.Name, named.Kind)})
			continue
		}
		errs = append(errs, validateKeyFields(sch, named, kf.Selections, fieldSet)...)
	}
	return errs
}
