// Package composition implements the subgraph side of the composition
// contract: it parses federated subgraph SDL, rejects inconsistent entity key
// declarations across subgraphs, and merges type fields additively with
// per-field origin metadata. Query planning is a gateway concern and is not
// implemented here.
package composition

import (
	"fmt"
	"sort"
	"strings"

	federation "github.com/hanpama/subgraph/internal/federation"
	schema "github.com/hanpama/subgraph/internal/schema"
)

// Subgraph is one parsed subgraph SDL with its entity key declarations.
type Subgraph struct {
	Name   string
	Schema *schema.Schema
	Keys   []federation.EntityKey
}

// ParseSubgraph builds a subgraph from SDL, typically the output of a
// _service { sdl } query.
func ParseSubgraph(name, sdl string) (*Subgraph, error) {
	sch, err := schema.BuildFromSDL(name, sdl)
	if err != nil {
		return nil, fmt.Errorf("subgraph %s: %w", name, err)
	}
	keys, keyErrs := federation.CollectKeys(sch)
	if len(keyErrs) > 0 {
		return nil, fmt.Errorf("subgraph %s: %w", name, keyErrs)
	}
	return &Subgraph{Name: name, Schema: sch, Keys: keys}, nil
}

// MergedField is a field of a composed type together with the subgraphs that
// declare it.
type MergedField struct {
	Name    string
	Type    string // rendered type reference, e.g. "[User!]!"
	Origins []string
}

// MergedType is a composed object type.
type MergedType struct {
	Name   string
	Keys   []string // normalized key field sets
	Fields []MergedField
}

// Supergraph is the result of composing subgraph schemas.
type Supergraph struct {
	Types map[string]*MergedType
}

// Error is one composition conflict.
type Error struct {
	TypeName string
	Message  string
}

func (e *Error) Error() string { return fmt.Sprintf("type %s: %s", e.TypeName, e.Message) }

// Errors aggregates composition conflicts.
type Errors []*Error

func (es Errors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return "composition failed: " + strings.Join(msgs, "; ")
}

// Compose merges object types across subgraphs. Entity types merge
// additively when the subgraphs share at least one key declaration; a type
// declared as an entity in two subgraphs with disjoint key sets is rejected,
// as is a field declared with conflicting types.
func Compose(subgraphs ...*Subgraph) (*Supergraph, error) {
	super := &Supergraph{Types: map[string]*MergedType{}}
	keySets := map[string]map[string][]string{} // type -> key -> declaring subgraphs
	var errs Errors

	for _, sub := range subgraphs {
		entityKeys := map[string][]string{}
		for _, k := range sub.Keys {
			entityKeys[k.TypeName] = append(entityKeys[k.TypeName], k.FieldSet)
		}

		typeNames := make([]string, 0, len(sub.Schema.Types))
		for name := range sub.Schema.Types {
			typeNames = append(typeNames, name)
		}
		sort.Strings(typeNames)

		for _, name := range typeNames {
			t := sub.Schema.Types[name]
			if t.Kind != schema.TypeKindObject || isFederationType(name) || isBuiltin(name) {
				continue
			}
			merged := super.Types[name]
			if merged == nil {
				merged = &MergedType{Name: name}
				super.Types[name] = merged
			}

			for _, fieldSet := range entityKeys[name] {
				if keySets[name] == nil {
					keySets[name] = map[string][]string{}
				}
				keySets[name][fieldSet] = append(keySets[name][fieldSet], sub.Name)
				if !contains(merged.Keys, fieldSet) {
					merged.Keys = append(merged.Keys, fieldSet)
				}
			}

			for _, f := range t.Fields {
				if strings.HasPrefix(f.Name, "_") {
					continue
				}
				rendered := renderTypeRef(f.Type)
				idx := fieldIndex(merged.Fields, f.Name)
				if idx < 0 {
					merged.Fields = append(merged.Fields, MergedField{
						Name:    f.Name,
						Type:    rendered,
						Origins: []string{sub.Name},
					})
					continue
				}
				existing := &merged.Fields[idx]
				if existing.Type != rendered {
					errs = append(errs, &Error{
						TypeName: name,
						Message:  fmt.Sprintf("field %s has conflicting types %s and %s", f.Name, existing.Type, rendered),
					})
					continue
				}
				existing.Origins = append(existing.Origins, sub.Name)
			}
		}
	}

	// A type that is an entity in two subgraphs must share a key, otherwise
	// the gateway has no representation both sides understand.
	typeNames := make([]string, 0, len(keySets))
	for name := range keySets {
		typeNames = append(typeNames, name)
	}
	sort.Strings(typeNames)
	for _, name := range typeNames {
		declaring := map[string]bool{}
		for _, subs := range keySets[name] {
			for _, s := range subs {
				declaring[s] = true
			}
		}
		if len(declaring) < 2 {
			continue
		}
		shared := false
		for _, subs := range keySets[name] {
			if len(uniqueStrings(subs)) == len(declaring) {
				shared = true
				break
			}
		}
		if !shared {
			errs = append(errs, &Error{
				TypeName: name,
				Message:  "entity is declared with inconsistent keys across subgraphs",
			})
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return super, nil
}

func isFederationType(name string) bool {
	switch name {
	case "_Service", "_Entity", "_Any", "_FieldSet":
		return true
	}
	return false
}

func isBuiltin(name string) bool {
	switch name {
	case "String", "Int", "Float", "Boolean", "ID":
		return true
	}
	return strings.HasPrefix(name, "__")
}

func fieldIndex(fields []MergedField, name string) int {
	for i := range fields {
		if fields[i].Name == name {
			return i
		}
	}
	return -1
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func uniqueStrings(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func renderTypeRef(ref *schema.TypeRef) string {
	if ref == nil {
		return ""
	}
	switch ref.Kind {
	case schema.TypeRefKindNonNull:
		return renderTypeRef(ref.OfType) + "!"
	case schema.TypeRefKindList:
		return "[" + renderTypeRef(ref.OfType) + "]"
	default:
		return ref.Named
	}
}
