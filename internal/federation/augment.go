package federation

import (
	"sort"

	schema "github.com/hanpama/subgraph/internal/schema"
)

// Augment validates the schema's entity key declarations and returns a copy
// extended with the federation machinery: the _Any and _FieldSet scalars, the
// _Service type, the _Entity union over the declared entity types, the
// _service and _entities root fields, and the federation directive
// definitions. The input schema is never mutated.
func Augment(sch *schema.Schema) (*schema.Schema, []EntityKey, error) {
	keys, errs := CollectKeys(sch)
	if len(errs) > 0 {
		return nil, nil, errs
	}

	out := sch.Clone()

	out.Types["_Any"] = &schema.Type{
		Name:        "_Any",
		Kind:        schema.TypeKindScalar,
		Description: "Arbitrary JSON-shaped value used for entity representations.",
	}
	out.Types["_FieldSet"] = &schema.Type{
		Name:        "_FieldSet",
		Kind:        schema.TypeKindScalar,
		Description: "A selection of fields on a type, written in SDL selection syntax.",
	}
	out.Types["_Service"] = &schema.Type{
		Name: "_Service",
		Kind: schema.TypeKindObject,
		Fields: []*schema.Field{
			{Name: "sdl", Type: schema.NonNullType(schema.NamedType("String"))},
		},
	}

	entityTypes := entityTypeNames(keys)
	if len(entityTypes) > 0 {
		out.Types["_Entity"] = &schema.Type{
			Name:          "_Entity",
			Kind:          schema.TypeKindUnion,
			Description:   "Union of every type this subgraph declares a key for.",
			PossibleTypes: entityTypes,
		}
	}

	query := rootQueryCopy(out)
	query.Fields = append(query.Fields, &schema.Field{
		Name: "_service",
		Type: schema.NonNullType(schema.NamedType("_Service")),
	})
	if len(entityTypes) > 0 {
		query.Fields = append(query.Fields, &schema.Field{
			Name: "_entities",
			Type: schema.NonNullType(schema.ListType(schema.NamedType("_Entity"))),
			Arguments: []*schema.InputValue{
				{
					Name: "representations",
					Type: schema.NonNullType(schema.ListType(schema.NonNullType(schema.NamedType("_Any")))),
				},
			},
		})
	}
	out.Types[query.Name] = query

	addFederationDirectives(out)
	return out, keys, nil
}

// rootQueryCopy returns a field-copied root query type, creating one when the
// schema has none.
func rootQueryCopy(s *schema.Schema) *schema.Type {
	if s.QueryType == "" {
		s.QueryType = "Query"
	}
	base := s.Types[s.QueryType]
	if base == nil {
		return &schema.Type{Name: s.QueryType, Kind: schema.TypeKindObject}
	}
	cp := *base
	cp.Fields = append([]*schema.Field(nil), base.Fields...)
	return &cp
}

func entityTypeNames(keys []EntityKey) []string {
	seen := map[string]bool{}
	var out []string
	for _, k := range keys {
		if !seen[k.TypeName] {
			seen[k.TypeName] = true
			out = append(out, k.TypeName)
		}
	}
	sort.Strings(out)
	return out
}

func addFederationDirectives(s *schema.Schema) {
	fieldSetArg := func() []*schema.InputValue {
		return []*schema.InputValue{
			{Name: "fields", Type: schema.NonNullType(schema.NamedType("_FieldSet"))},
		}
	}
	for _, d := range []*schema.Directive{
		{
			Name:         "key",
			Description:  "Declares an entity key: the fields that identify an instance of this type across subgraphs.",
			Locations:    []string{"OBJECT", "INTERFACE"},
			Arguments:    fieldSetArg(),
			IsRepeatable: true,
		},
		{
			Name:      "external",
			Locations: []string{"OBJECT", "FIELD_DEFINITION"},
		},
		{
			Name:      "requires",
			Locations: []string{"FIELD_DEFINITION"},
			Arguments: fieldSetArg(),
		},
		{
			Name:      "provides",
			Locations: []string{"FIELD_DEFINITION"},
			Arguments: fieldSetArg(),
		},
		{
			Name:      "extends",
			Locations: []string{"OBJECT", "INTERFACE"},
		},
	} {
		if _, exists := s.Directives[d.Name]; !exists {
			s.Directives[d.Name] = d
		}
	}
}
