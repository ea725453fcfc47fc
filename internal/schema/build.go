package schema

import (
	"fmt"
	"sort"
	"strconv"

	language "github.com/hanpama/subgraph/internal/language"
)

// BuildFromSDL parses a type system document and returns the corresponding
// Schema. Type extensions are merged into their base definitions before
// conversion. Root operation types default to Query/Mutation/Subscription
// unless a schema definition says otherwise.
func BuildFromSDL(name, sdl string) (*Schema, error) {
	doc, err := language.ParseSchema(name, sdl)
	if err != nil {
		return nil, err
	}
	return BuildFromDocument(doc)
}

// BuildFromDocument converts a parsed schema document into a Schema.
func BuildFromDocument(doc *language.SchemaDocument) (*Schema, error) {
	s := &Schema{
		Types:      map[string]*Type{},
		Directives: map[string]*Directive{},
	}
	s.Types["String"] = stringType
	s.Types["Int"] = intType
	s.Types["Float"] = floatType
	s.Types["Boolean"] = booleanType
	s.Types["ID"] = idType
	s.Directives["include"] = includeDirective
	s.Directives["skip"] = skipDirective
	s.Directives["deprecated"] = deprecatedDirective

	defs := map[string]*language.Definition{}
	order := make([]string, 0, len(doc.Definitions))
	for _, def := range doc.Definitions {
		if _, exists := defs[def.Name]; exists {
			return nil, fmt.Errorf("duplicate type definition %q", def.Name)
		}
		defs[def.Name] = def
		order = append(order, def.Name)
	}
	for _, ext := range doc.Extensions {
		base, ok := defs[ext.Name]
		if !ok {
			// An extension without a local base definition becomes the base.
			// Federation subgraphs extend types owned by other subgraphs.
			defs[ext.Name] = ext
			order = append(order, ext.Name)
			continue
		}
		if base.Kind != ext.Kind {
			return nil, fmt.Errorf("cannot extend %s %q as %s", base.Kind, base.Name, ext.Kind)
		}
		mergeExtension(base, ext)
	}

	for _, name := range order {
		def := defs[name]
		t, err := buildType(def)
		if err != nil {
			return nil, err
		}
		if existing, ok := s.Types[t.Name]; ok && isBuiltinType(existing) {
			return nil, fmt.Errorf("cannot redefine built-in type %q", t.Name)
		}
		s.Types[t.Name] = t
	}

	for _, dd := range doc.Directives {
		d := &Directive{
			Name:         dd.Name,
			Description:  dd.Description,
			IsRepeatable: dd.IsRepeatable,
		}
		for _, loc := range dd.Locations {
			d.Locations = append(d.Locations, string(loc))
		}
		for _, arg := range dd.Arguments {
			d.Arguments = append(d.Arguments, buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, arg.Directives))
		}
		s.Directives[d.Name] = d
	}

	resolveRootTypes(s, doc)
	resolveInterfaceImplementers(s)
	if err := validateTypeReferences(s); err != nil {
		return nil, err
	}
	return s, nil
}

// resolveInterfaceImplementers fills PossibleTypes for interfaces from the
// object types that declare them. Iteration order over the type map is not
// deterministic, so the result is sorted.
func resolveInterfaceImplementers(s *Schema) {
	for _, t := range s.Types {
		for _, ifaceName := range t.Interfaces {
			iface := s.Types[ifaceName]
			if iface == nil || iface.Kind != TypeKindInterface {
				continue
			}
			iface.PossibleTypes = append(iface.PossibleTypes, t.Name)
		}
	}
	for _, t := range s.Types {
		if t.Kind == TypeKindInterface {
			sort.Strings(t.PossibleTypes)
		}
	}
}

func mergeExtension(base, ext *language.Definition) {
	base.Directives = append(base.Directives, ext.Directives...)
	base.Interfaces = append(base.Interfaces, ext.Interfaces...)
	base.Fields = append(base.Fields, ext.Fields...)
	base.Types = append(base.Types, ext.Types...)
	base.EnumValues = append(base.EnumValues, ext.EnumValues...)
}

func resolveRootTypes(s *Schema, doc *language.SchemaDocument) {
	s.QueryType = "Query"
	s.MutationType = "Mutation"
	s.SubscriptionType = "Subscription"
	schemaDefs := append(append(language.SchemaDefinitionList{}, doc.Schema...), doc.SchemaExtension...)
	for _, sd := range schemaDefs {
		for _, op := range sd.OperationTypes {
			switch op.Operation {
			case language.Query:
				s.QueryType = op.Type
			case language.Mutation:
				s.MutationType = op.Type
			case language.Subscription:
				s.SubscriptionType = op.Type
			}
		}
		if sd.Description != "" {
			s.Description = sd.Description
		}
	}
	if _, ok := s.Types[s.MutationType]; !ok {
		s.MutationType = ""
	}
	if _, ok := s.Types[s.SubscriptionType]; !ok {
		s.SubscriptionType = ""
	}
}

func buildType(def *language.Definition) (*Type, error) {
	t := &Type{
		Name:        def.Name,
		Description: def.Description,
		Directives:  buildAppliedDirectives(def.Directives),
	}
	switch def.Kind {
	case language.Object:
		t.Kind = TypeKindObject
	case language.Interface:
		t.Kind = TypeKindInterface
	case language.Union:
		t.Kind = TypeKindUnion
	case language.Scalar:
		t.Kind = TypeKindScalar
	case language.Enum:
		t.Kind = TypeKindEnum
	case language.InputObject:
		t.Kind = TypeKindInputObject
	default:
		return nil, fmt.Errorf("unsupported definition kind %q for type %q", def.Kind, def.Name)
	}

	t.Interfaces = append(t.Interfaces, def.Interfaces...)
	t.PossibleTypes = append(t.PossibleTypes, def.Types...)

	for _, fd := range def.Fields {
		switch def.Kind {
		case language.InputObject:
			t.InputFields = append(t.InputFields, buildInputValue(fd.Name, fd.Description, fd.Type, fd.DefaultValue, fd.Directives))
		default:
			f := &Field{
				Name:        fd.Name,
				Description: fd.Description,
				Type:        buildTypeRef(fd.Type),
				Directives:  buildAppliedDirectives(fd.Directives),
			}
			for _, arg := range fd.Arguments {
				f.Arguments = append(f.Arguments, buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, arg.Directives))
			}
			if reason, ok := deprecationReason(fd.Directives); ok {
				f.IsDeprecated = true
				f.DeprecationReason = reason
			}
			t.Fields = append(t.Fields, f)
		}
	}

	for _, ev := range def.EnumValues {
		v := &EnumValue{Name: ev.Name, Description: ev.Description}
		if reason, ok := deprecationReason(ev.Directives); ok {
			v.IsDeprecated = true
			v.DeprecationReason = reason
		}
		t.EnumValues = append(t.EnumValues, v)
	}
	return t, nil
}

func buildInputValue(name, description string, typ *language.Type, defaultValue *language.Value, directives language.DirectiveList) *InputValue {
	iv := &InputValue{
		Name:        name,
		Description: description,
		Type:        buildTypeRef(typ),
	}
	if defaultValue != nil {
		iv.DefaultValue = valueToGo(defaultValue)
	}
	if reason, ok := deprecationReason(directives); ok {
		iv.IsDeprecated = true
		iv.DeprecationReason = reason
	}
	return iv
}

func buildTypeRef(t *language.Type) *TypeRef {
	if t == nil {
		return nil
	}
	if t.NonNull {
		inner := *t
		inner.NonNull = false
		return NonNullType(buildTypeRef(&inner))
	}
	if t.NamedType != "" {
		return NamedType(t.NamedType)
	}
	return ListType(buildTypeRef(t.Elem))
}

func buildAppliedDirectives(list language.DirectiveList) []*AppliedDirective {
	var out []*AppliedDirective
	for _, d := range list {
		if d.Name == "deprecated" {
			continue
		}
		ad := &AppliedDirective{Name: d.Name}
		for _, arg := range d.Arguments {
			ad.Arguments = append(ad.Arguments, &DirectiveArgument{Name: arg.Name, Value: valueToGo(arg.Value)})
		}
		out = append(out, ad)
	}
	return out
}

func deprecationReason(list language.DirectiveList) (string, bool) {
	d := list.ForName("deprecated")
	if d == nil {
		return "", false
	}
	for _, arg := range d.Arguments {
		if arg.Name == "reason" {
			if s, ok := valueToGo(arg.Value).(string); ok {
				return s, true
			}
		}
	}
	return "No longer supported", true
}

// valueToGo converts an AST value literal into a Go value.
func valueToGo(value *language.Value) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case language.IntValue:
		iv, _ := strconv.Atoi(value.Raw)
		return iv
	case language.FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case language.StringValue, language.BlockValue:
		return value.Raw
	case language.BooleanValue:
		return value.Raw == "true"
	case language.NullValue:
		return nil
	case language.EnumValue:
		return value.Raw
	case language.ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = valueToGo(c.Value)
		}
		return out
	case language.ObjectValue:
		m := make(map[string]any)
		for _, f := range value.Children {
			m[f.Name] = valueToGo(f.Value)
		}
		return m
	default:
		return nil
	}
}

// validateTypeReferences checks that every named type referenced by a field,
// argument, interface list, or union membership is defined.
func validateTypeReferences(s *Schema) error {
	check := func(owner string, ref *TypeRef) error {
		if ref == nil {
			return nil
		}
		named := ref.GetNamedType()
		if _, ok := s.Types[named]; !ok {
			return fmt.Errorf("%s references undefined type %q", owner, named)
		}
		return nil
	}
	for _, t := range s.Types {
		for _, f := range t.Fields {
			if err := check(t.Name+"."+f.Name, f.Type); err != nil {
				return err
			}
			for _, arg := range f.Arguments {
				if err := check(t.Name+"."+f.Name+"("+arg.Name+")", arg.Type); err != nil {
					return err
				}
			}
		}
		for _, iv := range t.InputFields {
			if err := check(t.Name+"."+iv.Name, iv.Type); err != nil {
				return err
			}
		}
		for _, iface := range t.Interfaces {
			if _, ok := s.Types[iface]; !ok {
				return fmt.Errorf("type %q implements undefined interface %q", t.Name, iface)
			}
		}
		for _, member := range t.PossibleTypes {
			if _, ok := s.Types[member]; !ok {
				return fmt.Errorf("union %q includes undefined type %q", t.Name, member)
			}
		}
	}
	return nil
}
