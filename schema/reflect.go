package schema

import (
	"github.com/invopop/jsonschema"
)

// Reflect derives a schema from the Go struct T. Field names follow json
// tags; constraints come from jsonschema tags:
//
//	type Args struct {
//		Query string `json:"query" jsonschema:"required,description=SQL to run"`
//		Limit int    `json:"limit,omitempty" jsonschema:"minimum=1,maximum=1000"`
//	}
func Reflect[T any]() *Schema {
	r := &jsonschema.Reflector{
		DoNotReference:             true,
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
	}
	s := fromReflected(r.Reflect(new(T)))
	if s.Type == "" {
		s.Type = typeObject
	}
	return s
}

func fromReflected(js *jsonschema.Schema) *Schema {
	if js == nil {
		return &Schema{}
	}
	s := &Schema{
		Type:        js.Type,
		Description: js.Description,
		Default:     js.Default,
		Enum:        js.Enum,
	}
	if len(js.Required) > 0 {
		s.Required = append([]string(nil), js.Required...)
	}
	if js.Minimum != "" {
		if f, err := js.Minimum.Float64(); err == nil {
			s.Minimum = &f
		}
	}
	if js.Maximum != "" {
		if f, err := js.Maximum.Float64(); err == nil {
			s.Maximum = &f
		}
	}
	if js.Items != nil {
		s.Items = fromReflected(js.Items)
	}
	if js.Properties != nil && js.Properties.Len() > 0 {
		s.Properties = make(map[string]*Schema, js.Properties.Len())
		for el := js.Properties.Oldest(); el != nil; el = el.Next() {
			s.Properties[el.Key] = fromReflected(el.Value)
		}
	}
	return s
}
