package schema

import (
	"errors"
	"fmt"
	"sort"
)

// Schema type constants.
const (
	typeObject  = "object"
	typeArray   = "array"
	typeString  = "string"
	typeInteger = "integer"
	typeNumber  = "number"
	typeBoolean = "boolean"
)

// Construction errors.
var (
	ErrEmptySchema             = errors.New("schema: input schema must not be empty")
	ErrMissingTypeOrProperties = errors.New("schema: input schema must declare a type or properties")
)

// Schema represents a declarative input schema.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Description string             `json:"description,omitempty"`
	Default     any                `json:"default,omitempty"`
	Enum        []any              `json:"enum,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
}

// New parses a tool input schema such as
//
//	{"type": "object", "properties": {"name": {"type": "string", "required": true}}}
//
// Property-level "required: true" and an object-level "required" list are
// both honored.
func New(decl map[string]any) (*Schema, error) {
	if len(decl) == 0 {
		return nil, ErrEmptySchema
	}
	_, hasType := decl["type"]
	_, hasProps := decl["properties"]
	if !hasType && !hasProps {
		return nil, ErrMissingTypeOrProperties
	}

	s, _, err := parse("", decl)
	if err != nil {
		return nil, err
	}
	if s.Type == "" {
		s.Type = typeObject
	}
	return s, nil
}

// Flat parses a prompt argument list, where every top-level key is a
// property declaration. An empty declaration yields an empty object schema.
func Flat(decl map[string]any) (*Schema, error) {
	s := &Schema{Type: typeObject, Properties: make(map[string]*Schema, len(decl))}
	for name, raw := range decl {
		prop, required, err := parseProperty(name, raw)
		if err != nil {
			return nil, err
		}
		s.Properties[name] = prop
		if required {
			s.Required = append(s.Required, name)
		}
	}
	sort.Strings(s.Required)
	return s, nil
}

// MustNew is like New but panics on error. It is meant for package-level
// schema literals.
func MustNew(decl map[string]any) *Schema {
	s, err := New(decl)
	if err != nil {
		panic(err)
	}
	return s
}

// Names returns the declared property names in sorted order.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRequired reports whether the named property is required.
func (s *Schema) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

func parseProperty(name string, raw any) (*Schema, bool, error) {
	decl, ok := raw.(map[string]any)
	if !ok {
		return nil, false, fmt.Errorf("schema: property %q: declaration must be an object, got %T", name, raw)
	}
	return parse(name, decl)
}

// parse builds a schema from decl. The returned bool is the property-level
// "required" flag.
func parse(path string, decl map[string]any) (*Schema, bool, error) {
	s := &Schema{}
	var required bool

	for key, v := range decl {
		switch key {
		case "type":
			t, ok := v.(string)
			if !ok {
				return nil, false, fmt.Errorf("schema: %s: type must be a string", describe(path))
			}
			s.Type = t
		case "description":
			s.Description, _ = v.(string)
		case "default":
			s.Default = v
		case "enum":
			enum, err := toSlice(v)
			if err != nil {
				return nil, false, fmt.Errorf("schema: %s: enum: %w", describe(path), err)
			}
			s.Enum = enum
		case "minimum", "maximum":
			f, ok := toFloat(v)
			if !ok {
				return nil, false, fmt.Errorf("schema: %s: %s must be a number", describe(path), key)
			}
			if key == "minimum" {
				s.Minimum = &f
			} else {
				s.Maximum = &f
			}
		case "items":
			items, _, err := parseProperty(joinPath(path, "[]"), v)
			if err != nil {
				return nil, false, err
			}
			s.Items = items
		case "required":
			switch r := v.(type) {
			case bool:
				required = r
			default:
				list, err := toSlice(v)
				if err != nil {
					return nil, false, fmt.Errorf("schema: %s: required: %w", describe(path), err)
				}
				for _, item := range list {
					if n, ok := item.(string); ok {
						s.Required = append(s.Required, n)
					}
				}
			}
		case "properties":
			props, ok := v.(map[string]any)
			if !ok {
				return nil, false, fmt.Errorf("schema: %s: properties must be an object", describe(path))
			}
			s.Properties = make(map[string]*Schema, len(props))
			for name, raw := range props {
				prop, req, err := parseProperty(joinPath(path, name), raw)
				if err != nil {
					return nil, false, err
				}
				s.Properties[name] = prop
				if req && !s.IsRequired(name) {
					s.Required = append(s.Required, name)
				}
			}
		}
	}

	if s.Type == "" && s.Properties != nil {
		s.Type = typeObject
	}
	sort.Strings(s.Required)
	return s, required, nil
}

func describe(path string) string {
	if path == "" {
		return "root"
	}
	return fmt.Sprintf("property %q", path)
}

func toSlice(v any) ([]any, error) {
	switch list := v.(type) {
	case []any:
		return list, nil
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
}
