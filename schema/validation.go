package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Validation rules reported in ValidationError.Rule.
const (
	RuleRequired = "required"
	RuleType     = "type"
	RuleEnum     = "enum"
	RuleMinimum  = "minimum"
	RuleMaximum  = "maximum"
	RuleJSON     = "json"
)

// Arguments are validated, coerced arguments keyed by property name.
type Arguments map[string]any

// String returns the named argument as a string, or "" when absent.
func (a Arguments) String(name string) string {
	switch v := a[name].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the named argument as an int64.
func (a Arguments) Int(name string) (int64, bool) {
	f, ok := toFloat(a[name])
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// Bool returns the named argument as a bool.
func (a Arguments) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

// Map returns the named argument as a JSON object.
func (a Arguments) Map(name string) map[string]any {
	m, _ := a[name].(map[string]any)
	return m
}

// Slice returns the named argument as a list.
func (a Arguments) Slice(name string) []any {
	s, _ := a[name].([]any)
	return s
}

// Has reports whether the named argument is present.
func (a Arguments) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// ValidationError represents a schema validation error.
type ValidationError struct {
	Path    string // JSON path to the invalid field (e.g., "user.email")
	Rule    string // Violated rule, one of the Rule constants
	Message string // Human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range e {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("  - ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Fields returns the error messages keyed by path. Messages for the same
// path are joined with "; ".
func (e ValidationErrors) Fields() map[string]string {
	fields := make(map[string]string, len(e))
	for _, err := range e {
		if prev, ok := fields[err.Path]; ok {
			fields[err.Path] = prev + "; " + err.Message
			continue
		}
		fields[err.Path] = err.Message
	}
	return fields
}

// ValidateJSON decodes raw as a JSON object and validates it.
// Empty input is treated as an empty object.
func (s *Schema) ValidateJSON(raw json.RawMessage) (Arguments, error) {
	args := map[string]any{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, ValidationErrors{{Rule: RuleJSON, Message: fmt.Sprintf("invalid JSON: %s", err)}}
		}
	}
	return s.Validate(args)
}

// Validate checks args against the schema's properties and returns the
// coerced arguments. Undeclared keys are dropped. On failure the error is a
// ValidationErrors ordered by property name.
func (s *Schema) Validate(args map[string]any) (Arguments, error) {
	var errs ValidationErrors
	out := s.validateProperties("", args, &errs)
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

func (s *Schema) validateProperties(path string, obj map[string]any, errs *ValidationErrors) Arguments {
	out := make(Arguments, len(s.Properties))
	for _, name := range s.Names() {
		prop := s.Properties[name]
		fieldPath := joinPath(path, name)
		val, present := obj[name]

		if s.IsRequired(name) {
			if !present || isBlank(val) {
				*errs = append(*errs, &ValidationError{
					Path:    fieldPath,
					Rule:    RuleRequired,
					Message: "required field is missing",
				})
				continue
			}
		} else if !present || val == nil {
			if prop.Default != nil {
				out[name] = prop.Default
			}
			continue
		}

		if coerced, ok := prop.validate(fieldPath, val, errs); ok {
			out[name] = coerced
		}
	}
	return out
}

// validate checks a single non-nil value and returns its coerced form.
func (s *Schema) validate(path string, value any, errs *ValidationErrors) (any, bool) {
	before := len(*errs)

	var coerced any
	switch s.Type {
	case typeObject:
		coerced = s.validateObject(path, value, errs)
	case typeArray:
		coerced = s.validateArray(path, value, errs)
	case typeInteger, typeNumber:
		coerced = s.validateNumber(path, value, errs)
	case typeBoolean:
		coerced = s.validateBoolean(path, value, errs)
	default:
		// Unknown types fall back to the string check.
		coerced = s.validateString(path, value, errs)
	}

	if len(*errs) > before {
		return nil, false
	}
	if len(s.Enum) > 0 && !s.enumContains(coerced) {
		*errs = append(*errs, &ValidationError{
			Path:    path,
			Rule:    RuleEnum,
			Message: fmt.Sprintf("value must be one of: %v", s.Enum),
		})
		return nil, false
	}
	return coerced, true
}

func (s *Schema) validateObject(path string, value any, errs *ValidationErrors) any {
	obj, ok := value.(map[string]any)
	if !ok {
		*errs = append(*errs, typeError(path, "object", value))
		return nil
	}
	if len(s.Properties) == 0 {
		return obj
	}
	return map[string]any(s.validateProperties(path, obj, errs))
}

func (s *Schema) validateArray(path string, value any, errs *ValidationErrors) any {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		*errs = append(*errs, typeError(path, "array", value))
		return nil
	}

	items := make([]any, rv.Len())
	for i := range items {
		item := rv.Index(i).Interface()
		if s.Items == nil || item == nil {
			items[i] = item
			continue
		}
		if coerced, ok := s.Items.validate(fmt.Sprintf("%s[%d]", path, i), item, errs); ok {
			items[i] = coerced
		}
	}
	return items
}

func (s *Schema) validateString(path string, value any, errs *ValidationErrors) any {
	str, ok := value.(string)
	if !ok {
		*errs = append(*errs, typeError(path, "string", value))
		return nil
	}
	return str
}

func (s *Schema) validateNumber(path string, value any, errs *ValidationErrors) any {
	num, ok := toFloat(value)
	if !ok {
		*errs = append(*errs, typeError(path, "number", value))
		return nil
	}

	if s.Minimum != nil && num < *s.Minimum {
		*errs = append(*errs, &ValidationError{
			Path:    path,
			Rule:    RuleMinimum,
			Message: fmt.Sprintf("value %v is less than minimum %v", num, *s.Minimum),
		})
	}
	if s.Maximum != nil && num > *s.Maximum {
		*errs = append(*errs, &ValidationError{
			Path:    path,
			Rule:    RuleMaximum,
			Message: fmt.Sprintf("value %v is greater than maximum %v", num, *s.Maximum),
		})
	}

	if s.Type == typeInteger && num == math.Trunc(num) && math.Abs(num) < 1<<63 {
		return int64(num)
	}
	return num
}

func (s *Schema) validateBoolean(path string, value any, errs *ValidationErrors) any {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch v {
		case "1", "true":
			return true
		case "0", "false":
			return false
		}
	default:
		if f, ok := toFloat(value); ok {
			switch f {
			case 1:
				return true
			case 0:
				return false
			}
		}
	}
	*errs = append(*errs, typeError(path, "boolean", value))
	return nil
}

func (s *Schema) enumContains(v any) bool {
	for _, e := range s.Enum {
		if equalValues(e, v) {
			return true
		}
	}
	return false
}

func equalValues(a, b any) bool {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum && bNum && !(isString(a) && isString(b)) {
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func typeError(path, want string, value any) *ValidationError {
	return &ValidationError{
		Path:    path,
		Rule:    RuleType,
		Message: fmt.Sprintf("expected %s, got %s", want, jsonType(value)),
	}
}

func jsonType(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	if _, ok := toFloat(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

// isBlank reports values that fail a required check: null, "", or an empty
// list.
func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	}
	return false
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

// toFloat converts JSON numbers, Go numeric types and numeric strings.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func joinPath(base, field string) string {
	if base == "" {
		return field
	}
	return base + "." + field
}
