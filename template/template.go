// Package template renders prompt text containing {{key}} placeholders.
//
// Placeholders tolerate inner whitespace ({{ key }}). Sections render their
// body only when the key holds a non-empty value:
//
//	{{#code_snippet}}Code:
//	{{code_snippet}}{{/code_snippet}}
//
// Substitution is a single left-to-right pass over the original text, so
// substituted values are never rescanned and overlapping key names cannot
// interfere with each other.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"strconv"
	"strings"
)

// ErrEmptyTemplate is returned by New when the template text is blank.
var ErrEmptyTemplate = errors.New("template: template text must not be empty")

// Keys are any text without braces; surrounding whitespace is trimmed.
var tagPattern = regexp.MustCompile(`\{\{\s*([#/]?)\s*([^{}#/\s](?:[^{}]*[^{}\s])?)\s*\}\}`)

// Template is an immutable prompt template.
type Template struct {
	text     string
	defaults map[string]any
}

// New creates a template. Defaults are merged under the variables passed to
// Render.
func New(text string, defaults map[string]any) (*Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyTemplate
	}
	return &Template{text: text, defaults: maps.Clone(defaults)}, nil
}

// Must is like New but panics on error.
func Must(text string, defaults map[string]any) *Template {
	t, err := New(text, defaults)
	if err != nil {
		panic(err)
	}
	return t
}

// Text returns the raw template text.
func (t *Template) Text() string {
	return t.text
}

// Render substitutes vars into the template. Unknown placeholders are left
// verbatim.
func (t *Template) Render(vars map[string]any) string {
	merged := make(map[string]any, len(t.defaults)+len(vars))
	maps.Copy(merged, t.defaults)
	maps.Copy(merged, vars)
	return render(t.text, merged)
}

// Placeholders returns the distinct keys referenced by the template, in
// order of first appearance. Section keys are included.
func (t *Template) Placeholders() []string {
	var keys []string
	seen := make(map[string]bool)
	for _, m := range tagPattern.FindAllStringSubmatch(t.text, -1) {
		if m[1] == "/" || seen[m[2]] {
			continue
		}
		seen[m[2]] = true
		keys = append(keys, m[2])
	}
	return keys
}

func render(text string, vars map[string]any) string {
	var sb strings.Builder
	sb.Grow(len(text))

	pos := 0
	for pos < len(text) {
		loc := tagPattern.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			sb.WriteString(text[pos:])
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		sigil := text[pos+loc[2] : pos+loc[3]]
		key := text[pos+loc[4] : pos+loc[5]]
		sb.WriteString(text[pos:start])

		switch sigil {
		case "#":
			val, known := vars[key]
			closeStart, closeEnd, closed := findClose(text, end, key)
			if !known || !closed {
				sb.WriteString(text[start:end])
				pos = end
				continue
			}
			if !isEmpty(val) {
				sb.WriteString(render(text[end:closeStart], vars))
			}
			pos = closeEnd
		case "/":
			sb.WriteString(text[start:end])
			pos = end
		default:
			if val, ok := vars[key]; ok {
				sb.WriteString(Stringify(val))
			} else {
				sb.WriteString(text[start:end])
			}
			pos = end
		}
	}
	return sb.String()
}

// findClose locates the {{/key}} tag closing a section opened before from.
// Nested sections with the same key are balanced.
func findClose(text string, from int, key string) (start, end int, ok bool) {
	depth := 0
	for _, loc := range tagPattern.FindAllStringSubmatchIndex(text[from:], -1) {
		if text[from+loc[4]:from+loc[5]] != key {
			continue
		}
		switch text[from+loc[2] : from+loc[3]] {
		case "#":
			depth++
		case "/":
			if depth == 0 {
				return from + loc[0], from + loc[1], true
			}
			depth--
		}
	}
	return 0, 0, false
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case bool:
		return !val
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	}
	return false
}

// Stringify returns the text form of a template value. Integral numbers have
// no decimal part, and maps and slices render as JSON.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(val)
	case fmt.Stringer:
		return val.String()
	case error:
		return val.Error()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
