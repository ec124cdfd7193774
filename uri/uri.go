// Package uri validates resource locators.
//
// A locator is accepted when it is an absolute URL with a host
// ("https://example.com/x") or starts with a custom scheme ("app:",
// "custom://thing").
package uri

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrEmpty is returned when parsing an empty string.
var ErrEmpty = errors.New("uri: resource URI must not be empty")

var schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*:`)

// InvalidError reports a string that is not a valid resource URI.
type InvalidError struct {
	URI string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("uri: invalid resource URI %q", e.URI)
}

// URI is a validated resource locator.
type URI struct {
	raw    string
	parsed *url.URL // nil when the string does not parse as a URL
}

// Parse validates s.
func Parse(s string) (*URI, error) {
	if s == "" {
		return nil, ErrEmpty
	}

	u, err := url.Parse(s)
	if err != nil {
		u = nil
	}
	absolute := u != nil && u.Scheme != "" && u.Host != ""
	if !absolute && !schemePattern.MatchString(s) {
		return nil, &InvalidError{URI: s}
	}
	return &URI{raw: s, parsed: u}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) *URI {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

// String returns the URI as given.
func (u *URI) String() string {
	return u.raw
}

// Scheme returns the text before the first ':'.
func (u *URI) Scheme() (string, bool) {
	scheme, _, ok := strings.Cut(u.raw, ":")
	if !ok || scheme == "" {
		return "", false
	}
	return scheme, true
}

// Host returns the authority host, or "" when there is none.
func (u *URI) Host() string {
	if u.parsed == nil {
		return ""
	}
	return u.parsed.Host
}

// Path returns the URL path. URIs without a path yield their opaque part,
// and anything that does not parse as a URL yields the full string.
func (u *URI) Path() string {
	if u.parsed == nil {
		return u.raw
	}
	if u.parsed.Path != "" {
		return u.parsed.Path
	}
	if u.parsed.Opaque != "" {
		return u.parsed.Opaque
	}
	return u.raw
}

// Sub returns the remainder of u below base, without the separating '/'.
// It reports false when u is not base or a descendant of it.
//
//	MustParse("app://config/app.name").Sub(MustParse("app://config")) // "app.name", true
func (u *URI) Sub(base *URI) (string, bool) {
	prefix := strings.TrimSuffix(base.raw, "/")
	if u.raw == prefix || u.raw == prefix+"/" {
		return "", true
	}
	rest, ok := strings.CutPrefix(u.raw, prefix+"/")
	return rest, ok
}

// MarshalText implements encoding.TextMarshaler.
func (u *URI) MarshalText() ([]byte, error) {
	return []byte(u.raw), nil
}
