package config

import (
	"fmt"
	"maps"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Store is a flat configuration view keyed by dotted names. It is safe for
// concurrent use.
type Store struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewStore creates a store holding a copy of values.
func NewStore(values map[string]any) *Store {
	return &Store{values: maps.Clone(values)}
}

// Get returns the value for key, or def when the key is unset.
func (s *Store) Get(key string, def any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

// Set overrides the value for key.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string]any)
	}
	s.values[key] = value
}

// Bool returns key as a bool. Strings are parsed with strconv.ParseBool.
func (s *Store) Bool(key string, def bool) bool {
	switch v := s.Get(key, def).(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	case int:
		return v != 0
	}
	return def
}

// Int returns key as an int.
func (s *Store) Int(key string, def int) int {
	switch v := s.Get(key, def).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// Duration returns key as a duration. Plain numbers are read as seconds.
func (s *Store) Duration(key string, def time.Duration) time.Duration {
	switch v := s.Get(key, def).(type) {
	case time.Duration:
		return v
	case int:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return def
}

// Strings returns key as a string list. A string value is split on ';'.
func (s *Store) Strings(key string) []string {
	switch v := s.Get(key, nil).(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(v, ";") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return nil
}

// String returns key as a string.
func (s *Store) String(key, def string) string {
	if v, ok := s.Get(key, def).(string); ok {
		return v
	}
	return def
}

// Keys returns all keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Lookup resolves a dotted path. An exact key returns its value; a prefix
// returns the nested map of everything below it.
func (s *Store) Lookup(path string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.values[path]; ok {
		return v, true
	}

	prefix := path + "."
	if path == "" {
		prefix = ""
	}
	tree := make(map[string]any)
	for k, v := range s.values {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok {
			continue
		}
		insert(tree, strings.Split(rest, "."), v)
	}
	if len(tree) == 0 {
		return nil, false
	}
	return tree, true
}

func insert(tree map[string]any, parts []string, v any) {
	for _, p := range parts[:len(parts)-1] {
		child, ok := tree[p].(map[string]any)
		if !ok {
			child = make(map[string]any)
			tree[p] = child
		}
		tree = child
	}
	tree[parts[len(parts)-1]] = v
}
