// Package guidelines holds project guidelines that built-in prompts append
// to their output.
package guidelines

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Guideline is one project rule. In guideline files it is either an object
// or a bare string, which becomes Text.
type Guideline struct {
	Title       string `json:"title,omitempty"`
	Content     string `json:"content,omitempty"`
	Description string `json:"description,omitempty"`
	// Context scopes the guideline to prompts of one kind, such as
	// "code-generation" or "debugging".
	Context string `json:"context,omitempty"`
	Text    string `json:"-"`
}

// UnmarshalJSON accepts an object or a plain string.
func (g *Guideline) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*g = Guideline{Text: text}
		return nil
	}
	type plain Guideline
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*g = Guideline(p)
	return nil
}

// Service stores guidelines in insertion order, indexed by context.
type Service struct {
	mu        sync.RWMutex
	all       []Guideline
	byContext map[string][]Guideline
}

// NewService creates an empty Service.
func NewService() *Service {
	return &Service{byContext: make(map[string][]Guideline)}
}

// Add appends g.
func (s *Service) Add(g Guideline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.add(g)
}

func (s *Service) add(g Guideline) {
	s.all = append(s.all, g)
	if g.Context != "" {
		s.byContext[g.Context] = append(s.byContext[g.Context], g)
	}
}

// All returns every guideline.
func (s *Service) All() []Guideline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Guideline(nil), s.all...)
}

// ForContext returns the guidelines scoped to context. An empty context
// returns All.
func (s *Service) ForContext(context string) []Guideline {
	if context == "" {
		return s.All()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Guideline(nil), s.byContext[context]...)
}

// Load reads guidelines from a JSON file or from every *.json file in a
// directory. A missing path loads nothing.
func (s *Service) Load(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("guidelines: %w", err)
	}
	if info.IsDir() {
		return s.LoadDir(path)
	}
	return s.LoadFile(path)
}

// LoadFile appends the guidelines in a JSON array file.
func (s *Service) LoadFile(path string) error {
	loaded, err := readFile(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range loaded {
		s.add(g)
	}
	return nil
}

// LoadDir appends the guidelines of every *.json file in dir, in file name
// order.
func (s *Service) LoadDir(dir string) error {
	loaded, err := readDir(dir)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range loaded {
		s.add(g)
	}
	return nil
}

// Reload replaces the stored guidelines with those found at path.
func (s *Service) Reload(path string) error {
	fresh := NewService()
	if err := fresh.Load(path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all, s.byContext = fresh.all, fresh.byContext
	return nil
}

func readDir(dir string) ([]Guideline, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("guidelines: %w", err)
	}
	sort.Strings(paths)

	var all []Guideline
	for _, p := range paths {
		loaded, err := readFile(p)
		if err != nil {
			return nil, err
		}
		all = append(all, loaded...)
	}
	return all, nil
}

func readFile(path string) ([]Guideline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("guidelines: %w", err)
	}
	var loaded []Guideline
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("guidelines: parse %s: %w", filepath.Base(path), err)
	}
	return loaded, nil
}

// Format renders guidelines as a markdown appendix, or "" when there are
// none.
func Format(guidelines []Guideline) string {
	if len(guidelines) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\n## Project Guidelines\n\n")
	b.WriteString("Please follow these project-specific guidelines:\n\n")
	for _, g := range guidelines {
		if g.Text != "" {
			b.WriteString("- " + g.Text + "\n")
			continue
		}
		if g.Title != "" {
			b.WriteString("### " + g.Title + "\n\n")
		}
		switch {
		case g.Content != "":
			b.WriteString(g.Content + "\n\n")
		case g.Description != "":
			b.WriteString(g.Description + "\n\n")
		}
	}
	return b.String()
}
