// Package files is the filesystem backend behind the file-operation tool.
package files

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrPathNotAllowed is returned for paths outside the allow-list, or
	// outside the root when no allow-list is configured.
	ErrPathNotAllowed = errors.New("files: path is not allowed")
	// ErrNotFound is returned when the target file does not exist.
	ErrNotFound = errors.New("files: file not found")
	// ErrNotDirectory is returned when listing a path that is not a directory.
	ErrNotDirectory = errors.New("files: path is not a directory")
)

// Content is a file read result.
type Content struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Size    int64  `json:"size"`
}

// Listing is the direct children of a directory.
type Listing struct {
	Path        string   `json:"path"`
	Files       []string `json:"files"`
	Directories []string `json:"directories"`
}

// FS performs file operations confined to a root or an allow-list of
// path prefixes. Relative paths are resolved against the root.
type FS struct {
	root    string
	allowed []string
}

// New creates an FS rooted at root. Entries in allowed are resolved
// against root when relative.
func New(root string, allowed []string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("files: resolve root: %w", err)
	}
	f := &FS{root: realpath(abs)}
	for _, p := range allowed {
		if strings.TrimSpace(p) == "" {
			continue
		}
		f.allowed = append(f.allowed, realpath(f.abs(p)))
	}
	return f, nil
}

// Root returns the resolved root directory.
func (f *FS) Root() string {
	return f.root
}

func (f *FS) abs(path string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.root, path)
	}
	return filepath.Clean(path)
}

// realpath follows symlinks for the longest existing prefix of path.
func realpath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	dir, base := filepath.Split(path)
	dir = filepath.Clean(dir)
	if dir == path || base == "" {
		return path
	}
	return filepath.Join(realpath(dir), base)
}

func within(path, prefix string) bool {
	rel, err := filepath.Rel(prefix, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Resolve returns the absolute path for path, or ErrPathNotAllowed.
func (f *FS) Resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathNotAllowed)
	}
	abs := realpath(f.abs(path))

	if len(f.allowed) == 0 {
		if within(abs, f.root) {
			return abs, nil
		}
		return "", fmt.Errorf("%w: %s", ErrPathNotAllowed, path)
	}
	for _, prefix := range f.allowed {
		if within(abs, prefix) {
			return abs, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrPathNotAllowed, path)
}

// Read returns the contents of a file.
func (f *FS) Read(path string) (*Content, error) {
	abs, err := f.Resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("files: read %s: %w", path, err)
	}
	return &Content{Path: path, Content: string(data), Size: int64(len(data))}, nil
}

// Write replaces the contents of a file, creating parent directories.
func (f *FS) Write(path, content string) error {
	abs, err := f.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("files: write %s: %w", path, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return fmt.Errorf("files: write %s: %w", path, err)
	}
	return nil
}

// Delete removes a file.
func (f *FS) Delete(path string) error {
	abs, err := f.Resolve(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("files: delete %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("files: delete %s: is a directory", path)
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("files: delete %s: %w", path, err)
	}
	return nil
}

// List returns the files and directories directly inside path, by name.
func (f *FS) List(path string) (*Listing, error) {
	abs, err := f.Resolve(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, path)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("files: list %s: %w", path, err)
	}
	listing := &Listing{Path: path, Files: []string{}, Directories: []string{}}
	for _, e := range entries {
		if e.IsDir() {
			listing.Directories = append(listing.Directories, e.Name())
		} else {
			listing.Files = append(listing.Files, e.Name())
		}
	}
	sort.Strings(listing.Files)
	sort.Strings(listing.Directories)
	return listing, nil
}
