package guidelines

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestServiceContexts(t *testing.T) {
	s := NewService()
	s.Add(Guideline{Title: "Naming", Content: "Use camelCase.", Context: "code-generation"})
	s.Add(Guideline{Title: "Errors", Content: "Wrap errors.", Context: "debugging"})
	s.Add(Guideline{Text: "Write tests"})

	require.Len(t, s.All(), 3)
	require.Len(t, s.ForContext("code-generation"), 1)
	require.Equal(t, "Errors", s.ForContext("debugging")[0].Title)
	require.Empty(t, s.ForContext("database-design"))
	require.Len(t, s.ForContext(""), 3)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.json"), `[{"title":"B","content":"second","context":"debugging"}]`)
	writeFile(t, filepath.Join(dir, "a.json"), `["plain rule", {"title":"A","description":"first"}]`)
	writeFile(t, filepath.Join(dir, "notes.txt"), `ignored`)

	s := NewService()
	require.NoError(t, s.Load(dir))

	all := s.All()
	require.Len(t, all, 3)
	require.Equal(t, "plain rule", all[0].Text)
	require.Equal(t, "A", all[1].Title)
	require.Equal(t, "B", all[2].Title)
	require.Len(t, s.ForContext("debugging"), 1)

	require.NoError(t, s.Load(filepath.Join(dir, "missing")))
	require.Len(t, s.All(), 3)

	writeFile(t, filepath.Join(dir, "broken.json"), `{not json`)
	require.Error(t, NewService().Load(dir))
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "g.json")
	writeFile(t, path, `["one"]`)

	s := NewService()
	require.NoError(t, s.Load(dir))
	writeFile(t, path, `["one", "two"]`)
	require.NoError(t, s.Reload(dir))
	require.Len(t, s.All(), 2)

	writeFile(t, path, `nope`)
	require.Error(t, s.Reload(dir))
	require.Len(t, s.All(), 2)
}

func TestFormat(t *testing.T) {
	require.Equal(t, "", Format(nil))

	got := Format([]Guideline{
		{Title: "Naming", Content: "Use camelCase."},
		{Title: "Docs", Description: "Document exports."},
		{Text: "Write tests"},
	})
	want := "\n\n## Project Guidelines\n\n" +
		"Please follow these project-specific guidelines:\n\n" +
		"### Naming\n\nUse camelCase.\n\n" +
		"### Docs\n\nDocument exports.\n\n" +
		"- Write tests\n"
	require.Equal(t, want, got)
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "g.json"), `["one"]`)

	s := NewService()
	require.NoError(t, s.Load(dir))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, s, dir, nil) }()

	require.Eventually(t, func() bool {
		writeFile(t, filepath.Join(dir, "h.json"), `["two"]`)
		return len(s.All()) == 2
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
