package engine

import (
	"context"
	"errors"
	"html/template"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, files map[string]string, cfg Config) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	cfg.Glob = filepath.Join(dir, "*.html")
	e, err := New(cfg)
	require.NoError(t, err)
	return e, dir
}

func TestRenderWithGlobals(t *testing.T) {
	e, _ := newTestEngine(t,
		map[string]string{"index.html": "Hello, {{ .site_name }}!"},
		Config{Globals: map[string]any{"site_name": "Snapfire Test"}},
	)

	out, err := e.Render("index.html", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello, Snapfire Test!", string(out))
}

func TestRenderContextOverridesGlobals(t *testing.T) {
	e, _ := newTestEngine(t,
		map[string]string{"index.html": "Title: {{ .title }}"},
		Config{Globals: map[string]any{"title": "Global Title"}},
	)

	out, err := e.Render("index.html", map[string]any{"title": "Page Title"})
	require.NoError(t, err)
	assert.Equal(t, "Title: Page Title", string(out))
}

func TestRenderUnknownTemplate(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{"index.html": "x"}, Config{})

	_, err := e.Render("missing.html", nil)
	require.Error(t, err)

	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, "missing.html", renderErr.Template)
}

func TestRenderWithRegisteredFuncs(t *testing.T) {
	e, _ := newTestEngine(t,
		map[string]string{"index.html": `{{ shout .name }}`},
		Config{Funcs: template.FuncMap{
			"shout": func(s string) string { return s + "!" },
		}},
	)

	out, err := e.Render("index.html", map[string]any{"name": "go"})
	require.NoError(t, err)
	assert.Equal(t, "go!", string(out))
}

func TestRenderWithSprigFuncs(t *testing.T) {
	e, _ := newTestEngine(t,
		map[string]string{"index.html": `{{ upper .name }}`},
		Config{},
	)

	out, err := e.Render("index.html", map[string]any{"name": "world"})
	require.NoError(t, err)
	assert.Equal(t, "WORLD", string(out))
}

func TestEmptyGlobIsNotFatal(t *testing.T) {
	e, err := New(Config{Glob: filepath.Join(t.TempDir(), "*.html")})
	require.NoError(t, err)

	_, err = e.Render("index.html", nil)
	assert.Error(t, err)
}

func TestReloadPicksUpChanges(t *testing.T) {
	e, dir := newTestEngine(t, map[string]string{"index.html": "before"}, Config{})

	out, err := e.Render("index.html", nil)
	require.NoError(t, err)
	assert.Equal(t, "before", string(out))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("after"), 0o644))
	require.NoError(t, e.Reload(context.Background()))

	out, err = e.Render("index.html", nil)
	require.NoError(t, err)
	assert.Equal(t, "after", string(out))
}

func TestBrokenReloadKeepsPreviousTemplates(t *testing.T) {
	e, dir := newTestEngine(t, map[string]string{"index.html": "works"}, Config{})

	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "index.html"), []byte("{{ broken"), 0o644))
	require.Error(t, e.Reload(context.Background()))

	out, err := e.Render("index.html", nil)
	require.NoError(t, err)
	assert.Equal(t, "works", string(out), "previous template set must survive a broken save")
}

func TestNameIdentifiesComponent(t *testing.T) {
	e, _ := newTestEngine(t, map[string]string{"index.html": "x"}, Config{})
	assert.Equal(t, "templates", e.Name())
}
