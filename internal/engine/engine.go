// Package engine wraps html/template behind the render(name, context)
// contract the rest of the library consumes. In development it re-parses
// its glob when the reload pipeline reports template changes.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"path/filepath"
	"sync"

	"github.com/Masterminds/sprig/v3"
	"go.uber.org/zap"
)

// RenderError wraps any failure while rendering a named template.
type RenderError struct {
	Template string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("engine: render %s: %v", e.Template, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Config configures an Engine.
type Config struct {
	// Glob locates the template files, e.g. "templates/*.html".
	// Templates are addressed by base name.
	Glob string
	// Globals are merged under every render context; per-render values win.
	Globals map[string]any
	// Funcs extends the sprig function map with caller-registered functions.
	Funcs template.FuncMap
	Logger *zap.Logger
}

// Engine renders templates loaded from a glob. Safe for concurrent use;
// Reload swaps the parsed set atomically under the lock.
type Engine struct {
	glob    string
	globals map[string]any
	funcs   template.FuncMap
	logger  *zap.Logger

	mu   sync.RWMutex
	tmpl *template.Template
}

// New parses the glob and returns a ready engine. A glob matching zero
// files is not an error; rendering any name then fails until templates
// appear and Reload runs. This mirrors lazy template roots where the
// directory may be populated after startup.
func New(cfg Config) (*Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	e := &Engine{
		glob:    cfg.Glob,
		globals: cfg.Globals,
		funcs:   cfg.Funcs,
		logger:  cfg.Logger,
	}
	tmpl, err := e.parse()
	if err != nil {
		return nil, err
	}
	e.tmpl = tmpl
	return e, nil
}

func (e *Engine) parse() (*template.Template, error) {
	root := template.New("snapfire").Funcs(sprig.HtmlFuncMap())
	if len(e.funcs) > 0 {
		root = root.Funcs(e.funcs)
	}

	matches, err := filepath.Glob(e.glob)
	if err != nil {
		return nil, fmt.Errorf("engine: invalid glob %q: %w", e.glob, err)
	}
	if len(matches) == 0 {
		e.logger.Warn("template glob matched no files", zap.String("glob", e.glob))
		return root, nil
	}

	tmpl, err := root.ParseFiles(matches...)
	if err != nil {
		return nil, fmt.Errorf("engine: parse %q: %w", e.glob, err)
	}
	return tmpl, nil
}

// Render executes the named template with the globals merged under ctx and
// returns the resulting bytes.
func (e *Engine) Render(name string, ctx map[string]any) ([]byte, error) {
	merged := make(map[string]any, len(e.globals)+len(ctx))
	for k, v := range e.globals {
		merged[k] = v
	}
	for k, v := range ctx {
		merged[k] = v
	}

	e.mu.RLock()
	tmpl := e.tmpl
	e.mu.RUnlock()

	if tmpl.Lookup(name) == nil {
		return nil, &RenderError{Template: name, Err: fmt.Errorf("template not found")}
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, merged); err != nil {
		return nil, &RenderError{Template: name, Err: err}
	}
	return buf.Bytes(), nil
}

// Name implements the reload pipeline's Reloadable interface.
func (e *Engine) Name() string { return "templates" }

// Reload re-parses the glob. On failure the previous template set stays in
// place so a broken save never takes working pages down.
func (e *Engine) Reload(ctx context.Context) error {
	tmpl, err := e.parse()
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.tmpl = tmpl
	e.mu.Unlock()

	e.logger.Debug("templates reloaded", zap.String("glob", e.glob))
	return nil
}
