package snapfire

import (
	"html/template"
	"time"

	"go.uber.org/zap"

	"github.com/snapfire/snapfire/internal/config"
	"github.com/snapfire/snapfire/internal/engine"
	"github.com/snapfire/snapfire/internal/observability"
	"github.com/snapfire/snapfire/internal/security"
)

// Builder configures and constructs an App. Obtain one with New; every
// method returns the builder for chaining.
type Builder struct {
	templateGlob string
	globals      map[string]any
	funcs        template.FuncMap
	staticDirs   []string
	endpoint     string
	inject       bool
	debounce     time.Duration
	development  bool
	limiter      security.LimiterConfig
	tracing      observability.TraceConfig
	logger       *zap.Logger
}

// New starts a builder for the given template glob, e.g. "templates/*.html".
func New(templateGlob string) *Builder {
	return &Builder{
		templateGlob: templateGlob,
		globals:      make(map[string]any),
		endpoint:     config.DefaultEndpoint,
		inject:       true,
		debounce:     250 * time.Millisecond,
		limiter:      security.DefaultLimiterConfig(),
		tracing:      observability.DefaultTraceConfig(),
	}
}

// AddGlobal registers a variable available to every template. Per-render
// context values with the same key win.
func (b *Builder) AddGlobal(key string, value any) *Builder {
	b.globals[key] = value
	return b
}

// Funcs registers extra template functions on top of the sprig set.
func (b *Builder) Funcs(funcs template.FuncMap) *Builder {
	if b.funcs == nil {
		b.funcs = make(template.FuncMap, len(funcs))
	}
	for name, fn := range funcs {
		b.funcs[name] = fn
	}
	return b
}

// WatchStatic adds a directory to watch for asset changes, typically CSS.
// Repeatable. Only meaningful in development mode; a directory that does
// not exist at build time is skipped with a warning.
func (b *Builder) WatchStatic(dir string) *Builder {
	b.staticDirs = append(b.staticDirs, dir)
	return b
}

// EndpointPath overrides the websocket path. Defaults to /_snapfire/ws.
func (b *Builder) EndpointPath(path string) *Builder {
	b.endpoint = path
	return b
}

// InjectScript enables or disables automatic injection of the reload
// client script into HTML responses. Defaults to true. Disable it to
// include the script tag in a base template by hand.
func (b *Builder) InjectScript(enabled bool) *Builder {
	b.inject = enabled
	return b
}

// Debounce overrides the window during which filesystem events merge into
// a single reload decision.
func (b *Builder) Debounce(d time.Duration) *Builder {
	b.debounce = d
	return b
}

// Development selects the capability: true builds and starts the whole
// live-reload subsystem, false leaves it out entirely.
func (b *Builder) Development(enabled bool) *Builder {
	b.development = enabled
	return b
}

// RateLimit configures handshake rate limiting on the reload endpoint.
func (b *Builder) RateLimit(cfg security.LimiterConfig) *Builder {
	b.limiter = cfg
	return b
}

// Tracing configures the otel tracer used around renders.
func (b *Builder) Tracing(cfg observability.TraceConfig) *Builder {
	b.tracing = cfg
	return b
}

// Logger sets the zap logger shared by all components. Defaults to a nop
// logger.
func (b *Builder) Logger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// Build constructs the App. Configuration errors - an unparsable template,
// a missing watch root, an OS watch failure - are returned as typed
// errors, never papered over. In development mode the watcher pipeline is
// running when Build returns.
func (b *Builder) Build() (*App, error) {
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	eng, err := engine.New(engine.Config{
		Glob:    b.templateGlob,
		Globals: b.globals,
		Funcs:   b.funcs,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	tracer, err := observability.NewTracer(b.tracing)
	if err != nil {
		return nil, err
	}

	reload, err := b.buildReload(eng, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		engine: eng,
		logger: logger,
		tracer: tracer,
		reload: reload,
	}, nil
}
