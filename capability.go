package snapfire

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/snapfire/snapfire/internal/engine"
	"github.com/snapfire/snapfire/internal/inject"
	"github.com/snapfire/snapfire/internal/livereload"
	"github.com/snapfire/snapfire/internal/observability"
	"github.com/snapfire/snapfire/internal/security"
)

// reloadCapability is the construction-time split between development and
// production. Production code paths never touch the development types: the
// disabled variant holds none of them.
type reloadCapability interface {
	registerRoutes(mux *http.ServeMux)
	middleware() func(http.Handler) http.Handler
	metricsHandler() http.Handler
	stop()
}

// disabledReload is the production variant. Everything is a no-op.
type disabledReload struct{}

func (disabledReload) registerRoutes(*http.ServeMux) {}

func (disabledReload) middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return next }
}

func (disabledReload) metricsHandler() http.Handler { return nil }

func (disabledReload) stop() {}

// devReload is the development variant: watcher pipeline, hub, endpoint
// handler and script injector.
type devReload struct {
	reloader *livereload.Reloader
	handler  *livereload.Handler
	metrics  *observability.Metrics
	endpoint string
	inject   bool
	logger   *zap.Logger
}

func (b *Builder) buildReload(eng *engine.Engine, logger *zap.Logger) (reloadCapability, error) {
	if !b.development {
		return disabledReload{}, nil
	}

	targets := []livereload.WatchTarget{
		{Root: watchRootFromGlob(b.templateGlob), Category: livereload.CategoryTemplate},
	}
	for _, dir := range b.staticDirs {
		if _, err := os.Stat(dir); err != nil {
			logger.Warn("static watch directory does not exist, skipping",
				zap.String("path", dir))
			continue
		}
		targets = append(targets, livereload.WatchTarget{
			Root: dir, Category: livereload.CategoryStatic,
		})
	}

	metrics := observability.NewMetrics()
	if err := metrics.Register(); err != nil {
		return nil, err
	}

	reloader, err := livereload.NewReloader(livereload.Options{
		Targets:  targets,
		Debounce: b.debounce,
		Logger:   logger,
		Metrics:  metrics,
	})
	if err != nil {
		return nil, err
	}
	if err := reloader.Register(eng); err != nil {
		reloader.Stop()
		return nil, err
	}

	var limiter *security.UpgradeLimiter
	if b.limiter.Enabled {
		limiter = security.NewUpgradeLimiter(b.limiter)
	}

	reloader.Start()

	return &devReload{
		reloader: reloader,
		handler:  livereload.NewHandler(reloader.Hub(), limiter, logger),
		metrics:  metrics,
		endpoint: b.endpoint,
		inject:   b.inject,
		logger:   logger,
	}, nil
}

func (d *devReload) registerRoutes(mux *http.ServeMux) {
	mux.Handle(d.endpoint, d.handler)
}

func (d *devReload) middleware() func(http.Handler) http.Handler {
	if !d.inject {
		return func(next http.Handler) http.Handler { return next }
	}
	return inject.Middleware(d.endpoint, d.logger)
}

func (d *devReload) metricsHandler() http.Handler {
	return d.metrics.Handler()
}

func (d *devReload) stop() {
	d.reloader.Stop()
}

// watchRootFromGlob extracts the deepest non-glob directory from a glob
// pattern; the OS watch cannot take the pattern itself, and watching the
// parent also catches newly created template files.
func watchRootFromGlob(glob string) string {
	if i := strings.IndexAny(glob, "*?[{"); i >= 0 {
		before := glob[:i]
		if j := strings.LastIndexAny(before, `/\`); j >= 0 {
			return glob[:j]
		}
		return "."
	}

	info, err := os.Stat(glob)
	if err == nil && info.IsDir() {
		return glob
	}
	if dir := filepath.Dir(glob); dir != "" {
		return dir
	}
	return "."
}
