// Package snapfire is an HTML templating layer for net/http with
// development-time live reload. Template and static asset changes are
// pushed to every connected browser over a websocket: template edits
// trigger a full page reload, stylesheet edits refresh CSS in place.
//
// Build an App with the builder, render templates with Render, and in
// development mode mount the reload endpoint and the script-injecting
// middleware:
//
//	app, err := snapfire.New("templates/*.html").
//		AddGlobal("site_name", "My Site").
//		WatchStatic("static").
//		Development(true).
//		Build()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer app.Close()
//
//	mux := http.NewServeMux()
//	app.RegisterRoutes(mux)
//	http.ListenAndServe(":8080", app.Middleware()(mux))
//
// With Development(false) the reload subsystem is never constructed:
// RegisterRoutes registers nothing and Middleware is the identity.
package snapfire

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/snapfire/snapfire/internal/engine"
	"github.com/snapfire/snapfire/internal/observability"
)

// App is the shared application state: the template engine plus, in
// development mode, the live-reload subsystem. Construct it once with
// Builder.Build and share it across handlers.
type App struct {
	engine *engine.Engine
	logger *zap.Logger
	tracer *observability.Tracer
	reload reloadCapability
}

// Render executes the named template with the builder globals merged under
// ctx (per-render values win) and returns the rendered bytes.
func (a *App) Render(name string, ctx map[string]any) ([]byte, error) {
	return a.RenderContext(context.Background(), name, ctx)
}

// RenderContext is Render with a caller context for tracing.
func (a *App) RenderContext(ctx context.Context, name string, data map[string]any) ([]byte, error) {
	_, span := a.tracer.StartSpan(ctx, "snapfire.render",
		attribute.String("template", name))
	defer span.End()

	body, err := a.engine.Render(name, data)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return body, nil
}

// RenderHTML renders the named template and writes it as an HTML response,
// logging failures and answering 500 on error. Convenience for handlers.
func (a *App) RenderHTML(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	body, err := a.RenderContext(r.Context(), name, data)
	if err != nil {
		a.logger.Error("render failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(body)
}

// RegisterRoutes mounts the reload endpoint on mux. In production mode
// this registers nothing and the endpoint path does not exist.
func (a *App) RegisterRoutes(mux *http.ServeMux) {
	a.reload.registerRoutes(mux)
}

// Middleware returns the response transform that injects the reload client
// script into HTML responses. In production mode, or when injection is
// disabled, it returns the identity.
func (a *App) Middleware() func(http.Handler) http.Handler {
	return a.reload.middleware()
}

// MetricsHandler exposes the subsystem's prometheus registry, or nil when
// the subsystem is disabled.
func (a *App) MetricsHandler() http.Handler {
	return a.reload.metricsHandler()
}

// Close stops the watcher pipeline and flushes the tracer. Connected
// clients are dropped; abrupt closure is an expected event for them.
func (a *App) Close() error {
	a.reload.stop()
	return a.tracer.Shutdown(context.Background())
}
