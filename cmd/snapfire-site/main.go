// Command snapfire-site runs a small development web server around a
// template directory, with live reload wired up end to end. It doubles as
// the reference integration of the snapfire builder.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/snapfire/snapfire"
	"github.com/snapfire/snapfire/internal/config"
	"github.com/snapfire/snapfire/internal/observability"
)

func main() {
	flags := pflag.NewFlagSet("snapfire-site", pflag.ExitOnError)

	configFile := flags.String("config", "", "path to a YAML configuration file")
	host := flags.String("host", "localhost", "host to listen on")
	port := flags.String("port", "8080", "port to listen on")
	templateGlob := flags.String("templates", "templates/*.html", "template glob")
	staticDirs := flags.StringSlice("watch-static", nil, "static directories to watch for changes")
	endpoint := flags.String("reload-endpoint", config.DefaultEndpoint, "websocket path for the reload channel")
	injectScript := flags.Bool("inject-script", true, "inject the reload script into HTML responses")
	debounce := flags.Duration("debounce", 250*time.Millisecond, "debounce window for file events")
	devMode := flags.Bool("dev", true, "enable the live-reload subsystem")

	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse flags: %v\n", err)
		os.Exit(1)
	}

	// Only flags the user actually passed override the config file.
	cliFlags := &config.CLIFlags{}
	if flags.Changed("host") {
		cliFlags.Host = host
	}
	if flags.Changed("port") {
		cliFlags.Port = port
	}
	if flags.Changed("templates") {
		cliFlags.TemplateGlob = templateGlob
	}
	if flags.Changed("watch-static") {
		cliFlags.StaticDirs = staticDirs
	}
	if flags.Changed("reload-endpoint") {
		cliFlags.Endpoint = endpoint
	}
	if flags.Changed("inject-script") {
		cliFlags.InjectScript = injectScript
	}
	if flags.Changed("debounce") {
		cliFlags.Debounce = debounce
	}
	if flags.Changed("dev") {
		cliFlags.DevMode = devMode
	}

	cfg, err := config.Load(*configFile, cliFlags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.Observability.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	builder := snapfire.New(cfg.Templates.Glob).
		EndpointPath(cfg.Reload.Endpoint).
		InjectScript(cfg.Reload.InjectScript).
		Debounce(cfg.Reload.Debounce).
		Development(cfg.Reload.Enabled).
		RateLimit(cfg.RateLimit).
		Tracing(cfg.Observability.Tracing).
		Logger(logger.Logger)

	for key, value := range cfg.Templates.Globals {
		builder.AddGlobal(key, value)
	}
	for _, dir := range cfg.Reload.StaticDirs {
		builder.WatchStatic(dir)
	}

	app, err := builder.Build()
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}
	defer app.Close()

	mux := http.NewServeMux()
	app.RegisterRoutes(mux)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if mh := app.MetricsHandler(); mh != nil {
		mux.Handle("/metrics", mh)
	}
	for _, dir := range cfg.Reload.StaticDirs {
		prefix := "/" + dir + "/"
		mux.Handle(prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(dir))))
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		app.RenderHTML(w, r, "index.html", map[string]any{
			"request_path": r.URL.Path,
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      app.Middleware()(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", server.Addr),
			zap.Bool("live_reload", cfg.Reload.Enabled),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}
