package livereload

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/snapfire/snapfire/internal/observability"
)

// Reloadable is a component that must refresh itself before clients are
// told to reload, typically the template engine re-parsing its glob.
type Reloadable interface {
	Name() string
	Reload(ctx context.Context) error
}

// Options configures a Reloader.
type Options struct {
	Targets  []WatchTarget
	Debounce time.Duration
	Logger   *zap.Logger
	Metrics  *observability.Metrics
}

// Reloader owns the watcher → debouncer → hub pipeline for the process
// lifetime. One background goroutine drives the pipeline; connection
// handlers share the hub.
type Reloader struct {
	watcher  *Watcher
	hub      *Hub
	debounce time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu          sync.RWMutex
	reloadables map[string]Reloadable

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewReloader installs the watches and builds the hub. Watch installation
// failures are fatal build-time errors (WatcherInitError).
func NewReloader(opts Options) (*Reloader, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetrics()
	}

	watcher, err := NewWatcher(opts.Targets, opts.Logger)
	if err != nil {
		return nil, err
	}

	return &Reloader{
		watcher:     watcher,
		hub:         NewHub(opts.Logger, opts.Metrics),
		debounce:    opts.Debounce,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		reloadables: make(map[string]Reloadable),
	}, nil
}

// Hub exposes the connection registry for the endpoint handler.
func (r *Reloader) Hub() *Hub { return r.hub }

// Register adds a reloadable component. Names must be unique.
func (r *Reloader) Register(reloadable Reloadable) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := reloadable.Name()
	if _, exists := r.reloadables[name]; exists {
		return fmt.Errorf("livereload: reloadable %s already registered", name)
	}
	r.reloadables[name] = reloadable
	return nil
}

// Start launches the pipeline. Idempotent.
func (r *Reloader) Start() {
	r.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		r.cancel = cancel

		r.watcher.Start()

		debouncer := NewDebouncer(r.debounce, func(w Window) { r.onWindow(ctx, w) }, r.logger)
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			debouncer.Run(ctx, r.watcher.Events())
		}()

		r.logger.Info("live reload started", zap.Duration("debounce", debouncer.window))
	})
}

// Stop tears down the watcher and the pipeline goroutines. Connections
// drain on their own when their subscriptions close.
func (r *Reloader) Stop() {
	r.stopOnce.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}
		r.watcher.Stop()
		r.wg.Wait()
		r.logger.Info("live reload stopped")
	})
}

// onWindow handles one closed debounce window: refresh reloadables when
// templates changed, then publish the merged signal to every client.
func (r *Reloader) onWindow(ctx context.Context, w Window) {
	r.metrics.WatchEvents.Add(float64(w.Events))
	r.metrics.DebounceWindow.Observe(time.Since(w.Opened).Seconds())

	if w.SawTemplates {
		r.reloadAll(ctx)
	}
	r.hub.Publish(w.Signal)
}

func (r *Reloader) reloadAll(ctx context.Context) {
	r.mu.RLock()
	reloadables := make([]Reloadable, 0, len(r.reloadables))
	for _, rl := range r.reloadables {
		reloadables = append(reloadables, rl)
	}
	r.mu.RUnlock()

	for _, rl := range reloadables {
		if err := rl.Reload(ctx); err != nil {
			// A broken template save should not kill the pipeline; the
			// author sees the error and saves again.
			r.logger.Error("reload failed",
				zap.String("component", rl.Name()), zap.Error(err))
		} else {
			r.logger.Debug("component reloaded", zap.String("component", rl.Name()))
		}
	}
}
