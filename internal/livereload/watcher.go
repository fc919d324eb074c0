package livereload

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchTarget is one filesystem root to monitor, tagged with the category
// its events classify under. Immutable after construction.
type WatchTarget struct {
	Root     string
	Category Category
}

// Watcher owns the fsnotify handle for all configured targets and forwards
// raw events on its Events channel for the lifetime of the watch. A watcher
// is not restartable; a new watch means a new Watcher.
type Watcher struct {
	fsw     *fsnotify.Watcher
	targets []WatchTarget
	events  chan RawEvent
	logger  *zap.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewWatcher installs watches for every target. Targets are watched
// recursively: fsnotify does not descend into subdirectories on its own, so
// each directory gets its own watch. A target whose root does not exist
// fails construction with a WatcherInitError.
func NewWatcher(targets []WatchTarget, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &WatcherInitError{Path: "", Err: err}
	}

	w := &Watcher{
		fsw:     fsw,
		events:  make(chan RawEvent, 64),
		logger:  logger,
		done:    make(chan struct{}),
	}

	// Longest roots first so category lookup can take the deepest match.
	w.targets = append(w.targets, targets...)
	sort.Slice(w.targets, func(i, j int) bool {
		return len(w.targets[i].Root) > len(w.targets[j].Root)
	})

	for _, t := range targets {
		if err := w.addRecursive(t.Root); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return &WatcherInitError{Path: root, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return &WatcherInitError{Path: root, Err: err}
	}
	if !info.IsDir() {
		// Watch the containing directory so edits via rename are seen.
		abs = filepath.Dir(abs)
	}

	return filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &WatcherInitError{Path: path, Err: err}
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return &WatcherInitError{Path: path, Err: err}
		}
		w.logger.Debug("watching directory", zap.String("path", path))
		return nil
	})
}

// Events returns the stream of raw events. The channel is closed on Stop.
func (w *Watcher) Events() <-chan RawEvent {
	return w.events
}

// Start begins forwarding filesystem events. Idempotent.
func (w *Watcher) Start() {
	w.startOnce.Do(func() {
		w.wg.Add(1)
		go w.loop()
		w.logger.Info("file watcher started", zap.Int("targets", len(w.targets)))
	})
}

// Stop tears the watch down and closes the event stream. Idempotent.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		if err := w.fsw.Close(); err != nil {
			w.logger.Error("failed to close file watcher", zap.Error(err))
		}
		w.wg.Wait()
		close(w.events)
		w.logger.Info("file watcher stopped")
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if shouldSkip(ev.Name) {
				continue
			}
			// Directories created under a watched root need their own watch
			// before events inside them can be seen.
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.fsw.Add(ev.Name); err != nil {
						w.logger.Warn("failed to watch new directory",
							zap.String("path", ev.Name), zap.Error(err))
					}
				}
			}

			raw := RawEvent{
				Path:     ev.Name,
				Op:       ev.Op,
				Category: w.categoryOf(ev.Name),
				Time:     time.Now(),
			}
			select {
			case w.events <- raw:
			case <-w.done:
				return
			}
			w.logger.Debug("filesystem event",
				zap.String("path", ev.Name),
				zap.String("op", ev.Op.String()),
				zap.String("category", raw.Category.String()),
			)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Transient OS-level errors do not terminate the stream; the
			// watch continues for surviving targets.
			w.logger.Error("watcher error", zap.Error(err))
		}
	}
}

// categoryOf resolves an event path to the deepest matching target root.
// Paths under no target (possible after directory moves) count as template
// changes, which classify as a full reload.
func (w *Watcher) categoryOf(path string) Category {
	abs, err := filepath.Abs(path)
	if err != nil {
		return CategoryTemplate
	}
	for _, t := range w.targets {
		root, err := filepath.Abs(t.Root)
		if err != nil {
			continue
		}
		if abs == root || strings.HasPrefix(abs, root+string(filepath.Separator)) {
			return t.Category
		}
	}
	return CategoryTemplate
}

// shouldSkip filters editor droppings: swap files, backups, dotfiles.
func shouldSkip(path string) bool {
	base := filepath.Base(path)
	if base == "" {
		return true
	}
	switch filepath.Ext(base) {
	case ".tmp", ".swp", ".swx":
		return true
	}
	return base[0] == '.' || base[0] == '~' || strings.HasSuffix(base, "~")
}
