package livereload

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// waitForEvent drains the stream until an event for the given base name
// arrives or the timeout expires.
func waitForEvent(t *testing.T, events <-chan RawEvent, base string, timeout time.Duration) RawEvent {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatal("event stream closed while waiting")
			}
			if filepath.Base(ev.Path) == base {
				return ev
			}
		case <-deadline:
			t.Fatalf("no event for %s within %v", base, timeout)
		}
	}
}

func TestNewWatcherMissingPathIsFatal(t *testing.T) {
	_, err := NewWatcher([]WatchTarget{
		{Root: filepath.Join(t.TempDir(), "does-not-exist"), Category: CategoryTemplate},
	}, zap.NewNop())

	if err == nil {
		t.Fatal("expected an error for a missing watch root")
	}
	var initErr *WatcherInitError
	if !errors.As(err, &initErr) {
		t.Fatalf("error type = %T, want *WatcherInitError", err)
	}
}

func TestWatcherForwardsWriteEvents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.html")
	writeFile(t, path, "<html></html>")

	w, err := NewWatcher([]WatchTarget{{Root: dir, Category: CategoryTemplate}}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Start()
	defer w.Stop()

	writeFile(t, path, "<html><body>edited</body></html>")

	ev := waitForEvent(t, w.Events(), "index.html", 3*time.Second)
	if ev.Category != CategoryTemplate {
		t.Errorf("category = %v, want %v", ev.Category, CategoryTemplate)
	}
}

func TestWatcherTagsStaticCategory(t *testing.T) {
	tmplDir := t.TempDir()
	staticDir := t.TempDir()
	cssPath := filepath.Join(staticDir, "style.css")
	writeFile(t, cssPath, "body {}")

	w, err := NewWatcher([]WatchTarget{
		{Root: tmplDir, Category: CategoryTemplate},
		{Root: staticDir, Category: CategoryStatic},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Start()
	defer w.Stop()

	writeFile(t, cssPath, "body { color: red }")

	ev := waitForEvent(t, w.Events(), "style.css", 3*time.Second)
	if ev.Category != CategoryStatic {
		t.Errorf("category = %v, want %v", ev.Category, CategoryStatic)
	}
}

func TestWatcherSkipsEditorDroppings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "real.html"), "x")

	w, err := NewWatcher([]WatchTarget{{Root: dir, Category: CategoryTemplate}}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Start()
	defer w.Stop()

	writeFile(t, filepath.Join(dir, ".hidden.swp"), "junk")
	writeFile(t, filepath.Join(dir, "save.tmp"), "junk")
	writeFile(t, filepath.Join(dir, "real.html"), "edited")

	// The real edit must come through without any of the junk before it.
	ev := waitForEvent(t, w.Events(), "real.html", 3*time.Second)
	if base := filepath.Base(ev.Path); base != "real.html" {
		t.Errorf("first forwarded event was %s, want real.html", base)
	}
}

func TestWatcherSeesFilesInNewSubdirectories(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher([]WatchTarget{{Root: dir, Category: CategoryTemplate}}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Start()
	defer w.Stop()

	sub := filepath.Join(dir, "partials")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// Give the watcher a moment to install the new directory's watch.
	time.Sleep(200 * time.Millisecond)
	writeFile(t, filepath.Join(sub, "nav.html"), "<nav></nav>")

	waitForEvent(t, w.Events(), "nav.html", 3*time.Second)
}

func TestWatcherStopClosesStream(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher([]WatchTarget{{Root: dir, Category: CategoryTemplate}}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Start()
	w.Stop()
	w.Stop() // idempotent

	select {
	case _, ok := <-w.Events():
		if ok {
			t.Error("expected closed event stream after Stop")
		}
	case <-time.After(time.Second):
		t.Error("event stream not closed after Stop")
	}
}
