package livereload

import "fmt"

// WatcherInitError is returned when a watch cannot be installed at build
// time: the path does not exist, is unreadable, or the OS refused the watch.
// It is fatal; the caller must abort startup rather than fall back silently.
type WatcherInitError struct {
	Path string
	Err  error
}

func (e *WatcherInitError) Error() string {
	return fmt.Sprintf("livereload: cannot watch %s: %v", e.Path, e.Err)
}

func (e *WatcherInitError) Unwrap() error { return e.Err }
