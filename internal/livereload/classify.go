package livereload

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Category tells the classifier which watch root an event came from.
type Category int

const (
	// CategoryTemplate covers the template glob root.
	CategoryTemplate Category = iota
	// CategoryStatic covers additional static asset directories.
	CategoryStatic
)

func (c Category) String() string {
	if c == CategoryStatic {
		return "static"
	}
	return "template"
}

// Signal is the decision broadcast to connected clients.
type Signal int

const (
	// SignalFull instructs the client to reload the whole page.
	SignalFull Signal = iota
	// SignalStyleOnly instructs the client to refresh stylesheets in place.
	SignalStyleOnly
)

// Wire payloads. These two literals are the entire protocol.
const (
	PayloadReload    = "reload"
	PayloadReloadCSS = "reload-css"
)

// Payload returns the literal text frame sent over the wire.
func (s Signal) Payload() string {
	if s == SignalStyleOnly {
		return PayloadReloadCSS
	}
	return PayloadReload
}

func (s Signal) String() string { return s.Payload() }

// RawEvent is a single filesystem event as seen by the watcher.
type RawEvent struct {
	Path     string
	Op       fsnotify.Op
	Category Category
	Time     time.Time
}

// Classify maps one raw event to a reload signal. Only stylesheet changes
// under a static root qualify for a style-only refresh; template changes,
// non-stylesheet assets and directory renames all force a full reload.
// Removes and renames are treated as content changes.
func Classify(ev RawEvent) Signal {
	if ev.Category == CategoryStatic && isStylesheet(ev.Path) {
		return SignalStyleOnly
	}
	return SignalFull
}

// Merge folds two signals from the same debounce window into one.
// Full wins: any non-stylesheet change forces a full reload even when a
// stylesheet changed in the same window.
func Merge(a, b Signal) Signal {
	if a == SignalFull || b == SignalFull {
		return SignalFull
	}
	return SignalStyleOnly
}

func isStylesheet(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".css")
}
