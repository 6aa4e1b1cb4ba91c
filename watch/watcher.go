// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package watch turns filesystem events into coalesced per-target change
// signals that a frame loop can poll.
//
// The fsnotify delivery goroutine only marks targets as pending; all
// consumption happens on whichever goroutine calls Poll. Bursts of events
// for one target within a poll interval collapse into a single signal.
//
// Not every deployment target has filesystem notification (a browser build
// has none). Disabled returns a Watcher that never signals, so callers keep
// a single code path and updates there require a restart with freshly
// embedded content.
package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/hotreload"
)

// shouldSkipDirectories are directory names never worth watching.
var shouldSkipDirectories = map[string]bool{
	".git":         true,
	".jj":          true,
	"node_modules": true,
}

// Watcher reports which targets changed since the previous poll.
//
// Poll never blocks and is intended to be called once per frame. Returned
// IDs are deduplicated and sorted.
type Watcher interface {
	Poll() []string
	Close() error
}

// fileMark is the last observed identity of a file, used both to debounce
// repeated events and to hold back a still-growing module artifact.
type fileMark struct {
	size    int64
	modTime time.Time
}

// FSWatcher is the fsnotify-backed Watcher.
type FSWatcher struct {
	fw      *fsnotify.Watcher
	targets []Target
	done    chan struct{}

	mu      sync.Mutex
	pending map[string]bool

	// reported tracks the last file identity reported per ModuleArtifact
	// target; sighted tracks the identity seen on the previous poll while
	// the artifact was still settling.
	reported map[string]fileMark
	sighted  map[string]fileMark
}

// New creates a watcher over the given targets and starts delivering events.
func New(targets ...Target) (*FSWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	w := &FSWatcher{
		fw:       fw,
		targets:  targets,
		done:     make(chan struct{}),
		pending:  make(map[string]bool),
		reported: make(map[string]fileMark),
		sighted:  make(map[string]fileMark),
	}

	for _, t := range targets {
		switch t.Kind {
		case ShaderTree:
			if err := w.watchTree(t.Path); err != nil {
				_ = fw.Close()
				return nil, err
			}
		case ModuleArtifact:
			// Watch the parent directory: build tools typically replace the
			// artifact by rename, which the file's own watch would miss.
			if err := fw.Add(filepath.Dir(t.Path)); err != nil {
				_ = fw.Close()
				return nil, fmt.Errorf("watch: %s: %w", t.Path, err)
			}
		}
	}

	go w.processEvents()
	return w, nil
}

// watchTree adds every directory under root to the watcher.
func (w *FSWatcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Skip unreadable directories instead of failing the walk.
			return nil //nolint:nilerr
		}
		if !d.IsDir() {
			return nil
		}
		if shouldSkipDirectories[d.Name()] {
			return fs.SkipDir
		}
		if err := w.fw.Add(path); err != nil {
			return fmt.Errorf("watch: %s: %w", path, err)
		}
		return nil
	})
}

// processEvents runs on the notification goroutine. It only classifies
// events and marks targets pending; building and reloading stay on the
// session goroutine by construction.
func (w *FSWatcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			hotreload.Logger().Warn("watch: filesystem error", "err", err)
		}
	}
}

func (w *FSWatcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	for _, t := range w.targets {
		if !w.matches(t, event.Name) {
			continue
		}
		hotreload.Logger().Debug("watch: change", "target", t.ID, "kind", t.Kind, "path", event.Name)
		w.mu.Lock()
		w.pending[t.ID] = true
		w.mu.Unlock()
	}

	// A directory created inside a shader tree needs its own watch.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !shouldSkipDirectories[info.Name()] {
			if err := w.watchTree(event.Name); err != nil {
				hotreload.Logger().Warn("watch: cannot watch new directory", "path", event.Name, "err", err)
			}
		}
	}
}

// matches reports whether an event path belongs to a target.
func (w *FSWatcher) matches(t Target, name string) bool {
	switch t.Kind {
	case ModuleArtifact:
		return filepath.Clean(name) == filepath.Clean(t.Path)
	case ShaderTree:
		rel, err := filepath.Rel(t.Path, name)
		return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
	default:
		return false
	}
}

// Poll returns the IDs of targets whose content changed since the previous
// poll, sorted. Module-artifact targets are only reported once the file has
// stopped growing, so a reload never races a build still writing its output.
func (w *FSWatcher) Poll() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var changed []string
	for _, t := range w.targets {
		if !w.pending[t.ID] {
			continue
		}
		if t.Kind == ModuleArtifact && !w.artifactSettled(t) {
			continue // stays pending, retried next poll
		}
		delete(w.pending, t.ID)
		changed = append(changed, t.ID)
	}
	sort.Strings(changed)
	return changed
}

// artifactSettled decides whether the module artifact is safe to report.
// The file must exist, be nonempty, look identical to the previous poll's
// sighting, and differ from what was last reported.
func (w *FSWatcher) artifactSettled(t Target) bool {
	info, err := os.Stat(t.Path)
	if err != nil || info.Size() == 0 {
		// Mid-replace or still empty; keep waiting.
		w.sighted[t.ID] = fileMark{}
		return false
	}

	now := fileMark{size: info.Size(), modTime: info.ModTime()}
	if now == w.reported[t.ID] {
		// Spurious event (e.g. metadata touch); nothing actually changed.
		delete(w.pending, t.ID)
		delete(w.sighted, t.ID)
		return false
	}
	if now != w.sighted[t.ID] {
		// First sighting, or still growing: remember and re-check next poll.
		w.sighted[t.ID] = now
		return false
	}

	w.reported[t.ID] = now
	delete(w.sighted, t.ID)
	return true
}

// Close stops the watcher and releases its filesystem handles.
func (w *FSWatcher) Close() error {
	close(w.done)
	return w.fw.Close()
}

// Disabled returns a Watcher that never signals change. It stands in on
// deployment targets without filesystem notification.
func Disabled() Watcher {
	return nopWatcher{}
}

type nopWatcher struct{}

func (nopWatcher) Poll() []string { return nil }
func (nopWatcher) Close() error   { return nil }
