package handlers

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// RootMonitor tracks whether the served root directory still exists. It
// watches the root and its parent so that removal, rename and re-creation of
// the root are all observed without polling.
type RootMonitor struct {
	root    string
	present atomic.Bool
	w       *fsnotify.Watcher
	done    chan struct{}
}

// StartRootMonitor begins watching root. Event processing runs in a
// background goroutine until Close is called.
func StartRootMonitor(root string) (*RootMonitor, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	root = filepath.Clean(root)
	m := &RootMonitor{
		root: root,
		w:    w,
		done: make(chan struct{}),
	}
	m.present.Store(isDir(root))

	if parent := filepath.Dir(root); parent != root {
		// Without the parent watch a re-created root goes unnoticed; the
		// monitor still reports removal through the root watch.
		if err := w.Add(parent); err != nil {
			logrus.WithError(err).Warnf("watcher: could not watch %s", parent)
		}
	}
	if err := w.Add(root); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}

	go m.loop()
	return m, nil
}

// Present reports whether the root existed as a directory at the last event.
// A nil monitor always reports true.
func (m *RootMonitor) Present() bool {
	if m == nil {
		return true
	}
	return m.present.Load()
}

// Close stops the watcher and waits for the event loop to exit.
func (m *RootMonitor) Close() error {
	err := m.w.Close()
	<-m.done
	return err
}

func (m *RootMonitor) loop() {
	defer close(m.done)
	for {
		select {
		case event, ok := <-m.w.Events:
			if !ok {
				return
			}
			m.handleEvent(event)

		case err, ok := <-m.w.Errors:
			if !ok {
				return
			}
			logrus.WithError(err).Warn("watcher: error")
		}
	}
}

// handleEvent re-evaluates the root whenever an event names it. Events for
// entries inside the root are ignored.
func (m *RootMonitor) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != m.root {
		return
	}

	now := isDir(m.root)
	was := m.present.Swap(now)
	switch {
	case now && !was:
		// The kernel dropped the old watch along with the old directory.
		if err := m.w.Add(m.root); err != nil {
			logrus.WithError(err).Warnf("watcher: could not re-watch %s", m.root)
		}
		logrus.Infof("watcher: root %s is back (%s)", m.root, event.Op)
	case !now && was:
		logrus.Warnf("watcher: root %s is gone (%s)", m.root, event.Op)
	}
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
