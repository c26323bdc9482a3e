// Package watch re-runs an action when a file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultDelay is how long a file must be quiet before the action runs
const DefaultDelay = 300 * time.Millisecond

// File calls fn each time path is written, created or replaced, until ctx is
// done. Bursts of events within delay of each other trigger a single call.
// Calls never overlap. An error from fn is logged and watching continues.
func File(ctx context.Context, path string, delay time.Duration, log *logrus.Logger, fn func(context.Context) error) error {
	if log == nil {
		log = logrus.New()
	}
	if delay <= 0 {
		delay = DefaultDelay
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// editors often replace the file, which drops a watch on the file itself
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	log.Debugf("Watching %s for changes", abs)

	timer := time.NewTimer(delay)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debugf("Modified file: %s (%s)", event.Name, event.Op)
			timer.Reset(delay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("Watcher error: %v", err)

		case <-timer.C:
			if err := fn(ctx); err != nil {
				log.WithField("file", abs).Warnf("Re-run after change failed: %v", err)
			}
		}
	}
}
