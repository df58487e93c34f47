package metacache

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/skillforge/skillforge/pkg/logger"
)

const rebuildDebounce = 500 * time.Millisecond

// Watch rebuilds the cache when the skills root changes outside the content
// store's own operations (e.g. an operator editing files directly). It blocks
// until the context is cancelled. Rebuild failures are logged and watching
// continues.
func (c *Cache) Watch(ctx context.Context, skillsRoot string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create filesystem watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(skillsRoot); err != nil {
		return errors.Wrapf(err, "failed to watch skills root %s", skillsRoot)
	}

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}
			// debounce bursts from imports and deletes
			if timer == nil {
				timer = time.NewTimer(rebuildDebounce)
				timerC = timer.C
			} else {
				timer.Reset(rebuildDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.G(ctx).WithError(err).Warn("skills root watcher error")
		case <-timerC:
			timer = nil
			timerC = nil
			if err := c.Rebuild(ctx); err != nil {
				logger.G(ctx).WithError(err).Warn("failed to rebuild skill metadata cache after filesystem change")
			}
		}
	}
}
