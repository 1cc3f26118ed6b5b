package messages

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/munashe04/buyza/pkg/log"
)

// Watch reloads path into the catalog whenever it is written or replaced.
// It blocks until ctx is done. The parent directory is watched so that
// editors which save by rename are noticed.
func (c *Catalog) Watch(ctx context.Context, path string) error {
	logger := log.WithComponent("messages")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch file %s: %w", path, err)
	}

	logger.Info().Str("path", abs).Msg("watching message catalog")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filepath.Base(abs) {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if err := c.LoadFile(abs); err != nil {
					logger.Error().Err(err).Msg("failed to reload message catalog")
					continue
				}
				logger.Info().Str("path", abs).Msg("message catalog reloaded")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("watcher error")
		case <-ctx.Done():
			return nil
		}
	}
}
