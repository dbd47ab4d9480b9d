package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/workscore/pkg/logger"
)

// Watch reloads the config whenever the file at path changes and passes each
// valid result to onChange. Invalid edits are logged and skipped. The parent
// directory is watched so editors that replace the file are covered. Watch
// blocks until ctx is canceled.
func Watch(ctx context.Context, path string, log logger.Logger, onChange func(*Config)) error {
	if path == "" {
		return fmt.Errorf("%w: empty config path", ErrLoadConfig)
	}
	if log == nil {
		log = logger.Nop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	log.Info(ctx, "watching config", logger.String("path", target))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			cfg, err := LoadFrom(ctx, target)
			if err != nil {
				log.Warn(ctx, "config reload rejected", logger.Error(err))
				continue
			}
			log.Info(ctx, "config reloaded", logger.String("path", target))
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error(ctx, "config watcher error", logger.Error(err))
		}
	}
}
