package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config file at path whenever it changes and passes each
// successfully loaded Config to onChange. It runs until ctx is cancelled.
//
// The parent directory is watched rather than the file, so saves that write a
// temp file and rename it over path keep being seen. A reload that fails to
// parse or validate is logged and skipped; an empty file is treated as a save
// still in progress.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	path = filepath.Clean(path)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("server config: watch %q: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("server config: watch %q: %w", filepath.Dir(path), err)
	}

	slog.Info("config: watching for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			// A rename over path arrives as Create; Remove and Rename of path itself
			// leave the previous config in place until a new file appears.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if cfg, ok := reload(path); ok {
				onChange(cfg)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

func reload(path string) (*Config, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("config: reload skipped", "path", path, "err", err)
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}
	cfg, err := Parse(data)
	if err != nil {
		slog.Error("config: reload failed, keeping previous config", "path", path, "err", err)
		return nil, false
	}
	slog.Info("config: reloaded", "path", path)
	return cfg, true
}
