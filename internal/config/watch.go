package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config file at path whenever it changes and hands each
// successfully loaded Config to onChange. It blocks until ctx is cancelled.
//
// The watch is placed on the parent directory rather than the file itself,
// because editors and configuration management tools tend to save atomically
// (write a temp file, rename it over the original), which replaces the inode
// a file-level watch is bound to. Events for other files in the directory
// are ignored.
//
// A failed reload (unreadable file, invalid YAML, failed validation) is
// logged and skipped; the previously applied config stays in effect.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}
	slog.Info("config: watching for changes", "path", target)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !concernsTarget(ev, target) {
				continue
			}
			apply(target, onChange)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

// concernsTarget reports whether ev is a content change of the watched file.
// Write covers in-place edits; Create and Rename cover atomic saves.
func concernsTarget(ev fsnotify.Event, target string) bool {
	if name, err := filepath.Abs(ev.Name); err != nil || name != target {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

// apply loads the file and forwards the result, keeping the old config on
// any load error.
func apply(path string, onChange func(*Config)) {
	cfg, err := Load(path)
	if err != nil {
		slog.Error("config: reload failed, keeping previous config",
			"path", path, "err", err)
		return
	}
	slog.Info("config: reloaded", "path", path)
	onChange(cfg)
}
