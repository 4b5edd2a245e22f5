// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package keystore

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// secretFileProviders maps mounted secret file names to provider names.
// These match the file names the narrative backends read at startup.
var secretFileProviders = map[string]string{
	"openai_api_key":    "openai",
	"anthropic_api_key": "anthropic",
}

// SecretWatcher keeps the store in sync with a mounted secrets directory.
//
// Container platforms rotate mounted secrets by swapping the directory
// contents atomically; a process that read the file at startup keeps using
// the stale key until restart. The watcher re-reads a recognized secret
// file whenever it changes and writes the new value into the store, so
// long-running servers pick up rotated keys without a restart.
type SecretWatcher struct {
	store   *Store
	dir     string
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	// OnRotate, if set, is called with the provider name after a rotated
	// key has been stored. Servers use it to rebuild their backend client.
	OnRotate func(provider string)
}

// NewSecretWatcher creates a watcher for the given secrets directory.
// The directory must exist.
func NewSecretWatcher(store *Store, dir string, logger *slog.Logger) (*SecretWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &SecretWatcher{
		store:   store,
		dir:     dir,
		watcher: watcher,
		logger:  logger,
	}, nil
}

// Start begins watching for secret rotations. Blocks until the context is
// cancelled or the watcher is stopped; run it in a goroutine.
//
// The directory is watched rather than the individual files: rotation
// replaces the files, and a watch on the old inode would go silent after
// the first swap.
func (w *SecretWatcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}

	w.logger.Debug("watching mounted secrets for rotation", slog.String("dir", w.dir))

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("secret watcher error", slog.String("error", err.Error()))

		case <-ctx.Done():
			w.logger.Debug("secret watcher stopping")
			return nil
		}
	}
}

// Stop stops the watcher and releases resources. Safe to call while Start
// is running; the event loop exits when the channels close.
func (w *SecretWatcher) Stop() error {
	return w.watcher.Close()
}

// handleEvent processes a single fsnotify event.
func (w *SecretWatcher) handleEvent(event fsnotify.Event) {
	// Rotation shows up as Create (atomic swap) or Write (plain overwrite).
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	provider, ok := secretFileProviders[filepath.Base(event.Name)]
	if !ok {
		return
	}

	raw, err := os.ReadFile(filepath.Join(w.dir, filepath.Base(event.Name)))
	if err != nil {
		w.logger.Warn("failed to read rotated secret",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		return
	}

	value := strings.TrimSpace(string(raw))
	if value == "" {
		return
	}

	// Swap bursts deliver several events for one rotation; skip rewrites
	// of a value the store already holds.
	if current, err := w.store.Get(provider); err == nil && current == value {
		return
	}

	if err := w.store.Set(provider, value); err != nil {
		w.logger.Warn("failed to store rotated secret",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		return
	}

	w.logger.Info("provider API key rotated",
		slog.String("provider", provider),
		slog.String("fingerprint", Fingerprint(value)),
	)

	if w.OnRotate != nil {
		w.OnRotate(provider)
	}
}
