// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"daml.com/x/bake/pkg/bakeconfig"
	"daml.com/x/bake/pkg/utils"
	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 300 * time.Millisecond

// Watcher calls a rebuild function whenever files of a repository change.
// Build outputs and hidden directories are not watched.
type Watcher struct {
	root     string
	debounce time.Duration
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
}

func New(root string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{root: root, debounce: debounce, logger: logger, fsw: fsw}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Ignored reports whether changes at path, relative to the repository root, are irrelevant to a build
func Ignored(rel string) bool {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if parts[0] == bakeconfig.OutputDirName {
		return true
	}
	for _, p := range parts {
		if strings.HasPrefix(p, ".") && p != "." {
			return true
		}
	}
	last := parts[len(parts)-1]
	return strings.HasSuffix(last, utils.TempPath("")) || strings.HasSuffix(last, "~")
}

func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return true
	}
	return rel != "." && Ignored(rel)
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Run blocks until ctx is done. rebuild runs once a burst of changes has settled;
// its errors are logged and don't stop the watcher.
func (w *Watcher) Run(ctx context.Context, rebuild func(ctx context.Context) error) error {
	defer func() { _ = w.fsw.Close() }()

	var settled <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("file watcher closed")
			}
			if w.ignored(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			w.logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
			settled = time.After(w.debounce)

		case <-settled:
			settled = nil
			if err := rebuild(ctx); err != nil {
				w.logger.Error("rebuild failed", "error", err)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("file watcher closed")
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}
