// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package staleness

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// LatestModTime returns the most recent modification time of the files at or below paths.
// Paths that don't exist are ignored; ok is false if no file was found.
func LatestModTime(paths ...string) (latest time.Time, ok bool, err error) {
	for _, p := range paths {
		err := filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			if !ok || info.ModTime().After(latest) {
				latest = info.ModTime()
				ok = true
			}
			return nil
		})
		if err != nil {
			return time.Time{}, false, err
		}
	}
	return latest, ok, nil
}

// IsStale reports whether output needs to be rebuilt from inputs.
// A missing output is stale. Equal timestamps are up to date.
func IsStale(output string, inputs ...string) (bool, error) {
	latest, ok, err := LatestModTime(inputs...)
	if err != nil {
		return false, err
	}
	if !ok {
		exists, err := exists(output)
		return !exists, err
	}
	return IsStaleAt(output, latest)
}

// IsStaleAt reports whether output is missing or older than latest
func IsStaleAt(output string, latest time.Time) (bool, error) {
	info, err := os.Stat(output)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, err
	}
	return latest.After(info.ModTime()), nil
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
