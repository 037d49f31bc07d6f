// SPDX-License-Identifier: MIT

package fetch

import (
	"fmt"
	"os"
	"path/filepath"
)

// Writer publishes a fully-received payload to its destination path.
type Writer interface {
	Publish(path string, data []byte) error
}

// AtomicWriter stages the payload next to the destination and makes it
// visible with a single rename. The destination is never observable as a
// truncated intermediate: it holds either the previous complete content or
// the new complete content.
type AtomicWriter struct{}

// Publish writes data to a temp file in the destination directory, fsyncs
// it and renames it into place. If the rename fails over an existing
// destination (platforms without atomic overwrite-by-rename), the existing
// file is removed and the rename retried once; a second failure surfaces
// both causes.
func (AtomicWriter) Publish(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".wallpaper-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		// Best-effort: no stray temp artifact on error paths.
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			_ = os.Remove(path)
			if err2 := os.Rename(tmpPath, path); err2 != nil {
				return fmt.Errorf("move temp file into place: %w (after removing existing destination; first rename: %v)", err2, err)
			}
			return nil
		}
		return fmt.Errorf("move temp file into place: %w", err)
	}
	return nil
}
