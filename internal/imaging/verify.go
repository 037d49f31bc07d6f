// SPDX-License-Identifier: MIT

// Package imaging holds the artifact validity predicate and the optional
// watermark post-processing step.
package imaging

import (
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for VerifyFile
	_ "image/png"
	"os"
)

// MinValidSize is the smallest plausible wallpaper payload. Anything below
// is treated as a truncated or error-page download.
const MinValidSize = 10 * 1024

// VerifyFile reports whether path holds a decodable image of at least
// MinValidSize bytes. Presence alone is not enough: the file may have been
// replaced or truncated externally between runs.
func VerifyFile(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat image: %w", err)
	}
	if fi.Size() < MinValidSize {
		return fmt.Errorf("image file too small (%d bytes)", fi.Size())
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, _, err := image.Decode(f); err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	return nil
}
