// SPDX-License-Identifier: MIT

// Package archive sweeps old per-day folders into a yearly archive tree.
package archive

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/V-i-c-ky/AutoWallpaper/internal/metrics"
)

// FolderLayout is the date layout of per-day folder names.
const FolderLayout = "2006.01.02"

// DefaultKeepDays is how long per-day folders stay in the base directory.
const DefaultKeepDays = 10

// Sweep moves date-named folders older than keepDays from baseDir into
// archiveDir/<year>/. Individual move failures are skipped; the sweep is
// housekeeping, never fatal.
func Sweep(baseDir, archiveDir string, keepDays int, now time.Time, logger zerolog.Logger) int {
	if keepDays <= 0 {
		keepDays = DefaultKeepDays
	}
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		logger.Warn().Str("event", "archive.mkdir_failed").Err(err).Msg("cannot create archive dir")
		return 0
	}

	// Date-only comparison: folders exactly at the cutoff day are kept.
	cy, cm, cd := now.AddDate(0, 0, -keepDays).Date()
	cutoff := time.Date(cy, cm, cd, 0, 0, 0, 0, now.Location())

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return 0
	}

	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		date, err := time.ParseInLocation(FolderLayout, entry.Name(), now.Location())
		if err != nil {
			continue
		}
		if !date.Before(cutoff) {
			continue
		}

		yearDir := filepath.Join(archiveDir, date.Format("2006"))
		if err := os.MkdirAll(yearDir, 0o755); err != nil {
			continue
		}
		if err := os.Rename(filepath.Join(baseDir, entry.Name()), filepath.Join(yearDir, entry.Name())); err != nil {
			logger.Debug().
				Str("event", "archive.move_failed").
				Str("folder", entry.Name()).
				Err(err).
				Msg("skipping folder")
			continue
		}
		count++
	}

	metrics.AddArchived(count)
	logger.Info().
		Str("event", "archive.swept").
		Int("folders", count).
		Msg("archived old folders")
	return count
}
