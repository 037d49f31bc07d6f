// SPDX-License-Identifier: MIT

// Package status persists which pipeline stages have completed for the
// current day, so repeated invocations skip finished work and partial
// failures are detected across process restarts.
package status

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/V-i-c-ky/AutoWallpaper/internal/metrics"
)

// Stage is one step of the daily pipeline. Stages are monotonic: once
// recorded they stay true for the rest of the period.
type Stage string

const (
	StageDownloaded    Stage = "downloaded"
	StagePostProcessed Stage = "post_processed"
	StageApplied       Stage = "applied"
	StageFinalized     Stage = "finalized"
)

// Record is the persisted completion state for one period. A fresh period
// starts from the zero value; the whole record is superseded when the
// period rolls over (each day has its own folder).
type Record struct {
	Downloaded    bool       `json:"downloaded"`
	PostProcessed bool       `json:"post_processed"`
	Applied       bool       `json:"applied"`
	Finalized     bool       `json:"finalized"`
	DownloadedAt  *time.Time `json:"downloaded_at,omitempty"`
	FinalizedAt   *time.Time `json:"finalized_at,omitempty"`
}

// VerifyFunc reports whether the artifact at path is a valid instance of
// the expected content (supplied by surrounding code, see internal/imaging).
type VerifyFunc func(path string) error

// CurrentFunc returns the artifact currently in effect on the host, used
// only for the cross-check in IsComplete.
type CurrentFunc func(ctx context.Context) (string, error)

// Tracker owns the persisted record for one period.
type Tracker struct {
	path     string // record file
	artifact string // expected artifact
	verify   VerifyFunc
	current  CurrentFunc
	logger   zerolog.Logger
	clock    func() time.Time
}

// New creates a Tracker for the record at recordPath guarding artifact.
// current may be nil when no live-state query is available.
func New(recordPath, artifact string, verify VerifyFunc, current CurrentFunc, logger zerolog.Logger) *Tracker {
	return &Tracker{
		path:     recordPath,
		artifact: artifact,
		verify:   verify,
		current:  current,
		logger:   logger,
		clock:    time.Now,
	}
}

// WithClock overrides the tracker's time source.
func (t *Tracker) WithClock(clock func() time.Time) *Tracker {
	t.clock = clock
	return t
}

// Load reads the persisted record. An unreadable or malformed record
// degrades to the zero record (redo the work) rather than failing.
func (t *Tracker) Load() Record {
	var rec Record
	data, err := os.ReadFile(t.path)
	if err != nil {
		return rec
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		t.logger.Warn().
			Str("event", "status.corrupt").
			Str("path", t.path).
			Err(err).
			Msg("completion record malformed, treating period as not complete")
		return Record{}
	}
	return rec
}

// RecordStage marks one stage complete and persists immediately
// (write-through). Re-marking an already-true stage is a no-op.
func (t *Tracker) RecordStage(stage Stage) error {
	rec := t.Load()
	now := t.clock()

	switch stage {
	case StageDownloaded:
		if rec.Downloaded {
			return nil
		}
		rec.Downloaded = true
		rec.DownloadedAt = &now
	case StagePostProcessed:
		if rec.PostProcessed {
			return nil
		}
		rec.PostProcessed = true
	case StageApplied:
		if rec.Applied {
			return nil
		}
		rec.Applied = true
	case StageFinalized:
		if rec.Finalized {
			return nil
		}
		rec.Finalized = true
		rec.FinalizedAt = &now
	default:
		return nil
	}

	metrics.IncStage(string(stage))
	return t.save(rec)
}

// IsComplete reports whether the period's work is done. The persisted
// flags are never trusted on their own: the artifact must exist and verify,
// and the wallpaper actually in effect must match it. Disagreement
// self-heals the persisted record before returning false.
func (t *Tracker) IsComplete(ctx context.Context) bool {
	rec := t.Load()
	if !rec.Finalized {
		return false
	}

	if err := t.verify(t.artifact); err != nil {
		t.logger.Warn().
			Str("event", "status.artifact_invalid").
			Str("path", t.artifact).
			Err(err).
			Msg("artifact missing or corrupted, will redo")
		t.heal(rec)
		return false
	}

	if t.current != nil {
		cur, err := t.current(ctx)
		if err != nil {
			// Live-state query failure degrades to "assume complete".
			t.logger.Debug().
				Str("event", "status.live_query_failed").
				Err(err).
				Msg("cannot query current wallpaper, assuming complete")
			return true
		}
		if cur != "" && !samePath(cur, t.artifact) {
			t.logger.Info().
				Str("event", "status.wallpaper_mismatch").
				Str("current", cur).
				Str("expected", t.artifact).
				Msg("current wallpaper differs from today's image, will re-apply")
			t.heal(rec)
			return false
		}
	}

	return true
}

// heal corrects a stale "applied" claim so the record reflects reality.
func (t *Tracker) heal(rec Record) {
	rec.Applied = false
	if err := t.save(rec); err != nil {
		t.logger.Warn().
			Str("event", "status.heal_failed").
			Err(err).
			Msg("could not persist corrected record")
	}
}

func (t *Tracker) save(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(t.path, data, 0o644)
}

// samePath compares two paths ignoring case, slash direction, file:// URI
// prefixes and extended-length prefixes, after resolving both to absolute
// form where possible.
func samePath(a, b string) bool {
	return normalizePath(a) == normalizePath(b)
}

func normalizePath(p string) string {
	p = strings.TrimPrefix(p, "file://")
	p = strings.TrimPrefix(p, `\\?\`)
	p = strings.Trim(p, `'"`)
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return strings.ToLower(filepath.ToSlash(p))
}
