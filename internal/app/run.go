// SPDX-License-Identifier: MIT

// Package app sequences the daily pipeline: archive sweep, completion
// check, download, verify, watermark, apply, finalize.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/V-i-c-ky/AutoWallpaper/internal/archive"
	"github.com/V-i-c-ky/AutoWallpaper/internal/bing"
	"github.com/V-i-c-ky/AutoWallpaper/internal/config"
	"github.com/V-i-c-ky/AutoWallpaper/internal/fetch"
	"github.com/V-i-c-ky/AutoWallpaper/internal/imaging"
	"github.com/V-i-c-ky/AutoWallpaper/internal/status"
	"github.com/V-i-c-ky/AutoWallpaper/internal/wallpaper"
)

// Deps holds all dependencies for one pipeline run.
type Deps struct {
	Config  config.AppConfig
	Engine  *fetch.Engine
	Applier wallpaper.Applier
	Logger  zerolog.Logger
	Clock   func() time.Time
}

// Run executes the pipeline for the current day. Failures of cosmetic
// steps (copies, post-execution apps) are logged, not fatal; download and
// verification failures abort the run.
func Run(ctx context.Context, d Deps) error {
	cfg := d.Config
	logger := d.Logger
	clock := d.Clock
	if clock == nil {
		clock = time.Now
	}

	now := clock()
	name := now.Format(archive.FolderLayout)
	dayDir := filepath.Join(cfg.DataDir, name)
	if err := os.MkdirAll(dayDir, 0o755); err != nil {
		return fmt.Errorf("create day dir: %w", err)
	}

	archive.Sweep(cfg.DataDir, filepath.Join(cfg.DataDir, "Archive"), cfg.ArchiveDays, now, logger)

	imagePath := filepath.Join(dayDir, name+".jpg")
	tracker := status.New(
		filepath.Join(dayDir, "status.json"),
		imagePath,
		imaging.VerifyFile,
		d.Applier.Current,
		logger,
	).WithClock(clock)

	if cfg.CheckCompleted && tracker.IsComplete(ctx) {
		logger.Info().
			Str("event", "run.already_complete").
			Str("day", name).
			Msg("today's wallpaper already completed and verified")
		return nil
	}

	if err := download(ctx, d, dayDir, imagePath, tracker); err != nil {
		return err
	}

	rec := tracker.Load()
	if cfg.Watermark && !rec.PostProcessed {
		if err := watermark(cfg, imagePath, dayDir, name, logger); err != nil {
			return err
		}
		if err := tracker.RecordStage(status.StagePostProcessed); err != nil {
			logger.Warn().Err(err).Msg("could not record post-process stage")
		}
	}

	copyToPaths(cfg, imagePath, name, logger)

	applyErr := d.Applier.Apply(ctx, imagePath)
	if applyErr != nil {
		logger.Warn().
			Str("event", "run.apply_failed").
			Err(applyErr).
			Msg("wallpaper setting failed, will retry next run")
	} else if err := tracker.RecordStage(status.StageApplied); err != nil {
		logger.Warn().Err(err).Msg("could not record applied stage")
	}

	if cfg.CopyToDesktop {
		copyToDesktop(imagePath, logger)
	}

	runPostExecutionApps(ctx, cfg.PostExecutionApps, logger)

	if applyErr == nil {
		if err := tracker.RecordStage(status.StageFinalized); err != nil {
			logger.Warn().Err(err).Msg("could not record finalized stage")
		}
		logger.Info().Str("event", "run.complete").Msg("all tasks completed")
	}
	return nil
}

// download obtains and verifies today's image unless a valid one is
// already on disk.
func download(ctx context.Context, d Deps, dayDir, imagePath string, tracker *status.Tracker) error {
	cfg := d.Config
	logger := d.Logger

	if err := imaging.VerifyFile(imagePath); err == nil {
		logger.Info().
			Str("event", "run.image_reused").
			Str("path", imagePath).
			Msg("using existing valid image file")
		return nil
	}

	apiPath := filepath.Join(dayDir, "api.json")
	apiReq := fetch.Request{
		URL:         bing.APIURL(cfg.APIBase, cfg.Market, cfg.Index),
		Destination: apiPath,
		MaxAttempts: cfg.RetryCount,
		BaseDelay:   cfg.RetryDelay,
	}
	if err := d.Engine.Fetch(ctx, apiReq); err != nil {
		return fmt.Errorf("download API document: %w", err)
	}

	raw, err := os.ReadFile(apiPath)
	if err != nil {
		return fmt.Errorf("read API document: %w", err)
	}
	img, err := bing.ParseImage(cfg.APIBase, raw)
	if err != nil {
		return fmt.Errorf("extract image URL: %w", err)
	}
	logger.Info().
		Str("event", "run.image_resolved").
		Str("url", img.URL).
		Str("title", img.Title).
		Msg("resolved picture of the day")

	imgReq := fetch.Request{
		URL:         img.URL,
		Destination: imagePath,
		MaxAttempts: cfg.RetryCount,
		BaseDelay:   cfg.RetryDelay,
	}
	if err := d.Engine.Fetch(ctx, imgReq); err != nil {
		return fmt.Errorf("download image: %w", err)
	}

	if err := imaging.VerifyFile(imagePath); err != nil {
		_ = os.Remove(imagePath)
		return fmt.Errorf("downloaded image is corrupted: %w", err)
	}

	if err := tracker.RecordStage(status.StageDownloaded); err != nil {
		logger.Warn().Err(err).Msg("could not record downloaded stage")
	}
	logger.Info().Str("event", "run.downloaded").Msg("image downloaded and verified")
	return nil
}

// watermark preserves an untouched copy, then applies the configured
// watermarks in place.
func watermark(cfg config.AppConfig, imagePath, dayDir, name string, logger zerolog.Logger) error {
	original := filepath.Join(dayDir, name+"_original.jpg")
	if _, err := os.Stat(original); err != nil {
		if err := copyFile(imagePath, original); err != nil {
			logger.Warn().Err(err).Msg("could not preserve original image")
		}
	}
	if err := imaging.ApplyWatermarks(imagePath, cfg.Watermarks, cfg.DataDir, logger); err != nil {
		return fmt.Errorf("apply watermarks: %w", err)
	}
	return nil
}

func copyToPaths(cfg config.AppConfig, imagePath, name string, logger zerolog.Logger) {
	for _, p := range cfg.CopyToPaths {
		expanded := os.ExpandEnv(p)
		target := expanded
		if filepath.Ext(expanded) == "" {
			if err := os.MkdirAll(expanded, 0o755); err != nil {
				logger.Warn().Str("path", expanded).Err(err).Msg("could not create copy target dir")
				continue
			}
			target = filepath.Join(expanded, name+".jpg")
		}
		if err := copyFile(imagePath, target); err != nil {
			logger.Warn().Str("path", target).Err(err).Msg("failed to copy image")
			continue
		}
		logger.Info().Str("event", "run.copied").Str("path", target).Msg("image copied")
	}
}

func copyToDesktop(imagePath string, logger zerolog.Logger) {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	dest := filepath.Join(home, "Desktop", "wallpaper.jpg")
	if err := copyFile(imagePath, dest); err != nil {
		logger.Warn().Err(err).Msg("failed to copy wallpaper to desktop")
		return
	}
	logger.Info().Str("event", "run.desktop_copy").Msg("wallpaper copied to desktop")
}

func runPostExecutionApps(ctx context.Context, apps []string, logger zerolog.Logger) {
	for _, app := range apps {
		expanded := os.ExpandEnv(app)

		var cmd *exec.Cmd
		if runtime.GOOS == "windows" {
			cmd = exec.CommandContext(ctx, "cmd", "/C", expanded)
		} else {
			cmd = exec.CommandContext(ctx, "sh", "-c", expanded)
		}

		logger.Info().Str("event", "run.post_exec").Str("command", expanded).Msg("executing")
		if err := cmd.Run(); err != nil {
			logger.Warn().Str("command", expanded).Err(err).Msg("post-execution app failed")
			continue
		}
		logger.Info().Str("command", expanded).Msg("post-execution app finished")
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
