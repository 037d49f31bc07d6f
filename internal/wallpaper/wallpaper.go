// SPDX-License-Identifier: MIT

// Package wallpaper abstracts the host-specific "set wallpaper" and
// "what wallpaper is in effect" operations behind a capability interface so
// the completion tracker can be tested without any OS dependency.
package wallpaper

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
)

// Applier sets and inspects the desktop wallpaper.
type Applier interface {
	// Apply makes the image at path the desktop wallpaper.
	Apply(ctx context.Context, path string) error
	// Current returns the path of the wallpaper currently in effect.
	Current(ctx context.Context) (string, error)
}

// CommandApplier drives the host's desktop tooling (gsettings on Linux,
// osascript on macOS).
type CommandApplier struct {
	logger zerolog.Logger
}

// NewCommandApplier creates an Applier for the current platform.
func NewCommandApplier(logger zerolog.Logger) *CommandApplier {
	return &CommandApplier{logger: logger}
}

func (a *CommandApplier) Apply(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf(`tell application "System Events" to set picture of every desktop to %q`, abs)
		cmd = exec.CommandContext(ctx, "osascript", "-e", script)
	case "linux":
		cmd = exec.CommandContext(ctx, "gsettings", "set",
			"org.gnome.desktop.background", "picture-uri", "file://"+abs)
	default:
		return fmt.Errorf("setting wallpaper not supported on %s", runtime.GOOS)
	}

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("set wallpaper: %w (%s)", err, strings.TrimSpace(string(out)))
	}

	a.logger.Info().
		Str("event", "wallpaper.applied").
		Str("path", abs).
		Msg("wallpaper set")
	return nil
}

func (a *CommandApplier) Current(ctx context.Context) (string, error) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "osascript", "-e",
			`tell application "System Events" to get picture of first desktop`)
	case "linux":
		cmd = exec.CommandContext(ctx, "gsettings", "get",
			"org.gnome.desktop.background", "picture-uri")
	default:
		return "", fmt.Errorf("querying wallpaper not supported on %s", runtime.GOOS)
	}

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("query current wallpaper: %w", err)
	}

	cur := strings.TrimSpace(string(out))
	cur = strings.Trim(cur, `'"`)
	cur = strings.TrimPrefix(cur, "file://")
	return cur, nil
}

// Static is a deterministic Applier for tests and dry runs: Apply records
// the path, Current replays it.
type Static struct {
	Path       string
	ApplyErr   error
	CurrentErr error
	Applied    []string
}

func (s *Static) Apply(_ context.Context, path string) error {
	if s.ApplyErr != nil {
		return s.ApplyErr
	}
	s.Path = path
	s.Applied = append(s.Applied, path)
	return nil
}

func (s *Static) Current(_ context.Context) (string, error) {
	if s.CurrentErr != nil {
		return "", s.CurrentErr
	}
	return s.Path, nil
}
