// SPDX-License-Identifier: MIT

// Package config loads application configuration with the precedence
// Defaults < File < Environment, then validates the result.
package config

import (
	"fmt"
	"time"

	"github.com/V-i-c-ky/AutoWallpaper/internal/imaging"
)

// AppConfig is the validated runtime configuration.
type AppConfig struct {
	DataDir        string
	APIBase        string
	Market         string
	Index          int
	CheckCompleted bool
	CopyToDesktop  bool
	Watermark      bool
	RetryDelay     time.Duration
	RetryCount     int
	Timeout        time.Duration
	ArchiveDays    int
	LogLevel       string

	Watermarks        []imaging.Watermark
	PostExecutionApps []string
	CopyToPaths       []string
}

// Defaults returns the baseline configuration before file and environment
// overrides.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:        "",
		APIBase:        "https://www.bing.com",
		Market:         "zh-CN",
		Index:          0,
		CheckCompleted: true,
		CopyToDesktop:  true,
		Watermark:      false,
		RetryDelay:     3 * time.Second,
		RetryCount:     10,
		Timeout:        30 * time.Second,
		ArchiveDays:    10,
		LogLevel:       "info",
	}
}

// Validate checks the final configuration.
func Validate(cfg AppConfig) error {
	if cfg.DataDir == "" {
		return fmt.Errorf("data dir is empty")
	}
	if cfg.APIBase == "" {
		return fmt.Errorf("API base URL is empty")
	}
	if cfg.RetryCount < 1 {
		return fmt.Errorf("retry count must be at least 1 (got %d)", cfg.RetryCount)
	}
	if cfg.RetryDelay < time.Second {
		return fmt.Errorf("retry delay must be at least 1s (got %s)", cfg.RetryDelay)
	}
	if cfg.Index < 0 || cfg.Index > 7 {
		return fmt.Errorf("index must be within [0,7] (got %d)", cfg.Index)
	}
	if len(cfg.Market) < 2 {
		return fmt.Errorf("market %q is too short", cfg.Market)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive (got %s)", cfg.Timeout)
	}
	if cfg.ArchiveDays < 1 {
		return fmt.Errorf("archive days must be at least 1 (got %d)", cfg.ArchiveDays)
	}
	return nil
}
