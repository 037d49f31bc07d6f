// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/V-i-c-ky/AutoWallpaper/internal/imaging"
)

// FileConfig mirrors the YAML config file. Pointer fields distinguish
// "absent" from zero values during merging.
type FileConfig struct {
	DataDir        *string `yaml:"data_dir"`
	APIBase        *string `yaml:"api_base"`
	Market         *string `yaml:"market"`
	Index          *int    `yaml:"index"`
	CheckCompleted *bool   `yaml:"check_completed"`
	CopyToDesktop  *bool   `yaml:"copy_to_desktop"`
	Watermark      *bool   `yaml:"watermark"`
	RetryDelay     *string `yaml:"retry_delay"`
	RetryCount     *int    `yaml:"retry_count"`
	Timeout        *string `yaml:"timeout"`
	ArchiveDays    *int    `yaml:"archive_days"`
	LogLevel       *string `yaml:"log_level"`

	Watermarks []fileWatermark `yaml:"watermarks"`
	PostApps   []string        `yaml:"post_execution_apps"`
	CopyTo     []string        `yaml:"copy_to_paths"`
}

type fileWatermark struct {
	Type    string  `yaml:"type"`
	Path    string  `yaml:"path"`
	Content string  `yaml:"content"`
	PosX    float64 `yaml:"posX"`
	PosY    float64 `yaml:"posY"`
	Opacity int     `yaml:"opacity"`
}

// Loader loads configuration with precedence ENV > File > Defaults.
type Loader struct {
	configPath string
	logger     zerolog.Logger
}

// NewLoader creates a configuration loader. configPath may be empty.
func NewLoader(configPath string, logger zerolog.Logger) *Loader {
	return &Loader{configPath: configPath, logger: logger}
}

// Load resolves the configuration: defaults, then the strict YAML file if
// present (a missing file is bootstrapped with defaults), then WALLPAPER_*
// environment overrides, then validation.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		mergeFile(&cfg, fileCfg)
	}

	l.mergeEnv(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile parses the YAML file strictly: unknown fields are rejected to
// catch misconfiguration early. A missing file is created from defaults.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		l.logger.Info().
			Str("event", "config.bootstrap").
			Str("path", path).
			Msg("config file not found, creating default config")
		if werr := l.writeDefault(path); werr != nil {
			l.logger.Warn().Err(werr).Msg("could not write default config file")
		}
		return &FileConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fileCfg); err != nil {
		if err == io.EOF {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}
	return &fileCfg, nil
}

func (l *Loader) writeDefault(path string) error {
	def := Defaults()
	out := map[string]any{
		"data_dir":        def.DataDir,
		"api_base":        def.APIBase,
		"market":          def.Market,
		"index":           def.Index,
		"check_completed": def.CheckCompleted,
		"copy_to_desktop": def.CopyToDesktop,
		"watermark":       def.Watermark,
		"retry_delay":     def.RetryDelay.String(),
		"retry_count":     def.RetryCount,
		"timeout":         def.Timeout.String(),
		"archive_days":    def.ArchiveDays,
		"log_level":       def.LogLevel,
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return renameio.WriteFile(path, data, 0o644)
}

func mergeFile(cfg *AppConfig, f *FileConfig) {
	if f.DataDir != nil {
		cfg.DataDir = *f.DataDir
	}
	if f.APIBase != nil {
		cfg.APIBase = *f.APIBase
	}
	if f.Market != nil {
		cfg.Market = *f.Market
	}
	if f.Index != nil {
		cfg.Index = *f.Index
	}
	if f.CheckCompleted != nil {
		cfg.CheckCompleted = *f.CheckCompleted
	}
	if f.CopyToDesktop != nil {
		cfg.CopyToDesktop = *f.CopyToDesktop
	}
	if f.Watermark != nil {
		cfg.Watermark = *f.Watermark
	}
	if f.RetryDelay != nil {
		if d, err := time.ParseDuration(*f.RetryDelay); err == nil {
			cfg.RetryDelay = d
		}
	}
	if f.RetryCount != nil {
		cfg.RetryCount = *f.RetryCount
	}
	if f.Timeout != nil {
		if d, err := time.ParseDuration(*f.Timeout); err == nil {
			cfg.Timeout = d
		}
	}
	if f.ArchiveDays != nil {
		cfg.ArchiveDays = *f.ArchiveDays
	}
	if f.LogLevel != nil {
		cfg.LogLevel = *f.LogLevel
	}
	for _, wm := range f.Watermarks {
		cfg.Watermarks = append(cfg.Watermarks, imaging.Watermark{
			Type:    wm.Type,
			Path:    wm.Path,
			Content: wm.Content,
			PosX:    wm.PosX,
			PosY:    wm.PosY,
			Opacity: wm.Opacity,
		})
	}
	if f.PostApps != nil {
		cfg.PostExecutionApps = f.PostApps
	}
	if f.CopyTo != nil {
		cfg.CopyToPaths = f.CopyTo
	}
}

// mergeEnv applies WALLPAPER_* environment overrides (highest priority).
func (l *Loader) mergeEnv(cfg *AppConfig) {
	log := l.logger
	cfg.DataDir = ParseString(log, "WALLPAPER_DATA_DIR", cfg.DataDir)
	cfg.APIBase = ParseString(log, "WALLPAPER_API_BASE", cfg.APIBase)
	cfg.Market = ParseString(log, "WALLPAPER_MARKET", cfg.Market)
	cfg.Index = ParseInt(log, "WALLPAPER_INDEX", cfg.Index)
	cfg.CheckCompleted = ParseBool(log, "WALLPAPER_CHECK_COMPLETED", cfg.CheckCompleted)
	cfg.CopyToDesktop = ParseBool(log, "WALLPAPER_COPY_TO_DESKTOP", cfg.CopyToDesktop)
	cfg.Watermark = ParseBool(log, "WALLPAPER_WATERMARK", cfg.Watermark)
	cfg.RetryDelay = ParseDuration(log, "WALLPAPER_RETRY_DELAY", cfg.RetryDelay)
	cfg.RetryCount = ParseInt(log, "WALLPAPER_RETRY_COUNT", cfg.RetryCount)
	cfg.Timeout = ParseDuration(log, "WALLPAPER_TIMEOUT", cfg.Timeout)
	cfg.ArchiveDays = ParseInt(log, "WALLPAPER_ARCHIVE_DAYS", cfg.ArchiveDays)
	cfg.LogLevel = ParseString(log, "WALLPAPER_LOG_LEVEL", cfg.LogLevel)
}

// defaultDataDir resolves the per-user data directory.
func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "AutoWallpaper")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "AutoWallpaper"
	}
	return filepath.Join(home, ".autowallpaper")
}
