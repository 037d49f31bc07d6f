// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/V-i-c-ky/AutoWallpaper/internal/app"
	"github.com/V-i-c-ky/AutoWallpaper/internal/config"
	"github.com/V-i-c-ky/AutoWallpaper/internal/fetch"
	xglog "github.com/V-i-c-ky/AutoWallpaper/internal/log"
	"github.com/V-i-c-ky/AutoWallpaper/internal/wallpaper"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "autowallpaper: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Optional .env next to the working directory; absence is fine.
	_ = godotenv.Load()

	configPath := flag.String("config", defaultConfigPath(), "path to YAML config file")
	flag.Parse()

	bootstrapLogger := xglog.WithComponent("config")
	cfg, err := config.NewLoader(*configPath, bootstrapLogger).Load()
	if err != nil {
		return err
	}

	xglog.Configure(xglog.Config{Level: cfg.LogLevel})
	logger := xglog.WithComponent("main")
	logger.Info().
		Str("event", "startup").
		Str("data_dir", cfg.DataDir).
		Str("market", cfg.Market).
		Int("retry_count", cfg.RetryCount).
		Dur("retry_delay", cfg.RetryDelay).
		Bool("watermark", cfg.Watermark).
		Msg("starting daily wallpaper run")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := fetch.New(fetch.Deps{
		Client: fetch.NewHTTPClient(cfg.Timeout),
		Logger: xglog.WithComponent("fetch"),
	})

	deps := app.Deps{
		Config:  cfg,
		Engine:  engine,
		Applier: wallpaper.NewCommandApplier(xglog.WithComponent("wallpaper")),
		Logger:  xglog.WithComponent("app"),
		Clock:   time.Now,
	}

	return app.Run(ctx, deps)
}

// defaultConfigPath places config.yaml next to the binary, falling back to
// the working directory.
func defaultConfigPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(filepath.Dir(exe), "config.yaml")
}
