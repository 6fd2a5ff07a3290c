package main

import (
	"embed"
	"fmt"
	"os"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"github.com/chazu/platen/pkg/config"
	"github.com/chazu/platen/pkg/logging"
)

//go:embed all:frontend/dist
var assets embed.FS

// configEnv names a YAML config file to load instead of the defaults.
const configEnv = "PLATEN_CONFIG"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "platen:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()
	if path := os.Getenv(configEnv); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}, os.Stderr)
	if err != nil {
		return err
	}
	logging.SetLogger(&logger)

	app, err := NewAppWithConfig(cfg)
	if err != nil {
		return err
	}
	return wails.Run(&options.App{
		Title:  "Platen",
		Width:  cfg.Viewport.Width,
		Height: cfg.Viewport.Height,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 30, G: 32, B: 36, A: 1},
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind: []interface{}{
			app,
		},
	})
}
