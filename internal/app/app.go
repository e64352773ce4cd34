// Package app wires configuration, logging and the main window together.
package app

import (
	"fmt"

	"filedrop/internal/config"
	"filedrop/internal/ui"
	"filedrop/pkg/logger"
)

// Options override values from the config file.
type Options struct {
	ConfigPath string
	LogLevel   string
}

// App represents the main application.
type App struct {
	configMgr  *config.ConfigManager
	log        *logger.Logger
	mainWindow *ui.MainWindow
}

// New loads the config and initializes logging.
func New(opts Options) (*App, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultPath()
	}

	configMgr, err := config.NewConfigManager(configPath)
	if err != nil {
		return nil, err
	}

	cfg := configMgr.Get()
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid --log-level: %w", err)
		}
	}

	log := logger.GetInstance()
	if err := log.Initialize(logger.Config{
		LogPath: cfg.LogPath,
		Level:   cfg.LogLevel,
		Console: true,
	}); err != nil {
		log.Warnf("Failed to initialize file logging: %v", err)
	}

	return &App{
		configMgr: configMgr,
		log:       log,
	}, nil
}

// Run opens the main window and blocks until it is closed.
func (a *App) Run() {
	a.log.Infof("Starting filedrop, config %s", a.configMgr.Path())

	a.mainWindow = ui.NewMainWindow(a.configMgr)
	a.mainWindow.Run()

	a.cleanup()
}

func (a *App) cleanup() {
	a.log.Info("Shutting down filedrop")

	if a.mainWindow != nil {
		a.mainWindow.Cleanup()
	}

	if err := a.configMgr.Save(); err != nil {
		a.log.Errorf("Failed to save config: %v", err)
	}

	a.log.Close()
}
