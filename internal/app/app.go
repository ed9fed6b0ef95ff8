package app

import (
	"context"
	"fmt"

	"github.com/five82/tradedeck/internal/api"
	"github.com/five82/tradedeck/internal/config"
	"github.com/five82/tradedeck/internal/logging"
	"github.com/five82/tradedeck/internal/prefs"
	"github.com/five82/tradedeck/internal/query"
	"github.com/five82/tradedeck/internal/ui"
)

// Options configure the tradedeck application.
type Options struct {
	ConfigPath string // empty uses ~/.config/tradedeck/config.toml
	EnvFile    string // empty uses .env in the working directory
	PrefsPath  string // empty uses ~/.config/tradedeck/prefs.toml
}

// Run boots the dashboard and blocks until the user quits or ctx is
// cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath, opts.EnvFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogFile,
		MaxAge: cfg.LogMaxAge,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer log.Close()

	userPrefs := prefs.Load(opts.PrefsPath)
	symbols := cfg.Symbols
	if len(userPrefs.Symbols) > 0 {
		symbols = userPrefs.Symbols
	}

	gateway, err := api.NewClient(cfg.APIBaseURL,
		api.WithTimeout(cfg.Timeout),
		api.WithRateLimit(cfg.RequestsPerSecond, cfg.Burst),
		api.WithLogger(log),
	)
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}

	client := query.New(gateway, query.Options{
		Resources: query.ResourceOptions{
			SurfacePriceFailures: !cfg.MaskPriceFailures,
		},
		CandleInterval: cfg.CandleInterval,
		CandleLimit:    cfg.CandleLimit,
		Log:            log,
	})
	defer client.Close()

	entry := log.WithComponent("app")
	entry.WithFields(logging.Fields{
		"api":     gateway.BaseURL(),
		"user_id": cfg.UserID,
		"symbols": symbols,
	}).Info("tradedeck starting")

	err = ui.Run(ui.Options{
		Context:   ctx,
		Client:    client,
		UserID:    cfg.UserID,
		Symbols:   symbols,
		LogPath:   logFilePath(cfg.LogFile),
		ThemeName: userPrefs.Theme,
		PrefsPath: opts.PrefsPath,
		Log:       log,
	})
	if err != nil {
		entry.WithError(err).Error("ui exited with error")
		return err
	}
	entry.Info("tradedeck stopped")
	return nil
}

// logFilePath returns the file the log view should tail, or "" when logs go
// to a terminal stream or nowhere.
func logFilePath(output string) string {
	switch output {
	case "", "stdout", "stderr":
		return ""
	}
	return output
}
