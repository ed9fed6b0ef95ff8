package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/tradedeck/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "config file path (optional, defaults to ~/.config/tradedeck/config.toml)")
	envFile := flag.String("env", "", "dotenv file with TRADEDECK_* overrides (optional, defaults to ./.env)")
	prefsPath := flag.String("prefs", "", "preferences file path (optional, defaults to ~/.config/tradedeck/prefs.toml)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		EnvFile:    *envFile,
		PrefsPath:  *prefsPath,
	}
	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "tradedeck: %v\n", err)
		return 1
	}
	return 0
}
