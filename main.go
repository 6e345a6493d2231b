package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/zsprackett/now-playing/internal/app"
	"github.com/zsprackett/now-playing/internal/applog"
	"github.com/zsprackett/now-playing/internal/config"
	"github.com/zsprackett/now-playing/internal/notify"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [%s <request.json>]\n", config.AppName, notify.SendToastCommand)
}

func main() {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load settings: %v\n", err)
	}

	logger, logCloser, err := applog.Init(applog.InitConfig{
		LogDir:   cfg.LogDir,
		LogLevel: cfg.LogLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not init log file: %v\n", err)
		logger = slog.Default() // falls back to default (stderr)
	} else {
		defer logCloser.Close()
	}

	// send-toast subcommand: run by the notifier once per toast.
	if len(os.Args) == 3 && os.Args[1] == notify.SendToastCommand {
		if err := app.SendToast(context.Background(), os.Args[2], logger); err != nil {
			logger.Error("send-toast failed", "err", err)
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if len(os.Args) != 1 {
		usage()
		os.Exit(2)
	}

	if err := app.Run(context.Background(), cfg, logger); err != nil {
		logger.Error("startup failed", "err", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
