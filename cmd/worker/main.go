package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"commissionvault/internal/app/bootstrap"
	"commissionvault/internal/platform/config"
	"commissionvault/internal/platform/logging"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
)

// Worker process entrypoint: runs the background loops against the shared store.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	envFileFlag := flag.String("env-file", "", "load environment from this file before .env")
	storeFlag := flag.String("store", "", "store driver; the worker needs postgres (or set STORE_DRIVER)")
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	flag.Parse()

	if *envFileFlag != "" {
		if err := godotenv.Load(*envFileFlag); err != nil {
			return fmt.Errorf("load env file %s: %w", *envFileFlag, err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flag.CommandLine.Changed("store") {
		cfg.StoreDriver = *storeFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logging.New(os.Stdout, cfg.LogLevel, *verboseFlag)

	app, err := bootstrap.BuildWorker(cfg, log)
	if err != nil {
		return fmt.Errorf("bootstrap worker: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error("worker shutdown close failed", "event", "worker_close_failed", "error", err.Error())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx)
}
