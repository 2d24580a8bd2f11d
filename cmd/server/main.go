package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/matthewbaird/formlayout/internal/config"
	"github.com/matthewbaird/formlayout/internal/server"
	"github.com/matthewbaird/formlayout/internal/store"
)

func main() {
	configPath := flag.String("config", "formlayout.yaml", "path to the YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	st, db, err := store.OpenSQLite(ctx, cfg.Database.DSN, log)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("database migrated successfully")

	err = server.Run(ctx, server.Config{
		Port:            cfg.Server.Port,
		Store:           st,
		Log:             log,
		MaxAge:          cfg.MaxAge(),
		IdleTimeout:     cfg.IdleTimeout(),
		CleanupInterval: cfg.CleanupInterval(),
		ShutdownTimeout: cfg.ShutdownTimeout(),
		EventBuffer:     cfg.Events.Buffer,
	})
	if err != nil {
		log.Error("server error", zap.Error(err))
		return err
	}
	return nil
}
