package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vfscore/vfskernel/internal/cache"
	"github.com/vfscore/vfskernel/internal/config"
	"github.com/vfscore/vfskernel/internal/logging"
	"github.com/vfscore/vfskernel/internal/metrics"
	"github.com/vfscore/vfskernel/internal/rpcapi"
)

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the vfskernel RPC server (SPEC_FULL §4.14)",
		RunE: func(_ *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults applied when omitted)")
	return cmd
}

func runServe(configPath string) error {
	cfg := config.NewDefault()
	if configPath != "" {
		if err := cfg.LoadFromFile(configPath); err != nil {
			return err
		}
	}
	cfg.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logging.New(logging.Config{Level: cfg.Global.LogLevel, File: cfg.Global.LogFile, MaxSizeMB: cfg.Global.LogMaxSize})
	collector := metrics.NewCollector(metrics.Config{Enabled: cfg.Monitor.MetricsEnabled})

	// serve binds the same --backend/--bolt-path flags as every other
	// subcommand, so "vfsctl serve --backend=bolt" persists across restarts.
	var cacheCfg *cache.Config
	if cfg.Cache.Enabled {
		cacheCfg = &cache.Config{MaxEntries: cfg.Cache.MaxEntries, TTL: cfg.Cache.TTL}
	}
	k, closer, err := openKernel(cacheCfg)
	if err != nil {
		return err
	}
	defer closer()

	srv := rpcapi.New(k, rpcapi.Config{
		Address:       fmt.Sprintf("localhost:%d", cfg.Global.APIPort),
		ReadTimeout:   10 * time.Second,
		WriteTimeout:  10 * time.Second,
		IdleTimeout:   60 * time.Second,
		EnableCORS:    true,
		EnableMetrics: cfg.Monitor.MetricsEnabled,
	}, collector, log)

	srv.StartBackground()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
