package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"car-service/pkg/config"
	"car-service/pkg/store"
	"car-service/pkg/tracker"
	"car-service/pkg/version"
)

var (
	rootCtx    context.Context
	rootCancel context.CancelFunc

	flagConfig     string
	flagStore      string
	flagSQLitePath string
	flagConsulAddr string
	flagActor      string
)

var rootCmd = &cobra.Command{
	Use:          "carctl",
	Short:        "Operate the car-service record store",
	Long:         `carctl inspects and updates service progress directly in the record store the server uses.`,
	Version:      version.Build,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if rootCancel != nil {
			rootCancel()
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

// getContext returns the root context that is cancelled on SIGINT/SIGTERM.
func getContext() context.Context {
	if rootCtx == nil {
		return context.Background()
	}
	return tracker.WithActor(rootCtx, flagActor)
}

// openService resolves the store the same way the server does, except the
// backend defaults to sqlite. Flags win over file and env.
func openService() (*tracker.Service, io.Closer, error) {
	cfg := config.Default()
	cfg.Store = "sqlite"
	path := flagConfig
	if path == "" {
		path = os.Getenv("CARSVC_CONFIG")
	}
	if err := cfg.LoadFile(path); err != nil {
		return nil, nil, err
	}
	if err := cfg.LoadEnv(); err != nil {
		return nil, nil, err
	}
	if flagStore != "" {
		cfg.Store = flagStore
	}
	if flagSQLitePath != "" {
		cfg.SQLitePath = flagSQLitePath
	}
	if flagConsulAddr != "" {
		cfg.ConsulAddr = flagConsulAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if err := checkBackend(cfg.Store); err != nil {
		return nil, nil, err
	}
	st, closer, err := store.Open(cfg.Store, cfg.SQLitePath, cfg.ConsulAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	return tracker.New(st), closer, nil
}

// checkBackend refuses the memory store: every carctl run would start empty.
func checkBackend(name string) error {
	if name == "memory" {
		return fmt.Errorf("store %q does not persist between carctl runs; use sqlite or consul", name)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "TOML config file (optional)")
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", "", "store backend: sqlite|consul (default sqlite)")
	rootCmd.PersistentFlags().StringVar(&flagSQLitePath, "sqlite-path", "", "sqlite database path")
	rootCmd.PersistentFlags().StringVar(&flagConsulAddr, "consul-addr", "", "consul address")
	rootCmd.PersistentFlags().StringVar(&flagActor, "actor", "carctl", "name recorded in the audit log")

	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(imagesCmd)
	rootCmd.AddCommand(notificationsCmd)
}
