package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cwrk-planet/chat-service/config"
	"github.com/cwrk-planet/chat-service/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "chat-service",
	Short:         "Multi-room chat with WebRTC call signaling",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// admin ходит в чужой сервер по gRPC, локальный конфиг ему не нужен
		if skipConfig(cmd) {
			return nil
		}
		if cfgFile != "" {
			if err := os.Setenv("CONFIG_PATH", cfgFile); err != nil {
				return err
			}
		}
		c, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		logger.Init(logger.Config{
			Env:       logger.ParseEnv(cfg.Logging.Env),
			Service:   cfg.Logging.Service,
			Version:   cfg.Logging.Version,
			Backend:   logger.Backend(cfg.Logging.Backend),
			Level:     logger.ParseLevel(cfg.Logging.Level),
			AddSource: cfg.Logging.AddSource,
			Debug:     cfg.Logging.Debug,
			Attrs: []slog.Attr{
				slog.String("storage", cfg.Storage.Driver),
				slog.String("http_addr", cfg.HTTP.Addr),
				slog.String("grpc_addr", cfg.GRPC.Addr),
			},
		})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $CONFIG_PATH or ./config/config.yaml)")
}

func skipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["config"] == "skip" {
			return true
		}
	}
	return false
}
