package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-zakuhead/internal/config"
	"github.com/teslashibe/go-zakuhead/internal/log"
)

// Version is the application version.
const Version = "0.1.0"

var (
	// cfg is the loaded configuration shared by subcommands
	cfg *config.Config

	configPath string
	hostFlag   string
	levelFlag  string
)

var rootCmd = &cobra.Command{
	Use:           "zakuhead",
	Short:         "Face-tracking pan/LED turret controller",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		// Flags beat file and environment
		if hostFlag != "" {
			cfg.Device.Host = hostFlag
		}
		if levelFlag != "" {
			cfg.Log.Level = levelFlag
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		log.InitWithOptions(cfg.Log.LogOptions())
		return nil
	},
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: ./"+config.DefaultPath+" if present)")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "turret address (overrides "+config.EnvHost+")")
	rootCmd.PersistentFlags().StringVar(&levelFlag, "log-level", "", "log level: debug, info, warn, error")
}
