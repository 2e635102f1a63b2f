// Package main is the entry point for the sugarnexus daemon.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amir-mohammad-HP/sugarnexus/internal/app"
	"github.com/amir-mohammad-HP/sugarnexus/internal/config"
	"github.com/amir-mohammad-HP/sugarnexus/internal/types"
	"github.com/amir-mohammad-HP/sugarnexus/pkg/logger"
	"github.com/spf13/cobra"
)

// Set by ldflags.
var (
	version = "1.0.0"
	commit  = "none"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sugarnexus",
		Short:         "Daily sugar market data collector and API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "path to sugarnexus.yaml (default: search path)")
	root.AddCommand(serveCmd(), etlCmd(), migrateCmd(), configCmd(), versionCmd())
	return root
}

// loadConfig reads the configuration and builds the logger it describes.
func loadConfig(cmd *cobra.Command) (*types.Config, *logger.ZapLogger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = cfg.LogLevel
	}
	return cfg, logger.NewWithConfig(&cfg.Logger), nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			a := app.New(cfg, log, version)
			if err := a.Run(context.Background()); err != nil {
				log.Error("Application failed %s", err)
				_ = log.Close()
				return err
			}
			return nil
		},
	}
}

func etlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "etl",
		Short: "Market data pipeline commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the ETL job once and print its result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer log.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, runErr := app.New(cfg, log, version).RunETLOnce(ctx)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if res.JobID != "" {
				if err := enc.Encode(res); err != nil {
					return err
				}
			}
			return runErr
		},
	})
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer log.Close()

			applied, err := app.New(cfg, log, version).Migrate(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			path, err := config.CreateDefaultConfig(dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().String("dir", "", "target directory (default: system config directory)")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			loader := config.NewLoader()
			cfg, err := loader.Load(path)
			if err != nil {
				return err
			}
			cfg.Database.Password = "xxxxx"

			out := cmd.OutOrStdout()
			if used := loader.ConfigFileUsed(); used != "" {
				fmt.Fprintf(out, "# %s\n", used)
			} else {
				fmt.Fprintln(out, "# defaults and environment only")
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sugarnexus %s (commit: %s)\n", version, commit)
		},
	}
}
