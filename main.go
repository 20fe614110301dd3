// rootserve serves the files beneath a single root directory over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"rootserve/config"
	"rootserve/server"
)

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.DateTime,
	})
	logrus.SetOutput(os.Stdout)
	logrus.AddHook(server.RequestIDHook{})
}

func main() {
	cmd := &cobra.Command{
		Use:          "rootserve",
		Short:        "Serve files beneath a single root directory",
		SilenceUsage: true,
	}
	var configPath string
	cmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("ROOTSERVE_CONFIG"), "path to a config.yaml file (env: ROOTSERVE_CONFIG)")
	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Runs the file server",
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, c.Flags())
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			logrus.SetLevel(cfg.Level)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.Run(ctx, cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validates the configuration and prints it",
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, c.Flags())
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			root := "(none)"
			if cfg.Root != nil {
				root = *cfg.Root
			}
			out := c.OutOrStdout()
			fmt.Fprintf(out, "root:        %s\n", root)
			fmt.Fprintf(out, "port:        %d\n", cfg.Port)
			fmt.Fprintf(out, "index:       %s\n", cfg.Index)
			fmt.Fprintf(out, "bandwidth:   %.0f B/s\n", cfg.BandwidthLimit)
			fmt.Fprintf(out, "stats dir:   %s\n", cfg.StatsDir)
			fmt.Fprintf(out, "health path: %s\n", cfg.HealthPath)
			fmt.Fprintf(out, "stats path:  %s\n", cfg.StatsPath)
			fmt.Fprintf(out, "log level:   %s\n", cfg.Level)
			return nil
		},
	})

	if err := cmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
