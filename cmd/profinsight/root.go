package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ProfInsight/internal/app"
	"ProfInsight/internal/config"
	"ProfInsight/internal/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "profinsight",
		Short:        "Aggregate what is known about a professor",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newLookupCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the professor API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := config.Load()
			logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

			application, err := app.New(ctx, cfg, logger)
			if err != nil {
				logger.Error("application init failed", "error", err)
				return err
			}
			defer application.Close()

			if err := application.Run(ctx); err != nil {
				logger.Error("application stopped", "error", err)
				return err
			}
			return nil
		},
	}
}

func newLookupCmd() *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "lookup <name>",
		Short: "Assemble one professor view and print it as JSON",
		Long: `Assemble one professor view and print it as JSON.

Examples:
  profinsight lookup jane-smith
  profinsight lookup --pretty "Larry Herman"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg := config.Load()
			logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

			application, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			view, err := application.Lookup(ctx, args[0])
			if err != nil {
				return fmt.Errorf("lookup %q: %w", args[0], err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(view)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	return cmd
}
