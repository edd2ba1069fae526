package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weather-dashboard",
		Short: "Weather dashboard backend",
		Long: `Serves current weather plus a five day outlook for a city from OpenWeatherMap,
and keeps a history of searched cities.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(serveCmd(), lookupCmd(), historyCmd())
	return cmd
}

// Execute runs the CLI until it finishes or the process is signalled.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return rootCmd().ExecuteContext(ctx)
}
