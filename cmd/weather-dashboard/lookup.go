package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

func lookupCmd() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "lookup <city>",
		Short: "Print the weather report for a city as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			agg, err := app.aggregator()
			if err != nil {
				return err
			}

			var history weather.HistoryStore
			if save {
				history = app.history
			}
			service := weather.NewService(agg, history, app.logger, app.metrics)

			report, err := service.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "record the city in search history")
	return cmd
}
