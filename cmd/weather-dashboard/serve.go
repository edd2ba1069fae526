package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-dashboard/internal/api/http"
	"github.com/i474232898/weather-dashboard/internal/scheduler"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	app, err := newApplication(ctx)
	if err != nil {
		return err
	}
	defer app.Close()
	log := app.logger

	agg, err := app.aggregator()
	if err != nil {
		return err
	}
	service := weather.NewService(agg, app.history, log, app.metrics)

	// Scheduler that prunes old history entries.
	sched := scheduler.New(app.history, app.cfg.HistoryMaxAge, app.cfg.HistoryPruneInterval, log, app.metrics)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	server := httpapi.NewApp(httpapi.Options{
		Service:   service,
		Logger:    log,
		Metrics:   app.metrics,
		Gatherer:  app.registry,
		StaticDir: app.cfg.StaticDir,
	})

	errChan := make(chan error, 1)
	go func() {
		log.Info("starting weather dashboard",
			zap.String("port", app.cfg.Port),
			zap.String("history_driver", app.cfg.HistoryDriver),
			zap.String("strategy", app.cfg.ResolutionStrategy))
		errChan <- server.Listen(":" + app.cfg.Port)
	}()

	select {
	case err := <-errChan:
		log.Error("server stopped", zap.Error(err))
		return err
	case <-ctx.Done():
		log.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
		return err
	}
	log.Info("server shutdown complete")
	return nil
}
