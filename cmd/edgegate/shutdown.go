package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vyrodovalexey/edgegate/internal/observability"
)

// shutdownTimeout bounds the graceful shutdown.
const shutdownTimeout = 30 * time.Second

// runApplication starts the listeners and blocks until a shutdown signal.
func runApplication(app *application, logger observability.Logger) {
	if err := app.listeners.Start(context.Background()); err != nil {
		fatalWithSync(logger, "failed to start listeners", observability.Error(err))
		return
	}

	outputs := app.gatekeeper.Outputs()
	logger.Info("edgegate started",
		observability.String("origin_endpoint", outputs.OriginEndpoint),
		observability.String("edge_url", outputs.EdgeURL),
		observability.Any("functions", outputs.Functions),
	)

	waitForShutdown(app, logger)
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown.
func waitForShutdown(app *application, logger observability.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", observability.String("signal", sig.String()))

	shutdown(app, logger)
}

// shutdown marks the process as draining, stops the listeners and flushes
// traces.
func shutdown(app *application, logger observability.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	app.healthChecker.SetDraining(true)

	if err := app.listeners.Stop(ctx); err != nil {
		logger.Error("failed to stop listeners gracefully", observability.Error(err))
	}

	if err := app.tracer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	logger.Info("edgegate stopped")
}
