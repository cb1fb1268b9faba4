package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

var (
	// Version of the build. This is injected at build-time.
	buildString = "unknown"
	exit        = func() { os.Exit(1) }
)

func main() {
	// Initialise and load the config.
	ko, err := initConfig("config.sample.toml", "FLEET_DIGEST_")
	if err != nil {
		panic(err.Error())
	}

	lo := initLogger(ko.MustString("app.log_level"))
	lo.Info("booting fleet-digest version", "version", buildString)

	targets, err := initTargets(ko)
	if err != nil {
		lo.Error("failed to load targets", "error", err)
		exit()
	}

	// Init the app.
	app := &App{
		lo:        lo,
		opts:      initOpts(ko),
		cwMgr:     initCloudWatchManager(ko, lo),
		supaMgr:   initSupabaseManager(ko, lo),
		slackMgr:  initSlackManager(ko, lo),
		targets:   targets,
		instances: initSupabaseInstances(ko, lo),
	}

	// Create a new context which is cancelled when `SIGINT`/`SIGTERM` is received.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// Start the worker in background.
	var wg = &sync.WaitGroup{}
	wg.Add(1)
	go app.worker(ctx, wg)

	// Listen on the close channel indefinitely until a
	// `SIGINT` or `SIGTERM` is received.
	<-ctx.Done()
	// Cancel the context to gracefully shutdown and perform
	// any cleanup tasks.
	cancel()
	// Wait for all workers to finish.
	wg.Wait()

	app.lo.Info("shutting down")
}

// worker runs one digest immediately and then one per sync interval.
// Each invocation is self-contained; a failed one is reported in its
// own result and the next tick starts fresh.
func (app *App) worker(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(app.opts.SyncInterval)
	defer ticker.Stop()

	app.lo.Info("starting worker", "interval", app.opts.SyncInterval)
	app.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			app.RunOnce(ctx)
		case <-ctx.Done():
			app.lo.Info("quitting worker")
			return
		}
	}
}
