package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeusync/planar/internal/core/observability/log"
	"github.com/zeusync/planar/internal/injector"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := injector.InitializeApp(ctx, injector.ConfigPath(*configPath))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing server:", err)
		os.Exit(1)
	}

	// Start the server
	if err = app.Server.Start(ctx); err != nil {
		app.Logger.Error("Error starting server", log.Error(err))
		_ = app.Close(context.Background())
		os.Exit(1)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- app.Server.Wait() }()

	select {
	case <-ctx.Done():
	case err = <-waitErr:
		if err != nil {
			app.Logger.Error("Server failed", log.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = app.Server.Stop(shutdownCtx); err != nil {
		app.Logger.Warn("Error stopping server", log.Error(err))
	}
	if err = app.Close(shutdownCtx); err != nil {
		app.Logger.Warn("Error flushing poses", log.Error(err))
	}
}
