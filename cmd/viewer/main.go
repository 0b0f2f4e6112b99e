package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/zeusync/planar/internal/host/terminal"
	"github.com/zeusync/planar/internal/injector"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, *configPath)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run returns only after pending poses have been flushed, so main can exit
// with a status code without losing writes.
func run(ctx context.Context, configPath string) (err error) {
	core, err := injector.InitializeCore(ctx, injector.ConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := core.Close(flushCtx); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to flush: %w", cerr))
		}
	}()
	if out := core.Config.Log.Output; out == "" || out == "stderr" || out == "stdout" {
		fmt.Fprintf(os.Stderr, "hint: set log.output to a file, e.g. %s, to keep logs off the screen\n",
			filepath.Join(os.TempDir(), "planar-viewer.log"))
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	if err = screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	vc := core.Config.Viewer
	viewer := terminal.New(screen, core.Scene, terminal.Config{
		CellsPerUnit: vc.CellsPerUnit,
		MoveStep:     vc.MoveStep,
		RotateStep:   vc.RotateStep,
		TickInterval: vc.TickInterval,
		DragRelease:  vc.DragRelease,
	}, core.Logger)
	defer func() { _ = viewer.Close() }()

	err = viewer.Run(ctx)
	screen.Fini()
	if err != nil {
		return fmt.Errorf("viewer stopped: %w", err)
	}
	return nil
}
