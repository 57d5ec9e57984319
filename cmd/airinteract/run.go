package main

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/airinteract/internal/app"
	"github.com/ayusman/airinteract/internal/gesture"
	"github.com/ayusman/airinteract/internal/observability"
	"github.com/ayusman/airinteract/internal/server"
	"github.com/ayusman/airinteract/internal/tray"
)

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start gesture control",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
}

func run(parent context.Context, opts *options) (err error) {
	cfg, err := opts.load()
	if err != nil {
		return err
	}

	log, err := observability.New(cfg.Logger, nil)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a, err := app.New(cfg, log, app.Deps{})
	if err != nil {
		return err
	}
	// Held buttons and keys are released on every exit path.
	defer func() {
		if cerr := a.Close(); cerr != nil {
			log.Error("release on exit failed", zap.Error(cerr))
			err = multierr.Append(err, cerr)
		}
	}()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	session := a.Session()

	if cfg.Server.Enabled {
		hub := server.NewHub(log)
		session.Subscribe(hub.Publish)
		srv := server.New(server.Config{Status: session, Hub: hub, StaticDir: cfg.Server.StaticDir, Log: log})
		g.Go(func() error { return srv.ListenAndServe(ctx, cfg.Server.Addr) })
	}

	g.Go(func() error { return a.Run(ctx) })

	if cfg.Tray.Enabled {
		t := tray.New(cfg.Mode)
		t.OnToggle(session.SetEnabled)
		t.OnQuit(stop)
		if cfg.Server.Enabled {
			t.OnSettings(func() { openURL(log, "http://"+cfg.Server.Addr+"/") })
		}
		session.Subscribe(func(res gesture.Result) {
			t.Observe(res)
			t.SetEnabled(session.Enabled())
		})
		g.Go(func() error {
			<-ctx.Done()
			t.Stop()
			return nil
		})

		// The tray owns the main goroutine until it is stopped.
		t.Run()
		stop()
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Info("shutting down")
	return err
}

func openURL(log *zap.Logger, url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn("open browser failed", zap.String("url", url), zap.Error(err))
		return
	}
	go func() { _ = cmd.Wait() }()
}
