package app

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/stepflow/logger"
	"github.com/kbukum/stepflow/server"
)

var _ server.Service = (*App)(nil)

// Serve runs the HTTP API until ctx is canceled or SIGINT/SIGTERM arrives,
// then shuts the server down within the graceful timeout. The startup
// summary is written to out.
func (a *App) Serve(ctx context.Context, out io.Writer) error {
	start := time.Now()
	srv := server.New(a.Cfg.Server, a, a.Logger)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	for _, r := range srv.Routes() {
		a.summary.TrackRoute(r)
	}
	a.summary.Add("server", "listening", srv.Addr())
	a.summary.SetStartupDuration(time.Since(start))
	a.summary.Write(out)

	a.WaitForSignal(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()
	return srv.Stop(stopCtx)
}

// WaitForSignal blocks until an OS interrupt/term signal or context cancellation.
func (a *App) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("Received shutdown signal", logger.Fields("signal", sig.String()))
		return sig
	case <-ctx.Done():
		a.Logger.Info("Context canceled, shutting down")
		return nil
	}
}
