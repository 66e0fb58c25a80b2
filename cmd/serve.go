package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ferrova/tidalsnap/internal/models"
	"github.com/ferrova/tidalsnap/internal/server"
	"github.com/ferrova/tidalsnap/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve runs the web service and, when a sync time is configured, the daily
// scheduler. Blocks until SIGINT/SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(); err != nil {
		return err
	}
	if err := r.requireStore(); err != nil {
		return err
	}

	host := r.config.Server.Host
	if cmd.IsSet("host") {
		host = cmd.String("host")
	}
	port := r.config.Server.Port
	if cmd.IsSet("port") {
		port = int(cmd.Int("port"))
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sched *tasks.Scheduler
	if r.config.Sync.Time != "" {
		var err error
		sched, err = tasks.NewScheduler(r.config.Sync.Time, func(ctx context.Context, trigger string) {
			r.engine.Run(ctx, models.TriggerScheduled, nil)
		}, r.logger)
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		sched.Start(ctx)
		defer sched.Stop()
	} else {
		r.logger.Info("no sync time configured, scheduler disabled")
	}

	app := server.NewApp(r.store, r.session, r.engine, sched, r.logger)

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("web service listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
