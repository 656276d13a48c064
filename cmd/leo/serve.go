package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/comigor/leo-go/internal/auth"
	"github.com/comigor/leo-go/internal/clock"
	"github.com/comigor/leo-go/internal/config"
	"github.com/comigor/leo-go/internal/history"
	"github.com/comigor/leo-go/internal/logger"
	"github.com/comigor/leo-go/internal/reply"
	"github.com/comigor/leo-go/internal/session"
	"github.com/comigor/leo-go/internal/telemetry"
	"github.com/comigor/leo-go/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chat server",
	Long: `Start the chat server.

Send SIGUSR1 to toggle maintenance mode, where every reply is the fixed
"down for maintenance" message.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logFile := logger.Configure(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})
		defer logFile.Close()

		tel, err := telemetry.Init(ctx, cfg.Telemetry)
		if err != nil {
			return err
		}
		defer tel.Shutdown(context.Background())

		store, closeStore, err := openStore(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer closeStore.Close()

		switcher := reply.NewSwitch(liveReplies(cfg), cfg.Reply.Degraded, cfg.Reply.FallbackOnError)
		replies, err := reply.Instrument(switcher, tel.Tracer, tel.Meter)
		if err != nil {
			return fmt.Errorf("instrument replies: %w", err)
		}

		sessions := session.NewRegistry(session.Deps{
			Store:   history.Instrument(store, tel.Tracer),
			Replies: replies,
			Clock:   clock.System{},
		})
		defer sessions.CloseAll()

		if len(cfg.Auth.Users) == 0 {
			logger.L.Warn("no users configured; nobody can sign in")
		}
		srv := &http.Server{
			Addr: cfg.Server.Addr(),
			Handler: web.NewRouter(web.Options{
				Gate:     auth.New(cfg.Auth.Users, cfg.Auth.SessionTTL),
				Sessions: sessions,
				Auth:     cfg.Auth,
				Tracer:   tel.Tracer,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go toggleDegradedOnSignal(ctx, switcher)

		errCh := make(chan error, 1)
		go func() {
			logger.L.Info("starting server", "address", srv.Addr, "degraded", switcher.Degraded())
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server: %w", err)
			}
		case <-ctx.Done():
		}

		logger.L.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Handlers blocked on a reply only return once their session is closed.
		sessions.CloseAll()
		return srv.Shutdown(shutdownCtx)
	},
}

func toggleDegradedOnSignal(ctx context.Context, s *reply.Switch) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGUSR1)
	defer signal.Stop(sig)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			s.SetDegraded(!s.Degraded())
		}
	}
}
