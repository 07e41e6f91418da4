package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"infinixai/internal/infrastructure"
	httpapi "infinixai/internal/interfaces/http"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the messaging channels",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (HTTP_ADDR)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := infrastructure.NewPostgresClient(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := pg.Migrate(); err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, pg.DB)
	if err != nil {
		return err
	}
	defer a.shutdown()

	if err := a.auth.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		logrus.WithError(err).Warn("[AUTH] Failed to ensure admin user")
	}
	a.restoreChannels(ctx)

	if !logrus.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	httpapi.SetupRoutes(r, a.routes(), httpapi.NewMiddleware(cfg.Auth.JWTSecret, cfg.HTTP.CORSOrigins))

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", cfg.HTTP.Addr).Info("[HTTP] Listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
