package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"cvbuilder/internal/api"
	"cvbuilder/internal/app"
	"cvbuilder/internal/config"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()
	logger := app.NewLogger(cfg.Log, os.Stdout)
	gin.SetMode(gin.ReleaseMode)

	if err := run(cfg, logger); err != nil {
		logger.Error("api server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger, app.Options{Browser: true})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("close backends failed", slog.Any("error", err))
		}
	}()

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, api.Deps{
		Workspace:      a.Workspace,
		Assets:         a.Assets,
		Hub:            a.Hub,
		Logger:         logger,
		AllowedOrigins: cfg.Server.Origins(),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening", slog.String("addr", cfg.Server.Addr), slog.String("store", cfg.Store.Driver), slog.String("browser", cfg.Browser.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down api server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

