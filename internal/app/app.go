// Package app wires the configured backends into a ready workspace. It is
// shared by the HTTP server and the command line tool.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"cvbuilder/internal/assets"
	"cvbuilder/internal/browser"
	"cvbuilder/internal/capture"
	"cvbuilder/internal/config"
	"cvbuilder/internal/metrics"
	"cvbuilder/internal/notify"
	"cvbuilder/internal/pdf"
	"cvbuilder/internal/storage"
	"cvbuilder/internal/store"
	"cvbuilder/internal/workspace"
)

// NewLogger 创建文本格式的 slog.Logger 并设为默认。w 为空时写到标准输出。
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return logger
}

// Options 控制哪些可选能力需要启动。
type Options struct {
	// Browser 为 false 时不启动无头浏览器，导出返回 capability unavailable。
	Browser bool
	// Hub 覆盖配置中的通知方式。
	Hub notify.Hub
}

type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     *store.Adapter
	Storage   *storage.Client
	Assets    *assets.Processor
	Hub       notify.Hub
	Workspace *workspace.Workspace

	closers []func() error
}

// Build opens every configured backend. Optional backends that fail to start
// are logged and left out; the workspace keeps working without them.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	a.Store = store.Open(ctx, cfg, logger, store.WithFailureHook(metrics.PersistenceFailure))
	a.closers = append(a.closers, a.Store.Close)

	if cfg.MinIO.Enabled() {
		client, err := storage.NewClient(ctx, cfg.MinIO)
		if err != nil {
			logger.Warn("App: object storage unavailable, assets are inlined", slog.Any("error", err))
		} else {
			a.Storage = client
		}
	}

	assetOpts := assets.Options{
		MaxWidth: cfg.Assets.MaxWidth,
		MaxBytes: cfg.Assets.MaxBytes,
		Logger:   logger,
	}
	if a.Storage != nil {
		assetOpts.Store = a.Storage
	}
	if cfg.Clamd.Addr != "" {
		assetOpts.Scanner = assets.NewClamdScanner(cfg.Clamd.Addr)
	}
	a.Assets = assets.NewProcessor(assetOpts)

	hub, err := a.openHub(ctx, opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Hub = hub

	wsOpts := []workspace.Option{
		workspace.WithLogger(logger),
		workspace.WithInliner(a.Assets),
		workspace.WithPublisher(a.Hub),
		workspace.WithDisplayScale(cfg.Browser.PreviewScale),
	}
	if a.Storage != nil && cfg.MinIO.ArchiveExports {
		wsOpts = append(wsOpts, workspace.WithArchive(a.Storage))
	}

	if opts.Browser {
		session, err := browser.Open(ctx, browser.Options{
			Driver:  cfg.Browser.Driver,
			Bin:     cfg.Browser.Bin,
			Timeout: cfg.Browser.Timeout,
			Logger:  logger,
		})
		if err != nil {
			logger.Warn("App: headless browser unavailable, export disabled", slog.Any("error", err))
		} else {
			a.closers = append(a.closers, session.Close)
			exporter := capture.NewExporter(session, session, pdf.NewAssembler(),
				capture.WithLogger(logger),
				capture.WithNotifier(notify.ExportNotifier{Hub: a.Hub}),
				capture.WithSettleDelay(cfg.Browser.SettleDelay),
				capture.WithSupersample(cfg.Export.Supersample),
				capture.WithJPEGQuality(cfg.Export.JPEGQuality),
				capture.WithObserver(metrics.ObserveExport),
			)
			wsOpts = append(wsOpts, workspace.WithPreviewer(session), workspace.WithExporter(exporter))
		}
	}

	a.Workspace = workspace.New(ctx, a.Store, wsOpts...)
	return a, nil
}

func (a *App) openHub(ctx context.Context, opts Options) (notify.Hub, error) {
	if opts.Hub != nil {
		return opts.Hub, nil
	}
	if a.Config.Notify.Driver != "redis" {
		return notify.NewLocal(a.Logger), nil
	}
	client := redis.NewClient(&redis.Options{Addr: a.Config.Redis.Addr(), DB: a.Config.Redis.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis for notifications: %w", err)
	}
	a.closers = append(a.closers, client.Close)
	return notify.NewRedis(client, a.Config.Notify.Channel, a.Logger), nil
}

// Close releases backends in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
