package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"sync/atomic"
	"time"

	"cvbuilder/internal/errcode"
)

const (
	DefaultSettleDelay = 100 * time.Millisecond
	DefaultSupersample = 2.0
	DefaultJPEGQuality = 98
)

// Exporter runs the paginated capture pipeline. At most one export runs at a
// time; a second call while one is in flight returns ErrBusy without capturing.
type Exporter struct {
	surface   Surface
	raster    Rasterizer
	assembler Assembler
	notifier  Notifier
	logger    *slog.Logger

	settle      time.Duration
	supersample float64
	quality     int
	sleep       func(ctx context.Context, d time.Duration) error
	observe     func(Outcome)

	inFlight atomic.Bool
}

// Outcome summarises one finished attempt for metrics.
type Outcome struct {
	Result   string
	Pages    int
	Duration time.Duration
}

type Option func(*Exporter)

func WithNotifier(n Notifier) Option { return func(e *Exporter) { e.notifier = n } }

func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithSettleDelay(d time.Duration) Option {
	return func(e *Exporter) {
		if d >= 0 {
			e.settle = d
		}
	}
}

func WithSupersample(f float64) Option {
	return func(e *Exporter) {
		if f > 0 {
			e.supersample = f
		}
	}
}

func WithJPEGQuality(q int) Option {
	return func(e *Exporter) {
		if q >= 1 && q <= 100 {
			e.quality = q
		}
	}
}

// WithSleep replaces the settle wait; tests use it to avoid real delays.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Exporter) {
		if fn != nil {
			e.sleep = fn
		}
	}
}

// WithObserver is called once per attempt that was not rejected as busy.
func WithObserver(fn func(Outcome)) Option { return func(e *Exporter) { e.observe = fn } }

func NewExporter(surface Surface, raster Rasterizer, assembler Assembler, opts ...Option) *Exporter {
	e := &Exporter{
		surface:     surface,
		raster:      raster,
		assembler:   assembler,
		logger:      slog.Default(),
		settle:      DefaultSettleDelay,
		supersample: DefaultSupersample,
		quality:     DefaultJPEGQuality,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InFlight reports whether an export is running.
func (e *Exporter) InFlight() bool {
	return e.inFlight.Load()
}

// Export captures every page in req.Pages in order and returns the assembled
// PDF. Whatever happens, the surface's display scale is back to its original
// value when Export returns.
func (e *Exporter) Export(ctx context.Context, req Request) (*Result, error) {
	if !e.inFlight.CompareAndSwap(false, true) {
		e.logger.Info("Export: already in flight, ignoring request", slog.String("correlation_id", req.CorrelationID))
		return nil, ErrBusy
	}
	defer e.inFlight.Store(false)

	logger := e.logger.With(slog.String("correlation_id", req.CorrelationID))
	start := time.Now()

	res, err := e.run(ctx, logger, req)

	outcome := Outcome{Result: "success", Duration: time.Since(start)}
	if err != nil {
		var ce *Error
		if errors.As(err, &ce) {
			outcome.Result = string(ce.Kind)
		} else {
			outcome.Result = string(KindCapture)
		}
		logger.Error("Export: failed", slog.Any("error", err))
		e.notify(Notice{Level: LevelError, Code: codeOf(err), Message: noticeMessage(err), CorrelationID: req.CorrelationID})
	} else {
		outcome.Pages = res.Pages
		logger.Info("Export: finished", slog.String("filename", res.Filename), slog.Int("pages", res.Pages), slog.Duration("took", outcome.Duration))
		e.notify(Notice{Level: LevelInfo, Code: errcode.OK, Message: "PDF ready", CorrelationID: req.CorrelationID, Filename: res.Filename})
	}
	if e.observe != nil {
		e.observe(outcome)
	}
	return res, err
}

func (e *Exporter) run(ctx context.Context, logger *slog.Logger, req Request) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Export: panic during capture", slog.Any("panic", r))
			res, err = nil, captureFailed("capture", -1, fmt.Errorf("panic: %v", r))
		}
	}()
	// 外部能力（浏览器、PDF 组装）不可用时，在改动缩放之前就直接放弃。
	if err := e.checkCapabilities(ctx); err != nil {
		return nil, err
	}
	if len(req.Pages) == 0 {
		return nil, captureFailed("collect pages", -1, errors.New("no pages to capture"))
	}

	original, err := e.surface.DisplayScale(ctx)
	if err != nil {
		return nil, captureFailed("read display scale", -1, err)
	}

	// 任何退出路径（包括 panic）都要还原缩放。
	defer func() {
		if restoreErr := e.surface.SetDisplayScale(context.WithoutCancel(ctx), original); restoreErr != nil {
			logger.Warn("Export: restore display scale failed", slog.Float64("scale", original), slog.Any("error", restoreErr))
		}
	}()

	logger.Info("Export: resetting display scale", slog.Float64("from", original))
	if err := e.surface.SetDisplayScale(ctx, 1); err != nil {
		return nil, captureFailed("reset display scale", -1, err)
	}
	if err := e.sleep(ctx, e.settle); err != nil {
		return nil, captureFailed("settle", -1, err)
	}
	if waiter, ok := e.surface.(LayoutWaiter); ok {
		if err := waiter.WaitLayout(ctx); err != nil {
			return nil, captureFailed("wait layout", -1, err)
		}
	}

	var doc Document
	rect := FullPage(req.Paper)
	for i, page := range req.Pages {
		logger.Info("Export: capturing page", slog.Int("page", i+1), slog.String("element", page.ElementID))

		img, err := e.raster.Rasterize(ctx, page, e.supersample)
		if err != nil {
			return nil, captureFailed("rasterize", i, err)
		}
		data, err := encodeJPEG(img, e.quality)
		if err != nil {
			return nil, captureFailed("encode", i, err)
		}

		if i == 0 {
			doc, err = e.assembler.NewDocument(req.Paper)
			if err == nil && doc == nil {
				err = errors.New("assembler returned no document")
			}
			if err != nil {
				return nil, captureFailed("create document", i, err)
			}
		} else if err := doc.AddPage(); err != nil {
			return nil, captureFailed("add page", i, err)
		}
		if err := doc.DrawImage(data, rect); err != nil {
			return nil, captureFailed("place image", i, err)
		}
	}

	out, err := doc.Output()
	if err != nil {
		return nil, captureFailed("write document", -1, err)
	}
	return &Result{
		Filename: Filename(req.FullName),
		Data:     out,
		Pages:    len(req.Pages),
		Paper:    req.Paper,
	}, nil
}

func (e *Exporter) checkCapabilities(ctx context.Context) error {
	if e.surface == nil {
		return unavailable("check surface", errors.New("no preview surface"))
	}
	if e.raster == nil {
		return unavailable("check rasterizer", errors.New("no rasterizer"))
	}
	if e.assembler == nil {
		return unavailable("check assembler", errors.New("no document assembler"))
	}
	for name, c := range map[string]any{"surface": e.surface, "rasterizer": e.raster, "assembler": e.assembler} {
		checker, ok := c.(Checker)
		if !ok {
			continue
		}
		if err := checker.Ready(ctx); err != nil {
			return unavailable("check "+name, err)
		}
	}
	return nil
}

func (e *Exporter) notify(n Notice) {
	if e.notifier != nil {
		e.notifier.Notify(n)
	}
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	if img == nil {
		return nil, errors.New("rasterizer returned no image")
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func codeOf(err error) int {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return errcode.SystemError
}

func noticeMessage(err error) string {
	var ce *Error
	if errors.As(err, &ce) && ce.Kind == KindUnavailable {
		return "PDF export is not available right now. Please try again in a moment."
	}
	return "Sorry, there was an error generating the PDF."
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
