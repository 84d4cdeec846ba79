package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"cvbuilder/internal/render"
)

// ChromedpSession drives the preview tab through chromedp.
type ChromedpSession struct {
	logger  *slog.Logger
	timeout time.Duration

	mu          sync.Mutex
	tabCtx      context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
	loaded      bool
}

func OpenChromedp(ctx context.Context, opts Options) (*ChromedpSession, error) {
	opts = opts.withDefaults()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1280, 1800),
	)
	bin := opts.Bin
	if bin == "" {
		bin = os.Getenv("CHROME_PATH")
	}
	if bin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(bin))
	}

	// 浏览器生命周期与会话绑定，不跟随调用方 ctx 取消。
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	startCtx, cancel := context.WithTimeout(tabCtx, 60*time.Second)
	defer cancel()
	if err := chromedp.Run(startCtx, chromedp.Navigate("about:blank")); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("start chromium: %w", err)
	}

	opts.Logger.Info("Browser: chromedp session ready")
	return &ChromedpSession{
		logger:      opts.Logger,
		timeout:     opts.Timeout,
		tabCtx:      tabCtx,
		cancelAlloc: cancelAlloc,
		cancelTab:   cancelTab,
	}, nil
}

// run executes actions on the tab, bounded by the session timeout and
// cancelled together with ctx.
func (s *ChromedpSession) run(ctx context.Context, actions ...chromedp.Action) error {
	s.mu.Lock()
	tabCtx := s.tabCtx
	s.mu.Unlock()
	if tabCtx == nil {
		return ErrNotLoaded
	}
	runCtx, cancel := context.WithTimeout(tabCtx, s.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// call evaluates a JS function expression with JSON-encoded arguments.
func call(fn string, out any, args ...any) chromedp.Action {
	encoded := make([]byte, 0, 64)
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return chromedp.ActionFunc(func(context.Context) error {
				return fmt.Errorf("encode argument %d: %w", i, err)
			})
		}
		if i > 0 {
			encoded = append(encoded, ',')
		}
		encoded = append(encoded, b...)
	}
	return chromedp.Evaluate(fmt.Sprintf("(%s)(%s)", fn, encoded), out, awaitPromise)
}

func (s *ChromedpSession) Load(ctx context.Context, html string) error {
	s.setLoaded(false)
	err := s.run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return fmt.Errorf("get frame tree: %w", err)
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("#"+render.ReadyElementID, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("load preview: %w", err)
	}
	var ok bool
	if err := s.run(ctx, call(fontsReadyJS, &ok)); err != nil {
		s.logger.Warn("Browser: document.fonts.ready wait failed, continue", slog.Any("error", err))
	}
	s.setLoaded(true)
	return nil
}

func (s *ChromedpSession) setLoaded(v bool) {
	s.mu.Lock()
	s.loaded = v
	s.mu.Unlock()
}

func (s *ChromedpSession) Ready(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.loaded && s.tabCtx != nil
	s.mu.Unlock()
	if !loaded {
		return ErrNotLoaded
	}
	var state string
	if err := s.run(ctx, chromedp.Evaluate(`document.readyState`, &state)); err != nil {
		return fmt.Errorf("browser not responding: %w", err)
	}
	return nil
}

func (s *ChromedpSession) DisplayScale(ctx context.Context) (float64, error) {
	var scale float64
	if err := s.run(ctx, chromedp.Evaluate(readScaleJS, &scale)); err != nil {
		return 0, fmt.Errorf("read display scale: %w", err)
	}
	return scale, nil
}

func (s *ChromedpSession) SetDisplayScale(ctx context.Context, scale float64) error {
	var ok bool
	if err := s.run(ctx, call(setScaleJS, &ok, scale)); err != nil {
		return fmt.Errorf("set display scale: %w", err)
	}
	return nil
}

func (s *ChromedpSession) WaitLayout(ctx context.Context) error {
	var ok bool
	if err := s.run(ctx, call(waitLayoutJS, &ok)); err != nil {
		return fmt.Errorf("wait layout: %w", err)
	}
	return nil
}

func (s *ChromedpSession) Rasterize(ctx context.Context, p render.PageDescriptor, supersample float64) (image.Image, error) {
	var box pageBox
	if err := s.run(ctx, call(pageBoxJS, &box, p.Selector())); err != nil {
		return nil, fmt.Errorf("measure %s: %w", p.ElementID, err)
	}
	if err := box.valid(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		data, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			WithClip(&page.Viewport{X: box.X, Y: box.Y, Width: box.W, Height: box.H, Scale: supersample}).
			WithCaptureBeyondViewport(true).
			Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("page screenshot: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

func (s *ChromedpSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelTab != nil {
		s.cancelTab()
		s.cancelTab = nil
	}
	if s.cancelAlloc != nil {
		s.cancelAlloc()
		s.cancelAlloc = nil
	}
	s.tabCtx = nil
	s.loaded = false
	return nil
}
