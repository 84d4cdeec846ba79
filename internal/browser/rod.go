package browser

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"cvbuilder/internal/render"
)

// RodSession drives the preview tab through go-rod.
type RodSession struct {
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	launch  *launcher.Launcher
	browser *rod.Browser
	page    *rod.Page
	loaded  bool
}

func OpenRod(ctx context.Context, opts Options) (_ *RodSession, err error) {
	opts = opts.withDefaults()

	launch := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true)
	defer func() {
		if err != nil {
			launch.Cleanup()
		}
	}()

	if opts.Bin != "" {
		launch = launch.Bin(opts.Bin)
	} else if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := browser.Timeout(30 * time.Second).Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}
	// 视口宽度足够容纳 Letter 纸张，避免页面被横向压缩。
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{Width: 1280, Height: 1800, DeviceScaleFactor: 1}); err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	opts.Logger.Info("Browser: rod session ready", slog.String("control_url", browserURL))
	return &RodSession{
		logger:  opts.Logger,
		timeout: opts.Timeout,
		launch:  launch,
		browser: browser,
		page:    page,
	}, nil
}

func (s *RodSession) tab(ctx context.Context) (*rod.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page == nil {
		return nil, ErrNotLoaded
	}
	return s.page.Context(ctx).Timeout(s.timeout), nil
}

func (s *RodSession) Load(ctx context.Context, html string) error {
	page, err := s.tab(ctx)
	if err != nil {
		return err
	}
	s.setLoaded(false)

	if err := page.SetDocumentContent(html); err != nil {
		return fmt.Errorf("set document content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	if _, err := page.Element("#" + render.ReadyElementID); err != nil {
		return fmt.Errorf("wait render signal: %w", err)
	}
	if _, err := page.Timeout(5 * time.Second).Eval(fontsReadyJS); err != nil {
		s.logger.Warn("Browser: document.fonts.ready wait failed, continue", slog.Any("error", err))
	}
	s.setLoaded(true)
	return nil
}

func (s *RodSession) setLoaded(v bool) {
	s.mu.Lock()
	s.loaded = v
	s.mu.Unlock()
}

// Ready fails until a preview has been loaded into a live tab.
func (s *RodSession) Ready(ctx context.Context) error {
	s.mu.Lock()
	loaded, page := s.loaded, s.page
	s.mu.Unlock()
	if page == nil || !loaded {
		return ErrNotLoaded
	}
	if _, err := page.Context(ctx).Timeout(5 * time.Second).Eval(`() => document.readyState`); err != nil {
		return fmt.Errorf("browser not responding: %w", err)
	}
	return nil
}

func (s *RodSession) DisplayScale(ctx context.Context) (float64, error) {
	page, err := s.tab(ctx)
	if err != nil {
		return 0, err
	}
	res, err := page.Eval(`() => ` + readScaleJS)
	if err != nil {
		return 0, fmt.Errorf("read display scale: %w", err)
	}
	return res.Value.Num(), nil
}

func (s *RodSession) SetDisplayScale(ctx context.Context, scale float64) error {
	page, err := s.tab(ctx)
	if err != nil {
		return err
	}
	if _, err := page.Eval(setScaleJS, scale); err != nil {
		return fmt.Errorf("set display scale: %w", err)
	}
	return nil
}

func (s *RodSession) WaitLayout(ctx context.Context) error {
	page, err := s.tab(ctx)
	if err != nil {
		return err
	}
	if _, err := page.Eval(waitLayoutJS); err != nil {
		return fmt.Errorf("wait layout: %w", err)
	}
	return nil
}

// Rasterize screenshots the page element at supersample device pixels per
// CSS pixel, including any part outside the viewport.
func (s *RodSession) Rasterize(ctx context.Context, p render.PageDescriptor, supersample float64) (image.Image, error) {
	page, err := s.tab(ctx)
	if err != nil {
		return nil, err
	}
	res, err := page.Eval(pageBoxJS, p.Selector())
	if err != nil {
		return nil, fmt.Errorf("measure %s: %w", p.ElementID, err)
	}
	box := pageBox{
		X: res.Value.Get("x").Num(),
		Y: res.Value.Get("y").Num(),
		W: res.Value.Get("w").Num(),
		H: res.Value.Get("h").Num(),
	}
	if err := box.valid(); err != nil {
		return nil, err
	}

	data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip: &proto.PageViewport{
			X:      box.X,
			Y:      box.Y,
			Width:  box.W,
			Height: box.H,
			Scale:  supersample,
		},
		CaptureBeyondViewport: true,
	})
	if err != nil {
		return nil, fmt.Errorf("page screenshot: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

func (s *RodSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.launch != nil {
		s.launch.Cleanup()
		s.launch = nil
	}
	s.loaded = false
	return err
}
