// Package browser hosts the rendered preview in headless Chromium and exposes
// it to the capture pipeline as a Surface and Rasterizer.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cvbuilder/internal/capture"
	"cvbuilder/internal/render"
)

const (
	DriverRod      = "rod"
	DriverChromedp = "chromedp"
)

// ErrNotLoaded is returned by Ready until a preview has been loaded.
var ErrNotLoaded = errors.New("preview not loaded")

// Session is one headless tab holding the current preview.
type Session interface {
	capture.Surface
	capture.LayoutWaiter
	capture.Rasterizer
	capture.Checker
	// Load replaces the tab content and waits for the render-ready marker.
	Load(ctx context.Context, html string) error
	Close() error
}

type Options struct {
	Driver  string
	Bin     string
	Timeout time.Duration
	Logger  *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 90 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Open starts a browser using the configured driver.
func Open(ctx context.Context, opts Options) (Session, error) {
	opts = opts.withDefaults()
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverRod:
		return OpenRod(ctx, opts)
	case DriverChromedp:
		return OpenChromedp(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown browser driver %q", opts.Driver)
	}
}

// pageBox is the document-space rectangle of a page element, sized by its
// scroll extent rather than the visible viewport.
type pageBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (b pageBox) valid() error {
	if b.W <= 0 || b.H <= 0 {
		return fmt.Errorf("page element has empty size %.0fx%.0f", b.W, b.H)
	}
	return nil
}

const readScaleJS = `(() => {
  const el = document.getElementById('` + render.ScaleElementID + `');
  if (!el) return 1;
  const m = /scale\(([^)]+)\)/.exec(el.style.transform || '');
  const v = m ? parseFloat(m[1]) : 1;
  return isNaN(v) ? 1 : v;
})()`

const setScaleJS = `(s) => {
  const el = document.getElementById('` + render.ScaleElementID + `');
  if (!el) throw new Error('missing scale wrapper');
  el.style.transform = 'scale(' + s + ')';
  return true;
}`

// 两帧 rAF 之后样式与布局才算真正落地。
const waitLayoutJS = `() => new Promise((resolve) => {
  requestAnimationFrame(() => requestAnimationFrame(() => resolve(true)));
})`

// 额外等待 WebFont/系统字体就绪，避免回退字体度量导致排版差异
const fontsReadyJS = `() => {
  if (document && document.fonts && document.fonts.ready) {
    return Promise.race([
      document.fonts.ready.then(() => true),
      new Promise((resolve) => setTimeout(() => resolve(true), 3000))
    ]);
  }
  return true;
}`

const pageBoxJS = `(sel) => {
  const el = document.querySelector(sel);
  if (!el) throw new Error('page element not found: ' + sel);
  const r = el.getBoundingClientRect();
  return {
    x: r.left + window.scrollX,
    y: r.top + window.scrollY,
    w: el.scrollWidth,
    h: el.scrollHeight
  };
}`
