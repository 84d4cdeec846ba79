// Package capture turns the rendered preview pages into one multi-page PDF.
//
// The pipeline only talks to small injected collaborators: a Surface that owns
// the preview's display scale, a Rasterizer that screenshots one page region,
// and an Assembler that builds the output document. Production wiring uses
// internal/browser and internal/pdf; tests use in-memory fakes.
package capture

import (
	"context"
	"image"

	"cvbuilder/internal/cv"
	"cvbuilder/internal/render"
)

// Surface is the live preview whose display scale the pipeline resets to 1
// before capturing and restores afterwards.
type Surface interface {
	DisplayScale(ctx context.Context) (float64, error)
	SetDisplayScale(ctx context.Context, scale float64) error
}

// LayoutWaiter is implemented by surfaces that can signal layout completion.
// It runs after the fixed settle delay, never instead of it.
type LayoutWaiter interface {
	WaitLayout(ctx context.Context) error
}

// Rasterizer captures one page region using its full scroll width and height.
type Rasterizer interface {
	Rasterize(ctx context.Context, page render.PageDescriptor, supersample float64) (image.Image, error)
}

// Assembler starts a new output document in portrait orientation.
type Assembler interface {
	NewDocument(paper cv.PaperSize) (Document, error)
}

// Document receives pages strictly in order. The first page exists as soon as
// the document is created; AddPage appends another of the same size.
type Document interface {
	AddPage() error
	DrawImage(jpeg []byte, rect Rect) error
	Output() ([]byte, error)
}

// Checker is an optional readiness probe on any collaborator.
type Checker interface {
	Ready(ctx context.Context) error
}

// Notifier receives the single user-visible notice produced by an export.
type Notifier interface {
	Notify(n Notice)
}

// Rect is a placement on the page in millimetres.
type Rect struct {
	X, Y, W, H float64
}

// FullPage returns the rect that fills a page of the given paper size.
func FullPage(paper cv.PaperSize) Rect {
	d := paper.Dimensions()
	return Rect{X: 0, Y: 0, W: d.WidthMM, H: d.HeightMM}
}

// Request describes one export.
type Request struct {
	Pages    []render.PageDescriptor
	Paper    cv.PaperSize
	FullName string
	// CorrelationID is only used for logging and notices.
	CorrelationID string
}

// Result is the finished document. It exists only when every page succeeded.
type Result struct {
	Filename string
	Data     []byte
	Pages    int
	Paper    cv.PaperSize
}
