package pdf

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"testing"
	"time"

	"cvbuilder/internal/capture"
	"cvbuilder/internal/cv"
	"cvbuilder/internal/render"
)

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 28))
	for x := 0; x < 20; x++ {
		img.Set(x, x, color.RGBA{B: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 98}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func near(a, b float64) bool { return math.Abs(a-b) < 0.01 }

func TestAssemblerPageSizes(t *testing.T) {
	cases := []struct {
		paper cv.PaperSize
		w, h  float64
	}{
		{cv.PaperA4, 595.28, 841.89},
		{cv.PaperLetter, 612, 792},
	}
	for _, tc := range cases {
		t.Run(string(tc.paper), func(t *testing.T) {
			doc, err := NewAssembler().NewDocument(tc.paper)
			if err != nil {
				t.Fatalf("new document: %v", err)
			}
			img := testJPEG(t)
			if err := doc.DrawImage(img, capture.FullPage(tc.paper)); err != nil {
				t.Fatalf("draw page 1: %v", err)
			}
			if err := doc.AddPage(); err != nil {
				t.Fatalf("add page: %v", err)
			}
			if err := doc.DrawImage(img, capture.FullPage(tc.paper)); err != nil {
				t.Fatalf("draw page 2: %v", err)
			}

			sizes := doc.(*Document).PageSizes()
			if len(sizes) != 2 {
				t.Fatalf("pages = %d", len(sizes))
			}
			for i, s := range sizes {
				if !near(s.W, tc.w) || !near(s.H, tc.h) {
					t.Fatalf("page %d size = %vx%v", i, s.W, s.H)
				}
			}

			out, err := doc.Output()
			if err != nil {
				t.Fatalf("output: %v", err)
			}
			if !bytes.HasPrefix(out, []byte("%PDF-")) {
				t.Fatalf("output is not a pdf")
			}
			if _, err := doc.Output(); err == nil {
				t.Fatalf("second output should fail")
			}
		})
	}
}

func TestAssemblerRejectsUnknownPaper(t *testing.T) {
	if _, err := NewAssembler().NewDocument(cv.PaperSize("A3")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDrawImageRejectsGarbage(t *testing.T) {
	doc, err := NewAssembler().NewDocument(cv.PaperA4)
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	if err := doc.DrawImage([]byte("not an image"), capture.FullPage(cv.PaperA4)); err == nil {
		t.Fatalf("expected error")
	}
}

type staticSurface struct{ scale float64 }

func (s *staticSurface) DisplayScale(context.Context) (float64, error) { return s.scale, nil }
func (s *staticSurface) SetDisplayScale(_ context.Context, v float64) error {
	s.scale = v
	return nil
}

type solidRasterizer struct{}

func (solidRasterizer) Rasterize(_ context.Context, _ render.PageDescriptor, f float64) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, int(100*f), int(141*f)))
	for y := 0; y < img.Bounds().Dy(); y++ {
		img.Set(y%img.Bounds().Dx(), y, color.Black)
	}
	return img, nil
}

func TestExporterWithGopdf(t *testing.T) {
	surface := &staticSurface{scale: 0.7}
	e := capture.NewExporter(surface, solidRasterizer{}, NewAssembler(),
		capture.WithSleep(func(context.Context, time.Duration) error { return nil }))

	res, err := e.Export(context.Background(), capture.Request{
		Pages:    render.Pages(cv.Document{Portfolio: []cv.PortfolioItem{{ProjectName: "P", Image: "data:image/png;base64,AA"}}}),
		Paper:    cv.PaperA4,
		FullName: "Jane Doe",
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if res.Pages != 2 || res.Filename != "Jane_Doe_CV.pdf" || !bytes.HasPrefix(res.Data, []byte("%PDF-")) {
		t.Fatalf("result = %d pages, %q", res.Pages, res.Filename)
	}
	if surface.scale != 0.7 {
		t.Fatalf("scale = %v", surface.scale)
	}
}
