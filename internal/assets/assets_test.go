package assets

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"

	"cvbuilder/internal/cv"
	"cvbuilder/internal/errcode"
)

type fakeStore struct {
	objects map[string][]byte
	getErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (s *fakeStore) Put(_ context.Context, key string, data []byte, _ string) error {
	s.objects[key] = data
	return nil
}

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, string, error) {
	if s.getErr != nil {
		return nil, "", s.getErr
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, "", minio.ErrorResponse{Code: "NoSuchKey"}
	}
	return data, "image/jpeg", nil
}

type rejectScanner struct{}

func (rejectScanner) Scan(context.Context, []byte) error { return ErrInfected }

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{G: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestUploadToStoreDownscales(t *testing.T) {
	store := newFakeStore()
	p := NewProcessor(Options{Store: store, MaxWidth: 300})

	key, err := p.Upload(context.Background(), bytes.NewReader(pngBytes(t, 1200, 600)))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !IsKey(key) {
		t.Fatalf("key %q is not an asset key", key)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(store.objects[key]))
	if err != nil {
		t.Fatalf("stored object is not a jpeg: %v", err)
	}
	if cfg.Width != 300 || cfg.Height != 150 {
		t.Fatalf("stored size = %dx%d", cfg.Width, cfg.Height)
	}
}

func TestUploadWithoutStoreReturnsDataURI(t *testing.T) {
	p := NewProcessor(Options{})
	ref, err := p.Upload(context.Background(), bytes.NewReader(pngBytes(t, 40, 40)))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(ref, "data:image/jpeg;base64,") {
		t.Fatalf("ref = %.40s", ref)
	}
}

func TestUploadRejects(t *testing.T) {
	ctx := context.Background()

	if _, err := NewProcessor(Options{MaxBytes: 10}).Upload(ctx, bytes.NewReader(pngBytes(t, 40, 40))); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("too large: err = %v", err)
	}
	if _, err := NewProcessor(Options{}).Upload(ctx, strings.NewReader("plain text")); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("garbage: err = %v", err)
	}
	if _, err := NewProcessor(Options{Scanner: rejectScanner{}}).Upload(ctx, bytes.NewReader(pngBytes(t, 4, 4))); !errors.Is(err, ErrInfected) {
		t.Fatalf("infected: err = %v", err)
	}
}

func TestUploadRejectsOversizedDimensions(t *testing.T) {
	ctx := context.Background()

	if _, err := NewProcessor(Options{MaxPixels: 100}).Upload(ctx, bytes.NewReader(pngBytes(t, 20, 20))); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("pixel budget: err = %v", err)
	}

	// 文件很小，但 GIF 头声明 65535x65535。
	var buf bytes.Buffer
	small := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.Black, color.White})
	if err := gif.Encode(&buf, small, nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	raw := buf.Bytes()
	copy(raw[6:10], []byte{0xff, 0xff, 0xff, 0xff})
	if _, err := NewProcessor(Options{}).Upload(ctx, bytes.NewReader(raw)); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("declared dimensions: err = %v", err)
	}
}

func TestIsKey(t *testing.T) {
	cases := map[string]bool{
		"assets/abc.jpg":         true,
		"assets/abc.webp":        true,
		"assets/../etc/passwd":   false,
		"assets//x.jpg":          false,
		"data:image/png;base64,": false,
		"https://x/y.jpg":        false,
		"assets/abc.exe":         false,
	}
	for in, want := range cases {
		if got := IsKey(in); got != want {
			t.Errorf("IsKey(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInline(t *testing.T) {
	store := newFakeStore()
	store.objects["assets/photo.jpg"] = []byte{0xff, 0xd8}
	p := NewProcessor(Options{Store: store})

	doc := cv.NewEmpty()
	doc.Personal.Photo = "assets/photo.jpg"
	doc.Portfolio = []cv.PortfolioItem{
		{ID: "a", ProjectName: "Gone", Image: "assets/gone.jpg"},
		{ID: "b", ProjectName: "Inline", Image: "data:image/png;base64,AAAA"},
	}

	out, warnings, err := p.Inline(context.Background(), doc)
	if err != nil {
		t.Fatalf("inline: %v", err)
	}
	if !strings.HasPrefix(out.Personal.Photo, "data:image/jpeg;base64,") {
		t.Fatalf("photo = %q", out.Personal.Photo)
	}
	if out.Portfolio[0].Image != "" || out.Portfolio[1].Image != "data:image/png;base64,AAAA" {
		t.Fatalf("portfolio = %+v", out.Portfolio)
	}
	if len(warnings) != 1 || warnings[0].Code != errcode.ResourceMissing || warnings[0].MissingKeys[0] != "assets/gone.jpg" {
		t.Fatalf("warnings = %+v", warnings)
	}
	if doc.Personal.Photo != "assets/photo.jpg" {
		t.Fatalf("input document was mutated")
	}
}

func TestInlineStorageError(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("connection refused")
	p := NewProcessor(Options{Store: store})

	doc := cv.NewEmpty()
	doc.Personal.Photo = "assets/photo.jpg"
	if _, _, err := p.Inline(context.Background(), doc); err == nil {
		t.Fatalf("expected error")
	}
}
