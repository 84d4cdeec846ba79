// Package assets processes uploaded photos and portfolio images and resolves
// stored asset keys back into inline data URIs before rendering.
package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	KeyPrefix   = "assets/"
	contentType = "image/jpeg"
	jpegQuality = 90

	// 头部声明的宽×高超过该值时不解码。
	defaultMaxPixels = 40_000_000
)

var (
	ErrTooLarge    = errors.New("image exceeds size limit")
	ErrUnsupported = errors.New("unsupported image format")
	ErrInfected    = errors.New("malicious file detected")
)

// ObjectStore is the subset of storage.Client used for assets.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
}

// Scanner inspects raw upload bytes before they are decoded.
type Scanner interface {
	Scan(ctx context.Context, data []byte) error
}

type Processor struct {
	store     ObjectStore
	scanner   Scanner
	maxWidth  int
	maxBytes  int64
	maxPixels int64
	logger    *slog.Logger
}

type Options struct {
	// Store may be nil; uploads are then returned as data URIs.
	Store    ObjectStore
	Scanner  Scanner
	MaxWidth int
	MaxBytes int64

	// MaxPixels caps width*height as declared by the image header.
	MaxPixels int64
	Logger    *slog.Logger
}

func NewProcessor(opts Options) *Processor {
	p := &Processor{
		store:     opts.Store,
		scanner:   opts.Scanner,
		maxWidth:  opts.MaxWidth,
		maxBytes:  opts.MaxBytes,
		maxPixels: opts.MaxPixels,
		logger:    opts.Logger,
	}
	if p.maxWidth <= 0 {
		p.maxWidth = 1200
	}
	if p.maxBytes <= 0 {
		p.maxBytes = 10 << 20
	}
	if p.maxPixels <= 0 {
		p.maxPixels = defaultMaxPixels
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Upload normalises an image to a JPEG no wider than the configured width and
// returns the value to store in the document: an asset key when object
// storage is configured, otherwise a data URI.
func (p *Processor) Upload(ctx context.Context, r io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(raw)) > p.maxBytes {
		return "", ErrTooLarge
	}
	if p.scanner != nil {
		if err := p.scanner.Scan(ctx, raw); err != nil {
			return "", err
		}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > p.maxPixels {
		return "", fmt.Errorf("%w: %dx%d pixels", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	img = fitWidth(img, p.maxWidth)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	b := img.Bounds()
	p.logger.Info("Assets: image processed",
		slog.String("format", format),
		slog.Int("width", b.Dx()),
		slog.Int("height", b.Dy()),
		slog.Int("bytes", buf.Len()),
	)

	if p.store == nil {
		return DataURI(contentType, buf.Bytes()), nil
	}
	key := KeyPrefix + uuid.NewString() + ".jpg"
	if err := p.store.Put(ctx, key, buf.Bytes(), contentType); err != nil {
		return "", fmt.Errorf("store asset: %w", err)
	}
	return key, nil
}

// fitWidth 等比缩小到 maxWidth，不放大。
func fitWidth(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxWidth {
		return img
	}
	h := b.Dy() * maxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func DataURI(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsKey reports whether s looks like an asset key produced by Upload.
func IsKey(s string) bool {
	if s == "" || !utf8.ValidString(s) || len(s) > 200 {
		return false
	}
	if !strings.HasPrefix(s, KeyPrefix) {
		return false
	}
	if strings.Contains(s, "..") || strings.Contains(s, "\\") || strings.Contains(s, "//") {
		return false
	}
	lower := strings.ToLower(s)
	return strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg") ||
		strings.HasSuffix(lower, ".png") || strings.HasSuffix(lower, ".webp")
}
