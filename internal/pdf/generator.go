// Package pdf assembles captured page images into a PDF with gopdf.
package pdf

import (
	"errors"
	"fmt"
	"sync"

	"github.com/signintech/gopdf"

	"cvbuilder/internal/capture"
	"cvbuilder/internal/cv"
)

const pointsPerMM = 72 / 25.4

// MMToPoints converts millimetres to PDF points.
func MMToPoints(mm float64) float64 {
	return mm * pointsPerMM
}

// Assembler creates gopdf documents sized to a paper format.
type Assembler struct{}

func NewAssembler() *Assembler {
	return &Assembler{}
}

// NewDocument starts a portrait document whose first page already exists.
func (a *Assembler) NewDocument(paper cv.PaperSize) (capture.Document, error) {
	if !paper.Valid() {
		return nil, fmt.Errorf("unsupported paper size %q", paper)
	}
	d := paper.Dimensions()
	size := gopdf.Rect{W: MMToPoints(d.WidthMM), H: MMToPoints(d.HeightMM)}

	doc := &Document{pdf: &gopdf.GoPdf{}, size: size}
	doc.pdf.Start(gopdf.Config{Unit: gopdf.UnitPT, PageSize: size})
	if err := doc.AddPage(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Document is one PDF under construction. Pages are appended in order.
type Document struct {
	mu    sync.Mutex
	pdf   *gopdf.GoPdf
	size  gopdf.Rect
	pages []gopdf.Rect
}

func (d *Document) AddPage() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pdf == nil {
		return errors.New("document already written")
	}
	size := d.size
	d.pdf.AddPageWithOption(gopdf.PageOption{PageSize: &size})
	d.pages = append(d.pages, size)
	return nil
}

// DrawImage places a JPEG on the current page. rect is in millimetres.
func (d *Document) DrawImage(jpeg []byte, rect capture.Rect) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pdf == nil {
		return errors.New("document already written")
	}
	if len(jpeg) == 0 {
		return errors.New("empty image data")
	}
	holder, err := gopdf.ImageHolderByBytes(jpeg)
	if err != nil {
		return fmt.Errorf("create image holder: %w", err)
	}
	box := &gopdf.Rect{W: MMToPoints(rect.W), H: MMToPoints(rect.H)}
	if err := d.pdf.ImageByHolder(holder, MMToPoints(rect.X), MMToPoints(rect.Y), box); err != nil {
		return fmt.Errorf("draw image: %w", err)
	}
	return nil
}

// Output serialises the document. The document cannot be changed afterwards.
func (d *Document) Output() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pdf == nil {
		return nil, errors.New("document already written")
	}
	data, err := d.pdf.GetBytesPdfReturnErr()
	if err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	d.pdf.Close()
	d.pdf = nil
	return data, nil
}

// PageSizes returns the size in points of every page added so far.
func (d *Document) PageSizes() []gopdf.Rect {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]gopdf.Rect(nil), d.pages...)
}
