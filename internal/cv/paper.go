package cv

import (
	"fmt"
	"strings"
)

// PaperSize is one of the two supported output formats.
type PaperSize string

const (
	PaperA4     PaperSize = "A4"
	PaperLetter PaperSize = "Letter"
)

// PaperSizes lists the supported formats.
var PaperSizes = []PaperSize{PaperA4, PaperLetter}

// Dimensions are physical portrait page dimensions in millimetres.
type Dimensions struct {
	WidthMM  float64
	HeightMM float64
}

var paperDimensions = map[PaperSize]Dimensions{
	PaperA4:     {WidthMM: 210, HeightMM: 297},
	PaperLetter: {WidthMM: 215.9, HeightMM: 279.4},
}

// Dimensions returns the portrait size of p. Unknown sizes fall back to A4.
func (p PaperSize) Dimensions() Dimensions {
	if d, ok := paperDimensions[p]; ok {
		return d
	}
	return paperDimensions[PaperA4]
}

// Valid reports whether p is a supported paper size.
func (p PaperSize) Valid() bool {
	_, ok := paperDimensions[p]
	return ok
}

// ParsePaperSize accepts "A4" or "Letter" in any case.
func ParsePaperSize(s string) (PaperSize, error) {
	for _, p := range PaperSizes {
		if strings.EqualFold(string(p), strings.TrimSpace(s)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown paper size %q", s)
}
