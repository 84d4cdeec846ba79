// Package render turns a cv.Document into the paginated HTML preview and the
// ordered page list consumed by the capture pipeline.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"path"
	"strings"

	"cvbuilder/internal/cv"
)

//go:embed templates/*.gohtml templates/themes/*.gohtml
var templateFS embed.FS

// DefaultDisplayScale is the on-screen preview zoom.
const DefaultDisplayScale = 0.7

// Element ids shared with the browser surface.
const (
	ScaleElementID     = "cv-preview-scale"
	ContainerElementID = "cv-preview-container"
	ReadyElementID     = "cv-render-ready"
	pageElementPrefix  = "cv-page-"
)

type PageKind string

const (
	PageMain      PageKind = "main"
	PagePortfolio PageKind = "portfolio"
)

// PageDescriptor identifies one fixed-size page region in render order.
type PageDescriptor struct {
	Index     int      `json:"index"`
	ElementID string   `json:"elementId"`
	Kind      PageKind `json:"kind"`
}

// Selector returns the CSS selector of the page region.
func (p PageDescriptor) Selector() string {
	return "#" + p.ElementID
}

// Preview is a rendered document ready to be loaded into a surface.
type Preview struct {
	HTML  string
	Pages []PageDescriptor
	Theme cv.Theme
	Paper cv.PaperSize
	Size  cv.Dimensions
}

type Options struct {
	// DisplayScale <= 0 falls back to DefaultDisplayScale.
	DisplayScale float64
}

type view struct {
	Personal     cv.PersonalInfo
	Experience   []cv.WorkExperience
	Education    []cv.Education
	Certificates []cv.Certificate
	Hobbies      []cv.Hobby
	Gallery      []cv.PortfolioItem
	Paper        cv.Dimensions
	Scale        float64
}

// 每个主题一套独立模板：layout + portfolio + 主题自身的 style/body。
var themeSets = mustParseThemes()

func mustParseThemes() map[cv.Theme]*template.Template {
	base := template.Must(template.New("base").Funcs(funcs).ParseFS(templateFS, "templates/*.gohtml"))

	sets := make(map[cv.Theme]*template.Template, len(cv.Themes))
	for _, theme := range cv.Themes {
		set := template.Must(base.Clone())
		file := path.Join("templates/themes", strings.ToLower(string(theme))+".gohtml")
		template.Must(set.ParseFS(templateFS, file))
		sets[theme] = set
	}
	return sets
}

// Render lays the document out with the given theme and paper size. Unknown
// themes render with Modern; unknown paper sizes render as A4.
func Render(doc cv.Document, theme cv.Theme, paper cv.PaperSize, opts Options) (*Preview, error) {
	if !theme.Valid() {
		theme = cv.ThemeModern
	}
	if !paper.Valid() {
		paper = cv.PaperA4
	}
	scale := opts.DisplayScale
	if scale <= 0 {
		scale = DefaultDisplayScale
	}

	doc = doc.Clone()
	doc.Normalize()
	v := view{
		Personal:     doc.Personal,
		Experience:   doc.Experience,
		Education:    doc.Education,
		Certificates: doc.Certificates,
		Hobbies:      doc.Hobbies,
		Gallery:      doc.ValidPortfolio(),
		Paper:        paper.Dimensions(),
		Scale:        scale,
	}

	var buf bytes.Buffer
	if err := themeSets[theme].ExecuteTemplate(&buf, "layout", v); err != nil {
		return nil, fmt.Errorf("render %s theme: %w", theme, err)
	}

	return &Preview{
		HTML:  buf.String(),
		Pages: Pages(doc),
		Theme: theme,
		Paper: paper,
		Size:  v.Paper,
	}, nil
}

// Pages returns the page list for doc: the main page, plus the portfolio
// page when at least one portfolio item has both an image and a name.
func Pages(doc cv.Document) []PageDescriptor {
	pages := []PageDescriptor{{Index: 0, ElementID: pageElementPrefix + "1", Kind: PageMain}}
	if doc.HasPortfolioPage() {
		pages = append(pages, PageDescriptor{Index: 1, ElementID: pageElementPrefix + "2", Kind: PagePortfolio})
	}
	return pages
}
