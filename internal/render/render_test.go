package render

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"cvbuilder/internal/cv"
)

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestRenderExampleAllThemes(t *testing.T) {
	doc := cv.NewExample()
	for _, theme := range cv.Themes {
		t.Run(string(theme), func(t *testing.T) {
			preview, err := Render(doc, theme, cv.PaperA4, Options{})
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if preview.Theme != theme {
				t.Fatalf("theme = %s", preview.Theme)
			}
			page := parseHTML(t, preview.HTML)
			if page.Find("#"+ScaleElementID).Length() != 1 {
				t.Fatalf("missing scale wrapper")
			}
			if page.Find("#"+ReadyElementID).Length() != 1 {
				t.Fatalf("missing ready marker")
			}
			main := page.Find("#cv-page-1")
			if main.Length() != 1 {
				t.Fatalf("missing main page")
			}
			if !strings.Contains(main.Text(), doc.Personal.FullName) {
				t.Fatalf("main page does not contain the full name")
			}
		})
	}
}

func TestCurrentJobShowsPresent(t *testing.T) {
	doc := cv.NewEmpty()
	doc.Personal.FullName = "Jane Doe"
	doc.Experience = []cv.WorkExperience{{
		ID:        "w1",
		JobTitle:  "Engineer",
		Company:   "Acme",
		StartDate: "2020-01-01",
		EndDate:   "2021-06-30",
		IsCurrent: true,
	}}
	for _, theme := range cv.Themes {
		preview, err := Render(doc, theme, cv.PaperLetter, Options{})
		if err != nil {
			t.Fatalf("%s: render: %v", theme, err)
		}
		text := parseHTML(t, preview.HTML).Find("#cv-page-1").Text()
		if !strings.Contains(text, "Present") {
			t.Fatalf("%s: expected Present in date range", theme)
		}
		if strings.Contains(text, "2021") {
			t.Fatalf("%s: stored end date leaked into output", theme)
		}
	}
}

func TestPortfolioPageOnlyWithValidItem(t *testing.T) {
	cases := []struct {
		name      string
		portfolio []cv.PortfolioItem
		wantPages int
	}{
		{"empty", nil, 1},
		{"missing image", []cv.PortfolioItem{{ID: "p1", ProjectName: "A"}}, 1},
		{"missing name", []cv.PortfolioItem{{ID: "p1", Image: "data:image/png;base64,AAAA"}}, 1},
		{"valid", []cv.PortfolioItem{
			{ID: "p1", ProjectName: "A"},
			{ID: "p2", ProjectName: "B", Image: "data:image/png;base64,AAAA", Year: "2023"},
		}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := cv.NewEmpty()
			doc.Portfolio = tc.portfolio
			preview, err := Render(doc, cv.ThemeClassic, cv.PaperA4, Options{})
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if len(preview.Pages) != tc.wantPages {
				t.Fatalf("pages = %d, want %d", len(preview.Pages), tc.wantPages)
			}
			page := parseHTML(t, preview.HTML)
			if got := page.Find(".cv-page").Length(); got != tc.wantPages {
				t.Fatalf("rendered pages = %d, want %d", got, tc.wantPages)
			}
			if tc.wantPages == 2 {
				items := page.Find("#cv-page-2 .portfolio .grid > div")
				if items.Length() != 1 {
					t.Fatalf("gallery items = %d, want 1", items.Length())
				}
				if src, _ := items.Find("img").Attr("src"); !strings.HasPrefix(src, "data:image/png") {
					t.Fatalf("img src = %q", src)
				}
			}
		})
	}
}

func TestPagesOrder(t *testing.T) {
	doc := cv.NewExample()
	if got := Pages(doc); len(got) != 1 {
		t.Fatalf("example without portfolio: pages = %d", len(got))
	}
	doc.Portfolio = append(doc.Portfolio, cv.PortfolioItem{ID: "p1", ProjectName: "Site", Image: "data:image/jpeg;base64,AAAA"})
	pages := Pages(doc)
	if len(pages) != 2 {
		t.Fatalf("pages = %d", len(pages))
	}
	for i, p := range pages {
		if p.Index != i {
			t.Fatalf("page %d has index %d", i, p.Index)
		}
	}
	if pages[0].Selector() != "#cv-page-1" || pages[1].Kind != PagePortfolio {
		t.Fatalf("unexpected pages: %+v", pages)
	}
}

func TestRenderFallbacks(t *testing.T) {
	preview, err := Render(cv.NewEmpty(), cv.Theme("Neon"), cv.PaperSize("A3"), Options{DisplayScale: 0.5})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if preview.Theme != cv.ThemeModern || preview.Paper != cv.PaperA4 {
		t.Fatalf("fallback = %s/%s", preview.Theme, preview.Paper)
	}
	style, _ := parseHTML(t, preview.HTML).Find("#" + ScaleElementID).Attr("style")
	if !strings.Contains(style, "scale(0.5)") {
		t.Fatalf("scale style = %q", style)
	}
}

func TestFormatDate(t *testing.T) {
	cases := []struct {
		style, in, want string
	}{
		{"short", "2021-01-01", "Jan 2021"},
		{"long", "2018-06", "June 2018"},
		{"year", "2016-09-01", "2016"},
		{"short", "", "Present"},
		{"short", "someday", "someday"},
	}
	for _, tc := range cases {
		if got := formatDate(tc.style, tc.in); got != tc.want {
			t.Errorf("formatDate(%q, %q) = %q, want %q", tc.style, tc.in, got, tc.want)
		}
	}
}

func TestImageURLRejectsScripts(t *testing.T) {
	if got := imageURL("javascript:alert(1)"); got != "" {
		t.Fatalf("imageURL = %q", got)
	}
	if got := imageURL("https://cdn.example.com/a.png"); got == "" {
		t.Fatalf("https url rejected")
	}
}

func TestBullets(t *testing.T) {
	got := bullets("- one\n\n  two  \n- ")
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Fatalf("bullets = %q", got)
	}
}
