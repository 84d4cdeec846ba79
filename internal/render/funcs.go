package render

import (
	"html/template"
	"strings"
	"time"
	"unicode"

	"cvbuilder/internal/cv"
)

const presentLabel = "Present"

var dateLayouts = []string{"2006-01-02", "2006-01", time.RFC3339}

var dateStyles = map[string]string{
	"short": "Jan 2006",
	"long":  "January 2006",
	"year":  "2006",
}

var funcs = template.FuncMap{
	"image":     imageURL,
	"date":      formatDate,
	"dateRange": dateRange,
	"jobRange":  jobRange,
	"bullets":   bullets,
	"join":      joinHobbies,
	"initials":  initials,
}

// formatDate 空值视为"至今"，无法解析的原样输出。
func formatDate(style, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return presentLabel
	}
	layout, ok := dateStyles[style]
	if !ok {
		layout = dateStyles["short"]
	}
	for _, in := range dateLayouts {
		if t, err := time.Parse(in, value); err == nil {
			return t.Format(layout)
		}
	}
	return value
}

func dateRange(style, start, end string) string {
	return formatDate(style, start) + " - " + formatDate(style, end)
}

// jobRange ignores EndDate for current positions.
func jobRange(style string, exp cv.WorkExperience) string {
	if exp.IsCurrent {
		return formatDate(style, exp.StartDate) + " - " + presentLabel
	}
	return dateRange(style, exp.StartDate, exp.EndDate)
}

func bullets(desc string) []string {
	var out []string
	for _, line := range strings.Split(desc, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimLeft(line, "-•*"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func joinHobbies(hobbies []cv.Hobby) string {
	names := make([]string, 0, len(hobbies))
	for _, h := range hobbies {
		if name := strings.TrimSpace(h.Name); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

func initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r := []rune(word)[0]
		b.WriteRune(unicode.ToUpper(r))
		if b.Len() >= 2 {
			break
		}
	}
	return b.String()
}

// imageURL 只放行 data:image 与 http(s) 地址，其余一律视为无图。
func imageURL(src string) template.URL {
	src = strings.TrimSpace(src)
	switch {
	case strings.HasPrefix(src, "data:image/"):
		return template.URL(src)
	case strings.HasPrefix(src, "https://"), strings.HasPrefix(src, "http://"):
		return template.URL(src)
	default:
		return ""
	}
}
