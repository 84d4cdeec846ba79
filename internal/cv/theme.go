package cv

import (
	"fmt"
	"strings"
)

// Theme selects one of the twelve visual layouts.
type Theme string

const (
	ThemeModern      Theme = "Modern"
	ThemeClassic     Theme = "Classic"
	ThemeCreative    Theme = "Creative"
	ThemeMinimalist  Theme = "Minimalist"
	ThemeTechnical   Theme = "Technical"
	ThemeCorporate   Theme = "Corporate"
	ThemeElegant     Theme = "Elegant"
	ThemeAcademic    Theme = "Academic"
	ThemeBold        Theme = "Bold"
	ThemeGraphic     Theme = "Graphic"
	ThemeInfographic Theme = "Infographic"
	ThemeVintage     Theme = "Vintage"
)

// Themes lists every theme in selector order.
var Themes = []Theme{
	ThemeModern,
	ThemeClassic,
	ThemeCreative,
	ThemeMinimalist,
	ThemeTechnical,
	ThemeCorporate,
	ThemeElegant,
	ThemeAcademic,
	ThemeBold,
	ThemeGraphic,
	ThemeInfographic,
	ThemeVintage,
}

// Valid reports whether t is one of the twelve themes.
func (t Theme) Valid() bool {
	for _, known := range Themes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseTheme accepts a theme name in any case.
func ParseTheme(s string) (Theme, error) {
	for _, t := range Themes {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown theme %q", s)
}

// Settings are the user's theme and paper selection.
type Settings struct {
	Theme Theme     `json:"theme"`
	Paper PaperSize `json:"paperSize"`
}

// DefaultSettings matches the initial selector state.
func DefaultSettings() Settings {
	return Settings{Theme: ThemeModern, Paper: PaperA4}
}

// Sanitize replaces invalid selections with defaults.
func (s Settings) Sanitize() Settings {
	def := DefaultSettings()
	if !s.Theme.Valid() {
		s.Theme = def.Theme
	}
	if !s.Paper.Valid() {
		s.Paper = def.Paper
	}
	return s
}
