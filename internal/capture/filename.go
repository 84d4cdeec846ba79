package capture

import (
	"strings"
	"unicode"
)

// Filename derives the download name from the person's full name; every
// whitespace character becomes one underscore.
func Filename(fullName string) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, fullName)
	return name + "_CV.pdf"
}
