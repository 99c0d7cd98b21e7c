package solver

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// operatorGlyphs maps typographic operators produced by OCR to ASCII math.
// Only explicit glyphs are rewritten: the letter x is a variable in "3x+2"
// and is never treated as multiplication.
var operatorGlyphs = strings.NewReplacer(
	"×", "*",
	"÷", "/",
)

// Normalize cleans recognizer/OCR artifacts from raw text: NFC composition,
// operator glyph substitution, whitespace collapse and trim.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	s := norm.NFC.String(raw)
	s = operatorGlyphs.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
