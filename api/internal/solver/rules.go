package solver

import (
	"regexp"
	"strings"
)

// pick selects which match of a tier wins when the pattern occurs more than once.
type pick int

const (
	pickFirst pick = iota
	// pickLast is the "last match wins" heuristic: recognizers tend to put the
	// simplified form of an expression after its intermediate forms, so the last
	// delimited expression is taken as the answer. It is a tie-break, not a
	// guarantee of correctness.
	pickLast
)

// tier is one fallback level of a cascade. The extracted value is the group
// named "value", or the first capture group. A group named "label" marks where
// the match begins when the pattern needs a leading context character.
type tier struct {
	name string
	re   *regexp.Regexp
	pick pick
}

// cascade is an ordered rule table: tiers are tried in order and the first
// one producing a non-empty value wins.
type cascade []tier

// hit is a successful tier match: the trimmed value, the producing tier and
// the byte span of the whole match in the searched text.
type hit struct {
	value      string
	tier       string
	start, end int
}

func (c cascade) find(text string) (hit, bool) {
	for _, t := range c {
		if h, ok := t.match(text); ok {
			return h, true
		}
	}
	return hit{}, false
}

func (t tier) match(text string) (hit, bool) {
	all := t.re.FindAllStringSubmatchIndex(text, -1)
	vi, li := 1, t.re.SubexpIndex("label")
	if i := t.re.SubexpIndex("value"); i > 0 {
		vi = i
	}
	at := func(loc []int) (hit, bool) {
		v := strings.TrimSpace(text[loc[2*vi]:loc[2*vi+1]])
		if v == "" {
			return hit{}, false
		}
		start := loc[0]
		if li > 0 && loc[2*li] >= 0 {
			start = loc[2*li]
		}
		return hit{value: v, tier: t.name, start: start, end: loc[1]}, true
	}
	if t.pick == pickLast {
		for i := len(all) - 1; i >= 0; i-- {
			if h, ok := at(all[i]); ok {
				return h, true
			}
		}
		return hit{}, false
	}
	for _, loc := range all {
		if h, ok := at(loc); ok {
			return h, true
		}
	}
	return hit{}, false
}

// Inline math is a single $ on each side, never nested.
const mathSpan = `\$(?P<value>[^$]*)\$`

// Label emphasis styles. Labels are matched case-insensitively and the colon
// may sit inside or outside the emphasis markers.
func boldLabel(label string) string {
	return `(?i)\*\*` + label + `(?::\*\*|\*\*:?)`
}

func italicLabel(label string) string {
	return `(?i)(?:^|[^*])(?P<label>\*` + label + `(?::\*|\*:?))`
}

func plainLabel(label string) string {
	return `(?i)\b` + label + `:`
}

func anyLabel(label string) string {
	return `(?i)\*{0,2}\b` + label + `(?::\*{0,2}|\*{1,2}:)`
}

func labeled(name, label string) tier {
	return tier{name: name, re: regexp.MustCompile(label + `\s*` + mathSpan)}
}

var reMath = regexp.MustCompile(mathSpan)

var equationRules = cascade{
	labeled("equation.bold", boldLabel("Equation")),
	labeled("equation.plain", plainLabel("Equation")),
	labeled("equation.italic", italicLabel("Equation")),
	{name: "equation.first_math", re: reMath, pick: pickFirst},
}

var resultRules = cascade{
	labeled("result.final_bold", boldLabel(`Final\s+Answer`)),
	labeled("result.final_plain", plainLabel(`Final\s+Answer`)),
	labeled("result.final_italic", italicLabel(`Final\s+Answer`)),
	labeled("result.result", anyLabel("Result")),
	labeled("result.answer", anyLabel("Answer")),
	{name: "result.last_math", re: reMath, pick: pickLast},
}

// sectionRules locate the start of the steps section; the section runs up to
// the next "Final Answer" label.
var sectionRules = []*regexp.Regexp{
	regexp.MustCompile(boldLabel(`Steps\s+to\s+Solve`)),
	regexp.MustCompile(italicLabel(`Steps\s+to\s+Solve`)),
	regexp.MustCompile(plainLabel(`Steps\s+to\s+Solve`)),
	regexp.MustCompile(boldLabel("Solution")),
	regexp.MustCompile(italicLabel("Solution")),
	regexp.MustCompile(plainLabel("Solution")),
}

// Only a labelled "Final Answer" (emphasised or followed by a colon) ends the
// section; the phrase in step prose does not.
var reSectionEnd = regexp.MustCompile(`(?i)\*{1,2}Final\s+Answer|\bFinal\s+Answer\s*\*{0,2}:`)

// stepMarkers are tried in order; the first family with at least one match
// splits the section. The "title" group holds the label text.
var stepMarkers = []*regexp.Regexp{
	// 1. **Title**:
	regexp.MustCompile(`(?:^|\s)\d+\.\s*(?P<title>\*\*[^*]+\*\*:?)`),
	// 1. Title:
	regexp.MustCompile(`(?:^|\s)\d+\.\s+(?P<title>[^:$*\n]{1,120}:)`),
	// **Step 1**: / **Step 1: Title**
	regexp.MustCompile(`(?i)(?P<title>\*\*Step\s*\d+[^*]*\*\*:?)`),
	// *Step 1*:
	regexp.MustCompile(`(?i)(?P<title>\*Step\s*\d+[^*]*\*:?)`),
	// Step 1:
	regexp.MustCompile(`(?i)(?P<title>\bStep\s*\d+\s*:)`),
	// any emphasised label ending in a colon
	regexp.MustCompile(`(?P<title>\*{1,2}[^*$\n]+?(?::\*{1,2}|\*{1,2}:))`),
}

var reEmphasis = regexp.MustCompile(`\*+`)

// stripEmphasis removes markdown emphasis markers and collapses whitespace.
func stripEmphasis(s string) string {
	return strings.Join(strings.Fields(reEmphasis.ReplaceAllString(s, "")), " ")
}

// mathSpans returns every delimited expression in s, trimmed, in source order.
func mathSpans(s string) []string {
	all := reMath.FindAllStringSubmatch(s, -1)
	out := make([]string, 0, len(all))
	for _, m := range all {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}
