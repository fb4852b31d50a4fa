// Package tts reshapes a model's text response for speech output: strip
// markdown that would otherwise be read aloud literally, expand a few
// abbreviations that a speech synthesiser mispronounces, and collapse
// extra whitespace. Sentences are neither split nor shortened.
package tts

import (
	"regexp"
	"strings"
)

var (
	reBoldItalic  = regexp.MustCompile(`\*\*\*(.+?)\*\*\*|\*\*(.+?)\*\*|\*(.+?)\*|___(.+?)___|__(.+?)__|_(.+?)_`)
	reHeading     = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	reCodeFence   = regexp.MustCompile("```[a-zA-Z]*\n?")
	reInlineCode  = regexp.MustCompile("`([^`]*)`")
	reLink        = regexp.MustCompile(`\[([^\]]*)\]\(([^)]*)\)`)
	reBulletList  = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	reNumberedLst = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	reWhitespace  = regexp.MustCompile(`[ \t]+`)
	reBlankLines  = regexp.MustCompile(`\n{3,}`)
)

var abbreviations = []struct {
	pattern *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`(?i)\be\.g\.`), "for example"},
	{regexp.MustCompile(`(?i)\bi\.e\.`), "that is"},
	{regexp.MustCompile(`(?i)\betc\.`), "and so on"},
	{regexp.MustCompile(`(?i)\bvs\.`), "versus"},
	{regexp.MustCompile(`(?i)\bapprox\.`), "approximately"},
	{regexp.MustCompile(`(?i)\bmph\b`), "miles per hour"},
	{regexp.MustCompile(`(?i)\bkm/h\b`), "kilometers per hour"},
}

// Format strips markdown formatting and expands abbreviations so the
// result reads naturally when spoken. Callers should apply Format only
// when the destination has speakers and no display (see the pipeline's
// output step); a display can render markdown as-is.
func Format(s string) string {
	s = reCodeFence.ReplaceAllString(s, "")
	s = reInlineCode.ReplaceAllString(s, "$1")
	s = reLink.ReplaceAllString(s, "$1")
	s = reHeading.ReplaceAllString(s, "")
	s = reBulletList.ReplaceAllString(s, "")
	s = reNumberedLst.ReplaceAllString(s, "")
	s = reBoldItalic.ReplaceAllStringFunc(s, stripEmphasisMarkers)

	for _, ab := range abbreviations {
		s = ab.pattern.ReplaceAllString(s, ab.replace)
	}

	s = reBlankLines.ReplaceAllString(s, "\n\n")
	s = reWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func stripEmphasisMarkers(match string) string {
	return strings.Trim(match, "*_")
}
