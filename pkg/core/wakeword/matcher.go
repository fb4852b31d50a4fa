// Package wakeword detects a configured wake phrase inside a noisy,
// interim-updating transcription stream and classifies the text that
// follows it.
package wakeword

import (
	"regexp"
	"strings"
)

// DefaultPhrase is the wake phrase used when a Matcher is built with no
// phrases of its own.
const DefaultPhrase = "hey mentra"

var leadingPunctuation = regexp.MustCompile(`^[,.\s]+`)

// Matcher tolerantly detects a small closed set of wake phrases.
type Matcher struct {
	phrases  []string
	patterns []*regexp.Regexp
	residues []*regexp.Regexp
	partials []*regexp.Regexp
}

// New builds a Matcher for the given phrases. If phrases is empty,
// DefaultPhrase is used.
func New(phrases ...string) *Matcher {
	if len(phrases) == 0 {
		phrases = []string{DefaultPhrase}
	}
	m := &Matcher{phrases: phrases}
	for _, p := range phrases {
		m.patterns = append(m.patterns, compileTolerant(p))
		if r := compileResidue(p); r != nil {
			m.residues = append(m.residues, r)
		}
		if r := compilePartialFinalWord(p); r != nil {
			m.partials = append(m.partials, r)
		}
	}
	return m
}

// tolerantWordPattern builds a case-insensitive pattern for one word that
// allows zero or more whitespace characters between any two adjacent
// characters of the word.
func tolerantWordPattern(w string) string {
	var b strings.Builder
	for i, r := range w {
		if i > 0 {
			b.WriteString(`\s*`)
		}
		b.WriteString(regexp.QuoteMeta(string(r)))
	}
	return b.String()
}

// compileTolerant builds a case-insensitive pattern for phrase that allows
// zero or more whitespace characters between any two adjacent non-space
// characters of the same word, and one or more whitespace characters where
// the phrase itself has a space.
func compileTolerant(phrase string) *regexp.Regexp {
	words := strings.Fields(phrase)
	wordPatterns := make([]string, 0, len(words))
	for _, w := range words {
		wordPatterns = append(wordPatterns, tolerantWordPattern(w))
	}
	return regexp.MustCompile(`(?i)` + strings.Join(wordPatterns, `\s+`))
}

// compilePartialFinalWord builds a pattern matching the phrase with its
// last word truncated to any 1..len-1 length prefix, anchored to the end
// of the text. This is the transcription-provider-split counterpart to
// compileResidue: a stream that cuts a final event off mid-word still arms
// the accumulator on the first utterance, and the remaining letters arrive
// as punctuated residue on the next one.
func compilePartialFinalWord(phrase string) *regexp.Regexp {
	words := strings.Fields(phrase)
	if len(words) == 0 {
		return nil
	}
	last := words[len(words)-1]
	if len(last) < 2 {
		return nil
	}

	parts := make([]string, 0, len(words))
	for _, w := range words[:len(words)-1] {
		parts = append(parts, tolerantWordPattern(w))
	}

	alts := make([]string, 0, len(last)-1)
	for n := len(last) - 1; n >= 1; n-- {
		alts = append(alts, tolerantWordPattern(last[:n]))
	}
	parts = append(parts, `(?:`+strings.Join(alts, "|")+`)`)

	return regexp.MustCompile(`(?i)` + strings.Join(parts, `\s+`) + `\s*$`)
}

// compileResidue builds a pattern matching a dangling suffix of the
// phrase's last word, followed by punctuation, e.g. "a," for "mentra" when
// the stream split "mentr" and "a, how much..." across utterances.
func compileResidue(phrase string) *regexp.Regexp {
	words := strings.Fields(phrase)
	if len(words) == 0 {
		return nil
	}
	last := words[len(words)-1]
	if len(last) < 2 {
		return nil
	}
	// Build an alternation of every 1..(len-1) length suffix, longest
	// first so the regex engine prefers the longest real match.
	var alts []string
	for n := len(last) - 1; n >= 1; n-- {
		alts = append(alts, regexp.QuoteMeta(last[len(last)-n:]))
	}
	pattern := `^(?:` + strings.Join(alts, "|") + `)[,.!?;:]+\s*`
	return regexp.MustCompile(pattern)
}

// Result is the outcome of Detect.
type Result struct {
	Matched        bool
	Index          int // byte offset of the match start in the original text
	TailAfterMatch string
}

// Detect reports whether any configured phrase occurs in text, and if so
// returns the trimmed, punctuation-stripped tail that follows the match. If
// no full phrase matches, it falls back to a truncated-final-word match
// (see compilePartialFinalWord) so a wake word split across utterance
// boundaries still arms listening on its first half.
func Detect(m *Matcher, text string) Result {
	best := Result{}
	found := false
	for _, p := range m.patterns {
		loc := p.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if !found || loc[0] < best.Index {
			tail := text[loc[1]:]
			tail = strings.TrimSpace(tail)
			tail = leadingPunctuation.ReplaceAllString(tail, "")
			tail = strings.TrimSpace(tail)
			best = Result{Matched: true, Index: loc[0], TailAfterMatch: tail}
			found = true
		}
	}
	if found {
		return best
	}

	for _, p := range m.partials {
		loc := p.FindStringIndex(text)
		if loc == nil {
			continue
		}
		tail := text[loc[1]:]
		tail = strings.TrimSpace(tail)
		tail = leadingPunctuation.ReplaceAllString(tail, "")
		tail = strings.TrimSpace(tail)
		return Result{Matched: true, Index: loc[0], TailAfterMatch: tail}
	}
	return best
}

// Detect is a convenience method form of the package-level function.
func (m *Matcher) Detect(text string) Result {
	return Detect(m, text)
}

// StripResidue removes a leading wake-word fragment (see compileResidue)
// from text. Text not beginning with such a fragment is returned
// unchanged.
func (m *Matcher) StripResidue(text string) string {
	for _, r := range m.residues {
		if loc := r.FindStringIndex(text); loc != nil && loc[0] == 0 {
			return text[loc[1]:]
		}
	}
	return text
}

// RemoveWakeWord strips a full wake-phrase match found anywhere in text,
// returning the remaining text with surrounding whitespace and leading
// punctuation cleaned up. Unlike Detect, this is meant to be applied
// defensively to already-listening text that may still carry a repeated
// wake word.
func (m *Matcher) RemoveWakeWord(text string) string {
	out := text
	for _, p := range m.patterns {
		out = p.ReplaceAllString(out, "")
	}
	out = strings.TrimSpace(out)
	out = leadingPunctuation.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}
