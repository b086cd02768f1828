package turn

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMinSpeechChars is the speech buffer length that triggers synthesis.
const DefaultMinSpeechChars = 50

var (
	// terminal punctuation followed by whitespace; abbreviations and decimals are not special-cased
	sentenceBoundary = regexp.MustCompile(`[.!?]\s`)
	parenthetical    = regexp.MustCompile(`\s*\(.*?\)`)
	cannedBoundary   = regexp.MustCompile(`[.!?\n]+(?:\s+|$)`)
)

// Segment pairs the text shown to the user with the text sent to synthesis.
type Segment struct {
	Raw    string
	Speech string
}

// CleanForSpeech removes parenthetical asides such as translation hints.
func CleanForSpeech(text string) string {
	return strings.TrimSpace(parenthetical.ReplaceAllString(text, ""))
}

// SplitCanned cuts text after each run of terminal punctuation or newlines,
// keeping the delimiter with the preceding text. Whitespace-only pieces are dropped.
func SplitCanned(text string) []string {
	var out []string
	prev := 0
	for _, loc := range cannedBoundary.FindAllStringIndex(text, -1) {
		out = appendNonBlank(out, text[prev:loc[1]])
		prev = loc[1]
	}
	if prev < len(text) {
		out = appendNonBlank(out, text[prev:])
	}
	return out
}

func appendNonBlank(out []string, s string) []string {
	if strings.TrimSpace(s) == "" {
		return out
	}
	return append(out, s)
}

// SentenceBuffer turns incremental model text into speech-sized segments.
// Concatenating the Raw fields of every segment it returns, including the final
// Flush, yields exactly the text that was pushed.
type SentenceBuffer struct {
	minChars int
	pending  string // text not yet cut at a boundary
	raw      string // cut text since the last segment
	speech   string // cleaned text since the last segment
}

// NewSentenceBuffer returns a buffer that emits once the speech text exceeds
// minChars runes. Non-positive values fall back to DefaultMinSpeechChars.
func NewSentenceBuffer(minChars int) *SentenceBuffer {
	if minChars <= 0 {
		minChars = DefaultMinSpeechChars
	}
	return &SentenceBuffer{minChars: minChars}
}

// Push appends text and returns any segments that became ready.
func (b *SentenceBuffer) Push(text string) []Segment {
	b.pending += text

	var out []Segment
	for {
		loc := sentenceBoundary.FindStringIndex(b.pending)
		if loc == nil {
			break
		}
		sentence := b.pending[:loc[1]]
		b.pending = b.pending[loc[1]:]
		b.take(sentence)

		if utf8.RuneCountInString(b.speech) > b.minChars {
			out = append(out, b.cut())
		}
	}
	return out
}

// Flush emits whatever is left, even below the threshold.
func (b *SentenceBuffer) Flush() (Segment, bool) {
	b.take(b.pending)
	b.pending = ""
	if b.raw == "" {
		return Segment{}, false
	}
	return b.cut(), true
}

func (b *SentenceBuffer) take(sentence string) {
	b.raw += sentence
	if cleaned := CleanForSpeech(sentence); cleaned != "" {
		b.speech += " " + cleaned
	}
}

func (b *SentenceBuffer) cut() Segment {
	seg := Segment{Raw: b.raw, Speech: strings.TrimSpace(b.speech)}
	b.raw, b.speech = "", ""
	return seg
}
