package ai

import (
	"fmt"
	"strconv"
	"strings"

	speechmodel "github.com/fluentpal/tutor/backend/internal/model/speech"
)

const (
	lessonHeader        = "\n\n--- CURRENT LESSON CONTEXT ---\n"
	pronunciationHeader = "\n\n--- PRONUNCIATION ASSESSMENT DATA ---\n"
	pronunciationFooter = "\n\nIntegrate relevant pronunciation tips naturally into your response (1-2 sentences max)."
)

// ComposeSystemPrompt layers the lesson fragment and pronunciation feedback on
// top of the persona prompt. Empty parts are skipped.
func ComposeSystemPrompt(personaPrompt, lessonFragment string, assessment *speechmodel.PronunciationAssessment) string {
	var b strings.Builder
	b.WriteString(personaPrompt)

	if lessonFragment != "" {
		b.WriteString(lessonHeader)
		b.WriteString(lessonFragment)
	}

	if assessment != nil {
		b.WriteString(pronunciationHeader)
		b.WriteString(FormatPronunciationFeedback(assessment))
		b.WriteString(pronunciationFooter)
	}

	return b.String()
}

// FormatPronunciationFeedback renders scores and flagged words for the model.
func FormatPronunciationFeedback(a *speechmodel.PronunciationAssessment) string {
	if a == nil {
		return ""
	}

	lines := []string{
		"Pronunciation Scores:",
		fmt.Sprintf("- Overall: %s/100", formatScore(a.Overall)),
		fmt.Sprintf("- Accuracy: %s/100", formatScore(a.Accuracy)),
		fmt.Sprintf("- Fluency: %s/100", formatScore(a.Fluency)),
		fmt.Sprintf("- Completeness: %s/100", formatScore(a.Completeness)),
	}

	flagged := a.Mispronounced()
	if len(flagged) == 0 {
		lines = append(lines, "\nNo significant pronunciation errors detected.")
		return strings.Join(lines, "\n")
	}

	lines = append(lines, fmt.Sprintf("\nMispronounced words (%d):", len(flagged)))
	for _, w := range flagged {
		lines = append(lines, fmt.Sprintf("- '%s' (accuracy: %s/100, error: %s)", w.Word, formatScore(w.Accuracy), w.ErrorType))
	}
	return strings.Join(lines, "\n")
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
