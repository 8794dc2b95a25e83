package dialogue

import (
	"regexp"
	"strings"
)

// Text cleanup applied to each sentence before synthesis. Synthesis engines
// produce noticeably better prosody when sentences end with terminal
// punctuation and very long unpunctuated runs are broken up.

var (
	sentencePunct   = regexp.MustCompile(`[.!?;:]`)
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	newlinePadding  = regexp.MustCompile(` *\n *`)
	paragraphSplit  = regexp.MustCompile(`\n{2,}`)
)

const periodInjectionInterval = 18

// normalizeSpokenText collapses whitespace, flattens typography the
// synthesis API mispronounces and makes sure every paragraph ends in
// terminal punctuation.
func normalizeSpokenText(text string) string {
	value := strings.ReplaceAll(text, "\r\n", "\n")
	value = strings.ReplaceAll(value, "\r", "\n")
	value = strings.ReplaceAll(value, "…", "...")
	value = strings.ReplaceAll(value, "—", " - ")
	value = strings.ReplaceAll(value, "–", " - ")
	value = horizontalSpace.ReplaceAllString(value, " ")
	value = strings.TrimSpace(newlinePadding.ReplaceAllString(value, "\n"))
	if value == "" {
		return ""
	}

	var normalized []string
	for _, paragraph := range paragraphSplit.Split(value, -1) {
		if paragraph = normalizeParagraph(paragraph); paragraph != "" {
			normalized = append(normalized, paragraph)
		}
	}
	return strings.TrimSpace(strings.Join(normalized, "\n\n"))
}

func normalizeParagraph(paragraph string) string {
	text := strings.TrimSpace(horizontalSpace.ReplaceAllString(paragraph, " "))
	if text == "" {
		return ""
	}

	words := strings.Fields(text)
	punctCount := len(sentencePunct.FindAllString(text, -1))
	if punctCount == 0 && len(words) >= periodInjectionInterval {
		return injectPeriods(words)
	}
	if punctCount <= 1 && len(words) >= 30 {
		return injectPeriods(words)
	}

	if !strings.ContainsRune(".!?", rune(text[len(text)-1])) {
		text += "."
	}
	return text
}

// injectPeriods breaks an unpunctuated word run into period-terminated
// segments so the synthesizer pauses somewhere sensible.
func injectPeriods(words []string) string {
	var segments []string
	var buffer []string
	flush := func() {
		if len(buffer) == 0 {
			return
		}
		piece := strings.TrimSpace(strings.Join(buffer, " "))
		if piece != "" {
			if !strings.ContainsRune(".!?", rune(piece[len(piece)-1])) {
				piece += "."
			}
			segments = append(segments, piece)
		}
		buffer = nil
	}

	for _, word := range words {
		buffer = append(buffer, word)
		if len(buffer) >= periodInjectionInterval {
			flush()
		}
	}
	flush()

	return strings.Join(segments, " ")
}
