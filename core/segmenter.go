package dialogue

import (
	"regexp"
	"strings"
)

// sentenceBoundary matches terminal punctuation followed by whitespace. The
// end-of-input case is covered by Flush.
var sentenceBoundary = regexp.MustCompile(`[.!?;]\s`)

// sentenceSegmenter extracts complete sentences from a growing text stream.
// Boundaries split across delta boundaries are handled because the trailing
// fragment carries over between Feed calls. It is owned by a single turn and
// never shared between goroutines.
type sentenceSegmenter struct {
	pending string
}

// Feed appends a delta and returns every sentence completed by it, in order.
// Sentences are trimmed of surrounding whitespace; blank sentences are
// dropped.
func (s *sentenceSegmenter) Feed(delta string) []string {
	s.pending += delta

	var sentences []string
	for {
		loc := sentenceBoundary.FindStringIndex(s.pending)
		if loc == nil {
			break
		}
		sentence := strings.TrimSpace(s.pending[:loc[1]])
		s.pending = s.pending[loc[1]:]
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
	}
	return sentences
}

// Flush returns the trailing fragment as a terminal sentence, or "" if
// nothing remains. The segmenter is empty afterwards.
func (s *sentenceSegmenter) Flush() string {
	sentence := strings.TrimSpace(s.pending)
	s.pending = ""
	return sentence
}
