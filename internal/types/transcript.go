//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"strings"
)

// Speaker identifies who produced a transcript entry
type Speaker string

// Speaker constants
const (
	SpeakerUser Speaker = "user"
	SpeakerAI   Speaker = "ai"
)

// TranscriptionItem is one committed utterance in the interview transcript.
// Items are appended in arrival order and never mutated afterwards.
type TranscriptionItem struct {
	Speaker   Speaker `json:"speaker"`
	Text      string  `json:"text"`
	Timestamp int64   `json:"timestamp"` // epoch milliseconds
}

// Line renders the item as "speaker: text".
func (t TranscriptionItem) Line() string {
	return fmt.Sprintf("%s: %s", t.Speaker, t.Text)
}

// FormatTranscript serializes a transcript to newline-separated "speaker: text" lines.
func FormatTranscript(items []TranscriptionItem) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = item.Line()
	}
	return strings.Join(lines, "\n")
}

// CloneTranscript copies a transcript slice.
func CloneTranscript(items []TranscriptionItem) []TranscriptionItem {
	if items == nil {
		return nil
	}
	return append([]TranscriptionItem(nil), items...)
}
