package interview

import (
	"strings"
	"time"

	"github.com/jonathan/interview-coach/internal/types"
)

// TranscriptRecorder accumulates transcription fragments for the current turn
// and commits them when the turn completes.
type TranscriptRecorder struct {
	ai    strings.Builder
	user  strings.Builder
	items []types.TranscriptionItem
	now   func() time.Time
}

// NewTranscriptRecorder creates an empty recorder stamping items with now.
func NewTranscriptRecorder(now func() time.Time) *TranscriptRecorder {
	if now == nil {
		now = time.Now
	}
	return &TranscriptRecorder{now: now}
}

// AppendOutput adds a fragment of model speech.
func (r *TranscriptRecorder) AppendOutput(text string) {
	r.ai.WriteString(text)
}

// AppendInput adds a fragment of candidate speech.
func (r *TranscriptRecorder) AppendInput(text string) {
	r.user.WriteString(text)
}

// Partial returns the uncommitted text for a speaker.
func (r *TranscriptRecorder) Partial(speaker types.Speaker) string {
	if speaker == types.SpeakerAI {
		return r.ai.String()
	}
	return r.user.String()
}

// Flush commits the buffered turn as an ai item followed by a user item, both
// stamped with the current time, and clears the buffers.
func (r *TranscriptRecorder) Flush() []types.TranscriptionItem {
	ts := r.now().UnixMilli()
	turn := []types.TranscriptionItem{
		{Speaker: types.SpeakerAI, Text: r.ai.String(), Timestamp: ts},
		{Speaker: types.SpeakerUser, Text: r.user.String(), Timestamp: ts},
	}
	r.items = append(r.items, turn...)
	r.ai.Reset()
	r.user.Reset()
	return turn
}

// Transcript returns a copy of the committed items.
func (r *TranscriptRecorder) Transcript() []types.TranscriptionItem {
	out := make([]types.TranscriptionItem, len(r.items))
	copy(out, r.items)
	return out
}
