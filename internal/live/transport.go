// Package live defines the bidirectional streaming connection to the live
// interviewer model and its Gemini implementation.
package live

import (
	"context"
	"fmt"

	"github.com/jonathan/interview-coach/internal/media"
)

// EventType identifies an inbound transport event.
type EventType int

const (
	EventOpen EventType = iota
	EventClose
	EventError
	EventInputTranscript
	EventOutputTranscript
	EventTurnComplete
	EventAudio
	EventInterrupted
)

func (t EventType) String() string {
	switch t {
	case EventOpen:
		return "open"
	case EventClose:
		return "close"
	case EventError:
		return "error"
	case EventInputTranscript:
		return "input_transcript"
	case EventOutputTranscript:
		return "output_transcript"
	case EventTurnComplete:
		return "turn_complete"
	case EventAudio:
		return "audio"
	case EventInterrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// Event is one inbound signal from the model.
type Event struct {
	Type EventType
	// Text carries the transcription fragment for transcript events.
	Text string
	// Audio carries PCM16 model speech for EventAudio.
	Audio media.Blob
	// Err is set for EventError and, when the stream failed, EventClose.
	Err error
}

// SessionConfig is sent once when the connection is established.
type SessionConfig struct {
	Model             string
	SystemInstruction string
	Voice             string
	// Transcription enables both input and output transcripts.
	Transcription bool
}

// DefaultVoice is the prebuilt interviewer voice.
const DefaultVoice = "Kore"

// Transport opens live streams.
type Transport interface {
	Connect(ctx context.Context, cfg SessionConfig) (Stream, error)
}

// Stream is an open live connection. Send methods are safe for concurrent use;
// Receive must be called from a single goroutine.
type Stream interface {
	SendAudio(blob media.Blob) error
	SendImage(blob media.Blob) error
	// Receive blocks until the next event. It returns io.EOF once the stream
	// has been closed locally.
	Receive() (Event, error)
	Close() error
}
