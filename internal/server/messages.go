package server

import (
	"github.com/jonathan/interview-coach/internal/types"
)

// Browser → server message types
const (
	msgMedia         = "media"
	msgAudio         = "audio"
	msgScreenFrame   = "screen_frame"
	msgPlaybackClock = "playback_clock"
	msgPlaybackEnded = "playback_ended"
	msgEnd           = "end"
)

// Devices named in media messages
const (
	deviceUserMedia    = "user"
	deviceDisplayMedia = "display"
)

// Server → browser message types
const (
	msgState        = "state"
	msgPartial      = "partial"
	msgTranscript   = "transcript"
	msgStopPlayback = "stop_playback"
	msgTick         = "tick"
	msgFeedback     = "feedback"
	msgError        = "error"
)

// clientMessage is any message sent by the browser. Fields not used by a
// given type are left empty.
type clientMessage struct {
	Type string `json:"type"`

	// media: permission result for one device
	Device  string `json:"device,omitempty"`
	Granted bool   `json:"granted,omitempty"`
	Error   string `json:"error,omitempty"`

	// audio: base64 float32le samples; screen_frame: base64 PNG or JPEG
	Data       string `json:"data,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`

	// playback_clock: AudioContext.currentTime in seconds
	Time float64 `json:"time,omitempty"`

	// playback_ended
	SourceID string `json:"source_id,omitempty"`
}

type stateMessage struct {
	Type  string `json:"type"`
	State string `json:"state"`
}

type partialMessage struct {
	Type    string        `json:"type"`
	Speaker types.Speaker `json:"speaker"`
	Text    string        `json:"text"`
}

type transcriptMessage struct {
	Type  string                    `json:"type"`
	Items []types.TranscriptionItem `json:"items"`
}

// audioMessage carries one scheduled chunk of model speech.
type audioMessage struct {
	Type       string  `json:"type"`
	SourceID   string  `json:"source_id"`
	Start      float64 `json:"start"`
	Duration   float64 `json:"duration"`
	SampleRate int     `json:"sample_rate"`
	Data       string  `json:"data"`
}

type stopPlaybackMessage struct {
	Type      string   `json:"type"`
	SourceIDs []string `json:"source_ids"`
}

type tickMessage struct {
	Type      string `json:"type"`
	Remaining int    `json:"remaining"`
}

type feedbackMessage struct {
	Type     string              `json:"type"`
	Feedback *types.FeedbackData `json:"feedback"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
