package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"google.golang.org/genai"

	"github.com/jonathan/interview-coach/internal/media"
)

// DefaultModel is the native-audio model used for interviews.
const DefaultModel = "gemini-2.5-flash-native-audio-preview-09-2025"

// GeminiTransport connects to the Gemini Live API.
type GeminiTransport struct {
	client *genai.Client
	model  string
}

// NewGeminiTransport creates a transport authenticated with apiKey.
func NewGeminiTransport(ctx context.Context, apiKey, model string) (*GeminiTransport, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required for live transport")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create live client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &GeminiTransport{client: client, model: model}, nil
}

// Connect opens a live session configured for spoken responses.
func (t *GeminiTransport) Connect(ctx context.Context, cfg SessionConfig) (Stream, error) {
	model := cfg.Model
	if model == "" {
		model = t.model
	}

	session, err := t.client.Live.Connect(ctx, model, buildConnectConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect live session: %w", err)
	}

	return &geminiStream{
		session: session,
		pending: []Event{{Type: EventOpen}},
	}, nil
}

func buildConnectConfig(cfg SessionConfig) *genai.LiveConnectConfig {
	voice := cfg.Voice
	if voice == "" {
		voice = DefaultVoice
	}

	conf := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}
	if cfg.SystemInstruction != "" {
		conf.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: cfg.SystemInstruction}},
		}
	}
	if cfg.Transcription {
		conf.InputAudioTranscription = &genai.AudioTranscriptionConfig{}
		conf.OutputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}
	return conf
}

// liveSession is the subset of *genai.Session the stream uses.
type liveSession interface {
	SendRealtimeInput(input genai.LiveRealtimeInput) error
	Receive() (*genai.LiveServerMessage, error)
	Close() error
}

type geminiStream struct {
	session liveSession

	sendMu sync.Mutex

	closeMu sync.Mutex
	closed  bool

	// pending holds events already decoded from a message but not yet returned.
	pending []Event
}

func (s *geminiStream) SendAudio(blob media.Blob) error {
	return s.send(genai.LiveRealtimeInput{
		Audio: &genai.Blob{MIMEType: blob.MIMEType, Data: blob.Data},
	})
}

func (s *geminiStream) SendImage(blob media.Blob) error {
	return s.send(genai.LiveRealtimeInput{
		Video: &genai.Blob{MIMEType: blob.MIMEType, Data: blob.Data},
	})
}

func (s *geminiStream) send(input genai.LiveRealtimeInput) error {
	if s.isClosed() {
		return io.ErrClosedPipe
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.session.SendRealtimeInput(input)
}

func (s *geminiStream) Receive() (Event, error) {
	for len(s.pending) == 0 {
		msg, err := s.session.Receive()
		if err != nil {
			if s.isClosed() || errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		s.pending = TranslateMessage(msg)
	}

	ev := s.pending[0]
	s.pending = s.pending[1:]
	return ev, nil
}

func (s *geminiStream) Close() error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return nil
	}
	s.closed = true
	s.closeMu.Unlock()
	return s.session.Close()
}

func (s *geminiStream) isClosed() bool {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	return s.closed
}

// TranslateMessage expands one server message into transport events, in the
// order transcript, turn complete, audio, interrupted. When a message carries
// an output transcription the input transcription is ignored, even if the
// output text is empty. Empty fragments produce no event.
func TranslateMessage(msg *genai.LiveServerMessage) []Event {
	if msg == nil || msg.ServerContent == nil {
		return nil
	}
	content := msg.ServerContent

	var events []Event
	if out := content.OutputTranscription; out != nil {
		if out.Text != "" {
			events = append(events, Event{Type: EventOutputTranscript, Text: out.Text})
		}
	} else if in := content.InputTranscription; in != nil && in.Text != "" {
		events = append(events, Event{Type: EventInputTranscript, Text: in.Text})
	}

	if content.TurnComplete {
		events = append(events, Event{Type: EventTurnComplete})
	}

	if content.ModelTurn != nil {
		for _, part := range content.ModelTurn.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			events = append(events, Event{
				Type: EventAudio,
				Audio: media.Blob{
					MIMEType: part.InlineData.MIMEType,
					Data:     part.InlineData.Data,
				},
			})
		}
	}

	if content.Interrupted {
		events = append(events, Event{Type: EventInterrupted})
	}
	return events
}
