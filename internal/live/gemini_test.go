package live

import (
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/jonathan/interview-coach/internal/media"
)

type fakeSession struct {
	mu       sync.Mutex
	sent     []genai.LiveRealtimeInput
	messages []*genai.LiveServerMessage
	recvErr  error
	closed   bool
}

func (f *fakeSession) SendRealtimeInput(input genai.LiveRealtimeInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, input)
	return nil
}

func (f *fakeSession) Receive() (*genai.LiveServerMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		if f.recvErr != nil {
			return nil, f.recvErr
		}
		return nil, io.EOF
	}
	msg := f.messages[0]
	f.messages = f.messages[1:]
	return msg, nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func TestTranslateMessage(t *testing.T) {
	tests := []struct {
		name    string
		content *genai.LiveServerContent
		want    []EventType
	}{
		{
			name:    "output transcription",
			content: &genai.LiveServerContent{OutputTranscription: &genai.Transcription{Text: "Hello"}},
			want:    []EventType{EventOutputTranscript},
		},
		{
			name:    "input transcription",
			content: &genai.LiveServerContent{InputTranscription: &genai.Transcription{Text: "Hi"}},
			want:    []EventType{EventInputTranscript},
		},
		{
			name: "output wins over input",
			content: &genai.LiveServerContent{
				OutputTranscription: &genai.Transcription{Text: "ai"},
				InputTranscription:  &genai.Transcription{Text: "user"},
			},
			want: []EventType{EventOutputTranscript},
		},
		{
			name: "empty output still suppresses input",
			content: &genai.LiveServerContent{
				OutputTranscription: &genai.Transcription{},
				InputTranscription:  &genai.Transcription{Text: "user"},
			},
			want: []EventType{},
		},
		{
			name:    "turn complete",
			content: &genai.LiveServerContent{TurnComplete: true},
			want:    []EventType{EventTurnComplete},
		},
		{
			name: "audio parts and interruption",
			content: &genai.LiveServerContent{
				ModelTurn: &genai.Content{Parts: []*genai.Part{
					{InlineData: &genai.Blob{MIMEType: "audio/pcm;rate=24000", Data: []byte{1, 2}}},
					{Text: "ignored"},
					{InlineData: &genai.Blob{MIMEType: "audio/pcm;rate=24000", Data: []byte{3, 4}}},
				}},
				Interrupted: true,
			},
			want: []EventType{EventAudio, EventAudio, EventInterrupted},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := TranslateMessage(&genai.LiveServerMessage{ServerContent: tt.content})
			got := make([]EventType, len(events))
			for i, ev := range events {
				got[i] = ev.Type
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslateMessageIgnoresNonContent(t *testing.T) {
	assert.Empty(t, TranslateMessage(nil))
	assert.Empty(t, TranslateMessage(&genai.LiveServerMessage{SetupComplete: &genai.LiveServerSetupComplete{}}))
}

func TestGeminiStreamReceive(t *testing.T) {
	fake := &fakeSession{messages: []*genai.LiveServerMessage{
		{SetupComplete: &genai.LiveServerSetupComplete{}},
		{ServerContent: &genai.LiveServerContent{
			OutputTranscription: &genai.Transcription{Text: "Welcome"},
			TurnComplete:        true,
		}},
	}}
	stream := &geminiStream{session: fake, pending: []Event{{Type: EventOpen}}}

	ev, err := stream.Receive()
	require.NoError(t, err)
	assert.Equal(t, EventOpen, ev.Type)

	ev, err = stream.Receive()
	require.NoError(t, err)
	assert.Equal(t, EventOutputTranscript, ev.Type)
	assert.Equal(t, "Welcome", ev.Text)

	ev, err = stream.Receive()
	require.NoError(t, err)
	assert.Equal(t, EventTurnComplete, ev.Type)

	_, err = stream.Receive()
	assert.ErrorIs(t, err, io.EOF)
}

func TestGeminiStreamReceiveError(t *testing.T) {
	boom := errors.New("connection reset")
	stream := &geminiStream{session: &fakeSession{recvErr: boom}}

	_, err := stream.Receive()
	assert.ErrorIs(t, err, boom)
}

func TestGeminiStreamSendAndClose(t *testing.T) {
	fake := &fakeSession{}
	stream := &geminiStream{session: fake}

	require.NoError(t, stream.SendAudio(media.Blob{MIMEType: media.MIMEAudioPCM16k, Data: []byte{0, 1}}))
	require.NoError(t, stream.SendImage(media.Blob{MIMEType: media.MIMEImageJPEG, Data: []byte{0xFF}}))
	require.Len(t, fake.sent, 2)
	assert.Equal(t, "audio/pcm;rate=16000", fake.sent[0].Audio.MIMEType)
	assert.Equal(t, "image/jpeg", fake.sent[1].Video.MIMEType)

	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())
	assert.True(t, fake.closed)

	assert.ErrorIs(t, stream.SendAudio(media.Blob{}), io.ErrClosedPipe)
}

func TestBuildConnectConfig(t *testing.T) {
	conf := buildConnectConfig(SessionConfig{SystemInstruction: "be nice", Transcription: true})

	assert.Equal(t, []genai.Modality{genai.ModalityAudio}, conf.ResponseModalities)
	assert.Equal(t, "Kore", conf.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
	require.NotNil(t, conf.SystemInstruction)
	assert.Equal(t, "be nice", conf.SystemInstruction.Parts[0].Text)
	assert.NotNil(t, conf.InputAudioTranscription)
	assert.NotNil(t, conf.OutputAudioTranscription)

	bare := buildConnectConfig(SessionConfig{Voice: "Puck"})
	assert.Nil(t, bare.SystemInstruction)
	assert.Nil(t, bare.InputAudioTranscription)
	assert.Equal(t, "Puck", bare.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName)
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "turn_complete", EventTurnComplete.String())
	assert.Equal(t, "event(99)", EventType(99).String())
}
