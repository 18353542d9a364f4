package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/jonathan/interview-coach/internal/interview"
	"github.com/jonathan/interview-coach/internal/media"
	"github.com/jonathan/interview-coach/internal/stage"
	"github.com/jonathan/interview-coach/internal/types"
)

const (
	writeTimeout      = 5 * time.Second
	pingInterval      = 20 * time.Second
	pongWait          = 60 * time.Second
	permissionTimeout = 2 * time.Minute
	maxMessageBytes   = 8 << 20
	outboundQueueSize = 256
	audioQueueSize    = 64
)

// PermissionError reports a device the user declined to share.
type PermissionError struct {
	Device string
	Reason string
}

func (e *PermissionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("permission denied for %s media", e.Device)
	}
	return fmt.Sprintf("permission denied for %s media: %s", e.Device, e.Reason)
}

// handleLive upgrades to a WebSocket and runs the live interview with the
// browser acting as the capture and playback device.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.get(r.PathValue("id"))
	if err != nil {
		s.errorFor(w, err)
		return
	}
	logger := s.sessionLogger(sess)

	snap := sess.controller.Snapshot()
	switch {
	case snap.Stage != types.StageInterview || snap.Resume == nil:
		s.errorFor(w, &ErrConflict{Message: "interview has not been configured"})
		return
	case snap.FeedbackError != "":
		s.errorFor(w, &ErrConflict{Message: "interview already finished; retry feedback instead"})
		return
	case sess.busy():
		s.errorFor(w, &ErrConflict{Message: "a live interview is already connected"})
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	bridge := newBrowserBridge(conn, logger)
	go bridge.runWriter()
	defer bridge.shutdown()

	liveSession := interview.NewSession(interview.Options{
		Resume:    *snap.Resume,
		Config:    snap.Config,
		Transport: s.transport,
		Devices:   bridge,
		Listener:  bridge,
		Clock:     bridge.clock,
		Model:     s.cfg.LiveModel,
		Logger:    logger,
		OnEnd: func(transcript []types.TranscriptionItem) {
			s.finishLive(sess, bridge, transcript)
		},
	})
	if err := sess.attach(liveSession); err != nil {
		bridge.sendError("busy", err.Error())
		return
	}
	defer sess.detach(liveSession)

	go bridge.readLoop(liveSession)

	if err := liveSession.Start(r.Context()); err != nil {
		code := "start_failed"
		var denied *PermissionError
		if errors.As(err, &denied) {
			code = "permission_denied"
		}
		bridge.sendError(code, err.Error())
		return
	}

	select {
	case <-liveSession.Done():
	case <-bridge.readDone:
		liveSession.End()
	}
	if err := liveSession.Wait(); err != nil {
		logger.WithError(err).Warn("Live session finished with error")
	}
}

// finishLive is the session end handler: it generates feedback and pushes the
// outcome to the browser.
func (s *Server) finishLive(sess *interviewSession, bridge *browserBridge, transcript []types.TranscriptionItem) {
	report, err := s.completeInterview(context.Background(), sess, transcript)
	if err != nil {
		var transition *stage.TransitionError
		if errors.As(err, &transition) {
			return
		}
		bridge.sendError("feedback_failed", "Failed to generate feedback. Please try again.")
		return
	}
	bridge.send(feedbackMessage{Type: msgFeedback, Feedback: report})
}

type permission struct {
	granted bool
	reason  string
}

func (p permission) err(device string) error {
	if !p.granted {
		return &PermissionError{Device: device, Reason: p.reason}
	}
	return nil
}

// browserBridge adapts one WebSocket connection to the interview session: it
// is the session's Devices and Listener.
type browserBridge struct {
	conn   *websocket.Conn
	logger *log.Entry
	clock  *interview.ReportedClock

	permissions map[string]chan permission

	mu      sync.Mutex
	user    *browserUserMedia
	display *browserDisplayMedia

	out        chan []byte
	stop       chan struct{}
	stopOnce   sync.Once
	writerDone chan struct{}
	readDone   chan struct{}
	ended      chan struct{}
	endOnce    sync.Once
}

var (
	_ interview.Devices  = (*browserBridge)(nil)
	_ interview.Listener = (*browserBridge)(nil)
)

func newBrowserBridge(conn *websocket.Conn, logger *log.Entry) *browserBridge {
	return &browserBridge{
		conn:   conn,
		logger: logger,
		clock:  interview.NewReportedClock(),
		permissions: map[string]chan permission{
			deviceUserMedia:    make(chan permission, 1),
			deviceDisplayMedia: make(chan permission, 1),
		},
		out:        make(chan []byte, outboundQueueSize),
		stop:       make(chan struct{}),
		writerDone: make(chan struct{}),
		readDone:   make(chan struct{}),
		ended:      make(chan struct{}),
	}
}

// OpenUserMedia waits for the browser to report the microphone and camera grant.
func (b *browserBridge) OpenUserMedia(ctx context.Context) (interview.UserMedia, error) {
	if err := b.awaitPermission(ctx, deviceUserMedia); err != nil {
		return nil, err
	}
	m := newBrowserUserMedia()
	b.mu.Lock()
	b.user = m
	b.mu.Unlock()
	return m, nil
}

// OpenDisplayMedia waits for the browser to report the screen share grant.
func (b *browserBridge) OpenDisplayMedia(ctx context.Context) (interview.DisplayMedia, error) {
	if err := b.awaitPermission(ctx, deviceDisplayMedia); err != nil {
		return nil, err
	}
	m := &browserDisplayMedia{}
	b.mu.Lock()
	b.display = m
	b.mu.Unlock()
	return m, nil
}

func (b *browserBridge) awaitPermission(ctx context.Context, device string) error {
	// An answer that already arrived wins over a later end or disconnect.
	select {
	case p := <-b.permissions[device]:
		return p.err(device)
	default:
	}

	timer := time.NewTimer(permissionTimeout)
	defer timer.Stop()

	select {
	case p := <-b.permissions[device]:
		return p.err(device)
	case <-b.ended:
		return fmt.Errorf("interview ended before %s media was shared", device)
	case <-b.readDone:
		return fmt.Errorf("browser disconnected before %s media was shared", device)
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("timed out waiting for %s media permission", device)
	}
}

func (b *browserBridge) readLoop(sess *interview.Session) {
	defer close(b.readDone)

	b.conn.SetReadLimit(maxMessageBytes)
	_ = b.conn.SetReadDeadline(time.Now().Add(pongWait))
	b.conn.SetPongHandler(func(string) error {
		return b.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := b.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.logger.WithError(err).Warn("Browser connection lost")
			}
			return
		}
		_ = b.conn.SetReadDeadline(time.Now().Add(pongWait))
		if messageType != websocket.TextMessage {
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			b.sendError("bad_request", "invalid message")
			continue
		}
		if err := b.dispatch(sess, msg); err != nil {
			b.logger.WithError(err).WithField("type", msg.Type).Debug("Rejected browser message")
			b.sendError("bad_request", err.Error())
		}
	}
}

func (b *browserBridge) dispatch(sess *interview.Session, msg clientMessage) error {
	switch msg.Type {
	case msgMedia:
		ch, ok := b.permissions[msg.Device]
		if !ok {
			return fmt.Errorf("unknown device %q", msg.Device)
		}
		select {
		case ch <- permission{granted: msg.Granted, reason: msg.Error}:
		default:
		}

	case msgAudio:
		if msg.SampleRate <= 0 {
			return fmt.Errorf("audio sample_rate is required")
		}
		raw, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			return fmt.Errorf("invalid audio payload: %w", err)
		}
		samples, err := media.ParseFloat32Bytes(raw)
		if err != nil {
			return err
		}
		b.mu.Lock()
		user := b.user
		b.mu.Unlock()
		if user != nil && !user.push(interview.AudioChunk{Samples: samples, SampleRate: msg.SampleRate}) {
			b.logger.Debug("Dropped microphone chunk")
		}

	case msgScreenFrame:
		raw, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			return fmt.Errorf("invalid screen frame payload: %w", err)
		}
		frame, err := media.DecodeFrame(raw)
		if err != nil {
			return err
		}
		b.mu.Lock()
		display := b.display
		b.mu.Unlock()
		if display != nil {
			display.setFrame(frame)
		}

	case msgPlaybackClock:
		b.clock.Report(msg.Time)

	case msgPlaybackEnded:
		sess.PlaybackEnded(msg.SourceID)

	case msgEnd:
		b.endOnce.Do(func() { close(b.ended) })
		sess.End()

	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return nil
}

// runWriter owns every data write to the connection.
func (b *browserBridge) runWriter() {
	defer close(b.writerDone)

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-b.stop:
			b.drain()
			_ = b.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
			return
		case <-ping.C:
			if err := b.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeTimeout)); err != nil {
				b.fail(err)
				return
			}
		case payload := <-b.out:
			if err := b.write(payload); err != nil {
				b.fail(err)
				return
			}
		}
	}
}

// drain flushes messages queued before shutdown.
func (b *browserBridge) drain() {
	for {
		select {
		case payload := <-b.out:
			if err := b.write(payload); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (b *browserBridge) write(payload []byte) error {
	if err := b.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return b.conn.WriteMessage(websocket.TextMessage, payload)
}

func (b *browserBridge) fail(err error) {
	b.logger.WithError(err).Warn("Failed to write to browser")
	_ = b.conn.Close()
}

// shutdown flushes pending messages, closes the socket and waits for the writer.
func (b *browserBridge) shutdown() {
	b.stopOnce.Do(func() { close(b.stop) })
	<-b.writerDone
	_ = b.conn.Close()

	b.mu.Lock()
	user, display := b.user, b.display
	b.mu.Unlock()
	if user != nil {
		user.Stop()
	}
	if display != nil {
		display.Stop()
	}
}

func (b *browserBridge) send(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		b.logger.WithError(err).Error("Failed to encode browser message")
		return
	}
	select {
	case b.out <- payload:
	case <-b.writerDone:
	case <-b.stop:
	}
}

func (b *browserBridge) sendError(code, message string) {
	b.send(errorMessage{Type: msgError, Code: code, Message: message})
}

func (b *browserBridge) OnStateChange(state interview.State) {
	b.send(stateMessage{Type: msgState, State: state.String()})
}

func (b *browserBridge) OnPartialTranscript(speaker types.Speaker, text string) {
	b.send(partialMessage{Type: msgPartial, Speaker: speaker, Text: text})
}

func (b *browserBridge) OnTurnComplete(turn []types.TranscriptionItem) {
	b.send(transcriptMessage{Type: msgTranscript, Items: turn})
}

func (b *browserBridge) OnAudio(src interview.ScheduledSource) {
	b.send(audioMessage{
		Type:       msgAudio,
		SourceID:   src.ID,
		Start:      src.Start,
		Duration:   src.Duration,
		SampleRate: src.Buffer.SampleRate,
		Data:       base64.StdEncoding.EncodeToString(media.Float32Bytes(src.Buffer.Samples)),
	})
}

func (b *browserBridge) OnStopPlayback(ids []string) {
	b.send(stopPlaybackMessage{Type: msgStopPlayback, SourceIDs: ids})
}

func (b *browserBridge) OnTick(remaining int) {
	b.send(tickMessage{Type: msgTick, Remaining: remaining})
}

// browserUserMedia receives microphone buffers forwarded by the browser.
type browserUserMedia struct {
	audio   chan interview.AudioChunk
	stopped chan struct{}
	once    sync.Once
}

func newBrowserUserMedia() *browserUserMedia {
	return &browserUserMedia{
		audio:   make(chan interview.AudioChunk, audioQueueSize),
		stopped: make(chan struct{}),
	}
}

func (m *browserUserMedia) Audio() <-chan interview.AudioChunk {
	return m.audio
}

func (m *browserUserMedia) Stop() {
	m.once.Do(func() { close(m.stopped) })
}

// push queues a chunk without blocking. It reports false when the chunk was dropped.
func (m *browserUserMedia) push(chunk interview.AudioChunk) bool {
	select {
	case <-m.stopped:
		return false
	default:
	}
	select {
	case m.audio <- chunk:
		return true
	default:
		return false
	}
}

// browserDisplayMedia holds the most recent screen-share frame.
type browserDisplayMedia struct {
	mu      sync.Mutex
	frame   image.Image
	stopped bool
}

func (m *browserDisplayMedia) LatestFrame() (image.Image, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frame, m.frame != nil
}

func (m *browserDisplayMedia) setFrame(frame image.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.stopped {
		m.frame = frame
	}
}

func (m *browserDisplayMedia) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	m.frame = nil
}
