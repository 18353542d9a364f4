// Package interview runs a live mock-interview session: it captures candidate
// media, streams it to the live model, schedules the model's spoken replies,
// records the transcript and enforces the interview time limit.
package interview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/interview-coach/internal/live"
	"github.com/jonathan/interview-coach/internal/media"
	"github.com/jonathan/interview-coach/internal/types"
)

// State is the lifecycle state of a session.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateActive
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Default producer cadences.
const (
	DefaultTickInterval  = time.Second
	DefaultFrameInterval = 2 * time.Second
)

// Listener receives session output. Callbacks are never concurrent. The
// Connecting state change, and the Idle change after a failed Start, are
// reported on the goroutine calling Start before the run loop exists; every
// other callback runs on the run loop goroutine.
type Listener interface {
	OnStateChange(state State)
	OnPartialTranscript(speaker types.Speaker, text string)
	OnTurnComplete(turn []types.TranscriptionItem)
	OnAudio(src ScheduledSource)
	OnStopPlayback(ids []string)
	OnTick(remaining int)
}

// NopListener ignores every callback. Embed it to implement a subset.
type NopListener struct{}

func (NopListener) OnStateChange(State) {}
func (NopListener) OnPartialTranscript(types.Speaker, string) {}
func (NopListener) OnTurnComplete([]types.TranscriptionItem) {}
func (NopListener) OnAudio(ScheduledSource) {}
func (NopListener) OnStopPlayback([]string) {}
func (NopListener) OnTick(int) {}

// EndHandler receives the committed transcript once the session ends.
type EndHandler func(transcript []types.TranscriptionItem)

// Options configures a Session.
type Options struct {
	Resume    types.ResumeData
	Config    types.InterviewConfig
	Transport live.Transport
	Devices   Devices
	Listener  Listener
	OnEnd     EndHandler

	// Clock is the playback timeline. Defaults to a ReportedClock.
	Clock Clock
	// Model overrides the transport's default live model.
	Model string

	TickInterval  time.Duration
	FrameInterval time.Duration
	// Now stamps transcript items. Defaults to time.Now.
	Now func() time.Time

	Logger *log.Entry
}

// Session owns all mutable state of one live interview.
type Session struct {
	opts   Options
	logger *log.Entry

	recorder  *TranscriptRecorder
	scheduler *PlaybackScheduler
	countdown *Countdown

	mu            sync.Mutex
	state         State
	user          UserMedia
	display       DisplayMedia
	stream        live.Stream
	group         *errgroup.Group
	cancel        context.CancelFunc
	stopProducers context.CancelFunc

	endCh    chan struct{}
	endOnce  sync.Once
	controls chan func()
	done     chan struct{}
}

// NewSession creates an idle session.
func NewSession(opts Options) *Session {
	if opts.Listener == nil {
		opts.Listener = NopListener{}
	}
	if opts.Clock == nil {
		opts.Clock = NewReportedClock()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "interview")
	}

	return &Session{
		opts:      opts,
		logger:    logger,
		recorder:  NewTranscriptRecorder(opts.Now),
		scheduler: NewPlaybackScheduler(opts.Clock),
		countdown: NewCountdown(opts.Config),
		endCh:     make(chan struct{}),
		controls:  make(chan func()),
		done:      make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start acquires devices, connects to the live model and begins processing
// events. On any failure everything acquired so far is released, the session
// returns to Idle and the error is returned.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("cannot start session in state %s", state)
	}
	s.state = StateConnecting
	s.mu.Unlock()
	s.opts.Listener.OnStateChange(StateConnecting)

	user, err := s.opts.Devices.OpenUserMedia(ctx)
	if err != nil {
		return s.abort(fmt.Errorf("failed to acquire microphone and camera: %w", err))
	}

	display, err := s.opts.Devices.OpenDisplayMedia(ctx)
	if err != nil {
		user.Stop()
		return s.abort(fmt.Errorf("failed to acquire screen share: %w", err))
	}

	stream, err := s.opts.Transport.Connect(ctx, live.SessionConfig{
		Model:             s.opts.Model,
		SystemInstruction: BuildSystemPrompt(s.opts.Resume, s.opts.Config),
		Voice:             live.DefaultVoice,
		Transcription:     true,
	})
	if err != nil {
		user.Stop()
		display.Stop()
		return s.abort(err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)

	s.mu.Lock()
	s.user = user
	s.display = display
	s.stream = stream
	s.group = g
	s.cancel = cancel
	s.mu.Unlock()

	events := make(chan live.Event, 64)
	g.Go(func() error { return s.readEvents(gctx, stream, events) })
	g.Go(func() error { return s.run(gctx, events) })
	return nil
}

func (s *Session) abort(err error) error {
	s.mu.Lock()
	s.state = StateIdle
	s.mu.Unlock()

	s.logger.WithError(err).Error("Failed to start interview session")
	s.opts.Listener.OnStateChange(StateIdle)
	return err
}

// End stops the session. It is safe to call more than once and from any
// goroutine.
func (s *Session) End() {
	s.endOnce.Do(func() { close(s.endCh) })
}

// Wait blocks until a started session has fully shut down.
func (s *Session) Wait() error {
	s.mu.Lock()
	g := s.group
	s.mu.Unlock()
	if g == nil {
		return nil
	}
	return g.Wait()
}

// Done is closed when the run loop exits.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// PlaybackEnded reports that the device finished playing a source.
func (s *Session) PlaybackEnded(id string) {
	s.do(func() { s.scheduler.Ended(id) })
}

// Transcript returns the committed transcript. Call it after Wait returns.
func (s *Session) Transcript() []types.TranscriptionItem {
	return s.recorder.Transcript()
}

func (s *Session) do(fn func()) {
	s.mu.Lock()
	started := s.group != nil
	s.mu.Unlock()
	if !started {
		return
	}
	select {
	case s.controls <- fn:
	case <-s.done:
	}
}

func (s *Session) readEvents(ctx context.Context, stream live.Stream, out chan<- live.Event) error {
	for {
		ev, err := stream.Receive()
		if err != nil {
			var tail []live.Event
			if !errors.Is(err, io.EOF) {
				tail = append(tail, live.Event{Type: live.EventError, Err: err})
			} else {
				err = nil
			}
			tail = append(tail, live.Event{Type: live.EventClose, Err: err})
			for _, e := range tail {
				select {
				case out <- e:
				case <-ctx.Done():
					return nil
				}
			}
			return nil
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Session) run(ctx context.Context, events <-chan live.Event) error {
	defer close(s.done)

	var ticker *time.Ticker
	var tickC <-chan time.Time
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.finish("context canceled")
			return nil

		case <-s.endCh:
			s.finish("ended by user")
			return nil

		case fn := <-s.controls:
			fn()

		case <-tickC:
			remaining, expired := s.countdown.Tick()
			s.opts.Listener.OnTick(remaining)
			if expired {
				s.finish("time limit reached")
				return nil
			}

		case ev := <-events:
			switch ev.Type {
			case live.EventOpen:
				if s.activate() {
					ticker = time.NewTicker(s.opts.TickInterval)
					tickC = ticker.C
					s.opts.Listener.OnTick(s.countdown.Remaining())
				}
			case live.EventClose:
				if ev.Err != nil {
					s.logger.WithError(ev.Err).Warn("Live stream closed with error")
				}
				s.finish("stream closed")
				return nil
			default:
				s.handle(ev)
			}
		}
	}
}

func (s *Session) handle(ev live.Event) {
	switch ev.Type {
	case live.EventOutputTranscript:
		s.recorder.AppendOutput(ev.Text)
		s.opts.Listener.OnPartialTranscript(types.SpeakerAI, s.recorder.Partial(types.SpeakerAI))

	case live.EventInputTranscript:
		s.recorder.AppendInput(ev.Text)
		s.opts.Listener.OnPartialTranscript(types.SpeakerUser, s.recorder.Partial(types.SpeakerUser))

	case live.EventTurnComplete:
		s.opts.Listener.OnTurnComplete(s.recorder.Flush())

	case live.EventAudio:
		rate := media.ParseMIMERate(ev.Audio.MIMEType, media.OutputSampleRate)
		src := s.scheduler.Schedule(media.DecodeModelAudio(ev.Audio.Data, rate))
		s.opts.Listener.OnAudio(src)

	case live.EventInterrupted:
		s.opts.Listener.OnStopPlayback(s.scheduler.Interrupt())

	case live.EventError:
		s.logger.WithError(ev.Err).Error("Live stream error")
	}
}

// activate moves Connecting to Active and starts the media producers.
func (s *Session) activate() bool {
	s.mu.Lock()
	if s.state != StateConnecting {
		s.mu.Unlock()
		return false
	}
	s.state = StateActive
	pctx, stop := context.WithCancel(context.Background())
	s.stopProducers = stop
	g, user, display, stream := s.group, s.user, s.display, s.stream
	s.mu.Unlock()

	s.logger.Info("Interview session active")
	s.opts.Listener.OnStateChange(StateActive)

	g.Go(func() error { return s.tapAudio(pctx, user, stream) })
	g.Go(func() error { return s.sendFrames(pctx, display, stream) })
	return true
}

func (s *Session) tapAudio(ctx context.Context, user UserMedia, stream live.Stream) error {
	audio := user.Audio()
	for {
		select {
		case <-ctx.Done():
			return nil
		case chunk, ok := <-audio:
			if !ok {
				return nil
			}
			if err := stream.SendAudio(media.EncodeMicrophoneChunk(chunk.Samples, chunk.SampleRate)); err != nil {
				s.logger.WithError(err).Debug("Dropped microphone chunk")
			}
		}
	}
}

func (s *Session) sendFrames(ctx context.Context, display DisplayMedia, stream live.Stream) error {
	ticker := time.NewTicker(s.opts.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			frame, ok := display.LatestFrame()
			if !ok || frame == nil || frame.Bounds().Dx() == 0 {
				continue
			}
			blob, err := media.EncodeSnapshot(frame)
			if err != nil {
				s.logger.WithError(err).Warn("Failed to encode screen frame")
				continue
			}
			if err := stream.SendImage(blob); err != nil {
				s.logger.WithError(err).Debug("Dropped screen frame")
			}
		}
	}
}

// finish releases every resource and hands the transcript to the end handler.
// Only the run loop calls it.
func (s *Session) finish(reason string) {
	s.mu.Lock()
	if s.state == StateEnded {
		s.mu.Unlock()
		return
	}
	s.state = StateEnded
	user, display, stream := s.user, s.display, s.stream
	stopProducers, cancel := s.stopProducers, s.cancel
	s.mu.Unlock()

	if stopProducers != nil {
		stopProducers()
	}
	if user != nil {
		user.Stop()
	}
	if display != nil {
		display.Stop()
	}
	if stream != nil {
		if err := stream.Close(); err != nil {
			s.logger.WithError(err).Warn("Failed to close live stream")
		}
	}
	if ids := s.scheduler.Interrupt(); len(ids) > 0 {
		s.opts.Listener.OnStopPlayback(ids)
	}

	transcript := s.recorder.Transcript()
	s.logger.WithFields(log.Fields{
		"reason":      reason,
		"transcript":  len(transcript),
		"remaining_s": s.countdown.Remaining(),
	}).Info("Interview session ended")
	s.opts.Listener.OnStateChange(StateEnded)

	if s.opts.OnEnd != nil {
		s.opts.OnEnd(transcript)
	}
	if cancel != nil {
		cancel()
	}
}
