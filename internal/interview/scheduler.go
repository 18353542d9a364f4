package interview

import (
	"fmt"
	"math"
	"sort"

	"github.com/jonathan/interview-coach/internal/media"
)

// ScheduledSource is one decoded chunk of model speech placed on the
// playback timeline.
type ScheduledSource struct {
	ID       string
	Start    float64
	Duration float64
	Buffer   media.AudioBuffer
}

// End returns the time the source finishes playing.
func (s ScheduledSource) End() float64 {
	return s.Start + s.Duration
}

// PlaybackScheduler queues audio chunks back to back so speech plays gaplessly.
// It is not safe for concurrent use; the session run loop owns it.
type PlaybackScheduler struct {
	clock  Clock
	cursor float64
	active map[string]ScheduledSource
	seq    int
}

// NewPlaybackScheduler creates a scheduler reading time from clock.
func NewPlaybackScheduler(clock Clock) *PlaybackScheduler {
	return &PlaybackScheduler{
		clock:  clock,
		active: make(map[string]ScheduledSource),
	}
}

// Schedule places buf at max(cursor, now) and advances the cursor past it.
func (p *PlaybackScheduler) Schedule(buf media.AudioBuffer) ScheduledSource {
	now := p.clock.Now()
	p.prune(now)

	p.seq++
	src := ScheduledSource{
		ID:       fmt.Sprintf("src-%d", p.seq),
		Start:    math.Max(p.cursor, now),
		Duration: buf.Duration(),
		Buffer:   buf,
	}
	p.cursor = src.End()
	p.active[src.ID] = src
	return src
}

// Ended removes a source that finished playing.
func (p *PlaybackScheduler) Ended(id string) {
	delete(p.active, id)
}

// Interrupt stops every active source and rewinds the cursor. It returns the
// stopped source ids in scheduling order.
func (p *PlaybackScheduler) Interrupt() []string {
	ids := p.ActiveIDs()
	p.active = make(map[string]ScheduledSource)
	p.cursor = 0
	return ids
}

// Cursor returns the time at which the next chunk would start if the clock
// has not passed it.
func (p *PlaybackScheduler) Cursor() float64 {
	return p.cursor
}

// ActiveIDs lists sources scheduled and not yet ended, in scheduling order.
func (p *PlaybackScheduler) ActiveIDs() []string {
	srcs := make([]ScheduledSource, 0, len(p.active))
	for _, s := range p.active {
		srcs = append(srcs, s)
	}
	sort.Slice(srcs, func(i, j int) bool { return srcs[i].Start < srcs[j].Start })

	ids := make([]string, len(srcs))
	for i, s := range srcs {
		ids[i] = s.ID
	}
	return ids
}

func (p *PlaybackScheduler) prune(now float64) {
	for id, s := range p.active {
		if s.End() <= now {
			delete(p.active, id)
		}
	}
}
