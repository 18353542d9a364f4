package interview

import "github.com/jonathan/interview-coach/internal/types"

// Countdown tracks the seconds left in an interview.
type Countdown struct {
	remaining int
}

// NewCountdown starts a countdown for the configured interview length.
func NewCountdown(cfg types.InterviewConfig) *Countdown {
	return &Countdown{remaining: cfg.DurationSeconds()}
}

// Remaining returns the seconds left.
func (c *Countdown) Remaining() int {
	return c.remaining
}

// Tick consumes one second and reports whether time is up.
func (c *Countdown) Tick() (remaining int, expired bool) {
	if c.remaining > 0 {
		c.remaining--
	}
	return c.remaining, c.remaining == 0
}
