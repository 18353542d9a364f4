package interview

import (
	"sync"
	"time"
)

// Clock reports playback time in seconds on the device's audio timeline.
type Clock interface {
	Now() float64
}

// ReportedClock tracks a remote audio clock from periodic reports and
// extrapolates between them with local wall time.
type ReportedClock struct {
	mu       sync.Mutex
	reported float64
	at       time.Time
	now      func() time.Time
}

// NewReportedClock creates a clock that reads zero until the first report.
func NewReportedClock() *ReportedClock {
	return &ReportedClock{now: time.Now}
}

// Report records the device clock value observed right now.
func (c *ReportedClock) Report(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reported = seconds
	c.at = c.now()
}

// Now returns the last reported value plus the wall time elapsed since.
func (c *ReportedClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.at.IsZero() {
		return 0
	}
	return c.reported + c.now().Sub(c.at).Seconds()
}
