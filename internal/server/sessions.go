package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/interview-coach/internal/interview"
	"github.com/jonathan/interview-coach/internal/stage"
)

// interviewSession is one browser's interview: its stage controller plus the
// live session while one is connected.
type interviewSession struct {
	id         uuid.UUID
	controller *stage.Controller

	mu       sync.Mutex
	lastSeen time.Time
	live     *interview.Session
}

// attach records live as the session's connected interview. Only one live
// session may be attached at a time. A session stays attached after it ends
// until its end handler has finished generating feedback and detach runs.
func (s *interviewSession) attach(live *interview.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live != nil {
		return &ErrConflict{Message: "a live interview is already connected"}
	}
	s.live = live
	return nil
}

// busy reports whether a live interview is attached.
func (s *interviewSession) busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live != nil
}

func (s *interviewSession) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *interviewSession) detach(live *interview.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live == live {
		s.live = nil
	}
}

// endLive stops the connected live session, if any.
func (s *interviewSession) endLive() {
	s.mu.Lock()
	live := s.live
	s.mu.Unlock()
	if live != nil {
		live.End()
	}
}

// sessionRegistry holds interview sessions in memory, keyed by ID.
type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*interviewSession
	now      func() time.Time
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{
		sessions: make(map[uuid.UUID]*interviewSession),
		now:      time.Now,
	}
}

func (r *sessionRegistry) create() *interviewSession {
	sess := &interviewSession{
		id:         uuid.New(),
		controller: stage.NewController(),
		lastSeen:   r.now(),
	}

	r.mu.Lock()
	r.sessions[sess.id] = sess
	r.mu.Unlock()
	return sess
}

func (r *sessionRegistry) get(idStr string) (*interviewSession, error) {
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, &ErrSessionNotFound{ID: idStr}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	if !ok {
		return nil, &ErrSessionNotFound{ID: idStr}
	}
	sess.touch(r.now())
	return sess, nil
}

// prune drops sessions not accessed since cutoff that have no live interview.
func (r *sessionRegistry) prune(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, sess := range r.sessions {
		sess.mu.Lock()
		idle := sess.live == nil && sess.lastSeen.Before(cutoff)
		sess.mu.Unlock()
		if idle {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

func (r *sessionRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
