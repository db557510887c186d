package phrase

import (
	"sync"
	"sync/atomic"
	"time"
)

// SpeechState is the position of a session's speech step.
type SpeechState int32

const (
	StateIdle SpeechState = iota
	StateSpeaking
)

func (s SpeechState) String() string {
	if s == StateSpeaking {
		return "speaking"
	}
	return "idle"
}

// Session is one phrase-assembly workspace with its speech gate.
type Session struct {
	ID       string
	Assembly *Assembly

	state    atomic.Int32
	lastUsed atomic.Int64
}

func (s *Session) State() SpeechState {
	return SpeechState(s.state.Load())
}

// beginSpeaking moves Idle to Speaking; false when already speaking.
func (s *Session) beginSpeaking() bool {
	return s.state.CompareAndSwap(int32(StateIdle), int32(StateSpeaking))
}

func (s *Session) endSpeaking() {
	s.state.Store(int32(StateIdle))
}

func (s *Session) touch(now time.Time) {
	s.lastUsed.Store(now.UnixNano())
}

type sessionKey struct {
	userID    string
	sessionID string
}

// Sessions holds the live phrase sessions of every principal.
type Sessions struct {
	mu        sync.Mutex
	sessions  map[sessionKey]*Session
	delimiter string
	now       func() time.Time
}

func NewSessions(delimiter string) *Sessions {
	return &Sessions{
		sessions:  make(map[sessionKey]*Session),
		delimiter: delimiter,
		now:       time.Now,
	}
}

// Get returns the session, creating an empty one on first use.
func (r *Sessions) Get(userID, sessionID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sessionKey{userID: userID, sessionID: sessionID}
	session, ok := r.sessions[key]
	if !ok {
		session = &Session{ID: sessionID, Assembly: NewAssembly(r.delimiter)}
		r.sessions[key] = session
	}
	session.touch(r.now())
	return session
}

func (r *Sessions) Drop(userID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionKey{userID: userID, sessionID: sessionID})
}

// RemoveCardEverywhere cascades a library delete into every session of userID.
func (r *Sessions) RemoveCardEverywhere(userID, cardID string) int {
	r.mu.Lock()
	targets := make([]*Session, 0)
	for key, session := range r.sessions {
		if key.userID == userID {
			targets = append(targets, session)
		}
	}
	r.mu.Unlock()

	removed := 0
	for _, session := range targets {
		removed += session.Assembly.RemoveByCardID(cardID)
	}
	return removed
}

// Sweep drops idle sessions not used within maxIdle.
func (r *Sessions) Sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxIdle).UnixNano()
	dropped := 0
	for key, session := range r.sessions {
		if session.State() == StateIdle && session.lastUsed.Load() < cutoff {
			delete(r.sessions, key)
			dropped++
		}
	}
	return dropped
}

func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
