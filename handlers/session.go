package handlers

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Conn is the transport of one client.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

var errSessionClosed = errors.New("session closed")

// Session is the server-side state of one live client.
type Session struct {
	ID string

	conn   Conn
	writeM sync.Mutex
	closed atomic.Bool

	// busy is held for exactly the lifetime of one audio or text pipeline.
	busy atomic.Bool

	mu         sync.RWMutex
	voiceSpeed float64

	unregister func()
}

func newSession(conn Conn, voiceSpeed float64) *Session {
	return &Session{ID: newClientID(), conn: conn, voiceSpeed: voiceSpeed}
}

func newClientID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("client_%d_%s", time.Now().UnixMilli(), suffix)
}

// Send writes v to the client. After the session is closed it is a no-op
// that reports errSessionClosed.
func (s *Session) Send(v any) error {
	s.writeM.Lock()
	defer s.writeM.Unlock()
	if s.closed.Load() {
		return errSessionClosed
	}
	return s.conn.WriteJSON(v)
}

// Close marks the session closed and closes its transport once.
func (s *Session) Close() {
	if s.closed.CompareAndSwap(false, true) {
		_ = s.conn.Close()
	}
}

// Busy reports whether a pipeline is running.
func (s *Session) Busy() bool { return s.busy.Load() }

func (s *Session) VoiceSpeed() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.voiceSpeed
}

func (s *Session) setVoiceSpeed(v float64) {
	s.mu.Lock()
	s.voiceSpeed = v
	s.mu.Unlock()
}
