package models

import (
	"context"
	"sync"

	"github.com/allbin/go-bootserial/internal/tui/components"
	"github.com/allbin/go-bootserial/transport"
)

// DefaultMaxFrames bounds the frame history kept by a Session
const DefaultMaxFrames = 1000

type ConnectionStatusMsg struct {
	Connected bool
	Error     error
}

// ResetDoneMsg reports the outcome of a reset requested from the monitor
type ResetDoneMsg struct {
	Error error
}

// Session holds the state of one monitored port. The transport itself is
// driven by a single reader goroutine; the UI only reads the state here.
type Session struct {
	transport *transport.Transport
	portPath  string

	connected bool
	paused    bool
	frames    []components.FrameMsg
	maxFrames int
	counters  components.Counters
	err       error
	ready     bool

	// reset requests handed to the reader goroutine
	resets chan struct{}

	cancel context.CancelFunc
	ctx    context.Context
	mu     sync.RWMutex
}

func NewSession(portPath string, maxFrames int) *Session {
	if maxFrames <= 0 {
		maxFrames = DefaultMaxFrames
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		portPath:  portPath,
		maxFrames: maxFrames,
		resets:    make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *Session) Transport() *transport.Transport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transport
}

func (s *Session) SetTransport(t *transport.Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transport = t
}

func (s *Session) PortPath() string {
	return s.portPath
}

func (s *Session) IsConnected() bool {
	return s.connected
}

func (s *Session) SetConnected(connected bool) {
	s.connected = connected
}

func (s *Session) Err() error {
	return s.err
}

func (s *Session) SetError(err error) {
	s.err = err
}

func (s *Session) IsReady() bool {
	return s.ready
}

func (s *Session) SetReady(ready bool) {
	s.ready = ready
}

func (s *Session) IsPaused() bool {
	return s.paused
}

func (s *Session) TogglePaused() bool {
	s.paused = !s.paused
	return s.paused
}

// AddFrame records msg, dropping the oldest frames beyond the history limit.
// Frames arriving while paused are counted but not kept.
func (s *Session) AddFrame(msg components.FrameMsg) {
	switch msg.Kind {
	case components.FrameTimeout:
		s.counters.Timeouts++
	case components.FrameRX, components.FrameUnframed, components.FrameTX:
		s.counters.Frames++
	}
	if s.paused {
		return
	}

	s.frames = append(s.frames, msg)
	if over := len(s.frames) - s.maxFrames; over > 0 {
		s.frames = append(s.frames[:0], s.frames[over:]...)
	}
}

func (s *Session) Frames() []components.FrameMsg {
	return s.frames
}

func (s *Session) Counters() components.Counters {
	return s.counters
}

func (s *Session) ClearFrames() {
	s.frames = nil
	s.counters = components.Counters{}
}

// RequestReset asks the reader goroutine to run a reset. It reports false
// when a request is already pending.
func (s *Session) RequestReset() bool {
	select {
	case s.resets <- struct{}{}:
		return true
	default:
		return false
	}
}

// Resets delivers reset requests to the reader goroutine
func (s *Session) Resets() <-chan struct{} {
	return s.resets
}

func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}
