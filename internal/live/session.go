package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"codeberg.org/snonux/lexilive/internal/metrics"
)

var (
	// ErrNotIdle is returned when starting a session that was already started
	ErrNotIdle = errors.New("live session already started")
	// ErrNotActive is returned when sending on a session that is not connected
	ErrNotActive = errors.New("live session not active")
)

// State is the lifecycle state of a Session
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateActive
	StateClosing
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Transcript roles
const (
	RoleUser  = "user"
	RoleModel = "model"
)

const endAudioTimeout = 2 * time.Second

// Session is one realtime spoken conversation. A session is single use:
// once stopped it cannot be started again.
type Session struct {
	id         string
	transport  Transport
	player     Player
	config     Config
	frameBytes int
	logger     *zap.SugaredLogger
	metrics    *metrics.Metrics

	onState      func(State)
	onTranscript func(role, text string)
	onError      func(error)

	mu      sync.Mutex
	state   State
	err     error
	conn    Conn
	source  io.Reader
	cancel  context.CancelFunc
	started time.Time

	wg       sync.WaitGroup
	done     chan struct{}
	doneOnce sync.Once
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithLogger sets the session logger
func WithLogger(logger *zap.SugaredLogger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithConfig sets the live conversation configuration
func WithConfig(cfg Config) SessionOption {
	return func(s *Session) {
		s.config = cfg
	}
}

// WithFrameSamples sets the number of 16-bit samples per outbound frame
func WithFrameSamples(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.frameBytes = n * 2
		}
	}
}

// WithMetrics records session and frame metrics
func WithMetrics(m *metrics.Metrics) SessionOption {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithID overrides the generated session id
func WithID(id string) SessionOption {
	return func(s *Session) {
		s.id = id
	}
}

// OnState registers a callback for state changes
func OnState(fn func(State)) SessionOption {
	return func(s *Session) {
		s.onState = fn
	}
}

// OnTranscript registers a callback for user and model transcripts
func OnTranscript(fn func(role, text string)) SessionOption {
	return func(s *Session) {
		s.onTranscript = fn
	}
}

// OnError registers a callback for the error that failed the session
func OnError(fn func(error)) SessionOption {
	return func(s *Session) {
		s.onError = fn
	}
}

// NewSession creates an idle session
func NewSession(transport Transport, player Player, opts ...SessionOption) *Session {
	s := &Session{
		id:         uuid.NewString(),
		transport:  transport,
		player:     player,
		config:     DefaultConfig(),
		frameBytes: DefaultFrameSamples * 2,
		logger:     zap.NewNop().Sugar(),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", s.id)
	return s
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that failed the session, if any
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed once the session reaches Closed or Failed
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Start connects and begins streaming audio from source. A nil source
// starts a text-only session. Start returns once the connection is open.
// A source whose Read blocks should implement io.Closer so Stop can
// interrupt it.
func (s *Session) Start(ctx context.Context, source io.Reader) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrNotIdle
	}
	sctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.source = source
	s.setStateLocked(StateConnecting)
	s.mu.Unlock()

	s.logger.Infow("connecting live session", "model", s.config.Model)
	conn, err := s.transport.Connect(sctx, s.config)

	s.mu.Lock()
	if err != nil {
		stopped := s.state != StateConnecting
		cancel()
		if stopped {
			s.setStateLocked(StateClosed)
			s.mu.Unlock()
			s.finish()
			return context.Canceled
		}
		s.err = err
		s.setStateLocked(StateFailed)
		s.mu.Unlock()
		s.reportError(err)
		s.finish()
		return err
	}
	if s.state != StateConnecting {
		// Stop was called while connecting
		s.mu.Unlock()
		cancel()
		conn.Close()
		s.finalize()
		return context.Canceled
	}
	s.conn = conn
	s.started = time.Now()
	s.setStateLocked(StateActive)
	s.mu.Unlock()

	s.metrics.RecordSessionStarted()
	s.logger.Infow("live session active")

	if source != nil {
		s.wg.Add(1)
		go s.sendPump(sctx, conn, source)
	}
	s.wg.Add(1)
	go s.receivePump(sctx, conn)

	go func() {
		s.wg.Wait()
		s.finalize()
	}()
	return nil
}

// SendText sends a text turn into an active session
func (s *Session) SendText(ctx context.Context, text string) error {
	s.mu.Lock()
	conn := s.conn
	active := s.state == StateActive
	s.mu.Unlock()

	if !active {
		return ErrNotActive
	}
	if err := conn.SendText(ctx, text); err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}
	if s.onTranscript != nil {
		s.onTranscript(RoleUser, text)
	}
	return nil
}

// Stop ends the session and waits for it to finish. Stop is idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	switch s.state {
	case StateIdle:
		s.setStateLocked(StateClosed)
		s.mu.Unlock()
		s.finish()
		return
	case StateConnecting:
		s.setStateLocked(StateClosing)
		cancel := s.cancel
		s.mu.Unlock()
		cancel()
	case StateActive:
		s.mu.Unlock()
		s.shutdown(nil, true)
	default:
		s.mu.Unlock()
	}
	<-s.done
}

// shutdown moves an active session to Closing and tears down the pumps.
// Only the first call has an effect.
func (s *Session) shutdown(cause error, sendEnd bool) {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return
	}
	if cause != nil {
		s.err = cause
	}
	s.setStateLocked(StateClosing)
	conn, cancel, source := s.conn, s.cancel, s.source
	s.mu.Unlock()

	if sendEnd {
		ctx, done := context.WithTimeout(context.Background(), endAudioTimeout)
		if err := conn.EndAudio(ctx); err != nil {
			s.logger.Debugw("failed to send end of audio", "error", err)
		}
		done()
	}

	cancel()
	if closer, ok := source.(io.Closer); ok {
		closer.Close()
	}
	if err := conn.Close(); err != nil {
		s.logger.Debugw("failed to close live connection", "error", err)
	}
	if dropped := s.player.Interrupt(); dropped > 0 {
		s.logger.Debugw("dropped pending playback", "chunks", dropped)
	}
}

// finalize runs once both pumps have exited
func (s *Session) finalize() {
	s.mu.Lock()
	err := s.err
	wasActive := !s.started.IsZero()
	if err != nil {
		s.setStateLocked(StateFailed)
	} else {
		s.setStateLocked(StateClosed)
	}
	s.mu.Unlock()

	if wasActive {
		s.metrics.RecordSessionEnded(time.Since(s.started))
	}
	if err != nil {
		s.logger.Warnw("live session failed", "error", err)
		s.reportError(err)
	} else {
		s.logger.Infow("live session closed")
	}
	s.finish()
}

func (s *Session) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Session) sendPump(ctx context.Context, conn Conn, source io.Reader) {
	defer s.wg.Done()

	framer := NewFramer(s.frameBytes)
	buf := make([]byte, s.frameBytes)

	for {
		n, err := source.Read(buf)
		if n > 0 {
			for _, frame := range framer.Write(buf[:n]) {
				if sendErr := conn.SendAudio(ctx, frame); sendErr != nil {
					if ctx.Err() == nil {
						s.shutdown(fmt.Errorf("failed to send audio: %w", sendErr), false)
					}
					return
				}
				s.metrics.RecordFrameSent()
			}
		}

		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, io.EOF) {
			// Partial frames are dropped; the server hears the end of the stream
			framer.Reset()
			if endErr := conn.EndAudio(ctx); endErr != nil && ctx.Err() == nil {
				s.logger.Warnw("failed to send end of audio", "error", endErr)
			}
			return
		}
		s.shutdown(fmt.Errorf("audio capture failed: %w", err), false)
		return
	}
}

func (s *Session) receivePump(ctx context.Context, conn Conn) {
	defer s.wg.Done()

	for {
		ev, err := conn.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				s.shutdown(nil, false)
			} else {
				s.shutdown(fmt.Errorf("live connection lost: %w", err), false)
			}
			return
		}

		switch ev.Type {
		case EventAudio:
			if err := s.player.Enqueue(ev.PCM); err != nil {
				s.logger.Warnw("failed to queue audio", "bytes", len(ev.PCM), "error", err)
			}
		case EventInterrupted:
			dropped := s.player.Interrupt()
			s.metrics.RecordInterruption(dropped)
			s.logger.Debugw("playback interrupted", "dropped", dropped)
		case EventInputTranscript:
			s.transcript(RoleUser, ev.Text)
		case EventOutputTranscript:
			s.transcript(RoleModel, ev.Text)
		case EventTurnComplete:
			s.logger.Debugw("model turn complete")
		case EventSetupComplete:
			s.logger.Debugw("live setup complete")
		case EventGoAway:
			s.logger.Infow("server is closing the session", "time_left", ev.TimeLeft)
			s.shutdown(nil, false)
			return
		}
	}
}

func (s *Session) transcript(role, text string) {
	if s.onTranscript != nil && text != "" {
		s.onTranscript(role, text)
	}
}

func (s *Session) reportError(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}

// setStateLocked changes state and notifies the callback. The callback
// must not call back into the session.
func (s *Session) setStateLocked(state State) {
	if s.state == state {
		return
	}
	s.state = state
	if s.onState != nil {
		s.onState(state)
	}
}
