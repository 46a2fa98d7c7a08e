package live

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"codeberg.org/snonux/lexilive/internal/audio"
	"codeberg.org/snonux/lexilive/internal/metrics"
)

// ErrSchedulerClosed is returned when scheduling on a closed Scheduler
var ErrSchedulerClosed = errors.New("scheduler closed")

// Player consumes response audio from a live session
type Player interface {
	// Enqueue queues a PCM chunk to play after everything queued before it
	Enqueue(pcm []byte) error
	// Interrupt drops all pending audio and returns how many chunks were dropped
	Interrupt() int
	// Close interrupts playback and releases the output
	Close() error
}

// Sink is the audio output a Scheduler writes due chunks to
type Sink interface {
	Write(p []byte) (int, error)
	// Reset discards audio the sink has buffered but not yet played
	Reset() error
}

type scheduledChunk struct {
	pcm     []byte
	start   time.Time
	end     time.Time
	written bool
	timer   clockwork.Timer
}

// Scheduler plays PCM chunks back to back. Each chunk starts at
// max(nextStart, now) and advances nextStart by its duration, so chunks
// arriving faster than real time queue up without gaps and a chunk arriving
// after the queue ran dry starts immediately.
type Scheduler struct {
	format  audio.Format
	sink    Sink
	clock   clockwork.Clock
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics

	writeMu sync.Mutex // keeps sink writes in start order and out of a Reset

	mu         sync.Mutex
	nextStart  time.Time
	pending    []*scheduledChunk // ordered by start
	generation uint64
	closed     bool
}

// SchedulerOption configures a Scheduler
type SchedulerOption func(*Scheduler)

// WithClock sets the clock used for start times and timers
func WithClock(clock clockwork.Clock) SchedulerOption {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

// WithSchedulerLogger sets the logger for sink errors
func WithSchedulerLogger(logger *zap.SugaredLogger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithSchedulerMetrics records scheduled and dropped chunks
func WithSchedulerMetrics(m *metrics.Metrics) SchedulerOption {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// NewScheduler creates a scheduler writing chunks in format to sink
func NewScheduler(sink Sink, format audio.Format, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		format: format,
		sink:   sink,
		clock:  clockwork.NewRealClock(),
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule queues pcm for gapless playback
func (s *Scheduler) Schedule(pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSchedulerClosed
	}

	now := s.clock.Now()
	start := s.nextStart
	if start.Before(now) {
		start = now
	}
	end := start.Add(s.format.Duration(len(pcm)))
	s.nextStart = end

	c := &scheduledChunk{pcm: pcm, start: start, end: end}
	s.pending = append(s.pending, c)
	generation := s.generation
	c.timer = s.clock.AfterFunc(start.Sub(now), func() { s.play(generation) })

	s.metrics.RecordChunkScheduled()
	return nil
}

// Enqueue implements Player
func (s *Scheduler) Enqueue(pcm []byte) error {
	return s.Schedule(pcm)
}

// play writes every chunk whose start time has arrived
func (s *Scheduler) play(generation uint64) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()
		return
	}
	now := s.clock.Now()
	var due []*scheduledChunk
	for _, c := range s.pending {
		if c.start.After(now) {
			break
		}
		if !c.written {
			c.written = true
			due = append(due, c)
			// Re-arm the chunk timer to retire it when its playback window ends
			c.timer = s.clock.AfterFunc(c.end.Sub(now), func() { s.retire(c) })
		}
	}
	s.mu.Unlock()

	for _, c := range due {
		s.mu.Lock()
		stale := generation != s.generation
		s.mu.Unlock()
		if stale {
			return
		}
		if _, err := s.sink.Write(c.pcm); err != nil {
			s.logger.Warnw("failed to write audio chunk", "bytes", len(c.pcm), "error", err)
		}
	}
}

// retire removes a chunk whose playback window has ended
func (s *Scheduler) retire(c *scheduledChunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.pending {
		if p == c {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// Interrupt stops every pending timer, drops every pending chunk, resets
// the sink and clears the playback cursor. It returns the number of
// chunks dropped. A sink write already in progress completes before the
// reset, so no chunk of the interrupted generation reaches the sink after it.
func (s *Scheduler) Interrupt() int {
	s.mu.Lock()
	dropped := len(s.pending)
	for _, c := range s.pending {
		c.timer.Stop()
	}
	s.pending = nil
	s.nextStart = time.Time{}
	s.generation++
	s.mu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.sink.Reset(); err != nil {
		s.logger.Warnw("failed to reset audio sink", "error", err)
	}
	return dropped
}

// Pending returns the number of chunks queued or playing
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// NextStart returns the playback cursor. It is zero before the first chunk
// and after an interruption.
func (s *Scheduler) NextStart() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStart
}

// Close interrupts playback and refuses further scheduling
func (s *Scheduler) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.Interrupt()

	if c, ok := s.sink.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
