package live

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/lexilive/internal/audio"
)

type fakeSink struct {
	mu     sync.Mutex
	writes [][]byte
	resets int
	closed bool
}

func (f *fakeSink) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, p)
	return len(p), nil
}

func (f *fakeSink) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

func (f *fakeSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeSink) resetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets
}

func (f *fakeSink) markers() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]byte, len(f.writes))
	for i, w := range f.writes {
		out[i] = w[0]
	}
	return out
}

// chunk returns 100ms of 24 kHz mono PCM whose first byte is marker
func chunk(marker byte) []byte {
	c := make([]byte, audio.OutputFormat.Bytes(100*time.Millisecond))
	c[0] = marker
	return c
}

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestScheduler() (*Scheduler, *fakeSink, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(t0)
	sink := &fakeSink{}
	return NewScheduler(sink, audio.OutputFormat, WithClock(clock)), sink, clock
}

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

func TestSchedulerGaplessCursor(t *testing.T) {
	s, sink, clock := newTestScheduler()

	require.NoError(t, s.Schedule(chunk(1)))
	require.NoError(t, s.Schedule(chunk(2)))

	assert.Equal(t, t0.Add(200*time.Millisecond), s.NextStart())
	assert.Equal(t, 2, s.Pending())

	// The first chunk starts immediately, the second waits for its slot
	require.Eventually(t, func() bool { return sink.count() == 1 }, waitFor, tick)

	clock.Advance(100 * time.Millisecond)
	require.Eventually(t, func() bool { return sink.count() == 2 }, waitFor, tick)
	assert.Equal(t, []byte{1, 2}, sink.markers())

	clock.Advance(300 * time.Millisecond)
	require.Eventually(t, func() bool { return s.Pending() == 0 }, waitFor, tick)

	// After the queue ran dry a new chunk starts now, not at the stale cursor
	require.NoError(t, s.Schedule(chunk(3)))
	assert.Equal(t, t0.Add(500*time.Millisecond), s.NextStart())
	require.Eventually(t, func() bool { return sink.count() == 3 }, waitFor, tick)
}

func TestSchedulerInterrupt(t *testing.T) {
	s, sink, clock := newTestScheduler()

	for i := byte(1); i <= 3; i++ {
		require.NoError(t, s.Schedule(chunk(i)))
	}
	require.Eventually(t, func() bool { return sink.count() == 1 }, waitFor, tick)

	dropped := s.Interrupt()
	assert.Equal(t, 3, dropped)
	assert.Equal(t, 0, s.Pending())
	assert.True(t, s.NextStart().IsZero())
	assert.Equal(t, 1, sink.resetCount())

	clock.Advance(time.Second)
	assert.Never(t, func() bool { return sink.count() > 1 }, 50*time.Millisecond, tick)

	require.NoError(t, s.Schedule(chunk(9)))
	assert.Equal(t, clock.Now().Add(100*time.Millisecond), s.NextStart())
	require.Eventually(t, func() bool { return sink.count() == 2 }, waitFor, tick)
	assert.Equal(t, []byte{1, 9}, sink.markers())
}

// gatedSink blocks the first write until release is closed and logs the
// order of writes and resets
type gatedSink struct {
	fakeSink
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	events  []string
}

func (g *gatedSink) Write(p []byte) (int, error) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	g.mu.Lock()
	g.events = append(g.events, "write")
	g.mu.Unlock()
	return g.fakeSink.Write(p)
}

func (g *gatedSink) Reset() error {
	g.mu.Lock()
	g.events = append(g.events, "reset")
	g.mu.Unlock()
	return g.fakeSink.Reset()
}

func (g *gatedSink) log() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.events...)
}

func TestSchedulerInterruptWaitsForWriteInFlight(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	sink := &gatedSink{entered: make(chan struct{}), release: make(chan struct{})}
	s := NewScheduler(sink, audio.OutputFormat, WithClock(clock))

	require.NoError(t, s.Schedule(chunk(1)))
	require.NoError(t, s.Schedule(chunk(2)))
	<-sink.entered

	done := make(chan int, 1)
	go func() { done <- s.Interrupt() }()

	// The cursor is cleared at once but the reset waits for the write
	require.Eventually(t, func() bool { return s.NextStart().IsZero() }, waitFor, tick)
	assert.Never(t, func() bool { return sink.resetCount() > 0 }, 50*time.Millisecond, tick)

	close(sink.release)
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("Interrupt did not return after the write completed")
	}

	clock.Advance(time.Second)
	assert.Never(t, func() bool { return sink.count() > 1 }, 50*time.Millisecond, tick)
	assert.Equal(t, []string{"write", "reset"}, sink.log())
}

func TestSchedulerInterruptWhenIdle(t *testing.T) {
	s, sink, _ := newTestScheduler()
	assert.Equal(t, 0, s.Interrupt())
	assert.Equal(t, 1, sink.resetCount())
}

func TestSchedulerIgnoresEmptyChunks(t *testing.T) {
	s, _, _ := newTestScheduler()
	require.NoError(t, s.Schedule(nil))
	assert.Equal(t, 0, s.Pending())
	assert.True(t, s.NextStart().IsZero())
}

func TestSchedulerClose(t *testing.T) {
	s, sink, _ := newTestScheduler()
	require.NoError(t, s.Schedule(chunk(1)))

	require.NoError(t, s.Close())
	assert.True(t, sink.closed)
	assert.Equal(t, 0, s.Pending())

	err := s.Enqueue(chunk(2))
	assert.True(t, errors.Is(err, ErrSchedulerClosed))
}

func TestSchedulerSatisfiesPlayer(t *testing.T) {
	var _ Player = (*Scheduler)(nil)
	var _ Sink = (*audio.PCMSink)(nil)
}
