package testutil

import (
	"context"
	"io"
	"sync"

	"codeberg.org/snonux/lexilive/internal/live"
)

// MockTransport hands out a scripted MockConn
type MockTransport struct {
	Conn       *MockConn
	ConnectErr error
	// Block, when set, makes Connect wait until it is closed or ctx is done
	Block chan struct{}

	mu         sync.Mutex
	Connects   int
	LastConfig live.Config
}

// NewMockTransport creates a transport with a fresh MockConn
func NewMockTransport() *MockTransport {
	return &MockTransport{Conn: NewMockConn()}
}

// Connect returns Conn or ConnectErr
func (t *MockTransport) Connect(ctx context.Context, cfg live.Config) (live.Conn, error) {
	t.mu.Lock()
	t.Connects++
	t.LastConfig = cfg
	t.mu.Unlock()

	if t.Block != nil {
		select {
		case <-t.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if t.ConnectErr != nil {
		return nil, t.ConnectErr
	}
	return t.Conn, nil
}

// MockConn is a live connection driven by the test
type MockConn struct {
	events chan live.Event
	eof    chan struct{}
	closed chan struct{}

	mu        sync.Mutex
	Frames    [][]byte
	Texts     []string
	EndCalls  int
	SendErr   error
	// EndBlock, when set, makes EndAudio wait until it is closed or ctx is done
	EndBlock  chan struct{}
	closeOnce sync.Once
	eofOnce   sync.Once
}

// NewMockConn creates an open MockConn
func NewMockConn() *MockConn {
	return &MockConn{
		events: make(chan live.Event, 64),
		eof:    make(chan struct{}),
		closed: make(chan struct{}),
	}
}

// Push queues a server event
func (c *MockConn) Push(ev live.Event) {
	c.events <- ev
}

// EndStream makes Receive report that the server closed the stream
func (c *MockConn) EndStream() {
	c.eofOnce.Do(func() { close(c.eof) })
}

// SendAudio records a frame
func (c *MockConn) SendAudio(ctx context.Context, pcm []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return c.SendErr
	}
	c.Frames = append(c.Frames, append([]byte(nil), pcm...))
	return nil
}

// SendText records a text turn
func (c *MockConn) SendText(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Texts = append(c.Texts, text)
	return nil
}

// EndAudio records the end of the audio stream
func (c *MockConn) EndAudio(ctx context.Context) error {
	c.mu.Lock()
	c.EndCalls++
	block := c.EndBlock
	c.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Receive returns pushed events until the stream ends or the conn is closed
func (c *MockConn) Receive(ctx context.Context) (live.Event, error) {
	select {
	case ev := <-c.events:
		return ev, nil
	case <-c.eof:
		return live.Event{}, io.EOF
	case <-c.closed:
		return live.Event{}, io.ErrClosedPipe
	case <-ctx.Done():
		return live.Event{}, ctx.Err()
	}
}

// Close closes the connection
func (c *MockConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// IsClosed reports whether Close was called
func (c *MockConn) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// FrameCount returns how many audio frames were sent
func (c *MockConn) FrameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Frames)
}

// TextCount returns how many text turns were sent
func (c *MockConn) TextCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Texts)
}

// EndCount returns how many times EndAudio was called
func (c *MockConn) EndCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.EndCalls
}

// MockPlayer records what a session plays
type MockPlayer struct {
	mu         sync.Mutex
	Chunks     [][]byte
	Interrupts int
	Closed     bool
}

// Enqueue records a chunk
func (p *MockPlayer) Enqueue(pcm []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Chunks = append(p.Chunks, pcm)
	return nil
}

// Interrupt drops recorded chunks and returns how many there were
func (p *MockPlayer) Interrupt() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Interrupts++
	n := len(p.Chunks)
	p.Chunks = nil
	return n
}

// Close marks the player closed
func (p *MockPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}

// ChunkCount returns the number of queued chunks
func (p *MockPlayer) ChunkCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Chunks)
}

// InterruptCount returns how many times Interrupt was called
func (p *MockPlayer) InterruptCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Interrupts
}
