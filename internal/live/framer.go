package live

// DefaultFrameSamples is the number of 16-bit samples per outbound frame
const DefaultFrameSamples = 4096

// Framer cuts a byte stream into fixed-size frames. Partial frames stay
// buffered until enough data arrives and are never emitted.
type Framer struct {
	size int
	buf  []byte
}

// NewFramer creates a framer producing frames of frameBytes bytes
func NewFramer(frameBytes int) *Framer {
	if frameBytes <= 0 {
		frameBytes = DefaultFrameSamples * 2
	}
	return &Framer{size: frameBytes, buf: make([]byte, 0, frameBytes)}
}

// FrameSize returns the frame size in bytes
func (f *Framer) FrameSize() int {
	return f.size
}

// Write appends p to the capture buffer and returns every complete frame.
// Returned frames are copies and stay valid after later writes.
func (f *Framer) Write(p []byte) [][]byte {
	f.buf = append(f.buf, p...)

	var frames [][]byte
	for len(f.buf) >= f.size {
		frame := make([]byte, f.size)
		copy(frame, f.buf[:f.size])
		frames = append(frames, frame)
		f.buf = f.buf[f.size:]
	}

	// Move the remainder to the front so the buffer does not grow forever
	if cap(f.buf) > 4*f.size {
		rest := make([]byte, len(f.buf), f.size)
		copy(rest, f.buf)
		f.buf = rest
	}
	return frames
}

// Pending reports how many bytes are buffered towards the next frame
func (f *Framer) Pending() int {
	return len(f.buf)
}

// Reset drops the partial frame
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
}
