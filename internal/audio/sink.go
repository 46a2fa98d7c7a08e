package audio

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
)

// StreamCommand returns a command that plays raw PCM16 little-endian audio
// in format f read from stdin
func StreamCommand(ctx context.Context, f Format) (*exec.Cmd, error) {
	rate := strconv.Itoa(f.SampleRate)
	channels := strconv.Itoa(f.Channels)

	candidates := [][]string{
		{"ffplay", "-nodisp", "-loglevel", "quiet", "-f", "s16le", "-ar", rate, "-ch_layout", channelLayout(f.Channels), "-i", "-"},
		{"play", "-q", "-t", "raw", "-b", "16", "-e", "signed-integer", "-L", "-r", rate, "-c", channels, "-"},
	}
	if runtime.GOOS == "linux" {
		candidates = append([][]string{
			{"aplay", "-q", "-f", "S16_LE", "-r", rate, "-c", channels, "-t", "raw"},
			{"pacat", "--playback", "--format=s16le", "--rate=" + rate, "--channels=" + channels},
		}, candidates...)
	}

	for _, c := range candidates {
		if _, err := LookPath(c[0]); err == nil {
			return exec.CommandContext(ctx, c[0], c[1:]...), nil
		}
	}
	return nil, ErrNoPlayer
}

func channelLayout(channels int) string {
	if channels == 2 {
		return "stereo"
	}
	return "mono"
}

// PCMSink streams raw PCM into a long-running playback process. Reset drops
// whatever the process has buffered by restarting it.
type PCMSink struct {
	format Format
	newCmd func(ctx context.Context, f Format) (*exec.Cmd, error)

	mu     sync.Mutex
	cancel context.CancelFunc
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	closed bool
}

// NewPCMSink creates a sink for format f. The playback process starts on the first Write.
func NewPCMSink(f Format) *PCMSink {
	return &PCMSink{format: f, newCmd: StreamCommand}
}

// Format returns the playback format
func (s *PCMSink) Format() Format {
	return s.format
}

// Write sends PCM to the playback process, starting it if needed
func (s *PCMSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, io.ErrClosedPipe
	}
	if s.stdin == nil {
		if err := s.startLocked(); err != nil {
			return 0, err
		}
	}

	n, err := s.stdin.Write(p)
	if err != nil {
		// The player died; the next Write restarts it
		s.stopLocked()
		return n, fmt.Errorf("audio sink write failed: %w", err)
	}
	return n, nil
}

// Reset discards buffered audio by killing the playback process
func (s *PCMSink) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	return nil
}

// Close stops playback permanently
func (s *PCMSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.closed = true
	return nil
}

func (s *PCMSink) startLocked() error {
	ctx, cancel := context.WithCancel(context.Background())
	cmd, err := s.newCmd(ctx, s.format)
	if err != nil {
		cancel()
		return err
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("failed to open playback pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start %s: %w", cmd.Path, err)
	}

	s.cancel, s.cmd, s.stdin = cancel, cmd, stdin
	return nil
}

func (s *PCMSink) stopLocked() {
	if s.cmd == nil {
		return
	}
	s.stdin.Close()
	s.cancel()
	s.cmd.Wait()
	s.cancel, s.cmd, s.stdin = nil, nil, nil
}
