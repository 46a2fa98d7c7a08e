package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
)

// ErrNoRecorder is returned when no supported capture command is installed
var ErrNoRecorder = errors.New("no audio recorder found. Install arecord (alsa-utils), sox, or ffmpeg")

// RecordCommand returns a command that writes raw PCM16 little-endian audio
// in format f to stdout
func RecordCommand(ctx context.Context, f Format) (*exec.Cmd, error) {
	rate := strconv.Itoa(f.SampleRate)
	channels := strconv.Itoa(f.Channels)

	var candidates [][]string
	switch runtime.GOOS {
	case "linux":
		candidates = [][]string{
			{"arecord", "-q", "-f", "S16_LE", "-r", rate, "-c", channels, "-t", "raw"},
			{"rec", "-q", "-t", "raw", "-b", "16", "-e", "signed-integer", "-L", "-r", rate, "-c", channels, "-"},
			{"ffmpeg", "-loglevel", "quiet", "-f", "pulse", "-i", "default", "-ac", channels, "-ar", rate, "-f", "s16le", "-"},
		}
	case "darwin":
		candidates = [][]string{
			{"rec", "-q", "-t", "raw", "-b", "16", "-e", "signed-integer", "-L", "-r", rate, "-c", channels, "-"},
			{"ffmpeg", "-loglevel", "quiet", "-f", "avfoundation", "-i", ":0", "-ac", channels, "-ar", rate, "-f", "s16le", "-"},
		}
	default:
		return nil, fmt.Errorf("microphone capture is not supported on %s", runtime.GOOS)
	}

	for _, c := range candidates {
		if _, err := LookPath(c[0]); err == nil {
			return exec.CommandContext(ctx, c[0], c[1:]...), nil
		}
	}
	return nil, ErrNoRecorder
}

// Recorder captures microphone audio through a system command
type Recorder struct {
	format Format

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewRecorder creates a recorder producing audio in format f
func NewRecorder(f Format) *Recorder {
	return &Recorder{format: f}
}

// Format returns the capture format
func (r *Recorder) Format() Format {
	return r.format
}

// Start launches capture and returns the PCM stream. Closing the stream or
// cancelling ctx stops the capture process.
func (r *Recorder) Start(ctx context.Context) (io.ReadCloser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cmd != nil {
		return nil, fmt.Errorf("recorder already running")
	}

	cmd, err := RecordCommand(ctx, r.format)
	if err != nil {
		return nil, err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open capture pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", cmd.Path, err)
	}

	r.cmd = cmd
	return &captureStream{ReadCloser: stdout, stop: r.Stop}, nil
}

// Stop terminates the capture process. Stopping an idle recorder is a no-op.
func (r *Recorder) Stop() {
	r.mu.Lock()
	cmd := r.cmd
	r.cmd = nil
	r.mu.Unlock()

	if cmd == nil {
		return
	}
	if cmd.Process != nil {
		cmd.Process.Kill()
	}
	cmd.Wait()
}

type captureStream struct {
	io.ReadCloser
	once sync.Once
	stop func()
}

func (c *captureStream) Close() error {
	err := c.ReadCloser.Close()
	c.once.Do(c.stop)
	return err
}
