package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
)

// ErrNoPlayer is returned when no supported playback command is installed
var ErrNoPlayer = errors.New("no audio player found. Install mpg123, ffplay, sox, paplay, or aplay")

// LookPath is the command lookup used to pick players and recorders
var LookPath = exec.LookPath

// Player plays audio files through a platform-specific command
type Player struct {
	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewPlayer creates a new file player
func NewPlayer() *Player {
	return &Player{}
}

// PlayCommand returns the command used to play file on this platform
func PlayCommand(ctx context.Context, file string) (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "darwin":
		return exec.CommandContext(ctx, "afplay", file), nil
	case "linux", "freebsd", "openbsd":
		// mpg123 first since it handles MP3 files best; aplay only knows WAV
		candidates := [][]string{
			{"mpg123", "-q", file},
			{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", file},
			{"play", "-q", file},
			{"paplay", file},
			{"aplay", "-q", file},
		}
		for _, c := range candidates {
			if c[0] == "mpg123" && filepath.Ext(file) != ".mp3" {
				continue
			}
			if _, err := LookPath(c[0]); err == nil {
				return exec.CommandContext(ctx, c[0], c[1:]...), nil
			}
		}
		return nil, ErrNoPlayer
	case "windows":
		return exec.CommandContext(ctx, "cmd", "/c", "start", "/min", file), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// Play plays file and blocks until playback ends, Stop is called or ctx is done
func (p *Player) Play(ctx context.Context, file string) error {
	if _, err := os.Stat(file); err != nil {
		return fmt.Errorf("audio file not found: %w", err)
	}

	cmd, err := PlayCommand(ctx, file)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	p.cmd = cmd
	p.mu.Unlock()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", filepath.Base(cmd.Path), err)
	}
	err = cmd.Wait()

	p.mu.Lock()
	stopped := p.cmd != cmd
	if !stopped {
		p.cmd = nil
	}
	p.mu.Unlock()

	if stopped || ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("playback failed: %w", err)
	}
	return nil
}

// PlayBytes writes data to a temporary file named with ext and plays it
func (p *Player) PlayBytes(ctx context.Context, data []byte, ext string) error {
	f, err := os.CreateTemp("", "lexilive-*"+ext)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return p.Play(ctx, f.Name())
}

// Stop kills any running playback
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil && p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	p.cmd = nil
}
