package live

import (
	"context"
	"time"

	"codeberg.org/snonux/lexilive/internal/audio"
)

// EventType identifies what a server event carries
type EventType int

const (
	EventSetupComplete EventType = iota
	EventAudio
	EventInterrupted
	EventTurnComplete
	EventInputTranscript
	EventOutputTranscript
	EventGoAway
)

var eventNames = map[EventType]string{
	EventSetupComplete:    "setup_complete",
	EventAudio:            "audio",
	EventInterrupted:      "interrupted",
	EventTurnComplete:     "turn_complete",
	EventInputTranscript:  "input_transcript",
	EventOutputTranscript: "output_transcript",
	EventGoAway:           "go_away",
}

func (t EventType) String() string {
	if name, ok := eventNames[t]; ok {
		return name
	}
	return "unknown"
}

// Event is one thing the server told the session
type Event struct {
	Type     EventType
	PCM      []byte        // EventAudio
	Text     string        // transcripts
	TimeLeft time.Duration // EventGoAway
}

// Config describes the live conversation to open
type Config struct {
	Model             string
	Voice             string
	SystemInstruction string
	InputFormat       audio.Format
	OutputFormat      audio.Format
}

// DefaultConfig returns the default live configuration
func DefaultConfig() Config {
	return Config{
		Model:             "gemini-2.5-flash-native-audio-preview-09-2025",
		Voice:             "Puck",
		SystemInstruction: DefaultInstruction,
		InputFormat:       audio.InputFormat,
		OutputFormat:      audio.OutputFormat,
	}
}

// DefaultInstruction sets up the model as a speaking partner
const DefaultInstruction = `You are a friendly English conversation partner for a Chinese-speaking learner.
Speak naturally but a little slower than usual and keep your turns short.
When the learner makes a mistake, repeat the sentence correctly once and move on.
If the learner asks what a word means, explain it simply in English and then in Chinese.`

// Transport opens live connections
type Transport interface {
	Connect(ctx context.Context, cfg Config) (Conn, error)
}

// Conn is one open live connection
type Conn interface {
	// SendAudio sends one frame of PCM in the configured input format
	SendAudio(ctx context.Context, pcm []byte) error
	// SendText sends a complete user text turn
	SendText(ctx context.Context, text string) error
	// EndAudio tells the server the audio stream has ended
	EndAudio(ctx context.Context) error
	// Receive blocks for the next server event
	Receive(ctx context.Context) (Event, error)
	// Close closes the connection; pending Receive calls return an error
	Close() error
}
