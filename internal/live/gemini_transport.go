package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"codeberg.org/snonux/lexilive/internal/audio"
)

// GeminiTransport connects to the Gemini Live API
type GeminiTransport struct {
	client *genai.Client
	logger *zap.SugaredLogger
}

// NewGeminiTransport creates a transport using client
func NewGeminiTransport(client *genai.Client, logger *zap.SugaredLogger) *GeminiTransport {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &GeminiTransport{client: client, logger: logger}
}

// Connect opens a live session answering with audio and transcripts
func (t *GeminiTransport) Connect(ctx context.Context, cfg Config) (Conn, error) {
	lc := &genai.LiveConnectConfig{
		ResponseModalities:       []genai.Modality{genai.ModalityAudio},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
	}
	if cfg.Voice != "" {
		lc.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}
	if cfg.SystemInstruction != "" {
		lc.SystemInstruction = genai.NewContentFromText(cfg.SystemInstruction, genai.RoleUser)
	}

	session, err := t.client.Live.Connect(ctx, cfg.Model, lc)
	if err != nil {
		return nil, fmt.Errorf("failed to connect live session: %w", err)
	}
	t.logger.Debugw("live session connected", "model", cfg.Model)

	return &geminiConn{
		session: session,
		input:   cfg.InputFormat,
		output:  cfg.OutputFormat,
	}, nil
}

type geminiConn struct {
	session *genai.Session
	input   audio.Format
	output  audio.Format

	sendMu sync.Mutex // the websocket allows one writer at a time

	queue []Event // events decoded but not yet returned
}

func (c *geminiConn) SendAudio(ctx context.Context, pcm []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: pcm, MIMEType: c.input.MIMEType()},
	})
}

func (c *geminiConn) SendText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.session.SendClientContent(genai.LiveClientContentInput{
		Turns:        []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		TurnComplete: genai.Ptr(true),
	})
}

func (c *geminiConn) EndAudio(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.session.SendRealtimeInput(genai.LiveRealtimeInput{AudioStreamEnd: true})
}

// Receive is only called from the session receive pump
func (c *geminiConn) Receive(ctx context.Context) (Event, error) {
	for len(c.queue) == 0 {
		if err := ctx.Err(); err != nil {
			return Event{}, err
		}
		msg, err := c.session.Receive()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) && (ce.Code == websocket.CloseNormalClosure || ce.Code == websocket.CloseGoingAway) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		c.queue = EventsFromMessage(msg, c.output.SampleRate)
	}

	ev := c.queue[0]
	c.queue = c.queue[1:]
	return ev, nil
}

func (c *geminiConn) Close() error {
	err := c.session.Close()
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

// EventsFromMessage converts one server message into session events in the
// order they should be handled. Audio in a rate other than outputRate is
// dropped.
func EventsFromMessage(msg *genai.LiveServerMessage, outputRate int) []Event {
	if msg == nil {
		return nil
	}

	var events []Event
	if msg.SetupComplete != nil {
		events = append(events, Event{Type: EventSetupComplete})
	}

	if sc := msg.ServerContent; sc != nil {
		if sc.Interrupted {
			events = append(events, Event{Type: EventInterrupted})
		}
		if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
			events = append(events, Event{Type: EventInputTranscript, Text: sc.InputTranscription.Text})
		}
		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
					continue
				}
				if !strings.HasPrefix(part.InlineData.MIMEType, "audio/pcm") {
					continue
				}
				if audio.ParsePCMMIMEType(part.InlineData.MIMEType, outputRate) != outputRate {
					continue
				}
				events = append(events, Event{Type: EventAudio, PCM: part.InlineData.Data})
			}
		}
		if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
			events = append(events, Event{Type: EventOutputTranscript, Text: sc.OutputTranscription.Text})
		}
		if sc.TurnComplete {
			events = append(events, Event{Type: EventTurnComplete})
		}
	}

	if msg.GoAway != nil {
		events = append(events, Event{Type: EventGoAway, TimeLeft: msg.GoAway.TimeLeft})
	}
	return events
}
