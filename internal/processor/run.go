package processor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"codeberg.org/snonux/lexilive/internal/audio"
	"codeberg.org/snonux/lexilive/internal/gui"
	"codeberg.org/snonux/lexilive/internal/live"
	"codeberg.org/snonux/lexilive/internal/server"
	"codeberg.org/snonux/lexilive/internal/vocab"
)

// RunLive holds a spoken conversation with the live model until the session
// ends or ctx is cancelled. Lines typed on the input are sent as text turns.
// Without a microphone the session is text only.
func (p *Processor) RunLive(ctx context.Context) error {
	return p.runLive(ctx, audio.NewPCMSink(p.liveConfig.OutputFormat))
}

func (p *Processor) runLive(ctx context.Context, sink live.Sink) error {
	if p.transport == nil {
		return fmt.Errorf("live conversation needs a Gemini API key and a live model")
	}

	cfg := p.liveConfig
	if p.flags.Practice {
		words, err := p.words.List(ctx)
		if err != nil {
			return err
		}
		cfg.SystemInstruction = vocab.PracticeInstruction(cfg.SystemInstruction, words, maxPracticeWords)
	}

	scheduler := live.NewScheduler(sink, cfg.OutputFormat,
		live.WithSchedulerLogger(p.logger),
		live.WithSchedulerMetrics(p.metrics),
	)
	defer scheduler.Close()

	opts := []live.SessionOption{
		live.WithConfig(cfg),
		live.WithLogger(p.logger),
		live.WithMetrics(p.metrics),
		live.OnState(func(s live.State) {
			fmt.Printf("-- %s\n", s)
		}),
		live.OnTranscript(func(role, text string) {
			fmt.Printf("%s: %s\n", speaker(role), strings.TrimSpace(text))
		}),
		live.OnError(func(err error) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}),
	}
	if p.frameSamples > 0 {
		opts = append(opts, live.WithFrameSamples(p.frameSamples))
	}
	session := live.NewSession(p.transport, scheduler, opts...)

	var source io.Reader
	mic, err := p.recorder.Start(ctx)
	switch {
	case errors.Is(err, audio.ErrNoRecorder):
		fmt.Fprintln(os.Stderr, "Warning: no recording tool found, type your turns instead")
	case err != nil:
		return fmt.Errorf("failed to start microphone: %w", err)
	default:
		defer mic.Close()
		source = mic
	}

	if err := session.Start(ctx, source); err != nil {
		return err
	}
	defer session.Stop()

	fmt.Println("Live session started. Type a message and press Enter, Ctrl-C to stop.")
	go p.readTurns(ctx, session)

	select {
	case <-session.Done():
	case <-ctx.Done():
		session.Stop()
	}
	p.recorder.Stop()

	if err := session.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// readTurns forwards typed lines to the session until the input ends
func (p *Processor) readTurns(ctx context.Context, session *live.Session) {
	scanner := bufio.NewScanner(p.in)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if err := session.SendText(ctx, text); err != nil {
			p.logger.Debugw("text turn not sent", "error", err)
			return
		}
	}
}

func speaker(role string) string {
	if role == live.RoleUser {
		return "You"
	}
	return "Tutor"
}

// RunServer serves the HTTP API until ctx is cancelled
func (p *Processor) RunServer(ctx context.Context, addr string) error {
	cfg := server.DefaultConfig()
	if addr != "" {
		cfg.Addr = addr
	}

	opts := []server.Option{
		server.WithLogger(p.logger),
		server.WithMetrics(p.metrics),
		server.WithMedia(p.media),
	}
	if p.rnd != nil {
		opts = append(opts, server.WithRand(p.rnd))
	}
	if p.transport != nil {
		opts = append(opts, server.WithLive(p.transport, p.liveConfig, p.frameSamples))
	}

	fmt.Printf("Serving on http://%s\n", cfg.Addr)
	return server.New(cfg, p.words, opts...).Run(ctx)
}

// RunGUI launches the desktop application
func (p *Processor) RunGUI(positions gui.PositionStore) error {
	app, err := gui.New(&gui.Config{
		Service:      p.words,
		Media:        p.media,
		Positions:    positions,
		Transport:    p.transport,
		LiveConfig:   p.liveConfig,
		FrameSamples: p.frameSamples,
		Logger:       p.logger,
		Metrics:      p.metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to start GUI: %w", err)
	}
	app.Run()
	return nil
}
