package gui

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"

	"codeberg.org/snonux/lexilive/internal/audio"
	"codeberg.org/snonux/lexilive/internal/live"
	"codeberg.org/snonux/lexilive/internal/vocab"
)

// maxPracticeWords limits how many saved words go into the instruction
const maxPracticeWords = 20

// liveTab runs a spoken conversation with the model
type liveTab struct {
	app     *Application
	content fyne.CanvasObject

	startButton   *ttwidget.Button
	stopButton    *ttwidget.Button
	practiceCheck *widget.Check
	stateLabel    *widget.Label
	transcript    *TranscriptView
	textEntry     *HistoryEntry
	sendButton    *ttwidget.Button

	mu        sync.Mutex
	session   *live.Session
	scheduler *live.Scheduler
}

func newLiveTab(a *Application) *liveTab {
	t := &liveTab{app: a}

	t.startButton = ttwidget.NewButtonWithIcon("Start", theme.MediaRecordIcon(), t.start)
	t.startButton.Importance = widget.HighImportance
	t.startButton.SetToolTip("Start talking with your tutor")
	t.stopButton = ttwidget.NewButtonWithIcon("Stop", theme.MediaStopIcon(), t.stop)
	t.stopButton.SetToolTip("End the conversation")
	t.stopButton.Disable()

	t.practiceCheck = widget.NewCheck("Practise my saved words", nil)
	t.stateLabel = widget.NewLabel("")
	t.transcript = NewTranscriptView()

	t.textEntry = NewHistoryEntry(func(string) { t.sendText() })
	t.textEntry.SetPlaceHolder("Type a message instead of speaking...")
	t.textEntry.SetOnEscape(func() { a.window.Canvas().Unfocus() })
	t.sendButton = ttwidget.NewButtonWithIcon("", theme.MailSendIcon(), t.sendText)
	t.sendButton.SetToolTip("Send text")

	controls := container.NewHBox(t.startButton, t.stopButton, t.practiceCheck, widget.NewSeparator(), t.stateLabel)
	input := container.NewBorder(nil, nil, nil, t.sendButton, t.textEntry)

	t.content = container.NewBorder(
		container.NewVBox(controls, widget.NewSeparator()),
		input,
		nil, nil,
		t.transcript,
	)

	if a.config.Transport == nil {
		t.startButton.Disable()
		t.practiceCheck.Disable()
		t.setState("unavailable (no live model configured)")
	} else {
		t.setState(live.StateIdle.String())
	}
	t.setInputEnabled(false)
	return t
}

func (t *liveTab) setState(state string) {
	t.stateLabel.SetText("State: " + state)
}

func (t *liveTab) setInputEnabled(enabled bool) {
	if enabled {
		t.textEntry.Enable()
		t.sendButton.Enable()
		return
	}
	t.textEntry.Disable()
	t.sendButton.Disable()
}

// start opens a new session; must run on the UI goroutine
func (t *liveTab) start() {
	t.mu.Lock()
	if t.session != nil {
		t.mu.Unlock()
		return
	}

	cfg := t.app.config.LiveConfig
	if t.practiceCheck.Checked {
		cfg.SystemInstruction = vocab.PracticeInstruction(cfg.SystemInstruction, t.app.savedWords(), maxPracticeWords)
	}

	scheduler := live.NewScheduler(
		audio.NewPCMSink(cfg.OutputFormat),
		cfg.OutputFormat,
		live.WithSchedulerLogger(t.app.logger),
		live.WithSchedulerMetrics(t.app.config.Metrics),
	)

	opts := []live.SessionOption{
		live.WithConfig(cfg),
		live.WithLogger(t.app.logger),
		live.WithMetrics(t.app.config.Metrics),
		// Callbacks run under the session lock, fyne.Do only schedules
		live.OnState(func(s live.State) {
			fyne.Do(func() { t.onState(s) })
		}),
		live.OnTranscript(func(role, text string) {
			t.transcript.Add(role, text)
		}),
		live.OnError(func(err error) {
			fyne.Do(func() { t.app.showError("Live session", err) })
		}),
	}
	if n := t.app.config.FrameSamples; n > 0 {
		opts = append(opts, live.WithFrameSamples(n))
	}

	session := live.NewSession(t.app.config.Transport, scheduler, opts...)
	t.session = session
	t.scheduler = scheduler
	t.mu.Unlock()

	t.startButton.Disable()
	t.practiceCheck.Disable()
	t.stopButton.Enable()
	t.transcript.Clear()

	t.app.goWithContext(func(ctx context.Context) {
		source, err := t.openMicrophone(ctx, cfg.InputFormat)
		if err != nil {
			fyne.Do(func() { t.app.showError("Opening microphone", err) })
			session.Stop()
			t.finish(session)
			return
		}

		if source == nil {
			err = session.Start(ctx, nil)
		} else {
			err = session.Start(ctx, source)
			if err != nil {
				source.Close()
			}
		}
		if err != nil {
			// OnError already reported the failure
			t.finish(session)
			return
		}

		select {
		case <-session.Done():
		case <-ctx.Done():
			session.Stop()
		}
		if source != nil {
			source.Close()
		}
		t.finish(session)
	})
}

// openMicrophone starts capture. Without a capture tool the session runs
// text only and a nil source is returned.
func (t *liveTab) openMicrophone(ctx context.Context, format audio.Format) (io.ReadCloser, error) {
	source, err := audio.NewRecorder(format).Start(ctx)
	if errors.Is(err, audio.ErrNoRecorder) {
		t.app.logger.Warnw("microphone unavailable, live session is text only", "error", err)
		t.transcript.Note("Microphone unavailable: %v. You can still type.", err)
		return nil, nil
	}
	return source, err
}

// finish releases the playback of a finished session
func (t *liveTab) finish(session *live.Session) {
	t.mu.Lock()
	scheduler := t.scheduler
	if t.session == session {
		t.session = nil
		t.scheduler = nil
	} else {
		scheduler = nil
	}
	t.mu.Unlock()

	if scheduler != nil {
		if err := scheduler.Close(); err != nil {
			t.app.logger.Debugw("failed to close audio output", "error", err)
		}
	}

	fyne.Do(func() {
		t.mu.Lock()
		idle := t.session == nil
		t.mu.Unlock()
		if idle {
			t.stopButton.Disable()
			t.setInputEnabled(false)
			if t.app.config.Transport != nil {
				t.startButton.Enable()
				t.practiceCheck.Enable()
			}
		}
	})
}

func (t *liveTab) onState(state live.State) {
	t.setState(state.String())
	t.setInputEnabled(state == live.StateActive)
	switch state {
	case live.StateActive:
		t.app.updateStatus("Live session started")
	case live.StateClosed:
		t.transcript.Note("Session ended")
		t.app.updateStatus("Live session ended")
	case live.StateFailed:
		t.transcript.Note("Session failed")
	}
}

// stop ends the running session in the background; finish re-enables the
// controls once it has closed
func (t *liveTab) stop() {
	t.mu.Lock()
	session := t.session
	t.mu.Unlock()
	if session == nil {
		return
	}
	t.stopButton.Disable()
	t.app.goWithContext(func(context.Context) {
		session.Stop()
	})
}

func (t *liveTab) sendText() {
	text := strings.TrimSpace(t.textEntry.Text)
	t.mu.Lock()
	session := t.session
	t.mu.Unlock()
	if text == "" || session == nil {
		return
	}
	t.textEntry.SetText("")

	t.app.goWithContext(func(ctx context.Context) {
		if err := session.SendText(ctx, text); err != nil {
			fyne.Do(func() { t.app.showError("Sending text", err) })
		}
	})
}
