package gui

import (
	"context"
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"

	"codeberg.org/snonux/lexilive/internal/audio"
	"codeberg.org/snonux/lexilive/internal/vocab"
)

// AudioPlayer plays synthesized speech held in memory
type AudioPlayer struct {
	widget.BaseWidget

	container   *fyne.Container
	playButton  *ttwidget.Button
	stopButton  *ttwidget.Button
	statusLabel *widget.Label

	player *audio.Player

	mu        sync.Mutex
	speech    vocab.Media
	label     string
	isPlaying bool
}

// NewAudioPlayer creates a new audio player widget
func NewAudioPlayer() *AudioPlayer {
	p := &AudioPlayer{player: audio.NewPlayer()}

	p.playButton = ttwidget.NewButton("", p.onPlay)
	p.playButton.Icon = theme.MediaPlayIcon()
	p.playButton.SetToolTip("Play pronunciation (p)")

	p.stopButton = ttwidget.NewButton("", p.onStop)
	p.stopButton.Icon = theme.MediaStopIcon()
	p.stopButton.SetToolTip("Stop audio")

	p.statusLabel = widget.NewLabel("No audio loaded")

	p.playButton.Disable()
	p.stopButton.Disable()

	p.container = container.NewHBox(
		p.playButton,
		p.stopButton,
		layout.NewSpacer(),
		p.statusLabel,
	)

	p.ExtendBaseWidget(p)
	return p
}

// CreateRenderer implements fyne.Widget
func (p *AudioPlayer) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(p.container)
}

// SetSpeech loads speech for label, replacing whatever was loaded
func (p *AudioPlayer) SetSpeech(speech vocab.Media, label string) {
	p.player.Stop()

	p.mu.Lock()
	p.speech = speech
	p.label = label
	p.isPlaying = false
	p.mu.Unlock()

	if len(speech.Data) == 0 {
		p.Clear()
		return
	}
	p.playButton.Enable()
	p.playButton.SetIcon(theme.MediaPlayIcon())
	p.stopButton.Disable()
	p.statusLabel.SetText("Audio: " + label)
}

// Clear clears the audio player
func (p *AudioPlayer) Clear() {
	p.player.Stop()
	p.mu.Lock()
	p.speech = vocab.Media{}
	p.label = ""
	p.isPlaying = false
	p.mu.Unlock()

	p.playButton.Disable()
	p.stopButton.Disable()
	p.statusLabel.SetText("No audio loaded")
}

// Play triggers audio playback
func (p *AudioPlayer) Play() {
	if !p.playButton.Disabled() {
		p.onPlay()
	}
}

func (p *AudioPlayer) onPlay() {
	p.mu.Lock()
	if len(p.speech.Data) == 0 {
		p.mu.Unlock()
		return
	}
	if p.isPlaying {
		p.mu.Unlock()
		p.onStop()
		return
	}
	speech, label := p.speech, p.label
	p.isPlaying = true
	p.mu.Unlock()

	p.playButton.SetIcon(theme.MediaPauseIcon())
	p.stopButton.Enable()
	p.statusLabel.SetText("Playing: " + label)

	go func() {
		err := p.player.PlayBytes(context.Background(), speech.Data, extensionFor(speech))

		p.mu.Lock()
		p.isPlaying = false
		p.mu.Unlock()

		fyne.Do(func() {
			p.playButton.SetIcon(theme.MediaPlayIcon())
			p.stopButton.Disable()
			if err != nil {
				p.statusLabel.SetText(fmt.Sprintf("Error: %v", err))
			} else {
				p.statusLabel.SetText("Finished: " + label)
			}
		})
	}()
}

func (p *AudioPlayer) onStop() {
	p.player.Stop()
}

func extensionFor(m vocab.Media) string {
	switch {
	case audio.IsWAV(m.Data):
		return ".wav"
	case m.MIMEType == "audio/mpeg":
		return ".mp3"
	default:
		return ".wav"
	}
}
