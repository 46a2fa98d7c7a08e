package gui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"codeberg.org/snonux/lexilive/internal/live"
)

// TranscriptView shows the running transcript of a live session
type TranscriptView struct {
	widget.BaseWidget

	container  *fyne.Container
	logEntry   *widget.Entry
	scrollView *container.Scroll

	mu          sync.Mutex
	lines       []string
	maxMessages int
	now         func() time.Time
}

// NewTranscriptView creates an empty transcript
func NewTranscriptView() *TranscriptView {
	v := &TranscriptView{
		maxMessages: 500,
		now:         time.Now,
	}

	v.logEntry = widget.NewMultiLineEntry()
	v.logEntry.Disable()
	v.logEntry.Wrapping = fyne.TextWrapWord

	v.scrollView = container.NewScroll(v.logEntry)
	v.scrollView.SetMinSize(fyne.NewSize(0, 240))

	v.container = container.NewBorder(
		widget.NewLabel("Transcript:"),
		nil, nil, nil,
		v.scrollView,
	)

	v.ExtendBaseWidget(v)
	return v
}

// CreateRenderer implements fyne.Widget
func (v *TranscriptView) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.container)
}

// Add appends a line spoken by role. Consecutive fragments of the same
// speaker are merged into one line. Safe to call from any goroutine.
func (v *TranscriptView) Add(role, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	v.mu.Lock()
	prefix := fmt.Sprintf("%s: ", speakerName(role))
	if n := len(v.lines); n > 0 && strings.Contains(v.lines[n-1], "] "+prefix) {
		v.lines[n-1] += text
	} else {
		v.lines = append(v.lines, fmt.Sprintf("[%s] %s%s", v.now().Format("15:04:05"), prefix, text))
	}
	if len(v.lines) > v.maxMessages {
		v.lines = v.lines[len(v.lines)-v.maxMessages:]
	}
	content := strings.Join(v.lines, "\n")
	v.mu.Unlock()

	fyne.Do(func() {
		v.logEntry.SetText(content)
		v.scrollView.ScrollToBottom()
	})
}

// Note adds a status line that is never merged with speech
func (v *TranscriptView) Note(format string, args ...interface{}) {
	v.mu.Lock()
	v.lines = append(v.lines, fmt.Sprintf("[%s] -- %s", v.now().Format("15:04:05"), fmt.Sprintf(format, args...)))
	content := strings.Join(v.lines, "\n")
	v.mu.Unlock()

	fyne.Do(func() {
		v.logEntry.SetText(content)
		v.scrollView.ScrollToBottom()
	})
}

// Clear removes all lines
func (v *TranscriptView) Clear() {
	v.mu.Lock()
	v.lines = v.lines[:0]
	v.mu.Unlock()

	fyne.Do(func() {
		v.logEntry.SetText("")
	})
}

// Text returns the transcript as plain text
func (v *TranscriptView) Text() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return strings.Join(v.lines, "\n")
}

func speakerName(role string) string {
	switch role {
	case live.RoleUser:
		return "You"
	case live.RoleModel:
		return "Tutor"
	default:
		return role
	}
}
