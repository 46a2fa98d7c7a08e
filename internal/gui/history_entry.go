package gui

import (
	"strings"
	"unicode/utf8"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"
)

// maxEntryHistory bounds the lines a HistoryEntry remembers
const maxEntryHistory = 50

// HistoryEntry is a single-line entry for words and chat turns. Enter
// submits the trimmed text, Up and Down step through earlier submissions
// and Escape clears the text, or hands focus back when it is already empty.
type HistoryEntry struct {
	widget.Entry

	onSubmit func(text string)
	onEscape func()

	history []string
	pos     int // len(history) while editing a new line
}

// NewHistoryEntry creates an entry calling onSubmit for every non-blank line
func NewHistoryEntry(onSubmit func(text string)) *HistoryEntry {
	e := &HistoryEntry{onSubmit: onSubmit}
	e.OnSubmitted = e.submit
	e.ExtendBaseWidget(e)
	return e
}

// SetOnEscape sets the callback for Escape on an empty entry
func (e *HistoryEntry) SetOnEscape(f func()) {
	e.onEscape = f
}

// History returns the remembered submissions, oldest first
func (e *HistoryEntry) History() []string {
	return append([]string(nil), e.history...)
}

func (e *HistoryEntry) submit(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if n := len(e.history); n == 0 || e.history[n-1] != text {
		e.history = append(e.history, text)
		if len(e.history) > maxEntryHistory {
			e.history = e.history[len(e.history)-maxEntryHistory:]
		}
	}
	e.pos = len(e.history)

	if e.onSubmit != nil {
		e.onSubmit(text)
	}
}

// TypedKey handles history navigation and Escape
func (e *HistoryEntry) TypedKey(key *fyne.KeyEvent) {
	switch key.Name {
	case fyne.KeyEscape:
		if e.Text != "" {
			e.pos = len(e.history)
			e.SetText("")
			return
		}
		if e.onEscape != nil {
			e.onEscape()
		}
	case fyne.KeyUp:
		if e.pos > 0 {
			e.pos--
			e.recall(e.history[e.pos])
		}
	case fyne.KeyDown:
		if e.pos >= len(e.history) {
			return
		}
		e.pos++
		if e.pos == len(e.history) {
			e.recall("")
		} else {
			e.recall(e.history[e.pos])
		}
	default:
		e.Entry.TypedKey(key)
	}
}

// recall shows text with the cursor at its end
func (e *HistoryEntry) recall(text string) {
	e.SetText(text)
	e.CursorColumn = utf8.RuneCountInString(text)
	e.Refresh()
}
