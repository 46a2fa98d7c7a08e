package gui

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"

	"codeberg.org/snonux/lexilive/internal/vocab"
)

// searchTab looks words up and labels images
type searchTab struct {
	app     *Application
	content fyne.CanvasObject

	entry        *HistoryEntry
	lookupButton *ttwidget.Button
	saveButton   *ttwidget.Button
	speakButton  *ttwidget.Button
	labelButton  *ttwidget.Button
	record       *RecordView
	player       *AudioPlayer
	labelsBox    *fyne.Container

	current *vocab.WordRecord
	seq     int // discards results of superseded lookups
}

func newSearchTab(a *Application) *searchTab {
	t := &searchTab{app: a}

	t.entry = NewHistoryEntry(func(string) {
		t.lookup()
		a.window.Canvas().Unfocus()
	})
	t.entry.SetPlaceHolder("Type an English word and press Enter, Up for earlier words...")
	t.entry.SetOnEscape(func() { a.window.Canvas().Unfocus() })

	t.lookupButton = ttwidget.NewButtonWithIcon("", theme.SearchIcon(), t.lookup)
	t.lookupButton.SetToolTip("Look up (Enter)")

	t.saveButton = ttwidget.NewButtonWithIcon("Save", theme.DocumentSaveIcon(), t.save)
	t.saveButton.SetToolTip("Save to word list (s)")
	t.speakButton = ttwidget.NewButtonWithIcon("Speak", theme.VolumeUpIcon(), t.speak)
	t.speakButton.SetToolTip("Synthesize and play pronunciation (p)")
	t.labelButton = ttwidget.NewButtonWithIcon("Label image", theme.FileImageIcon(), t.pickImage)
	t.labelButton.SetToolTip("Find objects in a picture and learn their names (l)")

	t.record = NewRecordView()
	t.player = NewAudioPlayer()
	t.labelsBox = container.NewVBox()

	t.setRecordActions(false)

	inputSection := container.NewBorder(nil, nil, nil, t.lookupButton, t.entry)
	actions := container.NewHBox(t.saveButton, t.speakButton, widget.NewSeparator(), t.labelButton)

	labelsSection := container.NewBorder(
		widget.NewLabelWithStyle("Objects in image", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		nil, nil, nil,
		container.NewVScroll(t.labelsBox),
	)

	split := container.NewHSplit(
		container.NewBorder(nil, t.player, nil, nil, container.NewVScroll(t.record)),
		labelsSection,
	)
	split.SetOffset(0.7)

	t.content = container.NewBorder(
		container.NewVBox(inputSection, actions, widget.NewSeparator()),
		nil, nil, nil,
		split,
	)
	return t
}

func (t *searchTab) setRecordActions(enabled bool) {
	if enabled {
		t.speakButton.Enable()
		t.refreshSaveButton()
		return
	}
	t.saveButton.Disable()
	t.speakButton.Disable()
}

// refreshSaveButton disables Save when the shown word is already saved
func (t *searchTab) refreshSaveButton() {
	if t.current == nil {
		t.saveButton.Disable()
		return
	}
	for _, w := range t.app.savedWords() {
		if strings.EqualFold(w.Word, t.current.Word) {
			t.saveButton.SetText("Saved")
			t.saveButton.Disable()
			return
		}
	}
	t.saveButton.SetText("Save")
	t.saveButton.Enable()
}

func (t *searchTab) lookup() {
	word := strings.TrimSpace(t.entry.Text)
	if word == "" {
		return
	}

	t.seq++
	seq := t.seq
	t.current = nil
	t.setRecordActions(false)
	t.player.Clear()
	t.record.SetLoading(word)
	t.app.updateStatus(fmt.Sprintf("Looking up '%s'...", word))

	t.app.goWithContext(func(ctx context.Context) {
		record, err := t.app.config.Service.Lookup(ctx, word)
		fyne.Do(func() {
			if seq != t.seq {
				return
			}
			if err != nil {
				t.record.Clear()
				t.app.showError(fmt.Sprintf("Looking up '%s'", word), err)
				return
			}
			t.current = &record
			t.record.SetRecord(record)
			t.setRecordActions(true)
			t.app.updateStatus(fmt.Sprintf("Found '%s'", record.Word))
		})
	})
}

func (t *searchTab) save() {
	if t.current == nil {
		return
	}
	record := *t.current
	t.saveButton.Disable()

	t.app.goWithContext(func(ctx context.Context) {
		saved, created, err := t.app.config.Service.Save(ctx, record)
		fyne.Do(func() {
			if err != nil {
				t.app.showError(fmt.Sprintf("Saving '%s'", record.Word), err)
				t.refreshSaveButton()
				return
			}
			if created {
				t.app.updateStatus(fmt.Sprintf("Saved '%s'", saved.Word))
			} else {
				t.app.updateStatus(fmt.Sprintf("'%s' was already saved", saved.Word))
			}
			t.app.refreshWords()
		})
	})
}

func (t *searchTab) speak() {
	if t.current == nil {
		return
	}
	t.app.speak(t.current.Word, t.player, true)
}

func (t *searchTab) pickImage() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			t.app.showError("Opening image", err)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()
		t.labelImage(path)
	}, t.app.window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".webp", ".gif"}))
	fd.Show()
}

func (t *searchTab) labelImage(path string) {
	t.labelsBox.RemoveAll()
	t.labelsBox.Add(widget.NewLabel("Analysing " + filepath.Base(path) + "..."))
	t.app.updateStatus("Analysing image...")

	t.app.goWithContext(func(ctx context.Context) {
		data, err := os.ReadFile(path)
		var labels []vocab.Label
		if err == nil {
			labels, err = t.app.config.Service.Label(ctx, data, mime.TypeByExtension(strings.ToLower(filepath.Ext(path))))
		}
		fyne.Do(func() {
			t.labelsBox.RemoveAll()
			if err != nil {
				t.app.showError("Labeling image", err)
				return
			}
			t.showLabels(labels)
			t.app.updateStatus(fmt.Sprintf("Found %d objects", len(labels)))
		})
	})
}

// showLabels lists the labels as buttons that look the word up
func (t *searchTab) showLabels(labels []vocab.Label) {
	if len(labels) == 0 {
		t.labelsBox.Add(widget.NewLabel("Nothing recognised"))
		return
	}
	for _, l := range labels {
		name := l.Name
		btn := widget.NewButton(LabelText(l), func() {
			t.entry.SetText(name)
			t.lookup()
		})
		btn.Alignment = widget.ButtonAlignLeading
		t.labelsBox.Add(btn)
	}
}

func (t *searchTab) handleKey(key fyne.KeyName) {
	if key == fyne.KeyReturn || key == fyne.KeyEnter {
		t.app.window.Canvas().Focus(t.entry)
	}
}

func (t *searchTab) handleRune(r rune) {
	switch r {
	case 's':
		if !t.saveButton.Disabled() {
			t.save()
		}
	case 'p':
		if !t.speakButton.Disabled() {
			t.speak()
		}
	case 'l':
		t.pickImage()
	}
}

// LabelText formats a label as "name (中文) 97%"
func LabelText(l vocab.Label) string {
	text := l.Name
	if l.NameZH != "" {
		text += " (" + l.NameZH + ")"
	}
	return fmt.Sprintf("%s %.0f%%", text, l.Confidence*100)
}
