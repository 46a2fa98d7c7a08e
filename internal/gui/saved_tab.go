package gui

import (
	"context"
	"fmt"
	"net/url"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"

	"codeberg.org/snonux/lexilive/internal/vocab"
)

// savedTab lists saved words and manages their media
type savedTab struct {
	app     *Application
	content fyne.CanvasObject

	list         *widget.List
	countLabel   *widget.Label
	record       *RecordView
	imageDisplay *ImageDisplay
	player       *AudioPlayer
	busyLabel    *widget.Label

	imageButton  *ttwidget.Button
	videoButton  *ttwidget.Button
	openVideoBtn *ttwidget.Button
	speakButton  *ttwidget.Button
	deleteButton *ttwidget.Button

	words    []vocab.SavedWord
	selected string // id of the selected word
}

func newSavedTab(a *Application) *savedTab {
	t := &savedTab{app: a}

	t.list = widget.NewList(
		func() int { return len(t.words) },
		func() fyne.CanvasObject {
			return widget.NewLabel("template word - template meaning")
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id >= len(t.words) {
				return
			}
			obj.(*widget.Label).SetText(listText(t.words[id]))
		},
	)
	t.list.OnSelected = func(id widget.ListItemID) {
		if id < len(t.words) {
			t.selected = t.words[id].ID
			t.showWord(t.words[id])
		}
	}

	t.countLabel = widget.NewLabel("No saved words")
	t.record = NewRecordView()
	t.imageDisplay = NewImageDisplay(fyne.NewSize(240, 180))
	t.player = NewAudioPlayer()
	t.busyLabel = widget.NewLabel("")
	t.busyLabel.TextStyle = fyne.TextStyle{Italic: true}

	t.imageButton = ttwidget.NewButtonWithIcon("Image", theme.FileImageIcon(), func() { t.generate(vocab.KindImage) })
	t.imageButton.SetToolTip("Generate an illustration (i)")
	t.videoButton = ttwidget.NewButtonWithIcon("Video", theme.FileVideoIcon(), func() { t.generate(vocab.KindVideo) })
	t.videoButton.SetToolTip("Generate a short video clip, this can take minutes (v)")
	t.openVideoBtn = ttwidget.NewButtonWithIcon("", theme.MediaPlayIcon(), t.openVideo)
	t.openVideoBtn.SetToolTip("Open the video in the system player")
	t.speakButton = ttwidget.NewButtonWithIcon("Speak", theme.VolumeUpIcon(), t.speak)
	t.speakButton.SetToolTip("Play pronunciation (p)")
	t.deleteButton = ttwidget.NewButtonWithIcon("Delete", theme.DeleteIcon(), t.confirmDelete)
	t.deleteButton.Importance = widget.DangerImportance
	t.deleteButton.SetToolTip("Delete word and its media (Delete)")

	t.setActionsEnabled(false)

	toolbar := container.NewHBox(
		t.speakButton,
		widget.NewSeparator(),
		t.imageButton,
		t.videoButton,
		t.openVideoBtn,
		widget.NewSeparator(),
		t.deleteButton,
	)

	details := container.NewBorder(
		container.NewVBox(toolbar, t.busyLabel),
		t.player,
		nil, nil,
		container.NewVSplit(t.imageDisplay, container.NewVScroll(t.record)),
	)

	split := container.NewHSplit(
		container.NewBorder(nil, t.countLabel, nil, nil, t.list),
		details,
	)
	split.SetOffset(0.35)

	t.content = split
	return t
}

func listText(w vocab.SavedWord) string {
	if w.DefinitionZH != "" {
		return w.Word + " - " + w.DefinitionZH
	}
	return w.Word
}

// setWords must run on the UI goroutine
func (t *savedTab) setWords(words []vocab.SavedWord) {
	t.words = words
	t.list.Refresh()

	switch len(words) {
	case 0:
		t.countLabel.SetText("No saved words")
	case 1:
		t.countLabel.SetText("1 saved word")
	default:
		t.countLabel.SetText(fmt.Sprintf("%d saved words", len(words)))
	}

	// Keep the selection across reloads
	for i, w := range words {
		if w.ID == t.selected {
			t.list.Select(i)
			t.showWord(w)
			return
		}
	}
	t.selected = ""
	t.list.UnselectAll()
	t.clearDetails()
}

func (t *savedTab) current() (vocab.SavedWord, bool) {
	for _, w := range t.words {
		if w.ID == t.selected {
			return w, true
		}
	}
	return vocab.SavedWord{}, false
}

func (t *savedTab) showWord(w vocab.SavedWord) {
	t.record.SetRecord(w.WordRecord)
	t.player.Clear()
	if path := t.app.mediaPath(w.ImageRef); path != "" {
		t.imageDisplay.SetImage(path, w.Word)
	} else {
		t.imageDisplay.Clear()
	}
	t.setActionsEnabled(true)
	if w.VideoRef == "" {
		t.openVideoBtn.Disable()
	}
	t.setBusy(t.app.queue.ActiveJobs())
}

func (t *savedTab) clearDetails() {
	t.record.Clear()
	t.imageDisplay.Clear()
	t.player.Clear()
	t.busyLabel.SetText("")
	t.setActionsEnabled(false)
}

func (t *savedTab) setActionsEnabled(enabled bool) {
	buttons := []*ttwidget.Button{t.imageButton, t.videoButton, t.openVideoBtn, t.speakButton, t.deleteButton}
	for _, b := range buttons {
		if enabled {
			b.Enable()
		} else {
			b.Disable()
		}
	}
}

// setBusy shows which generations run for the selected word
func (t *savedTab) setBusy(jobs []MediaJob) {
	text := ""
	for _, job := range jobs {
		if job.WordID != t.selected {
			continue
		}
		if text != "" {
			text += ", "
		}
		text += fmt.Sprintf("%s %s", job.Kind, job.Status)
		if job.Kind == vocab.KindImage && job.Status == StatusProcessing {
			t.imageDisplay.SetGenerating()
		}
	}
	t.busyLabel.SetText(text)
}

func (t *savedTab) generate(kind string) {
	if w, ok := t.current(); ok {
		t.app.generateMedia(w, kind)
	}
}

func (t *savedTab) speak() {
	if w, ok := t.current(); ok {
		t.app.speak(w.Word, t.player, true)
	}
}

func (t *savedTab) openVideo() {
	w, ok := t.current()
	if !ok {
		return
	}
	path := t.app.mediaPath(w.VideoRef)
	if path == "" {
		return
	}
	if err := t.app.app.OpenURL(&url.URL{Scheme: "file", Path: path}); err != nil {
		t.app.showError("Opening video", err)
	}
}

func (t *savedTab) confirmDelete() {
	w, ok := t.current()
	if !ok {
		return
	}
	dialog.ShowConfirm("Delete word",
		fmt.Sprintf("Delete '%s' and its generated media?", w.Word),
		func(confirmed bool) {
			if confirmed {
				t.delete(w)
			}
		}, t.app.window)
}

func (t *savedTab) delete(w vocab.SavedWord) {
	t.app.goWithContext(func(ctx context.Context) {
		err := t.app.config.Service.Delete(ctx, w.ID)
		fyne.Do(func() {
			if err != nil {
				t.app.showError(fmt.Sprintf("Deleting '%s'", w.Word), err)
				return
			}
			t.app.queue.Forget(w.ID)
			t.app.updateStatus(fmt.Sprintf("Deleted '%s'", w.Word))
			t.app.refreshWords()
		})
	})
}

func (t *savedTab) handleKey(key fyne.KeyName) {
	switch key {
	case fyne.KeyDelete:
		if !t.deleteButton.Disabled() {
			t.confirmDelete()
		}
	case fyne.KeyUp, fyne.KeyDown:
		if len(t.words) == 0 {
			return
		}
		idx := 0
		for i, w := range t.words {
			if w.ID == t.selected {
				idx = i
				if key == fyne.KeyUp && i > 0 {
					idx = i - 1
				} else if key == fyne.KeyDown && i < len(t.words)-1 {
					idx = i + 1
				}
				break
			}
		}
		t.list.Select(idx)
	}
}

func (t *savedTab) handleRune(r rune) {
	switch r {
	case 'p':
		if !t.speakButton.Disabled() {
			t.speak()
		}
	case 'i':
		if !t.imageButton.Disabled() {
			t.generate(vocab.KindImage)
		}
	case 'v':
		if !t.videoButton.Disabled() {
			t.generate(vocab.KindVideo)
		}
	}
}
