package gui

import (
	"context"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"

	"codeberg.org/snonux/lexilive/internal/vocab"
)

// PositionKey is the setting holding the id of the last reviewed card
const PositionKey = "deck.position"

// flashcardTab reviews saved words one card at a time
type flashcardTab struct {
	app     *Application
	content fyne.CanvasObject

	deck *vocab.Deck

	card          *RecordView
	imageDisplay  *ImageDisplay
	player        *AudioPlayer
	progressLabel *widget.Label

	prevButton    *ttwidget.Button
	nextButton    *ttwidget.Button
	flipButton    *ttwidget.Button
	shuffleButton *ttwidget.Button
	speakButton   *ttwidget.Button

	restored bool   // position was read from the store
	lastID   string // card restored or last saved
}

func newFlashcardTab(a *Application) *flashcardTab {
	t := &flashcardTab{
		app:  a,
		deck: vocab.NewDeck(nil, false, nil),
	}

	t.card = NewRecordView()
	t.imageDisplay = NewImageDisplay(fyne.NewSize(320, 240))
	t.player = NewAudioPlayer()
	t.progressLabel = widget.NewLabel("")

	t.prevButton = ttwidget.NewButtonWithIcon("", theme.NavigateBackIcon(), t.prev)
	t.prevButton.SetToolTip("Previous card (Left)")
	t.nextButton = ttwidget.NewButtonWithIcon("", theme.NavigateNextIcon(), t.next)
	t.nextButton.SetToolTip("Next card (Right)")
	t.flipButton = ttwidget.NewButtonWithIcon("Flip", theme.ViewRefreshIcon(), t.flip)
	t.flipButton.SetToolTip("Show the other side (Space)")
	t.shuffleButton = ttwidget.NewButtonWithIcon("Shuffle", theme.ContentRedoIcon(), t.shuffle)
	t.shuffleButton.SetToolTip("Shuffle the deck (r)")
	t.speakButton = ttwidget.NewButtonWithIcon("", theme.VolumeUpIcon(), t.speak)
	t.speakButton.SetToolTip("Play pronunciation (p)")

	controls := container.NewHBox(
		t.prevButton,
		t.flipButton,
		t.nextButton,
		layout.NewSpacer(),
		t.progressLabel,
		layout.NewSpacer(),
		t.speakButton,
		t.shuffleButton,
	)

	t.content = container.NewBorder(
		nil,
		container.NewVBox(widget.NewSeparator(), t.player, controls),
		nil, nil,
		container.NewVSplit(t.imageDisplay, container.NewVScroll(t.card)),
	)

	t.render()
	return t
}

// setWords rebuilds the deck in saved order and keeps the current card
// when it is still saved. Must run on the UI goroutine.
func (t *flashcardTab) setWords(words []vocab.SavedWord) {
	currentID := t.lastID
	if w, ok := t.deck.Current(); ok {
		currentID = w.ID
	}

	t.deck = vocab.NewDeck(words, false, nil)
	if !t.restored {
		t.restorePosition()
		return
	}
	t.deck.Seek(cardIndex(t.deck.Cards(), currentID))
	t.render()
}

// restorePosition loads the last reviewed card from the position store
func (t *flashcardTab) restorePosition() {
	t.restored = true
	if t.app.config.Positions == nil {
		t.render()
		return
	}
	t.app.goWithContext(func(ctx context.Context) {
		id, err := t.app.config.Positions.Get(ctx, PositionKey)
		if err != nil {
			t.app.logger.Debugw("no saved flashcard position", "error", err)
		}
		fyne.Do(func() {
			if id != "" {
				t.lastID = id
				t.deck.Seek(cardIndex(t.deck.Cards(), id))
			}
			t.render()
		})
	})
}

// savePosition remembers the current card in the background
func (t *flashcardTab) savePosition() {
	w, ok := t.deck.Current()
	if !ok || w.ID == t.lastID {
		return
	}
	t.lastID = w.ID
	if t.app.config.Positions == nil {
		return
	}
	t.app.goWithContext(func(ctx context.Context) {
		if err := t.app.config.Positions.Put(ctx, PositionKey, w.ID); err != nil {
			t.app.logger.Warnw("failed to save flashcard position", "error", err)
		}
	})
}

// cardIndex returns the position of the card with id, or 0
func cardIndex(cards []vocab.SavedWord, id string) int {
	for i, c := range cards {
		if c.ID == id {
			return i
		}
	}
	return 0
}

// render shows the current side of the current card
func (t *flashcardTab) render() {
	w, ok := t.deck.Current()
	if !ok {
		t.card.SetMarkdown("## No cards yet\n\nSave some words on the Search tab to review them here.")
		t.imageDisplay.Clear()
		t.player.Clear()
		t.progressLabel.SetText("")
		for _, b := range []*ttwidget.Button{t.prevButton, t.nextButton, t.flipButton, t.shuffleButton, t.speakButton} {
			b.Disable()
		}
		return
	}

	for _, b := range []*ttwidget.Button{t.prevButton, t.nextButton, t.flipButton, t.shuffleButton, t.speakButton} {
		b.Enable()
	}
	t.progressLabel.SetText(progressText(t.deck.Index(), t.deck.Len()))

	if t.deck.Flipped() {
		t.card.SetMarkdown(RecordFront(w.WordRecord) + "\n\n" + RecordBack(w.WordRecord))
		t.flipButton.SetText("Front")
	} else {
		t.card.SetMarkdown(RecordFront(w.WordRecord))
		t.flipButton.SetText("Flip")
	}

	if path := t.app.mediaPath(w.ImageRef); path != "" {
		t.imageDisplay.SetImage(path, "")
	} else {
		t.imageDisplay.Clear()
	}
}

func progressText(index, total int) string {
	if total == 0 {
		return ""
	}
	return fmt.Sprintf("%d / %d", index+1, total)
}

func (t *flashcardTab) flip() {
	t.deck.Flip()
	t.render()
}

func (t *flashcardTab) next() {
	t.deck.Next()
	t.moved()
}

func (t *flashcardTab) prev() {
	t.deck.Prev()
	t.moved()
}

func (t *flashcardTab) shuffle() {
	t.deck.Shuffle()
	t.moved()
	t.app.updateStatus("Deck shuffled")
}

func (t *flashcardTab) moved() {
	t.player.Clear()
	t.render()
	t.savePosition()
}

func (t *flashcardTab) speak() {
	if w, ok := t.deck.Current(); ok {
		t.app.speak(w.Word, t.player, true)
	}
}

func (t *flashcardTab) handleKey(key fyne.KeyName) {
	switch key {
	case fyne.KeySpace:
		t.flip()
	case fyne.KeyLeft:
		t.prev()
	case fyne.KeyRight:
		t.next()
	}
}

func (t *flashcardTab) handleRune(r rune) {
	switch r {
	case 'r':
		if t.deck.Len() > 0 {
			t.shuffle()
		}
	case 'p':
		t.speak()
	}
}
