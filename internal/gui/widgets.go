package gui

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"codeberg.org/snonux/lexilive/internal/vocab"
)

// ImageDisplay shows the generated illustration of a word
type ImageDisplay struct {
	widget.BaseWidget

	container   *fyne.Container
	imageCanvas *canvas.Image
	imageLabel  *widget.Label

	currentImage string
}

// NewImageDisplay creates an image display of at least minSize
func NewImageDisplay(minSize fyne.Size) *ImageDisplay {
	d := &ImageDisplay{}

	d.imageCanvas = canvas.NewImageFromResource(nil)
	d.imageCanvas.FillMode = canvas.ImageFillContain
	d.imageCanvas.SetMinSize(minSize)

	d.imageLabel = widget.NewLabel("No image")
	d.imageLabel.Alignment = fyne.TextAlignCenter

	d.container = container.NewBorder(
		nil,
		d.imageLabel,
		nil, nil,
		d.imageCanvas,
	)

	d.ExtendBaseWidget(d)
	return d
}

// CreateRenderer implements fyne.Widget
func (d *ImageDisplay) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(d.container)
}

// SetImage loads and shows an image file. An empty path clears the display.
func (d *ImageDisplay) SetImage(imagePath, caption string) {
	if imagePath == "" {
		d.Clear()
		return
	}
	if imagePath == d.currentImage {
		d.imageLabel.SetText(caption)
		return
	}

	file, err := os.Open(imagePath)
	if err != nil {
		d.showError(fmt.Errorf("error loading image: %w", err))
		return
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		d.showError(fmt.Errorf("error decoding image: %w", err))
		return
	}

	d.currentImage = imagePath
	d.imageCanvas.Image = img
	d.imageCanvas.Refresh()
	d.imageLabel.SetText(caption)
}

// Clear clears the display
func (d *ImageDisplay) Clear() {
	d.setStatus("No image")
}

// SetGenerating shows a generating status
func (d *ImageDisplay) SetGenerating() {
	d.setStatus("Generating...")
}

func (d *ImageDisplay) showError(err error) {
	d.setStatus(err.Error())
}

func (d *ImageDisplay) setStatus(text string) {
	d.currentImage = ""
	d.imageCanvas.Image = nil
	d.imageCanvas.Refresh()
	d.imageLabel.SetText(text)
}

// RecordView renders a word record as rich text
type RecordView struct {
	widget.BaseWidget

	text *widget.RichText
}

// NewRecordView creates an empty record view
func NewRecordView() *RecordView {
	v := &RecordView{text: widget.NewRichTextFromMarkdown("")}
	v.text.Wrapping = fyne.TextWrapWord
	v.ExtendBaseWidget(v)
	return v
}

// CreateRenderer implements fyne.Widget
func (v *RecordView) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.text)
}

// SetRecord shows the whole record
func (v *RecordView) SetRecord(r vocab.WordRecord) {
	v.text.ParseMarkdown(RecordFront(r) + "\n\n" + RecordBack(r))
}

// SetMarkdown shows arbitrary markdown
func (v *RecordView) SetMarkdown(md string) {
	v.text.ParseMarkdown(md)
}

// SetLoading shows a placeholder while word is looked up
func (v *RecordView) SetLoading(word string) {
	v.text.ParseMarkdown("*Looking up " + word + "...*")
}

// Clear empties the view
func (v *RecordView) Clear() {
	v.text.ParseMarkdown("")
}

// RecordFront is the flashcard front: the word and how to say it
func RecordFront(r vocab.WordRecord) string {
	var b strings.Builder
	b.WriteString("# " + r.Word + "\n\n")
	if r.Phonetic != "" {
		b.WriteString(r.Phonetic)
		if r.PartOfSpeech != "" {
			b.WriteString("  *" + r.PartOfSpeech + "*")
		}
	} else if r.PartOfSpeech != "" {
		b.WriteString("*" + r.PartOfSpeech + "*")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RecordBack is the flashcard back: meanings and example
func RecordBack(r vocab.WordRecord) string {
	var parts []string
	if r.DefinitionEN != "" {
		parts = append(parts, "**English:** "+r.DefinitionEN)
	}
	if r.DefinitionZH != "" {
		parts = append(parts, "**中文:** "+r.DefinitionZH)
	}
	if r.Example != "" {
		example := "> " + r.Example
		if r.ExampleZH != "" {
			example += "\n>\n> " + r.ExampleZH
		}
		parts = append(parts, example)
	}
	return strings.Join(parts, "\n\n")
}
