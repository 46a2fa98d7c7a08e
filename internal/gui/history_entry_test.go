package gui

import (
	"reflect"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
)

func press(e *HistoryEntry, name fyne.KeyName) {
	e.TypedKey(&fyne.KeyEvent{Name: name})
}

func TestHistoryEntrySubmit(t *testing.T) {
	test.NewTempApp(t)

	var got []string
	e := NewHistoryEntry(func(text string) { got = append(got, text) })

	for _, text := range []string{"  apple ", "   ", "apple", "bank"} {
		e.SetText(text)
		press(e, fyne.KeyReturn)
	}

	want := []string{"apple", "apple", "bank"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Submitted %v, want %v", got, want)
	}
	if h := e.History(); !reflect.DeepEqual(h, []string{"apple", "bank"}) {
		t.Errorf("History = %v, want consecutive duplicates collapsed", h)
	}
}

func TestHistoryEntryNavigation(t *testing.T) {
	test.NewTempApp(t)

	e := NewHistoryEntry(nil)
	for _, text := range []string{"apple", "bank", "cherry"} {
		e.SetText(text)
		press(e, fyne.KeyReturn)
	}
	e.SetText("")

	steps := []struct {
		key  fyne.KeyName
		want string
	}{
		{fyne.KeyUp, "cherry"},
		{fyne.KeyUp, "bank"},
		{fyne.KeyUp, "apple"},
		{fyne.KeyUp, "apple"},
		{fyne.KeyDown, "bank"},
		{fyne.KeyDown, "cherry"},
		{fyne.KeyDown, ""},
		{fyne.KeyDown, ""},
	}
	for i, step := range steps {
		press(e, step.key)
		if e.Text != step.want {
			t.Fatalf("Step %d (%s): text = %q, want %q", i, step.key, e.Text, step.want)
		}
	}

	press(e, fyne.KeyUp)
	if e.CursorColumn != len("cherry") {
		t.Errorf("CursorColumn = %d, want end of recalled text", e.CursorColumn)
	}
}

func TestHistoryEntryEscape(t *testing.T) {
	test.NewTempApp(t)

	escaped := 0
	e := NewHistoryEntry(nil)
	e.SetOnEscape(func() { escaped++ })

	e.SetText("half typed")
	press(e, fyne.KeyEscape)
	if e.Text != "" {
		t.Errorf("Text = %q after Escape, want cleared", e.Text)
	}
	if escaped != 0 {
		t.Errorf("onEscape called while text was present")
	}

	press(e, fyne.KeyEscape)
	if escaped != 1 {
		t.Errorf("onEscape called %d times, want 1", escaped)
	}
}
