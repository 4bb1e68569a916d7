package picker

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/nikbrunner/pdfshelf/internal/search"
)

func testResults() []search.SearchResult {
	return []search.SearchResult{
		{Entry: search.Entry{Kind: search.KindBookmark, PdfPath: "/docs/a.pdf", Page: 3, BookmarkID: "b1", Text: "Intro"}},
		{Entry: search.Entry{Kind: search.KindPdf, PdfPath: "/docs/intro.pdf", Text: "intro.pdf"}},
	}
}

func TestPicker_InitialState(t *testing.T) {
	p := New(testResults(), "intro")

	if p.cursor != 0 {
		t.Errorf("expected cursor at 0, got %d", p.cursor)
	}
	if len(p.results) != 2 {
		t.Errorf("expected 2 results, got %d", len(p.results))
	}
}

func TestPicker_NavigateDown(t *testing.T) {
	p := New(testResults(), "intro")
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}}

	newModel, _ := p.Update(msg)
	p = newModel.(Picker)

	if p.cursor != 1 {
		t.Errorf("expected cursor at 1, got %d", p.cursor)
	}
}

func TestPicker_NavigateUp(t *testing.T) {
	p := New(testResults(), "intro")
	// Move down first
	p.cursor = 1

	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}}
	newModel, _ := p.Update(msg)
	p = newModel.(Picker)

	if p.cursor != 0 {
		t.Errorf("expected cursor at 0, got %d", p.cursor)
	}
}

func TestPicker_BoundsCheck(t *testing.T) {
	p := New(testResults()[:1], "intro")

	// Try to go up from 0 (should stay at 0)
	newModel, _ := p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	p = newModel.(Picker)
	if p.cursor != 0 {
		t.Errorf("expected cursor at 0, got %d", p.cursor)
	}

	// Try to go down from last (should stay at last)
	newModel, _ = p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	p = newModel.(Picker)
	if p.cursor != 0 {
		t.Errorf("expected cursor at 0 (only 1 item), got %d", p.cursor)
	}
}

func TestPicker_ArrowKeys(t *testing.T) {
	p := New(testResults(), "intro")

	newModel, _ := p.Update(tea.KeyMsg{Type: tea.KeyDown})
	p = newModel.(Picker)
	if p.cursor != 1 {
		t.Errorf("expected cursor at 1 after down arrow, got %d", p.cursor)
	}

	newModel, _ = p.Update(tea.KeyMsg{Type: tea.KeyUp})
	p = newModel.(Picker)
	if p.cursor != 0 {
		t.Errorf("expected cursor at 0 after up arrow, got %d", p.cursor)
	}
}

func TestPicker_SelectItem(t *testing.T) {
	p := New(testResults(), "intro")
	p.cursor = 1

	newModel, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p = newModel.(Picker)

	if cmd == nil {
		t.Error("expected quit command after selection")
	}
	entry, ok := p.Selected()
	if !ok {
		t.Fatal("expected a selection after Enter")
	}
	if entry.PdfPath != "/docs/intro.pdf" {
		t.Errorf("expected /docs/intro.pdf, got %s", entry.PdfPath)
	}
}

func TestPicker_EnterWithoutResults(t *testing.T) {
	p := New(nil, "none")

	newModel, _ := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p = newModel.(Picker)

	if _, ok := p.Selected(); ok {
		t.Error("expected no selection without results")
	}
}

func TestPicker_Cancel(t *testing.T) {
	p := New(testResults(), "intro")

	newModel, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	p = newModel.(Picker)

	if !p.Cancelled() {
		t.Error("expected cancelled to be true after Esc")
	}
	if cmd == nil {
		t.Error("expected quit command after cancel")
	}
	if _, ok := p.Selected(); ok {
		t.Error("expected no selection when cancelled")
	}
}

func TestPicker_YankCopiesPath(t *testing.T) {
	var copied string
	p := New(testResults(), "intro").WithClipboard(func(s string) error {
		copied = s
		return nil
	})

	newModel, cmd := p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	p = newModel.(Picker)
	if cmd == nil {
		t.Fatal("expected a copy command")
	}

	newModel, _ = p.Update(cmd())
	p = newModel.(Picker)

	if copied != "/docs/a.pdf" {
		t.Errorf("expected /docs/a.pdf on the clipboard, got %q", copied)
	}
	if !strings.Contains(p.View(), "copied /docs/a.pdf") {
		t.Error("expected status line after copy")
	}
	if p.Cancelled() {
		t.Error("yank must not close the picker")
	}
}

func TestPicker_YankFailure(t *testing.T) {
	p := New(testResults(), "intro").WithClipboard(func(string) error {
		return errors.New("no clipboard")
	})

	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	newModel, _ := p.Update(cmd())
	p = newModel.(Picker)

	if !strings.Contains(p.View(), "copy failed: no clipboard") {
		t.Error("expected failure in status line")
	}
}

func TestPicker_ViewListsResults(t *testing.T) {
	view := New(testResults(), "intro").View()

	for _, want := range []string{"Search: intro (2 results)", "Intro", "/docs/a.pdf, p. 3", "/docs/intro.pdf"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}
