package picker

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/nikbrunner/pdfshelf/internal/search"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true).
			MarginBottom(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114"))
)

// KeyMap defines the picker key bindings.
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Open   key.Binding
	Yank   key.Binding
	Cancel key.Binding
}

// DefaultKeyMap returns the default vim-style key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "move down"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Yank: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy path"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q/esc", "cancel"),
		),
	}
}

// copiedMsg reports the outcome of a clipboard copy.
type copiedMsg struct {
	path string
	err  error
}

// Picker is a simple TUI for selecting from search results.
type Picker struct {
	results   []search.SearchResult
	query     string
	keys      KeyMap
	copyPath  func(string) error
	cursor    int
	selected  bool
	cancelled bool
	status    string
	width     int
	height    int
}

// New creates a new Picker with the given search results.
func New(results []search.SearchResult, query string) Picker {
	return Picker{
		results:  results,
		query:    query,
		keys:     DefaultKeyMap(),
		copyPath: clipboard.WriteAll,
		cursor:   0,
		width:    80,
		height:   24,
	}
}

// WithClipboard replaces the clipboard writer.
func (p Picker) WithClipboard(write func(string) error) Picker {
	p.copyPath = write
	return p
}

// Init implements tea.Model.
func (p Picker) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		return p, nil

	case copiedMsg:
		if msg.err != nil {
			p.status = "copy failed: " + msg.err.Error()
		} else {
			p.status = "copied " + msg.path
		}
		return p, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, p.keys.Cancel):
			p.cancelled = true
			return p, tea.Quit

		case key.Matches(msg, p.keys.Open):
			if len(p.results) > 0 {
				p.selected = true
			}
			return p, tea.Quit

		case key.Matches(msg, p.keys.Down):
			if p.cursor < len(p.results)-1 {
				p.cursor++
			}
			return p, nil

		case key.Matches(msg, p.keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}
			return p, nil

		case key.Matches(msg, p.keys.Yank):
			if p.cursor >= len(p.results) {
				return p, nil
			}
			path := p.results[p.cursor].Entry.PdfPath
			write := p.copyPath
			return p, func() tea.Msg {
				return copiedMsg{path: path, err: write(path)}
			}
		}
	}

	return p, nil
}

// View implements tea.Model.
func (p Picker) View() string {
	var b strings.Builder

	// Header
	b.WriteString(headerStyle.Render(fmt.Sprintf("Search: %s (%d results)", p.query, len(p.results))))
	b.WriteString("\n\n")

	// List items
	for i, result := range p.results {
		cursor := "  "
		style := normalStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedStyle
		}

		title := style.Render(result.Entry.Text)
		where := result.Entry.PdfPath
		if result.Entry.Kind == search.KindBookmark {
			where = fmt.Sprintf("%s, p. %d", where, result.Entry.Page)
		}

		b.WriteString(fmt.Sprintf("%s%s\n", cursor, title))
		b.WriteString(fmt.Sprintf("   %s\n", pathStyle.Render(where)))
	}

	// Footer
	b.WriteString("\n")
	if p.status != "" {
		b.WriteString(statusStyle.Render(p.status))
		b.WriteString("\n")
	}
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render("j/k: move  Enter: open  y: copy path  q/Esc: cancel"))

	return b.String()
}

// Selected returns the selected entry, or false if cancelled.
func (p Picker) Selected() (search.Entry, bool) {
	if p.cancelled || !p.selected {
		return search.Entry{}, false
	}
	if p.cursor < len(p.results) {
		return p.results[p.cursor].Entry, true
	}
	return search.Entry{}, false
}

// Cancelled returns true if the user cancelled the selection.
func (p Picker) Cancelled() bool {
	return p.cancelled
}
