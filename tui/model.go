// Package tui is the interactive front end: a text area, a generate key
// and a status line.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/openclaw/qrpop/qr"
	"github.com/openclaw/qrpop/studio"
)

// Generator is the part of *studio.Studio the model needs.
type Generator interface {
	Generate(ctx context.Context, text string) (*studio.Result, error)
}

const (
	margin       = 1
	chromeHeight = 4 // title, help, status, spacing
	minEditLines = 3
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type generatedMsg struct {
	res *studio.Result
	err error
}

// Model is the bubbletea model.
type Model struct {
	ctx    context.Context
	gen    Generator
	input  textarea.Model
	status string
	failed bool
	busy   bool
	width  int
	height int
}

// New builds a Model that generates through gen.
func New(ctx context.Context, gen Generator) Model {
	ta := textarea.New()
	ta.Placeholder = "Type the text to encode..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.Focus()

	return Model{
		ctx:    ctx,
		gen:    gen,
		input:  ta,
		status: studio.StatusReady,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyCtrlS:
			return m.startGenerate()
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case generatedMsg:
		m.busy = false
		if msg.err != nil {
			m.failed = true
			m.status = failureStatus(msg.err)
			return m, nil
		}
		m.failed = false
		m.status = studio.StatusDone(msg.res)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) startGenerate() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	text := m.input.Value()
	if text == "" {
		m.failed = true
		m.status = studio.StatusEmpty
		return m, nil
	}

	m.busy = true
	m.failed = false
	m.status = studio.StatusGenerating

	ctx, gen := m.ctx, m.gen
	return m, func() tea.Msg {
		res, err := gen.Generate(ctx, text)
		return generatedMsg{res: res, err: err}
	}
}

// resize lays the text area out to fill the window above the help and
// status lines.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	w := width - 2*margin
	if w < 10 {
		w = 10
	}
	h := height - chromeHeight
	if h < minEditLines {
		h = minEditLines
	}
	m.input.SetWidth(w)
	m.input.SetHeight(h)
}

func failureStatus(err error) string {
	switch {
	case errors.Is(err, qr.ErrEmptyText):
		return studio.StatusEmpty
	case errors.Is(err, qr.ErrTooLong):
		return fmt.Sprintf("%s Text is longer than %d bytes.", studio.StatusFailed, qr.MaxPayload)
	case errors.Is(err, qr.ErrInvalidUTF8):
		return studio.StatusFailed + " Text is not valid UTF-8."
	default:
		return fmt.Sprintf("%s %v", studio.StatusFailed, err)
	}
}

// View implements tea.Model.
func (m Model) View() string {
	status := statusStyle.Render(m.status)
	if m.failed {
		status = errorStyle.Render(m.status)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("QR code generator"),
		m.input.View(),
		helpStyle.Render("ctrl+s generate • esc quit"),
		status,
	)
}

// Status returns the current status line.
func (m Model) Status() string {
	return m.status
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, gen Generator) error {
	p := tea.NewProgram(New(ctx, gen), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
