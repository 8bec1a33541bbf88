package ui

import (
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/tada/internal/session"
)

const (
	expiredTitle = "Session expired"
	expiredBody  = "Your session has expired. Sign in again?"
)

// confirmModel is a yes/no question that quits once answered.
type confirmModel struct {
	title, body string
	answered    bool
	confirmed   bool
}

func newConfirmModel(title, body string) confirmModel {
	return confirmModel{title: title, body: body}
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch k.String() {
	case "y", "Y", "enter":
		m.answered, m.confirmed = true, true
		return m, tea.Quit
	case "n", "N", "esc", "q", "ctrl+c":
		m.answered, m.confirmed = true, false
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.answered {
		return ""
	}
	return renderModal(m.title, m.body) + "\n"
}

// renderModal draws the gate box used by both the standalone dialog and the list TUI.
func renderModal(title, body string) string {
	t := Current()
	keys := t.Help.Render("y/enter: sign in   n/esc: stay")
	inner := strings.Join([]string{t.Title.Render(title), "", body, "", keys}, "\n")
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Error.GetForeground()).
		Padding(1, 2).
		Render(inner)
}

// ConfirmDialog asks in the terminal with a small Bubble Tea program. It
// implements session.Dialog and blocks until the user answers.
type ConfirmDialog struct {
	In  io.Reader
	Out io.Writer
}

var _ session.Dialog = ConfirmDialog{}

func (d ConfirmDialog) Show(resolve func(confirmed bool)) {
	var opts []tea.ProgramOption
	if d.In != nil {
		opts = append(opts, tea.WithInput(d.In))
	}
	if d.Out != nil {
		opts = append(opts, tea.WithOutput(d.Out))
	}
	final, err := tea.NewProgram(newConfirmModel(expiredTitle, expiredBody), opts...).Run()
	if err != nil {
		// No usable terminal: take the non-interactive answer.
		resolve(true)
		return
	}
	m, _ := final.(confirmModel)
	resolve(m.confirmed)
}
