package ui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme bundles styles, checkbox symbols and the panel border.
// All UI helpers pull from the current theme.
type Theme struct {
	Name string

	Title, Muted, Accent, Success, Error, Pending lipgloss.Style
	Selected, Done, Help                          lipgloss.Style

	BoxUnchecked, BoxChecked string
	SymDone, SymPending      string
	SymOK, SymFail           string
	Border                   lipgloss.Border
	BorderColor              lipgloss.TerminalColor
}

var (
	themeMu sync.RWMutex
	current = classic()
)

// ThemeNames lists the accepted --theme values.
var ThemeNames = []string{"classic", "neon", "mono"}

func classic() Theme {
	return Theme{
		Name:         "classic",
		Title:        lipgloss.NewStyle().Bold(true),
		Muted:        lipgloss.NewStyle().Faint(true),
		Accent:       lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		Success:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		Error:        lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Pending:      lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Selected:     lipgloss.NewStyle().Bold(true).Reverse(true),
		Done:         lipgloss.NewStyle().Faint(true).Strikethrough(true),
		Help:         lipgloss.NewStyle().Faint(true),
		BoxUnchecked: "☐",
		BoxChecked:   "☑",
		SymDone:      "✔",
		SymPending:   "•",
		SymOK:        "✔",
		SymFail:      "✖",
		Border:       lipgloss.NormalBorder(),
		BorderColor:  lipgloss.Color("8"),
	}
}

func neon() Theme {
	t := classic()
	t.Name = "neon"
	t.Title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	t.Accent = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	t.Pending = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	t.Selected = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	t.BoxUnchecked, t.BoxChecked = "◻", "◼"
	t.Border = lipgloss.RoundedBorder()
	t.BorderColor = lipgloss.Color("13")
	return t
}

func mono() Theme {
	plain := lipgloss.NewStyle()
	return Theme{
		Name:         "mono",
		Title:        plain.Bold(true),
		Muted:        plain,
		Accent:       plain,
		Success:      plain,
		Error:        plain,
		Pending:      plain,
		Selected:     plain.Reverse(true),
		Done:         plain,
		Help:         plain,
		BoxUnchecked: "[ ]",
		BoxChecked:   "[x]",
		SymDone:      "x",
		SymPending:   "-",
		SymOK:        "ok:",
		SymFail:      "error:",
		Border:       lipgloss.ASCIIBorder(),
		BorderColor:  lipgloss.NoColor{},
	}
}

// SetTheme selects a theme by name; unknown names fall back to classic.
// The mono theme also drops colors.
func SetTheme(name string) {
	var t Theme
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "neon":
		t = neon()
	case "mono":
		t = mono()
		DisableColor()
	default:
		t = classic()
	}
	themeMu.Lock()
	current = t
	themeMu.Unlock()
}

func Current() Theme {
	themeMu.RLock()
	defer themeMu.RUnlock()
	return current
}

// ValidTheme reports whether name is one of ThemeNames.
func ValidTheme(name string) bool {
	for _, n := range ThemeNames {
		if strings.EqualFold(strings.TrimSpace(name), n) {
			return true
		}
	}
	return false
}

// DisableColor forces plain output regardless of the terminal.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// ApplyColorPreference honors --no-color and the NO_COLOR convention; any
// other case keeps termenv's detection (which reads CLICOLOR_FORCE).
func ApplyColorPreference(noColor bool) {
	if noColor || termenv.EnvNoColor() {
		DisableColor()
		return
	}
	lipgloss.SetColorProfile(termenv.EnvColorProfile())
}
