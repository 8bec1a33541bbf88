package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Makepad-fr/tada/internal/session"
	"github.com/Makepad-fr/tada/internal/ui"
)

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// interactive reports whether a person can answer prompts: both stdin and
// stdout must be terminals.
func interactive(cmd *cobra.Command) bool {
	return isTerminal(cmd.InOrStdin()) && isTerminal(cmd.OutOrStdout())
}

func terminalWidth(cmd *cobra.Command) int {
	if f, ok := cmd.OutOrStdout().(*os.File); ok && isTerminal(f) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return 80
}

// lineReader reads answers from piped stdin, one per line.
type lineReader struct{ r *bufio.Reader }

func (a *App) reader(cmd *cobra.Command) *lineReader {
	if a.input == nil {
		a.input = &lineReader{r: bufio.NewReader(cmd.InOrStdin())}
	}
	return a.input
}

func (l *lineReader) line() (string, error) {
	s, err := l.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// prompt asks for a visible value.
func (a *App) prompt(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	v, err := a.reader(cmd).line()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", strings.TrimSpace(strings.TrimSuffix(label, ": ")), err)
	}
	return strings.TrimSpace(v), nil
}

// promptSecret asks for a password, hiding input on a terminal.
func (a *App) promptSecret(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	v, err := a.reader(cmd).line()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return v, nil
}

// loginNavigator is the CLI's answer to "go to the login page": it points the
// user at `tada auth login`, or hands over to the full-screen list while that
// is running.
type loginNavigator struct {
	w io.Writer

	mu     sync.Mutex
	target session.Navigator
}

func (n *loginNavigator) Navigate(path string) {
	n.mu.Lock()
	target := n.target
	n.mu.Unlock()
	if target != nil {
		target.Navigate(path)
		return
	}
	ui.Hint(n.w, "Signed out. Run `tada auth login` to sign in again.")
}

func (n *loginNavigator) setTarget(t session.Navigator) {
	n.mu.Lock()
	n.target = t
	n.mu.Unlock()
}
