package ui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/Makepad-fr/tada/internal/model"
)

var (
	mdMu        sync.Mutex
	mdRenderers = map[string]*glamour.TermRenderer{}
)

// RenderMarkdown renders md for the terminal, falling back to the raw text
// when rendering fails. Renderers are cached per style and width.
func RenderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 20 {
		width = 20
	}
	style := markdownStyle()
	key := fmt.Sprintf("%s:%d", style, width)

	mdMu.Lock()
	defer mdMu.Unlock()
	r := mdRenderers[key]
	if r == nil {
		// WithAutoStyle can block on terminal queries; pick the style explicitly.
		rr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		mdRenderers[key] = rr
		r = rr
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func markdownStyle() string {
	if Current().Name == "mono" {
		return "notty"
	}
	return "dark"
}

// TodoMarkdown is the `show` document for one todo.
func TodoMarkdown(t model.Todo) string {
	var b strings.Builder
	box := "[ ]"
	if t.Completed {
		box = "[x]"
	}
	fmt.Fprintf(&b, "# %s %s\n\n", box, t.Title)
	if t.Description != "" {
		b.WriteString(t.Description)
		b.WriteString("\n\n")
	}
	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| id | `%s` |\n", t.ID)
	if t.DueDate != "" {
		fmt.Fprintf(&b, "| due | %s |\n", t.DueDate)
	}
	if !t.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "| created | %s |\n", t.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	if !t.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "| updated | %s |\n", t.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return b.String()
}
