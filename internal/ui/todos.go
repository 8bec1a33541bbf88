package ui

import (
	"fmt"

	"github.com/Makepad-fr/tada/internal/model"
)

const maxTitleWidth = 80

// Stats counts completed and pending todos.
func Stats(todos []model.Todo) (done, pending int) {
	for _, t := range todos {
		if t.Completed {
			done++
		} else {
			pending++
		}
	}
	return
}

// Header is the counts line shown above lists.
func Header(todos []model.Todo) string {
	t := Current()
	d, p := Stats(todos)
	return fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		t.Title.Render("Todos"),
		t.Success.Render(t.SymDone), d,
		t.Pending.Render(t.SymPending), p,
		t.Accent.Render("Total"), len(todos),
	)
}

// ListPanel renders the `ls` output: header, progress and one line per todo
// numbered by its 1-based position in todos.
func ListPanel(todos []model.Todo, group bool) string {
	t := Current()
	d, p := Stats(todos)
	lines := []string{Header(todos), t.Muted.Render(ProgressBar(d, d+p, 28)), ""}
	if group {
		lines = append(lines, groupLines(todos)...)
	} else {
		lines = append(lines, todoLines(todos, allIndexes(len(todos)))...)
	}
	lines = append(lines, "", t.Muted.Render("Tip: add with `tada add \"Buy milk\"`"))
	return Panel(lines)
}

// TodoLine renders one todo with its checkbox.
func TodoLine(todo model.Todo) string {
	t := Current()
	title := truncate(todo.Title, maxTitleWidth)
	if todo.Completed {
		return t.Success.Render(t.BoxChecked) + " " + t.Done.Render(title)
	}
	line := t.Muted.Render(t.BoxUnchecked) + " " + title
	if todo.DueDate != "" {
		line += " " + t.Pending.Render("(due "+todo.DueDate+")")
	}
	return line
}

func todoLines(todos []model.Todo, indexes []int) []string {
	if len(indexes) == 0 {
		return []string{Current().Muted.Render("no items")}
	}
	out := make([]string, 0, len(indexes))
	for _, i := range indexes {
		idx := Current().Muted.Render(fmt.Sprintf("%2d.", i+1))
		out = append(out, idx+" "+TodoLine(todos[i]))
	}
	return out
}

// groupLines keeps the original numbering so `tada done <n>` still matches.
func groupLines(todos []model.Todo) []string {
	t := Current()
	var pend, done []int
	for i, td := range todos {
		if td.Completed {
			done = append(done, i)
		} else {
			pend = append(pend, i)
		}
	}
	lines := []string{t.Accent.Render("Pending")}
	if len(pend) == 0 {
		lines = append(lines, t.Muted.Render("(none)"))
	} else {
		lines = append(lines, todoLines(todos, pend)...)
	}
	lines = append(lines, "", t.Accent.Render("Done"))
	if len(done) == 0 {
		lines = append(lines, t.Muted.Render("(none)"))
	} else {
		lines = append(lines, todoLines(todos, done)...)
	}
	return lines
}

func allIndexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
