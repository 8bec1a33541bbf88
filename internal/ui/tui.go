package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/tada/internal/apierr"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/session"
	"github.com/Makepad-fr/tada/internal/state"
)

// todoItem adapts model.Todo to list.Item.
type todoItem struct{ todo model.Todo }

func (i todoItem) Title() string       { return i.todo.Title }
func (i todoItem) Description() string { return i.todo.Description }
func (i todoItem) FilterValue() string { return i.todo.Title }

// itemDelegate renders one line per todo.
type itemDelegate struct{}

func (d itemDelegate) Height() int                         { return 1 }
func (d itemDelegate) Spacing() int                        { return 0 }
func (d itemDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(todoItem)
	if !ok {
		return
	}
	prefix := "  "
	if index == m.Index() {
		prefix = Current().Selected.Render("> ")
	}
	fmt.Fprintln(w, prefix+TodoLine(it.todo))
}

type inputMode int

const (
	modeBrowse inputMode = iota
	modeAdd
	modeEdit
)

// storeChangedMsg is sent by the store listener.
type storeChangedMsg struct{}

type opDoneMsg struct {
	op      string
	err     error
	tracked bool
}

// expireShownMsg opens the in-TUI gate; resolve answers it.
type expireShownMsg struct{ resolve func(bool) }

type expireDoneMsg struct{ err error }

type navigateMsg struct{ path string }

var (
	addKey     = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	editKey    = key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit"))
	toggleKey  = key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle"))
	deleteKey  = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
	refreshKey = key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh"))
)

type listModel struct {
	ctx   context.Context
	store *state.Store
	guard *session.Guard

	list  list.Model
	ti    textinput.Model
	spin  spinner.Model
	mode  inputMode
	edit  string // id of the todo being edited
	inErr string

	status    string
	busy      int
	expiring  bool
	resolve   func(bool)
	loggedOut bool
	width     int
	height    int
}

func newListModel(ctx context.Context, st *state.Store, g *session.Guard) listModel {
	t := Current()
	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = t.Title
	l.Styles.HelpStyle = t.Help
	l.Styles.PaginationStyle = t.Help
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("item", "items")
	extra := func() []key.Binding { return []key.Binding{toggleKey, addKey, editKey, deleteKey, refreshKey} }
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = t.Accent

	m := listModel{ctx: ctx, store: st, guard: g, list: l, ti: ti, spin: sp, width: 80, height: 24}
	m.sync()
	return m
}

func (m listModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.load())
}

// load is the initial fetch. The store's loading flag drives the spinner.
func (m listModel) load() tea.Cmd {
	ctx, st := m.ctx, m.store
	return func() tea.Msg { return opDoneMsg{op: "refresh", err: st.FetchAll(ctx)} }
}

// run executes a store operation off the event loop and counts it as busy
// until its result arrives.
func (m *listModel) run(op string, fn func(context.Context) error) tea.Cmd {
	m.busy++
	ctx := m.ctx
	return func() tea.Msg { return opDoneMsg{op: op, err: fn(ctx), tracked: true} }
}

// sync copies the store's collection into the list, keeping the cursor.
func (m *listModel) sync() {
	todos := m.store.List()
	items := make([]list.Item, 0, len(todos))
	for _, t := range todos {
		items = append(items, todoItem{todo: t})
	}
	idx := m.list.Index()
	m.list.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
	m.list.Title = Header(todos)
}

func (m listModel) selected() (model.Todo, bool) {
	it, ok := m.list.SelectedItem().(todoItem)
	return it.todo, ok
}

func (m listModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case storeChangedMsg:
		m.sync()
		return m, nil
	case opDoneMsg:
		return m.opDone(msg)
	case expireShownMsg:
		m.expiring = true
		m.resolve = msg.resolve
		return m, nil
	case expireDoneMsg:
		m.expiring = false
		m.resolve = nil
		if errors.Is(msg.err, apierr.ErrSessionRedirect) {
			m.loggedOut = true
			return m, tea.Quit
		}
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		return m, nil
	case navigateMsg:
		m.loggedOut = true
		return m, tea.Quit
	}

	if m.expiring {
		return m.updateGate(msg)
	}
	if m.mode != modeBrowse {
		return m.updateInput(msg)
	}
	if k, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch k.String() {
		case "q", "esc":
			return m, tea.Quit
		case " ":
			t, ok := m.selected()
			if !ok {
				return m, nil
			}
			done := !t.Completed
			return m, m.run("update", func(ctx context.Context) error {
				_, err := m.store.Update(ctx, t.ID, model.TodoPatch{Completed: &done})
				return err
			})
		case "d":
			t, ok := m.selected()
			if !ok {
				return m, nil
			}
			return m, m.run("delete", func(ctx context.Context) error { return m.store.Delete(ctx, t.ID) })
		case "r":
			return m, m.run("refresh", m.store.FetchAll)
		case "a":
			m.mode = modeAdd
			m.inErr = ""
			m.ti.SetValue("")
			m.ti.Placeholder = "New item title..."
			m.ti.Focus()
			return m, nil
		case "e":
			t, ok := m.selected()
			if !ok {
				return m, nil
			}
			m.mode = modeEdit
			m.edit = t.ID
			m.inErr = ""
			m.ti.SetValue(t.Title)
			m.ti.CursorEnd()
			m.ti.Placeholder = "Edit item title..."
			m.ti.Focus()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m listModel) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "enter":
			title := strings.TrimSpace(m.ti.Value())
			if title == "" {
				m.inErr = "Title cannot be empty"
				return m, nil
			}
			mode, id := m.mode, m.edit
			m.closeInput()
			if mode == modeAdd {
				return m, m.run("create", func(ctx context.Context) error {
					_, err := m.store.Create(ctx, model.TodoDto{Title: title})
					return err
				})
			}
			return m, m.run("update", func(ctx context.Context) error {
				_, err := m.store.Update(ctx, id, model.TodoPatch{Title: &title})
				return err
			})
		case "esc":
			m.closeInput()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m *listModel) closeInput() {
	m.mode = modeBrowse
	m.edit = ""
	m.inErr = ""
	m.ti.SetValue("")
	m.ti.Blur()
}

func (m listModel) updateGate(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch k.String() {
	case "y", "Y", "enter":
		m.guard.Confirm()
	case "n", "N", "esc":
		if m.resolve != nil {
			m.resolve(false)
		}
	}
	return m, nil
}

func (m listModel) opDone(msg opDoneMsg) (tea.Model, tea.Cmd) {
	if msg.tracked && m.busy > 0 {
		m.busy--
	}
	m.sync()
	if msg.err == nil {
		m.status = ""
		return m, nil
	}
	var e *apierr.Error
	if errors.As(msg.err, &e) && e.Status == http.StatusForbidden {
		ctx, g, data := m.ctx, m.guard, e.Data
		return m, func() tea.Msg { return expireDoneMsg{err: g.OnExpire(ctx, http.StatusForbidden, data)} }
	}
	if last := m.store.LastError(); last != "" {
		m.status = last
	} else {
		m.status = msg.op + " failed: " + msg.err.Error()
	}
	return m, nil
}

func (m listModel) View() string {
	t := Current()
	w, h := m.width, m.height
	if m.expiring {
		return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, renderModal(expiredTitle, expiredBody))
	}

	listHeight := h - 5
	if m.mode != modeBrowse {
		listHeight -= 4
	}
	if listHeight < 3 {
		listHeight = 3
	}
	m.list.SetSize(w-4, listHeight)
	content := m.list.View()

	if m.mode != modeBrowse {
		title := "Add new item"
		if m.mode == modeEdit {
			title = "Edit item"
		}
		if m.inErr != "" {
			title += ": " + t.Error.Render(m.inErr)
		}
		bar := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.BorderColor).Padding(0, 1)
		content += "\n" + bar.Render(title+"\n"+m.ti.View())
	}

	var status string
	switch {
	case m.busy > 0 || m.store.IsLoading():
		status = m.spin.View() + " " + t.Muted.Render("syncing...")
	case m.status != "":
		status = t.Error.Render(t.SymFail + " " + m.status)
	}
	if status != "" {
		content += "\n" + status
	}
	return Panel([]string{content})
}

// ListProgram runs the interactive list. While it runs it is the guard's
// dialog and should be used as the navigator.
type ListProgram struct {
	program *tea.Program
	guard   *session.Guard
}

func NewListProgram(ctx context.Context, st *state.Store, g *session.Guard, opts ...tea.ProgramOption) *ListProgram {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	lp := &ListProgram{guard: g}
	lp.program = tea.NewProgram(newListModel(ctx, st, g), opts...)
	st.Subscribe(func() { go lp.program.Send(storeChangedMsg{}) })
	return lp
}

// Navigate ends the program; the caller then points the user to login.
func (lp *ListProgram) Navigate(path string) {
	go lp.program.Send(navigateMsg{path: path})
}

// Run blocks until the user quits. loggedOut is true when the session ended
// while the list was open.
func (lp *ListProgram) Run() (loggedOut bool, err error) {
	send := lp.program.Send
	prev := lp.guard.SetDialog(session.DialogFunc(func(resolve func(bool)) {
		go send(expireShownMsg{resolve: resolve})
	}))
	defer lp.guard.SetDialog(prev)

	final, err := lp.program.Run()
	if err != nil {
		// Unblock a pending gate so OnExpire callers return.
		lp.guard.Resolve(false)
		return false, err
	}
	m, _ := final.(listModel)
	return m.loggedOut, nil
}
