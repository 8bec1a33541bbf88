package ui

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/api/apitest"
	"github.com/Makepad-fr/tada/internal/apierr"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/session"
	"github.com/Makepad-fr/tada/internal/state"
	"github.com/Makepad-fr/tada/internal/store/credstore"
)

func plainOutput(t *testing.T) {
	t.Helper()
	old := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.Ascii)
	t.Cleanup(func() {
		lipgloss.SetColorProfile(old)
		SetTheme("classic")
	})
}

func press(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

type harness struct {
	srv   *apitest.Server
	sess  *session.Session
	guard *session.Guard
	store *state.Store
	nav   atomic.Int32
	shown chan expireShownMsg
}

func newHarness(t *testing.T, todos ...model.Todo) *harness {
	t.Helper()
	plainOutput(t)
	h := &harness{srv: apitest.New(t), shown: make(chan expireShownMsg, 1)}
	h.srv.AddUser("a@b.com", "password1", true)
	h.srv.SeedTodos(todos...)
	h.sess = session.New(credstore.NewMemory())
	nav := session.NavigatorFunc(func(string) { h.nav.Add(1) })
	c, err := api.New(h.srv.BaseURL(), api.Options{Credentials: h.sess, Navigator: nav})
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	h.guard = session.NewGuard(h.sess, nav, session.DialogFunc(func(resolve func(bool)) {
		h.shown <- expireShownMsg{resolve: resolve}
	}))
	h.store = state.New(c, h.sess)
	if err := h.store.SetSession(h.srv.IssueToken("a@b.com"), "a@b.com"); err != nil {
		t.Fatalf("SetSession: %v", err)
	}
	if err := h.store.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	return h
}

func (h *harness) model() listModel {
	return newListModel(context.Background(), h.store, h.guard)
}

// step feeds msg to m and runs the returned command once, feeding its
// result back.
func step(t *testing.T, m listModel, msg tea.Msg) listModel {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(listModel)
	if cmd == nil {
		return m
	}
	out := cmd()
	if _, ok := out.(tea.QuitMsg); ok {
		return m
	}
	next, _ = m.Update(out)
	return next.(listModel)
}

// typeText feeds s to the focused input without running the cursor's blink commands.
func typeText(m listModel, s string) listModel {
	next, _ := m.Update(press(s))
	return next.(listModel)
}

func seed(n int) []model.Todo {
	out := make([]model.Todo, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.Todo{
			ID:        string(rune('a' + i)),
			UserID:    "a@b.com",
			Title:     "todo " + string(rune('a'+i)),
			CreatedAt: model.Time{Time: apitest.Epoch.Add(time.Duration(i) * time.Minute)},
		})
	}
	return out
}

func TestConfirmModel_Keys(t *testing.T) {
	cases := []struct {
		key       string
		answered  bool
		confirmed bool
	}{
		{"y", true, true},
		{"enter", true, true},
		{"n", true, false},
		{"esc", true, false},
		{"x", false, false},
	}
	for _, tc := range cases {
		next, cmd := newConfirmModel(expiredTitle, expiredBody).Update(press(tc.key))
		m := next.(confirmModel)
		if m.answered != tc.answered || m.confirmed != tc.confirmed {
			t.Fatalf("%q: answered=%v confirmed=%v", tc.key, m.answered, m.confirmed)
		}
		if tc.answered {
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Fatalf("%q: expected quit", tc.key)
			}
		}
	}
}

func TestConfirmModel_ViewShowsQuestion(t *testing.T) {
	plainOutput(t)
	v := newConfirmModel(expiredTitle, expiredBody).View()
	if !strings.Contains(v, expiredTitle) || !strings.Contains(v, "y/enter") {
		t.Fatalf("unexpected view: %q", v)
	}
}

func TestListModel_ShowsStoreContents(t *testing.T) {
	h := newHarness(t, seed(2)...)
	m := h.model()
	if got := len(m.list.Items()); got != 2 {
		t.Fatalf("expected 2 items, got %d", got)
	}
	v := m.View()
	if !strings.Contains(v, "todo a") || !strings.Contains(v, "todo b") {
		t.Fatalf("view misses todos: %q", v)
	}
}

func TestListModel_InitialLoadDoesNotSettleUserOperations(t *testing.T) {
	h := newHarness(t, seed(2)...)
	next, refresh := h.model().Update(press("r"))
	m := next.(listModel)
	if m.busy != 1 {
		t.Fatalf("refresh must count as busy, got %d", m.busy)
	}

	next, _ = m.Update(m.load()())
	m = next.(listModel)
	if m.busy != 1 {
		t.Fatalf("initial load must not settle a pending refresh, busy=%d", m.busy)
	}

	next, _ = m.Update(refresh())
	m = next.(listModel)
	if m.busy != 0 {
		t.Fatalf("expected idle after refresh, busy=%d", m.busy)
	}
	if strings.Contains(m.View(), "syncing") {
		t.Fatalf("spinner must stop once nothing is in flight")
	}
}

func TestListModel_SpaceTogglesCompleted(t *testing.T) {
	h := newHarness(t, seed(2)...)
	m := step(t, h.model(), press(" "))
	if !h.store.List()[0].Completed {
		t.Fatalf("store not updated")
	}
	it := m.list.Items()[0].(todoItem)
	if !it.todo.Completed {
		t.Fatalf("list not synced from store")
	}
	if m.status != "" {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestListModel_AddThroughInput(t *testing.T) {
	h := newHarness(t)
	m := step(t, h.model(), press("a"))
	if m.mode != modeAdd {
		t.Fatalf("expected add mode")
	}
	m = typeText(m, "Buy milk")
	m = step(t, m, press("enter"))
	if m.mode != modeBrowse {
		t.Fatalf("input should close after submit")
	}
	todos := h.store.List()
	if len(todos) != 1 || todos[0].Title != "Buy milk" {
		t.Fatalf("got %+v", todos)
	}
}

func TestListModel_EmptyTitleIsRejected(t *testing.T) {
	h := newHarness(t)
	m := step(t, h.model(), press("a"))
	m = step(t, m, press("enter"))
	if m.inErr != "Title cannot be empty" || m.mode != modeAdd {
		t.Fatalf("expected validation error, got %q mode=%d", m.inErr, m.mode)
	}
	if len(h.srv.Todos()) != 0 {
		t.Fatalf("nothing should be sent")
	}
}

func TestListModel_EditAndDelete(t *testing.T) {
	h := newHarness(t, seed(2)...)
	m := step(t, h.model(), press("e"))
	if m.ti.Value() != "todo a" {
		t.Fatalf("edit should start from the current title, got %q", m.ti.Value())
	}
	m = typeText(m, "!")
	m = step(t, m, press("enter"))
	if got := h.store.List()[0].Title; got != "todo a!" {
		t.Fatalf("title: got %q", got)
	}

	m = step(t, m, press("d"))
	if got := len(h.store.List()); got != 1 {
		t.Fatalf("expected one todo left, got %d", got)
	}
	if got := len(m.list.Items()); got != 1 {
		t.Fatalf("list not synced, got %d", got)
	}
}

func TestListModel_FailureShowsStoreMessage(t *testing.T) {
	h := newHarness(t, seed(1)...)
	h.srv.FailNext(http.MethodDelete, "/todos/a", http.StatusInternalServerError, `{"message":"boom"}`)
	m := step(t, h.model(), press("d"))
	if m.status != "boom" {
		t.Fatalf("status: got %q", m.status)
	}
	if !strings.Contains(m.View(), "boom") {
		t.Fatalf("view should show the failure")
	}
}

// expire triggers a 403 on toggle and returns the model showing the gate
// plus a channel delivering the guard's outcome.
func expire(t *testing.T, h *harness) (listModel, chan tea.Msg) {
	t.Helper()
	h.srv.FailNext(http.MethodPut, "/todos/a", http.StatusForbidden, `{"message":"Forbidden"}`)
	next, cmd := h.model().Update(press(" "))
	m := next.(listModel)
	next, cmd = m.Update(cmd())
	m = next.(listModel)
	if cmd == nil {
		t.Fatalf("403 should start the expiration flow")
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	select {
	case shown := <-h.shown:
		next, _ = m.Update(shown)
		m = next.(listModel)
	case <-time.After(5 * time.Second):
		t.Fatalf("gate was never shown")
	}
	if !m.expiring || !strings.Contains(m.View(), expiredTitle) {
		t.Fatalf("gate should be visible")
	}
	return m, done
}

func TestListModel_ExpiredDeclineStays(t *testing.T) {
	h := newHarness(t, seed(1)...)
	m, done := expire(t, h)
	next, _ := m.Update(press("n"))
	m = next.(listModel)

	out := <-done
	next, cmd := m.Update(out)
	m = next.(listModel)
	if !errors.Is(out.(expireDoneMsg).err, apierr.ErrSessionExpired) {
		t.Fatalf("expected session-expired error, got %v", out)
	}
	if cmd != nil {
		t.Fatalf("declining must not quit")
	}
	if m.expiring || m.status != "Session expired - please login again" {
		t.Fatalf("expiring=%v status=%q", m.expiring, m.status)
	}
	if h.sess.Token() != "" {
		t.Fatalf("credential must be cleared")
	}
	if h.nav.Load() != 0 {
		t.Fatalf("declining must not navigate")
	}
}

func TestListModel_ExpiredConfirmQuits(t *testing.T) {
	h := newHarness(t, seed(1)...)
	m, done := expire(t, h)
	next, _ := m.Update(press("y"))
	m = next.(listModel)

	out := <-done
	next, cmd := m.Update(out)
	m = next.(listModel)
	if !m.loggedOut || cmd == nil {
		t.Fatalf("confirming should log out and quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit")
	}
	if h.nav.Load() != 1 {
		t.Fatalf("expected one navigation, got %d", h.nav.Load())
	}
}

func TestListPanel_NumbersMatchSortedPositions(t *testing.T) {
	plainOutput(t)
	todos := seed(3)
	todos[1].Completed = true

	flat := ListPanel(todos, false)
	for _, want := range []string{" 1. ☐ todo a", " 2. ☑ todo b", " 3. ☐ todo c", "1/3"} {
		if !strings.Contains(flat, want) {
			t.Fatalf("flat view missing %q:\n%s", want, flat)
		}
	}

	grouped := ListPanel(todos, true)
	pending := strings.Index(grouped, "Pending")
	done := strings.Index(grouped, "Done")
	b := strings.Index(grouped, " 2. ☑ todo b")
	if pending < 0 || done < pending || b < done {
		t.Fatalf("grouped view out of order:\n%s", grouped)
	}
	if !strings.Contains(grouped, " 3. ☐ todo c") {
		t.Fatalf("grouped view must keep list numbering:\n%s", grouped)
	}
}

func TestListPanel_Empty(t *testing.T) {
	plainOutput(t)
	if out := ListPanel(nil, false); !strings.Contains(out, "no items") {
		t.Fatalf("got %q", out)
	}
}

func TestSetTheme_Mono(t *testing.T) {
	plainOutput(t)
	SetTheme("mono")
	todo := model.Todo{Title: "x", Completed: true}
	if got := TodoLine(todo); got != "[x] x" {
		t.Fatalf("got %q", got)
	}
	if !ValidTheme("Neon") || ValidTheme("solarized") {
		t.Fatalf("ValidTheme mismatch")
	}
}

func TestTodoMarkdown(t *testing.T) {
	plainOutput(t)
	SetTheme("mono")
	todo := model.Todo{
		ID:          "t-1",
		Title:       "Write report",
		Description: "Needs **numbers**",
		DueDate:     "2024-06-01",
		CreatedAt:   model.Time{Time: apitest.Epoch},
	}
	md := TodoMarkdown(todo)
	for _, want := range []string{"# [ ] Write report", "Needs **numbers**", "`t-1`", "2024-06-01"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
	out := RenderMarkdown(md, 60)
	if !strings.Contains(out, "Write report") || !strings.Contains(out, "numbers") {
		t.Fatalf("rendered output lost content:\n%s", out)
	}
	if RenderMarkdown("   ", 60) != "" {
		t.Fatalf("blank input renders to nothing")
	}
}

func TestProgressBar(t *testing.T) {
	if got := ProgressBar(1, 2, 10); got != "[█████░░░░░] 1/2" {
		t.Fatalf("got %q", got)
	}
	if got := ProgressBar(0, 0, 0); got != "[░░░░░] 0/1" {
		t.Fatalf("got %q", got)
	}
}
