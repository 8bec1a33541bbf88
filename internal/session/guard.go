package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/Makepad-fr/tada/internal/apierr"
	"github.com/Makepad-fr/tada/internal/logging"
)

// State of the expiration gate.
type State int

const (
	StateIdle State = iota
	StateAwaitingConfirmation
)

func (s State) String() string {
	if s == StateAwaitingConfirmation {
		return "awaiting-confirmation"
	}
	return "idle"
}

// Dialog presents the "session expired" gate. Show must arrange for resolve
// to be called exactly once with the user's answer; it may block or return
// immediately.
type Dialog interface {
	Show(resolve func(confirmed bool))
}

// DialogFunc adapts a function to Dialog.
type DialogFunc func(resolve func(confirmed bool))

func (f DialogFunc) Show(resolve func(confirmed bool)) { f(resolve) }

type pendingRequest struct {
	done      chan struct{}
	once      sync.Once
	confirmed bool
	loggedOut bool
	waiters   int
}

// Guard asks the user before ending an expired session. Only one gate is
// shown at a time: a request made while another is pending waits for, and
// receives, the same answer.
type Guard struct {
	sess      *Session
	nav       Navigator
	dialog    Dialog
	loginPath string
	logger    *logging.Logger

	mu      sync.Mutex
	pending *pendingRequest
}

type GuardOption func(*Guard)

func WithLoginPath(path string) GuardOption {
	return func(g *Guard) {
		if path != "" {
			g.loginPath = path
		}
	}
}

func WithLogger(l *logging.Logger) GuardOption {
	return func(g *Guard) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGuard builds a guard. A nil dialog means the process is not interactive:
// confirmation then resolves to true without showing anything.
func NewGuard(sess *Session, nav Navigator, dialog Dialog, opts ...GuardOption) *Guard {
	g := &Guard{
		sess:      sess,
		nav:       nav,
		dialog:    dialog,
		loginPath: DefaultLoginPath,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetDialog swaps the dialog, e.g. when a full-screen UI takes over the
// terminal, and returns the previous one.
func (g *Guard) SetDialog(d Dialog) Dialog {
	g.mu.Lock()
	defer g.mu.Unlock()
	prev := g.dialog
	g.dialog = d
	return prev
}

func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending != nil {
		return StateAwaitingConfirmation
	}
	return StateIdle
}

// Visible reports whether the gate is currently shown.
func (g *Guard) Visible() bool {
	return g.State() == StateAwaitingConfirmation
}

// RequestConfirmation shows the gate and blocks until the user answers or ctx is done.
func (g *Guard) RequestConfirmation(ctx context.Context) (bool, error) {
	p, err := g.await(ctx)
	if err != nil {
		return false, err
	}
	return p.confirmed, nil
}

func (g *Guard) await(ctx context.Context) (*pendingRequest, error) {
	g.mu.Lock()
	dialog := g.dialog
	if dialog == nil {
		g.mu.Unlock()
		return &pendingRequest{confirmed: true}, nil
	}
	p := g.pending
	first := p == nil
	if first {
		p = &pendingRequest{done: make(chan struct{})}
		g.pending = p
	}
	p.waiters++
	g.mu.Unlock()

	if first {
		g.logger.Info("session expired, asking user")
		dialog.Show(func(confirmed bool) { g.resolve(p, confirmed, false) })
	}
	select {
	case <-p.done:
		return p, nil
	case <-ctx.Done():
		g.abandon(p)
		return nil, ctx.Err()
	}
}

// abandon drops one waiter. When the last one leaves, the gate returns to idle
// and a late answer from the dialog is ignored.
func (g *Guard) abandon(p *pendingRequest) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p.waiters--
	if p.waiters <= 0 && g.pending == p {
		g.pending = nil
		g.logger.Info("confirmation abandoned")
	}
}

func (g *Guard) resolve(p *pendingRequest, confirmed, loggedOut bool) {
	g.mu.Lock()
	if g.pending == p {
		g.pending = nil
	}
	g.mu.Unlock()
	p.once.Do(func() {
		p.confirmed = confirmed
		p.loggedOut = loggedOut
		close(p.done)
	})
}

// Resolve answers the pending request. It is a no-op when the gate is idle.
func (g *Guard) Resolve(confirmed bool) {
	g.mu.Lock()
	p := g.pending
	g.mu.Unlock()
	if p == nil {
		return
	}
	g.resolve(p, confirmed, false)
}

// Confirm is the gate's confirm action: it ends the session, goes to login
// and answers any pending request with true.
func (g *Guard) Confirm() {
	g.endSession()
	g.mu.Lock()
	p := g.pending
	g.mu.Unlock()
	if p != nil {
		g.resolve(p, true, true)
	}
}

// OnExpire handles an expired session reported with the given status and
// response data. It always returns an error: a redirect error when the user
// confirms, or a session-expired error carrying status and data when the user
// declines. The credential is cleared either way.
func (g *Guard) OnExpire(ctx context.Context, status int, data any) error {
	p, err := g.await(ctx)
	if err != nil {
		if clearErr := g.sess.ClearToken(); clearErr != nil {
			g.logger.Error("clear token", "err", clearErr)
		}
		return fmt.Errorf("session expired: %w", err)
	}
	if p.confirmed {
		if !p.loggedOut {
			g.endSession()
		}
		return apierr.New(apierr.KindSessionRedirect, status, "Session expired - redirecting to login", data)
	}
	if err := g.sess.ClearToken(); err != nil {
		g.logger.Error("clear token", "err", err)
	}
	g.logger.Info("session expired, user stayed", "status", status)
	return apierr.New(apierr.KindSessionExpired, status, "Session expired - please login again", data)
}

// Logout ends the session without asking. The whole session (token and
// cached email) is dropped.
func (g *Guard) Logout() error {
	err := g.sess.Clear()
	g.navigate()
	return err
}

func (g *Guard) endSession() {
	if err := g.sess.ClearToken(); err != nil {
		g.logger.Error("clear token", "err", err)
	}
	g.navigate()
}

func (g *Guard) navigate() {
	if g.nav != nil {
		g.nav.Navigate(g.loginPath)
	}
}
