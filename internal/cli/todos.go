package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/apierr"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/ui"
)

// storeError keeps the store's display message in front of the cause.
type storeError struct {
	msg string
	err error
}

func (e *storeError) Error() string { return e.msg }
func (e *storeError) Unwrap() error { return e.err }

// failed turns a store or gateway error into what the command returns. A 403
// goes through the session guard first.
func (a *App) failed(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	logging.FromContext(ctx).Debug("command failed", "err", err)
	var e *apierr.Error
	if errors.As(err, &e) && e.Kind == apierr.KindStatus && e.Status == http.StatusForbidden {
		return a.guard.OnExpire(ctx, e.Status, e.Data)
	}
	if msg := a.store.LastError(); msg != "" && msg != err.Error() {
		return &storeError{msg: msg, err: err}
	}
	return err
}

func (a *App) requireAuth() error {
	if !a.sess.Authenticated() {
		return usageErrorf("not logged in. Run: tada auth login")
	}
	return nil
}

// fetch loads the sorted collection.
func (a *App) fetch(ctx context.Context) ([]model.Todo, error) {
	if err := a.requireAuth(); err != nil {
		return nil, err
	}
	if err := a.store.FetchAll(ctx); err != nil {
		return nil, a.failed(ctx, err)
	}
	if msg := a.store.LastError(); msg != "" {
		return nil, errors.New(msg)
	}
	return a.store.List(), nil
}

// pick resolves a 1-based index argument against the sorted collection.
func (a *App) pick(cmd *cobra.Command, arg string) (model.Todo, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return model.Todo{}, usageErrorf("%s: not a number: %s", cmd.Name(), arg)
	}
	todos, err := a.fetch(cmd.Context())
	if err != nil {
		return model.Todo{}, err
	}
	if n < 1 || n > len(todos) {
		ui.Hint(cmd.ErrOrStderr(), "Hint: run `tada ls` to see valid indexes")
		return model.Todo{}, usageErrorf("index out of range: have %d, got %d", len(todos), n)
	}
	return todos[n-1], nil
}

func runList(cmd *cobra.Command, app *App) error {
	todos, err := app.fetch(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.ListPanel(todos, app.Group))
	return nil
}

func runTUI(cmd *cobra.Command, app *App) error {
	if err := app.requireAuth(); err != nil {
		return err
	}
	lp := ui.NewListProgram(cmd.Context(), app.store, app.guard)
	app.nav.setTarget(lp)
	loggedOut, err := lp.Run()
	app.nav.setTarget(nil)
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	if loggedOut {
		ui.Hint(cmd.ErrOrStderr(), "Signed out. Run `tada auth login` to sign in again.")
	}
	return nil
}

func newListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List to-dos, oldest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, app)
		},
	}
}

func validDue(due string) error {
	if due == "" {
		return nil
	}
	if _, ok := model.ParseTime(due); !ok {
		return usageErrorf("--due: expected YYYY-MM-DD or an ISO date-time, got %q", due)
	}
	return nil
}

func newAddCmd(app *App) *cobra.Command {
	var description, due string
	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a to-do (title can be multiple words)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" {
				return usageErrorf("add: empty title")
			}
			if err := validDue(due); err != nil {
				return err
			}
			if err := app.requireAuth(); err != nil {
				return err
			}
			ctx := cmd.Context()
			created, err := app.store.Create(ctx, model.TodoDto{Title: title, Description: description, DueDate: due})
			if err != nil {
				return app.failed(ctx, err)
			}
			ui.OK(cmd.OutOrStdout(), "added "+created.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Longer description (markdown)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	return cmd
}

func newDoneCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "done <index>",
		Short: "Toggle completion of the to-do at a 1-based index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.pick(cmd, args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			completed := !t.Completed
			updated, err := app.store.Update(ctx, t.ID, model.TodoPatch{Completed: &completed})
			if err != nil {
				return app.failed(ctx, err)
			}
			if updated.Completed {
				ui.OK(cmd.OutOrStdout(), "done: "+updated.Title)
			} else {
				ui.OK(cmd.OutOrStdout(), "reopened: "+updated.Title)
			}
			return nil
		},
	}
}

func newEditCmd(app *App) *cobra.Command {
	var description, due string
	cmd := &cobra.Command{
		Use:   "edit <index> [title...]",
		Short: "Change the title, description or due date of a to-do",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch model.TodoPatch
			if len(args) > 1 {
				title := strings.TrimSpace(strings.Join(args[1:], " "))
				if title == "" {
					return usageErrorf("edit: empty title")
				}
				patch.Title = &title
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if cmd.Flags().Changed("due") {
				if err := validDue(due); err != nil {
					return err
				}
				patch.DueDate = &due
			}
			if patch.Title == nil && patch.Description == nil && patch.DueDate == nil {
				return usageErrorf("edit: nothing to change (give a title, --description or --due)")
			}
			t, err := app.pick(cmd, args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			updated, err := app.store.Update(ctx, t.ID, patch)
			if err != nil {
				return app.failed(ctx, err)
			}
			ui.OK(cmd.OutOrStdout(), "updated "+updated.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "New description (markdown)")
	cmd.Flags().StringVar(&due, "due", "", "New due date (YYYY-MM-DD)")
	return cmd
}

func newRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <index>",
		Short: "Remove the to-do at a 1-based index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.pick(cmd, args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := app.store.Delete(ctx, t.ID); err != nil {
				return app.failed(ctx, err)
			}
			ui.OK(cmd.OutOrStdout(), "removed "+t.Title)
			return nil
		},
	}
}

func newShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <index>",
		Short: "Show one to-do with its description rendered as markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := app.pick(cmd, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderMarkdown(ui.TodoMarkdown(t), terminalWidth(cmd)))
			return nil
		},
	}
}
