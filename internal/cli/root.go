package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/session"
	"github.com/Makepad-fr/tada/internal/state"
	"github.com/Makepad-fr/tada/internal/store/credstore"
	"github.com/Makepad-fr/tada/internal/ui"
)

// App holds root flags and the objects built from them for one invocation.
type App struct {
	ConfigPath string
	APIURL     string
	Theme      string
	Group      bool
	NoColor    bool

	cfg     *config.Config
	logger  *logging.Logger
	sess    *session.Session
	client  *api.Client
	guard   *session.Guard
	store   *state.Store
	nav     *loginNavigator
	closers []io.Closer
	input   *lineReader
}

// Execute runs the CLI and returns the process exit code
// (0 ok, 1 error, 2 usage).
func Execute(ctx context.Context) int {
	app := &App{}
	cmd := newRootCmd(app)
	err := cmd.ExecuteContext(ctx)
	app.close()
	return exitCode(cmd.ErrOrStderr(), err)
}

// NewRootCmd builds the command tree with a fresh App.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&App{})
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tada",
		Short:         "tada - your to-dos from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Sign in, then open the interactive list
  tada auth login you@example.com
  tada

  # Scriptable commands
  tada add "Buy milk" --due 2024-06-01
  tada ls --group
  tada done 2
  tada rm 3
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive list when attached to a terminal.
			if !interactive(cmd) {
				return runList(cmd, app)
			}
			return runTUI(cmd, app)
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.setup(cmd)
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("TADA_CONFIG", ""), "Path to config.yaml (default ~/.tada/config.yaml)")
	cmd.PersistentFlags().StringVar(&app.APIURL, "api", "", "API base URL (overrides api_base_url and TADA_API_URL)")
	cmd.PersistentFlags().StringVar(&app.Theme, "theme", envOr("TADA_THEME", ""), "Theme (classic|neon|mono)")
	cmd.PersistentFlags().BoolVar(&app.Group, "group", false, "Group list output by pending/done")
	cmd.PersistentFlags().BoolVar(&app.NoColor, "no-color", false, "Disable colors")

	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newDoneCmd(app))
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newRemoveCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newAuthCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

// setup is the composition root: config, logging, credential storage,
// session, gateway, guard and store, in that order.
func (a *App) setup(cmd *cobra.Command) error {
	dir, err := credstore.Dir()
	if err != nil {
		return err
	}
	path := a.ConfigPath
	if path == "" {
		path = config.DefaultPath(dir)
	}
	a.ConfigPath = path
	cfg, err := config.Load(path, dir)
	if err != nil {
		return err
	}
	if a.APIURL != "" {
		cfg.APIBaseURL = strings.TrimRight(a.APIURL, "/")
	}
	if a.Theme != "" {
		if !ui.ValidTheme(a.Theme) {
			return usageErrorf("unknown theme %q (want %s)", a.Theme, strings.Join(ui.ThemeNames, "|"))
		}
		cfg.Theme = strings.ToLower(a.Theme)
	}
	a.cfg = cfg

	ui.ApplyColorPreference(a.NoColor)
	ui.SetTheme(cfg.Theme)

	logger, closer, err := logging.New(cfg.LogFile, logging.ParseLevel(cfg.LogLevel))
	if err != nil {
		return err
	}
	a.logger = logger
	a.closers = append(a.closers, closer)

	kv, err := credstore.Open(cfg.CredentialBackend, dir)
	if err != nil {
		return err
	}
	if c, ok := kv.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	a.sess = session.New(kv)
	a.nav = &loginNavigator{w: cmd.ErrOrStderr()}

	a.client, err = api.New(cfg.APIBaseURL, api.Options{
		Logger:      logger,
		Credentials: a.sess,
		Navigator:   a.nav,
		LoginPath:   cfg.LoginPath,
	})
	if err != nil {
		return err
	}

	var dialog session.Dialog
	if interactive(cmd) {
		dialog = ui.ConfirmDialog{In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()}
	}
	a.guard = session.NewGuard(a.sess, a.nav, dialog,
		session.WithLoginPath(cfg.LoginPath),
		session.WithLogger(logger))
	a.store = state.New(a.client, a.sess, state.WithLogger(logger))
	if err := a.store.InitializeSession(); err != nil {
		logger.Warn("could not restore session", "err", err)
	}

	cmd.SetContext(logging.WithContext(cmd.Context(), logger))
	logger.Debug("command start", "cmd", cmd.CommandPath(), "api", cfg.APIBaseURL)
	return nil
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && a.logger != nil {
			a.logger.Error("close", "err", err)
		}
	}
	a.closers = nil
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

func exitCode(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	ui.Fail(w, err.Error())
	var ue usageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
