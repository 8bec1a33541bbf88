package cli

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/ui"
)

func newAuthCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in, sign out and manage your account",
	}
	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.guard.Logout(); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			ui.OK(cmd.OutOrStdout(), "logged out")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether a session is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if u := app.store.User(); u != nil && app.store.Token() != "" {
				fmt.Fprintf(out, "logged in as %s\n", u.Email)
			} else {
				ui.Hint(out, "not logged in")
				fmt.Fprintln(out, "Run: tada auth login")
			}
			fmt.Fprintf(out, "api: %s\n", app.client.BaseURL())
			fmt.Fprintf(out, "credentials: %s\n", app.cfg.CredentialBackend)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "whoami",
		Short: "Print the signed-in user and, for JWTs, the token claims",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireAuth(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, app.store.User().Email)
			if claims, ok := jwtClaims(app.store.Token()); ok {
				fmt.Fprintln(out, "JWT payload:")
				fmt.Fprintln(out, claims)
			} else {
				fmt.Fprintln(out, "Opaque token (cannot introspect locally).")
			}
			return nil
		},
	})
	cmd.AddCommand(newRegisterCmd(app))
	cmd.AddCommand(&cobra.Command{
		Use:   "verify <code>",
		Short: "Confirm your email with the code you received",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := app.client.VerifyEmail(cmd.Context(), model.EmailVerificationRequest{Code: strings.TrimSpace(args[0])})
			if err != nil {
				return err
			}
			ui.OK(cmd.OutOrStdout(), resp.Message)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "resend <email>",
		Short: "Send a new verification code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := app.client.ResendVerification(cmd.Context(), model.ResendVerificationRequest{Email: strings.TrimSpace(args[0])})
			if err != nil {
				return err
			}
			ui.OK(cmd.OutOrStdout(), resp.Message)
			return nil
		},
	})
	return cmd
}

func newLoginCmd(app *App) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login [username-or-email]",
		Short: "Sign in and store the session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var who string
			if len(args) == 1 {
				who = strings.TrimSpace(args[0])
			}
			var err error
			if who == "" {
				if who, err = app.prompt(cmd, "Username or email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = app.promptSecret(cmd, "Password: "); err != nil {
					return err
				}
			}
			if who == "" || password == "" {
				return usageErrorf("login: username and password are required")
			}
			resp, err := app.store.Login(cmd.Context(), model.LoginRequest{UsernameOrEmail: who, Password: password})
			if err != nil {
				if msg := app.store.AuthError(); msg != "" {
					return &storeError{msg: msg, err: err}
				}
				return err
			}
			ui.OK(cmd.OutOrStdout(), "logged in as "+resp.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", envOr("TADA_PASSWORD", ""), "Password (prompted when omitted)")
	return cmd
}

func newRegisterCmd(app *App) *cobra.Command {
	var req model.RegistrationRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account; a verification code is emailed to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if req.Email == "" {
				if req.Email, err = app.prompt(cmd, "Email: "); err != nil {
					return err
				}
			}
			if req.Username == "" {
				req.Username = req.Email
			}
			if req.Password == "" {
				if req.Password, err = app.promptSecret(cmd, "Password: "); err != nil {
					return err
				}
			}
			resp, err := app.client.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			ui.OK(cmd.OutOrStdout(), resp.Message)
			ui.Hint(cmd.OutOrStdout(), "Next: tada auth verify <code>")
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Username, "username", "", "Username (defaults to the email)")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password (prompted when omitted)")
	return cmd
}

// jwtClaims decodes the unsigned payload of a JWT for display.
func jwtClaims(token string) (string, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", false
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return "", false
	}
	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", false
	}
	b, err := json.MarshalIndent(claims, "", "  ")
	if err != nil {
		return "", false
	}
	return string(b), true
}
