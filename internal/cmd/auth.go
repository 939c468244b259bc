package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/appstate"
	"github.com/felixgeelhaar/studyplan/internal/config"
	"github.com/felixgeelhaar/studyplan/internal/mock"
	"github.com/felixgeelhaar/studyplan/internal/tui"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the studyplan backend",
	Long: `Sign in with your email and password.

The refresh token is saved to ~/.studyplan/credentials.yaml (mode 0600) and
exchanged for a fresh session on every run. The access token is never
written to disk.

Examples:
  # Prompt for email and password
  studyplan login

  # Non-interactive
  studyplan login --email me@example.com --password "$PASSWORD"
`,
	RunE: runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the saved session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	RunE:  runWhoami,
}

var (
	authEmail    string
	authPassword string
	authUsername string
)

func init() {
	loginCmd.Flags().StringVar(&authEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&authPassword, "password", "", "account password (prompted when empty)")

	registerCmd.Flags().StringVar(&authEmail, "email", "", "account email")
	registerCmd.Flags().StringVar(&authUsername, "username", "", "display name (defaults to the email's local part)")
	registerCmd.Flags().StringVar(&authPassword, "password", "", "account password (prompted when empty)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

// askCredentials fills email and password from flags or prompts.
func askCredentials(cc *CommandContext) (string, string, error) {
	email := authEmail
	if email == "" {
		v, err := cc.Ask(tui.Prompt{Message: "Email", Placeholder: "you@example.com", Required: true})
		if err != nil {
			return "", "", err
		}
		email = v
	}
	password := authPassword
	if password == "" {
		v, err := cc.Ask(tui.Prompt{Message: "Password", Required: true, Password: true})
		if err != nil {
			return "", "", err
		}
		password = v
	}
	return email, password, nil
}

// saveSession persists the refresh token of a fresh login.
func saveSession(cc *CommandContext, auth *api.AuthResponse, email string) error {
	store, err := cc.Credentials()
	if err != nil {
		return err
	}
	return store.Save(config.Credentials{RefreshToken: auth.RefreshToken, Email: email})
}

func displayName(auth *api.AuthResponse, email string) string {
	if auth.User != nil && auth.User.Username != "" {
		return fmt.Sprintf("%s (%s)", auth.User.Username, email)
	}
	return email
}

func runLogin(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	client, err := cc.Client(cmd.Context())
	if err != nil {
		return err
	}
	if cc.MockEnabled() {
		cc.State.Notify(appstate.ToastInfo, "The mock backend signs you in as "+mock.DemoEmail)
		return nil
	}

	email, password, err := askCredentials(cc)
	if err != nil {
		return err
	}
	auth, err := client.Login(cmd.Context(), email, password)
	if err != nil {
		return err
	}
	if err := saveSession(cc, auth, email); err != nil {
		return err
	}

	cc.Logger.Info("signed in", "email", email)
	cc.State.Notify(appstate.ToastSuccess, "Signed in as "+displayName(auth, email))
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	client, err := cc.Client(cmd.Context())
	if err != nil {
		return err
	}

	email, password, err := askCredentials(cc)
	if err != nil {
		return err
	}
	auth, err := client.Register(cmd.Context(), api.RegisterRequest{
		Email:    email,
		Username: authUsername,
		Password: password,
	})
	if err != nil {
		return err
	}
	if !cc.MockEnabled() {
		if err := saveSession(cc, auth, email); err != nil {
			return err
		}
	}

	cc.State.Notify(appstate.ToastSuccess, "Account created; signed in as "+displayName(auth, email))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	client, err := cc.Client(cmd.Context())
	if err != nil {
		return err
	}

	if err := client.Logout(cmd.Context()); err != nil {
		// The local session is gone either way.
		cc.Logger.WithError(err).Warn("server-side logout failed")
	}
	cc.State.Notify(appstate.ToastSuccess, "Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	client, err := cc.AuthedClient(cmd.Context())
	if err != nil {
		return err
	}

	user, err := client.CurrentUser(cmd.Context())
	if err != nil {
		return err
	}

	if cc.Structured() {
		formatter, err := cc.Formatter()
		if err != nil {
			return err
		}
		return formatter.Format(user)
	}
	fmt.Fprintf(cc.Out, "Signed in as %s (%s)\n", user.Username, user.Email)
	if cc.MockEnabled() {
		fmt.Fprintln(cc.Out, "Backend: in-process mock")
	} else {
		fmt.Fprintf(cc.Out, "Backend: %s\n", client.BaseURL())
	}
	return nil
}
