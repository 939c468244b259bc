package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/appstate"
	"github.com/felixgeelhaar/studyplan/internal/config"
	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/log"
	"github.com/felixgeelhaar/studyplan/internal/metrics"
	"github.com/felixgeelhaar/studyplan/internal/mock"
	"github.com/felixgeelhaar/studyplan/internal/roadmap"
	"github.com/felixgeelhaar/studyplan/internal/telemetry"
	"github.com/felixgeelhaar/studyplan/internal/tui"
	"github.com/felixgeelhaar/studyplan/internal/ux"
	"github.com/felixgeelhaar/studyplan/internal/version"
)

// demoTopic is the roadmap the in-process mock starts with.
const demoTopic = "Go"

// CommandContext holds the resolved flags, settings and shared services of
// one command invocation. Commands build it first thing in RunE:
//
//	func runCommand(cmd *cobra.Command, args []string) error {
//		cc, err := NewCommandContext(cmd)
//		if err != nil {
//			return err
//		}
//		client, err := cc.Client(cmd.Context())
//		...
//	}
type CommandContext struct {
	// Output control
	Verbose bool
	Format  string
	NoColor bool
	Plain   bool

	Config     *config.Config
	ConfigPath string

	Logger  *log.Logger
	State   *appstate.State
	Metrics *metrics.Metrics

	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer

	client *api.Client
	creds  *config.CredentialStore
	lines  *ux.Prompter

	// restored is set once a saved session was resumed.
	restored bool
}

// NewCommandContext reads the persistent flags of cmd and loads settings.
// Flags win over the environment, which wins over config.yaml.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, err
	}

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return nil, err
	}

	noColor, err := cmd.Flags().GetBool("no-color")
	if err != nil {
		return nil, err
	}

	plain, err := cmd.Flags().GetBool("plain")
	if err != nil {
		return nil, err
	}

	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, err
	}

	apiURL, err := cmd.Flags().GetString("api-url")
	if err != nil {
		return nil, err
	}

	useMock, err := cmd.Flags().GetBool("mock")
	if err != nil {
		return nil, err
	}

	home, err := cmd.Flags().GetString("home")
	if err != nil {
		return nil, err
	}
	if home != "" {
		if err := os.Setenv(config.EnvHome, home); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", config.EnvHome, err)
		}
	}

	path, err := config.Path()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path, ux.EnvFiles("")...)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.API.URL = strings.TrimSpace(apiURL)
	}
	if useMock {
		cfg.API.EnableMock = true
	}

	if format == "" {
		format = cfg.Display.Format
	}
	if format == "" {
		format = "text"
	}
	if _, err := ux.NewFormatter(format, &ux.FormatterOptions{Writer: io.Discard}); err != nil {
		return nil, err
	}

	cc := &CommandContext{
		Verbose:    verbose,
		Format:     format,
		NoColor:    noColor || cfg.Display.NoColor || os.Getenv("NO_COLOR") != "",
		Plain:      plain || cfg.Display.Plain,
		Config:     cfg,
		ConfigPath: path,
		State:      appstate.New(),
		Metrics:    metrics.Default(),
		In:         cmd.InOrStdin(),
		Out:        cmd.OutOrStdout(),
		ErrOut:     cmd.ErrOrStderr(),
	}

	logCfg := log.DefaultConfig()
	if verbose {
		logCfg = log.DebugConfig()
	} else if level := firstNonEmpty(logLevel, cfg.Logging.Level); level != "" {
		logCfg.Level = log.ParseLevel(level)
	}
	logCfg.Format = log.ParseFormat(cfg.Logging.Format)
	logCfg.Output = cc.ErrOut
	logCfg.ServiceVersion = version.GetInfo().Version
	cc.Logger = log.New(logCfg)
	log.SetDefaultLogger(cc.Logger)

	cc.State.SetTheme(appstate.ParseTheme(cfg.Display.Theme))
	cc.State.Subscribe(cc.printToast)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := telemetry.InitProvider(ctx, telemetry.FromSettings(cfg.Tracing, version.GetInfo().Version)); err != nil {
		cc.Logger.Warn("tracing disabled", "error", err.Error())
	}
	ctx, _ = telemetry.StartCommandSpan(ctx, cmd.CommandPath())
	cmd.SetContext(ctx)
	return cc, nil
}

func (cc *CommandContext) printToast(t appstate.Toast) {
	icon := map[appstate.ToastKind]string{
		appstate.ToastSuccess: "✓",
		appstate.ToastError:   "✗",
		appstate.ToastWarning: "!",
		appstate.ToastInfo:    "•",
	}[t.Kind]
	fmt.Fprintf(cc.ErrOut, "%s %s\n", icon, t.Message)
}

// Formatter returns the formatter for --format.
func (cc *CommandContext) Formatter() (ux.Formatter, error) {
	return ux.NewFormatter(cc.Format, &ux.FormatterOptions{
		Writer:  cc.Out,
		NoColor: cc.NoColor,
	})
}

// Structured reports whether output is json or yaml.
func (cc *CommandContext) Structured() bool {
	return cc.Format == "json" || cc.Format == "yaml"
}

// Interactive reports whether the full-screen UI may be used.
func (cc *CommandContext) Interactive() bool {
	return !cc.Plain && !cc.Structured() && tui.ShouldPrompt()
}

// Styles returns the TUI styles for the configured theme.
func (cc *CommandContext) Styles() tui.Styles {
	return tui.StylesFor(cc.State.Theme())
}

// ReducerOptions maps stream settings onto reducer policies.
func (cc *CommandContext) ReducerOptions() []roadmap.Option {
	var opts []roadmap.Option
	if cc.Config.Stream.MonthPolicy == "append" {
		opts = append(opts, roadmap.WithMonthPolicy(roadmap.AppendAlways))
	}
	if cc.Config.Stream.WeekPolicy == "append" {
		opts = append(opts, roadmap.WithWeekPolicy(roadmap.AppendWeeks))
	}
	return opts
}

// Credentials returns the refresh-token store.
func (cc *CommandContext) Credentials() (*config.CredentialStore, error) {
	if cc.creds != nil {
		return cc.creds, nil
	}
	store, err := config.DefaultCredentialStore()
	if err != nil {
		return nil, err
	}
	cc.creds = store
	return store, nil
}

// MockEnabled reports whether requests go to the in-process mock backend.
func (cc *CommandContext) MockEnabled() bool {
	return cc.Config.API.EnableMock
}

// Client returns the API client, building it on first use. With the mock
// enabled it talks to an in-process backend signed in as the demo user.
// Otherwise the saved session is restored from the credential store.
func (cc *CommandContext) Client(ctx context.Context) (*api.Client, error) {
	if cc.client != nil {
		return cc.client, nil
	}

	cfg := cc.Config.API
	opts := []api.Option{
		api.WithLogger(cc.Logger.With("component", "api")),
		api.WithMetrics(cc.Metrics),
		api.WithRateLimit(cfg.RateLimit, cfg.Burst),
		api.WithCacheSize(cfg.CacheSize),
	}

	if cfg.EnableMock {
		srv, err := mock.New(
			mock.WithDelay(cc.Config.Mock.Delay()),
			mock.WithLogger(cc.Logger.With("component", "mock")),
			mock.WithMetrics(cc.Metrics),
			mock.WithDemoRoadmap(demoTopic, 3),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, api.WithHTTPClient(&http.Client{Transport: srv.Transport(), Timeout: cfg.Timeout()}))
		client := api.NewClient(mock.BaseURL, cc.State, opts...)
		if _, err := client.Login(ctx, mock.DemoEmail, mock.DemoPassword); err != nil {
			return nil, err
		}
		cc.Logger.Debug("using in-process mock backend", "user", mock.DemoEmail)
		cc.client = client
		return client, nil
	}

	opts = append(opts, api.WithHTTPClient(&http.Client{Timeout: cfg.Timeout()}))
	client := api.NewClient(cfg.URL, cc.State, opts...)

	store, err := cc.Credentials()
	if err != nil {
		return nil, err
	}
	cc.State.OnLogout(func(reason string) {
		if err := store.Delete(); err != nil {
			cc.Logger.LogError("failed to remove saved session", err)
		}
		if reason != "" && cc.restored {
			cc.State.Notify(appstate.ToastWarning, "Your session ended ("+reason+"). Run 'studyplan login' to sign in again.")
		}
	})
	cc.restoreSession(ctx, client, store)

	cc.client = client
	return client, nil
}

// restoreSession exchanges the saved refresh token for a new token pair.
// A rejected token signs the user out through the 401 handler; a network
// failure keeps the saved token for the next run.
func (cc *CommandContext) restoreSession(ctx context.Context, client *api.Client, store *config.CredentialStore) {
	creds, err := store.Load()
	if err != nil {
		cc.Logger.LogError("failed to read saved session", err)
		return
	}
	if creds == nil {
		return
	}

	pair, err := client.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		cc.Logger.WithError(err).Debug("could not restore session")
		return
	}
	if err := store.Save(config.Credentials{RefreshToken: pair.RefreshToken, Email: creds.Email}); err != nil {
		cc.Logger.LogError("failed to save rotated session", err)
	}
	if creds.Email != "" {
		cc.State.SetUser(&appstate.User{Email: creds.Email})
	}
	cc.restored = true
}

// RequireLogin fails unless the client holds a session.
func (cc *CommandContext) RequireLogin() error {
	if !cc.State.Auth().Authenticated() {
		return errors.NewLoginRequiredError()
	}
	return nil
}

// AuthedClient is Client followed by RequireLogin.
func (cc *CommandContext) AuthedClient(ctx context.Context) (*api.Client, error) {
	client, err := cc.Client(ctx)
	if err != nil {
		return nil, err
	}
	if err := cc.RequireLogin(); err != nil {
		return nil, err
	}
	return client, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
