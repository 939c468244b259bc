package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/studyplan/internal/exitcode"
	"github.com/felixgeelhaar/studyplan/internal/telemetry"
)

var rootCmd = &cobra.Command{
	Use:   "studyplan",
	Short: "Plan what to learn next",
	Long: `studyplan turns a learning goal into a month-by-month roadmap.

It interviews you about the goal over a few rounds, streams the roadmap as the
backend writes it, and lets you work through the daily checklist and quizzes
from the terminal.

Run with --mock (or STUDYPLAN_ENABLE_MOCK=true) to try it without a backend.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, which commands use to stop
// streams and requests on interrupt. The command's span is ended and pending
// spans are flushed before it returns.
func ExecuteContext(ctx context.Context) error {
	cmd, err := rootCmd.ExecuteContextC(ctx)
	if cmd != nil {
		telemetry.Finish(trace.SpanFromContext(cmd.Context()), err)
	}

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	_ = telemetry.Shutdown(flushCtx)
	return err
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("format", "", "output format: text, json or yaml (default from config)")
	flags.Bool("no-color", false, "disable colored output")
	flags.BoolP("verbose", "v", false, "log debug output to stderr")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("api-url", "", "backend API root, overrides api.url")
	flags.Bool("mock", false, "use the built-in mock backend")
	flags.Bool("plain", false, "line-based output instead of the interactive UI")
	flags.String("home", "", "settings directory (default ~/.studyplan)")

	rootCmd.Long += "\n\n" + exitCodeHelp()
}

func exitCodeHelp() string {
	var b strings.Builder
	b.WriteString("Exit codes:\n")
	for _, code := range []int{
		exitcode.Success, exitcode.GeneralError, exitcode.UsageError,
		exitcode.ValidationError, exitcode.GenerationFailed, exitcode.AuthError,
		exitcode.NetworkError, exitcode.Interrupted,
	} {
		fmt.Fprintf(&b, "  %3d  %s\n", code, exitcode.GetExitCodeDescription(code))
	}
	return strings.TrimRight(b.String(), "\n")
}
