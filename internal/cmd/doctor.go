package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/health"
	"github.com/felixgeelhaar/studyplan/internal/mock"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check settings, the saved session and the backend",
	Long: `Run diagnostics and report what needs attention.

Checks include:
  • Settings in config.yaml and the environment
  • The saved session and its file permissions
  • Whether the backend at api.url answers
  • With --mock, whether the mock backend matches the API contract

Examples:
  studyplan doctor
  studyplan doctor --format json
`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// doctorReport is the structured form of a doctor run.
type doctorReport struct {
	Status  health.Status   `json:"status" yaml:"status"`
	Healthy bool            `json:"healthy" yaml:"healthy"`
	Checks  []health.Report `json:"checks" yaml:"checks"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	timeout := cc.Config.API.Timeout()
	checks := health.NewManager().WithTimeout(timeout)
	checks.AddChecker(health.ConfigCheck(cc.Config))
	if cc.MockEnabled() {
		backend, err := mock.New()
		if err != nil {
			checks.AddChecker(health.Func("mock-contract", func(context.Context) *health.Result {
				return health.Unhealthy(err.Error())
			}))
		} else {
			checks.AddChecker(contractCheck(backend))
		}
	} else {
		store, err := cc.Credentials()
		if err != nil {
			return err
		}
		checks.AddChecker(health.CredentialsCheck(store))
		checks.AddChecker(health.EndpointCheck(&http.Client{Timeout: timeout}, cc.Config.API.URL))
	}

	reports := checks.Check(cmd.Context())
	report := doctorReport{Status: health.Overall(reports), Checks: reports}
	report.Healthy = report.Status != health.StatusUnhealthy
	cc.Logger.Debug("diagnostics finished", "status", report.Status, "checks", len(reports))

	formatter, err := cc.Formatter()
	if err != nil {
		return err
	}
	if cc.Structured() {
		if err := formatter.Format(report); err != nil {
			return err
		}
	} else {
		table := tableOf("STATUS", "CHECK", "MESSAGE")
		for _, r := range reports {
			table.Rows = append(table.Rows, []string{statusIcon(r.Status) + " " + r.Status.String(), r.Name, r.Message})
		}
		if err := formatter.Format(table); err != nil {
			return err
		}

		var tips []string
		for _, r := range reports {
			if r.Suggestion != "" {
				tips = append(tips, fmt.Sprintf("  %s: %s", r.Name, r.Suggestion))
			}
		}
		if len(tips) > 0 {
			fmt.Fprintln(cc.Out, "\nNext steps:")
			for _, tip := range tips {
				fmt.Fprintln(cc.Out, tip)
			}
		}
	}

	if !report.Healthy {
		return errors.New(errors.ErrCodeHealthCheckFailed, "some checks failed").
			WithSuggestion("Fix the unhealthy checks above and run 'studyplan doctor' again")
	}
	return nil
}

func statusIcon(s health.Status) string {
	switch s {
	case health.StatusHealthy:
		return "✓"
	case health.StatusDegraded:
		return "!"
	default:
		return "✗"
	}
}
