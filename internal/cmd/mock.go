package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/studyplan/internal/health"
	"github.com/felixgeelhaar/studyplan/internal/log"
	"github.com/felixgeelhaar/studyplan/internal/metrics"
	"github.com/felixgeelhaar/studyplan/internal/mock"
	"github.com/felixgeelhaar/studyplan/internal/progress"
	"github.com/felixgeelhaar/studyplan/internal/server"
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Run the built-in mock backend",
	Long: `The mock backend answers every endpoint studyplan uses, streams canned
interview questions and roadmaps, and keeps its data in memory.

--mock (or STUDYPLAN_ENABLE_MOCK=true) runs it inside each command. 'mock
serve' runs it as a server so data survives between commands and other
clients can use it.`,
}

var mockServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the mock backend over HTTP",
	Long: `Serve the mock backend until interrupted.

Examples:
  studyplan mock serve
  studyplan mock serve --addr 127.0.0.1:9000 --delay 50ms --metrics

Then point studyplan at it:
  STUDYPLAN_API_URL=http://127.0.0.1:8787/api/v1 studyplan login
`,
	Args: cobra.NoArgs,
	RunE: runMockServe,
}

var (
	mockAddr    string
	mockDelay   time.Duration
	mockMetrics bool
	mockSeed    bool
)

func init() {
	mockServeCmd.Flags().StringVar(&mockAddr, "addr", "", "listen address (default mock.addr)")
	mockServeCmd.Flags().DurationVar(&mockDelay, "delay", -1, "pause between streamed events (default mock.delay_ms)")
	mockServeCmd.Flags().BoolVar(&mockMetrics, "metrics", false, "expose Prometheus metrics on /metrics")
	mockServeCmd.Flags().BoolVar(&mockSeed, "seed", true, "give the demo account a roadmap to start with")

	mockCmd.AddCommand(mockServeCmd)
	rootCmd.AddCommand(mockCmd)
}

func runMockServe(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	addr := mockAddr
	if addr == "" {
		addr = cc.Config.Mock.Addr
	}
	delay := mockDelay
	if delay < 0 {
		delay = cc.Config.Mock.Delay()
	}

	// Request logs go to stderr, prefixed, at info level unless --verbose.
	logs := progress.NewStreamWriter(cc.ErrOut, "[mock] ")
	defer func() { _ = logs.Flush() }()
	logCfg := cc.Logger.Config()
	logCfg.Output = logs
	if logCfg.Level > log.LevelInfo {
		logCfg.Level = log.LevelInfo
	}
	logger := log.New(logCfg)

	opts := []mock.Option{
		mock.WithDelay(delay),
		mock.WithLogger(logger),
	}
	if mockMetrics {
		reg, m := metrics.NewRegistry()
		opts = append(opts, mock.WithMetrics(m), mock.WithMetricsEndpoint(reg))
	} else {
		opts = append(opts, mock.WithMetrics(cc.Metrics))
	}
	if mockSeed {
		opts = append(opts, mock.WithDemoRoadmap(demoTopic, 3))
	}

	backend, err := mock.New(opts...)
	if err != nil {
		return err
	}
	srv := server.NewServer(backend, server.Config{
		Address: addr,
		Checks:  mockChecks(backend),
		Logger:  logger,
	})

	fmt.Fprintf(cc.Out, "Mock backend on http://%s%s\n", addr, mock.BasePath)
	fmt.Fprintf(cc.Out, "Demo account: %s / %s\n", mock.DemoEmail, mock.DemoPassword)
	if mockMetrics {
		fmt.Fprintf(cc.Out, "Metrics:      http://%s/metrics\n", addr)
	}
	fmt.Fprintf(cc.Out, "Readiness:    http://%s/health/ready\n", addr)
	fmt.Fprintln(cc.Out, "Press Ctrl+C to stop.")

	return srv.ListenAndServe(cmd.Context())
}

// mockChecks are the dependency checks behind the readiness probe.
func mockChecks(backend *mock.Server) *health.Manager {
	checks := health.NewManager()
	checks.AddChecker(contractCheck(backend))
	return checks
}

func contractCheck(backend *mock.Server) health.Checker {
	return health.Func("mock-contract", func(context.Context) *health.Result {
		if drift := backend.Drift(); len(drift) > 0 {
			return health.Unhealthy("routes drift from the API contract: " + strings.Join(drift, "; "))
		}
		return health.Healthy(fmt.Sprintf("%d endpoints match the API contract", len(backend.Contract().Endpoints())))
	})
}
