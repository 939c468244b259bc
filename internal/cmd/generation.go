package cmd

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/appstate"
	"github.com/felixgeelhaar/studyplan/internal/progress"
	"github.com/felixgeelhaar/studyplan/internal/roadmap"
	"github.com/felixgeelhaar/studyplan/internal/stream"
	"github.com/felixgeelhaar/studyplan/internal/tui"
)

// generation is a roadmap stream session wired to the live view when
// interactive and to the line indicator otherwise.
type generation struct {
	cc        *CommandContext
	reducer   *roadmap.Reducer
	session   *stream.Session
	adapter   *tui.Adapter
	indicator *progress.Indicator
}

func newGeneration(cc *CommandContext, topic string) *generation {
	g := &generation{
		cc:      cc,
		reducer: roadmap.NewReducer(cc.ReducerOptions()...),
	}

	opts := []stream.Option{
		stream.WithName("roadmap"),
		stream.WithLogger(cc.Logger.With("stream", "roadmap")),
		stream.WithMetrics(cc.Metrics),
		stream.WithHandler(g.reducer),
	}
	if cc.Interactive() {
		g.adapter = tui.NewAdapter(tui.NewModel(topic, g.reducer, cc.Styles()))
		opts = append(opts, stream.WithHandler(tui.NewHook(g.adapter)))
	} else {
		out := cc.Out
		if cc.Structured() {
			out = cc.ErrOut
		}
		g.indicator = progress.NewIndicator(progress.Config{
			Writer:      out,
			ShowSpinner: tui.IsInteractive(),
			Roadmap:     g.reducer,
		})
		opts = append(opts, stream.WithHandler(g.indicator))
	}
	g.session = stream.NewSession(opts...)
	return g
}

// run drives generate while showing progress and returns the roadmap id.
func (g *generation) run(ctx context.Context, generate tui.GenerateFunc) (string, error) {
	if g.adapter != nil {
		return g.adapter.Run(ctx, generate)
	}

	g.indicator.Start()
	id, err := generate(ctx)
	g.indicator.Stop()
	g.indicator.PrintSummary(g.session.Snapshot())
	return id, err
}

// report prints the finished roadmap: the full document for json and yaml,
// next steps for text.
func (g *generation) report(ctx context.Context, client *api.Client, id string) error {
	cc := g.cc
	if cc.Structured() {
		r, err := client.GetRoadmap(ctx, id)
		if err != nil {
			return err
		}
		formatter, err := cc.Formatter()
		if err != nil {
			return err
		}
		return formatter.Format(r)
	}

	title := g.reducer.Snapshot().Title
	if title == "" {
		title = id
	}
	cc.State.Notify(appstate.ToastSuccess, fmt.Sprintf("Roadmap %q is ready", title))
	fmt.Fprintln(cc.Out)
	fmt.Fprintln(cc.Out, "Next steps:")
	fmt.Fprintf(cc.Out, "  studyplan roadmaps show %s\n", id)
	fmt.Fprintf(cc.Out, "  studyplan roadmaps browse %s\n", id)
	fmt.Fprintf(cc.Out, "  studyplan quiz list %s\n", id)
	return nil
}
