package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/felixgeelhaar/studyplan/internal/api"
	"github.com/felixgeelhaar/studyplan/internal/errors"
)

func TestRoadmapsSubcommands(t *testing.T) {
	want := []string{"list", "show", "browse", "rename", "delete"}
	for _, name := range want {
		found := false
		for _, c := range roadmapsCmd.Commands() {
			if c.Name() == name {
				found = true
			}
		}
		if !found {
			t.Errorf("subcommand '%s' not found in roadmaps command", name)
		}
	}
}

func TestRoadmapsListMock(t *testing.T) {
	setupHome(t)

	out, _, err := execute(t, "", "roadmaps", "list", "--mock")
	if err != nil {
		t.Fatalf("roadmaps list error = %v", err)
	}
	for _, want := range []string{"TITLE", "Go in 3 months", "0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}
}

func TestRoadmapsListJSON(t *testing.T) {
	setupHome(t)

	out, _, err := execute(t, "", "roadmaps", "list", "--mock", "--format", "json")
	if err != nil {
		t.Fatalf("roadmaps list error = %v", err)
	}
	var list []api.RoadmapSummary
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("output is not a roadmap list: %v\n%s", err, out)
	}
	if len(list) != 1 || list[0].DurationMonths != 3 {
		t.Errorf("list = %+v", list)
	}
}

func TestRoadmapsShowMock(t *testing.T) {
	setupHome(t)

	out, _, err := execute(t, "", "roadmaps", "show", "--mock")
	if err != nil {
		t.Fatalf("roadmaps show error = %v", err)
	}
	if !strings.Contains(out, "Go in 3 months") || !strings.Contains(out, "Foundations") {
		t.Errorf("show output:\n%s", out)
	}
}

func TestRoadmapsBrowseNeedsTerminal(t *testing.T) {
	setupHome(t)

	_, _, err := execute(t, "", "roadmaps", "browse", "--mock")
	if got := errors.CodeOf(err); got != errors.ErrCodeConfigInvalid {
		t.Errorf("code = %s, want %s (%v)", got, errors.ErrCodeConfigInvalid, err)
	}
}

func TestRoadmapsShowUnknownID(t *testing.T) {
	setupHome(t)

	_, _, err := execute(t, "", "roadmaps", "show", "no-such-roadmap", "--mock")
	if got := errors.CodeOf(err); got != errors.ErrCodeAPINotFound {
		t.Errorf("code = %s, want %s (%v)", got, errors.ErrCodeAPINotFound, err)
	}
}

func TestRoadmapsRequireLogin(t *testing.T) {
	setupHome(t)
	url := serveMock(t)

	_, _, err := execute(t, "", "roadmaps", "list", "--api-url", url)
	if got := errors.CodeOf(err); got != errors.ErrCodeAuthRequired {
		t.Errorf("code = %s, want %s (%v)", got, errors.ErrCodeAuthRequired, err)
	}
}

func TestProgressMock(t *testing.T) {
	setupHome(t)

	out, _, err := execute(t, "", "progress", "--mock")
	if err != nil {
		t.Fatalf("progress error = %v", err)
	}
	for _, want := range []string{"0%", "0 of 60 tasks done", "Up next: month 1, week 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("progress output missing %q:\n%s", want, out)
		}
	}
}

func TestQuizListMock(t *testing.T) {
	setupHome(t)

	out, _, err := execute(t, "", "quiz", "list", "--mock")
	if err != nil {
		t.Fatalf("quiz list error = %v", err)
	}
	for _, want := range []string{"Month 1 check-in", "Month 3 check-in"} {
		if !strings.Contains(out, want) {
			t.Errorf("quiz list missing %q:\n%s", want, out)
		}
	}
}

func TestQuizTakeMock(t *testing.T) {
	setupHome(t)

	// First pick the quiz, then answer each of its three questions.
	out, errOut, err := execute(t, "1\n1\n1\n1\n", "quiz", "take", "--mock", "--plain")
	if err != nil {
		t.Fatalf("quiz take error = %v", err)
	}
	if !strings.Contains(errOut, "Which quiz?") || !strings.Contains(errOut, "1/3 Which activity belongs to week 1?") {
		t.Errorf("expected quiz prompts, got:\n%s", errOut)
	}
	if !strings.Contains(out, "Score: 100% (3/3). Passed!") {
		t.Errorf("quiz result:\n%s", out)
	}
}

func TestQuizTakeWrongAnswers(t *testing.T) {
	setupHome(t)

	out, _, err := execute(t, "1\n2\n3\n2\n", "quiz", "take", "--mock", "--plain")
	if err != nil {
		t.Fatalf("quiz take error = %v", err)
	}
	if !strings.Contains(out, "Score: 0% (0/3). Not passed yet") {
		t.Errorf("quiz result:\n%s", out)
	}
}
