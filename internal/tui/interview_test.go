package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/interview"
)

type scriptedBackend struct {
	submits  int
	failNext bool
}

func (b *scriptedBackend) Start(context.Context, interview.Goal) (*interview.Round, error) {
	return &interview.Round{
		SessionID: "s1",
		Number:    1,
		MaxRounds: 2,
		Questions: []interview.Question{
			{ID: "motivation", Text: "Why?", Type: interview.QuestionTypeText},
			{ID: "style", Text: "How?", Type: interview.QuestionTypeSelect, Options: []string{"Reading", "Hands-on"}},
		},
	}, nil
}

func (b *scriptedBackend) Submit(context.Context, string, []interview.Answer) (*interview.Outcome, error) {
	if b.failNext {
		b.failNext = false
		return nil, errors.NewStatusError(500, "backend hiccup")
	}
	b.submits++
	if b.submits == 1 {
		return &interview.Outcome{Next: &interview.Round{
			Number:    2,
			MaxRounds: 2,
			Questions: []interview.Question{{ID: "constraints", Text: "Anything in the way?"}},
		}}, nil
	}
	return &interview.Outcome{Complete: true, Evaluation: "enough to plan"}, nil
}

func (b *scriptedBackend) Generate(context.Context, string, interview.Goal) (string, error) {
	return "r1", nil
}

func newInterviewTest(t *testing.T) (*InterviewModel, *scriptedBackend) {
	t.Helper()
	backend := &scriptedBackend{}
	flow := interview.NewFlow(backend, interview.Goal{Topic: "Go"})
	m := NewInterviewModel(context.Background(), flow, DefaultStyles())

	msg := m.startCmd()()
	_, cmd := m.Update(msg)
	require.NotNil(t, m.form)
	assert.NotNil(t, cmd)
	return m, backend
}

func fill(m *InterviewModel, value string) {
	for _, v := range m.values {
		*v = value
	}
}

func TestInterviewModel_Rounds(t *testing.T) {
	m, backend := newInterviewTest(t)
	assert.False(t, m.busy)
	assert.Len(t, m.values, 2)
	assert.Equal(t, "Round 1 of 2", m.formatProgress(m.flow.Round()))

	fill(m, "Hands-on")
	require.NoError(t, m.collect())
	_, _ = m.Update(m.submitCmd()())

	assert.Equal(t, 1, backend.submits)
	assert.Equal(t, 2, m.flow.Round().Number)
	assert.Contains(t, m.values, "constraints")
	assert.False(t, m.completed)

	fill(m, "travel in May")
	require.NoError(t, m.collect())
	_, cmd := m.Update(m.submitCmd()())

	assert.True(t, m.completed)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, interview.StateReady, m.flow.State())
	assert.Contains(t, m.View(), "enough to plan")
}

func TestInterviewModel_MissingAnswerRebuildsForm(t *testing.T) {
	m, _ := newInterviewTest(t)
	first := m.form

	_, _ = m.Update(m.submitCmd()())

	assert.Nil(t, m.err)
	assert.NotSame(t, first, m.form)
	assert.Equal(t, 1, m.flow.Round().Number)
}

func TestInterviewModel_RetryAfterFailure(t *testing.T) {
	m, backend := newInterviewTest(t)
	backend.failNext = true

	fill(m, "Reading")
	require.NoError(t, m.collect())
	_, _ = m.Update(m.submitCmd()())

	require.Error(t, m.err)
	assert.Contains(t, m.View(), "backend hiccup")
	assert.Contains(t, m.View(), "Press r to retry")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	assert.Nil(t, m.err)
	assert.True(t, m.busy)
	assert.NotNil(t, cmd)

	// The answers survived the failed call.
	_, _ = m.Update(m.submitCmd()())
	assert.Equal(t, 2, m.flow.Round().Number)
}

func TestInterviewModel_CtrlCQuits(t *testing.T) {
	m, _ := newInterviewTest(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.True(t, m.quitting)
	require.NotNil(t, cmd)
	assert.Equal(t, "Interview cancelled.\n", m.View())
}
