package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/veritas/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/veritas/internal/core/domain"
)

type mockAnswerService struct {
	resp  domain.AnswerResponse
	err   error
	query string
}

func (m *mockAnswerService) Answer(_ context.Context, _ domain.TenantID, query string) (domain.AnswerResponse, error) {
	m.query = query
	return m.resp, m.err
}

func groundedResponse() domain.AnswerResponse {
	return domain.AnswerResponse{
		Answer: "The office opens at nine.",
		Claims: []domain.Claim{{Text: "The office opens at nine.", EvidenceIDs: []string{"ev1"}, Confidence: 0.9}},
		Citations: map[string]domain.Citation{
			"ev1": {URL: "https://a.test/hours", SectionID: "s1", QuoteSpan: "We open at nine"},
		},
	}
}

func newApp(t *testing.T, svc *mockAnswerService) *App {
	t.Helper()
	app, err := NewApp(&Ports{Answer: svc, Tenant: "A"})
	require.NoError(t, err)
	return app
}

func typeQuery(app *App, q string) {
	for _, r := range q {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestNewApp_Validates(t *testing.T) {
	_, err := NewApp(&Ports{Tenant: "A"})
	assert.ErrorIs(t, err, ErrMissingAnswerService)

	_, err = NewApp(&Ports{Answer: &mockAnswerService{}})
	assert.ErrorIs(t, err, domain.ErrTenantRequired)

	_, err = NewApp(nil)
	assert.ErrorIs(t, err, ErrMissingAnswerService)
}

func TestApp_AskFlow(t *testing.T) {
	svc := &mockAnswerService{resp: groundedResponse()}
	app := newApp(t, svc)
	typeQuery(app, "when do you open?")

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	req, ok := cmd().(messages.AnswerRequested)
	require.True(t, ok)
	assert.Equal(t, "when do you open?", req.Query)

	_, cmd = app.Update(req)
	assert.Equal(t, messages.ModeLoading, app.Mode())
	assert.Contains(t, app.View(), "Answering")
	require.NotNil(t, cmd)

	app.Update(app.answer(req.Query)())
	assert.Equal(t, "when do you open?", svc.query)
	assert.Equal(t, messages.ModeAnswer, app.Mode())
	require.NotNil(t, app.Response())
	assert.Contains(t, app.View(), "The office opens at nine.")
}

func TestApp_EmptyQueryIgnored(t *testing.T) {
	app := newApp(t, &mockAnswerService{})
	typeQuery(app, "   ")

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Equal(t, messages.ModeInput, app.Mode())
}

func TestApp_ErrorShown(t *testing.T) {
	app := newApp(t, &mockAnswerService{})
	app.Update(messages.AnswerRequested{Query: "q"})
	app.Update(messages.AnswerCompleted{Query: "q", Err: errors.New("llm down")})

	assert.Equal(t, messages.ModeAnswer, app.Mode())
	assert.Nil(t, app.Response())
	assert.EqualError(t, app.Err(), "llm down")
	assert.Contains(t, app.View(), "llm down")
}

func TestApp_StaleAnswerIgnored(t *testing.T) {
	app := newApp(t, &mockAnswerService{})
	app.Update(messages.AnswerRequested{Query: "second"})
	app.Update(messages.AnswerCompleted{Query: "first", Response: groundedResponse()})

	assert.Equal(t, messages.ModeLoading, app.Mode())
	assert.Nil(t, app.Response())
}

func TestApp_NewQuestionAndQuit(t *testing.T) {
	app := newApp(t, &mockAnswerService{})
	app.Update(messages.AnswerRequested{Query: "q"})
	app.Update(messages.AnswerCompleted{Query: "q", Response: groundedResponse()})

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}})
	assert.Equal(t, messages.ModeInput, app.Mode())

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, messages.ModeAnswer, app.Mode())

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestApp_WindowResize(t *testing.T) {
	app := newApp(t, &mockAnswerService{})
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	assert.Equal(t, 100, app.viewport.Width)
	assert.Equal(t, 24, app.viewport.Height)
}
