package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/veritas/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/veritas/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/veritas/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/veritas/internal/core/domain"
)

// App is the ask-and-cite TUI following the Elm architecture.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keys   *keymap.KeyMap
	help   help.Model

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model

	mode     messages.Mode
	query    string
	response *domain.AnswerResponse
	err      error

	width  int
	height int
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	ti := textinput.New()
	ti.Placeholder = "Ask a question..."
	ti.CharLimit = 512
	ti.Width = 60
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &App{
		ports:    ports,
		ctx:      context.Background(),
		styles:   styles.DefaultStyles(),
		keys:     keymap.DefaultKeyMap(),
		help:     help.New(),
		input:    ti,
		spinner:  sp,
		viewport: viewport.New(80, 20),
		mode:     messages.ModeInput,
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tea.SetWindowTitle("veritas - "+a.ports.Tenant.String()),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.input.Width = max(20, msg.Width-12)
		a.viewport.Width = msg.Width
		a.viewport.Height = max(3, msg.Height-6)
		a.refreshViewport()
		return a, nil

	case messages.AnswerRequested:
		a.mode = messages.ModeLoading
		a.query = msg.Query
		a.err = nil
		return a, tea.Batch(a.spinner.Tick, a.answer(msg.Query))

	case messages.AnswerCompleted:
		if msg.Query != a.query {
			return a, nil
		}
		a.mode = messages.ModeAnswer
		a.err = msg.Err
		if msg.Err == nil {
			resp := msg.Response
			a.response = &resp
		} else {
			a.response = nil
		}
		a.input.Blur()
		a.refreshViewport()
		a.viewport.GotoTop()
		return a, nil

	case spinner.TickMsg:
		if a.mode != messages.ModeLoading {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.mode {
	case messages.ModeInput:
		switch {
		case key.Matches(msg, a.keys.Ask):
			q := strings.TrimSpace(a.input.Value())
			if q == "" {
				return a, nil
			}
			return a, func() tea.Msg { return messages.AnswerRequested{Query: q} }
		case key.Matches(msg, a.keys.Back):
			if a.response != nil || a.err != nil {
				a.mode = messages.ModeAnswer
				a.input.Blur()
				return a, nil
			}
			return a, tea.Quit
		}
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd

	case messages.ModeAnswer:
		switch {
		case key.Matches(msg, a.keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, a.keys.NewQuestion):
			a.mode = messages.ModeInput
			a.input.Reset()
			return a, a.input.Focus()
		}
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) answer(query string) tea.Cmd {
	ctx, svc, tenant := a.ctx, a.ports.Answer, a.ports.Tenant
	return func() tea.Msg {
		resp, err := svc.Answer(ctx, tenant, query)
		return messages.AnswerCompleted{Query: query, Response: resp, Err: err}
	}
}

func (a *App) refreshViewport() {
	switch {
	case a.err != nil:
		a.viewport.SetContent(a.styles.Error.Render("Error: " + a.err.Error()))
	case a.response != nil:
		a.viewport.SetContent(RenderAnswer(a.styles, *a.response))
	default:
		a.viewport.SetContent("")
	}
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("veritas"))
	b.WriteString(a.styles.Muted.Render("  tenant " + a.ports.Tenant.String()))
	b.WriteString("\n\n")

	switch a.mode {
	case messages.ModeInput:
		b.WriteString(a.styles.InputField.Render(a.input.View()))
		b.WriteString("\n")
		b.WriteString(a.help.ShortHelpView(a.keys.InputHelp()))
	case messages.ModeLoading:
		b.WriteString(a.spinner.View())
		b.WriteString(" ")
		b.WriteString(a.styles.Muted.Render("Answering: " + a.query))
	case messages.ModeAnswer:
		b.WriteString(a.styles.Normal.Render("Q: " + a.query))
		b.WriteString("\n\n")
		b.WriteString(a.viewport.View())
		b.WriteString("\n")
		b.WriteString(a.help.ShortHelpView(a.keys.AnswerHelp()))
	}
	return b.String()
}

// Mode returns what the app is currently showing.
func (a *App) Mode() messages.Mode {
	return a.mode
}

// Response returns the last answer, or nil.
func (a *App) Response() *domain.AnswerResponse {
	return a.response
}

// Err returns the last pipeline error.
func (a *App) Err() error {
	return a.err
}
