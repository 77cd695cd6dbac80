package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/veritas/internal/adapters/driving/tui"
)

var askCmd = &cobra.Command{
	Use:     "ask",
	Aliases: []string{"tui"},
	Short:   "Ask questions interactively",
	Long: `Opens a terminal UI for asking questions against the tenant's corpus.

Controls:
  Enter  - Ask
  n      - New question
  ↑/↓    - Scroll the answer
  Esc    - Back
  q      - Quit`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, _ []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	if answerService == nil {
		return errors.New("answer service not configured")
	}
	tenant, err := resolveTenant()
	if err != nil {
		return err
	}

	app, err := tui.NewApp(&tui.Ports{Answer: answerService, Tenant: tenant})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(commandContext(cmd))

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
