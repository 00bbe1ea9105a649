package commands

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/colonyops/lens/internal/core/styles"
	"golang.org/x/term"
)

type doneMsg struct{ err error }

// spinnerModel shows a spinner with a title until the work reports done.
type spinnerModel struct {
	spinner spinner.Model
	title   string
	err     error
	done    bool
}

func newSpinnerModel(title string) spinnerModel {
	return spinnerModel{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(styles.CurrentPalette.Primary))),
		),
		title: title,
	}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + " " + styles.MutedStyle.Render(m.title) + "\n"
}

// withSpinner runs fn while a spinner titled title animates on w. When w is
// not a terminal fn runs without any output.
func withSpinner(ctx context.Context, w io.Writer, title string, fn func(context.Context) error) error {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return fn(ctx)
	}

	p := tea.NewProgram(newSpinnerModel(title),
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithOutput(w),
	)

	go func() {
		p.Send(doneMsg{err: fn(ctx)})
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	return final.(spinnerModel).err
}
