package prompt

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	dialogBox     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#5B8DEF")).Padding(1, 2)
	questionStyle = lipgloss.NewStyle().Bold(true)
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// Dialog asks each question in a bordered text-input dialog.
type Dialog struct {
	in  io.Reader
	out io.Writer
}

func NewDialog(in io.Reader, out io.Writer) *Dialog {
	return &Dialog{in: in, out: out}
}

func (d *Dialog) Prompt(ctx context.Context, question string) (string, error) {
	p := tea.NewProgram(
		newDialogModel(question),
		tea.WithContext(ctx),
		tea.WithInput(d.in),
		tea.WithOutput(d.out),
	)
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("running dialog: %w", err)
	}

	m := final.(dialogModel)
	if m.interrupted {
		return "", ErrInterrupted
	}
	return m.answer(), nil
}

type dialogModel struct {
	question    string
	input       textinput.Model
	done        bool
	skipped     bool
	interrupted bool
}

func newDialogModel(question string) dialogModel {
	ti := textinput.New()
	ti.Placeholder = "leave blank to skip"
	ti.CharLimit = 214
	ti.Width = 48
	ti.Focus()
	return dialogModel{question: question, input: ti}
}

func (m dialogModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m dialogModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyEsc:
			m.done, m.skipped = true, true
			return m, tea.Quit
		case tea.KeyCtrlC:
			m.interrupted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m dialogModel) View() string {
	if m.done || m.interrupted {
		return ""
	}
	body := questionStyle.Render(m.question) + "\n\n" +
		m.input.View() + "\n\n" +
		hintStyle.Render("enter to confirm · esc to skip · ctrl+c to abort")
	return dialogBox.Render(body) + "\n"
}

func (m dialogModel) answer() string {
	if m.skipped {
		return ""
	}
	return m.input.Value()
}
