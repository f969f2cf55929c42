package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/i474232898/weather-widget/internal/weather"
)

// stateMsg carries a state published by the weather service.
type stateMsg weather.State

// Model is the bubbletea model of the widget. It forwards key presses to the
// weather service and redraws whenever the service publishes a new state.
type Model struct {
	state    weather.State
	updates  <-chan weather.State
	post     func(weather.KeyEvent) error
	renderer *Renderer
	err      error
}

// NewModel creates a Model showing initial until the first update arrives.
func NewModel(initial weather.State, updates <-chan weather.State, post func(weather.KeyEvent) error, renderer *Renderer) Model {
	return Model{
		state:    initial,
		updates:  updates,
		post:     post,
		renderer: renderer,
	}
}

func (m Model) Init() tea.Cmd {
	return waitForState(m.updates)
}

func waitForState(updates <-chan weather.State) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-updates
		if !ok {
			return nil
		}
		return stateMsg(s)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		m.state = weather.State(msg)
		return m, waitForState(m.updates)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		// Posting happens here rather than in a command so key order is kept.
		for _, ev := range keyEvents(msg) {
			if err := m.post(ev); err != nil {
				m.err = err
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m Model) View() string {
	return m.renderer.View(m.state)
}

// Run drives the terminal UI until Ctrl-C, a failed post, or ctx is done.
func Run(ctx context.Context, m Model, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	final, err := tea.NewProgram(m, opts...).Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok {
		return fm.err
	}
	return nil
}
