package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/waabox/shipwatch/internal/deploy"
	"github.com/waabox/shipwatch/internal/domain"
)

// EventMsg carries one poller event into the program.
// It is exported so that tests can inject it directly into AppModel.Update.
type EventMsg struct {
	Event deploy.Event
}

// DoneMsg is sent once the event stream is closed.
type DoneMsg struct{}

// AppModel is the root Bubbletea model for the deploy view.
type AppModel struct {
	title  string
	events <-chan deploy.Event
	list   TargetListModel
	done   bool
	width  int
	height int
}

// NewAppModel creates the deploy view for targets, fed by events.
func NewAppModel(title string, targets []domain.Target, events <-chan deploy.Event) AppModel {
	return AppModel{
		title:  title,
		events: events,
		list:   NewTargetListModel(targets),
	}
}

// Init starts listening for events.
func (m AppModel) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func waitForEvent(events <-chan deploy.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return DoneMsg{}
		}
		return EventMsg{Event: ev}
	}
}

// List returns the target list panel.
func (m AppModel) List() TargetListModel {
	return m.list
}

// Done reports whether the event stream has ended.
func (m AppModel) Done() bool {
	return m.done
}

// Update handles all incoming messages and key events.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case EventMsg:
		m.list = m.list.Apply(msg.Event)
		return m, waitForEvent(m.events)

	case DoneMsg:
		m.done = true
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "down", "j":
			m.list = m.list.MoveDown()
		case "up", "k":
			m.list = m.list.MoveUp()
		}
		return m, nil
	}
	return m, nil
}

// View renders the full TUI.
func (m AppModel) View() string {
	header := fmt.Sprintf(" shipwatch | %s\n", m.title)
	separator := "────────────────────────────────────────────────────────────\n"
	title := " Deployments\n"

	footer := " ↑/↓: navigate   q: quit\n"
	if m.done {
		if failed := m.list.Failed(); failed > 0 {
			footer = failStyle.Render(fmt.Sprintf(" %d deployment(s) failed", failed)) + "   q: quit\n"
		} else {
			footer = okStyle.Render(" All deployments succeeded") + "   q: quit\n"
		}
	}
	return header + separator + title + m.list.View() + "\n" + separator + m.statusBar() + separator + footer
}

func (m AppModel) statusBar() string {
	row := m.list.SelectedRow()
	if row.Target.ID == "" {
		return "\n"
	}
	bar := fmt.Sprintf(" %s (%s) ⎇ %s", row.Target.Name, row.Target.ID, row.Target.Branch)
	if row.Result != nil && row.Result.URL != "" {
		bar += "  " + row.Result.URL
	}
	return bar + "\n"
}

// Run starts the Bubbletea program and blocks until the user quits.
func Run(title string, targets []domain.Target, events <-chan deploy.Event) error {
	p := tea.NewProgram(NewAppModel(title, targets, events), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running deploy view: %w", err)
	}
	return nil
}
