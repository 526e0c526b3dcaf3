package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/waabox/shipwatch/internal/deploy"
	"github.com/waabox/shipwatch/internal/domain"
)

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#36a64f"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E01E5A"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3AA3E3"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// TargetRow is the live state of one target's deployment.
type TargetRow struct {
	Target  domain.Target
	JobID   string
	Status  domain.JobStatus
	Attempt int
	Result  *domain.DeployResult
}

// TargetListModel is an immutable Bubbletea-compatible model for the target list panel.
type TargetListModel struct {
	rows   []TargetRow
	cursor int
}

// NewTargetListModel creates a target list with every target waiting to start.
func NewTargetListModel(targets []domain.Target) TargetListModel {
	rows := make([]TargetRow, len(targets))
	for i, t := range targets {
		rows[i] = TargetRow{Target: t}
	}
	return TargetListModel{rows: rows}
}

// Apply returns a new model with ev folded into the matching row.
// Events for unknown targets append a row.
func (m TargetListModel) Apply(ev deploy.Event) TargetListModel {
	rows := append([]TargetRow(nil), m.rows...)
	i := indexOf(rows, ev.Target.ID)
	if i < 0 {
		rows = append(rows, TargetRow{Target: ev.Target})
		i = len(rows) - 1
	}
	row := rows[i]
	if ev.JobID != "" {
		row.JobID = ev.JobID
	}
	if ev.Result != nil {
		res := *ev.Result
		row.Result = &res
	} else {
		row.Status = ev.Status
		row.Attempt = ev.Attempt
	}
	rows[i] = row
	m.rows = rows
	return m
}

func indexOf(rows []TargetRow, id string) int {
	for i, r := range rows {
		if r.Target.ID == id {
			return i
		}
	}
	return -1
}

// MoveDown returns a new model with the cursor moved down by one.
func (m TargetListModel) MoveDown() TargetListModel {
	if m.cursor < len(m.rows)-1 {
		m.cursor++
	}
	return m
}

// MoveUp returns a new model with the cursor moved up by one.
func (m TargetListModel) MoveUp() TargetListModel {
	if m.cursor > 0 {
		m.cursor--
	}
	return m
}

// SelectedIndex returns the current cursor position.
func (m TargetListModel) SelectedIndex() int {
	return m.cursor
}

// SelectedRow returns the currently highlighted row.
// Returns zero-value TargetRow if the list is empty.
func (m TargetListModel) SelectedRow() TargetRow {
	if len(m.rows) == 0 {
		return TargetRow{}
	}
	return m.rows[m.cursor]
}

// Finished reports whether every target has a result.
func (m TargetListModel) Finished() bool {
	for _, r := range m.rows {
		if r.Result == nil {
			return false
		}
	}
	return true
}

// Failed counts targets whose deployment failed.
func (m TargetListModel) Failed() int {
	n := 0
	for _, r := range m.rows {
		if r.Result != nil && !r.Result.Succeeded() {
			n++
		}
	}
	return n
}

// View renders the target list as a string.
func (m TargetListModel) View() string {
	if len(m.rows) == 0 {
		return "No targets configured."
	}
	var sb strings.Builder
	for i, r := range m.rows {
		prefix := "  "
		if i == m.cursor {
			prefix = "> "
		}
		sb.WriteString(fmt.Sprintf("%s%s %-20s %-8s %-10s %s\n",
			prefix,
			rowIcon(r),
			truncate(r.Target.Name, 20),
			orDash(r.JobID),
			rowStatus(r),
			attempts(r.Attempt),
		))
	}
	return sb.String()
}

func rowIcon(r TargetRow) string {
	if r.Result != nil {
		if r.Result.Succeeded() {
			return okStyle.Render("✓")
		}
		return failStyle.Render("✗")
	}
	return statusIcon(r.Status)
}

func rowStatus(r TargetRow) string {
	if r.Result != nil {
		return string(r.Result.Status)
	}
	if r.Status == "" {
		return "waiting"
	}
	return string(r.Status)
}

func statusIcon(s domain.JobStatus) string {
	switch s {
	case domain.JobSucceed:
		return okStyle.Render("✓")
	case domain.JobFailed:
		return failStyle.Render("✗")
	case domain.JobRunning:
		return runningStyle.Render("●")
	case domain.JobPending:
		return runningStyle.Render("↷")
	case domain.JobCancelled:
		return mutedStyle.Render("○")
	case "":
		return mutedStyle.Render("·")
	default:
		return "?"
	}
}

func attempts(n int) string {
	switch n {
	case 0:
		return ""
	case 1:
		return "1 poll"
	default:
		return fmt.Sprintf("%d polls", n)
	}
}

func orDash(s string) string {
	if s == "" {
		return "--"
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
