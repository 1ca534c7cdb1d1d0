package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/taskloop/internal/events"
	"github.com/aristath/taskloop/internal/scheduler"
)

// TaskPaneModel lists the registered tasks with their flags and lets the
// operator enable or disable them.
type TaskPaneModel struct {
	tasks       []*scheduler.Task
	durations   map[string]time.Duration // last run duration per task
	failed      map[string]bool
	current     string
	selectedIdx int
	width       int
	height      int
	focused     bool
}

// NewTaskPaneModel creates a task pane over tasks, in selection order.
func NewTaskPaneModel(tasks []*scheduler.Task) TaskPaneModel {
	return TaskPaneModel{
		tasks:     tasks,
		durations: make(map[string]time.Duration),
		failed:    make(map[string]bool),
	}
}

// Update handles messages for the task pane.
func (m TaskPaneModel) Update(msg tea.Msg) (TaskPaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.focused {
			break
		}

		switch msg.String() {
		case KeyJ, KeyDown:
			if m.selectedIdx < len(m.tasks)-1 {
				m.selectedIdx++
			}
		case KeyK, KeyUp:
			if m.selectedIdx > 0 {
				m.selectedIdx--
			}
		case KeyEnable:
			if t := m.Selected(); t != nil {
				if t.Enabled() {
					t.Disable()
				} else {
					t.Enable()
					delete(m.failed, t.Name())
				}
			}
		}

	case events.CurrentTaskEvent:
		m.current = msg.Name

	case events.TaskStateEvent:
		if msg.Duration > 0 {
			m.durations[msg.Name] = msg.Duration
		}

	case events.NotificationEvent:
		// Failure notifications carry the task name as title.
		if msg.IsError {
			m.failed[msg.Title] = true
		}
	}

	return m, nil
}

// View renders the task pane.
func (m TaskPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := StyleTitle.Render("Tasks")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n\n")

	if len(m.tasks) == 0 {
		b.WriteString(StyleStatusDisabled.Render("No tasks registered"))
	}

	nameWidth := max(m.width-24, 8)
	for i, t := range m.tasks {
		name := t.Name()
		if len(name) > nameWidth {
			name = name[:nameWidth-3] + "..."
		}

		marker := " "
		if t.Name() == m.current {
			marker = ">"
		}

		line := fmt.Sprintf("%s %s %-*s %-10s", marker, m.StatusIcon(t), nameWidth, name, t.Kind())
		if d, ok := m.durations[t.Name()]; ok {
			line += " " + d.Round(time.Millisecond).String()
		}
		if i == m.selectedIdx {
			line = StyleSelected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(b.String())
}

// StatusIcon returns a styled indicator for the task's current flags.
func (m TaskPaneModel) StatusIcon(t *scheduler.Task) string {
	switch {
	case t.Running() && t.Paused():
		return StyleStatusRunning.Render("‖")
	case t.Running():
		return StyleStatusRunning.Render("●")
	case !t.Enabled() && m.failed[t.Name()]:
		return StyleStatusFailed.Render("✗")
	case t.Enabled():
		return StyleStatusEnabled.Render("✓")
	default:
		return StyleStatusDisabled.Render("○")
	}
}

// Selected returns the highlighted task, or nil when there are none.
func (m TaskPaneModel) Selected() *scheduler.Task {
	if m.selectedIdx >= 0 && m.selectedIdx < len(m.tasks) {
		return m.tasks[m.selectedIdx]
	}
	return nil
}

// Current returns the name of the task bound to the worker.
func (m TaskPaneModel) Current() string { return m.current }

// SetSize updates the pane dimensions.
func (m *TaskPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused updates the focus state.
func (m *TaskPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
