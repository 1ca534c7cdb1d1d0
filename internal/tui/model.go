// Package tui implements the operator dashboard: the registered tasks, a log
// of notifications and a status bar, all driven by the event bus.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/taskloop/internal/config"
	"github.com/aristath/taskloop/internal/events"
	"github.com/aristath/taskloop/internal/scheduler"
	"github.com/aristath/taskloop/internal/tasks"
)

// Controller is the part of the executor the dashboard drives.
type Controller interface {
	Tasks() []*scheduler.Task
	Paused() bool
	Pause(task *scheduler.Task) error
	Start()
	Connected() bool
}

// PaneID identifies which pane is focused.
type PaneID int

const (
	PaneTasks PaneID = iota
	PaneNotifications
	paneCount
)

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	taskPane          TaskPaneModel
	notificationPane  NotificationPaneModel
	settingsPane      SettingsPaneModel
	focusedPane       PaneID
	eventSub          <-chan events.Event
	ctrl              Controller
	paused            bool
	resolution        string
	lastErr           string
	width             int
	height            int
	quitting          bool
	showSettings      bool
	config            *config.Config
	globalConfigPath  string
	projectConfigPath string
}

// New creates a new TUI model.
// It subscribes to all events from the event bus using SubscribeAll.
func New(eventBus *events.EventBus, ctrl Controller, cfg *config.Config, globalPath, projectPath string) Model {
	m := Model{
		taskPane:          NewTaskPaneModel(ctrl.Tasks()),
		notificationPane:  NewNotificationPaneModel(),
		settingsPane:      NewSettingsPaneModel(cfg, globalPath, projectPath),
		focusedPane:       PaneTasks,
		eventSub:          eventBus.SubscribeAll(256),
		ctrl:              ctrl,
		paused:            ctrl.Paused(),
		config:            cfg,
		globalConfigPath:  globalPath,
		projectConfigPath: projectPath,
	}
	m.updateFocusStates()
	return m
}

// Init initializes the model and returns the initial command.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.eventSub)
}

// waitForEvent returns a command that waits for the next event from the event bus.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return nil // bus closed
		}
		return event
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Settings is modal while open.
		if m.showSettings {
			if msg.String() == KeyEsc {
				m.showSettings = false
				m.settingsPane.SetVisible(false)
				return m, nil
			}
			var cmd tea.Cmd
			m.settingsPane, cmd = m.settingsPane.Update(msg)
			if !m.settingsPane.IsVisible() {
				m.showSettings = false
			}
			return m, cmd
		}

		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			m.quitting = true
			return m, tea.Quit

		case KeySettings:
			m.showSettings = true
			m.settingsPane.SetVisible(true)
			cmds = append(cmds, m.settingsPane.Init())

		case KeyPause:
			m.togglePause()

		case KeyTab, KeyShiftTab:
			m.focusedPane = (m.focusedPane + 1) % paneCount
			m.updateFocusStates()

		case KeyPane1:
			m.focusedPane = PaneTasks
			m.updateFocusStates()

		case KeyPane2:
			m.focusedPane = PaneNotifications
			m.updateFocusStates()

		default:
			var cmd tea.Cmd
			switch m.focusedPane {
			case PaneTasks:
				m.taskPane, cmd = m.taskPane.Update(msg)
			case PaneNotifications:
				m.notificationPane, cmd = m.notificationPane.Update(msg)
			}
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()
		m.settingsPane.SetSize(msg.Width, msg.Height)

	case tickMsg:
		var cmd tea.Cmd
		m.notificationPane, cmd = m.notificationPane.Update(msg)
		cmds = append(cmds, cmd)

	case events.PausedEvent:
		m.paused = msg.Paused
		cmds = append(cmds, waitForEvent(m.eventSub))

	case events.CurrentTaskEvent, events.TaskStateEvent:
		var cmd tea.Cmd
		m.taskPane, cmd = m.taskPane.Update(msg)
		cmds = append(cmds, cmd, waitForEvent(m.eventSub))

	case events.NotificationEvent:
		if msg.Title == tasks.ResolutionCheckName && !msg.IsError {
			m.resolution = msg.Message
		}
		var cmd tea.Cmd
		m.taskPane, _ = m.taskPane.Update(msg)
		m.notificationPane, cmd = m.notificationPane.Update(msg)
		cmds = append(cmds, cmd, waitForEvent(m.eventSub))

	case events.CaptureErrorEvent:
		m.lastErr = fmt.Sprint(msg.Err)
		var cmd tea.Cmd
		m.notificationPane, cmd = m.notificationPane.Update(msg)
		cmds = append(cmds, cmd, waitForEvent(m.eventSub))

	case events.ScreenshotEvent:
		var cmd tea.Cmd
		m.notificationPane, cmd = m.notificationPane.Update(msg)
		cmds = append(cmds, cmd, waitForEvent(m.eventSub))
	}

	return m, tea.Batch(cmds...)
}

// togglePause flips the executor's global pause flag. The status bar follows
// the PausedEvent the executor publishes.
func (m *Model) togglePause() {
	if m.ctrl.Paused() {
		m.ctrl.Start()
		return
	}
	if err := m.ctrl.Pause(nil); err != nil {
		m.lastErr = err.Error()
	}
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if m.showSettings {
		return m.settingsPane.View()
	}

	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, m.taskPane.View(), m.notificationPane.View())
	return lipgloss.JoinVertical(lipgloss.Left, mainContent, m.StatusLine(), HelpView())
}

// StatusLine renders the one-line executor summary.
func (m Model) StatusLine() string {
	state := StyleStatusEnabled.Render("running")
	if m.paused {
		state = StyleStatusRunning.Render("paused")
	}

	current := m.taskPane.Current()
	if current == "" {
		current = "-"
	}
	resolution := m.resolution
	if resolution == "" {
		resolution = "unchecked"
	}

	line := fmt.Sprintf("%s | task: %s | resolution: %s", state, current, resolution)
	if !m.ctrl.Connected() {
		line += " | " + StyleStatusFailed.Render("disconnected")
	}
	if m.lastErr != "" {
		line += " | last error: " + m.lastErr
	}
	return StyleStatusBar.Width(max(m.width, 1)).Render(line)
}

// computeLayout calculates pane dimensions and updates all child models.
func (m *Model) computeLayout() {
	leftWidth := (m.width * 40) / 100
	rightWidth := m.width - leftWidth
	availableHeight := m.height - 2 // status bar and help bar

	m.taskPane.SetSize(leftWidth, availableHeight)
	m.notificationPane.SetSize(rightWidth, availableHeight)
	m.updateFocusStates()
}

// updateFocusStates updates the focus state of all panes.
func (m *Model) updateFocusStates() {
	m.taskPane.SetFocused(m.focusedPane == PaneTasks)
	m.notificationPane.SetFocused(m.focusedPane == PaneNotifications)
}
