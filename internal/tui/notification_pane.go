package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aristath/taskloop/internal/events"
)

// maxLogLines bounds the notification history kept in memory.
const maxLogLines = 500

// NotificationPaneModel shows a scrolling log of notifications, capture
// errors and screenshot markers.
type NotificationPaneModel struct {
	lines     []string
	viewport  viewport.Model
	width     int
	height    int
	focused   bool
	updateTag int // for debouncing
}

// NewNotificationPaneModel creates an empty notification pane.
func NewNotificationPaneModel() NotificationPaneModel {
	return NotificationPaneModel{viewport: viewport.New(0, 0)}
}

// tickMsg is used for debouncing viewport updates.
type tickMsg struct {
	tag int
}

// Update handles messages for the notification pane.
func (m NotificationPaneModel) Update(msg tea.Msg) (NotificationPaneModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.focused {
			m.viewport, cmd = m.viewport.Update(msg)
		}

	case events.NotificationEvent:
		text := msg.Title
		if msg.Message != "" {
			text += ": " + msg.Message
		}
		if msg.IsError {
			text = StyleStatusFailed.Render("✗ ") + text
		}
		return m.appendLine(msg.Timestamp, text)

	case events.CaptureErrorEvent:
		return m.appendLine(msg.Timestamp, StyleStatusFailed.Render("capture error: ")+fmt.Sprint(msg.Err))

	case events.ScreenshotEvent:
		size := "no frame"
		if msg.Frame != nil {
			size = msg.Frame.Resolution()
		}
		return m.appendLine(msg.Timestamp, fmt.Sprintf("screenshot %s (%s)", msg.Label, size))

	case tickMsg:
		if msg.tag == m.updateTag {
			m.updateViewportContent()
		}
	}

	return m, cmd
}

func (m NotificationPaneModel) appendLine(ts time.Time, text string) (NotificationPaneModel, tea.Cmd) {
	if ts.IsZero() {
		ts = time.Now()
	}
	m.lines = append(m.lines, ts.Format("15:04:05")+" "+text)
	if len(m.lines) > maxLogLines {
		m.lines = m.lines[len(m.lines)-maxLogLines:]
	}

	m.updateTag++
	tag := m.updateTag
	return m, tea.Tick(50*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{tag: tag}
	})
}

// Lines returns the log lines currently held.
func (m NotificationPaneModel) Lines() []string {
	return m.lines
}

// View renders the notification pane.
func (m NotificationPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	content := StyleTitle.Render("Notifications") + "\n" + m.viewport.View()

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

func (m *NotificationPaneModel) updateViewportContent() {
	if len(m.lines) == 0 {
		m.viewport.SetContent("Nothing yet.")
		return
	}
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

// SetSize updates the pane dimensions.
func (m *NotificationPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = max(w-4, 10)
	m.viewport.Height = max(h-3, 3)
	m.updateViewportContent()
}

// SetFocused updates the focus state.
func (m *NotificationPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
