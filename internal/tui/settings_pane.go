package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/taskloop/internal/config"
)

// SettingsPaneModel manages the settings form overlay. Edited timings are
// written to disk and take effect the next time the executor starts.
type SettingsPaneModel struct {
	form        *huh.Form
	config      *config.Config
	globalPath  string
	projectPath string
	width       int
	height      int
	visible     bool
	saved       bool
	err         error
	fields      *settingsFields
}

// settingsFields holds the Huh bindings. It lives behind a pointer so the
// form keeps writing to the same strings when the model is copied.
type settingsFields struct {
	saveTarget      string
	pollInterval    string
	waitTimeout     string
	waitBeforeDelay string
	waitCheckDelay  string
	pausedInterval  string
}

// NewSettingsPaneModel creates a new settings pane.
func NewSettingsPaneModel(cfg *config.Config, globalPath, projectPath string) SettingsPaneModel {
	m := SettingsPaneModel{
		config:      cfg,
		globalPath:  globalPath,
		projectPath: projectPath,
		fields:      &settingsFields{saveTarget: "global"},
	}
	m.loadFromConfig()
	m.buildForm()
	return m
}

func (m *SettingsPaneModel) loadFromConfig() {
	ex := m.config.Executor
	m.fields.pollInterval = ex.PollInterval.String()
	m.fields.waitTimeout = ex.WaitTimeout.String()
	m.fields.waitBeforeDelay = ex.WaitBeforeDelay.String()
	m.fields.waitCheckDelay = ex.WaitCheckDelay.String()
	m.fields.pausedInterval = ex.PausedInterval.String()
}

// buildForm constructs the Huh form with all settings fields.
func (m *SettingsPaneModel) buildForm() {
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("saveTarget").
				Title("Save To").
				Options(
					huh.NewOption("Global ("+m.globalPath+")", "global"),
					huh.NewOption("Project ("+m.projectPath+")", "project"),
				).
				Value(&m.fields.saveTarget),
		).Title("Save Target"),

		huh.NewGroup(
			huh.NewInput().
				Key("pollInterval").
				Title("Poll Interval").
				Description("At most 100ms").
				Value(&m.fields.pollInterval).
				Validate(validateDuration),

			huh.NewInput().
				Key("pausedInterval").
				Title("Paused Check Interval").
				Value(&m.fields.pausedInterval).
				Validate(validateDuration),
		).Title("Executor Timing"),

		huh.NewGroup(
			huh.NewInput().
				Key("waitTimeout").
				Title("Wait Timeout").
				Value(&m.fields.waitTimeout).
				Validate(validateDuration),

			huh.NewInput().
				Key("waitBeforeDelay").
				Title("Delay Before Each Check").
				Value(&m.fields.waitBeforeDelay).
				Validate(validateDuration),

			huh.NewInput().
				Key("waitCheckDelay").
				Title("Delay After Each Miss").
				Value(&m.fields.waitCheckDelay).
				Validate(validateDuration),
		).Title("Wait Condition Defaults"),
	)
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("not a duration: %q", s)
	}
	if d < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

// Init initializes the settings pane.
func (m SettingsPaneModel) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the settings pane.
func (m SettingsPaneModel) Update(msg tea.Msg) (SettingsPaneModel, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == KeyEsc {
		m.visible = false
		m.saved = false
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.save()
		if m.saved {
			m.visible = false
		}
	}

	return m, cmd
}

// save applies the form to a copy of the config and writes it to the chosen
// target. The live config is only replaced when the result validates.
func (m *SettingsPaneModel) save() {
	updated := *m.config
	if err := m.applyForm(&updated.Executor); err != nil {
		m.err = err
		m.saved = false
		return
	}
	if err := updated.Validate(); err != nil {
		m.err = err
		m.saved = false
		return
	}

	targetPath := m.globalPath
	if m.fields.saveTarget == "project" {
		targetPath = m.projectPath
	}
	if err := config.Save(&updated, targetPath); err != nil {
		m.err = err
		m.saved = false
		return
	}

	*m.config = updated
	m.saved = true
	m.err = nil
}

// applyForm parses the form's duration fields into ex.
func (m *SettingsPaneModel) applyForm(ex *config.ExecutorConfig) error {
	fields := []struct {
		name string
		raw  string
		dst  *config.Duration
	}{
		{"poll interval", m.fields.pollInterval, &ex.PollInterval},
		{"paused interval", m.fields.pausedInterval, &ex.PausedInterval},
		{"wait timeout", m.fields.waitTimeout, &ex.WaitTimeout},
		{"wait before delay", m.fields.waitBeforeDelay, &ex.WaitBeforeDelay},
		{"wait check delay", m.fields.waitCheckDelay, &ex.WaitCheckDelay},
	}
	for _, f := range fields {
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = config.Duration(d)
	}
	return nil
}

// View renders the settings pane.
func (m SettingsPaneModel) View() string {
	if !m.visible {
		return ""
	}

	var content string
	if m.err != nil {
		content = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true).
			Render(fmt.Sprintf("✗ Error saving: %v", m.err))
	} else {
		content = m.form.View()
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(m.width - 4).
		Height(m.height - 4)

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("62")).
		Render("⚙ Settings")

	return lipgloss.JoinVertical(lipgloss.Left, title, style.Render(content))
}

// SetSize updates the dimensions of the settings pane.
func (m *SettingsPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if m.form != nil {
		m.form.WithWidth(w - 8).WithHeight(h - 8)
	}
}

// SetVisible shows or hides the settings pane. Showing it rebuilds the form
// from the current config.
func (m *SettingsPaneModel) SetVisible(v bool) {
	m.visible = v
	m.saved = false
	m.err = nil

	if v {
		m.loadFromConfig()
		m.buildForm()
		if m.width > 0 {
			m.form.WithWidth(m.width - 8).WithHeight(m.height - 8)
		}
	}
}

// IsVisible returns whether the settings pane is currently visible.
func (m SettingsPaneModel) IsVisible() bool {
	return m.visible
}

// Saved reports whether the last submission was written successfully.
func (m SettingsPaneModel) Saved() bool {
	return m.saved
}
