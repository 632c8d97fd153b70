package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/Kabungwe/friday-jarvis/internal/session"
	"github.com/Kabungwe/friday-jarvis/internal/store"
	"github.com/Kabungwe/friday-jarvis/internal/tools"
)

type settingsModel struct {
	store      *store.Store
	controller *session.Controller
	exportDir  string
	width      int
	height     int

	prefs      store.Preferences
	formActive bool
	form       *huh.Form
	confirming bool

	// Form values as pointers (survive value copies)
	theme         *string
	autoVideo     *bool
	desktopNotifs *bool
	specialty     *string
	studyMode     *string
	reminders     *string
}

func newSettingsModel(s *store.Store, controller *session.Controller, exportDir string) settingsModel {
	theme, specialty, studyMode, reminders := "", "", "", ""
	autoVideo, desktopNotifs := false, false
	return settingsModel{
		store:         s,
		controller:    controller,
		exportDir:     exportDir,
		theme:         &theme,
		autoVideo:     &autoVideo,
		desktopNotifs: &desktopNotifs,
		specialty:     &specialty,
		studyMode:     &studyMode,
		reminders:     &reminders,
	}
}

func (m *settingsModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m settingsModel) inputCaptures() bool {
	return m.formActive
}

func (m settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		prefs, err := m.store.LoadPreferences()
		return prefsSavedMsg{prefs: prefs, err: err}
	}
}

func (m settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case prefsSavedMsg:
		if msg.err == nil {
			m.prefs = msg.prefs
		}
		return m, nil

	case userDataResetMsg:
		m.confirming = false
		return m, m.refresh()

	case tea.KeyMsg:
		if m.confirming {
			switch msg.String() {
			case "y":
				st := m.store
				return m, func() tea.Msg {
					if err := st.ResetUserData(); err != nil {
						return statusMsg{text: fmt.Sprintf("Reset error: %v", err), isError: true}
					}
					return userDataResetMsg{}
				}
			default:
				m.confirming = false
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, keys.Enter):
			return m.showForm()
		case key.Matches(msg, keys.Export):
			st, dir := m.store, m.exportDir
			return m, func() tea.Msg {
				path, err := tools.ExportUserData(st, dir)
				if err != nil {
					return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
				}
				return exportDoneMsg{path: path}
			}
		case key.Matches(msg, keys.Purge):
			m.confirming = true
			return m, nil
		}
	}
	return m, nil
}

func (m settingsModel) showForm() (settingsModel, tea.Cmd) {
	*m.theme = m.prefs.Theme
	*m.autoVideo = m.prefs.AutoStartVideo
	*m.desktopNotifs = m.prefs.DesktopNotifications
	*m.specialty = m.prefs.LastSpecialty
	*m.studyMode = m.prefs.StudyMode
	*m.reminders = m.prefs.ReminderFrequency

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Theme").
				Options(
					huh.NewOption("Dark", "dark"),
					huh.NewOption("Light", "light"),
				).Value(m.theme),
			huh.NewConfirm().Title("Start video automatically").Value(m.autoVideo),
			huh.NewConfirm().Title("Desktop notifications").Value(m.desktopNotifs),
		).Title("General"),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Default specialty").
				Options(append([]huh.Option[string]{huh.NewOption("None", "")}, specialtySelectOptions()...)...).
				Value(m.specialty),
			huh.NewSelect[string]().Title("Study mode").
				Options(
					huh.NewOption("Normal", "normal"),
					huh.NewOption("Exam prep", "exam_prep"),
					huh.NewOption("Clinical rotation", "clinical"),
				).Value(m.studyMode),
			huh.NewSelect[string]().Title("Study reminders").
				Options(
					huh.NewOption("Daily", "daily"),
					huh.NewOption("Weekly", "weekly"),
					huh.NewOption("Off", "off"),
				).Value(m.reminders),
		).Title("Study"),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "esc" {
		m.formActive = false
		m.form = nil
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.formActive = false
		m.form = nil
		return m, m.save()
	}
	return m, cmd
}

func (m settingsModel) save() tea.Cmd {
	prefs := store.Preferences{
		Theme:                *m.theme,
		AutoStartVideo:       *m.autoVideo,
		DesktopNotifications: *m.desktopNotifs,
		LastSpecialty:        *m.specialty,
		StudyMode:            *m.studyMode,
		ReminderFrequency:    *m.reminders,
	}
	st := m.store
	controller := m.controller
	prevSpecialty := m.prefs.LastSpecialty
	return func() tea.Msg {
		if err := st.SavePreferences(prefs); err != nil {
			return statusMsg{text: fmt.Sprintf("Save error: %v", err), isError: true}
		}
		// A changed specialty goes through the controller so the live
		// session focus follows the preference.
		if prefs.LastSpecialty != prevSpecialty && prefs.LastSpecialty != "" {
			controller.SetSpecialty(prefs.LastSpecialty)
		}
		return prefsSavedMsg{prefs: prefs}
	}
}

func (m settingsModel) view() string {
	w := m.width - 4

	if m.confirming {
		content := lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Reset all user data?"),
			"",
			errorStyle.Render("  Preferences, progress, achievements, and transcripts will be wiped."),
			"",
			mutedStyle.Render("  y: reset  any other key: cancel"),
		)
		return activePanelStyle.Width(w).Render(content)
	}

	if m.formActive && m.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Settings"), "", m.form.View()),
		)
	}

	row := func(label, value string) string {
		return fmt.Sprintf("  %s %s",
			lipgloss.NewStyle().Width(24).Foreground(colorMuted).Render(label),
			highlightStyle.Render(value),
		)
	}
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}

	specialty := m.prefs.LastSpecialty
	if specialty == "" {
		specialty = "none"
	}

	rows := []string{
		titleStyle.Render("Settings"),
		"",
		row("Theme", m.prefs.Theme),
		row("Auto-start video", onOff(m.prefs.AutoStartVideo)),
		row("Desktop notifications", onOff(m.prefs.DesktopNotifications)),
		row("Default specialty", specialty),
		row("Study mode", m.prefs.StudyMode),
		row("Study reminders", m.prefs.ReminderFrequency),
		"",
		mutedStyle.Render("  enter: edit  e: export user data  x: reset all data"),
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
