package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Kabungwe/friday-jarvis/internal/session"
	"github.com/Kabungwe/friday-jarvis/internal/store"
	"github.com/Kabungwe/friday-jarvis/internal/transport"
)

type sessionModel struct {
	controller *session.Controller
	width      int
	height     int

	input   textinput.Model
	chat    []store.TranscriptMessage
	state   session.ConnState
	tier    transport.Tier
	busy    bool
}

func newSessionModel(c *session.Controller) sessionModel {
	ti := textinput.New()
	ti.Placeholder = "Ask Dr. Kay anything..."
	ti.CharLimit = 500
	ti.Focus()

	return sessionModel{
		controller: c,
		input:      ti,
		state:      session.StateIdle,
		tier:       transport.TierGood,
	}
}

func (m *sessionModel) setSize(w, h int) {
	m.width = w
	m.height = h
	m.input.Width = w - 12
}

// inputCaptures reports whether printable keys should go to the chat input
// instead of view shortcuts.
func (m sessionModel) inputCaptures() bool {
	return m.input.Focused()
}

func (m sessionModel) toggleSession() tea.Cmd {
	if m.busy {
		return nil
	}
	c := m.controller
	if c.Connected() {
		return func() tea.Msg {
			return sessionEndedMsg{err: c.EndSession(context.Background())}
		}
	}
	return func() tea.Msg {
		return sessionStartedMsg{err: c.StartSession(context.Background())}
	}
}

func (m sessionModel) update(msg tea.Msg) (sessionModel, tea.Cmd) {
	switch msg := msg.(type) {
	case chatEntryMsg:
		m.chat = append(m.chat, msg.entry)
		return m, nil

	case connStateMsg:
		m.state = msg.state
		m.busy = msg.state == session.StateConnecting
		return m, nil

	case qualityMsg:
		m.tier = msg.tier
		return m, nil

	case sessionStartedMsg, sessionEndedMsg:
		m.busy = false
		return m, nil

	case tea.KeyMsg:
		if m.input.Focused() {
			switch {
			case key.Matches(msg, keys.Enter):
				text := m.input.Value()
				m.input.SetValue("")
				m.controller.SendChatMessage(text)
				return m, nil
			case key.Matches(msg, keys.Back):
				m.input.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

		switch {
		case key.Matches(msg, keys.Enter):
			return m, m.input.Focus()
		case key.Matches(msg, keys.Video):
			m.controller.ToggleVideo()
			return m, nil
		case key.Matches(msg, keys.Mic):
			m.controller.ToggleAudio()
			return m, nil
		case key.Matches(msg, keys.Medical):
			m.controller.ToggleMedicalMode()
			return m, nil
		}
	}
	return m, nil
}

func (m sessionModel) view() string {
	if m.width < 20 {
		return "Terminal too small"
	}

	contentWidth := m.width - 4

	statusPanel := m.renderStatusPanel(contentWidth)
	chatPanel := m.renderChatPanel(contentWidth)
	inputPanel := m.renderInputPanel(contentWidth)

	return lipgloss.JoinVertical(lipgloss.Left, statusPanel, chatPanel, inputPanel)
}

func (m sessionModel) renderStatusPanel(w int) string {
	var state string
	switch m.state {
	case session.StateConnected:
		state = successStyle.Render("● CONNECTED")
	case session.StateConnecting:
		state = warningStyle.Render("◌ CONNECTING")
	case session.StateDisconnected:
		state = errorStyle.Render("✕ DISCONNECTED")
	default:
		state = mutedStyle.Render("■ IDLE")
	}

	parts := []string{state}

	if m.state == session.StateConnected {
		parts = append(parts, highlightStyle.Render(formatDuration(m.controller.Elapsed())))
		parts = append(parts, m.renderQuality())

		media := ""
		if m.controller.AudioEnabled() {
			media += successStyle.Render("mic ")
		} else {
			media += mutedStyle.Render("mic ")
		}
		if m.controller.VideoEnabled() {
			media += successStyle.Render("cam")
		} else {
			media += mutedStyle.Render("cam")
		}
		parts = append(parts, media)
	}

	if m.controller.MedicalMode() {
		parts = append(parts, accentStyle.Render("MEDICAL MODE"))
	}
	if sp := m.controller.Specialty(); sp != "" {
		parts = append(parts, subtitleStyle.Render(sp))
	}

	style := panelStyle
	if m.state == session.StateConnected {
		style = activePanelStyle
	}
	return style.Width(w).Render(strings.Join(parts, "   "))
}

func (m sessionModel) renderQuality() string {
	switch m.tier {
	case transport.TierGood:
		return successStyle.Render("▮▮▮ good")
	case transport.TierDegraded:
		return warningStyle.Render("▮▮▯ degraded")
	default:
		return errorStyle.Render("▮▯▯ poor")
	}
}

func (m sessionModel) renderChatPanel(w int) string {
	title := titleStyle.Render("Conversation")

	if len(m.chat) == 0 {
		hint := mutedStyle.Render("Press ctrl+k to start a session with Dr. Kay")
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", hint))
	}

	// Show the newest entries that fit.
	visible := m.height - 14
	if visible < 3 {
		visible = 3
	}
	start := max(0, len(m.chat)-visible)

	var rows []string
	rows = append(rows, title)
	for _, e := range m.chat[start:] {
		ts := mutedStyle.Render(e.Timestamp.Local().Format("15:04"))
		var label string
		switch e.Sender {
		case "user":
			label = userMsgStyle.Render("You")
		case "assistant":
			label = assistantMsgStyle.Render("Dr. Kay")
		default:
			label = systemMsgStyle.Render("system")
		}
		rows = append(rows, fmt.Sprintf("%s %s  %s", ts, label, e.Message))
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (m sessionModel) renderInputPanel(w int) string {
	style := panelStyle
	if m.input.Focused() {
		style = activePanelStyle
	}
	hint := ""
	if !m.input.Focused() {
		hint = mutedStyle.Render("  enter: type  v: video  m: mic  d: medical mode")
	}
	return style.Width(w).Render(m.input.View() + hint)
}
