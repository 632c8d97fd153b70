package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Kabungwe/friday-jarvis/internal/store"
)

const transcriptListLimit = 10

type transcriptsModel struct {
	store  *store.Store
	width  int
	height int

	transcripts []store.Transcript
	cursor      int
	viewing     bool
	confirming  bool
}

func newTranscriptsModel(s *store.Store) transcriptsModel {
	return transcriptsModel{store: s}
}

func (m *transcriptsModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m transcriptsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		transcripts, _ := m.store.ListTranscripts(transcriptListLimit)
		return transcriptsDataMsg{transcripts: transcripts}
	}
}

func (m transcriptsModel) update(msg tea.Msg) (transcriptsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case transcriptsDataMsg:
		m.transcripts = msg.transcripts
		if m.cursor >= len(m.transcripts) {
			m.cursor = max(0, len(m.transcripts)-1)
		}
		return m, nil

	case transcriptsPurgedMsg:
		m.confirming = false
		m.viewing = false
		return m, m.refresh()

	case tea.KeyMsg:
		if m.confirming {
			switch msg.String() {
			case "y":
				st := m.store
				return m, func() tea.Msg {
					n, err := st.PurgeTranscripts()
					if err != nil {
						return statusMsg{text: fmt.Sprintf("Purge error: %v", err), isError: true}
					}
					return transcriptsPurgedMsg{count: n}
				}
			default:
				m.confirming = false
			}
			return m, nil
		}

		if m.viewing {
			if key.Matches(msg, keys.Back) {
				m.viewing = false
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.transcripts)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Enter):
			if len(m.transcripts) > 0 {
				m.viewing = true
			}
		case key.Matches(msg, keys.Purge):
			if len(m.transcripts) > 0 {
				m.confirming = true
			}
		}
	}
	return m, nil
}

func (m transcriptsModel) view() string {
	w := m.width - 4

	if m.confirming {
		content := lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Purge all transcripts?"),
			"",
			errorStyle.Render("  This permanently deletes every saved session."),
			"",
			mutedStyle.Render("  y: purge  any other key: cancel"),
		)
		return activePanelStyle.Width(w).Render(content)
	}

	if m.viewing && m.cursor < len(m.transcripts) {
		return m.renderDetail(w, m.transcripts[m.cursor])
	}

	return m.renderList(w)
}

func (m transcriptsModel) renderList(w int) string {
	var rows []string
	rows = append(rows, titleStyle.Render("Session Transcripts"))
	rows = append(rows, "")

	if len(m.transcripts) == 0 {
		rows = append(rows, mutedStyle.Render("  No saved sessions yet"))
		return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
	}

	for i, t := range m.transcripts {
		cursor := "  "
		style := normalItemStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		dur := formatDuration(t.EndedAt.Sub(t.StartedAt))
		label := t.Specialty
		if label == "" {
			label = "general"
		}
		mode := ""
		if t.MedicalMode {
			mode = accentStyle.Render(" [medical]")
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%s  %-20s %s  %d msgs%s",
			cursor, t.EndedAt.Local().Format("Jan 02 15:04"), label, dur, len(t.Messages), mode)))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: view  x: purge all"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (m transcriptsModel) renderDetail(w int, t store.Transcript) string {
	var rows []string
	header := fmt.Sprintf("%s → %s",
		t.StartedAt.Local().Format("Jan 02 15:04"),
		t.EndedAt.Local().Format("15:04"),
	)
	rows = append(rows, titleStyle.Render("Transcript "+header))
	if t.Specialty != "" {
		rows = append(rows, subtitleStyle.Render("Specialty: "+t.Specialty))
	}
	rows = append(rows, "")

	visible := m.height - 10
	if visible < 5 {
		visible = 5
	}
	msgs := t.Messages
	if len(msgs) > visible {
		msgs = msgs[len(msgs)-visible:]
	}
	for _, e := range msgs {
		var label string
		switch e.Sender {
		case "user":
			label = userMsgStyle.Render("You")
		case "assistant":
			label = assistantMsgStyle.Render("Dr. Kay")
		default:
			label = systemMsgStyle.Render("system")
		}
		rows = append(rows, fmt.Sprintf("%s %s  %s",
			mutedStyle.Render(e.Timestamp.Local().Format("15:04")), label, e.Message))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  esc: back"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
