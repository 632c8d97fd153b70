package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Kabungwe/friday-jarvis/internal/store"
)

type progressModel struct {
	store  *store.Store
	width  int
	height int

	progress store.Progress
	daily    []store.DailyStudy

	chart barchart.Model
}

func newProgressModel(s *store.Store) progressModel {
	return progressModel{
		store: s,
		chart: barchart.New(60, 10),
	}
}

func (m *progressModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m progressModel) refresh() tea.Cmd {
	return func() tea.Msg {
		progress, _ := m.store.LoadProgress()

		now := time.Now().UTC()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		daily, _ := m.store.GetDailyStudy(today.AddDate(0, 0, -6), today.AddDate(0, 0, 1))

		return progressDataMsg{progress: progress, daily: daily}
	}
}

func (m progressModel) update(msg tea.Msg) (progressModel, tea.Cmd) {
	if msg, ok := msg.(progressDataMsg); ok {
		m.progress = msg.progress
		m.daily = msg.daily
		m.buildChart()
	}
	return m, nil
}

func (m *progressModel) buildChart() {
	chartWidth := m.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	m.chart = barchart.New(chartWidth, 10)

	byDate := make(map[string]store.DailyStudy)
	for _, d := range m.daily {
		byDate[d.Date] = d
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var bars []barchart.BarData
	for d := today.AddDate(0, 0, -6); !d.After(today); d = d.AddDate(0, 0, 1) {
		hours := 0.0
		if s, ok := byDate[d.Format("2006-01-02")]; ok {
			hours = float64(s.TotalSeconds) / 3600.0
		}
		style := lipgloss.NewStyle().Foreground(colorPrimary)
		if hours == 0 {
			style = lipgloss.NewStyle().Foreground(colorSubtle)
		}
		bars = append(bars, barchart.BarData{
			Label:  d.Format("Mon 02"),
			Values: []barchart.BarValue{{Name: "study", Value: hours, Style: style}},
		})
	}

	m.chart.PushAll(bars)
	m.chart.Draw()
}

func (m progressModel) view() string {
	w := m.width - 4

	stats := m.renderStats(w)
	chartView := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Study time, last 7 days"),
		"",
		m.chart.View(),
	)
	achievements := m.renderAchievements(w)

	return lipgloss.JoinVertical(lipgloss.Left,
		panelStyle.Width(w).Render(stats),
		panelStyle.Width(w).Render(chartView),
		panelStyle.Width(w).Render(achievements),
	)
}

func (m progressModel) renderStats(w int) string {
	p := m.progress

	stat := func(label string, value string) string {
		return fmt.Sprintf("  %s %s",
			lipgloss.NewStyle().Width(18).Foreground(colorMuted).Render(label),
			highlightStyle.Render(value),
		)
	}

	rows := []string{
		titleStyle.Render("Your Progress"),
		"",
		stat("Sessions", fmt.Sprintf("%d", p.TotalSessions)),
		stat("Study time", formatHours(p.TotalStudySeconds)),
		stat("Quizzes", fmt.Sprintf("%d", p.QuizzesCompleted)),
		stat("Specialties", fmt.Sprintf("%d", len(p.Specialties))),
	}
	if len(p.Specialties) > 0 {
		rows = append(rows, "")
		rows = append(rows, mutedStyle.Render("  "+strings.Join(p.Specialties, " · ")))
	}
	return strings.Join(rows, "\n")
}

func (m progressModel) renderAchievements(w int) string {
	var rows []string
	rows = append(rows, titleStyle.Render("Achievements"))
	rows = append(rows, "")

	if len(m.progress.Achievements) == 0 {
		rows = append(rows, mutedStyle.Render("  Nothing unlocked yet. Keep studying!"))
		return strings.Join(rows, "\n")
	}
	for _, a := range m.progress.Achievements {
		when := mutedStyle.Render(a.UnlockedAt.Local().Format("Jan 02, 2006"))
		rows = append(rows, fmt.Sprintf("  %s %s  %s", successStyle.Render("★"), a.Title, when))
	}
	return strings.Join(rows, "\n")
}
