package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Kabungwe/friday-jarvis/internal/notify"
	"github.com/Kabungwe/friday-jarvis/internal/session"
	"github.com/Kabungwe/friday-jarvis/internal/store"
	"github.com/Kabungwe/friday-jarvis/internal/tools"
	"github.com/Kabungwe/friday-jarvis/internal/transport"
)

// EventBridge carries controller events from the transport goroutine onto
// the Bubble Tea update loop.
type EventBridge struct {
	ch chan tea.Msg
}

func NewEventBridge() *EventBridge {
	return &EventBridge{ch: make(chan tea.Msg, 64)}
}

// Sink adapts the bridge to the controller's callback surface.
func (b *EventBridge) Sink() session.Sink {
	return session.Sink{
		OnChat: func(entry store.TranscriptMessage) {
			b.send(chatEntryMsg{entry: entry})
		},
		OnState: func(state session.ConnState) {
			b.send(connStateMsg{state: state})
		},
		OnQuality: func(tier transport.Tier) {
			b.send(qualityMsg{tier: tier})
		},
		OnSpecialty: func(specialty string) {
			b.send(specialtySyncMsg{specialty: specialty})
		},
	}
}

func (b *EventBridge) send(msg tea.Msg) {
	select {
	case b.ch <- msg:
	default:
		// UI is backed up, drop rather than block the read loop.
	}
}

func (b *EventBridge) wait() tea.Cmd {
	return func() tea.Msg {
		return <-b.ch
	}
}

// App is the root Bubble Tea model.
type App struct {
	store      *store.Store
	controller *session.Controller
	notifier   *notify.Service
	bridge     *EventBridge
	width      int
	height     int

	activeView viewState
	showHelp   bool

	session     sessionModel
	tools       toolsModel
	progress    progressModel
	transcripts transcriptsModel
	settings    settingsModel

	help          help.Model
	status        string
	autosaveEvery time.Duration
}

func NewApp(st *store.Store, controller *session.Controller, notifier *notify.Service, client *tools.Client, bridge *EventBridge, exportDir string, autosaveEvery time.Duration) App {
	h := help.New()
	h.ShowAll = false

	if autosaveEvery <= 0 {
		autosaveEvery = 30 * time.Second
	}

	return App{
		store:         st,
		controller:    controller,
		notifier:      notifier,
		bridge:        bridge,
		activeView:    viewSession,
		session:       newSessionModel(controller),
		tools:         newToolsModel(client, controller, notifier, exportDir),
		progress:      newProgressModel(st),
		transcripts:   newTranscriptsModel(st),
		settings:      newSettingsModel(st, controller, exportDir),
		help:          h,
		autosaveEvery: autosaveEvery,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		a.autosaveCmd(),
		a.bridge.wait(),
		a.settings.refresh(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) autosaveCmd() tea.Cmd {
	return tea.Tick(a.autosaveEvery, func(t time.Time) tea.Msg {
		return autosaveMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.session.setSize(a.width, contentHeight)
		a.tools.setSize(a.width, contentHeight)
		a.progress.setSize(a.width, contentHeight)
		a.transcripts.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)

	case tickMsg:
		return a, tickCmd()

	case autosaveMsg:
		a.controller.Autosave()
		return a, a.autosaveCmd()

	// Bridged controller events. Route to the session view, then re-arm
	// the bridge reader.
	case chatEntryMsg, connStateMsg, qualityMsg:
		var cmd tea.Cmd
		a.session, cmd = a.session.update(msg)
		return a, tea.Batch(cmd, a.bridge.wait())

	case specialtySyncMsg:
		return a, tea.Batch(a.settings.refresh(), a.bridge.wait())

	case sessionStartedMsg:
		a.session, _ = a.session.update(msg)
		return a, nil

	case sessionEndedMsg:
		a.session, _ = a.session.update(msg)
		return a, a.progress.refresh()

	case statusMsg:
		a.status = msg.text
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global shortcuts on modifier keys never clash with text input.
	switch {
	case key.Matches(msg, keys.Quit):
		return a, a.teardown()
	case key.Matches(msg, keys.Session):
		a.activeView = viewSession
		return a, a.session.toggleSession()
	case key.Matches(msg, keys.Quiz):
		a.activeView = viewTools
		var cmd tea.Cmd
		a.tools, cmd = a.tools.openTool(toolQuiz)
		return a, cmd
	case key.Matches(msg, keys.Planner):
		a.activeView = viewTools
		var cmd tea.Cmd
		a.tools, cmd = a.tools.openTool(toolPlanner)
		return a, cmd
	case key.Matches(msg, keys.Calculators):
		a.activeView = viewTools
		a.tools.formActive = false
		a.tools.form = nil
		a.tools.active = toolNone
		a.tools.resultView = ""
		a.tools.cursor = int(toolGFR) - 1
		return a, nil
	}

	// A focused input or form gets every remaining key.
	if a.isInputActive() {
		return a.updateActiveView(msg)
	}

	switch {
	case key.Matches(msg, keys.Help):
		a.showHelp = !a.showHelp
		a.help.ShowAll = a.showHelp
		return a, nil
	case key.Matches(msg, keys.Tab1):
		a.activeView = viewSession
		return a, nil
	case key.Matches(msg, keys.Tab2):
		a.activeView = viewTools
		return a, nil
	case key.Matches(msg, keys.Tab3):
		a.activeView = viewProgress
		return a, a.progress.refresh()
	case key.Matches(msg, keys.Tab4):
		a.activeView = viewTranscripts
		return a, a.transcripts.refresh()
	case key.Matches(msg, keys.Tab5):
		a.activeView = viewSettings
		return a, a.settings.refresh()
	case key.Matches(msg, keys.Tab):
		a.activeView = (a.activeView + 1) % 5
		return a, a.refreshCurrentView()
	}

	return a.updateActiveView(msg)
}

// teardown closes any live session before quitting so the transcript is
// persisted and the transport is released.
func (a App) teardown() tea.Cmd {
	c := a.controller
	return func() tea.Msg {
		_ = c.EndSession(context.Background())
		return tea.Quit()
	}
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewSession:
		a.session, cmd = a.session.update(msg)
	case viewTools:
		a.tools, cmd = a.tools.update(msg)
	case viewProgress:
		a.progress, cmd = a.progress.update(msg)
	case viewTranscripts:
		a.transcripts, cmd = a.transcripts.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isInputActive() bool {
	switch a.activeView {
	case viewSession:
		return a.session.inputCaptures()
	case viewTools:
		return a.tools.inputCaptures()
	case viewSettings:
		return a.settings.inputCaptures()
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewProgress:
		return a.progress.refresh()
	case viewTranscripts:
		return a.transcripts.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewSession:
		content = a.session.view()
	case viewTools:
		content = a.tools.view()
	case viewProgress:
		content = a.progress.view()
	case viewTranscripts:
		content = a.transcripts.view()
	case viewSettings:
		content = a.settings.view()
	}

	if toasts := a.renderNotifications(); toasts != "" {
		content = lipgloss.JoinVertical(lipgloss.Left, toasts, content)
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("Dr. Kay")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		status = mutedStyle.Render(" " + a.status)
	}

	sessionInfo := ""
	if a.controller.Connected() {
		sessionInfo = successStyle.Render(" ● " + formatDuration(a.controller.Elapsed()))
	}

	left := footerStyle.Render(helpView)
	right := sessionInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderNotifications() string {
	active := a.notifier.Active(time.Now())
	if len(active) == 0 {
		return ""
	}

	var toasts []string
	for _, n := range active {
		var style lipgloss.Style
		switch n.Severity {
		case notify.Success:
			style = notifSuccessStyle
		case notify.Warning:
			style = notifWarningStyle
		case notify.Error:
			style = notifErrorStyle
		default:
			style = notifInfoStyle
		}
		toasts = append(toasts, style.Render(n.Message))
	}
	return lipgloss.JoinVertical(lipgloss.Right, toasts...)
}
