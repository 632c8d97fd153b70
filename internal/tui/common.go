package tui

import (
	"fmt"
	"time"

	"github.com/Kabungwe/friday-jarvis/internal/session"
	"github.com/Kabungwe/friday-jarvis/internal/store"
	"github.com/Kabungwe/friday-jarvis/internal/tools"
	"github.com/Kabungwe/friday-jarvis/internal/transport"
)

// viewState represents the currently active view.
type viewState int

const (
	viewSession viewState = iota
	viewTools
	viewProgress
	viewTranscripts
	viewSettings
)

var viewNames = []string{"Session", "Tools", "Progress", "Transcripts", "Settings"}

// --- Messages ---

// Controller events crossing from the transport goroutine onto the UI loop.
type chatEntryMsg struct {
	entry store.TranscriptMessage
}

type connStateMsg struct {
	state session.ConnState
}

type qualityMsg struct {
	tier transport.Tier
}

type specialtySyncMsg struct {
	specialty string
}

type sessionStartedMsg struct {
	err error
}

type sessionEndedMsg struct {
	err error
}

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type autosaveMsg time.Time

type exportDoneMsg struct {
	path string
}

// Tool fetch completions.
type quizResultMsg struct {
	quiz tools.Quiz
	err  error
}

type studyPlanResultMsg struct {
	plan tools.StudyPlan
	err  error
}

type calcResultMsg struct {
	kind   string // "gfr" or "bmi"
	result tools.CalcResult
	err    error
}

type symptomResultMsg struct {
	analysis tools.SymptomAnalysis
	err      error
}

type documentResultMsg struct {
	analysis tools.DocumentAnalysis
	err      error
}

type researchResultMsg struct {
	response tools.ResearchResponse
	err      error
}

type progressDataMsg struct {
	progress store.Progress
	daily    []store.DailyStudy
}

type transcriptsDataMsg struct {
	transcripts []store.Transcript
}

type transcriptsPurgedMsg struct {
	count int64
	err   error
}

type prefsSavedMsg struct {
	prefs store.Preferences
	err   error
}

type userDataResetMsg struct {
	err error
}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatSeconds(secs int64) string {
	return formatDuration(time.Duration(secs) * time.Second)
}

func formatHours(secs int64) string {
	h := float64(secs) / 3600
	return fmt.Sprintf("%.1fh", h)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
