package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/Kabungwe/friday-jarvis/internal/notify"
	"github.com/Kabungwe/friday-jarvis/internal/session"
	"github.com/Kabungwe/friday-jarvis/internal/tools"
)

type toolKind int

const (
	toolNone toolKind = iota
	toolQuiz
	toolPlanner
	toolGFR
	toolBMI
	toolSymptoms
	toolDocument
	toolResearch
)

var toolNames = []string{
	"",
	"Quiz Generator",
	"Study Planner",
	"GFR Calculator",
	"BMI Calculator",
	"Symptom Checker",
	"Document Analyzer",
	"Research Search",
}

var toolSlugs = []string{
	"",
	"quiz",
	"study_plan",
	"gfr",
	"bmi",
	"symptom_analysis",
	"document_analysis",
	"research",
}

var specialtyOptions = []string{
	"Cardiology", "Neurology", "Pulmonology", "Gastroenterology",
	"Nephrology", "Endocrinology", "Infectious Disease", "Hematology",
	"Pediatrics", "Emergency Medicine", "Pharmacology", "Anatomy",
}

type toolsModel struct {
	client     *tools.Client
	controller *session.Controller
	notifier   *notify.Service
	exportDir  string
	width      int
	height     int

	active     toolKind
	cursor     int
	formActive bool
	form       *huh.Form
	loading    bool
	spin       spinner.Model

	lastTool   toolKind
	lastResult any
	resultView string

	// Form values as pointers (survive value copies)
	quizTopic      *string
	quizDifficulty *string
	quizType       *string
	quizCount      *string

	planSpecialty  *string
	planDays       *string
	planHours      *string
	planFocus      *string
	planStyle      *string

	gfrCreatinine *string
	gfrAge        *string
	gfrGender     *string
	gfrRace       *string

	bmiWeight *string
	bmiHeight *string

	symptomList   *string
	symptomAge    *string
	symptomGender *string

	docPath *string
	docType *string

	researchQuery *string
	researchLimit *string
}

func newToolsModel(client *tools.Client, controller *session.Controller, notifier *notify.Service, exportDir string) toolsModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorPrimary)

	m := toolsModel{
		client:     client,
		controller: controller,
		notifier:   notifier,
		exportDir:  exportDir,
		spin:       sp,
	}
	for _, p := range []**string{
		&m.quizTopic, &m.quizDifficulty, &m.quizType, &m.quizCount,
		&m.planSpecialty, &m.planDays, &m.planHours, &m.planFocus, &m.planStyle,
		&m.gfrCreatinine, &m.gfrAge, &m.gfrGender, &m.gfrRace,
		&m.bmiWeight, &m.bmiHeight,
		&m.symptomList, &m.symptomAge, &m.symptomGender,
		&m.docPath, &m.docType,
		&m.researchQuery, &m.researchLimit,
	} {
		v := ""
		*p = &v
	}
	return m
}

func (m *toolsModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m toolsModel) inputCaptures() bool {
	return m.formActive
}

// openTool jumps straight to one tool's form, bypassing the picker. Used
// by the global shortcuts.
func (m toolsModel) openTool(kind toolKind) (toolsModel, tea.Cmd) {
	m.resultView = ""
	return m.showForm(kind)
}

func (m toolsModel) update(msg tea.Msg) (toolsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case quizResultMsg:
		if msg.err == nil {
			m.controller.RecordQuizCompleted()
		}
		return m.finish(msg.err, msg.quiz, renderQuiz(msg.quiz))
	case studyPlanResultMsg:
		return m.finish(msg.err, msg.plan, renderStudyPlan(msg.plan))
	case calcResultMsg:
		return m.finish(msg.err, msg.result, renderCalc(msg.kind, msg.result))
	case symptomResultMsg:
		return m.finish(msg.err, msg.analysis, renderSymptoms(msg.analysis))
	case documentResultMsg:
		return m.finish(msg.err, msg.analysis, renderDocument(msg.analysis))
	case researchResultMsg:
		return m.finish(msg.err, msg.response, renderResearch(msg.response))

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}
		if m.formActive && m.form != nil {
			return m.updateForm(msg)
		}

		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case key.Matches(msg, keys.Down):
			if m.cursor < len(toolNames)-2 {
				m.cursor++
			}
			return m, nil
		case key.Matches(msg, keys.Enter):
			m.resultView = ""
			return m.showForm(toolKind(m.cursor + 1))
		case key.Matches(msg, keys.Back):
			m.resultView = ""
			return m, nil
		case key.Matches(msg, keys.Export):
			return m, m.exportLast()
		}
	}
	return m, nil
}

func (m toolsModel) finish(err error, result any, view string) (toolsModel, tea.Cmd) {
	m.loading = false
	if err != nil {
		m.notifier.Notify(fmt.Sprintf("%s failed: %v", toolNames[m.active], err), notify.Error)
		return m.showForm(m.active)
	}
	m.lastTool = m.active
	m.lastResult = result
	m.resultView = view
	m.active = toolNone
	return m, nil
}

func (m toolsModel) updateForm(msg tea.Msg) (toolsModel, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "esc" {
		m.formActive = false
		m.form = nil
		m.active = toolNone
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.formActive = false
		m.form = nil
		return m.submit()
	}
	return m, cmd
}

func (m toolsModel) showForm(kind toolKind) (toolsModel, tea.Cmd) {
	m.active = kind

	switch kind {
	case toolQuiz:
		if *m.quizDifficulty == "" {
			*m.quizDifficulty = "medium"
		}
		if *m.quizType == "" {
			*m.quizType = "multiple_choice"
		}
		if *m.quizCount == "" {
			*m.quizCount = "5"
		}
		m.form = huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Topic").Placeholder("e.g. cardiac arrhythmias").Value(m.quizTopic),
			huh.NewSelect[string]().Title("Difficulty").
				Options(
					huh.NewOption("Easy", "easy"),
					huh.NewOption("Medium", "medium"),
					huh.NewOption("Hard", "hard"),
				).Value(m.quizDifficulty),
			huh.NewSelect[string]().Title("Question type").
				Options(
					huh.NewOption("Multiple choice", "multiple_choice"),
					huh.NewOption("True/false", "true_false"),
					huh.NewOption("Short answer", "short_answer"),
				).Value(m.quizType),
			huh.NewInput().Title("Number of questions").Value(m.quizCount),
		).Title("Quiz Generator"))

	case toolPlanner:
		if *m.planStyle == "" {
			*m.planStyle = "balanced"
		}
		// The controller's specialty focus is the starting point.
		if sp := m.controller.Specialty(); sp != "" {
			*m.planSpecialty = sp
		}
		m.form = huh.NewForm(huh.NewGroup(
			huh.NewSelect[string]().Title("Specialty").
				Options(specialtySelectOptions()...).Value(m.planSpecialty),
			huh.NewInput().Title("Duration (days)").Value(m.planDays),
			huh.NewInput().Title("Study hours per day").Value(m.planHours),
			huh.NewInput().Title("Focus areas (comma separated)").Value(m.planFocus),
			huh.NewSelect[string]().Title("Study style").
				Options(
					huh.NewOption("Balanced", "balanced"),
					huh.NewOption("Intensive", "intensive"),
					huh.NewOption("Review-focused", "review"),
				).Value(m.planStyle),
		).Title("Study Planner"))

	case toolGFR:
		m.form = huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Serum creatinine (mg/dL)").Value(m.gfrCreatinine),
			huh.NewInput().Title("Age (years)").Value(m.gfrAge),
			huh.NewSelect[string]().Title("Gender").
				Options(
					huh.NewOption("Female", "female"),
					huh.NewOption("Male", "male"),
				).Value(m.gfrGender),
			huh.NewSelect[string]().Title("Race").
				Options(
					huh.NewOption("Black", "black"),
					huh.NewOption("Other", "other"),
				).Value(m.gfrRace),
		).Title("GFR Calculator"))

	case toolBMI:
		m.form = huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Weight (kg)").Value(m.bmiWeight),
			huh.NewInput().Title("Height (cm)").Value(m.bmiHeight),
		).Title("BMI Calculator"))

	case toolSymptoms:
		m.form = huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Symptoms (comma separated)").Placeholder("chest pain, dyspnea").Value(m.symptomList),
			huh.NewInput().Title("Patient age (optional)").Value(m.symptomAge),
			huh.NewInput().Title("Patient gender (optional)").Value(m.symptomGender),
		).Title("Symptom Checker"))

	case toolDocument:
		if *m.docType == "" {
			*m.docType = "summary"
		}
		m.form = huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("File path").Placeholder("/path/to/lecture.pdf").Value(m.docPath),
			huh.NewSelect[string]().Title("Analysis type").
				Options(
					huh.NewOption("Summary", "summary"),
					huh.NewOption("Flashcards", "flashcards"),
					huh.NewOption("Key points", "key_points"),
				).Value(m.docType),
		).Title("Document Analyzer"))

	case toolResearch:
		if *m.researchLimit == "" {
			*m.researchLimit = "10"
		}
		m.form = huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Search query").Placeholder("beta blockers heart failure").Value(m.researchQuery),
			huh.NewInput().Title("Max results").Value(m.researchLimit),
		).Title("Research Search"))

	default:
		return m, nil
	}

	m.form = m.form.WithShowHelp(true).WithShowErrors(true)
	m.formActive = true
	return m, m.form.Init()
}

// submit validates the completed form and fires the backend request.
// Invalid input produces a warning notification and reopens the form.
func (m toolsModel) submit() (toolsModel, tea.Cmd) {
	warn := func(err error) (toolsModel, tea.Cmd) {
		m.notifier.Notify(err.Error(), notify.Warning)
		return m.showForm(m.active)
	}

	client := m.client
	switch m.active {
	case toolQuiz:
		n, _ := strconv.Atoi(*m.quizCount)
		req := tools.QuizRequest{
			Topic:        *m.quizTopic,
			Difficulty:   *m.quizDifficulty,
			QuestionType: *m.quizType,
			NumQuestions: n,
		}
		if err := req.Validate(); err != nil {
			return warn(err)
		}
		return m.fire(func() tea.Msg {
			quiz, err := client.GenerateQuiz(context.Background(), req)
			return quizResultMsg{quiz: quiz, err: err}
		})

	case toolPlanner:
		days, _ := strconv.Atoi(*m.planDays)
		hours, _ := strconv.ParseFloat(*m.planHours, 64)
		req := tools.StudyPlanRequest{
			Specialty:        *m.planSpecialty,
			DurationDays:     days,
			StudyHoursPerDay: hours,
			FocusAreas:       splitList(*m.planFocus),
			StudyStyle:       *m.planStyle,
		}
		if err := req.Validate(); err != nil {
			return warn(err)
		}
		m.controller.SetSpecialty(req.Specialty)
		return m.fire(func() tea.Msg {
			plan, err := client.CreateStudyPlan(context.Background(), req)
			return studyPlanResultMsg{plan: plan, err: err}
		})

	case toolGFR:
		cr, err := strconv.ParseFloat(*m.gfrCreatinine, 64)
		if err != nil {
			return warn(fmt.Errorf("creatinine must be a number"))
		}
		age, err := strconv.Atoi(*m.gfrAge)
		if err != nil {
			return warn(fmt.Errorf("age must be a number"))
		}
		req := tools.GFRRequest{Creatinine: cr, Age: age, Gender: *m.gfrGender, Race: *m.gfrRace}
		if err := req.Validate(); err != nil {
			return warn(err)
		}
		return m.fire(func() tea.Msg {
			res, err := client.CalculateGFR(context.Background(), req)
			return calcResultMsg{kind: "gfr", result: res, err: err}
		})

	case toolBMI:
		weight, err := strconv.ParseFloat(*m.bmiWeight, 64)
		if err != nil {
			return warn(fmt.Errorf("weight must be a number"))
		}
		height, err := strconv.ParseFloat(*m.bmiHeight, 64)
		if err != nil {
			return warn(fmt.Errorf("height must be a number"))
		}
		req := tools.BMIRequest{WeightKg: weight, HeightCm: height}
		if err := req.Validate(); err != nil {
			return warn(err)
		}
		return m.fire(func() tea.Msg {
			res, err := client.CalculateBMI(context.Background(), req)
			return calcResultMsg{kind: "bmi", result: res, err: err}
		})

	case toolSymptoms:
		req := tools.SymptomRequest{Symptoms: splitList(*m.symptomList), PatientGender: *m.symptomGender}
		if *m.symptomAge != "" {
			age, err := strconv.Atoi(*m.symptomAge)
			if err != nil {
				return warn(fmt.Errorf("age must be a number"))
			}
			req.PatientAge = age
		}
		if err := req.Validate(); err != nil {
			return warn(err)
		}
		return m.fire(func() tea.Msg {
			res, err := client.CheckSymptoms(context.Background(), req)
			return symptomResultMsg{analysis: res, err: err}
		})

	case toolDocument:
		path := strings.TrimSpace(*m.docPath)
		if path == "" {
			return warn(fmt.Errorf("file path is required"))
		}
		analysisType := *m.docType
		return m.fire(func() tea.Msg {
			f, err := os.Open(path)
			if err != nil {
				return documentResultMsg{err: fmt.Errorf("open file: %w", err)}
			}
			defer f.Close()
			res, err := client.AnalyzeDocument(context.Background(), filepath.Base(path), f, analysisType)
			return documentResultMsg{analysis: res, err: err}
		})

	case toolResearch:
		query := strings.TrimSpace(*m.researchQuery)
		if query == "" {
			return warn(fmt.Errorf("search query is required"))
		}
		limit, _ := strconv.Atoi(*m.researchLimit)
		return m.fire(func() tea.Msg {
			res, err := client.SearchResearch(context.Background(), query, limit)
			return researchResultMsg{response: res, err: err}
		})
	}
	return m, nil
}

func (m toolsModel) fire(fetch tea.Cmd) (toolsModel, tea.Cmd) {
	m.loading = true
	return m, tea.Batch(m.spin.Tick, fetch)
}

func (m toolsModel) exportLast() tea.Cmd {
	if m.lastResult == nil {
		return func() tea.Msg {
			return statusMsg{text: "Nothing to export yet", isError: true}
		}
	}
	dir, slug, result := m.exportDir, toolSlugs[m.lastTool], m.lastResult
	return func() tea.Msg {
		path, err := tools.ExportResult(dir, slug, result)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		return exportDoneMsg{path: path}
	}
}

// ==========================
// Rendering
// ==========================

func (m toolsModel) view() string {
	w := m.width - 4

	if m.loading {
		return panelStyle.Width(w).Render(
			m.spin.View() + " " + mutedStyle.Render("Asking Dr. Kay..."),
		)
	}

	if m.formActive && m.form != nil {
		return activePanelStyle.Width(w).Render(m.form.View())
	}

	if m.resultView != "" {
		footer := mutedStyle.Render("  e: export  esc: back")
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, m.resultView, "", footer),
		)
	}

	return m.renderPicker(w)
}

func (m toolsModel) renderPicker(w int) string {
	var rows []string
	rows = append(rows, titleStyle.Render("Study Tools"))
	rows = append(rows, "")
	for i, name := range toolNames[1:] {
		cursor := "  "
		style := normalItemStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+name))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: open  ↑/↓: move"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func renderQuiz(q tools.Quiz) string {
	var rows []string
	rows = append(rows, titleStyle.Render(fmt.Sprintf("Quiz: %s", q.Topic)))
	rows = append(rows, subtitleStyle.Render(fmt.Sprintf("%s · %s · %d questions", q.Difficulty, q.QuestionType, len(q.Questions))))
	for _, question := range q.Questions {
		rows = append(rows, "")
		rows = append(rows, highlightStyle.Render(fmt.Sprintf("%d. %s", question.ID, question.Question)))
		for i, opt := range question.Options {
			rows = append(rows, fmt.Sprintf("   %c) %s", 'A'+i, opt))
		}
		if question.CorrectAnswer != "" {
			rows = append(rows, successStyle.Render("   Answer: "+question.CorrectAnswer))
		}
		if question.Explanation != "" {
			rows = append(rows, mutedStyle.Render("   "+question.Explanation))
		}
	}
	return strings.Join(rows, "\n")
}

func renderStudyPlan(p tools.StudyPlan) string {
	var rows []string
	rows = append(rows, titleStyle.Render(fmt.Sprintf("Study Plan: %s", p.Specialty)))
	rows = append(rows, subtitleStyle.Render(fmt.Sprintf("%d days · %.1fh/day · %.1fh total", p.DurationDays, p.DailyHours, p.TotalHours)))
	if len(p.FocusAreas) > 0 {
		rows = append(rows, mutedStyle.Render("Focus: "+strings.Join(p.FocusAreas, ", ")))
	}
	for _, day := range p.DailySchedule {
		rows = append(rows, "")
		rows = append(rows, highlightStyle.Render(fmt.Sprintf("Day %d (%.1fh)", day.Day, day.Hours)))
		if len(day.Topics) > 0 {
			rows = append(rows, "  Topics: "+strings.Join(day.Topics, ", "))
		}
		for _, act := range day.Activities {
			rows = append(rows, "  • "+act)
		}
	}
	return strings.Join(rows, "\n")
}

func renderCalc(kind string, r tools.CalcResult) string {
	label := "GFR"
	if kind == "bmi" {
		label = "BMI"
	}
	var rows []string
	rows = append(rows, titleStyle.Render(label+" Result"))
	rows = append(rows, "")
	value := fmt.Sprintf("%.1f", r.Value)
	if r.Unit != "" {
		value += " " + r.Unit
	}
	rows = append(rows, highlightStyle.Render("  "+value))
	if r.Interpretation != "" {
		rows = append(rows, "")
		rows = append(rows, "  Interpretation: "+r.Interpretation)
	}
	return strings.Join(rows, "\n")
}

func renderSymptoms(a tools.SymptomAnalysis) string {
	var rows []string
	rows = append(rows, titleStyle.Render("Symptom Analysis"))
	rows = append(rows, warningStyle.Render(a.Disclaimer))
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("Symptoms: "+strings.Join(a.Symptoms, ", ")))

	if len(a.EducationalAnalysis.CommonDifferentials) > 0 {
		rows = append(rows, "")
		rows = append(rows, highlightStyle.Render("Common differentials"))
		for _, d := range a.EducationalAnalysis.CommonDifferentials {
			rows = append(rows, "  • "+d)
		}
	}
	if len(a.EducationalAnalysis.LearningPoints) > 0 {
		rows = append(rows, "")
		rows = append(rows, highlightStyle.Render("Learning points"))
		for _, p := range a.EducationalAnalysis.LearningPoints {
			rows = append(rows, "  • "+p)
		}
	}
	if len(a.EducationalAnalysis.NextSteps) > 0 {
		rows = append(rows, "")
		rows = append(rows, highlightStyle.Render("Next steps"))
		for _, s := range a.EducationalAnalysis.NextSteps {
			rows = append(rows, "  • "+s)
		}
	}
	return strings.Join(rows, "\n")
}

func renderDocument(d tools.DocumentAnalysis) string {
	var rows []string
	rows = append(rows, titleStyle.Render("Document: "+d.Filename))
	rows = append(rows, subtitleStyle.Render(fmt.Sprintf("%s · %d bytes", d.AnalysisType, d.SizeBytes)))
	rows = append(rows, "")
	rows = append(rows, d.Summary)
	if len(d.KeyPoints) > 0 {
		rows = append(rows, "")
		rows = append(rows, highlightStyle.Render("Key points"))
		for _, p := range d.KeyPoints {
			rows = append(rows, "  • "+p)
		}
	}
	if len(d.GeneratedFlashcards) > 0 {
		rows = append(rows, "")
		rows = append(rows, highlightStyle.Render(fmt.Sprintf("Flashcards (%d)", len(d.GeneratedFlashcards))))
		for _, c := range d.GeneratedFlashcards {
			rows = append(rows, "  Q: "+c.Front)
			rows = append(rows, mutedStyle.Render("  A: "+c.Back))
		}
	}
	return strings.Join(rows, "\n")
}

func renderResearch(r tools.ResearchResponse) string {
	var rows []string
	rows = append(rows, titleStyle.Render("Research: "+r.Query))
	if len(r.Results) == 0 {
		rows = append(rows, mutedStyle.Render("No results"))
		return strings.Join(rows, "\n")
	}
	for _, res := range r.Results {
		rows = append(rows, "")
		rows = append(rows, highlightStyle.Render(res.Title))
		meta := fmt.Sprintf("%s · %d", res.Journal, res.Year)
		if len(res.Authors) > 0 {
			meta = strings.Join(res.Authors, ", ") + " · " + meta
		}
		rows = append(rows, subtitleStyle.Render(meta))
		if res.Abstract != "" {
			rows = append(rows, mutedStyle.Render(res.Abstract))
		}
	}
	return strings.Join(rows, "\n")
}

func specialtySelectOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(specialtyOptions))
	for _, s := range specialtyOptions {
		opts = append(opts, huh.NewOption(s, s))
	}
	return opts
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
