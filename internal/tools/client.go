// Package tools is the client side of the backend study-tool API: quiz
// generation, study plans, clinical calculators, symptom analysis,
// document analysis, and research search.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to the Dr. Kay backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// ==========================
// Quiz generator
// ==========================

type QuizRequest struct {
	Topic        string
	Difficulty   string
	QuestionType string
	NumQuestions int
}

// Validate rejects a request that would fail server-side anyway.
func (r QuizRequest) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return fmt.Errorf("topic is required")
	}
	if r.NumQuestions < 1 {
		return fmt.Errorf("number of questions must be at least 1")
	}
	return nil
}

type QuizQuestion struct {
	ID            int      `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation"`
}

type Quiz struct {
	Topic        string         `json:"topic"`
	Difficulty   string         `json:"difficulty"`
	QuestionType string         `json:"question_type"`
	Questions    []QuizQuestion `json:"questions"`
}

// GenerateQuiz fetches a quiz for the given topic and difficulty.
func (c *Client) GenerateQuiz(ctx context.Context, req QuizRequest) (Quiz, error) {
	if err := req.Validate(); err != nil {
		return Quiz{}, err
	}
	q := url.Values{}
	q.Set("topic", req.Topic)
	q.Set("difficulty", req.Difficulty)
	q.Set("question_type", req.QuestionType)
	q.Set("num_questions", strconv.Itoa(req.NumQuestions))

	var quiz Quiz
	if err := c.getJSON(ctx, "/api/quiz-generator", q, &quiz); err != nil {
		return Quiz{}, fmt.Errorf("generate quiz: %w", err)
	}
	return quiz, nil
}

// ==========================
// Study planner
// ==========================

type StudyPlanRequest struct {
	Specialty        string   `json:"specialty"`
	DurationDays     int      `json:"duration_days"`
	StudyHoursPerDay float64  `json:"study_hours_per_day"`
	FocusAreas       []string `json:"focus_areas"`
	StudyStyle       string   `json:"study_style"`
}

func (r StudyPlanRequest) Validate() error {
	if strings.TrimSpace(r.Specialty) == "" {
		return fmt.Errorf("specialty is required")
	}
	if r.DurationDays < 1 {
		return fmt.Errorf("duration must be at least 1 day")
	}
	if r.StudyHoursPerDay <= 0 {
		return fmt.Errorf("study hours per day must be positive")
	}
	return nil
}

type StudyDay struct {
	Day        int      `json:"day"`
	Topics     []string `json:"topics"`
	Activities []string `json:"activities"`
	Hours      float64  `json:"hours"`
}

type StudyPlan struct {
	Specialty     string     `json:"specialty"`
	DurationDays  int        `json:"duration_days"`
	DailyHours    float64    `json:"daily_hours"`
	TotalHours    float64    `json:"total_hours"`
	FocusAreas    []string   `json:"focus_areas"`
	DailySchedule []StudyDay `json:"daily_schedule"`
}

// CreateStudyPlan requests a day-by-day study schedule.
func (c *Client) CreateStudyPlan(ctx context.Context, req StudyPlanRequest) (StudyPlan, error) {
	if err := req.Validate(); err != nil {
		return StudyPlan{}, err
	}
	var plan StudyPlan
	if err := c.postJSON(ctx, "/api/study-plan", req, &plan); err != nil {
		return StudyPlan{}, fmt.Errorf("create study plan: %w", err)
	}
	return plan, nil
}

// ==========================
// Clinical calculators
// ==========================

type GFRRequest struct {
	Creatinine float64
	Age        int
	Gender     string
	Race       string
}

func (r GFRRequest) Validate() error {
	if r.Creatinine <= 0 {
		return fmt.Errorf("creatinine must be positive")
	}
	if r.Age < 1 {
		return fmt.Errorf("age must be at least 1")
	}
	return nil
}

type BMIRequest struct {
	WeightKg float64
	HeightCm float64
}

func (r BMIRequest) Validate() error {
	if r.WeightKg <= 0 {
		return fmt.Errorf("weight must be positive")
	}
	if r.HeightCm <= 0 {
		return fmt.Errorf("height must be positive")
	}
	return nil
}

// CalcResult is the common calculator response shape.
type CalcResult struct {
	Value          float64 `json:"value"`
	Unit           string  `json:"unit"`
	Interpretation string  `json:"interpretation"`
}

type gfrEnvelope struct {
	Result struct {
		GFR            float64 `json:"gfr"`
		Unit           string  `json:"unit"`
		Interpretation string  `json:"interpretation"`
	} `json:"result"`
}

type bmiEnvelope struct {
	Result struct {
		BMI            float64 `json:"bmi"`
		Unit           string  `json:"unit"`
		Interpretation string  `json:"interpretation"`
	} `json:"result"`
}

// CalculateGFR computes an estimated glomerular filtration rate.
func (c *Client) CalculateGFR(ctx context.Context, req GFRRequest) (CalcResult, error) {
	if err := req.Validate(); err != nil {
		return CalcResult{}, err
	}
	q := url.Values{}
	q.Set("type", "gfr")
	q.Set("creatinine", strconv.FormatFloat(req.Creatinine, 'f', -1, 64))
	q.Set("age", strconv.Itoa(req.Age))
	q.Set("gender", req.Gender)
	q.Set("race", req.Race)

	var env gfrEnvelope
	if err := c.getJSON(ctx, "/api/calculators", q, &env); err != nil {
		return CalcResult{}, fmt.Errorf("calculate gfr: %w", err)
	}
	return CalcResult{Value: env.Result.GFR, Unit: env.Result.Unit, Interpretation: env.Result.Interpretation}, nil
}

// CalculateBMI computes a body mass index.
func (c *Client) CalculateBMI(ctx context.Context, req BMIRequest) (CalcResult, error) {
	if err := req.Validate(); err != nil {
		return CalcResult{}, err
	}
	q := url.Values{}
	q.Set("type", "bmi")
	q.Set("weight", strconv.FormatFloat(req.WeightKg, 'f', -1, 64))
	q.Set("height", strconv.FormatFloat(req.HeightCm, 'f', -1, 64))

	var env bmiEnvelope
	if err := c.getJSON(ctx, "/api/calculators", q, &env); err != nil {
		return CalcResult{}, fmt.Errorf("calculate bmi: %w", err)
	}
	return CalcResult{Value: env.Result.BMI, Unit: env.Result.Unit, Interpretation: env.Result.Interpretation}, nil
}

// ==========================
// Symptom checker
// ==========================

type SymptomRequest struct {
	Symptoms      []string `json:"symptoms"`
	PatientAge    int      `json:"patient_age,omitempty"`
	PatientGender string   `json:"patient_gender,omitempty"`
}

func (r SymptomRequest) Validate() error {
	if len(r.Symptoms) == 0 {
		return fmt.Errorf("at least one symptom is required")
	}
	return nil
}

type SymptomAnalysis struct {
	Disclaimer     string   `json:"disclaimer"`
	Symptoms       []string `json:"symptoms"`
	PatientContext struct {
		Age    int    `json:"age,omitempty"`
		Gender string `json:"gender,omitempty"`
	} `json:"patient_context"`
	EducationalAnalysis struct {
		CommonDifferentials []string `json:"common_differentials"`
		LearningPoints      []string `json:"learning_points"`
		NextSteps           []string `json:"next_steps"`
	} `json:"educational_analysis"`
}

// CheckSymptoms requests an educational differential analysis.
func (c *Client) CheckSymptoms(ctx context.Context, req SymptomRequest) (SymptomAnalysis, error) {
	if err := req.Validate(); err != nil {
		return SymptomAnalysis{}, err
	}
	var res SymptomAnalysis
	if err := c.postJSON(ctx, "/api/symptom-checker", req, &res); err != nil {
		return SymptomAnalysis{}, fmt.Errorf("check symptoms: %w", err)
	}
	return res, nil
}

// ==========================
// Document analyzer
// ==========================

type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

type DocumentAnalysis struct {
	Filename            string      `json:"filename"`
	AnalysisType        string      `json:"analysis_type"`
	SizeBytes           int64       `json:"size_bytes"`
	Summary             string      `json:"summary"`
	KeyPoints           []string    `json:"key_points"`
	GeneratedFlashcards []Flashcard `json:"generated_flashcards,omitempty"`
}

// AnalyzeDocument uploads a document for summarization or flashcard
// generation. The reader is streamed as a multipart file part.
func (c *Client) AnalyzeDocument(ctx context.Context, filename string, file io.Reader, analysisType string) (DocumentAnalysis, error) {
	if strings.TrimSpace(filename) == "" {
		return DocumentAnalysis{}, fmt.Errorf("filename is required")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return DocumentAnalysis{}, fmt.Errorf("analyze document: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return DocumentAnalysis{}, fmt.Errorf("analyze document: read file: %w", err)
	}
	if err := w.WriteField("analysis_type", analysisType); err != nil {
		return DocumentAnalysis{}, fmt.Errorf("analyze document: %w", err)
	}
	if err := w.Close(); err != nil {
		return DocumentAnalysis{}, fmt.Errorf("analyze document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload-document", &body)
	if err != nil {
		return DocumentAnalysis{}, fmt.Errorf("analyze document: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var res DocumentAnalysis
	if err := c.do(req, &res); err != nil {
		return DocumentAnalysis{}, fmt.Errorf("analyze document: %w", err)
	}
	return res, nil
}

// ==========================
// Research search
// ==========================

type ResearchResult struct {
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Journal  string   `json:"journal"`
	Year     int      `json:"year"`
	Abstract string   `json:"abstract"`
	URL      string   `json:"url"`
}

type ResearchResponse struct {
	Query   string           `json:"query"`
	Results []ResearchResult `json:"results"`
}

// SearchResearch queries the literature search endpoint.
func (c *Client) SearchResearch(ctx context.Context, query string, limit int) (ResearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return ResearchResponse{}, fmt.Errorf("search query is required")
	}
	q := url.Values{}
	q.Set("query", query)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var res ResearchResponse
	if err := c.getJSON(ctx, "/api/research-search", q, &res); err != nil {
		return ResearchResponse{}, fmt.Errorf("search research: %w", err)
	}
	return res, nil
}

// ==========================
// HTTP plumbing
// ==========================

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
