package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient(srv.URL, 5*time.Second), srv
}

// ============================================================
// Quiz generator
// ============================================================

func TestGenerateQuiz(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/quiz-generator" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("topic") != "arrhythmias" || q.Get("num_questions") != "3" {
			t.Errorf("query = %v", q)
		}
		json.NewEncoder(w).Encode(Quiz{
			Topic:      "arrhythmias",
			Difficulty: "medium",
			Questions: []QuizQuestion{
				{ID: 1, Question: "What is AF?", Options: []string{"a", "b"}, CorrectAnswer: "a"},
			},
		})
	})
	defer srv.Close()

	quiz, err := c.GenerateQuiz(context.Background(), QuizRequest{
		Topic: "arrhythmias", Difficulty: "medium", QuestionType: "multiple_choice", NumQuestions: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(quiz.Questions) != 1 || quiz.Questions[0].CorrectAnswer != "a" {
		t.Fatalf("got %+v", quiz)
	}
}

func TestGenerateQuizValidation(t *testing.T) {
	c := NewClient("http://unreachable.invalid", time.Second)

	if _, err := c.GenerateQuiz(context.Background(), QuizRequest{Topic: "  ", NumQuestions: 3}); err == nil {
		t.Fatal("expected error for blank topic")
	}
	if _, err := c.GenerateQuiz(context.Background(), QuizRequest{Topic: "x", NumQuestions: 0}); err == nil {
		t.Fatal("expected error for zero questions")
	}
}

// ============================================================
// Study planner
// ============================================================

func TestCreateStudyPlan(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/study-plan" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var req StudyPlanRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Specialty != "Cardiology" || req.DurationDays != 7 {
			t.Errorf("body = %+v", req)
		}
		json.NewEncoder(w).Encode(StudyPlan{
			Specialty: req.Specialty, DurationDays: 7, DailyHours: 2, TotalHours: 14,
			DailySchedule: []StudyDay{{Day: 1, Topics: []string{"ECG"}, Hours: 2}},
		})
	})
	defer srv.Close()

	plan, err := c.CreateStudyPlan(context.Background(), StudyPlanRequest{
		Specialty: "Cardiology", DurationDays: 7, StudyHoursPerDay: 2,
		FocusAreas: []string{"ECG"}, StudyStyle: "balanced",
	})
	if err != nil {
		t.Fatal(err)
	}
	if plan.TotalHours != 14 || len(plan.DailySchedule) != 1 {
		t.Fatalf("got %+v", plan)
	}
}

func TestStudyPlanValidation(t *testing.T) {
	var r StudyPlanRequest
	if err := r.Validate(); err == nil {
		t.Fatal("empty request must not validate")
	}
	r = StudyPlanRequest{Specialty: "Cardiology", DurationDays: 7, StudyHoursPerDay: -1}
	if err := r.Validate(); err == nil {
		t.Fatal("negative hours must not validate")
	}
}

// ============================================================
// Calculators
// ============================================================

func TestCalculateGFR(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("type") != "gfr" || q.Get("creatinine") != "1.2" || q.Get("age") != "45" {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(`{"result":{"gfr":72.4,"unit":"mL/min/1.73m²","interpretation":"Reduced kidney function"}}`))
	})
	defer srv.Close()

	res, err := c.CalculateGFR(context.Background(), GFRRequest{
		Creatinine: 1.2, Age: 45, Gender: "female", Race: "other",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Value != 72.4 {
		t.Fatalf("value = %v", res.Value)
	}
	if res.Interpretation != "Reduced kidney function" {
		t.Fatalf("interpretation = %q", res.Interpretation)
	}
}

func TestCalculateGFRValidation(t *testing.T) {
	c := NewClient("http://unreachable.invalid", time.Second)
	if _, err := c.CalculateGFR(context.Background(), GFRRequest{Creatinine: 0, Age: 45}); err == nil {
		t.Fatal("expected error for missing creatinine")
	}
	if _, err := c.CalculateGFR(context.Background(), GFRRequest{Creatinine: 1.1, Age: 0}); err == nil {
		t.Fatal("expected error for missing age")
	}
}

func TestCalculateBMI(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") != "bmi" {
			t.Errorf("type = %q", r.URL.Query().Get("type"))
		}
		w.Write([]byte(`{"result":{"bmi":23.1,"unit":"kg/m²","interpretation":"Normal weight"}}`))
	})
	defer srv.Close()

	res, err := c.CalculateBMI(context.Background(), BMIRequest{WeightKg: 70, HeightCm: 174})
	if err != nil {
		t.Fatal(err)
	}
	if res.Value != 23.1 || res.Interpretation != "Normal weight" {
		t.Fatalf("got %+v", res)
	}
}

// ============================================================
// Symptom checker
// ============================================================

func TestCheckSymptoms(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		var req SymptomRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Symptoms) != 2 || req.PatientAge != 60 {
			t.Errorf("body = %+v", req)
		}
		resp := SymptomAnalysis{Disclaimer: "Educational use only", Symptoms: req.Symptoms}
		resp.EducationalAnalysis.CommonDifferentials = []string{"ACS", "PE"}
		json.NewEncoder(w).Encode(resp)
	})
	defer srv.Close()

	res, err := c.CheckSymptoms(context.Background(), SymptomRequest{
		Symptoms: []string{"chest pain", "dyspnea"}, PatientAge: 60,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Disclaimer == "" || len(res.EducationalAnalysis.CommonDifferentials) != 2 {
		t.Fatalf("got %+v", res)
	}
}

func TestCheckSymptomsValidation(t *testing.T) {
	c := NewClient("http://unreachable.invalid", time.Second)
	if _, err := c.CheckSymptoms(context.Background(), SymptomRequest{}); err == nil {
		t.Fatal("expected error for no symptoms")
	}
}

// ============================================================
// Document analyzer
// ============================================================

func TestAnalyzeDocument(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if r.FormValue("analysis_type") != "flashcards" {
			t.Errorf("analysis_type = %q", r.FormValue("analysis_type"))
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		if hdr.Filename != "notes.txt" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		json.NewEncoder(w).Encode(DocumentAnalysis{
			Filename: hdr.Filename, AnalysisType: "flashcards", SizeBytes: hdr.Size,
			GeneratedFlashcards: []Flashcard{{Front: "Q", Back: "A"}},
		})
	})
	defer srv.Close()

	res, err := c.AnalyzeDocument(context.Background(), "notes.txt", strings.NewReader("cardio notes"), "flashcards")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.GeneratedFlashcards) != 1 {
		t.Fatalf("got %+v", res)
	}
}

// ============================================================
// Research search
// ============================================================

func TestSearchResearch(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("query") != "beta blockers" || q.Get("limit") != "5" {
			t.Errorf("query = %v", q)
		}
		json.NewEncoder(w).Encode(ResearchResponse{
			Query:   "beta blockers",
			Results: []ResearchResult{{Title: "Beta blockade in HF", Year: 2021}},
		})
	})
	defer srv.Close()

	res, err := c.SearchResearch(context.Background(), "beta blockers", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Results) != 1 {
		t.Fatalf("got %+v", res)
	}
}

// ============================================================
// Error handling
// ============================================================

func TestNon2xxIsError(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	defer srv.Close()

	_, err := c.SearchResearch(context.Background(), "anything", 0)
	if err == nil {
		t.Fatal("expected error for 500")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Fatalf("error should carry the status: %v", err)
	}
}

// ============================================================
// Export
// ============================================================

func TestExportResult(t *testing.T) {
	dir := t.TempDir()

	path, err := ExportResult(dir, "quiz", Quiz{Topic: "ECG"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(filepath.Base(path), "dr_kay_quiz_") || !strings.HasSuffix(path, ".json") {
		t.Fatalf("path = %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var out Quiz
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Topic != "ECG" {
		t.Fatalf("got %+v", out)
	}
	// Pretty-printed
	if !strings.Contains(string(data), "\n  ") {
		t.Fatal("export should be indented")
	}
}
