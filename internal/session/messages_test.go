package session

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// ============================================================
// Inbound decoding
// ============================================================

func TestDecodeChatResponse(t *testing.T) {
	msg, err := DecodeInbound([]byte(`{"type":"chat_response","message":"hello"}`))
	if err != nil {
		t.Fatal(err)
	}
	chat, ok := msg.(ChatResponse)
	if !ok {
		t.Fatalf("got %T, want ChatResponse", msg)
	}
	if chat.Message != "hello" {
		t.Fatalf("message = %q", chat.Message)
	}
}

func TestDecodeQuizQuestion(t *testing.T) {
	payload := []byte(`{"type":"quiz_question","question":{"text":"Which valve?","options":["mitral","aortic"]}}`)
	msg, err := DecodeInbound(payload)
	if err != nil {
		t.Fatal(err)
	}
	q, ok := msg.(QuizQuestion)
	if !ok {
		t.Fatalf("got %T, want QuizQuestion", msg)
	}
	if q.Text != "Which valve?" || len(q.Options) != 2 {
		t.Fatalf("got %+v", q)
	}
}

func TestDecodeCalculationResult(t *testing.T) {
	payload := []byte(`{"type":"medical_calculation","result":{"description":"GFR","value":"72.4","unit":"mL/min/1.73m²","interpretation":"Reduced"}}`)
	msg, err := DecodeInbound(payload)
	if err != nil {
		t.Fatal(err)
	}
	r, ok := msg.(CalculationResult)
	if !ok {
		t.Fatalf("got %T, want CalculationResult", msg)
	}
	if r.Value != "72.4" || r.Interpretation != "Reduced" {
		t.Fatalf("got %+v", r)
	}
}

func TestDecodeStudyPlan(t *testing.T) {
	payload := []byte(`{"type":"study_plan","plan":{"title":"Cardio sprint","duration":"7 days","focus_areas":["ECG","pharm"]}}`)
	msg, err := DecodeInbound(payload)
	if err != nil {
		t.Fatal(err)
	}
	p, ok := msg.(StudyPlanNotice)
	if !ok {
		t.Fatalf("got %T, want StudyPlanNotice", msg)
	}
	if p.Title != "Cardio sprint" || len(p.FocusAreas) != 2 {
		t.Fatalf("got %+v", p)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := DecodeInbound([]byte(`{"type":"telemetry","payload":{}}`))
	var unknown ErrUnknownMessage
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want ErrUnknownMessage", err)
	}
	if unknown.Type != "telemetry" {
		t.Fatalf("type = %q", unknown.Type)
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := DecodeInbound([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

// ============================================================
// Outbound encoding
// ============================================================

func TestEncodeChatMessage(t *testing.T) {
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	data := encodeChatMessage("what is preload", at)

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m["type"] != "chat_message" || m["message"] != "what is preload" {
		t.Fatalf("got %v", m)
	}
	if m["timestamp"] != "2026-03-10T12:00:00Z" {
		t.Fatalf("timestamp = %v", m["timestamp"])
	}
}

func TestEncodeMedicalMode(t *testing.T) {
	var m map[string]any

	if err := json.Unmarshal(encodeMedicalMode(true, "Cardiology"), &m); err != nil {
		t.Fatal(err)
	}
	if m["enabled"] != true || m["specialty"] != "Cardiology" {
		t.Fatalf("got %v", m)
	}

	m = nil
	if err := json.Unmarshal(encodeMedicalMode(false, "Cardiology"), &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["specialty"]; ok {
		t.Fatal("disabled mode should not carry a specialty")
	}
}

func TestEncodeSpecialtyFocus(t *testing.T) {
	var m map[string]any
	if err := json.Unmarshal(encodeSpecialtyFocus("Neurology"), &m); err != nil {
		t.Fatal(err)
	}
	if m["type"] != "specialty_focus" || m["specialty"] != "Neurology" {
		t.Fatalf("got %v", m)
	}
}

// ============================================================
// Wake word
// ============================================================

func TestMatchesWakeWord(t *testing.T) {
	cases := []struct {
		phrase string
		want   bool
	}{
		{"hey dr kay", true},
		{"Hey Dr Kay, are you there", true},
		{"HEY DOCTOR KAY", true},
		{"okay doctor", false},
		{"hey kay", false},
		{"", false},
	}
	for _, c := range cases {
		if got := matchesWakeWord(c.phrase); got != c.want {
			t.Errorf("matchesWakeWord(%q) = %v, want %v", c.phrase, got, c.want)
		}
	}
}
