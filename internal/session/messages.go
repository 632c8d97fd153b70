package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Inbound is a structured data message received from the remote agent.
// The set of variants is closed; anything else is dropped by the caller.
type Inbound interface {
	inbound()
}

// ChatResponse is the agent's reply to a chat message.
type ChatResponse struct {
	Message string `json:"message"`
}

// QuizQuestion is a practice question pushed mid-session.
type QuizQuestion struct {
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
}

// CalculationResult is a clinical calculation performed by the agent.
type CalculationResult struct {
	Description    string `json:"description"`
	Value          string `json:"value"`
	Unit           string `json:"unit,omitempty"`
	Interpretation string `json:"interpretation,omitempty"`
}

// StudyPlanNotice announces a study plan the agent created.
type StudyPlanNotice struct {
	Title      string   `json:"title"`
	Duration   string   `json:"duration"`
	FocusAreas []string `json:"focus_areas"`
}

func (ChatResponse) inbound()      {}
func (QuizQuestion) inbound()      {}
func (CalculationResult) inbound() {}
func (StudyPlanNotice) inbound()   {}

// ErrUnknownMessage reports an inbound type tag outside the closed set.
type ErrUnknownMessage struct {
	Type string
}

func (e ErrUnknownMessage) Error() string {
	return fmt.Sprintf("unknown data message type %q", e.Type)
}

type inboundFrame struct {
	Type     string          `json:"type"`
	Message  string          `json:"message,omitempty"`
	Question json.RawMessage `json:"question,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Plan     json.RawMessage `json:"plan,omitempty"`
}

// DecodeInbound parses a data-channel payload into one of the closed
// variants. Unknown type tags return ErrUnknownMessage so the caller can
// log and drop them.
func DecodeInbound(payload []byte) (Inbound, error) {
	var frame inboundFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return nil, fmt.Errorf("decode data message: %w", err)
	}

	switch frame.Type {
	case "chat_response":
		return ChatResponse{Message: frame.Message}, nil
	case "quiz_question":
		var q QuizQuestion
		if err := json.Unmarshal(frame.Question, &q); err != nil {
			return nil, fmt.Errorf("decode quiz question: %w", err)
		}
		return q, nil
	case "medical_calculation":
		var r CalculationResult
		if err := json.Unmarshal(frame.Result, &r); err != nil {
			return nil, fmt.Errorf("decode calculation result: %w", err)
		}
		return r, nil
	case "study_plan":
		var p StudyPlanNotice
		if err := json.Unmarshal(frame.Plan, &p); err != nil {
			return nil, fmt.Errorf("decode study plan: %w", err)
		}
		return p, nil
	default:
		return nil, ErrUnknownMessage{Type: frame.Type}
	}
}

// Outbound encoders. Marshal errors cannot occur for these shapes, so the
// helpers return bytes directly.

func encodeChatMessage(text string, at time.Time) []byte {
	data, _ := json.Marshal(map[string]any{
		"type":      "chat_message",
		"message":   text,
		"timestamp": at.UTC().Format(time.RFC3339),
	})
	return data
}

func encodeMedicalMode(enabled bool, specialty string) []byte {
	m := map[string]any{
		"type":    "medical_mode",
		"enabled": enabled,
	}
	if enabled && specialty != "" {
		m["specialty"] = specialty
	}
	data, _ := json.Marshal(m)
	return data
}

func encodeSpecialtyFocus(specialty string) []byte {
	data, _ := json.Marshal(map[string]any{
		"type":      "specialty_focus",
		"specialty": specialty,
	})
	return data
}

// matchesWakeWord reports whether a recognized phrase contains the wake
// word.
func matchesWakeWord(phrase string) bool {
	p := strings.ToLower(phrase)
	return strings.Contains(p, "hey dr kay") || strings.Contains(p, "hey doctor kay")
}
