package tools

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Kabungwe/friday-jarvis/internal/store"
)

// ExportResult serializes a tool result as pretty-printed JSON into dir,
// named by the tool type and a timestamp. Returns the written path.
func ExportResult(dir, tool string, result any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}

	name := fmt.Sprintf("dr_kay_%s_%s.json", tool, time.Now().Format("2006-01-02_150405"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return path, nil
}

type userDataExport struct {
	ExportedAt   string             `json:"exported_at"`
	Preferences  store.Preferences  `json:"preferences"`
	Progress     store.Progress     `json:"progress"`
	Transcripts  []store.Transcript `json:"transcripts"`
}

// ExportUserData dumps preferences, progress, and every saved transcript
// into one JSON file for backup or inspection.
func ExportUserData(st *store.Store, dir string) (string, error) {
	prefs, err := st.LoadPreferences()
	if err != nil {
		return "", fmt.Errorf("load preferences: %w", err)
	}
	progress, err := st.LoadProgress()
	if err != nil {
		return "", fmt.Errorf("load progress: %w", err)
	}
	transcripts, err := st.ListTranscripts(0)
	if err != nil {
		return "", fmt.Errorf("list transcripts: %w", err)
	}

	dump := userDataExport{
		ExportedAt:  time.Now().UTC().Format(time.RFC3339),
		Preferences: prefs,
		Progress:    progress,
		Transcripts: transcripts,
	}
	return ExportResult(dir, "user_data", dump)
}
