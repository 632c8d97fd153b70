package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// SaveTranscript persists one complete session record. Transcripts are
// immutable once written; a duplicate id is an error.
func (s *Store) SaveTranscript(t Transcript) error {
	if t.ID == "" {
		return fmt.Errorf("save transcript: empty id")
	}
	messages, err := json.Marshal(t.Messages)
	if err != nil {
		return fmt.Errorf("marshal transcript messages: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO transcripts (id, started_at, ended_at, specialty, medical_mode, messages)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.StartedAt.UTC().Format(time.RFC3339),
		t.EndedAt.UTC().Format(time.RFC3339),
		t.Specialty,
		boolToInt(t.MedicalMode),
		string(messages),
	)
	if err != nil {
		return fmt.Errorf("save transcript %s: %w", t.ID, err)
	}
	return nil
}

// GetTranscript loads one transcript by id.
func (s *Store) GetTranscript(id string) (*Transcript, error) {
	t := &Transcript{}
	var startedAt, endedAt, messages string
	var medicalMode int

	err := s.db.QueryRow(
		`SELECT id, started_at, ended_at, specialty, medical_mode, messages
		 FROM transcripts WHERE id = ?`, id,
	).Scan(&t.ID, &startedAt, &endedAt, &t.Specialty, &medicalMode, &messages)
	if err != nil {
		return nil, fmt.Errorf("get transcript %s: %w", id, err)
	}

	t.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	t.EndedAt, _ = time.Parse(time.RFC3339, endedAt)
	t.MedicalMode = medicalMode != 0
	if err := json.Unmarshal([]byte(messages), &t.Messages); err != nil {
		// Corrupt messages blob: keep the record shell, drop the body.
		t.Messages = nil
	}
	return t, nil
}

// ListTranscripts returns transcripts newest first. limit <= 0 means all.
func (s *Store) ListTranscripts(limit int) ([]Transcript, error) {
	query := `SELECT id, started_at, ended_at, specialty, medical_mode, messages
	          FROM transcripts ORDER BY ended_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	var transcripts []Transcript
	for rows.Next() {
		var t Transcript
		var startedAt, endedAt, messages string
		var medicalMode int
		if err := rows.Scan(&t.ID, &startedAt, &endedAt, &t.Specialty, &medicalMode, &messages); err != nil {
			return nil, err
		}
		t.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		t.EndedAt, _ = time.Parse(time.RFC3339, endedAt)
		t.MedicalMode = medicalMode != 0
		if err := json.Unmarshal([]byte(messages), &t.Messages); err != nil {
			t.Messages = nil
		}
		transcripts = append(transcripts, t)
	}
	return transcripts, rows.Err()
}

// PurgeTranscripts removes all stored transcripts and returns how many were
// deleted.
func (s *Store) PurgeTranscripts() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM transcripts`)
	if err != nil {
		return 0, fmt.Errorf("purge transcripts: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ResetUserData wipes preferences, progress, achievements, specialties and
// transcripts, returning the store to its first-run state.
func (s *Store) ResetUserData() error {
	stmts := []string{
		`DELETE FROM preferences`,
		`DELETE FROM studied_specialties`,
		`DELETE FROM achievements`,
		`DELETE FROM transcripts`,
		`UPDATE progress SET value = 0`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("reset user data: %w", err)
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
