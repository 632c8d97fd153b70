package store

import (
	"database/sql"
	"fmt"
	"strconv"
)

const sessionActiveKey = "session_active"

// LoadPreferences reads the persisted preference rows and merges them over
// the defaults: persisted values win, missing keys fall back. Malformed
// values are treated as absent, so adding preference fields later never
// breaks old databases.
func (s *Store) LoadPreferences() (Preferences, error) {
	p := DefaultPreferences()

	rows, err := s.db.Query(`SELECT key, value FROM preferences`)
	if err != nil {
		return p, fmt.Errorf("load preferences: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return p, err
		}
		switch key {
		case "theme":
			p.Theme = value
		case "auto_start_video":
			if b, err := strconv.ParseBool(value); err == nil {
				p.AutoStartVideo = b
			}
		case "desktop_notifications":
			if b, err := strconv.ParseBool(value); err == nil {
				p.DesktopNotifications = b
			}
		case "last_specialty":
			p.LastSpecialty = value
		case "study_mode":
			p.StudyMode = value
		case "reminder_frequency":
			p.ReminderFrequency = value
		}
	}
	return p, rows.Err()
}

// SavePreferences writes the full preference set back. Called after every
// mutation so an abrupt exit still leaves current state on disk.
func (s *Store) SavePreferences(p Preferences) error {
	pairs := map[string]string{
		"theme":                 p.Theme,
		"auto_start_video":      strconv.FormatBool(p.AutoStartVideo),
		"desktop_notifications": strconv.FormatBool(p.DesktopNotifications),
		"last_specialty":        p.LastSpecialty,
		"study_mode":            p.StudyMode,
		"reminder_frequency":    p.ReminderFrequency,
	}
	for key, value := range pairs {
		if err := s.setPreference(key, value); err != nil {
			return fmt.Errorf("save preference %q: %w", key, err)
		}
	}
	return nil
}

func (s *Store) setPreference(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO preferences (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// SetSessionActive persists the session-active flag, the teardown safety
// net consulted on the next startup.
func (s *Store) SetSessionActive(active bool) error {
	return s.setPreference(sessionActiveKey, strconv.FormatBool(active))
}

// SessionActive reports whether the previous run left a session open.
func (s *Store) SessionActive() (bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM preferences WHERE key = ?`, sessionActiveKey).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read session flag: %w", err)
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, nil
	}
	return b, nil
}
