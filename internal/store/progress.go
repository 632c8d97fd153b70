package store

import (
	"fmt"
	"time"
)

// achievementDef is one row of the fixed achievement threshold table.
type achievementDef struct {
	id        string
	title     string
	threshold int64
	metric    func(Progress) int64
}

var achievementDefs = []achievementDef{
	{
		id:        "frequent_learner",
		title:     "Frequent Learner",
		threshold: 10,
		metric:    func(p Progress) int64 { return p.TotalSessions },
	},
	{
		id:        "quiz_master",
		title:     "Quiz Master",
		threshold: 50,
		metric:    func(p Progress) int64 { return p.QuizzesCompleted },
	},
	{
		id:        "well_rounded",
		title:     "Well-Rounded Student",
		threshold: 5,
		metric:    func(p Progress) int64 { return int64(len(p.Specialties)) },
	},
}

// LoadProgress reads the cumulative study statistics. A fresh database
// yields all-zero counters and empty sets.
func (s *Store) LoadProgress() (Progress, error) {
	var p Progress

	rows, err := s.db.Query(`SELECT key, value FROM progress`)
	if err != nil {
		return p, fmt.Errorf("load progress: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value int64
		if err := rows.Scan(&key, &value); err != nil {
			return p, err
		}
		switch key {
		case "total_sessions":
			p.TotalSessions = value
		case "total_study_seconds":
			p.TotalStudySeconds = value
		case "quizzes_completed":
			p.QuizzesCompleted = value
		}
	}
	if err := rows.Err(); err != nil {
		return p, err
	}

	p.Specialties, err = s.listSpecialties()
	if err != nil {
		return p, err
	}
	p.Achievements, err = s.ListAchievements()
	return p, err
}

// RecordActivity is the single mutation entry point for progress. Each kind
// updates exactly one counter or set; unknown kinds are rejected. After the
// mutation every achievement threshold is re-evaluated and the newly crossed
// ones are unlocked and returned, each at most once ever.
func (s *Store) RecordActivity(kind ActivityKind, payload Activity) ([]Achievement, error) {
	switch kind {
	case ActivitySessionStart:
		if err := s.incrementProgress("total_sessions", 1); err != nil {
			return nil, err
		}
	case ActivityQuizCompleted:
		if err := s.incrementProgress("quizzes_completed", 1); err != nil {
			return nil, err
		}
	case ActivityStudyTime:
		if payload.StudySeconds < 0 {
			return nil, fmt.Errorf("record activity: negative study time")
		}
		if err := s.incrementProgress("total_study_seconds", payload.StudySeconds); err != nil {
			return nil, err
		}
	case ActivitySpecialtyStudied:
		if payload.Specialty == "" {
			return nil, fmt.Errorf("record activity: empty specialty")
		}
		// Set semantics: the duplicate insert is a no-op.
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO studied_specialties (specialty) VALUES (?)`,
			payload.Specialty,
		); err != nil {
			return nil, fmt.Errorf("record specialty: %w", err)
		}
	default:
		return nil, fmt.Errorf("record activity: unknown kind %q", kind)
	}

	return s.checkAchievements()
}

func (s *Store) incrementProgress(key string, delta int64) error {
	_, err := s.db.Exec(
		`UPDATE progress SET value = value + ? WHERE key = ?`,
		delta, key,
	)
	if err != nil {
		return fmt.Errorf("increment %s: %w", key, err)
	}
	return nil
}

// checkAchievements unlocks every threshold newly crossed: metric at or
// above threshold and id not yet in the unlocked set.
func (s *Store) checkAchievements() ([]Achievement, error) {
	p, err := s.LoadProgress()
	if err != nil {
		return nil, err
	}

	unlocked := make(map[string]bool, len(p.Achievements))
	for _, a := range p.Achievements {
		unlocked[a.ID] = true
	}

	var fresh []Achievement
	for _, def := range achievementDefs {
		if unlocked[def.id] || def.metric(p) < def.threshold {
			continue
		}
		now := time.Now().UTC()
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO achievements (id, title, unlocked_at) VALUES (?, ?, ?)`,
			def.id, def.title, now.Format(time.RFC3339),
		); err != nil {
			return fresh, fmt.Errorf("unlock achievement %s: %w", def.id, err)
		}
		fresh = append(fresh, Achievement{ID: def.id, Title: def.title, UnlockedAt: now})
	}
	return fresh, nil
}

// ListAchievements returns all unlocked achievements, oldest first.
func (s *Store) ListAchievements() ([]Achievement, error) {
	rows, err := s.db.Query(`SELECT id, title, unlocked_at FROM achievements ORDER BY unlocked_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	var achievements []Achievement
	for rows.Next() {
		var a Achievement
		var unlockedAt string
		if err := rows.Scan(&a.ID, &a.Title, &unlockedAt); err != nil {
			return nil, err
		}
		a.UnlockedAt, _ = time.Parse(time.RFC3339, unlockedAt)
		achievements = append(achievements, a)
	}
	return achievements, rows.Err()
}

func (s *Store) listSpecialties() ([]string, error) {
	rows, err := s.db.Query(`SELECT specialty FROM studied_specialties ORDER BY specialty`)
	if err != nil {
		return nil, fmt.Errorf("list specialties: %w", err)
	}
	defer rows.Close()

	var specialties []string
	for rows.Next() {
		var sp string
		if err := rows.Scan(&sp); err != nil {
			return nil, err
		}
		specialties = append(specialties, sp)
	}
	return specialties, rows.Err()
}

// GetDailyStudy aggregates study time per day over [from, to) from the
// persisted transcripts, for the progress chart.
func (s *Store) GetDailyStudy(from, to time.Time) ([]DailyStudy, error) {
	rows, err := s.db.Query(`
		SELECT date(started_at) AS day,
		       COALESCE(SUM(strftime('%s', ended_at) - strftime('%s', started_at)), 0),
		       COUNT(*)
		FROM transcripts
		WHERE started_at >= ? AND started_at < ?
		GROUP BY day
		ORDER BY day`,
		from.Format(time.RFC3339), to.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("daily study: %w", err)
	}
	defer rows.Close()

	var days []DailyStudy
	for rows.Next() {
		var d DailyStudy
		if err := rows.Scan(&d.Date, &d.TotalSeconds, &d.SessionCount); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}
