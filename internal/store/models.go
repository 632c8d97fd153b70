package store

import "time"

// Preferences is the full set of user settings. Loading always yields a
// fully populated value: persisted fields win, missing ones fall back to
// defaults.
type Preferences struct {
	Theme                string
	AutoStartVideo       bool
	DesktopNotifications bool
	LastSpecialty        string
	StudyMode            string // normal, exam_prep, clinical
	ReminderFrequency    string // daily, weekly, off
}

// DefaultPreferences returns the compiled-in defaults.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:                "dark",
		AutoStartVideo:       true,
		DesktopNotifications: true,
		LastSpecialty:        "",
		StudyMode:            "normal",
		ReminderFrequency:    "daily",
	}
}

// Progress holds cumulative study statistics. Counters only ever grow.
type Progress struct {
	TotalSessions     int64
	TotalStudySeconds int64
	QuizzesCompleted  int64
	Specialties       []string
	Achievements      []Achievement
}

// Achievement is an unlocked milestone.
type Achievement struct {
	ID         string
	Title      string
	UnlockedAt time.Time
}

// ActivityKind names one progress mutation.
type ActivityKind string

const (
	ActivitySessionStart     ActivityKind = "session_start"
	ActivityQuizCompleted    ActivityKind = "quiz_completed"
	ActivityStudyTime        ActivityKind = "study_time"
	ActivitySpecialtyStudied ActivityKind = "specialty_studied"
)

// Activity is the payload for RecordActivity. Only the field matching the
// kind is consulted.
type Activity struct {
	StudySeconds int64
	Specialty    string
}

// TranscriptMessage is one chat exchange inside a session.
type TranscriptMessage struct {
	Sender    string    `json:"sender"` // user, assistant, system
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Transcript is the persisted, immutable record of one session.
type Transcript struct {
	ID          string
	StartedAt   time.Time
	EndedAt     time.Time
	Specialty   string
	MedicalMode bool
	Messages    []TranscriptMessage
}

// DailyStudy is aggregated study time for one day, used by the progress
// chart.
type DailyStudy struct {
	Date         string
	TotalSeconds int64
	SessionCount int
}
