// Package notify queues timed, dismissible user notifications and mirrors
// the important ones to the desktop.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Severity classifies a notification.
type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// DefaultDuration is how long a notification stays on screen unless
// dismissed earlier.
const DefaultDuration = 3 * time.Second

// Notification is one on-screen message. It removes itself once its
// duration elapses.
type Notification struct {
	ID        int64
	Message   string
	Severity  Severity
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Desktop is the native OS notification collaborator. Pushes are
// best-effort; a failing desktop is treated as permission denied.
type Desktop interface {
	Push(title, message string) error
}

// Service owns the set of currently displayed notifications. Duplicates are
// allowed and independent.
type Service struct {
	mu     sync.Mutex
	nextID int64
	active []Notification

	desktop        Desktop
	desktopAllowed func() bool // user preference, read per notification

	// Desktop permission is probed once on the first mirrored
	// notification and never retried after a denial.
	probed  bool
	granted bool

	logger *zap.Logger
}

// New builds a Service. desktop may be nil (no mirroring); desktopAllowed
// may be nil (treated as always allowed).
func New(desktop Desktop, desktopAllowed func() bool, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		desktop:        desktop,
		desktopAllowed: desktopAllowed,
		logger:         logger,
	}
}

// Notify appends a notification with the default duration.
func (s *Service) Notify(message string, severity Severity) Notification {
	return s.NotifyFor(message, severity, DefaultDuration)
}

// NotifyFor appends a notification that expires after duration. Only error
// and success notifications are additionally mirrored to the desktop,
// gated by permission and the user preference; mirror failures are ignored.
func (s *Service) NotifyFor(message string, severity Severity, duration time.Duration) Notification {
	if duration <= 0 {
		duration = DefaultDuration
	}
	now := time.Now()

	s.mu.Lock()
	s.nextID++
	n := Notification{
		ID:        s.nextID,
		Message:   message,
		Severity:  severity,
		CreatedAt: now,
		ExpiresAt: now.Add(duration),
	}
	s.active = append(s.active, n)
	s.mu.Unlock()

	if severity == Error || severity == Success {
		s.mirror(message)
	}
	return n
}

// Dismiss removes a notification before its duration elapses.
func (s *Service) Dismiss(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.active {
		if n.ID == id {
			s.active = append(s.active[:i], s.active[i+1:]...)
			return
		}
	}
}

// Active prunes everything expired at now and returns what remains, oldest
// first.
func (s *Service) Active(now time.Time) []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.active[:0]
	for _, n := range s.active {
		if now.Before(n.ExpiresAt) {
			kept = append(kept, n)
		}
	}
	s.active = kept

	out := make([]Notification, len(s.active))
	copy(out, s.active)
	return out
}

func (s *Service) mirror(message string) {
	if s.desktop == nil {
		return
	}
	if s.desktopAllowed != nil && !s.desktopAllowed() {
		return
	}

	s.mu.Lock()
	if s.probed && !s.granted {
		s.mu.Unlock()
		return
	}
	firstProbe := !s.probed
	s.mu.Unlock()

	err := s.desktop.Push("Dr. Kay", message)

	if firstProbe {
		s.mu.Lock()
		s.probed = true
		s.granted = err == nil
		s.mu.Unlock()
	}
	if err != nil {
		s.logger.Debug("desktop notification failed", zap.Error(err))
	}
}
