package notify

import (
	"errors"
	"testing"
	"time"
)

type fakeDesktop struct {
	pushes []string
	err    error
}

func (d *fakeDesktop) Push(title, message string) error {
	d.pushes = append(d.pushes, message)
	return d.err
}

// ============================================================
// Queueing and expiry
// ============================================================

func TestNotifyDefaultDuration(t *testing.T) {
	s := New(nil, nil, nil)

	n := s.Notify("hello", Info)
	if n.ID == 0 {
		t.Fatal("expected non-zero id")
	}
	if got := n.ExpiresAt.Sub(n.CreatedAt); got != DefaultDuration {
		t.Fatalf("duration = %v, want %v", got, DefaultDuration)
	}

	active := s.Active(n.CreatedAt)
	if len(active) != 1 {
		t.Fatalf("active = %d, want 1", len(active))
	}
}

func TestActivePrunesExpired(t *testing.T) {
	s := New(nil, nil, nil)

	short := s.NotifyFor("short", Info, time.Second)
	long := s.NotifyFor("long", Success, 10*time.Second)

	active := s.Active(short.CreatedAt.Add(2 * time.Second))
	if len(active) != 1 {
		t.Fatalf("active = %d, want 1", len(active))
	}
	if active[0].ID != long.ID {
		t.Fatalf("kept %q, want the long one", active[0].Message)
	}

	active = s.Active(long.ExpiresAt.Add(time.Second))
	if len(active) != 0 {
		t.Fatalf("active = %d, want 0", len(active))
	}
}

func TestDuplicatesIndependent(t *testing.T) {
	s := New(nil, nil, nil)

	a := s.Notify("same", Info)
	b := s.Notify("same", Info)
	if a.ID == b.ID {
		t.Fatal("duplicate notifications must get distinct ids")
	}

	s.Dismiss(a.ID)
	active := s.Active(time.Now())
	if len(active) != 1 || active[0].ID != b.ID {
		t.Fatalf("dismissing one duplicate should leave the other, got %v", active)
	}
}

func TestDismissUnknownID(t *testing.T) {
	s := New(nil, nil, nil)
	s.Notify("keep", Warning)
	s.Dismiss(999)
	if len(s.Active(time.Now())) != 1 {
		t.Fatal("dismissing an unknown id must not touch others")
	}
}

func TestNonPositiveDurationFallsBack(t *testing.T) {
	s := New(nil, nil, nil)
	n := s.NotifyFor("x", Info, 0)
	if got := n.ExpiresAt.Sub(n.CreatedAt); got != DefaultDuration {
		t.Fatalf("duration = %v, want default", got)
	}
}

// ============================================================
// Desktop mirroring
// ============================================================

func TestMirrorOnlyErrorAndSuccess(t *testing.T) {
	d := &fakeDesktop{}
	s := New(d, nil, nil)

	s.Notify("info", Info)
	s.Notify("warning", Warning)
	s.Notify("success", Success)
	s.Notify("error", Error)

	if len(d.pushes) != 2 {
		t.Fatalf("pushes = %v, want success and error only", d.pushes)
	}
}

func TestMirrorRespectsPreference(t *testing.T) {
	d := &fakeDesktop{}
	allowed := false
	s := New(d, func() bool { return allowed }, nil)

	s.Notify("blocked", Error)
	if len(d.pushes) != 0 {
		t.Fatal("desktop pushed while preference disabled")
	}

	allowed = true
	s.Notify("allowed", Error)
	if len(d.pushes) != 1 {
		t.Fatalf("pushes = %v, want one", d.pushes)
	}
}

func TestMirrorNeverRetriesAfterDenial(t *testing.T) {
	d := &fakeDesktop{err: errors.New("denied")}
	s := New(d, nil, nil)

	s.Notify("first", Error)
	s.Notify("second", Error)
	s.Notify("third", Success)

	if len(d.pushes) != 1 {
		t.Fatalf("pushes = %d, want 1 (probe only)", len(d.pushes))
	}
}

func TestNilDesktop(t *testing.T) {
	s := New(nil, nil, nil)
	// Must not panic.
	s.Notify("no desktop", Error)
}
