package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Kabungwe/friday-jarvis/internal/notify"
	"github.com/Kabungwe/friday-jarvis/internal/store"
	"github.com/Kabungwe/friday-jarvis/internal/transport"
)

// ============================================================
// Fakes
// ============================================================

type fakeRoom struct {
	published    [][]byte
	tracks       map[transport.TrackKind]bool
	disconnected bool
}

func newFakeRoom() *fakeRoom {
	return &fakeRoom{tracks: map[transport.TrackKind]bool{}}
}

func (r *fakeRoom) PublishData(ctx context.Context, payload []byte) error {
	r.published = append(r.published, payload)
	return nil
}

func (r *fakeRoom) SetTrackEnabled(kind transport.TrackKind, enabled bool) error {
	r.tracks[kind] = enabled
	return nil
}

func (r *fakeRoom) Disconnect(ctx context.Context) error {
	r.disconnected = true
	return nil
}

type fakeConnector struct {
	connects int
	err      error
	room     *fakeRoom
	handlers transport.Handlers
}

func (c *fakeConnector) Connect(ctx context.Context, token string, media transport.LocalMedia, opts transport.RoomOptions, h transport.Handlers) (transport.Room, error) {
	c.connects++
	if c.err != nil {
		return nil, c.err
	}
	c.handlers = h
	return c.room, nil
}

type fakeMedia struct {
	err   error
	calls int
}

func (m *fakeMedia) Acquire(ctx context.Context, wantVideo bool) (transport.LocalMedia, error) {
	m.calls++
	if m.err != nil {
		return transport.LocalMedia{}, m.err
	}
	return transport.LocalMedia{Audio: true, Video: wantVideo}, nil
}

type testRig struct {
	controller *Controller
	store      *store.Store
	connector  *fakeConnector
	media      *fakeMedia
	notifier   *notify.Service
	chat       []store.TranscriptMessage
	now        time.Time
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	rig := &testRig{
		store:     s,
		connector: &fakeConnector{room: newFakeRoom()},
		media:     &fakeMedia{},
		notifier:  notify.New(nil, nil, nil),
		now:       time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}

	sink := Sink{
		OnChat: func(entry store.TranscriptMessage) {
			rig.chat = append(rig.chat, entry)
		},
	}
	c := New(s, rig.notifier, rig.connector, rig.media, "token", store.DefaultPreferences(), nil, sink)
	c.now = func() time.Time { return rig.now }
	c.newID = func() string { return "session-1" }
	rig.controller = c
	return rig
}

func (r *testRig) start(t *testing.T) {
	t.Helper()
	if err := r.controller.StartSession(context.Background()); err != nil {
		t.Fatalf("start session: %v", err)
	}
}

// ============================================================
// Session lifecycle
// ============================================================

func TestStartSession(t *testing.T) {
	rig := newTestRig(t)
	rig.start(t)

	if rig.controller.State() != StateConnected {
		t.Fatalf("state = %v, want connected", rig.controller.State())
	}
	if rig.connector.connects != 1 {
		t.Fatalf("connects = %d", rig.connector.connects)
	}

	active, err := rig.store.SessionActive()
	if err != nil {
		t.Fatal(err)
	}
	if !active {
		t.Fatal("session flag not persisted")
	}

	p, _ := rig.store.LoadProgress()
	if p.TotalSessions != 1 {
		t.Fatalf("sessions = %d, want 1", p.TotalSessions)
	}

	if len(rig.chat) == 0 || rig.chat[0].Sender != "system" {
		t.Fatalf("expected system greeting, got %v", rig.chat)
	}
}

func TestStartSessionWhileConnected(t *testing.T) {
	rig := newTestRig(t)
	rig.start(t)
	rig.start(t)

	if rig.connector.connects != 1 {
		t.Fatalf("connects = %d, want 1 (second start is a no-op)", rig.connector.connects)
	}
}

func TestStartSessionMediaFailure(t *testing.T) {
	rig := newTestRig(t)
	rig.media.err = errors.New("permission denied")

	if err := rig.controller.StartSession(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if rig.controller.State() != StateIdle {
		t.Fatalf("state = %v, want idle (retryable)", rig.controller.State())
	}
	if rig.connector.connects != 0 {
		t.Fatal("must not connect after media failure")
	}

	// Retry after the failure succeeds.
	rig.media.err = nil
	rig.start(t)
	if rig.controller.State() != StateConnected {
		t.Fatal("retry should connect")
	}
}

func TestStartSessionConnectFailure(t *testing.T) {
	rig := newTestRig(t)
	rig.connector.err = errors.New("gateway down")

	if err := rig.controller.StartSession(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if rig.controller.State() != StateIdle {
		t.Fatalf("state = %v, want idle", rig.controller.State())
	}
}

func TestEndSessionPersistsTranscript(t *testing.T) {
	rig := newTestRig(t)
	rig.start(t)

	rig.controller.SendChatMessage("what is afterload")
	rig.connector.handlers.OnData([]byte(`{"type":"chat_response","message":"Afterload is..."}`))

	rig.now = rig.now.Add(20 * time.Minute)
	if err := rig.controller.EndSession(context.Background()); err != nil {
		t.Fatal(err)
	}

	if !rig.connector.room.disconnected {
		t.Fatal("room not disconnected")
	}
	if rig.controller.State() != StateIdle {
		t.Fatalf("state = %v, want idle", rig.controller.State())
	}

	tr, err := rig.store.GetTranscript("session-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.Messages) < 3 {
		t.Fatalf("messages = %d, want greeting + user + assistant", len(tr.Messages))
	}
	// Append order preserved
	last := tr.Messages[len(tr.Messages)-1]
	if last.Sender != "assistant" {
		t.Fatalf("last sender = %q", last.Sender)
	}

	p, _ := rig.store.LoadProgress()
	if p.TotalStudySeconds != 1200 {
		t.Fatalf("study seconds = %d, want 1200", p.TotalStudySeconds)
	}

	active, _ := rig.store.SessionActive()
	if active {
		t.Fatal("session flag not cleared")
	}
}

func TestEndSessionWithoutMessagesSkipsTranscript(t *testing.T) {
	rig := newTestRig(t)
	rig.start(t)

	// Drop the greeting so the buffer is empty at teardown.
	rig.controller.mu.Lock()
	rig.controller.buffer = nil
	rig.controller.mu.Unlock()

	if err := rig.controller.EndSession(context.Background()); err != nil {
		t.Fatal(err)
	}
	list, _ := rig.store.ListTranscripts(0)
	if len(list) != 0 {
		t.Fatalf("transcripts = %d, want 0", len(list))
	}
}

func TestEndSessionWhileIdle(t *testing.T) {
	rig := newTestRig(t)
	if err := rig.controller.EndSession(context.Background()); err != nil {
		t.Fatal(err)
	}
	list, _ := rig.store.ListTranscripts(0)
	if len(list) != 0 {
		t.Fatal("idle end must not persist anything")
	}
}

// ============================================================
// Chat
// ============================================================

func TestSendChatMessage(t *testing.T) {
	rig := newTestRig(t)
	rig.start(t)
	before := len(rig.chat)

	rig.controller.SendChatMessage("  what is preload  ")

	if len(rig.chat) != before+1 {
		t.Fatalf("chat entries = %d, want one more", len(rig.chat))
	}
	entry := rig.chat[len(rig.chat)-1]
	if entry.Sender != "user" || entry.Message != "what is preload" {
		t.Fatalf("entry = %+v", entry)
	}

	if len(rig.connector.room.published) != 1 {
		t.Fatalf("published = %d, want 1", len(rig.connector.room.published))
	}
	var m map[string]any
	json.Unmarshal(rig.connector.room.published[0], &m)
	if m["type"] != "chat_message" || m["message"] != "what is preload" {
		t.Fatalf("payload = %v", m)
	}
}

func TestSendChatMessageEmptyInput(t *testing.T) {
	rig := newTestRig(t)
	rig.start(t)
	before := len(rig.chat)

	rig.controller.SendChatMessage("")
	rig.controller.SendChatMessage("   \t  ")

	if len(rig.chat) != before {
		t.Fatal("whitespace-only input must be a no-op")
	}
	if len(rig.connector.room.published) != 0 {
		t.Fatal("nothing should be published")
	}
}

func TestSendChatMessageWhileIdle(t *testing.T) {
	rig := newTestRig(t)
	rig.controller.SendChatMessage("hello?")
	if len(rig.chat) != 0 {
		t.Fatal("chat while idle must be a no-op")
	}
}

// ============================================================
// Transport events
// ============================================================

func TestInboundDataRendering(t *testing.T) {
	rig := newTestRig(t)
	rig.start(t)
	before := len(rig.chat)

	rig.connector.handlers.OnData([]byte(`{"type":"chat_response","message":"hi"}`))
	if len(rig.chat) != before+1 || rig.chat[len(rig.chat)-1].Sender != "assistant" {
		t.Fatalf("chat = %v", rig.chat)
	}

	rig.connector.handlers.OnData([]byte(`{"type":"quiz_question","question":{"text":"Q?","options":["a","b"]}}`))
	if rig.chat[len(rig.chat)-1].Message != "B) b" {
		t.Fatalf("last = %q", rig.chat[len(rig.chat)-1].Message)
	}
}

func TestUnknownDataDropped(t *testing.T) {
	rig := newTestRig(t)
	rig.start(t)
	before := len(rig.chat)

	rig.connector.handlers.OnData([]byte(`{"type":"mystery"}`))
	rig.connector.handlers.OnData([]byte(`garbage`))

	if len(rig.chat) != before {
		t.Fatal("unknown data must be dropped silently")
	}
	if rig.controller.State() != StateConnected {
		t.Fatal("unknown data must not be fatal")
	}
}

func TestParticipantJoined(t *testing.T) {
	rig := newTestRig(t)
	rig.start(t)

	rig.connector.handlers.OnParticipantJoined("dr-kay-agent")
	last := rig.chat[len(rig.chat)-1]
	if last.Sender != "system" || last.Message != "Dr. Kay has joined the session" {
		t.Fatalf("got %+v", last)
	}
}

func TestRemoteDisconnect(t *testing.T) {
	rig := newTestRig(t)
	rig.start(t)

	rig.connector.handlers.OnDisconnected("network error")

	if rig.controller.State() != StateDisconnected {
		t.Fatalf("state = %v, want disconnected", rig.controller.State())
	}
	active, _ := rig.store.SessionActive()
	if active {
		t.Fatal("session flag not cleared on disconnect")
	}
	last := rig.chat[len(rig.chat)-1]
	if last.Message != "Connection lost. Please try reconnecting." {
		t.Fatalf("got %q", last.Message)
	}
}

func TestEndAfterRemoteDisconnectPersistsTranscript(t *testing.T) {
	rig := newTestRig(t)
	rig.start(t)

	rig.controller.SendChatMessage("what is preload")
	rig.connector.handlers.OnData([]byte(`{"type":"chat_response","message":"Preload is..."}`))

	rig.now = rig.now.Add(10 * time.Minute)
	rig.connector.handlers.OnDisconnected("network error")

	if err := rig.controller.EndSession(context.Background()); err != nil {
		t.Fatal(err)
	}
	if rig.controller.State() != StateIdle {
		t.Fatalf("state = %v, want idle", rig.controller.State())
	}

	tr, err := rig.store.GetTranscript("session-1")
	if err != nil {
		t.Fatalf("transcript not persisted after remote disconnect: %v", err)
	}
	if len(tr.Messages) < 3 {
		t.Fatalf("messages = %d, want greeting + user + assistant", len(tr.Messages))
	}

	p, _ := rig.store.LoadProgress()
	if p.TotalStudySeconds != 600 {
		t.Fatalf("study seconds = %d, want 600", p.TotalStudySeconds)
	}
}

// ============================================================
// Toggles
// ============================================================

func TestTogglesWhileIdle(t *testing.T) {
	rig := newTestRig(t)

	videoBefore := rig.controller.VideoEnabled()
	rig.controller.ToggleVideo()
	rig.controller.ToggleAudio()

	if rig.controller.VideoEnabled() != videoBefore {
		t.Fatal("video toggle while idle must be a no-op")
	}
	if len(rig.chat) != 0 {
		t.Fatal("no chat entries expected")
	}
}

func TestToggleVideoConnected(t *testing.T) {
	rig := newTestRig(t)
	rig.start(t)

	was := rig.controller.VideoEnabled()
	rig.controller.ToggleVideo()

	if rig.controller.VideoEnabled() == was {
		t.Fatal("flag did not flip")
	}
	if got, ok := rig.connector.room.tracks[transport.TrackVideo]; !ok || got == was {
		t.Fatalf("track state = %v, want %v", got, !was)
	}
	last := rig.chat[len(rig.chat)-1]
	if last.Sender != "system" {
		t.Fatal("toggle must emit a system chat entry")
	}
}

func TestToggleMedicalMode(t *testing.T) {
	rig := newTestRig(t)

	// Always flips locally, even while idle.
	if !rig.controller.ToggleMedicalMode() {
		t.Fatal("expected medical mode on")
	}
	if len(rig.connector.room.published) != 0 {
		t.Fatal("broadcast must be skipped while idle")
	}

	rig.controller.ToggleMedicalMode()
	rig.start(t)
	rig.controller.ToggleMedicalMode()

	if len(rig.connector.room.published) != 1 {
		t.Fatalf("published = %d, want 1", len(rig.connector.room.published))
	}
	var m map[string]any
	json.Unmarshal(rig.connector.room.published[0], &m)
	if m["type"] != "medical_mode" || m["enabled"] != true {
		t.Fatalf("payload = %v", m)
	}
}

// ============================================================
// Specialty
// ============================================================

func TestSetSpecialty(t *testing.T) {
	rig := newTestRig(t)
	rig.start(t)

	rig.controller.SetSpecialty("Cardiology")

	if rig.controller.Specialty() != "Cardiology" {
		t.Fatal("specialty not set")
	}

	prefs, _ := rig.store.LoadPreferences()
	if prefs.LastSpecialty != "Cardiology" {
		t.Fatal("specialty not persisted as preference")
	}

	p, _ := rig.store.LoadProgress()
	if len(p.Specialties) != 1 || p.Specialties[0] != "Cardiology" {
		t.Fatalf("specialties = %v", p.Specialties)
	}

	var m map[string]any
	json.Unmarshal(rig.connector.room.published[len(rig.connector.room.published)-1], &m)
	if m["type"] != "specialty_focus" || m["specialty"] != "Cardiology" {
		t.Fatalf("payload = %v", m)
	}
}

func TestSetSpecialtyWhileIdle(t *testing.T) {
	rig := newTestRig(t)

	rig.controller.SetSpecialty("Neurology")

	prefs, _ := rig.store.LoadPreferences()
	if prefs.LastSpecialty != "Neurology" {
		t.Fatal("specialty must persist even while idle")
	}
	if len(rig.connector.room.published) != 0 {
		t.Fatal("broadcast must be skipped while idle")
	}
}

// ============================================================
// Wake word listener
// ============================================================

type scriptedRecognizer struct {
	phrases []string
}

func (r *scriptedRecognizer) Recv(ctx context.Context) (string, error) {
	if len(r.phrases) == 0 {
		return "", errors.New("stream closed")
	}
	p := r.phrases[0]
	r.phrases = r.phrases[1:]
	return p, nil
}

func TestWakeWordStartsSession(t *testing.T) {
	rig := newTestRig(t)

	l := NewListener(&scriptedRecognizer{phrases: []string{"turn the lights on", "hey dr kay"}}, rig.controller, nil)
	l.delay = func(ctx context.Context, d time.Duration) error { return nil }

	cued := false
	l.OnCue = func() { cued = true }

	l.Run(context.Background())

	if !cued {
		t.Fatal("cue not shown")
	}
	if rig.controller.State() != StateConnected {
		t.Fatalf("state = %v, want connected", rig.controller.State())
	}
}

func TestWakeWordIgnoredWhileConnected(t *testing.T) {
	rig := newTestRig(t)
	rig.start(t)

	l := NewListener(&scriptedRecognizer{phrases: []string{"hey dr kay"}}, rig.controller, nil)
	l.delay = func(ctx context.Context, d time.Duration) error { return nil }
	l.Run(context.Background())

	if rig.connector.connects != 1 {
		t.Fatalf("connects = %d, want 1", rig.connector.connects)
	}
}

func TestWakeWordRecognitionErrorStops(t *testing.T) {
	rig := newTestRig(t)

	// Recognizer fails immediately; Run must return without starting.
	l := NewListener(&scriptedRecognizer{}, rig.controller, nil)
	l.Run(context.Background())

	if rig.controller.State() != StateIdle {
		t.Fatal("recognition errors must be non-fatal and start nothing")
	}
}
