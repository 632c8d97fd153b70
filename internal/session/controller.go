// Package session owns the connection lifecycle with the remote agent:
// media acquisition, the transport room, the chat log, and the transcript
// persisted at teardown.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kabungwe/friday-jarvis/internal/notify"
	"github.com/Kabungwe/friday-jarvis/internal/store"
	"github.com/Kabungwe/friday-jarvis/internal/transport"
)

// ConnState is the session connection state.
type ConnState int

const (
	StateIdle ConnState = iota
	StateConnecting
	StateConnected
	StateDisconnected
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Sink receives controller events for rendering. Callbacks may be invoked
// from the transport's read loop; the UI layer is responsible for crossing
// back onto its own loop.
type Sink struct {
	OnChat            func(store.TranscriptMessage)
	OnState           func(ConnState)
	OnQuality         func(transport.Tier)
	OnTrackSubscribed func(kind transport.TrackKind)
	OnSpecialty       func(specialty string)
}

// Controller drives one session at a time.
type Controller struct {
	st        *store.Store
	notifier  *notify.Service
	connector transport.Connector
	media     transport.MediaAcquirer
	token     string
	logger    *zap.Logger
	sink      Sink

	now   func() time.Time
	newID func() string

	mu           sync.Mutex
	state        ConnState
	room         transport.Room
	startedAt    time.Time
	videoEnabled bool
	audioEnabled bool
	medicalMode  bool
	specialty    string
	buffer       []store.TranscriptMessage
}

// New builds a Controller. The initial video flag and specialty come from
// the loaded preferences.
func New(st *store.Store, notifier *notify.Service, connector transport.Connector, media transport.MediaAcquirer, token string, prefs store.Preferences, logger *zap.Logger, sink Sink) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		st:           st,
		notifier:     notifier,
		connector:    connector,
		media:        media,
		token:        token,
		logger:       logger,
		sink:         sink,
		now:          time.Now,
		newID:        uuid.NewString,
		state:        StateIdle,
		videoEnabled: prefs.AutoStartVideo,
		specialty:    prefs.LastSpecialty,
	}
}

// State returns the current connection state.
func (c *Controller) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether a session is live.
func (c *Controller) Connected() bool { return c.State() == StateConnected }

// VideoEnabled reports the local video flag.
func (c *Controller) VideoEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.videoEnabled
}

// AudioEnabled reports the local audio flag.
func (c *Controller) AudioEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.audioEnabled
}

// MedicalMode reports the medical mode flag.
func (c *Controller) MedicalMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.medicalMode
}

// Specialty returns the current specialty focus.
func (c *Controller) Specialty() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.specialty
}

// Elapsed returns how long the current session has been running.
func (c *Controller) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected {
		return 0
	}
	return c.now().Sub(c.startedAt)
}

// StartSession acquires local media and opens the room. Starting while a
// session is live is a no-op surfaced as a notification. Any failure is
// reported and leaves the controller idle and retryable.
func (c *Controller) StartSession(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		c.notifier.Notify("Dr. Kay is already active", notify.Info)
		return nil
	}
	c.state = StateConnecting
	wantVideo := c.videoEnabled
	c.mu.Unlock()
	c.emitState(StateConnecting)

	media, err := c.media.Acquire(ctx, wantVideo)
	if err != nil {
		c.setState(StateIdle)
		c.notifier.Notify("Failed to connect. Please check your microphone/camera permissions.", notify.Error)
		c.logger.Warn("media acquisition failed", zap.Error(err))
		return fmt.Errorf("acquire media: %w", err)
	}

	handlers := transport.Handlers{
		OnParticipantJoined: c.handleParticipantJoined,
		OnTrackSubscribed:   c.handleTrackSubscribed,
		OnData:              c.handleData,
		OnQualityChanged:    c.handleQuality,
		OnDisconnected:      c.handleRemoteDisconnect,
	}

	room, err := c.connector.Connect(ctx, c.token, media, transport.DefaultRoomOptions(), handlers)
	if err != nil {
		c.setState(StateIdle)
		c.notifier.Notify("Connection failed", notify.Error)
		c.logger.Warn("transport connect failed", zap.Error(err))
		return fmt.Errorf("connect room: %w", err)
	}

	c.mu.Lock()
	c.room = room
	c.state = StateConnected
	c.startedAt = c.now()
	c.audioEnabled = true
	c.videoEnabled = media.Video
	c.mu.Unlock()
	c.emitState(StateConnected)

	if err := c.st.SetSessionActive(true); err != nil {
		c.logger.Warn("persist session flag", zap.Error(err))
	}
	c.recordActivity(store.ActivitySessionStart, store.Activity{})
	if sp := c.Specialty(); sp != "" {
		c.recordActivity(store.ActivitySpecialtyStudied, store.Activity{Specialty: sp})
	}

	c.appendChat("system", "Session started. Dr. Kay is ready to help!")
	c.notifier.Notify("Connected to Dr. Kay", notify.Success)
	return nil
}

// EndSession tears the session down and, when the transcript buffer is
// non-empty, persists one immutable transcript record.
func (c *Controller) EndSession(ctx context.Context) error {
	c.mu.Lock()
	room := c.room
	wasConnected := c.state == StateConnected
	// A remotely dropped session still has a buffered transcript to save.
	sessionRan := wasConnected || c.state == StateDisconnected
	startedAt := c.startedAt
	buffer := c.buffer
	specialty := c.specialty
	medicalMode := c.medicalMode
	c.room = nil
	c.buffer = nil
	c.state = StateIdle
	c.mu.Unlock()

	if room != nil && wasConnected {
		if err := room.Disconnect(ctx); err != nil {
			c.logger.Warn("transport disconnect", zap.Error(err))
		}
	}
	c.emitState(StateIdle)

	if err := c.st.SetSessionActive(false); err != nil {
		c.logger.Warn("persist session flag", zap.Error(err))
	}

	if !sessionRan {
		return nil
	}

	endedAt := c.now()
	if len(buffer) > 0 {
		t := store.Transcript{
			ID:          c.newID(),
			StartedAt:   startedAt,
			EndedAt:     endedAt,
			Specialty:   specialty,
			MedicalMode: medicalMode,
			Messages:    buffer,
		}
		if err := c.st.SaveTranscript(t); err != nil {
			c.logger.Error("save transcript", zap.Error(err))
			return fmt.Errorf("save transcript: %w", err)
		}
		c.logger.Info("transcript saved", zap.String("id", t.ID), zap.Int("messages", len(t.Messages)))
	}

	if secs := int64(endedAt.Sub(startedAt).Seconds()); secs > 0 {
		c.recordActivity(store.ActivityStudyTime, store.Activity{StudySeconds: secs})
	}
	c.notifier.Notify("Session ended", notify.Info)
	return nil
}

// ToggleVideo flips the local video flag and propagates it to the published
// track. A no-op while not connected.
func (c *Controller) ToggleVideo() {
	c.toggleTrack(transport.TrackVideo)
}

// ToggleAudio flips the local audio flag and propagates it to the published
// track. A no-op while not connected.
func (c *Controller) ToggleAudio() {
	c.toggleTrack(transport.TrackAudio)
}

func (c *Controller) toggleTrack(kind transport.TrackKind) {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return
	}
	var enabled bool
	switch kind {
	case transport.TrackVideo:
		c.videoEnabled = !c.videoEnabled
		enabled = c.videoEnabled
	case transport.TrackAudio:
		c.audioEnabled = !c.audioEnabled
		enabled = c.audioEnabled
	}
	room := c.room
	c.mu.Unlock()

	if err := room.SetTrackEnabled(kind, enabled); err != nil {
		c.logger.Warn("set track enabled", zap.String("kind", string(kind)), zap.Error(err))
	}

	label := "Video"
	if kind == transport.TrackAudio {
		label = "Microphone"
	}
	verb := "disabled"
	if enabled {
		verb = "enabled"
	}
	c.appendChat("system", fmt.Sprintf("%s %s", label, verb))
}

// ToggleMedicalMode flips the clinical-terminology flag. The flip always
// succeeds locally; the broadcast is skipped when not connected.
func (c *Controller) ToggleMedicalMode() bool {
	c.mu.Lock()
	c.medicalMode = !c.medicalMode
	enabled := c.medicalMode
	specialty := c.specialty
	room := c.room
	connected := c.state == StateConnected
	c.mu.Unlock()

	if enabled {
		c.appendChat("system", "Medical Mode activated. Dr. Kay will use clinical terminology and provide detailed medical education.")
	} else {
		c.appendChat("system", "Medical Mode deactivated. Returning to general education mode.")
	}

	if connected {
		c.publish(room, encodeMedicalMode(enabled, specialty))
	}
	return enabled
}

// SendChatMessage appends the text to the log and sends it to the agent.
// Empty or whitespace-only input, or a closed session, is a no-op.
func (c *Controller) SendChatMessage(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	c.mu.Lock()
	connected := c.state == StateConnected
	room := c.room
	c.mu.Unlock()
	if !connected {
		return
	}

	c.appendChat("user", text)
	c.publish(room, encodeChatMessage(text, c.now()))
}

// SetSpecialty updates the shared specialty focus, persists it as a
// preference, records the studied specialty, and broadcasts the focus to
// the agent when connected.
func (c *Controller) SetSpecialty(specialty string) {
	if specialty == "" {
		return
	}

	c.mu.Lock()
	c.specialty = specialty
	room := c.room
	connected := c.state == StateConnected
	c.mu.Unlock()

	prefs, err := c.st.LoadPreferences()
	if err == nil {
		prefs.LastSpecialty = specialty
		if err := c.st.SavePreferences(prefs); err != nil {
			c.logger.Warn("persist specialty preference", zap.Error(err))
		}
	}
	c.recordActivity(store.ActivitySpecialtyStudied, store.Activity{Specialty: specialty})

	if connected {
		c.publish(room, encodeSpecialtyFocus(specialty))
	}
	c.appendChat("system", "Specialty focus set to: "+specialty)
	if c.sink.OnSpecialty != nil {
		c.sink.OnSpecialty(specialty)
	}
	c.notifier.Notify("Specialty focus set to: "+specialty, notify.Success)
}

// RecordQuizCompleted bumps the quiz counter and surfaces any newly
// unlocked achievements.
func (c *Controller) RecordQuizCompleted() {
	c.recordActivity(store.ActivityQuizCompleted, store.Activity{})
}

// Transcript returns a copy of the in-progress transcript buffer.
func (c *Controller) Transcript() []store.TranscriptMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]store.TranscriptMessage, len(c.buffer))
	copy(out, c.buffer)
	return out
}

// Autosave persists the durable session flag. Called from the UI's
// periodic tick; mutation-time persistence already covers the rest.
func (c *Controller) Autosave() {
	if err := c.st.SetSessionActive(c.Connected()); err != nil {
		c.logger.Warn("autosave session flag", zap.Error(err))
	}
}

// --- transport event reactions ---

func (c *Controller) handleParticipantJoined(identity string) {
	c.logger.Info("participant joined", zap.String("identity", identity))
	c.appendChat("system", "Dr. Kay has joined the session")
}

func (c *Controller) handleTrackSubscribed(kind transport.TrackKind) {
	if c.sink.OnTrackSubscribed != nil {
		c.sink.OnTrackSubscribed(kind)
	}
}

func (c *Controller) handleQuality(q transport.Quality) {
	if c.sink.OnQuality != nil {
		c.sink.OnQuality(transport.TierOf(q))
	}
}

func (c *Controller) handleRemoteDisconnect(reason string) {
	c.mu.Lock()
	if c.state != StateConnected {
		c.mu.Unlock()
		return
	}
	c.state = StateDisconnected
	c.room = nil
	c.mu.Unlock()
	c.emitState(StateDisconnected)

	if err := c.st.SetSessionActive(false); err != nil {
		c.logger.Warn("persist session flag", zap.Error(err))
	}
	c.logger.Info("remote disconnect", zap.String("reason", reason))
	c.appendChat("system", "Connection lost. Please try reconnecting.")
	c.notifier.Notify("Disconnected from Dr. Kay", notify.Error)
}

// handleData dispatches a structured data message by its type tag. Unknown
// types are logged and dropped, never fatal.
func (c *Controller) handleData(payload []byte) {
	msg, err := DecodeInbound(payload)
	if err != nil {
		c.logger.Debug("dropped data message", zap.Error(err))
		return
	}

	switch m := msg.(type) {
	case ChatResponse:
		c.appendChat("assistant", m.Message)
	case QuizQuestion:
		c.appendChat("assistant", "Quiz Question: "+m.Text)
		for i, opt := range m.Options {
			c.appendChat("assistant", fmt.Sprintf("%c) %s", 'A'+i, opt))
		}
	case CalculationResult:
		line := fmt.Sprintf("Calculation Result: %s = %s", m.Description, m.Value)
		if m.Unit != "" {
			line += " " + m.Unit
		}
		c.appendChat("assistant", line)
		if m.Interpretation != "" {
			c.appendChat("assistant", "Clinical Interpretation: "+m.Interpretation)
		}
	case StudyPlanNotice:
		c.appendChat("assistant", "Study Plan Created: "+m.Title)
		c.appendChat("assistant", fmt.Sprintf("Duration: %s, Focus: %s", m.Duration, strings.Join(m.FocusAreas, ", ")))
	}
}

// --- internals ---

func (c *Controller) appendChat(sender, message string) {
	entry := store.TranscriptMessage{
		Sender:    sender,
		Message:   message,
		Timestamp: c.now(),
	}
	c.mu.Lock()
	c.buffer = append(c.buffer, entry)
	c.mu.Unlock()

	if c.sink.OnChat != nil {
		c.sink.OnChat(entry)
	}
}

func (c *Controller) publish(room transport.Room, payload []byte) {
	if room == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := room.PublishData(ctx, payload); err != nil {
		c.logger.Warn("publish data", zap.Error(err))
	}
}

func (c *Controller) recordActivity(kind store.ActivityKind, payload store.Activity) {
	unlocked, err := c.st.RecordActivity(kind, payload)
	if err != nil {
		c.logger.Warn("record activity", zap.String("kind", string(kind)), zap.Error(err))
		return
	}
	for _, a := range unlocked {
		c.notifier.NotifyFor("Achievement Unlocked: "+a.Title, notify.Success, 5*time.Second)
	}
}

func (c *Controller) setState(s ConnState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.emitState(s)
}

func (c *Controller) emitState(s ConnState) {
	if c.sink.OnState != nil {
		c.sink.OnState(s)
	}
}
