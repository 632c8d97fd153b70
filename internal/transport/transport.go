// Package transport defines the realtime collaborator contract: a room the
// client connects to, local media acquisition, and the events the room
// delivers. The gateway owns track negotiation; this side only publishes
// intent and reacts to events.
package transport

import "context"

// TrackKind identifies a media track.
type TrackKind string

const (
	TrackAudio TrackKind = "audio"
	TrackVideo TrackKind = "video"
)

// Quality is the transport's own connection-quality scale.
type Quality int

const (
	QualityExcellent Quality = iota
	QualityGood
	QualityFair
	QualityPoor
	QualityLost
)

// Tier is the three-level indicator shown to the user.
type Tier int

const (
	TierGood Tier = iota
	TierDegraded
	TierPoor
)

func (t Tier) String() string {
	switch t {
	case TierGood:
		return "good"
	case TierDegraded:
		return "degraded"
	default:
		return "poor"
	}
}

// TierOf collapses the transport quality scale to the user-facing tiers.
func TierOf(q Quality) Tier {
	switch q {
	case QualityExcellent, QualityGood:
		return TierGood
	case QualityFair:
		return TierDegraded
	default:
		return TierPoor
	}
}

// LocalMedia describes the tracks acquired from the local devices.
type LocalMedia struct {
	Audio bool
	Video bool
}

// RoomOptions carries the per-session audio/video quality configuration.
type RoomOptions struct {
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
	VideoWidth       int
	VideoHeight      int
	VideoFrameRate   int
}

// DefaultRoomOptions matches the session profile used for tutoring: clean
// speech, modest video.
func DefaultRoomOptions() RoomOptions {
	return RoomOptions{
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
		VideoWidth:       1280,
		VideoHeight:      720,
		VideoFrameRate:   15,
	}
}

// Handlers receives room events. All callbacks are optional and are invoked
// from the room's read loop.
type Handlers struct {
	OnParticipantJoined func(identity string)
	OnTrackSubscribed   func(kind TrackKind)
	OnData              func(payload []byte)
	OnQualityChanged    func(q Quality)
	OnDisconnected      func(reason string)
}

// Room is an open connection to the remote agent.
type Room interface {
	// PublishData sends a structured payload over the reliable data
	// channel.
	PublishData(ctx context.Context, payload []byte) error
	// SetTrackEnabled flips a published local track on or off.
	SetTrackEnabled(kind TrackKind, enabled bool) error
	// Disconnect tears the room down. Safe to call more than once.
	Disconnect(ctx context.Context) error
}

// Connector opens rooms.
type Connector interface {
	Connect(ctx context.Context, token string, media LocalMedia, opts RoomOptions, h Handlers) (Room, error)
}

// MediaAcquirer obtains local capture tracks. Acquisition failure means
// permission or device trouble and is always retryable.
type MediaAcquirer interface {
	Acquire(ctx context.Context, wantVideo bool) (LocalMedia, error)
}
