package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// envelope frames every message on the gateway socket.
type envelope struct {
	Type     string          `json:"type"`
	Identity string          `json:"identity,omitempty"`
	Kind     string          `json:"kind,omitempty"`
	Enabled  *bool           `json:"enabled,omitempty"`
	Quality  string          `json:"quality,omitempty"`
	Reason   string          `json:"reason,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Media    *LocalMedia     `json:"media,omitempty"`
	Options  *RoomOptions    `json:"options,omitempty"`
}

// GatewayConnector opens rooms against the realtime gateway over a single
// websocket carrying both room events and the reliable data channel.
type GatewayConnector struct {
	URL    string
	Logger *zap.Logger
}

func NewGatewayConnector(url string, logger *zap.Logger) *GatewayConnector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GatewayConnector{URL: url, Logger: logger}
}

func (c *GatewayConnector) Connect(ctx context.Context, token string, media LocalMedia, opts RoomOptions, h Handlers) (Room, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, _, err := websocket.Dial(ctx, c.URL, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return nil, fmt.Errorf("dial gateway: %w", err)
	}

	r := &gatewayRoom{
		conn:   conn,
		h:      h,
		logger: c.Logger,
		done:   make(chan struct{}),
	}

	// Announce local tracks and session quality before anything else.
	join := envelope{Type: "join", Media: &media, Options: &opts}
	if err := r.write(ctx, join); err != nil {
		conn.Close(websocket.StatusInternalError, "join failed")
		return nil, fmt.Errorf("join room: %w", err)
	}

	go r.readLoop()
	return r, nil
}

type gatewayRoom struct {
	conn   *websocket.Conn
	h      Handlers
	logger *zap.Logger

	writeMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
}

func (r *gatewayRoom) PublishData(ctx context.Context, payload []byte) error {
	return r.write(ctx, envelope{Type: "data", Payload: payload})
}

func (r *gatewayRoom) SetTrackEnabled(kind TrackKind, enabled bool) error {
	e := enabled
	return r.write(context.Background(), envelope{Type: "track", Kind: string(kind), Enabled: &e})
}

func (r *gatewayRoom) Disconnect(ctx context.Context) error {
	var err error
	r.closeOnce.Do(func() {
		close(r.done)
		err = r.conn.Close(websocket.StatusNormalClosure, "session ended")
	})
	return err
}

func (r *gatewayRoom) write(ctx context.Context, e envelope) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.conn.Write(ctx, websocket.MessageText, data)
}

func (r *gatewayRoom) readLoop() {
	ctx := context.Background()
	for {
		select {
		case <-r.done:
			return
		default:
		}

		_, data, err := r.conn.Read(ctx)
		if err != nil {
			select {
			case <-r.done:
				// Local disconnect already reported.
			default:
				if r.h.OnDisconnected != nil {
					r.h.OnDisconnected("connection lost")
				}
			}
			return
		}

		var e envelope
		if err := json.Unmarshal(data, &e); err != nil {
			r.logger.Debug("unreadable gateway frame", zap.Error(err))
			continue
		}
		r.dispatch(e)
	}
}

func (r *gatewayRoom) dispatch(e envelope) {
	switch e.Type {
	case "participant_joined":
		if r.h.OnParticipantJoined != nil {
			r.h.OnParticipantJoined(e.Identity)
		}
	case "track_subscribed":
		if r.h.OnTrackSubscribed != nil {
			r.h.OnTrackSubscribed(TrackKind(e.Kind))
		}
	case "data":
		if r.h.OnData != nil {
			r.h.OnData(e.Payload)
		}
	case "quality":
		if r.h.OnQualityChanged != nil {
			r.h.OnQualityChanged(ParseQuality(e.Quality))
		}
	case "bye":
		if r.h.OnDisconnected != nil {
			r.h.OnDisconnected(e.Reason)
		}
	default:
		r.logger.Debug("unknown gateway event", zap.String("type", e.Type))
	}
}

// ParseQuality maps the gateway's quality labels onto the Quality scale.
// Unknown labels count as lost.
func ParseQuality(label string) Quality {
	switch label {
	case "excellent":
		return QualityExcellent
	case "good":
		return QualityGood
	case "fair":
		return QualityFair
	case "poor":
		return QualityPoor
	default:
		return QualityLost
	}
}
