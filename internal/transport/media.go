package transport

import (
	"context"
	"fmt"
	"os"
)

// DeviceAcquirer checks that the configured capture devices exist before a
// session starts. The gateway does the actual capture negotiation; this
// probe is what turns a missing microphone into an immediate, retryable
// error instead of a dead session.
type DeviceAcquirer struct {
	AudioPath string
	VideoPath string
}

func (d DeviceAcquirer) Acquire(ctx context.Context, wantVideo bool) (LocalMedia, error) {
	if err := ctx.Err(); err != nil {
		return LocalMedia{}, err
	}

	if _, err := os.Stat(d.AudioPath); err != nil {
		return LocalMedia{}, fmt.Errorf("audio device %s: %w", d.AudioPath, err)
	}

	media := LocalMedia{Audio: true}
	if wantVideo {
		if _, err := os.Stat(d.VideoPath); err != nil {
			return LocalMedia{}, fmt.Errorf("video device %s: %w", d.VideoPath, err)
		}
		media.Video = true
	}
	return media, nil
}
