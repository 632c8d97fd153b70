package session

import (
	"bufio"
	"context"
	"io"
	"time"

	"go.uber.org/zap"
)

// Recognizer streams recognized phrases from the local microphone. Recv
// blocks until a phrase is available or the context is done.
type Recognizer interface {
	Recv(ctx context.Context) (string, error)
}

const wakeCueDelay = 2 * time.Second

// Listener watches for the wake phrase while no session is running and
// starts one when heard. Recognition errors stop the listener; they are
// logged but never surfaced as failures, the keyboard path still works.
type Listener struct {
	recognizer Recognizer
	controller *Controller
	logger     *zap.Logger

	// OnCue fires when the wake phrase is heard, before the activation
	// delay, so the UI can show a listening cue.
	OnCue func()

	delay func(ctx context.Context, d time.Duration) error
}

// NewListener builds a wake-word listener over the given recognizer.
func NewListener(recognizer Recognizer, controller *Controller, logger *zap.Logger) *Listener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Listener{
		recognizer: recognizer,
		controller: controller,
		logger:     logger,
		delay:      sleepCtx,
	}
}

// Run consumes phrases until the context is done or recognition fails.
func (l *Listener) Run(ctx context.Context) {
	for {
		phrase, err := l.recognizer.Recv(ctx)
		if err != nil {
			if ctx.Err() == nil {
				l.logger.Warn("wake word recognition stopped", zap.Error(err))
			}
			return
		}
		if !matchesWakeWord(phrase) {
			continue
		}
		if l.controller.State() != StateIdle {
			continue
		}

		l.logger.Info("wake word heard", zap.String("phrase", phrase))
		if l.OnCue != nil {
			l.OnCue()
		}
		if err := l.delay(ctx, wakeCueDelay); err != nil {
			return
		}
		if l.controller.State() != StateIdle {
			continue
		}
		if err := l.controller.StartSession(ctx); err != nil {
			l.logger.Warn("wake word session start failed", zap.Error(err))
		}
	}
}

// LineRecognizer reads one recognized phrase per line, typically from a
// named pipe fed by an external speech-to-text process.
type LineRecognizer struct {
	scanner *bufio.Scanner
}

func NewLineRecognizer(r io.Reader) *LineRecognizer {
	return &LineRecognizer{scanner: bufio.NewScanner(r)}
}

func (l *LineRecognizer) Recv(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !l.scanner.Scan() {
		if err := l.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return l.scanner.Text(), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
