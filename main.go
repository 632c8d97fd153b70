package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/Kabungwe/friday-jarvis/internal/config"
	"github.com/Kabungwe/friday-jarvis/internal/logging"
	"github.com/Kabungwe/friday-jarvis/internal/notify"
	"github.com/Kabungwe/friday-jarvis/internal/session"
	"github.com/Kabungwe/friday-jarvis/internal/store"
	"github.com/Kabungwe/friday-jarvis/internal/tools"
	"github.com/Kabungwe/friday-jarvis/internal/transport"
	"github.com/Kabungwe/friday-jarvis/internal/tui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogPath, os.Getenv("DRKAY_DEBUG") != "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening log: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	s, err := store.New(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	prefs, err := s.LoadPreferences()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading preferences: %v\n", err)
		os.Exit(1)
	}

	notifier := notify.New(
		notify.BeeepDesktop{},
		func() bool {
			p, err := s.LoadPreferences()
			return err == nil && p.DesktopNotifications
		},
		logger.Named("notify"),
	)

	connector := transport.NewGatewayConnector(cfg.GatewayURL, logger.Named("transport"))
	media := transport.DeviceAcquirer{AudioPath: cfg.AudioDevice, VideoPath: cfg.VideoDevice}

	bridge := tui.NewEventBridge()
	controller := session.New(s, notifier, connector, media, cfg.GatewayToken, prefs, logger.Named("session"), bridge.Sink())

	client := tools.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)

	// Optional voice activation: an external speech-to-text process can
	// feed recognized phrases, one per line, through a pipe.
	if pipe := os.Getenv("DRKAY_WAKE_PIPE"); pipe != "" {
		f, err := os.Open(pipe)
		if err != nil {
			logger.Warn("wake pipe unavailable", zap.String("path", pipe), zap.Error(err))
		} else {
			listener := session.NewListener(session.NewLineRecognizer(f), controller, logger.Named("wakeword"))
			listener.OnCue = func() {
				notifier.Notify("Heard you! Starting a session...", notify.Info)
			}
			go func() {
				defer f.Close()
				listener.Run(context.Background())
			}()
		}
	}

	app := tui.NewApp(s, controller, notifier, client, bridge, cfg.ExportDir, cfg.AutosaveEvery)
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
