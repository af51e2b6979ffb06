// ABOUTME: Entry point for the MediaRec player
// ABOUTME: Parses CLI flags and wires the registry, executor, and TUI

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mediarec/mediarec-go/internal/client"
	"github.com/mediarec/mediarec-go/internal/discovery"
	"github.com/mediarec/mediarec-go/internal/engine"
	"github.com/mediarec/mediarec-go/internal/ui"
	"github.com/mediarec/mediarec-go/internal/version"
	"github.com/mediarec/mediarec-go/pkg/media"
	"github.com/mediarec/mediarec-go/pkg/protocol"
)

var (
	src        = flag.String("src", "", "Media source to play (MP3 or FLAC file)")
	serverAddr = flag.String("server", "", "Executor daemon address (host:port); empty = local playback")
	discover   = flag.Bool("discover", false, "Find an executor daemon via mDNS")
	name       = flag.String("name", "", "Player friendly name (default: hostname-mediarec-player)")
	logFile    = flag.String("log-file", "mediarec-player.log", "Log file path")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, log to stderr instead")
)

func main() {
	flag.Parse()

	useTUI := !*noTUI
	logger := setupLogging(useTUI)

	if *src == "" {
		logger.Fatal().Msg("-src is required")
	}

	playerName := *name
	if playerName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		playerName = fmt.Sprintf("%s-mediarec-player", hostname)
	}

	registry := media.NewRegistry(logger)

	// Pick the executor: a remote daemon when one is named or discovered,
	// the local engine otherwise.
	serverAddress := *serverAddr
	if serverAddress == "" && *discover {
		logger.Info().Msg("browsing for executor daemons")
		disc := discovery.NewManager(discovery.Config{ServiceName: playerName}, logger)
		disc.Browse()

		select {
		case daemon := <-disc.Daemons():
			serverAddress = fmt.Sprintf("%s:%d", daemon.Host, daemon.Port)
			logger.Info().Str("addr", serverAddress).Msg("discovered executor daemon")
		case <-time.After(10 * time.Second):
			logger.Fatal().Msg("no executor daemon found after 10 seconds")
		}
		disc.Stop()
	}

	var exec media.Executor
	var shutdown func()

	if serverAddress != "" {
		bridge := client.New(client.Config{
			ServerAddr: serverAddress,
			ClientID:   uuid.New().String(),
			Name:       playerName,
			DeviceInfo: protocol.DeviceInfo{
				ProductName:     version.Product,
				Manufacturer:    version.Manufacturer,
				SoftwareVersion: version.Version,
			},
			Registry: registry,
		}, logger)

		if err := bridge.Connect(); err != nil {
			logger.Fatal().Err(err).Msg("connection failed")
		}
		exec = bridge
		shutdown = bridge.Close
	} else {
		eng := engine.New(registry.Dispatch, logger)
		exec = eng
		shutdown = eng.Close
	}

	// TUI setup
	var tuiProg *tea.Program
	control := ui.NewControl()

	if useTUI {
		prog, err := ui.Run(control)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to start TUI")
		}
		tuiProg = prog
		go tuiProg.Run()
	}

	updateTUI := func(msg ui.StatusMsg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	}

	handle, err := media.New(registry, exec, *src, media.Callbacks{
		OnStatus: func(state protocol.State) {
			logger.Info().Stringer("state", state).Msg("state change")
			s := state
			updateTUI(ui.StatusMsg{State: &s})
		},
		OnSuccess: func() {
			logger.Info().Msg("playback finished")
		},
		OnError: func(err *protocol.MediaError) {
			logger.Error().Err(err).Msg("media error")
			updateTUI(ui.StatusMsg{Err: err.Error()})
		},
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create media handle")
	}

	connected := serverAddress != ""
	updateTUI(ui.StatusMsg{
		Source:     *src,
		ServerName: serverAddress,
		Connected:  &connected,
	})

	handle.Play(nil)

	quit := make(chan struct{})
	go handleControl(handle, control, quit)
	go pollPosition(handle, updateTUI, quit)

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info().Msg("quit requested from TUI")
	case <-sigChan:
		logger.Info().Msg("shutdown signal received")
	}

	handle.Release()
	registry.Remove(handle.ID())
	shutdown()

	logger.Info().Msg("player stopped")
}

// setupLogging configures zerolog. TUI mode logs to the file only so the
// screen stays clean.
func setupLogging(useTUI bool) zerolog.Logger {
	var out *os.File
	if useTUI {
		f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error opening log file: %v\n", err)
			os.Exit(1)
		}
		out = f
	} else {
		out = os.Stderr
	}

	writer := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	return zerolog.New(writer).With().Timestamp().Logger()
}

// handleControl maps TUI commands onto handle operations.
func handleControl(handle *media.Media, control *ui.Control, quit chan struct{}) {
	for {
		select {
		case cmd := <-control.Commands:
			switch cmd {
			case ui.CmdTogglePlay:
				if handle.State() == protocol.StateRunning {
					handle.Pause()
				} else {
					handle.Play(nil)
				}
			case ui.CmdStop:
				handle.Stop()
			case ui.CmdSeekBack:
				pos := handle.Position() - 5000
				if pos < 0 {
					pos = 0
				}
				handle.SeekTo(pos)
			case ui.CmdSeekForward:
				handle.SeekTo(handle.Position() + 5000)
			case ui.CmdQuit:
				close(quit)
				return
			}

		case level := <-control.Volume:
			handle.SetVolume(float64(level) / 100.0)

		case <-quit:
			return
		}
	}
}

// pollPosition keeps the TUI progress display fresh.
func pollPosition(handle *media.Media, updateTUI func(ui.StatusMsg), quit chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			handle.CurrentPosition(func(ms float64) {
				d := handle.Duration()
				updateTUI(ui.StatusMsg{Position: &ms, Duration: &d})
			}, nil)

		case <-quit:
			return
		}
	}
}
