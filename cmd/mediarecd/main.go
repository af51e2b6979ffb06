// ABOUTME: Entry point for the MediaRec executor daemon
// ABOUTME: Parses CLI flags and serves bridge connections

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mediarec/mediarec-go/internal/discovery"
	"github.com/mediarec/mediarec-go/internal/server"
)

var (
	port   = flag.Int("port", 8931, "WebSocket server port")
	name   = flag.String("name", "", "Daemon friendly name (default: hostname-mediarecd)")
	debug  = flag.Bool("debug", false, "Enable debug logging")
	noMDNS = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
)

func main() {
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(writer).With().Timestamp().Logger().Level(level)

	daemonName := *name
	if daemonName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		daemonName = fmt.Sprintf("%s-mediarecd", hostname)
	}

	logger.Info().Str("name", daemonName).Int("port", *port).Msg("starting mediarecd")

	srv := server.New(server.Config{
		Port: *port,
		Name: daemonName,
	}, logger)

	if !*noMDNS {
		disc := discovery.NewManager(discovery.Config{
			ServiceName: daemonName,
			Port:        *port,
		}, logger)
		if err := disc.Advertise(); err != nil {
			logger.Warn().Err(err).Msg("mDNS advertisement failed")
		}
		defer disc.Stop()
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}

	logger.Info().Msg("daemon stopped")
}
