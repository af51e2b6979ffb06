// ABOUTME: Standalone local executor backed by device audio output
// ABOUTME: Plays local files and synthesizes status events per handle

package engine

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mediarec/mediarec-go/pkg/media"
	"github.com/mediarec/mediarec-go/pkg/protocol"
)

// Dispatch delivers one status event for a handle identifier. Wired to
// media.Registry.Dispatch in the player app and to the push channel in the
// daemon.
type Dispatch func(id string, msgType protocol.MsgType, value any)

// Engine implements media.Executor against local files and the device audio
// output. Tracks are built on create and rebuilt on demand after release.
type Engine struct {
	log      zerolog.Logger
	dispatch Dispatch
	newTrack trackFactory

	mu      sync.Mutex
	sources map[string]string
	tracks  map[string]track
	volumes map[string]float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithTrackFactory replaces the default file-backed track factory.
func WithTrackFactory(f trackFactory) Option {
	return func(e *Engine) { e.newTrack = f }
}

// New creates an engine that reports status events through dispatch.
func New(dispatch Dispatch, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		log:      logger.With().Str("component", "engine").Logger(),
		dispatch: dispatch,
		newTrack: newFileTrack,
		sources:  make(map[string]string),
		tracks:   make(map[string]track),
		volumes:  make(map[string]float64),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Capabilities reports what this executor supports. Record levels need a
// capture path, which the local engine does not have.
func (e *Engine) Capabilities() protocol.Capabilities {
	return protocol.Capabilities{RecordLevels: protocol.RecordLevelsNone}
}

// Call forwards one operation. Playback failures surface as error status
// events; only calls with per-call callbacks (position, record levels) use
// the failure callback.
func (e *Engine) Call(op protocol.Op, args []any, success media.SuccessFunc, failure media.FailureFunc) {
	id, ok := argString(args, 0)
	if !ok {
		e.log.Error().Str("op", string(op)).Msg("request without handle id")
		if failure != nil {
			failure(&protocol.MediaError{Code: protocol.ErrAborted, Message: "missing handle id"})
		}
		return
	}

	switch op {
	case protocol.OpCreate:
		e.handleCreate(id, args)
	case protocol.OpStartPlaying:
		e.handlePlay(id)
	case protocol.OpPausePlaying:
		e.handlePause(id)
	case protocol.OpStopPlaying:
		e.handleStop(id)
	case protocol.OpSeekTo:
		e.handleSeek(id, args, success, failure)
	case protocol.OpGetCurrentPosition:
		e.handlePosition(id, success, failure)
	case protocol.OpStartRecording, protocol.OpStartRecordingWithCompression,
		protocol.OpStopRecording, protocol.OpPauseRecording, protocol.OpResumeRecording:
		e.pushError(id, &protocol.MediaError{
			Code:    protocol.ErrNotSupported,
			Message: "recording not supported",
		})
	case protocol.OpRecordDbLevel, protocol.OpRecordLevels:
		if failure != nil {
			failure(&protocol.MediaError{
				Code:    protocol.ErrNotSupported,
				Message: "record levels not supported",
			})
		}
	case protocol.OpRelease:
		e.handleRelease(id)
	case protocol.OpSetVolume:
		e.handleVolume(id, args)
	default:
		e.log.Warn().Str("op", string(op)).Str("id", id).Msg("unknown operation")
		if failure != nil {
			failure(&protocol.MediaError{Code: protocol.ErrAborted, Message: "unknown operation"})
		}
	}
}

// handleCreate remembers the source and builds the underlying track
// immediately. Creation failure becomes an error event, never a panic.
func (e *Engine) handleCreate(id string, args []any) {
	src, ok := argString(args, 1)
	if !ok {
		e.pushError(id, &protocol.MediaError{Code: protocol.ErrAborted, Message: "missing source"})
		return
	}

	e.mu.Lock()
	e.sources[id] = src
	e.mu.Unlock()

	if _, me := e.ensureTrack(id); me != nil {
		e.pushError(id, me)
	}
}

func (e *Engine) handlePlay(id string) {
	t, me := e.ensureTrack(id)
	if me != nil {
		e.pushError(id, me)
		return
	}

	e.dispatch(id, protocol.MsgState, int(protocol.StateStarting))
	if err := t.play(); err != nil {
		e.pushError(id, &protocol.MediaError{Code: protocol.ErrDecode, Message: err.Error()})
		return
	}
	e.dispatch(id, protocol.MsgState, int(protocol.StateRunning))
}

func (e *Engine) handlePause(id string) {
	t := e.track(id)
	if t == nil {
		return
	}
	if err := t.pause(); err != nil {
		e.pushError(id, &protocol.MediaError{Code: protocol.ErrDecode, Message: err.Error()})
		return
	}
	e.dispatch(id, protocol.MsgState, int(protocol.StatePaused))
}

// handleStop is pause, then seek to zero, then a synthesized Stopped event.
// A failure at any step is reported and the rest of the sequence skipped.
func (e *Engine) handleStop(id string) {
	t := e.track(id)
	if t == nil {
		e.dispatch(id, protocol.MsgState, int(protocol.StateStopped))
		return
	}

	if err := t.pause(); err != nil {
		e.pushError(id, &protocol.MediaError{Code: protocol.ErrDecode, Message: err.Error()})
		return
	}
	if err := t.seek(0); err != nil {
		e.pushError(id, &protocol.MediaError{Code: protocol.ErrDecode, Message: err.Error()})
		return
	}
	e.dispatch(id, protocol.MsgState, int(protocol.StateStopped))
}

func (e *Engine) handleSeek(id string, args []any, success media.SuccessFunc, failure media.FailureFunc) {
	ms, ok := argNumber(args, 1)
	if !ok {
		e.fail(failure, id, &protocol.MediaError{Code: protocol.ErrAborted, Message: "missing seek position"})
		return
	}

	t, me := e.ensureTrack(id)
	if me != nil {
		e.fail(failure, id, me)
		return
	}
	if err := t.seek(ms); err != nil {
		e.fail(failure, id, &protocol.MediaError{Code: protocol.ErrDecode, Message: err.Error()})
		return
	}
	if success != nil {
		success(ms)
	}
}

func (e *Engine) handlePosition(id string, success media.SuccessFunc, failure media.FailureFunc) {
	t := e.track(id)
	if t == nil {
		if failure != nil {
			failure(&protocol.MediaError{Code: protocol.ErrAborted, Message: "no active media"})
		}
		return
	}
	if success != nil {
		success(t.position())
	}
}

func (e *Engine) handleRelease(id string) {
	e.mu.Lock()
	t := e.tracks[id]
	delete(e.tracks, id)
	e.mu.Unlock()

	if t != nil {
		if err := t.close(); err != nil {
			e.log.Warn().Err(err).Str("id", id).Msg("failed to close track")
		}
	}
}

func (e *Engine) handleVolume(id string, args []any) {
	level, ok := argNumber(args, 1)
	if !ok {
		return
	}

	e.mu.Lock()
	e.volumes[id] = level
	t := e.tracks[id]
	e.mu.Unlock()

	if t != nil {
		t.setVolume(level)
	}
}

// Close releases all live tracks.
func (e *Engine) Close() {
	e.mu.Lock()
	tracks := e.tracks
	e.tracks = make(map[string]track)
	e.mu.Unlock()

	for id, t := range tracks {
		if err := t.close(); err != nil {
			e.log.Warn().Err(err).Str("id", id).Msg("failed to close track")
		}
	}
}

// ensureTrack returns the live track for id, building one from the stored
// source if needed.
func (e *Engine) ensureTrack(id string) (track, *protocol.MediaError) {
	e.mu.Lock()
	t := e.tracks[id]
	src := e.sources[id]
	level, hasLevel := e.volumes[id]
	e.mu.Unlock()

	if t != nil {
		return t, nil
	}
	if src == "" {
		return nil, &protocol.MediaError{Code: protocol.ErrAborted, Message: "no media resource for id"}
	}

	t, err := e.newTrack(src)
	if err != nil {
		return nil, creationError(err)
	}

	t.setOnEnd(func() {
		e.dispatch(id, protocol.MsgState, int(protocol.StateStopped))
	})
	if hasLevel {
		t.setVolume(level)
	}

	e.mu.Lock()
	e.tracks[id] = t
	e.mu.Unlock()

	if d := t.duration(); d >= 0 {
		e.dispatch(id, protocol.MsgDuration, d)
	}

	return t, nil
}

func (e *Engine) track(id string) track {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracks[id]
}

func (e *Engine) pushError(id string, me *protocol.MediaError) {
	e.dispatch(id, protocol.MsgError, me)
}

// fail delivers a per-call failure when a callback was supplied, otherwise
// falls back to the status channel.
func (e *Engine) fail(failure media.FailureFunc, id string, me *protocol.MediaError) {
	if failure != nil {
		failure(me)
		return
	}
	e.pushError(id, me)
}

// creationError translates track construction failures into the fixed error
// code set. "source not supported" normalizes to aborted so callers see the
// same code on every platform.
func creationError(err error) *protocol.MediaError {
	if errors.Is(err, errSourceNotSupported) {
		return &protocol.MediaError{Code: protocol.ErrAborted, Message: err.Error()}
	}
	return &protocol.MediaError{Code: protocol.ErrDecode, Message: err.Error()}
}

func argString(args []any, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	s, ok := args[i].(string)
	return s, ok
}

func argNumber(args []any, i int) (float64, bool) {
	if i >= len(args) {
		return 0, false
	}
	return protocol.CoerceNumber(args[i])
}
