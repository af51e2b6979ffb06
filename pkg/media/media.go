// ABOUTME: Media handle construction and operation forwarding
// ABOUTME: Proxies playback/recording calls to an executor by identifier

package media

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/mediarec/mediarec-go/pkg/protocol"
)

// Callbacks holds the optional per-handle callbacks. Any of them may be nil;
// absence is a no-op, never an error.
type Callbacks struct {
	// OnStatus is invoked with every playback state transition.
	OnStatus func(state protocol.State)

	// OnSuccess is invoked when playback completes naturally.
	OnSuccess func()

	// OnError is invoked with operational failures.
	OnError func(err *protocol.MediaError)
}

// Levels carries record level readings. Db is set in "db" mode, Peak and
// Average in "peak-average" mode.
type Levels struct {
	Db      float64
	Peak    float64
	Average float64
}

// Media is a handle to one media resource session. All operations forward to
// the executor using the handle identifier as the routing key; outcomes
// arrive asynchronously through the registry.
type Media struct {
	id   string
	src  string
	reg  *Registry
	exec Executor
	cb   Callbacks

	mu       sync.Mutex
	state    protocol.State
	duration float64
	position float64
}

// New creates a handle for src, registers it, and issues the create request
// to the executor. Argument validation fails synchronously; executor-side
// creation failure is reported through OnError as an error event instead.
func New(reg *Registry, exec Executor, src string, cb Callbacks) (*Media, error) {
	if reg == nil {
		return nil, fmt.Errorf("media: registry is required")
	}
	if exec == nil {
		return nil, fmt.Errorf("media: executor is required")
	}
	if src == "" {
		return nil, fmt.Errorf("media: source is required")
	}

	m := &Media{
		id:       uuid.New().String(),
		src:      src,
		reg:      reg,
		exec:     exec,
		cb:       cb,
		duration: protocol.DurationUnknown,
	}

	reg.Add(m)
	m.exec.Call(protocol.OpCreate, []any{m.id, m.src}, nil, m.pushError)

	return m, nil
}

// ID returns the handle identifier.
func (m *Media) ID() string { return m.id }

// Source returns the media resource reference.
func (m *Media) Source() string { return m.src }

// State returns the last state observed via status events.
func (m *Media) State() protocol.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Play begins or resumes playback. The state transition is observed
// asynchronously via a status event, not a direct callback.
func (m *Media) Play(options map[string]any) {
	args := []any{m.id, m.src}
	if options != nil {
		args = append(args, options)
	}
	m.exec.Call(protocol.OpStartPlaying, args, nil, m.pushError)
}

// Pause pauses playback.
func (m *Media) Pause() {
	m.exec.Call(protocol.OpPausePlaying, []any{m.id}, nil, m.pushError)
}

// Stop stops playback.
func (m *Media) Stop() {
	m.exec.Call(protocol.OpStopPlaying, []any{m.id}, nil, m.pushError)
}

// SeekTo requests a position change to ms milliseconds. The cached position
// is updated once the executor confirms.
func (m *Media) SeekTo(ms float64) {
	m.exec.Call(protocol.OpSeekTo, []any{m.id, ms}, func(any) {
		m.setPosition(ms)
	}, m.pushError)
}

// Duration returns the last known duration in milliseconds. It never
// triggers I/O; before any duration event it returns DurationUnknown.
func (m *Media) Duration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

// Position returns the last cached playback position in milliseconds.
func (m *Media) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// CurrentPosition queries the executor for the current position. On success
// the cached position is updated through a position status event and the
// caller's success callback receives the value in milliseconds.
func (m *Media) CurrentPosition(success func(ms float64), failure func(err error)) {
	m.exec.Call(protocol.OpGetCurrentPosition, []any{m.id}, func(value any) {
		ms, ok := protocol.CoerceNumber(value)
		if !ok {
			if failure != nil {
				failure(fmt.Errorf("media: non-numeric position value %v", value))
			}
			return
		}
		m.reg.Dispatch(m.id, protocol.MsgPosition, ms)
		if success != nil {
			success(ms)
		}
	}, func(err error) {
		if failure != nil {
			failure(err)
		}
	})
}

// StartRecord begins recording to the handle's source.
func (m *Media) StartRecord() {
	m.exec.Call(protocol.OpStartRecording, []any{m.id, m.src}, nil, m.pushError)
}

// StartRecordWithCompression begins recording with compression options.
func (m *Media) StartRecordWithCompression(options map[string]any) {
	m.exec.Call(protocol.OpStartRecordingWithCompression, []any{m.id, m.src, options}, nil, m.pushError)
}

// StopRecord stops recording.
func (m *Media) StopRecord() {
	m.exec.Call(protocol.OpStopRecording, []any{m.id}, nil, m.pushError)
}

// PauseRecord pauses recording.
func (m *Media) PauseRecord() {
	m.exec.Call(protocol.OpPauseRecording, []any{m.id}, nil, m.pushError)
}

// ResumeRecord resumes recording.
func (m *Media) ResumeRecord() {
	m.exec.Call(protocol.OpResumeRecording, []any{m.id}, nil, m.pushError)
}

// RecordLevels queries the executor for record levels. The message shape is
// fixed by the capability negotiated at startup: a single decibel value or a
// peak/average pair.
func (m *Media) RecordLevels(success func(Levels), failure func(err error)) {
	fail := func(err error) {
		if failure != nil {
			failure(err)
		}
	}

	switch m.exec.Capabilities().RecordLevels {
	case protocol.RecordLevelsDB:
		m.exec.Call(protocol.OpRecordDbLevel, []any{m.id}, func(value any) {
			db, _ := protocol.CoerceNumber(value)
			if success != nil {
				success(Levels{Db: db})
			}
		}, fail)

	case protocol.RecordLevelsPeakAverage:
		m.exec.Call(protocol.OpRecordLevels, []any{m.id}, func(value any) {
			if success == nil {
				return
			}
			var lv Levels
			if fields, ok := value.(map[string]any); ok {
				lv.Peak, _ = protocol.CoerceNumber(fields["peak"])
				lv.Average, _ = protocol.CoerceNumber(fields["average"])
			}
			success(lv)
		}, fail)

	default:
		fail(&protocol.MediaError{
			Code:    protocol.ErrNotSupported,
			Message: "record levels not supported by executor",
		})
	}
}

// Release asks the executor to dispose any underlying native resource. The
// registry entry stays: late events for this identifier are still dispatched
// until the owner removes it.
func (m *Media) Release() {
	m.exec.Call(protocol.OpRelease, []any{m.id}, nil, nil)
}

// SetVolume sets the playback volume (0.0 to 1.0), fire-and-forget.
func (m *Media) SetVolume(level float64) {
	m.exec.Call(protocol.OpSetVolume, []any{m.id, level}, nil, nil)
}

// pushError routes an executor-side failure into the error callback.
func (m *Media) pushError(err error) {
	m.notifyError(protocol.AsMediaError(err))
}

func (m *Media) setState(state protocol.State) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
}

func (m *Media) setDuration(ms float64) {
	m.mu.Lock()
	m.duration = ms
	m.mu.Unlock()
}

func (m *Media) setPosition(ms float64) {
	m.mu.Lock()
	m.position = ms
	m.mu.Unlock()
}

func (m *Media) notifyStatus(state protocol.State) {
	if m.cb.OnStatus != nil {
		m.cb.OnStatus(state)
	}
}

func (m *Media) notifySuccess() {
	if m.cb.OnSuccess != nil {
		m.cb.OnSuccess()
	}
}

func (m *Media) notifyError(err *protocol.MediaError) {
	if m.cb.OnError != nil {
		m.cb.OnError(err)
	}
}
