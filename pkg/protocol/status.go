// ABOUTME: Status constants and payload coercion helpers
// ABOUTME: Defines media states, message kinds, and error codes

package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// DurationUnknown is the cached-duration sentinel before any duration event.
const DurationUnknown = -1

// State is the playback state reported by status events.
type State int

const (
	StateNone State = iota
	StateStarting
	StateRunning
	StatePaused
	StateStopped
)

// String returns a human-readable label for the state.
func (s State) String() string {
	switch s {
	case StateNone:
		return "None"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StatePaused:
		return "Paused"
	case StateStopped:
		return "Stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MsgType identifies the kind of a status event.
type MsgType int

const (
	MsgState    MsgType = 1
	MsgDuration MsgType = 2
	MsgPosition MsgType = 3
	MsgError    MsgType = 9
)

// ErrorCode is one of the small fixed set of media error codes. Platform
// quirks are normalized into this set before callers see them.
type ErrorCode int

const (
	ErrAborted      ErrorCode = 1
	ErrNetwork      ErrorCode = 2
	ErrDecode       ErrorCode = 3
	ErrNotSupported ErrorCode = 4
)

// String returns a human-readable label for the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrAborted:
		return "aborted"
	case ErrNetwork:
		return "network"
	case ErrDecode:
		return "decode"
	case ErrNotSupported:
		return "not supported"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// MediaError is the error payload of a status event or failed call.
type MediaError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message,omitempty"`
}

// Error implements the error interface.
func (e *MediaError) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsMediaError coerces an arbitrary status value into a MediaError. Values
// arriving off the wire decode as generic maps, so all plausible shapes are
// accepted.
func AsMediaError(v any) *MediaError {
	switch e := v.(type) {
	case *MediaError:
		return e
	case MediaError:
		return &e
	case map[string]any:
		me := &MediaError{}
		if code, ok := CoerceNumber(e["code"]); ok {
			me.Code = ErrorCode(code)
		}
		if msg, ok := e["message"].(string); ok {
			me.Message = msg
		}
		return me
	case error:
		return &MediaError{Code: ErrAborted, Message: e.Error()}
	case string:
		return &MediaError{Code: ErrAborted, Message: e}
	default:
		return &MediaError{Code: ErrAborted, Message: fmt.Sprintf("%v", v)}
	}
}

// CoerceNumber converts a status value to a float64. JSON decoding delivers
// numbers as float64, but executors may hand over native integer types.
func CoerceNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// CoerceState converts a status value to a State.
func CoerceState(v any) (State, bool) {
	n, ok := CoerceNumber(v)
	if !ok {
		return StateNone, false
	}
	s := State(int(n))
	if s < StateNone || s > StateStopped {
		return StateNone, false
	}
	return s, true
}
