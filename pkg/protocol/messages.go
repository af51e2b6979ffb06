// ABOUTME: MediaRec bridge message type definitions
// ABOUTME: Defines request, handshake, and inbound push structures

package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Service is the namespace tag carried by every executor request.
const Service = "MediaRec"

// Op names a forwarded executor operation.
type Op string

const (
	OpCreate                        Op = "create"
	OpStartPlaying                  Op = "startPlayingAudio"
	OpStopPlaying                   Op = "stopPlayingAudio"
	OpSeekTo                        Op = "seekToAudio"
	OpPausePlaying                  Op = "pausePlayingAudio"
	OpGetCurrentPosition            Op = "getCurrentPositionAudio"
	OpStartRecording                Op = "startRecordingAudio"
	OpStartRecordingWithCompression Op = "startRecordingAudioWithCompression"
	OpStopRecording                 Op = "stopRecordingAudio"
	OpPauseRecording                Op = "pauseRecordingAudio"
	OpResumeRecording               Op = "resumeRecordingAudio"
	OpRecordDbLevel                 Op = "getRecordDbLevel"
	OpRecordLevels                  Op = "getAudioRecordingLevels"
	OpRelease                       Op = "release"
	OpSetVolume                     Op = "setVolume"
)

// Message is the top-level wrapper for client-to-executor messages.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ClientHello is sent to initiate the bridge handshake.
type ClientHello struct {
	ClientID   string      `json:"client_id"`
	Name       string      `json:"name"`
	Version    int         `json:"version"`
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
}

// DeviceInfo contains device identification.
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// ServerHello is the executor's response to client/hello.
type ServerHello struct {
	ServerID     string       `json:"server_id"`
	Name         string       `json:"name"`
	Version      int          `json:"version"`
	Capabilities Capabilities `json:"capabilities"`
}

// Record level reporting modes negotiated at handshake time.
const (
	RecordLevelsNone        = ""
	RecordLevelsDB          = "db"
	RecordLevelsPeakAverage = "peak-average"
)

// Capabilities describes what the executor supports. Selecting the record
// level message shape here replaces runtime platform branching.
type Capabilities struct {
	RecordLevels string `json:"record_levels,omitempty"`
}

// Request is one forwarded operation. Args[0] is always the handle
// identifier. CallID is set only when a per-call result is expected.
type Request struct {
	Service string `json:"service"`
	Op      Op     `json:"op"`
	CallID  string `json:"call_id,omitempty"`
	Args    []any  `json:"args"`
}

// StatusEvent is an identifier-keyed asynchronous notification.
type StatusEvent struct {
	ID      string  `json:"id"`
	MsgType MsgType `json:"msg_type"`
	Value   any     `json:"value,omitempty"`
}

// CallResult is the terminal outcome of a request that carried a call_id.
type CallResult struct {
	CallID string      `json:"call_id"`
	OK     bool        `json:"ok"`
	Value  any         `json:"value,omitempty"`
	Error  *MediaError `json:"error,omitempty"`
}

// Inbound is the envelope for executor-to-client pushes.
type Inbound struct {
	Action string       `json:"action"`
	Status *StatusEvent `json:"status,omitempty"`
	Result *CallResult  `json:"result,omitempty"`
}

// Inbound actions accepted from the executor.
const (
	ActionStatus = "status"
	ActionResult = "result"
)

// ErrUnknownAction reports an inbound message whose action is not part of
// the contract. It fails that message only; the read loop must keep going.
var ErrUnknownAction = errors.New("unknown inbound action")

// DecodeInbound parses an executor push and validates its action.
func DecodeInbound(data []byte) (*Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to parse inbound message: %w", err)
	}

	switch in.Action {
	case ActionStatus:
		if in.Status == nil {
			return nil, fmt.Errorf("status action with no status payload")
		}
	case ActionResult:
		if in.Result == nil {
			return nil, fmt.Errorf("result action with no result payload")
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, in.Action)
	}

	return &in, nil
}
