// ABOUTME: Executor interface definition
// ABOUTME: Contract between media handles and platform implementations

package media

import "github.com/mediarec/mediarec-go/pkg/protocol"

// SuccessFunc receives the value of a resolved call.
type SuccessFunc func(value any)

// FailureFunc receives the terminal error of a failed call.
type FailureFunc func(err error)

// Executor performs actual playback and recording on behalf of handles.
// Implementations deliver at most one terminal outcome per call: either the
// success or the failure callback, once. Both callbacks are optional; nil
// means the caller does not care.
type Executor interface {
	// Call forwards one operation. args[0] is always the handle identifier.
	Call(op protocol.Op, args []any, success SuccessFunc, failure FailureFunc)

	// Capabilities reports what the executor negotiated at startup.
	Capabilities() protocol.Capabilities
}
