// ABOUTME: Tests for status constants and coercion helpers
// ABOUTME: Verifies state labels, number coercion, and error payloads

package protocol

import "testing"

func TestStateString(t *testing.T) {
	cases := []struct {
		state State
		want  string
	}{
		{StateNone, "None"},
		{StateStarting, "Starting"},
		{StateRunning, "Running"},
		{StatePaused, "Paused"},
		{StateStopped, "Stopped"},
	}

	for _, c := range cases {
		if got := c.state.String(); got != c.want {
			t.Errorf("State(%d).String() = %q, want %q", int(c.state), got, c.want)
		}
	}
}

func TestCoerceNumber(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{float64(4200), 4200, true},
		{int(7), 7, true},
		{int64(9), 9, true},
		{"1234.5", 1234.5, true},
		{"nonsense", 0, false},
		{nil, 0, false},
		{map[string]any{}, 0, false},
	}

	for _, c := range cases {
		got, ok := CoerceNumber(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("CoerceNumber(%v) = (%v, %v), want (%v, %v)", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestCoerceState(t *testing.T) {
	if s, ok := CoerceState(float64(2)); !ok || s != StateRunning {
		t.Errorf("expected Running, got %v (ok=%v)", s, ok)
	}
	if _, ok := CoerceState(float64(42)); ok {
		t.Error("expected out-of-range state to be rejected")
	}
	if _, ok := CoerceState("bogus"); ok {
		t.Error("expected non-numeric state to be rejected")
	}
}

func TestAsMediaError(t *testing.T) {
	me := AsMediaError(map[string]any{"code": float64(1), "message": "boom"})
	if me.Code != ErrAborted {
		t.Errorf("expected aborted code, got %v", me.Code)
	}
	if me.Message != "boom" {
		t.Errorf("expected message boom, got %q", me.Message)
	}

	orig := &MediaError{Code: ErrNetwork, Message: "offline"}
	if got := AsMediaError(orig); got != orig {
		t.Error("expected *MediaError to pass through")
	}

	if got := AsMediaError("raw failure"); got.Message != "raw failure" {
		t.Errorf("expected string to become message, got %q", got.Message)
	}
}

func TestMediaErrorError(t *testing.T) {
	err := &MediaError{Code: ErrDecode, Message: "bad frame"}
	if err.Error() != "decode: bad frame" {
		t.Errorf("unexpected error string: %s", err.Error())
	}

	bare := &MediaError{Code: ErrAborted}
	if bare.Error() != "aborted" {
		t.Errorf("unexpected error string: %s", bare.Error())
	}
}
