package controller

import "fmt"

// Status is the lifecycle of one analysis attempt.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name produced by MarshalText.
func (s *Status) UnmarshalText(b []byte) error {
	for _, v := range []Status{StatusIdle, StatusLoading, StatusSuccess, StatusError} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(b))
}

// State is the controller's current status with its payload. Success carries
// the segment list, Error carries the message, Idle and Loading carry nothing.
// The zero value is Idle.
type State struct {
	status   Status
	segments []string
	errMsg   string
}

// Idle returns the initial state.
func Idle() State { return State{status: StatusIdle} }

// Loading returns the state of an in-flight request.
func Loading() State { return State{status: StatusLoading} }

// Succeeded returns a success state. A nil or empty list is a valid result.
func Succeeded(segments []string) State {
	return State{status: StatusSuccess, segments: append([]string{}, segments...)}
}

// Failed returns an error state with msg.
func Failed(msg string) State { return State{status: StatusError, errMsg: msg} }

// Status reports which variant s is.
func (s State) Status() Status { return s.status }

// Segments returns a copy of the result list; ok is false unless s is a success.
func (s State) Segments() (segments []string, ok bool) {
	if s.status != StatusSuccess {
		return nil, false
	}
	return append([]string{}, s.segments...), true
}

// ErrorMessage returns the failure message; ok is false unless s is an error.
func (s State) ErrorMessage() (msg string, ok bool) {
	if s.status != StatusError {
		return "", false
	}
	return s.errMsg, true
}
