package models

import "github.com/snappy-loop/jsl-segmenter/internal/controller"

// SegmentRequest is the body of POST /v1/segment
type SegmentRequest struct {
	Text string `json:"text"`
}

// SegmentResponse is the result of POST /v1/segment
type SegmentResponse struct {
	Segments []string `json:"segments"`
}

// ExamplesResponse lists the sample sentences
type ExamplesResponse struct {
	Examples []string `json:"examples"`
}

// Session command types sent by the browser over /ws.
const (
	CommandInput   = "input"
	CommandSubmit  = "submit"
	CommandClear   = "clear"
	CommandExample = "example"
)

// Session event types sent to the browser over /ws.
const (
	EventExamples = "examples"
	EventState    = "state"
	EventRejected = "rejected"
)

// SessionCommand is one message from the browser.
type SessionCommand struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Index int    `json:"index,omitempty"`
}

// SessionEvent is one message to the browser.
type SessionEvent struct {
	Type     string               `json:"type"`
	State    *controller.Snapshot `json:"state,omitempty"`
	Examples []string             `json:"examples,omitempty"`
	Error    string               `json:"error,omitempty"`
}
