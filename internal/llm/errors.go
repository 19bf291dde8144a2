package llm

import "errors"

// Input validation errors. Both are returned before any remote call is made.
var (
	ErrEmptyInput   = errors.New("text cannot be empty")
	ErrInputTooLong = errors.New("text is too long")
)

const (
	msgUpstreamFailed = "Failed to process text. Please try again."
	msgNoResponse     = "No response from AI"
)

// UpstreamError reports a failed segmentation call. Error returns a generic,
// user-presentable message; the underlying cause is only reachable through
// Unwrap and is meant for logs.
type UpstreamError struct {
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return msgUpstreamFailed
	}
	return e.Message
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
