package controller

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/jsl-segmenter/internal/agents"
)

// Command rejections. None of them changes the controller state.
var (
	ErrBusy           = errors.New("analysis already in progress")
	ErrBlankInput     = errors.New("input text is blank")
	ErrUnknownExample = errors.New("unknown example")
	ErrCleared        = errors.New("analysis was cleared before it finished")
)

// fallbackErrorMessage is shown when a failure carries no message of its own.
const fallbackErrorMessage = "解析中にエラーが発生しました。"

// Snapshot is a point-in-time copy of the controller for rendering.
// Segments is nil unless Status is success, so an empty success encodes as [].
type Snapshot struct {
	Input    string   `json:"input"`
	Status   Status   `json:"status"`
	Segments []string `json:"segments"`
	Error    string   `json:"error,omitempty"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithTimeout bounds each submit. Zero or negative disables the deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithOnChange registers fn to receive a snapshot after every change.
// fn runs with the controller locked and must not call back into it.
func WithOnChange(fn func(Snapshot)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithExamples replaces the built-in example sentences.
func WithExamples(examples []string) Option {
	return func(c *Controller) { c.examples = append([]string{}, examples...) }
}

// Controller owns the input text and drives one analysis at a time through a
// SegmentationAgent. It is safe for concurrent use.
type Controller struct {
	agent    agents.SegmentationAgent
	timeout  time.Duration
	onChange func(Snapshot)
	examples []string

	mu      sync.Mutex
	input   string
	state   State
	attempt uint64
	cancel  context.CancelFunc
}

// New returns an idle Controller.
func New(agent agents.SegmentationAgent, opts ...Option) *Controller {
	c := &Controller{
		agent:    agent,
		examples: Examples(),
		state:    Idle(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Examples returns the sentences LoadExample can insert.
func (c *Controller) Examples() []string {
	return append([]string{}, c.examples...)
}

// SetInput replaces the input text.
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = text
	c.notifyLocked()
}

// LoadExample copies example i into the input. It neither submits nor changes the status.
func (c *Controller) LoadExample(i int) error {
	if i < 0 || i >= len(c.examples) {
		return ErrUnknownExample
	}
	c.SetInput(c.examples[i])
	return nil
}

// Submit runs one analysis of the current input and blocks until it settles.
// It returns ErrBlankInput or ErrBusy when the submit is refused, and
// ErrCleared when Clear ran while the request was in flight. Segmentation
// failures are not returned; they end in the Error state.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Status() == StatusLoading {
		c.mu.Unlock()
		return ErrBusy
	}
	text := c.input
	if strings.TrimSpace(text) == "" {
		c.mu.Unlock()
		return ErrBlankInput
	}
	c.attempt++
	attempt := c.attempt
	callCtx, cancel := c.callContext(ctx)
	c.cancel = cancel
	c.state = Loading()
	c.notifyLocked()
	c.mu.Unlock()

	segments, err := c.agent.Segment(callCtx, text)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if attempt != c.attempt {
		return ErrCleared
	}
	c.cancel = nil
	if err != nil {
		log.Warn().Err(errors.Unwrap(err)).Str("error_message", err.Error()).Msg("Segmentation failed")
		c.state = Failed(errorMessage(err))
	} else {
		c.state = Succeeded(segments)
	}
	c.notifyLocked()
	return nil
}

// Clear resets the input and returns to Idle from any state. An in-flight
// request is cancelled and its result discarded.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.attempt++
	c.input = ""
	c.state = Idle()
	c.notifyLocked()
}

// Close cancels any in-flight request without touching the state.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a copy of the input and state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{Input: c.input, Status: c.state.Status()}
	if segments, ok := c.state.Segments(); ok {
		s.Segments = segments
	}
	if msg, ok := c.state.ErrorMessage(); ok {
		s.Error = msg
	}
	return s
}

func (c *Controller) notifyLocked() {
	if c.onChange != nil {
		c.onChange(c.snapshotLocked())
	}
}

func (c *Controller) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}

func errorMessage(err error) string {
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallbackErrorMessage
}
