package agents

import (
	"context"

	"github.com/snappy-loop/jsl-segmenter/internal/llm"
)

// SegmentationAgentImpl wraps llm.Client for segmentation.
type SegmentationAgentImpl struct {
	Client *llm.Client
}

// NewSegmentationAgent returns a SegmentationAgent that delegates to the LLM client.
func NewSegmentationAgent(client *llm.Client) SegmentationAgent {
	return &SegmentationAgentImpl{Client: client}
}

// Segment delegates to llm.Client.Segment.
func (a *SegmentationAgentImpl) Segment(ctx context.Context, text string) ([]string, error) {
	return a.Client.Segment(ctx, text)
}

// SegmentFunc adapts a plain function to SegmentationAgent.
type SegmentFunc func(ctx context.Context, text string) ([]string, error)

// Segment calls f.
func (f SegmentFunc) Segment(ctx context.Context, text string) ([]string, error) {
	return f(ctx, text)
}
