package agents

import (
	"context"
)

// SegmentationAgent splits text into sign-language glosses.
type SegmentationAgent interface {
	Segment(ctx context.Context, text string) ([]string, error)
}
