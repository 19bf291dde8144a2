package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rivo/uniseg"
	"github.com/rs/zerolog/log"
)

// segmentSystemPrompt is the fixed role sent separately from the per-call instructions.
const segmentSystemPrompt = "You are an expert Japanese Sign Language interpreter assistant."

// segmentPromptTemplate holds the guidelines; %s is replaced by the user text as-is.
const segmentPromptTemplate = `Analyze the following Japanese text and split it into segments suitable for Japanese Sign Language (JSL).

Guidelines:
1. JSL typically focuses on content words (nouns, verbs, adjectives).
2. Grammatical particles (te, ni, wo, ha) are often omitted or absorbed into the context in signed communication unless strictly necessary for meaning.
3. If a particle changes the meaning significantly, keep it or group it with the relevant noun.
4. Split compound verbs if they represent distinct actions.
5. Return the result strictly as a list of strings representing the "glosses" or concepts to be signed.

Text to analyze:
%s`

// buildSegmentPrompt returns the per-call instructions with the user text embedded verbatim.
func buildSegmentPrompt(text string) string {
	return fmt.Sprintf(segmentPromptTemplate, text)
}

// Segment splits Japanese text into glosses for sign-language interpretation.
//
// Blank input fails with ErrEmptyInput and over-long input with ErrInputTooLong,
// both without a remote call. Transport and service failures, and an empty
// reply, fail with *UpstreamError. A reply that is not a JSON object with a
// string array "segments" yields an empty list and a nil error.
func (c *Client) Segment(ctx context.Context, text string) ([]string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyInput
	}
	graphemes := uniseg.GraphemeClusterCount(trimmed)
	if c.maxInputLength > 0 && graphemes > c.maxInputLength {
		return nil, ErrInputTooLong
	}

	log.Info().
		Str("caller", "Segment").
		Str("backend", c.backend).
		Int("text_graphemes", graphemes).
		Msg("Segmenting text")

	if c.cache != nil {
		if segments, ok := c.cache.get(trimmed); ok {
			log.Info().
				Str("caller", "Segment").
				Int("segments", len(segments)).
				Msg("Using cached segments")
			return segments, nil
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			log.Warn().Err(err).Str("caller", "Segment").Msg("Rate limiter wait aborted")
			return nil, &UpstreamError{Message: msgUpstreamFailed, Err: err}
		}
	}

	raw, err := c.gen.Generate(ctx, generateRequest{
		Model:        c.model,
		SystemPrompt: segmentSystemPrompt,
		Prompt:       buildSegmentPrompt(text),
		Temperature:  c.temperature,
	})
	if err != nil {
		log.Error().Err(err).Str("caller", "Segment").Str("model", c.model).Msg("Gemini API error")
		return nil, &UpstreamError{Message: msgUpstreamFailed, Err: err}
	}
	logGeminiResponse("Segment", raw)

	if strings.TrimSpace(raw) == "" {
		log.Warn().Str("caller", "Segment").Str("model", c.model).Msg("Empty response from model")
		return nil, &UpstreamError{Message: msgNoResponse}
	}

	segments, ok := parseSegments(raw)
	if !ok {
		log.Warn().
			Str("caller", "Segment").
			Int("response_len", len(raw)).
			Msg("Response has no segments array, returning empty result")
		return []string{}, nil
	}

	if c.cache != nil {
		c.cache.set(trimmed, segments)
	}

	log.Info().
		Str("caller", "Segment").
		Int("segments", len(segments)).
		Msg("Text segmentation complete")

	return segments, nil
}

// parseSegments decodes {"segments": [...]} from a model reply. ok is false when
// the reply is not JSON, is not an object, or "segments" is missing, null, or
// not an array of strings. The key match is exact.
func parseSegments(raw string) (segments []string, ok bool) {
	body := stripCodeFence(raw)

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, false
	}
	field, found := payload["segments"]
	if !found {
		return nil, false
	}
	if err := json.Unmarshal(field, &segments); err != nil || segments == nil {
		return nil, false
	}
	return segments, true
}

// stripCodeFence removes a surrounding ```json ... ``` fence, if any.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
