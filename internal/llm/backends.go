package llm

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"google.golang.org/api/option"
	unifiedgenai "google.golang.org/genai"
)

const jsonMIMEType = "application/json"

// segmentsDescription documents the single output field for every schema-capable backend.
const segmentsDescription = "A list of segmented words or phrases suitable for Japanese Sign Language representation."

// genAIGenerator uses the unified google.golang.org/genai SDK with a response schema.
type genAIGenerator struct {
	client *unifiedgenai.Client
}

func newGenAIGenerator(ctx context.Context, apiKey, apiEndpoint string) (*genAIGenerator, error) {
	cfg := &unifiedgenai.ClientConfig{
		APIKey:  apiKey,
		Backend: unifiedgenai.BackendGeminiAPI,
	}
	if apiEndpoint != "" {
		cfg.HTTPOptions = unifiedgenai.HTTPOptions{BaseURL: apiEndpoint}
	}
	client, err := unifiedgenai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &genAIGenerator{client: client}, nil
}

// unifiedSegmentsSchema returns the schema {"segments": [string]} for the unified SDK.
func unifiedSegmentsSchema() *unifiedgenai.Schema {
	return &unifiedgenai.Schema{
		Type: unifiedgenai.TypeObject,
		Properties: map[string]*unifiedgenai.Schema{
			"segments": {
				Type:        unifiedgenai.TypeArray,
				Description: segmentsDescription,
				Items:       &unifiedgenai.Schema{Type: unifiedgenai.TypeString},
			},
		},
		Required: []string{"segments"},
	}
}

func (g *genAIGenerator) Generate(ctx context.Context, req generateRequest) (string, error) {
	config := &unifiedgenai.GenerateContentConfig{
		SystemInstruction: unifiedgenai.NewContentFromText(req.SystemPrompt, unifiedgenai.RoleUser),
		Temperature:       unifiedgenai.Ptr(req.Temperature),
		ResponseMIMEType:  jsonMIMEType,
		ResponseSchema:    unifiedSegmentsSchema(),
	}
	resp, err := g.client.Models.GenerateContent(ctx, req.Model, unifiedgenai.Text(req.Prompt), config)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// generativeAIGenerator uses github.com/google/generative-ai-go with a response schema.
type generativeAIGenerator struct {
	client *genai.Client
}

func newGenerativeAIGenerator(ctx context.Context, apiKey, apiEndpoint string) (*generativeAIGenerator, error) {
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if apiEndpoint != "" {
		opts = append(opts, option.WithEndpoint(apiEndpoint))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &generativeAIGenerator{client: client}, nil
}

// segmentsSchema returns the genai.Schema for {"segments": [string]}.
func segmentsSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"segments": {
				Type:        genai.TypeArray,
				Description: segmentsDescription,
				Items:       &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{"segments"},
	}
}

func (g *generativeAIGenerator) Generate(ctx context.Context, req generateRequest) (string, error) {
	model := g.client.GenerativeModel(req.Model)
	model.SetTemperature(req.Temperature)
	model.ResponseMIMEType = jsonMIMEType
	model.ResponseSchema = segmentsSchema()
	model.SystemInstruction = genai.NewUserContent(genai.Text(req.SystemPrompt))

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", err
	}
	return extractTextFromGenaiResponse(resp), nil
}

func (g *generativeAIGenerator) Close() error {
	return g.client.Close()
}

// extractTextFromGenaiResponse returns the concatenated text from the first candidate's parts.
func extractTextFromGenaiResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

// langChainFormatHint spells out the output format, since langchaingo cannot pass a schema.
const langChainFormatHint = `
Response format (STRICT):
- JSON object only (no markdown, no code fences)
- One key "segments" (array of strings)
Example: {"segments":["私","学校","行く"]}`

// langChainGenerator uses langchaingo's googleai model with system + human messages.
type langChainGenerator struct {
	model *googleai.GoogleAI
}

func newLangChainGenerator(ctx context.Context, apiKey, apiEndpoint, model string) (*langChainGenerator, error) {
	opts := []googleai.Option{googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(model)}
	if apiEndpoint != "" {
		if hc := httpClientForEndpoint(apiEndpoint); hc != nil {
			opts = append(opts, googleai.WithHTTPClient(hc))
		}
	}
	m, err := googleai.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &langChainGenerator{model: m}, nil
}

func (g *langChainGenerator) Generate(ctx context.Context, req generateRequest) (string, error) {
	messages := []llms.MessageContent{
		{Role: llms.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextContent{Text: req.SystemPrompt}}},
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextContent{Text: req.Prompt + langChainFormatHint}}},
	}
	resp, err := g.model.GenerateContent(ctx, messages,
		llms.WithModel(req.Model),
		llms.WithTemperature(float64(req.Temperature)),
		llms.WithResponseMIMEType(jsonMIMEType),
	)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}

func (g *langChainGenerator) Close() error {
	return g.model.Close()
}
