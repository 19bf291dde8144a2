package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// maxGeminiResponseLogBytes is the max length of a Gemini response body to log in full (to avoid huge logs).
const maxGeminiResponseLogBytes = 8192

// Supported values for Options.Backend.
const (
	BackendGenAI        = "genai"
	BackendGenerativeAI = "generativeai"
	BackendLangChain    = "langchain"
)

// httpClientForEndpoint returns an http.Client that rewrites request URLs to the given base endpoint (e.g. http://localhost:31300/gemini).
func httpClientForEndpoint(baseEndpoint string) *http.Client {
	base, err := url.Parse(baseEndpoint)
	if err != nil || base.Scheme == "" || base.Host == "" {
		log.Warn().Err(err).Str("endpoint", baseEndpoint).Msg("Invalid GEMINI_API_ENDPOINT, using default")
		return nil
	}
	base.Path = strings.TrimSuffix(base.Path, "/")
	return &http.Client{
		Transport: &endpointRoundTripper{base: base, next: http.DefaultTransport},
	}
}

// endpointRoundTripper rewrites request URLs to a custom base (scheme, host, path prefix).
type endpointRoundTripper struct {
	base *url.URL
	next http.RoundTripper
}

func (e *endpointRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req2 := req.Clone(req.Context())
	req2.URL.Scheme = e.base.Scheme
	req2.URL.Host = e.base.Host
	req2.URL.Path = "/" + strings.TrimPrefix(path.Join(e.base.Path, req.URL.Path), "/")
	req2.URL.RawPath = ""
	req2.Host = ""
	return e.next.RoundTrip(req2)
}

// logGeminiResponse logs Gemini response text, truncating if over maxGeminiResponseLogBytes.
func logGeminiResponse(caller, raw string) {
	if len(raw) <= maxGeminiResponseLogBytes {
		log.Debug().Str("caller", caller).Str("gemini_response", raw).Msg("Gemini response")
		return
	}
	log.Debug().
		Str("caller", caller).
		Str("gemini_response", raw[:maxGeminiResponseLogBytes]+"... [truncated]").
		Int("gemini_response_len", len(raw)).
		Msg("Gemini response")
}

// generateRequest is one structured-output call to a model.
type generateRequest struct {
	Model        string
	SystemPrompt string
	Prompt       string
	Temperature  float32
}

// generator performs a single text-generation call and returns the raw reply text.
type generator interface {
	Generate(ctx context.Context, req generateRequest) (string, error)
}

// Options configures a Client.
type Options struct {
	APIKey      string
	APIEndpoint string // optional Gemini API base URL
	Backend     string // genai (default), generativeai, langchain
	Model       string
	Temperature float64

	MaxInputLength int           // grapheme clusters; 0 means unlimited
	RateInterval   time.Duration // min interval between outbound calls; 0 means unlimited
	RateBurst      int
	CacheTTL       time.Duration // 0 disables the result cache
}

// Client segments text through a Gemini model.
type Client struct {
	backend        string
	model          string
	temperature    float32
	maxInputLength int
	gen            generator
	limiter        *rate.Limiter
	cache          *segmentCache
}

// NewClient creates a Client for the configured backend. The API key is taken
// from opts only; the environment is not consulted.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.Backend == "" {
		opts.Backend = BackendGenAI
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	var (
		gen generator
		err error
	)
	switch opts.Backend {
	case BackendGenAI:
		gen, err = newGenAIGenerator(ctx, opts.APIKey, opts.APIEndpoint)
	case BackendGenerativeAI:
		gen, err = newGenerativeAIGenerator(ctx, opts.APIKey, opts.APIEndpoint)
	case BackendLangChain:
		gen, err = newLangChainGenerator(ctx, opts.APIKey, opts.APIEndpoint, opts.Model)
	default:
		return nil, fmt.Errorf("unknown segment backend %q", opts.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s backend: %w", opts.Backend, err)
	}

	if opts.Backend == BackendLangChain {
		log.Warn().Msg("langchain backend sends no response schema; segments rely on the prompt format hint")
	}

	c := newClient(gen, opts)

	log.Info().
		Str("backend", opts.Backend).
		Str("model", opts.Model).
		Float64("temperature", opts.Temperature).
		Str("api_endpoint", opts.APIEndpoint).
		Dur("rate_interval", opts.RateInterval).
		Dur("cache_ttl", opts.CacheTTL).
		Msg("LLM client initialized")

	return c, nil
}

// newClient wires a Client around an already constructed generator.
func newClient(gen generator, opts Options) *Client {
	c := &Client{
		backend:        opts.Backend,
		model:          opts.Model,
		temperature:    float32(opts.Temperature),
		maxInputLength: opts.MaxInputLength,
		gen:            gen,
	}
	if opts.RateInterval > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Every(opts.RateInterval), burst)
	}
	if opts.CacheTTL > 0 {
		c.cache = newSegmentCache(opts.CacheTTL)
	}
	return c
}

// Close releases backend resources.
func (c *Client) Close() error {
	if closer, ok := c.gen.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
