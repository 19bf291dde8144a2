package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeGenerator returns a canned reply and records every request.
type fakeGenerator struct {
	mu    sync.Mutex
	reply string
	err   error
	reqs  []generateRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req generateRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.reply, f.err
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reqs)
}

func newTestClient(gen generator) *Client {
	return newClient(gen, Options{Backend: "fake", Model: "test-model", Temperature: 0.2, MaxInputLength: 50})
}

func TestSegment_BlankInputMakesNoCall(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"spaces", "   "},
		{"tabs and newlines", "\t\n \r\n"},
		{"ideographic space", "　　"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{reply: `{"segments":["x"]}`}
			c := newTestClient(gen)

			got, err := c.Segment(context.Background(), tt.in)
			if !errors.Is(err, ErrEmptyInput) {
				t.Fatalf("Segment(%q) err = %v, want ErrEmptyInput", tt.in, err)
			}
			if got != nil {
				t.Errorf("Segment(%q) = %v, want nil", tt.in, got)
			}
			if gen.calls() != 0 {
				t.Errorf("expected no remote call, got %d", gen.calls())
			}
		})
	}
}

func TestSegment_TooLongMakesNoCall(t *testing.T) {
	gen := &fakeGenerator{reply: `{"segments":["x"]}`}
	c := newTestClient(gen)

	_, err := c.Segment(context.Background(), strings.Repeat("あ", 51))
	if !errors.Is(err, ErrInputTooLong) {
		t.Fatalf("err = %v, want ErrInputTooLong", err)
	}
	if gen.calls() != 0 {
		t.Errorf("expected no remote call, got %d", gen.calls())
	}

	// Exactly at the limit is accepted; emoji sequences count as one character.
	if _, err := c.Segment(context.Background(), strings.Repeat("🙋‍♂️", 50)); err != nil {
		t.Errorf("50 graphemes: unexpected error %v", err)
	}
}

func TestSegment_ParsesReply(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  []string
	}{
		{"two segments", `{"segments": ["a","b"]}`, []string{"a", "b"}},
		{"empty array", `{"segments": []}`, []string{}},
		{"code fence", "```json\n{\"segments\":[\"私\",\"行く\"]}\n```", []string{"私", "行く"}},
		{"extra fields ignored", `{"segments":["b","a"],"note":"x"}`, []string{"b", "a"}},
		{"not json", `sorry, I cannot help`, []string{}},
		{"segments missing", `{"words":["a"]}`, []string{}},
		{"segments key case differs", `{"SEGMENTS":["a","b"]}`, []string{}},
		{"segments null", `{"segments":null}`, []string{}},
		{"segments not array", `{"segments":"a b"}`, []string{}},
		{"segments not strings", `{"segments":[1,2]}`, []string{}},
		{"top-level array", `["a","b"]`, []string{}},
		{"top-level null", `null`, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(&fakeGenerator{reply: tt.reply})

			got, err := c.Segment(context.Background(), "私は学校へ行きます。")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got == nil {
				t.Fatal("got nil slice, want non-nil")
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Segment = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestSegment_UpstreamFailure(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	c := newTestClient(&fakeGenerator{err: cause})

	_, err := c.Segment(context.Background(), "こんにちは")
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}
	if err.Error() != msgUpstreamFailed {
		t.Errorf("message = %q, want %q", err.Error(), msgUpstreamFailed)
	}
	if strings.Contains(err.Error(), "connection refused") {
		t.Error("message leaks the underlying error")
	}
	if !errors.Is(err, cause) {
		t.Error("cause should stay reachable through Unwrap")
	}
}

func TestSegment_EmptyReply(t *testing.T) {
	for _, reply := range []string{"", "  \n"} {
		c := newTestClient(&fakeGenerator{reply: reply})

		_, err := c.Segment(context.Background(), "こんにちは")
		var upErr *UpstreamError
		if !errors.As(err, &upErr) {
			t.Fatalf("reply %q: err = %v, want *UpstreamError", reply, err)
		}
		if err.Error() != msgNoResponse {
			t.Errorf("reply %q: message = %q, want %q", reply, err.Error(), msgNoResponse)
		}
	}
}

func TestSegment_RequestShape(t *testing.T) {
	gen := &fakeGenerator{reply: `{"segments":[]}`}
	c := newTestClient(gen)
	text := "  私は今日、電車で学校へ行きました。 "

	if _, err := c.Segment(context.Background(), text); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	req := gen.reqs[0]
	if req.Model != "test-model" {
		t.Errorf("model = %q", req.Model)
	}
	if req.Temperature != 0.2 {
		t.Errorf("temperature = %v, want 0.2", req.Temperature)
	}
	if req.SystemPrompt != segmentSystemPrompt {
		t.Errorf("system prompt = %q", req.SystemPrompt)
	}
	if strings.Contains(req.Prompt, segmentSystemPrompt) {
		t.Error("system role should not be repeated in the per-call prompt")
	}
	if !strings.HasSuffix(req.Prompt, "Text to analyze:\n"+text) {
		t.Errorf("prompt should end with the verbatim text, got %q", req.Prompt)
	}
	for _, n := range []string{"1.", "2.", "3.", "4.", "5."} {
		if !strings.Contains(req.Prompt, "\n"+n+" ") {
			t.Errorf("prompt missing guideline %s", n)
		}
	}
}

func TestSegment_CacheHitSkipsCall(t *testing.T) {
	gen := &fakeGenerator{reply: `{"segments":["私","今日"]}`}
	c := newClient(gen, Options{Model: "m", CacheTTL: time.Minute})

	first, err := c.Segment(context.Background(), "私は今日")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	first[0] = "mutated"

	second, err := c.Segment(context.Background(), "  私は今日  ")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if gen.calls() != 1 {
		t.Errorf("remote calls = %d, want 1", gen.calls())
	}
	if !reflect.DeepEqual(second, []string{"私", "今日"}) {
		t.Errorf("cached result = %v", second)
	}
}

func TestSegment_MalformedReplyNotCached(t *testing.T) {
	gen := &fakeGenerator{reply: `not json`}
	c := newClient(gen, Options{Model: "m", CacheTTL: time.Minute})

	for i := 0; i < 2; i++ {
		if _, err := c.Segment(context.Background(), "私"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if gen.calls() != 2 {
		t.Errorf("remote calls = %d, want 2", gen.calls())
	}
}

func TestSegment_LimiterHonoursContext(t *testing.T) {
	gen := &fakeGenerator{reply: `{"segments":["a"]}`}
	c := newClient(gen, Options{Model: "m", RateInterval: time.Hour, RateBurst: 1})

	if _, err := c.Segment(context.Background(), "a"); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Segment(ctx, "b")
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("err = %v, want *UpstreamError", err)
	}
	if gen.calls() != 1 {
		t.Errorf("remote calls = %d, want 1", gen.calls())
	}
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient(context.Background(), Options{}); err == nil {
		t.Error("expected error for missing api key")
	}
	if _, err := NewClient(context.Background(), Options{APIKey: "k", Backend: "nope"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestEndpointRoundTripper(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	hc := httpClientForEndpoint(srv.URL + "/gemini/")
	if hc == nil {
		t.Fatal("expected client for valid endpoint")
	}
	resp, err := hc.Get("https://generativelanguage.googleapis.com/v1beta/models/x:generateContent?alt=json")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if gotPath != "/gemini/v1beta/models/x:generateContent?alt=json" {
		t.Errorf("rewritten path = %q", gotPath)
	}

	bare := httpClientForEndpoint(srv.URL)
	if bare == nil {
		t.Fatal("expected client for bare host endpoint")
	}
	resp, err = bare.Post("https://generativelanguage.googleapis.com/v1beta/models/x:streamGenerateContent?alt=json", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if gotPath != "/v1beta/models/x:streamGenerateContent?alt=json" {
		t.Errorf("rewritten path for bare host = %q", gotPath)
	}

	if httpClientForEndpoint("not a url") != nil {
		t.Error("expected nil client for invalid endpoint")
	}
}
