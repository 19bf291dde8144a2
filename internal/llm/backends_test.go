package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// geminiReply is a generateContent response carrying one text part.
const geminiReply = `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"segments\":[\"私\",\"学校\"]}"}]}}]}`

// fakeGemini records the last request and answers like the Gemini REST API.
type fakeGemini struct {
	mu   sync.Mutex
	path string
	body map[string]any
	hits int
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	f.mu.Lock()
	f.path = r.URL.Path
	f.body = body
	f.hits++
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if strings.HasSuffix(r.URL.Path, ":streamGenerateContent") {
		fmt.Fprint(w, "["+geminiReply+"]")
		return
	}
	fmt.Fprint(w, geminiReply)
}

// lookup walks nested JSON objects and arrays by key or index.
func lookup(v any, keys ...any) any {
	for _, k := range keys {
		switch key := k.(type) {
		case string:
			m, ok := v.(map[string]any)
			if !ok {
				return nil
			}
			v = m[key]
		case int:
			s, ok := v.([]any)
			if !ok || key >= len(s) {
				return nil
			}
			v = s[key]
		}
	}
	return v
}

func TestBackends_WireRequest(t *testing.T) {
	tests := []struct {
		backend    string
		wantPath   string
		wantSchema bool
		// object, array, string as each SDK encodes them
		schemaTypes [3]string
	}{
		{BackendGenAI, "/v1beta/models/gemini-2.5-flash:generateContent", true, [3]string{"OBJECT", "ARRAY", "STRING"}},
		{BackendGenerativeAI, "/v1beta/models/gemini-2.5-flash:generateContent", true, [3]string{"6", "5", "1"}},
		{BackendLangChain, "/v1beta/models/gemini-2.5-flash:streamGenerateContent", false, [3]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			fake := &fakeGemini{}
			srv := httptest.NewServer(fake)
			defer srv.Close()

			c, err := NewClient(context.Background(), Options{
				APIKey:      "test-key",
				APIEndpoint: srv.URL,
				Backend:     tt.backend,
				Model:       "gemini-2.5-flash",
				Temperature: 0.2,
			})
			if err != nil {
				t.Fatalf("NewClient: %v", err)
			}
			defer c.Close()

			got, err := c.Segment(context.Background(), "私は学校へ行きます。")
			if err != nil {
				t.Fatalf("Segment: %v", err)
			}
			if !reflect.DeepEqual(got, []string{"私", "学校"}) {
				t.Errorf("segments = %#v", got)
			}

			fake.mu.Lock()
			defer fake.mu.Unlock()
			if fake.hits != 1 {
				t.Fatalf("server hits = %d, want 1", fake.hits)
			}
			if fake.path != tt.wantPath {
				t.Errorf("path = %q, want %q", fake.path, tt.wantPath)
			}

			body := fake.body
			if got := lookup(body, "systemInstruction", "parts", 0, "text"); got != segmentSystemPrompt {
				t.Errorf("systemInstruction = %v", got)
			}
			contents, _ := lookup(body, "contents").([]any)
			if len(contents) == 0 {
				t.Fatal("request has no contents")
			}
			userText, _ := lookup(contents[len(contents)-1], "parts", 0, "text").(string)
			if !strings.Contains(userText, "Text to analyze:\n私は学校へ行きます。") {
				t.Errorf("user prompt does not carry the input verbatim: %q", userText)
			}
			if strings.Contains(userText, segmentSystemPrompt) {
				t.Error("system role leaked into the user prompt")
			}

			if got := lookup(body, "generationConfig", "responseMimeType"); got != "application/json" {
				t.Errorf("responseMimeType = %v", got)
			}
			temp, _ := lookup(body, "generationConfig", "temperature").(float64)
			if math.Abs(temp-0.2) > 1e-6 {
				t.Errorf("temperature = %v, want 0.2", temp)
			}

			schema := lookup(body, "generationConfig", "responseSchema")
			if !tt.wantSchema {
				if schema != nil {
					t.Errorf("unexpected responseSchema %v", schema)
				}
				return
			}
			if got := fmt.Sprint(lookup(schema, "type")); got != tt.schemaTypes[0] {
				t.Errorf("schema type = %s, want %s", got, tt.schemaTypes[0])
			}
			if got := fmt.Sprint(lookup(schema, "properties", "segments", "type")); got != tt.schemaTypes[1] {
				t.Errorf("segments type = %s, want %s", got, tt.schemaTypes[1])
			}
			if got := fmt.Sprint(lookup(schema, "properties", "segments", "items", "type")); got != tt.schemaTypes[2] {
				t.Errorf("items type = %s, want %s", got, tt.schemaTypes[2])
			}
			if got := lookup(schema, "required"); !reflect.DeepEqual(got, []any{"segments"}) {
				t.Errorf("required = %v", got)
			}
		})
	}
}

func TestNewClient_WarnsWhenBackendHasNoSchema(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	defer func() { log.Logger = prev }()

	for _, backend := range []string{BackendGenAI, BackendLangChain} {
		buf.Reset()
		c, err := NewClient(context.Background(), Options{APIKey: "test-key", Backend: backend})
		if err != nil {
			t.Fatalf("%s: NewClient: %v", backend, err)
		}
		c.Close()

		warned := strings.Contains(buf.String(), "no response schema")
		if warned != (backend == BackendLangChain) {
			t.Errorf("%s: schema warning logged = %v", backend, warned)
		}
	}
}
