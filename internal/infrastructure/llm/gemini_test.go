package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mygovpulse/internal/config"
	"mygovpulse/internal/domain"
)

func TestParseModelJSON(t *testing.T) {
	t.Parallel()

	direct := ParseModelJSON(`{"sentiment":"POSITIVE","score":0.9}`)
	if direct == nil || direct["sentiment"] != "POSITIVE" {
		t.Fatalf("direct JSON not parsed: %v", direct)
	}

	fenced := ParseModelJSON("```json\n{\"sentiment\":\"NEGATIVE\"}\n```")
	if fenced == nil || fenced["sentiment"] != "NEGATIVE" {
		t.Fatalf("fenced JSON not parsed: %v", fenced)
	}

	prose := ParseModelJSON(`Here is the analysis: {"sentiment":"NEUTRAL","score":0.5} as requested.`)
	if prose == nil || prose["sentiment"] != "NEUTRAL" {
		t.Fatalf("embedded JSON not parsed: %v", prose)
	}

	if ParseModelJSON("no json at all") != nil {
		t.Fatalf("prose without JSON must parse to nil")
	}
	if ParseModelJSON("") != nil {
		t.Fatalf("empty output must parse to nil")
	}
}

func TestNewGeminiClientDisabled(t *testing.T) {
	t.Parallel()

	if c := NewGeminiClient(config.GeminiConfig{Model: "gemini-1.5-flash"}, time.Second); c != nil {
		t.Fatalf("missing credential must disable the client")
	}
}

func modelServer(t *testing.T, modelText string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("credential missing from request")
		}

		reply := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{
					"parts": []map[string]string{{"text": modelText}},
				}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply)
	}))
}

func testClient(serverURL string) *GeminiClient {
	return NewGeminiClient(config.GeminiConfig{
		Endpoint: serverURL,
		Model:    "gemini-1.5-flash",
		APIKey:   "test-key",
	}, 5*time.Second)
}

func TestGeminiAnalyze(t *testing.T) {
	t.Parallel()

	server := modelServer(t, `{"sentiment":"POSITIVE","score":0.87,"language":"hi","summary":"short praise"}`)
	defer server.Close()

	result, err := testClient(server.URL).Analyze(context.Background(), "यह बहुत अच्छा है")
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if result == nil {
		t.Fatalf("expected a result")
	}
	if result.Sentiment != domain.SentimentPositive || result.SentimentScore != 0.87 {
		t.Fatalf("unexpected classification: %+v", result)
	}
	if result.Lang != "Hindi" {
		t.Fatalf("language code must normalize to a display name, got %s", result.Lang)
	}
	if result.Summary != "short praise" {
		t.Fatalf("unexpected summary: %s", result.Summary)
	}
}

func TestGeminiAnalyzeUnusableSentiment(t *testing.T) {
	t.Parallel()

	server := modelServer(t, `{"sentiment":"whatever","score":0.9}`)
	defer server.Close()

	result, err := testClient(server.URL).Analyze(context.Background(), "some text")
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if result != nil {
		t.Fatalf("unusable sentiment must discard the whole result, got %+v", result)
	}
}

func TestGeminiAnalyzeScoreClampAndFallbacks(t *testing.T) {
	t.Parallel()

	server := modelServer(t, `{"sentiment":"NEGATIVE","score":1.7}`)
	defer server.Close()

	result, err := testClient(server.URL).Analyze(context.Background(), "this is terrible")
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if result.SentimentScore != 1.0 {
		t.Fatalf("score must clamp to [0,1], got %v", result.SentimentScore)
	}
	if result.Summary != "this is terrible" {
		t.Fatalf("missing summary must fall back to the input text, got %q", result.Summary)
	}
}

func TestGeminiAnalyzeHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota exhausted"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Analyze(context.Background(), "some text")
	if err == nil {
		t.Fatalf("expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error should carry the status: %v", err)
	}
}
