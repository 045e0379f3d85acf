package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"mygovpulse/internal/analyze"
	"mygovpulse/internal/config"
	"mygovpulse/internal/domain"
	"mygovpulse/internal/ports"
)

const analysisPrompt = `You are an expert sentiment and language analyzer for Indian public comments.
Analyze the text and return ONLY JSON in this exact schema:
{"sentiment":"POSITIVE|NEGATIVE|NEUTRAL|UNKNOWN","score":0.0-1.0,"language":"English/Hindi/Tamil/etc","summary":"one short summary"}

Text: %s
`

var (
	codeFenceOpenExpr  = regexp.MustCompile("(?i)^```(?:json)?")
	codeFenceCloseExpr = regexp.MustCompile("```$")
	jsonObjectExpr     = regexp.MustCompile(`(?s)\{.*\}`)
)

// GeminiClient implements ports.ModelClient against the Gemini
// generateContent REST API.
type GeminiClient struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ ports.ModelClient = (*GeminiClient)(nil)

// NewGeminiClient builds a client from configuration. Returns nil when
// the credential is absent so the external tier stays disabled.
func NewGeminiClient(cfg config.GeminiConfig, timeout time.Duration) *GeminiClient {
	if !cfg.Enabled() {
		return nil
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeminiClient{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Analyze asks the model for a full analysis of the comment body. A
// response whose sentiment cannot be normalized is discarded entirely,
// returning (nil, nil) so the caller keeps its local result.
func (c *GeminiClient) Analyze(ctx context.Context, text string) (*domain.Analysis, error) {
	if c == nil {
		return nil, nil
	}

	body, err := json.Marshal(map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{
				{"text": fmt.Sprintf(analysisPrompt, text)},
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s",
		strings.TrimSuffix(c.endpoint, "/"), c.model, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("model error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var reply struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(reply.Candidates) == 0 || len(reply.Candidates[0].Content.Parts) == 0 {
		return nil, nil
	}

	parsed := ParseModelJSON(reply.Candidates[0].Content.Parts[0].Text)
	if parsed == nil {
		return nil, nil
	}

	sentiment := analyze.NormalizeSentiment(stringField(parsed, "sentiment"))
	if sentiment == domain.SentimentUnknown {
		// Model gave no usable label; drop the whole result.
		return nil, nil
	}

	score := floatField(parsed, "score", domain.DefaultSentimentScore(sentiment))
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	summary := stringField(parsed, "summary")
	if summary == "" {
		summary = text
	}

	return &domain.Analysis{
		Sentiment:      sentiment,
		SentimentScore: score,
		Lang:           analyze.NormalizeLanguageName(stringField(parsed, "language")),
		Summary:        analyze.ShortSummary(summary),
	}, nil
}

// ParseModelJSON extracts a JSON object from model output that may be
// wrapped in code fences or surrounded by prose. Strategies run in
// order: fence strip + direct parse, then the first brace-delimited
// block. Returns nil when nothing parses.
func ParseModelJSON(raw string) map[string]any {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil
	}

	if strings.HasPrefix(text, "```") {
		text = strings.TrimSpace(codeFenceOpenExpr.ReplaceAllString(text, ""))
		text = strings.TrimSpace(codeFenceCloseExpr.ReplaceAllString(text, ""))
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(text), &parsed); err == nil {
		return parsed
	}

	block := jsonObjectExpr.FindString(text)
	if block == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(block), &parsed); err != nil {
		return nil
	}
	return parsed
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func floatField(m map[string]any, key string, fallback float64) float64 {
	v, ok := m[key]
	if !ok || v == nil {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return n
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return fallback
}
