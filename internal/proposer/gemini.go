package proposer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultRetryAfter applies when a rate-limit reply carries no usable hint
const DefaultRetryAfter = 60 * time.Second

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

var retryDelayPattern = regexp.MustCompile(`"retryDelay"\s*:\s*"(\d+(?:\.\d+)?)s"`)

// GeminiClient proposes plans through the Gemini generateContent endpoint
type GeminiClient struct {
	apiKey       string
	endpoint     string
	client       *http.Client
	defaultRetry time.Duration
	log          *slog.Logger
}

// NewGeminiClient creates a client for baseURL/model:generateContent
func NewGeminiClient(apiKey, baseURL, model string, timeout, defaultRetry time.Duration, logger *slog.Logger) *GeminiClient {
	if defaultRetry <= 0 {
		defaultRetry = DefaultRetryAfter
	}
	return &GeminiClient{
		apiKey:       apiKey,
		endpoint:     fmt.Sprintf("%s/%s:generateContent", strings.TrimRight(baseURL, "/"), model),
		client:       &http.Client{Timeout: timeout},
		defaultRetry: defaultRetry,
		log:          logger,
	}
}

// Propose sends the prompt and returns the first candidate's text
func (g *GeminiClient) Propose(ctx context.Context, prompt string) (string, error) {
	start := time.Now()

	body, err := json.Marshal(geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: &geminiGenerationConfig{Temperature: 0.4, ResponseMIMEType: "application/json"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("proposer request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read proposer response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if rl := g.rateLimit(resp, raw); rl != nil {
			g.log.Warn("Proposer rate limited", "retry_after", rl.RetryAfter, "status", resp.StatusCode)
			return "", rl
		}
		return "", &StatusError{Code: resp.StatusCode, Body: truncate(string(raw), 512)}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode proposer envelope: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", ErrMalformedResponse)
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}

	g.log.Debug("Proposer responded", "bytes", sb.Len(), "duration", time.Since(start))
	return sb.String(), nil
}

// rateLimit detects quota replies: HTTP 429 or a RESOURCE_EXHAUSTED status in the body
func (g *GeminiClient) rateLimit(resp *http.Response, raw []byte) *RateLimitError {
	var ge geminiError
	_ = json.Unmarshal(raw, &ge)

	if resp.StatusCode != http.StatusTooManyRequests && ge.Error.Status != "RESOURCE_EXHAUSTED" {
		return nil
	}
	msg := ge.Error.Message
	if msg == "" {
		msg = truncate(string(raw), 256)
	}
	return &RateLimitError{RetryAfter: retryAfter(resp, raw, g.defaultRetry), Message: msg}
}

// retryAfter prefers the Retry-After header, then a retryDelay field in the payload
func retryAfter(resp *http.Response, raw []byte, fallback time.Duration) time.Duration {
	if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	if m := retryDelayPattern.FindSubmatch(raw); m != nil {
		if secs, err := strconv.ParseFloat(string(m[1]), 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return fallback
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
