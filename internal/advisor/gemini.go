package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash"
)

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	// MaxTries bounds attempts including the first one.
	MaxTries uint
}

// GeminiClient talks to the generateContent REST endpoint.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	maxTries   uint
	httpClient *http.Client
	newBackOff func() backoff.BackOff
}

func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = 3
	}
	return &GeminiClient{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxTries:   cfg.MaxTries,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 300 * time.Millisecond
			b.MaxInterval = 3 * time.Second
			return b
		},
	}
}

func (c *GeminiClient) Model() string {
	return c.model
}

func (c *GeminiClient) Configured() bool {
	return c.apiKey != ""
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// BuildPrompt frames the digest for the model and asks for an Indonesian
// answer.
func BuildPrompt(digest, question string) string {
	var b strings.Builder
	b.WriteString("You are an intelligent business assistant for a Building Material Store (Toko Bangunan).\n")
	b.WriteString(digest)
	b.WriteString("\n\nUser Question: ")
	b.WriteString(question)
	b.WriteString("\n\nProvide a concise, professional, and helpful answer in Indonesian.")
	return b.String()
}

func (c *GeminiClient) Ask(ctx context.Context, digest, question string) (string, error) {
	if c.apiKey == "" {
		return "", ErrConfigurationMissing
	}

	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: BuildPrompt(digest, question)}}}},
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrUpstreamFailure, err)
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)

	operation := func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return "", backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		// Kept out of the URL so transport errors never carry it.
		req.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", backoff.Permanent(ctx.Err())
			}
			return "", err
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return "", err
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", fmt.Errorf("gemini status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return "", backoff.Permanent(fmt.Errorf("gemini status %d", resp.StatusCode))
		}

		var decoded geminiResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			return "", backoff.Permanent(fmt.Errorf("parse response: %w", err))
		}
		var text strings.Builder
		if len(decoded.Candidates) > 0 {
			for _, part := range decoded.Candidates[0].Content.Parts {
				text.WriteString(part.Text)
			}
		}
		return strings.TrimSpace(text.String()), nil
	}

	answer, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxTries),
	)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Unwrap()
		}
		return "", fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
	}
	if answer == "" {
		return "", ErrEmptyAnswer
	}
	return answer, nil
}
