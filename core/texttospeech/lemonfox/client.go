// Package lemonfox implements the speech synthesis client for LemonFox's
// OpenAI-compatible text-to-speech API.
package lemonfox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel/codes"

	"github.com/lovrenc-k/voxloop/core/audio"
	"github.com/lovrenc-k/voxloop/core/texttospeech"
	"github.com/lovrenc-k/voxloop/internal/httpx"
)

// ErrEmptyInput is returned when Synthesize is called with blank text.
var ErrEmptyInput = errors.New("text-to-speech input cannot be empty")

type Client struct {
	apiKey      string
	url         string
	fallbackURL string

	model          string
	voice          string
	language       string
	responseFormat string
	speed          float64

	httpClient *http.Client
}

type ClientOption func(*Client)

// WithHTTPClient overrides the shared pooled client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithFallbackURL sets a secondary endpoint tried when the primary fails.
func WithFallbackURL(url string) ClientOption {
	return func(c *Client) { c.fallbackURL = url }
}

func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

func WithVoice(voice string) ClientOption {
	return func(c *Client) { c.voice = voice }
}

func WithLanguage(language string) ClientOption {
	return func(c *Client) { c.language = language }
}

func WithResponseFormat(format string) ClientOption {
	return func(c *Client) { c.responseFormat = format }
}

func WithSpeed(speed float64) ClientOption {
	return func(c *Client) { c.speed = speed }
}

func NewClient(apiKey, url string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:         apiKey,
		url:            url,
		model:          "tts-1",
		voice:          "heart",
		language:       "en-us",
		responseFormat: "wav",
		speed:          1.0,
		httpClient:     httpx.SharedClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type synthesisRequest struct {
	Model          string  `json:"model"`
	Voice          string  `json:"voice"`
	Input          string  `json:"input"`
	Language       string  `json:"language"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed"`
}

// Synthesize turns one sentence into audio bytes in the configured response
// format. Bodies that do not sniff as a known audio container but carry a
// readable message are treated as API errors.
func (c *Client) Synthesize(ctx context.Context, text string, opts ...texttospeech.SynthesisOption) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "synthesize sentence")
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	options := texttospeech.SynthesisOptions{
		Voice:          c.voice,
		Language:       c.language,
		ResponseFormat: c.responseFormat,
		Speed:          c.speed,
	}
	for _, opt := range opts {
		opt.Apply(&options)
	}

	payload, err := json.Marshal(synthesisRequest{
		Model:          c.model,
		Voice:          options.Voice,
		Input:          text,
		Language:       options.Language,
		ResponseFormat: options.ResponseFormat,
		Speed:          options.Speed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode synthesis request: %w", err)
	}

	endpoints := []string{c.url}
	if c.fallbackURL != "" && c.fallbackURL != c.url {
		endpoints = append(endpoints, c.fallbackURL)
	}

	var lastErr error
	for _, endpoint := range endpoints {
		audioBytes, err := c.send(ctx, endpoint, payload)
		if err == nil {
			return audioBytes, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.WarnContext(ctx, "synthesis request failed", "endpoint", endpoint, "error", err)
		lastErr = err
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	return nil, lastErr
}

func (c *Client) send(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesis response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		if detail := payloadMessage(body); detail != "" {
			return nil, fmt.Errorf("synthesis request failed with HTTP %d: %s", resp.StatusCode, detail)
		}
		return nil, fmt.Errorf("synthesis request failed with HTTP %d", resp.StatusCode)
	}

	if audio.DetectFormat(body) != audio.FormatUnknown {
		return body, nil
	}

	// The API sometimes answers 200 with a textual error instead of audio.
	if detail := payloadMessage(body); detail != "" {
		contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
		if contentType == "" {
			contentType = "unknown content-type"
		}
		return nil, fmt.Errorf("synthesis API returned %s instead of audio: %s", contentType, detail)
	}
	return body, nil
}

// payloadMessage extracts a human-readable error message from a response
// body. Returns "" when the body is binary or blank.
func payloadMessage(body []byte) string {
	text := decodeTextPayload(body)
	if text == "" {
		return ""
	}
	if text[0] == '{' || text[0] == '[' {
		var parsed any
		if err := json.Unmarshal([]byte(text), &parsed); err == nil {
			if extracted := extractMessage(parsed); extracted != "" {
				return extracted
			}
		}
	}
	return text
}

const textPayloadSniffLimit = 8192

func decodeTextPayload(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	snippet := body
	if len(snippet) > textPayloadSniffLimit {
		snippet = snippet[:textPayloadSniffLimit]
	}
	text := strings.TrimSpace(string(snippet))
	if text == "" {
		return ""
	}
	printable := 0
	runes := []rune(text)
	for _, r := range runes {
		if unicode.IsPrint(r) || r == '\r' || r == '\n' || r == '\t' {
			printable++
		}
	}
	if float64(printable)/float64(len(runes)) < 0.9 {
		return ""
	}
	return text
}

func extractMessage(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		if inner, ok := v["error"]; ok {
			if extracted := extractMessage(inner); extracted != "" {
				return extracted
			}
		}
		for _, key := range []string{"message", "detail", "description"} {
			if inner, ok := v[key]; ok {
				if extracted := extractMessage(inner); extracted != "" {
					return extracted
				}
			}
		}
		return ""
	case []any:
		for _, item := range v {
			if extracted := extractMessage(item); extracted != "" {
				return extracted
			}
		}
		return ""
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
