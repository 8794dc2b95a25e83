// Package lemonfox implements the transcription client for LemonFox's
// whisper-compatible speech-to-text API.
package lemonfox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/codes"

	"github.com/lovrenc-k/voxloop/core/speechtotext"
	"github.com/lovrenc-k/voxloop/internal/httpx"
)

type Client struct {
	apiKey      string
	url         string
	fallbackURL string

	language       string
	responseFormat string

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

// WithLanguage sets the default transcription language. Per-request options
// still override it.
func WithLanguage(language string) ClientOption {
	return func(c *Client) {
		if language != "" {
			c.language = language
		}
	}
}

// WithResponseFormat sets the default response format ("json" or a plain
// text format).
func WithResponseFormat(format string) ClientOption {
	return func(c *Client) {
		if format != "" {
			c.responseFormat = format
		}
	}
}

func NewClient(apiKey, url string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:         apiKey,
		url:            url,
		language:       "english",
		responseFormat: "json",
		httpClient:     httpx.SharedClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe uploads one audio chunk and returns the recognized text. An
// empty string means the API heard nothing usable; that is not an error.
func (c *Client) Transcribe(ctx context.Context, audio []byte, opts ...speechtotext.TranscriptionOption) (string, error) {
	ctx, span := tracer.Start(ctx, "transcribe audio chunk")
	defer span.End()

	options := speechtotext.TranscriptionOptions{
		Language:       c.language,
		ResponseFormat: c.responseFormat,
		Filename:       "audio.wav",
	}
	for _, opt := range opts {
		opt.Apply(&options)
	}

	endpoints := []string{c.url}
	if c.fallbackURL != "" && c.fallbackURL != c.url {
		endpoints = append(endpoints, c.fallbackURL)
	}

	var lastErr error
	for _, endpoint := range endpoints {
		text, err := c.send(ctx, endpoint, audio, options)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		logger.WarnContext(ctx, "transcription request failed", "endpoint", endpoint, "error", err)
		lastErr = err
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	return "", lastErr
}

func (c *Client) send(ctx context.Context, endpoint string, audio []byte, options speechtotext.TranscriptionOptions) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("language", options.Language); err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}
	if err := form.WriteField("response_format", options.ResponseFormat); err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}
	part, err := form.CreateFormFile("file", options.Filename)
	if err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read transcription response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("transcription request failed with HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if strings.EqualFold(options.ResponseFormat, "json") {
		text, err := extractTextFromJSON(raw)
		if err != nil {
			return "", err
		}
		return text, nil
	}

	// Plain-text formats: some deployments still answer JSON, so salvage the
	// text field when the body looks like it.
	bodyText := string(raw)
	if looksLikeJSON(bodyText) {
		if text, err := extractTextFromJSON(raw); err == nil && text != "" {
			logger.WarnContext(ctx, "transcription returned JSON for a text format; using extracted text field",
				"response_format", options.ResponseFormat)
			return text, nil
		}
	}
	return strings.TrimSpace(bodyText), nil
}

func looksLikeJSON(text string) bool {
	value := strings.TrimLeft(text, " \t\r\n")
	return value != "" && (value[0] == '{' || value[0] == '[')
}

type transcriptionPayload struct {
	Text     string `json:"text"`
	Segments []struct {
		Text string `json:"text"`
	} `json:"segments"`
}

func extractTextFromJSON(raw []byte) (string, error) {
	var payload transcriptionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("transcription response was not valid JSON: %w", err)
	}
	if text := strings.TrimSpace(payload.Text); text != "" {
		return text, nil
	}
	var pieces []string
	for _, segment := range payload.Segments {
		if text := strings.TrimSpace(segment.Text); text != "" {
			pieces = append(pieces, text)
		}
	}
	return strings.Join(pieces, " "), nil
}
