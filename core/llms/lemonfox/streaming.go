// Package lemonfox implements the streaming chat-completion client for
// LemonFox's OpenAI-compatible API.
package lemonfox

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/codes"

	"github.com/lovrenc-k/voxloop/core/llms"
	"github.com/lovrenc-k/voxloop/internal/httpx"
)

const chunkPrefix = "data:"

// endSentinel terminates an SSE chat stream. It is protocol framing, not a
// delta, and is never surfaced to the consumer.
const endSentinel = "[DONE]"

type Client struct {
	apiKey      string
	url         string
	fallbackURL string
	model       string

	httpClient *http.Client
}

type ClientOption func(*Client)

// WithHTTPClient overrides the shared pooled client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithFallbackURL sets a secondary endpoint tried when the primary is
// unreachable before any data has streamed.
func WithFallbackURL(url string) ClientOption {
	return func(c *Client) { c.fallbackURL = url }
}

func NewClient(apiKey, url, model string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		url:        url,
		model:      model,
		httpClient: httpx.SharedClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StreamReply opens one streaming completion for the given conversation. The
// returned stream is lazy: no request is made until Deltas is ranged over.
func (c *Client) StreamReply(_ context.Context, messages []llms.Message) llms.Stream {
	return &stream{client: c, messages: messages}
}

type stream struct {
	client   *Client
	messages []llms.Message
}

type requestBody struct {
	Model    string         `json:"model"`
	Messages []llms.Message `json:"messages"`
	Stream   bool           `json:"stream"`
}

type deltaChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (s *stream) Deltas(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, span := tracer.Start(ctx, "stream chat reply")
		defer span.End()

		payload, err := json.Marshal(requestBody{
			Model:    s.client.model,
			Messages: s.messages,
			Stream:   true,
		})
		if err != nil {
			yield("", fmt.Errorf("error marshalling JSON: %w", err))
			return
		}

		endpoints := []string{s.client.url}
		if fb := s.client.fallbackURL; fb != "" && fb != s.client.url {
			endpoints = append(endpoints, fb)
		}

		var lastErr error
		for _, endpoint := range endpoints {
			started, stopped, err := s.streamEndpoint(ctx, endpoint, payload, yield)
			if err == nil || stopped {
				return
			}
			lastErr = err
			if started {
				// Data already flowed; failing over now would duplicate
				// partial output.
				break
			}
			logger.WarnContext(ctx, "chat stream failed before first delta",
				"endpoint", endpoint, "error", err)
		}

		if !errors.Is(lastErr, context.Canceled) {
			span.RecordError(lastErr)
			span.SetStatus(codes.Error, lastErr.Error())
		}
		yield("", lastErr)
	}
}

// streamEndpoint runs one SSE request. started reports whether any delta was
// yielded; stopped reports that the consumer broke out of the range.
func (s *stream) streamEndpoint(ctx context.Context, endpoint string, payload []byte, yield func(string, error) bool) (started, stopped bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return false, false, fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.client.apiKey)

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return false, false, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, false, fmt.Errorf("%w: non-OK HTTP status: %s", llms.ErrConnection, resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, chunkPrefix) {
			// Comments, event names and keepalives carry no content.
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, chunkPrefix))
		if len(data) == 0 {
			continue
		}
		if data == endSentinel {
			return started, false, nil
		}

		var chunk deltaChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return started, false, fmt.Errorf("%w: %v", llms.ErrMalformedEvent, err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		content := chunk.Choices[0].Delta.Content
		if content == "" {
			continue
		}

		started = true
		if !yield(content, nil) {
			return started, true, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return started, false, classifyTransportErr(err)
	}
	return started, false, fmt.Errorf("%w: stream ended without %s sentinel", llms.ErrMalformedEvent, endSentinel)
}

func classifyTransportErr(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", llms.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", llms.ErrConnection, err)
}
