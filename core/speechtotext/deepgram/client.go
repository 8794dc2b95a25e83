// Package deepgram implements a prerecorded transcription client backed by
// Deepgram's REST API. It is an alternative to the lemonfox transcriber for
// setups that already hold a Deepgram key.
package deepgram

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	listenapi "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/rest"
	clientinterfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces"
	listen "github.com/deepgram/deepgram-go-sdk/pkg/client/listen"
	"go.opentelemetry.io/otel/codes"

	"github.com/lovrenc-k/voxloop/core/speechtotext"
)

type Client struct {
	restClient *listenapi.Client

	model    string
	language string
}

type ClientOption func(*Client)

// WithModel selects the Deepgram model, defaults to nova-2.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithLanguage sets the transcription language code, defaults to en.
func WithLanguage(language string) ClientOption {
	return func(c *Client) { c.language = language }
}

func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		restClient: listenapi.New(listen.NewREST(apiKey, &clientinterfaces.ClientOptions{})),
		model:      "nova-2",
		language:   "en",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Transcribe sends one finished audio chunk and returns the transcript of
// the first channel's best alternative. An empty transcript is not an error.
func (c *Client) Transcribe(ctx context.Context, audio []byte, opts ...speechtotext.TranscriptionOption) (string, error) {
	ctx, span := tracer.Start(ctx, "transcribe audio chunk")
	defer span.End()

	options := speechtotext.TranscriptionOptions{Language: c.language}
	for _, opt := range opts {
		opt.Apply(&options)
	}

	response, err := c.restClient.FromStream(ctx, bytes.NewReader(audio),
		&clientinterfaces.PreRecordedTranscriptionOptions{
			Model:       c.model,
			Language:    options.Language,
			SmartFormat: true,
			Punctuate:   true,
		})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("deepgram transcription request failed: %w", err)
	}

	if len(response.Results.Channels) == 0 ||
		len(response.Results.Channels[0].Alternatives) == 0 {
		logger.WarnContext(ctx, "deepgram returned no transcription alternatives")
		return "", nil
	}
	return strings.TrimSpace(response.Results.Channels[0].Alternatives[0].Transcript), nil
}
