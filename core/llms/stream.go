package llms

import (
	"context"
	"errors"
	"iter"
)

// Stream is a lazy, finite, non-restartable sequence of reply text deltas.
//
// Deltas may be ranged over at most once. The sequence ends when the server
// signals end-of-stream; protocol lines that carry no content are never
// surfaced. A non-nil error terminates the sequence and means the stream did
// not finish cleanly.
type Stream interface {
	Deltas(ctx context.Context) iter.Seq2[string, error]
}

// Stream failure classes. Clients wrap these so callers can tell a refused
// connection apart from a mid-stream framing problem.
var (
	// ErrConnection covers failures to reach or be accepted by the endpoint.
	ErrConnection = errors.New("stream connection failed")
	// ErrTimeout covers deadline-style failures while connecting or reading.
	ErrTimeout = errors.New("stream timed out")
	// ErrMalformedEvent covers event payloads that cannot be decoded.
	ErrMalformedEvent = errors.New("malformed stream event")
)
