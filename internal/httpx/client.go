// Package httpx provides the shared HTTP client used by every API
// collaborator. All requests go through one pooled, instrumented transport so
// connection reuse and tracing behave the same for STT, chat and TTS calls.
package httpx

import (
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// requestTimeout is the upper bound on any single collaborator call. The
// orchestrator imposes no timeout of its own; collaborators must fail rather
// than hang.
const requestTimeout = 120 * time.Second

var (
	sharedOnce   sync.Once
	sharedClient *http.Client
)

// SharedClient returns the process-wide pooled HTTP client.
func SharedClient() *http.Client {
	sharedOnce.Do(func() {
		transport := &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     30 * time.Second,
		}
		sharedClient = &http.Client{
			Timeout:   requestTimeout,
			Transport: otelhttp.NewTransport(transport),
		}
	})
	return sharedClient
}

// CloseIdleConnections releases pooled connections. Call on shutdown.
func CloseIdleConnections() {
	if sharedClient != nil {
		sharedClient.CloseIdleConnections()
	}
}
