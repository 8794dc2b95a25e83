package lemonfox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lovrenc-k/voxloop/core/audio"
	"github.com/lovrenc-k/voxloop/core/texttospeech"
)

func wavBytes(t *testing.T) []byte {
	t.Helper()
	data, err := audio.EncodeWAVPCM16LE([]byte{0x01, 0x00, 0x02, 0x00}, audio.DefaultSampleRate)
	if err != nil {
		t.Fatalf("failed to build WAV fixture: %v", err)
	}
	return data
}

func TestSynthesize(t *testing.T) {
	var gotRequest synthesisRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Fatalf("expected bearer auth header, got %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		w.Write(wavBytes(t))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, WithVoice("onyx"))
	data, err := client.Synthesize(context.Background(), "Hello there.")
	if err != nil {
		t.Fatalf("expected synthesis to succeed, got %v", err)
	}
	if audio.DetectFormat(data) != audio.FormatWAV {
		t.Fatal("expected WAV audio back")
	}
	if gotRequest.Input != "Hello there." {
		t.Fatalf("expected input text in payload, got %q", gotRequest.Input)
	}
	if gotRequest.Voice != "onyx" {
		t.Fatalf("expected configured voice, got %q", gotRequest.Voice)
	}
}

func TestSynthesizeRejectsBlankInput(t *testing.T) {
	client := NewClient("test-key", "http://localhost:1")
	if _, err := client.Synthesize(context.Background(), "   "); err != ErrEmptyInput {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestSynthesizeExtractsErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"invalid voice id"}}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	_, err := client.Synthesize(context.Background(), "Hello.")
	if err == nil {
		t.Fatal("expected an error for HTTP 400")
	}
	if !strings.Contains(err.Error(), "invalid voice id") {
		t.Fatalf("expected extracted API message, got %v", err)
	}
}

func TestSynthesizeRejectsTextualBodyOn200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("generation failed due to invalid voice id"))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	_, err := client.Synthesize(context.Background(), "Hello.")
	if err == nil {
		t.Fatal("expected an error for a textual 200 body")
	}
	if !strings.Contains(err.Error(), "instead of audio") {
		t.Fatalf("expected non-audio error, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid voice id") {
		t.Fatalf("expected body detail in error, got %v", err)
	}
}

func TestSynthesizeFallsBackOnServerError(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer primary.Close()
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(wavBytes(t))
	}))
	defer fallback.Close()

	client := NewClient("test-key", primary.URL, WithFallbackURL(fallback.URL))
	data, err := client.Synthesize(context.Background(), "Hello.")
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if audio.DetectFormat(data) != audio.FormatWAV {
		t.Fatal("expected WAV audio from fallback")
	}
}

func TestSynthesizeAppliesPerRequestOptions(t *testing.T) {
	var gotRequest synthesisRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		w.Write(wavBytes(t))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL)
	_, err := client.Synthesize(context.Background(), "Hello.",
		texttospeech.WithVoice("bella"), texttospeech.WithSpeed(1.25))
	if err != nil {
		t.Fatalf("expected synthesis to succeed, got %v", err)
	}
	if gotRequest.Voice != "bella" {
		t.Fatalf("expected per-request voice override, got %q", gotRequest.Voice)
	}
	if gotRequest.Speed != 1.25 {
		t.Fatalf("expected per-request speed override, got %v", gotRequest.Speed)
	}
}
