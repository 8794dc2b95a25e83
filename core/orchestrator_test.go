package dialogue

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lovrenc-k/voxloop/core/audio"
	"github.com/lovrenc-k/voxloop/core/events"
	"github.com/lovrenc-k/voxloop/core/llms"
	"github.com/lovrenc-k/voxloop/core/speechtotext"
	"github.com/lovrenc-k/voxloop/core/texttospeech"
)

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []byte, _ ...speechtotext.TranscriptionOption) (string, error) {
	return f.text, f.err
}

type stubStream struct {
	deltas []string
	err    error
	// block, when non-nil, keeps the stream open after the deltas until the
	// channel closes or the context is cancelled.
	block chan struct{}
}

func (s *stubStream) Deltas(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, delta := range s.deltas {
			if !yield(delta, nil) {
				return
			}
		}
		if s.block != nil {
			select {
			case <-ctx.Done():
				yield("", ctx.Err())
				return
			case <-s.block:
			}
		}
		if s.err != nil {
			yield("", s.err)
		}
	}
}

type fakeStreamer struct {
	mu       sync.Mutex
	stream   *stubStream
	requests [][]llms.Message
}

func (f *fakeStreamer) StreamReply(_ context.Context, messages []llms.Message) llms.Stream {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, messages)
	return f.stream
}

type fakeSynthesizer struct {
	mu        sync.Mutex
	sentences []string
	err       error
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, text string, _ ...texttospeech.SynthesisOption) ([]byte, error) {
	f.mu.Lock()
	f.sentences = append(f.sentences, text)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return audio.EncodeWAVPCM16LE([]byte{0x01, 0x00, 0x02, 0x00}, audio.DefaultSampleRate)
}

func (f *fakeSynthesizer) synthesized() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sentences...)
}

// instantPlayer drains everything immediately so playback completes on the
// gate's first poll.
type instantPlayer struct {
	mu    sync.Mutex
	plays int
}

func (p *instantPlayer) Prepare(audio.EncodingInfo) error { return nil }

func (p *instantPlayer) SendAudio([]byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays++
	return nil
}

func (p *instantPlayer) Pending() int { return 0 }

func (p *instantPlayer) ClearBuffer() {}

func (p *instantPlayer) playCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plays
}

type fakeSpeechSource struct {
	mu     sync.Mutex
	starts int
	stops  int
}

func (f *fakeSpeechSource) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return nil
}

func (f *fakeSpeechSource) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) ofKind(kind events.Kind) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []events.Event
	for _, event := range r.events {
		if event.Kind() == kind {
			matched = append(matched, event)
		}
	}
	return matched
}

func (r *eventRecorder) waitFor(t *testing.T, kind events.Kind) events.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if matched := r.ofKind(kind); len(matched) > 0 {
			return matched[0]
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s event", kind)
	return nil
}

func waitForState(t *testing.T, o *Orchestrator, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if o.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, still %s", want, o.State())
}

type testHarness struct {
	orchestrator *Orchestrator
	transcriber  *fakeTranscriber
	streamer     *fakeStreamer
	synthesizer  *fakeSynthesizer
	player       *instantPlayer
	source       *fakeSpeechSource
	recorder     *eventRecorder
}

func newTestHarness(t *testing.T, opts ...OrchestratorOption) *testHarness {
	t.Helper()
	h := &testHarness{
		transcriber: &fakeTranscriber{text: "What's the weather?"},
		streamer:    &fakeStreamer{stream: &stubStream{deltas: []string{"It's sunny today. ", "Enjoy!"}}},
		synthesizer: &fakeSynthesizer{},
		player:      &instantPlayer{},
		source:      &fakeSpeechSource{},
		recorder:    &eventRecorder{},
	}

	options := []OrchestratorOption{
		WithTranscriber(h.transcriber),
		WithReplyStreamer(h.streamer),
		WithSynthesizer(h.synthesizer),
		WithAudioPlayer(h.player),
		WithSpeechSource(func(func(wav []byte)) SpeechSource { return h.source }),
		OnEvent(h.recorder.record),
	}
	options = append(options, opts...)

	orchestrator, err := NewOrchestrator(options...)
	if err != nil {
		t.Fatalf("expected orchestrator to build, got %v", err)
	}
	h.orchestrator = orchestrator
	h.orchestrator.gate.pollInterval = time.Millisecond
	h.orchestrator.gate.drainTail = 0
	t.Cleanup(h.orchestrator.Close)
	return h
}

func TestCompletedTurn(t *testing.T) {
	h := newTestHarness(t)
	if err := h.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	h.orchestrator.HandleSpeechChunk([]byte("chunk"))

	completed := h.recorder.waitFor(t, events.KindTurnCompleted).(events.TurnCompleted)
	if completed.Reply != "It's sunny today. Enjoy!" {
		t.Fatalf("expected full assembled reply, got %q", completed.Reply)
	}

	sentenceEvents := h.recorder.ofKind(events.KindAssistantSentence)
	if len(sentenceEvents) != 2 {
		t.Fatalf("expected exactly two sentence events, got %d", len(sentenceEvents))
	}
	if first := sentenceEvents[0].(events.AssistantSentence).Sentence; first != "It's sunny today." {
		t.Fatalf("expected first sentence in order, got %q", first)
	}
	if second := sentenceEvents[1].(events.AssistantSentence).Sentence; second != "Enjoy!" {
		t.Fatalf("expected second sentence in order, got %q", second)
	}
	if plays := h.player.playCount(); plays != 2 {
		t.Fatalf("expected two playback invocations, got %d", plays)
	}

	transcriptEvent := h.recorder.waitFor(t, events.KindUserTranscript).(events.UserTranscript)
	if transcriptEvent.Transcript != "What's the weather?" {
		t.Fatalf("expected user transcript event, got %q", transcriptEvent.Transcript)
	}

	entries := h.orchestrator.History().Snapshot()
	if len(entries) != 2 {
		t.Fatalf("expected user + assistant history entries, got %d", len(entries))
	}
	if entries[1].Role != llms.RoleAssistant || entries[1].Content != "It's sunny today. Enjoy!" {
		t.Fatalf("expected one assistant append with the full reply, got %+v", entries[1])
	}

	// auto-listen defaults to true, so the loop resumes listening.
	waitForState(t, h.orchestrator, StateListening)
}

func TestCompletedTurnSettlesIdleWithoutAutoListen(t *testing.T) {
	h := newTestHarness(t, WithAutoListen(false))
	if err := h.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	h.orchestrator.HandleSpeechChunk([]byte("chunk"))

	h.recorder.waitFor(t, events.KindTurnCompleted)
	waitForState(t, h.orchestrator, StateIdle)
}

func TestEmptyTranscriptIsASilentNoOp(t *testing.T) {
	h := newTestHarness(t)
	h.transcriber.text = "   "
	if err := h.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	h.orchestrator.HandleSpeechChunk([]byte("chunk"))
	waitForState(t, h.orchestrator, StateListening)

	for _, kind := range []events.Kind{
		events.KindUserTranscript,
		events.KindAssistantSentence,
		events.KindTurnCompleted,
		events.KindTurnFailed,
	} {
		if matched := h.recorder.ofKind(kind); len(matched) != 0 {
			t.Fatalf("expected no %s events for an empty transcript, got %d", kind, len(matched))
		}
	}
	for _, event := range h.recorder.ofKind(events.KindStateChanged) {
		state := event.(events.StateChanged).State
		if state == StateThinking.String() || state == StateSpeaking.String() {
			t.Fatalf("expected no %s state for an empty transcript", state)
		}
	}
	if entries := h.orchestrator.History().Snapshot(); len(entries) != 0 {
		t.Fatalf("expected no history entries, got %d", len(entries))
	}
}

func TestStopMidStreamCancelsTurn(t *testing.T) {
	h := newTestHarness(t)
	block := make(chan struct{})
	defer close(block)
	h.streamer.stream = &stubStream{deltas: []string{"It's sunny today. "}, block: block}

	if err := h.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	h.orchestrator.HandleSpeechChunk([]byte("chunk"))

	// Wait until the first sentence is in flight, then stop.
	h.recorder.waitFor(t, events.KindAssistantSentence)
	h.orchestrator.Stop()

	h.recorder.waitFor(t, events.KindTurnCancelled)
	if h.orchestrator.State() != StateIdle {
		t.Fatalf("expected idle after stop, got %s", h.orchestrator.State())
	}
	if sentences := h.recorder.ofKind(events.KindAssistantSentence); len(sentences) != 1 {
		t.Fatalf("expected no sentence past the first, got %d", len(sentences))
	}
	if completed := h.recorder.ofKind(events.KindTurnCompleted); len(completed) != 0 {
		t.Fatal("expected no turn completion after stop")
	}
	if entries := h.orchestrator.History().Snapshot(); len(entries) != 0 {
		t.Fatalf("expected no history append for a cancelled turn, got %d entries", len(entries))
	}
}

func TestStopWhileListeningSettlesIdle(t *testing.T) {
	h := newTestHarness(t)
	if err := h.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	h.orchestrator.Stop()
	if h.orchestrator.State() != StateIdle {
		t.Fatalf("expected idle after stop, got %s", h.orchestrator.State())
	}
	if h.source.stops == 0 {
		t.Fatal("expected speech source to be stopped")
	}

	// Stop while idle is a no-op.
	h.orchestrator.Stop()
}

func TestTranscriptionFailureAbortsOnlyTheTurn(t *testing.T) {
	h := newTestHarness(t)
	h.transcriber.err = errors.New("boom")
	if err := h.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	h.orchestrator.HandleSpeechChunk([]byte("chunk"))

	failed := h.recorder.waitFor(t, events.KindTurnFailed).(events.TurnFailed)
	if failed.Stage != "transcription" {
		t.Fatalf("expected transcription stage, got %q", failed.Stage)
	}
	waitForState(t, h.orchestrator, StateListening)
	if entries := h.orchestrator.History().Snapshot(); len(entries) != 0 {
		t.Fatalf("expected no history entries, got %d", len(entries))
	}
}

func TestStreamFailureRollsBackUserEntry(t *testing.T) {
	h := newTestHarness(t)
	h.streamer.stream = &stubStream{deltas: []string{"Partial "}, err: errors.New("connection lost")}
	if err := h.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	h.orchestrator.HandleSpeechChunk([]byte("chunk"))

	failed := h.recorder.waitFor(t, events.KindTurnFailed).(events.TurnFailed)
	if failed.Stage != "stream" {
		t.Fatalf("expected stream stage, got %q", failed.Stage)
	}
	waitForState(t, h.orchestrator, StateListening)
	if entries := h.orchestrator.History().Snapshot(); len(entries) != 0 {
		t.Fatalf("expected user entry rolled back, got %d entries", len(entries))
	}
}

func TestSynthesisFailureReportsStage(t *testing.T) {
	h := newTestHarness(t)
	h.synthesizer.err = errors.New("no voice")
	if err := h.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	h.orchestrator.HandleSpeechChunk([]byte("chunk"))

	failed := h.recorder.waitFor(t, events.KindTurnFailed).(events.TurnFailed)
	if failed.Stage != "synthesis" {
		t.Fatalf("expected synthesis stage, got %q", failed.Stage)
	}
	waitForState(t, h.orchestrator, StateListening)
}

func TestSynthesisFailureCancelsReplyStream(t *testing.T) {
	h := newTestHarness(t)
	// The stream stays open after the first sentence; the failure must be
	// reported without waiting for it to drain.
	block := make(chan struct{})
	defer close(block)
	h.streamer.stream = &stubStream{deltas: []string{"First sentence. "}, block: block}
	h.synthesizer.err = errors.New("no voice")
	if err := h.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	h.orchestrator.HandleSpeechChunk([]byte("chunk"))

	failed := h.recorder.waitFor(t, events.KindTurnFailed).(events.TurnFailed)
	if failed.Stage != "synthesis" {
		t.Fatalf("expected synthesis stage, got %q", failed.Stage)
	}
	waitForState(t, h.orchestrator, StateListening)
}

func TestMaxReplyWordsTruncatesStream(t *testing.T) {
	h := newTestHarness(t, WithMaxReplyWords(3))
	h.streamer.stream = &stubStream{deltas: []string{"one two ", "three four five. ", "six seven."}}
	if err := h.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	h.orchestrator.HandleSpeechChunk([]byte("chunk"))

	completed := h.recorder.waitFor(t, events.KindTurnCompleted).(events.TurnCompleted)
	if completed.Reply != "one two three" {
		t.Fatalf("expected reply capped at three words, got %q", completed.Reply)
	}
}

func TestChunksIgnoredWhileTurnInFlight(t *testing.T) {
	h := newTestHarness(t)
	block := make(chan struct{})
	h.streamer.stream = &stubStream{deltas: []string{"Working on it. "}, block: block}
	if err := h.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	h.orchestrator.HandleSpeechChunk([]byte("first"))
	h.recorder.waitFor(t, events.KindAssistantSentence)

	// A second chunk while not listening must be dropped.
	h.orchestrator.HandleSpeechChunk([]byte("second"))

	close(block)
	h.recorder.waitFor(t, events.KindTurnCompleted)

	h.streamer.mu.Lock()
	requests := len(h.streamer.requests)
	h.streamer.mu.Unlock()
	if requests != 1 {
		t.Fatalf("expected exactly one reply request, got %d", requests)
	}
}

func TestNewOrchestratorRequiresCollaborators(t *testing.T) {
	transcriber := &fakeTranscriber{}
	streamer := &fakeStreamer{stream: &stubStream{}}
	synthesizer := &fakeSynthesizer{}
	player := &instantPlayer{}

	cases := []struct {
		name string
		opts []OrchestratorOption
	}{
		{"missing transcriber", []OrchestratorOption{
			WithReplyStreamer(streamer), WithSynthesizer(synthesizer), WithAudioPlayer(player),
		}},
		{"missing reply streamer", []OrchestratorOption{
			WithTranscriber(transcriber), WithSynthesizer(synthesizer), WithAudioPlayer(player),
		}},
		{"missing synthesizer", []OrchestratorOption{
			WithTranscriber(transcriber), WithReplyStreamer(streamer), WithAudioPlayer(player),
		}},
		{"missing audio player", []OrchestratorOption{
			WithTranscriber(transcriber), WithReplyStreamer(streamer), WithSynthesizer(synthesizer),
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewOrchestrator(tc.opts...); err == nil {
				t.Fatal("expected construction to fail")
			}
		})
	}
}

func TestStartIsIdempotent(t *testing.T) {
	h := newTestHarness(t)
	if err := h.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	if err := h.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("expected repeated start to be a no-op, got %v", err)
	}
	if h.source.starts != 1 {
		t.Fatalf("expected a single source start, got %d", h.source.starts)
	}
}

func TestSentencePipelineKeepsPunctuationSpacing(t *testing.T) {
	h := newTestHarness(t)
	h.streamer.stream = &stubStream{deltas: []string{"Hello. How are ", "you? I am fine."}}
	if err := h.orchestrator.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	h.orchestrator.HandleSpeechChunk([]byte("chunk"))
	h.recorder.waitFor(t, events.KindTurnCompleted)

	var spoken []string
	for _, event := range h.recorder.ofKind(events.KindAssistantSentence) {
		spoken = append(spoken, event.(events.AssistantSentence).Sentence)
	}
	want := []string{"Hello.", "How are you?", "I am fine."}
	if strings.Join(spoken, "|") != strings.Join(want, "|") {
		t.Fatalf("expected sentences %v, got %v", want, spoken)
	}
}
