// Package dialogue drives the voice conversation loop: listen for a speech
// chunk, transcribe it, stream the assistant reply, and speak it sentence by
// sentence, cancellable at every stage.
package dialogue

import (
	"context"

	"github.com/lovrenc-k/voxloop/core/audio"
	"github.com/lovrenc-k/voxloop/core/events"
	"github.com/lovrenc-k/voxloop/core/llms"
	"github.com/lovrenc-k/voxloop/core/speechtotext"
	"github.com/lovrenc-k/voxloop/core/texttospeech"
)

// Transcriber turns one finished audio chunk into text. An empty result
// means nothing usable was said and is not an error.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, opts ...speechtotext.TranscriptionOption) (string, error)
}

// ReplyStreamer opens one streaming chat completion for the given messages.
type ReplyStreamer interface {
	StreamReply(ctx context.Context, messages []llms.Message) llms.Stream
}

// Synthesizer turns one sentence into playable audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, opts ...texttospeech.SynthesisOption) ([]byte, error)
}

// SpeechSource produces complete speech chunks from the microphone. The
// chunk callback is wired in by the factory below.
type SpeechSource interface {
	Start(ctx context.Context) error
	Stop() error
}

// SpeechSourceFactory builds a SpeechSource that delivers chunks to the
// orchestrator's handler. The factory shape exists because chunk callbacks
// are fixed at source construction time.
type SpeechSourceFactory func(onSpeechChunk func(wav []byte)) SpeechSource

// AudioPlayer is the playback side of an audio backend.
type AudioPlayer interface {
	Prepare(encoding audio.EncodingInfo) error
	SendAudio(audio []byte) error
	Pending() int
	ClearBuffer()
}

type orchestratorOptions struct {
	transcriber   Transcriber
	replyStreamer ReplyStreamer
	synthesizer   Synthesizer
	sourceFactory SpeechSourceFactory
	player        AudioPlayer
	history       *History

	autoListen    bool
	maxReplyWords int

	onEvent             func(events.Event)
	onStateChanged      func(state string)
	onUserTranscript    func(transcript string)
	onAssistantSentence func(sentence string)
	onTurnCompleted     func(reply string)
	onError             func(stage, message string)
	onCancellation      func()
}

type OrchestratorOption func(*orchestratorOptions)

func WithTranscriber(transcriber Transcriber) OrchestratorOption {
	return func(o *orchestratorOptions) { o.transcriber = transcriber }
}

func WithReplyStreamer(replyStreamer ReplyStreamer) OrchestratorOption {
	return func(o *orchestratorOptions) { o.replyStreamer = replyStreamer }
}

func WithSynthesizer(synthesizer Synthesizer) OrchestratorOption {
	return func(o *orchestratorOptions) { o.synthesizer = synthesizer }
}

func WithSpeechSource(factory SpeechSourceFactory) OrchestratorOption {
	return func(o *orchestratorOptions) { o.sourceFactory = factory }
}

func WithAudioPlayer(player AudioPlayer) OrchestratorOption {
	return func(o *orchestratorOptions) { o.player = player }
}

func WithHistory(history *History) OrchestratorOption {
	return func(o *orchestratorOptions) { o.history = history }
}

// WithAutoListen controls whether a completed turn re-enters listening
// (true) or settles to idle (false). Defaults to true.
func WithAutoListen(autoListen bool) OrchestratorOption {
	return func(o *orchestratorOptions) { o.autoListen = autoListen }
}

// WithMaxReplyWords caps the streamed reply at a word budget; generation
// stops early once it is exhausted. Zero means no cap.
func WithMaxReplyWords(maxWords int) OrchestratorOption {
	return func(o *orchestratorOptions) {
		if maxWords > 0 {
			o.maxReplyWords = maxWords
		}
	}
}

// OnEvent registers a handler for every event. It runs on the dispatcher
// goroutine, never on the turn worker.
func OnEvent(handler func(events.Event)) OrchestratorOption {
	return func(o *orchestratorOptions) { o.onEvent = handler }
}

func OnStateChanged(callback func(state string)) OrchestratorOption {
	return func(o *orchestratorOptions) { o.onStateChanged = callback }
}

func OnUserTranscript(callback func(transcript string)) OrchestratorOption {
	return func(o *orchestratorOptions) { o.onUserTranscript = callback }
}

func OnAssistantSentence(callback func(sentence string)) OrchestratorOption {
	return func(o *orchestratorOptions) { o.onAssistantSentence = callback }
}

func OnTurnCompleted(callback func(reply string)) OrchestratorOption {
	return func(o *orchestratorOptions) { o.onTurnCompleted = callback }
}

func OnError(callback func(stage, message string)) OrchestratorOption {
	return func(o *orchestratorOptions) { o.onError = callback }
}

func OnCancellation(callback func()) OrchestratorOption {
	return func(o *orchestratorOptions) { o.onCancellation = callback }
}
