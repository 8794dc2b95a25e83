package dialogue

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lovrenc-k/voxloop/core/events"
)

// turnOutcome tells the caller whether the loop should decide where to
// settle (resume) or leave the machine alone because Stop already idled it.
type turnOutcome int

const (
	turnResume turnOutcome = iota
	turnHalt
)

var wordPattern = regexp.MustCompile(`\S+`)

// runTurn executes one full turn: transcribe the chunk, stream the reply,
// and speak it sentence by sentence. The token is re-checked before every
// network call and every playback; a set token aborts without any further
// stage, event (beyond TurnCancelled), or history append.
func (o *Orchestrator) runTurn(token *cancelToken, chunk []byte) turnOutcome {
	ctx, span := tracer.Start(token.Context(), "process dialogue turn")
	defer span.End()

	if token.IsSet() {
		o.emitter.Emit(events.NewTurnCancelled())
		return turnHalt
	}

	transcript, err := o.opts.transcriber.Transcribe(ctx, chunk)
	if err != nil {
		if token.IsSet() {
			o.emitter.Emit(events.NewTurnCancelled())
			return turnHalt
		}
		failure := &TranscriptionError{Err: err}
		span.RecordError(failure)
		span.SetStatus(codes.Error, failure.Error())
		o.emitter.Emit(events.NewTurnFailed("transcription", failure.Error()))
		return turnResume
	}

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		// Nothing was said; loop back silently.
		logger.DebugContext(ctx, "empty transcription, resuming listening")
		return turnResume
	}
	if token.IsSet() {
		o.emitter.Emit(events.NewTurnCancelled())
		return turnHalt
	}

	span.AddEvent("transcription completed", trace.WithAttributes(attribute.Int("transcript.chars", len(transcript))))
	o.emitter.Emit(events.NewUserTranscript(transcript))
	o.transition(token, StateThinking)

	userEntryID, request := o.history.PushUser(transcript)
	queue := newSentenceQueue()
	streamCtx, cancelStream := context.WithCancel(ctx)
	defer cancelStream()
	stream := o.opts.replyStreamer.StreamReply(streamCtx, request)

	// The reader feeds the queue while this goroutine speaks, so synthesis
	// of sentence N overlaps with streaming of sentence N+1.
	var accumulated string
	var streamErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer queue.Done()

		segmenter := sentenceSegmenter{}
		for delta, err := range stream.Deltas(streamCtx) {
			if err != nil {
				if !token.IsSet() && !errors.Is(err, context.Canceled) {
					streamErr = err
				}
				return
			}
			if token.IsSet() {
				return
			}

			emitted, capped := capReplyDelta(&accumulated, delta, o.opts.maxReplyWords)
			for _, sentence := range segmenter.Feed(emitted) {
				queue.Add(sentence)
			}
			if capped {
				break
			}
		}
		if token.IsSet() {
			return
		}
		if tail := segmenter.Flush(); tail != "" {
			queue.Add(tail)
		}
	}()

	stageErr := o.speakSentences(token, queue)
	if stageErr != nil {
		// Nothing further will be spoken; don't sit out the rest of the
		// stream before reporting the failure.
		cancelStream()
	}

	queue.Clear()
	wg.Wait()

	reply := strings.TrimSpace(accumulated)
	switch {
	case token.IsSet():
		o.history.Rollback(userEntryID)
		o.emitter.Emit(events.NewTurnCancelled())
		return turnHalt

	case streamErr != nil:
		o.history.Rollback(userEntryID)
		failure := &StreamError{Err: streamErr}
		span.RecordError(failure)
		span.SetStatus(codes.Error, failure.Error())
		o.emitter.Emit(events.NewTurnFailed("stream", failure.Error()))
		return turnResume

	case stageErr != nil:
		span.RecordError(stageErr)
		span.SetStatus(codes.Error, stageErr.Error())
		stage := "synthesis"
		var playbackErr *PlaybackError
		if errors.As(stageErr, &playbackErr) {
			stage = "playback"
		}
		o.emitter.Emit(events.NewTurnFailed(stage, stageErr.Error()))
		return turnResume

	default:
		span.AddEvent("reply spoken", trace.WithAttributes(attribute.Int("reply.chars", len(reply))))
		o.history.PushAssistant(reply)
		o.emitter.Emit(events.NewTurnCompleted(reply))
		return turnResume
	}
}

// speakSentences synthesizes and plays queued sentences in arrival order,
// one at a time. It returns the first synthesis or playback error, or nil.
func (o *Orchestrator) speakSentences(token *cancelToken, queue *sentenceQueue) error {
	var stageErr error

	for sentence := range queue.Sentences {
		if token.IsSet() {
			break
		}

		o.emitter.Emit(events.NewAssistantSentence(sentence))
		o.transition(token, StateSpeaking)

		wav, err := o.opts.synthesizer.Synthesize(token.Context(), normalizeSpokenText(sentence))
		if err != nil {
			if token.IsSet() {
				break
			}
			stageErr = &SynthesisError{Sentence: sentence, Err: err}
			break
		}
		if token.IsSet() {
			break
		}

		outcome, err := o.gate.PlayAndWait(wav, token)
		if err != nil {
			if token.IsSet() {
				break
			}
			stageErr = err
			break
		}
		if outcome == PlaybackInterrupted {
			break
		}

		// Playback outran the stream; show thinking until the next sentence
		// completes.
		if queue.Empty() && !queue.Finished() {
			o.transition(token, StateThinking)
		}
	}

	return stageErr
}

// capReplyDelta appends a delta to the accumulated reply, truncating once
// the word budget is reached. It returns the part that survived the cap and
// whether the budget is now exhausted. A zero budget means unlimited.
func capReplyDelta(accumulated *string, delta string, maxWords int) (string, bool) {
	if maxWords <= 0 {
		*accumulated += delta
		return delta, false
	}

	candidate := *accumulated + delta
	trimmed := truncateToWords(candidate, maxWords)
	emitted := trimmed[len(*accumulated):]
	*accumulated = trimmed
	return emitted, len(trimmed) < len(candidate)
}

func truncateToWords(text string, maxWords int) string {
	if maxWords <= 0 {
		return ""
	}
	count := 0
	for _, loc := range wordPattern.FindAllStringIndex(text, -1) {
		count++
		if count == maxWords {
			return text[:loc[1]]
		}
	}
	return text
}
