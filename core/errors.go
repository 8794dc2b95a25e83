package dialogue

import "fmt"

// Each turn stage wraps its collaborator failures in a stage-specific error
// so observers can tell which part of the pipeline broke. Cancellation never
// travels through these; it is a deliberate outcome, not an error.

type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("reply stream failed: %v", e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

type SynthesisError struct {
	Sentence string
	Err      error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech synthesis failed: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

type PlaybackError struct {
	Err error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("audio playback failed: %v", e.Err)
}

func (e *PlaybackError) Unwrap() error { return e.Err }
