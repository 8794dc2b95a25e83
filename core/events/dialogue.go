package events

// KindStateChanged identifies a dialogue state transition.
const KindStateChanged Kind = "dialogue.state_changed"

// StateChanged reports that the orchestrator moved to a new state. State is
// the canonical lowercase name (idle, listening, transcribing, thinking,
// speaking).
type StateChanged struct {
	Base
	State string
}

func NewStateChanged(state string) StateChanged {
	return StateChanged{Base: NewBase(KindStateChanged), State: state}
}

// KindUserTranscript identifies a finished user transcription.
const KindUserTranscript Kind = "dialogue.user_transcript"

// UserTranscript carries the transcribed text of the user's speech chunk.
type UserTranscript struct {
	Base
	Transcript string
}

func NewUserTranscript(transcript string) UserTranscript {
	return UserTranscript{Base: NewBase(KindUserTranscript), Transcript: transcript}
}

// KindAssistantSentence identifies a reply sentence that is about to be
// synthesized and played.
const KindAssistantSentence Kind = "dialogue.assistant_sentence"

// AssistantSentence carries one complete sentence of the streamed reply, in
// emission order.
type AssistantSentence struct {
	Base
	Sentence string
}

func NewAssistantSentence(sentence string) AssistantSentence {
	return AssistantSentence{Base: NewBase(KindAssistantSentence), Sentence: sentence}
}

// KindTurnCompleted identifies the successful end of a turn.
const KindTurnCompleted Kind = "dialogue.turn_completed"

// TurnCompleted reports that a turn ran to completion without cancellation.
// Reply holds the full assembled assistant text.
type TurnCompleted struct {
	Base
	Reply string
}

func NewTurnCompleted(reply string) TurnCompleted {
	return TurnCompleted{Base: NewBase(KindTurnCompleted), Reply: reply}
}

// KindTurnFailed identifies a turn aborted by an error. Cancellation is not a
// failure and never produces this event.
const KindTurnFailed Kind = "dialogue.turn_failed"

// TurnFailed reports the error that aborted the current turn. Stage names the
// pipeline stage that failed (transcription, stream, synthesis, playback).
type TurnFailed struct {
	Base
	Stage   string
	Message string
}

func NewTurnFailed(stage, message string) TurnFailed {
	return TurnFailed{Base: NewBase(KindTurnFailed), Stage: stage, Message: message}
}

// KindTurnCancelled identifies a deliberate stop of the active turn.
const KindTurnCancelled Kind = "dialogue.turn_cancelled"

// TurnCancelled marks cancellation of the current turn.
type TurnCancelled struct{ Base }

func NewTurnCancelled() TurnCancelled {
	return TurnCancelled{Base: NewBase(KindTurnCancelled)}
}
