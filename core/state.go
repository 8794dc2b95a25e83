package dialogue

// State is the orchestrator's position in the dialogue loop. Transitions are
// performed by the turn worker only; control goroutines read it atomically.
type State int32

const (
	StateIdle State = iota
	StateListening
	StateTranscribing
	StateThinking
	StateSpeaking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateTranscribing:
		return "transcribing"
	case StateThinking:
		return "thinking"
	case StateSpeaking:
		return "speaking"
	}
	return "unknown"
}
