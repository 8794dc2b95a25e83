package dialogue

import (
	"time"

	"github.com/lovrenc-k/voxloop/core/audio"
)

// PlaybackOutcome is how a PlayAndWait call ended.
type PlaybackOutcome int

const (
	PlaybackCompleted PlaybackOutcome = iota
	PlaybackInterrupted
)

func (o PlaybackOutcome) String() string {
	if o == PlaybackInterrupted {
		return "interrupted"
	}
	return "completed"
}

// playbackGate plays one audio chunk and blocks until the device drains it
// or the turn is cancelled. The orchestrator's sequencing guarantees only
// one PlayAndWait runs at a time.
type playbackGate struct {
	player       AudioPlayer
	pollInterval time.Duration
	// drainTail covers the audio already handed to the device callback but
	// not yet out of the speaker when Pending reaches zero.
	drainTail time.Duration
}

func newPlaybackGate(player AudioPlayer) *playbackGate {
	return &playbackGate{
		player:       player,
		pollInterval: 50 * time.Millisecond,
		drainTail:    120 * time.Millisecond,
	}
}

// PlayAndWait decodes the WAV chunk, feeds it to the device and waits.
// Cancellation wins the race against natural completion: the buffer is
// cleared and the call returns immediately with PlaybackInterrupted. The
// device never keeps audio after this returns on either outcome.
func (g *playbackGate) PlayAndWait(wav []byte, token *cancelToken) (PlaybackOutcome, error) {
	pcm, encoding, err := audio.DecodeWAV(wav)
	if err != nil {
		return PlaybackInterrupted, &PlaybackError{Err: err}
	}
	if token.IsSet() {
		return PlaybackInterrupted, nil
	}

	if err := g.player.Prepare(encoding); err != nil {
		return PlaybackInterrupted, &PlaybackError{Err: err}
	}
	if err := g.player.SendAudio(pcm); err != nil {
		return PlaybackInterrupted, &PlaybackError{Err: err}
	}

	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-token.Context().Done():
			g.player.ClearBuffer()
			return PlaybackInterrupted, nil
		case <-ticker.C:
			if token.IsSet() {
				g.player.ClearBuffer()
				return PlaybackInterrupted, nil
			}
			if g.player.Pending() > 0 {
				continue
			}
			// Buffer drained; wait out the device tail, still cancellable.
			select {
			case <-token.Context().Done():
				g.player.ClearBuffer()
				return PlaybackInterrupted, nil
			case <-time.After(g.drainTail):
				return PlaybackCompleted, nil
			}
		}
	}
}
