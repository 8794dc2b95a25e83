// Package vad turns a continuous microphone stream into discrete speech
// chunks. It watches frame energy, buffers audio while someone is talking
// and emits the buffered speech as a WAV chunk once a long enough pause is
// detected.
package vad

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/lovrenc-k/voxloop/core/audio"
)

const frameDuration = 30 * time.Millisecond

// Aggressiveness levels map to the RMS amplitude a frame must reach to count
// as speech. Higher levels filter more background noise at the cost of
// clipping quiet speakers.
var aggressivenessThresholds = [4]float64{250, 450, 700, 1000}

const (
	DefaultPauseThreshold    = 1500 * time.Millisecond
	DefaultMinSpeechDuration = 500 * time.Millisecond
	DefaultAggressiveness    = 3
)

// CaptureSource is the microphone side of an audio backend. Frames handed to
// the callback must be PCM16LE mono.
type CaptureSource interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
	CaptureEncodingInfo() audio.EncodingInfo
}

type Listener struct {
	source        CaptureSource
	onSpeechChunk func(wav []byte)

	pauseThreshold    time.Duration
	minSpeechDuration time.Duration
	threshold         float64

	frameBytes      int
	framesPerPause  int
	minSpeechFrames int
	sampleRate      int

	mu      sync.Mutex
	running bool

	pendingFrame []byte
	speech       []byte
	speechFrames int
	silentFrames int
	inSpeech     bool
}

type ListenerOption func(*Listener)

// WithPauseThreshold sets how much silence after speech closes a chunk.
func WithPauseThreshold(d time.Duration) ListenerOption {
	return func(l *Listener) {
		if d > 0 {
			l.pauseThreshold = d
		}
	}
}

// WithMinSpeechDuration sets the shortest speech burst worth emitting.
// Anything shorter is discarded as a cough or a door slam.
func WithMinSpeechDuration(d time.Duration) ListenerOption {
	return func(l *Listener) {
		if d >= 0 {
			l.minSpeechDuration = d
		}
	}
}

// WithAggressiveness picks a noise filtering level from 0 (lenient) to 3
// (strict). Out-of-range values are clamped.
func WithAggressiveness(level int) ListenerOption {
	return func(l *Listener) {
		l.threshold = aggressivenessThresholds[min(max(level, 0), len(aggressivenessThresholds)-1)]
	}
}

func NewListener(source CaptureSource, onSpeechChunk func(wav []byte), opts ...ListenerOption) *Listener {
	l := &Listener{
		source:            source,
		onSpeechChunk:     onSpeechChunk,
		pauseThreshold:    DefaultPauseThreshold,
		minSpeechDuration: DefaultMinSpeechDuration,
		threshold:         aggressivenessThresholds[DefaultAggressiveness],
	}
	for _, opt := range opts {
		opt(l)
	}

	encoding := source.CaptureEncodingInfo()
	l.sampleRate = encoding.SampleRate
	if l.sampleRate == 0 {
		l.sampleRate = audio.DefaultSampleRate
	}
	l.frameBytes = l.sampleRate * 2 * int(frameDuration.Milliseconds()) / 1000
	l.framesPerPause = int(l.pauseThreshold / frameDuration)
	l.minSpeechFrames = int(l.minSpeechDuration / frameDuration)

	return l
}

// Start begins pulling microphone audio. Chunk callbacks fire on the capture
// goroutine.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = true
	l.mu.Unlock()

	if err := l.source.StartCapture(ctx, l.processAudio); err != nil {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
		return fmt.Errorf("failed to start voice listener: %w", err)
	}
	return nil
}

// Stop halts capture and flushes any speech still buffered.
func (l *Listener) Stop() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = false
	l.mu.Unlock()

	err := l.source.StopCapture()

	l.mu.Lock()
	chunk := l.takeChunkLocked()
	l.pendingFrame = nil
	l.mu.Unlock()
	l.emit(chunk)

	if err != nil {
		return fmt.Errorf("failed to stop voice listener: %w", err)
	}
	return nil
}

// processAudio reassembles arbitrary capture buffers into fixed frames and
// runs the speech/pause state machine over them.
func (l *Listener) processAudio(data []byte) {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}

	var chunks [][]byte
	l.pendingFrame = append(l.pendingFrame, data...)
	for len(l.pendingFrame) >= l.frameBytes {
		frame := l.pendingFrame[:l.frameBytes]
		if chunk := l.processFrameLocked(frame); chunk != nil {
			chunks = append(chunks, chunk)
		}
		l.pendingFrame = l.pendingFrame[l.frameBytes:]
	}
	l.mu.Unlock()

	for _, chunk := range chunks {
		l.emit(chunk)
	}
}

// processFrameLocked advances the speech/pause state machine by one frame
// and returns the finished chunk when the pause threshold closes one.
func (l *Listener) processFrameLocked(frame []byte) []byte {
	if rmsAmplitude(frame) >= l.threshold {
		l.inSpeech = true
		l.silentFrames = 0
		l.speechFrames++
		l.speech = append(l.speech, frame...)
		return nil
	}

	if !l.inSpeech {
		return nil
	}

	// Short silences inside an utterance stay part of the chunk.
	l.silentFrames++
	l.speech = append(l.speech, frame...)
	if l.silentFrames >= l.framesPerPause {
		return l.takeChunkLocked()
	}
	return nil
}

// takeChunkLocked drains the buffered speech and encodes it, or returns nil
// when the burst is empty or too short to keep.
func (l *Listener) takeChunkLocked() []byte {
	speech := l.speech
	speechFrames := l.speechFrames
	l.speech = nil
	l.speechFrames = 0
	l.silentFrames = 0
	l.inSpeech = false

	if len(speech) == 0 {
		return nil
	}
	if speechFrames < l.minSpeechFrames {
		logger.Debug("discarding speech burst below minimum duration",
			"speech_frames", speechFrames, "min_frames", l.minSpeechFrames)
		return nil
	}

	wav, err := audio.EncodeWAVPCM16LE(speech, l.sampleRate)
	if err != nil {
		logger.Error("failed to encode speech chunk", "error", err)
		return nil
	}
	return wav
}

// emit runs the chunk callback outside the listener mutex. The callback is
// allowed to call Stop, which is how the dialogue loop pauses the
// microphone for the duration of a turn.
func (l *Listener) emit(wav []byte) {
	if wav == nil || l.onSpeechChunk == nil {
		return
	}
	l.onSpeechChunk(wav)
}

// rmsAmplitude computes the root-mean-square of PCM16LE samples.
func rmsAmplitude(frame []byte) float64 {
	if len(frame) < 2 {
		return 0
	}
	var sum float64
	samples := len(frame) / 2
	for i := 0; i < samples; i++ {
		sample := int16(uint16(frame[2*i]) | uint16(frame[2*i+1])<<8)
		sum += float64(sample) * float64(sample)
	}
	return math.Sqrt(sum / float64(samples))
}
