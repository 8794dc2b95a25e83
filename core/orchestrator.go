package dialogue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lovrenc-k/voxloop/core/events"
)

// Orchestrator drives the dialogue loop. State transitions happen on the
// turn worker (plus Stop, which forces idle); Start, Stop and SetAutoListen
// are safe to call from any goroutine. The cancellation token is the only
// synchronization the turn stages rely on.
type Orchestrator struct {
	opts    orchestratorOptions
	source  SpeechSource
	history *History
	gate    *playbackGate
	emitter *eventEmitter

	state      atomic.Int32
	autoListen atomic.Bool

	mu       sync.Mutex
	running  bool
	token    *cancelToken
	turnDone chan struct{}
	baseCtx  context.Context

	closeOnce sync.Once
}

// NewOrchestrator wires the dialogue loop together. The transcriber, reply
// streamer, synthesizer and audio player are required; a turn cannot run
// without any one of them.
func NewOrchestrator(opts ...OrchestratorOption) (*Orchestrator, error) {
	options := orchestratorOptions{autoListen: true}
	for _, opt := range opts {
		opt(&options)
	}

	switch {
	case options.transcriber == nil:
		return nil, fmt.Errorf("dialogue orchestrator requires a transcriber")
	case options.replyStreamer == nil:
		return nil, fmt.Errorf("dialogue orchestrator requires a reply streamer")
	case options.synthesizer == nil:
		return nil, fmt.Errorf("dialogue orchestrator requires a synthesizer")
	case options.player == nil:
		return nil, fmt.Errorf("dialogue orchestrator requires an audio player")
	}

	o := &Orchestrator{
		opts:    options,
		history: options.history,
		baseCtx: context.Background(),
	}
	if o.history == nil {
		o.history = NewHistory()
	}
	o.gate = newPlaybackGate(options.player)
	if options.sourceFactory != nil {
		o.source = options.sourceFactory(o.HandleSpeechChunk)
	}
	o.autoListen.Store(options.autoListen)
	o.state.Store(int32(StateIdle))
	o.emitter = newEventEmitter(func(event events.Event) {
		routeEvent(&o.opts, event)
	})

	return o, nil
}

// State returns the current position in the dialogue loop.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// History exposes the conversation store shared across turns.
func (o *Orchestrator) History() *History {
	return o.history
}

// AutoListen reports whether completed turns re-enter listening.
func (o *Orchestrator) AutoListen() bool {
	return o.autoListen.Load()
}

// SetAutoListen takes effect at the next turn boundary, never mid-turn.
func (o *Orchestrator) SetAutoListen(autoListen bool) {
	o.autoListen.Store(autoListen)
}

// Start begins listening. It is a no-op while the loop is already running.
// A previous turn still winding down is waited out so turns never overlap.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil
	}
	pending := o.turnDone
	o.mu.Unlock()
	if pending != nil {
		<-pending
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return nil
	}

	o.baseCtx = ctx
	o.token = newCancelToken(ctx)
	if o.source != nil {
		if err := o.source.Start(ctx); err != nil {
			return fmt.Errorf("failed to start speech source: %w", err)
		}
	}
	o.running = true
	o.state.Store(int32(StateListening))
	o.emitter.Emit(events.NewStateChanged(StateListening.String()))
	return nil
}

// Stop cancels the active turn, if any, and settles to idle. It returns
// synchronously; the turn worker observes the token and winds down without
// entering any further stage. Calling Stop while idle is a no-op.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	if o.token != nil {
		o.token.Set()
	}
	o.state.Store(int32(StateIdle))
	o.mu.Unlock()

	if o.source != nil {
		if err := o.source.Stop(); err != nil {
			logger.Warn("failed to stop speech source", "error", err)
		}
	}
	o.opts.player.ClearBuffer()
	o.emitter.Emit(events.NewStateChanged(StateIdle.String()))
}

// Close stops the loop and shuts the event dispatcher down after the
// in-flight turn has wound down and every queued event is delivered.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.Stop()

		o.mu.Lock()
		pending := o.turnDone
		o.mu.Unlock()
		if pending != nil {
			<-pending
		}

		o.emitter.Close()
	})
}

// HandleSpeechChunk receives one complete speech chunk from the source. It
// is the entry point of a turn; chunks arriving while a turn is already in
// flight or after Stop are dropped.
func (o *Orchestrator) HandleSpeechChunk(wav []byte) {
	o.mu.Lock()
	if !o.running || o.token == nil || o.token.IsSet() ||
		State(o.state.Load()) != StateListening || o.turnDone != nil {
		o.mu.Unlock()
		return
	}
	token := o.token
	done := make(chan struct{})
	o.turnDone = done
	o.state.Store(int32(StateTranscribing))
	o.mu.Unlock()

	// The microphone is released for the duration of the turn.
	if o.source != nil {
		if err := o.source.Stop(); err != nil {
			logger.Warn("failed to pause speech source", "error", err)
		}
	}
	o.emitter.Emit(events.NewStateChanged(StateTranscribing.String()))

	go func() {
		outcome := o.runTurn(token, wav)

		o.mu.Lock()
		o.turnDone = nil
		o.mu.Unlock()
		close(done)

		if outcome == turnResume {
			o.maybeAutoListen(token)
		}
	}()
}

// transition performs a worker-side state change. It refuses to move once
// the token is set so a concurrent Stop cannot be overwritten.
func (o *Orchestrator) transition(token *cancelToken, state State) {
	o.mu.Lock()
	if token.IsSet() {
		o.mu.Unlock()
		return
	}
	o.state.Store(int32(state))
	o.mu.Unlock()

	o.emitter.Emit(events.NewStateChanged(state.String()))
}

// maybeAutoListen decides where a finished turn settles: back to listening
// when auto-listen is on, otherwise idle. A cancelled turn changes nothing;
// Stop already idled the machine.
func (o *Orchestrator) maybeAutoListen(token *cancelToken) {
	if token.IsSet() {
		return
	}

	if o.autoListen.Load() {
		o.mu.Lock()
		ctx := o.baseCtx
		o.mu.Unlock()
		if o.source != nil {
			if err := o.source.Start(ctx); err != nil {
				logger.Error("failed to resume listening", "error", err)
				o.settleIdle(token)
				return
			}
		}
		o.transition(token, StateListening)
		return
	}

	o.settleIdle(token)
}

func (o *Orchestrator) settleIdle(token *cancelToken) {
	o.mu.Lock()
	o.running = false
	o.mu.Unlock()
	o.transition(token, StateIdle)
}
