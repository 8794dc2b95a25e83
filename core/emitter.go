package dialogue

import (
	"sync"

	"github.com/lovrenc-k/voxloop/core/events"
)

// eventEmitter decouples observers from the turn worker: events go onto a
// queue drained by a single dispatcher goroutine, so callbacks never run on
// the worker and cannot stall a stage. Delivery order matches emission
// order.
type eventEmitter struct {
	queue chan events.Event

	closeOnce sync.Once
	drained   chan struct{}
}

func newEventEmitter(handler func(events.Event)) *eventEmitter {
	e := &eventEmitter{
		queue:   make(chan events.Event, 64),
		drained: make(chan struct{}),
	}
	go func() {
		defer close(e.drained)
		for event := range e.queue {
			handler(event)
		}
	}()
	return e
}

func (e *eventEmitter) Emit(event events.Event) {
	defer func() {
		// Emitting after Close loses the event instead of crashing the
		// worker that raced the shutdown.
		if recover() != nil {
			logger.Warn("event emitted after emitter close", "kind", event.Kind())
		}
	}()
	e.queue <- event
}

// Close stops the dispatcher after the queue drains.
func (e *eventEmitter) Close() {
	e.closeOnce.Do(func() {
		close(e.queue)
		<-e.drained
	})
}

// routeEvent fans a typed event out to the matching per-event callbacks.
func routeEvent(opts *orchestratorOptions, event events.Event) {
	if opts.onEvent != nil {
		opts.onEvent(event)
	}

	switch typedEvent := event.(type) {
	case events.StateChanged:
		if opts.onStateChanged != nil {
			opts.onStateChanged(typedEvent.State)
		}
	case events.UserTranscript:
		if opts.onUserTranscript != nil {
			opts.onUserTranscript(typedEvent.Transcript)
		}
	case events.AssistantSentence:
		if opts.onAssistantSentence != nil {
			opts.onAssistantSentence(typedEvent.Sentence)
		}
	case events.TurnCompleted:
		if opts.onTurnCompleted != nil {
			opts.onTurnCompleted(typedEvent.Reply)
		}
	case events.TurnFailed:
		if opts.onError != nil {
			opts.onError(typedEvent.Stage, typedEvent.Message)
		}
	case events.TurnCancelled:
		if opts.onCancellation != nil {
			opts.onCancellation()
		}
	}
}
