package dialogue

import (
	"context"
	"sync/atomic"
)

// cancelToken is the single point of synchronization between the control
// side (Stop) and the stages of an in-flight turn. It is level triggered:
// once set, every later check observes it as set. Setting it also cancels
// the turn context so in-flight HTTP calls abort mid-wait instead of only
// at the next poll.
type cancelToken struct {
	set    atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
}

func newCancelToken(parent context.Context) *cancelToken {
	ctx, cancel := context.WithCancel(parent)
	return &cancelToken{ctx: ctx, cancel: cancel}
}

func (t *cancelToken) Set() {
	t.set.Store(true)
	t.cancel()
}

func (t *cancelToken) IsSet() bool {
	return t.set.Load()
}

// Context expires when the token is set. Stages pass it into their blocking
// collaborator calls.
func (t *cancelToken) Context() context.Context {
	return t.ctx
}
