package dialogue

import (
	"strings"
	"sync"
)

// sentenceQueue hands completed sentences from the stream reader to the
// speaker in arrival order. The speaker iterates Sentences, which blocks
// until either a sentence arrives, the stream is marked done, or the queue
// is cleared by cancellation.
type sentenceQueue struct {
	mu           sync.Mutex
	sentences    []string
	consumed     int
	done         bool
	cleared      bool
	updateSignal chan struct{}
}

func newSentenceQueue() *sentenceQueue {
	return &sentenceQueue{
		updateSignal: make(chan struct{}, 1),
	}
}

func (q *sentenceQueue) Add(sentence string) {
	q.mu.Lock()
	q.sentences = append(q.sentences, sentence)
	q.mu.Unlock()
	q.signalUpdate()
}

// Done marks that no more sentences will be added.
func (q *sentenceQueue) Done() {
	q.mu.Lock()
	q.done = true
	q.mu.Unlock()
	q.signalUpdate()
}

// Empty reports whether every queued sentence has been consumed.
func (q *sentenceQueue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.consumed >= len(q.sentences)
}

// Finished reports whether the stream is done and nothing is left to speak.
func (q *sentenceQueue) Finished() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.done && q.consumed >= len(q.sentences)
}

func (q *sentenceQueue) Sentences(yield func(string) bool) {
	for {
		q.mu.Lock()
		if q.cleared {
			q.mu.Unlock()
			return
		}

		if q.consumed < len(q.sentences) {
			sentence := q.sentences[q.consumed]
			q.consumed++
			q.mu.Unlock()
			if !yield(sentence) {
				return
			}
			continue
		}

		if q.done {
			q.mu.Unlock()
			return
		}

		q.mu.Unlock()
		<-q.updateSignal
	}
}

func (q *sentenceQueue) String() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return strings.Join(q.sentences, " ")
}

// Clear unblocks the consumer and stops all further delivery. Used on
// cancellation.
func (q *sentenceQueue) Clear() {
	q.mu.Lock()
	q.cleared = true
	q.mu.Unlock()
	q.signalUpdate()
}

func (q *sentenceQueue) signalUpdate() {
	select {
	case q.updateSignal <- struct{}{}:
	default:
	}
}
