// Package events defines the typed notifications the dialogue orchestrator
// emits while a turn progresses. Events are delivered through a single
// dispatcher goroutine, never from the turn worker itself, so observers
// (UIs, test harnesses) can consume them without additional synchronization.
package events
