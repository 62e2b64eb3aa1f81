// Package events defines the messages syncdeck's engine publishes while jobs run.
package events

import (
	"sync"

	"github.com/joe/syncdeck/internal/domain"
)

// Event is the interface implemented by all engine events.
type Event interface {
	isEvent()
}

// EventEmitter is the interface for emitting events.
type EventEmitter interface {
	Emit(event Event)
}

// EmitterFunc adapts a function to EventEmitter.
type EmitterFunc func(Event)

// Emit calls f(event).
func (f EmitterFunc) Emit(event Event) {
	f(event)
}

// RunID identifies one rsync process started by the controller.
// Zero means "no run".
type RunID uint64

// Process events

// OutputLine carries one raw stdout chunk, unmodified.
type OutputLine struct {
	RunID RunID
	Text  string
}

func (OutputLine) isEvent() {}

// ErrorLine carries one raw stderr chunk. It does not end the run.
type ErrorLine struct {
	RunID RunID
	Text  string
}

func (ErrorLine) isEvent() {}

// ProgressUpdated is emitted whenever the parser produces a reading.
type ProgressUpdated struct {
	RunID   RunID
	Reading domain.ProgressReading
}

func (ProgressUpdated) isEvent() {}

// RunComplete is emitted once per run after the process exits and its
// output has been drained. Err is nil exactly when ExitCode is zero.
type RunComplete struct {
	RunID    RunID
	ExitCode int
	Err      error
}

func (RunComplete) isEvent() {}

// Sequencer events

// Leg identifies which direction of a job is running.
type Leg string

// Legs of a job.
const (
	LegForward Leg = "forward"
	LegReverse Leg = "reverse"
)

// JobStarted is emitted when a job (or one leg of a two-way job) starts.
type JobStarted struct {
	JobID  string
	RunID  RunID
	Leg    Leg
	Source string
	Dest   string
}

func (JobStarted) isEvent() {}

// JobFinished is emitted when a job reaches a terminal status.
type JobFinished struct {
	JobID  string
	Status domain.Status
	Err    error
}

func (JobFinished) isEvent() {}

// ProjectStarted is emitted when a project batch begins.
type ProjectStarted struct {
	ProjectID string
	Total     int
}

func (ProjectStarted) isEvent() {}

// ProjectFinished is emitted when the last queued job of a project is done.
type ProjectFinished struct {
	ProjectID string
}

func (ProjectFinished) isEvent() {}

// RunStopped is emitted when the user stops the active run.
// JobID is empty if the stop happened between jobs.
type RunStopped struct {
	JobID string
}

func (RunStopped) isEvent() {}

// StateChanged is emitted on every sequencer state transition.
type StateChanged struct {
	State string
}

func (StateChanged) isEvent() {}

// Fanout delivers each event to every subscriber in registration order.
type Fanout struct {
	mu          sync.RWMutex
	subscribers []EventEmitter
}

// NewFanout creates a fanout with the given subscribers.
func NewFanout(subscribers ...EventEmitter) *Fanout {
	return &Fanout{subscribers: subscribers}
}

// Subscribe adds a subscriber. Nil subscribers are ignored.
func (f *Fanout) Subscribe(subscriber EventEmitter) {
	if subscriber == nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.subscribers = append(f.subscribers, subscriber)
}

// Emit implements EventEmitter.
func (f *Fanout) Emit(event Event) {
	f.mu.RLock()
	subscribers := f.subscribers
	f.mu.RUnlock()

	for _, s := range subscribers {
		s.Emit(event)
	}
}
