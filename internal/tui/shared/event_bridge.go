package shared

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/syncdeck/internal/events"
)

// BridgeBuffer is how many events may queue before the bridge drops.
const BridgeBuffer = 1024

// EventMsg wraps an events.Event for use as a tea.Msg.
type EventMsg struct {
	Event events.Event
}

// EventBridge adapts sequencer events to bubble tea messages.
// It implements events.EventEmitter and provides a channel for TUI consumption.
//
// Emit is called on the sequencer's goroutine and never blocks it: when the
// buffer is full the event is dropped and counted.
type EventBridge struct {
	mu        sync.Mutex
	eventChan chan tea.Msg
	closed    bool
	dropped   int
}

// NewEventBridge creates a new event bridge.
func NewEventBridge() *EventBridge {
	return &EventBridge{
		eventChan: make(chan tea.Msg, BridgeBuffer),
	}
}

// Emit implements events.EventEmitter.
func (b *EventBridge) Emit(event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	select {
	case b.eventChan <- EventMsg{Event: event}:
	default:
		b.dropped++
	}
}

// Dropped returns how many events were discarded because the UI fell behind.
func (b *EventBridge) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.dropped
}

// Subscribe returns the event channel for receiving events.
func (b *EventBridge) Subscribe() <-chan tea.Msg {
	return b.eventChan
}

// ListenCmd returns a tea.Cmd that blocks until an event is received.
// Use this in Init() or after processing an event to continue listening.
func (b *EventBridge) ListenCmd() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-b.eventChan
		if !ok {
			return nil // Channel closed
		}

		return msg
	}
}

// Close closes the event channel.
// Call this when done with the bridge.
func (b *EventBridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.eventChan)
	}
}
