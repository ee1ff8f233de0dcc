package queue

import (
	"context"
	"sync"
	"time"
)

// TransitionEvent is emitted for every status change after the transition committed.
// Downstream consumers (search indexing, notifications) subscribe to it.
type TransitionEvent struct {
	Family     string    `json:"family"`
	RootID     string    `json:"root_id"`
	VersionID  string    `json:"version_id"`
	Action     string    `json:"action"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Language   string    `json:"language,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type TransitionQueue interface {
	// Publish appends events to the queue.
	Publish(ctx context.Context, events ...TransitionEvent) error
	Close() error
}

var _ TransitionQueue = (*Nop)(nil)

type Nop struct{}

func NewNop() *Nop {
	return &Nop{}
}

func (n *Nop) Publish(ctx context.Context, events ...TransitionEvent) error {
	return nil
}

func (n *Nop) Close() error {
	return nil
}

var _ TransitionQueue = (*Memory)(nil)

// Memory keeps published events in process.
type Memory struct {
	mu     sync.Mutex
	events []TransitionEvent
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Publish(ctx context.Context, events ...TransitionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

// Events returns a copy of everything published so far.
func (m *Memory) Events() []TransitionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TransitionEvent(nil), m.events...)
}

func (m *Memory) Close() error {
	return nil
}
