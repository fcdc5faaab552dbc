package events

import (
	"context"
	"sync"
)

// MemoryBus is an in-process Bus used by tests and local runs without
// Redis. Published events queue up until drained.
type MemoryBus struct {
	mu    sync.Mutex
	queue []UserDeletedEvent
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

func (b *MemoryBus) PublishUserDeleted(ctx context.Context, event UserDeletedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, event)
	return nil
}

// Drain returns and clears every queued event.
func (b *MemoryBus) Drain() []UserDeletedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	drained := b.queue
	b.queue = nil
	return drained
}
