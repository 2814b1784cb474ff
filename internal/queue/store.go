package queue

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/serglom21/distributed-queue-instrumentation/internal/logger"
)

// queueState tracks the buffered messages for a single named queue.
type queueState struct {
	name     string
	messages []*Message
	mu       sync.Mutex
}

// Store is the in-memory registry of named FIFO queues. Queues come into
// existence on first use and live for the lifetime of the process; there is
// no persistence and no capacity bound.
type Store struct {
	queues map[string]*queueState
	log    zerolog.Logger
	mu     sync.RWMutex
}

// NewStore creates an empty queue store.
func NewStore() *Store {
	return &Store{
		queues: make(map[string]*queueState),
		log:    logger.WithComponent("queue-store"),
	}
}

// getOrCreate returns the state for the named queue, creating it if needed.
func (s *Store) getOrCreate(name string) *queueState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, exists := s.queues[name]
	if !exists {
		state = &queueState{name: name}
		s.queues[name] = state
		s.log.Debug().
			Str("queue", name).
			Msg("Queue created")
	}
	return state
}

// lookup returns the state for the named queue without creating it.
func (s *Store) lookup(name string) *queueState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queues[name]
}

// Ensure creates the named queue if it does not exist yet.
func (s *Store) Ensure(name string) {
	s.getOrCreate(name)
}

// Enqueue appends a message to the tail of the named queue, creating the
// queue if absent. The message must not be mutated after this call.
func (s *Store) Enqueue(name string, msg *Message) {
	state := s.getOrCreate(name)

	state.mu.Lock()
	defer state.mu.Unlock()
	state.messages = append(state.messages, msg)
}

// DequeueUpTo removes and returns up to max messages from the head of the
// named queue, preserving send order. It never blocks: an empty or unknown
// queue yields an empty slice. Each message is handed out exactly once.
func (s *Store) DequeueUpTo(name string, max int) []*Message {
	if max <= 0 {
		return nil
	}
	state := s.lookup(name)
	if state == nil {
		return nil
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	n := max
	if n > len(state.messages) {
		n = len(state.messages)
	}
	if n == 0 {
		return nil
	}

	out := make([]*Message, n)
	copy(out, state.messages[:n])
	for i := 0; i < n; i++ {
		state.messages[i] = nil
	}
	state.messages = state.messages[n:]
	if len(state.messages) == 0 {
		state.messages = nil
	}
	return out
}

// PeekAll returns a snapshot of the buffered messages for the named queue
// without removing them.
func (s *Store) PeekAll(name string) []*Message {
	state := s.lookup(name)
	if state == nil {
		return nil
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	out := make([]*Message, len(state.messages))
	copy(out, state.messages)
	return out
}

// Size returns the number of buffered messages for the named queue.
func (s *Store) Size(name string) int {
	state := s.lookup(name)
	if state == nil {
		return 0
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	return len(state.messages)
}

// Names returns the known queue names in lexical order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.queues))
	for name := range s.queues {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
