// Package store holds a state value that only changes through a pure reducer.
package store

import (
	"sync"

	"go.uber.org/zap"
)

// Reducer maps a state and an event to the next state. It must not mutate s.
type Reducer[S, E any] func(s S, ev E) S

// Store applies events atomically and notifies subscribers with the new state.
type Store[S, E any] struct {
	mu     sync.Mutex
	state  S
	reduce Reducer[S, E]
	subs   map[int]func(S)
	nextID int
	log    *zap.Logger
}

// New constructs a Store with an initial state.
func New[S, E any](initial S, reduce Reducer[S, E], log *zap.Logger) *Store[S, E] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store[S, E]{state: initial, reduce: reduce, subs: map[int]func(S){}, log: log}
}

// State returns the current state snapshot.
func (s *Store[S, E]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies ev and returns the resulting state.
// Subscribers run after the lock is released; their order is unspecified.
func (s *Store[S, E]) Dispatch(ev E) S {
	s.mu.Lock()
	s.state = s.reduce(s.state, ev)
	next := s.state
	subs := make([]func(S), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	s.log.Debug("dispatch", zap.String("event", eventName(ev)), zap.Int("subscribers", len(subs)))
	for _, fn := range subs {
		fn(next)
	}
	return next
}

// Subscribe registers fn for every future state change. Call cancel to stop.
func (s *Store[S, E]) Subscribe(fn func(S)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Replay folds events over initial.
func Replay[S, E any](initial S, reduce Reducer[S, E], events ...E) S {
	s := initial
	for _, ev := range events {
		s = reduce(s, ev)
	}
	return s
}

type named interface{ EventName() string }

func eventName(ev any) string {
	if n, ok := ev.(named); ok {
		return n.EventName()
	}
	return "event"
}
