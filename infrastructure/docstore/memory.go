package docstore

import (
	"context"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store for tests and offline runs.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string][]byte
	subs map[string][]chan Event

	// FailWrites, when set, makes every Set return this error. Tests use it
	// to exercise persist-failure and permission-denied paths.
	FailWrites error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string][]byte),
		subs: make(map[string][]chan Event),
	}
}

// Get retrieves the document at key.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.docs[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(val))
	copy(cp, val)
	return cp, true, nil
}

// Set writes the document and notifies collection subscribers.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, merge bool) error {
	if err := validateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	if s.FailWrites != nil {
		err := s.FailWrites
		s.mu.Unlock()
		return err
	}
	if merge {
		if existing, ok := s.docs[key]; ok {
			value = mergeJSON(existing, value)
		}
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	s.docs[key] = cp

	event := Event{ID: docID(key), Value: cp}
	subs := append([]chan Event(nil), s.subs[collectionOf(key)]...)
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default: // slow subscriber, drop rather than block the writer
		}
	}
	return nil
}

// Subscribe streams changes under collection until ctx is cancelled.
func (s *MemoryStore) Subscribe(ctx context.Context, collection string) (<-chan Event, error) {
	if err := validateKey(collection); err != nil {
		return nil, err
	}
	ch := make(chan Event, 16)
	s.mu.Lock()
	s.subs[collection] = append(s.subs[collection], ch)
	s.mu.Unlock()

	out := make(chan Event)
	go func() {
		defer close(out)
		defer s.unsubscribe(collection, ch)
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-ch:
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// Len reports the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

func (s *MemoryStore) unsubscribe(collection string, ch chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := s.subs[collection]
	for i, c := range subs {
		if c == ch {
			s.subs[collection] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}
