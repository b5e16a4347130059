// Package dedup tracks which inbound chat message ids have already been
// consumed, so a message is acted on at most once per process lifetime even
// though the polling window re-fetches recent history every cycle.
//
// The set is bounded: once capacity is reached the least recently marked id
// is evicted. Capacity should comfortably exceed the provider's fetch
// window so eviction never races the poller. Nothing is persisted: after a
// restart, history still inside the fetch window is reprocessed.
package dedup

import "sync"

type entry struct {
	id   string
	prev *entry
	next *entry
}

// Set is a thread-safe bounded seen-set with LRU eviction, built on a hash
// map plus a doubly linked list so Mark and Seen stay O(1).
type Set struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*entry
	head     *entry // most recently marked (sentinel)
	tail     *entry // least recently marked (sentinel)
}

// New creates a Set with the given capacity. Panics if capacity < 1.
func New(capacity int) *Set {
	if capacity < 1 {
		panic("dedup: capacity must be >= 1")
	}

	head := &entry{}
	tail := &entry{}
	head.next = tail
	tail.prev = head

	return &Set{
		capacity: capacity,
		items:    make(map[string]*entry, capacity),
		head:     head,
		tail:     tail,
	}
}

// Seen reports whether id has been marked. It does not refresh recency.
func (s *Set) Seen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[id]
	return ok
}

// Mark records id as consumed, evicting the oldest id at capacity.
// Marking an already-seen id refreshes its recency.
func (s *Set) Mark(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.items[id]; ok {
		s.unlink(e)
		s.pushFront(e)
		return
	}

	if len(s.items) >= s.capacity {
		victim := s.tail.prev
		s.unlink(victim)
		delete(s.items, victim.id)
	}

	e := &entry{id: id}
	s.items[id] = e
	s.pushFront(e)
}

// Len returns the number of ids currently held.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// caller must hold mu for the list operations below.

func (s *Set) unlink(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev = nil
	e.next = nil
}

func (s *Set) pushFront(e *entry) {
	e.next = s.head.next
	e.prev = s.head
	s.head.next.prev = e
	s.head.next = e
}
