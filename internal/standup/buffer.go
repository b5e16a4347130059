// Package standup accumulates raw status updates and posts the daily
// team summary.
package standup

import "sync"

// Update is one raw channel message attributed to its author.
type Update struct {
	Owner string
	Text  string
}

// Buffer collects updates between summary runs. Safe for concurrent use
// by the ingestion loop and the summary job.
type Buffer struct {
	mu      sync.Mutex
	updates []Update
}

// NewBuffer creates an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Add appends one update.
func (b *Buffer) Add(owner, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates = append(b.updates, Update{Owner: owner, Text: text})
}

// Drain returns all buffered updates and clears the buffer.
func (b *Buffer) Drain() []Update {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.updates
	b.updates = nil
	return out
}

// Len reports the number of buffered updates.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.updates)
}
