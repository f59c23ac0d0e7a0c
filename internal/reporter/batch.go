package reporter

import (
	"sync"

	"github.com/fernwall/screentime/internal/domain"
)

// Batch is the pending sample queue between the detector tick loop
// (producer) and the flush loop (consumer). Appends go to the tail;
// the consumer peeks a prefix and drops it only after the flush
// outcome is known, so a flush either fully drains what it saw or
// leaves the queue intact.
type Batch struct {
	mu      sync.Mutex
	entries []domain.UsageLogEntry
}

// NewBatch creates an empty pending batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Append adds one sample. Called from the detector tick.
func (b *Batch) Append(e domain.UsageLogEntry) {
	b.mu.Lock()
	b.entries = append(b.entries, e)
	b.mu.Unlock()
}

// Peek returns a copy of the current entries without removing them.
func (b *Batch) Peek() []domain.UsageLogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.UsageLogEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Drop removes the first n entries. Entries appended after the Peek
// that produced n stay queued.
func (b *Batch) Drop(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n >= len(b.entries) {
		b.entries = nil
		return
	}
	b.entries = append([]domain.UsageLogEntry(nil), b.entries[n:]...)
}

// Len returns the number of pending entries.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
