package analyst

import (
	"fmt"

	"github.com/ethogram-labs/affect.monitor/internal/affect"
)

// Buffer is an append-only, insertion-ordered sequence of affect
// readings. It is the backing store for every signal and statistics
// curve the engine maintains. Indexing follows Python list semantics:
// negative indices count back from the most recent element (-1 is the
// last append). A Buffer is owned by exactly one detector instance and
// carries no internal locking.
type Buffer struct {
	values []affect.Reading
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds r to the end of the buffer.
func (b *Buffer) Append(r affect.Reading) {
	b.values = append(b.values, r)
}

// Len returns the number of buffered readings.
func (b *Buffer) Len() int {
	return len(b.values)
}

// Empty reports whether nothing has been appended yet.
func (b *Buffer) Empty() bool {
	return len(b.values) == 0
}

// At returns the reading at index i. Negative indices address from the
// end: At(-1) is the most recent reading, At(-Len()) the oldest. At
// panics when the index falls outside the buffer, matching slice
// indexing semantics; out-of-range access is a programming error, not
// a runtime condition.
func (b *Buffer) At(i int) affect.Reading {
	n := len(b.values)
	idx := i
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		panic(fmt.Sprintf("analyst: buffer index %d out of range with length %d", i, n))
	}
	return b.values[idx]
}

// Last returns a view of the final min(n, Len()) readings in order.
// It never fails on short buffers; callers must not modify the
// returned slice.
func (b *Buffer) Last(n int) []affect.Reading {
	if n >= len(b.values) {
		return b.values
	}
	return b.values[len(b.values)-n:]
}

// Values returns the full backing slice in insertion order. Callers
// must not modify it.
func (b *Buffer) Values() []affect.Reading {
	return b.values
}

// Columns splits the buffered readings into dense valence and arousal
// series for vectorized statistics and plotting.
func (b *Buffer) Columns() (valence, arousal []float64) {
	return affect.Columns(b.values)
}
