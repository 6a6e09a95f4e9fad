// Package blob implements the flat, word-indexed cell store backing
// the heap (spec §4.A): a fixed-size array of Lnk "words" plus an
// append-only list of written indices, so that clearing or merging a
// blob costs O(writes) rather than O(capacity).
package blob

import "kindelia/internal/link"

// Blob is a fixed-capacity array of heap cells with sparse write
// tracking.
type Blob struct {
	data    []link.Lnk
	written []uint64
}

// New allocates a Blob with the given cell capacity.
func New(size int) *Blob {
	return &Blob{data: make([]link.Lnk, size)}
}

// Read returns the cell at i, or the absent sentinel if i was never
// written (or has since been cleared).
func (b *Blob) Read(i uint64) link.Lnk {
	return b.data[i]
}

// Write stores v at i. The first write to a previously-absent index is
// recorded so Clear/Absorb can touch only modified cells.
func (b *Blob) Write(i uint64, v link.Lnk) {
	if b.data[i].IsAbsent() {
		b.written = append(b.written, i)
	}
	b.data[i] = v
}

// Len reports the number of cells this blob can address.
func (b *Blob) Len() int { return len(b.data) }

// WriteCount reports how many distinct indices have been written since
// the last Clear.
func (b *Blob) WriteCount() int { return len(b.written) }

// Clear resets every written cell back to absent and forgets the
// write list, in time proportional to the number of writes, not to
// capacity.
func (b *Blob) Clear() {
	for _, i := range b.written {
		b.data[i] = link.Absent
	}
	b.written = b.written[:0]
}

// Absorb merges other's written cells into b. When overwrite is true,
// other's values always win; otherwise they only fill cells b itself
// never wrote (spec §4.A, and the rollback thinning merge of §4.D).
func (b *Blob) Absorb(other *Blob, overwrite bool) {
	for _, i := range other.written {
		if overwrite || b.data[i].IsAbsent() {
			b.Write(i, other.data[i])
		}
	}
}
