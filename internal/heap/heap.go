// Package heap implements the snapshotable heap aggregate (spec §4.C),
// its backing cell store and metadata maps (§4.A, §4.B), and the Next
// and Size counters the linear-probe allocator (§4.E) in
// internal/runtime keeps.
package heap

import (
	"math"

	"kindelia/internal/blob"
	"kindelia/internal/link"
	"kindelia/internal/rule"
	"kindelia/internal/word"
)

// Scalar sentinels. NoneU64/NoneI64 mark a scalar field "absent" in a
// given Heap so absorb() can tell "never set here" from "explicitly
// zero" (spec §3 "Heap": "each scalar has a distinguished absent
// sentinel").
const (
	NoneU64 = math.MaxUint64
	NoneI64 = math.MinInt64
)

// Heap bundles the cell store, the three metadata maps, and the
// per-heap scalar counters into one snapshotable unit.
type Heap struct {
	Data *blob.Blob
	Disk *Disk
	File *File
	Arit *Arit

	Tick uint64
	Funs uint64
	Dups uint64
	Cost uint64
	Mana uint64
	Size int64
	Next uint64
}

// Size of the cell array backing every Heap. 2^25 matches spec §3's
// stated default; callers needing a smaller heap for tests should use
// NewSized.
const DefaultSize = 1 << 25

// New allocates an empty Heap with DefaultSize cells and every scalar
// set to its absent sentinel.
func New() *Heap { return NewSized(DefaultSize) }

// NewSized allocates an empty Heap with the given cell capacity.
func NewSized(size int) *Heap {
	return &Heap{
		Data: blob.New(size),
		Disk: newDisk(),
		File: newFile(),
		Arit: newArit(),
		Tick: NoneU64,
		Funs: NoneU64,
		Dups: NoneU64,
		Cost: NoneU64,
		Mana: NoneU64,
		Size: NoneI64,
		Next: NoneU64,
	}
}

// Read/Write delegate straight to the cell store.
func (h *Heap) Read(i uint64) link.Lnk      { return h.Data.Read(i) }
func (h *Heap) Write(i uint64, v link.Lnk)  { h.Data.Write(i, v) }

// ReadDisk/WriteDisk/ReadFunc/DefineFunc/ReadArity/DefineArity delegate
// to the metadata maps, taking a packed 120-bit identifier. Each is a
// single-layer primitive: internal/runtime composes them across
// draw/heap/rollback the same way it does for cells.
func (h *Heap) ReadDisk(fid word.U120) (link.Lnk, bool) { return h.Disk.Read(fid) }
func (h *Heap) WriteDisk(fid word.U120, v link.Lnk)     { h.Disk.Write(fid, v) }

func (h *Heap) ReadFunc(fid uint64) (*rule.Func, bool) { return h.File.Read(fid) }
func (h *Heap) DefineFunc(fid uint64, fn *rule.Func)   { h.File.Write(fid, fn) }
func (h *Heap) ReadArity(fid uint64) (uint64, bool)    { return h.Arit.Read(fid) }
func (h *Heap) DefineArity(fid uint64, arity uint64)   { h.Arit.Write(fid, arity) }

func absorbU64(a, b uint64, overwrite bool) uint64 {
	if b == NoneU64 {
		return a
	}
	if overwrite || a == NoneU64 {
		return b
	}
	return a
}

func absorbI64(a, b int64, overwrite bool) int64 {
	if b == NoneI64 {
		return a
	}
	if overwrite || a == NoneI64 {
		return b
	}
	return a
}

// Absorb merges other's non-absent fields into h. When overwrite is
// true, other always wins; otherwise other only fills what h itself
// never touched (spec §4.C/§4.A).
func (h *Heap) Absorb(other *Heap, overwrite bool) {
	h.Data.Absorb(other.Data, overwrite)
	h.Disk.Absorb(other.Disk, overwrite)
	h.File.Absorb(other.File, overwrite)
	h.Arit.Absorb(other.Arit, overwrite)
	h.Tick = absorbU64(h.Tick, other.Tick, overwrite)
	h.Funs = absorbU64(h.Funs, other.Funs, overwrite)
	h.Dups = absorbU64(h.Dups, other.Dups, overwrite)
	h.Cost = absorbU64(h.Cost, other.Cost, overwrite)
	h.Mana = absorbU64(h.Mana, other.Mana, overwrite)
	h.Size = absorbI64(h.Size, other.Size, overwrite)
	h.Next = absorbU64(h.Next, other.Next, overwrite)
}

// Clear resets every field back to absent.
func (h *Heap) Clear() {
	h.Data.Clear()
	h.Disk.Clear()
	h.File.Clear()
	h.Arit.Clear()
	h.Tick = NoneU64
	h.Funs = NoneU64
	h.Dups = NoneU64
	h.Cost = NoneU64
	h.Mana = NoneU64
	h.Size = NoneI64
	h.Next = NoneU64
}

// ClearCells frees the n cells starting at loc.
func (h *Heap) ClearCells(loc, n uint64) {
	for i := uint64(0); i < n; i++ {
		h.Data.Write(loc+i, link.Absent)
	}
	h.Size -= int64(n)
}
