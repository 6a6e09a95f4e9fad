// Package runtime implements the layered state machine described in
// spec §4 components D/E and §6's external interface: a draw heap for
// the statement currently executing, a canonical heap for the last
// committed tick, a thinned rollback stack of older ticks, and a pool
// of spare heaps to recycle instead of allocating fresh ones.
//
// Every read searches draw, then heap, then the rollback stack,
// youngest first, returning the first non-absent answer. Every write
// lands only in draw; a tick absorbs draw into heap and pushes heap
// onto the rollback stack.
package runtime

import (
	"errors"

	"kindelia/internal/heap"
	"kindelia/internal/link"
	"kindelia/internal/rollback"
	"kindelia/internal/rule"
	"kindelia/internal/word"
)

// ErrBudgetExceeded is the fault SetFault/IncrCost records once a
// statement's interaction-rule firings pass the installed cost limit
// (spec §5 "Bounded execution... cost... counters"; §7 "Budget
// exceeded (cost or mana): statement failure").
var ErrBudgetExceeded = errors.New("runtime: cost budget exceeded")

// Runtime is the top-level mutable state of the machine.
type Runtime struct {
	draw *heap.Heap
	heap *heap.Heap
	back *rollback.Rollback
	nuls []*heap.Heap

	restart func() uint64 // deterministic allocator-restart, set by internal/chash

	fault error // set by internal/reducer when a reduction step cannot proceed (e.g. division by zero)

	costLimit uint64 // 0 means unlimited; see SetCostLimit

	indexer Indexer // optional; see SetIndexer
}

// Indexer mirrors committed disk writes and ticks into external
// storage so get_disk/get_tick can answer for history that has aged
// out of the in-memory rollback stack (spec §6). Declared here as an
// interface, rather than importing internal/query directly, so this
// package never pulls in database/sql's driver set; *query.Indexer
// satisfies it structurally.
type Indexer interface {
	RecordTick(tick uint64) error
	RecordDisk(tick uint64, fid word.U120, root link.Lnk) error
	RecordFunc(tick uint64, fid word.U120, arity uint64, source string) error
}

// SetIndexer attaches ix as the runtime's historical mirror. Passing
// nil detaches it. Errors from the indexer itself are not fatal to the
// statement that triggered them — the in-memory state is authoritative
// and the mirror is a best-effort convenience for queries that reach
// further back than the rollback window retains.
func (rt *Runtime) SetIndexer(ix Indexer) { rt.indexer = ix }

// Indexer returns the currently attached historical mirror, or nil.
func (rt *Runtime) Indexer() Indexer { return rt.indexer }

// SetFault records an error encountered mid-reduction. The first fault
// set during a statement sticks; internal/statement checks it after
// every Reduce/ComputeAt call and aborts the statement if non-nil.
func (rt *Runtime) SetFault(err error) {
	if rt.fault == nil {
		rt.fault = err
	}
}

// Fault returns the fault recorded since the last ClearFault, if any.
func (rt *Runtime) Fault() error { return rt.fault }

// ClearFault resets the fault slot, normally done once per statement.
func (rt *Runtime) ClearFault() { rt.fault = nil }

// New builds a Runtime with an empty draw and heap and no rollback
// history, backed by a small pool of spare heaps sized for reuse
// after rollbacks.
func New() *Runtime {
	nuls := make([]*heap.Heap, 0, 8)
	for i := 0; i < 8; i++ {
		nuls = append(nuls, heap.New())
	}
	return &Runtime{
		draw: heap.New(),
		heap: heap.New(),
		back: nil,
		nuls: nuls,
	}
}

// SetRestart installs the function used to pick a new probe position
// after every failed probe of the allocator. If nil, a failed probe
// advances one cell, wrapping around at the end of the heap, which is
// adequate for tests but not for production replay determinism — see
// internal/chash.
func (rt *Runtime) SetRestart(f func() uint64) { rt.restart = f }

// layers returns draw, heap, and every retained rollback heap, in
// search order (youngest first).
func (rt *Runtime) layers(yield func(*heap.Heap) bool) {
	if !yield(rt.draw) {
		return
	}
	if !yield(rt.heap) {
		return
	}
	back := rt.back
	for back != nil {
		h, tail, ok := rollback.Pop(back)
		if !ok {
			return
		}
		if !yield(h) {
			return
		}
		back = tail
	}
}

// Read returns the cell at loc, searching draw, then heap, then the
// rollback stack. An index nothing has ever written returns the
// absent sentinel.
func (rt *Runtime) Read(loc uint64) link.Lnk {
	var found link.Lnk
	rt.layers(func(h *heap.Heap) bool {
		if v := h.Read(loc); !v.IsAbsent() {
			found = v
			return false
		}
		return true
	})
	return found
}

// Write stores v at loc in the draw heap. Writes never touch the
// committed heap or rollback history directly — only Commit and Tick
// move data there.
func (rt *Runtime) Write(loc uint64, v link.Lnk) { rt.draw.Write(loc, v) }

// GetArity looks up a function or constructor's declared arity, keyed
// by the truncated 64-bit id a Ctr/Fun Lnk's Ext field carries.
func (rt *Runtime) GetArity(fid uint64) uint64 {
	found, _ := rt.LookupArity(fid)
	return found
}

// LookupArity is GetArity with an explicit "was this id ever declared"
// flag, for internal/statement's Ctr/Fun redeclaration check (a
// legitimately-zero arity must not be mistaken for "undeclared").
func (rt *Runtime) LookupArity(fid uint64) (uint64, bool) {
	var found uint64
	var ok bool
	rt.layers(func(h *heap.Heap) bool {
		if v, hit := h.ReadArity(fid); hit {
			found, ok = v, true
			return false
		}
		return true
	})
	return found, ok
}

// DefineArity records a constructor's declared arity in the draw heap,
// for the Ctr statement (which has no rule body to go with DefineFunc).
func (rt *Runtime) DefineArity(fid uint64, arity uint64) { rt.draw.DefineArity(fid, arity) }

// GetFunc looks up a function's compiled rules.
func (rt *Runtime) GetFunc(fid uint64) (*rule.Func, bool) {
	var found *rule.Func
	var ok bool
	rt.layers(func(h *heap.Heap) bool {
		if v, hit := h.ReadFunc(fid); hit {
			found, ok = v, true
			return false
		}
		return true
	})
	return found, ok
}

// DefineFunc registers fn's rules and arity in the draw heap under fid
// (the same truncated id that will later appear in Ctr/Fun Lnks
// referencing it).
func (rt *Runtime) DefineFunc(fid uint64, fn *rule.Func) {
	rt.draw.DefineArity(fid, fn.Arity)
	rt.draw.DefineFunc(fid, fn)
}

// NextDup mints a fresh duplicator color and advances the draw heap's
// counter, so distinct Dup constructs never share a color (spec §3
// invariant 4, §4.F). The original source's create_term instead reused
// get_dups() without ever advancing it, which original_source also
// left an unused fresh_dups method for — we wire that intent in here
// rather than reproduce the stuck counter; see DESIGN.md.
func (rt *Runtime) NextDup() uint64 {
	dups := rt.draw.Dups
	if dups == heap.NoneU64 {
		var base uint64
		rt.layers(func(h *heap.Heap) bool {
			if h.Dups != heap.NoneU64 {
				base = h.Dups
				return false
			}
			return true
		})
		dups = base
	}
	rt.draw.Dups = dups + 1
	return dups
}

// SetCostLimit bounds the number of interaction-rule firings a single
// statement's reduction may perform before IncrCost records
// ErrBudgetExceeded. Zero (the default) means unlimited. Mana is an
// externally-defined cost per spec §5 and is not metered by this
// core; a caller wanting a mana bound checks its own accounting
// between statements and fails them itself rather than committing.
func (rt *Runtime) SetCostLimit(n uint64) { rt.costLimit = n }

// Cost reports the number of interaction-rule firings recorded so far
// in the current layered view.
func (rt *Runtime) Cost() uint64 {
	cost := rt.draw.Cost
	if cost != heap.NoneU64 {
		return cost
	}
	var base uint64
	rt.layers(func(h *heap.Heap) bool {
		if h.Cost != heap.NoneU64 {
			base = h.Cost
			return false
		}
		return true
	})
	return base
}

// IncrCost records one interaction-rule firing (spec §4.H: "each
// increments cost by 1 on fire"), called by internal/reducer after
// every rewrite. If the firings pending in the draw heap (the current
// statement's share of the running total) pass costLimit, it records
// ErrBudgetExceeded via SetFault so the enclosing statement aborts
// (spec §7 "Budget exceeded: statement failure").
func (rt *Runtime) IncrCost() {
	var committed uint64
	rt.layers(func(h *heap.Heap) bool {
		if h != rt.draw && h.Cost != heap.NoneU64 {
			committed = h.Cost
			return false
		}
		return true
	})
	cost := rt.Cost() + 1
	rt.draw.Cost = cost
	if rt.costLimit > 0 && cost-committed > rt.costLimit {
		rt.SetFault(ErrBudgetExceeded)
	}
}

// GetDisk reads fid's persisted root, per the external interface of
// spec §6.
func (rt *Runtime) GetDisk(fid word.U120) (link.Lnk, bool) {
	var found link.Lnk
	var ok bool
	rt.layers(func(h *heap.Heap) bool {
		if v, hit := h.ReadDisk(fid); hit {
			found, ok = v, true
			return false
		}
		return true
	})
	return found, ok
}

// SetDisk persists root under fid in the draw heap.
func (rt *Runtime) SetDisk(fid word.U120, root link.Lnk) { rt.draw.WriteDisk(fid, root) }

// GetTick reports the committed tick, per spec §6, searching the heap
// and then the retained rollback heaps (a heap that has just replaced
// one pushed onto the stack has no tick of its own yet). A heap that
// has never been ticked carries the absent sentinel rather than a real
// 0, since Absorb needs to tell "never set here" from "explicitly
// zero" — GetTick resolves that back to the genesis tick 0 a caller
// actually expects to see.
func (rt *Runtime) GetTick() uint64 {
	var tick uint64
	rt.layers(func(h *heap.Heap) bool {
		if h.Tick != heap.NoneU64 {
			tick = h.Tick
			return false
		}
		return true
	})
	return tick
}

// heapSize returns the shared cell-array capacity every heap in the
// runtime was allocated with.
func (rt *Runtime) heapSize() uint64 { return uint64(rt.draw.Data.Len()) }

// Alloc reserves n consecutive, currently-absent cells and returns the
// index of the first. Emptiness is judged against the full layered
// view (spec §4.E): a cell the committed heap or rollback history
// already occupies can never be handed out again, even though the
// probe itself only ever advances the draw heap's Next counter.
func (rt *Runtime) Alloc(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	size := rt.heapSize()
	for {
		index := rt.draw.Next
		if index <= size-n {
			empty := true
			for i := uint64(0); i < n; i++ {
				if !rt.Read(index + i).IsAbsent() {
					empty = false
					break
				}
			}
			if empty {
				rt.draw.Next = index + n
				rt.draw.Size += int64(n)
				return index
			}
		}
		if rt.restart != nil {
			rt.draw.Next = rt.restart() % size
		} else {
			rt.draw.Next = (index + 1) % size
		}
	}
}

// Free releases n cells starting at loc back into the draw heap.
func (rt *Runtime) Free(loc, n uint64) { rt.draw.ClearCells(loc, n) }

// Link stores lnk at loc and, if lnk points back at a binder (a
// variable, or one side of a duplication), also stores the reverse
// Arg pointer at the binder's own slot so the binder can later be
// substituted in O(1).
func (rt *Runtime) Link(loc uint64, lnk link.Lnk) link.Lnk {
	rt.Write(loc, lnk)
	if link.IsBinderRef(lnk.Tag) {
		pos := lnk.Loc() + link.BinderSlot(lnk.Tag)
		rt.Write(pos, link.Arg(loc))
	}
	return lnk
}

// Commit merges the draw heap's pending writes into the canonical heap
// without advancing the tick or touching the rollback stack — the
// per-statement commit point spec §4.K and §7 describe ("heap.absorb
// (draw)" is the only thing a successful statement does to heap; tick
// advancement is a separate, block-level operation below).
func (rt *Runtime) Commit() {
	if rt.indexer != nil {
		tick := rt.GetTick()
		rt.draw.Disk.Each(func(fid word.U120, root link.Lnk) {
			_ = rt.indexer.RecordDisk(tick, fid, root)
		})
	}
	rt.heap.Absorb(rt.draw, true)
	rt.draw.Clear()
}

// DiscardDraw drops every tentative write a failed statement made,
// leaving heap untouched (spec §7: "no error ... is allowed to
// partially mutate heap").
func (rt *Runtime) DiscardDraw() { rt.draw.Clear() }

// Tick advances the committed state by one step: the draw heap's
// pending writes are absorbed into the canonical heap and the heap is
// offered to the (thinned) rollback stack. If the stack keeps it, a
// recycled or fresh heap takes its place; otherwise the same heap stays
// and keeps accumulating.
func (rt *Runtime) Tick() {
	rt.draw.Tick = rt.GetTick() + 1
	if rt.indexer != nil {
		rt.draw.Disk.Each(func(fid word.U120, root link.Lnk) {
			_ = rt.indexer.RecordDisk(rt.draw.Tick, fid, root)
		})
	}
	rt.heap.Absorb(rt.draw, true)
	rt.draw.Clear()
	if rt.indexer != nil {
		_ = rt.indexer.RecordTick(rt.heap.Tick)
	}

	_, dropped, back := rollback.Push(rt.heap, rt.back)
	rt.back = back
	if dropped != nil {
		rt.heap = dropped
	} else if n := len(rt.nuls); n > 0 {
		rt.heap = rt.nuls[n-1]
		rt.nuls = rt.nuls[:n-1]
	} else {
		rt.heap = heap.New()
	}
}

// Rollback rewinds committed state to the most recent tick at or
// before target, per spec §6. Ticks newer than target are discarded
// back into the spare-heap pool; a target older than anything retained
// clamps to the oldest state actually kept (spec §9's "rollback to an
// unreachable tick" resolved as a clamp, not an error — see DESIGN.md).
func (rt *Runtime) Rollback(target uint64) {
	if rt.GetTick() <= target {
		return
	}
	back := rt.back
	for {
		h, tail, ok := rollback.Pop(back)
		if !ok {
			break
		}
		if h.Tick <= target {
			break
		}
		h.Clear()
		rt.nuls = append(rt.nuls, h)
		back = tail
	}
	if h, tail, ok := rollback.Pop(back); ok {
		rt.back = tail
		rt.heap = h
		return
	}
	rt.back = nil
	if n := len(rt.nuls); n > 0 {
		rt.heap = rt.nuls[n-1]
		rt.nuls = rt.nuls[:n-1]
	} else {
		rt.heap = heap.New()
	}
}
