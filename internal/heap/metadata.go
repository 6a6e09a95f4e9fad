package heap

import (
	"kindelia/internal/link"
	"kindelia/internal/rule"
	"kindelia/internal/word"
)

// Disk maps a function id to the root Lnk of its persistent state
// (spec §4.B).
type Disk struct{ links map[word.U120]link.Lnk }

func newDisk() *Disk { return &Disk{links: make(map[word.U120]link.Lnk)} }

// Write unconditionally replaces fid's stored root — unlike File/Arit,
// Disk entries are meant to be overwritten (that's what IO.save does).
func (d *Disk) Write(fid word.U120, v link.Lnk) {
	d.links[fid] = v
}

func (d *Disk) Read(fid word.U120) (link.Lnk, bool) {
	v, ok := d.links[fid]
	return v, ok
}

func (d *Disk) Clear() { d.links = make(map[word.U120]link.Lnk) }

// Each calls f once per entry currently held in this heap's own Disk
// map (not the layered view) — used by internal/runtime to mirror a
// statement's fresh disk writes out to an attached query.Indexer
// before the draw heap is cleared.
func (d *Disk) Each(f func(fid word.U120, v link.Lnk)) {
	for fid, v := range d.links {
		f(fid, v)
	}
}

func (d *Disk) Absorb(other *Disk, overwrite bool) {
	for fid, v := range other.links {
		if overwrite {
			d.links[fid] = v
			continue
		}
		if _, exists := d.links[fid]; !exists {
			d.links[fid] = v
		}
	}
}

// File maps a function id to its compiled code. Funcs are immutable
// once compiled, so the same *rule.Func can be shared across snapshots
// without copying (spec §4.B).
//
// Keyed by uint64, not the full word.U120 identifier: a Ctr/Fun Lnk
// only carries a 64-bit Ext, so any lookup triggered by reducing such
// a Lnk can only ever supply that truncated value. Disk, by contrast,
// is always addressed by a full name carried directly in an IO
// argument, so it keys on the untruncated word.U120 — see DESIGN.md.
type File struct{ funcs map[uint64]*rule.Func }

func newFile() *File { return &File{funcs: make(map[uint64]*rule.Func)} }

func (f *File) Write(fid uint64, fn *rule.Func) {
	if _, ok := f.funcs[fid]; ok {
		return
	}
	f.funcs[fid] = fn
}

func (f *File) Read(fid uint64) (*rule.Func, bool) {
	v, ok := f.funcs[fid]
	return v, ok
}

func (f *File) Clear() { f.funcs = make(map[uint64]*rule.Func) }

func (f *File) Absorb(other *File, overwrite bool) {
	for fid, fn := range other.funcs {
		if overwrite {
			f.funcs[fid] = fn
			continue
		}
		if _, exists := f.funcs[fid]; !exists {
			f.funcs[fid] = fn
		}
	}
}

// Arit maps a function/constructor id to its declared arity, keyed the
// same truncated way as File (see above).
type Arit struct{ arits map[uint64]uint64 }

func newArit() *Arit { return &Arit{arits: make(map[uint64]uint64)} }

func (a *Arit) Write(fid uint64, arity uint64) {
	if _, ok := a.arits[fid]; ok {
		return
	}
	a.arits[fid] = arity
}

func (a *Arit) Read(fid uint64) (uint64, bool) {
	v, ok := a.arits[fid]
	return v, ok
}

func (a *Arit) Clear() { a.arits = make(map[uint64]uint64) }

func (a *Arit) Absorb(other *Arit, overwrite bool) {
	for fid, v := range other.arits {
		if overwrite {
			a.arits[fid] = v
			continue
		}
		if _, exists := a.arits[fid]; !exists {
			a.arits[fid] = v
		}
	}
}
