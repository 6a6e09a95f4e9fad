// Package reducer implements term materialization, affine graph
// collection, and weak-head-normal-form reduction (spec §4.F, §4.G,
// §4.H) — the three operations that walk the heap graph, kept in one
// package because they recurse into each other (reducing a redex may
// materialize a rule's right-hand side, and firing a rule frees the
// matched constructors).
package reducer

import (
	"kindelia/internal/link"
	"kindelia/internal/name"
	"kindelia/internal/runtime"
	"kindelia/internal/term"
	"kindelia/internal/word"
)

// scratch stands in for the original's global VARS_DATA table: one
// instance per CreateTerm call, so concurrent or nested calls never
// share mutable state. It runs in both directions: lnk holds a
// binder's value once bound, waiting for its one occurrence to
// consume it; loc holds an occurrence's own cell, waiting for its
// binder to show up (the rarer order — harmless to support, since
// every Lam/Dup in this grammar binds before recursing into what it
// scopes over, but the original handles both and so do we).
type scratch struct {
	lnk map[uint32]link.Lnk
	loc map[uint32]uint64
}

func newScratch() *scratch {
	return &scratch{lnk: map[uint32]link.Lnk{}, loc: map[uint32]uint64{}}
}

// CreateTerm writes t into the heap starting at loc and returns the
// Lnk naming its root (spec §4.F).
func CreateTerm(rt *runtime.Runtime, t term.Term, loc uint64) link.Lnk {
	return createTerm(rt, newScratch(), t, loc)
}

func bind(rt *runtime.Runtime, s *scratch, loc uint64, nam word.U120, val link.Lnk) {
	if name.IsWildcard(nam) {
		rt.Link(loc, link.Era())
		return
	}
	idx := name.ScratchIndex(nam)
	if waiting, ok := s.loc[idx]; ok {
		delete(s.loc, idx)
		rt.Link(waiting, val)
		return
	}
	s.lnk[idx] = val
	rt.Link(loc, link.Era())
}

func createTerm(rt *runtime.Runtime, s *scratch, t term.Term, loc uint64) link.Lnk {
	switch n := t.(type) {
	case *term.Var:
		idx := name.ScratchIndex(n.Name)
		if got, ok := s.lnk[idx]; ok {
			delete(s.lnk, idx)
			return got
		}
		s.loc[idx] = loc
		return link.Num(word.Zero)

	case *term.Dup:
		node := rt.Alloc(3)
		dupk := rt.NextDup()
		bind(rt, s, node+0, n.Nam0, link.Dp0(dupk, node))
		bind(rt, s, node+1, n.Nam1, link.Dp1(dupk, node))
		expr := createTerm(rt, s, n.Expr, node+2)
		rt.Link(node+2, expr)
		return createTerm(rt, s, n.Body, loc)

	case *term.Lam:
		node := rt.Alloc(2)
		bind(rt, s, node+0, n.Name, link.Var(node))
		body := createTerm(rt, s, n.Body, node+1)
		rt.Link(node+1, body)
		return link.Lam(node)

	case *term.App:
		node := rt.Alloc(2)
		fn := createTerm(rt, s, n.Func, node+0)
		rt.Link(node+0, fn)
		arg := createTerm(rt, s, n.Argm, node+1)
		rt.Link(node+1, arg)
		return link.App(node)

	case *term.Fun:
		size := uint64(len(n.Args))
		node := rt.Alloc(size)
		for i, arg := range n.Args {
			v := createTerm(rt, s, arg, node+uint64(i))
			rt.Link(node+uint64(i), v)
		}
		return link.Fun(fnID(n.Name), node)

	case *term.Ctr:
		size := uint64(len(n.Args))
		node := rt.Alloc(size)
		for i, arg := range n.Args {
			v := createTerm(rt, s, arg, node+uint64(i))
			rt.Link(node+uint64(i), v)
		}
		return link.Ctr(fnID(n.Name), node)

	case *term.Num:
		return link.Num(n.Value)

	case *term.Op2:
		node := rt.Alloc(2)
		v0 := createTerm(rt, s, n.Val0, node+0)
		rt.Link(node+0, v0)
		v1 := createTerm(rt, s, n.Val1, node+1)
		rt.Link(node+1, v1)
		return link.Op2(n.Oper, node)
	}
	panic("reducer: unreachable term variant")
}

// fnID truncates a packed name down to the 64-bit ext field a Ctr/Fun
// Lnk can carry, matching how internal/heap's File/Arit maps are
// keyed (see its doc comment).
func fnID(n word.U120) uint64 { return n.Lo }

// Subst fills a binder reference with val: if lnk points at a live
// binder slot it links val there; otherwise (the occurrence was
// erased) val is freed via Collect instead of being silently dropped.
func Subst(rt *runtime.Runtime, lnk, val link.Lnk) {
	if lnk.Tag != link.ERA {
		rt.Link(lnk.Loc(), val)
	} else {
		Collect(rt, val)
	}
}

// Collect frees every cell reachable from root, following each
// pointer's owned substructure exactly once (spec §4.G's affinity
// invariant: every heap cell has exactly one owner at a time).
func Collect(rt *runtime.Runtime, root link.Lnk) {
	var stack []link.Lnk
	next := root
	for {
		t := next
		switch t.Tag {
		case link.DP0:
			rt.Link(t.Loc(), link.Era())
			Reduce(rt, askArg(rt, t, 1).Loc())
		case link.DP1:
			rt.Link(t.Loc()+1, link.Era())
			Reduce(rt, askArg(rt, t, 0).Loc())
		case link.VAR:
			rt.Link(t.Loc(), link.Era())
		case link.LAM:
			if askArg(rt, t, 0).Tag != link.ERA {
				rt.Link(askArg(rt, t, 0).Loc(), link.Era())
			}
			next = askArg(rt, t, 1)
			rt.Free(t.Loc(), 2)
			continue
		case link.APP, link.PAR, link.OP2:
			stack = append(stack, askArg(rt, t, 0))
			next = askArg(rt, t, 1)
			rt.Free(t.Loc(), 2)
			continue
		case link.NUM:
			// leaf: nothing beyond the cell itself to free
		case link.CTR, link.FUN:
			arity := rt.GetArity(t.Ext)
			if arity == 0 {
				rt.Free(t.Loc(), 0)
				break
			}
			for i := uint64(0); i < arity; i++ {
				if i < arity-1 {
					stack = append(stack, askArg(rt, t, i))
				} else {
					next = askArg(rt, t, i)
				}
			}
			rt.Free(t.Loc(), arity)
			continue
		}
		if len(stack) == 0 {
			break
		}
		next = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
	}
}

func askArg(rt *runtime.Runtime, t link.Lnk, arg uint64) link.Lnk {
	return rt.Read(t.Loc() + arg)
}
