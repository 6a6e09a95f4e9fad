// Package ioeval implements the IO effect interpreter (spec §4.J): a
// small-step evaluator over IO.{done,load,save,call,from} constructor
// terms, threading subject/caller identity and staging disk reads and
// writes against the enclosing runtime.
package ioeval

import (
	"errors"

	"kindelia/internal/kerr"
	"kindelia/internal/link"
	"kindelia/internal/name"
	"kindelia/internal/reducer"
	"kindelia/internal/runtime"
	"kindelia/internal/word"
)

// faultKind maps a runtime fault to its kerr.Kind, giving a blown cost
// budget its own named statement-failure case rather than folding it
// into a generic RuntimeError.
func faultKind(err error) kerr.Kind {
	if errors.Is(err, runtime.ErrBudgetExceeded) {
		return kerr.BudgetError
	}
	return kerr.RuntimeError
}

// maxCallDepth bounds runIO's recursion depth. Every effect step's
// continuation and every IO.call target adds one level, so a long
// effect chain fails with a RuntimeError instead of exhausting the Go
// call stack — see SPEC_FULL.md "Supplemented features".
const maxCallDepth = 256

var (
	ioDone = name.MustEncode("IO.done")
	ioLoad = name.MustEncode("IO.load")
	ioSave = name.MustEncode("IO.save")
	ioCall = name.MustEncode("IO.call")
	ioFrom = name.MustEncode("IO.from")
)

// Arity reports a built-in IO constructor's declared field count and
// whether fid names one (spec §4.J). runIO uses it to recognise effect
// heads; the runtime's arity table is not seeded from it.
func Arity(fid word.U120) (uint64, bool) {
	switch fid.Lo {
	case ioDone.Lo:
		return 1, true
	case ioLoad.Lo:
		return 1, true
	case ioSave.Lo:
		return 2, true
	case ioCall.Lo:
		return 2, true
	case ioFrom.Lo:
		return 1, true
	}
	return 0, false
}

// RunIO executes the effect term rooted at host under the given
// subject/caller identities and returns its IO.done payload. ok is
// false on any failure path: no IO.done was ever reached, an IO.call
// target's head wasn't a Fun, or max call depth was exceeded.
func RunIO(rt *runtime.Runtime, subject, caller word.U120, host uint64) (link.Lnk, bool, error) {
	return runIO(rt, subject, caller, host, 0)
}

func runIO(rt *runtime.Runtime, subject, caller word.U120, host uint64, depth int) (link.Lnk, bool, error) {
	if depth > maxCallDepth {
		return link.Lnk{}, false, kerr.New(kerr.RuntimeError, "IO nesting exceeds %d", maxCallDepth)
	}

	term := reducer.Reduce(rt, host)
	if err := rt.Fault(); err != nil {
		return link.Lnk{}, false, kerr.Wrap(faultKind(err), err)
	}
	// An effect head may be a constructor or, as in !(IO.call ...), a
	// function call carrying an IO name; both dispatch the same way.
	if _, io := Arity(word.FromUint64(term.Ext)); term.Tag != link.CTR && !(term.Tag == link.FUN && io) {
		return link.Lnk{}, false, nil
	}

	switch term.Ext {
	case ioDone.Lo:
		retr := rt.Read(term.Loc())
		rt.Free(host, 1)
		rt.Free(term.Loc(), 1)
		return retr, true, nil

	case ioLoad.Lo:
		cont := rt.Read(term.Loc())
		stat, ok := rt.GetDisk(subject)
		if !ok {
			stat = link.Num(word.Zero)
		}
		contApp := reducer.CreateApp(rt, cont, stat)
		contLoc := reducer.AllocLnk(rt, contApp)
		done, ok, err := runIO(rt, subject, subject, contLoc, depth+1)
		rt.Free(host, 1)
		rt.Free(term.Loc(), 1)
		return done, ok, err

	case ioSave.Lo:
		expr := rt.Read(term.Loc())
		saved := compute(rt, expr)
		rt.SetDisk(subject, saved)
		cont := rt.Read(term.Loc() + 1)
		contApp := reducer.CreateApp(rt, cont, link.Num(word.Zero))
		contLoc := reducer.AllocLnk(rt, contApp)
		done, ok, err := runIO(rt, subject, subject, contLoc, depth+1)
		rt.Free(host, 1)
		rt.Free(term.Loc(), 2)
		return done, ok, err

	case ioCall.Lo:
		expr := rt.Read(term.Loc())
		cont := rt.Read(term.Loc() + 1)
		if expr.Tag != link.FUN {
			rt.Free(host, 1)
			rt.Free(term.Loc(), 2)
			return link.Lnk{}, false, kerr.New(kerr.RuntimeError, "IO.call target is not a function")
		}
		fnid := word.FromUint64(expr.Ext)
		retr, ok, err := runIO(rt, fnid, subject, term.Loc(), depth+1)
		if err != nil {
			return link.Lnk{}, false, err
		}
		if !ok {
			rt.Free(host, 1)
			return link.Lnk{}, false, nil
		}
		contApp := reducer.CreateApp(rt, cont, retr)
		contLoc := reducer.AllocLnk(rt, contApp)
		done, ok, err := runIO(rt, subject, caller, contLoc, depth+1)
		rt.Free(host, 1)
		rt.Free(term.Loc()+1, 1)
		return done, ok, err

	case ioFrom.Lo:
		cont := rt.Read(term.Loc())
		contApp := reducer.CreateApp(rt, cont, link.Num(caller))
		contLoc := reducer.AllocLnk(rt, contApp)
		done, ok, err := runIO(rt, subject, caller, contLoc, depth+1)
		rt.Free(host, 1)
		rt.Free(term.Loc(), 1)
		return done, ok, err

	default:
		reducer.Collect(rt, term)
		return link.Lnk{}, false, nil
	}
}

// compute deeply normalizes a bare Lnk not already anchored at a known
// cell, for IO.save's "persisted state carries no deferred redexes"
// requirement (spec §4.J, §4.H).
func compute(rt *runtime.Runtime, lnk link.Lnk) link.Lnk {
	host := reducer.AllocLnk(rt, lnk)
	done := reducer.ComputeAt(rt, host)
	rt.Free(host, 1)
	return done
}
