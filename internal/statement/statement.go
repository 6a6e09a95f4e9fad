// Package statement implements the statement executor (spec §4.K): it
// applies a Fun, Ctr, or Run statement against the draw heap and, on
// success, commits it into the canonical heap. Block-level tick
// advancement lives in internal/runtime and is orthogonal to this
// package.
package statement

import (
	"errors"
	"fmt"

	"kindelia/internal/ioeval"
	"kindelia/internal/kerr"
	"kindelia/internal/link"
	"kindelia/internal/name"
	"kindelia/internal/reducer"
	"kindelia/internal/runtime"
	"kindelia/internal/term"
	"kindelia/internal/word"
)

// faultKind maps a runtime fault to the kerr.Kind it should surface
// as: a blown cost budget is its own named statement-failure case
// (spec §7 "Budget exceeded (cost or mana): statement failure"),
// everything else (e.g. reducer.ErrDivisionByZero) is a plain
// RuntimeError.
func faultKind(err error) kerr.Kind {
	if errors.Is(err, runtime.ErrBudgetExceeded) {
		return kerr.BudgetError
	}
	return kerr.RuntimeError
}

// Kind discriminates the three statement shapes the textual grammar
// accepts (spec §4.L: "fun N A { ... } = init", "ctr N A", "run { expr }").
type Kind int

const (
	KindFun Kind = iota
	KindCtr
	KindRun
)

// Statement is one parsed top-level statement, produced by
// internal/syntax.
type Statement struct {
	Kind Kind

	// Fun, Ctr
	Name  word.U120
	Arity uint64

	// Fun only
	Equations []term.Equation
	Init      term.Term

	// Run only
	Expr term.Term
}

// Result is the structured outcome of applying a Statement — the
// distilled spec only requires success/failure, but the original's
// StatementResult reports what each kind actually did; supplemented
// here (see SPEC_FULL.md "Supplemented features" #1).
type Result struct {
	Kind Kind
	Name word.U120
	Run  *RunInfo
	Err  error
}

// RunInfo carries a Run statement's observable outcome.
type RunInfo struct {
	Value link.Lnk
	Tick  uint64
}

// Apply executes st against rt. A failing statement leaves rt's
// canonical heap untouched; a succeeding one commits its draw.
func Apply(rt *runtime.Runtime, st Statement) Result {
	rt.ClearFault()
	switch st.Kind {
	case KindFun:
		return applyFun(rt, st)
	case KindCtr:
		return applyCtr(rt, st)
	case KindRun:
		return applyRun(rt, st)
	default:
		return Result{Kind: st.Kind, Err: kerr.New(kerr.CompileError, "unknown statement kind")}
	}
}

func fnID(n word.U120) uint64 { return n.Lo }

func applyCtr(rt *runtime.Runtime, st Statement) Result {
	fid := fnID(st.Name)
	if existing, ok := rt.LookupArity(fid); ok && existing != st.Arity {
		rt.DiscardDraw()
		return Result{Kind: KindCtr, Name: st.Name, Err: kerr.New(kerr.CompileError,
			"constructor redeclared with different arity: had %d, got %d", existing, st.Arity)}
	}
	rt.DefineArity(fid, st.Arity)
	rt.Commit()
	return Result{Kind: KindCtr, Name: st.Name}
}

func applyFun(rt *runtime.Runtime, st Statement) Result {
	fid := fnID(st.Name)
	fn, err := reducer.BuildFunc(st.Equations)
	if err != nil {
		rt.DiscardDraw()
		return Result{Kind: KindFun, Name: st.Name, Err: kerr.New(kerr.CompileError, "%s", err)}
	}
	if existing, ok := rt.LookupArity(fid); ok && existing != fn.Arity {
		rt.DiscardDraw()
		return Result{Kind: KindFun, Name: st.Name, Err: kerr.New(kerr.CompileError,
			"function redeclared with different arity: had %d, got %d", existing, fn.Arity)}
	}

	rt.DefineFunc(fid, fn)

	if st.Init != nil {
		loc := rt.Alloc(1)
		root := reducer.CreateTerm(rt, st.Init, loc)
		rt.Link(loc, root)
		normalized := reducer.ComputeAt(rt, loc)
		if err := rt.Fault(); err != nil {
			rt.DiscardDraw()
			return Result{Kind: KindFun, Name: st.Name, Err: kerr.Wrap(faultKind(err), err)}
		}
		rt.SetDisk(st.Name, normalized)
		rt.Free(loc, 1)
	}

	rt.Commit()
	if ix := rt.Indexer(); ix != nil {
		source := fmt.Sprintf("%s/%d (%d equations)", name.Decode(st.Name), fn.Arity, len(st.Equations))
		_ = ix.RecordFunc(rt.GetTick(), st.Name, fn.Arity, source)
	}
	return Result{Kind: KindFun, Name: st.Name}
}

func applyRun(rt *runtime.Runtime, st Statement) Result {
	loc := rt.Alloc(1)
	root := reducer.CreateTerm(rt, st.Expr, loc)
	rt.Link(loc, root)

	retr, ok, err := ioeval.RunIO(rt, word.Zero, word.Zero, loc)
	if err != nil {
		rt.DiscardDraw()
		return Result{Kind: KindRun, Err: kerr.Wrap(kerr.RuntimeError, err)}
	}
	if !ok {
		// A run expression that is not an IO effect is its own result:
		// RunIO leaves its weak head normal form at loc.
		if v := rt.Read(loc); !v.IsAbsent() && v.Tag != link.CTR {
			retr, ok = v, true
		}
	}
	if !ok {
		rt.DiscardDraw()
		return Result{Kind: KindRun, Err: kerr.New(kerr.RuntimeError, "run statement produced no IO.done result")}
	}

	host := reducer.AllocLnk(rt, retr)
	normalized := reducer.ComputeAt(rt, host)
	if err := rt.Fault(); err != nil {
		rt.DiscardDraw()
		return Result{Kind: KindRun, Err: kerr.Wrap(faultKind(err), err)}
	}

	// normalized is left on the heap uncollected: callers that render it
	// (cmd/kindelia's report/gateway paths) walk its children afterward,
	// and freeing here would zero those cells before they're ever read.
	rt.Commit()
	return Result{
		Kind: KindRun,
		Run: &RunInfo{
			Value: normalized,
			Tick:  rt.GetTick(),
		},
	}
}
