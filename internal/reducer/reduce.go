package reducer

import (
	"errors"

	"kindelia/internal/link"
	"kindelia/internal/runtime"
	"kindelia/internal/word"
)

// frame is one entry of Reduce's explicit work stack: a heap location
// still owed either an "init" visit (walk down to find a redex) or a
// "resume" visit (a redex at this location was just produced and may
// now itself reduce further). The original encodes this as a single
// bit packed into the stack word; a struct reads better in Go.
type frame struct {
	host uint64
	init bool
}

// Reduce puts the term rooted at host into weak head normal form and
// returns it (spec §4.H). It never descends into subterms beyond what
// WHNF requires: an App's function position, a Dup's shared
// expression, an Op2's operands, and a Fun's strict arguments are the
// only places it follows links before they themselves are redexes.
func Reduce(rt *runtime.Runtime, root uint64) link.Lnk {
	var stack []frame
	init := true
	host := root

	for {
		if rt.Fault() != nil {
			// A fault (division by zero, or a blown cost budget) stops
			// reduction at whatever WHNF it's reached rather than
			// continuing to rewrite against state the enclosing
			// statement is about to discard anyway.
			break
		}
		t := rt.Read(host)

		if init {
			// A bare "come back and reduce me" continuation pops with
			// init=false; a "walk this position down to whnf first"
			// continuation pops with init=true. Matches the original's
			// bit-31-tagged stack words, spelled out as a struct field.
			switch t.Tag {
			case link.APP:
				stack = append(stack, frame{host, false})
				host = t.Loc()
				continue
			case link.DP0, link.DP1:
				stack = append(stack, frame{host, false})
				host = t.Loc() + 2
				continue
			case link.OP2:
				stack = append(stack, frame{host, false})
				stack = append(stack, frame{t.Loc() + 1, true})
				host = t.Loc()
				continue
			case link.FUN:
				fid := t.Ext
				arity := rt.GetArity(fid)
				if fn, ok := rt.GetFunc(fid); ok && arity == fn.Arity {
					if len(fn.Redux) == 0 {
						init = false
					} else {
						stack = append(stack, frame{host, false})
						for i, redux := range fn.Redux {
							if i < len(fn.Redux)-1 {
								stack = append(stack, frame{t.Loc() + redux, true})
							} else {
								host = t.Loc() + redux
							}
						}
					}
					continue
				}
			}
		} else {
			switch t.Tag {
			case link.APP:
				if again, done := reduceApp(rt, host, t); done {
					if again {
						init = true
						continue
					}
				}
			case link.DP0, link.DP1:
				if again := reduceDup(rt, host, t); again {
					init = true
					continue
				}
			case link.OP2:
				reduceOp2(rt, host, t)
			case link.FUN:
				if callFunction(rt, host, t) {
					init = true
					continue
				}
			}
		}

		if n := len(stack); n > 0 {
			f := stack[n-1]
			stack = stack[:n-1]
			init = f.init
			host = f.host
			continue
		}
		break
	}

	return rt.Read(root)
}

// reduceApp applies APP-LAM (beta) and APP-PAR (commute a superposed
// function through its argument). The second return value reports
// whether a rewrite fired at all; the first, when it did, reports
// whether the caller should re-enter init mode at the same host.
func reduceApp(rt *runtime.Runtime, host uint64, t link.Lnk) (again, done bool) {
	arg0 := rt.Read(t.Loc())
	if arg0.Tag == link.LAM {
		Subst(rt, rt.Read(arg0.Loc()), rt.Read(t.Loc()+1))
		rt.Link(host, rt.Read(arg0.Loc()+1))
		rt.Free(t.Loc(), 2)
		rt.Free(arg0.Loc(), 2)
		rt.IncrCost()
		return true, true
	}
	if arg0.Tag == link.PAR {
		rt.IncrCost()
		app0 := t.Loc()
		app1 := arg0.Loc()
		let0 := rt.Alloc(3)
		par0 := rt.Alloc(2)
		rt.Link(let0+2, rt.Read(t.Loc()+1))
		rt.Link(app0+1, link.Dp0(arg0.Ext, let0))
		rt.Link(app0+0, rt.Read(arg0.Loc()))
		rt.Link(app1+0, rt.Read(arg0.Loc()+1))
		rt.Link(app1+1, link.Dp1(arg0.Ext, let0))
		rt.Link(par0+0, link.App(app0))
		rt.Link(par0+1, link.App(app1))
		rt.Link(host, link.Par(arg0.Ext, par0))
		return false, true
	}
	return false, false
}

// reduceDup applies DP-LAM, DP-PAR (same color: annihilate; distinct
// color: commute), DP-NUM and DP-CTR. It reports whether a rewrite
// fired that the caller should re-walk from the top.
func reduceDup(rt *runtime.Runtime, host uint64, t link.Lnk) bool {
	arg0 := rt.Read(t.Loc() + 2)
	isDp0 := t.Tag == link.DP0

	switch arg0.Tag {
	case link.LAM:
		rt.IncrCost()
		let0 := t.Loc()
		par0 := arg0.Loc()
		lam0 := rt.Alloc(2)
		lam1 := rt.Alloc(2)
		rt.Link(let0+2, rt.Read(arg0.Loc()+1))
		rt.Link(par0+1, link.Var(lam1))
		arg0Arg0 := rt.Read(arg0.Loc())
		rt.Link(par0+0, link.Var(lam0))
		Subst(rt, arg0Arg0, link.Par(t.Ext, par0))
		termArg0 := rt.Read(t.Loc())
		rt.Link(lam0+1, link.Dp0(t.Ext, let0))
		Subst(rt, termArg0, link.Lam(lam0))
		termArg1 := rt.Read(t.Loc() + 1)
		rt.Link(lam1+1, link.Dp1(t.Ext, let0))
		Subst(rt, termArg1, link.Lam(lam1))
		if isDp0 {
			rt.Link(host, link.Lam(lam0))
		} else {
			rt.Link(host, link.Lam(lam1))
		}
		return true

	case link.PAR:
		rt.IncrCost()
		if t.Ext == arg0.Ext {
			Subst(rt, rt.Read(t.Loc()), rt.Read(arg0.Loc()))
			Subst(rt, rt.Read(t.Loc()+1), rt.Read(arg0.Loc()+1))
			var out link.Lnk
			if isDp0 {
				out = rt.Read(arg0.Loc())
			} else {
				out = rt.Read(arg0.Loc() + 1)
			}
			rt.Link(host, out)
			rt.Free(t.Loc(), 3)
			rt.Free(arg0.Loc(), 2)
			return true
		}
		par0 := rt.Alloc(2)
		let0 := t.Loc()
		par1 := arg0.Loc()
		let1 := rt.Alloc(3)
		rt.Link(let0+2, rt.Read(arg0.Loc()))
		rt.Link(let1+2, rt.Read(arg0.Loc()+1))
		termArg0 := rt.Read(t.Loc())
		termArg1 := rt.Read(t.Loc() + 1)
		rt.Link(par1+0, link.Dp1(t.Ext, let0))
		rt.Link(par1+1, link.Dp1(t.Ext, let1))
		rt.Link(par0+0, link.Dp0(t.Ext, let0))
		rt.Link(par0+1, link.Dp0(t.Ext, let1))
		Subst(rt, termArg0, link.Par(arg0.Ext, par0))
		Subst(rt, termArg1, link.Par(arg0.Ext, par1))
		if isDp0 {
			rt.Link(host, link.Par(arg0.Ext, par0))
		} else {
			rt.Link(host, link.Par(arg0.Ext, par1))
		}
		return false

	case link.NUM:
		rt.IncrCost()
		Subst(rt, rt.Read(t.Loc()), arg0)
		Subst(rt, rt.Read(t.Loc()+1), arg0)
		rt.Free(t.Loc(), 3)
		rt.Link(host, arg0)
		return false

	case link.CTR:
		rt.IncrCost()
		fid := arg0.Ext
		arity := rt.GetArity(fid)
		if arity == 0 {
			Subst(rt, rt.Read(t.Loc()), link.Ctr(fid, 0))
			Subst(rt, rt.Read(t.Loc()+1), link.Ctr(fid, 0))
			rt.Free(t.Loc(), 3)
			rt.Link(host, link.Ctr(fid, 0))
			return false
		}
		ctr0 := arg0.Loc()
		ctr1 := rt.Alloc(arity)
		for i := uint64(0); i < arity-1; i++ {
			leti := rt.Alloc(3)
			rt.Link(leti+2, rt.Read(arg0.Loc()+i))
			rt.Link(ctr0+i, link.Dp0(t.Ext, leti))
			rt.Link(ctr1+i, link.Dp1(t.Ext, leti))
		}
		leti := t.Loc()
		rt.Link(leti+2, rt.Read(arg0.Loc()+arity-1))
		termArg0 := rt.Read(t.Loc())
		rt.Link(ctr0+arity-1, link.Dp0(t.Ext, leti))
		Subst(rt, termArg0, link.Ctr(fid, ctr0))
		termArg1 := rt.Read(t.Loc() + 1)
		rt.Link(ctr1+arity-1, link.Dp1(t.Ext, leti))
		Subst(rt, termArg1, link.Ctr(fid, ctr1))
		if isDp0 {
			rt.Link(host, link.Ctr(fid, ctr0))
		} else {
			rt.Link(host, link.Ctr(fid, ctr1))
		}
		return false

	case link.ERA:
		rt.IncrCost()
		Subst(rt, rt.Read(t.Loc()), link.Era())
		Subst(rt, rt.Read(t.Loc()+1), link.Era())
		rt.Link(host, link.Era())
		rt.Free(t.Loc(), 3)
		return true
	}
	return false
}

// reduceOp2 applies the full operator table when both operands are
// numbers (spec §4.I), or OP2-PAR (push the operator through a
// superposed operand) otherwise.
func reduceOp2(rt *runtime.Runtime, host uint64, t link.Lnk) {
	arg0 := rt.Read(t.Loc())
	arg1 := rt.Read(t.Loc() + 1)

	if arg0.Tag == link.NUM && arg1.Tag == link.NUM {
		c := applyOper(rt, link.Oper(t.Ext), arg0.Num(), arg1.Num())
		rt.Free(t.Loc(), 2)
		rt.Link(host, link.Num(c))
		rt.IncrCost()
		return
	}
	if arg0.Tag == link.PAR {
		rt.IncrCost()
		op20 := t.Loc()
		op21 := arg0.Loc()
		let0 := rt.Alloc(3)
		par0 := rt.Alloc(2)
		rt.Link(let0+2, arg1)
		rt.Link(op20+1, link.Dp0(arg0.Ext, let0))
		rt.Link(op20+0, rt.Read(arg0.Loc()))
		rt.Link(op21+0, rt.Read(arg0.Loc()+1))
		rt.Link(op21+1, link.Dp1(arg0.Ext, let0))
		rt.Link(par0+0, link.Op2(link.Oper(t.Ext), op20))
		rt.Link(par0+1, link.Op2(link.Oper(t.Ext), op21))
		rt.Link(host, link.Par(arg0.Ext, par0))
		return
	}
	if arg1.Tag == link.PAR {
		rt.IncrCost()
		op20 := t.Loc()
		op21 := arg1.Loc()
		let0 := rt.Alloc(3)
		par0 := rt.Alloc(2)
		rt.Link(let0+2, arg0)
		rt.Link(op20+0, link.Dp0(arg1.Ext, let0))
		rt.Link(op20+1, rt.Read(arg1.Loc()))
		rt.Link(op21+1, rt.Read(arg1.Loc()+1))
		rt.Link(op21+0, link.Dp1(arg1.Ext, let0))
		rt.Link(par0+0, link.Op2(link.Oper(t.Ext), op20))
		rt.Link(par0+1, link.Op2(link.Oper(t.Ext), op21))
		rt.Link(host, link.Par(arg1.Ext, par0))
	}
}

// ErrDivisionByZero is the fault internal/runtime records when a DIV
// or MOD operator's divisor reduces to zero. spec §9 leaves the
// original source's behavior on this path unspecified (it masks the
// Rust panic from integer division by zero with no recovery); we
// resolved the open question by failing the enclosing statement
// instead — see DESIGN.md and internal/statement.
var ErrDivisionByZero = errors.New("reducer: division or modulus by zero")

// applyOper evaluates a binary operator over two 120-bit operands per
// spec §4.I's table. Comparisons lift their bool result to 0 or 1.
func applyOper(rt *runtime.Runtime, op link.Oper, a, b word.U120) word.U120 {
	switch op {
	case link.ADD:
		return a.Add(b)
	case link.SUB:
		return a.Sub(b)
	case link.MUL:
		return a.Mul(b)
	case link.DIV:
		v, ok := a.Div(b)
		if !ok {
			rt.SetFault(ErrDivisionByZero)
			return word.Zero
		}
		return v
	case link.MOD:
		v, ok := a.Mod(b)
		if !ok {
			rt.SetFault(ErrDivisionByZero)
			return word.Zero
		}
		return v
	case link.AND:
		return a.And(b)
	case link.OR:
		return a.Or(b)
	case link.XOR:
		return a.Xor(b)
	case link.SHL:
		return a.Shl(b)
	case link.SHR:
		return a.Shr(b)
	case link.LTN:
		return word.Bool(a.Less(b))
	case link.LTE:
		return word.Bool(a.Less(b) || a.Equal(b))
	case link.EQL:
		return word.Bool(a.Equal(b))
	case link.GTE:
		return word.Bool(!a.Less(b))
	case link.GTN:
		return word.Bool(!a.Less(b) && !a.Equal(b))
	case link.NEQ:
		return word.Bool(!a.Equal(b))
	}
	return word.Zero
}

// ComputeAt reduces the term at host to WHNF and, if that changed
// anything, recurses into every child position so the result ends up
// fully normalized (spec §4.H "compute deeply", used by IO.save before
// persisting to disk so stored state never carries deferred redexes).
// It does not recurse past a head whose reduction didn't change
// anything, since the original's laziness guarantee is what keeps
// ordinary reduction O(redexes) instead of O(term size).
func ComputeAt(rt *runtime.Runtime, host uint64) link.Lnk {
	before := rt.Read(host)
	norm := Reduce(rt, host)
	if before == norm {
		return norm
	}
	switch norm.Tag {
	case link.LAM:
		rt.Link(norm.Loc()+1, ComputeAt(rt, norm.Loc()+1))
	case link.APP, link.PAR:
		rt.Link(norm.Loc()+0, ComputeAt(rt, norm.Loc()+0))
		rt.Link(norm.Loc()+1, ComputeAt(rt, norm.Loc()+1))
	case link.DP0, link.DP1:
		rt.Link(norm.Loc()+2, ComputeAt(rt, norm.Loc()+2))
	case link.CTR, link.FUN:
		arity := rt.GetArity(norm.Ext)
		for i := uint64(0); i < arity; i++ {
			rt.Link(norm.Loc()+i, ComputeAt(rt, norm.Loc()+i))
		}
	}
	return norm
}
