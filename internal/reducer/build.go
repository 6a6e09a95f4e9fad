package reducer

import (
	"fmt"

	"kindelia/internal/link"
	"kindelia/internal/name"
	"kindelia/internal/rule"
	"kindelia/internal/runtime"
	"kindelia/internal/term"
)

// BuildFunc compiles a function's left/right-hand-side equations into
// a *rule.Func (spec §4.H "Function builder"). Each left-hand side
// must be a Fun application of the function being defined whose
// arguments are either a nested Ctr (matched by identifier; its own
// arguments must all be plain variables, no deeper nesting), a Num
// literal (matched by value), or a bare variable (matches anything).
// Strict arguments — those a Ctr or Num pattern appears in — are
// recorded in Redux so the caller reduces them before dispatch.
func BuildFunc(equations []term.Equation) (*rule.Func, error) {
	if len(equations) == 0 {
		return nil, fmt.Errorf("reducer: function has no rules")
	}
	head, ok := equations[0].Lhs.(*term.Fun)
	if !ok {
		return nil, fmt.Errorf("reducer: rule left-hand side is not a function call")
	}
	arity := uint64(len(head.Args))
	strict := make([]bool, arity)

	var rules []rule.Rule
	for _, eq := range equations {
		lhs, ok := eq.Lhs.(*term.Fun)
		if !ok {
			return nil, fmt.Errorf("reducer: rule left-hand side is not a function call")
		}
		if uint64(len(lhs.Args)) != arity {
			return nil, fmt.Errorf("reducer: rule arity mismatch: expected %d, got %d", arity, len(lhs.Args))
		}

		var cond []link.Lnk
		var vars []rule.VarBinding
		var eras []rule.Eras

		for i, a := range lhs.Args {
			switch arg := a.(type) {
			case *term.Ctr:
				strict[i] = true
				cond = append(cond, link.Ctr(fnID(arg.Name), 0))
				eras = append(eras, rule.Eras{ArgIndex: uint64(i), Arity: uint64(len(arg.Args))})
				for j, field := range arg.Args {
					v, ok := field.(*term.Var)
					if !ok {
						return nil, fmt.Errorf("reducer: nested pattern in rule argument %d field %d is not allowed", i, j)
					}
					vars = append(vars, rule.VarBinding{
						Name:  name.ScratchIndex(v.Name),
						Param: uint64(i),
						Field: j,
						Erase: name.IsWildcard(v.Name),
					})
				}
			case *term.Num:
				strict[i] = true
				cond = append(cond, link.Num(arg.Value))
			case *term.Var:
				vars = append(vars, rule.VarBinding{
					Name:  name.ScratchIndex(arg.Name),
					Param: uint64(i),
					Field: -1,
					Erase: name.IsWildcard(arg.Name),
				})
				cond = append(cond, link.Lnk{})
			default:
				return nil, fmt.Errorf("reducer: rule argument %d is not a constructor, number, or variable", i)
			}
		}

		rules = append(rules, rule.Rule{Cond: cond, Vars: vars, Eras: eras, Body: eq.Rhs})
	}

	var redux []uint64
	for i, s := range strict {
		if s {
			redux = append(redux, uint64(i))
		}
	}

	return &rule.Func{Arity: arity, Redux: redux, Rules: rules}, nil
}

// callFunction dispatches a FUN redex against its compiled rules (spec
// §4.H). It first checks whether any strict argument is itself a
// superposition — if so, FUN-PAR ("cal-par") distributes the call
// over both branches before any rule is tried. Otherwise it walks the
// rules in order and fires the first one whose conditions all match.
func callFunction(rt *runtime.Runtime, host uint64, t link.Lnk) bool {
	fid := t.Ext
	fn, ok := rt.GetFunc(fid)
	if !ok {
		return false
	}

	for _, idx := range fn.Redux {
		argn := rt.Read(t.Loc() + idx)
		if argn.Tag != link.PAR {
			continue
		}
		arity := rt.GetArity(fid)
		fun0 := t.Loc()
		fun1 := rt.Alloc(arity)
		par0 := argn.Loc()
		for i := uint64(0); i < arity; i++ {
			if i != idx {
				leti := rt.Alloc(3)
				argi := rt.Read(t.Loc() + i)
				rt.Link(fun0+i, link.Dp0(argn.Ext, leti))
				rt.Link(fun1+i, link.Dp1(argn.Ext, leti))
				rt.Link(leti+2, argi)
			} else {
				rt.Link(fun0+i, rt.Read(argn.Loc()))
				rt.Link(fun1+i, rt.Read(argn.Loc()+1))
			}
		}
		rt.Link(par0+0, link.Fun(fid, fun0))
		rt.Link(par0+1, link.Fun(fid, fun1))
		rt.Link(host, link.Par(argn.Ext, par0))
		rt.IncrCost()
		return true
	}

	for _, r := range fn.Rules {
		if !ruleMatches(rt, t, r.Cond) {
			continue
		}

		s := newScratch()
		for _, v := range r.Vars {
			var val link.Lnk
			val = rt.Read(t.Loc() + v.Param)
			if v.Field >= 0 {
				val = rt.Read(val.Loc() + uint64(v.Field))
			}
			s.lnk[v.Name] = val
		}

		done := createTerm(rt, s, r.Body, host)
		rt.Link(host, done)

		for _, e := range r.Eras {
			rt.Free(rt.Read(t.Loc()+e.ArgIndex).Loc(), e.Arity)
		}
		rt.Free(t.Loc(), fn.Arity)

		for _, v := range r.Vars {
			if v.Erase {
				if val, ok := s.lnk[v.Name]; ok {
					Collect(rt, val)
				}
			}
		}
		rt.IncrCost()
		return true
	}
	return false
}

func ruleMatches(rt *runtime.Runtime, t link.Lnk, cond []link.Lnk) bool {
	for i, c := range cond {
		arg := rt.Read(t.Loc() + uint64(i))
		switch c.Tag {
		case link.NUM:
			if arg.Tag != link.NUM || !arg.Num().Equal(c.Num()) {
				return false
			}
		case link.CTR:
			if arg.Tag != link.CTR || arg.Ext != c.Ext {
				return false
			}
		}
	}
	return true
}

// CreateApp and CreateFun build a standalone node without going
// through a Term, splicing a freshly-allocated call onto an existing
// graph; internal/ioeval uses CreateApp to apply IO continuations.
func CreateApp(rt *runtime.Runtime, fn, argm link.Lnk) link.Lnk {
	node := rt.Alloc(2)
	rt.Link(node+0, fn)
	rt.Link(node+1, argm)
	return link.App(node)
}

func CreateFun(rt *runtime.Runtime, fid uint64, args []link.Lnk) link.Lnk {
	node := rt.Alloc(uint64(len(args)))
	for i, a := range args {
		rt.Link(node+uint64(i), a)
	}
	return link.Fun(fid, node)
}

// AllocLnk stores term in a single fresh cell and returns its
// location.
func AllocLnk(rt *runtime.Runtime, t link.Lnk) uint64 {
	loc := rt.Alloc(1)
	rt.Link(loc, t)
	return loc
}
