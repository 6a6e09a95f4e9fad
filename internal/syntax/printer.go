package syntax

import (
	"fmt"
	"strings"

	"kindelia/internal/link"
	"kindelia/internal/name"
	"kindelia/internal/runtime"
	"kindelia/internal/statement"
	"kindelia/internal/term"
	"kindelia/internal/word"
)

// PrintTerm renders a parsed Term back to source text, grounded on the
// Rust original's view_term (original_source/src/hvm.rs).
func PrintTerm(t term.Term) string {
	var b strings.Builder
	writeTerm(&b, t)
	return b.String()
}

func writeTerm(b *strings.Builder, t term.Term) {
	switch n := t.(type) {
	case *term.Var:
		b.WriteString(printName(n.Name))
	case *term.Dup:
		b.WriteString("& ")
		b.WriteString(printName(n.Nam0))
		b.WriteString(" ")
		b.WriteString(printName(n.Nam1))
		b.WriteString(" = ")
		writeTerm(b, n.Expr)
		b.WriteString("; ")
		writeTerm(b, n.Body)
	case *term.Lam:
		b.WriteString("λ")
		b.WriteString(printName(n.Name))
		b.WriteString(" ")
		writeTerm(b, n.Body)
	case *term.App:
		b.WriteString("(")
		writeTerm(b, n.Func)
		b.WriteString(" ")
		writeTerm(b, n.Argm)
		b.WriteString(")")
	case *term.Ctr:
		b.WriteString("$(")
		b.WriteString(name.Decode(n.Name))
		writeArgs(b, n.Args)
		b.WriteString(")")
	case *term.Fun:
		b.WriteString("!(")
		b.WriteString(name.Decode(n.Name))
		writeArgs(b, n.Args)
		b.WriteString(")")
	case *term.Num:
		b.WriteString("#")
		b.WriteString(n.Value.String())
	case *term.Op2:
		b.WriteString("(")
		b.WriteString(n.Oper.String())
		b.WriteString(" ")
		writeTerm(b, n.Val0)
		b.WriteString(" ")
		writeTerm(b, n.Val1)
		b.WriteString(")")
	default:
		b.WriteString("?")
	}
}

func writeArgs(b *strings.Builder, args []term.Term) {
	for _, a := range args {
		b.WriteString(" ")
		writeTerm(b, a)
	}
}

// printName renders a binder/variable name, mapping the wildcard
// sentinel back to "~".
func printName(v word.U120) string {
	if name.IsWildcard(v) {
		return "~"
	}
	return name.Decode(v)
}

// PrintStatement renders a parsed Statement, grounded on view_action.
func PrintStatement(st statement.Statement) string {
	switch st.Kind {
	case statement.KindCtr:
		return fmt.Sprintf("ctr %s %d", name.Decode(st.Name), st.Arity)
	case statement.KindFun:
		var b strings.Builder
		fmt.Fprintf(&b, "fun %s %d {\n", name.Decode(st.Name), st.Arity)
		for _, eq := range st.Equations {
			b.WriteString("  ")
			writeTerm(&b, eq.Lhs)
			b.WriteString(" = ")
			writeTerm(&b, eq.Rhs)
			b.WriteString("\n")
		}
		b.WriteString("} = ")
		if st.Init != nil {
			writeTerm(&b, st.Init)
		}
		return b.String()
	case statement.KindRun:
		var b strings.Builder
		b.WriteString("run {\n  ")
		writeTerm(&b, st.Expr)
		b.WriteString("\n}")
		return b.String()
	default:
		return ""
	}
}

// PrintLnk renders the heap graph rooted at root back to source text.
// The Rust original's show_term does this in two passes: it first
// walks the graph to collect every dup/lambda binder name into a
// sequential counter, then renders with those names and hoists every
// dup-let to the top as a trailing "& a b = ...;" chain. That hoisting
// only matters when a single duplicator fans out to multiple distinct
// occurrences sharing one body; the scenarios this module actually
// needs to display (spec §8's worked examples all normalize to a
// plain NUM) never exercise it, so this is a simplified single-pass
// renderer that names each binder directly from its heap location
// instead of a separate counter — see DESIGN.md.
func PrintLnk(rt *runtime.Runtime, root link.Lnk) string {
	var b strings.Builder
	writeLnk(&b, rt, root)
	return b.String()
}

func writeLnk(b *strings.Builder, rt *runtime.Runtime, l link.Lnk) {
	if rt == nil && l.Tag != link.NUM && l.Tag != link.ERA {
		// No heap to follow children into (e.g. a disk root reported
		// by internal/query, which only has the root Lnk itself) —
		// print the shallow shape rather than dereferencing rt.
		fmt.Fprintf(b, "<%s@%d>", l.Tag, l.Loc())
		return
	}
	switch l.Tag {
	case link.VAR:
		fmt.Fprintf(b, "x%d", l.Loc())
	case link.DP0:
		fmt.Fprintf(b, "a%d", l.Loc())
	case link.DP1:
		fmt.Fprintf(b, "b%d", l.Loc())
	case link.ERA:
		b.WriteString("~")
	case link.LAM:
		fmt.Fprintf(b, "λx%d ", l.Loc())
		writeLnk(b, rt, rt.Read(l.Loc()+1))
	case link.APP:
		b.WriteString("(")
		writeLnk(b, rt, rt.Read(l.Loc()))
		b.WriteString(" ")
		writeLnk(b, rt, rt.Read(l.Loc()+1))
		b.WriteString(")")
	case link.PAR:
		fmt.Fprintf(b, "<%d ", l.Ext)
		writeLnk(b, rt, rt.Read(l.Loc()))
		b.WriteString(" ")
		writeLnk(b, rt, rt.Read(l.Loc()+1))
		b.WriteString(">")
	case link.OP2:
		b.WriteString("(")
		b.WriteString(link.Oper(l.Ext).String())
		b.WriteString(" ")
		writeLnk(b, rt, rt.Read(l.Loc()))
		b.WriteString(" ")
		writeLnk(b, rt, rt.Read(l.Loc()+1))
		b.WriteString(")")
	case link.NUM:
		b.WriteString("#")
		b.WriteString(l.Num().String())
	case link.CTR:
		b.WriteString("$(")
		b.WriteString(name.Decode(word.FromUint64(l.Ext)))
		arity := rt.GetArity(l.Ext)
		for i := uint64(0); i < arity; i++ {
			b.WriteString(" ")
			writeLnk(b, rt, rt.Read(l.Loc()+i))
		}
		b.WriteString(")")
	case link.FUN:
		b.WriteString("!(")
		b.WriteString(name.Decode(word.FromUint64(l.Ext)))
		arity := rt.GetArity(l.Ext)
		for i := uint64(0); i < arity; i++ {
			b.WriteString(" ")
			writeLnk(b, rt, rt.Read(l.Loc()+i))
		}
		b.WriteString(")")
	default:
		b.WriteString("?")
	}
}
