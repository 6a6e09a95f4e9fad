// Package term defines the transient Term AST (spec §3 "Term (AST)"),
// used only while parsing or materializing a term into the heap.
package term

import (
	"kindelia/internal/link"
	"kindelia/internal/word"
)

// Term is a node of the term AST. It is a closed sum type: every
// concrete variant below implements it via an unexported marker
// method, so a type switch on Term is exhaustive-checkable by eye.
type Term interface {
	isTerm()
}

// Var references a binder by name.
type Var struct{ Name word.U120 }

// Dup is a duplication binder: "& nam0 nam1 = expr; body".
type Dup struct {
	Nam0, Nam1 word.U120
	Expr, Body Term
}

// Lam is a lambda abstraction.
type Lam struct {
	Name word.U120
	Body Term
}

// App is function application.
type App struct{ Func, Argm Term }

// Ctr is a constructor application.
type Ctr struct {
	Name word.U120
	Args []Term
}

// Fun is a function call.
type Fun struct {
	Name word.U120
	Args []Term
}

// Num is a 120-bit numeric literal.
type Num struct{ Value word.U120 }

// Op2 is a binary operator application.
type Op2 struct {
	Oper       link.Oper
	Val0, Val1 Term
}

// Equation is one parsed rule of a function definition: a left-hand
// side (always a Fun application) and its right-hand-side body.
type Equation struct {
	Lhs, Rhs Term
}

func (*Var) isTerm() {}
func (*Dup) isTerm() {}
func (*Lam) isTerm() {}
func (*App) isTerm() {}
func (*Ctr) isTerm() {}
func (*Fun) isTerm() {}
func (*Num) isTerm() {}
func (*Op2) isTerm() {}
