// Package rule holds the compiled representation of a function's
// rewrite rules (spec §3 "Function code", §4.H "Function builder").
// It sits below internal/heap (which stores *Func values keyed by
// function id) and below internal/reducer (which applies them),
// avoiding an import cycle between the two.
package rule

import (
	"kindelia/internal/link"
	"kindelia/internal/term"
)

// VarBinding describes how to extract one right-hand-side variable
// from a matched left-hand side: "in what parameter, in what field
// (if any)".
type VarBinding struct {
	Name   uint32 // name.ScratchIndex-reduced variable id, used as a scratch-table index
	Param  uint64
	Field  int // -1 means "no field: the whole parameter"
	Erase  bool
}

// Eras names a constructor shell (argument index, arity) that must be
// freed after a rule fires.
type Eras struct {
	ArgIndex uint64
	Arity    uint64
}

// Rule is one compiled equation of a function.
type Rule struct {
	// Cond holds one matching token per parameter: a CTR-tagged Lnk
	// (match by identifier), a NUM-tagged Lnk (match by value), or the
	// zero Lnk (matches anything — a plain variable or wildcard).
	Cond []link.Lnk
	Vars []VarBinding
	Eras []Eras
	Body term.Term
}

// Func is the compiled form of a function's equations.
type Func struct {
	Arity uint64
	Redux []uint64 // strict argument indices, in ascending order
	Rules []Rule
}

// IsStrict reports whether argument i must be reduced to WHNF before
// matching.
func (f *Func) IsStrict(i uint64) bool {
	for _, r := range f.Redux {
		if r == i {
			return true
		}
	}
	return false
}
