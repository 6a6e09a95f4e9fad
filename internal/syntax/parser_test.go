package syntax

import (
	"testing"

	"kindelia/internal/statement"
	"kindelia/internal/term"
)

func TestParseCtr(t *testing.T) {
	stmts, err := ParseProgram("ctr Leaf 1")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	if len(stmts) != 1 || stmts[0].Kind != statement.KindCtr || stmts[0].Arity != 1 {
		t.Fatalf("unexpected parse result: %+v", stmts)
	}
}

func TestParseFunWithDupAndOp2(t *testing.T) {
	src := `fun Gen 1 {
		!(Gen #0) = $(Leaf #1)
		!(Gen x) = & x0 x1 = x; $(Node !(Gen (- x0 #1)) !(Gen (- x1 #1)))
	} = #0`
	stmts, err := ParseProgram(src)
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	st := stmts[0]
	if st.Kind != statement.KindFun || len(st.Equations) != 2 {
		t.Fatalf("unexpected fun parse: %+v", st)
	}
}

func TestParseRunIORoundtrip(t *testing.T) {
	src := `fun F 0 { !(F) = $(IO.save #42 λk $(IO.done #0)) } = #0
run { !(IO.call !(F) λr $(IO.load λs $(IO.done s))) }`
	stmts, err := ParseProgram(src)
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	if len(stmts) != 2 || stmts[1].Kind != statement.KindRun {
		t.Fatalf("unexpected parse result: %+v", stmts)
	}
}

func TestParseOpVsApp(t *testing.T) {
	// "(- x0 #1)" must parse as Op2, not App, since '-' is a recognized
	// operator symbol.
	stmts, err := ParseProgram(`fun Id 1 { !(Id x) = (- x #1) } = #0`)
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	rhs := stmts[0].Equations[0].Rhs
	if _, ok := rhs.(*term.Op2); !ok {
		t.Fatalf("expected an Op2, got %T", rhs)
	}
	printed := PrintTerm(rhs)
	if printed != "(- x #1)" {
		t.Fatalf("unexpected print: %q", printed)
	}
}

func TestParseWildcard(t *testing.T) {
	stmts, err := ParseProgram(`fun K 2 { !(K x ~) = x } = #0`)
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	_ = stmts
}

func TestRoundtripPrint(t *testing.T) {
	src := "ctr Leaf 1"
	stmts, err := ParseProgram(src)
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	if got := PrintStatement(stmts[0]); got != "ctr Leaf 1" {
		t.Fatalf("PrintStatement = %q, want %q", got, "ctr Leaf 1")
	}
}
