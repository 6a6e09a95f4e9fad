package statement_test

import (
	"testing"

	"kindelia/internal/link"
	"kindelia/internal/name"
	"kindelia/internal/runtime"
	"kindelia/internal/statement"
	"kindelia/internal/syntax"
	"kindelia/internal/word"
)

func applyAll(t *testing.T, rt *runtime.Runtime, src string) []statement.Result {
	t.Helper()
	stmts, err := syntax.ParseProgram(src)
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	var results []statement.Result
	for _, st := range stmts {
		res := statement.Apply(rt, st)
		if res.Err != nil {
			t.Fatalf("Apply(%v): %v", st.Kind, res.Err)
		}
		results = append(results, res)
	}
	return results
}

// TestBinaryTreeSum grounds spec §8 end-to-end scenario 1: a Gen/Sum
// binary tree of depth 4 sums to 16.
func TestBinaryTreeSum(t *testing.T) {
	rt := runtime.New()
	src := `ctr Leaf 1
ctr Node 2
fun Gen 1 {
	!(Gen #0) = $(Leaf #1)
	!(Gen x) = & x0 x1 = x; $(Node !(Gen (- x0 #1)) !(Gen (- x1 #1)))
} = #0
fun Sum 1 {
	!(Sum $(Leaf x)) = x
	!(Sum $(Node a b)) = (+ !(Sum a) !(Sum b))
} = #0
run { !(Sum !(Gen #4)) }`
	results := applyAll(t, rt, src)
	last := results[len(results)-1]
	if last.Run == nil {
		t.Fatalf("expected a run result")
	}
	if last.Run.Value.Tag != link.NUM {
		t.Fatalf("expected NUM, got %v", last.Run.Value.Tag)
	}
	want := word.FromUint64(16)
	if !last.Run.Value.Num().Equal(want) {
		t.Fatalf("Sum/Gen(4) = %s, want 16", last.Run.Value.Num().String())
	}
}

// TestIORoundtrip grounds scenario 2: a save/load roundtrip through
// IO.call yields the saved value.
func TestIORoundtrip(t *testing.T) {
	rt := runtime.New()
	src := `fun F 0 { !(F) = $(IO.save #42 λk $(IO.done #0)) } = #0
run { !(IO.call !(F) λr $(IO.load λs $(IO.done s))) }`
	results := applyAll(t, rt, src)
	last := results[len(results)-1]
	if last.Run == nil || last.Run.Value.Tag != link.NUM {
		t.Fatalf("expected a NUM run result, got %+v", last.Run)
	}
	want := word.FromUint64(42)
	if !last.Run.Value.Num().Equal(want) {
		t.Fatalf("IO roundtrip = %s, want 42", last.Run.Value.Num().String())
	}
}

// TestOperatorModulus grounds scenario 5: addition wraps modulo 2^120.
func TestOperatorModulus(t *testing.T) {
	rt := runtime.New()
	maxU120 := "1329227995784915872903807060280344575" // 2^120 - 1
	src := "run { (+ #" + maxU120 + " #1) }"
	results := applyAll(t, rt, src)
	last := results[len(results)-1]
	if last.Run == nil || last.Run.Value.Tag != link.NUM {
		t.Fatalf("expected a NUM run result, got %+v", last.Run)
	}
	if !last.Run.Value.Num().IsZero() {
		t.Fatalf("(2^120-1)+1 = %s, want 0", last.Run.Value.Num().String())
	}
}

// TestIOSaveDeepNormalization grounds scenario 6: an IO.save of
// "(+ #1 #2)" persists the fully-reduced "#3" to disk, not the
// unreduced operator term, so a later get_disk/IO.load sees a plain
// NUM with no further reduction needed.
func TestIOSaveDeepNormalization(t *testing.T) {
	rt := runtime.New()
	src := `fun F 0 { !(F) = $(IO.save (+ #1 #2) λk $(IO.done #0)) } = #0
run { !(IO.call !(F) λr $(IO.done #0)) }`
	applyAll(t, rt, src)

	fid, err := name.Encode("F")
	if err != nil {
		t.Fatalf("name.Encode: %v", err)
	}
	root, ok := rt.GetDisk(fid)
	if !ok {
		t.Fatalf("expected F's disk root to be recorded")
	}
	if root.Tag != link.NUM {
		t.Fatalf("disk root tag = %v, want NUM (got an unreduced term)", root.Tag)
	}
	if !root.Num().Equal(word.FromUint64(3)) {
		t.Fatalf("disk root = %s, want 3", root.Num().String())
	}
}

// TestAffineViolationResolvesSecondOccurrenceToZero grounds spec §8
// scenario 4: a rule whose right-hand side uses a bound variable twice
// (here "(x x)") has no binder left for the second occurrence once the
// first consumes it, so createTerm's scratch table resolves it to
// "#0" — the same fallback the compiler's VAR_NONE/wildcard handling
// uses for an unbound name, pinning the observed behavior spec §9
// calls for rather than rejecting the rule at build time.
func TestAffineViolationResolvesSecondOccurrenceToZero(t *testing.T) {
	rt := runtime.New()
	src := `fun Twice 1 { !(Twice x) = (x x) } = #0
run { !(Twice #5) }`
	results := applyAll(t, rt, src)
	last := results[len(results)-1]
	if last.Run == nil {
		t.Fatalf("expected a run result")
	}
	if last.Run.Value.Tag != link.APP {
		t.Fatalf("expected an unreduced APP (x's second occurrence can't apply #5 as a function), got %v", last.Run.Value.Tag)
	}
	first := rt.Read(last.Run.Value.Loc())
	second := rt.Read(last.Run.Value.Loc() + 1)
	if first.Tag != link.NUM || !first.Num().Equal(word.FromUint64(5)) {
		t.Fatalf("first occurrence = %+v, want #5", first)
	}
	if second.Tag != link.NUM || !second.Num().IsZero() {
		t.Fatalf("second occurrence = %+v, want #0 (the unbound fallback)", second)
	}
}

// TestCtrArityRedeclarationRejected grounds the supplemented
// redeclaration-with-different-arity check (SPEC_FULL.md "Supplemented
// features" #3): it fails the statement and leaves the prior arity in
// place rather than partially mutating the heap.
func TestCtrArityRedeclarationRejected(t *testing.T) {
	rt := runtime.New()
	applyAll(t, rt, "ctr Pair 2")

	stmts, err := syntax.ParseProgram("ctr Pair 3")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	res := statement.Apply(rt, stmts[0])
	if res.Err == nil {
		t.Fatalf("expected redeclaration with a different arity to fail")
	}
}

// TestBudgetExceededFailsStatement grounds spec §5/§7's "Budget
// exceeded (cost or mana): statement failure": a non-terminating
// rewrite rule must fail the statement once its firings pass the
// installed cost limit, rather than hang forever.
func TestBudgetExceededFailsStatement(t *testing.T) {
	rt := runtime.New()
	rt.SetCostLimit(100)
	applyAll(t, rt, "fun Loop 1 {\n  !(Loop x) = !(Loop x)\n} = #0")

	stmts, err := syntax.ParseProgram("run { !(Loop #0) }")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	res := statement.Apply(rt, stmts[0])
	if res.Err == nil {
		t.Fatalf("expected a blown cost budget to fail the statement")
	}
}

// TestDivisionByZeroFailsStatement grounds the resolved Open Question
// "Arithmetic semantics" (spec §9): division by zero fails the
// statement rather than silently producing a result.
func TestDivisionByZeroFailsStatement(t *testing.T) {
	rt := runtime.New()
	stmts, err := syntax.ParseProgram("run { (/ #1 #0) }")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	res := statement.Apply(rt, stmts[0])
	if res.Err == nil {
		t.Fatalf("expected division by zero to fail the statement")
	}
}
