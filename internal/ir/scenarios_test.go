package ir

import (
	"strings"
	"testing"
)

// These cover the example-driven invariants: each test builds a function by
// hand through the builder API and exercises one full operation end to end,
// the way a caller actually uses this package rather than one of its passes
// in isolation.

func TestScenarioConstantFold(t *testing.T) {
	f := CreateFunction("f", []string{"a"})
	x := CreateVariable(f, S32, "x")
	AddBinary(f.Entry, x, Add, ConstOperand(IntConst(S32, 2)), ConstOperand(IntConst(S32, 3)))
	AddReturn1(f.Entry, VarOperand(x))

	Optimize(f)

	if len(f.Entry.Instructions) != 1 {
		t.Fatalf("expected entry to hold exactly one instruction, got %d", len(f.Entry.Instructions))
	}
	if got := formatInstruction(f.Entry.Instructions[0]); got != "return s32'0x00000005" {
		t.Fatalf("expected the folded return, got %q", got)
	}
	for _, v := range f.Vars {
		if v == x {
			t.Fatal("expected x removed from the function's variable list")
		}
	}
}

func TestScenarioDeadBranch(t *testing.T) {
	f := CreateFunction("f", nil)
	a := CreateCodeBlock(f, "a")
	b := CreateCodeBlock(f, "b")
	AddBranch(f.Entry, ConstOperand(BoolConst(true)), a, b)
	AddReturn1(a, ConstOperand(IntConst(S32, 1)))
	AddReturn1(b, ConstOperand(IntConst(S32, 2)))

	Optimize(f)

	if len(f.Blocks) != 1 {
		t.Fatalf("expected entry and a merged into a single block, got %d blocks", len(f.Blocks))
	}
	for _, bl := range f.Blocks {
		if bl == b {
			t.Fatal("expected b removed as unreachable")
		}
	}
	last := f.Entry.Instructions[len(f.Entry.Instructions)-1]
	if got := formatInstruction(last); got != "return s32'0x00000001" {
		t.Fatalf("expected the surviving block to end in return s32'0x00000001, got %q", got)
	}
}

func TestScenarioSsaConversionOfALoop(t *testing.T) {
	f := CreateFunction("f", nil)
	v := CreateVariable(f, S32, "v")
	cond := CreateVariable(f, Bool, "cond")
	l := CreateCodeBlock(f, "L")
	l2 := CreateCodeBlock(f, "L2")

	AddUnary(f.Entry, v, Mov, ConstOperand(IntConst(S32, 1)))
	AddJump(f.Entry, l)

	AddBinary(l, v, Add, VarOperand(v), ConstOperand(IntConst(S32, 1)))
	AddBranch(l, VarOperand(cond), l, l2)

	AddReturn1(l2, VarOperand(v))

	ToSsa(f)

	comb, ok := l.Instructions[0].(*Combinator)
	if !ok {
		t.Fatalf("expected L to open with a phi for v's loop-carried value, got %T", l.Instructions[0])
	}
	if len(comb.From) != 2 {
		t.Fatalf("expected the phi to bind both of L's predecessors, got %d", len(comb.From))
	}

	for _, vr := range f.Vars {
		if len(vr.Assignments) > 1 {
			t.Fatalf("variable %%%s assigned more than once under SSA", vr.name)
		}
	}

	ret := l2.Instructions[len(l2.Instructions)-1].(*Return)
	if ret.Value.IsConst {
		t.Fatal("expected the final return to read a renamed SSA variable, not a constant")
	}
}

func TestScenarioUseSetInvariantUnderReplace(t *testing.T) {
	f := CreateFunction("f", nil)
	a := CreateVariable(f, S32, "a")
	b := CreateVariable(f, S32, "b")
	AddUnary(f.Entry, a, Mov, ConstOperand(IntConst(S32, 7)))
	AddBinary(f.Entry, b, Add, VarOperand(a), VarOperand(a))
	AddReturn1(f.Entry, VarOperand(b))

	ReplaceVariable(a, ConstOperand(IntConst(S32, 7)))

	if a.Uses.Len() != 0 {
		t.Fatal("expected a's use-set emptied after replacement")
	}
	bin := b.Assignments[0].(*Binary)
	if !bin.Lhs.IsConst || bin.Lhs.Const.Lo != 7 || !bin.Rhs.IsConst || bin.Rhs.Const.Lo != 7 {
		t.Fatal("expected both of b's operands replaced by the constant")
	}
	if got := formatInstruction(bin); got != "add %b, s32'0x00000007, s32'0x00000007" {
		t.Fatalf("expected the serialized form to show both constants, got %q", got)
	}
}

func TestScenarioBlockDeletionCollapsesCombinator(t *testing.T) {
	f := CreateFunction("f", nil)
	a := CreateCodeBlock(f, "a")
	b := CreateCodeBlock(f, "b")
	c := CreateCodeBlock(f, "c")
	v1 := CreateVariable(f, S32, "v1")
	v2 := CreateVariable(f, S32, "v2")
	AddJump(a, c)
	AddJump(b, c)

	x := CreateVariable(f, S32, "x")
	comb := createCombinator(c, x)
	rebindCombinator(comb, a, VarOperand(v1))
	rebindCombinator(comb, b, VarOperand(v2))
	AddReturn1(c, VarOperand(x))

	DeleteBlock(b)

	for _, insn := range c.Instructions {
		if insn == comb {
			t.Fatal("expected the combinator removed once collapsed to a single bind")
		}
	}
	ret := c.Instructions[len(c.Instructions)-1].(*Return)
	if ret.Value.IsConst || ret.Value.Var != v1 {
		t.Fatal("expected x replaced throughout by v1")
	}

	if UnusedVars(f) {
		for _, v := range f.Vars {
			if v == x {
				t.Fatal("expected x deletable by UnusedVars once nothing references it")
			}
		}
	}
}

func TestScenarioMergeStraightLineBlocks(t *testing.T) {
	f := CreateFunction("f", nil)
	l := CreateCodeBlock(f, "L")
	tail := CreateCodeBlock(f, "tail")
	dest := CreateVariable(f, S32, "dest")

	AddJump(f.Entry, l)
	AddJump(l, tail)
	AddUnary(tail, dest, Mov, ConstOperand(IntConst(S32, 1)))
	AddReturn1(tail, VarOperand(dest))

	Optimize(f)

	if len(f.Blocks) != 1 {
		t.Fatalf("expected entry, L and tail merged into one block, got %d", len(f.Blocks))
	}
	out := Serialize(f)
	if !strings.Contains(out, "return s32'0x00000001") {
		t.Fatalf("expected the merged block to end in the folded return, got %q", out)
	}
}
