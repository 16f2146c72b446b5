package ir

import "testing"

func TestToSsaInsertsPhiAtMergeBlock(t *testing.T) {
	f := CreateFunction("f", nil)
	cond := CreateVariable(f, Bool, "cond")
	x := CreateVariable(f, S32, "x")

	a := CreateCodeBlock(f, "a")
	b := CreateCodeBlock(f, "b")
	c := CreateCodeBlock(f, "c")

	AddBranch(f.Entry, VarOperand(cond), a, b)

	AddUnary(a, x, Mov, ConstOperand(IntConst(S32, 1)))
	AddJump(a, c)

	AddUnary(b, x, Mov, ConstOperand(IntConst(S32, 2)))
	AddJump(b, c)

	AddReturn1(c, VarOperand(x))

	ToSsa(f)

	if !f.EnforceSSA {
		t.Fatal("expected EnforceSSA set after conversion")
	}
	comb, ok := c.Instructions[0].(*Combinator)
	if !ok {
		t.Fatalf("expected a phi as c's first instruction, got %T", c.Instructions[0])
	}
	if len(comb.From) != 2 {
		t.Fatalf("expected a phi with 2 binds, got %d", len(comb.From))
	}
	ret := c.Instructions[len(c.Instructions)-1].(*Return)
	if ret.Value.IsConst || ret.Value.Var != comb.Dest() {
		t.Fatal("expected the return to reference the phi's destination after renaming")
	}
}

func TestToSsaLoopSelfReferencingPhi(t *testing.T) {
	f := CreateFunction("f", nil)
	x := CreateVariable(f, S32, "x")
	entry := f.Entry
	loop := CreateCodeBlock(f, "loop")
	exit := CreateCodeBlock(f, "exit")

	AddUnary(entry, x, Mov, ConstOperand(IntConst(S32, 0)))
	AddJump(entry, loop)

	next := CreateVariable(f, S32, "next")
	AddBinary(loop, next, Add, VarOperand(x), ConstOperand(IntConst(S32, 1)))
	AddUnary(loop, x, Mov, VarOperand(next))
	cond := CreateVariable(f, Bool, "cond")
	AddBinary(loop, cond, Slt, VarOperand(x), ConstOperand(IntConst(S32, 10)))
	AddBranch(loop, VarOperand(cond), loop, exit)

	AddReturn1(exit, VarOperand(x))

	ToSsa(f)

	comb, ok := loop.Instructions[0].(*Combinator)
	if !ok {
		t.Fatalf("expected a phi as loop's first instruction, got %T", loop.Instructions[0])
	}
	if len(comb.From) != 2 {
		t.Fatalf("expected a phi with 2 binds for the loop header, got %d", len(comb.From))
	}
}

func TestToSsaIsIdempotent(t *testing.T) {
	f := CreateFunction("f", nil)
	cond := CreateVariable(f, Bool, "cond")
	x := CreateVariable(f, S32, "x")
	a := CreateCodeBlock(f, "a")
	b := CreateCodeBlock(f, "b")
	c := CreateCodeBlock(f, "c")
	AddBranch(f.Entry, VarOperand(cond), a, b)
	AddUnary(a, x, Mov, ConstOperand(IntConst(S32, 1)))
	AddJump(a, c)
	AddUnary(b, x, Mov, ConstOperand(IntConst(S32, 2)))
	AddJump(b, c)
	AddReturn1(c, VarOperand(x))

	ToSsa(f)
	before := Serialize(f)
	ToSsa(f)
	after := Serialize(f)

	if before != after {
		t.Fatal("expected a second ToSsa call on an already-converted function to be a no-op")
	}
}

func TestToSsaEverySsaVariableAssignedAtMostOnce(t *testing.T) {
	f := CreateFunction("f", nil)
	cond := CreateVariable(f, Bool, "cond")
	x := CreateVariable(f, S32, "x")
	a := CreateCodeBlock(f, "a")
	b := CreateCodeBlock(f, "b")
	c := CreateCodeBlock(f, "c")
	AddBranch(f.Entry, VarOperand(cond), a, b)
	AddUnary(a, x, Mov, ConstOperand(IntConst(S32, 1)))
	AddJump(a, c)
	AddUnary(b, x, Mov, ConstOperand(IntConst(S32, 2)))
	AddJump(b, c)
	AddReturn1(c, VarOperand(x))

	ToSsa(f)

	for _, v := range f.Vars {
		if len(v.Assignments) > 1 {
			t.Fatalf("variable %%%s assigned %d times after SSA conversion", v.name, len(v.Assignments))
		}
	}
}

func TestComputeDominanceDiamond(t *testing.T) {
	f := CreateFunction("f", nil)
	cond := CreateVariable(f, Bool, "cond")
	a := CreateCodeBlock(f, "a")
	b := CreateCodeBlock(f, "b")
	c := CreateCodeBlock(f, "c")
	AddBranch(f.Entry, VarOperand(cond), a, b)
	AddJump(a, c)
	AddJump(b, c)
	AddReturn0(c)

	nodes := computeDominance(f)

	entryNode := nodes[f.Entry.dfsIndex]
	cNode := nodes[c.dfsIndex]
	if cNode.idom != f.Entry.dfsIndex {
		t.Fatalf("expected c's immediate dominator to be the entry block, got node %d", cNode.idom)
	}
	if entryNode.frontier[c.dfsIndex] {
		t.Fatal("expected the entry block, which strictly dominates c, to not have c in its own frontier")
	}
	aNode := nodes[a.dfsIndex]
	if !aNode.frontier[c.dfsIndex] {
		t.Fatal("expected c in a's dominance frontier")
	}
}
