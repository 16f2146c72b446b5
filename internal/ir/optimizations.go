package ir

// This file is the fixed-point optimizer: Optimize repeats four passes in
// order until none of them reports a change. Each pass is self-contained
// and may be run on its own for testing; Optimize is the only entry point
// a caller normally needs.

// Optimize repeats UnusedVars, ConstProp, DeadCode and Branches in that
// order until a full round makes no change, and reports whether anything
// changed across the whole call.
func Optimize(f *Function) bool {
	changed := false
	for {
		round := false
		if UnusedVars(f) {
			round = true
		}
		if ConstProp(f) {
			round = true
		}
		if DeadCode(f) {
			round = true
		}
		if Branches(f) {
			round = true
		}
		changed = changed || round
		if !round {
			break
		}
	}
	return changed
}

// UnusedVars deletes every variable with an empty use-set, and repeats
// until none remain, since deleting one variable's sole assignment can
// drop another variable's use count to zero.
func UnusedVars(f *Function) bool {
	deleted := false
	for {
		round := false
		for _, v := range append([]*Var(nil), f.Vars...) {
			if v.Uses.Len() == 0 {
				DeleteVariable(v)
				round = true
			}
		}
		deleted = deleted || round
		if !round {
			break
		}
	}
	return deleted
}

// constPropExpr folds e in place if it is a unary or binary expression
// over constant operands, replacing its destination throughout the
// function with the computed constant and deleting the destination.
func constPropExpr(e Expr) bool {
	switch expr := e.(type) {
	case *Unary:
		if !expr.Operand.IsConst {
			return false
		}
		var result Const
		if expr.Op == Mov {
			result = Cast(expr.Dest().Prim, expr.Operand.Const)
		} else {
			result = EvalUnary(expr.Op, expr.Operand.Const)
		}
		dest := expr.Dest()
		ReplaceVariable(dest, ConstOperand(result))
		DeleteVariable(dest)
		return true
	case *Binary:
		if !expr.Lhs.IsConst || !expr.Rhs.IsConst {
			return false
		}
		result := EvalBinary(expr.Op, expr.Lhs.Const, expr.Rhs.Const)
		dest := expr.Dest()
		ReplaceVariable(dest, ConstOperand(result))
		DeleteVariable(dest)
		return true
	default:
		return false
	}
}

// ConstProp folds every single-assignment variable whose assignment is a
// unary or binary expression over constant operands, repeating until a
// round makes no change: folding one expression can make its destination
// a constant operand to another, which can then fold in turn.
func ConstProp(f *Function) bool {
	propagated := false
	for {
		round := false
		for _, v := range append([]*Var(nil), f.Vars...) {
			if len(v.Assignments) != 1 {
				continue
			}
			if constPropExpr(v.Assignments[0]) {
				round = true
			}
		}
		propagated = propagated || round
		if !round {
			break
		}
	}
	return propagated
}

// replaceBranchWithJump replaces a conditional branch with an
// unconditional jump to one of its two targets, in place. Because
// nothing may follow a terminator in the same block, a branch whose
// condition has folded to a constant can't just be deleted the way a
// dead instruction downstream of one could: the block still needs a
// terminator, so the surviving edge becomes an explicit jump.
func replaceBranchWithJump(b *Branch, target *CodeBlock) *Jump {
	block := b.block
	DeleteInstruction(b)
	j := &Jump{id: block.Func.alloc(), block: block, Target: target}
	block.Instructions = append(block.Instructions, j)
	return j
}

// deadCodeTruncate walks code's instructions in order and deletes every
// instruction after the first Jump, Return, or constant-true Branch.
// Invariant 5 only blocks appending after a Jump or Branch, so a Return
// followed by further calls is a constructible, valid state; this mirrors
// the source's in-order scan rather than trusting the block's last
// instruction to already be the true terminator.
func deadCodeTruncate(code *CodeBlock) bool {
	stop := -1
	for i, insn := range code.Instructions {
		switch v := insn.(type) {
		case *Jump, *Return:
			stop = i
		case *Branch:
			if v.Cond.IsConst && v.Cond.Const.IsTrue() {
				stop = i
			}
		}
		if stop >= 0 {
			break
		}
	}
	if stop < 0 || stop == len(code.Instructions)-1 {
		return false
	}
	for _, insn := range append([]Instruction(nil), code.Instructions[stop+1:]...) {
		DeleteInstruction(insn)
	}
	return true
}

// deadCodeDfs marks code reachable and recurses along its live
// successors, folding a constant-condition branch into a jump along the
// way. It returns whether it changed anything.
func deadCodeDfs(code *CodeBlock) bool {
	if code.visited {
		return false
	}
	code.visited = true

	changed := deadCodeTruncate(code)
	switch f := code.Terminator().(type) {
	case *Jump:
		if deadCodeDfs(f.Target) {
			changed = true
		}
	case *Branch:
		if f.Cond.IsConst {
			if f.Cond.Const.IsTrue() {
				replaceBranchWithJump(f, f.Target)
				deadCodeDfs(f.Target)
			} else {
				replaceBranchWithJump(f, f.FalseTarget)
				deadCodeDfs(f.FalseTarget)
			}
			changed = true
		} else {
			live1 := deadCodeDfs(f.Target)
			live2 := deadCodeDfs(f.FalseTarget)
			if live1 || live2 {
				changed = true
			}
		}
	}
	return changed
}

// DeadCode removes blocks unreachable from the entry block, folding any
// constant-condition branch into an unconditional jump first so the
// reachability walk only has to follow real edges. It repeats until a
// round deletes nothing, since removing one block's sole predecessor can
// make the block itself unreachable in turn.
func DeadCode(f *Function) bool {
	changed := false
	for {
		for _, b := range f.Blocks {
			b.visited = false
		}
		round := deadCodeDfs(f.Entry)

		for _, b := range append([]*CodeBlock(nil), f.Blocks...) {
			if !b.visited {
				DeleteBlock(b)
				round = true
			}
		}
		RecalculateFlow(f)
		changed = changed || round
		if !round {
			break
		}
	}
	return changed
}

func setInsnBlock(i Instruction, block *CodeBlock) {
	switch v := i.(type) {
	case *Combinator:
		v.block = block
	case *Unary:
		v.block = block
	case *Binary:
		v.block = block
	case *Undefined:
		v.block = block
	case *Jump:
		v.block = block
	case *Branch:
		v.block = block
	case *CallDirect:
		v.block = block
	case *CallPtr:
		v.block = block
	case *Return:
		v.block = block
	}
}

// mergeBlocks folds second into first when first's only successor is
// second and second's only predecessor is first: first's terminator is
// dropped, second's instructions are relocated into first, and first
// inherits second's successor set. Any combinator in one of those
// successors that still binds second as a predecessor is repointed to
// first, since second no longer exists to be one.
func mergeBlocks(first, second *CodeBlock) {
	DeleteInstruction(first.Instructions[len(first.Instructions)-1])

	for _, insn := range second.Instructions {
		setInsnBlock(insn, first)
	}
	first.Instructions = append(first.Instructions, second.Instructions...)
	second.Instructions = nil

	for _, succ := range second.Successors.Items() {
		succ.Predecessors.remove(second)
		succ.Predecessors.add(first)
		for _, insn := range succ.Instructions {
			comb, ok := insn.(*Combinator)
			if !ok {
				break
			}
			for i := range comb.From {
				if comb.From[i].Pred == second {
					comb.From[i].Pred = first
				}
			}
		}
	}
	first.Successors = second.Successors
	second.Successors = newBlockSet()
	second.Predecessors.clear()

	blocks := second.Func.Blocks
	for idx, b := range blocks {
		if b == second {
			second.Func.Blocks = append(blocks[:idx], blocks[idx+1:]...)
			break
		}
	}
}

func branchOptDfs(code *CodeBlock) bool {
	if code.visited {
		return false
	}
	code.visited = true

	changed := false
	for code.Successors.Len() == 1 {
		succ := code.Successors.Items()[0]
		if succ.Predecessors.Len() != 1 {
			break
		}
		mergeBlocks(code, succ)
		changed = true
	}

	for _, succ := range code.Successors.Items() {
		if branchOptDfs(succ) {
			changed = true
		}
	}
	return changed
}

// Branches merges every block into its predecessor when they are linked
// 1:1, collapsing needless control flow left behind by earlier passes.
func Branches(f *Function) bool {
	for _, b := range f.Blocks {
		b.visited = false
	}
	return branchOptDfs(f.Entry)
}
