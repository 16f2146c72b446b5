package ir

import "cir/internal/diag"

// This file is the only place that may construct or destroy IR nodes. Every
// operation here maintains invariants 1-7 of the data model: use-set
// consistency, assignment-list consistency, predecessor/successor symmetry,
// type agreement, terminator ordering, SSA discipline, and combinator
// arity. A violation is a programmer bug in the front-end and is reported
// through diag.Bug, which aborts the process (see internal/diag).

// CreateFunction returns a new function with one S32 parameter per entry
// of argNames and a fresh entry block. Parameters are created before the
// entry block exists in func.Vars, matching the source's construction
// order.
func CreateFunction(name string, argNames []string) *Function {
	f := &Function{Name: name}
	f.Params = make([]*Var, len(argNames))
	for i, argName := range argNames {
		f.Params[i] = CreateVariable(f, S32, argName)
	}
	f.Entry = CreateCodeBlock(f, "")
	return f
}

// CreateVariable appends a new variable to func.Vars. If name is empty, the
// variable is named with the decimal count of func.Vars at creation time.
func CreateVariable(f *Function, prim Prim, name string) *Var {
	if name == "" {
		name = decimalName(len(f.Vars))
	}
	v := &Var{
		id:   f.alloc(),
		name: name,
		Prim: prim,
		Func: f,
		Uses: newInstrSet(),
	}
	f.Vars = append(f.Vars, v)
	return v
}

// CreateCodeBlock appends a new block to func.Blocks. If name is empty, the
// block is named with the decimal count of func.Blocks at creation time.
func CreateCodeBlock(f *Function, name string) *CodeBlock {
	if name == "" {
		name = decimalName(len(f.Blocks))
	}
	c := &CodeBlock{
		id:           f.alloc(),
		name:         name,
		Func:         f,
		Predecessors: newBlockSet(),
		Successors:   newBlockSet(),
	}
	f.Blocks = append(f.Blocks, c)
	return c
}

func registerUse(op Operand, instr Instruction) {
	if !op.IsConst {
		op.Var.Uses.add(instr)
	}
}

func unregisterUse(op Operand, instr Instruction) {
	if !op.IsConst {
		op.Var.Uses.remove(instr)
	}
}

// checkNotAfterTerminator enforces invariant 5: nothing may follow a Jump
// or Branch within the same block.
func checkNotAfterTerminator(block *CodeBlock) {
	if len(block.Instructions) == 0 {
		return
	}
	switch block.Instructions[len(block.Instructions)-1].(type) {
	case *Jump, *Branch:
		diag.Bug("cannot append instruction after a jump or branch in block <%s>", block.name)
	}
}

// checkSSADiscipline enforces invariant 6: once a function enforces SSA, a
// variable may be assigned at most once.
func checkSSADiscipline(dest *Var) {
	if dest.Func.EnforceSSA && len(dest.Assignments) > 0 {
		diag.Bug("SSA variable %%%s assigned twice", dest.name)
	}
}

func appendAssignment(e Expr) {
	dest := e.Dest()
	checkSSADiscipline(dest)
	dest.Assignments = append(dest.Assignments, e)
}

// AddCombinator appends a phi expression. len(from) must equal
// len(block.Predecessors), every entry's Pred must be a distinct member of
// that set, and every entry's operand type must equal dest's type.
func AddCombinator(block *CodeBlock, dest *Var, from []CombinatorEntry) *Combinator {
	checkNotAfterTerminator(block)
	if len(from) != block.Predecessors.Len() {
		diag.Bug("combinator for %%%s has %d binds but block <%s> has %d predecessors",
			dest.name, len(from), block.name, block.Predecessors.Len())
	}
	seen := make(map[*CodeBlock]bool, len(from))
	for _, entry := range from {
		if !block.Predecessors.contains(entry.Pred) {
			diag.Bug("combinator for %%%s binds a block that is not a predecessor of <%s>", dest.name, block.name)
		}
		if seen[entry.Pred] {
			diag.Bug("combinator for %%%s binds predecessor <%s> more than once", dest.name, entry.Pred.name)
		}
		seen[entry.Pred] = true
		if entry.Operand.Prim() != dest.Prim {
			diag.Bug("combinator for %%%s has a bind of conflicting type", dest.name)
		}
	}

	c := &Combinator{id: block.Func.alloc(), block: block, dest: dest, From: append([]CombinatorEntry(nil), from...)}
	for _, entry := range c.From {
		registerUse(entry.Operand, c)
	}
	appendAssignment(c)
	block.Instructions = append(block.Instructions, c)
	return c
}

// AddUnary appends a unary expression, verifying type agreement: Seqz and
// Snez must produce Bool, Mov may cast freely, every other operator
// requires operand and destination to share a type.
func AddUnary(block *CodeBlock, dest *Var, op UnaryOp, operand Operand) *Unary {
	checkNotAfterTerminator(block)
	switch op {
	case Seqz, Snez:
		if dest.Prim != Bool {
			diag.Bug("%s must produce a bool destination", op)
		}
	case Mov:
		// Cast permitted: no type agreement check.
	default:
		if operand.Prim() != dest.Prim {
			diag.Bug("unary %s has conflicting operand and destination types", op)
		}
	}

	u := &Unary{id: block.Func.alloc(), block: block, dest: dest, Op: op, Operand: operand}
	registerUse(operand, u)
	appendAssignment(u)
	block.Instructions = append(block.Instructions, u)
	return u
}

// AddBinary appends a binary expression. A comparison operator produces a
// Bool destination regardless of its operand type, so it only requires its
// two operands to agree with each other; every other operator requires
// both operands and the destination to share a Prim.
func AddBinary(block *CodeBlock, dest *Var, op BinaryOp, lhs, rhs Operand) *Binary {
	checkNotAfterTerminator(block)
	if op.isComparison() {
		if dest.Prim != Bool {
			diag.Bug("%s must produce a bool destination", op)
		}
		if lhs.Prim() != rhs.Prim() {
			diag.Bug("binary %s has operands of conflicting types", op)
		}
	} else {
		if lhs.Prim() != dest.Prim {
			diag.Bug("binary %s has a conflicting left operand type", op)
		}
		if rhs.Prim() != dest.Prim {
			diag.Bug("binary %s has a conflicting right operand type", op)
		}
	}

	b := &Binary{id: block.Func.alloc(), block: block, dest: dest, Op: op, Lhs: lhs, Rhs: rhs}
	registerUse(lhs, b)
	registerUse(rhs, b)
	appendAssignment(b)
	block.Instructions = append(block.Instructions, b)
	return b
}

// AddUndefined appends an expression denoting an unspecified value.
func AddUndefined(block *CodeBlock, dest *Var) *Undefined {
	checkNotAfterTerminator(block)
	u := &Undefined{id: block.Func.alloc(), block: block, dest: dest}
	appendAssignment(u)
	block.Instructions = append(block.Instructions, u)
	return u
}

// AddJump appends an unconditional jump and maintains predecessor/successor
// symmetry on both ends immediately.
func AddJump(from, to *CodeBlock) *Jump {
	checkNotAfterTerminator(from)
	j := &Jump{id: from.Func.alloc(), block: from, Target: to}
	from.Successors.add(to)
	to.Predecessors.add(from)
	from.Instructions = append(from.Instructions, j)
	return j
}

// AddBranch appends a conditional branch. cond must be Bool-typed; control
// goes to target when it is true and to falseTarget otherwise.
func AddBranch(from *CodeBlock, cond Operand, target, falseTarget *CodeBlock) *Branch {
	checkNotAfterTerminator(from)
	if cond.Prim() != Bool {
		diag.Bug("branch condition must be bool")
	}

	b := &Branch{id: from.Func.alloc(), block: from, Cond: cond, Target: target, FalseTarget: falseTarget}
	registerUse(cond, b)
	from.Successors.add(target)
	target.Predecessors.add(from)
	from.Successors.add(falseTarget)
	falseTarget.Predecessors.add(from)
	from.Instructions = append(from.Instructions, b)
	return b
}

// AddCallDirect appends a call to a statically-named label.
func AddCallDirect(from *CodeBlock, label string, args []Operand) *CallDirect {
	checkNotAfterTerminator(from)
	c := &CallDirect{id: from.Func.alloc(), block: from, Label: label, Args: append([]Operand(nil), args...)}
	for _, a := range c.Args {
		registerUse(a, c)
	}
	from.Instructions = append(from.Instructions, c)
	return c
}

// AddCallPtr appends a call through a pointer-valued operand.
func AddCallPtr(from *CodeBlock, addr Operand, args []Operand) *CallPtr {
	checkNotAfterTerminator(from)
	c := &CallPtr{id: from.Func.alloc(), block: from, Addr: addr, Args: append([]Operand(nil), args...)}
	registerUse(addr, c)
	for _, a := range c.Args {
		registerUse(a, c)
	}
	from.Instructions = append(from.Instructions, c)
	return c
}

// AddReturn0 appends a valueless return.
func AddReturn0(from *CodeBlock) *Return {
	checkNotAfterTerminator(from)
	r := &Return{id: from.Func.alloc(), block: from}
	from.Instructions = append(from.Instructions, r)
	return r
}

// AddReturn1 appends a return carrying value.
func AddReturn1(from *CodeBlock, value Operand) *Return {
	checkNotAfterTerminator(from)
	r := &Return{id: from.Func.alloc(), block: from, HasValue: true, Value: value}
	registerUse(value, r)
	from.Instructions = append(from.Instructions, r)
	return r
}

// removeInstrFromSlice removes the first occurrence of target from s, preserving
// order, and returns the resulting slice.
func removeInstrFromSlice(s []Instruction, target Instruction) []Instruction {
	for i, v := range s {
		if v == target {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

func removeExprFromSlice(s []Expr, target Expr) []Expr {
	for i, v := range s {
		if v == target {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// DeleteInstruction removes i from its parent block and unregisters every
// use and assignment it held. It does not touch predecessor/successor
// sets; DeleteBlock and RecalculateFlow own those.
func DeleteInstruction(i Instruction) {
	block := i.Block()
	block.Instructions = removeInstrFromSlice(block.Instructions, i)

	switch v := i.(type) {
	case *Combinator:
		v.dest.Assignments = removeExprFromSlice(v.dest.Assignments, v)
		for _, entry := range v.From {
			unregisterUse(entry.Operand, v)
		}
	case *Unary:
		v.dest.Assignments = removeExprFromSlice(v.dest.Assignments, v)
		unregisterUse(v.Operand, v)
	case *Binary:
		v.dest.Assignments = removeExprFromSlice(v.dest.Assignments, v)
		unregisterUse(v.Lhs, v)
		unregisterUse(v.Rhs, v)
	case *Undefined:
		v.dest.Assignments = removeExprFromSlice(v.dest.Assignments, v)
	case *Jump:
		// No operand uses; pred/succ left to DeleteBlock/RecalculateFlow.
	case *Branch:
		unregisterUse(v.Cond, v)
	case *CallDirect:
		for _, a := range v.Args {
			unregisterUse(a, v)
		}
	case *CallPtr:
		unregisterUse(v.Addr, v)
		for _, a := range v.Args {
			unregisterUse(a, v)
		}
	case *Return:
		if v.HasValue {
			unregisterUse(v.Value, v)
		}
	}
}

// DeleteVariable deletes every instruction that uses or assigns v, then
// removes v from its function's variable list.
func DeleteVariable(v *Var) {
	toDelete := newInstrSet()
	toDelete.addAll(v.Uses)
	for _, e := range v.Assignments {
		toDelete.add(e)
	}
	for _, i := range toDelete.Items() {
		DeleteInstruction(i)
	}

	f := v.Func
	for idx, fv := range f.Vars {
		if fv == v {
			f.Vars = append(f.Vars[:idx], f.Vars[idx+1:]...)
			break
		}
	}
}

// ReplaceVariable rewrites every operand position in v.Uses from v to
// replacement, registering the new operand's use-set if it names a
// variable. It does not touch v.Assignments and does not delete v. Self
// replacement (replacement names v itself) is a programmer bug.
//
// Call argument lists are rewritten position by position: only the
// arguments that actually equal v are replaced, never the whole list.
func ReplaceVariable(v *Var, replacement Operand) {
	if !replacement.IsConst && replacement.Var == v {
		diag.Bug("variable %%%s asked to be replaced with itself", v.name)
	}

	for _, i := range v.Uses.Items() {
		switch e := i.(type) {
		case *Unary:
			if !e.Operand.IsConst && e.Operand.Var == v {
				e.Operand = replacement
				registerUse(replacement, e)
			}
		case *Binary:
			if !e.Lhs.IsConst && e.Lhs.Var == v {
				e.Lhs = replacement
				registerUse(replacement, e)
			}
			if !e.Rhs.IsConst && e.Rhs.Var == v {
				e.Rhs = replacement
				registerUse(replacement, e)
			}
		case *Combinator:
			for idx := range e.From {
				if !e.From[idx].Operand.IsConst && e.From[idx].Operand.Var == v {
					e.From[idx].Operand = replacement
					registerUse(replacement, e)
				}
			}
		case *Branch:
			if !e.Cond.IsConst && e.Cond.Var == v {
				e.Cond = replacement
				registerUse(replacement, e)
			}
		case *Return:
			if e.HasValue && !e.Value.IsConst && e.Value.Var == v {
				e.Value = replacement
				registerUse(replacement, e)
			}
		case *CallPtr:
			if !e.Addr.IsConst && e.Addr.Var == v {
				e.Addr = replacement
				registerUse(replacement, e)
			}
			for idx := range e.Args {
				if !e.Args[idx].IsConst && e.Args[idx].Var == v {
					e.Args[idx] = replacement
					registerUse(replacement, e)
				}
			}
		case *CallDirect:
			for idx := range e.Args {
				if !e.Args[idx].IsConst && e.Args[idx].Var == v {
					e.Args[idx] = replacement
					registerUse(replacement, e)
				}
			}
		}
	}
	v.Uses.clear()
}

// removeCombinatorPath drops the entry binding pred from a combinator
// expression. If that leaves exactly one bind, the combinator is
// collapsed: its destination is replaced throughout the function by the
// sole remaining operand, and the combinator itself is deleted.
//
// If that sole remaining bind is the destination itself (a self-loop with
// no other source of the value), the combinator carries no information
// and is deleted without a replacement, same as an Undefined would be.
func removeCombinatorPath(c *Combinator, pred *CodeBlock) {
	for idx, entry := range c.From {
		if entry.Pred == pred {
			unregisterUse(entry.Operand, c)
			c.From = append(c.From[:idx], c.From[idx+1:]...)
			break
		}
	}
	if len(c.From) != 1 {
		return
	}
	sole := c.From[0].Operand
	if !sole.IsConst && sole.Var == c.dest {
		DeleteInstruction(c)
		return
	}
	ReplaceVariable(c.dest, sole)
	DeleteInstruction(c)
}

// DeleteBlock removes c from its function. Every predecessor's terminator
// targeting c is deleted, every successor's combinators drop the entry
// bound to c (collapsing to a Mov-equivalent or deleting per
// removeCombinatorPath when arity falls to one), then c's own instructions
// are deleted and c is removed from func.Blocks.
func DeleteBlock(c *CodeBlock) {
	for _, pred := range c.Predecessors.Items() {
		pred.Successors.remove(c)
		for _, i := range append([]Instruction(nil), pred.Instructions...) {
			switch f := i.(type) {
			case *Jump:
				if f.Target == c {
					DeleteInstruction(f)
				}
			case *Branch:
				if f.Target == c || f.FalseTarget == c {
					DeleteInstruction(f)
				}
			}
		}
	}
	for _, succ := range c.Successors.Items() {
		succ.Predecessors.remove(c)
		for _, i := range append([]Instruction(nil), succ.Instructions...) {
			if comb, ok := i.(*Combinator); ok {
				removeCombinatorPath(comb, c)
			}
		}
	}
	for _, i := range append([]Instruction(nil), c.Instructions...) {
		DeleteInstruction(i)
	}

	f := c.Func
	for idx, fc := range f.Blocks {
		if fc == c {
			f.Blocks = append(f.Blocks[:idx], f.Blocks[idx+1:]...)
			break
		}
	}
}
