package ir

import "cir/internal/diag"

// This file converts a function in unrestricted assignment form into SSA:
// Lengauer-Tarjan dominance, dominance frontiers, phi placement at the
// frontier of each variable's assignments, and a single dominance-order
// renaming walk per variable.

const noNode = -1

// domNode holds one block's working state for a single dominance
// computation, indexed by dfs order rather than by *CodeBlock.
type domNode struct {
	code     *CodeBlock
	parent   int
	ancestor int
	semi     int
	idom     int
	best     int
	bucket   []int
	frontier map[int]bool
	usesVar  bool
}

func dfsAssign(code *CodeBlock, nodes []*domNode, ctr *int, parent int) {
	if code.visited {
		return
	}
	code.visited = true
	code.dfsIndex = *ctr
	nodes[*ctr].code = code
	nodes[*ctr].parent = parent
	p := *ctr
	*ctr++
	for _, succ := range code.Successors.Items() {
		dfsAssign(succ, nodes, ctr, p)
	}
}

// domEval returns the node with the smallest semidominator on the path
// from v to its ancestor tree root, compressing the path it traverses.
func domEval(nodes []*domNode, v int) int {
	if nodes[v].ancestor == noNode {
		return v
	}
	domCompress(nodes, v)
	return nodes[v].best
}

func domCompress(nodes []*domNode, v int) {
	a := nodes[v].ancestor
	if a == noNode {
		return
	}
	domCompress(nodes, a)
	if nodes[nodes[a].best].semi < nodes[nodes[v].best].semi {
		nodes[v].best = nodes[a].best
	}
	nodes[v].ancestor = nodes[a].ancestor
}

// computeDominance runs Lengauer-Tarjan over f's blocks and returns one
// domNode per block, indexed by dfs order. Every block must be reachable
// from f.Entry; a block that is not is reported through diag.Bug.
//
// The link step (ancestor[w] = parent[w]) and the matching bucket
// insertion both use w's semidominator only once it is final, after every
// predecessor of w has been folded in. Threading either one through the
// predecessor loop instead lets an intermediate semi value leak into the
// bucket or the ancestor forest, which silently produces a wrong idom for
// some inputs, so both happen exactly once, after the loop.
func computeDominance(f *Function) []*domNode {
	n := len(f.Blocks)
	nodes := make([]*domNode, n)
	for i := range nodes {
		nodes[i] = &domNode{semi: i, best: i, idom: i, ancestor: noNode, frontier: map[int]bool{}}
	}
	for _, b := range f.Blocks {
		b.visited = false
		b.dfsIndex = -1
	}

	ctr := 0
	dfsAssign(f.Entry, nodes, &ctr, noNode)
	if ctr != n {
		diag.Bug("function %s has blocks unreachable from its entry; dominance requires full reachability", f.Name)
	}

	for w := n - 1; w >= 1; w-- {
		p := nodes[w].parent
		for _, pred := range nodes[w].code.Predecessors.Items() {
			v := pred.dfsIndex
			u := domEval(nodes, v)
			if nodes[u].semi < nodes[w].semi {
				nodes[w].semi = nodes[u].semi
			}
		}
		nodes[nodes[w].semi].bucket = append(nodes[nodes[w].semi].bucket, w)
		nodes[w].ancestor = p

		for _, v := range nodes[p].bucket {
			u := domEval(nodes, v)
			if nodes[u].semi < nodes[v].semi {
				nodes[v].idom = u
			} else {
				nodes[v].idom = p
			}
		}
		nodes[p].bucket = nil
	}

	for w := 1; w < n; w++ {
		if nodes[w].idom != nodes[w].semi {
			nodes[w].idom = nodes[nodes[w].idom].idom
		}
	}
	nodes[0].idom = noNode

	for i := 1; i < n; i++ {
		if nodes[i].code.Predecessors.Len() < 2 {
			continue
		}
		for _, pred := range nodes[i].code.Predecessors.Items() {
			runner := pred.dfsIndex
			for runner != nodes[i].idom {
				nodes[runner].frontier[i] = true
				runner = nodes[runner].idom
			}
		}
	}

	return nodes
}

// createCombinator prepends a phi expression for dest to code, binding
// every predecessor to a zero placeholder. renameAssignments fills in the
// real operand for each predecessor as its dominance-order walk reaches
// the corresponding definition.
func createCombinator(code *CodeBlock, dest *Var) *Combinator {
	preds := code.Predecessors.Items()
	from := make([]CombinatorEntry, len(preds))
	for i, p := range preds {
		from[i] = CombinatorEntry{Pred: p, Operand: ConstOperand(IntConst(dest.Prim, 0))}
	}
	c := &Combinator{id: code.Func.alloc(), block: code, dest: dest, From: from}
	dest.Assignments = append(dest.Assignments, c)
	code.Instructions = append([]Instruction{c}, code.Instructions...)
	return c
}

// varUsageDfs marks every block from which v's value can still be
// observed: every block that uses it directly, plus (transitively) every
// predecessor of such a block along the control-flow graph, computed here
// by walking successors from each definition and propagating upward
// through the recursion rather than walking predecessor edges directly.
func varUsageDfs(code *CodeBlock, nodes []*domNode) bool {
	idx := code.dfsIndex
	if code.visited {
		return nodes[idx].usesVar
	}
	code.visited = true

	usesVar := nodes[idx].usesVar
	for _, succ := range code.Successors.Items() {
		if varUsageDfs(succ, nodes) {
			usesVar = true
		}
	}
	nodes[idx].usesVar = usesVar
	return usesVar
}

// insertCombinators places a phi for v at every block in the iterated
// dominance frontier of v's assignments that can still observe v's value.
func insertCombinators(v *Var, nodes []*domNode) {
	for _, n := range nodes {
		n.usesVar = false
	}
	for _, b := range v.Func.Blocks {
		b.visited = false
	}
	for _, use := range v.Uses.Items() {
		nodes[use.Block().dfsIndex].usesVar = true
	}
	for _, e := range v.Assignments {
		idx := e.Block().dfsIndex
		nodes[idx].usesVar = true
		varUsageDfs(e.Block(), nodes)
	}

	for _, b := range v.Func.Blocks {
		b.visited = false
	}

	frontier := map[int]bool{}
	var queue []int
	for _, e := range v.Assignments {
		for idx := range nodes[e.Block().dfsIndex].frontier {
			if !frontier[idx] {
				frontier[idx] = true
				queue = append(queue, idx)
			}
		}
	}

	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		code := nodes[idx].code
		if code.visited || !nodes[idx].usesVar {
			continue
		}
		code.visited = true
		createCombinator(code, v)
		for next := range nodes[idx].frontier {
			if !frontier[next] {
				frontier[next] = true
				queue = append(queue, next)
			}
		}
	}
}

func setExprDest(e Expr, dest *Var) {
	switch v := e.(type) {
	case *Combinator:
		v.dest = dest
	case *Unary:
		v.dest = dest
	case *Binary:
		v.dest = dest
	case *Undefined:
		v.dest = dest
	}
}

// replaceInsnVar rewrites insn's operand positions from "from" to "to",
// except for phi operands: a combinator's incoming binds are rewired by
// replacePhiVars instead, once the predecessor that supplies them has
// settled on its own current value of "from".
func replaceInsnVar(insn Instruction, from, to *Var) {
	if to == nil {
		return
	}
	rename := func(op *Operand, owner Instruction) {
		if !op.IsConst && op.Var == from {
			unregisterUse(*op, owner)
			*op = VarOperand(to)
			registerUse(*op, owner)
		}
	}
	switch e := insn.(type) {
	case *Unary:
		rename(&e.Operand, e)
	case *Binary:
		rename(&e.Lhs, e)
		rename(&e.Rhs, e)
	case *Branch:
		rename(&e.Cond, e)
	case *Return:
		if e.HasValue {
			rename(&e.Value, e)
		}
	case *CallPtr:
		rename(&e.Addr, e)
		for i := range e.Args {
			rename(&e.Args[i], e)
		}
	case *CallDirect:
		for i := range e.Args {
			rename(&e.Args[i], e)
		}
	}
}

// replacePhiVars rewires the binds for pred in code's first instruction,
// setting them to to, if that instruction is a combinator whose destination
// is in phiFrom. Only the first instruction is examined: createCombinator
// prepends, so the phi placed for the variable currently being renamed is
// at the front of its block.
func replacePhiVars(pred, code *CodeBlock, phiFrom map[*Var]bool, to *Var) {
	for _, insn := range code.Instructions {
		comb, ok := insn.(*Combinator)
		if !ok {
			return
		}
		if !phiFrom[comb.dest] {
			return
		}
		for i := range comb.From {
			if comb.From[i].Pred == pred {
				unregisterUse(comb.From[i].Operand, comb)
				comb.From[i].Operand = VarOperand(to)
				registerUse(comb.From[i].Operand, comb)
			}
		}
		return
	}
}

// renameAssignments walks the control-flow graph depth-first from code along
// successor edges, visiting each block once, replacing every
// use of "from" reachable without crossing another definition with the
// current "to", and minting a fresh variable at each definition it finds.
// phiFrom accumulates the fresh variables minted for combinator
// definitions, so that a merge block further down the tree can tell which
// incoming value belongs to this same renaming chain.
func renameAssignments(f *Function, code *CodeBlock, from *Var, to *Var, phiFrom map[*Var]bool) {
	if code.visited {
		return
	}
	code.visited = true

	for _, insn := range code.Instructions {
		replaceInsnVar(insn, from, to)
		if e, ok := insn.(Expr); ok && e.Dest() == from {
			from.Assignments = removeExprFromSlice(from.Assignments, e)
			fresh := CreateVariable(f, from.Prim, "")
			setExprDest(e, fresh)
			fresh.Assignments = append(fresh.Assignments, e)
			if _, isComb := e.(*Combinator); isComb {
				phiFrom[fresh] = true
			}
			to = fresh
		}
	}

	if to != nil {
		for _, succ := range code.Successors.Items() {
			replacePhiVars(code, succ, phiFrom, to)
		}
	}
	for _, succ := range code.Successors.Items() {
		renameAssignments(f, succ, from, to, phiFrom)
	}
}

// ToSsa converts f from unrestricted assignment form to SSA in place: one
// dominance computation, then one phi-placement-and-rename pass per
// variable that existed when the conversion started. It is a no-op if f
// already enforces SSA.
func ToSsa(f *Function) {
	if f.EnforceSSA {
		return
	}

	nodes := computeDominance(f)

	vars := append([]*Var(nil), f.Vars...)
	for _, v := range vars {
		insertCombinators(v, nodes)

		for _, b := range f.Blocks {
			b.visited = false
		}
		phiFrom := map[*Var]bool{v: true}
		renameAssignments(f, f.Entry, v, nil, phiFrom)
	}

	f.EnforceSSA = true
}
