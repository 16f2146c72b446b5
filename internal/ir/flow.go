package ir

// RecalculateFlow clears every block's predecessor and successor sets,
// then rescans each block's terminator to rebuild them. Passes that mutate
// terminators without maintaining pred/succ symmetry incrementally call
// this afterward; it is idempotent.
func RecalculateFlow(f *Function) {
	for _, c := range f.Blocks {
		c.Predecessors.clear()
		c.Successors.clear()
	}
	for _, c := range f.Blocks {
		for _, insn := range c.Instructions {
			switch term := insn.(type) {
			case *Jump:
				c.Successors.add(term.Target)
				term.Target.Predecessors.add(c)
			case *Branch:
				c.Successors.add(term.Target)
				term.Target.Predecessors.add(c)
				c.Successors.add(term.FalseTarget)
				term.FalseTarget.Predecessors.add(c)
			}
		}
	}
}
