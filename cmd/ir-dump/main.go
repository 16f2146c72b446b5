// Command ir-dump builds one of a handful of canned example functions
// directly through the ir package's builder API, prints its textual form,
// converts it to SSA and runs the optimizer, then prints the result again so
// the effect of each stage is visible side by side.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"cir/internal/ir"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: ir-dump <example>")
		fmt.Println("Examples:", exampleNames())
		os.Exit(1)
	}

	build, ok := examples[os.Args[1]]
	if !ok {
		color.Red("unknown example %q", os.Args[1])
		fmt.Println("Examples:", exampleNames())
		os.Exit(1)
	}

	f := build()
	color.Cyan("-- before --")
	fmt.Println(ir.Serialize(f))

	ir.ToSsa(f)
	color.Cyan("-- ssa --")
	fmt.Println(ir.Serialize(f))

	ir.Optimize(f)
	color.Cyan("-- optimized --")
	fmt.Println(ir.Serialize(f))

	color.Green("done")
}

func exampleNames() []string {
	names := make([]string, 0, len(examples))
	for name := range examples {
		names = append(names, name)
	}
	return names
}

var examples = map[string]func() *ir.Function{
	"fold": buildConstantFold,
	"loop": buildCountingLoop,
}

// buildConstantFold builds f(a: s32) { x = 2 + 3; return x }, which Optimize
// reduces to a single constant return.
func buildConstantFold() *ir.Function {
	f := ir.CreateFunction("fold", []string{"a"})
	x := ir.CreateVariable(f, ir.S32, "x")
	ir.AddBinary(f.Entry, x, ir.Add, ir.ConstOperand(ir.IntConst(ir.S32, 2)), ir.ConstOperand(ir.IntConst(ir.S32, 3)))
	ir.AddReturn1(f.Entry, ir.VarOperand(x))
	return f
}

// buildCountingLoop builds a function that counts a variable up to 10,
// requiring a phi at the loop header once converted to SSA.
func buildCountingLoop() *ir.Function {
	f := ir.CreateFunction("loop", nil)
	v := ir.CreateVariable(f, ir.S32, "v")
	cond := ir.CreateVariable(f, ir.Bool, "cond")
	header := ir.CreateCodeBlock(f, "header")
	exit := ir.CreateCodeBlock(f, "exit")

	ir.AddUnary(f.Entry, v, ir.Mov, ir.ConstOperand(ir.IntConst(ir.S32, 0)))
	ir.AddJump(f.Entry, header)

	ir.AddBinary(header, v, ir.Add, ir.VarOperand(v), ir.ConstOperand(ir.IntConst(ir.S32, 1)))
	ir.AddBinary(header, cond, ir.Slt, ir.VarOperand(v), ir.ConstOperand(ir.IntConst(ir.S32, 10)))
	ir.AddBranch(header, ir.VarOperand(cond), header, exit)

	ir.AddReturn1(exit, ir.VarOperand(v))
	return f
}
