// Command ir-compile parses a tiny function-definition source file through
// the frontend package, lowers it to the ir package's unrestricted
// assignment form, converts it to SSA and optimizes it, printing the result
// of each stage.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"

	"cir/internal/frontend"
	"cir/internal/ir"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Println("Usage: ir-compile <source-file>")
		os.Exit(1)
	}

	src, err := os.ReadFile(os.Args[1])
	if err != nil {
		color.Red("reading %s: %v", os.Args[1], err)
		os.Exit(1)
	}

	prog, err := frontend.Parse(string(src))
	if err != nil {
		color.Red("parse error: %v", err)
		os.Exit(1)
	}

	funcs, err := frontend.Lower(prog)
	if err != nil {
		color.Red("lowering error: %v", err)
		os.Exit(1)
	}

	names := make([]string, 0, len(funcs))
	for name := range funcs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f := funcs[name]
		color.Cyan("== %s (before) ==", name)
		fmt.Println(ir.Serialize(f))

		ir.ToSsa(f)
		color.Cyan("== %s (ssa) ==", name)
		fmt.Println(ir.Serialize(f))

		ir.Optimize(f)
		color.Cyan("== %s (optimized) ==", name)
		fmt.Println(ir.Serialize(f))
	}

	color.Green("done")
}
