package ir

import (
	"fmt"
	"math"
	"strings"
)

// printer accumulates the textual serialization of a function in a
// strings.Builder, one line at a time.
type printer struct {
	output strings.Builder
}

func newPrinter() *printer { return &printer{} }

func (p *printer) writeLine(format string, args ...any) {
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

// Serialize renders f as stable text: a header naming the function and
// whether it enforces SSA, its variables and parameters, then each code
// block and its instructions in list order. This is the format golden
// tests compare against; nothing reads it back in.
func Serialize(f *Function) string {
	p := newPrinter()
	p.printFunction(f)
	return p.output.String()
}

func (p *printer) printFunction(f *Function) {
	prefix := ""
	if f.EnforceSSA {
		prefix = "ssa "
	}
	p.writeLine("%sfunction %%%s", prefix, f.Name)

	for _, v := range f.Vars {
		p.writeLine("    var %s %%%s", v.Prim.String(), v.name)
	}
	for _, param := range f.Params {
		p.writeLine("    arg %%%s", param.name)
	}

	for _, c := range f.Blocks {
		p.writeLine("code <%s>", c.name)
		for _, insn := range c.Instructions {
			p.writeLine("    %s", formatInstruction(insn))
		}
	}
}

func formatInstruction(i Instruction) string {
	switch v := i.(type) {
	case *Combinator:
		parts := make([]string, len(v.From))
		for idx, entry := range v.From {
			parts[idx] = fmt.Sprintf("<%s> %s", entry.Pred.name, entry.Operand.String())
		}
		return fmt.Sprintf("phi %%%s, %s", v.dest.name, strings.Join(parts, ", "))
	case *Unary:
		return fmt.Sprintf("%s %%%s, %s", v.Op.String(), v.dest.name, v.Operand.String())
	case *Binary:
		return fmt.Sprintf("%s %%%s, %s, %s", v.Op.String(), v.dest.name, v.Lhs.String(), v.Rhs.String())
	case *Undefined:
		return fmt.Sprintf("undef %%%s", v.dest.name)
	case *Jump:
		return fmt.Sprintf("jump <%s>", v.Target.name)
	case *Branch:
		return fmt.Sprintf("branch %s, <%s>, <%s>", v.Cond.String(), v.Target.name, v.FalseTarget.name)
	case *CallDirect:
		return fmt.Sprintf("call.direct <%s>%s", v.Label, formatArgs(v.Args))
	case *CallPtr:
		return fmt.Sprintf("call.ptr %s%s", v.Addr.String(), formatArgs(v.Args))
	case *Return:
		if v.HasValue {
			return fmt.Sprintf("return %s", v.Value.String())
		}
		return "return"
	}
	return "?"
}

func formatArgs(args []Operand) string {
	var b strings.Builder
	for _, a := range args {
		b.WriteString(", ")
		b.WriteString(a.String())
	}
	return b.String()
}

// formatConst renders a typed constant: true/false for bools, hex-padded
// to the primitive's width for integers, high64|low64 for the 128-bit types, and
// an IEEE-754 comment alongside the raw bits for floats.
func formatConst(c Const) string {
	if c.Prim == Bool {
		if c.IsTrue() {
			return "true"
		}
		return "false"
	}

	name := c.Prim.String()
	switch c.Prim {
	case S128, U128:
		return fmt.Sprintf("%s'0x%016x|%016x", name, c.Hi, c.Lo)
	case F32:
		f := math.Float32frombits(uint32(c.Lo))
		return fmt.Sprintf("%s'0x%08x /* %f */", name, uint32(c.Lo), f)
	case F64:
		f := math.Float64frombits(c.Lo)
		return fmt.Sprintf("%s'0x%016x /* %f */", name, c.Lo, f)
	default:
		digits := int(c.Prim.Size()) * 2
		mask := uint64(1)<<(uint(digits)*4) - 1
		if digits >= 16 {
			mask = ^uint64(0)
		}
		return fmt.Sprintf("%s'0x%0*x", name, digits, c.Lo&mask)
	}
}
