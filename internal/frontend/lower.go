package frontend

import (
	"fmt"

	"github.com/pkg/errors"

	"cir/internal/ir"
)

// Lower builds one ir.Function per declared function in prog, in unrestricted
// assignment form, ready for ir.ToSsa and ir.Optimize. Every named variable
// seen in a function body gets a single *ir.Var, reassigned in place by each
// subsequent "name = expr" statement, the way a straight-line C function body
// reassigns locals before SSA conversion ever runs.
func Lower(prog *Program) (map[string]*ir.Function, error) {
	out := make(map[string]*ir.Function, len(prog.Funcs))
	for _, decl := range prog.Funcs {
		if _, dup := out[decl.Name]; dup {
			return nil, errors.Errorf("function %q declared more than once", decl.Name)
		}
		f, err := lowerFunc(decl)
		if err != nil {
			return nil, errors.Wrapf(err, "function %q", decl.Name)
		}
		out[decl.Name] = f
	}
	return out, nil
}

func lowerFunc(decl *FuncDecl) (*ir.Function, error) {
	f := ir.CreateFunction(decl.Name, decl.Params)
	vars := make(map[string]*ir.Var, len(decl.Params))
	for i, name := range decl.Params {
		vars[name] = f.Params[i]
	}

	block := f.Entry
	for _, stmt := range decl.Stmts {
		switch {
		case stmt.Assign != nil:
			operand, err := lowerExpr(f, block, vars, stmt.Assign.Expr)
			if err != nil {
				return nil, err
			}
			dest, ok := vars[stmt.Assign.Name]
			if !ok {
				dest = ir.CreateVariable(f, ir.S32, stmt.Assign.Name)
				vars[stmt.Assign.Name] = dest
			}
			ir.AddUnary(block, dest, ir.Mov, operand)
		case stmt.Return != nil:
			operand, err := lowerExpr(f, block, vars, stmt.Return.Expr)
			if err != nil {
				return nil, err
			}
			ir.AddReturn1(block, operand)
		}
	}
	return f, nil
}

func lowerExpr(f *ir.Function, block *ir.CodeBlock, vars map[string]*ir.Var, e *Expr) (ir.Operand, error) {
	left, err := lowerTerm(vars, e.Left)
	if err != nil {
		return ir.Operand{}, err
	}
	if e.Op == "" {
		return left, nil
	}
	right, err := lowerTerm(vars, e.Right)
	if err != nil {
		return ir.Operand{}, err
	}
	op, err := binaryOp(e.Op)
	if err != nil {
		return ir.Operand{}, err
	}
	dest := ir.CreateVariable(f, ir.S32, "")
	ir.AddBinary(block, dest, op, left, right)
	return ir.VarOperand(dest), nil
}

func lowerTerm(vars map[string]*ir.Var, t *Term) (ir.Operand, error) {
	if t.Number != nil {
		return ir.ConstOperand(ir.IntConst(ir.S32, uint64(*t.Number))), nil
	}
	v, ok := vars[*t.Ident]
	if !ok {
		return ir.Operand{}, errors.Errorf("undeclared variable %q", *t.Ident)
	}
	return ir.VarOperand(v), nil
}

func binaryOp(op string) (ir.BinaryOp, error) {
	switch op {
	case "+":
		return ir.Add, nil
	case "-":
		return ir.Sub, nil
	case "*":
		return ir.Mul, nil
	case "/":
		return ir.Div, nil
	}
	return 0, fmt.Errorf("unsupported operator %q", op)
}
