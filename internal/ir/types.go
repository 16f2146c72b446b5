// Package ir is the intermediate representation core: functions, basic
// blocks, variables and instructions in an unrestricted assignment form,
// a Lengauer-Tarjan dominance pass that lowers a function into SSA, and a
// fixed-point optimizer over the result.
//
// The package is the hard part of the compiler. Everything upstream (the
// tokenizer, parser, and semantic analysis) is a client that builds IR
// through the operations in builder.go; everything downstream (register
// allocation, instruction selection, code emission) is a consumer that
// reads the IR after Optimize reaches a fixed point. Neither lives here.
package ir

import "fmt"

// Prim is an IR primitive type.
type Prim uint8

const (
	S8 Prim = iota
	U8
	S16
	U16
	S32
	U32
	S64
	U64
	S128
	U128
	Bool
	F32
	F64
)

var primSizes = [...]uint8{1, 1, 2, 2, 4, 4, 8, 8, 16, 16, 1, 4, 8}

var primNames = [...]string{
	"s8", "u8", "s16", "u16", "s32", "u32", "s64", "u64", "s128", "u128", "bool", "f32", "f64",
}

// Size returns the primitive's fixed byte width.
func (p Prim) Size() uint8 { return primSizes[p] }

// String returns the canonical serialized name of the primitive.
func (p Prim) String() string { return primNames[p] }

// Const is a typed 128-bit constant value. For widths of 64 bits or less
// only Lo is significant. F32 and F64 reinterpret the low bits of Lo as
// IEEE-754 bit patterns.
type Const struct {
	Prim Prim
	Lo   uint64
	Hi   uint64
}

// IntConst builds an integer or boolean constant from its low 64 bits.
func IntConst(p Prim, lo uint64) Const { return Const{Prim: p, Lo: lo} }

// WideConst builds a 128-bit constant from explicit low/high halves.
func WideConst(p Prim, lo, hi uint64) Const { return Const{Prim: p, Lo: lo, Hi: hi} }

// BoolConst builds a boolean constant.
func BoolConst(v bool) Const {
	if v {
		return Const{Prim: Bool, Lo: 1}
	}
	return Const{Prim: Bool, Lo: 0}
}

// IsTrue reports whether a Bool constant's bit 0 is set, matching the
// source's definition of a "true" branch condition.
func (c Const) IsTrue() bool { return c.Lo&1 != 0 }

// Operand is either a constant or a non-owning reference to a Variable.
// Every Operand naming a Variable must be mirrored in that variable's
// use-set; see Var.Uses.
type Operand struct {
	IsConst bool
	Const   Const
	Var     *Var
}

// ConstOperand wraps a constant as an operand.
func ConstOperand(c Const) Operand { return Operand{IsConst: true, Const: c} }

// VarOperand wraps a variable reference as an operand.
func VarOperand(v *Var) Operand { return Operand{Var: v} }

// Prim returns the operand's type.
func (o Operand) Prim() Prim {
	if o.IsConst {
		return o.Const.Prim
	}
	return o.Var.Prim
}

func (o Operand) String() string {
	if !o.IsConst {
		return "%" + o.Var.name
	}
	return formatConst(o.Const)
}

// Var is a function-local variable: a typed, named, non-owning handle.
// Func transitively owns it; every other reference to it (an Operand, a
// use-set entry) is a lookup, never an ownership edge.
type Var struct {
	id   uint64
	name string
	Prim Prim
	Func *Function

	// Assignments is the ordered list of expressions whose destination is
	// this variable. Length 0 for parameters or never-assigned variables;
	// length at most 1 once the owning function enforces SSA.
	Assignments []Expr

	// Uses is the set of instructions that reference this variable in any
	// operand position, including combinator inputs and call arguments.
	Uses *instrSet
}

// Name returns the variable's unique-per-function name.
func (v *Var) Name() string { return v.name }

func (v *Var) String() string { return "%" + v.name }

// CombinatorEntry binds a predecessor block to the operand selected when
// control enters from that block.
type CombinatorEntry struct {
	Pred    *CodeBlock
	Operand Operand
}

// Instruction is the common base of every IR instruction: a non-owning
// reference to its parent block, plus a discriminator between expressions
// (which produce a value) and flows (which transfer control).
type Instruction interface {
	// ID is a monotonic allocation id, used only to give sets a stable,
	// deterministic iteration order (see Function.alloc).
	ID() uint64
	Block() *CodeBlock
	IsExpr() bool
}

// Expr is an instruction that produces a value into a destination
// variable. Concrete variants: *Combinator, *Unary, *Binary, *Undefined.
type Expr interface {
	Instruction
	Dest() *Var
	exprNode()
}

// Flow is a control-transfer instruction. Concrete variants: *Jump,
// *Branch, *CallDirect, *CallPtr, *Return.
type Flow interface {
	Instruction
	flowNode()
}

// UnaryOp is a one-operand expression operator.
type UnaryOp uint8

const (
	Mov UnaryOp = iota
	Seqz
	Snez
	Neg
	BitNot
	LogicalNot
)

var unaryOpNames = [...]string{"mov", "seqz", "snez", "neg", "bnot", "lnot"}

func (op UnaryOp) String() string { return unaryOpNames[op] }

// BinaryOp is a two-operand expression operator.
type BinaryOp uint8

const (
	Sgt BinaryOp = iota
	Sle
	Slt
	Sge
	Seq
	Sne
	Scs
	Scc
	Add
	Sub
	Mul
	Div
	Mod
	Shl
	Shr
	BAnd
	BOr
	BXor
	LAnd
	LOr
)

var binaryOpNames = [...]string{
	"sgt", "sle", "slt", "sge", "seq", "sne", "scs", "scc",
	"add", "sub", "mul", "div", "mod",
	"shl", "shr", "band", "bor", "bxor", "land", "lor",
}

func (op BinaryOp) String() string { return binaryOpNames[op] }

// isComparison reports whether op produces a Bool result regardless of its
// operand type (used by the type-agreement check in Invariant 4, which
// only constrains same-type operands, not the result).
func (op BinaryOp) isComparison() bool {
	switch op {
	case Sgt, Sle, Slt, Sge, Seq, Sne, Scs, Scc, LAnd, LOr:
		return true
	default:
		return false
	}
}

// Combinator is a phi expression: a destination plus one operand per
// predecessor of the parent block.
type Combinator struct {
	id    uint64
	block *CodeBlock
	dest  *Var
	From  []CombinatorEntry
}

func (c *Combinator) ID() uint64        { return c.id }
func (c *Combinator) Block() *CodeBlock { return c.block }
func (c *Combinator) IsExpr() bool      { return true }
func (c *Combinator) Dest() *Var        { return c.dest }
func (c *Combinator) exprNode()         {}

// Unary is a one-operand expression.
type Unary struct {
	id      uint64
	block   *CodeBlock
	dest    *Var
	Op      UnaryOp
	Operand Operand
}

func (u *Unary) ID() uint64        { return u.id }
func (u *Unary) Block() *CodeBlock { return u.block }
func (u *Unary) IsExpr() bool      { return true }
func (u *Unary) Dest() *Var        { return u.dest }
func (u *Unary) exprNode()         {}

// Binary is a two-operand expression.
type Binary struct {
	id    uint64
	block *CodeBlock
	dest  *Var
	Op    BinaryOp
	Lhs   Operand
	Rhs   Operand
}

func (b *Binary) ID() uint64        { return b.id }
func (b *Binary) Block() *CodeBlock { return b.block }
func (b *Binary) IsExpr() bool      { return true }
func (b *Binary) Dest() *Var        { return b.dest }
func (b *Binary) exprNode()         {}

// Undefined denotes an unspecified initial value.
type Undefined struct {
	id    uint64
	block *CodeBlock
	dest  *Var
}

func (u *Undefined) ID() uint64        { return u.id }
func (u *Undefined) Block() *CodeBlock { return u.block }
func (u *Undefined) IsExpr() bool      { return true }
func (u *Undefined) Dest() *Var        { return u.dest }
func (u *Undefined) exprNode()         {}

// Jump is an unconditional transfer to another block in the same function.
type Jump struct {
	id     uint64
	block  *CodeBlock
	Target *CodeBlock
}

func (j *Jump) ID() uint64        { return j.id }
func (j *Jump) Block() *CodeBlock { return j.block }
func (j *Jump) IsExpr() bool      { return false }
func (j *Jump) flowNode()         {}

// Branch is a conditional transfer. Control goes to Target when Cond is
// true and to FalseTarget otherwise.
//
// Both edges are explicit fields; neither depends on block list order, so
// blocks can be reordered or merged without silently changing which edge
// a branch falls through to.
type Branch struct {
	id          uint64
	block       *CodeBlock
	Cond        Operand
	Target      *CodeBlock
	FalseTarget *CodeBlock
}

func (b *Branch) ID() uint64        { return b.id }
func (b *Branch) Block() *CodeBlock { return b.block }
func (b *Branch) IsExpr() bool      { return false }
func (b *Branch) flowNode()         {}

// CallDirect calls a statically-named label with an argument list.
type CallDirect struct {
	id    uint64
	block *CodeBlock
	Label string
	Args  []Operand
}

func (c *CallDirect) ID() uint64        { return c.id }
func (c *CallDirect) Block() *CodeBlock { return c.block }
func (c *CallDirect) IsExpr() bool      { return false }
func (c *CallDirect) flowNode()         {}

// CallPtr calls a function through a pointer-valued operand.
type CallPtr struct {
	id    uint64
	block *CodeBlock
	Addr  Operand
	Args  []Operand
}

func (c *CallPtr) ID() uint64        { return c.id }
func (c *CallPtr) Block() *CodeBlock { return c.block }
func (c *CallPtr) IsExpr() bool      { return false }
func (c *CallPtr) flowNode()         {}

// Return optionally carries a value back to the caller.
type Return struct {
	id       uint64
	block    *CodeBlock
	HasValue bool
	Value    Operand
}

func (r *Return) ID() uint64        { return r.id }
func (r *Return) Block() *CodeBlock { return r.block }
func (r *Return) IsExpr() bool      { return false }
func (r *Return) flowNode()         {}

// CodeBlock is a basic block: a name, an ordered owned instruction list,
// and the non-owning predecessor/successor sets maintained by the
// terminators that reference it.
type CodeBlock struct {
	id           uint64
	name         string
	Func         *Function
	Instructions []Instruction
	Predecessors *blockSet
	Successors   *blockSet

	// Scratch fields for the dominance pass. Pass-local: no analysis may
	// run concurrently with another on the same function.
	visited  bool
	dfsIndex int
}

// Name returns the block's unique-per-function name.
func (c *CodeBlock) Name() string { return c.name }

// Terminator returns the block's last instruction if it is a Flow, or nil
// if the block has no instructions yet or does not yet end in one.
func (c *CodeBlock) Terminator() Flow {
	if len(c.Instructions) == 0 {
		return nil
	}
	if f, ok := c.Instructions[len(c.Instructions)-1].(Flow); ok {
		return f
	}
	return nil
}

// Function owns every Var and CodeBlock reachable from it, and
// transitively every Instruction they hold.
type Function struct {
	Name       string
	Params     []*Var
	Entry      *CodeBlock
	Blocks     []*CodeBlock
	Vars       []*Var
	EnforceSSA bool

	nextID uint64
}

func (f *Function) alloc() uint64 {
	f.nextID++
	return f.nextID
}

func decimalName(count int) string {
	return fmt.Sprintf("%d", count)
}
