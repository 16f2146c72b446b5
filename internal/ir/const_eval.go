package ir

import "math"

// This file holds the pure, typed constant arithmetic used by ConstProp:
// Cast reinterprets a constant under Mov, EvalUnary and EvalBinary fold
// the remaining unary and binary operators. All three are width-aware
// two's-complement / IEEE-754 semantics with no side effects and no
// access to any Function.

// signExtend sign-extends the low bits of x as an n-bit signed value into
// a full 64-bit two's-complement representation.
func signExtend(x uint64, bits uint) uint64 {
	if bits >= 64 {
		return x
	}
	shift := 64 - bits
	return uint64(int64(x<<shift) >> shift)
}

func maskTo(x uint64, bits uint) uint64 {
	if bits >= 64 {
		return x
	}
	return x & (uint64(1)<<bits - 1)
}

func bitsOf(p Prim) uint {
	switch p {
	case S8, U8:
		return 8
	case S16, U16:
		return 16
	case S32, U32, F32:
		return 32
	case S64, U64, F64:
		return 64
	case S128, U128:
		return 128
	case Bool:
		return 8
	}
	return 64
}

func isSigned(p Prim) bool {
	switch p {
	case S8, S16, S32, S64, S128:
		return true
	default:
		return false
	}
}

// Cast reinterprets k under the target primitive type, matching IR_OP1_MOV
// in the source: truncate/extend/widen between integer widths, and
// bit-reinterpret between the F32/F64 float encodings and integers is not
// defined (floats only cast to/from themselves in this IR's lowering).
func Cast(target Prim, k Const) Const {
	if target == k.Prim {
		return k
	}
	bits := bitsOf(target)
	if bits > 64 {
		lo := k.Lo
		if isSigned(k.Prim) && k.Hi == 0 && int64(k.Lo) < 0 {
			return Const{Prim: target, Lo: lo, Hi: ^uint64(0)}
		}
		return Const{Prim: target, Lo: lo, Hi: k.Hi}
	}
	lo := k.Lo
	if isSigned(target) {
		lo = signExtend(maskTo(lo, bits), bits)
	} else {
		lo = maskTo(lo, bits)
	}
	return Const{Prim: target, Lo: lo}
}

// EvalUnary folds a unary operator over a constant operand.
func EvalUnary(op UnaryOp, k Const) Const {
	switch op {
	case Mov:
		return k
	case Seqz:
		return BoolConst(!isNonzero(k))
	case Snez:
		return BoolConst(isNonzero(k))
	case Neg:
		return arithResult(k.Prim, negValue(k))
	case BitNot:
		return arithResult(k.Prim, ^k.Lo)
	case LogicalNot:
		return BoolConst(!k.IsTrue())
	}
	return k
}

func isNonzero(k Const) bool {
	if k.Prim == F32 {
		return math.Float32frombits(uint32(k.Lo)) != 0
	}
	if k.Prim == F64 {
		return math.Float64frombits(k.Lo) != 0
	}
	return k.Lo != 0 || k.Hi != 0
}

func negValue(k Const) uint64 {
	if k.Prim == F32 {
		return uint64(math.Float32bits(-math.Float32frombits(uint32(k.Lo))))
	}
	if k.Prim == F64 {
		return math.Float64bits(-math.Float64frombits(k.Lo))
	}
	return -k.Lo
}

func arithResult(p Prim, lo uint64) Const {
	bits := bitsOf(p)
	if isSigned(p) {
		return Const{Prim: p, Lo: signExtend(maskTo(lo, bits), bits)}
	}
	return Const{Prim: p, Lo: maskTo(lo, bits)}
}

// EvalBinary folds a binary operator over two constant operands of the
// same type, as enforced by invariant 4 at build time.
func EvalBinary(op BinaryOp, a, b Const) Const {
	if a.Prim == F32 || a.Prim == F64 {
		return evalBinaryFloat(op, a, b)
	}

	switch op {
	case Add:
		return arithResult(a.Prim, a.Lo+b.Lo)
	case Sub:
		return arithResult(a.Prim, a.Lo-b.Lo)
	case Mul:
		return arithResult(a.Prim, a.Lo*b.Lo)
	case Div:
		if isSigned(a.Prim) {
			return arithResult(a.Prim, uint64(int64(a.Lo)/int64(b.Lo)))
		}
		return arithResult(a.Prim, a.Lo/b.Lo)
	case Mod:
		if isSigned(a.Prim) {
			return arithResult(a.Prim, uint64(int64(a.Lo)%int64(b.Lo)))
		}
		return arithResult(a.Prim, a.Lo%b.Lo)
	case Shl:
		return arithResult(a.Prim, a.Lo<<uint(b.Lo))
	case Shr:
		if isSigned(a.Prim) {
			return arithResult(a.Prim, uint64(int64(a.Lo)>>uint(b.Lo)))
		}
		return arithResult(a.Prim, a.Lo>>uint(b.Lo))
	case BAnd:
		return arithResult(a.Prim, a.Lo&b.Lo)
	case BOr:
		return arithResult(a.Prim, a.Lo|b.Lo)
	case BXor:
		return arithResult(a.Prim, a.Lo^b.Lo)
	case LAnd:
		return BoolConst(a.IsTrue() && b.IsTrue())
	case LOr:
		return BoolConst(a.IsTrue() || b.IsTrue())
	case Sgt, Sle, Slt, Sge, Seq, Sne, Scs, Scc:
		return evalCompare(op, a, b)
	}
	return a
}

func evalCompare(op BinaryOp, a, b Const) Const {
	if isSigned(a.Prim) {
		x, y := int64(a.Lo), int64(b.Lo)
		switch op {
		case Sgt:
			return BoolConst(x > y)
		case Sle:
			return BoolConst(x <= y)
		case Slt:
			return BoolConst(x < y)
		case Sge:
			return BoolConst(x >= y)
		case Seq:
			return BoolConst(x == y)
		case Sne:
			return BoolConst(x != y)
		}
	}
	x, y := a.Lo, b.Lo
	switch op {
	case Sgt:
		return BoolConst(x > y)
	case Sle:
		return BoolConst(x <= y)
	case Slt:
		return BoolConst(x < y)
	case Sge:
		return BoolConst(x >= y)
	case Seq:
		return BoolConst(x == y)
	case Sne:
		return BoolConst(x != y)
	case Scs:
		return BoolConst(x+y < x)
	case Scc:
		return BoolConst(x+y >= x)
	}
	return BoolConst(false)
}

func evalBinaryFloat(op BinaryOp, a, b Const) Const {
	if a.Prim == F32 {
		x := math.Float32frombits(uint32(a.Lo))
		y := math.Float32frombits(uint32(b.Lo))
		switch op {
		case Add:
			return Const{Prim: F32, Lo: uint64(math.Float32bits(x + y))}
		case Sub:
			return Const{Prim: F32, Lo: uint64(math.Float32bits(x - y))}
		case Mul:
			return Const{Prim: F32, Lo: uint64(math.Float32bits(x * y))}
		case Div:
			return Const{Prim: F32, Lo: uint64(math.Float32bits(x / y))}
		case Sgt:
			return BoolConst(x > y)
		case Sle:
			return BoolConst(x <= y)
		case Slt:
			return BoolConst(x < y)
		case Sge:
			return BoolConst(x >= y)
		case Seq:
			return BoolConst(x == y)
		case Sne:
			return BoolConst(x != y)
		}
		return a
	}

	x := math.Float64frombits(a.Lo)
	y := math.Float64frombits(b.Lo)
	switch op {
	case Add:
		return Const{Prim: F64, Lo: math.Float64bits(x + y)}
	case Sub:
		return Const{Prim: F64, Lo: math.Float64bits(x - y)}
	case Mul:
		return Const{Prim: F64, Lo: math.Float64bits(x * y)}
	case Div:
		return Const{Prim: F64, Lo: math.Float64bits(x / y)}
	case Sgt:
		return BoolConst(x > y)
	case Sle:
		return BoolConst(x <= y)
	case Slt:
		return BoolConst(x < y)
	case Sge:
		return BoolConst(x >= y)
	case Seq:
		return BoolConst(x == y)
	case Sne:
		return BoolConst(x != y)
	}
	return a
}
