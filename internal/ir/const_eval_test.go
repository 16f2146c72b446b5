package ir

import (
	"math"
	"testing"
)

func TestCastTruncatesToNarrowerWidth(t *testing.T) {
	got := Cast(U8, IntConst(S32, 0x1ff))
	if got.Lo != 0xff {
		t.Fatalf("expected truncation to 0xff, got 0x%x", got.Lo)
	}
}

func TestCastSignExtendsNarrowerSigned(t *testing.T) {
	minusOne := int8(-1)
	got := Cast(S32, IntConst(S8, uint64(minusOne)))
	if int32(got.Lo) != -1 {
		t.Fatalf("expected sign-extended -1, got %d", int32(got.Lo))
	}
}

func TestCastZeroExtendsUnsigned(t *testing.T) {
	got := Cast(U32, IntConst(U8, 0xff))
	if got.Lo != 0xff {
		t.Fatalf("expected zero-extension to 0xff, got 0x%x", got.Lo)
	}
}

func TestCastWidensToS128SignExtendsHi(t *testing.T) {
	got := Cast(S128, IntConst(S32, ^uint64(0))) // -1 as s32 (low 32 bits all set)
	if got.Hi != ^uint64(0) {
		t.Fatalf("expected Hi sign-extended to all ones, got 0x%x", got.Hi)
	}
}

func TestEvalUnaryNeg(t *testing.T) {
	got := EvalUnary(Neg, IntConst(S32, 5))
	if int32(got.Lo) != -5 {
		t.Fatalf("expected -5, got %d", int32(got.Lo))
	}
}

func TestEvalUnarySeqzSnez(t *testing.T) {
	zero := IntConst(S32, 0)
	nonzero := IntConst(S32, 1)
	if !EvalUnary(Seqz, zero).IsTrue() {
		t.Fatal("expected seqz of zero to be true")
	}
	if EvalUnary(Seqz, nonzero).IsTrue() {
		t.Fatal("expected seqz of nonzero to be false")
	}
	if !EvalUnary(Snez, nonzero).IsTrue() {
		t.Fatal("expected snez of nonzero to be true")
	}
}

func TestEvalUnaryBitNot(t *testing.T) {
	got := EvalUnary(BitNot, IntConst(U8, 0x0f))
	if got.Lo != 0xf0 {
		t.Fatalf("expected 0xf0, got 0x%x", got.Lo)
	}
}

func TestEvalBinaryAddWrapsAtWidth(t *testing.T) {
	got := EvalBinary(Add, IntConst(U8, 0xff), IntConst(U8, 1))
	if got.Lo != 0 {
		t.Fatalf("expected wraparound to 0, got 0x%x", got.Lo)
	}
}

func TestEvalBinarySignedDivTruncates(t *testing.T) {
	minusSeven := int32(-7)
	got := EvalBinary(Div, IntConst(S32, uint64(minusSeven)), IntConst(S32, 2))
	if int32(got.Lo) != -3 {
		t.Fatalf("expected -3, got %d", int32(got.Lo))
	}
}

func TestEvalBinaryUnsignedShr(t *testing.T) {
	got := EvalBinary(Shr, IntConst(U32, 0x80000000), IntConst(U32, 4))
	if got.Lo != 0x08000000 {
		t.Fatalf("expected logical shift, got 0x%x", got.Lo)
	}
}

func TestEvalBinarySignedShrSignExtends(t *testing.T) {
	minusSixteen := int32(-16)
	got := EvalBinary(Shr, IntConst(S32, uint64(minusSixteen)), IntConst(S32, 2))
	if int32(got.Lo) != -4 {
		t.Fatalf("expected arithmetic shift to -4, got %d", int32(got.Lo))
	}
}

func TestEvalBinarySignedComparison(t *testing.T) {
	minusOne := int32(-1)
	neg := IntConst(S32, uint64(minusOne))
	pos := IntConst(S32, 1)
	if !EvalBinary(Slt, neg, pos).IsTrue() {
		t.Fatal("expected -1 < 1 under signed comparison")
	}
	if EvalBinary(Slt, neg, pos).Prim != Bool {
		t.Fatal("expected a comparison to produce a Bool result")
	}
}

func TestEvalBinaryUnsignedComparisonTreatsHighBitAsLarge(t *testing.T) {
	big := IntConst(U32, 0x80000000)
	small := IntConst(U32, 1)
	if !EvalBinary(Sgt, big, small).IsTrue() {
		t.Fatal("expected the high-bit-set value to compare greater under unsigned comparison")
	}
}

func TestEvalBinaryLogical(t *testing.T) {
	if !EvalBinary(LAnd, BoolConst(true), BoolConst(true)).IsTrue() {
		t.Fatal("expected true && true")
	}
	if EvalBinary(LAnd, BoolConst(true), BoolConst(false)).IsTrue() {
		t.Fatal("expected true && false to be false")
	}
	if !EvalBinary(LOr, BoolConst(false), BoolConst(true)).IsTrue() {
		t.Fatal("expected false || true")
	}
}

func TestEvalBinaryFloat32Arithmetic(t *testing.T) {
	a := Const{Prim: F32, Lo: uint64(math.Float32bits(1.5))}
	b := Const{Prim: F32, Lo: uint64(math.Float32bits(2.5))}
	got := EvalBinary(Add, a, b)
	if math.Float32frombits(uint32(got.Lo)) != 4 {
		t.Fatalf("expected 4.0, got %v", math.Float32frombits(uint32(got.Lo)))
	}
}

func TestEvalBinaryFloat64Comparison(t *testing.T) {
	a := Const{Prim: F64, Lo: math.Float64bits(1.0)}
	b := Const{Prim: F64, Lo: math.Float64bits(2.0)}
	if !EvalBinary(Slt, a, b).IsTrue() {
		t.Fatal("expected 1.0 < 2.0")
	}
}
