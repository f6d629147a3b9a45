/*
Copyright (C) 2025  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package scm

import (
	"math"
	"testing"
)

func TestArithmeticBasics(t *testing.T) {
	en := testEnv()
	wantInt(t, evalStr(t, en, "(+ 1 2 3)"), 6)
	wantInt(t, evalStr(t, en, "(+)"), 0)
	wantInt(t, evalStr(t, en, "(*)"), 1)
	wantInt(t, evalStr(t, en, "(- 10 3 2)"), 5)
	wantInt(t, evalStr(t, en, "(- 4)"), -4)
	wantFloat(t, evalStr(t, en, "(+ 1 0.5)"), 1.5)
}

func TestIntOverflowPromotes(t *testing.T) {
	en := testEnv()
	v := evalStr(t, en, "(+ 9223372036854775807 1)")
	if v.GetTag() != tagBigInt {
		t.Fatalf("got %s (%s), want a bigint", Repr(v), typeName(v))
	}
	wantRepr(t, v, "9223372036854775808")
	v = evalStr(t, en, "(* 4294967296 4294967296)")
	if v.GetTag() != tagBigInt {
		t.Fatalf("got %s (%s), want a bigint", Repr(v), typeName(v))
	}
	// subtracting back lands in the fixnum lane again
	wantInt(t, evalStr(t, en, "(- (+ 9223372036854775807 1) 1)"), 9223372036854775807)
}

func TestExactDivision(t *testing.T) {
	en := testEnv()
	wantRepr(t, evalStr(t, en, "(/ 1 3)"), "1/3")
	wantInt(t, evalStr(t, en, "(/ 6 3)"), 2)
	wantInt(t, evalStr(t, en, "(+ 1/3 2/3)"), 1)
	wantRepr(t, evalStr(t, en, "(/ 1 2 2)"), "1/4")
	wantFloat(t, evalStr(t, en, "(/ 1.0 4)"), 0.25)
	wantRepr(t, evalStr(t, en, "(/ 4)"), "1/4")

	cause := evalPanic(t, en, "(/ 1 0)")
	ue, ok := cause.(*UserError)
	if !ok || String(ue.Payload) != "division by zero" {
		t.Fatalf("got %T (%v)", cause, cause)
	}
}

func TestExactInexactConversion(t *testing.T) {
	en := testEnv()
	wantFloat(t, evalStr(t, en, "(exact->inexact 1/2)"), 0.5)
	wantRepr(t, evalStr(t, en, "(inexact->exact 0.5)"), "1/2")
	wantBool(t, evalStr(t, en, "(exact? 1/2)"), true)
	wantBool(t, evalStr(t, en, "(exact? 0.5)"), false)
	wantBool(t, evalStr(t, en, "(inexact? 0.5)"), true)
	wantFloat(t, evalStr(t, en, "(inexact 3)"), 3)
}

func TestNumericEqualityAcrossTower(t *testing.T) {
	en := testEnv()
	wantBool(t, evalStr(t, en, "(= 2 2.0)"), true)
	wantBool(t, evalStr(t, en, "(= 1/2 0.5)"), true)
	wantBool(t, evalStr(t, en, "(= 1 2)"), false)
	wantBool(t, evalStr(t, en, "(= +nan.0 +nan.0)"), false)
	wantBool(t, evalStr(t, en, "(< 1 2 3)"), true)
	wantBool(t, evalStr(t, en, "(< 1 3 2)"), false)
	wantBool(t, evalStr(t, en, "(<= 1 1 2)"), true)
	wantBool(t, evalStr(t, en, "(> 3 2 1)"), true)
	wantBool(t, evalStr(t, en, "(>= 2 2 1)"), true)
}

func TestIntegerDivisionOps(t *testing.T) {
	en := testEnv()
	wantInt(t, evalStr(t, en, "(quotient 7 2)"), 3)
	wantInt(t, evalStr(t, en, "(quotient 7 -2)"), -3)
	wantInt(t, evalStr(t, en, "(remainder 7 -2)"), 1)
	wantInt(t, evalStr(t, en, "(remainder -7 2)"), -1)
	wantInt(t, evalStr(t, en, "(modulo 7 -2)"), -1)
	wantInt(t, evalStr(t, en, "(modulo -7 2)"), 1)
	wantInt(t, evalStr(t, en, "(% 7 3)"), 1)
	wantInt(t, evalStr(t, en, "(gcd 12 18)"), 6)
	wantInt(t, evalStr(t, en, "(lcm 4 6)"), 12)
	wantInt(t, evalStr(t, en, "(gcd)"), 0)
	wantInt(t, evalStr(t, en, "(lcm)"), 1)
}

func TestRounding(t *testing.T) {
	en := testEnv()
	wantFloat(t, evalStr(t, en, "(floor 1.7)"), 1)
	wantFloat(t, evalStr(t, en, "(floor -1.5)"), -2)
	wantFloat(t, evalStr(t, en, "(ceiling 1.2)"), 2)
	wantFloat(t, evalStr(t, en, "(truncate -1.9)"), -1)
	// ties round to even
	wantFloat(t, evalStr(t, en, "(round 2.5)"), 2)
	wantFloat(t, evalStr(t, en, "(round 3.5)"), 4)
	wantInt(t, evalStr(t, en, "(floor 4)"), 4)
	wantInt(t, evalStr(t, en, "(floor 7/2)"), 3)
	wantInt(t, evalStr(t, en, "(ceiling 7/2)"), 4)
}

func TestSqrtExactness(t *testing.T) {
	en := testEnv()
	wantInt(t, evalStr(t, en, "(sqrt 16)"), 4)
	v := evalStr(t, en, "(sqrt 2)")
	if v.GetTag() != tagFloat {
		t.Fatalf("got %s, want a float", Repr(v))
	}
	wantRepr(t, evalStr(t, en, "(sqrt -4)"), "+2i")
	wantRepr(t, evalStr(t, en, "(sqrt 4/9)"), "2/3")
}

func TestExptExactness(t *testing.T) {
	en := testEnv()
	wantInt(t, evalStr(t, en, "(expt 2 10)"), 1024)
	wantRepr(t, evalStr(t, en, "(expt 2 -2)"), "1/4")
	wantFloat(t, evalStr(t, en, "(expt 2.0 2)"), 4)
	wantRepr(t, evalStr(t, en, "(expt 1/2 2)"), "1/4")
	big := evalStr(t, en, "(expt 2 100)")
	if big.GetTag() != tagBigInt {
		t.Fatalf("got %s, want a bigint", Repr(big))
	}
	wantRepr(t, big, "1267650600228229401496703205376")
}

func TestComplexArithmetic(t *testing.T) {
	en := testEnv()
	wantRepr(t, evalStr(t, en, "(* 1+2i 3+4i)"), "-5+10i")
	wantInt(t, evalStr(t, en, "(real-part 3+4i)"), 3)
	wantInt(t, evalStr(t, en, "(imag-part 3+4i)"), 4)
	wantFloat(t, evalStr(t, en, "(magnitude 3+4i)"), 5)
	wantRepr(t, evalStr(t, en, "(make-rectangular 1 2)"), "1+2i")
	// adding the conjugate drops back to the real lane
	wantInt(t, evalStr(t, en, "(+ 1+2i 1-2i)"), 2)
	wantBool(t, evalStr(t, en, "(complex? 5)"), true)
}

func TestMinMaxContagion(t *testing.T) {
	en := testEnv()
	wantInt(t, evalStr(t, en, "(min 3 1 2)"), 1)
	wantInt(t, evalStr(t, en, "(max 3 1 2)"), 3)
	wantFloat(t, evalStr(t, en, "(min 1 2.0)"), 1)
	wantFloat(t, evalStr(t, en, "(max 1.0 3)"), 3)
}

func TestPredicates(t *testing.T) {
	en := testEnv()
	wantBool(t, evalStr(t, en, "(number? 1/2)"), true)
	wantBool(t, evalStr(t, en, `(number? "x")`), false)
	wantBool(t, evalStr(t, en, "(integer? 4)"), true)
	wantBool(t, evalStr(t, en, "(integer? 4.0)"), true)
	wantBool(t, evalStr(t, en, "(integer? 4.5)"), false)
	wantBool(t, evalStr(t, en, "(int? 4.0)"), false)
	wantBool(t, evalStr(t, en, "(rational? 0.5)"), true)
	wantBool(t, evalStr(t, en, "(real? 1+2i)"), false)
	wantBool(t, evalStr(t, en, "(zero? 0)"), true)
	wantBool(t, evalStr(t, en, "(positive? -1)"), false)
	wantBool(t, evalStr(t, en, "(negative? -1)"), true)
	wantBool(t, evalStr(t, en, "(odd? 3)"), true)
	wantBool(t, evalStr(t, en, "(even? 9223372036854775808)"), true)
	wantBool(t, evalStr(t, en, "(nan? +nan.0)"), true)
	wantBool(t, evalStr(t, en, "(infinite? +inf.0)"), true)
	wantBool(t, evalStr(t, en, "(finite? 1.5)"), true)
	wantBool(t, evalStr(t, en, "(finite? -inf.0)"), false)
}

func TestNumberStringConversion(t *testing.T) {
	en := testEnv()
	wantString(t, evalStr(t, en, "(number->string 255 16)"), "ff")
	wantString(t, evalStr(t, en, "(number->string 42)"), "42")
	wantString(t, evalStr(t, en, "(number->string 1/2)"), "1/2")
	wantString(t, evalStr(t, en, "(number->string 1.5)"), "1.5")
	wantString(t, evalStr(t, en, "(number->string +inf.0)"), "+inf.0")
	wantInt(t, evalStr(t, en, `(string->number "ff" 16)`), 255)
	wantInt(t, evalStr(t, en, `(string->number "42")`), 42)
	wantRepr(t, evalStr(t, en, `(string->number "1/2")`), "1/2")
	wantBool(t, evalStr(t, en, `(string->number "bogus")`), false)
}

func TestNumeratorDenominator(t *testing.T) {
	en := testEnv()
	wantInt(t, evalStr(t, en, "(numerator 3/4)"), 3)
	wantInt(t, evalStr(t, en, "(denominator 3/4)"), 4)
	wantInt(t, evalStr(t, en, "(numerator 5)"), 5)
	wantInt(t, evalStr(t, en, "(denominator 5)"), 1)
}

func TestTranscendental(t *testing.T) {
	en := testEnv()
	wantFloat(t, evalStr(t, en, "(exp 0)"), 1)
	wantFloat(t, evalStr(t, en, "(log 1)"), 0)
	if v := evalStr(t, en, "(log 8 2)"); math.Abs(v.Float()-3) > 1e-12 {
		t.Fatalf("(log 8 2) = %v", v.Float())
	}
	wantFloat(t, evalStr(t, en, "(sin 0)"), 0)
	wantFloat(t, evalStr(t, en, "(cos 0)"), 1)
	if v := evalStr(t, en, "(atan 1 1)"); math.Abs(v.Float()-math.Pi/4) > 1e-12 {
		t.Fatalf("(atan 1 1) = %v", v.Float())
	}
	wantInt(t, evalStr(t, en, "(square 12)"), 144)
	wantInt(t, evalStr(t, en, "(abs -5)"), 5)
	wantRepr(t, evalStr(t, en, "(abs -1/2)"), "1/2")
}

func TestArithmeticTypeError(t *testing.T) {
	en := testEnv()
	cause := evalPanic(t, en, `(+ 1 "two")`)
	if _, ok := cause.(*TypeError); !ok {
		t.Fatalf("got %T (%v), want *TypeError", cause, cause)
	}
}
