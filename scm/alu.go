/*
Copyright (C) 2023-2025  Carl-Philip Hänsch
Copyright (C) 2013  Pieter Kelchtermans (originally licensed unter WTFPL 2.0)

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
	"math/big"
)

// foldNums left-folds a tower operation over the arguments with a per-arg
// number check, so error positions stay accurate.
func foldNums(op string, a []Scmer, f func(x, y Scmer) Scmer) Scmer {
	acc := numberOpArg(op, 1, a)
	for i := 2; i <= len(a); i++ {
		acc = f(acc, numberOpArg(op, i, a))
	}
	return acc
}

// orderedPair ranks two values the way the comparison builtins see them:
// numbers through the tower, everything else through the sort order.
func orderedPair(x, y Scmer) (int, bool) {
	if x.IsNumber() && y.IsNumber() {
		return numCompare(x, y)
	}
	if Less(x, y) {
		return -1, true
	}
	if Less(y, x) {
		return 1, true
	}
	return 0, true
}

func chainOrdered(a []Scmer, pass func(cmp int) bool) Scmer {
	for i := 0; i+1 < len(a); i++ {
		cmp, ok := orderedPair(a[i], a[i+1])
		if !ok || !pass(cmp) {
			return NewBool(false)
		}
	}
	return NewBool(true)
}

// exactIntArg accepts exact integers and integral floats; everything else
// is a type error.
func exactIntArg(op string, pos int, a []Scmer) Scmer {
	v := numberOpArg(op, pos, a)
	switch v.GetTag() {
	case tagInt, tagBigInt:
		return v
	case tagFloat:
		f := v.Float()
		if !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) {
			return toExact(v)
		}
	}
	panic(&TypeError{Op: op, ArgPos: pos, Expected: []string{"an integer"}, Got: String(v)})
}

// realArg rejects complex numbers, for the float-only transcendentals.
func realArg(op string, pos int, a []Scmer) float64 {
	v := numberOpArg(op, pos, a)
	if v.GetTag() == tagComplex {
		panic(&TypeError{Op: op, ArgPos: pos, Expected: []string{"a real number"}, Got: typeName(v)})
	}
	return v.Float()
}

//
// exact integer division lanes; sign conventions per the usual trio:
// quotient truncates, remainder follows the dividend, modulo the divisor
//

func intQuotient(a, b Scmer) Scmer {
	if a.GetTag() == tagInt && b.GetTag() == tagInt {
		y := b.Int()
		if y == 0 {
			panic("division by zero")
		}
		return NewInt(a.Int() / y)
	}
	x, y := a.BigInt(), b.BigInt()
	if y.Sign() == 0 {
		panic("division by zero")
	}
	return NewBigInt(new(big.Int).Quo(x, y))
}

func intRemainder(a, b Scmer) Scmer {
	if a.GetTag() == tagInt && b.GetTag() == tagInt {
		y := b.Int()
		if y == 0 {
			panic("division by zero")
		}
		return NewInt(a.Int() % y)
	}
	x, y := a.BigInt(), b.BigInt()
	if y.Sign() == 0 {
		panic("division by zero")
	}
	return NewBigInt(new(big.Int).Rem(x, y))
}

func intModulo(a, b Scmer) Scmer {
	if a.GetTag() == tagInt && b.GetTag() == tagInt {
		y := b.Int()
		if y == 0 {
			panic("division by zero")
		}
		m := a.Int() % y
		if m != 0 && (m < 0) != (y < 0) {
			m += y
		}
		return NewInt(m)
	}
	x, y := a.BigInt(), b.BigInt()
	if y.Sign() == 0 {
		panic("division by zero")
	}
	m := new(big.Int).Rem(x, y)
	if m.Sign() != 0 && m.Sign() != y.Sign() {
		m.Add(m, y)
	}
	return NewBigInt(m)
}

//
// rounding; rationals round in the exact lane, floats per math, and
// round itself ties to even
//

func ratFloor(r *big.Rat) Scmer {
	q := new(big.Int)
	m := new(big.Int)
	q.QuoRem(r.Num(), r.Denom(), m)
	if m.Sign() < 0 {
		q.Sub(q, big.NewInt(1))
	}
	return NewBigInt(q)
}

func ratCeil(r *big.Rat) Scmer {
	q := new(big.Int)
	m := new(big.Int)
	q.QuoRem(r.Num(), r.Denom(), m)
	if m.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return NewBigInt(q)
}

func ratTruncate(r *big.Rat) Scmer {
	return NewBigInt(new(big.Int).Quo(r.Num(), r.Denom()))
}

func ratRound(r *big.Rat) Scmer {
	q := new(big.Int)
	m := new(big.Int)
	q.QuoRem(r.Num(), r.Denom(), m)
	if m.Sign() == 0 {
		return NewBigInt(q)
	}
	// compare |2m| against the denominator to find the nearer integer
	twice := new(big.Int).Lsh(new(big.Int).Abs(m), 1)
	cmp := twice.Cmp(r.Denom())
	up := m.Sign() > 0
	switch {
	case cmp < 0:
		// nearer to q already
	case cmp > 0:
		if up {
			q.Add(q, big.NewInt(1))
		} else {
			q.Sub(q, big.NewInt(1))
		}
	default:
		// exactly halfway: tie to even
		if q.Bit(0) == 1 {
			if up {
				q.Add(q, big.NewInt(1))
			} else {
				q.Sub(q, big.NewInt(1))
			}
		}
	}
	return NewBigInt(q)
}

func roundTower(op string, v Scmer, ints func(*big.Rat) Scmer, floats func(float64) float64) Scmer {
	switch v.GetTag() {
	case tagInt, tagBigInt:
		return v
	case tagRational:
		return ints(v.Rat())
	case tagFloat:
		return NewFloat(floats(v.Float()))
	}
	panic(&TypeError{Op: op, ArgPos: 1, Expected: []string{"a real number"}, Got: typeName(v)})
}

func isIntegralNumber(v Scmer) bool {
	switch v.GetTag() {
	case tagInt, tagBigInt:
		return true
	case tagFloat:
		f := v.Float()
		return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f)
	}
	return false
}

func bigGCD(a, b *big.Int) *big.Int {
	return new(big.Int).GCD(nil, nil, new(big.Int).Abs(a), new(big.Int).Abs(b))
}

func init_alu() {
	DeclareTitle("Arithmetic / Logic")

	Declare(&Globalenv, &Declaration{
		"number?", "tells if the value is a number",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(a[0].IsNumber())
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"integer?", "tells if the value is an integer (exact or integral float)",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(isIntegralNumber(a[0]))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"int?", "tells if the value is an exact machine integer",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(a[0].GetTag() == tagInt)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"rational?", "tells if the value is a rational number (every finite real is)",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			switch a[0].GetTag() {
			case tagInt, tagBigInt, tagRational:
				return NewBool(true)
			case tagFloat:
				f := a[0].Float()
				return NewBool(!math.IsInf(f, 0) && !math.IsNaN(f))
			}
			return NewBool(false)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"real?", "tells if the value is a real number",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(a[0].IsNumber() && a[0].GetTag() != tagComplex)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"complex?", "tells if the value is a number; every number is complex",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(a[0].IsNumber())
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"exact?", "tells if the number is exact (integer, bigint or rational)",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(numberOpArg("exact?", 1, a).IsExact())
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"inexact?", "tells if the number is inexact (float or float-component complex)",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(!numberOpArg("inexact?", 1, a).IsExact())
		}, true,
	})
	exactFn := func(a ...Scmer) Scmer {
		return toExact(numberOpArg("exact", 1, a))
	}
	inexactFn := func(a ...Scmer) Scmer {
		return toInexact(numberOpArg("inexact", 1, a))
	}
	Declare(&Globalenv, &Declaration{
		"exact", "converts a number to its exact representation; floats become rationals",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number to convert"},
		}, "number",
		exactFn, true,
	})
	Declare(&Globalenv, &Declaration{
		"inexact", "converts a number to a float",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number to convert"},
		}, "number",
		inexactFn, true,
	})
	Declare(&Globalenv, &Declaration{
		"inexact->exact", "converts a number to its exact representation",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number to convert"},
		}, "number",
		exactFn, true,
	})
	Declare(&Globalenv, &Declaration{
		"exact->inexact", "converts a number to a float",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number to convert"},
		}, "number",
		inexactFn, true,
	})

	Declare(&Globalenv, &Declaration{
		"+", "adds zero or more numbers",
		0, 1000,
		[]DeclarationParameter{
			{"value...", "number", "values to add"},
		}, "number",
		func(a ...Scmer) Scmer {
			if len(a) == 0 {
				return NewInt(0)
			}
			return foldNums("+", a, numAdd)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"-", "subtracts the rest from the first number; negates a single argument",
		1, 1000,
		[]DeclarationParameter{
			{"value...", "number", "values"},
		}, "number",
		func(a ...Scmer) Scmer {
			if len(a) == 1 {
				return numNeg(numberOpArg("-", 1, a))
			}
			return foldNums("-", a, numSub)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"*", "multiplies zero or more numbers",
		0, 1000,
		[]DeclarationParameter{
			{"value...", "number", "values to multiply"},
		}, "number",
		func(a ...Scmer) Scmer {
			if len(a) == 0 {
				return NewInt(1)
			}
			return foldNums("*", a, numMul)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"/", "divides the first number by the rest; a single argument is inverted. Exact division yields rationals",
		1, 1000,
		[]DeclarationParameter{
			{"value...", "number", "values"},
		}, "number",
		func(a ...Scmer) Scmer {
			if len(a) == 1 {
				return numDiv(NewInt(1), numberOpArg("/", 1, a))
			}
			return foldNums("/", a, numDiv)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"quotient", "truncating integer division",
		2, 2,
		[]DeclarationParameter{
			{"n", "number", "dividend"},
			{"m", "number", "divisor"},
		}, "number",
		func(a ...Scmer) Scmer {
			return intQuotient(exactIntArg("quotient", 1, a), exactIntArg("quotient", 2, a))
		}, true,
	})
	remainderFn := func(a ...Scmer) Scmer {
		return intRemainder(exactIntArg("remainder", 1, a), exactIntArg("remainder", 2, a))
	}
	Declare(&Globalenv, &Declaration{
		"remainder", "integer division remainder, sign follows the dividend",
		2, 2,
		[]DeclarationParameter{
			{"n", "number", "dividend"},
			{"m", "number", "divisor"},
		}, "number",
		remainderFn, true,
	})
	Declare(&Globalenv, &Declaration{
		"%", "integer division remainder, sign follows the dividend",
		2, 2,
		[]DeclarationParameter{
			{"n", "number", "dividend"},
			{"m", "number", "divisor"},
		}, "number",
		remainderFn, true,
	})
	Declare(&Globalenv, &Declaration{
		"modulo", "integer modulus, sign follows the divisor",
		2, 2,
		[]DeclarationParameter{
			{"n", "number", "dividend"},
			{"m", "number", "divisor"},
		}, "number",
		func(a ...Scmer) Scmer {
			return intModulo(exactIntArg("modulo", 1, a), exactIntArg("modulo", 2, a))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"gcd", "greatest common divisor of zero or more integers",
		0, 1000,
		[]DeclarationParameter{
			{"value...", "number", "integers"},
		}, "number",
		func(a ...Scmer) Scmer {
			acc := big.NewInt(0)
			for i := range a {
				acc = bigGCD(acc, exactIntArg("gcd", i+1, a).BigInt())
			}
			return NewBigInt(acc)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"lcm", "least common multiple of zero or more integers",
		0, 1000,
		[]DeclarationParameter{
			{"value...", "number", "integers"},
		}, "number",
		func(a ...Scmer) Scmer {
			acc := big.NewInt(1)
			for i := range a {
				x := new(big.Int).Abs(exactIntArg("lcm", i+1, a).BigInt())
				if x.Sign() == 0 {
					return NewInt(0)
				}
				g := bigGCD(acc, x)
				acc.Div(acc.Mul(acc, x), g)
			}
			return NewBigInt(acc)
		}, true,
	})

	Declare(&Globalenv, &Declaration{
		"=", "numeric equality across the tower; exactness does not matter",
		2, 1000,
		[]DeclarationParameter{
			{"value...", "number", "numbers to compare"},
		}, "bool",
		func(a ...Scmer) Scmer {
			for i := 0; i+1 < len(a); i++ {
				if !numEqual(numberOpArg("=", i+1, a), numberOpArg("=", i+2, a)) {
					return NewBool(false)
				}
			}
			return NewBool(true)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"<", "compares numbers or strings, strictly increasing",
		2, 1000,
		[]DeclarationParameter{
			{"value...", "any", "values to compare"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return chainOrdered(a, func(cmp int) bool { return cmp < 0 })
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"<=", "compares numbers or strings, non-decreasing",
		2, 1000,
		[]DeclarationParameter{
			{"value...", "any", "values to compare"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return chainOrdered(a, func(cmp int) bool { return cmp <= 0 })
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		">", "compares numbers or strings, strictly decreasing",
		2, 1000,
		[]DeclarationParameter{
			{"value...", "any", "values to compare"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return chainOrdered(a, func(cmp int) bool { return cmp > 0 })
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		">=", "compares numbers or strings, non-increasing",
		2, 1000,
		[]DeclarationParameter{
			{"value...", "any", "values to compare"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return chainOrdered(a, func(cmp int) bool { return cmp >= 0 })
		}, true,
	})

	Declare(&Globalenv, &Declaration{
		"zero?", "tells if the number equals zero",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(numEqual(numberOpArg("zero?", 1, a), NewInt(0)))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"positive?", "tells if the number is greater than zero",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			cmp, ok := numCompare(numberOpArg("positive?", 1, a), NewInt(0))
			return NewBool(ok && cmp > 0)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"negative?", "tells if the number is less than zero",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			cmp, ok := numCompare(numberOpArg("negative?", 1, a), NewInt(0))
			return NewBool(ok && cmp < 0)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"odd?", "tells if the integer is odd",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "integer to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			v := exactIntArg("odd?", 1, a)
			if v.GetTag() == tagInt {
				return NewBool(v.Int()&1 == 1)
			}
			return NewBool(v.BigInt().Bit(0) == 1)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"even?", "tells if the integer is even",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "integer to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			v := exactIntArg("even?", 1, a)
			if v.GetTag() == tagInt {
				return NewBool(v.Int()&1 == 0)
			}
			return NewBool(v.BigInt().Bit(0) == 0)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"nan?", "tells if the number is not-a-number",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			v := numberOpArg("nan?", 1, a)
			switch v.GetTag() {
			case tagFloat:
				return NewBool(math.IsNaN(v.Float()))
			case tagComplex:
				c := v.Complex()
				return NewBool(math.IsNaN(c.Re.Float()) || math.IsNaN(c.Im.Float()))
			}
			return NewBool(false)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"infinite?", "tells if the number is positive or negative infinity",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			v := numberOpArg("infinite?", 1, a)
			switch v.GetTag() {
			case tagFloat:
				return NewBool(math.IsInf(v.Float(), 0))
			case tagComplex:
				c := v.Complex()
				return NewBool(math.IsInf(c.Re.Float(), 0) || math.IsInf(c.Im.Float(), 0))
			}
			return NewBool(false)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"finite?", "tells if the number is finite",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			v := numberOpArg("finite?", 1, a)
			switch v.GetTag() {
			case tagFloat:
				f := v.Float()
				return NewBool(!math.IsInf(f, 0) && !math.IsNaN(f))
			case tagComplex:
				c := v.Complex()
				re, im := c.Re.Float(), c.Im.Float()
				return NewBool(!math.IsInf(re, 0) && !math.IsNaN(re) && !math.IsInf(im, 0) && !math.IsNaN(im))
			}
			return NewBool(true)
		}, true,
	})

	Declare(&Globalenv, &Declaration{
		"abs", "returns the absolute value; the magnitude for complex numbers",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number"},
		}, "number",
		func(a ...Scmer) Scmer {
			return numAbs(numberOpArg("abs", 1, a))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"min", "returns the smallest value; inexactness is contagious for numbers",
		1, 1000,
		[]DeclarationParameter{
			{"value...", "any", "values"},
		}, "any",
		func(a ...Scmer) Scmer {
			best := a[0]
			allNum := best.IsNumber()
			anyInexact := allNum && !best.IsExact()
			for _, v := range a[1:] {
				if !v.IsNumber() {
					allNum = false
				} else if !v.IsExact() {
					anyInexact = true
				}
				if cmp, ok := orderedPair(v, best); !ok {
					return NewFloat(math.NaN())
				} else if cmp < 0 {
					best = v
				}
			}
			if allNum && anyInexact {
				return toInexact(best)
			}
			return best
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"max", "returns the highest value; inexactness is contagious for numbers",
		1, 1000,
		[]DeclarationParameter{
			{"value...", "any", "values"},
		}, "any",
		func(a ...Scmer) Scmer {
			best := a[0]
			allNum := best.IsNumber()
			anyInexact := allNum && !best.IsExact()
			for _, v := range a[1:] {
				if !v.IsNumber() {
					allNum = false
				} else if !v.IsExact() {
					anyInexact = true
				}
				if cmp, ok := orderedPair(v, best); !ok {
					return NewFloat(math.NaN())
				} else if cmp > 0 {
					best = v
				}
			}
			if allNum && anyInexact {
				return toInexact(best)
			}
			return best
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"floor", "rounds the number down",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number to round"},
		}, "number",
		func(a ...Scmer) Scmer {
			return roundTower("floor", numberOpArg("floor", 1, a), ratFloor, math.Floor)
		}, true,
	})
	ceilFn := func(a ...Scmer) Scmer {
		return roundTower("ceiling", numberOpArg("ceiling", 1, a), ratCeil, math.Ceil)
	}
	Declare(&Globalenv, &Declaration{
		"ceiling", "rounds the number up",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number to round"},
		}, "number",
		ceilFn, true,
	})
	Declare(&Globalenv, &Declaration{
		"ceil", "rounds the number up",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number to round"},
		}, "number",
		ceilFn, true,
	})
	Declare(&Globalenv, &Declaration{
		"round", "rounds the number to the nearest integer, ties to even",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number to round"},
		}, "number",
		func(a ...Scmer) Scmer {
			return roundTower("round", numberOpArg("round", 1, a), ratRound, math.RoundToEven)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"truncate", "rounds the number towards zero",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number to round"},
		}, "number",
		func(a ...Scmer) Scmer {
			return roundTower("truncate", numberOpArg("truncate", 1, a), ratTruncate, math.Trunc)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"sqrt", "returns the square root; exact when the argument is a perfect square, complex when negative",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number"},
		}, "number",
		func(a ...Scmer) Scmer {
			return numSqrt(numberOpArg("sqrt", 1, a))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"expt", "raises base to the power of exponent; exact bases with integer exponents stay exact",
		2, 2,
		[]DeclarationParameter{
			{"base", "number", "base"},
			{"exponent", "number", "exponent"},
		}, "number",
		func(a ...Scmer) Scmer {
			return numPow(numberOpArg("expt", 1, a), numberOpArg("expt", 2, a))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"square", "multiplies the number with itself",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number"},
		}, "number",
		func(a ...Scmer) Scmer {
			v := numberOpArg("square", 1, a)
			return numMul(v, v)
		}, true,
	})

	Declare(&Globalenv, &Declaration{
		"exp", "returns e raised to the given power",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "exponent"},
		}, "number",
		func(a ...Scmer) Scmer {
			return NewFloat(math.Exp(realArg("exp", 1, a)))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"log", "returns the natural logarithm, or the logarithm to the given base",
		1, 2,
		[]DeclarationParameter{
			{"value", "number", "number"},
			{"base", "number", "logarithm base (optional)"},
		}, "number",
		func(a ...Scmer) Scmer {
			x := math.Log(realArg("log", 1, a))
			if len(a) > 1 {
				return NewFloat(x / math.Log(realArg("log", 2, a)))
			}
			return NewFloat(x)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"sin", "returns the sine of an angle in radians",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "angle"},
		}, "number",
		func(a ...Scmer) Scmer {
			return NewFloat(math.Sin(realArg("sin", 1, a)))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"cos", "returns the cosine of an angle in radians",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "angle"},
		}, "number",
		func(a ...Scmer) Scmer {
			return NewFloat(math.Cos(realArg("cos", 1, a)))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"tan", "returns the tangent of an angle in radians",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "angle"},
		}, "number",
		func(a ...Scmer) Scmer {
			return NewFloat(math.Tan(realArg("tan", 1, a)))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"asin", "returns the arc sine",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number"},
		}, "number",
		func(a ...Scmer) Scmer {
			return NewFloat(math.Asin(realArg("asin", 1, a)))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"acos", "returns the arc cosine",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number"},
		}, "number",
		func(a ...Scmer) Scmer {
			return NewFloat(math.Acos(realArg("acos", 1, a)))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"atan", "returns the arc tangent; with two arguments the quadrant-aware atan2(y, x)",
		1, 2,
		[]DeclarationParameter{
			{"y", "number", "number (or y for the two-argument form)"},
			{"x", "number", "x for the two-argument form (optional)"},
		}, "number",
		func(a ...Scmer) Scmer {
			if len(a) > 1 {
				return NewFloat(math.Atan2(realArg("atan", 1, a), realArg("atan", 2, a)))
			}
			return NewFloat(math.Atan(realArg("atan", 1, a)))
		}, true,
	})

	Declare(&Globalenv, &Declaration{
		"numerator", "returns the numerator of a rational; inexact arguments yield inexact results",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "rational number"},
		}, "number",
		func(a ...Scmer) Scmer {
			v := numberOpArg("numerator", 1, a)
			switch v.GetTag() {
			case tagInt, tagBigInt:
				return v
			case tagRational:
				return NewBigInt(new(big.Int).Set(v.Rat().Num()))
			case tagFloat:
				r := toExact(v).Rat()
				return toInexact(NewBigInt(new(big.Int).Set(r.Num())))
			}
			panic(&TypeError{Op: "numerator", ArgPos: 1, Expected: []string{"a rational number"}, Got: typeName(v)})
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"denominator", "returns the denominator of a rational; inexact arguments yield inexact results",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "rational number"},
		}, "number",
		func(a ...Scmer) Scmer {
			v := numberOpArg("denominator", 1, a)
			switch v.GetTag() {
			case tagInt, tagBigInt:
				return NewInt(1)
			case tagRational:
				return NewBigInt(new(big.Int).Set(v.Rat().Denom()))
			case tagFloat:
				r := toExact(v).Rat()
				return toInexact(NewBigInt(new(big.Int).Set(r.Denom())))
			}
			panic(&TypeError{Op: "denominator", ArgPos: 1, Expected: []string{"a rational number"}, Got: typeName(v)})
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"real-part", "returns the real part of a number",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number"},
		}, "number",
		func(a ...Scmer) Scmer {
			v := numberOpArg("real-part", 1, a)
			if v.GetTag() == tagComplex {
				return v.Complex().Re
			}
			return v
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"imag-part", "returns the imaginary part of a number",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number"},
		}, "number",
		func(a ...Scmer) Scmer {
			v := numberOpArg("imag-part", 1, a)
			switch v.GetTag() {
			case tagComplex:
				return v.Complex().Im
			case tagFloat:
				return NewFloat(0)
			}
			return NewInt(0)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"magnitude", "returns the magnitude of a number",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number"},
		}, "number",
		func(a ...Scmer) Scmer {
			return numAbs(numberOpArg("magnitude", 1, a))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"angle", "returns the angle of a number in radians",
		1, 1,
		[]DeclarationParameter{
			{"value", "number", "number"},
		}, "number",
		func(a ...Scmer) Scmer {
			v := numberOpArg("angle", 1, a)
			if v.GetTag() == tagComplex {
				c := v.Complex()
				return NewFloat(math.Atan2(c.Im.Float(), c.Re.Float()))
			}
			if cmp, ok := numCompare(v, NewInt(0)); ok && cmp < 0 {
				return NewFloat(math.Pi)
			}
			return NewInt(0)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"make-rectangular", "builds a complex number from real and imaginary parts",
		2, 2,
		[]DeclarationParameter{
			{"real", "number", "real part"},
			{"imag", "number", "imaginary part"},
		}, "number",
		func(a ...Scmer) Scmer {
			re := numberOpArg("make-rectangular", 1, a)
			im := numberOpArg("make-rectangular", 2, a)
			if re.GetTag() == tagComplex || im.GetTag() == tagComplex {
				panic(&TypeError{Op: "make-rectangular", ArgPos: 1, Expected: []string{"a real number"}, Got: "complex"})
			}
			return normalizeComplex(&Complex{Re: re, Im: im})
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"make-polar", "builds a complex number from magnitude and angle",
		2, 2,
		[]DeclarationParameter{
			{"magnitude", "number", "magnitude"},
			{"angle", "number", "angle in radians"},
		}, "number",
		func(a ...Scmer) Scmer {
			mag := realArg("make-polar", 1, a)
			ang := realArg("make-polar", 2, a)
			return normalizeComplex(&Complex{Re: NewFloat(mag * math.Cos(ang)), Im: NewFloat(mag * math.Sin(ang))})
		}, true,
	})
}
