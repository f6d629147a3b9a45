/*
Copyright (C) 2023-2025  Carl-Philip Hänsch

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
	"errors"
	"math"
	"math/big"
	"math/cmplx"
	"strconv"
	"strings"
)

// Complex holds re/im as tower values so exact complex numbers survive
// until a float infects them.
type Complex struct {
	Re Scmer
	Im Scmer
}

// tower ranks; coercion promotes to the larger rank. Float infects,
// complex is terminal.
const (
	rankInt = iota
	rankBigInt
	rankRational
	rankFloat
	rankComplex
)

func numRank(v Scmer) int {
	switch v.GetTag() {
	case tagInt:
		return rankInt
	case tagBigInt:
		return rankBigInt
	case tagRational:
		return rankRational
	case tagFloat:
		return rankFloat
	case tagComplex:
		return rankComplex
	}
	panic(&TypeError{Op: "arithmetic", ArgPos: 1, Expected: []string{"a number"}, Got: typeName(v)})
}

func newBigIntRaw(b *big.Int) Scmer {
	return Scmer{b, 0, makeAux(tagBigInt, 0)}
}

// promoteTo converts a real tower value to exactly the given rank without
// re-normalizing, so both sides of a coercion end up in the same concrete
// representation.
func promoteTo(v Scmer, rank int) Scmer {
	for numRank(v) < rank {
		switch v.GetTag() {
		case tagInt:
			if rank == rankFloat {
				v = NewFloat(float64(v.Int()))
			} else if rank == rankComplex {
				v = NewComplex(&Complex{Re: v, Im: NewInt(0)})
			} else if rank == rankRational {
				v = NewRationalRaw(new(big.Rat).SetInt64(v.Int()))
			} else {
				v = newBigIntRaw(big.NewInt(v.Int()))
			}
		case tagBigInt:
			if rank == rankFloat {
				v = NewFloat(v.Float())
			} else if rank == rankComplex {
				v = NewComplex(&Complex{Re: v, Im: NewInt(0)})
			} else {
				v = NewRationalRaw(new(big.Rat).SetInt(v.ptr.(*big.Int)))
			}
		case tagRational:
			if rank == rankComplex {
				v = NewComplex(&Complex{Re: v, Im: NewInt(0)})
			} else {
				v = NewFloat(v.Float())
			}
		case tagFloat:
			v = NewComplex(&Complex{Re: v, Im: NewFloat(0)})
		}
	}
	return v
}

// Coerce returns both operands promoted to their least common
// representation per the tower matrix.
func Coerce(a, b Scmer) (Scmer, Scmer) {
	ra, rb := numRank(a), numRank(b)
	rank := ra
	if rb > rank {
		rank = rb
	}
	return promoteTo(a, rank), promoteTo(b, rank)
}

//
// arithmetic; every op coerces first, int ops detect overflow and retry
// in the bigint lane
//

func numAdd(a, b Scmer) Scmer {
	a, b = Coerce(a, b)
	switch a.GetTag() {
	case tagInt:
		x, y := a.Int(), b.Int()
		sum := x + y
		if (x > 0 && y > 0 && sum < 0) || (x < 0 && y < 0 && sum >= 0) {
			return NewBigInt(new(big.Int).Add(big.NewInt(x), big.NewInt(y)))
		}
		return NewInt(sum)
	case tagBigInt:
		return NewBigInt(new(big.Int).Add(a.ptr.(*big.Int), b.ptr.(*big.Int)))
	case tagRational:
		return NewRational(new(big.Rat).Add(a.ptr.(*big.Rat), b.ptr.(*big.Rat)))
	case tagFloat:
		return NewFloat(a.Float() + b.Float())
	case tagComplex:
		ca, cb := a.Complex(), b.Complex()
		return normalizeComplex(&Complex{Re: numAdd(ca.Re, cb.Re), Im: numAdd(ca.Im, cb.Im)})
	}
	panic("unreachable")
}

func numSub(a, b Scmer) Scmer {
	a, b = Coerce(a, b)
	switch a.GetTag() {
	case tagInt:
		x, y := a.Int(), b.Int()
		diff := x - y
		if (x >= 0 && y < 0 && diff < 0) || (x < 0 && y > 0 && diff >= 0) {
			return NewBigInt(new(big.Int).Sub(big.NewInt(x), big.NewInt(y)))
		}
		return NewInt(diff)
	case tagBigInt:
		return NewBigInt(new(big.Int).Sub(a.ptr.(*big.Int), b.ptr.(*big.Int)))
	case tagRational:
		return NewRational(new(big.Rat).Sub(a.ptr.(*big.Rat), b.ptr.(*big.Rat)))
	case tagFloat:
		return NewFloat(a.Float() - b.Float())
	case tagComplex:
		ca, cb := a.Complex(), b.Complex()
		return normalizeComplex(&Complex{Re: numSub(ca.Re, cb.Re), Im: numSub(ca.Im, cb.Im)})
	}
	panic("unreachable")
}

func numMul(a, b Scmer) Scmer {
	a, b = Coerce(a, b)
	switch a.GetTag() {
	case tagInt:
		x, y := a.Int(), b.Int()
		if x == 0 || y == 0 {
			return NewInt(0)
		}
		prod := x * y
		if prod/y != x || (x == -1 && y == math.MinInt64) || (y == -1 && x == math.MinInt64) {
			return NewBigInt(new(big.Int).Mul(big.NewInt(x), big.NewInt(y)))
		}
		return NewInt(prod)
	case tagBigInt:
		return NewBigInt(new(big.Int).Mul(a.ptr.(*big.Int), b.ptr.(*big.Int)))
	case tagRational:
		return NewRational(new(big.Rat).Mul(a.ptr.(*big.Rat), b.ptr.(*big.Rat)))
	case tagFloat:
		return NewFloat(a.Float() * b.Float())
	case tagComplex:
		// (a+bi)(c+di) = (ac-bd) + (ad+bc)i
		ca, cb := a.Complex(), b.Complex()
		re := numSub(numMul(ca.Re, cb.Re), numMul(ca.Im, cb.Im))
		im := numAdd(numMul(ca.Re, cb.Im), numMul(ca.Im, cb.Re))
		return normalizeComplex(&Complex{Re: re, Im: im})
	}
	panic("unreachable")
}

// numDiv keeps exactness: dividing exact integers yields a rational that
// auto-reduces back to an integer when it divides evenly.
func numDiv(a, b Scmer) Scmer {
	a, b = Coerce(a, b)
	switch a.GetTag() {
	case tagInt, tagBigInt:
		num, den := a.BigInt(), b.BigInt()
		if den.Sign() == 0 {
			panic(&UserError{Payload: NewString("division by zero")})
		}
		return NewRational(new(big.Rat).SetFrac(num, den))
	case tagRational:
		den := b.ptr.(*big.Rat)
		if den.Sign() == 0 {
			panic(&UserError{Payload: NewString("division by zero")})
		}
		return NewRational(new(big.Rat).Quo(a.ptr.(*big.Rat), den))
	case tagFloat:
		return NewFloat(a.Float() / b.Float())
	case tagComplex:
		// conjugate division: (a+bi)/(c+di) = (a+bi)(c-di) / (c^2+d^2)
		ca, cb := a.Complex(), b.Complex()
		denom := numAdd(numMul(cb.Re, cb.Re), numMul(cb.Im, cb.Im))
		re := numDiv(numAdd(numMul(ca.Re, cb.Re), numMul(ca.Im, cb.Im)), denom)
		im := numDiv(numSub(numMul(ca.Im, cb.Re), numMul(ca.Re, cb.Im)), denom)
		return normalizeComplex(&Complex{Re: re, Im: im})
	}
	panic("unreachable")
}

func numNeg(a Scmer) Scmer {
	return numSub(NewInt(0), a)
}

func numAbs(a Scmer) Scmer {
	switch a.GetTag() {
	case tagInt:
		if x := a.Int(); x < 0 {
			return numNeg(a)
		}
		return a
	case tagBigInt:
		return NewBigInt(new(big.Int).Abs(a.ptr.(*big.Int)))
	case tagRational:
		return NewRational(new(big.Rat).Abs(a.ptr.(*big.Rat)))
	case tagFloat:
		return NewFloat(math.Abs(a.Float()))
	case tagComplex:
		// magnitude
		c := a.Complex()
		return NewFloat(math.Hypot(c.Re.Float(), c.Im.Float()))
	}
	panic(&TypeError{Op: "abs", ArgPos: 1, Expected: []string{"a number"}, Got: typeName(a)})
}

func numPow(a, b Scmer) Scmer {
	if a.GetTag() == tagComplex || b.GetTag() == tagComplex {
		r := cmplx.Pow(toComplex128(a), toComplex128(b))
		return normalizeComplex(&Complex{Re: NewFloat(real(r)), Im: NewFloat(imag(r))})
	}
	if b.GetTag() == tagInt || b.GetTag() == tagBigInt {
		exp := b.BigInt()
		if exp.Sign() >= 0 && exp.IsInt64() {
			switch a.GetTag() {
			case tagInt, tagBigInt:
				return NewBigInt(new(big.Int).Exp(a.BigInt(), exp, nil))
			case tagRational:
				r := a.Rat()
				num := new(big.Int).Exp(r.Num(), exp, nil)
				den := new(big.Int).Exp(r.Denom(), exp, nil)
				return NewRational(new(big.Rat).SetFrac(num, den))
			}
		} else if a.IsExact() && exp.IsInt64() {
			// negative exponent on an exact base: invert the positive power
			inv := numPow(a, NewBigInt(new(big.Int).Neg(exp)))
			return numDiv(NewInt(1), inv)
		}
	}
	return NewFloat(math.Pow(a.Float(), b.Float()))
}

func numSqrt(a Scmer) Scmer {
	switch a.GetTag() {
	case tagInt, tagBigInt:
		x := a.BigInt()
		if x.Sign() < 0 {
			pos := numSqrt(NewBigInt(new(big.Int).Neg(x)))
			return normalizeComplex(&Complex{Re: NewInt(0), Im: pos})
		}
		root := new(big.Int).Sqrt(x)
		if new(big.Int).Mul(root, root).Cmp(x) == 0 {
			return NewBigInt(root)
		}
		return NewFloat(math.Sqrt(a.Float()))
	case tagRational:
		r := a.Rat()
		num := numSqrt(NewBigInt(r.Num()))
		den := numSqrt(NewBigInt(r.Denom()))
		if num.IsExact() && den.IsExact() && num.GetTag() != tagComplex {
			return numDiv(num, den)
		}
		return NewFloat(math.Sqrt(a.Float()))
	case tagFloat:
		f := a.Float()
		if f < 0 {
			return normalizeComplex(&Complex{Re: NewFloat(0), Im: NewFloat(math.Sqrt(-f))})
		}
		return NewFloat(math.Sqrt(f))
	case tagComplex:
		r := cmplx.Sqrt(toComplex128(a))
		return normalizeComplex(&Complex{Re: NewFloat(real(r)), Im: NewFloat(imag(r))})
	}
	panic(&TypeError{Op: "sqrt", ArgPos: 1, Expected: []string{"a number"}, Got: typeName(a)})
}

func toComplex128(v Scmer) complex128 {
	if v.GetTag() == tagComplex {
		c := v.Complex()
		return complex(c.Re.Float(), c.Im.Float())
	}
	return complex(v.Float(), 0)
}

// normalizeComplex drops a zero *exact* imaginary part back to the real
// lane; an inexact zero imaginary stays complex per the equality rules.
func normalizeComplex(c *Complex) Scmer {
	if c.Im.IsExact() {
		if cmp, ok := numCompare(c.Im, NewInt(0)); ok && cmp == 0 {
			return c.Re
		}
	}
	return NewComplex(c)
}

// numCompare compares two reals after coercion; ok is false when the
// comparison is undefined (NaN involved, or complex operands that are
// not equal-comparable here).
func numCompare(a, b Scmer) (int, bool) {
	if a.GetTag() == tagComplex || b.GetTag() == tagComplex {
		// only equality is meaningful; report incomparable otherwise
		if numEqual(a, b) {
			return 0, true
		}
		return 0, false
	}
	a, b = Coerce(a, b)
	switch a.GetTag() {
	case tagInt:
		x, y := a.Int(), b.Int()
		if x < y {
			return -1, true
		} else if x > y {
			return 1, true
		}
		return 0, true
	case tagBigInt:
		return a.ptr.(*big.Int).Cmp(b.ptr.(*big.Int)), true
	case tagRational:
		return a.ptr.(*big.Rat).Cmp(b.ptr.(*big.Rat)), true
	case tagFloat:
		x, y := a.Float(), b.Float()
		if math.IsNaN(x) || math.IsNaN(y) {
			return 0, false
		}
		if x < y {
			return -1, true
		} else if x > y {
			return 1, true
		}
		return 0, true
	}
	panic("unreachable")
}

// numEqual is numeric = across the tower. NaN is never equal; a complex
// with zero imaginary equals the matching real only after normalization
// (which already collapsed exact zero imaginary parts).
func numEqual(a, b Scmer) bool {
	at, bt := a.GetTag(), b.GetTag()
	if at == tagComplex || bt == tagComplex {
		if at != tagComplex || bt != tagComplex {
			return false
		}
		ca, cb := a.Complex(), b.Complex()
		return numEqual(ca.Re, cb.Re) && numEqual(ca.Im, cb.Im)
	}
	cmp, ok := numCompare(a, b)
	return ok && cmp == 0
}

// toExact converts inexact reals to exact ones (floats become rationals).
func toExact(v Scmer) Scmer {
	switch v.GetTag() {
	case tagInt, tagBigInt, tagRational:
		return v
	case tagFloat:
		f := v.Float()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			panic(&TypeError{Op: "inexact->exact", ArgPos: 1, Expected: []string{"a finite number"}, Got: formatFloat(f)})
		}
		r := new(big.Rat)
		r.SetFloat64(f)
		return NewRational(r)
	case tagComplex:
		c := v.Complex()
		return normalizeComplex(&Complex{Re: toExact(c.Re), Im: toExact(c.Im)})
	}
	panic(&TypeError{Op: "inexact->exact", ArgPos: 1, Expected: []string{"a number"}, Got: typeName(v)})
}

// toInexact converts to the float lane.
func toInexact(v Scmer) Scmer {
	switch v.GetTag() {
	case tagFloat:
		return v
	case tagInt, tagBigInt, tagRational:
		return NewFloat(v.Float())
	case tagComplex:
		c := v.Complex()
		return NewComplex(&Complex{Re: toInexact(c.Re), Im: toInexact(c.Im)})
	}
	panic(&TypeError{Op: "exact->inexact", ArgPos: 1, Expected: []string{"a number"}, Got: typeName(v)})
}

//
// parsing
//

var errNotANumber = errors.New("not a number")

// parseNumber parses a Scheme numeric literal: radix/exactness prefixes
// (composable), integers, floats, rationals N/D, complex A+Bi, and the
// special float tokens. Returns errNotANumber when s is no numeric
// literal at all (the reader then falls back to a symbol).
func parseNumber(s string, radix int) (Scmer, error) {
	exact := 0 // 0 unspecified, 1 exact, -1 inexact
	for len(s) >= 2 && s[0] == '#' {
		switch s[1] {
		case 'x', 'X':
			radix = 16
		case 'o', 'O':
			radix = 8
		case 'b', 'B':
			radix = 2
		case 'd', 'D':
			radix = 10
		case 'e', 'E':
			exact = 1
		case 'i', 'I':
			exact = -1
		default:
			return NewNil(), errNotANumber
		}
		s = s[2:]
	}
	if s == "" {
		return NewNil(), errNotANumber
	}
	v, err := parseComplexOrReal(s, radix)
	if err != nil {
		return NewNil(), err
	}
	if exact == 1 {
		return toExact(v), nil
	} else if exact == -1 {
		return toInexact(v), nil
	}
	return v, nil
}

func parseComplexOrReal(s string, radix int) (Scmer, error) {
	if len(s) > 1 && (s[len(s)-1] == 'i' || s[len(s)-1] == 'I') && !isInfNan(s) {
		body := s[:len(s)-1]
		// split before the sign of the imaginary part; skip exponent signs
		split := -1
		for i := len(body) - 1; i > 0; i-- {
			c := body[i]
			if c == '+' || c == '-' {
				if radix == 10 && (body[i-1] == 'e' || body[i-1] == 'E') {
					continue
				}
				split = i
				break
			}
		}
		var reStr, imStr string
		if split < 0 {
			reStr, imStr = "0", body
		} else {
			reStr, imStr = body[:split], body[split:]
		}
		if imStr == "+" || imStr == "" {
			imStr = "1"
		} else if imStr == "-" {
			imStr = "-1"
		}
		re, err := parseReal(reStr, radix)
		if err != nil {
			return NewNil(), err
		}
		im, err := parseReal(imStr, radix)
		if err != nil {
			return NewNil(), err
		}
		return normalizeComplex(&Complex{Re: re, Im: im}), nil
	}
	return parseReal(s, radix)
}

func isInfNan(s string) bool {
	switch s {
	case "+inf.0", "-inf.0", "+nan.0", "-nan.0":
		return true
	}
	return false
}

func parseReal(s string, radix int) (Scmer, error) {
	switch s {
	case "+inf.0":
		return NewFloat(math.Inf(1)), nil
	case "-inf.0":
		return NewFloat(math.Inf(-1)), nil
	case "+nan.0", "-nan.0":
		return NewFloat(math.NaN()), nil
	}
	if idx := strings.IndexByte(s, '/'); idx > 0 {
		num, ok1 := new(big.Int).SetString(s[:idx], radix)
		den, ok2 := new(big.Int).SetString(s[idx+1:], radix)
		if !ok1 || !ok2 || den.Sign() == 0 {
			return NewNil(), errNotANumber
		}
		return NewRational(new(big.Rat).SetFrac(num, den)), nil
	}
	if i, ok := new(big.Int).SetString(s, radix); ok {
		return NewBigInt(i), nil
	}
	if radix == 10 {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return NewFloat(f), nil
		}
	}
	return NewNil(), errNotANumber
}

//
// rendering
//

// formatFloat renders a float the Scheme way: special tokens for
// infinities and NaN, always a decimal point or exponent, normalized
// scientific notation with a signed exponent for extreme magnitudes.
func formatFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "+inf.0"
	}
	if math.IsInf(f, -1) {
		return "-inf.0"
	}
	if math.IsNaN(f) {
		return "+nan.0"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// numberToString renders any tower member in the given radix. Inexact
// values only support radix 10.
func numberToString(v Scmer, radix int) string {
	switch v.GetTag() {
	case tagInt:
		return strconv.FormatInt(v.Int(), radix)
	case tagBigInt:
		return v.ptr.(*big.Int).Text(radix)
	case tagRational:
		r := v.ptr.(*big.Rat)
		return r.Num().Text(radix) + "/" + r.Denom().Text(radix)
	case tagFloat:
		if radix != 10 {
			panic(&TypeError{Op: "number->string", ArgPos: 2, Expected: []string{"radix 10 for inexact numbers"}, Got: strconv.Itoa(radix)})
		}
		return formatFloat(v.Float())
	case tagComplex:
		c := v.Complex()
		im := numberToString(c.Im, radix)
		if !strings.HasPrefix(im, "-") && !strings.HasPrefix(im, "+") {
			im = "+" + im
		}
		re := ""
		if cmp, ok := numCompare(c.Re, NewInt(0)); !ok || cmp != 0 || c.Re.GetTag() == tagFloat {
			re = numberToString(c.Re, radix)
		}
		return re + im + "i"
	}
	panic(&TypeError{Op: "number->string", ArgPos: 1, Expected: []string{"a number"}, Got: typeName(v)})
}

// numberOpArg fetches a numeric argument for a declared builtin with the
// taxonomy-conformant error.
func numberOpArg(op string, pos int, a []Scmer) Scmer {
	v := a[pos-1]
	if !v.IsNumber() {
		panic(&TypeError{Op: op, ArgPos: pos, Expected: []string{"a number"}, Got: typeName(v)})
	}
	return v
}
