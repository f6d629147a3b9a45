/*
Copyright (C) 2023  Carl-Philip Hänsch

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
	"bytes"
	"reflect"
	"unicode"
	"unicode/utf8"
)

// eq reports object identity. Heap values compare by pointer, immediates
// by payload.
func eq(a, b Scmer) bool {
	a, b = stripSource(a), stripSource(b)
	if a.GetTag() != b.GetTag() {
		return false
	}
	switch a.GetTag() {
	case tagNil, tagVoid, tagEOF:
		return true
	case tagBool, tagInt, tagChar, tagSymbol:
		return a.bits == b.bits
	case tagFloat:
		return a.Float() == b.Float()
	case tagBigInt:
		return a.ptr == b.ptr || a.BigInt().Cmp(b.BigInt()) == 0
	case tagRational:
		return a.ptr == b.ptr || a.Rat().Cmp(b.Rat()) == 0
	case tagVector:
		va, vb := a.Vector(), b.Vector()
		if len(va) != len(vb) {
			return false
		}
		return len(va) == 0 || &va[0] == &vb[0]
	case tagBytes:
		ba, bb := a.Bytes(), b.Bytes()
		if len(ba) != len(bb) {
			return false
		}
		return len(ba) == 0 || &ba[0] == &bb[0]
	case tagValues:
		va, vb := a.Values(), b.Values()
		if len(va) != len(vb) {
			return false
		}
		return len(va) == 0 || &va[0] == &vb[0]
	case tagFunc:
		return reflect.ValueOf(a.ptr).Pointer() == reflect.ValueOf(b.ptr).Pointer()
	case tagAny:
		if a.ptr == nil || b.ptr == nil {
			return a.ptr == b.ptr
		}
		t := reflect.TypeOf(a.ptr)
		if t != reflect.TypeOf(b.ptr) || !t.Comparable() {
			return false
		}
		return a.ptr == b.ptr
	default:
		// strings, pairs, procs, macros, dicts, streams, environments...
		return a.ptr == b.ptr
	}
}

// Eqv follows eq but compares numbers by value within the same
// exactness class, so (eqv? 2 2) holds for any fixnum/bigint split.
func Eqv(a, b Scmer) bool {
	a, b = stripSource(a), stripSource(b)
	if a.IsNumber() && b.IsNumber() {
		return a.IsExact() == b.IsExact() && numEqual(a, b)
	}
	return eq(a, b)
}

// Equal compares structurally and terminates on cyclic data: a pair
// couple under comparison is assumed equal when revisited.
func Equal(a, b Scmer) bool {
	var c equalCtx
	return c.rec(a, b)
}

type equalKey struct{ a, b any }

type equalCtx struct {
	seen map[equalKey]struct{}
}

func (c *equalCtx) enter(ka, kb any) bool {
	k := equalKey{ka, kb}
	if c.seen == nil {
		c.seen = make(map[equalKey]struct{})
	}
	if _, dup := c.seen[k]; dup {
		return false
	}
	c.seen[k] = struct{}{}
	return true
}

func (c *equalCtx) rec(a, b Scmer) bool {
	a, b = stripSource(a), stripSource(b)
	if a.GetTag() != b.GetTag() {
		if a.IsNumber() && b.IsNumber() {
			return a.IsExact() == b.IsExact() && numEqual(a, b)
		}
		return false
	}
	switch a.GetTag() {
	case tagString:
		return a.MutString().S == b.MutString().S
	case tagBytes:
		return bytes.Equal(a.Bytes(), b.Bytes())
	case tagRegex:
		ra, rb := a.Regex(), b.Regex()
		return ra.Source == rb.Source && ra.Flags == rb.Flags
	case tagPair:
		pa, pb := a.Pair(), b.Pair()
		if pa == pb {
			return true
		}
		if !c.enter(pa, pb) {
			return true
		}
		return c.rec(pa.Car, pb.Car) && c.rec(pa.Cdr, pb.Cdr)
	case tagVector:
		va, vb := a.Vector(), b.Vector()
		if len(va) != len(vb) {
			return false
		}
		if len(va) == 0 {
			return true
		}
		if &va[0] == &vb[0] {
			return true
		}
		if !c.enter(&va[0], &vb[0]) {
			return true
		}
		for i := range va {
			if !c.rec(va[i], vb[i]) {
				return false
			}
		}
		return true
	case tagValues:
		va, vb := a.Values(), b.Values()
		if len(va) != len(vb) {
			return false
		}
		for i := range va {
			if !c.rec(va[i], vb[i]) {
				return false
			}
		}
		return true
	case tagDict:
		da, db := a.Dict(), b.Dict()
		if da == db {
			return true
		}
		if len(da.Pairs) != len(db.Pairs) {
			return false
		}
		if !c.enter(da, db) {
			return true
		}
		for i := 0; i+1 < len(da.Pairs); i += 2 {
			v, ok := db.Get(da.Pairs[i])
			if !ok || !c.rec(da.Pairs[i+1], v) {
				return false
			}
		}
		if len(da.Pairs)%2 == 1 {
			return c.rec(da.Pairs[len(da.Pairs)-1], db.Pairs[len(db.Pairs)-1])
		}
		return true
	default:
		return Eqv(a, b)
	}
}

// Less is the sort order: nil first, then numbers, strings by
// case-insensitive collation. Mixed string/number coerces the string.
func Less(a, b Scmer) bool {
	a, b = stripSource(a), stripSource(b)
	if a.IsNil() {
		return !b.IsNil()
	}
	if b.IsNil() {
		return false
	}
	if a.IsNumber() && b.IsNumber() {
		if c, ok := numCompare(a, b); ok {
			return c < 0
		}
		return false
	}
	switch {
	case a.GetTag() == tagString && b.GetTag() == tagString:
		return StringLess(a.String(), b.String())
	case a.GetTag() == tagString && b.IsNumber():
		return ToFloat(a) < b.Float()
	case a.IsNumber() && b.GetTag() == tagString:
		return a.Float() < ToFloat(b)
	case a.GetTag() == tagChar && b.GetTag() == tagChar:
		return a.Char() < b.Char()
	case a.GetTag() == tagBool && b.GetTag() == tagBool:
		return !a.Bool() && b.Bool()
	case a.GetTag() == tagSymbol && b.GetTag() == tagSymbol:
		return SymbolName(a.Symbol()) < SymbolName(b.Symbol())
	default:
		panic("unknown type combo in comparison: " + String(a) + " < " + String(b))
	}
}

func StringLess(a, b string) bool {
	for {
		if len(a) == 0 {
			return false
		}
		if len(b) == 0 {
			return true
		}
		ar, sa := utf8.DecodeRuneInString(a)
		br, sb := utf8.DecodeRuneInString(b)

		// case insensitive
		al := unicode.ToLower(ar)
		bl := unicode.ToLower(br)

		if al < bl {
			return true
		} else if al > bl {
			return false
		} else {
			a = a[sa:]
			b = b[sb:]
		}
	}
}

func init_compare() {
	DeclareTitle("Comparison")

	Declare(&Globalenv, &Declaration{
		"eq?", "compares two values for object identity",
		2, 2,
		[]DeclarationParameter{
			{"a", "any", "first value"},
			{"b", "any", "second value"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(eq(a[0], a[1]))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"eqv?", "like eq? but numbers and characters compare by value",
		2, 2,
		[]DeclarationParameter{
			{"a", "any", "first value"},
			{"b", "any", "second value"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(Eqv(a[0], a[1]))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"equal?", "compares two values structurally; safe on cyclic data",
		2, 2,
		[]DeclarationParameter{
			{"a", "any", "first value"},
			{"b", "any", "second value"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(Equal(a[0], a[1]))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"not", "logical negation under truthiness rules",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to negate"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(!ToBool(a[0]))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"boolean?", "tells whether the value is #t or #f",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to test"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(stripSource(a[0]).GetTag() == tagBool)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"boolean=?", "tells whether all arguments are the same boolean",
		2, 1000,
		[]DeclarationParameter{
			{"a", "bool", "first boolean"},
			{"b...", "bool", "further booleans"},
		}, "bool",
		func(a ...Scmer) Scmer {
			first := stripSource(a[0])
			if first.GetTag() != tagBool {
				panic(&TypeError{Op: "boolean=?", ArgPos: 1, Expected: []string{"a boolean"}, Got: typeName(first)})
			}
			for i, v := range a[1:] {
				v = stripSource(v)
				if v.GetTag() != tagBool {
					panic(&TypeError{Op: "boolean=?", ArgPos: i + 2, Expected: []string{"a boolean"}, Got: typeName(v)})
				}
				if v.Bool() != first.Bool() {
					return NewBool(false)
				}
			}
			return NewBool(true)
		}, true,
	})
}
