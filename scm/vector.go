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
	"fmt"
	"math"
	"strings"
)

func vectorArg(op string, pos int, a []Scmer) []Scmer {
	v := stripSource(a[pos-1])
	if v.GetTag() != tagVector {
		panic(&TypeError{Op: op, ArgPos: pos, Expected: []string{"a vector"}, Got: typeName(v)})
	}
	return v.Vector()
}

func bytesArg(op string, pos int, a []Scmer) []byte {
	v := stripSource(a[pos-1])
	if v.GetTag() != tagBytes {
		panic(&TypeError{Op: op, ArgPos: pos, Expected: []string{"a bytevector"}, Got: typeName(v)})
	}
	return v.Bytes()
}

func vectorIndex(op string, pos int, a []Scmer, length int) int {
	i := ToInt(a[pos-1])
	if i < 0 || i >= int64(length) {
		panic(&TypeError{Op: op, ArgPos: pos, Expected: []string{"an index within the vector"}, Got: fmt.Sprint(i)})
	}
	return int(i)
}

func byteElem(op string, pos int, a []Scmer) byte {
	n := ToInt(a[pos-1])
	if n < 0 || n > 255 {
		panic(&TypeError{Op: op, ArgPos: pos, Expected: []string{"a byte 0..255"}, Got: fmt.Sprint(n)})
	}
	return byte(n)
}

// numeric slice view over a vector or a list, for the dot builtin
func asNumSlice(op string, pos int, a []Scmer) []Scmer {
	v := stripSource(a[pos-1])
	switch v.GetTag() {
	case tagVector:
		return v.Vector()
	case tagPair, tagNil:
		return properListArg(op, pos, a)
	}
	panic(&TypeError{Op: op, ArgPos: pos, Expected: []string{"a vector", "a list"}, Got: typeName(v)})
}

func init_vector() {
	DeclareTitle("Vectors")

	Declare(&Globalenv, &Declaration{
		"vector", "builds a vector from its arguments",
		0, 1000,
		[]DeclarationParameter{
			{"value...", "any", "vector elements"},
		}, "vector",
		func(a ...Scmer) Scmer {
			vec := make([]Scmer, len(a))
			copy(vec, a)
			return NewVector(vec)
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"vector?", "tells if the value is a vector",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(stripSource(a[0]).GetTag() == tagVector)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"make-vector", "builds a vector of the given size, filled with a value (default 0)",
		1, 2,
		[]DeclarationParameter{
			{"size", "int", "number of elements"},
			{"fill", "any", "initial element value (optional)"},
		}, "vector",
		func(a ...Scmer) Scmer {
			n := ToInt(a[0])
			if n < 0 {
				panic(&TypeError{Op: "make-vector", ArgPos: 1, Expected: []string{"a non-negative size"}, Got: fmt.Sprint(n)})
			}
			fill := NewInt(0)
			if len(a) > 1 {
				fill = a[1]
			}
			vec := make([]Scmer, n)
			for i := range vec {
				vec[i] = fill
			}
			return NewVector(vec)
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"vector-length", "returns the number of elements",
		1, 1,
		[]DeclarationParameter{
			{"vector", "vector", "input vector"},
		}, "int",
		func(a ...Scmer) Scmer {
			return NewInt(int64(len(vectorArg("vector-length", 1, a))))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"vector-ref", "returns the element at the given index",
		2, 2,
		[]DeclarationParameter{
			{"vector", "vector", "input vector"},
			{"index", "int", "element index beginning from 0"},
		}, "any",
		func(a ...Scmer) Scmer {
			vec := vectorArg("vector-ref", 1, a)
			return vec[vectorIndex("vector-ref", 2, a, len(vec))]
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"vector-set!", "replaces the element at the given index in place",
		3, 3,
		[]DeclarationParameter{
			{"vector", "vector", "vector to change"},
			{"index", "int", "element index beginning from 0"},
			{"value", "any", "new element value"},
		}, "nil",
		func(a ...Scmer) Scmer {
			vec := vectorArg("vector-set!", 1, a)
			vec[vectorIndex("vector-set!", 2, a, len(vec))] = a[2]
			return NewVoid()
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"vector-fill!", "overwrites every element with the given value",
		2, 2,
		[]DeclarationParameter{
			{"vector", "vector", "vector to change"},
			{"value", "any", "fill value"},
		}, "nil",
		func(a ...Scmer) Scmer {
			vec := vectorArg("vector-fill!", 1, a)
			for i := range vec {
				vec[i] = a[1]
			}
			return NewVoid()
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"vector->list", "returns the elements as a list",
		1, 1,
		[]DeclarationParameter{
			{"vector", "vector", "input vector"},
		}, "list",
		func(a ...Scmer) Scmer {
			vec := vectorArg("vector->list", 1, a)
			elems := make([]Scmer, len(vec))
			copy(elems, vec)
			return listWithTail(elems, NewNil())
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"list->vector", "returns the list elements as a vector",
		1, 1,
		[]DeclarationParameter{
			{"list", "list", "input list"},
		}, "vector",
		func(a ...Scmer) Scmer {
			elems := properListArg("list->vector", 1, a)
			vec := make([]Scmer, len(elems))
			copy(vec, elems)
			return NewVector(vec)
		}, false,
	})

	/* bytevectors */
	Declare(&Globalenv, &Declaration{
		"bytevector", "builds a bytevector from byte values 0..255",
		0, 1000,
		[]DeclarationParameter{
			{"byte...", "int", "byte values"},
		}, "any",
		func(a ...Scmer) Scmer {
			b := make([]byte, len(a))
			for i := range a {
				b[i] = byteElem("bytevector", i+1, a)
			}
			return NewBytes(b)
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"bytevector?", "tells if the value is a bytevector",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(stripSource(a[0]).GetTag() == tagBytes)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"make-bytevector", "builds a bytevector of the given size, filled with a byte (default 0)",
		1, 2,
		[]DeclarationParameter{
			{"size", "int", "number of bytes"},
			{"fill", "int", "initial byte value (optional)"},
		}, "any",
		func(a ...Scmer) Scmer {
			n := ToInt(a[0])
			if n < 0 {
				panic(&TypeError{Op: "make-bytevector", ArgPos: 1, Expected: []string{"a non-negative size"}, Got: fmt.Sprint(n)})
			}
			var fill byte
			if len(a) > 1 {
				fill = byteElem("make-bytevector", 2, a)
			}
			b := make([]byte, n)
			for i := range b {
				b[i] = fill
			}
			return NewBytes(b)
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"bytevector-length", "returns the number of bytes",
		1, 1,
		[]DeclarationParameter{
			{"bytevector", "any", "input bytevector"},
		}, "int",
		func(a ...Scmer) Scmer {
			return NewInt(int64(len(bytesArg("bytevector-length", 1, a))))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"bytevector-u8-ref", "returns the byte at the given index",
		2, 2,
		[]DeclarationParameter{
			{"bytevector", "any", "input bytevector"},
			{"index", "int", "byte index beginning from 0"},
		}, "int",
		func(a ...Scmer) Scmer {
			b := bytesArg("bytevector-u8-ref", 1, a)
			return NewInt(int64(b[vectorIndex("bytevector-u8-ref", 2, a, len(b))]))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"bytevector-u8-set!", "replaces the byte at the given index in place",
		3, 3,
		[]DeclarationParameter{
			{"bytevector", "any", "bytevector to change"},
			{"index", "int", "byte index beginning from 0"},
			{"byte", "int", "new byte value 0..255"},
		}, "nil",
		func(a ...Scmer) Scmer {
			b := bytesArg("bytevector-u8-set!", 1, a)
			b[vectorIndex("bytevector-u8-set!", 2, a, len(b))] = byteElem("bytevector-u8-set!", 3, a)
			return NewVoid()
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"bytevector->string", "decodes a bytevector as UTF-8 text",
		1, 1,
		[]DeclarationParameter{
			{"bytevector", "any", "input bytevector"},
		}, "string",
		func(a ...Scmer) Scmer {
			return NewString(string(bytesArg("bytevector->string", 1, a)))
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"string->bytevector", "encodes a string as its UTF-8 bytes",
		1, 1,
		[]DeclarationParameter{
			{"value", "string", "input string"},
		}, "any",
		func(a ...Scmer) Scmer {
			return NewBytes([]byte(String(a[0])))
		}, false,
	})

	Declare(&Globalenv, &Declaration{
		"dot", "produced the dot product",
		2, 3,
		[]DeclarationParameter{
			{"v1", "vector|list", "vector1"},
			{"v2", "vector|list", "vector2"},
			{"mode", "string", "DOT, COSINE, EUCLIDEAN, default is DOT"},
		}, "number",
		func(a ...Scmer) Scmer {
			var result float64
			v1 := asNumSlice("dot", 1, a)
			v2 := asNumSlice("dot", 2, a)
			mode := "DOT"
			if len(a) > 2 {
				mode = strings.ToUpper(String(a[2]))
			}
			if mode == "COSINE" {
				// COSINE
				var lena float64 = 0
				var lenb float64 = 0
				for i := 0; i < len(v1) && i < len(v2); i++ {
					w1 := ToFloat(v1[i])
					w2 := ToFloat(v2[i])
					lena += w1 * w1
					lenb += w2 * w2
					result += w1 * w2
				}
				result = result / math.Sqrt(lena*lenb)
			} else {
				// DOT AND EUCLIDEAN
				for i := 0; i < len(v1) && i < len(v2); i++ {
					result += ToFloat(v1[i]) * ToFloat(v2[i])
				}
				if mode == "EUCLIDEAN" {
					result = math.Sqrt(result)
				}
			}
			return NewFloat(result)
		}, true,
	})
}
