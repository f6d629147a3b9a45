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
	"encoding/binary"
	"hash/maphash"
	"math"
)

// Stable seed for hashing to ensure consistent indices across Set/Get calls.
var fastDictSeed maphash.Seed

func init() {
	fastDictSeed = maphash.MakeSeed()
}

// Dict is an insertion-ordered hash map. The flat pairs slice keeps
// insertion order and makes iteration and serialization cheap; the hash
// index avoids O(N^2) behavior as it grows. An odd trailing element is
// the fallback value returned when the dict is called with a missing key.
type Dict struct {
	Pairs []Scmer          // [k0, v0, k1, v1, ...] (+ optional fallback)
	index map[uint64][]int // hash -> key positions in Pairs
}

func NewFastDict(capacityPairs int) *Dict {
	if capacityPairs < 0 {
		capacityPairs = 0
	}
	return &Dict{Pairs: make([]Scmer, 0, capacityPairs*2), index: make(map[uint64][]int)}
}

// pairLen is the number of elements that form key/value pairs; an odd
// trailing fallback is excluded.
func (d *Dict) pairLen() int {
	return len(d.Pairs) &^ 1
}

func (d *Dict) Iterate(fn func(k, v Scmer) bool) {
	for i := 0; i+1 < len(d.Pairs); i += 2 {
		if !fn(d.Pairs[i], d.Pairs[i+1]) {
			return
		}
	}
}

// HashKey computes a stable hash for a Scheme value, consistent with
// Equal. It feeds bytes directly to a streaming hasher; lists are hashed
// recursively with structural markers. Cyclic keys hash by visit order,
// so isomorphic cycles may land in distinct buckets (lookups still
// terminate).
func HashKey(k Scmer) uint64 {
	var h maphash.Hash
	h.SetSeed(fastDictSeed)
	writeScmerHash(&h, k, nil)
	return h.Sum64()
}

func writeScmerHash(h *maphash.Hash, v Scmer, visited map[*Pair]struct{}) {
	v = stripSource(v)
	switch v.GetTag() {
	case tagNil:
		h.WriteByte(0)
	case tagBool:
		h.WriteByte(1)
		if v.Bool() {
			h.WriteByte(1)
		} else {
			h.WriteByte(0)
		}
	case tagInt:
		h.WriteByte(2)
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(v.Int()))
		h.Write(b[:])
	case tagFloat:
		h.WriteByte(3)
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(v.Float()))
		h.Write(b[:])
	case tagString:
		h.WriteByte(4)
		h.WriteString(v.MutString().S)
	case tagSymbol:
		h.WriteByte(5)
		h.WriteString(SymbolName(v.Symbol()))
	case tagBigInt:
		h.WriteByte(8)
		b := v.BigInt()
		if b.Sign() < 0 {
			h.WriteByte(1)
		} else {
			h.WriteByte(0)
		}
		h.Write(b.Bytes())
	case tagRational:
		h.WriteByte(9)
		r := v.Rat()
		h.Write(r.Num().Bytes())
		h.WriteByte('/')
		h.Write(r.Denom().Bytes())
	case tagChar:
		h.WriteByte(10)
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(v.Char()))
		h.Write(b[:])
	case tagPair:
		h.WriteByte(6)
		cur := v
		for {
			cur = stripSource(cur)
			if !cur.IsPair() {
				break
			}
			p := cur.Pair()
			if visited == nil {
				visited = make(map[*Pair]struct{})
			}
			if _, dup := visited[p]; dup {
				h.WriteByte(254)
				return
			}
			visited[p] = struct{}{}
			writeScmerHash(h, p.Car, visited)
			cur = p.Cdr
		}
		if !cur.IsNil() {
			h.WriteByte(7)
			writeScmerHash(h, cur, visited)
		}
	case tagVector:
		h.WriteByte(11)
		vec := v.Vector()
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(len(vec)))
		h.Write(b[:])
		for _, el := range vec {
			writeScmerHash(h, el, visited)
		}
	case tagBytes:
		h.WriteByte(12)
		h.Write(v.Bytes())
	case tagDict:
		d := v.Dict()
		h.WriteByte(6)
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(d.pairLen()))
		h.Write(b[:])
		for i := 0; i+1 < len(d.Pairs); i += 2 {
			writeScmerHash(h, d.Pairs[i], visited)
			writeScmerHash(h, d.Pairs[i+1], visited)
		}
	default:
		// hash by type name; Equal on these is identity anyway
		h.WriteByte(255)
		h.WriteString(typeName(v))
	}
}

func (d *Dict) findPos(key Scmer, h uint64) (int, bool) {
	if d.index == nil {
		// literal structs without an index degrade to a linear scan
		for i := 0; i+1 < len(d.Pairs); i += 2 {
			if Equal(d.Pairs[i], key) {
				return i, true
			}
		}
		return -1, false
	}
	if bucket, ok := d.index[h]; ok {
		for _, pos := range bucket {
			if Equal(d.Pairs[pos], key) {
				return pos, true
			}
		}
	}
	return -1, false
}

func (d *Dict) Get(key Scmer) (Scmer, bool) {
	h := HashKey(key)
	if pos, ok := d.findPos(key, h); ok {
		return d.Pairs[pos+1], true
	}
	return NewNil(), false
}

// GetStr looks up a textual key bound as either a string or a symbol.
func (d *Dict) GetStr(key string) (Scmer, bool) {
	if d.index == nil {
		for i := 0; i+1 < len(d.Pairs); i += 2 {
			if k := stripSource(d.Pairs[i]); (k.GetTag() == tagString || k.GetTag() == tagSymbol) && k.String() == key {
				return d.Pairs[i+1], true
			}
		}
		return NewNil(), false
	}
	for _, marker := range []byte{4, 5} {
		var h maphash.Hash
		h.SetSeed(fastDictSeed)
		h.WriteByte(marker)
		h.WriteString(key)
		if bucket, ok := d.index[h.Sum64()]; ok {
			for _, pos := range bucket {
				k := stripSource(d.Pairs[pos])
				if marker == 4 && k.GetTag() == tagString && k.MutString().S == key {
					return d.Pairs[pos+1], true
				}
				if marker == 5 && k.GetTag() == tagSymbol && SymbolName(k.Symbol()) == key {
					return d.Pairs[pos+1], true
				}
			}
		}
	}
	return NewNil(), false
}

// Set sets or merges a value for key. If merge is nil, it overwrites.
func (d *Dict) Set(key, value Scmer, merge func(oldV, newV Scmer) Scmer) {
	if d.index == nil {
		d.index = make(map[uint64][]int)
		for i := 0; i+1 < len(d.Pairs); i += 2 {
			h := HashKey(d.Pairs[i])
			d.index[h] = append(d.index[h], i)
		}
	}
	h := HashKey(key)
	if pos, ok := d.findPos(key, h); ok {
		if merge != nil {
			d.Pairs[pos+1] = merge(d.Pairs[pos+1], value)
		} else {
			d.Pairs[pos+1] = value
		}
		return
	}
	// append new, keeping a fallback value at the end
	pos := d.pairLen()
	if pos < len(d.Pairs) {
		fallback := d.Pairs[pos]
		d.Pairs = append(d.Pairs[:pos], key, value, fallback)
	} else {
		d.Pairs = append(d.Pairs, key, value)
	}
	d.index[h] = append(d.index[h], pos)
}

// Fallback returns the value a call on the dict yields for missing keys.
func (d *Dict) Fallback() (Scmer, bool) {
	if len(d.Pairs)%2 == 1 {
		return d.Pairs[len(d.Pairs)-1], true
	}
	return NewNil(), false
}

func (d *Dict) Keys() []Scmer {
	keys := make([]Scmer, 0, d.pairLen()/2)
	for i := 0; i+1 < len(d.Pairs); i += 2 {
		keys = append(keys, d.Pairs[i])
	}
	return keys
}

func (d *Dict) ToList() []Scmer { return d.Pairs }

// NewDictFromSlice builds a dict from a flat (key value ... [fallback])
// slice.
func NewDictFromSlice(kv []Scmer) *Dict {
	d := NewFastDict(len(kv) / 2)
	for i := 0; i+1 < len(kv); i += 2 {
		d.Set(kv[i], kv[i+1], nil)
	}
	if len(kv)%2 == 1 {
		d.Pairs = append(d.Pairs, kv[len(kv)-1])
	}
	return d
}

func init_dict() {
	DeclareTitle("Dictionaries")

	Declare(&Globalenv, &Declaration{
		"dict", "builds a dictionary from key value pairs; an odd trailing value is the fallback for calls with a missing key",
		0, 10000,
		[]DeclarationParameter{
			{"key value...", "any", "alternating keys and values"},
		}, "dict",
		func(a ...Scmer) Scmer {
			return NewDict(NewDictFromSlice(a))
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"dict-get", "returns the value bound to key, or the given default, or nil",
		2, 3,
		[]DeclarationParameter{
			{"dict", "dict", "dictionary to read"},
			{"key", "any", "key to look up"},
			{"default", "any", "value to return on a miss"},
		}, "any",
		func(a ...Scmer) Scmer {
			d := mustDict("dict-get", a[0])
			if v, ok := d.Get(a[1]); ok {
				return v
			}
			if len(a) > 2 {
				return a[2]
			}
			if v, ok := d.Fallback(); ok {
				return v
			}
			return NewNil()
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"dict-set!", "binds key to value in place and returns the dictionary",
		3, 3,
		[]DeclarationParameter{
			{"dict", "dict", "dictionary to change"},
			{"key", "any", "key to bind"},
			{"value", "any", "value to bind"},
		}, "dict",
		func(a ...Scmer) Scmer {
			mustDict("dict-set!", a[0]).Set(a[1], a[2], nil)
			return a[0]
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"dict-keys", "returns the keys in insertion order",
		1, 1,
		[]DeclarationParameter{
			{"dict", "dict", "dictionary to read"},
		}, "list",
		func(a ...Scmer) Scmer {
			return listWithTail(mustDict("dict-keys", a[0]).Keys(), NewNil())
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"dict->list", "returns the flat (key value ...) list in insertion order",
		1, 1,
		[]DeclarationParameter{
			{"dict", "dict", "dictionary to read"},
		}, "list",
		func(a ...Scmer) Scmer {
			return listWithTail(mustDict("dict->list", a[0]).ToList(), NewNil())
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"has?", "tells whether the dictionary binds the key",
		2, 2,
		[]DeclarationParameter{
			{"dict", "dict", "dictionary to read"},
			{"key", "any", "key to look up"},
		}, "bool",
		func(a ...Scmer) Scmer {
			_, ok := mustDict("has?", a[0]).Get(a[1])
			return NewBool(ok)
		}, true,
	})
}

func mustDict(op string, v Scmer) *Dict {
	v = stripSource(v)
	if v.GetTag() != tagDict {
		panic(&TypeError{Op: op, ArgPos: 1, Expected: []string{"a dict"}, Got: typeName(v)})
	}
	return v.Dict()
}
