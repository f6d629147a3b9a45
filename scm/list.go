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

import "sort"

func pairArg(op string, pos int, a []Scmer) *Pair {
	v := stripSource(a[pos-1])
	if !v.IsPair() {
		panic(&TypeError{Op: op, ArgPos: pos, Expected: []string{"a pair"}, Got: typeName(v)})
	}
	return v.Pair()
}

// properListArg materializes a proper list; improper tails are type errors
// and cycles surface as CycleError from the walker.
func properListArg(op string, pos int, a []Scmer) []Scmer {
	elems, tail := listToSlice(a[pos-1])
	if !stripSource(tail).IsNil() {
		panic(&TypeError{Op: op, ArgPos: pos, Expected: []string{"a proper list"}, Got: "an improper list"})
	}
	return elems
}

// carChain applies a cadr-style accessor path, rightmost letter first.
func carChain(name, path string) func(a ...Scmer) Scmer {
	return func(a ...Scmer) Scmer {
		v := a[0]
		for i := len(path) - 1; i >= 0; i-- {
			s := stripSource(v)
			if !s.IsPair() {
				panic(&TypeError{Op: name, ArgPos: 1, Expected: []string{"a pair"}, Got: typeName(s)})
			}
			if path[i] == 'a' {
				v = s.Pair().Car
			} else {
				v = s.Pair().Cdr
			}
		}
		return v
	}
}

// lastPairOf walks to the final pair of a list, cycle-guarded.
func lastPairOf(op string, v Scmer) *Pair {
	cur := stripSource(v)
	if !cur.IsPair() {
		panic(&TypeError{Op: op, ArgPos: 1, Expected: []string{"a pair"}, Got: typeName(cur)})
	}
	p := cur.Pair()
	n := 0
	var seen map[*Pair]struct{}
	for {
		next := stripSource(p.Cdr)
		if !next.IsPair() {
			return p
		}
		n++
		if n > cycleCheckThreshold {
			if seen == nil {
				seen = make(map[*Pair]struct{})
			}
			if _, ok := seen[p]; ok {
				panic(&CycleError{Op: op})
			}
			seen[p] = struct{}{}
		}
		p = next.Pair()
	}
}

func init_list() {
	DeclareTitle("Lists")

	Declare(&Globalenv, &Declaration{
		"cons", "constructs a pair from a head and a tail",
		2, 2,
		[]DeclarationParameter{
			{"car", "any", "new head element"},
			{"cdr", "any", "tail, usually a list"},
		}, "list",
		func(a ...Scmer) Scmer {
			return NewPair(a[0], a[1])
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"car", "extracts the head of a pair",
		1, 1,
		[]DeclarationParameter{
			{"pair", "list", "pair"},
		}, "any",
		func(a ...Scmer) Scmer {
			return pairArg("car", 1, a).Car
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"cdr", "extracts the tail of a pair",
		1, 1,
		[]DeclarationParameter{
			{"pair", "list", "pair"},
		}, "any",
		func(a ...Scmer) Scmer {
			return pairArg("cdr", 1, a).Cdr
		}, true,
	})
	for _, acc := range []string{"caar", "cadr", "cdar", "cddr", "caddr", "cdddr"} {
		name := acc
		Declare(&Globalenv, &Declaration{
			name, "composed car/cdr accessor " + name,
			1, 1,
			[]DeclarationParameter{
				{"pair", "list", "nested pair"},
			}, "any",
			carChain(name, name[1:len(name)-1]), true,
		})
	}
	Declare(&Globalenv, &Declaration{
		"set-car!", "replaces the head of a pair in place",
		2, 2,
		[]DeclarationParameter{
			{"pair", "list", "pair to mutate"},
			{"value", "any", "new head"},
		}, "nil",
		func(a ...Scmer) Scmer {
			pairArg("set-car!", 1, a).Car = a[1]
			return NewVoid()
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"set-cdr!", "replaces the tail of a pair in place",
		2, 2,
		[]DeclarationParameter{
			{"pair", "list", "pair to mutate"},
			{"value", "any", "new tail"},
		}, "nil",
		func(a ...Scmer) Scmer {
			pairArg("set-cdr!", 1, a).Cdr = a[1]
			return NewVoid()
		}, false,
	})

	Declare(&Globalenv, &Declaration{
		"list", "builds a list from its arguments",
		0, 1000,
		[]DeclarationParameter{
			{"item...", "any", "list items"},
		}, "list",
		func(a ...Scmer) Scmer {
			return listWithTail(a, NewNil())
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"pair?", "tells if the value is a pair",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(stripSource(a[0]).IsPair())
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"null?", "tells if the value is the empty list",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(stripSource(a[0]).IsNil())
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"nil?", "tells if the value is nil",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(stripSource(a[0]).IsNil())
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"list?", "tells if the value is a proper list; cyclic lists are not",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(isProperList(a[0]))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"length", "counts the elements of a proper list",
		1, 1,
		[]DeclarationParameter{
			{"list", "list", "list to measure"},
		}, "int",
		func(a ...Scmer) Scmer {
			return NewInt(int64(len(properListArg("length", 1, a))))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"append", "concatenates lists; all but the last are copied, the last may be any tail",
		0, 1000,
		[]DeclarationParameter{
			{"list...", "list", "lists to concatenate"},
		}, "list",
		func(a ...Scmer) Scmer {
			if len(a) == 0 {
				return NewNil()
			}
			var out []Scmer
			for i := 0; i < len(a)-1; i++ {
				out = append(out, properListArg("append", i+1, a)...)
			}
			return listWithTail(out, a[len(a)-1])
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"append!", "concatenates lists destructively by splicing their tail pairs",
		0, 1000,
		[]DeclarationParameter{
			{"list...", "list", "lists to splice together"},
		}, "list",
		func(a ...Scmer) Scmer {
			result := NewNil()
			var last *Pair
			for i, v := range a {
				v = stripSource(v)
				if v.IsNil() {
					continue
				}
				if !v.IsPair() {
					if i == len(a)-1 {
						if last == nil {
							return v
						}
						last.Cdr = v
						return result
					}
					panic(&TypeError{Op: "append!", ArgPos: i + 1, Expected: []string{"a list"}, Got: typeName(v)})
				}
				if last == nil {
					result = v
				} else {
					last.Cdr = v
				}
				last = lastPairOf("append!", v)
			}
			return result
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"reverse", "returns the list in reverse order",
		1, 1,
		[]DeclarationParameter{
			{"list", "list", "list to reverse"},
		}, "list",
		func(a ...Scmer) Scmer {
			elems := properListArg("reverse", 1, a)
			out := NewNil()
			for _, e := range elems {
				out = NewPair(e, out)
			}
			return out
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"list-copy", "copies the pair spine of a list; the elements are shared",
		1, 1,
		[]DeclarationParameter{
			{"list", "list", "list to copy"},
		}, "list",
		func(a ...Scmer) Scmer {
			v := stripSource(a[0])
			if !v.IsPair() {
				return v
			}
			elems, tail := listToSlice(v)
			return listWithTail(elems, tail)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"list-tail", "drops the first k elements of a list",
		2, 2,
		[]DeclarationParameter{
			{"list", "list", "list"},
			{"k", "int", "number of elements to drop"},
		}, "any",
		func(a ...Scmer) Scmer {
			v := a[0]
			k := ToInt(a[1])
			for i := int64(0); i < k; i++ {
				p := stripSource(v)
				if !p.IsPair() {
					panic(&TypeError{Op: "list-tail", ArgPos: 1, Expected: []string{"a list with at least k pairs"}, Got: typeName(p)})
				}
				v = p.Pair().Cdr
			}
			return v
		}, true,
	})
	listRefFn := func(a ...Scmer) Scmer {
		v := a[0]
		k := ToInt(a[1])
		for i := int64(0); ; i++ {
			p := stripSource(v)
			if !p.IsPair() {
				panic(&TypeError{Op: "list-ref", ArgPos: 1, Expected: []string{"a list with more than k pairs"}, Got: typeName(p)})
			}
			if i == k {
				return p.Pair().Car
			}
			v = p.Pair().Cdr
		}
	}
	Declare(&Globalenv, &Declaration{
		"list-ref", "gets the k-th item of a list, counting from 0",
		2, 2,
		[]DeclarationParameter{
			{"list", "list", "list"},
			{"k", "int", "index beginning from 0"},
		}, "any",
		listRefFn, true,
	})
	Declare(&Globalenv, &Declaration{
		"nth", "gets the k-th item of a list, counting from 0",
		2, 2,
		[]DeclarationParameter{
			{"list", "list", "list"},
			{"k", "int", "index beginning from 0"},
		}, "any",
		listRefFn, true,
	})
	Declare(&Globalenv, &Declaration{
		"last-pair", "returns the final pair of a list",
		1, 1,
		[]DeclarationParameter{
			{"list", "list", "list"},
		}, "list",
		func(a ...Scmer) Scmer {
			return NewPairPtr(lastPairOf("last-pair", a[0]))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"iota", "returns a list of count numbers, by default 0..count-1",
		1, 3,
		[]DeclarationParameter{
			{"count", "int", "number of elements"},
			{"start", "number", "first value (optional, default 0)"},
			{"step", "number", "increment (optional, default 1)"},
		}, "list",
		func(a ...Scmer) Scmer {
			n := ToInt(a[0])
			cur := Scmer(NewInt(0))
			if len(a) > 1 {
				cur = numberOpArg("iota", 2, a)
			}
			step := Scmer(NewInt(1))
			if len(a) > 2 {
				step = numberOpArg("iota", 3, a)
			}
			out := make([]Scmer, 0, n)
			for i := int64(0); i < n; i++ {
				out = append(out, cur)
				cur = numAdd(cur, step)
			}
			return listWithTail(out, NewNil())
		}, true,
	})

	Declare(&Globalenv, &Declaration{
		"map", "applies a function to the elements of one or more lists; stops at the shortest",
		2, 1000,
		[]DeclarationParameter{
			{"fn", "func", "mapping function, one parameter per list"},
			{"list...", "list", "input lists"},
		}, "list",
		func(a ...Scmer) Scmer {
			fn := a[0]
			lists := make([][]Scmer, len(a)-1)
			shortest := -1
			for i := range lists {
				lists[i] = properListArg("map", i+2, a)
				if shortest < 0 || len(lists[i]) < shortest {
					shortest = len(lists[i])
				}
			}
			out := make([]Scmer, shortest)
			args := make([]Scmer, len(lists))
			for i := 0; i < shortest; i++ {
				for j := range lists {
					args[j] = lists[j][i]
				}
				out[i] = Apply(fn, args...)
			}
			return listWithTail(out, NewNil())
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"for-each", "applies a function to the elements of one or more lists for its side effects",
		2, 1000,
		[]DeclarationParameter{
			{"fn", "func", "function, one parameter per list"},
			{"list...", "list", "input lists"},
		}, "nil",
		func(a ...Scmer) Scmer {
			fn := a[0]
			lists := make([][]Scmer, len(a)-1)
			shortest := -1
			for i := range lists {
				lists[i] = properListArg("for-each", i+2, a)
				if shortest < 0 || len(lists[i]) < shortest {
					shortest = len(lists[i])
				}
			}
			args := make([]Scmer, len(lists))
			for i := 0; i < shortest; i++ {
				for j := range lists {
					args[j] = lists[j][i]
				}
				force(Apply(fn, args...))
			}
			return NewVoid()
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"filter", "returns the elements for which the predicate holds",
		2, 2,
		[]DeclarationParameter{
			{"pred", "func", "predicate function"},
			{"list", "list", "input list"},
		}, "list",
		func(a ...Scmer) Scmer {
			pred := a[0]
			elems := properListArg("filter", 2, a)
			out := make([]Scmer, 0, len(elems))
			for _, e := range elems {
				if ToBool(force(Apply(pred, e))) {
					out = append(out, e)
				}
			}
			return listWithTail(out, NewNil())
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"reduce", "left-folds a list; without a neutral element the first item seeds the accumulator",
		2, 3,
		[]DeclarationParameter{
			{"fn", "func", "reduce function (accumulator item) -> accumulator"},
			{"list", "list", "list to reduce"},
			{"neutral", "any", "initial accumulator (optional)"},
		}, "any",
		func(a ...Scmer) Scmer {
			fn := a[0]
			elems := properListArg("reduce", 2, a)
			acc := NewNil()
			i := 0
			if len(a) > 2 {
				acc = a[2]
			} else if len(elems) > 0 {
				acc = elems[0]
				i = 1
			}
			for ; i < len(elems); i++ {
				acc = force(Apply(fn, acc, elems[i]))
			}
			return acc
		}, false,
	})

	memberWith := func(op string, a []Scmer, same func(x, y Scmer) bool) Scmer {
		obj := a[0]
		cur := stripSource(a[1])
		n := 0
		var seen map[*Pair]struct{}
		for cur.IsPair() {
			p := cur.Pair()
			hit := false
			if len(a) > 2 {
				hit = ToBool(force(Apply(a[2], obj, p.Car)))
			} else {
				hit = same(obj, p.Car)
			}
			if hit {
				return cur
			}
			n++
			if n > cycleCheckThreshold {
				if seen == nil {
					seen = make(map[*Pair]struct{})
				}
				if _, ok := seen[p]; ok {
					panic(&CycleError{Op: op})
				}
				seen[p] = struct{}{}
			}
			cur = stripSource(p.Cdr)
		}
		return NewBool(false)
	}
	Declare(&Globalenv, &Declaration{
		"member", "returns the sublist starting at the first equal? occurrence, or false",
		2, 3,
		[]DeclarationParameter{
			{"obj", "any", "value to look for"},
			{"list", "list", "list to search"},
			{"compare", "func", "custom two-argument comparison (optional)"},
		}, "any",
		func(a ...Scmer) Scmer {
			return memberWith("member", a, func(x, y Scmer) bool { return Equal(x, y) })
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"memq", "returns the sublist starting at the first eq? occurrence, or false",
		2, 2,
		[]DeclarationParameter{
			{"obj", "any", "value to look for"},
			{"list", "list", "list to search"},
		}, "any",
		func(a ...Scmer) Scmer {
			return memberWith("memq", a, eq)
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"memv", "returns the sublist starting at the first eqv? occurrence, or false",
		2, 2,
		[]DeclarationParameter{
			{"obj", "any", "value to look for"},
			{"list", "list", "list to search"},
		}, "any",
		func(a ...Scmer) Scmer {
			return memberWith("memv", a, Eqv)
		}, false,
	})

	assocWith := func(op string, a []Scmer, same func(x, y Scmer) bool) Scmer {
		obj := a[0]
		cur := stripSource(a[1])
		n := 0
		var seen map[*Pair]struct{}
		for cur.IsPair() {
			p := cur.Pair()
			entry := stripSource(p.Car)
			if entry.IsPair() {
				hit := false
				if len(a) > 2 {
					hit = ToBool(force(Apply(a[2], obj, entry.Pair().Car)))
				} else {
					hit = same(obj, entry.Pair().Car)
				}
				if hit {
					return entry
				}
			}
			n++
			if n > cycleCheckThreshold {
				if seen == nil {
					seen = make(map[*Pair]struct{})
				}
				if _, ok := seen[p]; ok {
					panic(&CycleError{Op: op})
				}
				seen[p] = struct{}{}
			}
			cur = stripSource(p.Cdr)
		}
		return NewBool(false)
	}
	Declare(&Globalenv, &Declaration{
		"assoc", "finds the first pair of an association list whose head is equal? to obj",
		2, 3,
		[]DeclarationParameter{
			{"obj", "any", "key to look for"},
			{"alist", "list", "list of (key . value) pairs"},
			{"compare", "func", "custom two-argument comparison (optional)"},
		}, "any",
		func(a ...Scmer) Scmer {
			return assocWith("assoc", a, func(x, y Scmer) bool { return Equal(x, y) })
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"assq", "finds the first pair of an association list whose head is eq? to obj",
		2, 2,
		[]DeclarationParameter{
			{"obj", "any", "key to look for"},
			{"alist", "list", "list of (key . value) pairs"},
		}, "any",
		func(a ...Scmer) Scmer {
			return assocWith("assq", a, eq)
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"assv", "finds the first pair of an association list whose head is eqv? to obj",
		2, 2,
		[]DeclarationParameter{
			{"obj", "any", "key to look for"},
			{"alist", "list", "list of (key . value) pairs"},
		}, "any",
		func(a ...Scmer) Scmer {
			return assocWith("assv", a, Eqv)
		}, false,
	})

	Declare(&Globalenv, &Declaration{
		"sort", "sorts a list, by default in the builtin order, stable",
		1, 2,
		[]DeclarationParameter{
			{"list", "list", "list to sort"},
			{"less", "func", "two-argument ordering predicate (optional)"},
		}, "list",
		func(a ...Scmer) Scmer {
			elems := properListArg("sort", 1, a)
			out := make([]Scmer, len(elems))
			copy(out, elems)
			if len(a) > 1 {
				less := a[1]
				sort.SliceStable(out, func(i, j int) bool {
					return ToBool(force(Apply(less, out[i], out[j])))
				})
			} else {
				sort.SliceStable(out, func(i, j int) bool {
					return Less(out[i], out[j])
				})
			}
			return listWithTail(out, NewNil())
		}, false,
	})
}
