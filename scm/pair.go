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

// Pair is the two-slot cons cell. It carries both user data and program
// syntax. set-car!/set-cdr! mutate in place and may create cycles, so
// every walk below carries a visited set keyed by pair identity.
type Pair struct {
	Car Scmer
	Cdr Scmer
}

// stripSource unwraps reader-stamped position info from a form.
func stripSource(v Scmer) Scmer {
	for v.GetTag() == tagSourceInfo {
		v = v.SourceInfo().Value
	}
	return v
}

// list builds a proper list from the given values.
func list(elements ...Scmer) Scmer {
	result := NewNil()
	for i := len(elements) - 1; i >= 0; i-- {
		result = NewPair(elements[i], result)
	}
	return result
}

// listWithTail builds a possibly improper list ending in tail.
func listWithTail(elements []Scmer, tail Scmer) Scmer {
	result := tail
	for i := len(elements) - 1; i >= 0; i-- {
		result = NewPair(elements[i], result)
	}
	return result
}

// listToSlice walks a pair chain into a slice, returning the elements and
// the terminating tail (nil for a proper list). A cycle raises CycleError.
func listToSlice(v Scmer) ([]Scmer, Scmer) {
	var out []Scmer
	var seen map[*Pair]struct{}
	n := 0
	v = stripSource(v)
	for v.IsPair() {
		p := v.Pair()
		n++
		if n > cycleCheckThreshold {
			if seen == nil {
				seen = make(map[*Pair]struct{})
			}
			if _, ok := seen[p]; ok {
				panic(&CycleError{Op: "list traversal"})
			}
			seen[p] = struct{}{}
		}
		out = append(out, p.Car)
		v = stripSource(p.Cdr)
	}
	return out, v
}

// after this many nodes a walk starts paying for an identity set;
// short lists stay allocation-free
const cycleCheckThreshold = 64

// listStats reports length, terminating tail and cyclicity in one walk.
func listStats(v Scmer) (length int, tail Scmer, cyclic bool) {
	seen := make(map[*Pair]struct{})
	v = stripSource(v)
	for v.IsPair() {
		p := v.Pair()
		if _, ok := seen[p]; ok {
			return length, NewNil(), true
		}
		seen[p] = struct{}{}
		length++
		v = stripSource(p.Cdr)
	}
	return length, v, false
}

// isProperList reports whether v is a nil-terminated acyclic chain.
func isProperList(v Scmer) bool {
	_, tail, cyclic := listStats(v)
	return !cyclic && tail.IsNil()
}

// listLength is the cycle-safe length of a proper list; improper tails
// count their pairs only, cycles raise.
func listLength(v Scmer) int {
	length, _, cyclic := listStats(v)
	if cyclic {
		panic(&CycleError{Op: "length"})
	}
	return length
}

// forEachPair visits every pair node once, tolerating cycles. Returns
// false when fn stopped the walk.
func forEachPair(v Scmer, fn func(p *Pair) bool) bool {
	seen := make(map[*Pair]struct{})
	v = stripSource(v)
	for v.IsPair() {
		p := v.Pair()
		if _, ok := seen[p]; ok {
			return true
		}
		seen[p] = struct{}{}
		if !fn(p) {
			return false
		}
		v = stripSource(p.Cdr)
	}
	return true
}

// listRef returns the nth element of a list (0-based).
func listRef(v Scmer, n int) Scmer {
	elems, _ := listToSlice(v)
	if n < 0 || n >= len(elems) {
		panic(&TypeError{Op: "list-ref", ArgPos: 2, Expected: []string{"an index within the list"}, Got: "out of range"})
	}
	return elems[n]
}

// lastPair returns the final pair of a chain; cycles raise.
func lastPair(v Scmer) *Pair {
	v = stripSource(v)
	if !v.IsPair() {
		return nil
	}
	seen := make(map[*Pair]struct{})
	p := v.Pair()
	for {
		if _, ok := seen[p]; ok {
			panic(&CycleError{Op: "last-pair"})
		}
		seen[p] = struct{}{}
		next := stripSource(p.Cdr)
		if !next.IsPair() {
			return p
		}
		p = next.Pair()
	}
}

// listCopy clones the pair spine (elements shared); cycles raise.
func listCopy(v Scmer) Scmer {
	elems, tail := listToSlice(v)
	copied := make([]Scmer, len(elems))
	copy(copied, elems)
	return listWithTail(copied, tail)
}

// reverseList returns a fresh reversed proper list; improper input keeps
// only the pair elements, cycles raise.
func reverseList(v Scmer) Scmer {
	elems, _ := listToSlice(v)
	result := NewNil()
	for _, e := range elems {
		result = NewPair(e, result)
	}
	return result
}

// appendBang destructively appends rest to the chain starting at v and
// returns the head. Appending to nil returns rest directly.
func appendBang(v Scmer, rest Scmer) Scmer {
	last := lastPair(v)
	if last == nil {
		return rest
	}
	last.Cdr = rest
	return v
}

// car/cdr with type errors carrying the operation name; the builtins in
// list.go route through these.
func carOf(op string, v Scmer) Scmer {
	v = stripSource(v)
	if !v.IsPair() {
		panic(&TypeError{Op: op, ArgPos: 1, Expected: []string{"a pair"}, Got: typeName(v)})
	}
	return v.Pair().Car
}

func cdrOf(op string, v Scmer) Scmer {
	v = stripSource(v)
	if !v.IsPair() {
		panic(&TypeError{Op: op, ArgPos: 1, Expected: []string{"a pair"}, Got: typeName(v)})
	}
	return v.Pair().Cdr
}
