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
	"fmt"
	"regexp"
	"strings"
)

// valueFromPattern resolves a pattern atom: a symbol reads its binding
// when one exists, everything else stands for itself.
func valueFromPattern(pattern Scmer, en *Env) Scmer {
	pattern = stripSource(pattern)
	if pattern.GetTag() == tagSymbol {
		s := pattern.Symbol()
		frame := en.FindRead(s)
		if v, ok := frame.Vars[s]; ok {
			return v
		}
	}
	return pattern
}

// pattern matching
func match(val Scmer, pattern Scmer, en *Env) bool {
	/* our custom implementation of match consisting of:
	(match value pattern result pattern result pattern result [default])
	where pattern may be string, number, symbol, quoted list or applications
	 - string and number will match on equality
	 - symbol will read the value into a variable (_ binds nothing)
	 - '(sub sub ...) will unify the list contents, every element again a pattern
	 - (symbol s) will only match the symbol s
	 - (ignorecase s) will match a string regardless of case
	 - (concat string symbol) will split prefix
	 - (concat symbol string symbol) will split infix
	 - (concat symbol string) will split postfix
	 - (cons x y) will split a list (x and y will be unified)
	 - (regex "(.*)=(.*)" _ symbol symbol) will parse regex
	 - (eval expr) will match the value result from expr
	*/
	pattern = stripSource(pattern)
	switch pattern.GetTag() {
	case tagSymbol:
		sym := pattern.Symbol()
		if sym == symUnderscore {
			return true
		}
		// unify value into variable
		en.Vars[sym] = val
		return true
	case tagPair:
		// handled below
	default:
		return Equal(val, pattern)
	}
	elems, tail := listToSlice(pattern)
	if !tail.IsNil() || len(elems) == 0 {
		panic("unknown match pattern: " + Repr(pattern))
	}
	head := stripSource(elems[0])
	if head.GetTag() != tagSymbol {
		panic("unknown match pattern: " + Repr(pattern))
	}
	switch head.Symbol() {
	case symQuote:
		if len(elems) != 2 {
			panic("unknown match pattern: " + Repr(pattern))
		}
		return matchQuoted(val, elems[1], en)
	case symList:
		return matchListPattern(val, elems[1:], en)
	case symEval:
		if len(elems) != 2 {
			panic("unknown match pattern: " + Repr(pattern))
		}
		return Equal(force(Eval(elems[1], en)), force(val))
	case symSymbol:
		if len(elems) != 2 {
			panic("unknown match pattern: " + Repr(pattern))
		}
		inner := stripSource(elems[1])
		v := stripSource(val)
		return v.GetTag() == tagSymbol && inner.GetTag() == tagSymbol && v.Symbol() == inner.Symbol()
	case symIgnoreCase:
		if len(elems) != 2 {
			panic("unknown match pattern: " + Repr(pattern))
		}
		p1 := valueFromPattern(elems[1], en)
		v := stripSource(force(val))
		if v.GetTag() == tagString && p1.GetTag() == tagString {
			return strings.EqualFold(v.String(), p1.String())
		}
		return false
	case symConcat:
		return matchConcat(val, elems[1:], en, pattern)
	case symCons:
		if len(elems) != 3 {
			panic("unknown match pattern: " + Repr(pattern))
		}
		v := stripSource(force(val))
		if !v.IsPair() {
			return false // empty list does not match cons
		}
		pr := v.Pair()
		return match(pr.Car, elems[1], en) && match(pr.Cdr, elems[2], en)
	case symRegex:
		if len(elems) < 3 {
			panic("unknown match pattern: " + Repr(pattern))
		}
		return matchRegex(val, elems, en)
	}
	panic("unknown match pattern: " + Repr(pattern))
}

// matchQuoted treats a quoted datum as a pattern: lists unify element by
// element with every element again a pattern, symbols match literally,
// atoms match on equality.
func matchQuoted(val Scmer, datum Scmer, en *Env) bool {
	datum = stripSource(datum)
	switch datum.GetTag() {
	case tagSymbol:
		v := stripSource(val)
		return v.GetTag() == tagSymbol && v.Symbol() == datum.Symbol()
	case tagNil:
		return stripSource(force(val)).IsNil()
	case tagPair:
		cur := stripSource(force(val))
		d := datum
		for {
			d = stripSource(d)
			if d.IsNil() {
				return cur.IsNil()
			}
			if !d.IsPair() {
				// dotted pattern: the tail is a pattern for the rest
				return match(cur, d, en)
			}
			if !cur.IsPair() {
				return false
			}
			dp := d.Pair()
			cp := cur.Pair()
			sub := stripSource(dp.Car)
			if sub.GetTag() == tagPair || sub.IsNil() {
				if !matchQuoted(cp.Car, sub, en) {
					return false
				}
			} else if !match(cp.Car, sub, en) {
				return false
			}
			d = dp.Cdr
			cur = stripSource(cp.Cdr)
		}
	default:
		return Equal(val, datum)
	}
}

func matchListPattern(val Scmer, patterns []Scmer, en *Env) bool {
	cur := stripSource(force(val))
	// only list and list will match
	for _, p := range patterns {
		if !cur.IsPair() {
			return false
		}
		pr := cur.Pair()
		if !match(pr.Car, p, en) {
			return false
		}
		cur = stripSource(pr.Cdr)
	}
	return cur.IsNil()
}

func matchConcat(val Scmer, parts []Scmer, en *Env, pattern Scmer) bool {
	v := stripSource(force(val))
	if v.GetTag() != tagString {
		return false // non-strings are not matching
	}
	s := v.String()
	bind := func(target Scmer, str string) {
		if sym := target.Symbol(); sym != symUnderscore {
			en.Vars[sym] = NewString(str)
		}
	}
	if len(parts) == 2 {
		p1 := valueFromPattern(parts[0], en)
		p2 := valueFromPattern(parts[1], en)
		if p1.GetTag() == tagString && p2.GetTag() == tagSymbol {
			// "prefix" variable
			prefix := p1.String()
			if strings.HasPrefix(s, prefix) {
				bind(p2, s[len(prefix):])
				return true
			}
			return false
		}
		if p1.GetTag() == tagSymbol && p2.GetTag() == tagString {
			// variable "postfix"
			postfix := p2.String()
			if strings.HasSuffix(s, postfix) {
				bind(p1, s[:len(s)-len(postfix)])
				return true
			}
			return false
		}
	} else if len(parts) == 3 {
		p1 := valueFromPattern(parts[0], en)
		mid := valueFromPattern(parts[1], en)
		p3 := valueFromPattern(parts[2], en)
		if p1.GetTag() == tagSymbol && mid.GetTag() == tagString && p3.GetTag() == tagSymbol {
			// variable "infix" variable
			infix := mid.String()
			idx := strings.Index(s, infix)
			if idx < 0 {
				return false
			}
			bind(p1, s[:idx])
			bind(p3, s[idx+len(infix):])
			return true
		}
	}
	panic("unknown concat pattern: " + Repr(pattern))
}

func matchRegex(val Scmer, elems []Scmer, en *Env) bool {
	// syntax: (match "v=5" (regex "^v=(.*)" _ v) (print "v is " v))
	// for multiline parsing, use (?ms:<REGEXP>)
	// for additional info, see https://github.com/google/re2/wiki/Syntax
	v := stripSource(force(val))
	if v.GetTag() != tagString {
		return false // non-strings are not matching regex
	}
	p1 := valueFromPattern(elems[1], en)
	var re *regexp.Regexp
	switch p1.GetTag() {
	case tagString:
		var err error
		re, err = regexp.Compile(p1.String())
		if err != nil {
			panic(err)
		}
	case tagRegex:
		re = p1.Regex().Re
	default:
		panic("regex expects string")
	}
	if re.NumSubexp() != len(elems)-3 {
		panic("regex " + re.String() + " contains " + fmt.Sprint(re.NumSubexp()) + " subexpressions, found " + fmt.Sprint(len(elems)-3))
	}
	m := re.FindStringSubmatch(v.String())
	if m == nil {
		return false
	}
	for i := 0; i <= re.NumSubexp(); i++ {
		target := stripSource(elems[i+2])
		if target.GetTag() != tagSymbol {
			panic("regex variable invalid: " + Repr(target))
		}
		if sym := target.Symbol(); sym != symUnderscore {
			en.Vars[sym] = NewString(m[i])
		}
	}
	return true
}
