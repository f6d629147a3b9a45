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
	"testing"
)

func TestDictBuilderAndGet(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `(define d (dict "a" 1 "b" 2))`)
	wantInt(t, evalStr(t, en, `(dict-get d "a")`), 1)
	wantInt(t, evalStr(t, en, `(dict-get d "b")`), 2)
	wantBool(t, evalStr(t, en, `(nil? (dict-get d "x"))`), true)
	wantInt(t, evalStr(t, en, `(dict-get d "x" 99)`), 99)
	wantBool(t, evalStr(t, en, `(nil? (dict-get (dict) "x"))`), true)
}

func TestDictFallback(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `(define d (dict "a" 1 0))`)
	wantInt(t, evalStr(t, en, `(d "a")`), 1)
	wantInt(t, evalStr(t, en, `(d "missing")`), 0)
	wantInt(t, evalStr(t, en, `(dict-get d "missing")`), 0)
	// an explicit default wins over the fallback
	wantInt(t, evalStr(t, en, `(dict-get d "missing" 7)`), 7)
}

func TestDictApplyAsFunction(t *testing.T) {
	en := testEnv()
	wantInt(t, evalStr(t, en, `((dict "a" 1) "a")`), 1)
	wantBool(t, evalStr(t, en, `(nil? ((dict "a" 1)))`), true)
	wantBool(t, evalStr(t, en, `(nil? ((dict "a" 1) "zz"))`), true)
}

func TestDictSetInPlace(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `(define d (dict "a" 1))`)
	wantInt(t, evalStr(t, en, `(begin (dict-set! d "b" 2) (dict-get d "b"))`), 2)
	// dict-set! returns the dictionary itself
	wantInt(t, evalStr(t, en, `(dict-get (dict-set! d "a" 5) "a")`), 5)
	// overwriting keeps the original insertion position
	wantRepr(t, evalStr(t, en, `
		(define d2 (dict "x" 1 "y" 2))
		(dict-set! d2 "x" 9)
		(dict-keys d2)`), `("x" "y")`)
}

func TestDictKeysInsertionOrder(t *testing.T) {
	en := testEnv()
	wantRepr(t, evalStr(t, en, `(dict-keys (dict "one" 1 "two" 2 "three" 3))`), `("one" "two" "three")`)
	wantRepr(t, evalStr(t, en, `(dict-keys (dict))`), "()")
	wantRepr(t, evalStr(t, en, `
		(define d (dict "a" 1))
		(dict-set! d "b" 2)
		(dict-keys d)`), `("a" "b")`)
}

func TestDictToList(t *testing.T) {
	en := testEnv()
	wantRepr(t, evalStr(t, en, `(dict->list (dict "a" 1 "b" 2))`), `("a" 1 "b" 2)`)
	// the odd trailing fallback stays at the end
	wantRepr(t, evalStr(t, en, `(dict->list (dict "a" 1 0))`), `("a" 1 0)`)
}

func TestDictHas(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `(define d (dict "a" 1 0))`)
	wantBool(t, evalStr(t, en, `(has? d "a")`), true)
	// the fallback is not a binding
	wantBool(t, evalStr(t, en, `(has? d "zz")`), false)
}

func TestDictCompositeKeys(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `(define d (dict 1 "one" 'sym "s" '(1 2) "pair"))`)
	wantString(t, evalStr(t, en, `(dict-get d 1)`), "one")
	wantString(t, evalStr(t, en, `(dict-get d 'sym)`), "s")
	// list keys hash by content, a fresh equal list finds the entry
	wantString(t, evalStr(t, en, `(dict-get d (list 1 2))`), "pair")
}

func TestDictTypeError(t *testing.T) {
	en := testEnv()
	if _, ok := evalPanic(t, en, `(dict-get '(1) "a")`).(*TypeError); !ok {
		t.Fatalf("dict-get on a list should be a type error")
	}
}
