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
	"strings"
	"testing"
)

func TestMatchLiterals(t *testing.T) {
	en := testEnv()
	wantString(t, evalStr(t, en, `(match 5 5 "five" "no")`), "five")
	wantInt(t, evalStr(t, en, `(match "x" "y" 1 "x" 2)`), 2)
	wantBool(t, evalStr(t, en, `(nil? (match 5 6 1))`), true)
	// an odd trailing form is the default branch
	wantInt(t, evalStr(t, en, `(match 5 6 1 99)`), 99)
}

func TestMatchSymbolBind(t *testing.T) {
	en := testEnv()
	wantInt(t, evalStr(t, en, `(match 42 x (+ x 1))`), 43)
	wantString(t, evalStr(t, en, `(match 42 _ "hit")`), "hit")
	// _ does not create a binding
	wantBool(t, evalStr(t, en, `(match 42 _ (bound? '_))`), false)
	// match bindings stay inside the branch
	wantBool(t, evalStr(t, en, `(begin (match 1 fresh fresh) (bound? 'fresh))`), false)
}

func TestMatchQuoted(t *testing.T) {
	en := testEnv()
	// a quoted symbol matches that symbol literally
	wantInt(t, evalStr(t, en, `(match 'foo 'foo 1 2)`), 1)
	wantInt(t, evalStr(t, en, `(match 'bar 'foo 1 2)`), 2)
	wantString(t, evalStr(t, en, `(match '() '() "empty" "no")`), "empty")
	// list elements are again patterns, symbols unify
	wantInt(t, evalStr(t, en, `(match '(add 1 2) '(add a b) (+ a b))`), 3)
	wantRepr(t, evalStr(t, en, `(match '((1 2) 3) '((x y) z) (list z y x))`), "(3 2 1)")
	// a dotted tail captures the rest
	wantRepr(t, evalStr(t, en, `(match '(1 2 3) '(a . rest) rest)`), "(2 3)")
	wantString(t, evalStr(t, en, `(match '(1 2) '(a b c) "long" "short")`), "short")
}

func TestMatchListHead(t *testing.T) {
	en := testEnv()
	// (symbol s) pins the head to one symbol
	wantInt(t, evalStr(t, en, `(match '(add 1 2) (list (symbol add) a b) (+ a b) -1)`), 3)
	wantInt(t, evalStr(t, en, `(match '(mul 1 2) (list (symbol add) a b) (+ a b) -1)`), -1)
	wantString(t, evalStr(t, en, `(match '(1 2 3) (list a b) "two" "other")`), "other")
}

func TestMatchCons(t *testing.T) {
	en := testEnv()
	wantRepr(t, evalStr(t, en, `(match '(1 2 3) (cons h t) (list h t))`), "(1 (2 3))")
	// the empty list does not split
	wantInt(t, evalStr(t, en, `(match '() (cons h t) 1 2)`), 2)
}

func TestMatchConcat(t *testing.T) {
	en := testEnv()
	wantString(t, evalStr(t, en, `(match "v=42" (concat "v=" rest) rest "no")`), "42")
	wantString(t, evalStr(t, en, `(match "file.txt" (concat base ".txt") base "no")`), "file")
	wantRepr(t, evalStr(t, en, `(match "a=b" (concat k "=" v) (list k v))`), `("a" "b")`)
	wantString(t, evalStr(t, en, `(match "other" (concat "v=" rest) rest "no")`), "no")
	// bound variables resolve inside the pattern
	wantRepr(t, evalStr(t, en, `
		(define sep "=")
		(match "a=b" (concat k sep v) (list k v))`), `("a" "b")`)
}

func TestMatchRegex(t *testing.T) {
	en := testEnv()
	wantString(t, evalStr(t, en, `(match "v=5" (regex "^v=(.*)$" _ v) v "no")`), "5")
	// the first variable receives the whole match
	wantString(t, evalStr(t, en, `(match "aaa" (regex "^a+$" w) w)`), "aaa")
	// a compiled regex value works as the pattern
	wantString(t, evalStr(t, en, `
		(define re (regex "a(b)"))
		(match "ab" (regex re _ b) b "no")`), "b")
	wantInt(t, evalStr(t, en, `(match 5 (regex "a" _) 1 2)`), 2)
	cause, ok := evalPanic(t, en, `(match "x" (regex "^(a)(b)$" _ one) 1)`).(string)
	if !ok || !strings.Contains(cause, "subexpressions") {
		t.Fatalf("wrong variable count should report the subexpression mismatch")
	}
}

func TestMatchEval(t *testing.T) {
	en := testEnv()
	wantString(t, evalStr(t, en, `(match 7 (eval (+ 3 4)) "seven" "no")`), "seven")
	wantString(t, evalStr(t, en, `(match 8 (eval (+ 3 4)) "seven" "no")`), "no")
}

func TestMatchIgnoreCase(t *testing.T) {
	en := testEnv()
	wantInt(t, evalStr(t, en, `(match "HELLO" (ignorecase "hello") 1 2)`), 1)
	wantInt(t, evalStr(t, en, `(match "other" (ignorecase "hello") 1 2)`), 2)
	wantInt(t, evalStr(t, en, `(match 5 (ignorecase "5") 1 2)`), 2)
}

func TestMatchUnknownPattern(t *testing.T) {
	en := testEnv()
	cause, ok := evalPanic(t, en, `(match 1 (bogus y) 1)`).(string)
	if !ok || !strings.HasPrefix(cause, "unknown match pattern") {
		t.Fatalf("an unknown head should be rejected, got %v", cause)
	}
}
