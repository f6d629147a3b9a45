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

func TestParserCapture(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `(define calc (parser
		(list (define a (regex "[0-9]+")) "+" (define b (regex "[0-9]+")))
		(+ (simplify a) (simplify b))))`)
	wantInt(t, evalStr(t, en, `(calc "12 + 30")`), 42)
	wantInt(t, evalStr(t, en, `(calc "1+2")`), 3)
	wantBool(t, evalStr(t, en, `(nil? (calc))`), true)
	cause := evalPanic(t, en, `(calc "12 -")`)
	if _, ok := cause.(error); !ok {
		t.Fatalf("expected parse error, got %v", cause)
	}
}

func TestParserAlternatives(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `(define yn (parser (define x (or "yes" "no")) x))`)
	wantString(t, evalStr(t, en, `(yn "no")`), "no")
	wantString(t, evalStr(t, en, `(yn "yes")`), "yes")
}

func TestParserKleene(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `(define csv (parser (define xs (* (regex "[0-9]+") ",")) (map simplify xs)))`)
	wantRepr(t, evalStr(t, en, `(csv "1,2,3")`), "(1 2 3)")
	wantRepr(t, evalStr(t, en, `(csv "7")`), "(7)")
}

func TestParserMaybe(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `(define num (parser
		(list (define s (? "-")) (define n (regex "[0-9]+")))
		(if (nil? s) (simplify n) (- 0 (simplify n)))))`)
	wantInt(t, evalStr(t, en, `(num "-5")`), -5)
	wantInt(t, evalStr(t, en, `(num "5")`), 5)
}

func TestParserEndMarker(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `(define full (parser (list (define n (regex "[0-9]+")) $) (simplify n)))`)
	wantInt(t, evalStr(t, en, `(full "42")`), 42)
	cause := evalPanic(t, en, `(full "42x")`)
	if _, ok := cause.(error); !ok {
		t.Fatalf("trailing garbage should fail the parse, got %v", cause)
	}
}

func TestParserRecursion(t *testing.T) {
	en := testEnv()
	// fallbacks for branch variables the other branch never binds
	evalStr(t, en, `(define e '()) (define n '())`)
	// parens references itself before its define completes
	evalStr(t, en, `(define parens (parser
		(or (list "(" (define e parens) ")")
		    (define n (regex "[0-9]+")))
		(if (nil? n) e (simplify n))))`)
	wantInt(t, evalStr(t, en, `(parens "7")`), 7)
	wantInt(t, evalStr(t, en, `(parens "((7))")`), 7)
}

func TestParserNested(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `(define wrap (parser
		(list "[" (define x (parser (define d (regex "[0-9]+")) (simplify d))) "]")
		x))`)
	wantInt(t, evalStr(t, en, `(wrap "[8]")`), 8)
	wantInt(t, evalStr(t, en, `(wrap "[ 12 ]")`), 12)
}

func TestParserCustomSkipper(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `(define strict (parser (list "a" "b" $) "ok" "^-+"))`)
	wantString(t, evalStr(t, en, `(strict "a-b")`), "ok")
	wantString(t, evalStr(t, en, `(strict "ab")`), "ok")
	cause := evalPanic(t, en, `(strict "a b")`)
	if _, ok := cause.(error); !ok {
		t.Fatalf("space should not be skippable here, got %v", cause)
	}
}
