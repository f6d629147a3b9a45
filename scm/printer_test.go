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

func TestReprCycle(t *testing.T) {
	en := testEnv()
	evalStr(t, en, "(define l (list 1 2))")
	evalStr(t, en, "(set-cdr! (cdr l) l)")
	wantRepr(t, evalStr(t, en, "l"), "#1=(1 2 . #1#)")
}

func TestReprSharedStructure(t *testing.T) {
	en := testEnv()
	evalStr(t, en, "(define x (list 1 2))")
	// shared but acyclic structure still gets labels so it reads back
	wantRepr(t, evalStr(t, en, "(list x x)"), "(#1=(1 2) #1#)")
	// equal but distinct lists stay unlabeled
	wantRepr(t, evalStr(t, en, "(list (list 1 2) (list 1 2))"), "((1 2) (1 2))")
}

func TestReprQuoteAbbrev(t *testing.T) {
	en := testEnv()
	wantRepr(t, evalStr(t, en, "''x"), "'x")
	wantRepr(t, evalStr(t, en, "''(1 2)"), "'(1 2)")
	wantRepr(t, evalStr(t, en, "'`(a ,b ,@c)"), "`(a ,b ,@c)")
	// a two-element quote list is a call form, not an abbreviation
	wantRepr(t, evalStr(t, en, "'(quote a b)"), "(quote a b)")
}

func TestReprVersusString(t *testing.T) {
	en := testEnv()
	v := evalStr(t, en, `"a\nb"`)
	wantRepr(t, v, `"a\nb"`)
	if String(v) != "a\nb" {
		t.Fatalf("string display should be raw, got %q", String(v))
	}
	c := evalStr(t, en, `#\a`)
	wantRepr(t, c, `#\a`)
	if String(c) != "a" {
		t.Fatalf("char display should be the bare character, got %q", String(c))
	}
}

func TestPrintSpecialValues(t *testing.T) {
	en := testEnv()
	wantRepr(t, evalStr(t, en, "#void"), "#void")
	wantRepr(t, evalStr(t, en, "(eof-object)"), "#<eof>")
	wantRepr(t, evalStr(t, en, `#\space`), `#\space`)
	wantRepr(t, evalStr(t, en, `#\newline`), `#\newline`)
	wantRepr(t, evalStr(t, en, `#\x5`), `#\x5`)
	// floats always carry a decimal point or exponent
	wantRepr(t, evalStr(t, en, "(exact->inexact 3)"), "3.0")
	wantRepr(t, evalStr(t, en, "'()"), "()")
	wantRepr(t, evalStr(t, en, "'(1 . 2)"), "(1 . 2)")
}

func TestReprSymbolBars(t *testing.T) {
	en := testEnv()
	v := evalStr(t, en, "'|hello world|")
	wantRepr(t, v, "|hello world|")
	if String(v) != "hello world" {
		t.Fatalf("symbol display should be the raw name, got %q", String(v))
	}
}

func TestReprDict(t *testing.T) {
	en := testEnv()
	wantRepr(t, evalStr(t, en, `(dict "a" 1 "b" 2)`), `(dict "a" 1 "b" 2)`)
}

func TestSerializeClosure(t *testing.T) {
	en := testEnv()
	evalStr(t, en, "(define (make-adder n) (lambda (x) (+ x n)))")
	evalStr(t, en, "(define add5 (make-adder 5))")
	wantInt(t, evalStr(t, en, "(add5 4)"), 9)

	code := SerializeToString(en.Get(Intern("add5")), en)
	// the captured binding travels inside the serialized body
	fresh := testEnv()
	restored := evalStr(t, fresh, code)
	got := force(Apply(restored, NewInt(4)))
	wantInt(t, got, 9)
}

func TestSerializeNativeFunc(t *testing.T) {
	en := testEnv()
	code := SerializeToString(en.Get(Intern("car")), &Globalenv)
	if code != "car" {
		t.Fatalf("builtin should serialize to its global name, got %q", code)
	}
	fresh := testEnv()
	wantInt(t, evalStr(t, fresh, "("+code+" '(7 8))"), 7)
}

func TestSerializeCollation(t *testing.T) {
	en := testEnv()
	code := SerializeToString(evalStr(t, en, `(collate "en_ci")`), &Globalenv)
	fresh := testEnv()
	restored := evalStr(t, fresh, code)
	v := force(Apply(restored, NewString("a"), NewString("B")))
	wantBool(t, v, true)
}
