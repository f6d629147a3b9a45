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

// parseOne reads a single datum from source.
func parseOne(t *testing.T, source string) Scmer {
	t.Helper()
	forms := Parse(source, testEnv())
	if len(forms) != 1 {
		t.Fatalf("got %d forms from %q, want 1", len(forms), source)
	}
	return stripSource(forms[0])
}

func TestReadAtoms(t *testing.T) {
	wantInt(t, parseOne(t, "42"), 42)
	wantInt(t, parseOne(t, "-7"), -7)
	wantFloat(t, parseOne(t, "2.5"), 2.5)
	wantFloat(t, parseOne(t, "1e3"), 1000)
	wantBool(t, parseOne(t, "#t"), true)
	wantBool(t, parseOne(t, "#false"), false)
	if !parseOne(t, "#null").IsNil() {
		t.Fatalf("#null did not read as nil")
	}
	if parseOne(t, "#void").GetTag() != tagVoid {
		t.Fatalf("#void did not read as void")
	}
	sym := parseOne(t, "hello-world")
	if !sym.IsSymbol() || SymbolName(sym.Symbol()) != "hello-world" {
		t.Fatalf("symbol read as %s", Repr(sym))
	}
}

func TestReadBigAndRational(t *testing.T) {
	v := parseOne(t, "9223372036854775808")
	if v.GetTag() != tagBigInt {
		t.Fatalf("got tag %v, want bigint", typeName(v))
	}
	r := parseOne(t, "1/3")
	if r.GetTag() != tagRational || Repr(r) != "1/3" {
		t.Fatalf("got %s, want 1/3", Repr(r))
	}
	wantInt(t, parseOne(t, "#xff"), 255)
	wantInt(t, parseOne(t, "#b101"), 5)
	wantInt(t, parseOne(t, "#o17"), 15)
	wantFloat(t, parseOne(t, "#i1/2"), 0.5)
	if got := Repr(parseOne(t, "#e0.5")); got != "1/2" {
		t.Fatalf("#e0.5 read as %s", got)
	}
}

func TestReadComplexLiteral(t *testing.T) {
	v := parseOne(t, "3+4i")
	if v.GetTag() != tagComplex {
		t.Fatalf("got %s, want a complex", typeName(v))
	}
	c := v.Complex()
	wantInt(t, c.Re, 3)
	wantInt(t, c.Im, 4)
	// a zero exact imaginary part collapses to the real lane
	wantInt(t, parseOne(t, "5+0i"), 5)
}

func TestReadStringEscapes(t *testing.T) {
	wantString(t, parseOne(t, `"a\nb\t\"c\\"`), "a\nb\t\"c\\")
	wantString(t, parseOne(t, `"\x41;BC"`), "ABC")
	// escaped newline is a line continuation
	wantString(t, parseOne(t, "\"one\\\ntwo\""), "onetwo")
}

func TestReadChars(t *testing.T) {
	if c := parseOne(t, `#\a`); c.GetTag() != tagChar || c.Char() != 'a' {
		t.Fatalf("got %s", Repr(c))
	}
	if c := parseOne(t, `#\space`); c.Char() != ' ' {
		t.Fatalf("got %s", Repr(c))
	}
	if c := parseOne(t, `#\newline`); c.Char() != '\n' {
		t.Fatalf("got %s", Repr(c))
	}
	if c := parseOne(t, `#\x41`); c.Char() != 'A' {
		t.Fatalf("got %s", Repr(c))
	}
	cause := parsePanic(t, `#\wat`)
	if _, ok := cause.(*SyntaxError); !ok {
		t.Fatalf("got %T (%v), want *SyntaxError", cause, cause)
	}
}

func TestReadBlockSymbol(t *testing.T) {
	sym := parseOne(t, "|two words|")
	if !sym.IsSymbol() || SymbolName(sym.Symbol()) != "two words" {
		t.Fatalf("got %s", Repr(sym))
	}
}

func TestReadListsAndDots(t *testing.T) {
	wantRepr(t, parseOne(t, "(1 2 3)"), "(1 2 3)")
	wantRepr(t, parseOne(t, "(1 . 2)"), "(1 . 2)")
	wantRepr(t, parseOne(t, "(1 2 . 3)"), "(1 2 . 3)")
	wantRepr(t, parseOne(t, "[1 2]"), "(1 2)")
	wantRepr(t, parseOne(t, "()"), "()")

	if _, ok := parsePanic(t, "(. 2)").(*SyntaxError); !ok {
		t.Fatalf("leading dot did not raise a syntax error")
	}
	if _, ok := parsePanic(t, "(1 . 2 3)").(*SyntaxError); !ok {
		t.Fatalf("double tail did not raise a syntax error")
	}
}

func TestReadBalanceErrors(t *testing.T) {
	cause := parsePanic(t, "(foo (bar")
	be, ok := cause.(*BalanceError)
	if !ok {
		t.Fatalf("got %T (%v), want *BalanceError", cause, cause)
	}
	if be.Unexpected || be.Owed != 2 {
		t.Fatalf("got owed %d, want 2", be.Owed)
	}
	cause = parsePanic(t, ")")
	be, ok = cause.(*BalanceError)
	if !ok || !be.Unexpected {
		t.Fatalf("stray close paren: got %T (%v)", cause, cause)
	}
}

func TestReadVectorsAndBytevectors(t *testing.T) {
	v := parseOne(t, "#(1 two 3.0)")
	if v.GetTag() != tagVector {
		t.Fatalf("got %s", typeName(v))
	}
	elems := v.Vector()
	if len(elems) != 3 {
		t.Fatalf("got %d elements", len(elems))
	}
	wantInt(t, stripSource(elems[0]), 1)

	b := parseOne(t, "#u8(0 128 255)")
	if b.GetTag() != tagBytes {
		t.Fatalf("got %s", typeName(b))
	}
	if bs := b.Bytes(); len(bs) != 3 || bs[1] != 128 {
		t.Fatalf("got % x", bs)
	}

	if _, ok := parsePanic(t, "#u8(256)").(*SyntaxError); !ok {
		t.Fatalf("byte out of range did not raise a syntax error")
	}
	if _, ok := parsePanic(t, "#u8(1.5)").(*SyntaxError); !ok {
		t.Fatalf("inexact byte did not raise a syntax error")
	}
}

func TestReadDatumComment(t *testing.T) {
	wantRepr(t, parseOne(t, "(1 #;2 3)"), "(1 3)")
	wantRepr(t, parseOne(t, "(#;(ignore (me)) 4)"), "(4)")
}

func TestReadQuoteFamily(t *testing.T) {
	wantRepr(t, parseOne(t, "'x"), "'x")
	wantRepr(t, parseOne(t, "'(1 2)"), "'(1 2)")
	wantRepr(t, parseOne(t, "`(a ,b ,@c)"), "`(a ,b ,@c)")
}

func TestReadDatumLabelSharing(t *testing.T) {
	v := parseOne(t, "(#1=(a) #1#)")
	elems, _ := listToSlice(v)
	if len(elems) != 2 {
		t.Fatalf("got %d elements", len(elems))
	}
	first := stripSource(elems[0])
	second := stripSource(elems[1])
	if first.Pair() != second.Pair() {
		t.Fatalf("label reference did not share structure")
	}
}

func TestReadDatumLabelCycle(t *testing.T) {
	v := parseOne(t, "#1=(1 2 . #1#)")
	p := v.Pair()
	wantInt(t, stripSource(p.Car), 1)
	next := stripSource(p.Cdr).Pair()
	wantInt(t, stripSource(next.Car), 2)
	if stripSource(next.Cdr).Pair() != p {
		t.Fatalf("cycle does not close back on the head")
	}
	wantRepr(t, v, "#1=(1 2 . #1#)")
}

func TestReadUnknownDatumLabel(t *testing.T) {
	cause := parsePanic(t, "(#5# 1)")
	if _, ok := cause.(*SyntaxError); !ok {
		t.Fatalf("got %T (%v), want *SyntaxError", cause, cause)
	}
}

func TestReadFoldCase(t *testing.T) {
	forms := Parse("#!fold-case FOO #!no-fold-case BAR", testEnv())
	if len(forms) != 2 {
		t.Fatalf("got %d forms", len(forms))
	}
	if SymbolName(stripSource(forms[0]).Symbol()) != "foo" {
		t.Fatalf("fold-case did not lower FOO: %s", Repr(forms[0]))
	}
	if SymbolName(stripSource(forms[1]).Symbol()) != "BAR" {
		t.Fatalf("no-fold-case still lowered BAR: %s", Repr(forms[1]))
	}
}

func TestReadRegexLiteral(t *testing.T) {
	v := parseOne(t, `#/^a+[/]$/im`)
	if v.GetTag() != tagRegex {
		t.Fatalf("got %s", typeName(v))
	}
	re := v.Regex()
	if re.Source != "^a+[/]$" {
		t.Fatalf("source is %q", re.Source)
	}
	if re.Flags != "im" {
		t.Fatalf("flags are %q", re.Flags)
	}
	if !re.Re.MatchString("AAA") {
		t.Fatalf("case-insensitive flag not applied")
	}
	if _, ok := parsePanic(t, "#/a/q").(*SyntaxError); !ok {
		t.Fatalf("unknown flag did not raise a syntax error")
	}
}

func TestReadInvalidHashToken(t *testing.T) {
	cause := parsePanic(t, "#wat")
	se, ok := cause.(*SyntaxError)
	if !ok {
		t.Fatalf("got %T (%v), want *SyntaxError", cause, cause)
	}
	if se.Msg != "invalid token" {
		t.Fatalf("message is %q", se.Msg)
	}
}

func TestReadMacroRunsAtReadTime(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `(define twice (lambda (x) (* 2 x)))`)
	evalStr(t, en, `(set-special! "@" 'twice)`)
	defer UnregisterSpecial("@")
	wantInt(t, evalStr(t, en, "@21"), 42)
	// the datum after the sequence is handed to the function unevaluated,
	// so only self-evaluating data works without quoting
	wantInt(t, evalStr(t, en, "(+ @10 1)"), 21)
	wantBool(t, evalStr(t, en, `(unset-special! "@")`), true)
}

func TestReadSpecialWithoutBindingStaysLiteral(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `(set-special! "?!" 'maybe)`)
	defer UnregisterSpecial("?!")
	form := parseOne(t, "?!x")
	wantRepr(t, form, "(maybe x)")
}

func TestParseMultipleForms(t *testing.T) {
	forms := Parse("1 2 3", testEnv())
	if len(forms) != 3 {
		t.Fatalf("got %d forms", len(forms))
	}
	wantInt(t, stripSource(forms[2]), 3)
}

func TestParseFileStampsSource(t *testing.T) {
	forms := ParseFile("(car x)", "demo.scm", testEnv())
	if len(forms) != 1 {
		t.Fatalf("got %d forms", len(forms))
	}
	if forms[0].GetTag() != tagSourceInfo {
		t.Fatalf("form is not source-annotated: %s", typeName(forms[0]))
	}
	si := forms[0].SourceInfo()
	if si.Source != "demo.scm" || si.Line != 1 {
		t.Fatalf("source info is %s:%d", si.Source, si.Line)
	}
}
