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
	"reflect"
	"testing"
)

func TestTokenizeBasic(t *testing.T) {
	got := Tokenize("(+ 1 2)")
	want := []string{"(", "+", "1", "2", ")"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokenizeSkipsComments(t *testing.T) {
	got := Tokenize("1 ; rest of line\n2 #| block\ncomment |# 3")
	want := []string{"1", "2", "3"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokenizeMetaKeepsComments(t *testing.T) {
	toks := TokenizeMeta("1 ; hello\n2")
	if len(toks) != 3 {
		t.Fatalf("got %d tokens, want 3", len(toks))
	}
	if toks[1].Text != "; hello" {
		t.Fatalf("comment token is %q", toks[1].Text)
	}
}

func TestTokenizeMetaPositions(t *testing.T) {
	toks := TokenizeMeta("(define x 10)\n(foo)")
	type pos struct {
		text      string
		line, col int
		off       int
	}
	want := []pos{
		{"(", 1, 1, 0},
		{"define", 1, 2, 1},
		{"x", 1, 9, 8},
		{"10", 1, 11, 10},
		{")", 1, 13, 12},
		{"(", 2, 1, 14},
		{"foo", 2, 2, 15},
		{")", 2, 5, 18},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		tok := toks[i]
		if tok.Text != w.text || tok.Line != w.line || tok.Col != w.col || tok.Offset != w.off {
			t.Fatalf("token %d: got %q at %d:%d offset %d, want %q at %d:%d offset %d",
				i, tok.Text, tok.Line, tok.Col, tok.Offset, w.text, w.line, w.col, w.off)
		}
	}
}

func TestTokenizeQuoteSpecials(t *testing.T) {
	got := Tokenize("'x `y ,z ,@w")
	want := []string{"'", "x", "`", "y", ",", "z", ",@", "w"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokenizeStringsAndBlocks(t *testing.T) {
	got := Tokenize(`"a b" |sym with space| "esc\"q"`)
	want := []string{`"a b"`, "|sym with space|", `"esc\"q"`}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokenizeHashForms(t *testing.T) {
	got := Tokenize(`#t #\a #\space #1=(x . #1#) #u8(1) #(2)`)
	want := []string{"#t", `#\a`, `#\space`, "#1=", "(", "x", ".", "#1#", ")", "#u8(", "1", ")", "#(", "2", ")"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokenizeRegexLiteral(t *testing.T) {
	got := Tokenize(`#/a+[/]b\/c/im x`)
	want := []string{`#/a+[/]b\/c/im`, "x"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTokenizeUnterminatedString(t *testing.T) {
	cause := parsePanic(t, `(foo "bar`)
	ue, ok := cause.(*UnterminatedError)
	if !ok {
		t.Fatalf("got %T (%v), want *UnterminatedError", cause, cause)
	}
	if ue.What != "string" {
		t.Fatalf("What = %q, want string", ue.What)
	}
}

func TestTokenizeUnterminatedBlockComment(t *testing.T) {
	cause := parsePanic(t, "1 #| never closed")
	ue, ok := cause.(*UnterminatedError)
	if !ok || ue.What != "block comment" {
		t.Fatalf("got %T (%v)", cause, cause)
	}
}

func TestRegisterSpecialLexesAsToken(t *testing.T) {
	RegisterSpecial("@@", Intern("deref"), specialLiteral)
	got := Tokenize("@@foo")
	want := []string{"@@", "foo"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if !UnregisterSpecial("@@") {
		t.Fatalf("unregister says the sequence was unknown")
	}
	if UnregisterSpecial("@@") {
		t.Fatalf("second unregister should report false")
	}
}

func TestLongestSpecialWins(t *testing.T) {
	// ,@ must be preferred over , when both are registered
	got := Tokenize(",@x")
	if got[0] != ",@" {
		t.Fatalf("got %v, want ,@ first", got)
	}
}
