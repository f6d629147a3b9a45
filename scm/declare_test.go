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
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validateStr(t *testing.T, src string) string {
	t.Helper()
	result := "any"
	for _, form := range Parse(src, testEnv()) {
		result = Validate(form, "any")
	}
	return result
}

func validatePanic(t *testing.T, src string) string {
	t.Helper()
	var cause any
	func() {
		defer func() {
			cause = recover()
		}()
		validateStr(t, src)
		cause = nil
	}()
	msg, ok := cause.(string)
	if !ok {
		t.Fatalf("expected a validation panic on %q, got %v", src, cause)
	}
	return msg
}

func TestDeclarationsRegistry(t *testing.T) {
	en := testEnv()
	def := declarations["car"]
	if def == nil {
		t.Fatalf("car is not declared")
	}
	if def.MinParameter != 1 || def.MaxParameter != 1 {
		t.Fatalf("car arity %d-%d", def.MinParameter, def.MaxParameter)
	}
	if d := DeclarationForValue(evalStr(t, en, `car`)); d == nil || d.Name != "car" {
		t.Fatalf("car function value did not resolve to its declaration")
	}
	if d := DeclarationForValue(NewString("cdr")); d == nil || d.Name != "cdr" {
		t.Fatalf("name lookup failed")
	}
	if d := DeclarationForValue(NewSymbol("vector")); d == nil || d.Name != "vector" {
		t.Fatalf("symbol lookup failed")
	}
	// list-ref and nth share one native function; the later
	// declaration owns the code pointer
	if d := DeclarationForValue(evalStr(t, en, `list-ref`)); d == nil || d.Name != "nth" {
		t.Fatalf("aliased builtin resolves to %v", d)
	}
	if d := DeclarationForValue(NewInt(5)); d != nil {
		t.Fatalf("number resolved to declaration %s", d.Name)
	}
}

func TestRuntimeArityGuard(t *testing.T) {
	en := testEnv()
	cause, ok := evalPanic(t, en, `(car '(1) '(2))`).(*ArityError)
	if !ok {
		t.Fatalf("expected arity error, got %v", cause)
	}
	if cause.Name != "car" || cause.Want != 1 || cause.Got != 2 {
		t.Fatalf("wrong arity error: %s", cause.Error())
	}
	cause, ok = evalPanic(t, en, `(cons 1)`).(*ArityError)
	if !ok || cause.Got != 1 {
		t.Fatalf("expected arity error, got %v", cause)
	}
}

func TestValidateTypes(t *testing.T) {
	if got := validateStr(t, `5`); got != "int" {
		t.Fatalf("got %s", got)
	}
	if got := validateStr(t, `"x"`); got != "string" {
		t.Fatalf("got %s", got)
	}
	if got := validateStr(t, `(+ 1 2)`); got != "number" {
		t.Fatalf("got %s", got)
	}
	if got := validateStr(t, `(define (f x) 1 2 3)`); got != "any" {
		t.Fatalf("got %s", got)
	}
	if got := validateStr(t, `(car '(1 2))`); got != "any" {
		t.Fatalf("got %s", got)
	}
	// returntype propagates from the branches
	if got := validateStr(t, `(if 1 2 3)`); got != "int" {
		t.Fatalf("got %s", got)
	}
	if got := validateStr(t, `(if 1 2 "x")`); got != "int|string" {
		t.Fatalf("got %s", got)
	}
}

func TestValidatePanics(t *testing.T) {
	if msg := validatePanic(t, `(car 1 2)`); !strings.Contains(msg, "expects at most 1 parameters") {
		t.Fatalf("got %q", msg)
	}
	if msg := validatePanic(t, `(car)`); !strings.Contains(msg, "expects at least 1 parameters") {
		t.Fatalf("got %q", msg)
	}
	if msg := validatePanic(t, `(+ 1 "x")`); !strings.Contains(msg, "expects parameter 2 to be number") {
		t.Fatalf("got %q", msg)
	}
}

func TestTypesMatch(t *testing.T) {
	cases := []struct {
		given, required string
		want            bool
	}{
		{"int", "number", true},
		{"number", "int", false},
		{"any", "string", true},
		{"string", "any", true},
		{"string|int", "int", true},
		{"bool", "string|bool", true},
		{"symbol", "string", false},
	}
	for _, c := range cases {
		if got := types_match(c.given, c.required); got != c.want {
			t.Fatalf("types_match(%q, %q) = %v, want %v", c.given, c.required, got, c.want)
		}
	}
}

func TestWriteDocumentation(t *testing.T) {
	dir := t.TempDir()
	if err := WriteDocumentation(dir); err != nil {
		t.Fatalf("WriteDocumentation: %v", err)
	}
	index, err := os.ReadFile(filepath.Join(dir, "index.md"))
	if err != nil {
		t.Fatalf("missing index: %v", err)
	}
	if !strings.Contains(string(index), "[Lists](lists.md)") {
		t.Fatalf("index lacks chapter link:\n%s", index)
	}
	lists, err := os.ReadFile(filepath.Join(dir, "lists.md"))
	if err != nil {
		t.Fatalf("missing chapter: %v", err)
	}
	if !strings.Contains(string(lists), "## car") || !strings.Contains(string(lists), "extracts the head of a pair") {
		t.Fatalf("chapter lacks car docs")
	}
	core, err := os.ReadFile(filepath.Join(dir, "core.md"))
	if err != nil {
		t.Fatalf("missing chapter: %v", err)
	}
	if !strings.Contains(string(core), "## define") {
		t.Fatalf("chapter lacks special form docs")
	}
}

func TestSizeBuiltin(t *testing.T) {
	en := testEnv()
	small := evalStr(t, en, `(size 5)`)
	if small.GetTag() != tagInt || small.Int() <= 0 {
		t.Fatalf("size should be a positive int, got %s", Repr(small))
	}
	big := evalStr(t, en, `(size (list 1 2 3))`)
	if big.Int() < small.Int() {
		t.Fatalf("a list should not be smaller than an int: %s < %s", Repr(big), Repr(small))
	}
	human := evalStr(t, en, `(size "hello" #t)`)
	if human.GetTag() != tagString || !strings.HasSuffix(human.String(), "B") {
		t.Fatalf("human size should end in B, got %s", Repr(human))
	}
}

func TestSymbolStringConversion(t *testing.T) {
	en := testEnv()
	wantString(t, evalStr(t, en, `(symbol->string 'hello)`), "hello")
	wantRepr(t, evalStr(t, en, `(string->symbol "world")`), "world")
	wantBool(t, evalStr(t, en, `(symbol? (string->symbol "world"))`), true)
	wantBool(t, evalStr(t, en, `(eq? 'abc (string->symbol "abc"))`), true)
	wantRepr(t, evalStr(t, en, `(type-of 5)`), "integer")
	wantRepr(t, evalStr(t, en, `(type-of "x")`), "string")
	wantRepr(t, evalStr(t, en, `(type-of '(1))`), "pair")
	wantRepr(t, evalStr(t, en, `(type-of type-of)`), "procedure")
}
