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

func TestEnvSetGetAssign(t *testing.T) {
	en := testEnv()
	sym := Intern("counter")
	en.Set(sym, NewInt(1))
	wantInt(t, en.Get(sym), 1)

	child := NewEnv(en)
	child.Assign(sym, NewInt(2))
	// set! through a child frame mutates the defining frame
	wantInt(t, en.Get(sym), 2)
	if _, ok := child.Vars[sym]; ok {
		t.Fatalf("assign must not create a shadowing binding")
	}

	child.Set(sym, NewInt(9))
	wantInt(t, child.Get(sym), 9)
	wantInt(t, en.Get(sym), 2)
}

func TestUnboundVariable(t *testing.T) {
	en := testEnv()
	cause := evalPanic(t, en, "definitely-not-bound")
	ue, ok := cause.(*UnboundError)
	if !ok {
		t.Fatalf("expected an unbound error, got %v", cause)
	}
	if ue.Name != "definitely-not-bound" {
		t.Fatalf("unbound error names %q", ue.Name)
	}
	// set! on an unbound name fails the same way
	cause = evalPanic(t, en, "(set! definitely-not-bound 1)")
	if _, ok := cause.(*UnboundError); !ok {
		t.Fatalf("expected an unbound error from set!, got %v", cause)
	}
}

func TestConstantBinding(t *testing.T) {
	en := testEnv()
	en.Constant(Intern("answer"), NewInt(42))
	wantInt(t, evalStr(t, en, "answer"), 42)
	cause := evalPanic(t, en, "(set! answer 43)")
	ce, ok := cause.(*ConstantError)
	if !ok {
		t.Fatalf("expected a constant error, got %v", cause)
	}
	if ce.Name != "answer" {
		t.Fatalf("constant error names %q", ce.Name)
	}
}

func TestDottedPathLookup(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `(define conf (dict "db" (dict "host" "localhost" "port" 5432)))`)
	wantString(t, evalStr(t, en, "conf.db.host"), "localhost")
	wantInt(t, evalStr(t, en, "conf.db.port"), 5432)
	cause := evalPanic(t, en, "conf.db.missing")
	if _, ok := cause.(*UnboundError); !ok {
		t.Fatalf("expected an unbound error for a missing path, got %v", cause)
	}
}

func TestSandboxDefaults(t *testing.T) {
	sb := NewSandbox()
	wantInt(t, evalStr(t, sb, "(+ 1 2)"), 3)
	wantRepr(t, evalStr(t, sb, "(map (lambda (x) (* x x)) '(1 2 3))"), "(1 4 9)")
	// clock access is not on the default allow-list
	cause := evalPanic(t, sb, "(now)")
	if _, ok := cause.(*UnboundError); !ok {
		t.Fatalf("expected the sandbox to deny now, got %v", cause)
	}
}

func TestSandboxExplicitAllow(t *testing.T) {
	sb := NewSandbox("car")
	wantInt(t, evalStr(t, sb, "(car '(1 2))"), 1)
	cause := evalPanic(t, sb, "(cdr '(1 2))")
	if _, ok := cause.(*UnboundError); !ok {
		t.Fatalf("expected the sandbox to deny cdr, got %v", cause)
	}
}

func TestBoundPredicate(t *testing.T) {
	en := testEnv()
	wantBool(t, evalStr(t, en, "(bound? 'car)"), true)
	wantBool(t, evalStr(t, en, "(bound? 'no-such-binding)"), false)
	evalStr(t, en, "(define local 1)")
	wantBool(t, evalStr(t, en, "(bound? 'local)"), true)
}

func TestEnvToList(t *testing.T) {
	en := testEnv()
	evalStr(t, en, "(define a 1)")
	evalStr(t, en, "(define b 2)")
	v := evalStr(t, en, "(assq 'a (env->list))")
	wantRepr(t, v, "(a 1)")
	// innermost bindings come first
	first := evalStr(t, en, "(car (car (env->list)))")
	if name := SymbolName(first.Symbol()); name != "a" {
		t.Fatalf("innermost scope should list first, got %s", name)
	}
}

func TestCurrentEnvironmentEval(t *testing.T) {
	en := testEnv()
	evalStr(t, en, "(define box (let ((v 5)) (current-environment)))")
	wantInt(t, evalStr(t, en, "(eval 'v box)"), 5)
	wantInt(t, evalStr(t, en, "(eval '(+ v 2) box)"), 7)
	wantRepr(t, evalStr(t, en, "(type-of box)"), "environment")
}

func TestUnsetBinding(t *testing.T) {
	en := testEnv()
	evalStr(t, en, "(define temp 1)")
	en.Unset(Intern("temp"))
	cause := evalPanic(t, en, "temp")
	if _, ok := cause.(*UnboundError); !ok {
		t.Fatalf("expected unbound after unset, got %v", cause)
	}
}
