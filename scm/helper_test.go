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

func testEnv() *Env {
	return NewEnv(&Globalenv)
}

// evalStr parses source and evaluates every form in en, returning the
// forced value of the last one.
func evalStr(t *testing.T, en *Env, source string) Scmer {
	t.Helper()
	result := NewNil()
	for _, form := range Parse(source, en) {
		result = force(Eval(form, en))
	}
	return result
}

// evalPanic evaluates source expecting a panic and returns its root
// cause, with backtrace annotations stripped.
func evalPanic(t *testing.T, en *Env, source string) any {
	t.Helper()
	var cause any
	func() {
		defer func() {
			cause = rootCause(recover())
		}()
		evalStr(t, en, source)
		cause = nil
	}()
	if cause == nil {
		t.Fatalf("expected a panic evaluating %q", source)
	}
	return cause
}

// parsePanic parses source expecting the reader to panic.
func parsePanic(t *testing.T, source string) any {
	t.Helper()
	var cause any
	func() {
		defer func() {
			cause = rootCause(recover())
		}()
		Parse(source, testEnv())
		cause = nil
	}()
	if cause == nil {
		t.Fatalf("expected a parse panic on %q", source)
	}
	return cause
}

func wantInt(t *testing.T, v Scmer, want int64) {
	t.Helper()
	if v.GetTag() != tagInt || v.Int() != want {
		t.Fatalf("got %s, want %d", Repr(v), want)
	}
}

func wantFloat(t *testing.T, v Scmer, want float64) {
	t.Helper()
	if v.GetTag() != tagFloat || v.Float() != want {
		t.Fatalf("got %s, want %v", Repr(v), want)
	}
}

func wantString(t *testing.T, v Scmer, want string) {
	t.Helper()
	if v.GetTag() != tagString || v.String() != want {
		t.Fatalf("got %s, want %q", Repr(v), want)
	}
}

func wantBool(t *testing.T, v Scmer, want bool) {
	t.Helper()
	if v.GetTag() != tagBool || v.Bool() != want {
		t.Fatalf("got %s, want %v", Repr(v), want)
	}
}

func wantRepr(t *testing.T, v Scmer, want string) {
	t.Helper()
	if got := Repr(v); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}
