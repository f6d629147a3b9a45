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

func TestMakeParameterReadAssign(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `(define p (make-parameter 10))`)
	wantInt(t, evalStr(t, en, `(p)`), 10)
	// assignment outside any extent changes the top-level cell
	evalStr(t, en, `(p 20)`)
	wantInt(t, evalStr(t, en, `(p)`), 20)
	if name := evalStr(t, en, `p`).Parameter().Name; name != "p" {
		t.Fatalf("define did not name the parameter: %q", name)
	}
	wantBool(t, evalStr(t, en, `(parameter? p)`), true)
	wantBool(t, evalStr(t, en, `(parameter? 5)`), false)
}

func TestParameterConverter(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `(define q (make-parameter 5 (lambda (x) (* x 2))))`)
	// the converter already ran on the default
	wantInt(t, evalStr(t, en, `(q)`), 10)
	evalStr(t, en, `(q 7)`)
	wantInt(t, evalStr(t, en, `(q)`), 14)
	wantInt(t, evalStr(t, en, `(parameterize ((q 3)) (q))`), 6)
	wantInt(t, evalStr(t, en, `(q)`), 14)
}

func TestParameterize(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `(define p (make-parameter 1))`)
	wantInt(t, evalStr(t, en, `(parameterize ((p 2)) (p))`), 2)
	wantInt(t, evalStr(t, en, `(p)`), 1)
	wantInt(t, evalStr(t, en, `(parameterize ((p 2)) (parameterize ((p 3)) (p)))`), 3)
	wantInt(t, evalStr(t, en, `(parameterize ((p 2)) (begin (parameterize ((p 3)) (p)) (p)))`), 2)
	// assignments stay inside their extent
	wantInt(t, evalStr(t, en, `(parameterize ((p 2)) (begin (p 99) (p)))`), 99)
	wantInt(t, evalStr(t, en, `(p)`), 1)
}

func TestParameterizeRestoresOnPanic(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `(define p (make-parameter 1))`)
	evalPanic(t, en, `(parameterize ((p 5)) (raise "boom"))`)
	wantInt(t, evalStr(t, en, `(p)`), 1)
}

func TestParameterizeRejectsNonParameter(t *testing.T) {
	en := testEnv()
	cause, ok := evalPanic(t, en, `(parameterize ((1 2)) 3)`).(*TypeError)
	if !ok {
		t.Fatalf("expected type error, got %v", cause)
	}
}
