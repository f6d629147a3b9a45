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
	"sync"
	"testing"
)

func TestSessionStore(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `(define sess (newsession))`)
	// the setter reflects the value
	wantInt(t, evalStr(t, en, `(sess "k" 42)`), 42)
	wantInt(t, evalStr(t, en, `(sess "k")`), 42)
	wantBool(t, evalStr(t, en, `(nil? (sess "missing"))`), true)
	evalStr(t, en, `(sess "a" 1)`)
	wantRepr(t, evalStr(t, en, `(sort (sess))`), `("a" "k")`)
	cause, ok := evalPanic(t, en, `(sess "a" 1 2)`).(string)
	if !ok || !strings.Contains(cause, "session") {
		t.Fatalf("three arguments should be rejected, got %v", cause)
	}
}

func TestOnceCachesResult(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `
		(define counter 0)
		(define f (once (lambda () (set! counter (+ counter 1)) counter)))`)
	wantInt(t, evalStr(t, en, `(f)`), 1)
	wantInt(t, evalStr(t, en, `(f)`), 1)
	wantInt(t, evalStr(t, en, `counter`), 1)
	// arguments only reach the first run
	evalStr(t, en, `(define g (once (lambda (x) (* x 2))))`)
	wantInt(t, evalStr(t, en, `(g 21)`), 42)
	wantInt(t, evalStr(t, en, `(g 99)`), 42)
}

func TestMutexSerializesCalls(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `
		(define m (mutex))
		(define counter 0)
		(define inc! (lambda () (set! counter (+ counter 1))))`)
	m := en.Get(Intern("m"))
	inc := en.Get(Intern("inc!"))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			force(Apply(m, inc))
		}()
	}
	wg.Wait()
	wantInt(t, evalStr(t, en, `counter`), 50)
}

func TestMutexReleasesOnPanic(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `(define m (mutex))`)
	evalPanic(t, en, `(m (lambda () (raise "boom")))`)
	// the lock is free again after the panic
	wantInt(t, evalStr(t, en, `(m (lambda () 7))`), 7)
}
