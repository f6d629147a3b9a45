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
	"sync"

	"github.com/jtolds/gls"
)

// Promise is a pending host-boundary value. Resolver goroutines settle
// it from outside the interpreter; evaluation only blocks in Wait, at
// the evaluator's decision points.
type Promise struct {
	mu      sync.Mutex
	done    chan struct{}
	value   Scmer
	err     any
	settled bool
}

func NewPendingPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

// Resolve settles the promise with a value. Later settlements are
// ignored.
func (p *Promise) Resolve(v Scmer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled {
		return
	}
	p.value = v
	p.settled = true
	close(p.done)
}

// Reject settles the promise with an error that re-raises on Wait.
func (p *Promise) Reject(err any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled {
		return
	}
	p.err = err
	p.settled = true
	close(p.done)
}

func (p *Promise) Wait() Scmer {
	<-p.done
	if p.err != nil {
		panic(p.err)
	}
	return p.value
}

func (p *Promise) Settled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settled
}

// Spawn runs fn on a resolver goroutine that inherits the caller's
// dynamic extents (parameterize bindings survive into the resolver).
func (p *Promise) Spawn(fn func() Scmer) {
	gls.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				p.Reject(r)
			}
		}()
		p.Resolve(fn())
	})
}

// force resolves pending values, following promise chains to the final
// value. Everything else passes through untouched.
func force(v Scmer) Scmer {
	for {
		v = stripSource(v)
		if v.GetTag() != tagPromise {
			return v
		}
		v = v.Promise().Wait()
	}
}

func init_promise() {
	DeclareTitle("Promises")

	Declare(&Globalenv, &Declaration{
		"promise?", "tells whether the value is a pending or settled promise",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to test"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(stripSource(a[0]).GetTag() == tagPromise)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"make-promise", "wraps a value in a settled promise; promises pass through",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to wrap"},
		}, "promise",
		func(a ...Scmer) Scmer {
			if stripSource(a[0]).GetTag() == tagPromise {
				return a[0]
			}
			p := NewPendingPromise()
			p.Resolve(a[0])
			return NewPromise(p)
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"await", "blocks until the promise settles and returns its value; rejections re-raise",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "promise to force, or any value"},
		}, "any",
		func(a ...Scmer) Scmer {
			return force(a[0])
		}, false,
	})
}
