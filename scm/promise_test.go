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
	"time"
)

func TestMakePromiseAwait(t *testing.T) {
	en := testEnv()
	wantInt(t, evalStr(t, en, "(await (make-promise 5))"), 5)
	wantBool(t, evalStr(t, en, "(promise? (make-promise 5))"), true)
	wantBool(t, evalStr(t, en, "(promise? 5)"), false)
	// await on a plain value passes it through
	wantInt(t, evalStr(t, en, "(await 7)"), 7)
}

func TestSleepResolvesToVoid(t *testing.T) {
	en := testEnv()
	// the resolved value is void, which counts as false
	wantInt(t, evalStr(t, en, "(if (await (sleep 1)) 1 2)"), 2)
}

func TestPromiseResolveFromGo(t *testing.T) {
	en := testEnv()
	p := NewPendingPromise()
	en.Set(Intern("pending"), NewPromise(p))
	if p.Settled() {
		t.Fatalf("promise settled before resolve")
	}
	go func() {
		time.Sleep(5 * time.Millisecond)
		p.Resolve(NewInt(99))
	}()
	wantInt(t, evalStr(t, en, "(await pending)"), 99)
	if !p.Settled() {
		t.Fatalf("promise should report settled after resolve")
	}
	// double resolve is ignored
	p.Resolve(NewInt(1))
	wantInt(t, p.Wait(), 99)
}

func TestPromiseRejectRaises(t *testing.T) {
	en := testEnv()
	p := NewPendingPromise()
	p.Reject(&UserError{Payload: NewString("boom")})
	en.Set(Intern("failed"), NewPromise(p))
	wantString(t, evalStr(t, en, "(try (await failed) (catch e e))"), "boom")
}

func TestPromiseSpawn(t *testing.T) {
	p := NewPendingPromise()
	p.Spawn(func() Scmer {
		return NewInt(11)
	})
	wantInt(t, p.Wait(), 11)

	q := NewPendingPromise()
	q.Spawn(func() Scmer {
		panic(&UserError{Payload: NewInt(3)})
	})
	en := testEnv()
	en.Set(Intern("crashed"), NewPromise(q))
	wantInt(t, evalStr(t, en, "(try (await crashed) (catch e e))"), 3)
}

func TestSetTimeoutFires(t *testing.T) {
	en := testEnv()
	evalStr(t, en, "(define fired (newsession))")
	evalStr(t, en, `(setTimeout (lambda (v) (fired "hit" v)) 1 42)`)
	deadline := time.Now().Add(2 * time.Second)
	for {
		if v := evalStr(t, en, `(fired "hit")`); v.GetTag() == tagInt {
			wantInt(t, v, 42)
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout callback never fired")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestClearTimeoutCancels(t *testing.T) {
	en := testEnv()
	evalStr(t, en, "(define hit (newsession))")
	evalStr(t, en, `(define id (setTimeout (lambda () (hit "ran" #t)) 50))`)
	wantBool(t, evalStr(t, en, "(clearTimeout id)"), true)
	// a second clear reports the id as gone
	wantBool(t, evalStr(t, en, "(clearTimeout id)"), false)
	time.Sleep(80 * time.Millisecond)
	if v := evalStr(t, en, `(hit "ran")`); v.GetTag() != tagNil {
		t.Fatalf("cancelled callback still ran: %s", Repr(v))
	}
}

func TestSchedulerScheduleAfter(t *testing.T) {
	done := make(chan struct{})
	if _, ok := DefaultScheduler.ScheduleAfter(time.Millisecond, func() {
		close(done)
	}); !ok {
		t.Fatalf("schedule on the default scheduler failed")
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduled task never ran")
	}
}

func TestSchedulerClear(t *testing.T) {
	ran := make(chan struct{}, 1)
	id, ok := DefaultScheduler.ScheduleAfter(50*time.Millisecond, func() {
		ran <- struct{}{}
	})
	if !ok {
		t.Fatalf("schedule failed")
	}
	if !DefaultScheduler.Clear(id) {
		t.Fatalf("clear reported failure for a pending task")
	}
	select {
	case <-ran:
		t.Fatalf("cleared task still ran")
	case <-time.After(120 * time.Millisecond):
	}
}

func TestSchedulerOrdering(t *testing.T) {
	got := make(chan int, 2)
	DefaultScheduler.ScheduleAfter(40*time.Millisecond, func() { got <- 2 })
	DefaultScheduler.ScheduleAfter(5*time.Millisecond, func() { got <- 1 })
	for want := 1; want <= 2; want++ {
		select {
		case n := <-got:
			if n != want {
				t.Fatalf("task %d ran before task %d", n, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("task %d never ran", want)
		}
	}
}
