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
	"testing"
)

func TestRandomRanges(t *testing.T) {
	en := testEnv()
	for i := 0; i < 50; i++ {
		v := evalStr(t, en, `(random)`)
		if v.GetTag() != tagFloat || v.Float() < 0 || v.Float() >= 1 {
			t.Fatalf("(random) out of [0,1): %s", Repr(v))
		}
	}
	for i := 0; i < 50; i++ {
		v := evalStr(t, en, `(random 10)`)
		if v.GetTag() != tagInt || v.Int() < 0 || v.Int() > 9 {
			t.Fatalf("(random 10) out of range: %s", Repr(v))
		}
	}
	for i := 0; i < 50; i++ {
		v := evalStr(t, en, `(random 5 8)`)
		if v.GetTag() != tagInt || v.Int() < 5 || v.Int() > 7 {
			t.Fatalf("(random 5 8) out of range: %s", Repr(v))
		}
	}
	cause, ok := evalPanic(t, en, `(random 0)`).(string)
	if !ok || !strings.HasPrefix(cause, "random:") {
		t.Fatalf("non-positive bound should be rejected, got %v", cause)
	}
	cause, ok = evalPanic(t, en, `(random 8 5)`).(string)
	if !ok || !strings.HasPrefix(cause, "random:") {
		t.Fatalf("empty range should be rejected, got %v", cause)
	}
}

func checkUUIDShape(t *testing.T, s string) {
	t.Helper()
	if len(s) != 36 {
		t.Fatalf("uuid length %d: %q", len(s), s)
	}
	for _, i := range []int{8, 13, 18, 23} {
		if s[i] != '-' {
			t.Fatalf("uuid missing dash at %d: %q", i, s)
		}
	}
	if s[14] != '4' {
		t.Fatalf("uuid version nibble is %c, want 4: %q", s[14], s)
	}
}

func TestUUIDBuiltins(t *testing.T) {
	en := testEnv()
	a := evalStr(t, en, `(uuid)`)
	b := evalStr(t, en, `(uuid)`)
	checkUUIDShape(t, String(a))
	checkUUIDShape(t, String(b))
	if String(a) == String(b) {
		t.Fatalf("two uuids collided: %s", String(a))
	}
	fa := evalStr(t, en, `(uuid-fast)`)
	fb := evalStr(t, en, `(uuid-fast)`)
	checkUUIDShape(t, String(fa))
	checkUUIDShape(t, String(fb))
	if String(fa) == String(fb) {
		t.Fatalf("two fast uuids collided: %s", String(fa))
	}
}

func TestFastUUIDBits(t *testing.T) {
	u := FastUUID()
	if u.Version() != 4 {
		t.Fatalf("version %d, want 4", u.Version())
	}
	if u[8]&0xc0 != 0x80 {
		t.Fatalf("variant bits %02x, want 10xxxxxx", u[8])
	}
	if FastUUID() == FastUUID() {
		t.Fatalf("counter did not advance")
	}
}
