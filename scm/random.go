/*
Copyright (C) 2025-2026  Carl-Philip Hänsch

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
	"encoding/binary"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var uuidCounter uint64 = uint64(time.Now().UnixNano())

// FastUUID returns a UUIDv4-like value without relying on crypto/rand.
// It is not suitable for cryptographic use but avoids startup stalls on low-entropy systems.
func FastUUID() uuid.UUID {
	ctr := atomic.AddUint64(&uuidCounter, 1)
	now := uint64(time.Now().UnixNano())
	var b [16]byte
	binary.LittleEndian.PutUint64(b[0:8], ctr)
	binary.LittleEndian.PutUint64(b[8:16], ctr^now^(now<<17))
	// RFC4122 variant + version 4
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return uuid.UUID(b)
}

func init_random() {
	DeclareTitle("Random")

	Declare(&Globalenv, &Declaration{
		"random", "returns a random float in [0,1), a random int in [0,n), or a random int in [a,b)",
		0, 2,
		[]DeclarationParameter{
			{"a", "number", "upper bound, or lower bound when b is given (optional)"},
			{"b", "number", "upper bound (optional)"},
		}, "number",
		func(a ...Scmer) Scmer {
			switch len(a) {
			case 0:
				return NewFloat(rand.Float64())
			case 1:
				n := ToInt(a[0])
				if n <= 0 {
					panic("random: upper bound must be positive")
				}
				return NewInt(rand.Int63n(n))
			default:
				lo := ToInt(a[0])
				hi := ToInt(a[1])
				if hi <= lo {
					panic("random: upper bound must be greater than lower bound")
				}
				return NewInt(lo + rand.Int63n(hi-lo))
			}
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"uuid", "returns a new random UUID string (version 4)",
		0, 0,
		[]DeclarationParameter{}, "string",
		func(a ...Scmer) Scmer {
			return NewString(uuid.NewString())
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"uuid-fast", "returns a UUIDv4-like string from a counter; fast but not cryptographically random",
		0, 0,
		[]DeclarationParameter{}, "string",
		func(a ...Scmer) Scmer {
			return NewString(FastUUID().String())
		}, false,
	})
}
