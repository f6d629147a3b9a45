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
	"sort"

	"github.com/docker/go-units"
)

func init_introspect() {
	DeclareTitle("Introspection")

	Declare(&Globalenv, &Declaration{
		"type-of", "returns the type of a value as a symbol",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to examine"},
		}, "symbol",
		func(a ...Scmer) Scmer {
			return NewSymbol(typeName(stripSource(a[0])))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"symbol?", "tells if the value is a symbol",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(stripSource(a[0]).IsSymbol())
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"procedure?", "tells if the value is a procedure (native, lambda, continuation or parameter)",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(stripSource(a[0]).IsCallable())
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"size", "compute the memory size of a value; human=true renders it like 4KiB",
		1, 2,
		[]DeclarationParameter{
			{"value", "any", "value to examine"},
			{"human", "bool", "render as a human readable string (optional)"},
		}, "any",
		func(a ...Scmer) Scmer {
			n := ComputeSize(a[0])
			if len(a) > 1 && ToBool(a[1]) {
				return NewString(units.BytesSize(float64(n)))
			}
			return NewInt(int64(n))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"symbol->string", "returns the name of a symbol",
		1, 1,
		[]DeclarationParameter{
			{"symbol", "symbol", "input symbol"},
		}, "string",
		func(a ...Scmer) Scmer {
			v := stripSource(a[0])
			if !v.IsSymbol() {
				panic(&TypeError{Op: "symbol->string", ArgPos: 1, Expected: []string{"a symbol"}, Got: typeName(v)})
			}
			return NewString(SymbolName(v.Symbol()))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"string->symbol", "interns a string as a symbol",
		1, 1,
		[]DeclarationParameter{
			{"value", "string", "symbol name"},
		}, "symbol",
		func(a ...Scmer) Scmer {
			return NewSymbolId(Intern(stringArg("string->symbol", 1, a).S))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"bound?", "tells if a symbol resolves to a binding in the current scope",
		1, 1,
		[]DeclarationParameter{
			{"symbol", "symbol", "symbol to look up"},
		}, "bool",
		func(en *Env, a ...Scmer) Scmer {
			v := stripSource(a[0])
			if !v.IsSymbol() {
				panic(&TypeError{Op: "bound?", ArgPos: 1, Expected: []string{"a symbol"}, Got: typeName(v)})
			}
			return NewBool(en.Has(v.Symbol(), true))
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"env->list", "returns the visible bindings as a list of (name value) pairs, innermost scope first",
		0, 1,
		[]DeclarationParameter{
			{"env", "any", "environment to inspect (optional, defaults to the current scope)"},
		}, "list",
		func(en *Env, a ...Scmer) Scmer {
			if len(a) > 0 {
				v := stripSource(a[0])
				if v.GetTag() != tagEnv {
					panic(&TypeError{Op: "env->list", ArgPos: 1, Expected: []string{"an environment"}, Got: typeName(v)})
				}
				en = v.Env()
			}
			seen := make(map[Symbol]bool)
			var out []Scmer
			for e := en; e != nil; e = e.Outer {
				names := make([]Symbol, 0, len(e.Vars))
				for s := range e.Vars {
					if !seen[s] {
						names = append(names, s)
						seen[s] = true
					}
				}
				sort.Slice(names, func(i, j int) bool {
					return SymbolName(names[i]) < SymbolName(names[j])
				})
				for _, s := range names {
					out = append(out, NewPair(NewSymbolId(s), NewPair(e.Vars[s], NewNil())))
				}
			}
			return listWithTail(out, NewNil())
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"current-environment", "returns the current scope as a first-class value",
		0, 0,
		[]DeclarationParameter{}, "any",
		func(en *Env, a ...Scmer) Scmer {
			return NewEnvValue(en)
		}, false,
	})
}
