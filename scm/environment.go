/*
Copyright (C) 2023-2025  Carl-Philip Hänsch

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
	"strings"
)

type Vars map[Symbol]Scmer

// Env is one frame of the scope chain. Closures share frames, so set!
// mutations are visible to every holder.
type Env struct {
	Vars  Vars
	Outer *Env
	Name  string
	// DynScope marks the frame so lambdas created below it default to
	// dynamic scoping (the Evaluate option).
	DynScope bool
	docs     map[Symbol]string
	consts   map[Symbol]struct{}
}

func NewEnv(outer *Env) *Env {
	return &Env{Vars: make(Vars), Outer: outer}
}

// FindRead returns the innermost frame defining s, or the outermost
// frame when nothing does. Callers check Vars membership themselves.
func (e *Env) FindRead(s Symbol) *Env {
	if _, ok := e.Vars[s]; ok {
		return e
	}
	if e.Outer == nil {
		return e
	}
	return e.Outer.FindRead(s)
}

// FindWrite returns the innermost frame defining s, or nil.
func (e *Env) FindWrite(s Symbol) *Env {
	if _, ok := e.Vars[s]; ok {
		return e
	}
	if e.Outer == nil {
		return nil
	}
	return e.Outer.FindWrite(s)
}

// Get resolves s through the chain, falling back to dotted-path
// traversal for names like a.b.c. Unbound names are fatal.
func (e *Env) Get(s Symbol) Scmer {
	if en := e.FindWrite(s); en != nil {
		return en.Vars[s]
	}
	name := SymbolName(s)
	if strings.IndexByte(name, '.') > 0 {
		if v, ok := e.lookupPath(name); ok {
			return v
		}
	}
	panic(&UnboundError{Name: name})
}

func (e *Env) GetOr(s Symbol, def Scmer) Scmer {
	if en := e.FindWrite(s); en != nil {
		return en.Vars[s]
	}
	name := SymbolName(s)
	if strings.IndexByte(name, '.') > 0 {
		if v, ok := e.lookupPath(name); ok {
			return v
		}
	}
	return def
}

// lookupPath walks a.b.c: the first segment through the chain, later
// segments through dict entries and environment bindings.
func (e *Env) lookupPath(name string) (Scmer, bool) {
	parts := strings.Split(name, ".")
	en := e.FindWrite(Intern(parts[0]))
	if en == nil {
		return NewNil(), false
	}
	cur := en.Vars[Intern(parts[0])]
	for _, part := range parts[1:] {
		cur = stripSource(cur)
		switch cur.GetTag() {
		case tagDict:
			v, ok := cur.Dict().GetStr(part)
			if !ok {
				return NewNil(), false
			}
			cur = v
		case tagEnv:
			inner := cur.Env().FindWrite(Intern(part))
			if inner == nil {
				return NewNil(), false
			}
			cur = inner.Vars[Intern(part)]
		default:
			return NewNil(), false
		}
	}
	return cur, true
}

// Has reports whether s is bound, in this frame only or anywhere up the
// chain.
func (e *Env) Has(s Symbol, deep bool) bool {
	if _, ok := e.Vars[s]; ok {
		return true
	}
	if deep && e.Outer != nil {
		return e.Outer.Has(s, true)
	}
	return false
}

// Set creates or overwrites the binding in this frame.
func (e *Env) Set(s Symbol, v Scmer) {
	if _, ok := e.consts[s]; ok {
		panic(&ConstantError{Name: SymbolName(s)})
	}
	e.Vars[s] = v
}

// Assign implements set!: mutate the nearest defining frame, fatal when
// none defines the name.
func (e *Env) Assign(s Symbol, v Scmer) {
	en := e.FindWrite(s)
	if en == nil {
		panic(&UnboundError{Name: SymbolName(s)})
	}
	if _, ok := en.consts[s]; ok {
		panic(&ConstantError{Name: SymbolName(s)})
	}
	en.Vars[s] = v
}

// Unset removes the nearest binding of s. Removing an unbound name is a
// no-op.
func (e *Env) Unset(s Symbol) {
	if en := e.FindWrite(s); en != nil {
		delete(en.Vars, s)
		delete(en.consts, s)
		delete(en.docs, s)
	}
}

// Constant defines a binding that refuses redefinition and set!.
func (e *Env) Constant(s Symbol, v Scmer) {
	if _, ok := e.consts[s]; ok {
		panic(&ConstantError{Name: SymbolName(s)})
	}
	e.Vars[s] = v
	if e.consts == nil {
		e.consts = make(map[Symbol]struct{})
	}
	e.consts[s] = struct{}{}
}

// Inherit spawns a child frame carrying the given bindings.
func (e *Env) Inherit(name string, vars Vars) *Env {
	if vars == nil {
		vars = make(Vars)
	}
	return &Env{Vars: vars, Outer: e, Name: name}
}

// Ref returns the frame defining s, or nil.
func (e *Env) Ref(s Symbol) *Env {
	return e.FindWrite(s)
}

// Doc returns the documentation attached to the nearest binding of s.
func (e *Env) Doc(s Symbol) (string, bool) {
	for en := e; en != nil; en = en.Outer {
		if doc, ok := en.docs[s]; ok {
			return doc, true
		}
		if _, ok := en.Vars[s]; ok {
			return "", false
		}
	}
	return "", false
}

// SetDoc attaches documentation to the binding in this frame.
func (e *Env) SetDoc(s Symbol, doc string) {
	if e.docs == nil {
		e.docs = make(map[Symbol]string)
	}
	e.docs[s] = doc
}

// dynScoped reports whether some enclosing frame switched on dynamic
// scoping by default.
func (e *Env) dynScoped() bool {
	for en := e; en != nil; en = en.Outer {
		if en.DynScope {
			return true
		}
	}
	return false
}

// Names lists the bindings of this frame in sorted order, for
// documentation and completion.
func (e *Env) Names() []string {
	names := make([]string, 0, len(e.Vars))
	for k := range e.Vars {
		names = append(names, SymbolName(k))
	}
	sort.Strings(names)
	return names
}
