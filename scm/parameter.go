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
	"github.com/jtolds/gls"
)

// paramMgr carries parameterize extents per goroutine; gls.Go-spawned
// resolvers inherit them, so a parameterized sleep callback still sees
// its bindings.
var paramMgr = gls.NewContextManager()

type paramCell struct {
	v Scmer
}

// Parameter is a dynamically scoped cell. Calling it with no argument
// reads the innermost extent, with one argument assigns it for the
// remaining extent. The converter runs on the default and on every
// assignment.
type Parameter struct {
	Name      string
	Converter Scmer
	cell      *paramCell
}

func (p *Parameter) convert(v Scmer) Scmer {
	if p.Converter.IsNil() {
		return v
	}
	return force(Apply(p.Converter, v))
}

func (p *Parameter) Value() Scmer {
	if c, ok := paramMgr.GetValue(p); ok {
		return c.(*paramCell).v
	}
	return p.cell.v
}

func (p *Parameter) SetValue(v Scmer) {
	v = p.convert(v)
	if c, ok := paramMgr.GetValue(p); ok {
		c.(*paramCell).v = v
		return
	}
	p.cell.v = v
}

// evalParameterize implements (parameterize ((param value)...) body...).
// Old extents are restored when the body finishes, normally or not.
func evalParameterize(form Scmer, en *Env) Scmer {
	elems := formElems(form)
	if len(elems) < 2 {
		panic(&SyntaxError{Msg: "parameterize takes bindings and a body"})
	}
	groups, tail := listToSlice(stripSource(elems[1]))
	if !stripSource(tail).IsNil() {
		panic(&SyntaxError{Msg: "improper parameterize binding list"})
	}
	vals := gls.Values{}
	for _, g := range groups {
		parts := formElems(stripSource(g))
		if len(parts) != 2 {
			panic(&SyntaxError{Msg: "parameterize binding must be (parameter value): " + summarizeForm(g)})
		}
		pv := force(Eval(parts[0], en))
		if pv.GetTag() != tagParameter {
			panic(&TypeError{Op: "parameterize", ArgPos: 1, Expected: []string{"a parameter"}, Got: typeName(pv)})
		}
		p := pv.Parameter()
		vals[p] = &paramCell{v: p.convert(force(Eval(parts[1], en)))}
	}
	var result Scmer
	body := elems[2:]
	paramMgr.SetValues(vals, func() {
		result = evalSeq(body, &Env{Vars: make(Vars), Outer: en})
	})
	return result
}

func init_parameter() {
	DeclareTitle("Parameters")

	Declare(&Globalenv, &Declaration{
		"make-parameter", "returns a dynamically scoped parameter; the converter runs on the default and on every assignment",
		1, 2,
		[]DeclarationParameter{
			{"default", "any", "initial value"},
			{"converter", "func", "conversion function applied to values"},
		}, "parameter",
		func(a ...Scmer) Scmer {
			p := &Parameter{Converter: NewNil(), cell: &paramCell{}}
			if len(a) > 1 {
				p.Converter = a[1]
			}
			p.cell.v = p.convert(a[0])
			return NewParameter(p)
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"parameter?", "tells whether the value is a parameter",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to test"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(stripSource(a[0]).GetTag() == tagParameter)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"parameterize", "rebinds parameters for the dynamic extent of the body and restores them on exit",
		2, 10000,
		[]DeclarationParameter{
			{"bindings", "list", "list of (parameter value) pairs"},
			{"body...", "any", "body forms"},
		}, "any", nil, false,
	})
}
