/*
Copyright (C) 2023-2025  Carl-Philip Hänsch
Copyright (C) 2013  Pieter Kelchtermans (originally licensed unter WTFPL 2.0)

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
/*
 * A minimal Scheme interpreter, as seen in lis.py and SICP
 * http://norvig.com/lispy.html
 * http://mitpress.mit.edu/sicp/full-text/sicp/book/node77.html
 *
 * Pieter Kelchtermans 2013
 * LICENSE: WTFPL 2.0
 */
package scm

import (
	"fmt"
	"strings"
	"time"
)

// Proc is a user-defined procedure. Body is a single form; multi-form
// bodies are wrapped in begin at construction time. Dynamic procedures
// resolve free variables through the calling chain instead of En.
type Proc struct {
	Params, Body Scmer
	En           *Env
	Name         string
	Dynamic      bool
}

var symTime = Intern("time")

func symbolOf(v Scmer) (Symbol, bool) {
	v = stripSource(v)
	if v.GetTag() == tagSymbol {
		return v.Symbol(), true
	}
	return 0, false
}

func mustSymbolIn(op string, v Scmer) Symbol {
	if s, ok := symbolOf(v); ok {
		return s
	}
	panic(&TypeError{Op: op, ArgPos: 1, Expected: []string{"a symbol"}, Got: typeName(v)})
}

// formElems splits a special form into its elements; special forms are
// always proper lists.
func formElems(form Scmer) []Scmer {
	elems, tail := listToSlice(form)
	if !stripSource(tail).IsNil() {
		panic(&SyntaxError{Msg: "improper special form: " + summarizeForm(form)})
	}
	return elems
}

// bodyForm turns zero or more body forms into one evaluable form.
func bodyForm(forms []Scmer) Scmer {
	switch len(forms) {
	case 0:
		return NewVoid()
	case 1:
		return forms[0]
	default:
		return NewPair(NewSymbolId(symBegin), listWithTail(forms, NewNil()))
	}
}

func summarizeForm(v Scmer) string {
	s := String(v)
	if r := []rune(s); len(r) > 80 {
		s = string(r[:77]) + "..."
	}
	return s
}

/*
 Eval / Apply
*/

// Eval evaluates one expression in one environment. Errors travel as
// panics; the deferred recover stamps the innermost source position seen
// on the way down so boundaries can print a "called from" trail.
func Eval(expression Scmer, en *Env) (value Scmer) {
	var src *SourceInfo
	defer func() {
		if r := recover(); r != nil {
			if src != nil {
				r = annotate(r, trailEntry{Source: src.Source, Line: src.Line, Col: src.Col, Form: summarizeForm(src.Value)})
			}
			panic(r)
		}
	}()
restart:
	switch expression.GetTag() {
	case tagSourceInfo:
		si := expression.SourceInfo()
		src = si
		expression = si.Value
		goto restart
	case tagSymbol:
		return en.Get(expression.Symbol())
	case tagPair:
		// handled below
	default:
		return expression
	}
	form := expression
	pr := form.Pair()
	head := stripSource(pr.Car)
	if head.GetTag() == tagSymbol {
		headSym := head.Symbol()
		switch headSym {
		case symQuote:
			elems := formElems(form)
			if len(elems) != 2 {
				panic(&SyntaxError{Msg: "quote takes exactly one form"})
			}
			return elems[1]
		case symIf:
			elems := formElems(form)
			if len(elems) < 3 || len(elems) > 4 {
				panic(&SyntaxError{Msg: "if takes a condition, a branch and an optional else branch"})
			}
			if ToBool(force(Eval(elems[1], en))) {
				expression = elems[2]
				goto restart
			}
			if len(elems) == 4 {
				expression = elems[3]
				goto restart
			}
			return NewVoid()
		case symDefine:
			return evalDefine(form, en)
		case symSet:
			elems := formElems(form)
			if len(elems) != 3 {
				panic(&SyntaxError{Msg: "set! takes a name and a value"})
			}
			sym := mustSymbolIn("set!", elems[1])
			val := Eval(elems[2], en)
			en.Assign(sym, val)
			return val
		case symLambda, symLambdaDyn:
			elems := formElems(form)
			if len(elems) < 2 {
				panic(&SyntaxError{Msg: "lambda takes a parameter list and a body"})
			}
			return NewProc(&Proc{
				Params:  elems[1],
				Body:    bodyForm(elems[2:]),
				En:      en,
				Dynamic: headSym == symLambdaDyn || en.dynScoped(),
			})
		case symBegin:
			elems := formElems(form)
			if len(elems) == 1 {
				return NewVoid()
			}
			en2 := &Env{Vars: make(Vars), Outer: en}
			for _, f := range elems[1 : len(elems)-1] {
				Eval(f, en2)
			}
			expression = elems[len(elems)-1]
			en = en2
			goto restart
		case symAnd:
			elems := formElems(form)
			if len(elems) == 1 {
				return NewBool(true)
			}
			for _, f := range elems[1 : len(elems)-1] {
				if v := force(Eval(f, en)); !ToBool(v) {
					return v
				}
			}
			expression = elems[len(elems)-1]
			goto restart
		case symOr:
			elems := formElems(form)
			if len(elems) == 1 {
				return NewBool(false)
			}
			for _, f := range elems[1 : len(elems)-1] {
				if v := force(Eval(f, en)); ToBool(v) {
					return v
				}
			}
			expression = elems[len(elems)-1]
			goto restart
		case symLet:
			elems := formElems(form)
			if len(elems) < 2 {
				panic(&SyntaxError{Msg: "let takes bindings and a body"})
			}
			if name, ok := symbolOf(elems[1]); ok {
				// named let: a loop procedure applied to the inits
				if len(elems) < 3 {
					panic(&SyntaxError{Msg: "named let takes bindings and a body"})
				}
				binds := bindingPairs(elems[2])
				params := make([]Scmer, len(binds))
				args := make([]Scmer, len(binds))
				for i, b := range binds {
					params[i] = NewSymbolId(b.sym)
					args[i] = Eval(b.expr, en)
				}
				loopEnv := &Env{Vars: make(Vars, 1), Outer: en}
				proc := &Proc{Params: listWithTail(params, NewNil()), Body: bodyForm(elems[3:]), En: loopEnv, Name: SymbolName(name)}
				loopEnv.Vars[name] = NewProc(proc)
				en = bindParams(proc, args, en)
				expression = proc.Body
				goto restart
			}
			binds := bindingPairs(elems[1])
			en2 := &Env{Vars: make(Vars, len(binds)), Outer: en}
			for _, b := range binds {
				en2.Vars[b.sym] = Eval(b.expr, en)
			}
			en = en2
			expression = bodyForm(elems[2:])
			goto restart
		case symLetStar:
			elems := formElems(form)
			if len(elems) < 2 {
				panic(&SyntaxError{Msg: "let* takes bindings and a body"})
			}
			en2 := &Env{Vars: make(Vars), Outer: en}
			for _, b := range bindingPairs(elems[1]) {
				en2.Vars[b.sym] = Eval(b.expr, en2)
			}
			en = en2
			expression = bodyForm(elems[2:])
			goto restart
		case symLetrec:
			elems := formElems(form)
			if len(elems) < 2 {
				panic(&SyntaxError{Msg: "letrec takes bindings and a body"})
			}
			binds := bindingPairs(elems[1])
			en2 := &Env{Vars: make(Vars, len(binds)), Outer: en}
			for _, b := range binds {
				en2.Vars[b.sym] = NewNil()
			}
			for _, b := range binds {
				en2.Vars[b.sym] = Eval(b.expr, en2)
			}
			en = en2
			expression = bodyForm(elems[2:])
			goto restart
		case symCond:
			elems := formElems(form)
			for _, clause := range elems[1:] {
				parts := formElems(stripSource(clause))
				if len(parts) == 0 {
					panic(&SyntaxError{Msg: "empty cond clause"})
				}
				var testVal Scmer
				if s, ok := symbolOf(parts[0]); ok && s == symElse {
					testVal = NewBool(true)
				} else {
					testVal = force(Eval(parts[0], en))
				}
				if !ToBool(testVal) {
					continue
				}
				if len(parts) == 1 {
					return testVal
				}
				if len(parts) == 3 {
					if a, ok := symbolOf(parts[1]); ok && a == symArrow {
						recv := force(Eval(parts[2], en))
						return ApplyEx(recv, []Scmer{testVal}, en)
					}
				}
				for _, f := range parts[1 : len(parts)-1] {
					Eval(f, en)
				}
				expression = parts[len(parts)-1]
				goto restart
			}
			return NewVoid()
		case symCase:
			elems := formElems(form)
			if len(elems) < 2 {
				panic(&SyntaxError{Msg: "case takes a key and clauses"})
			}
			key := force(Eval(elems[1], en))
			for _, clause := range elems[2:] {
				parts := formElems(stripSource(clause))
				if len(parts) == 0 {
					panic(&SyntaxError{Msg: "empty case clause"})
				}
				matched := false
				if s, ok := symbolOf(parts[0]); ok && s == symElse {
					matched = true
				} else {
					datums, _ := listToSlice(stripSource(parts[0]))
					for _, d := range datums {
						if Eqv(key, stripSource(d)) {
							matched = true
							break
						}
					}
				}
				if !matched {
					continue
				}
				if len(parts) == 3 {
					if a, ok := symbolOf(parts[1]); ok && a == symArrow {
						recv := force(Eval(parts[2], en))
						return ApplyEx(recv, []Scmer{key}, en)
					}
				}
				if len(parts) == 1 {
					return NewVoid()
				}
				for _, f := range parts[1 : len(parts)-1] {
					Eval(f, en)
				}
				expression = parts[len(parts)-1]
				goto restart
			}
			return NewVoid()
		case symDo:
			elems := formElems(form)
			if len(elems) < 3 {
				panic(&SyntaxError{Msg: "do takes bindings, an exit clause and a body"})
			}
			specs := doSpecs(elems[1])
			exit := formElems(stripSource(elems[2]))
			if len(exit) == 0 {
				panic(&SyntaxError{Msg: "do needs an exit test"})
			}
			child := &Env{Vars: make(Vars, len(specs)), Outer: en}
			for _, s := range specs {
				child.Vars[s.sym] = Eval(s.init, en)
			}
			for {
				if ToBool(force(Eval(exit[0], child))) {
					if len(exit) == 1 {
						return NewVoid()
					}
					for _, f := range exit[1 : len(exit)-1] {
						Eval(f, child)
					}
					expression = exit[len(exit)-1]
					en = child
					goto restart
				}
				for _, f := range elems[3:] {
					Eval(f, child)
				}
				// fresh frame per iteration, steps see the old bindings
				next := &Env{Vars: make(Vars, len(specs)), Outer: en}
				for _, s := range specs {
					if s.hasStep {
						next.Vars[s.sym] = Eval(s.step, child)
					} else {
						next.Vars[s.sym] = child.Vars[s.sym]
					}
				}
				child = next
			}
		case symWhile:
			elems := formElems(form)
			if len(elems) < 2 {
				panic(&SyntaxError{Msg: "while takes a condition and a body"})
			}
			last := NewVoid()
			for ToBool(force(Eval(elems[1], en))) {
				for _, f := range elems[2:] {
					last = Eval(f, en)
				}
			}
			return last
		case symTry:
			return evalTry(form, en)
		case symQuasiquote:
			elems := formElems(form)
			if len(elems) != 2 {
				panic(&SyntaxError{Msg: "quasiquote takes exactly one template"})
			}
			return evalQuasiquote(elems[1], 1, en)
		case symUnquote, symUnquoteSplicing:
			panic(&SyntaxError{Msg: SymbolName(headSym) + " outside quasiquote"})
		case symParameterize:
			return evalParameterize(form, en)
		case symDefineMacro:
			return evalDefineMacro(form, en)
		case symDefineSyntax:
			return evalDefineSyntax(form, en)
		case symLetSyntax:
			return evalLetSyntax(form, en, false)
		case symLetrecSyntax:
			return evalLetSyntax(form, en, true)
		case symSyntaxRules:
			return evalSyntaxRules(form, en)
		case symDefineSyntaxParameter:
			return evalDefineSyntaxParameter(form, en)
		case symSyntaxParameterize:
			return evalSyntaxParameterize(form, en)
		case symParser:
			elems := formElems(form)
			if len(elems) < 2 || len(elems) > 4 {
				panic(&SyntaxError{Msg: "parser takes a grammar, an optional generator and an optional skipper"})
			}
			generator := NewNil()
			if len(elems) > 2 {
				generator = elems[2]
			}
			skipper := NewNil()
			if len(elems) > 3 {
				skipper = force(Eval(elems[3], en))
			}
			return NewAny(NewParser(elems[1], generator, skipper, en))
		case symMatch:
			elems := formElems(form)
			if len(elems) < 3 {
				panic(&SyntaxError{Msg: "match takes a value and at least one pattern with a result"})
			}
			val := force(Eval(elems[1], en))
			en2 := &Env{Vars: make(Vars), Outer: en, Name: "match"}
			i := 2
			for i < len(elems)-1 {
				if match(val, elems[i], en2) {
					en = en2
					expression = elems[i+1]
					goto restart
				}
				i += 2
			}
			if i < len(elems) {
				// odd trailing form is the default branch
				expression = elems[i]
				goto restart
			}
			return NewNil()
		case symEval:
			elems := formElems(form)
			if len(elems) < 2 || len(elems) > 3 {
				panic(&SyntaxError{Msg: "eval takes a form and an optional environment"})
			}
			code := force(Eval(elems[1], en))
			if len(elems) == 3 {
				envv := force(Eval(elems[2], en))
				if envv.GetTag() != tagEnv {
					panic(&TypeError{Op: "eval", ArgPos: 2, Expected: []string{"an environment"}, Got: typeName(envv)})
				}
				return Eval(code, envv.Env())
			}
			expression = code
			goto restart
		case symTime:
			elems := formElems(form)
			if len(elems) < 2 {
				panic(&SyntaxError{Msg: "time takes a form and an optional label"})
			}
			var start time.Time
			if TracePrint {
				start = time.Now()
			}
			var timed Scmer
			if Trace != nil {
				label := "(time)"
				if len(elems) > 2 {
					label = String(force(Eval(elems[2], en)))
				}
				Trace.Duration(label, "scm", func() {
					timed = Eval(elems[1], en)
				})
			} else {
				timed = Eval(elems[1], en)
			}
			if TracePrint {
				d := time.Since(start).String()
				if len(elems) > 2 {
					fmt.Println("trace", d, String(force(Eval(elems[2], en))))
				} else {
					fmt.Println("trace", d)
				}
			}
			return timed
		}
		// a macro or syntax binding rewrites the form, then we start over
		if frame := en.FindWrite(headSym); frame != nil {
			switch b := frame.Vars[headSym]; b.GetTag() {
			case tagMacro:
				expression = expandMacroCall(b.Macro(), form, en)
				goto restart
			case tagSyntax:
				// hygiene: gensyms that leak into the value are mapped
				// back to the names the template spelled
				return rewriteLeakedGensyms(Eval(expandSyntaxCall(b.Syntax(), form, en), en))
			}
		}
	}
	// application
	operands, tail := listToSlice(pr.Cdr)
	if !stripSource(tail).IsNil() {
		panic(&SyntaxError{Msg: "improper argument list in call: " + summarizeForm(form)})
	}
	procedure := force(Eval(pr.Car, en))
	switch procedure.GetTag() {
	case tagFunc:
		return callFunc(procedure, evalArgs(operands, en), en)
	case tagProc:
		args := evalArgs(operands, en)
		p := procedure.Proc()
		en = bindParams(p, args, en)
		expression = p.Body
		goto restart
	case tagMacro:
		expression = expandMacroCall(procedure.Macro(), form, en)
		goto restart
	case tagSyntax:
		return rewriteLeakedGensyms(Eval(expandSyntaxCall(procedure.Syntax(), form, en), en))
	case tagDict:
		args := evalArgs(operands, en)
		return applyDict(procedure.Dict(), args)
	case tagParameter:
		args := evalArgs(operands, en)
		return applyParameter(procedure.Parameter(), args)
	case tagAny:
		if parser, ok := procedure.Any().(*ScmParser); ok {
			args := evalArgs(operands, en)
			if len(args) == 0 {
				return NewNil()
			}
			return parser.Execute(String(force(args[0])), en)
		}
		panic(&NotCallableError{Value: String(procedure), Form: summarizeForm(form)})
	default:
		panic(&NotCallableError{Value: String(procedure), Form: summarizeForm(form)})
	}
}

type binding struct {
	sym  Symbol
	expr Scmer
}

// bindingPairs reads a let-style binding list: (sym expr), (sym), or a
// bare symbol (bound to nil).
func bindingPairs(v Scmer) []binding {
	elems, tail := listToSlice(stripSource(v))
	if !stripSource(tail).IsNil() {
		panic(&SyntaxError{Msg: "improper binding list"})
	}
	out := make([]binding, 0, len(elems))
	for _, e := range elems {
		e = stripSource(e)
		if s, ok := symbolOf(e); ok {
			out = append(out, binding{sym: s, expr: NewNil()})
			continue
		}
		parts, ptail := listToSlice(e)
		if !stripSource(ptail).IsNil() || len(parts) == 0 || len(parts) > 2 {
			panic(&SyntaxError{Msg: "binding must be (name value): " + summarizeForm(e)})
		}
		b := binding{sym: mustSymbolIn("let", parts[0]), expr: NewNil()}
		if len(parts) == 2 {
			b.expr = parts[1]
		}
		out = append(out, b)
	}
	return out
}

type doSpec struct {
	sym     Symbol
	init    Scmer
	step    Scmer
	hasStep bool
}

func doSpecs(v Scmer) []doSpec {
	elems, tail := listToSlice(stripSource(v))
	if !stripSource(tail).IsNil() {
		panic(&SyntaxError{Msg: "improper do binding list"})
	}
	out := make([]doSpec, 0, len(elems))
	for _, e := range elems {
		parts, ptail := listToSlice(stripSource(e))
		if !stripSource(ptail).IsNil() || len(parts) < 2 || len(parts) > 3 {
			panic(&SyntaxError{Msg: "do binding must be (name init step): " + summarizeForm(e)})
		}
		s := doSpec{sym: mustSymbolIn("do", parts[0]), init: parts[1]}
		if len(parts) == 3 {
			s.step = parts[2]
			s.hasStep = true
		}
		out = append(out, s)
	}
	return out
}

func evalDefine(form Scmer, en *Env) Scmer {
	elems := formElems(form)
	if len(elems) < 2 {
		panic(&SyntaxError{Msg: "define takes a name and a value"})
	}
	target := stripSource(elems[1])
	if target.IsPair() {
		// (define (name . params) body...) with optional leading docstring
		sig := target.Pair()
		nameSym := mustSymbolIn("define", sig.Car)
		body := elems[2:]
		doc := ""
		if len(body) >= 2 {
			if d := stripSource(body[0]); d.GetTag() == tagString {
				doc = d.String()
				body = body[1:]
			}
		}
		val := NewProc(&Proc{
			Params:  sig.Cdr,
			Body:    bodyForm(body),
			En:      en,
			Name:    SymbolName(nameSym),
			Dynamic: en.dynScoped(),
		})
		en.Set(nameSym, val)
		if doc != "" {
			en.SetDoc(nameSym, doc)
		}
		return val
	}
	nameSym := mustSymbolIn("define", elems[1])
	if len(elems) < 3 {
		panic(&SyntaxError{Msg: "define takes a name and a value"})
	}
	val := Eval(elems[2], en)
	switch p := stripSource(val); p.GetTag() {
	case tagProc:
		if p.Proc().Name == "" {
			p.Proc().Name = SymbolName(nameSym)
		}
	case tagParameter:
		if p.Parameter().Name == "" {
			p.Parameter().Name = SymbolName(nameSym)
		}
	}
	en.Set(nameSym, val)
	if len(elems) >= 4 {
		if d := stripSource(elems[3]); d.GetTag() == tagString {
			en.SetDoc(nameSym, d.String())
		}
	}
	return val
}

// evalTry implements (try body... (catch (e) handler...) (finally cleanup...)).
// The catch body's value becomes the result; finally always runs and its
// own error supersedes.
func evalTry(form Scmer, en *Env) Scmer {
	elems := formElems(form)
	var bodyForms []Scmer
	var catchSym Symbol
	var catchBody []Scmer
	hasCatch := false
	var finallyForms []Scmer
	hasFinally := false
	for _, e := range elems[1:] {
		se := stripSource(e)
		if se.IsPair() {
			if s, ok := symbolOf(se.Pair().Car); ok {
				switch s {
				case symCatch:
					parts := formElems(se)
					if len(parts) < 2 {
						panic(&SyntaxError{Msg: "catch takes a binding and a body"})
					}
					bindForm := stripSource(parts[1])
					if bs, ok := symbolOf(bindForm); ok {
						catchSym = bs
					} else if bindForm.IsPair() {
						catchSym = mustSymbolIn("catch", bindForm.Pair().Car)
					} else {
						panic(&SyntaxError{Msg: "catch binding must be a symbol"})
					}
					catchBody = parts[2:]
					hasCatch = true
					continue
				case symFinally:
					finallyForms = formElems(se)[1:]
					hasFinally = true
					continue
				}
			}
		}
		if hasCatch || hasFinally {
			panic(&SyntaxError{Msg: "try body forms must come before catch and finally"})
		}
		bodyForms = append(bodyForms, e)
	}
	var result Scmer
	caught := func() (c any) {
		defer func() { c = recover() }()
		en2 := &Env{Vars: make(Vars), Outer: en}
		result = evalSeq(bodyForms, en2)
		return nil
	}()
	if caught != nil && hasCatch {
		caught = func() (c any) {
			defer func() { c = recover() }()
			cenv := &Env{Vars: make(Vars, 1), Outer: en}
			cenv.Vars[catchSym] = errorToScmer(caught)
			result = evalSeq(catchBody, cenv)
			return nil
		}()
	}
	if hasFinally {
		ferr := func() (f any) {
			defer func() { f = recover() }()
			evalSeq(finallyForms, &Env{Vars: make(Vars), Outer: en})
			return nil
		}()
		if ferr != nil {
			panic(ferr)
		}
	}
	if caught != nil {
		panic(caught)
	}
	return result
}

func evalSeq(forms []Scmer, en *Env) Scmer {
	result := NewVoid()
	for _, f := range forms {
		result = Eval(f, en)
	}
	return result
}

/*
 quasiquote
*/

func evalQuasiquote(template Scmer, depth int, en *Env) Scmer {
	t := stripSource(template)
	switch t.GetTag() {
	case tagPair:
		pr := t.Pair()
		if s, ok := symbolOf(pr.Car); ok {
			rest := stripSource(pr.Cdr)
			switch s {
			case symUnquote:
				if !rest.IsPair() {
					panic(&SyntaxError{Msg: "unquote takes exactly one form"})
				}
				if depth == 1 {
					return force(Eval(rest.Pair().Car, en))
				}
				return list(NewSymbolId(symUnquote), evalQuasiquote(rest.Pair().Car, depth-1, en))
			case symQuasiquote:
				if rest.IsPair() {
					return list(NewSymbolId(symQuasiquote), evalQuasiquote(rest.Pair().Car, depth+1, en))
				}
			case symUnquoteSplicing:
				if depth == 1 {
					panic(&SyntaxError{Msg: "unquote-splicing outside list context"})
				}
				if rest.IsPair() {
					return list(NewSymbolId(symUnquoteSplicing), evalQuasiquote(rest.Pair().Car, depth-1, en))
				}
			}
		}
		return qqList(t, depth, en)
	case tagVector:
		vec := t.Vector()
		out := make([]Scmer, 0, len(vec))
		for _, e := range vec {
			if spliceForm, ok := splicingForm(e); ok && depth == 1 {
				parts, stail := listToSlice(force(Eval(spliceForm, en)))
				if !stripSource(stail).IsNil() {
					panic(&TypeError{Op: "unquote-splicing", ArgPos: 1, Expected: []string{"a proper list"}, Got: typeName(stail)})
				}
				out = append(out, parts...)
			} else {
				out = append(out, evalQuasiquote(e, depth, en))
			}
		}
		return NewVector(out)
	default:
		return template
	}
}

func splicingForm(e Scmer) (Scmer, bool) {
	e = stripSource(e)
	if !e.IsPair() {
		return NewNil(), false
	}
	if s, ok := symbolOf(e.Pair().Car); !ok || s != symUnquoteSplicing {
		return NewNil(), false
	}
	rest := stripSource(e.Pair().Cdr)
	if !rest.IsPair() {
		return NewNil(), false
	}
	return rest.Pair().Car, true
}

func qqList(t Scmer, depth int, en *Env) Scmer {
	var elems []Scmer
	tail := NewNil()
	cur := t
	steps := 0
	var seen map[*Pair]struct{}
	for {
		cur = stripSource(cur)
		if !cur.IsPair() {
			if !cur.IsNil() {
				tail = evalQuasiquote(cur, depth, en)
			}
			break
		}
		pr := cur.Pair()
		if steps++; steps > cycleCheckThreshold {
			if seen == nil {
				seen = make(map[*Pair]struct{})
			}
			if _, dup := seen[pr]; dup {
				panic(&CycleError{Op: "quasiquote"})
			}
			seen[pr] = struct{}{}
		}
		// dotted tail unquote: (a . ,b) reads as (a unquote b)
		if s, ok := symbolOf(pr.Car); ok && s == symUnquote && depth == 1 && len(elems) > 0 {
			rest := stripSource(pr.Cdr)
			if rest.IsPair() && stripSource(rest.Pair().Cdr).IsNil() {
				tail = force(Eval(rest.Pair().Car, en))
				break
			}
		}
		if spliceForm, ok := splicingForm(pr.Car); ok && depth == 1 {
			spliced := force(Eval(spliceForm, en))
			parts, stail := listToSlice(spliced)
			elems = append(elems, parts...)
			next := stripSource(pr.Cdr)
			if next.IsNil() {
				// final position keeps an improper or atomic tail
				tail = stail
				break
			}
			if !stripSource(stail).IsNil() {
				panic(&TypeError{Op: "unquote-splicing", ArgPos: 1, Expected: []string{"a proper list"}, Got: typeName(spliced)})
			}
		} else {
			elems = append(elems, evalQuasiquote(pr.Car, depth, en))
		}
		cur = pr.Cdr
	}
	return listWithTail(elems, tail)
}

/*
 application
*/

func evalArgs(operands []Scmer, en *Env) []Scmer {
	args := make([]Scmer, len(operands))
	for i, x := range operands {
		args[i] = force(Eval(x, en))
	}
	return args
}

// bindParams builds the call frame: formals bound to arguments, a rest
// symbol collecting the remainder, missing trailing arguments bound to
// nil. The frame also carries arguments and parent.frame for
// diagnostics.
func bindParams(p *Proc, args []Scmer, caller *Env) *Env {
	outer := p.En
	if p.Dynamic {
		outer = caller
	}
	env := &Env{Vars: make(Vars, len(args)+2), Outer: outer}
	env.Vars[symArguments] = listWithTail(args, NewNil())
	env.Vars[symParentFrame] = NewEnvValue(caller)
	params := stripSource(p.Params)
	switch params.GetTag() {
	case tagNil:
		if len(args) > 0 {
			panic(&ArityError{Name: p.Name, Want: 0, Got: len(args)})
		}
	case tagSymbol:
		env.Vars[params.Symbol()] = listWithTail(args, NewNil())
	case tagPair:
		syms, ptail := listToSlice(params)
		for i, ps := range syms {
			sym := mustSymbolIn("lambda", ps)
			if sym == symUnderscore {
				continue
			}
			if i < len(args) {
				env.Vars[sym] = args[i]
			} else {
				env.Vars[sym] = NewNil()
			}
		}
		ptail = stripSource(ptail)
		if rest, ok := symbolOf(ptail); ok {
			if len(args) > len(syms) {
				env.Vars[rest] = listWithTail(args[len(syms):], NewNil())
			} else {
				env.Vars[rest] = NewNil()
			}
		} else if ptail.IsNil() {
			if len(args) > len(syms) {
				panic(&ArityError{Name: p.Name, Want: len(syms), Got: len(args)})
			}
		} else {
			panic(&SyntaxError{Msg: "parameter list must end in a symbol or nil"})
		}
	default:
		panic(&SyntaxError{Msg: "proc parameters must be list, symbol, or nil"})
	}
	return env
}

func applyDict(d *Dict, args []Scmer) Scmer {
	if len(args) == 0 {
		return NewNil()
	}
	if v, ok := d.Get(args[0]); ok {
		return v
	}
	if def, ok := d.Fallback(); ok {
		return def
	}
	return NewNil()
}

func applyParameter(p *Parameter, args []Scmer) Scmer {
	if len(args) == 0 {
		return p.Value()
	}
	p.SetValue(args[0])
	return NewVoid()
}

// Apply calls a procedure value from Go with already-evaluated
// arguments. Eval uses an inline code path to keep tail calls flat.
func Apply(procedure Scmer, args ...Scmer) Scmer {
	return ApplyEx(procedure, args, &Globalenv)
}

func ApplyEx(procedure Scmer, args []Scmer, en *Env) Scmer {
	procedure = force(stripSource(procedure))
	if Trace != nil {
		var result Scmer
		Trace.Duration(applyLabel(procedure), "apply", func() {
			result = applyInner(procedure, args, en)
		})
		return result
	}
	return applyInner(procedure, args, en)
}

// callFunc invokes a native function, guarding declared builtins with
// their min/max arity.
func callFunc(procedure Scmer, args []Scmer, en *Env) Scmer {
	if def, ok := declarations_hash[funcPointer(procedure.ptr)]; ok {
		checkArity(def, len(args))
	}
	if auxVal(procedure.aux) == funcKindWithEnv {
		return procedure.EnvFunc()(en, args...)
	}
	return procedure.Func()(args...)
}

func applyInner(procedure Scmer, args []Scmer, en *Env) Scmer {
	switch procedure.GetTag() {
	case tagFunc:
		return callFunc(procedure, args, en)
	case tagProc:
		p := procedure.Proc()
		env := bindParams(p, args, en)
		return Eval(p.Body, env)
	case tagDict:
		return applyDict(procedure.Dict(), args)
	case tagParameter:
		return applyParameter(procedure.Parameter(), args)
	case tagContinuation:
		panic("invoking a continuation is not supported")
	case tagAny:
		if parser, ok := procedure.Any().(*ScmParser); ok {
			if len(args) == 0 {
				return NewNil()
			}
			return parser.Execute(String(force(args[0])), en)
		}
		panic(&NotCallableError{Value: String(procedure), Form: "(apply)"})
	default:
		panic(&NotCallableError{Value: String(procedure), Form: "(apply)"})
	}
}

/*
 public boundary
*/

// EvalOptions configures an evaluation boundary. DynamicEnv, when set,
// roots the calling chain used by dynamically-scoped procedures;
// DynamicScope makes plain lambda behave like lambda/d below this
// boundary. OnError receives the error and the offending form; returning
// handled=true substitutes its value for the failed evaluation.
type EvalOptions struct {
	Env          *Env
	DynamicEnv   *Env
	DynamicScope bool
	FileName     string
	OnError      func(err error, form Scmer) (Scmer, bool)
}

func Evaluate(expr Scmer, opts EvalOptions) (Scmer, error) {
	return evaluate(expr, opts, false)
}

func evaluate(expr Scmer, opts EvalOptions, await bool) (result Scmer, err error) {
	en := opts.Env
	if en == nil {
		en = &Globalenv
	}
	if opts.DynamicEnv != nil {
		en = opts.DynamicEnv
	}
	if opts.DynamicScope {
		en = &Env{Vars: make(Vars), Outer: en, DynScope: true}
	}
	defer func() {
		if r := recover(); r != nil {
			e := errorAsError(r)
			if opts.OnError != nil {
				if v, handled := opts.OnError(e, expr); handled {
					result = v
					err = nil
					return
				}
			}
			result = NewNil()
			err = e
		}
	}()
	v := Eval(expr, en)
	if await {
		v = force(v)
	}
	return v, nil
}

// Exec parses and evaluates all top-level forms of source, awaiting
// pending results. The first fatal error aborts the remaining forms.
func Exec(source string, opts EvalOptions) (results []Scmer, err error) {
	en := opts.Env
	if en == nil {
		en = &Globalenv
	}
	var forms []Scmer
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = errorAsError(r)
			}
		}()
		forms = ParseFile(source, opts.FileName, en)
		for _, form := range forms {
			Validate(form, "any")
		}
	}()
	if err != nil {
		if opts.OnError != nil {
			if v, handled := opts.OnError(err, NewNil()); handled {
				return []Scmer{v}, nil
			}
		}
		return nil, err
	}
	for _, form := range forms {
		v, ferr := evaluate(form, opts, true)
		if ferr != nil {
			return results, ferr
		}
		results = append(results, v)
	}
	return results, nil
}

/*
 Primitives
*/

var Globalenv Env

func init() {
	Globalenv = Env{
		Vars: Vars{
			Intern("true"):  NewBool(true),
			Intern("false"): NewBool(false),
		},
		Outer: nil,
		Name:  "global",
	}

	DeclareTitle("Core")
	Declare(&Globalenv, &Declaration{
		"quote", "returns a form without evaluating it",
		1, 1,
		[]DeclarationParameter{
			{"form", "any", "form to quote"},
		}, "any", nil, true,
	})
	Declare(&Globalenv, &Declaration{
		"eval", "evaluates a form, optionally in a given environment",
		1, 2,
		[]DeclarationParameter{
			{"code", "list", "form to evaluate"},
			{"environment", "environment", "environment to evaluate in (defaults to the current one)"},
		}, "any", nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"if", "evaluates the condition and then one of the two branches",
		2, 3,
		[]DeclarationParameter{
			{"condition", "any", "condition to evaluate"},
			{"true-branch", "returntype", "form evaluated when the condition is truthy"},
			{"false-branch", "returntype", "form evaluated otherwise; missing means void"},
		}, "returntype", nil, true,
	})
	Declare(&Globalenv, &Declaration{
		"and", "evaluates forms left to right and returns the first falsy value, or the last value",
		0, 10000,
		[]DeclarationParameter{
			{"condition...", "any", "forms to evaluate"},
		}, "any", nil, true,
	})
	Declare(&Globalenv, &Declaration{
		"or", "evaluates forms left to right and returns the first truthy value, or the last value",
		0, 10000,
		[]DeclarationParameter{
			{"condition...", "any", "forms to evaluate"},
		}, "any", nil, true,
	})
	Declare(&Globalenv, &Declaration{
		"define", "binds a name in the current scope; (define (f args) body...) defines a function",
		2, 10000,
		[]DeclarationParameter{
			{"name", "any", "symbol to bind, or a (name params...) signature"},
			{"value...", "any", "value to bind, or an optional docstring followed by body forms"},
		}, "any", nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"set!", "assigns to the nearest binding of the name; unbound names are an error",
		2, 2,
		[]DeclarationParameter{
			{"name", "symbol", "name to assign"},
			{"value", "returntype", "value to assign"},
		}, "returntype", nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"lambda", "returns a lexically scoped procedure",
		2, 10000,
		[]DeclarationParameter{
			{"parameters", "symbol|list|nil", "parameter list, rest symbol, or nil"},
			{"body...", "any", "body forms"},
		}, "func", nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"lambda/d", "returns a dynamically scoped procedure resolving free names through the caller",
		2, 10000,
		[]DeclarationParameter{
			{"parameters", "symbol|list|nil", "parameter list, rest symbol, or nil"},
			{"body...", "any", "body forms"},
		}, "func", nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"begin", "opens a child scope, evaluates all forms and returns the last value",
		0, 10000,
		[]DeclarationParameter{
			{"expression...", "any", "forms to evaluate"},
		}, "any", nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"let", "binds variables in a child scope; (let name bindings body) loops",
		2, 10000,
		[]DeclarationParameter{
			{"bindings", "list", "list of (name value) pairs, evaluated in the outer scope"},
			{"body...", "any", "body forms"},
		}, "any", nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"let*", "like let but each binding sees the previous ones",
		2, 10000,
		[]DeclarationParameter{
			{"bindings", "list", "list of (name value) pairs"},
			{"body...", "any", "body forms"},
		}, "any", nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"letrec", "like let but bindings may reference each other (for mutual recursion)",
		2, 10000,
		[]DeclarationParameter{
			{"bindings", "list", "list of (name value) pairs"},
			{"body...", "any", "body forms"},
		}, "any", nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"cond", "evaluates clauses (test body...) in order and runs the first truthy one; supports else and =>",
		1, 10000,
		[]DeclarationParameter{
			{"clause...", "list", "clauses of the form (test body...)"},
		}, "any", nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"case", "matches a key against datum lists with eqv? semantics; supports else and =>",
		2, 10000,
		[]DeclarationParameter{
			{"key", "any", "value to match"},
			{"clause...", "list", "clauses of the form ((datum...) body...)"},
		}, "any", nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"do", "iteration form with step expressions and an exit clause",
		2, 10000,
		[]DeclarationParameter{
			{"bindings", "list", "list of (name init step) triples"},
			{"exit", "list", "(test result...) evaluated before each iteration"},
			{"body...", "any", "commands run each iteration"},
		}, "any", nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"while", "evaluates the body while the condition stays truthy",
		1, 10000,
		[]DeclarationParameter{
			{"condition", "any", "loop condition"},
			{"body...", "any", "body forms"},
		}, "any", nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"try", "evaluates the body; (catch (e) ...) binds a raised error, (finally ...) always runs",
		1, 10000,
		[]DeclarationParameter{
			{"body...", "any", "protected forms, then optional catch and finally clauses"},
		}, "any", nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"match", `takes a value and evaluates the branch of the first matching pattern
Patterns can be any of:
 - symbol matches any value and stores it into a variable (_ binds nothing)
 - "string" (matches only this string)
 - number (matches only this value)
 - (symbol something) will only match the symbol 'something'
 - '(subpattern subpattern...) matches a list with exactly these subpatterns
 - (concat str1 str2 str3) will decompose a string into one of the following patterns: "prefix" variable, variable "postfix", variable "infix" variable
 - (cons a b) will reverse the cons function, so it will match the head of the list with a and the rest with b
 - (regex "pattern" text var1 var2...) will match the given regex pattern, store the whole string into text and all capture groups into var1, var2...
 - (eval expr) matches when the value equals the result of expr
`,
		3, 10000,
		[]DeclarationParameter{
			{"value", "any", "value to evaluate"},
			{"pattern...", "any", "pattern"},
			{"result...", "any", "result value when the pattern matches; this code can use the variables matched in the pattern"},
			{"default", "any", "(optional) value that is returned when no pattern matches"},
		}, "any", nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"quasiquote", "quotes a template; unquote evaluates a hole, unquote-splicing splices a list",
		1, 1,
		[]DeclarationParameter{
			{"template", "any", "template form"},
		}, "any", nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"time", "measures the evaluation time of the first argument",
		1, 2,
		[]DeclarationParameter{
			{"code", "any", "form to evaluate"},
			{"label", "string", "label to print in the log or trace"},
		}, "any", nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"raise", "raises a value as an error; try/catch binds it verbatim",
		1, 1,
		[]DeclarationParameter{
			{"payload", "any", "value to raise"},
		}, "any",
		func(a ...Scmer) Scmer {
			panic(&UserError{Payload: a[0]})
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"throw", "alias of raise",
		1, 1,
		[]DeclarationParameter{
			{"payload", "any", "value to raise"},
		}, "any",
		func(a ...Scmer) Scmer {
			panic(&UserError{Payload: a[0]})
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"error", "raises an error built from the given values",
		1, 1000,
		[]DeclarationParameter{
			{"value...", "any", "value or message parts"},
		}, "any",
		func(a ...Scmer) Scmer {
			if len(a) == 1 {
				panic(&UserError{Payload: a[0]})
			}
			var b strings.Builder
			for _, v := range a {
				b.WriteString(String(v))
			}
			panic(&UserError{Payload: NewString(b.String())})
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"apply", "calls the function; the last argument is a list spread into the call",
		2, 1000,
		[]DeclarationParameter{
			{"function", "func", "function to call"},
			{"arguments...", "any", "leading arguments, then a list of remaining arguments"},
		}, "any",
		func(en *Env, a ...Scmer) Scmer {
			last, tail := listToSlice(a[len(a)-1])
			if !stripSource(tail).IsNil() {
				panic(&TypeError{Op: "apply", ArgPos: len(a), Expected: []string{"a proper list"}, Got: typeName(a[len(a)-1])})
			}
			args := append(append([]Scmer{}, a[1:len(a)-1]...), last...)
			return ApplyEx(a[0], args, en)
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"values", "bundles multiple return values",
		0, 1000,
		[]DeclarationParameter{
			{"value...", "any", "values to return"},
		}, "any",
		func(a ...Scmer) Scmer {
			if len(a) == 1 {
				return a[0]
			}
			return NewValues(append([]Scmer{}, a...))
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"call-with-values", "calls the producer and spreads its values into the consumer",
		2, 2,
		[]DeclarationParameter{
			{"producer", "func", "called with no arguments"},
			{"consumer", "func", "called with the produced values"},
		}, "any",
		func(en *Env, a ...Scmer) Scmer {
			vals := force(ApplyEx(a[0], nil, en))
			if vals.GetTag() == tagValues {
				return ApplyEx(a[1], vals.Values(), en)
			}
			return ApplyEx(a[1], []Scmer{vals}, en)
		}, false,
	})
	callccFn := func(en *Env, a ...Scmer) Scmer {
		// escape-only stub: the continuation errors when invoked
		return ApplyEx(a[0], []Scmer{NewContinuation(&Continuation{})}, en)
	}
	Declare(&Globalenv, &Declaration{
		"call-with-current-continuation", "calls the function with the current continuation; invoking the continuation is not supported, only ignoring it",
		1, 1,
		[]DeclarationParameter{
			{"function", "func", "function receiving the continuation"},
		}, "any",
		callccFn, false,
	})
	Declare(&Globalenv, &Declaration{
		"call/cc", "calls the function with the current continuation; invoking the continuation is not supported, only ignoring it",
		1, 1,
		[]DeclarationParameter{
			{"function", "func", "function receiving the continuation"},
		}, "any",
		callccFn, false,
	})
	Declare(&Globalenv, &Declaration{
		"scheme", "parses source text; returns the form, or a list of forms when there are several",
		1, 2,
		[]DeclarationParameter{
			{"code", "string", "source text"},
			{"filename", "string", "optional filename for error positions"},
		}, "any",
		func(en *Env, a ...Scmer) Scmer {
			filename := ""
			if len(a) > 1 {
				filename = String(a[1])
			}
			forms := ParseFile(String(a[0]), filename, en)
			if len(forms) == 1 {
				return forms[0]
			}
			return listWithTail(forms, NewNil())
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"serialize", "serializes a value into re-parsable source text, closures included",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to serialize"},
		}, "string",
		func(a ...Scmer) Scmer {
			return NewString(SerializeToString(a[0], &Globalenv))
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"source", "annotates a form with filename and position for better backtraces",
		4, 4,
		[]DeclarationParameter{
			{"filename", "string", "filename of the code"},
			{"line", "number", "line of the code"},
			{"column", "number", "column of the code"},
			{"code", "returntype", "code"},
		}, "returntype",
		func(a ...Scmer) Scmer {
			return NewSourceInfo(SourceInfo{
				Source: String(a[0]),
				Line:   int(ToInt(a[1])),
				Col:    int(ToInt(a[2])),
				Value:  a[3],
			})
		}, true,
	})

	init_alu()
	init_compare()
	init_list()
	init_strings()
	init_streams()
	init_dict()
	init_vector()
	init_date()
	init_parameter()
	init_promise()
	init_scheduler()
	init_macro()
	init_parser()
	init_introspect()
	init_random()
	init_sync()
	init_trace()
}
