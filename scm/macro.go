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

// Macro is a define-macro transformer: a procedure that receives the call
// arguments unevaluated and whose result is evaluated again when it is code.
type Macro struct {
	Name string
	Fn   Scmer
}

// Syntax is a syntax-rules transformer. Rules are tried in order, the first
// matching pattern wins. Env is the definition environment; free template
// identifiers resolve against it no matter where the macro is used.
type Syntax struct {
	Name      string
	Literals  []Symbol
	Rules     []syntaxRule
	Env       *Env
	Parameter bool
}

type syntaxRule struct {
	Pattern  Scmer
	Template Scmer
}

// matchNode is one captured pattern variable. A variable under N ellipses
// nests N levels of many before the leaf.
type matchNode struct {
	leaf   Scmer
	many   []*matchNode
	isMany bool
}

// specialFormSyms are evaluator keywords. They are not bindings, so template
// hygiene must leave them alone.
var specialFormSyms map[Symbol]struct{}

func init() {
	specialFormSyms = make(map[Symbol]struct{})
	for _, name := range []string{
		"quote", "quasiquote", "unquote", "unquote-splicing",
		"if", "define", "set!", "lambda", "lambda/d", "begin",
		"and", "or", "let", "let*", "letrec", "cond", "case", "else", "=>",
		"do", "while", "try", "catch", "finally", "eval", "time",
		"parameterize", "define-macro", "define-syntax", "let-syntax",
		"letrec-syntax", "syntax-rules", "define-syntax-parameter",
		"syntax-parameterize", "_", "...",
	} {
		specialFormSyms[Intern(name)] = struct{}{}
	}
}

/*
 define-macro
*/

// expandMacroCall hands the unevaluated argument forms to the transformer.
// The body runs in the macro's definition environment (it is a closure).
func expandMacroCall(m *Macro, form Scmer, en *Env) Scmer {
	f := stripSource(form)
	args, tail := listToSlice(f.Pair().Cdr)
	if !stripSource(tail).IsNil() {
		panic(&MacroError{Macro: m.Name, Form: summarizeForm(form), Msg: "improper macro call"})
	}
	return ApplyEx(m.Fn, args, en)
}

func evalDefineMacro(form Scmer, en *Env) Scmer {
	elems := formElems(form)
	if len(elems) < 3 {
		panic(&SyntaxError{Msg: "define-macro takes a signature and a body"})
	}
	target := stripSource(elems[1])
	if target.IsPair() {
		// (define-macro (name . formals) body...): formals receive the raw
		// call forms, a trailing bare symbol collects the rest
		sig := target.Pair()
		nameSym := mustSymbolIn("define-macro", sig.Car)
		body := elems[2:]
		doc := ""
		if len(body) >= 2 {
			if d := stripSource(body[0]); d.GetTag() == tagString {
				doc = d.String()
				body = body[1:]
			}
		}
		fn := NewProc(&Proc{
			Params: sig.Cdr,
			Body:   bodyForm(body),
			En:     en,
			Name:   SymbolName(nameSym),
		})
		val := NewMacro(&Macro{Name: SymbolName(nameSym), Fn: fn})
		en.Set(nameSym, val)
		if doc != "" {
			en.SetDoc(nameSym, doc)
		}
		return val
	}
	// (define-macro name fn): the serialized spelling
	nameSym := mustSymbolIn("define-macro", elems[1])
	fn := force(Eval(elems[2], en))
	switch fn.GetTag() {
	case tagProc, tagFunc:
	default:
		panic(&TypeError{Op: "define-macro", ArgPos: 2, Expected: []string{"a procedure"}, Got: typeName(fn)})
	}
	val := NewMacro(&Macro{Name: SymbolName(nameSym), Fn: fn})
	en.Set(nameSym, val)
	return val
}

/*
 syntax-rules
*/

func evalSyntaxRules(form Scmer, en *Env) Scmer {
	elems := formElems(form)
	if len(elems) < 2 {
		panic(&SyntaxError{Msg: "syntax-rules takes a literal list and rules"})
	}
	litElems, tail := listToSlice(stripSource(elems[1]))
	if !stripSource(tail).IsNil() {
		panic(&MacroError{Macro: "syntax-rules", Msg: "invalid literal list: " + summarizeForm(elems[1])})
	}
	literals := make([]Symbol, 0, len(litElems))
	for _, l := range litElems {
		sym, ok := symbolOf(l)
		if !ok || sym == symEllipsis || sym == symUnderscore {
			panic(&MacroError{Macro: "syntax-rules", Msg: "invalid literal list: " + summarizeForm(elems[1])})
		}
		literals = append(literals, sym)
	}
	s := &Syntax{Literals: literals, Env: en}
	for _, clause := range elems[2:] {
		parts := formElems(clause)
		if len(parts) != 2 {
			panic(&MacroError{Macro: "syntax-rules", Msg: "a rule is (pattern template), got " + summarizeForm(clause)})
		}
		pat := stripSource(parts[0])
		if !pat.IsPair() {
			panic(&MacroError{Macro: "syntax-rules", Msg: "a pattern must be a call form, got " + summarizeForm(parts[0])})
		}
		s.validatePattern(pat)
		s.Rules = append(s.Rules, syntaxRule{Pattern: parts[0], Template: parts[1]})
	}
	return NewSyntax(s)
}

// validatePattern rejects leading and doubled ellipses at every list level.
func (s *Syntax) validatePattern(pat Scmer) {
	pat = stripSource(pat)
	switch pat.GetTag() {
	case tagPair:
		elems, tail := listToSlice(pat)
		seenEllipsis := false
		for i, e := range elems {
			if sym, ok := symbolOf(e); ok && sym == symEllipsis {
				if i == 0 {
					panic(&MacroError{Macro: s.Name, Msg: "a pattern may not begin with an ellipsis: " + summarizeForm(pat)})
				}
				if seenEllipsis {
					panic(&MacroError{Macro: s.Name, Msg: "more than one ellipsis in one pattern level: " + summarizeForm(pat)})
				}
				seenEllipsis = true
				continue
			}
			s.validatePattern(e)
		}
		s.validatePattern(tail)
	case tagVector:
		vecElems := pat.Vector()
		seenEllipsis := false
		for i, e := range vecElems {
			if sym, ok := symbolOf(e); ok && sym == symEllipsis {
				if i == 0 {
					panic(&MacroError{Macro: s.Name, Msg: "a pattern may not begin with an ellipsis: " + summarizeForm(pat)})
				}
				if seenEllipsis {
					panic(&MacroError{Macro: s.Name, Msg: "more than one ellipsis in one pattern level: " + summarizeForm(pat)})
				}
				seenEllipsis = true
				continue
			}
			s.validatePattern(e)
		}
	}
}

func (s *Syntax) isLiteral(sym Symbol) bool {
	for _, l := range s.Literals {
		if l == sym {
			return true
		}
	}
	return false
}

// expandSyntaxCall matches the call against the rules in order and
// instantiates the first matching template.
func expandSyntaxCall(s *Syntax, form Scmer, en *Env) Scmer {
	f := stripSource(form)
	for _, rule := range s.Rules {
		pat := stripSource(rule.Pattern)
		binds := make(map[Symbol]*matchNode)
		// the keyword position of the pattern is ignored
		if s.matchSeq(pat.Pair().Cdr, f.Pair().Cdr, binds) {
			x := &expansion{s: s, renames: make(map[Symbol]Symbol)}
			return x.subst(rule.Template, binds)
		}
	}
	panic(&MacroError{Macro: s.Name, Form: summarizeForm(form), Msg: "no matching syntax"})
}

/*
 pattern matching
*/

func (s *Syntax) match(pat, form Scmer, binds map[Symbol]*matchNode) bool {
	pat = stripSource(pat)
	if sym, ok := symbolOf(pat); ok {
		if sym == symUnderscore {
			return true
		}
		if s.isLiteral(sym) {
			fsym, isSym := symbolOf(form)
			return isSym && fsym == sym
		}
		binds[sym] = &matchNode{leaf: form}
		return true
	}
	f := stripSource(form)
	switch pat.GetTag() {
	case tagNil:
		return f.IsNil()
	case tagPair:
		if !f.IsPair() {
			return false
		}
		return s.matchSeq(pat, f, binds)
	case tagVector:
		if f.GetTag() != tagVector {
			return false
		}
		return s.matchElems(pat.Vector(), NewNil(), f.Vector(), NewNil(), binds)
	default:
		// a self-evaluating datum in the pattern matches by value
		return Equal(pat, f)
	}
}

// matchSeq matches a (possibly improper, possibly ellipsis) list pattern.
func (s *Syntax) matchSeq(pat, form Scmer, binds map[Symbol]*matchNode) bool {
	pelems, ptail := listToSlice(stripSource(pat))
	felems, ftail := listToSlice(stripSource(form))
	return s.matchElems(pelems, ptail, felems, ftail, binds)
}

func (s *Syntax) matchElems(pelems []Scmer, ptail Scmer, felems []Scmer, ftail Scmer, binds map[Symbol]*matchNode) bool {
	ellipsisAt := -1
	for i, pe := range pelems {
		if sym, ok := symbolOf(pe); ok && sym == symEllipsis {
			ellipsisAt = i
			break
		}
	}
	if ellipsisAt < 0 {
		if len(felems) < len(pelems) {
			return false
		}
		if len(felems) > len(pelems) && stripSource(ptail).IsNil() {
			return false
		}
		for i := range pelems {
			if !s.match(pelems[i], felems[i], binds) {
				return false
			}
		}
		rest := listWithTail(felems[len(pelems):], ftail)
		return s.matchTail(ptail, rest, binds)
	}
	repPat := pelems[ellipsisAt-1]
	prefix := pelems[:ellipsisAt-1]
	suffix := pelems[ellipsisAt+1:]
	reps := len(felems) - len(prefix) - len(suffix)
	if reps < 0 {
		return false
	}
	for i := range prefix {
		if !s.match(prefix[i], felems[i], binds) {
			return false
		}
	}
	vars := make(map[Symbol]struct{})
	s.patternVars(repPat, vars)
	nodes := make(map[Symbol]*matchNode, len(vars))
	for v := range vars {
		nodes[v] = &matchNode{isMany: true}
	}
	for i := 0; i < reps; i++ {
		sub := make(map[Symbol]*matchNode)
		if !s.match(repPat, felems[len(prefix)+i], sub) {
			return false
		}
		for v := range vars {
			child, ok := sub[v]
			if !ok {
				child = &matchNode{leaf: NewNil()}
			}
			nodes[v].many = append(nodes[v].many, child)
		}
	}
	for v, n := range nodes {
		binds[v] = n
	}
	for i := range suffix {
		if !s.match(suffix[i], felems[len(prefix)+reps+i], binds) {
			return false
		}
	}
	return s.matchTail(ptail, ftail, binds)
}

// matchTail binds a dotted-tail pattern. The capture keeps the raw tail, so
// an improper capture stays distinguishable from a proper list.
func (s *Syntax) matchTail(ptail, ftail Scmer, binds map[Symbol]*matchNode) bool {
	ptail = stripSource(ptail)
	ftail = stripSource(ftail)
	if sym, ok := symbolOf(ptail); ok {
		if sym == symUnderscore {
			return true
		}
		if s.isLiteral(sym) {
			fsym, isSym := symbolOf(ftail)
			return isSym && fsym == sym
		}
		binds[sym] = &matchNode{leaf: ftail}
		return true
	}
	if ptail.IsNil() {
		return ftail.IsNil()
	}
	return s.match(ptail, ftail, binds)
}

// patternVars collects every capturing symbol of a subpattern.
func (s *Syntax) patternVars(pat Scmer, out map[Symbol]struct{}) {
	pat = stripSource(pat)
	if sym, ok := symbolOf(pat); ok {
		if sym == symUnderscore || sym == symEllipsis || s.isLiteral(sym) {
			return
		}
		out[sym] = struct{}{}
		return
	}
	switch pat.GetTag() {
	case tagPair:
		p := pat.Pair()
		s.patternVars(p.Car, out)
		s.patternVars(p.Cdr, out)
	case tagVector:
		for _, e := range pat.Vector() {
			s.patternVars(e, out)
		}
	}
}

/*
 template instantiation
*/

// expansion carries the per-call rename table so that one identifier gets
// one gensym per expansion, and distinct expansions never share binders.
type expansion struct {
	s       *Syntax
	renames map[Symbol]Symbol
}

func (x *expansion) subst(tpl Scmer, binds map[Symbol]*matchNode) Scmer {
	t := stripSource(tpl)
	if sym, ok := symbolOf(t); ok {
		if n, ok := binds[sym]; ok {
			if n.isMany {
				panic(&MacroError{Macro: x.s.Name, Msg: "pattern variable " + SymbolName(sym) + " is missing an ellipsis"})
			}
			return n.leaf
		}
		return x.renameFree(sym)
	}
	switch t.GetTag() {
	case tagPair:
		p := t.Pair()
		if hsym, ok := symbolOf(p.Car); ok && hsym == symEllipsis {
			// (... template) escapes ellipsis processing
			rest := stripSource(p.Cdr)
			if rest.IsPair() && stripSource(rest.Pair().Cdr).IsNil() {
				return x.substVerbatim(rest.Pair().Car, binds)
			}
			panic(&MacroError{Macro: x.s.Name, Msg: "misplaced ellipsis in template: " + summarizeForm(t)})
		}
		return x.substSeq(t, binds)
	case tagVector:
		return NewVector(x.substElems(t.Vector(), binds))
	default:
		return tpl
	}
}

func (x *expansion) substSeq(lst Scmer, binds map[Symbol]*matchNode) Scmer {
	elems, tail := listToSlice(stripSource(lst))
	out := x.substElems(elems, binds)
	newTail := NewNil()
	if !stripSource(tail).IsNil() {
		newTail = x.subst(tail, binds)
	}
	return listWithTail(out, newTail)
}

func (x *expansion) substElems(elems []Scmer, binds map[Symbol]*matchNode) []Scmer {
	out := make([]Scmer, 0, len(elems))
	for i := 0; i < len(elems); i++ {
		e := elems[i]
		ell := 0
		for i+1+ell < len(elems) {
			if sym, ok := symbolOf(elems[i+1+ell]); ok && sym == symEllipsis {
				ell++
			} else {
				break
			}
		}
		if ell == 0 {
			if sym, ok := symbolOf(e); ok && sym == symEllipsis {
				panic(&MacroError{Macro: x.s.Name, Msg: "a template may not begin with an ellipsis"})
			}
			out = append(out, x.subst(e, binds))
			continue
		}
		out = append(out, x.expandLevels(e, ell, binds)...)
		i += ell
	}
	return out
}

// expandLevels instantiates a template under N trailing ellipses. Each extra
// ellipsis consumes one more nesting level and splices the results flat.
func (x *expansion) expandLevels(tpl Scmer, levels int, binds map[Symbol]*matchNode) []Scmer {
	vars := make(map[Symbol]*matchNode)
	x.manyVars(tpl, binds, vars)
	if len(vars) == 0 {
		panic(&MacroError{Macro: x.s.Name, Msg: "ellipsis follows a template without pattern variables: " + summarizeForm(tpl)})
	}
	n := -1
	for sym, node := range vars {
		if n < 0 {
			n = len(node.many)
		} else if len(node.many) != n {
			panic(&MacroError{Macro: x.s.Name, Msg: "mismatched ellipsis match counts around " + SymbolName(sym)})
		}
	}
	out := make([]Scmer, 0, n)
	for i := 0; i < n; i++ {
		overlay := make(map[Symbol]*matchNode, len(binds))
		for k, v := range binds {
			overlay[k] = v
		}
		for sym, node := range vars {
			overlay[sym] = node.many[i]
		}
		if levels > 1 {
			out = append(out, x.expandLevels(tpl, levels-1, overlay)...)
		} else {
			out = append(out, x.subst(tpl, overlay))
		}
	}
	return out
}

// manyVars finds the template's pattern variables that still hold a
// repetition at the current level.
func (x *expansion) manyVars(tpl Scmer, binds map[Symbol]*matchNode, out map[Symbol]*matchNode) {
	t := stripSource(tpl)
	if sym, ok := symbolOf(t); ok {
		if n, ok := binds[sym]; ok && n.isMany {
			out[sym] = n
		}
		return
	}
	switch t.GetTag() {
	case tagPair:
		p := t.Pair()
		x.manyVars(p.Car, binds, out)
		x.manyVars(p.Cdr, binds, out)
	case tagVector:
		for _, e := range t.Vector() {
			x.manyVars(e, binds, out)
		}
	}
}

// substVerbatim substitutes pattern variables but gives ellipsis no special
// meaning, for the (... template) escape.
func (x *expansion) substVerbatim(tpl Scmer, binds map[Symbol]*matchNode) Scmer {
	t := stripSource(tpl)
	if sym, ok := symbolOf(t); ok {
		if sym == symEllipsis {
			return t
		}
		if n, ok := binds[sym]; ok && !n.isMany {
			return n.leaf
		}
		return x.renameFree(sym)
	}
	switch t.GetTag() {
	case tagPair:
		p := t.Pair()
		return NewPair(x.substVerbatim(p.Car, binds), x.substVerbatim(p.Cdr, binds))
	case tagVector:
		elems := t.Vector()
		out := make([]Scmer, len(elems))
		for i, e := range elems {
			out[i] = x.substVerbatim(e, binds)
		}
		return NewVector(out)
	default:
		return tpl
	}
}

// renameFree implements hygiene: every template identifier that is neither a
// pattern variable nor a literal nor a keyword becomes a fresh gensym. When
// the identifier is bound in the definition environment, the gensym is
// registered there as an alias for what the identifier meant at definition
// time, so the expansion cannot be captured by use-site bindings.
func (x *expansion) renameFree(sym Symbol) Scmer {
	if _, special := specialFormSyms[sym]; special {
		return NewSymbolId(sym)
	}
	if x.s.isLiteral(sym) {
		return NewSymbolId(sym)
	}
	if ns, ok := x.renames[sym]; ok {
		return NewSymbolId(ns)
	}
	ns := Gensym(SymbolName(sym))
	x.renames[sym] = ns
	if x.s.Env != nil {
		if frame := x.s.Env.FindWrite(sym); frame != nil {
			frame.Vars[ns] = frame.Vars[sym]
		}
	}
	return NewSymbolId(ns)
}

/*
 gensym leak rewriting
*/

// rewriteLeakedGensyms maps gensyms that escaped into a result value back to
// the names their templates spelled. Only data shapes are rewritten; a
// closure keeps its internals.
func rewriteLeakedGensyms(v Scmer) Scmer {
	seen := make(map[*Pair]struct{})
	if !containsGensym(v, seen) {
		return v
	}
	return rewriteGensyms(v, make(map[*Pair]*Pair))
}

func containsGensym(v Scmer, seen map[*Pair]struct{}) bool {
	v = stripSource(v)
	switch v.GetTag() {
	case tagSymbol:
		_, ok := SymbolOrigin(v.Symbol())
		return ok
	case tagPair:
		p := v.Pair()
		if _, ok := seen[p]; ok {
			return false
		}
		seen[p] = struct{}{}
		return containsGensym(p.Car, seen) || containsGensym(p.Cdr, seen)
	case tagVector:
		for _, e := range v.Vector() {
			if containsGensym(e, seen) {
				return true
			}
		}
	}
	return false
}

func rewriteGensyms(v Scmer, memo map[*Pair]*Pair) Scmer {
	v = stripSource(v)
	switch v.GetTag() {
	case tagSymbol:
		if orig, ok := SymbolOrigin(v.Symbol()); ok {
			return NewSymbolId(orig)
		}
		return v
	case tagPair:
		p := v.Pair()
		if np, ok := memo[p]; ok {
			return NewPairPtr(np)
		}
		np := &Pair{}
		memo[p] = np
		np.Car = rewriteGensyms(p.Car, memo)
		np.Cdr = rewriteGensyms(p.Cdr, memo)
		return NewPairPtr(np)
	case tagVector:
		elems := v.Vector()
		out := make([]Scmer, len(elems))
		for i, e := range elems {
			out[i] = rewriteGensyms(e, memo)
		}
		return NewVector(out)
	default:
		return v
	}
}

/*
 define-syntax and friends
*/

func evalDefineSyntax(form Scmer, en *Env) Scmer {
	elems := formElems(form)
	if len(elems) != 3 {
		panic(&SyntaxError{Msg: "define-syntax takes a name and a transformer"})
	}
	nameSym := mustSymbolIn("define-syntax", elems[1])
	val := evalTransformer("define-syntax", elems[2], en, SymbolName(nameSym))
	en.Set(nameSym, val)
	return val
}

// evalTransformer evaluates a transformer spec and stamps the macro name on
// the result for error messages and printing.
func evalTransformer(op string, spec Scmer, en *Env, name string) Scmer {
	val := force(Eval(spec, en))
	switch val.GetTag() {
	case tagSyntax:
		val.Syntax().Name = name
	case tagMacro:
		val.Macro().Name = name
	default:
		panic(&TypeError{Op: op, ArgPos: 2, Expected: []string{"a syntax-rules transformer"}, Got: typeName(val)})
	}
	return val
}

func evalLetSyntax(form Scmer, en *Env, rec bool) Scmer {
	elems := formElems(form)
	if len(elems) < 2 {
		panic(&SyntaxError{Msg: "let-syntax takes a binding list and a body"})
	}
	child := &Env{Vars: make(Vars), Outer: en}
	defEnv := en
	if rec {
		defEnv = child
	}
	for _, b := range formElems(elems[1]) {
		parts := formElems(b)
		if len(parts) != 2 {
			panic(&SyntaxError{Msg: "let-syntax binding is (name transformer), got " + summarizeForm(b)})
		}
		nameSym := mustSymbolIn("let-syntax", parts[0])
		child.Vars[nameSym] = evalTransformer("let-syntax", parts[1], defEnv, SymbolName(nameSym))
	}
	return evalSeq(elems[2:], child)
}

func evalDefineSyntaxParameter(form Scmer, en *Env) Scmer {
	elems := formElems(form)
	if len(elems) != 3 {
		panic(&SyntaxError{Msg: "define-syntax-parameter takes a name and a transformer"})
	}
	nameSym := mustSymbolIn("define-syntax-parameter", elems[1])
	val := evalTransformer("define-syntax-parameter", elems[2], en, SymbolName(nameSym))
	if val.GetTag() == tagSyntax {
		val.Syntax().Parameter = true
	}
	en.Set(nameSym, val)
	return val
}

// evalSyntaxParameterize rebinds syntax parameters in a child environment,
// so every expansion in the body's dynamic extent sees the adjusted meaning.
func evalSyntaxParameterize(form Scmer, en *Env) Scmer {
	elems := formElems(form)
	if len(elems) < 2 {
		panic(&SyntaxError{Msg: "syntax-parameterize takes a binding list and a body"})
	}
	child := &Env{Vars: make(Vars), Outer: en}
	for _, b := range formElems(elems[1]) {
		parts := formElems(b)
		if len(parts) != 2 {
			panic(&SyntaxError{Msg: "syntax-parameterize binding is (name transformer), got " + summarizeForm(b)})
		}
		nameSym := mustSymbolIn("syntax-parameterize", parts[0])
		old := en.Get(nameSym)
		if old.GetTag() != tagSyntax || !old.Syntax().Parameter {
			panic(&MacroError{Macro: SymbolName(nameSym), Msg: "not a syntax parameter"})
		}
		val := evalTransformer("syntax-parameterize", parts[1], en, SymbolName(nameSym))
		if val.GetTag() == tagSyntax {
			val.Syntax().Parameter = true
		}
		child.Vars[nameSym] = val
	}
	return evalSeq(elems[2:], child)
}

/*
 macroexpand
*/

// macroexpand1 rewrites the head of a form once if it is macro-bound.
func macroexpand1(form Scmer, en *Env) (Scmer, bool) {
	f := stripSource(form)
	if !f.IsPair() {
		return form, false
	}
	headSym, ok := symbolOf(f.Pair().Car)
	if !ok {
		return form, false
	}
	if frame := en.FindWrite(headSym); frame != nil {
		switch b := frame.Vars[headSym]; b.GetTag() {
		case tagMacro:
			return expandMacroCall(b.Macro(), f, en), true
		case tagSyntax:
			return rewriteLeakedGensyms(expandSyntaxCall(b.Syntax(), f, en)), true
		}
	}
	return form, false
}

func init_macro() {
	DeclareTitle("Macros")

	Declare(&Globalenv, &Declaration{
		"define-macro", `defines an unhygienic macro
(define-macro (name . formals) body...) binds the formals to the unevaluated
call forms, runs the body in the definition environment and evaluates the
result again when it is code. A trailing bare symbol collects the remaining
forms. Quote a result to return it as literal data.`,
		2, 1000,
		[]DeclarationParameter{
			{"signature", "list", "macro name and formal parameters"},
			{"body...", "any", "body forms producing the replacement code"},
		}, "any",
		nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"define-syntax", `binds a hygienic syntax-rules transformer
(define-syntax name (syntax-rules (literals...) (pattern template)...))`,
		2, 2,
		[]DeclarationParameter{
			{"name", "symbol", "macro keyword"},
			{"transformer", "any", "a syntax-rules form"},
		}, "any",
		nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"syntax-rules", `creates a pattern matching macro transformer
Rules are tried in order, the first matching pattern wins. Ellipsis (...)
matches zero or more subforms. Identifiers from the literal list must match
themselves. Free template identifiers keep the meaning they had where the
transformer was defined.`,
		1, 1000,
		[]DeclarationParameter{
			{"literals", "list", "identifiers matched verbatim"},
			{"rules...", "list", "(pattern template) pairs"},
		}, "any",
		nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"let-syntax", "binds macro transformers for the scope of the body",
		2, 1000,
		[]DeclarationParameter{
			{"bindings", "list", "list of (name transformer)"},
			{"body...", "any", "body forms"},
		}, "any",
		nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"letrec-syntax", "like let-syntax but the transformers see each other",
		2, 1000,
		[]DeclarationParameter{
			{"bindings", "list", "list of (name transformer)"},
			{"body...", "any", "body forms"},
		}, "any",
		nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"define-syntax-parameter", "defines a syntax parameter that syntax-parameterize can rebind",
		2, 2,
		[]DeclarationParameter{
			{"name", "symbol", "parameter keyword"},
			{"transformer", "any", "default transformer"},
		}, "any",
		nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"syntax-parameterize", "rebinds syntax parameters for the dynamic extent of the body's expansions",
		2, 1000,
		[]DeclarationParameter{
			{"bindings", "list", "list of (name transformer)"},
			{"body...", "any", "body forms"},
		}, "any",
		nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"gensym", "returns a fresh uninterned-looking symbol, optionally from a base name",
		0, 1,
		[]DeclarationParameter{
			{"base", "string", "base name for the generated symbol (optional)"},
		}, "symbol",
		func(a ...Scmer) Scmer {
			base := "g"
			if len(a) > 0 {
				base = a[0].String()
			}
			return NewSymbolId(Gensym(base))
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"macroexpand", "expands all macro rewrites at the head of a form and returns the code as data",
		1, 1,
		[]DeclarationParameter{
			{"form", "list", "quoted code"},
		}, "any",
		func(en *Env, a ...Scmer) Scmer {
			form := a[0]
			for i := 0; i < 1000; i++ {
				next, changed := macroexpand1(form, en)
				if !changed {
					return form
				}
				form = next
			}
			panic(&MacroError{Macro: "macroexpand", Form: summarizeForm(a[0]), Msg: "expansion does not terminate"})
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"macroexpand-1", "expands one macro rewrite at the head of a form and returns the code as data",
		1, 1,
		[]DeclarationParameter{
			{"form", "list", "quoted code"},
		}, "any",
		func(en *Env, a ...Scmer) Scmer {
			next, _ := macroexpand1(a[0], en)
			return next
		}, false,
	})
}
