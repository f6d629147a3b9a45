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
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/launix-de/NonLockingReadMap"
)

// Symbol is an index into the process-wide intern arena. Two symbols are
// the same symbol iff their ids are equal.
type Symbol uint32

type symbolEntry struct {
	name      string
	id        Symbol
	origin    Symbol // user-visible name a gensym aliases
	gensym    bool
	hasOrigin bool
}

/* implement NonLockingReadMap */
func (e symbolEntry) GetKey() string    { return e.name }
func (e symbolEntry) ComputeSize() uint { return uint(len(e.name)) + 24 }

var symbolsByName = NonLockingReadMap.New[symbolEntry, string]()
var symbolsById atomic.Pointer[[]*symbolEntry]
var symbolMu sync.Mutex
var gensymCounter uint64

func init() {
	symbolsById.Store(new([]*symbolEntry))
}

// Intern returns the stable id for name, creating it on first use.
// Reads are lock-free; only the first interning of a name takes the lock.
func Intern(name string) Symbol {
	if e := symbolsByName.Get(name); e != nil {
		return e.id
	}
	return internSlow(name, 0, false, false)
}

func internSlow(name string, origin Symbol, gensym bool, hasOrigin bool) Symbol {
	symbolMu.Lock()
	defer symbolMu.Unlock()
	if e := symbolsByName.Get(name); e != nil {
		return e.id
	}
	old := symbolsById.Load()
	e := &symbolEntry{name: name, id: Symbol(len(*old)), origin: origin, gensym: gensym, hasOrigin: hasOrigin}
	next := make([]*symbolEntry, len(*old)+1)
	copy(next, *old)
	next[len(*old)] = e
	symbolsById.Store(&next)
	symbolsByName.Set(e)
	return e.id
}

// SymbolName resolves an id back to its canonical name.
func SymbolName(s Symbol) string {
	entries := *symbolsById.Load()
	if int(s) >= len(entries) {
		return "#<symbol:" + strconv.Itoa(int(s)) + ">"
	}
	return entries[s].name
}

// Gensym interns a fresh symbol carrying a hidden back-reference to the
// name it stands in for during macro expansion. The generated name
// re-reads as the same symbol, so serialized closures survive a round
// trip.
func Gensym(base string) Symbol {
	if base == "" {
		base = "g"
	}
	n := atomic.AddUint64(&gensymCounter, 1)
	return internSlow(base+"~"+strconv.FormatUint(n, 10), Intern(base), true, true)
}

// SymbolOrigin reports the aliased name of a gensym, if any.
func SymbolOrigin(s Symbol) (Symbol, bool) {
	entries := *symbolsById.Load()
	if int(s) >= len(entries) {
		return 0, false
	}
	e := entries[s]
	return e.origin, e.hasOrigin
}

// IsGensym reports whether s came out of Gensym.
func IsGensym(s Symbol) bool {
	entries := *symbolsById.Load()
	return int(s) < len(entries) && entries[s].gensym
}

// NumSymbols reports the arena population (REPL statistics).
func NumSymbols() int {
	return len(*symbolsById.Load())
}

// Interned well-known symbols; the evaluator switches on these ids.
var (
	symQuote            = Intern("quote")
	symQuasiquote       = Intern("quasiquote")
	symUnquote          = Intern("unquote")
	symUnquoteSplicing  = Intern("unquote-splicing")
	symIf               = Intern("if")
	symDefine           = Intern("define")
	symSet              = Intern("set!")
	symLambda           = Intern("lambda")
	symLambdaDyn        = Intern("lambda/d")
	symBegin            = Intern("begin")
	symLet              = Intern("let")
	symLetStar          = Intern("let*")
	symLetrec           = Intern("letrec")
	symAnd              = Intern("and")
	symOr               = Intern("or")
	symCond             = Intern("cond")
	symCase             = Intern("case")
	symElse             = Intern("else")
	symDo               = Intern("do")
	symWhile            = Intern("while")
	symTry              = Intern("try")
	symCatch            = Intern("catch")
	symFinally          = Intern("finally")
	symDefineMacro      = Intern("define-macro")
	symDefineSyntax     = Intern("define-syntax")
	symLetSyntax        = Intern("let-syntax")
	symLetrecSyntax     = Intern("letrec-syntax")
	symSyntaxRules      = Intern("syntax-rules")
	symDefineSyntaxParameter = Intern("define-syntax-parameter")
	symSyntaxParameterize    = Intern("syntax-parameterize")
	symParameterize     = Intern("parameterize")
	symMakeParameter    = Intern("make-parameter")
	symDot              = Intern(".")
	symEllipsis         = Intern("...")
	symUnderscore       = Intern("_")
	symArguments        = Intern("arguments")
	symParentFrame      = Intern("parent.frame")
	symEval             = Intern("eval")
	symArrow            = Intern("=>")
	symParser           = Intern("parser")
	symMatch            = Intern("match")
	symList             = Intern("list")
	symSymbol           = Intern("symbol")
	symIgnoreCase       = Intern("ignorecase")
	symConcat           = Intern("concat")
	symCons             = Intern("cons")
	symRegex            = Intern("regex")
)
