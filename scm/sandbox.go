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

// DefaultSandboxAllow is the binding list a sandbox gets when no
// explicit allow-list is given: pure computation only. No IO, no
// environment introspection, no reader extensions.
var DefaultSandboxAllow = []string{
	// numbers
	"number?", "integer?", "int?", "rational?", "real?", "complex?",
	"exact?", "inexact?", "exact", "inexact", "exact->inexact", "inexact->exact",
	"+", "-", "*", "/", "quotient", "remainder", "modulo", "gcd", "lcm",
	"=", "<", "<=", ">", ">=",
	"zero?", "positive?", "negative?", "odd?", "even?",
	"nan?", "infinite?", "finite?",
	"abs", "min", "max", "floor", "ceiling", "ceil", "round", "truncate",
	"sqrt", "expt", "square", "exp", "log",
	"sin", "cos", "tan", "asin", "acos", "atan",
	"numerator", "denominator",
	"real-part", "imag-part", "magnitude", "angle",
	"make-rectangular", "make-polar",
	// comparison
	"eq?", "eqv?", "equal?", "not", "boolean?", "boolean=?",
	// lists
	"cons", "car", "cdr", "set-car!", "set-cdr!",
	"list", "pair?", "null?", "nil?", "list?", "length",
	"append", "append!", "reverse", "list-copy", "list-tail", "list-ref",
	"nth", "last-pair", "iota",
	"map", "for-each", "filter", "reduce",
	"member", "memq", "memv", "assoc", "assq", "assv", "sort",
	// strings and characters
	"string?", "string", "concat", "string-append",
	"substr", "substring", "string-length", "string-ref", "string-set!",
	"make-string", "string-copy", "string-map", "simplify", "strlen", "strlike",
	"toLower", "toUpper", "string-downcase", "string-upcase",
	"trim", "replace", "split", "join",
	"string->number", "number->string",
	"string=?", "string<?", "string>?", "string<=?", "string>=?",
	"collate", "regex", "regex?", "regex-match?", "regex-replace", "regex-split",
	"char?", "char->integer", "integer->char", "char-upcase", "char-downcase",
	// misc pure helpers
	"symbol?", "procedure?", "type-of",
	"symbol->string", "string->symbol",
	"true", "false",
}

// NewSandbox builds a root environment holding only the named bindings,
// copied from the global environment. With no names the default
// allow-list applies. The environment has no outer frame, so every
// unlisted name fails as an unbound variable. Syntactic forms (if,
// lambda, let, quote and friends) come from the evaluator itself and
// are always available; listing them is unnecessary and names without
// a global binding are simply skipped.
func NewSandbox(allow ...string) *Env {
	if len(allow) == 0 {
		allow = DefaultSandboxAllow
	}
	en := &Env{Vars: make(Vars, len(allow)), Outer: nil, Name: "sandbox"}
	for _, name := range allow {
		sym := Intern(name)
		if v, ok := Globalenv.Vars[sym]; ok {
			en.Vars[sym] = v
		}
	}
	return en
}
