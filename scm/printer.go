/*
Copyright (C) 2023  Carl-Philip Hänsch
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

package scm

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// typeName gives the human name used in error messages and by type-of.
func typeName(v Scmer) string {
	switch v.GetTag() {
	case tagNil:
		return "nil"
	case tagVoid:
		return "void"
	case tagEOF:
		return "eof-object"
	case tagBool:
		return "boolean"
	case tagInt, tagBigInt:
		return "integer"
	case tagRational:
		return "rational"
	case tagFloat:
		return "float"
	case tagComplex:
		return "complex"
	case tagChar:
		return "character"
	case tagString:
		return "string"
	case tagSymbol:
		return "symbol"
	case tagPair:
		return "pair"
	case tagVector:
		return "vector"
	case tagBytes:
		return "bytevector"
	case tagRegex:
		return "regex"
	case tagFunc, tagProc, tagContinuation:
		return "procedure"
	case tagMacro:
		return "macro"
	case tagSyntax:
		return "syntax"
	case tagParameter:
		return "parameter"
	case tagPromise:
		return "promise"
	case tagEnv:
		return "environment"
	case tagValues:
		return "values"
	case tagDict:
		return "dict"
	case tagStream:
		return "stream"
	case tagSourceInfo:
		return typeName(v.SourceInfo().Value)
	case tagAny:
		return reflect.TypeOf(v.Any()).String()
	default:
		return "unknown"
	}
}

// String renders v for display: strings and characters appear raw.
func String(v Scmer) string {
	var b strings.Builder
	p := newPrinter(false)
	p.countShared(v)
	p.print(&b, v)
	return b.String()
}

// Repr renders v for write: strings quoted, characters in #\ notation,
// shared and cyclic structure marked with #N= and #N# labels so the
// result reads back to an isomorphic value.
func Repr(v Scmer) string {
	var b strings.Builder
	p := newPrinter(true)
	p.countShared(v)
	p.print(&b, v)
	return b.String()
}

// vecKey identifies a vector by its backing array. Empty vectors have no
// identity but also cannot participate in cycles.
type vecKey uintptr

type printer struct {
	quote   bool
	counts  map[any]int
	labels  map[any]int
	nextLbl int
}

func newPrinter(quote bool) *printer {
	return &printer{quote: quote, counts: make(map[any]int), labels: make(map[any]int)}
}

func nodeKey(v Scmer) (any, bool) {
	switch v.GetTag() {
	case tagPair:
		return v.Pair(), true
	case tagVector:
		vec := v.Vector()
		if len(vec) == 0 {
			return nil, false
		}
		return vecKey(reflect.ValueOf(vec).Pointer()), true
	case tagDict:
		return v.Dict(), true
	}
	return nil, false
}

// countShared walks v once; every node reached twice gets a datum label
// at print time.
func (p *printer) countShared(v Scmer) {
	v = stripSource(v)
	key, ok := nodeKey(v)
	if ok {
		p.counts[key]++
		if p.counts[key] > 1 {
			return
		}
	}
	switch v.GetTag() {
	case tagPair:
		pr := v.Pair()
		p.countShared(pr.Car)
		p.countShared(pr.Cdr)
	case tagVector:
		for _, e := range v.Vector() {
			p.countShared(e)
		}
	case tagDict:
		for _, e := range v.Dict().Pairs {
			p.countShared(e)
		}
	}
}

// enter emits a #N= label definition or a #N# back reference for shared
// nodes. It reports whether the caller should print the node body.
func (p *printer) enter(b *strings.Builder, v Scmer) bool {
	key, ok := nodeKey(v)
	if !ok || p.counts[key] < 2 {
		return true
	}
	if n, done := p.labels[key]; done {
		b.WriteString("#")
		b.WriteString(strconv.Itoa(n))
		b.WriteString("#")
		return false
	}
	p.nextLbl++
	p.labels[key] = p.nextLbl
	b.WriteString("#")
	b.WriteString(strconv.Itoa(p.nextLbl))
	b.WriteString("=")
	return true
}

var quoteAbbrev = map[Symbol]string{}

func init() {
	quoteAbbrev[symQuote] = "'"
	quoteAbbrev[symQuasiquote] = "`"
	quoteAbbrev[symUnquote] = ","
	quoteAbbrev[symUnquoteSplicing] = ",@"
}

func (p *printer) print(b *strings.Builder, v Scmer) {
	v = stripSource(v)
	switch v.GetTag() {
	case tagNil:
		b.WriteString("()")
	case tagVoid:
		b.WriteString("#void")
	case tagEOF:
		b.WriteString("#<eof>")
	case tagBool:
		if v.Bool() {
			b.WriteString("#t")
		} else {
			b.WriteString("#f")
		}
	case tagInt, tagBigInt, tagRational, tagFloat, tagComplex:
		b.WriteString(numberToString(v, 10))
	case tagChar:
		if p.quote {
			b.WriteString(charLiteral(v.Char()))
		} else {
			b.WriteRune(v.Char())
		}
	case tagString:
		if p.quote {
			b.WriteString(escapeStringLiteral(v.String()))
		} else {
			b.WriteString(v.String())
		}
	case tagSymbol:
		name := SymbolName(v.Symbol())
		if p.quote && symbolNeedsBars(name) {
			b.WriteString(escapeSymbolBars(name))
		} else {
			b.WriteString(name)
		}
	case tagPair:
		if !p.enter(b, v) {
			return
		}
		p.printPair(b, v.Pair())
	case tagVector:
		if !p.enter(b, v) {
			return
		}
		b.WriteString("#(")
		for i, e := range v.Vector() {
			if i != 0 {
				b.WriteByte(' ')
			}
			p.print(b, e)
		}
		b.WriteByte(')')
	case tagBytes:
		b.WriteString("#u8(")
		for i, e := range v.Bytes() {
			if i != 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strconv.Itoa(int(e)))
		}
		b.WriteByte(')')
	case tagRegex:
		r := v.Regex()
		b.WriteString("#/")
		b.WriteString(r.Source)
		b.WriteString("/")
		b.WriteString(r.Flags)
	case tagFunc:
		b.WriteString("[native func]")
	case tagProc:
		proc := v.Proc()
		head := "lambda"
		if proc.Dynamic {
			head = "lambda/d"
		}
		b.WriteString("(")
		b.WriteString(head)
		b.WriteString(" ")
		p.print(b, proc.Params)
		b.WriteString(" ")
		p.print(b, proc.Body)
		b.WriteByte(')')
	case tagMacro:
		b.WriteString("#<macro ")
		b.WriteString(v.Macro().Name)
		b.WriteByte('>')
	case tagSyntax:
		b.WriteString("#<syntax-rules ")
		b.WriteString(v.Syntax().Name)
		b.WriteByte('>')
	case tagParameter:
		b.WriteString("#<parameter ")
		b.WriteString(v.Parameter().Name)
		b.WriteByte('>')
	case tagPromise:
		b.WriteString("#<promise>")
	case tagContinuation:
		b.WriteString("#<continuation>")
	case tagEnv:
		env := v.Env()
		if env.Name != "" {
			b.WriteString("#<environment ")
			b.WriteString(env.Name)
			b.WriteByte('>')
		} else {
			b.WriteString("#<environment>")
		}
	case tagValues:
		for i, e := range v.Values() {
			if i != 0 {
				b.WriteByte(' ')
			}
			p.print(b, e)
		}
	case tagDict:
		if !p.enter(b, v) {
			return
		}
		b.WriteString("(dict")
		for _, e := range v.Dict().Pairs {
			b.WriteByte(' ')
			p.print(b, e)
		}
		b.WriteByte(')')
	case tagStream:
		st := v.Stream()
		if st.Name != "" {
			b.WriteString("#<stream ")
			b.WriteString(st.Name)
			b.WriteByte('>')
		} else {
			b.WriteString("#<stream>")
		}
	case tagAny:
		fmt.Fprint(b, v.Any())
	default:
		b.WriteString("#<scmer ")
		b.WriteString(strconv.Itoa(int(v.GetTag())))
		b.WriteByte('>')
	}
}

func (p *printer) printPair(b *strings.Builder, pr *Pair) {
	// abbreviate the quote family unless the node is shared
	if pr.Car.IsSymbol() {
		if abbrev, ok := quoteAbbrev[pr.Car.Symbol()]; ok {
			cdr := stripSource(pr.Cdr)
			if cdr.IsPair() {
				inner := cdr.Pair()
				if key, _ := nodeKey(cdr); stripSource(inner.Cdr).IsNil() && p.counts[key] < 2 {
					b.WriteString(abbrev)
					p.print(b, inner.Car)
					return
				}
			}
		}
	}
	b.WriteByte('(')
	p.print(b, pr.Car)
	rest := stripSource(pr.Cdr)
	for {
		if rest.IsNil() {
			break
		}
		if !rest.IsPair() {
			b.WriteString(" . ")
			p.print(b, rest)
			break
		}
		// a shared tail cannot print inline, it needs its own label
		if key, _ := nodeKey(rest); p.counts[key] >= 2 {
			b.WriteString(" . ")
			p.print(b, rest)
			break
		}
		next := rest.Pair()
		b.WriteByte(' ')
		p.print(b, next.Car)
		rest = stripSource(next.Cdr)
	}
	b.WriteByte(')')
}

func escapeStringLiteral(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, c := range s {
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case 8:
			b.WriteString(`\b`)
		case 12:
			b.WriteString(`\f`)
		case 0:
			b.WriteString(`\0`)
		default:
			if c < 32 {
				b.WriteString(`\x`)
				b.WriteString(strconv.FormatInt(int64(c), 16))
				b.WriteString(";")
			} else {
				b.WriteRune(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

func charLiteral(c rune) string {
	if name, ok := charNameByRune[c]; ok {
		return "#\\" + name
	}
	if c < 32 {
		return "#\\x" + strconv.FormatInt(int64(c), 16)
	}
	return "#\\" + string(c)
}

func symbolNeedsBars(name string) bool {
	if name == "" || name == "." {
		return true
	}
	if strings.HasPrefix(name, "#") {
		return true
	}
	if strings.ContainsAny(name, " \t\n\r()[]\";'`,|\\") {
		return true
	}
	if _, err := parseNumber(name, 10); err == nil {
		return true
	}
	return false
}

func escapeSymbolBars(name string) string {
	var b strings.Builder
	b.WriteByte('|')
	for _, c := range name {
		switch c {
		case '|':
			b.WriteString(`\|`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(c)
		}
	}
	b.WriteByte('|')
	return b.String()
}

//
// serialization: turns values back into evaluable source, including
// closures with the environment diff they captured
//

func SerializeToString(v Scmer, glob *Env) string {
	var b bytes.Buffer
	Serialize(&b, v, glob)
	return b.String()
}

func Serialize(b *bytes.Buffer, v Scmer, glob *Env) {
	s := &serializer{printer: newPrinter(true), glob: glob}
	s.countShared(v)
	s.serialize(b, v, glob)
}

type serializer struct {
	*printer
	glob *Env
}

func (s *serializer) serialize(b *bytes.Buffer, v Scmer, en *Env) {
	if en != nil && en != s.glob {
		// emit the captured bindings that differ from the global scope;
		// frame diagnostics are rebuilt on every call and stay out
		b.WriteString("(begin ")
		for k, bound := range en.Vars {
			if k == symArguments || k == symParentFrame {
				continue
			}
			if gv, ok := s.glob.Vars[k]; !ok || !Equal(gv, bound) {
				b.WriteString("(define ")
				b.WriteString(SymbolName(k))
				b.WriteString(" ")
				s.serialize(b, bound, en.Outer)
				b.WriteString(") ")
			}
		}
		s.serialize(b, v, en.Outer)
		b.WriteString(")")
		return
	}
	v = stripSource(v)
	switch v.GetTag() {
	case tagPair:
		var sb strings.Builder
		if !s.enter(&sb, v) {
			b.WriteString(sb.String())
			return
		}
		b.WriteString(sb.String())
		pr := v.Pair()
		b.WriteByte('(')
		s.serialize(b, pr.Car, en)
		rest := stripSource(pr.Cdr)
		for rest.IsPair() {
			if key, _ := nodeKey(rest); s.counts[key] >= 2 {
				break
			}
			next := rest.Pair()
			b.WriteByte(' ')
			s.serialize(b, next.Car, en)
			rest = stripSource(next.Cdr)
		}
		if !rest.IsNil() {
			b.WriteString(" . ")
			s.serialize(b, rest, en)
		}
		b.WriteByte(')')
	case tagProc:
		s.serializeProc(b, v.Proc())
	case tagFunc:
		s.serializeNativeFunc(b, v)
	case tagMacro:
		m := v.Macro()
		b.WriteString("(define-macro ")
		b.WriteString(m.Name)
		b.WriteString(" ")
		s.serialize(b, m.Fn, s.glob)
		b.WriteByte(')')
	default:
		var sb strings.Builder
		s.print(&sb, v)
		b.WriteString(sb.String())
	}
}

func (s *serializer) serializeProc(b *bytes.Buffer, p *Proc) {
	if p.Dynamic {
		b.WriteString("(lambda/d ")
	} else {
		b.WriteString("(lambda ")
	}
	s.serialize(b, p.Params, s.glob)
	b.WriteByte(' ')
	s.serialize(b, p.Body, p.En)
	b.WriteByte(')')
}

// serializeNativeFunc names a builtin by scanning the global scope for a
// binding holding the same function pointer.
func (s *serializer) serializeNativeFunc(b *bytes.Buffer, v Scmer) {
	if auxVal(v.aux) == funcKindVariadic {
		if col, rev, ok := LookupCollate(v.Func()); ok {
			b.WriteString("(collate \"")
			b.WriteString(strings.ReplaceAll(col, "\"", "\\\""))
			b.WriteString("\" ")
			if rev {
				b.WriteString("#t")
			} else {
				b.WriteString("#f")
			}
			b.WriteByte(')')
			return
		}
	}
	fnPtr := reflect.ValueOf(v.ptr).Pointer()
	for en := s.glob; en != nil; en = en.Outer {
		for k, bound := range en.Vars {
			if bound.GetTag() == tagFunc {
				ov := reflect.ValueOf(bound.ptr)
				if ov.Kind() == reflect.Func && ov.Pointer() == fnPtr {
					b.WriteString(SymbolName(k))
					return
				}
			}
		}
	}
	b.WriteString("[unserializable native func]")
}
