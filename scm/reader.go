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
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SourceInfo wraps a form with its origin; the evaluator unwraps it and
// uses it to annotate error trails.
type SourceInfo struct {
	Source string
	Line   int
	Col    int
	Value  Scmer
}

func (si SourceInfo) String() string {
	return fmt.Sprintf("%s:%d:%d", si.Source, si.Line, si.Col)
}

// labelRef is the placeholder a #N# reference reads as until the
// enclosing top-level datum is complete.
type labelRef struct {
	n int
}

// Reader turns a token stream into values. It holds the environment it
// was created with because registered reader extensions may invoke bound
// functions or macros at read time.
type Reader struct {
	tokens   []Token
	pos      int
	env      *Env
	source   string
	foldCase bool
	depth    int
	labels   map[int]Scmer
	pending  int
}

// NewReader tokenizes source for the given environment. name goes into
// the SourceInfo stamps (empty for ad hoc strings).
func NewReader(source string, name string, env *Env) *Reader {
	return &Reader{tokens: TokenizeMeta(source), env: env, source: name}
}

// NewTokenReader wraps an existing token stream.
func NewTokenReader(tokens []Token, name string, env *Env) *Reader {
	return &Reader{tokens: tokens, env: env, source: name}
}

// Parse reads every top-level form of source.
func Parse(source string, env *Env) []Scmer {
	r := NewReader(source, "", env)
	var out []Scmer
	for {
		v, ok := r.Next()
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}

// ParseFile is Parse with a source name for diagnostics.
func ParseFile(source string, name string, env *Env) []Scmer {
	r := NewReader(source, name, env)
	var out []Scmer
	for {
		v, ok := r.Next()
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}

func (r *Reader) peek() (Token, bool) {
	for r.pos < len(r.tokens) && isCommentToken(r.tokens[r.pos].Text) {
		r.pos++
	}
	if r.pos >= len(r.tokens) {
		return Token{}, false
	}
	return r.tokens[r.pos], true
}

func (r *Reader) take() Token {
	t, ok := r.peek()
	if !ok {
		panic(&UnterminatedError{What: "expression", Line: r.lastLine(), Col: 0})
	}
	r.pos++
	return t
}

func (r *Reader) lastLine() int {
	if len(r.tokens) == 0 {
		return 1
	}
	return r.tokens[len(r.tokens)-1].Line
}

// Next reads one complete top-level datum. ok is false at end of input.
// Datum labels scope over the top-level datum, so placeholders resolve
// here before the value escapes.
func (r *Reader) Next() (Scmer, bool) {
	for {
		t, ok := r.peek()
		if !ok {
			return NewNil(), false
		}
		switch t.Text {
		case "#!fold-case":
			r.foldCase = true
			r.pos++
			continue
		case "#!no-fold-case":
			r.foldCase = false
			r.pos++
			continue
		}
		v := r.readExpr()
		if r.pending > 0 {
			v = r.resolveLabels(v)
		}
		r.labels = nil
		r.pending = 0
		return v, true
	}
}

var datumDefRe = regexp.MustCompile(`^#(\d+)=$`)
var datumRefRe = regexp.MustCompile(`^#(\d+)#$`)

func (r *Reader) readExpr() Scmer {
	t := r.take()
	switch t.Text {
	case "(", "[":
		return r.readList(t)
	case ")", "]":
		panic(&BalanceError{Unexpected: true, Line: t.Line, Col: t.Col})
	case "#;":
		r.readExpr() // commented datum, read and dropped
		return r.readExpr()
	case "#(":
		elems := r.readSeq(t)
		return NewVector(elems)
	case "#u8(":
		elems := r.readSeq(t)
		bytes := make([]byte, len(elems))
		for i, e := range elems {
			e = stripSource(e)
			if e.GetTag() != tagInt || e.Int() < 0 || e.Int() > 255 {
				panic(&SyntaxError{Msg: "bytevector elements must be exact bytes", Line: t.Line, Col: t.Col, Snippet: String(e)})
			}
			bytes[i] = byte(e.Int())
		}
		return NewBytes(bytes)
	}
	if m := datumDefRe.FindStringSubmatch(t.Text); m != nil {
		n, _ := strconv.Atoi(m[1])
		if r.labels == nil {
			r.labels = make(map[int]Scmer)
		}
		// placeholder first so the datum can reference itself
		r.labels[n] = NewAny(&labelRef{n: n})
		v := r.readExpr()
		r.labels[n] = v
		return v
	}
	if m := datumRefRe.FindStringSubmatch(t.Text); m != nil {
		n, _ := strconv.Atoi(m[1])
		r.pending++
		return NewAny(&labelRef{n: n})
	}
	if e, ok := LookupSpecial(t.Text); ok && e.Kind != specialMarker {
		return r.readSpecial(t, e)
	}
	return r.atom(t)
}

// readSpecial handles the quote family and user-registered extensions.
// When the name is bound to a function it runs now and its result is the
// read value; a bound macro expands now with pair/symbol results
// re-quoted; otherwise the literal (name datum) expansion is produced.
func (r *Reader) readSpecial(t Token, e specialEntry) Scmer {
	var form Scmer
	if e.Kind == specialSymbol {
		form = list(NewSymbolId(e.Name))
	} else {
		datum := r.readExpr()
		form = list(NewSymbolId(e.Name), datum)
	}
	if r.env != nil {
		if frame := r.env.FindRead(e.Name); frame != nil {
			binding := frame.Vars[e.Name]
			switch binding.GetTag() {
			case tagFunc, tagProc:
				args, _ := listToSlice(form)
				return Apply(binding, args[1:]...)
			case tagAny:
				if _, ok := binding.Any().(*ScmParser); ok {
					args, _ := listToSlice(form)
					return Apply(binding, args[1:]...)
				}
			case tagMacro, tagSyntax:
				result := Eval(form, r.env)
				result = stripSource(result)
				if result.IsPair() || result.IsSymbol() {
					return list(NewSymbolId(symQuote), result)
				}
				return result
			}
		}
	}
	return NewSourceInfo(SourceInfo{Source: r.source, Line: t.Line, Col: t.Col, Value: form})
}

// readSeq collects expressions until the matching closer (used for
// vectors and bytevectors).
func (r *Reader) readSeq(open Token) []Scmer {
	r.depth++
	defer func() { r.depth-- }()
	var elems []Scmer
	for {
		t, ok := r.peek()
		if !ok {
			panic(&BalanceError{Owed: r.depth, Line: open.Line, Col: open.Col})
		}
		if t.Text == ")" || t.Text == "]" {
			r.pos++
			return elems
		}
		elems = append(elems, r.readExpr())
	}
}

func (r *Reader) readList(open Token) Scmer {
	r.depth++
	defer func() { r.depth-- }()
	var elems []Scmer
	tail := NewNil()
	for {
		t, ok := r.peek()
		if !ok {
			panic(&BalanceError{Owed: r.depth, Line: open.Line, Col: open.Col})
		}
		if t.Text == ")" || t.Text == "]" {
			r.pos++
			break
		}
		if t.Text == "." {
			r.pos++
			if len(elems) == 0 {
				panic(&SyntaxError{Msg: "dot requires a preceding element", Line: t.Line, Col: t.Col})
			}
			tail = r.readExpr()
			closer, ok := r.peek()
			if !ok {
				panic(&BalanceError{Owed: r.depth, Line: open.Line, Col: open.Col})
			}
			if closer.Text != ")" && closer.Text != "]" {
				panic(&SyntaxError{Msg: "expected ) after dotted tail", Line: closer.Line, Col: closer.Col, Snippet: closer.Text})
			}
			r.pos++
			break
		}
		elems = append(elems, r.readExpr())
	}
	form := listWithTail(elems, tail)
	if !form.IsPair() {
		return form
	}
	return NewSourceInfo(SourceInfo{Source: r.source, Line: open.Line, Col: open.Col, Value: form})
}

//
// atoms
//

var charNames = map[string]rune{
	"space":     ' ',
	"newline":   '\n',
	"linefeed":  '\n',
	"tab":       '\t',
	"nul":       0,
	"null":      0,
	"return":    '\r',
	"alarm":     7,
	"backspace": 8,
	"delete":    127,
	"rubout":    127,
	"escape":    27,
	"altmode":   27,
}

var charNameByRune = map[rune]string{
	' ':  "space",
	'\n': "newline",
	'\t': "tab",
	0:    "null",
	'\r': "return",
	7:    "alarm",
	8:    "backspace",
	127:  "delete",
	27:   "escape",
}

func (r *Reader) atom(t Token) Scmer {
	text := t.Text
	switch text {
	case "#t", "#true":
		return NewBool(true)
	case "#f", "#false":
		return NewBool(false)
	case "#null":
		return NewNil()
	case "#void":
		return NewVoid()
	}
	if strings.HasPrefix(text, "\"") {
		return NewFrozenString(unescapeString(text, t))
	}
	if strings.HasPrefix(text, "|") {
		return NewSymbol(unescapeBlockSymbol(text))
	}
	if strings.HasPrefix(text, "#\\") {
		return r.parseChar(text, t)
	}
	if strings.HasPrefix(text, "#/") {
		return parseRegexLiteral(text, t)
	}
	if v, err := parseNumber(text, 10); err == nil {
		return v
	}
	if strings.HasPrefix(text, "#") {
		panic(&SyntaxError{Msg: "invalid token", Line: t.Line, Col: t.Col, Snippet: text})
	}
	if r.foldCase {
		text = strings.ToLower(text)
	}
	return NewSymbol(text)
}

func (r *Reader) parseChar(text string, t Token) Scmer {
	body := text[2:]
	runes := []rune(body)
	if len(runes) == 1 {
		return NewChar(runes[0])
	}
	name := body
	if r.foldCase {
		name = strings.ToLower(name)
	}
	if c, ok := charNames[name]; ok {
		return NewChar(c)
	}
	if (runes[0] == 'x' || runes[0] == 'X') && len(runes) > 1 {
		if n, err := strconv.ParseUint(string(runes[1:]), 16, 32); err == nil {
			return NewChar(rune(n))
		}
	}
	panic(&SyntaxError{Msg: "unknown character name", Line: t.Line, Col: t.Col, Snippet: text})
}

// unescapeString decodes a double-quoted literal: JSON-style escapes,
// \xHH; hex escapes, and literal newlines pass through.
func unescapeString(text string, t Token) string {
	body := text[1 : len(text)-1]
	var b strings.Builder
	runes := []rune(body)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c != '\\' || i+1 >= len(runes) {
			b.WriteRune(c)
			continue
		}
		i++
		switch runes[i] {
		case 'n':
			b.WriteRune('\n')
		case 't':
			b.WriteRune('\t')
		case 'r':
			b.WriteRune('\r')
		case 'b':
			b.WriteRune(8)
		case 'f':
			b.WriteRune(12)
		case 'v':
			b.WriteRune(11)
		case 'a':
			b.WriteRune(7)
		case '0':
			b.WriteRune(0)
		case '"':
			b.WriteRune('"')
		case '\\':
			b.WriteRune('\\')
		case '/':
			b.WriteRune('/')
		case '\n':
			// line continuation: escaped newline vanishes
		case 'x', 'X':
			j := i + 1
			for j < len(runes) && runes[j] != ';' {
				j++
			}
			if j >= len(runes) {
				panic(&SyntaxError{Msg: `\x escape missing terminating ;`, Line: t.Line, Col: t.Col, Snippet: text})
			}
			n, err := strconv.ParseUint(string(runes[i+1:j]), 16, 32)
			if err != nil {
				panic(&SyntaxError{Msg: `invalid \x escape`, Line: t.Line, Col: t.Col, Snippet: text})
			}
			b.WriteRune(rune(n))
			i = j
		default:
			b.WriteRune(runes[i])
		}
	}
	return b.String()
}

// unescapeBlockSymbol decodes |...|: \| and \\ unescape, \xHH; hex,
// \t \r \n controls.
func unescapeBlockSymbol(text string) string {
	body := text[1 : len(text)-1]
	var b strings.Builder
	runes := []rune(body)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c != '\\' || i+1 >= len(runes) {
			b.WriteRune(c)
			continue
		}
		i++
		switch runes[i] {
		case 't':
			b.WriteRune('\t')
		case 'r':
			b.WriteRune('\r')
		case 'n':
			b.WriteRune('\n')
		case 'x', 'X':
			j := i + 1
			for j < len(runes) && runes[j] != ';' {
				j++
			}
			if j < len(runes) {
				if n, err := strconv.ParseUint(string(runes[i+1:j]), 16, 32); err == nil {
					b.WriteRune(rune(n))
					i = j
					continue
				}
			}
			b.WriteRune(runes[i])
		default:
			b.WriteRune(runes[i])
		}
	}
	return b.String()
}

// parseRegexLiteral compiles #/body/flags into a Regex value. JS-style
// flags map onto Go inline flags where they exist.
func parseRegexLiteral(text string, t Token) Scmer {
	body := text[2:]
	end := -1
	depth := 0
	runes := []rune(body)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '\\':
			i++
		case '[':
			depth++
		case ']':
			depth--
		case '/':
			if depth == 0 {
				end = i
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		panic(&SyntaxError{Msg: "malformed regex literal", Line: t.Line, Col: t.Col, Snippet: text})
	}
	pattern := string(runes[:end])
	flags := string(runes[end+1:])
	goFlags := ""
	for _, f := range flags {
		switch f {
		case 'i':
			goFlags += "i"
		case 'm':
			goFlags += "m"
		case 's':
			goFlags += "s"
		case 'g', 'u', 'y':
			// match-all/unicode/sticky have no Go equivalent; matching
			// functions decide replace-all behavior from Flags
		default:
			panic(&SyntaxError{Msg: "unknown regex flag", Line: t.Line, Col: t.Col, Snippet: text})
		}
	}
	compiled := pattern
	if goFlags != "" {
		compiled = "(?" + goFlags + ")" + pattern
	}
	re, err := regexp.Compile(compiled)
	if err != nil {
		panic(&SyntaxError{Msg: "invalid regex: " + err.Error(), Line: t.Line, Col: t.Col, Snippet: text})
	}
	return NewRegex(&Regex{Re: re, Source: pattern, Flags: flags})
}

//
// datum label resolution
//

func (r *Reader) resolveLabels(v Scmer) Scmer {
	visited := make(map[*Pair]struct{})
	v = r.resolveSlot(v)
	r.resolveWalk(v, visited)
	return v
}

func (r *Reader) resolveSlot(v Scmer) Scmer {
	for i := 0; ; i++ {
		if v.GetTag() == tagSourceInfo {
			si := v.SourceInfo()
			si.Value = r.resolveSlot(si.Value)
			return v
		}
		if v.GetTag() != tagAny {
			return v
		}
		ref, ok := v.ptr.(*labelRef)
		if !ok {
			return v
		}
		resolved, exists := r.labels[ref.n]
		if !exists || i > len(r.labels)+1 {
			panic(&SyntaxError{Msg: "unknown datum label #" + strconv.Itoa(ref.n) + "#"})
		}
		v = resolved
	}
}

func (r *Reader) resolveWalk(v Scmer, visited map[*Pair]struct{}) {
	switch v.GetTag() {
	case tagSourceInfo:
		r.resolveWalk(v.SourceInfo().Value, visited)
	case tagPair:
		p := v.Pair()
		if _, ok := visited[p]; ok {
			return
		}
		visited[p] = struct{}{}
		p.Car = r.resolveSlot(p.Car)
		p.Cdr = r.resolveSlot(p.Cdr)
		r.resolveWalk(p.Car, visited)
		r.resolveWalk(p.Cdr, visited)
	case tagVector:
		vec := v.Vector()
		for i := range vec {
			vec[i] = r.resolveSlot(vec[i])
			r.resolveWalk(vec[i], visited)
		}
	}
}
