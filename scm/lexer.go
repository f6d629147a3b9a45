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
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/google/btree"
)

// Token is one lexeme with its source position.
type Token struct {
	Text   string
	Line   int
	Col    int
	Offset int
}

// lexer states
const (
	lsNone = iota
	lsAtom
	lsString
	lsStringEscape
	lsCharOpen // saw # with \ ahead
	lsChar     // saw #\, next char is the character
	lsCharName // accumulating a character name
	lsRegexOpen
	lsRegex
	lsRegexEscape
	lsRegexClass
	lsRegexClassEscape
	lsRegexFlags
	lsLineComment
	lsBlockComment
	lsBlockCommentEnding
	lsBlockSymbol
	lsBlockSymbolEscape
	lsDatumLabel
)

// rule actions
const (
	actAppend = iota
	actSkip
	actEndAfter  // char belongs to the token, then the token ends
	actEndBefore // token ends, char is reprocessed in the new state
	actSingle    // char is a complete one-character token
)

type matcher func(r rune) bool

func is(c rune) matcher     { return func(r rune) bool { return r == c } }
func isSpace(r rune) bool   { return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v' }
func isDigitRune(r rune) bool { return r >= '0' && r <= '9' }
func isDelim(r rune) bool {
	switch r {
	case '(', ')', '[', ']', '"', ';', '|':
		return true
	}
	return isSpace(r)
}
func isNameChar(r rune) bool {
	return r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// lexRule is one transition tuple: (char pattern, required previous char,
// required next char, required state, resulting state). Rules are tested
// in order; the first match wins.
type lexRule struct {
	match  matcher
	prev   matcher
	next   matcher
	state  int
	to     int
	action int
}

var lexRules = []lexRule{
	// ground state openers
	{is('"'), nil, nil, lsNone, lsString, actAppend},
	{is(';'), nil, nil, lsNone, lsLineComment, actAppend},
	{is('|'), nil, nil, lsNone, lsBlockSymbol, actAppend},
	{is('#'), nil, is('|'), lsNone, lsBlockComment, actAppend},
	{is('#'), nil, is('\\'), lsNone, lsCharOpen, actAppend},
	{is('#'), nil, is('/'), lsNone, lsRegexOpen, actAppend},
	{is('#'), nil, isDigitRune, lsNone, lsDatumLabel, actAppend},
	{is('('), nil, nil, lsNone, lsNone, actSingle},
	{is(')'), nil, nil, lsNone, lsNone, actSingle},
	{is('['), nil, nil, lsNone, lsNone, actSingle},
	{is(']'), nil, nil, lsNone, lsNone, actSingle},
	{isSpace, nil, nil, lsNone, lsNone, actSkip},
	{nil, nil, nil, lsNone, lsAtom, actAppend},

	// atoms end at whitespace or a delimiter
	{isDelim, nil, nil, lsAtom, lsNone, actEndBefore},
	{nil, nil, nil, lsAtom, lsAtom, actAppend},

	// strings
	{is('\\'), nil, nil, lsString, lsStringEscape, actAppend},
	{is('"'), nil, nil, lsString, lsNone, actEndAfter},
	{nil, nil, nil, lsString, lsString, actAppend},
	{nil, nil, nil, lsStringEscape, lsString, actAppend},

	// characters: #\ then one arbitrary char, then an optional name
	{nil, nil, nil, lsCharOpen, lsChar, actAppend},
	{nil, nil, nil, lsChar, lsCharName, actAppend},
	{isNameChar, nil, nil, lsCharName, lsCharName, actAppend},
	{nil, nil, nil, lsCharName, lsNone, actEndBefore},

	// regexes: #/body/flags with [] classes and \ escapes
	{nil, nil, nil, lsRegexOpen, lsRegex, actAppend},
	{is('\\'), nil, nil, lsRegex, lsRegexEscape, actAppend},
	{is('['), nil, nil, lsRegex, lsRegexClass, actAppend},
	{is('/'), nil, nil, lsRegex, lsRegexFlags, actAppend},
	{nil, nil, nil, lsRegex, lsRegex, actAppend},
	{nil, nil, nil, lsRegexEscape, lsRegex, actAppend},
	{is('\\'), nil, nil, lsRegexClass, lsRegexClassEscape, actAppend},
	{is(']'), nil, nil, lsRegexClass, lsRegex, actAppend},
	{nil, nil, nil, lsRegexClass, lsRegexClass, actAppend},
	{nil, nil, nil, lsRegexClassEscape, lsRegexClass, actAppend},
	{unicode.IsLetter, nil, nil, lsRegexFlags, lsRegexFlags, actAppend},
	{nil, nil, nil, lsRegexFlags, lsNone, actEndBefore},

	// comments
	{is('\n'), nil, nil, lsLineComment, lsNone, actEndBefore},
	{nil, nil, nil, lsLineComment, lsLineComment, actAppend},
	{is('|'), nil, is('#'), lsBlockComment, lsBlockCommentEnding, actAppend},
	{nil, nil, nil, lsBlockComment, lsBlockComment, actAppend},
	{is('#'), nil, nil, lsBlockCommentEnding, lsNone, actEndAfter},
	{is('|'), nil, is('#'), lsBlockCommentEnding, lsBlockCommentEnding, actAppend},
	{nil, nil, nil, lsBlockCommentEnding, lsBlockComment, actAppend},

	// block symbols |...| with \ escapes
	{is('\\'), nil, nil, lsBlockSymbol, lsBlockSymbolEscape, actAppend},
	{is('|'), nil, nil, lsBlockSymbol, lsNone, actEndAfter},
	{nil, nil, nil, lsBlockSymbol, lsBlockSymbol, actAppend},
	{nil, nil, nil, lsBlockSymbolEscape, lsBlockSymbol, actAppend},

	// datum labels #N= and #N#
	{isDigitRune, nil, nil, lsDatumLabel, lsDatumLabel, actAppend},
	{is('='), nil, nil, lsDatumLabel, lsNone, actEndAfter},
	{is('#'), nil, nil, lsDatumLabel, lsNone, actEndAfter},
	{isDelim, nil, nil, lsDatumLabel, lsNone, actEndBefore},
	{nil, nil, nil, lsDatumLabel, lsAtom, actAppend},
}

//
// special-symbols registry: literal sequences that lex as their own token
// and drive read macros. Kept ordered longest-first (ties lexicographic)
// so the lexer always prefers the longest registered sequence.
//

const (
	specialLiteral = iota // token wraps the following datum: (name datum)
	specialSymbol         // token stands alone: (name)
	specialMarker         // consumed by the reader itself (#; vectors ...)
)

type specialEntry struct {
	Seq  string
	Name Symbol
	Kind int
}

func specialLess(a, b specialEntry) bool {
	if len(a.Seq) != len(b.Seq) {
		return len(a.Seq) > len(b.Seq)
	}
	return a.Seq < b.Seq
}

var specialsMu sync.Mutex
var specialsTree = btree.NewG[specialEntry](8, specialLess)
var specialsGen uint64
var specialsCache atomic.Pointer[[]specialEntry]

func init() {
	RegisterSpecial("'", symQuote, specialLiteral)
	RegisterSpecial("`", symQuasiquote, specialLiteral)
	RegisterSpecial(",@", symUnquoteSplicing, specialLiteral)
	RegisterSpecial(",", symUnquote, specialLiteral)
	RegisterSpecial("#;", Intern("#;"), specialMarker)
	RegisterSpecial("#(", Intern("#("), specialMarker)
	RegisterSpecial("#u8(", Intern("#u8("), specialMarker)
}

// RegisterSpecial adds (or replaces) a reader special. The cached rule
// table is invalidated so running lexers pick the change up on their next
// tokenize call.
func RegisterSpecial(seq string, name Symbol, kind int) {
	if seq == "" {
		panic(&UserError{Payload: NewString("set-special!: empty sequence")})
	}
	specialsMu.Lock()
	specialsTree.ReplaceOrInsert(specialEntry{Seq: seq, Name: name, Kind: kind})
	atomic.AddUint64(&specialsGen, 1)
	specialsCache.Store(nil)
	specialsMu.Unlock()
}

// UnregisterSpecial removes a reader special; reports whether it existed.
func UnregisterSpecial(seq string) bool {
	specialsMu.Lock()
	defer specialsMu.Unlock()
	_, ok := specialsTree.Delete(specialEntry{Seq: seq})
	if ok {
		atomic.AddUint64(&specialsGen, 1)
		specialsCache.Store(nil)
	}
	return ok
}

// LookupSpecial resolves a registered sequence.
func LookupSpecial(seq string) (specialEntry, bool) {
	specialsMu.Lock()
	defer specialsMu.Unlock()
	return specialsTree.Get(specialEntry{Seq: seq})
}

func currentSpecials() []specialEntry {
	if p := specialsCache.Load(); p != nil {
		return *p
	}
	specialsMu.Lock()
	defer specialsMu.Unlock()
	if p := specialsCache.Load(); p != nil {
		return *p
	}
	out := make([]specialEntry, 0, specialsTree.Len())
	specialsTree.Ascend(func(e specialEntry) bool {
		out = append(out, e)
		return true
	})
	specialsCache.Store(&out)
	return out
}

//
// the tokenizer
//

type lexer struct {
	src      []rune
	pos      int
	line     int
	col      int
	state    int
	buf      []rune
	tokLine  int
	tokCol   int
	tokOff   int
	tokens   []Token
	specials []specialEntry
}

func (lx *lexer) flush() {
	if len(lx.buf) > 0 {
		lx.tokens = append(lx.tokens, Token{Text: string(lx.buf), Line: lx.tokLine, Col: lx.tokCol, Offset: lx.tokOff})
		lx.buf = lx.buf[:0]
	}
}

func (lx *lexer) begin() {
	if len(lx.buf) == 0 {
		lx.tokLine, lx.tokCol, lx.tokOff = lx.line, lx.col, lx.pos
	}
}

func (lx *lexer) advance(r rune) {
	lx.pos++
	if r == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
}

// matchSpecialAt finds the highest-priority registered sequence starting
// at the current position.
func (lx *lexer) matchSpecialAt() (specialEntry, bool) {
	rest := lx.src[lx.pos:]
	for _, e := range lx.specials {
		seq := []rune(e.Seq)
		if len(seq) > len(rest) {
			continue
		}
		ok := true
		for i, c := range seq {
			if rest[i] != c {
				ok = false
				break
			}
		}
		if ok {
			return e, true
		}
	}
	return specialEntry{}, false
}

func (lx *lexer) run() {
	for lx.pos < len(lx.src) {
		r := lx.src[lx.pos]

		// registered specials contribute one-shot literal rules ahead of
		// the table, but only outside strings/comments/etc
		if lx.state == lsNone || lx.state == lsAtom {
			if e, ok := lx.matchSpecialAt(); ok {
				lx.flush()
				lx.state = lsNone
				tok := Token{Text: e.Seq, Line: lx.line, Col: lx.col, Offset: lx.pos}
				lx.tokens = append(lx.tokens, tok)
				for _, c := range e.Seq {
					lx.advance(c)
				}
				continue
			}
		}

		if lx.state == lsNone && r != '\t' && r != '\n' && r != '\r' && r != '\f' && r != '\v' && unicode.IsControl(r) {
			panic(&SyntaxError{Msg: "unrecognized character", Line: lx.line, Col: lx.col, Snippet: lineAround(lx.src, lx.pos)})
		}

		var prev rune
		if lx.pos > 0 {
			prev = lx.src[lx.pos-1]
		}
		var next rune
		if lx.pos+1 < len(lx.src) {
			next = lx.src[lx.pos+1]
		}

		rule := matchLexRule(r, prev, next, lx.state)
		switch rule.action {
		case actSkip:
			lx.advance(r)
		case actSingle:
			lx.flush()
			lx.tokens = append(lx.tokens, Token{Text: string(r), Line: lx.line, Col: lx.col, Offset: lx.pos})
			lx.advance(r)
		case actAppend:
			lx.begin()
			lx.buf = append(lx.buf, r)
			lx.advance(r)
		case actEndAfter:
			lx.begin()
			lx.buf = append(lx.buf, r)
			lx.advance(r)
			lx.flush()
		case actEndBefore:
			lx.flush()
			// char stays for the next round in the new state
		}
		lx.state = rule.to
	}
	switch lx.state {
	case lsString, lsStringEscape:
		panic(&UnterminatedError{What: "string", Line: lx.tokLine, Col: lx.tokCol})
	case lsCharOpen, lsChar:
		panic(&UnterminatedError{What: "character", Line: lx.tokLine, Col: lx.tokCol})
	case lsRegexOpen, lsRegex, lsRegexEscape, lsRegexClass, lsRegexClassEscape:
		panic(&UnterminatedError{What: "regular expression", Line: lx.tokLine, Col: lx.tokCol})
	case lsBlockComment, lsBlockCommentEnding:
		panic(&UnterminatedError{What: "block comment", Line: lx.tokLine, Col: lx.tokCol})
	case lsBlockSymbol, lsBlockSymbolEscape:
		panic(&UnterminatedError{What: "block symbol", Line: lx.tokLine, Col: lx.tokCol})
	}
	lx.flush()
}

func matchLexRule(r, prev, next rune, state int) lexRule {
	for _, rule := range lexRules {
		if rule.state != state {
			continue
		}
		if rule.match != nil && !rule.match(r) {
			continue
		}
		if rule.prev != nil && !rule.prev(prev) {
			continue
		}
		if rule.next != nil && !rule.next(next) {
			continue
		}
		return rule
	}
	// unreachable as long as every state carries a catch-all rule
	panic(&SyntaxError{Msg: "lexer wedged", Line: 0, Col: 0})
}

func lineAround(src []rune, pos int) string {
	start := pos
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	end := pos
	for end < len(src) && src[end] != '\n' {
		end++
	}
	return strings.TrimSpace(string(src[start:end]))
}

func isCommentToken(text string) bool {
	return strings.HasPrefix(text, ";") || strings.HasPrefix(text, "#|")
}

// TokenizeMeta lexes source into tokens with positions, including
// comment tokens.
func TokenizeMeta(source string) []Token {
	lx := &lexer{src: []rune(source), line: 1, col: 1, specials: currentSpecials()}
	lx.run()
	return lx.tokens
}

// Tokenize lexes source into the plain token texts, comments skipped.
func Tokenize(source string) []string {
	all := TokenizeMeta(source)
	out := make([]string, 0, len(all))
	for _, t := range all {
		if !isCommentToken(t.Text) {
			out = append(out, t.Text)
		}
	}
	return out
}
