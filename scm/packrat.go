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

import "regexp"
import packrat "github.com/launix-de/go-packrat"

type ScmParser struct {
	Root      packrat.Parser // wrapper for parser
	Syntax    Scmer          // keep syntax for deserializer
	Generator Scmer
	Skipper   *regexp.Regexp
}

type ScmParserVariable struct {
	Parser   packrat.Parser // wrapper for parser
	Variable Symbol
}

type UndefinedParser struct { // a parser with forward declaration
	Parser packrat.Parser // if we finally found
	En     *Env
	Sym    Symbol
}

// allows self recursion on parsers
func (b *UndefinedParser) Match(s *packrat.Scanner) *packrat.Node {
	if b.Parser == nil {
		frame := b.En.FindRead(b.Sym)
		val, ok := frame.Vars[b.Sym]
		if !ok {
			panic("error parsing parser: variable does not contain a valid parser: " + SymbolName(b.Sym))
		}
		sub, ok2 := parserFromScmer(val)
		if !ok2 {
			panic("error parsing parser: variable does not contain a valid parser: " + SymbolName(b.Sym))
		}
		b.Parser = sub
	}
	return b.Parser.Match(s)
}

// parserFromScmer unwraps a parser value built by the parser form.
func parserFromScmer(v Scmer) (*ScmParser, bool) {
	v = stripSource(v)
	if v.GetTag() != tagAny {
		return nil, false
	}
	p, ok := v.Any().(*ScmParser)
	return p, ok
}

func (b *ScmParser) String() string {
	return "(parser ...)" // fallback generator
}

func (b *ScmParser) Match(s *packrat.Scanner) *packrat.Node {
	m := b.Root.Match(s)
	if m == nil {
		return nil
	}
	return &packrat.Node{m.Matched, m.Start, b, []*packrat.Node{m}}
}

func findVarNodes(node *packrat.Node, en *Env) {
	if extractor, ok := node.Parser.(*ScmParserVariable); ok {
		en.Vars[extractor.Variable] = ExtractScmer(node.Children[0], en)
	}
	if _, ok := node.Parser.(*ScmParser); ok {
		return // early exit, don't deep-dive into their variables
	}
	for _, child := range node.Children {
		findVarNodes(child, en)
	}
}

func ExtractScmer(n *packrat.Node, en *Env) Scmer {
	switch parser := n.Parser.(type) {
	case *ScmParser:
		if parser.Generator.IsNil() {
			return ExtractScmer(n.Children[0], en)
		}
		// call generator with the captured variables in scope
		en2 := Env{Vars: make(Vars), Outer: en, Name: "parser"}
		findVarNodes(n.Children[0], &en2)
		return Eval(parser.Generator, &en2)
	case *packrat.OrParser:
		return ExtractScmer(n.Children[0], en)
	case *packrat.KleeneParser:
		// children alternate between element and separator
		result := make([]Scmer, 0, len(n.Children)/2+1)
		for i := 0; i < len(n.Children); i += 2 {
			result = append(result, ExtractScmer(n.Children[i], en))
		}
		return listWithTail(result, NewNil())
	case *packrat.ManyParser:
		result := make([]Scmer, 0, len(n.Children)/2+1)
		for i := 0; i < len(n.Children); i += 2 {
			result = append(result, ExtractScmer(n.Children[i], en))
		}
		return listWithTail(result, NewNil())
	case *packrat.MaybeParser: // nil or value
		if len(n.Children) > 0 {
			return ExtractScmer(n.Children[0], en)
		}
		return NewNil()
	}
	return NewString(n.Matched)
}

func (b *ScmParser) Execute(str string, en *Env) Scmer {
	var skipper *regexp.Regexp = b.Skipper
	if skipper == nil {
		skipper = packrat.SkipWhitespaceAndCommentsRegex // also skip C-style comments as whitespaces
	}
	scanner := packrat.NewScanner(str, skipper)
	node, err := packrat.Parse(b, scanner)
	if err != nil {
		panic(err)
	}
	return ExtractScmer(node, en)
}

func (b *ScmParserVariable) Match(s *packrat.Scanner) *packrat.Node {
	m := b.Parser.Match(s)
	if m == nil {
		return nil
	}
	return &packrat.Node{m.Matched, m.Start, b, []*packrat.Node{m}}
}

func parseSyntax(syntax Scmer, en *Env) packrat.Parser {
	syntax = stripSource(syntax)
	switch syntax.GetTag() {
	case tagString:
		return packrat.NewAtomParser(syntax.String(), false, true)
	case tagAny:
		if p, ok := syntax.Any().(*ScmParser); ok { // passthrough for precompiled parsers
			return p
		}
	case tagSymbol:
		sym := syntax.Symbol()
		switch SymbolName(sym) {
		case "$":
			return packrat.NewEndParser(true)
		case "empty":
			return packrat.NewEmptyParser()
		}
		if frame := en.FindRead(sym); frame != nil {
			if p, ok := parserFromScmer(frame.Vars[sym]); ok {
				return p
			}
		}
		return &UndefinedParser{nil, en, sym}
	case tagPair:
		elems, _ := listToSlice(syntax)
		if len(elems) == 0 {
			panic("invalid parser ()")
		}
		head, _ := symbolOf(elems[0])
		switch SymbolName(head) {
		case "parser": // inner anonymous parser
			generator := NewNil()
			if len(elems) > 2 {
				Validate(elems[2], "any")
				generator = elems[2]
			}
			skipper := NewNil()
			if len(elems) > 3 {
				Validate(elems[3], "string")
				skipper = elems[3]
			}
			return NewParser(elems[1], generator, skipper, en)
		case "atom":
			caseinsensitive := false
			if len(elems) > 2 {
				caseinsensitive = ToBool(elems[2])
			}
			skipws := true
			if len(elems) > 3 {
				skipws = ToBool(elems[3])
			}
			return packrat.NewAtomParser(String(elems[1]), caseinsensitive, skipws)
		case "regex":
			caseinsensitive := false
			if len(elems) > 2 {
				caseinsensitive = ToBool(elems[2])
			}
			skipws := true
			if len(elems) > 3 {
				skipws = ToBool(elems[3])
			}
			return packrat.NewRegexParser(String(elems[1]), caseinsensitive, skipws)
		case "list":
			subparser := make([]packrat.Parser, len(elems)-1)
			for i := 1; i < len(elems); i++ {
				subparser[i-1] = parseSyntax(elems[i], en)
			}
			return packrat.NewAndParser(subparser...)
		case "or":
			subparser := make([]packrat.Parser, len(elems)-1)
			for i := 1; i < len(elems); i++ {
				subparser[i-1] = parseSyntax(elems[i], en)
			}
			return packrat.NewOrParser(subparser...)
		case "*":
			subparser := parseSyntax(elems[1], en)
			var sepparser packrat.Parser
			if len(elems) > 2 {
				sepparser = parseSyntax(elems[2], en)
			} else {
				sepparser = packrat.NewEmptyParser()
			}
			return packrat.NewKleeneParser(subparser, sepparser)
		case "+":
			subparser := parseSyntax(elems[1], en)
			var sepparser packrat.Parser
			if len(elems) > 2 {
				sepparser = parseSyntax(elems[2], en)
			} else {
				sepparser = packrat.NewEmptyParser()
			}
			return packrat.NewManyParser(subparser, sepparser)
		case "?":
			if len(elems) == 2 {
				// single element
				return packrat.NewMaybeParser(parseSyntax(elems[1], en))
			}
			// maybe with a list
			subparser := make([]packrat.Parser, len(elems)-1)
			for i := 1; i < len(elems); i++ {
				subparser[i-1] = parseSyntax(elems[i], en)
			}
			return packrat.NewMaybeParser(packrat.NewAndParser(subparser...))
		case "define":
			varSym, ok := symbolOf(elems[1])
			if !ok {
				panic("parser define needs a symbol, got: " + String(elems[1]))
			}
			result := new(ScmParserVariable)
			result.Variable = varSym
			result.Parser = parseSyntax(elems[2], en)
			return result
		}
	}
	panic("unknown parser syntax: " + String(syntax))
}

func NewParser(syntax, generator, whitespace Scmer, en *Env) *ScmParser {
	result := new(ScmParser)
	result.Root = parseSyntax(syntax, en)
	result.Syntax = syntax // for serialization purposes
	result.Generator = generator
	if !stripSource(whitespace).IsNil() {
		result.Skipper = regexp.MustCompile(String(whitespace))
		// "^(?:/\\*.*?\\*/|[\r\n\t ]+)+"
	}
	return result
}

func init_parser() {
	DeclareTitle("Parsers")
	Declare(&Globalenv, &Declaration{
		"parser", `creates a parser

Scm parsers work this way:
(parser syntax scmerresult) -> func

syntax can be one of:
(parser syntax scmerresult) will execute scmerresult after parsing syntax
(parser syntax scmerresult "skipper") will add a different whitespace skipper regex to the root parser
(define var syntax) valid inside (parser...), stores the result of syntax into var for use in scmerresult
"str" AtomParser
(atom "str" caseinsensitive skipws) AtomParser
(regex "asdf" caseinsensitive skipws) RegexParser
'(a b c) AndParser
(or a b c) OrParser
(* sub separator) KleeneParser
(+ sub separator) ManyParser
(? xyz) MaybeParser (if >1 AndParser)
$ EndParser
empty EmptyParser
symbol -> use other parser defined in env

for further details on packrat parsers, take a look at https://github.com/launix-de/go-packrat
`,
		1, 3,
		[]DeclarationParameter{
			{"syntax", "any", "syntax of the grammar (see docs)"},
			{"generator", "any", "(optional) expressions to evaluate. All captured variables are available in the scope."},
			{"skipper", "string", "(optional) string that defines the skip mechanism for whitespaces as regexp"},
		}, "func",
		nil, false,
	})
	Declare(&Globalenv, &Declaration{
		"set-special!", "registers a reader extension: the sequence lexes as its own token and dispatches to the binding of name at read time",
		2, 3,
		[]DeclarationParameter{
			{"sequence", "string", "literal character sequence to recognize"},
			{"name", "symbol", "symbol the reader resolves when the sequence appears"},
			{"standalone", "bool", "when true the sequence reads no following datum (optional)"},
		}, "bool",
		func(a ...Scmer) Scmer {
			seq := String(a[0])
			name, ok := symbolOf(a[1])
			if !ok {
				panic(&TypeError{Op: "set-special!", ArgPos: 2, Expected: []string{"a symbol"}, Got: typeName(stripSource(a[1]))})
			}
			kind := specialLiteral
			if len(a) > 2 && ToBool(a[2]) {
				kind = specialSymbol
			}
			RegisterSpecial(seq, name, kind)
			return NewBool(true)
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"unset-special!", "removes a reader extension; tells whether it existed",
		1, 1,
		[]DeclarationParameter{
			{"sequence", "string", "sequence registered with set-special!"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(UnregisterSpecial(String(a[0])))
		}, false,
	})
}
