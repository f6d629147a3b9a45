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

import "io"
import "fmt"
import "html"
import "regexp"
import "strings"
import "net/url"
import "encoding/json"
import "encoding/base64"
import "encoding/hex"
import crand "crypto/rand"
import "golang.org/x/text/collate"
import "golang.org/x/text/language"
import "sync"
import "reflect"

// Collation metadata registry for stable serialization of comparator closures.
// Keyed by function pointer.
var collateRegistry sync.Map // map[uintptr]struct{Collation string; Reverse bool}

// LookupCollate returns (collation, reverse, ok) for a previously built collate closure.
func LookupCollate(fn func(...Scmer) Scmer) (string, bool, bool) {
	if fn == nil {
		return "", false, false
	}
	if v, ok := collateRegistry.Load(reflect.ValueOf(fn).Pointer()); ok {
		m := v.(struct {
			Collation string
			Reverse   bool
		})
		return m.Collation, m.Reverse, true
	}
	return "", false, false
}

func LessScm(a ...Scmer) Scmer {
	return NewBool(Less(a[0], a[1]))
}

func GreaterScm(a ...Scmer) Scmer {
	return NewBool(Less(a[1], a[0]))
}

/* SQL LIKE operator implementation on strings */
func StrLike(str, pattern string) bool {
	for {
		// boundary check
		if len(pattern) == 0 {
			if len(str) == 0 {
				// we finished matching
				return true
			} else {
				// pattern is consumed but no string left: no match
				return false
			}
		}
		// now str[0] and pattern[0] are assured to exist
		if pattern[0] == '%' { // wildcard
			pattern = pattern[1:]
			if pattern == "" {
				return true // string ends with wildcard
			}
			// otherwise: match against all possible endings
			for i := len(str) - 1; i >= 0; i-- { // run from right to left to be as greedy and performant as possible
				if str[i] == pattern[0] {
					// check if this caracter matches the rest
					if StrLike(str[i:], pattern) {
						return true // we found a match with this position as continuation
					}
				}
			}
			return false // no continuation found
		} else {
			if len(str) > 0 && (pattern[0] == '_' || pattern[0] == str[0]) {
				// match -> move one character forward
				pattern = pattern[1:]
				str = str[1:]
			} else {
				// mismatch -> we're out
				return false
			}
		}
	}
}

// Simplify turns a string into the easiest-most value it denotes, so JSON
// payloads and user input can be folded into numbers.
func Simplify(s string) Scmer {
	if v, err := parseNumber(s, 10); err == nil && v.IsNumber() {
		return v
	}
	return NewString(s)
}

// TransformFromJSON maps a decoded encoding/json value tree into the value
// model: objects become dicts, arrays become lists.
func TransformFromJSON(a_ any) Scmer {
	switch a := a_.(type) {
	case map[string]any:
		d := NewFastDict(len(a))
		for k, v := range a {
			d.Set(NewString(k), TransformFromJSON(v), nil)
		}
		return NewDict(d)
	case []any:
		elems := make([]Scmer, len(a))
		for i, v := range a {
			elems[i] = TransformFromJSON(v)
		}
		return listWithTail(elems, NewNil())
	case string:
		return NewString(a)
	case float64:
		return NewFloat(a)
	case bool:
		return NewBool(a)
	}
	return NewNil()
}

// scmerToGo maps a value tree onto encoding/json-friendly Go values.
// Cyclic lists surface as CycleError from the list walker.
func scmerToGo(v Scmer) any {
	v = stripSource(v)
	switch v.GetTag() {
	case tagNil, tagVoid:
		return nil
	case tagBool:
		return v.Bool()
	case tagInt:
		return v.Int()
	case tagFloat:
		return v.Float()
	case tagBigInt:
		return v.BigInt()
	case tagRational:
		return v.Float()
	case tagString:
		return v.MutString().S
	case tagSymbol:
		return SymbolName(v.Symbol())
	case tagChar:
		return string(v.Char())
	case tagBytes:
		return v.Bytes()
	case tagPair:
		elems, tail := listToSlice(v)
		out := make([]any, 0, len(elems)+1)
		for _, e := range elems {
			out = append(out, scmerToGo(e))
		}
		if !stripSource(tail).IsNil() {
			out = append(out, scmerToGo(tail))
		}
		return out
	case tagVector:
		vec := v.Vector()
		out := make([]any, len(vec))
		for i, e := range vec {
			out[i] = scmerToGo(e)
		}
		return out
	case tagDict:
		d := v.Dict()
		out := make(map[string]any, d.pairLen()/2)
		d.Iterate(func(k, val Scmer) bool {
			out[k.String()] = scmerToGo(val)
			return true
		})
		return out
	}
	return String(v)
}

func stringArg(op string, pos int, a []Scmer) *MutString {
	v := stripSource(a[pos-1])
	if v.GetTag() != tagString {
		panic(&TypeError{Op: op, ArgPos: pos, Expected: []string{"a string"}, Got: typeName(v)})
	}
	return v.MutString()
}

// compileRegexScm builds a regex value at runtime with the same JS-style
// flag mapping the reader uses for #/.../ literals.
func compileRegexScm(pattern, flags string) Scmer {
	goFlags := ""
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			goFlags += string(f)
		case 'g', 'u', 'y':
			// kept in Flags; matching functions honor g themselves
		default:
			panic("regex: unknown flag " + string(f))
		}
	}
	compiled := pattern
	if goFlags != "" {
		compiled = "(?" + goFlags + ")" + pattern
	}
	re, err := regexp.Compile(compiled)
	if err != nil {
		panic("regex: " + err.Error())
	}
	return NewRegex(&Regex{Re: re, Source: pattern, Flags: flags})
}

func regexArg(op string, pos int, a []Scmer) *Regex {
	v := stripSource(a[pos-1])
	switch v.GetTag() {
	case tagRegex:
		return v.Regex()
	case tagString:
		return compileRegexScm(v.MutString().S, "").Regex()
	}
	panic(&TypeError{Op: op, ArgPos: pos, Expected: []string{"a regex", "a string"}, Got: typeName(v)})
}

func init_strings() {
	// string functions
	DeclareTitle("Strings")

	Declare(&Globalenv, &Declaration{
		"string?", "tells if the value is a string",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(stripSource(a[0]).GetTag() == tagString)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"string", "renders any value into its display string",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to render"},
		}, "string",
		func(a ...Scmer) Scmer {
			return NewString(String(a[0]))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"concat", "concatenates stringable values and returns a string",
		1, 1000,
		[]DeclarationParameter{
			{"value...", "any", "values to concat"},
		}, "string",
		func(a ...Scmer) Scmer {
			var sb strings.Builder
			for _, s := range a {
				if st := stripSource(s); st.GetTag() == tagStream {
					_, _ = io.Copy(&sb, st.Stream().Reader)
				} else {
					sb.WriteString(String(s))
				}
			}
			return NewString(sb.String())
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"string-append", "concatenates strings",
		0, 1000,
		[]DeclarationParameter{
			{"value...", "string", "strings to concatenate"},
		}, "string",
		func(a ...Scmer) Scmer {
			var sb strings.Builder
			for i := range a {
				sb.WriteString(stringArg("string-append", i+1, a).S)
			}
			return NewString(sb.String())
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"substr", "returns a substring by byte offset and length",
		2, 3,
		[]DeclarationParameter{
			{"value", "string", "string to cut"},
			{"start", "number", "first byte index"},
			{"len", "number", "optional length in bytes"},
		}, "string",
		func(a ...Scmer) Scmer {
			s := String(a[0])
			i := ToInt(a[1])
			if len(a) > 2 {
				return NewString(s[i : i+ToInt(a[2])])
			}
			return NewString(s[i:])
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"substring", "returns the characters between start (inclusive) and end (exclusive)",
		2, 3,
		[]DeclarationParameter{
			{"value", "string", "input string"},
			{"start", "int", "first character index"},
			{"end", "int", "one past the last character index (optional, defaults to the end)"},
		}, "string",
		func(a ...Scmer) Scmer {
			runes := []rune(stringArg("substring", 1, a).S)
			start := ToInt(a[1])
			end := int64(len(runes))
			if len(a) > 2 {
				end = ToInt(a[2])
			}
			if start < 0 || end > int64(len(runes)) || start > end {
				panic(&TypeError{Op: "substring", ArgPos: 2, Expected: []string{"indices within the string"}, Got: fmt.Sprintf("%d..%d of %d", start, end, len(runes))})
			}
			return NewString(string(runes[start:end]))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"string-length", "counts the characters of a string",
		1, 1,
		[]DeclarationParameter{
			{"value", "string", "input string"},
		}, "int",
		func(a ...Scmer) Scmer {
			n := 0
			for range stringArg("string-length", 1, a).S {
				n++
			}
			return NewInt(int64(n))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"string-ref", "returns the character at the given index",
		2, 2,
		[]DeclarationParameter{
			{"value", "string", "input string"},
			{"index", "int", "character index beginning from 0"},
		}, "any",
		func(a ...Scmer) Scmer {
			runes := []rune(stringArg("string-ref", 1, a).S)
			i := ToInt(a[1])
			if i < 0 || i >= int64(len(runes)) {
				panic(&TypeError{Op: "string-ref", ArgPos: 2, Expected: []string{"an index within the string"}, Got: fmt.Sprint(i)})
			}
			return NewChar(runes[i])
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"string-set!", "replaces the character at the given index in place; literals are immutable",
		3, 3,
		[]DeclarationParameter{
			{"value", "string", "mutable string"},
			{"index", "int", "character index beginning from 0"},
			{"char", "any", "replacement character"},
		}, "nil",
		func(a ...Scmer) Scmer {
			ms := stringArg("string-set!", 1, a)
			if ms.Frozen {
				panic("string-set!: cannot mutate a string literal")
			}
			c := stripSource(a[2])
			if c.GetTag() != tagChar {
				panic(&TypeError{Op: "string-set!", ArgPos: 3, Expected: []string{"a character"}, Got: typeName(c)})
			}
			runes := []rune(ms.S)
			i := ToInt(a[1])
			if i < 0 || i >= int64(len(runes)) {
				panic(&TypeError{Op: "string-set!", ArgPos: 2, Expected: []string{"an index within the string"}, Got: fmt.Sprint(i)})
			}
			runes[i] = c.Char()
			ms.S = string(runes)
			return NewVoid()
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"make-string", "returns a fresh mutable string of the given length",
		1, 2,
		[]DeclarationParameter{
			{"length", "int", "number of characters"},
			{"char", "any", "fill character (optional, defaults to space)"},
		}, "string",
		func(a ...Scmer) Scmer {
			n := ToInt(a[0])
			if n < 0 {
				panic(&TypeError{Op: "make-string", ArgPos: 1, Expected: []string{"a non-negative length"}, Got: fmt.Sprint(n)})
			}
			fill := ' '
			if len(a) > 1 {
				c := stripSource(a[1])
				if c.GetTag() != tagChar {
					panic(&TypeError{Op: "make-string", ArgPos: 2, Expected: []string{"a character"}, Got: typeName(c)})
				}
				fill = c.Char()
			}
			return NewString(strings.Repeat(string(fill), int(n)))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"string-copy", "returns a fresh mutable copy of the characters between start and end",
		1, 3,
		[]DeclarationParameter{
			{"value", "string", "input string"},
			{"start", "int", "first character index (optional, defaults to 0)"},
			{"end", "int", "one past the last character index (optional, defaults to the end)"},
		}, "string",
		func(a ...Scmer) Scmer {
			runes := []rune(stringArg("string-copy", 1, a).S)
			start := int64(0)
			end := int64(len(runes))
			if len(a) > 1 {
				start = ToInt(a[1])
			}
			if len(a) > 2 {
				end = ToInt(a[2])
			}
			if start < 0 || end > int64(len(runes)) || start > end {
				panic(&TypeError{Op: "string-copy", ArgPos: 2, Expected: []string{"indices within the string"}, Got: fmt.Sprintf("%d..%d of %d", start, end, len(runes))})
			}
			return NewString(string(runes[start:end]))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"string-map", "applies a function to every character and returns the new string",
		2, 2,
		[]DeclarationParameter{
			{"fn", "func", "function from character to character"},
			{"value", "string", "input string"},
		}, "string",
		func(a ...Scmer) Scmer {
			var sb strings.Builder
			for _, r := range stringArg("string-map", 2, a).S {
				out := force(Apply(a[0], NewChar(r)))
				if stripSource(out).GetTag() != tagChar {
					panic(&TypeError{Op: "string-map", ArgPos: 1, Expected: []string{"a function returning characters"}, Got: typeName(out)})
				}
				sb.WriteRune(stripSource(out).Char())
			}
			return NewString(sb.String())
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"simplify", "turns a stringable input value in the easiest-most value (e.g. turn strings into numbers if they are numeric",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to simplify"},
		}, "any",
		func(a ...Scmer) Scmer {
			// turn string to number or so
			return Simplify(String(a[0]))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"strlen", "returns the length of a string in bytes",
		1, 1,
		[]DeclarationParameter{
			{"value", "string", "input string"},
		}, "int",
		func(a ...Scmer) Scmer {
			return NewInt(int64(len(String(a[0]))))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"strlike", "matches the string against a wildcard pattern (SQL compliant)",
		2, 3,
		[]DeclarationParameter{
			{"value", "string", "input string"},
			{"pattern", "string", "pattern with % and _ in them"},
			{"collation", "string", "collation in which to compare them"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(StrLike(String(a[0]), String(a[1])))
		}, true,
	})
	toLowerFn := func(a ...Scmer) Scmer {
		return NewString(strings.ToLower(String(a[0])))
	}
	toUpperFn := func(a ...Scmer) Scmer {
		return NewString(strings.ToUpper(String(a[0])))
	}
	Declare(&Globalenv, &Declaration{
		"toLower", "turns a string into lower case",
		1, 1,
		[]DeclarationParameter{
			{"value", "string", "input string"},
		}, "string",
		toLowerFn, true,
	})
	Declare(&Globalenv, &Declaration{
		"toUpper", "turns a string into upper case",
		1, 1,
		[]DeclarationParameter{
			{"value", "string", "input string"},
		}, "string",
		toUpperFn, true,
	})
	Declare(&Globalenv, &Declaration{
		"string-downcase", "turns a string into lower case",
		1, 1,
		[]DeclarationParameter{
			{"value", "string", "input string"},
		}, "string",
		toLowerFn, true,
	})
	Declare(&Globalenv, &Declaration{
		"string-upcase", "turns a string into upper case",
		1, 1,
		[]DeclarationParameter{
			{"value", "string", "input string"},
		}, "string",
		toUpperFn, true,
	})
	Declare(&Globalenv, &Declaration{
		"trim", "strips whitespace from both ends, or the given cutset",
		1, 2,
		[]DeclarationParameter{
			{"value", "string", "input string"},
			{"cutset", "string", "characters to strip (optional)"},
		}, "string",
		func(a ...Scmer) Scmer {
			if len(a) > 1 {
				return NewString(strings.Trim(String(a[0]), String(a[1])))
			}
			return NewString(strings.TrimSpace(String(a[0])))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"replace", "replaces all occurances in a string with another string",
		3, 3,
		[]DeclarationParameter{
			{"s", "string", "input string"},
			{"find", "string", "search string"},
			{"replace", "string", "replace string"},
		}, "string",
		func(a ...Scmer) Scmer {
			return NewString(strings.ReplaceAll(String(a[0]), String(a[1]), String(a[2])))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"split", "splits a string using a separator or space",
		1, 2,
		[]DeclarationParameter{
			{"value", "string", "input string"},
			{"separator", "string", "(optional) parameter, defaults to \" \""},
		}, "list",
		func(a ...Scmer) Scmer {
			split := " "
			if len(a) > 1 {
				split = String(a[1])
			}
			ar := strings.Split(String(a[0]), split)
			result := make([]Scmer, len(ar))
			for i, v := range ar {
				result[i] = NewString(v)
			}
			return listWithTail(result, NewNil())
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"join", "joins a list of stringable values with a separator",
		1, 2,
		[]DeclarationParameter{
			{"list", "list", "values to join"},
			{"separator", "string", "(optional) separator, defaults to \"\""},
		}, "string",
		func(a ...Scmer) Scmer {
			sep := ""
			if len(a) > 1 {
				sep = String(a[1])
			}
			elems := properListArg("join", 1, a)
			var sb strings.Builder
			for i, e := range elems {
				if i > 0 {
					sb.WriteString(sep)
				}
				sb.WriteString(String(e))
			}
			return NewString(sb.String())
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"string->number", "parses a number literal, false when it does not parse",
		1, 2,
		[]DeclarationParameter{
			{"value", "string", "string to parse"},
			{"radix", "int", "radix 2..36 (optional, default 10)"},
		}, "any",
		func(a ...Scmer) Scmer {
			radix := 10
			if len(a) > 1 {
				radix = int(ToInt(a[1]))
			}
			v, err := parseNumber(stringArg("string->number", 1, a).S, radix)
			if err != nil || !v.IsNumber() {
				return NewBool(false)
			}
			return v
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"number->string", "renders a number, optionally in another radix",
		1, 2,
		[]DeclarationParameter{
			{"value", "number", "number to render"},
			{"radix", "int", "radix 2..36 (optional, default 10)"},
		}, "string",
		func(a ...Scmer) Scmer {
			radix := 10
			if len(a) > 1 {
				radix = int(ToInt(a[1]))
			}
			if radix < 2 || radix > 36 {
				panic(&TypeError{Op: "number->string", ArgPos: 2, Expected: []string{"a radix between 2 and 36"}, Got: fmt.Sprint(radix)})
			}
			return NewString(numberToString(numberOpArg("number->string", 1, a), radix))
		}, true,
	})
	stringChain := func(op string, a []Scmer, pass func(cmp int) bool) Scmer {
		for i := 0; i+1 < len(a); i++ {
			x := stringArg(op, i+1, a).S
			y := stringArg(op, i+2, a).S
			if !pass(strings.Compare(x, y)) {
				return NewBool(false)
			}
		}
		return NewBool(true)
	}
	Declare(&Globalenv, &Declaration{
		"string=?", "tells if all strings are equal",
		2, 1000,
		[]DeclarationParameter{
			{"value...", "string", "strings to compare"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return stringChain("string=?", a, func(cmp int) bool { return cmp == 0 })
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"string<?", "tells if the strings are strictly increasing in byte order",
		2, 1000,
		[]DeclarationParameter{
			{"value...", "string", "strings to compare"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return stringChain("string<?", a, func(cmp int) bool { return cmp < 0 })
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"string>?", "tells if the strings are strictly decreasing in byte order",
		2, 1000,
		[]DeclarationParameter{
			{"value...", "string", "strings to compare"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return stringChain("string>?", a, func(cmp int) bool { return cmp > 0 })
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"string<=?", "tells if the strings are non-decreasing in byte order",
		2, 1000,
		[]DeclarationParameter{
			{"value...", "string", "strings to compare"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return stringChain("string<=?", a, func(cmp int) bool { return cmp <= 0 })
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"string>=?", "tells if the strings are non-increasing in byte order",
		2, 1000,
		[]DeclarationParameter{
			{"value...", "string", "strings to compare"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return stringChain("string>=?", a, func(cmp int) bool { return cmp >= 0 })
		}, true,
	})

	/* comparison */
	collation_re := regexp.MustCompile("^([^_]+_)?(.+?)$") // caracterset_language_case
	Declare(&Globalenv, &Declaration{
		"collate", "returns the `<` operator for a given collation. Numeric literals sort naturally.",
		1, 2,
		[]DeclarationParameter{
			{"collation", "string", "collation string of the form LANG or LANG_cs or LANG_ci where LANG is a BCP 47 code, for compatibility to MySQL, a CHARSET_ prefix is allowed and ignored as well as the aliases bin, danish, general, german1, german2, spanish and swedish are allowed for language codes"},
			{"reverse", "bool", "whether to reverse the order like in ORDER BY DESC"},
		}, "func",
		func(a ...Scmer) Scmer {
			collation := String(a[0])
			ci := false
			if strings.HasSuffix(collation, "_ci") {
				ci = true
				collation = collation[:len(collation)-3]
			} else if strings.HasSuffix(collation, "_cs") {
				collation = collation[:len(collation)-3]
			}
			if m := collation_re.FindStringSubmatch(collation); m != nil {
				if m[2] == "bin" { // binary
					// Return closures that compare raw UTF-8 byte order; register for serialization
					if len(a) > 1 && ToBool(a[1]) {
						f := func(a ...Scmer) Scmer { return GreaterScm(a...) }
						collateRegistry.Store(reflect.ValueOf(f).Pointer(), struct {
							Collation string
							Reverse   bool
						}{Collation: String(a[0]), Reverse: true})
						return NewFunc(f)
					}
					f := func(a ...Scmer) Scmer { return LessScm(a...) }
					collateRegistry.Store(reflect.ValueOf(f).Pointer(), struct {
						Collation string
						Reverse   bool
					}{Collation: String(a[0]), Reverse: false})
					return NewFunc(f)
				}
				base := m[2]
				// Special-case MySQL-style "general" to simple case-insensitive first-letter ordering
				if strings.Contains(base, "general") {
					reverse := len(a) > 1 && ToBool(a[1])
					// general_ci heuristic:
					// - ASCII letters sort before non-ASCII always (both ASC and DESC).
					// - Treat leading "aa" as non-ASCII class to place after ASCII group in ASC and after ASCII even in DESC.
					// - Within ASCII, compare by lowercase first letter; tie-break by case-insensitive string compare.
					classify := func(s string) (isASCII bool, key byte, folded string) {
						if s == "" {
							return true, 0, s
						}
						sl := strings.ToLower(s)
						// map leading "aa" to non-ASCII class
						if len(sl) >= 2 && sl[0] == 'a' && sl[1] == 'a' {
							return false, 0, sl
						}
						b := sl[0]
						// check ASCII letter
						if b >= 'a' && b <= 'z' && (s[0] < 128) {
							return true, b, sl
						}
						return false, 0, sl
					}
					if reverse {
						f := func(a ...Scmer) Scmer {
							as := String(a[0])
							bs := String(a[1])
							aAsc, ak, af := classify(as)
							bAsc, bk, bf := classify(bs)
							var res bool
							if aAsc != bAsc {
								// ASCII ranks above non-ASCII for DESC too
								res = aAsc && !bAsc
							} else if aAsc { // both ASCII letters: reverse letter order
								if ak != bk {
									res = ak > bk
								} else {
									res = af > bf
								}
							} else {
								// both non-ASCII: keep stable fallback
								res = as > bs
							}
							return NewBool(res)
						}
						collateRegistry.Store(reflect.ValueOf(f).Pointer(), struct {
							Collation string
							Reverse   bool
						}{Collation: String(a[0]), Reverse: true})
						return NewFunc(f)
					}
					f := func(a ...Scmer) Scmer {
						as := String(a[0])
						bs := String(a[1])
						aAsc, ak, af := classify(as)
						bAsc, bk, bf := classify(bs)
						var res bool
						if aAsc != bAsc {
							// ASCII first for ASC
							res = aAsc && !bAsc
						} else if aAsc { // both ASCII letters
							if ak != bk {
								res = ak < bk
							} else {
								res = af < bf
							}
						} else {
							// both non-ASCII: leave at end
							res = as < bs
						}
						return NewBool(res)
					}
					collateRegistry.Store(reflect.ValueOf(f).Pointer(), struct {
						Collation string
						Reverse   bool
					}{Collation: String(a[0]), Reverse: false})
					return NewFunc(f)
				}
				tag, err := language.Parse(base) // treat as BCP 47
				if err != nil {
					// language not detected, try one of the aliases
					switch m[2] {
					case "danish":
						tag = language.Danish
					case "german1":
						tag = language.German
					case "german2":
						tag = language.German
					case "spanish":
						tag = language.Spanish
					case "swedish":
						tag = language.Swedish
					default:
						tag = language.Danish // default to danish for general-like collations (aa -> å semantics)
					}
				}
				var c *collate.Collator
				// the following options are available:
				// IgnoreCase -> when string ends with _ci
				// IgnoreDiacritics -> o == ö
				// IgnoreWidth: half width == width
				// Numeric -> sort numbers correctly
				if ci {
					c = collate.New(tag, collate.Numeric, collate.IgnoreCase)
				} else {
					c = collate.New(tag, collate.Numeric)
				}

				// return a LESS function specialized to that language and register for serialization
				reverse := len(a) > 1 && ToBool(a[1])
				if reverse {
					f := func(a ...Scmer) Scmer {
						var res bool
						// numeric fallback when both operands are numbers
						if a[0].IsNumber() && a[1].IsNumber() {
							res = ToFloat(a[0]) > ToFloat(a[1])
						}
						if !res {
							res = c.CompareString(String(a[0]), String(a[1])) == 1
						}
						return NewBool(res)
					}
					collateRegistry.Store(reflect.ValueOf(f).Pointer(), struct {
						Collation string
						Reverse   bool
					}{Collation: String(a[0]), Reverse: true})
					return NewFunc(f)
				}
				f := func(a ...Scmer) Scmer {
					// numeric fallback when both operands are numbers
					if a[0].IsNumber() && a[1].IsNumber() {
						return NewBool(ToFloat(a[0]) < ToFloat(a[1]))
					}
					return NewBool(c.CompareString(String(a[0]), String(a[1])) == -1)
				}
				collateRegistry.Store(reflect.ValueOf(f).Pointer(), struct {
					Collation string
					Reverse   bool
				}{Collation: String(a[0]), Reverse: false})
				return NewFunc(f)
			} else {
				if len(a) > 1 && ToBool(a[1]) {
					return NewFunc(GreaterScm)
				}
				return NewFunc(LessScm)
			}
		}, true,
	})

	/* regex */
	Declare(&Globalenv, &Declaration{
		"regex", "compiles a regular expression with JS-style flags (i m s g)",
		1, 2,
		[]DeclarationParameter{
			{"pattern", "string", "regular expression source"},
			{"flags", "string", "flag characters (optional)"},
		}, "any",
		func(a ...Scmer) Scmer {
			flags := ""
			if len(a) > 1 {
				flags = String(a[1])
			}
			return compileRegexScm(stringArg("regex", 1, a).S, flags)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"regex?", "tells if the value is a compiled regex",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(stripSource(a[0]).GetTag() == tagRegex)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"regex-match?", "tells if the regex matches anywhere in the string",
		2, 2,
		[]DeclarationParameter{
			{"regex", "any", "compiled regex or pattern string"},
			{"value", "string", "string to match against"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(regexArg("regex-match?", 1, a).Re.MatchString(String(a[1])))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"regex-replace", "replaces the first match (all matches with the g flag); $1 style references expand",
		3, 3,
		[]DeclarationParameter{
			{"regex", "any", "compiled regex or pattern string"},
			{"value", "string", "input string"},
			{"replacement", "string", "replacement text"},
		}, "string",
		func(a ...Scmer) Scmer {
			re := regexArg("regex-replace", 1, a)
			s := String(a[1])
			repl := String(a[2])
			if strings.ContainsRune(re.Flags, 'g') {
				return NewString(re.Re.ReplaceAllString(s, repl))
			}
			loc := re.Re.FindStringSubmatchIndex(s)
			if loc == nil {
				return NewString(s)
			}
			var out []byte
			out = append(out, s[:loc[0]]...)
			out = re.Re.ExpandString(out, repl, s, loc)
			out = append(out, s[loc[1]:]...)
			return NewString(string(out))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"regex-split", "splits the string at every regex match",
		2, 2,
		[]DeclarationParameter{
			{"regex", "any", "compiled regex or pattern string"},
			{"value", "string", "string to split"},
		}, "list",
		func(a ...Scmer) Scmer {
			parts := regexArg("regex-split", 1, a).Re.Split(String(a[1]), -1)
			out := make([]Scmer, len(parts))
			for i, p := range parts {
				out[i] = NewString(p)
			}
			return listWithTail(out, NewNil())
		}, true,
	})

	/* escaping functions similar to PHP */
	Declare(&Globalenv, &Declaration{
		"htmlentities", "escapes the string for use in HTML",
		1, 1,
		[]DeclarationParameter{
			{"value", "string", "input string"},
		}, "string",
		func(a ...Scmer) Scmer {
			return NewString(html.EscapeString(String(a[0])))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"urlencode", "encodes a string according to URI coding schema",
		1, 1,
		[]DeclarationParameter{
			{"value", "string", "string to encode"},
		}, "string",
		func(a ...Scmer) Scmer {
			return NewString(url.QueryEscape(String(a[0])))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"urldecode", "decodes a string according to URI coding schema",
		1, 1,
		[]DeclarationParameter{
			{"value", "string", "string to decode"},
		}, "string",
		func(a ...Scmer) Scmer {
			result, err := url.QueryUnescape(String(a[0]))
			if err != nil {
				panic("error while decoding URL: " + fmt.Sprint(err))
			}
			return NewString(result)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"json_encode", "encodes a value in JSON, treats lists as lists",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to encode"},
		}, "string",
		func(a ...Scmer) Scmer {
			b, err := json.Marshal(scmerToGo(a[0]))
			if err != nil {
				panic(err)
			}
			return NewString(string(b))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"json_encode_assoc", "encodes a value in JSON, treats flat key-value lists as objects",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to encode"},
		}, "string",
		func(a ...Scmer) Scmer {
			var transform func(Scmer) any
			transform = func(val Scmer) any {
				v := stripSource(val)
				switch v.GetTag() {
				case tagPair:
					elems, _ := listToSlice(v)
					result := make(map[string]any, len(elems)/2)
					for i := 0; i+1 < len(elems); i += 2 {
						result[elems[i].String()] = transform(elems[i+1])
					}
					return result
				case tagDict:
					d := v.Dict()
					result := make(map[string]any, d.pairLen()/2)
					d.Iterate(func(k, dv Scmer) bool {
						result[k.String()] = transform(dv)
						return true
					})
					return result
				default:
					return scmerToGo(val)
				}
			}
			b, err := json.Marshal(transform(a[0]))
			if err != nil {
				panic(err)
			}
			return NewString(string(b))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"json_decode", "parses JSON into dicts and lists",
		1, 1,
		[]DeclarationParameter{
			{"value", "string", "string to decode"},
		}, "any",
		func(a ...Scmer) Scmer {
			var result any
			err := json.Unmarshal([]byte(String(a[0])), &result)
			if err != nil {
				panic(err)
			}
			return TransformFromJSON(result)
		}, true,
	})

	Declare(&Globalenv, &Declaration{
		"base64_encode", "encodes a string as Base64 (standard encoding)",
		1, 1,
		[]DeclarationParameter{
			{"value", "string", "binary string to encode"},
		}, "string",
		func(a ...Scmer) Scmer {
			return NewString(base64.StdEncoding.EncodeToString([]byte(String(a[0]))))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"base64_decode", "decodes a Base64 string (standard encoding)",
		1, 1,
		[]DeclarationParameter{
			{"value", "string", "base64-encoded string"},
		}, "string",
		func(a ...Scmer) Scmer {
			decoded, err := base64.StdEncoding.DecodeString(String(a[0]))
			if err != nil {
				panic("error while decoding base64: " + fmt.Sprint(err))
			}
			return NewString(string(decoded))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"bin2hex", "turns binary data into hex with lowercase letters",
		1, 1,
		[]DeclarationParameter{
			{"value", "string", "string to decode"},
		}, "string",
		func(a ...Scmer) Scmer {
			input := String(a[0])
			result := make([]byte, 2*len(input))
			hexmap := "0123456789abcdef"
			for i := 0; i < len(input); i++ {
				result[2*i] = hexmap[input[i]/16]
				result[2*i+1] = hexmap[input[i]%16]
			}
			return NewString(string(result))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"hex2bin", "decodes a hex string into binary data",
		1, 1,
		[]DeclarationParameter{
			{"value", "string", "hex string (even length)"},
		}, "string",
		func(a ...Scmer) Scmer {
			decoded, err := hex.DecodeString(String(a[0]))
			if err != nil {
				panic("error while decoding hex: " + fmt.Sprint(err))
			}
			return NewString(string(decoded))
		}, true,
	})

	/* characters as produced by string-ref and friends */
	Declare(&Globalenv, &Declaration{
		"char?", "tells if the value is a character",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(stripSource(a[0]).GetTag() == tagChar)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"char->integer", "returns the Unicode scalar value of a character",
		1, 1,
		[]DeclarationParameter{
			{"char", "any", "character"},
		}, "int",
		func(a ...Scmer) Scmer {
			c := stripSource(a[0])
			if c.GetTag() != tagChar {
				panic(&TypeError{Op: "char->integer", ArgPos: 1, Expected: []string{"a character"}, Got: typeName(c)})
			}
			return NewInt(int64(c.Char()))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"integer->char", "returns the character with the given Unicode scalar value",
		1, 1,
		[]DeclarationParameter{
			{"codepoint", "int", "Unicode scalar value"},
		}, "any",
		func(a ...Scmer) Scmer {
			n := ToInt(a[0])
			if n < 0 || n > 0x10FFFF {
				panic(&TypeError{Op: "integer->char", ArgPos: 1, Expected: []string{"a Unicode scalar value"}, Got: fmt.Sprint(n)})
			}
			return NewChar(rune(n))
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"char-upcase", "returns the upper case variant of a character",
		1, 1,
		[]DeclarationParameter{
			{"char", "any", "character"},
		}, "any",
		func(a ...Scmer) Scmer {
			c := stripSource(a[0])
			if c.GetTag() != tagChar {
				panic(&TypeError{Op: "char-upcase", ArgPos: 1, Expected: []string{"a character"}, Got: typeName(c)})
			}
			return NewChar([]rune(strings.ToUpper(string(c.Char())))[0])
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"char-downcase", "returns the lower case variant of a character",
		1, 1,
		[]DeclarationParameter{
			{"char", "any", "character"},
		}, "any",
		func(a ...Scmer) Scmer {
			c := stripSource(a[0])
			if c.GetTag() != tagChar {
				panic(&TypeError{Op: "char-downcase", ArgPos: 1, Expected: []string{"a character"}, Got: typeName(c)})
			}
			return NewChar([]rune(strings.ToLower(string(c.Char())))[0])
		}, true,
	})

	Declare(&Globalenv, &Declaration{
		"randomBytes", "returns a string with numBytes cryptographically secure random bytes",
		1, 1,
		[]DeclarationParameter{
			{"numBytes", "number", "number of random bytes"},
		}, "string",
		func(a ...Scmer) Scmer {
			n := ToInt(a[0])
			if n < 0 {
				panic("randomBytes: numBytes must be non-negative")
			}
			buf := make([]byte, n)
			if n > 0 {
				if _, err := crand.Read(buf); err != nil {
					panic("error generating random bytes: " + fmt.Sprint(err))
				}
			}
			return NewString(string(buf))
		}, true,
	})

}
