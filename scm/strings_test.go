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
	"strings"
	"testing"
)

func TestStringAppendAndConcat(t *testing.T) {
	en := testEnv()
	wantString(t, evalStr(t, en, `(string-append "foo" "bar" "baz")`), "foobarbaz")
	wantString(t, evalStr(t, en, `(string-append)`), "")
	wantString(t, evalStr(t, en, `(concat "n=" 42 "!")`), "n=42!")
	if _, ok := evalPanic(t, en, `(string-append "a" 5)`).(*TypeError); !ok {
		t.Fatalf("string-append on a number should be a type error")
	}
}

func TestSubstrBytesVsSubstringRunes(t *testing.T) {
	en := testEnv()
	wantString(t, evalStr(t, en, `(substr "hello world" 6)`), "world")
	wantString(t, evalStr(t, en, `(substr "hello" 1 3)`), "ell")
	// substr counts bytes, substring counts characters
	wantString(t, evalStr(t, en, `(substr "äbc" 2)`), "bc")
	wantString(t, evalStr(t, en, `(substr "äbc" 0 1)`), "\xc3")
	wantString(t, evalStr(t, en, `(substring "äbc" 0 1)`), "ä")
	wantString(t, evalStr(t, en, `(substring "hello" 1 3)`), "el")
	wantString(t, evalStr(t, en, `(substring "hello" 2)`), "llo")
	if _, ok := evalPanic(t, en, `(substring "hello" 3 2)`).(*TypeError); !ok {
		t.Fatalf("reversed indices should be a type error")
	}
	if _, ok := evalPanic(t, en, `(substring "hello" 0 9)`).(*TypeError); !ok {
		t.Fatalf("end beyond the string should be a type error")
	}
}

func TestStringLengthRunesStrlenBytes(t *testing.T) {
	en := testEnv()
	wantInt(t, evalStr(t, en, `(string-length "äöü")`), 3)
	wantInt(t, evalStr(t, en, `(strlen "äöü")`), 6)
	wantInt(t, evalStr(t, en, `(string-length "")`), 0)
}

func TestStringRef(t *testing.T) {
	en := testEnv()
	wantInt(t, evalStr(t, en, `(char->integer (string-ref "abc" 1))`), 98)
	wantBool(t, evalStr(t, en, `(char? (string-ref "äx" 0))`), true)
	if _, ok := evalPanic(t, en, `(string-ref "abc" 3)`).(*TypeError); !ok {
		t.Fatalf("index past the end should be a type error")
	}
	if _, ok := evalPanic(t, en, `(string-ref "abc" -1)`).(*TypeError); !ok {
		t.Fatalf("negative index should be a type error")
	}
}

func TestStringMutation(t *testing.T) {
	en := testEnv()
	wantString(t, evalStr(t, en, `
		(define s (string-copy "hello"))
		(string-set! s 0 #\H)
		s`), "Hello")
	wantString(t, evalStr(t, en, `
		(define m (make-string 3 #\-))
		(string-set! m 1 #\x)
		m`), "-x-")
	wantString(t, evalStr(t, en, `(make-string 2)`), "  ")
	wantString(t, evalStr(t, en, `(string-copy "hello" 1 3)`), "el")
	// runtime-built strings are mutable, only literals are frozen
	wantString(t, evalStr(t, en, `
		(define r (string-append "ab" "c"))
		(string-set! r 2 #\Z)
		r`), "abZ")
	cause := evalPanic(t, en, `(string-set! "abc" 0 #\X)`)
	if cause != "string-set!: cannot mutate a string literal" {
		t.Fatalf("mutating a literal should panic, got %v", cause)
	}
	if _, ok := evalPanic(t, en, `(string-set! (string-copy "a") 0 5)`).(*TypeError); !ok {
		t.Fatalf("non-character replacement should be a type error")
	}
	if _, ok := evalPanic(t, en, `(make-string -1)`).(*TypeError); !ok {
		t.Fatalf("negative length should be a type error")
	}
}

func TestStringMapAndCase(t *testing.T) {
	en := testEnv()
	wantString(t, evalStr(t, en, `(string-map char-upcase "abc")`), "ABC")
	wantString(t, evalStr(t, en, `(string-map char-downcase "ÄB")`), "äb")
	if _, ok := evalPanic(t, en, `(string-map (lambda (c) 5) "a")`).(*TypeError); !ok {
		t.Fatalf("mapping to a non-character should be a type error")
	}
	wantString(t, evalStr(t, en, `(toLower "ÄBC")`), "äbc")
	wantString(t, evalStr(t, en, `(toUpper "äbc")`), "ÄBC")
	wantString(t, evalStr(t, en, `(string-downcase "HeLLo")`), "hello")
	wantString(t, evalStr(t, en, `(string-upcase "HeLLo")`), "HELLO")
}

func TestTrimReplaceSplitJoin(t *testing.T) {
	en := testEnv()
	wantString(t, evalStr(t, en, `(trim "  hi  ")`), "hi")
	wantString(t, evalStr(t, en, `(trim "xxhixx" "x")`), "hi")
	wantString(t, evalStr(t, en, `(replace "a-b-c" "-" "+")`), "a+b+c")
	wantRepr(t, evalStr(t, en, `(split "a b c")`), `("a" "b" "c")`)
	wantRepr(t, evalStr(t, en, `(split "a,b" ",")`), `("a" "b")`)
	wantString(t, evalStr(t, en, `(join '("a" "b") "-")`), "a-b")
	wantString(t, evalStr(t, en, `(join '(1 2 3))`), "123")
}

func TestStringNumberConversion(t *testing.T) {
	en := testEnv()
	wantInt(t, evalStr(t, en, `(string->number "42")`), 42)
	wantFloat(t, evalStr(t, en, `(string->number "3.5")`), 3.5)
	wantInt(t, evalStr(t, en, `(string->number "ff" 16)`), 255)
	wantInt(t, evalStr(t, en, `(string->number "#x2a")`), 42)
	wantBool(t, evalStr(t, en, `(string->number "abc")`), false)
	wantString(t, evalStr(t, en, `(number->string 255 16)`), "ff")
	wantString(t, evalStr(t, en, `(number->string 42)`), "42")
	if _, ok := evalPanic(t, en, `(number->string 255 1)`).(*TypeError); !ok {
		t.Fatalf("radix below 2 should be a type error")
	}
	if _, ok := evalPanic(t, en, `(number->string 1.5 16)`).(*TypeError); !ok {
		t.Fatalf("non-decimal radix on a float should be a type error")
	}
}

func TestStringComparisonChains(t *testing.T) {
	en := testEnv()
	wantBool(t, evalStr(t, en, `(string=? "a" "a" "a")`), true)
	wantBool(t, evalStr(t, en, `(string=? "a" "b")`), false)
	wantBool(t, evalStr(t, en, `(string<? "a" "b" "c")`), true)
	wantBool(t, evalStr(t, en, `(string<? "a" "c" "b")`), false)
	wantBool(t, evalStr(t, en, `(string>? "c" "b" "a")`), true)
	wantBool(t, evalStr(t, en, `(string<=? "a" "a" "b")`), true)
	wantBool(t, evalStr(t, en, `(string>=? "b" "a" "a")`), true)
}

func TestCollate(t *testing.T) {
	en := testEnv()
	// binary collation compares raw bytes
	wantBool(t, evalStr(t, en, `((collate "bin") "a10" "a2")`), true)
	wantBool(t, evalStr(t, en, `((collate "bin" #t) "a2" "a10")`), true)
	// language collations sort embedded numbers naturally
	wantBool(t, evalStr(t, en, `((collate "en") "a2" "a10")`), true)
	wantBool(t, evalStr(t, en, `((collate "en") "a10" "a2")`), false)
	wantBool(t, evalStr(t, en, `((collate "en") 2 10)`), true)
	// _ci suffix folds case
	wantBool(t, evalStr(t, en, `((collate "en_ci") "HELLO" "hello")`), false)
	wantBool(t, evalStr(t, en, `((collate "en_ci") "hello" "HELLO")`), false)
	wantBool(t, evalStr(t, en, `((collate "en_ci") "ABC" "abd")`), true)
	// MySQL-style collation names are accepted
	wantBool(t, evalStr(t, en, `((collate "utf8_general_ci") "apple" "Banana")`), true)
	wantBool(t, evalStr(t, en, `((collate "utf8_general_ci") "Banana" "apple")`), false)
}

func TestRegexBuiltins(t *testing.T) {
	en := testEnv()
	wantBool(t, evalStr(t, en, `(regex? (regex "a+"))`), true)
	wantBool(t, evalStr(t, en, `(regex? "a+")`), false)
	wantBool(t, evalStr(t, en, `(regex-match? (regex "^ab") "abc")`), true)
	wantBool(t, evalStr(t, en, `(regex-match? (regex "^ab") "xabc")`), false)
	wantBool(t, evalStr(t, en, `(regex-match? (regex "abc" "i") "ABC")`), true)
	// plain strings compile on the fly
	wantBool(t, evalStr(t, en, `(regex-match? "b+" "abbb")`), true)
	// without the g flag only the first match is replaced
	wantString(t, evalStr(t, en, `(regex-replace (regex "v=([0-9]+)") "v=42;v=43" "[$1]")`), "[42];v=43")
	wantString(t, evalStr(t, en, `(regex-replace (regex "v=([0-9]+)" "g") "v=42;v=43" "[$1]")`), "[42];[43]")
	wantString(t, evalStr(t, en, `(regex-replace (regex "x") "abc" "!")`), "abc")
	wantRepr(t, evalStr(t, en, `(regex-split (regex "[,;] *") "a, b;c")`), `("a" "b" "c")`)
	if cause := evalPanic(t, en, `(regex "a" "q")`); cause != "regex: unknown flag q" {
		t.Fatalf("unknown flag should panic, got %v", cause)
	}
	if cause, ok := evalPanic(t, en, `(regex "(")`).(string); !ok || !strings.HasPrefix(cause, "regex: ") {
		t.Fatalf("a broken pattern should report a compile error")
	}
}

func TestEscapingBuiltins(t *testing.T) {
	en := testEnv()
	wantString(t, evalStr(t, en, `(htmlentities "<b>&\"")`), "&lt;b&gt;&amp;&#34;")
	wantString(t, evalStr(t, en, `(urlencode "a b&c")`), "a+b%26c")
	wantString(t, evalStr(t, en, `(urldecode "a+b%26c")`), "a b&c")
	if cause, ok := evalPanic(t, en, `(urldecode "%zz")`).(string); !ok || !strings.HasPrefix(cause, "error while decoding URL") {
		t.Fatalf("broken escape should report a decode error")
	}
}

func TestJSONBuiltins(t *testing.T) {
	en := testEnv()
	wantString(t, evalStr(t, en, `(json_encode '(1 2 3))`), "[1,2,3]")
	wantString(t, evalStr(t, en, `(json_encode "hi")`), `"hi"`)
	wantString(t, evalStr(t, en, `(json_encode #t)`), "true")
	wantString(t, evalStr(t, en, `(json_encode '())`), "null")
	wantString(t, evalStr(t, en, `(json_encode (dict "a" 1))`), `{"a":1}`)
	wantString(t, evalStr(t, en, `(json_encode_assoc '("a" 1 "b" 2))`), `{"a":1,"b":2}`)
	wantString(t, evalStr(t, en, `(json_encode_assoc '("k" ("x" 1)))`), `{"k":{"x":1}}`)
	// decoded numbers come back inexact
	wantFloat(t, evalStr(t, en, `(car (dict-get (json_decode "{\"a\":[1,2]}") "a"))`), 1)
	wantRepr(t, evalStr(t, en, `(json_decode "[true,null,\"x\"]")`), `(#t () "x")`)
	if _, ok := evalPanic(t, en, `(json_decode "{")`).(error); !ok {
		t.Fatalf("broken json should surface the decode error")
	}
}

func TestBase64AndHex(t *testing.T) {
	en := testEnv()
	wantString(t, evalStr(t, en, `(base64_encode "hello")`), "aGVsbG8=")
	wantString(t, evalStr(t, en, `(base64_decode "aGVsbG8=")`), "hello")
	if cause, ok := evalPanic(t, en, `(base64_decode "!!!")`).(string); !ok || !strings.HasPrefix(cause, "error while decoding base64") {
		t.Fatalf("broken base64 should report a decode error")
	}
	wantString(t, evalStr(t, en, `(bin2hex "AB")`), "4142")
	wantString(t, evalStr(t, en, `(hex2bin "4142")`), "AB")
	if cause, ok := evalPanic(t, en, `(hex2bin "zz")`).(string); !ok || !strings.HasPrefix(cause, "error while decoding hex") {
		t.Fatalf("broken hex should report a decode error")
	}
}

func TestCharBuiltins(t *testing.T) {
	en := testEnv()
	wantBool(t, evalStr(t, en, `(char? #\a)`), true)
	wantBool(t, evalStr(t, en, `(char? "a")`), false)
	wantInt(t, evalStr(t, en, `(char->integer #\A)`), 65)
	wantInt(t, evalStr(t, en, `(char->integer #\space)`), 32)
	wantInt(t, evalStr(t, en, `(char->integer (integer->char 955))`), 955)
	wantRepr(t, evalStr(t, en, `(integer->char 10)`), `#\newline`)
	wantInt(t, evalStr(t, en, `(char->integer (char-upcase #\a))`), 65)
	wantInt(t, evalStr(t, en, `(char->integer (char-downcase #\Ä))`), 228)
	if _, ok := evalPanic(t, en, `(integer->char -1)`).(*TypeError); !ok {
		t.Fatalf("negative codepoint should be a type error")
	}
	if _, ok := evalPanic(t, en, `(char->integer "x")`).(*TypeError); !ok {
		t.Fatalf("char->integer on a string should be a type error")
	}
}

func TestSimplifyAndStrlike(t *testing.T) {
	en := testEnv()
	wantInt(t, evalStr(t, en, `(simplify "42")`), 42)
	wantFloat(t, evalStr(t, en, `(simplify "3.5")`), 3.5)
	wantString(t, evalStr(t, en, `(simplify "abc")`), "abc")
	wantInt(t, evalStr(t, en, `(simplify 42)`), 42)
	wantBool(t, evalStr(t, en, `(strlike "hello" "h%")`), true)
	wantBool(t, evalStr(t, en, `(strlike "hello" "h_llo")`), true)
	wantBool(t, evalStr(t, en, `(strlike "hello" "h%o")`), true)
	wantBool(t, evalStr(t, en, `(strlike "hello" "hello")`), true)
	wantBool(t, evalStr(t, en, `(strlike "hello" "%x%")`), false)
}
