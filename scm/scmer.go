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
	"math"
	"math/big"
	"reflect"
	"regexp"
)

// Scmer is a tagged value container. Immediates (ints, floats, chars,
// bools, interned symbol ids) live in bits; everything else is a pointer
// payload in ptr. The tag decides which of the two is valid.
type Scmer struct {
	ptr  any
	bits uint64
	aux  uint64 // type tag + extra data (func kind, etc.)
}

const (
	scmerStructOverhead = uint(32)
	goAllocOverhead     = uint(16)
)

const (
	funcKindVariadic = uint64(0)
	funcKindWithEnv  = uint64(1)
)

// Type tags (upper 16 bits of aux)
// data will ALWAYS be stored with the correct tag, so a tagAny will never store a pair or a symbol id
const (
	tagNil = iota
	tagVoid
	tagEOF
	tagBool
	tagInt
	tagBigInt
	tagRational
	tagFloat
	tagComplex
	tagChar
	tagString
	tagSymbol
	tagPair
	tagVector // []Scmer
	tagBytes  // []byte bytevector
	tagRegex
	tagFunc
	tagProc
	tagMacro
	tagSyntax
	tagParameter
	tagPromise
	tagContinuation
	tagEnv
	tagValues
	tagDict
	tagStream
	tagSourceInfo
	tagAny
	// custom tags >= 100
)

// Helpers
func makeAux(tag uint16, val uint64) uint64 {
	return uint64(tag)<<48 | (val & ((1 << 48) - 1))
}
func auxTag(aux uint64) uint16 { return uint16(aux >> 48) }
func auxVal(aux uint64) uint64 { return aux & ((1 << 48) - 1) }

func (s Scmer) GetTag() uint16 { return auxTag(s.aux) }

//
// Constructors
//

func NewNil() Scmer  { return Scmer{nil, 0, makeAux(tagNil, 0)} }
func NewVoid() Scmer { return Scmer{nil, 0, makeAux(tagVoid, 0)} }
func NewEOF() Scmer  { return Scmer{nil, 0, makeAux(tagEOF, 0)} }

func NewBool(b bool) Scmer {
	if b {
		return Scmer{nil, 1, makeAux(tagBool, 0)}
	}
	return Scmer{nil, 0, makeAux(tagBool, 0)}
}

func NewInt(i int64) Scmer {
	return Scmer{nil, uint64(i), makeAux(tagInt, 0)}
}

func NewFloat(f float64) Scmer {
	return Scmer{nil, math.Float64bits(f), makeAux(tagFloat, 0)}
}

func NewChar(r rune) Scmer {
	return Scmer{nil, uint64(uint32(r)), makeAux(tagChar, 0)}
}

// NewBigInt normalizes back to tagInt when the value fits 64 bits.
func NewBigInt(b *big.Int) Scmer {
	if b.IsInt64() {
		return NewInt(b.Int64())
	}
	return Scmer{b, 0, makeAux(tagBigInt, 0)}
}

// NewRational reduces denominator-1 rationals to integers.
func NewRational(r *big.Rat) Scmer {
	if r.IsInt() {
		return NewBigInt(new(big.Int).Set(r.Num()))
	}
	return Scmer{r, 0, makeAux(tagRational, 0)}
}

// NewRationalRaw keeps the rational representation even when reducible.
func NewRationalRaw(r *big.Rat) Scmer {
	return Scmer{r, 0, makeAux(tagRational, 0)}
}

func NewComplex(c *Complex) Scmer {
	return Scmer{c, 0, makeAux(tagComplex, 0)}
}

// NewString builds a fresh mutable string value.
func NewString(s string) Scmer {
	return Scmer{&MutString{S: s}, 0, makeAux(tagString, 0)}
}

// NewFrozenString builds an immutable string box. The reader uses it for
// string literals so that shared literal structure cannot be mutated.
func NewFrozenString(s string) Scmer {
	return Scmer{&MutString{S: s, Frozen: true}, 0, makeAux(tagString, 0)}
}

func NewStringBox(m *MutString) Scmer {
	return Scmer{m, 0, makeAux(tagString, 0)}
}

func NewSymbol(name string) Scmer {
	return Scmer{nil, uint64(Intern(name)), makeAux(tagSymbol, 0)}
}

func NewSymbolId(sym Symbol) Scmer {
	return Scmer{nil, uint64(sym), makeAux(tagSymbol, 0)}
}

func NewPair(car, cdr Scmer) Scmer {
	return Scmer{&Pair{Car: car, Cdr: cdr}, 0, makeAux(tagPair, 0)}
}

func NewPairPtr(p *Pair) Scmer {
	if p == nil {
		return NewNil()
	}
	return Scmer{p, 0, makeAux(tagPair, 0)}
}

func NewVector(vec []Scmer) Scmer {
	return Scmer{vec, 0, makeAux(tagVector, 0)}
}

func NewBytes(b []byte) Scmer {
	return Scmer{b, 0, makeAux(tagBytes, 0)}
}

func NewRegex(r *Regex) Scmer {
	return Scmer{r, 0, makeAux(tagRegex, 0)}
}

func NewFunc(fn func(...Scmer) Scmer) Scmer {
	return Scmer{fn, 0, makeAux(tagFunc, funcKindVariadic)}
}

func NewEnvFunc(fn func(*Env, ...Scmer) Scmer) Scmer {
	return Scmer{fn, 0, makeAux(tagFunc, funcKindWithEnv)}
}

func NewProc(p *Proc) Scmer {
	return Scmer{p, 0, makeAux(tagProc, 0)}
}

func NewMacro(m *Macro) Scmer {
	return Scmer{m, 0, makeAux(tagMacro, 0)}
}

func NewSyntax(s *Syntax) Scmer {
	return Scmer{s, 0, makeAux(tagSyntax, 0)}
}

func NewParameter(p *Parameter) Scmer {
	return Scmer{p, 0, makeAux(tagParameter, 0)}
}

func NewPromise(p *Promise) Scmer {
	return Scmer{p, 0, makeAux(tagPromise, 0)}
}

func NewContinuation(c *Continuation) Scmer {
	return Scmer{c, 0, makeAux(tagContinuation, 0)}
}

func NewEnvValue(en *Env) Scmer {
	return Scmer{en, 0, makeAux(tagEnv, 0)}
}

func NewValues(vals []Scmer) Scmer {
	return Scmer{vals, 0, makeAux(tagValues, 0)}
}

func NewDict(d *Dict) Scmer {
	return Scmer{d, 0, makeAux(tagDict, 0)}
}

func NewStream(s *Stream) Scmer {
	return Scmer{s, 0, makeAux(tagStream, 0)}
}

func NewSourceInfo(si SourceInfo) Scmer {
	p := new(SourceInfo)
	*p = si
	return Scmer{p, 0, makeAux(tagSourceInfo, 0)}
}

func NewAny(v any) Scmer {
	return Scmer{v, 0, makeAux(tagAny, 0)}
}

// FromAny bridges host values into the interpreter. Slices become
// proper lists since pairs are the universal structure here.
func FromAny(v any) Scmer {
	switch vv := v.(type) {
	case Scmer:
		return vv
	case nil:
		return NewNil()
	case bool:
		return NewBool(vv)
	case int:
		return NewInt(int64(vv))
	case int8:
		return NewInt(int64(vv))
	case int16:
		return NewInt(int64(vv))
	case int32:
		return NewInt(int64(vv))
	case int64:
		return NewInt(vv)
	case uint:
		return NewInt(int64(vv))
	case uint8:
		return NewInt(int64(vv))
	case uint16:
		return NewInt(int64(vv))
	case uint32:
		return NewInt(int64(vv))
	case uint64:
		return NewInt(int64(vv))
	case float32:
		return NewFloat(float64(vv))
	case float64:
		return NewFloat(vv)
	case string:
		return NewString(vv)
	case *big.Int:
		return NewBigInt(vv)
	case *big.Rat:
		return NewRational(vv)
	case []any:
		result := NewNil()
		for i := len(vv) - 1; i >= 0; i-- {
			result = NewPair(FromAny(vv[i]), result)
		}
		return result
	case []Scmer:
		result := NewNil()
		for i := len(vv) - 1; i >= 0; i-- {
			result = NewPair(vv[i], result)
		}
		return result
	case map[string]any:
		d := NewFastDict(len(vv))
		for k, val := range vv {
			d.Set(NewString(k), FromAny(val), nil)
		}
		return NewDict(d)
	case func(...Scmer) Scmer:
		return NewFunc(vv)
	case func(*Env, ...Scmer) Scmer:
		return NewEnvFunc(vv)
	case error:
		return NewString(vv.Error())
	default:
		return NewAny(v)
	}
}

// ToAny unwraps a value into plain host types where possible.
func ToAny(v Scmer) any {
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
		return v.Rat()
	case tagChar:
		return v.Char()
	case tagString:
		return v.MutString().S
	case tagSymbol:
		return SymbolName(v.Symbol())
	case tagPair:
		lst, _ := listToSlice(v)
		out := make([]any, len(lst))
		for i, e := range lst {
			out[i] = ToAny(e)
		}
		return out
	case tagVector:
		vec := v.Vector()
		out := make([]any, len(vec))
		for i, e := range vec {
			out[i] = ToAny(e)
		}
		return out
	case tagAny:
		return v.ptr
	default:
		return v
	}
}

//
// Predicates
//

func (s Scmer) IsNil() bool    { return auxTag(s.aux) == tagNil }
func (s Scmer) IsVoid() bool   { return auxTag(s.aux) == tagVoid }
func (s Scmer) IsEOF() bool    { return auxTag(s.aux) == tagEOF }
func (s Scmer) IsBool() bool   { return auxTag(s.aux) == tagBool }
func (s Scmer) IsInt() bool    { return auxTag(s.aux) == tagInt }
func (s Scmer) IsFloat() bool  { return auxTag(s.aux) == tagFloat }
func (s Scmer) IsChar() bool   { return auxTag(s.aux) == tagChar }
func (s Scmer) IsString() bool { return auxTag(s.aux) == tagString }
func (s Scmer) IsSymbol() bool { return auxTag(s.aux) == tagSymbol }
func (s Scmer) IsPair() bool   { return auxTag(s.aux) == tagPair }
func (s Scmer) IsVector() bool { return auxTag(s.aux) == tagVector }
func (s Scmer) IsProc() bool   { return auxTag(s.aux) == tagProc }
func (s Scmer) IsFunc() bool   { return auxTag(s.aux) == tagFunc }

func (s Scmer) IsNumber() bool {
	switch auxTag(s.aux) {
	case tagInt, tagBigInt, tagRational, tagFloat, tagComplex:
		return true
	}
	return false
}

func (s Scmer) IsExact() bool {
	switch auxTag(s.aux) {
	case tagInt, tagBigInt, tagRational:
		return true
	case tagComplex:
		c := s.Complex()
		return c.Re.IsExact() && c.Im.IsExact()
	}
	return false
}

// IsCallable reports whether the value is a procedure in the language
// sense: native function, lambda, continuation or parameter. Macros and
// syntax transformers are not values you can apply.
func (s Scmer) IsCallable() bool {
	switch auxTag(s.aux) {
	case tagFunc, tagProc, tagParameter, tagContinuation:
		return true
	}
	return false
}

//
// Accessors (panic on tag mismatch; Validate and the builtins guard the happy path)
//

func (s Scmer) Bool() bool {
	if auxTag(s.aux) != tagBool {
		panic("value is not a bool: " + String(s))
	}
	return s.bits != 0
}

func (s Scmer) Int() int64 {
	switch auxTag(s.aux) {
	case tagInt:
		return int64(s.bits)
	case tagFloat:
		return int64(math.Float64frombits(s.bits))
	case tagBigInt:
		return s.BigInt().Int64()
	case tagRational:
		f, _ := s.Rat().Float64()
		return int64(f)
	case tagChar:
		return int64(rune(uint32(s.bits)))
	}
	panic("value is not an int: " + String(s))
}

func (s Scmer) Float() float64 {
	switch auxTag(s.aux) {
	case tagFloat:
		return math.Float64frombits(s.bits)
	case tagInt:
		return float64(int64(s.bits))
	case tagBigInt:
		f, _ := new(big.Float).SetInt(s.BigInt()).Float64()
		return f
	case tagRational:
		f, _ := s.Rat().Float64()
		return f
	}
	panic("value is not a float: " + String(s))
}

func (s Scmer) Char() rune {
	if auxTag(s.aux) != tagChar {
		panic("value is not a char: " + String(s))
	}
	return rune(uint32(s.bits))
}

func (s Scmer) Symbol() Symbol {
	if auxTag(s.aux) != tagSymbol {
		panic("value is not a symbol: " + String(s))
	}
	return Symbol(s.bits)
}

func (s Scmer) BigInt() *big.Int {
	if auxTag(s.aux) == tagInt {
		return big.NewInt(int64(s.bits))
	}
	if auxTag(s.aux) != tagBigInt {
		panic("value is not a bigint: " + String(s))
	}
	return s.ptr.(*big.Int)
}

func (s Scmer) Rat() *big.Rat {
	switch auxTag(s.aux) {
	case tagRational:
		return s.ptr.(*big.Rat)
	case tagInt:
		return new(big.Rat).SetInt64(int64(s.bits))
	case tagBigInt:
		return new(big.Rat).SetInt(s.ptr.(*big.Int))
	}
	panic("value is not a rational: " + String(s))
}

func (s Scmer) Complex() *Complex {
	if auxTag(s.aux) != tagComplex {
		panic("value is not a complex: " + String(s))
	}
	return s.ptr.(*Complex)
}

func (s Scmer) MutString() *MutString {
	if auxTag(s.aux) != tagString {
		panic("value is not a string: " + String(s))
	}
	return s.ptr.(*MutString)
}

func (s Scmer) Pair() *Pair {
	if auxTag(s.aux) != tagPair {
		panic("value is not a pair: " + String(s))
	}
	return s.ptr.(*Pair)
}

func (s Scmer) Vector() []Scmer {
	if auxTag(s.aux) != tagVector {
		panic("value is not a vector: " + String(s))
	}
	return s.ptr.([]Scmer)
}

func (s Scmer) Bytes() []byte {
	if auxTag(s.aux) != tagBytes {
		panic("value is not a bytevector: " + String(s))
	}
	return s.ptr.([]byte)
}

func (s Scmer) Regex() *Regex {
	if auxTag(s.aux) != tagRegex {
		panic("value is not a regex: " + String(s))
	}
	return s.ptr.(*Regex)
}

func (s Scmer) Func() func(...Scmer) Scmer {
	if auxTag(s.aux) != tagFunc || auxVal(s.aux) != funcKindVariadic {
		panic("value is not a native function: " + String(s))
	}
	return s.ptr.(func(...Scmer) Scmer)
}

func (s Scmer) EnvFunc() func(*Env, ...Scmer) Scmer {
	if auxTag(s.aux) != tagFunc || auxVal(s.aux) != funcKindWithEnv {
		panic("value is not a native env function: " + String(s))
	}
	return s.ptr.(func(*Env, ...Scmer) Scmer)
}

func (s Scmer) Proc() *Proc {
	if auxTag(s.aux) != tagProc {
		panic("value is not a procedure: " + String(s))
	}
	return s.ptr.(*Proc)
}

func (s Scmer) Macro() *Macro {
	if auxTag(s.aux) != tagMacro {
		panic("value is not a macro: " + String(s))
	}
	return s.ptr.(*Macro)
}

func (s Scmer) Syntax() *Syntax {
	if auxTag(s.aux) != tagSyntax {
		panic("value is not a syntax: " + String(s))
	}
	return s.ptr.(*Syntax)
}

func (s Scmer) Parameter() *Parameter {
	if auxTag(s.aux) != tagParameter {
		panic("value is not a parameter: " + String(s))
	}
	return s.ptr.(*Parameter)
}

func (s Scmer) Promise() *Promise {
	if auxTag(s.aux) != tagPromise {
		panic("value is not a promise: " + String(s))
	}
	return s.ptr.(*Promise)
}

func (s Scmer) Continuation() *Continuation {
	if auxTag(s.aux) != tagContinuation {
		panic("value is not a continuation: " + String(s))
	}
	return s.ptr.(*Continuation)
}

func (s Scmer) Env() *Env {
	if auxTag(s.aux) != tagEnv {
		panic("value is not an environment: " + String(s))
	}
	return s.ptr.(*Env)
}

func (s Scmer) Values() []Scmer {
	if auxTag(s.aux) != tagValues {
		panic("value is not a values bundle: " + String(s))
	}
	return s.ptr.([]Scmer)
}

func (s Scmer) Dict() *Dict {
	if auxTag(s.aux) != tagDict {
		panic("value is not a dict: " + String(s))
	}
	return s.ptr.(*Dict)
}

func (s Scmer) Stream() *Stream {
	if auxTag(s.aux) != tagStream {
		panic("value is not a stream: " + String(s))
	}
	return s.ptr.(*Stream)
}

func (s Scmer) SourceInfo() *SourceInfo {
	if auxTag(s.aux) != tagSourceInfo {
		panic("value is not source info: " + String(s))
	}
	return s.ptr.(*SourceInfo)
}

func (s Scmer) Any() any {
	if auxTag(s.aux) != tagAny {
		panic("value is not a foreign value: " + String(s))
	}
	return s.ptr
}

// String returns the raw payload for strings and symbols and the display
// rendering for everything else.
func (s Scmer) String() string {
	switch auxTag(s.aux) {
	case tagString:
		return s.MutString().S
	case tagSymbol:
		return SymbolName(s.Symbol())
	}
	return String(s)
}

//
// Coercion helpers kept from the embedded-engine days; several builtins
// still prefer lenient number conversion over hard type errors.
//

func ToFloat(v Scmer) float64 {
	switch v.GetTag() {
	case tagInt, tagFloat, tagBigInt, tagRational:
		return v.Float()
	case tagBool:
		if v.Bool() {
			return 1
		}
		return 0
	case tagString:
		f, err := parseNumber(v.MutString().S, 10)
		if err == nil && f.IsNumber() {
			return f.Float()
		}
	case tagNil, tagVoid:
		return 0
	}
	panic("cannot convert to number: " + String(v))
}

func ToInt(v Scmer) int64 {
	switch v.GetTag() {
	case tagInt, tagFloat, tagBigInt, tagRational, tagChar:
		return v.Int()
	case tagBool:
		if v.Bool() {
			return 1
		}
		return 0
	case tagString:
		f, err := parseNumber(v.MutString().S, 10)
		if err == nil && f.IsNumber() {
			return f.Int()
		}
	case tagNil, tagVoid:
		return 0
	}
	panic("cannot convert to int: " + String(v))
}

// ToBool implements truthiness: #f, nil and void are falsy, everything
// else (including 0 and "") is truthy.
func ToBool(v Scmer) bool {
	switch v.GetTag() {
	case tagBool:
		return v.bits != 0
	case tagNil, tagVoid:
		return false
	}
	return true
}

// MutString is a boxed mutable string. Literal strings come out of the
// reader frozen; string-set! on a frozen box is a type error.
type MutString struct {
	S      string
	Frozen bool
}

func (m *MutString) Len() int { return len([]rune(m.S)) }

func (m *MutString) Ref(i int) rune {
	r := []rune(m.S)
	if i < 0 || i >= len(r) {
		panic(fmt.Sprintf("string index out of range: %d of %d", i, len(r)))
	}
	return r[i]
}

func (m *MutString) Set(i int, c rune) {
	if m.Frozen {
		panic("cannot mutate an immutable string literal")
	}
	r := []rune(m.S)
	if i < 0 || i >= len(r) {
		panic(fmt.Sprintf("string index out of range: %d of %d", i, len(r)))
	}
	r[i] = c
	m.S = string(r)
}

// Regex is a compiled #/pattern/flags literal. Source keeps the original
// pattern text for round-trip printing.
type Regex struct {
	Re     *regexp.Regexp
	Source string
	Flags  string
}

// Continuation is the stub for first-class continuations. The value kind
// exists so the printer and type-of can name it; invoking one raises.
type Continuation struct{}

// ComputeSize approximates total memory consumption of a value including
// the inline representation and any heap allocations it references.
// Cyclic structures are counted once per node.
func ComputeSize(v Scmer) uint {
	visited := make(map[*Pair]struct{})
	return computeSizeRec(v, visited)
}

func computeSizeRec(v Scmer, visited map[*Pair]struct{}) uint {
	size := scmerStructOverhead
	switch v.GetTag() {
	case tagString:
		size += goAllocOverhead + uint(len(v.MutString().S))
	case tagBigInt:
		size += goAllocOverhead + uint(len(v.BigInt().Bits())*8)
	case tagRational:
		r := v.Rat()
		size += goAllocOverhead + uint(len(r.Num().Bits())*8+len(r.Denom().Bits())*8)
	case tagComplex:
		c := v.Complex()
		size += computeSizeRec(c.Re, visited) + computeSizeRec(c.Im, visited)
	case tagPair:
		p := v.Pair()
		if _, ok := visited[p]; ok {
			return size
		}
		visited[p] = struct{}{}
		size += goAllocOverhead + computeSizeRec(p.Car, visited) + computeSizeRec(p.Cdr, visited)
	case tagVector:
		size += goAllocOverhead
		for _, e := range v.Vector() {
			size += computeSizeRec(e, visited)
		}
	case tagBytes:
		size += goAllocOverhead + uint(len(v.Bytes()))
	case tagValues:
		for _, e := range v.Values() {
			size += computeSizeRec(e, visited)
		}
	case tagDict:
		size += goAllocOverhead
		for _, e := range v.Dict().Pairs {
			size += computeSizeRec(e, visited)
		}
	case tagProc:
		p := v.Proc()
		size += goAllocOverhead + computeSizeRec(p.Params, visited) + computeSizeRec(p.Body, visited)
	case tagSourceInfo:
		size += goAllocOverhead + computeSizeRec(v.SourceInfo().Value, visited)
	case tagAny:
		if v.ptr != nil {
			size += uint(reflect.TypeOf(v.ptr).Size())
		}
	}
	return size
}
