/*
Copyright (C) 2024-2025  Carl-Philip Hänsch

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
	"strings"
)

/* error taxonomy; everything travels as a panic until a try form or an
   entry-point recover catches it */

// SyntaxError is a malformed token or structure with its position.
type SyntaxError struct {
	Msg     string
	Line    int
	Col     int
	Snippet string
}

func (e *SyntaxError) Error() string {
	if e.Snippet != "" {
		return fmt.Sprintf("syntax error at %d:%d: %s near %s", e.Line, e.Col, e.Msg, e.Snippet)
	}
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// UnterminatedError means EOF hit inside an open construct. A REPL treats
// this as "keep reading" rather than failure.
type UnterminatedError struct {
	What string // string, character, regex, comment, block symbol, expression
	Line int
	Col  int
}

func (e *UnterminatedError) Error() string {
	return fmt.Sprintf("unterminated %s starting at %d:%d", e.What, e.Line, e.Col)
}

// BalanceError is a bracket mismatch: either an unexpected close or
// missing closes with the owed count.
type BalanceError struct {
	Unexpected bool
	Owed       int
	Line       int
	Col        int
}

func (e *BalanceError) Error() string {
	if e.Unexpected {
		return fmt.Sprintf("unexpected ) at %d:%d", e.Line, e.Col)
	}
	if e.Owed == 1 {
		return "expecting matching )"
	}
	return fmt.Sprintf("expecting %d matching )", e.Owed)
}

// UnboundError is a symbol not found in any reachable frame.
type UnboundError struct {
	Name string
}

func (e *UnboundError) Error() string {
	return "unbound variable: " + e.Name
}

// TypeError carries the operation, the 1-indexed argument position, the
// accepted kinds and what actually arrived.
type TypeError struct {
	Op       string
	ArgPos   int
	Expected []string
	Got      string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: argument %d must be %s, got %s", e.Op, e.ArgPos, humanList(e.Expected, "or"), e.Got)
}

// NotCallableError is a call form whose head is no kind of callable.
type NotCallableError struct {
	Value string
	Form  string
}

func (e *NotCallableError) Error() string {
	return fmt.Sprintf("%s is not callable in %s", e.Value, e.Form)
}

// MacroError covers failed syntax-rules matching and malformed macro
// definitions.
type MacroError struct {
	Macro string
	Form  string
	Msg   string
}

func (e *MacroError) Error() string {
	if e.Form != "" {
		return fmt.Sprintf("macro %s: %s in %s", e.Macro, e.Msg, e.Form)
	}
	return fmt.Sprintf("macro %s: %s", e.Macro, e.Msg)
}

// UserError is an explicit raise/throw/error from interpreted code. The
// payload is an arbitrary value, not necessarily a string.
type UserError struct {
	Payload Scmer
}

func (e *UserError) Error() string {
	return "error: " + String(e.Payload)
}

// CycleError is raised by list algorithms that refuse to walk a
// self-referential chain forever.
type CycleError struct {
	Op string
}

func (e *CycleError) Error() string {
	return "cyclic list in " + e.Op
}

// ArityError reports a call with more arguments than the procedure can
// bind. Missing arguments are not an error, they bind to nil.
type ArityError struct {
	Name string
	Want int
	Got  int
}

func (e *ArityError) Error() string {
	name := e.Name
	if name == "" {
		name = "procedure"
	}
	return fmt.Sprintf("%s with %d parameters is supplied with %d arguments", name, e.Want, e.Got)
}

// ConstantError reports an attempt to rebind a constant.
type ConstantError struct {
	Name string
}

func (e *ConstantError) Error() string {
	return "cannot redefine constant " + e.Name
}

// humanList renders ["a string", "a character"] as "a string or a character".
func humanList(items []string, conj string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " " + conj + " " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + " " + conj + " " + items[len(items)-1]
}

// trailEntry is one evaluation frame of the diagnostic trail.
type trailEntry struct {
	Source string
	Line   int
	Col    int
	Form   string
}

// annotatedError keeps the original panic payload while the trail of
// offending sub-expressions accumulates through the recover points.
type annotatedError struct {
	cause any
	trail []trailEntry
}

func (e *annotatedError) Error() string {
	var b strings.Builder
	b.WriteString(causeMessage(e.cause))
	for _, t := range e.trail {
		b.WriteString("\n\tin ")
		if t.Source != "" {
			fmt.Fprintf(&b, "%s:%d:%d: ", t.Source, t.Line, t.Col)
		}
		b.WriteString(t.Form)
	}
	return b.String()
}

func (e *annotatedError) Unwrap() error {
	if err, ok := e.cause.(error); ok {
		return err
	}
	return nil
}

func causeMessage(cause any) string {
	switch c := cause.(type) {
	case error:
		return c.Error()
	case string:
		return c
	case Scmer:
		return String(c)
	default:
		return fmt.Sprint(c)
	}
}

// annotate wraps a panic payload with one more trail entry; an already
// annotated payload just grows its trail.
func annotate(cause any, entry trailEntry) *annotatedError {
	if ae, ok := cause.(*annotatedError); ok {
		ae.trail = append(ae.trail, entry)
		return ae
	}
	return &annotatedError{cause: cause, trail: []trailEntry{entry}}
}

// rootCause strips annotation down to the original payload.
func rootCause(cause any) any {
	if ae, ok := cause.(*annotatedError); ok {
		return ae.cause
	}
	return cause
}

// errorToScmer converts a caught panic payload into the value a catch
// clause binds: raise payloads verbatim, everything else as a dict with
// type and message entries for dotted-path access.
func errorToScmer(cause any) Scmer {
	root := rootCause(cause)
	if ue, ok := root.(*UserError); ok {
		return ue.Payload
	}
	d := NewFastDict(2)
	d.Set(NewString("type"), NewString(errorKind(root)), nil)
	d.Set(NewString("message"), NewString(causeMessage(cause)), nil)
	return NewDict(d)
}

func errorKind(cause any) string {
	switch cause.(type) {
	case *SyntaxError:
		return "syntax"
	case *UnterminatedError:
		return "unterminated"
	case *BalanceError:
		return "balance"
	case *UnboundError:
		return "unbound-variable"
	case *TypeError:
		return "type"
	case *NotCallableError:
		return "not-callable"
	case *MacroError:
		return "macro"
	case *CycleError:
		return "cycle"
	case *ArityError:
		return "arity"
	case *ConstantError:
		return "constant"
	case *UserError:
		return "user"
	default:
		return "error"
	}
}

// errorAsError turns any panic payload into a Go error for the public
// boundary.
func errorAsError(cause any) error {
	if err, ok := cause.(error); ok {
		return err
	}
	return fmt.Errorf("%s", causeMessage(cause))
}
