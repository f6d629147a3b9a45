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

import "io"
import "os"
import "bufio"
import "strings"
import "compress/gzip"
import "github.com/ulikunitz/xz"
import "github.com/pierrec/lz4/v4"

// Stream wraps an io.Reader as a first-class value. Name is display-only.
// read-line installs a buffered layer and rewires Reader through it, so
// bytes are never lost between read-line and a later read-all.
type Stream struct {
	Name   string
	Reader io.Reader
	buf    *bufio.Reader
	closer io.Closer
}

func (s *Stream) buffered() *bufio.Reader {
	if s.buf == nil {
		s.buf = bufio.NewReader(s.Reader)
		s.Reader = s.buf
	}
	return s.buf
}

// Close releases the underlying resource. Safe to call twice.
func (s *Stream) Close() error {
	if s.closer == nil {
		return nil
	}
	c := s.closer
	s.closer = nil
	return c.Close()
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

// OpenFileStream opens a file as a stream value. Only the IO layer calls
// this; the core package declares no filesystem access so it stays
// sandboxable.
func OpenFileStream(filename string) (*Stream, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	return &Stream{Name: filename, Reader: f, closer: f}, nil
}

func streamArg(op string, pos int, a []Scmer) *Stream {
	v := stripSource(a[pos-1])
	if v.GetTag() != tagStream {
		panic(&TypeError{Op: op, ArgPos: pos, Expected: []string{"a stream"}, Got: typeName(v)})
	}
	return v.Stream()
}

func init_streams() {
	DeclareTitle("Streams")

	Declare(&Globalenv, &Declaration{
		"stream?", "tells if the value is a stream",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(stripSource(a[0]).GetTag() == tagStream)
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"stream-string", "wraps a string as a readable stream",
		1, 1,
		[]DeclarationParameter{
			{"value", "string", "string content"},
		}, "stream",
		func(a ...Scmer) Scmer {
			return NewStream(&Stream{Name: "string", Reader: strings.NewReader(String(a[0]))})
		}, false,
	})
	// TODO: add support for writers
	Declare(&Globalenv, &Declaration{
		"stream-gzip", "turns a compressed gzip stream into a stream of uncompressed data. Create streams with (stream filename)",
		1, 1,
		[]DeclarationParameter{
			{"stream", "stream", "input stream"},
		}, "stream",
		func(a ...Scmer) Scmer {
			s := streamArg("stream-gzip", 1, a)
			gz, err := gzip.NewReader(s.Reader)
			if err != nil {
				panic(err)
			}
			return NewStream(&Stream{Name: s.Name, Reader: gz, closer: closeFunc(func() error {
				err := gz.Close()
				if cerr := s.Close(); err == nil {
					err = cerr
				}
				return err
			})})
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"stream-xz", "turns a compressed xz stream into a stream of uncompressed data. Create streams with (stream filename)",
		1, 1,
		[]DeclarationParameter{
			{"stream", "stream", "input stream"},
		}, "stream",
		func(a ...Scmer) Scmer {
			s := streamArg("stream-xz", 1, a)
			r, err := xz.NewReader(s.Reader)
			if err != nil {
				panic(err)
			}
			return NewStream(&Stream{Name: s.Name, Reader: r, closer: closeFunc(s.Close)})
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"stream-lz4", "turns a compressed lz4 stream into a stream of uncompressed data. Create streams with (stream filename)",
		1, 1,
		[]DeclarationParameter{
			{"stream", "stream", "input stream"},
		}, "stream",
		func(a ...Scmer) Scmer {
			s := streamArg("stream-lz4", 1, a)
			return NewStream(&Stream{Name: s.Name, Reader: lz4.NewReader(s.Reader), closer: closeFunc(s.Close)})
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"read-all", "reads the remaining stream content into a string",
		1, 1,
		[]DeclarationParameter{
			{"stream", "stream", "input stream"},
		}, "string",
		func(a ...Scmer) Scmer {
			s := streamArg("read-all", 1, a)
			b, err := io.ReadAll(s.Reader)
			if err != nil {
				panic(err)
			}
			return NewString(string(b))
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"read-line", "reads the next line without its terminator; the eof object when the stream is exhausted",
		1, 1,
		[]DeclarationParameter{
			{"stream", "stream", "input stream"},
		}, "any",
		func(a ...Scmer) Scmer {
			s := streamArg("read-line", 1, a)
			line, err := s.buffered().ReadString('\n')
			if err == io.EOF && line == "" {
				return NewEOF()
			}
			if err != nil && err != io.EOF {
				panic(err)
			}
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			return NewString(line)
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"stream-close", "releases the resource behind a stream; closing twice is allowed",
		1, 1,
		[]DeclarationParameter{
			{"stream", "stream", "stream to close"},
		}, "bool",
		func(a ...Scmer) Scmer {
			if err := streamArg("stream-close", 1, a).Close(); err != nil {
				panic(err)
			}
			return NewBool(true)
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"eof-object", "returns the end-of-file object",
		0, 0,
		[]DeclarationParameter{}, "any",
		func(a ...Scmer) Scmer {
			return NewEOF()
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"eof-object?", "tells if the value is the end-of-file object",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "value to check"},
		}, "bool",
		func(a ...Scmer) Scmer {
			return NewBool(stripSource(a[0]).GetTag() == tagEOF)
		}, true,
	})
}
