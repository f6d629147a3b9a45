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
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

func TestStreamString(t *testing.T) {
	en := testEnv()
	wantString(t, evalStr(t, en, `(read-all (stream-string "hello"))`), "hello")
	wantBool(t, evalStr(t, en, `(stream? (stream-string ""))`), true)
	wantBool(t, evalStr(t, en, `(stream? "x")`), false)
	// a drained stream reads as empty
	wantString(t, evalStr(t, en, `
		(define s (stream-string "once"))
		(read-all s)
		(read-all s)`), "")
}

func TestReadLine(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `(define s (stream-string "a\nb\r\nc"))`)
	wantString(t, evalStr(t, en, `(read-line s)`), "a")
	wantString(t, evalStr(t, en, `(read-line s)`), "b")
	wantString(t, evalStr(t, en, `(read-line s)`), "c")
	wantBool(t, evalStr(t, en, `(eof-object? (read-line s))`), true)
	wantBool(t, evalStr(t, en, `(eof-object? (eof-object))`), true)
	wantBool(t, evalStr(t, en, `(eof-object? 5)`), false)
}

func TestReadLineThenReadAll(t *testing.T) {
	en := testEnv()
	evalStr(t, en, `(define s (stream-string "head\nrest of data"))`)
	wantString(t, evalStr(t, en, `(read-line s)`), "head")
	// the buffered layer must not swallow the remainder
	wantString(t, evalStr(t, en, `(read-all s)`), "rest of data")
}

func TestStreamGzip(t *testing.T) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write([]byte("compressed payload")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	en := testEnv()
	en.Set(Intern("gz"), NewStream(&Stream{Name: "mem", Reader: &buf}))
	wantString(t, evalStr(t, en, `(read-all (stream-gzip gz))`), "compressed payload")
	if _, ok := evalPanic(t, en, `(stream-gzip (stream-string "nope"))`).(error); !ok {
		t.Fatalf("a broken gzip header should surface the error")
	}
}

func TestStreamXz(t *testing.T) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("writer: %v", err)
	}
	if _, err := w.Write([]byte("xz payload")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	en := testEnv()
	en.Set(Intern("x"), NewStream(&Stream{Name: "mem", Reader: &buf}))
	wantString(t, evalStr(t, en, `(read-all (stream-xz x))`), "xz payload")
}

func TestStreamLz4(t *testing.T) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write([]byte("lz4 payload")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	en := testEnv()
	en.Set(Intern("z"), NewStream(&Stream{Name: "mem", Reader: &buf}))
	wantString(t, evalStr(t, en, `(read-all (stream-lz4 z))`), "lz4 payload")
}

func TestFileStreamAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	if err := os.WriteFile(path, []byte("first\nsecond\n"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	s, err := OpenFileStream(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	en := testEnv()
	en.Set(Intern("f"), NewStream(s))
	wantString(t, evalStr(t, en, `(read-line f)`), "first")
	wantBool(t, evalStr(t, en, `(stream-close f)`), true)
	// closing twice is allowed
	wantBool(t, evalStr(t, en, `(stream-close f)`), true)
	// closing a plain string stream is a no-op
	wantBool(t, evalStr(t, en, `(stream-close (stream-string "x"))`), true)
	if _, err := OpenFileStream(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("opening a missing file should fail")
	}
}
