/*
Copyright (C) 2023-2025  Carl-Philip Hänsch
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
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/chzyer/readline"
)

const newprompt = "\033[32m>\033[0m "
const contprompt = "\033[32m.\033[0m "
const resultprompt = "\033[31m=\033[0m "

// ReplInstance is the live readline instance while Repl runs. Exit
// routines close it so the terminal state is restored even when the
// process dies on a signal.
var ReplInstance *readline.Instance

// continuable reports whether a reader panic only means the input is
// unfinished, so the prompt should keep collecting lines.
func continuable(r any) bool {
	switch e := rootCause(r).(type) {
	case *BalanceError:
		return !e.Unexpected
	case *UnterminatedError:
		return true
	}
	return false
}

func Repl(en *Env) {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            newprompt,
		HistoryFile:       ".scmer-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		panic(err)
	}
	ReplInstance = l
	defer func() {
		ReplInstance = nil
		l.Close()
	}()
	l.CaptureExitSignal()

	oldline := ""
	for {
		line, err := l.Readline()
		line = oldline + line
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			oldline = ""
			l.SetPrompt(newprompt)
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			panic(err)
		}
		if line == "" {
			continue
		}

		// anti-panic func
		func() {
			defer func() {
				if r := recover(); r != nil {
					if continuable(r) {
						// keep oldline
						oldline = line + "\n"
						l.SetPrompt(contprompt)
						return
					}
					if _, ok := rootCause(r).(runtime.Error); ok {
						fmt.Println("panic:", r, string(debug.Stack()))
					} else {
						fmt.Println("error:", errorAsError(r))
					}
					oldline = ""
					l.SetPrompt(newprompt)
				}
			}()
			for _, form := range ParseFile(line, "user prompt", en) {
				Validate(form, "any")
				result := force(Eval(form, en))
				fmt.Print(resultprompt)
				fmt.Println(Repr(result))
			}
			oldline = ""
			l.SetPrompt(newprompt)
		}()
	}
}
