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
/*
	scmer standalone scheme interpreter

	https://pkelchte.wordpress.com/2013/12/31/scm-go/

*/
package main

import "os"
import "io"
import "fmt"
import "flag"
import "time"
import "sync"
import "bufio"
import "syscall"
import "os/signal"
import "crypto/rand"
import "path/filepath"
import "runtime/pprof"
import "github.com/google/uuid"
import "github.com/dc0d/onexit"
import "github.com/fsnotify/fsnotify"
import "github.com/launix-de/scmer/scm"

var IOEnv scm.Env

// imported remembers which files already ran, so diamond import graphs
// execute every file exactly once.
var imported sync.Map

func resolvePath(base, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(base, name)
}

// execFile runs source in a fresh frame over IOEnv where __DIR__,
// __FILE__ and the file loaders are rebound relative to the file.
func execFile(filename string, source string) scm.Scmer {
	wd := filepath.Dir(filename)
	fileEnv := scm.Env{
		Vars: scm.Vars{
			scm.Intern("__DIR__"):     scm.NewString(wd),
			scm.Intern("__FILE__"):    scm.NewString(filename),
			scm.Intern("import"):      scm.NewFunc(getImport(wd)),
			scm.Intern("load"):        scm.NewFunc(getLoad(wd)),
			scm.Intern("watch"):       scm.NewFunc(getWatch(wd)),
			scm.Intern("stream-file"): scm.NewFunc(getStreamFile(wd)),
		},
		Outer: &IOEnv,
		Name:  filename,
	}
	results, err := scm.Exec(source, scm.EvalOptions{Env: &fileEnv, FileName: filename})
	if err != nil {
		panic(err)
	}
	if len(results) == 0 {
		return scm.NewBool(true)
	}
	return results[len(results)-1]
}

func getImport(path string) func(a ...scm.Scmer) scm.Scmer {
	return func(a ...scm.Scmer) scm.Scmer {
		filename := resolvePath(path, scm.String(a[0]))
		// TODO: filepath.Walk for wildcards
		if abs, err := filepath.Abs(filename); err == nil {
			filename = abs
		}
		if _, loaded := imported.LoadOrStore(filename, true); loaded {
			return scm.NewBool(true)
		}
		content, err := os.ReadFile(filename)
		if err != nil {
			panic(err)
		}
		return execFile(filename, string(content))
	}
}

func getLoad(path string) func(a ...scm.Scmer) scm.Scmer {
	return func(a ...scm.Scmer) scm.Scmer {
		filename := resolvePath(path, scm.String(a[0]))
		if len(a) > 2 {
			st, err := scm.OpenFileStream(filename)
			if err != nil {
				panic(err)
			}
			defer st.Close()
			delimiter := scm.String(a[2])
			if len(delimiter) != 1 {
				panic("load delimiter must be 1 byte long")
			}
			splitter := bufio.NewReader(st.Reader)
			for {
				str, err := splitter.ReadString(delimiter[0])
				if err == io.EOF {
					break // file is finished
				}
				if err != nil {
					panic(err)
				}
				scm.Apply(a[1], scm.NewString(str))
			}
		} else {
			// read in whole
			content, err := os.ReadFile(filename)
			if err != nil {
				panic(err)
			}
			if len(a) > 1 {
				scm.Apply(a[1], scm.NewString(string(content)))
			} else {
				return scm.NewString(string(content))
			}
		}
		return scm.NewBool(true)
	}
}

func getWatch(path string) func(a ...scm.Scmer) scm.Scmer {
	return func(a ...scm.Scmer) scm.Scmer {
		filename := resolvePath(path, scm.String(a[0]))
		reread := func() {
			// read in whole
			content, err := os.ReadFile(filename)
			if err != nil {
				panic(err)
			}
			scm.Apply(a[1], scm.NewString(string(content)))
		}
		reread() // read once at the beginning in sync
		// watch for changes
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			panic(err)
		}
		go func() {
			for {
				select {
				case <-watcher.Events:
					// flush all other events
					for {
						time.Sleep(10 * time.Millisecond) // delay a bit, so we don't read empty files
						select {
						case <-watcher.Events:
							// ignore
						default:
							goto to_reread
						}
					}
				to_reread:
					// now reread the file
					func() {
						defer func() {
							if err := recover(); err != nil {
								// error happens during reload: log to console
								fmt.Println(err)
							}
						}()
						reread()
					}()
					watcher.Add(filename) // text editors rename, so we have to rewatch
				}
			}
		}()
		err = watcher.Add(filename)
		if err != nil {
			panic(err)
		}
		return scm.NewBool(true)
	}
}

func getStreamFile(path string) func(a ...scm.Scmer) scm.Scmer {
	return func(a ...scm.Scmer) scm.Scmer {
		st, err := scm.OpenFileStream(resolvePath(path, scm.String(a[0])))
		if err != nil {
			panic(err)
		}
		return scm.NewStream(st)
	}
}

// workaround for flags package to allow multiple values
type arrayFlags []string

func (i *arrayFlags) String() string {
	return "dummy"
}

func (i *arrayFlags) Set(value string) error {
	*i = append(*i, value)
	return nil
}

func setupIO(wd string) {
	// define some IO functions (scm will not provide them since it is sandboxable)
	IOEnv = scm.Env{
		Vars:  scm.Vars{},
		Outer: &scm.Globalenv,
		Name:  "io",
	}
	scm.DeclareTitle("IO")
	scm.Declare(&IOEnv, &scm.Declaration{
		"print", "Prints values to stdout followed by a newline (only in IO environment)",
		1, 1000,
		[]scm.DeclarationParameter{
			{"value...", "any", "values to print"},
		}, "bool",
		func(a ...scm.Scmer) scm.Scmer {
			for _, s := range a {
				fmt.Print(scm.String(s))
			}
			fmt.Println()
			return scm.NewBool(true)
		}, false,
	})
	scm.Declare(&IOEnv, &scm.Declaration{
		"println", "Prints values to stdout separated by spaces, followed by a newline",
		0, 1000,
		[]scm.DeclarationParameter{
			{"value...", "any", "values to print"},
		}, "bool",
		func(a ...scm.Scmer) scm.Scmer {
			for i, s := range a {
				if i > 0 {
					fmt.Print(" ")
				}
				fmt.Print(scm.String(s))
			}
			fmt.Println()
			return scm.NewBool(true)
		}, false,
	})
	scm.Declare(&IOEnv, &scm.Declaration{
		"display", "Prints values to stdout without a trailing newline",
		1, 1000,
		[]scm.DeclarationParameter{
			{"value...", "any", "values to print"},
		}, "bool",
		func(a ...scm.Scmer) scm.Scmer {
			for _, s := range a {
				fmt.Print(scm.String(s))
			}
			return scm.NewBool(true)
		}, false,
	})
	scm.Declare(&IOEnv, &scm.Declaration{
		"write", "Prints values to stdout in re-readable notation, without a trailing newline",
		1, 1000,
		[]scm.DeclarationParameter{
			{"value...", "any", "values to print"},
		}, "bool",
		func(a ...scm.Scmer) scm.Scmer {
			for _, s := range a {
				fmt.Print(scm.Repr(s))
			}
			return scm.NewBool(true)
		}, false,
	})
	scm.Declare(&IOEnv, &scm.Declaration{
		"env", "returns the content of a environment variable",
		1, 2,
		[]scm.DeclarationParameter{
			{"var", "string", "envvar"},
			{"default", "string", "default if the env is not found"},
		}, "string",
		func(a ...scm.Scmer) scm.Scmer {
			if len(a) > 1 {
				if val, ok := os.LookupEnv(scm.String(a[0])); ok {
					return scm.NewString(val)
				}
				return a[1]
			}
			return scm.NewString(os.Getenv(scm.String(a[0])))
		}, false,
	})
	scm.Declare(&IOEnv, &scm.Declaration{
		"help", "Lists all functions or print help for a specific function",
		0, 1,
		[]scm.DeclarationParameter{
			{"topic", "string", "function to print help about"},
		}, "nil",
		func(a ...scm.Scmer) scm.Scmer {
			if len(a) == 0 {
				scm.Help(scm.NewNil())
			} else {
				scm.Help(a[0])
			}
			return scm.NewNil()
		}, false,
	})
	scm.Declare(&IOEnv, &scm.Declaration{
		"import", "Imports a .scm file into the current namespace; every file runs at most once",
		1, 1,
		[]scm.DeclarationParameter{
			{"filename", "string", "filename relative to folder of source file"},
		}, "any",
		getImport(wd), false,
	})
	scm.Declare(&IOEnv, &scm.Declaration{
		"load", "Loads a file and returns the string",
		1, 3,
		[]scm.DeclarationParameter{
			{"filename", "string", "filename relative to folder of source file"},
			{"linehandler", "func", "handler that reads each line"},
			{"delimiter", "string", "delimiter to extract"},
		}, "string|bool",
		getLoad(wd), false,
	})
	scm.Declare(&IOEnv, &scm.Declaration{
		"watch", "Loads a file and calls the callback. Whenever the file changes on disk, the file is load again.",
		2, 2,
		[]scm.DeclarationParameter{
			{"filename", "string", "filename relative to folder of source file"},
			{"updatehandler", "func", "handler that receives the file content func(content)"},
		}, "bool",
		getWatch(wd), false,
	})
	scm.Declare(&IOEnv, &scm.Declaration{
		"stream-file", "Opens a file as a stream for read-line, read-all and the decompressors",
		1, 1,
		[]scm.DeclarationParameter{
			{"filename", "string", "filename relative to folder of source file"},
		}, "stream",
		getStreamFile(wd), false,
	})
	scm.Declare(&IOEnv, &scm.Declaration{
		"exit", "Exits the process after running the exit handlers",
		0, 1,
		[]scm.DeclarationParameter{
			{"code", "number", "exit code (default 0)"},
		}, "nil",
		func(a ...scm.Scmer) scm.Scmer {
			code := 0
			if len(a) > 0 {
				code = int(scm.ToInt(a[0]))
			}
			exitroutine()
			os.Exit(code)
			return scm.NewNil()
		}, false,
	})
}

func runGuarded(what func()) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(os.Stderr, r)
			exitroutine()
			os.Exit(1)
		}
	}()
	what()
}

func watchScript(wd string, filename string) {
	filename = resolvePath(wd, filename)
	runner := scm.NewFunc(func(a ...scm.Scmer) scm.Scmer {
		return execFile(filename, scm.String(a[0]))
	})
	getWatch("")(scm.NewString(filename), runner)
}

func main() {
	fmt.Print(`scmer Copyright (C) 2023-2025   Carl-Philip Hänsch
    This program comes with ABSOLUTELY NO WARRANTY;
    This is free software, and you are welcome to redistribute it
    under certain conditions;

`)

	// init random generator for UUIDs
	uuid.SetRand(rand.Reader)

	// parse command line options
	var commands arrayFlags
	flag.Var(&commands, "eval", "Execute scm expression after loading all scripts")
	flag.Var(&commands, "c", "shorthand for -eval")

	var preloads arrayFlags
	flag.Var(&preloads, "import", "Import a scm file before the positional scripts")

	var watches arrayFlags
	flag.Var(&watches, "watch", "Execute a scm file and re-execute it whenever it changes on disk")

	repl := false
	flag.BoolVar(&repl, "repl", false, "Start the interactive prompt even when scripts are given")

	documentation := ""
	flag.StringVar(&documentation, "documentation", "", "Write builtin documentation as markdown into this folder and exit")

	trace := false
	flag.BoolVar(&trace, "trace", false, "Write a JSON call trace file (folder taken from SCMER_TRACEDIR)")

	profile := ""
	flag.StringVar(&profile, "profile", "", "Write a CPU profile to this file")

	wd, _ := os.Getwd() // libraries are relative to working directory... or change with -wd PATH
	flag.StringVar(&wd, "wd", wd, "Working Directory for (import) and (load) (Default: .)")

	flag.Parse()
	scripts := flag.Args()

	setupIO(wd)

	if documentation != "" {
		if err := scm.WriteDocumentation(documentation); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if trace {
		scm.SetTrace(true)
		onexit.Register(func() { scm.SetTrace(false) }) // close trace file on exit
	}

	// install exit handler
	cancelChan := make(chan os.Signal, 1)
	signal.Notify(cancelChan, syscall.SIGTERM, syscall.SIGINT)
	go (func() {
		<-cancelChan
		exitroutine()
		os.Exit(1)
	})()

	// init profiling
	if profile != "" {
		f, err := os.Create(profile)
		if err != nil {
			panic(err)
		}
		defer f.Close()
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	// scripts initialization
	run := getImport(wd)
	for _, scmfile := range preloads {
		runGuarded(func() { run(scm.NewString(scmfile)) })
	}
	for _, scmfile := range scripts {
		fmt.Println("Loading " + scmfile + " ...")
		runGuarded(func() { run(scm.NewString(scmfile)) })
	}
	for _, command := range commands {
		results, err := scm.Exec(command, scm.EvalOptions{Env: &IOEnv, FileName: "command line"})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			exitroutine()
			os.Exit(1)
		}
		for _, result := range results {
			fmt.Println(scm.Repr(result))
		}
	}
	for _, scmfile := range watches {
		fmt.Println("Watching " + scmfile + " ...")
		runGuarded(func() { watchScript(wd, scmfile) })
	}

	if repl || len(preloads)+len(scripts)+len(commands)+len(watches) == 0 {
		fmt.Print(`
    Type (help) to show help

`)
		// REPL shell
		scm.Repl(&IOEnv)
	} else if len(watches) > 0 {
		// keep watching until a signal arrives
		select {}
	}

	// normal shutdown
	exitroutine()
}

func exitroutine() {
	if scm.ReplInstance != nil {
		// in case it dosen't exit properly
		scm.ReplInstance.Close()
	}
	scm.DefaultScheduler.Stop()
	scm.SetTrace(false)
}
