/*
Copyright (C) 2024  Carl-Philip Hänsch

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

import "os"
import "fmt"
import "reflect"
import "strings"
import "path/filepath"

type Declaration struct {
	Name         string
	Desc         string
	MinParameter int
	MaxParameter int
	Params       []DeclarationParameter
	Returns      string // any | string | number | int | bool | func | list | symbol | nil
	Fn           any    // func(...Scmer) Scmer, func(*Env, ...Scmer) Scmer, or nil for doc-only entries
	Foldable     bool   // safe to constant-fold when all args are literals
}

type DeclarationParameter struct {
	Name string
	Type string // any | string | number | int | bool | func | list | symbol | nil
	Desc string
}

var declaration_titles []string
var declarations map[string]*Declaration = make(map[string]*Declaration)
var declarations_hash map[uintptr]*Declaration = make(map[uintptr]*Declaration)

func DeclareTitle(title string) {
	declaration_titles = append(declaration_titles, "#"+title)
}

// funcPointer keys a native function by its code pointer. Every
// declaration uses its own function literal, so the pointer is unique
// per builtin; deliberately shared literals alias their declaration.
func funcPointer(fn any) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

// Declare registers a builtin: documentation always, a binding in env
// when Fn is non-nil. Doc-only entries describe special forms the
// evaluator implements itself. Bound functions get a min/max arity
// guard.
func Declare(env *Env, def *Declaration) {
	declaration_titles = append(declaration_titles, def.Name)
	declarations[def.Name] = def
	switch fn := def.Fn.(type) {
	case nil:
		// doc-only
	case func(...Scmer) Scmer:
		declarations_hash[funcPointer(def.Fn)] = def
		env.Vars[Intern(def.Name)] = NewFunc(fn)
	case func(*Env, ...Scmer) Scmer:
		declarations_hash[funcPointer(def.Fn)] = def
		env.Vars[Intern(def.Name)] = NewEnvFunc(fn)
	default:
		panic("cannot declare " + def.Name + ": unsupported function signature")
	}
}

func checkArity(def *Declaration, got int) {
	if got < def.MinParameter {
		panic(&ArityError{Name: def.Name, Want: def.MinParameter, Got: got})
	}
	if got > def.MaxParameter {
		panic(&ArityError{Name: def.Name, Want: def.MaxParameter, Got: got})
	}
}

// slugify makes a filesystem-safe, lowercase slug from a chapter title.
func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	// Replace spaces with dashes
	s = strings.ReplaceAll(s, " ", "-")
	// Keep only a–z, 0–9, -, _
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		out = "chapter"
	}
	return out
}

// WriteDocumentation generates Markdown docs:
// - index.md with links to chapters
// - one <chapter>.md file per chapter, containing all functions of that chapter
func WriteDocumentation(folder string) error {
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("failed to create folder %q: %w", folder, err)
	}

	type Chapter struct {
		Title string
		Slug  string
		Fns   []*Declaration
	}

	var chapters []*Chapter
	var current *Chapter

	// We’ll add a default "General" chapter if we see functions before any heading.
	defaultChapter := &Chapter{Title: "General", Slug: slugify("General")}
	usedSlugs := map[string]int{}

	uniqSlug := func(s string) string {
		base := slugify(s)
		if usedSlugs[base] == 0 {
			usedSlugs[base] = 1
			return base
		}
		for i := 2; ; i++ {
			candidate := fmt.Sprintf("%s-%d", base, i)
			if usedSlugs[candidate] == 0 {
				usedSlugs[candidate] = 1
				return candidate
			}
		}
	}

	// Build chapter -> functions from the ordered declaration_titles
	for _, t := range declaration_titles {
		if len(t) > 0 && t[0] == '#' {
			title := strings.TrimSpace(t[1:])
			ch := &Chapter{Title: title, Slug: uniqSlug(title)}
			chapters = append(chapters, ch)
			current = ch
			continue
		}
		// function name
		def, ok := declarations[t]
		if !ok {
			// unknown entry — ignore gracefully
			continue
		}
		if current == nil {
			// First functions before any chapter title: create/use "General".
			if usedSlugs[defaultChapter.Slug] == 0 {
				usedSlugs[defaultChapter.Slug] = 1
				chapters = append(chapters, defaultChapter)
			}
			current = defaultChapter
		}
		current.Fns = append(current.Fns, def)
	}

	// Write index.md (chapters only)
	indexPath := filepath.Join(folder, "index.md")
	indexFile, err := os.Create(indexPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", indexPath, err)
	}
	defer indexFile.Close()

	fmt.Fprint(indexFile, "# Documentation\n\n")
	for _, ch := range chapters {
		if len(ch.Fns) == 0 {
			// Skip empty chapters
			continue
		}
		fmt.Fprintf(indexFile, "- [%s](%s.md)\n", ch.Title, ch.Slug)
	}

	// Write one file per chapter
	for _, ch := range chapters {
		if len(ch.Fns) == 0 {
			continue
		}
		fp := filepath.Join(folder, ch.Slug+".md")
		f, err := os.Create(fp)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", fp, err)
		}

		// Chapter header
		fmt.Fprintf(f, "# %s\n\n", ch.Title)

		// Functions in this chapter
		for _, def := range ch.Fns {
			fmt.Fprintf(f, "## %s\n\n", def.Name)
			if def.Desc != "" {
				fmt.Fprintf(f, "%s\n\n", def.Desc)
			}
			fmt.Fprintf(f, "**Allowed number of parameters:** %d–%d\n\n", def.MinParameter, def.MaxParameter)

			fmt.Fprintln(f, "### Parameters\n")
			if len(def.Params) == 0 {
				fmt.Fprintln(f, "_This function has no parameters._\n")
			} else {
				for _, p := range def.Params {
					fmt.Fprintf(f, "- **%s** (`%s`): %s\n", p.Name, p.Type, p.Desc)
				}
				fmt.Fprintln(f)
			}

			fmt.Fprintf(f, "### Returns\n\n`%s`\n\n", def.Returns)
		}

		_ = f.Close()
	}

	return nil
}

func types_match(given string, required string) bool {
	if given == "any" {
		return true // be graceful, we can't check it
	}
	if required == "any" {
		return true // this is always allowed
	}
	if given == "int" && required == "number" {
		return true // we allow int to number but not otherwise
	}
	required_ := strings.Split(required, "|")
	given_ := strings.Split(given, "|")
	for _, r := range required_ {
		for _, g := range given_ {
			// TODO: list(subtype)
			if r == g {
				return true // if any given fits any required, the value is allowed
			}
		}
	}
	return false // not a single match
}

func types_merge(given, newtype string) string {
	if given == "" {
		return newtype
	}
	if types_match(given, newtype) {
		return given
	}
	if types_match(newtype, given) {
		return newtype
	}
	return given + "|" + newtype
}

// forms whose arguments are patterns or data, not value expressions
var validateSkipArgs = map[Symbol]struct{}{}

func init() {
	for _, name := range []string{"lambda", "lambda/d", "parser", "quote", "quasiquote", "define-syntax", "syntax-rules", "define-macro", "match"} {
		validateSkipArgs[Intern(name)] = struct{}{}
	}
}

// Validate panics if the code is bad (returns possible datatype, at least "any")
func Validate(val Scmer, require string) string {
	var source_info SourceInfo
	if val.GetTag() == tagSourceInfo {
		source_info = *val.SourceInfo()
		val = source_info.Value
	}
	switch val.GetTag() {
	case tagNil:
		return "nil"
	case tagString:
		return "string"
	case tagFloat, tagBigInt, tagRational, tagComplex:
		return "number"
	case tagInt:
		return "int"
	case tagBool:
		return "bool"
	case tagProc, tagFunc:
		return "func"
	case tagPair:
		elems, tail := listToSlice(val)
		if !stripSource(tail).IsNil() || len(elems) == 0 {
			return "any"
		}
		head := stripSource(elems[0])
		var def *Declaration
		if head.GetTag() == tagSymbol {
			if _, skip := validateSkipArgs[head.Symbol()]; skip {
				return "any"
			}
			if def2, ok := declarations[SymbolName(head.Symbol())]; ok {
				def = def2
			}
		} else if head.GetTag() == tagFunc {
			if def2, ok := declarations_hash[funcPointer(head.ptr)]; ok {
				def = def2
			}
		}
		if def != nil {
			if len(elems)-1 < def.MinParameter {
				panic(source_info.String() + ": function " + def.Name + " expects at least " + fmt.Sprintf("%d", def.MinParameter) + " parameters")
			}
			if len(elems)-1 > def.MaxParameter {
				panic(source_info.String() + ": function " + def.Name + " expects at most " + fmt.Sprintf("%d", def.MaxParameter) + " parameters")
			}
		}
		returntype := ""
		for i := 1; i < len(elems); i++ {
			subrequired := "any"
			isReturntype := false
			if def != nil && len(def.Params) > 0 {
				j := i - 1 // parameter help
				if j >= len(def.Params) {
					j = len(def.Params) - 1
				}
				subrequired = def.Params[j].Type
				if subrequired == "returntype" {
					subrequired = require
					isReturntype = true
				}
			}
			typ := Validate(elems[i], subrequired)
			if def != nil && !types_match(typ, subrequired) {
				panic(fmt.Sprintf("%s: function %s expects parameter %d to be %s, but found value of type %s", source_info.String(), def.Name, i, subrequired, typ))
			}
			if isReturntype {
				returntype = types_merge(returntype, typ)
			}
		}
		if def != nil {
			if def.Returns == "returntype" {
				if returntype == "" {
					return "any"
				}
				return returntype
			}
			return def.Returns
		}
	}
	return "any"
}

func Help(fn Scmer) {
	if fn.IsNil() {
		fmt.Println("Available scm functions:")
		for _, title := range declaration_titles {
			if title[0] == '#' {
				fmt.Println("")
				fmt.Println("-- " + title[1:] + " --")
			} else {
				fmt.Println("  " + title + ": " + strings.Split(declarations[title].Desc, "\n")[0])
			}
		}
		fmt.Println("")
		fmt.Println("get further information by typing (help \"functionname\") to get more info")
	} else {
		def := DeclarationForValue(fn)
		if def != nil {
			fmt.Println("Help for: " + def.Name)
			fmt.Println("===")
			fmt.Println("")
			fmt.Println(def.Desc)
			fmt.Println("")
			fmt.Println("Allowed nø of parameters: ", def.MinParameter, "-", def.MaxParameter)
			fmt.Println("")
			for _, p := range def.Params {
				fmt.Println(" - " + p.Name + " (" + p.Type + "): " + p.Desc)
			}
			fmt.Println("")
		} else {
			panic("function not found: " + String(fn))
		}
	}
}

// DeclarationForValue resolves a callable head (name, symbol or native func) to its Declaration.
func DeclarationForValue(v Scmer) *Declaration {
	v = stripSource(v)
	switch v.GetTag() {
	case tagString:
		if d, ok := declarations[v.MutString().S]; ok {
			return d
		}
	case tagSymbol:
		if d, ok := declarations[SymbolName(v.Symbol())]; ok {
			return d
		}
	case tagFunc:
		if d, ok := declarations_hash[funcPointer(v.ptr)]; ok {
			return d
		}
	}
	return nil
}
