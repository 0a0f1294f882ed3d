// Package asm implements the Helix9 assembler: a line-oriented, two-pass translator from source
// text to a relocatable object file (internal/obj). Pass one builds the symbol table by walking
// the source and tracking each section's location counter; pass two re-walks the same source,
// now resolving operands and encoding instruction words via internal/isa.
package asm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/helix9vm/helix9/internal/isa"
	"github.com/helix9vm/helix9/internal/log"
	"github.com/helix9vm/helix9/internal/obj"
	"github.com/helix9vm/helix9/internal/trit"
)

// ErrSyntax wraps every malformed-source error the assembler reports.
var ErrSyntax = errors.New("assembly syntax error")

// SyntaxError records one malformed source line, in the spirit of a compiler diagnostic.
type SyntaxError struct {
	Pos  int
	Line string
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d: %q: %s", e.Pos, e.Line, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

var (
	space            = `[\pZ\p{Cc}]*`
	ident            = `(\pL[\pL\p{Nd}_.]*)`
	commentPattern   = regexp.MustCompile(space + ";.*$")
	labelPattern     = regexp.MustCompile("^" + space + ident + space + ":")
	directivePattern = regexp.MustCompile("^" + space + `\.(\pL+)` + space + `(.*)$`)
	instrPattern     = regexp.MustCompile("^" + space + ident + space + `(.*)$`)
)

// symbolDef is pass one's record of where a label was defined.
type symbolDef struct {
	section string
	offset  int64
}

// Assembler translates one source file into an object file. Its zero value is not
// ready to use; construct one with New.
type Assembler struct {
	log *log.Logger

	symbols map[string]symbolDef
	globals map[string]bool

	sectionOrder []string
	sectionSize  map[string]int64

	errs  []error
	fatal error
}

// New creates an Assembler.
func New(l *log.Logger) *Assembler {
	if l == nil {
		l = log.DefaultLogger()
	}

	return &Assembler{
		log:         l,
		symbols:     make(map[string]symbolDef),
		globals:     make(map[string]bool),
		sectionSize: make(map[string]int64),
	}
}

// Err returns a joined error wrapping every syntax error accumulated so far, or the fatal I/O
// error that stopped assembly early, if any.
func (a *Assembler) Err() error {
	if a.fatal != nil {
		return a.fatal
	}

	return errors.Join(a.errs...)
}

func (a *Assembler) syntaxError(pos int, line string, err error) {
	a.errs = append(a.errs, &SyntaxError{Pos: pos, Line: line, Err: err})
}

// Assemble reads source from r and produces an object file. The caller is responsible for closing
// r. Assemble runs both passes over an in-memory copy of the source, since the second pass must
// revisit every line after the symbol table settles.
func (a *Assembler) Assemble(r io.Reader) (*obj.File, error) {
	lines, err := readLines(r)
	if err != nil {
		a.fatal = err
		return nil, err
	}

	a.pass1(lines)
	a.log.Debug("pass1 complete", "symbols", len(a.symbols), "sections", len(a.sectionOrder))

	if a.fatal != nil {
		return nil, a.fatal
	}

	file, err := a.pass2(lines)
	if err != nil {
		return nil, err
	}

	a.log.Debug("pass2 complete", "sections", len(file.Sections), "relocations", len(file.Relocations))

	if len(a.errs) > 0 {
		return file, a.Err()
	}

	return file, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	return lines, scanner.Err()
}

// pass1 walks the source once, assigning every label an offset within its section and recording
// section sizes and `.global` declarations. It does not validate operands.
func (a *Assembler) pass1(lines []string) {
	section := ".text"
	offset := int64(0)

	a.sectionOrder = append(a.sectionOrder, section)

	for pos, raw := range lines {
		line := stripComment(raw)

		label, directive, dirArg, mnemonic, operands := splitLine(line)

		if label != "" {
			if _, dup := a.symbols[label]; dup {
				a.syntaxError(pos+1, raw, fmt.Errorf("%w: duplicate label %q", ErrSyntax, label))
				continue
			}

			a.symbols[label] = symbolDef{section: section, offset: offset}
		}

		switch {
		case directive != "":
			switch strings.ToLower(directive) {
			case "section":
				section = strings.TrimSpace(dirArg)
				if _, ok := a.sectionSize[section]; !ok {
					a.sectionOrder = append(a.sectionOrder, section)
				}

				offset = a.sectionSize[section]

			case "global":
				a.globals[strings.TrimSpace(dirArg)] = true

			case "org":
				n, err := parseNumber(strings.TrimSpace(dirArg))
				if err != nil {
					a.syntaxError(pos+1, raw, fmt.Errorf("%w: .org: %s", ErrSyntax, err))
					continue
				}

				if n < offset {
					a.syntaxError(pos+1, raw, fmt.Errorf("%w: .org must not move backward", ErrSyntax))
					continue
				}

				offset = n

			case "word", "int":
				vals := splitOperands(dirArg)
				offset += int64(len(vals))

			case "dat":
				vals := splitOperands(dirArg)
				offset += int64(len(vals))

			default:
				a.syntaxError(pos+1, raw, fmt.Errorf("%w: unknown directive %q", ErrSyntax, directive))
			}

		case mnemonic != "":
			if _, ok := mnemonics[strings.ToLower(mnemonic)]; !ok {
				a.syntaxError(pos+1, raw, fmt.Errorf("%w: unknown mnemonic %q", ErrSyntax, mnemonic))
				continue
			}

			_ = operands
			offset++
		}

		a.sectionSize[section] = offset
	}
}

// pass2 re-walks the source, now resolving every operand against the settled symbol table and
// encoding instruction words.
func (a *Assembler) pass2(lines []string) (*obj.File, error) {
	file := &obj.File{}

	words := make(map[string][]trit.Word)
	for _, name := range a.sectionOrder {
		words[name] = make([]trit.Word, 0, a.sectionSize[name])
	}

	section := ".text"

	for pos, raw := range lines {
		line := stripComment(raw)

		_, directive, dirArg, mnemonic, operands := splitLine(line)

		switch {
		case directive != "":
			switch strings.ToLower(directive) {
			case "section":
				section = strings.TrimSpace(dirArg)

			case "org":
				n, _ := parseNumber(strings.TrimSpace(dirArg))
				for int64(len(words[section])) < n {
					words[section] = append(words[section], trit.Zero)
				}

			case "word", "int", "dat":
				for _, tok := range splitOperands(dirArg) {
					wordAddr := int64(len(words[section]))

					if n, err := parseNumber(tok); err == nil {
						words[section] = append(words[section], trit.FromInt(n))
					} else if _, ok := a.symbols[tok]; ok {
						words[section] = append(words[section], trit.Zero)
						file.Relocations = append(file.Relocations, obj.Relocation{
							Section: section,
							Offset:  wordAddr,
							Symbol:  tok,
							Type:    obj.ABS,
						})
					} else {
						a.syntaxError(pos+1, raw, fmt.Errorf("%w: undefined symbol %q", ErrSyntax, tok))
						words[section] = append(words[section], trit.Zero)
					}
				}
			}

			continue

		case mnemonic != "":
			op, ok := mnemonics[strings.ToLower(mnemonic)]
			if !ok {
				continue
			}

			addr := int64(len(words[section]))

			inst, relocSym, relocType, err := a.encode(op, operands, section, addr)
			if err != nil {
				a.syntaxError(pos+1, raw, err)
				inst = isa.Encode(isa.NOP, isa.ModeReg, isa.R0, isa.R0, 0)
			}

			words[section] = append(words[section], inst.Word)

			if relocSym != "" {
				file.Relocations = append(file.Relocations, obj.Relocation{
					Section: section,
					Offset:  addr,
					Symbol:  relocSym,
					Type:    relocType,
				})
			}
		}
	}

	for _, name := range a.sectionOrder {
		file.Sections = append(file.Sections, obj.Section{Name: name, Base: 0, Words: words[name]})
	}

	for name, def := range a.symbols {
		scope := obj.Local
		if a.globals[name] {
			scope = obj.Global
		}

		file.Symbols = append(file.Symbols, obj.Symbol{
			Name:    name,
			Section: def.section,
			Offset:  def.offset,
			Scope:   scope,
		})
	}

	return file, nil
}

func stripComment(line string) string {
	if loc := commentPattern.FindStringIndex(line); loc != nil {
		return line[:loc[0]]
	}

	return line
}

// splitLine pulls an optional label, an optional directive (name + raw argument string) and an
// optional instruction (mnemonic + raw operand string) out of one source line.
func splitLine(line string) (label, directive, dirArg, mnemonic, operandStr string) {
	remain := line

	if m := labelPattern.FindStringSubmatchIndex(remain); len(m) > 3 {
		label = remain[m[2]:m[3]]
		remain = remain[m[1]:]
	}

	remain = strings.TrimSpace(remain)
	if remain == "" {
		return
	}

	if m := directivePattern.FindStringSubmatch(remain); len(m) > 2 {
		directive = m[1]
		dirArg = m[2]

		return
	}

	if m := instrPattern.FindStringSubmatch(remain); len(m) > 2 {
		mnemonic = m[1]
		operandStr = strings.TrimSpace(m[2])
	}

	return
}

// splitOperands splits a directive argument list on runs of whitespace and/or commas, which are
// interchangeable separators (spec.md's "whitespace, including commas, is insignificant").
func splitOperands(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}
