// Package obj implements the text-based object and executable file formats shared by the
// assembler and the linker. Each trit-word is serialized as its signed decimal integer value.
//
// The grammar, in EBNF-flavored shorthand, is:
//
//	object     = "HTX" "1" count newline { section } symbols relocations ;
//	executable = "HX"  "1" count newline { section } ;
//	section    = "SECTION" name base size newline { word } ;
//	symbols      = "SYMBOLS" count newline { name section offset scope } ;
//	relocations  = "RELOCATIONS" count newline { offset symbol kind section } ;
//	scope        = "G" | "L" ;
//	kind         = "ABS" | "PCR" ;
//
// Fields on a line are whitespace-separated; blank lines and lines beginning with ';' are ignored
// between records.
package obj

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/helix9vm/helix9/internal/trit"
)

// Scope is the visibility of a symbol: local to its defining file, or global across the link.
type Scope uint8

const (
	Local Scope = iota
	Global
)

func (s Scope) String() string {
	if s == Global {
		return "G"
	}
	return "L"
}

func parseScope(s string) (Scope, error) {
	switch strings.ToUpper(s) {
	case "G":
		return Global, nil
	case "L":
		return Local, nil
	default:
		return Local, fmt.Errorf("%w: scope: %q", ErrFormat, s)
	}
}

// RelocType identifies how a relocation's immediate field is computed at patch time.
type RelocType uint8

const (
	// ABS patches the field with the absolute address of the target symbol.
	ABS RelocType = iota
	// PCR patches the field with the address of the target symbol relative to the instruction
	// following the one being patched.
	PCR
)

func (k RelocType) String() string {
	if k == PCR {
		return "PCR"
	}
	return "ABS"
}

func parseRelocType(s string) (RelocType, error) {
	switch strings.ToUpper(s) {
	case "ABS":
		return ABS, nil
	case "PCR":
		return PCR, nil
	default:
		return ABS, fmt.Errorf("%w: relocation type: %q", ErrFormat, s)
	}
}

// Section is a named, ordered sequence of trit-words. Base is the location-counter value the
// section's code was assembled at; the linker does not read it; merge offsets are computed from
// concatenation order, not from Base.
type Section struct {
	Name  string
	Base  int64
	Words []trit.Word
}

// Symbol is an entry in an object file's symbol table.
type Symbol struct {
	Name    string
	Section string
	Offset  int64
	Scope   Scope
}

// Relocation is an entry in an object file's relocation table: a patch site that must be resolved
// to the address of Symbol at link time.
type Relocation struct {
	Section string
	Offset  int64
	Symbol  string
	Type    RelocType
}

// File is a relocatable object file: sections of code and data, plus the symbol and relocation
// tables the linker needs to merge and patch them.
type File struct {
	Sections    []Section
	Symbols     []Symbol
	Relocations []Relocation
}

// Section looks up a section by name, returning nil if absent.
func (f *File) Section(name string) *Section {
	for i := range f.Sections {
		if f.Sections[i].Name == name {
			return &f.Sections[i]
		}
	}
	return nil
}

// ErrFormat is the sentinel wrapped by every malformed-input error this package returns.
var ErrFormat = errors.New("object format error")

const objectMagic = "HTX"

// MarshalText encodes the object file in the format documented in the package comment.
func (f *File) MarshalText() ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "%s 1 %d\n", objectMagic, len(f.Sections))

	for _, sec := range f.Sections {
		fmt.Fprintf(&b, "SECTION %s %d %d\n", sec.Name, sec.Base, len(sec.Words))
		writeWords(&b, sec.Words)
	}

	fmt.Fprintf(&b, "SYMBOLS %d\n", len(f.Symbols))

	for _, sym := range f.Symbols {
		fmt.Fprintf(&b, "%s %s %d %s\n", sym.Name, sym.Section, sym.Offset, sym.Scope)
	}

	fmt.Fprintf(&b, "RELOCATIONS %d\n", len(f.Relocations))

	for _, rel := range f.Relocations {
		fmt.Fprintf(&b, "%d %s %s %s\n", rel.Offset, rel.Symbol, rel.Type, rel.Section)
	}

	return []byte(b.String()), nil
}

func writeWords(b *strings.Builder, words []trit.Word) {
	for i, w := range words {
		if i > 0 {
			b.WriteByte(' ')
		}

		fmt.Fprintf(b, "%d", w.ToInt())
	}

	b.WriteByte('\n')
}

// UnmarshalText decodes an object file from its textual representation.
func (f *File) UnmarshalText(data []byte) error {
	sc := newLineScanner(data)

	header, err := sc.fields()
	if err != nil {
		return err
	}

	if len(header) != 3 || header[0] != objectMagic || header[1] != "1" {
		return fmt.Errorf("%w: bad header: %q", ErrFormat, strings.Join(header, " "))
	}

	numSections, err := strconv.Atoi(header[2])
	if err != nil {
		return fmt.Errorf("%w: section count: %w", ErrFormat, err)
	}

	f.Sections = make([]Section, 0, numSections)

	for i := 0; i < numSections; i++ {
		sec, err := readSection(sc)
		if err != nil {
			return err
		}

		f.Sections = append(f.Sections, sec)
	}

	symHeader, err := sc.fields()
	if err != nil {
		return err
	}

	if len(symHeader) != 2 || symHeader[0] != "SYMBOLS" {
		return fmt.Errorf("%w: expected SYMBOLS header, got: %q", ErrFormat, strings.Join(symHeader, " "))
	}

	numSymbols, err := strconv.Atoi(symHeader[1])
	if err != nil {
		return fmt.Errorf("%w: symbol count: %w", ErrFormat, err)
	}

	for i := 0; i < numSymbols; i++ {
		fields, err := sc.fields()
		if err != nil {
			return err
		}

		if len(fields) != 4 {
			return fmt.Errorf("%w: malformed symbol record: %q", ErrFormat, strings.Join(fields, " "))
		}

		offset, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: symbol offset: %w", ErrFormat, err)
		}

		scope, err := parseScope(fields[3])
		if err != nil {
			return err
		}

		f.Symbols = append(f.Symbols, Symbol{
			Name:    fields[0],
			Section: fields[1],
			Offset:  offset,
			Scope:   scope,
		})
	}

	relHeader, err := sc.fields()
	if err != nil {
		return err
	}

	if len(relHeader) != 2 || relHeader[0] != "RELOCATIONS" {
		return fmt.Errorf("%w: expected RELOCATIONS header, got: %q", ErrFormat, strings.Join(relHeader, " "))
	}

	numRelocs, err := strconv.Atoi(relHeader[1])
	if err != nil {
		return fmt.Errorf("%w: relocation count: %w", ErrFormat, err)
	}

	for i := 0; i < numRelocs; i++ {
		fields, err := sc.fields()
		if err != nil {
			return err
		}

		if len(fields) != 4 {
			return fmt.Errorf("%w: malformed relocation record: %q", ErrFormat, strings.Join(fields, " "))
		}

		offset, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: relocation offset: %w", ErrFormat, err)
		}

		kind, err := parseRelocType(fields[2])
		if err != nil {
			return err
		}

		f.Relocations = append(f.Relocations, Relocation{
			Offset:  offset,
			Symbol:  fields[1],
			Type:    kind,
			Section: fields[3],
		})
	}

	return nil
}

func readSection(sc *lineScanner) (Section, error) {
	fields, err := sc.fields()
	if err != nil {
		return Section{}, err
	}

	if len(fields) != 4 || fields[0] != "SECTION" {
		return Section{}, fmt.Errorf("%w: expected SECTION header, got: %q", ErrFormat, strings.Join(fields, " "))
	}

	base, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return Section{}, fmt.Errorf("%w: section base: %w", ErrFormat, err)
	}

	count, err := strconv.Atoi(fields[3])
	if err != nil {
		return Section{}, fmt.Errorf("%w: section size: %w", ErrFormat, err)
	}

	sec := Section{Name: fields[1], Base: base, Words: make([]trit.Word, 0, count)}

	for len(sec.Words) < count {
		values, err := sc.fields()
		if err != nil {
			return Section{}, err
		}

		for _, v := range values {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return Section{}, fmt.Errorf("%w: word value: %w", ErrFormat, err)
			}

			sec.Words = append(sec.Words, trit.FromInt(n))
		}
	}

	if len(sec.Words) != count {
		return Section{}, fmt.Errorf("%w: section %q: expected %d words, read %d",
			ErrFormat, sec.Name, count, len(sec.Words))
	}

	return sec, nil
}

// lineScanner reads whitespace-separated fields line by line, skipping blank lines and comments.
type lineScanner struct {
	sc *bufio.Scanner
}

func newLineScanner(data []byte) *lineScanner {
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &lineScanner{sc: sc}
}

func (l *lineScanner) fields() ([]string, error) {
	for l.sc.Scan() {
		line := strings.TrimSpace(l.sc.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}

		return strings.Fields(line), nil
	}

	if err := l.sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	return nil, fmt.Errorf("%w: %w", ErrFormat, io.ErrUnexpectedEOF)
}
