package obj

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/helix9vm/helix9/internal/trit"
)

const executableMagic = "HX"

// ExecSection is a final, address-assigned section of an executable file: a run of words with a
// fixed base address, and nothing else -- no symbols, no relocations.
type ExecSection struct {
	Name  string
	Base  int64
	Words []trit.Word
}

// Executable is the output of the linker: a set of sections with final addresses, ready to load
// directly into memory.
type Executable struct {
	Sections []ExecSection
}

// Section looks up a section by name, returning nil if absent.
func (e *Executable) Section(name string) *ExecSection {
	for i := range e.Sections {
		if e.Sections[i].Name == name {
			return &e.Sections[i]
		}
	}
	return nil
}

// MarshalText encodes the executable in the format documented in the package comment of object.go.
func (e *Executable) MarshalText() ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "%s 1 %d\n", executableMagic, len(e.Sections))

	for _, sec := range e.Sections {
		fmt.Fprintf(&b, "SECTION %s %d %d\n", sec.Name, sec.Base, len(sec.Words))
		writeWords(&b, sec.Words)
	}

	return []byte(b.String()), nil
}

// UnmarshalText decodes an executable from its textual representation.
func (e *Executable) UnmarshalText(data []byte) error {
	sc := newLineScanner(data)

	header, err := sc.fields()
	if err != nil {
		return err
	}

	if len(header) != 3 || header[0] != executableMagic || header[1] != "1" {
		return fmt.Errorf("%w: bad header: %q", ErrFormat, strings.Join(header, " "))
	}

	numSections, err := strconv.Atoi(header[2])
	if err != nil {
		return fmt.Errorf("%w: section count: %w", ErrFormat, err)
	}

	e.Sections = make([]ExecSection, 0, numSections)

	for i := 0; i < numSections; i++ {
		sec, err := readSection(sc)
		if err != nil {
			return err
		}

		e.Sections = append(e.Sections, ExecSection{Name: sec.Name, Base: sec.Base, Words: sec.Words})
	}

	return nil
}
