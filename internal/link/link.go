// Package link implements the linker: it merges one or more relocatable object files into a
// single executable, assigning every section a final base address and patching every relocation's
// low field with the resolved address of its target symbol.
package link

import (
	"errors"
	"fmt"

	"github.com/helix9vm/helix9/internal/isa"
	"github.com/helix9vm/helix9/internal/log"
	"github.com/helix9vm/helix9/internal/obj"
	"github.com/helix9vm/helix9/internal/trit"
)

// ErrLink is the sentinel wrapped by every link-time error: duplicate globals, undefined symbols,
// or a layout that a relocation cannot be patched against.
var ErrLink = errors.New("link error")

// Linker merges object files into one executable. Its zero value is not ready to use; construct
// one with New.
type Linker struct {
	log *log.Logger
}

// New creates a Linker.
func New(l *log.Logger) *Linker {
	if l == nil {
		l = log.DefaultLogger()
	}

	return &Linker{log: l}
}

// resolved is where one symbol, global or local-to-its-file, ended up in the merged layout.
type resolved struct {
	section string
	offset  int64
}

// Link merges files in the order given, laying out `.text` first and every other section after it
// in first-seen order, then resolves and patches every relocation. Duplicate global definitions
// and unresolved symbols are fatal.
func (l *Linker) Link(files ...*obj.File) (*obj.Executable, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no input files", ErrLink)
	}

	merged, sectionOrder := mergeSections(files)
	bases := layout(sectionOrder, merged)

	globals, locals, err := l.resolveSymbols(files, merged)
	if err != nil {
		return nil, err
	}

	if err := l.patch(files, merged, bases, globals, locals); err != nil {
		return nil, err
	}

	exe := &obj.Executable{}
	for _, name := range sectionOrder {
		exe.Sections = append(exe.Sections, obj.ExecSection{
			Name:  name,
			Base:  bases[name],
			Words: merged[name],
		})
	}

	l.log.Debug("link complete", "sections", len(exe.Sections), "files", len(files))

	return exe, nil
}

// mergeSections concatenates same-named sections across files, in file order. It records no
// per-file offsets and leaves each file's sections untouched; resolveSymbols/patch recompute a
// file's offset within the merged section via mergeOffset.
func mergeSections(files []*obj.File) (map[string][]trit.Word, []string) {
	merged := make(map[string][]trit.Word)

	var order []string

	for _, f := range files {
		for _, sec := range f.Sections {
			if _, ok := merged[sec.Name]; !ok {
				order = append(order, sec.Name)
			}

			merged[sec.Name] = append(merged[sec.Name], sec.Words...)
		}
	}

	// `.text` always leads, conventionally holding the entry point; everything else follows in
	// first-seen order.
	ordered := make([]string, 0, len(order))

	for _, name := range order {
		if name == ".text" {
			ordered = append(ordered, name)
		}
	}

	for _, name := range order {
		if name != ".text" {
			ordered = append(ordered, name)
		}
	}

	return merged, ordered
}

// layout assigns each merged section a base address: sections are packed back to back, in the
// order given, one word per address.
func layout(order []string, merged map[string][]trit.Word) map[string]int64 {
	bases := make(map[string]int64, len(order))

	var base int64

	for _, name := range order {
		bases[name] = base
		base += int64(len(merged[name]))
	}

	return bases
}

// mergeOffset returns the word offset within the merged section at which file fi's own copy of
// section name begins.
func mergeOffset(files []*obj.File, fi int, name string) int64 {
	var offset int64

	for i := 0; i < fi; i++ {
		if sec := files[i].Section(name); sec != nil {
			offset += int64(len(sec.Words))
		}
	}

	return offset
}

// resolveSymbols builds the global symbol table (checking for duplicate definitions) and, per
// file, a local symbol table, each mapping a name to its position in the as-yet-unbased merged
// sections (translated through mergeOffset so an offset is relative to the final, merged section,
// not the originating file's own copy of it).
func (l *Linker) resolveSymbols(
	files []*obj.File, merged map[string][]trit.Word,
) (map[string]resolved, []map[string]resolved, error) {
	globals := make(map[string]resolved)
	locals := make([]map[string]resolved, len(files))

	for fi, f := range files {
		locals[fi] = make(map[string]resolved)

		for _, sym := range f.Symbols {
			pos := resolved{section: sym.Section, offset: mergeOffset(files, fi, sym.Section) + sym.Offset}

			if sym.Scope == obj.Global {
				if _, dup := globals[sym.Name]; dup {
					return nil, nil, fmt.Errorf("%w: duplicate global symbol %q", ErrLink, sym.Name)
				}

				globals[sym.Name] = pos
			} else {
				locals[fi][sym.Name] = pos
			}
		}
	}

	return globals, locals, nil
}

// patch resolves and rewrites every relocation's low field with its target symbol's final
// address, preserving the opcode/mode/register fields already encoded in the word.
func (l *Linker) patch(
	files []*obj.File, merged map[string][]trit.Word, bases map[string]int64,
	globals map[string]resolved, locals []map[string]resolved,
) error {
	for fi, f := range files {
		for _, reloc := range f.Relocations {
			target, ok := globals[reloc.Symbol]
			if !ok {
				target, ok = locals[fi][reloc.Symbol]
			}

			if !ok {
				return fmt.Errorf("%w: undefined symbol %q", ErrLink, reloc.Symbol)
			}

			targetAddr := bases[target.section] + target.offset
			siteOffset := mergeOffset(files, fi, reloc.Section) + reloc.Offset
			siteAddr := bases[reloc.Section] + siteOffset

			var value int64

			switch reloc.Type {
			case obj.ABS:
				value = targetAddr
			case obj.PCR:
				value = targetAddr - (siteAddr + 1)
			default:
				return fmt.Errorf("%w: unknown relocation type for %q", ErrLink, reloc.Symbol)
			}

			words := merged[reloc.Section]
			if siteOffset < 0 || siteOffset >= int64(len(words)) {
				return fmt.Errorf("%w: relocation site out of range in %q", ErrLink, reloc.Section)
			}

			words[siteOffset] = words[siteOffset].SetSlice(isa.ImmLo, isa.ImmLen, value)
		}
	}

	return nil
}
