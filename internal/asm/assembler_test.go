package asm_test

import (
	"strings"
	"testing"

	"github.com/helix9vm/helix9/internal/asm"
	"github.com/helix9vm/helix9/internal/isa"
	"github.com/helix9vm/helix9/internal/obj"
)

func TestAssembleSimpleProgram(t *testing.T) {
	t.Parallel()

	a := asm.New(nil)

	src := `
		.section .text
	start:
		ldi.w r1, 10
		ldi.w r2, 20
		add   r3, r1, r2
		hlt
	`

	file, err := a.Assemble(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	text := file.Section(".text")
	if text == nil {
		t.Fatal("missing .text section")
	}

	if len(text.Words) != 4 {
		t.Fatalf("got %d words, want 4", len(text.Words))
	}

	last := isa.Decode(text.Words[3])
	if last.Opcode() != isa.HLT {
		t.Fatalf("last instruction = %s, want hlt", last.Opcode())
	}
}

func TestAssembleLocalPCRelativeBranch(t *testing.T) {
	t.Parallel()

	a := asm.New(nil)

	src := `
		.section .text
		ldi.w r1, 0
		cmp   r1, r0
		beq   done
		hlt
	done:
		ldi.w r5, 99
	`

	file, err := a.Assemble(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if len(file.Relocations) != 0 {
		t.Fatalf("same-section branch should need no relocation, got %d", len(file.Relocations))
	}

	text := file.Section(".text")
	beq := isa.Decode(text.Words[2])

	if beq.Opcode() != isa.BEQ || beq.Mode() != isa.ModePCRelative {
		t.Fatalf("beq decoded as %s/%s", beq.Opcode(), beq.Mode())
	}

	// beq is at address 2; done is at address 4; target = 4, imm = target - (addr+1) = 1.
	if got := beq.Imm(); got != 1 {
		t.Fatalf("beq imm = %d, want 1", got)
	}
}

// A reference to a symbol this file never defines is not an assembler error: it becomes an
// unresolved relocation for the linker (or another object file) to satisfy.
func TestAssembleExternalSymbolIsDeferredToLinker(t *testing.T) {
	t.Parallel()

	a := asm.New(nil)

	src := `
		.section .text
		.global entry
	entry:
		call subroutine
		hlt
	`

	file, err := a.Assemble(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if len(file.Relocations) != 1 {
		t.Fatalf("got %d relocations, want 1", len(file.Relocations))
	}

	if got := file.Relocations[0]; got.Symbol != "subroutine" || got.Type != obj.PCR {
		t.Fatalf("relocation = %+v, want PCR against %q", got, "subroutine")
	}
}

func TestAssembleDataDirective(t *testing.T) {
	t.Parallel()

	a := asm.New(nil)

	src := `
		.section .data
	count:
		.word 3, -3, 0
	`

	file, err := a.Assemble(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	data := file.Section(".data")
	if data == nil || len(data.Words) != 3 {
		t.Fatalf("data section = %+v, want 3 words", data)
	}

	if got := data.Words[1].ToInt(); got != -3 {
		t.Fatalf("data.Words[1] = %d, want -3", got)
	}
}

func TestAssembleMemoryOperand(t *testing.T) {
	t.Parallel()

	a := asm.New(nil)

	src := `
		.section .text
		ld.w r1, [r2, 4]
		st.w r1, [r2]
		hlt
	`

	file, err := a.Assemble(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	text := file.Section(".text")

	ldw := isa.Decode(text.Words[0])
	if ldw.Mode() != isa.ModeMemDisp || ldw.Imm() != 4 {
		t.Fatalf("ldw mode/imm = %s/%d, want mem+disp/4", ldw.Mode(), ldw.Imm())
	}

	stw := isa.Decode(text.Words[1])
	if stw.Mode() != isa.ModeMemDirect {
		t.Fatalf("stw mode = %s, want mem (zero displacement)", stw.Mode())
	}
}

// Whitespace and commas are interchangeable operand separators; the same program must assemble
// identically whichever style the source uses.
func TestAssembleWhitespaceSeparatedOperands(t *testing.T) {
	t.Parallel()

	a := asm.New(nil)

	src := `
		.section .text
		ldi.w r1 0
		ldi.w r2 1
		add r1 r1 r2
		ld.w r3 [r1 4]
		st.w r3 [r1]
		hlt
	`

	file, err := a.Assemble(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	text := file.Section(".text")
	if text == nil || len(text.Words) != 6 {
		t.Fatalf("text section = %+v, want 6 words", text)
	}

	add := isa.Decode(text.Words[2])
	if add.Opcode() != isa.ADD {
		t.Fatalf("add decoded as %s", add.Opcode())
	}

	ldw := isa.Decode(text.Words[3])
	if ldw.Mode() != isa.ModeMemDisp || ldw.Imm() != 4 {
		t.Fatalf("ldw mode/imm = %s/%d, want mem+disp/4", ldw.Mode(), ldw.Imm())
	}

	stw := isa.Decode(text.Words[4])
	if stw.Mode() != isa.ModeMemDirect {
		t.Fatalf("stw mode = %s, want mem (zero displacement)", stw.Mode())
	}
}

func TestAssembleUnknownMnemonicIsSyntaxError(t *testing.T) {
	t.Parallel()

	a := asm.New(nil)

	_, err := a.Assemble(strings.NewReader(".section .text\n\tbogus r1, r2\n"))
	if err == nil {
		t.Fatal("expected a syntax error for an unknown mnemonic")
	}
}
