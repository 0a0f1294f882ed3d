package isa

import "github.com/helix9vm/helix9/internal/trit"

// Instruction is a decoded (or about-to-be-encoded) instruction word. It embeds trit.Word so every
// bit-level helper (Slice, SetSlice, String) is available directly on an Instruction.
type Instruction struct {
	trit.Word
}

// Decode wraps a raw word for field access. It performs no validation; callers check Opcode.Valid
// before dispatching.
func Decode(w trit.Word) Instruction {
	return Instruction{w}
}

// Encode builds an instruction word from its fields. rs2OrImm is interpreted by mode: under
// ModeReg it is a register index; otherwise it is a signed 10-trit immediate or displacement.
func Encode(op Opcode, mode Mode, rd, rs1 GPR, rs2OrImm int64) Instruction {
	w := trit.Zero
	w = w.SetSlice(OpcodeLo, OpcodeLen, int64(op))
	w = w.SetSlice(ModeLo, ModeLen, int64(mode))
	w = w.SetSlice(RdLo, RdLen, int64(rd))
	w = w.SetSlice(Rs1Lo, Rs1Len, int64(rs1))
	w = w.SetSlice(ImmLo, ImmLen, rs2OrImm)

	return Instruction{w}
}

// Opcode extracts the instruction's operation.
func (i Instruction) Opcode() Opcode {
	return Opcode(i.Slice(OpcodeLo, OpcodeLen))
}

// Mode extracts the instruction's addressing mode.
func (i Instruction) Mode() Mode {
	return Mode(i.Slice(ModeLo, ModeLen))
}

// Rd extracts the destination register field.
func (i Instruction) Rd() GPR {
	return GPR(i.Slice(RdLo, RdLen)).Bounded()
}

// Rs1 extracts the first source register field.
func (i Instruction) Rs1() GPR {
	return GPR(i.Slice(Rs1Lo, Rs1Len)).Bounded()
}

// Rs2 extracts the low field as a register index, valid only when Mode is ModeReg.
func (i Instruction) Rs2() GPR {
	return GPR(i.Slice(ImmLo, ImmLen)).Bounded()
}

// Imm extracts the low field as a signed immediate or displacement, valid under every mode except
// ModeReg.
func (i Instruction) Imm() int64 {
	return i.Slice(ImmLo, ImmLen)
}
