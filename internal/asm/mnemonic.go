package asm

import "github.com/helix9vm/helix9/internal/isa"

// mnemonics maps source text (already lowercased) to an opcode. Branch/jump/call mnemonics are
// listed without a suffix; arithmetic/logic/data/cognitive mnemonics carry the teacher-style
// `.w`/`.t`/`.add` suffixes original_source's assembler used, which this table also normalizes.
var mnemonics = map[string]isa.Opcode{
	"hlt": isa.HLT,
	"nop": isa.NOP,
	"msr": isa.MSR,
	"mrs": isa.MRS,

	"add":   isa.ADD,
	"add.w": isa.ADD,
	"sub":   isa.SUB,
	"sub.w": isa.SUB,
	"mul":   isa.MUL,
	"mul.w": isa.MUL,
	"div":   isa.DIV,
	"div.w": isa.DIV,
	"mod":   isa.MOD,
	"mod.w": isa.MOD,
	"cmp":   isa.CMP,
	"cmp.w": isa.CMP,

	"and":   isa.AND,
	"and.w": isa.AND,
	"or":    isa.OR,
	"or.w":  isa.OR,
	"xor":   isa.XOR,
	"xor.w": isa.XOR,
	"lsl":   isa.LSL,
	"lsl.w": isa.LSL,
	"lsr":   isa.LSR,
	"lsr.w": isa.LSR,

	"mov":   isa.MOV,
	"mov.w": isa.MOV,
	"ldi":   isa.LDI,
	"ldi.w": isa.LDI,
	"ld.w":  isa.LDW,
	"ldw":   isa.LDW,
	"st.w":  isa.STW,
	"stw":   isa.STW,

	"jmp":  isa.JMP,
	"beq":  isa.BEQ,
	"bne":  isa.BNE,
	"bgt":  isa.BGT,
	"blt":  isa.BLT,
	"call": isa.CALL,
	"ret":  isa.RET,

	"cns.w":   isa.CNS,
	"dec.w":   isa.DEC,
	"pop.t":   isa.POP,
	"sat.add": isa.SAT,

	"vldr":   isa.VLDR,
	"vstr":   isa.VSTR,
	"vadd":   isa.VADD,
	"vdot":   isa.VDOT,
	"vmmul":  isa.VMMUL,
	"vsign":  isa.VSIGN,
	"vclip":  isa.VCLIP,
	"vstri":  isa.VSTRI,
	"vmmsgn": isa.VMMSGN,

	"vec.cns":  isa.VEC_CNS,
	"vec.pop":  isa.VEC_POP,
	"dec.mask": isa.DEC_MASK,
	"sat.mac":  isa.SAT_MAC,
}

func isBranch(op isa.Opcode) bool {
	switch op {
	case isa.JMP, isa.BEQ, isa.BNE, isa.BGT, isa.BLT, isa.CALL:
		return true
	default:
		return false
	}
}

func isArithOrLogic(op isa.Opcode) bool {
	switch op {
	case isa.ADD, isa.SUB, isa.MUL, isa.DIV, isa.MOD,
		isa.AND, isa.OR, isa.XOR, isa.LSL, isa.LSR,
		isa.CNS, isa.DEC, isa.SAT:
		return true
	default:
		return false
	}
}

// registerNames maps the assembler's register tokens (case-insensitive) to GPR indices.
var registerNames = map[string]isa.GPR{
	"r0": isa.R0, "r1": isa.R1, "r2": isa.R2, "r3": isa.R3,
	"r4": isa.R4, "r5": isa.R5, "r6": isa.R6, "r7": isa.R7,
	"r8": isa.R8, "r9": isa.R9, "r10": isa.R10, "r11": isa.R11,
	"r12": isa.R12, "r13": isa.R13, "r14": isa.R14, "r15": isa.R15,
	"fp": isa.FP, "sp": isa.SP, "lr": isa.LR, "pc": isa.PC,
	"v0": 0, "v1": 1, "v2": 2, "v3": 3,
}
