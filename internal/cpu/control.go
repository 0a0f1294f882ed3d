package cpu

import (
	"github.com/helix9vm/helix9/internal/isa"
	"github.com/helix9vm/helix9/internal/trit"
)

func isControl(op isa.Opcode) bool {
	switch op {
	case isa.JMP, isa.BEQ, isa.BNE, isa.BGT, isa.BLT, isa.CALL, isa.RET:
		return true
	default:
		return false
	}
}

// execControl implements JMP/BEQ/BNE/BGT/BLT/CALL/RET. The branch base is the post-increment PC
// under PC-relative mode, or Rs1 otherwise (register-indirect jump); target = base + imm.
func (c *CPU) execControl(op isa.Opcode, rd, rs1 isa.GPR, mode isa.Mode, op2, imm int64) bool {
	if op == isa.RET {
		c.PC = uint32(c.reg(isa.LR).ToInt())
		return true
	}

	var base int64
	if mode == isa.ModePCRelative {
		base = int64(c.PC)
	} else {
		base = c.reg(rs1).ToInt()
	}

	target := base + imm

	switch op {
	case isa.JMP:
		c.PC = uint32(target)
	case isa.CALL:
		c.setReg(isa.LR, trit.FromInt(int64(c.PC)))
		c.PC = uint32(target)
	case isa.BEQ:
		if c.Status.Z() {
			c.PC = uint32(target)
		}
	case isa.BNE:
		if !c.Status.Z() {
			c.PC = uint32(target)
		}
	case isa.BGT:
		if c.Status.P() {
			c.PC = uint32(target)
		}
	case isa.BLT:
		if c.Status.N() {
			c.PC = uint32(target)
		}
	}

	return true
}
