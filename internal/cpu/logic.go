package cpu

import (
	"github.com/helix9vm/helix9/internal/isa"
	"github.com/helix9vm/helix9/internal/trit"
)

func isLogic(op isa.Opcode) bool {
	switch op {
	case isa.AND, isa.OR, isa.XOR, isa.LSL, isa.LSR:
		return true
	default:
		return false
	}
}

// execLogic implements AND(=min)/OR(=max)/XOR(=trit-xor)/LSL/LSR. Shifts operate on Rs1 alone,
// ignoring Op2, shifting by exactly one trit.
func (c *CPU) execLogic(op isa.Opcode, rd, rs1 isa.GPR, op2 int64) {
	a := c.reg(rs1)

	var result trit.Word

	switch op {
	case isa.AND:
		result = trit.Min(a, trit.FromInt(op2))
	case isa.OR:
		result = trit.Max(a, trit.FromInt(op2))
	case isa.XOR:
		result = trit.Xor(a, trit.FromInt(op2))
	case isa.LSL:
		result = a.ShiftLeft()
	case isa.LSR:
		result = a.ShiftRight()
	}

	c.setReg(rd, result)
	c.Status = c.Status.withResult(result.ToInt())
}
