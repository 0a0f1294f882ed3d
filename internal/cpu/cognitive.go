package cpu

import (
	"github.com/helix9vm/helix9/internal/isa"
	"github.com/helix9vm/helix9/internal/trit"
)

func isCognitive(op isa.Opcode) bool {
	switch op {
	case isa.CNS, isa.DEC, isa.POP, isa.SAT:
		return true
	default:
		return false
	}
}

// execCognitive implements CNS/DEC/POP/SAT, each invoking the corresponding trit.Word operation
// on Rs1 and Op2 into Rd. POP is unary: it pop-counts Rs1 alone and ignores Op2.
func (c *CPU) execCognitive(op isa.Opcode, rd, rs1 isa.GPR, op2 int64) {
	a := c.reg(rs1)
	b := trit.FromInt(op2)

	var result trit.Word

	switch op {
	case isa.CNS:
		result = trit.Consensus(a, b)
	case isa.DEC:
		result = trit.Decay(a, b)
	case isa.SAT:
		result = trit.SaturatingAdd(a, b)
	case isa.POP:
		result = trit.FromInt(int64(a.PopCount()))
	}

	c.setReg(rd, result)
	c.Status = c.Status.withResult(result.ToInt())
}
