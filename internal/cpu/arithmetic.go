package cpu

import (
	"github.com/helix9vm/helix9/internal/isa"
	"github.com/helix9vm/helix9/internal/trit"
)

func isArithmetic(op isa.Opcode) bool {
	switch op {
	case isa.ADD, isa.SUB, isa.MUL, isa.DIV, isa.MOD, isa.CMP:
		return true
	default:
		return false
	}
}

// execArithmetic implements ADD/SUB/MUL/DIV/MOD/CMP. Arithmetic runs on the decoded int64 values
// and round-trips through trit.FromInt. ADD (and, per the supplemented rule, MUL/DIV/MOD) saturate
// under cognitive mode instead of wrapping; CMP updates flags only, with no writeback.
func (c *CPU) execArithmetic(op isa.Opcode, rd, rs1 isa.GPR, op2 int64) {
	a := c.reg(rs1).ToInt()

	var result int64

	switch op {
	case isa.ADD:
		result = c.addWord(a, op2)
		c.writebackArith(rd, result)

		return
	case isa.SUB:
		result = c.addWord(a, -op2)
	case isa.MUL:
		result = a * op2
		if c.Status.COG() {
			result = clamp(result)
		}
	case isa.DIV:
		if op2 == 0 {
			c.fault(TrapIllegal)
			return
		}

		result = a / op2
	case isa.MOD:
		if op2 == 0 {
			c.fault(TrapIllegal)
			return
		}

		result = a % op2
	case isa.CMP:
		c.Status = c.Status.withResult(a - op2)
		return
	}

	c.writebackArith(rd, result)
}

// addWord performs the ripple-carry add/saturating-add through trit.Word, since the carry
// discipline (wrap vs. saturate) lives there, not in plain int64 arithmetic.
func (c *CPU) addWord(a, b int64) int64 {
	wa, wb := trit.FromInt(a), trit.FromInt(b)

	if c.Status.COG() {
		return trit.SaturatingAdd(wa, wb).ToInt()
	}

	return trit.Add(wa, wb).ToInt()
}

// clamp saturates a raw product/quotient to the representable range, mirroring saturating_add's
// behavior for the other arithmetic opcodes under cognitive mode.
func clamp(v int64) int64 {
	switch {
	case v > trit.Max3:
		return trit.Max3
	case v < -trit.Max3:
		return -trit.Max3
	default:
		return v
	}
}

func (c *CPU) writebackArith(rd isa.GPR, result int64) {
	w := trit.FromInt(result)
	c.setReg(rd, w)
	c.Status = c.Status.withResult(w.ToInt())
}
