package cpu

import (
	"github.com/helix9vm/helix9/internal/isa"
	"github.com/helix9vm/helix9/internal/memory"
	"github.com/helix9vm/helix9/internal/trit"
)

func isData(op isa.Opcode) bool {
	switch op {
	case isa.MOV, isa.LDI, isa.LDW, isa.STW:
		return true
	default:
		return false
	}
}

// execData implements MOV/LDI/LDW/STW. It returns false if a SECURE_FAULT trap fired, signaling
// the caller to stop the instruction cycle.
func (c *CPU) execData(op isa.Opcode, rd, rs1 isa.GPR, mode isa.Mode, imm int64) bool {
	switch op {
	case isa.MOV:
		v := c.reg(rs1)
		c.setReg(rd, v)
		c.Status = c.Status.withResult(v.ToInt())

		return true

	case isa.LDI:
		v := trit.FromInt(imm)
		c.setReg(rd, v)
		c.Status = c.Status.withResult(v.ToInt())

		return true

	case isa.LDW:
		addr, ok := c.resolveMemAddr(rs1, imm)
		if !ok {
			return false
		}

		v := c.Mem.Read(addr)
		c.setReg(rd, v)
		c.Status = c.Status.withResult(v.ToInt())
		c.Metrics.EnergyProxy++

		return true

	case isa.STW:
		addr, ok := c.resolveMemAddr(rs1, imm)
		if !ok {
			return false
		}

		v := c.reg(rd)
		c.Mem.Write(addr, v)
		c.Status = c.Status.withResult(v.ToInt())
		c.Metrics.EnergyProxy++

		return true

	default:
		return true
	}
}

// resolveMemAddr computes the effective address for LDW/STW. Under cognitive mode the displacement
// is confined to the page of Rs1 (cognitive page-wrap); any resulting address outside the
// cognitive region's bounds raises SECURE_FAULT.
func (c *CPU) resolveMemAddr(rs1 isa.GPR, imm int64) (memory.Addr, bool) {
	base := c.reg(rs1).ToInt()

	if !c.Status.COG() {
		return memory.Addr(base + imm), true
	}

	effective := (base &^ 0xFF) | ((base + imm) & 0xFF)

	if effective < int64(memory.CognitiveBase) || effective >= int64(memory.CognitiveLimit) {
		c.fault(TrapSecureFault)
		return 0, false
	}

	return memory.Addr(effective), true
}
