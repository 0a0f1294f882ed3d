package cpu

import (
	"github.com/helix9vm/helix9/internal/isa"
	"github.com/helix9vm/helix9/internal/memory"
	"github.com/helix9vm/helix9/internal/trit"
)

// VecWord is the width of one vector register: a full page's worth of trit-words, since VLDR/VSTR
// move whole pages between memory and the vector register file.
type VecWord [memory.PageSize]trit.Word

func isVector(op isa.Opcode) bool {
	switch op {
	case isa.VEC_CNS, isa.VEC_POP, isa.DEC_MASK, isa.SAT_MAC,
		isa.VLDR, isa.VSTR, isa.VADD, isa.VDOT, isa.VMMUL,
		isa.VSIGN, isa.VCLIP, isa.VSTRI, isa.VMMSGN:
		return true
	default:
		return false
	}
}

func isVectorPageLevel(op isa.Opcode) bool {
	switch op {
	case isa.VEC_CNS, isa.VEC_POP, isa.DEC_MASK, isa.SAT_MAC:
		return true
	default:
		return false
	}
}

// numVecRegs is the size of the vector register file.
const numVecRegs = 4

// vecIndex maps a decoded register field down to one of the four vector registers. The assembler
// only ever emits 0-3 in this field for vector-register operands; out-of-range values wrap.
func vecIndex(r isa.GPR) int {
	return int(r) % numVecRegs
}

// pageBase rounds the address held by a GPR down to its containing page's first address.
func (c *CPU) pageBase(r isa.GPR) memory.Addr {
	addr := memory.Addr(c.reg(r).ToInt())
	return addr &^ (memory.PageSize - 1)
}

func (c *CPU) pageAt(r isa.GPR) (*memory.Page, bool) {
	id := memory.PageID(c.pageBase(r))
	page := c.Mem.Page(id)

	return page, page != nil
}

func wordAt(page *memory.Page, ok bool, i int) trit.Word {
	if !ok {
		return trit.Zero
	}

	return page.Get(uint8(i))
}

// execVector dispatches the vector sub-unit's two families: page-level operations (VEC_CNS,
// VEC_POP, DEC_MASK, SAT_MAC), which address whole pages directly through GPRs, and
// register-level operations, which move page contents through the small Vec register file. Every
// vector instruction charges the ~256-cycle latency of iterating a page.
func (c *CPU) execVector(op isa.Opcode, rd, rs1 isa.GPR, mode isa.Mode, imm int64, op2reg isa.GPR) {
	c.Metrics.TotalCycles += memory.PageSize - 1
	c.Metrics.EnergyProxy += memory.PageSize

	if isVectorPageLevel(op) {
		c.execVectorPage(op, rd, rs1, op2reg)
		return
	}

	c.execVectorReg(op, rd, rs1, mode, imm, op2reg)
}

// execVectorPage implements VEC_CNS, VEC_POP, DEC_MASK and SAT_MAC. rd, rs1 and op2reg are plain
// GPRs holding page-base addresses (the "operand registers point to page bases" rule).
func (c *CPU) execVectorPage(op isa.Opcode, rd, rs1, op2reg isa.GPR) {
	src1, ok1 := c.pageAt(rs1)
	src2, ok2 := c.pageAt(op2reg)

	switch op {
	case isa.VEC_CNS, isa.DEC_MASK:
		destAddr := c.pageBase(rd)
		destID := memory.PageID(destAddr)

		if !ok1 && !ok2 {
			if dest := c.Mem.Page(destID); dest != nil {
				for i := 0; i < memory.PageSize; i++ {
					dest.Set(uint8(i), trit.Zero)
				}
			}

			return
		}

		for i := 0; i < memory.PageSize; i++ {
			a := wordAt(src1, ok1, i)
			b := wordAt(src2, ok2, i)

			var r trit.Word
			if op == isa.VEC_CNS {
				r = trit.Consensus(a, b)
			} else {
				r = trit.Decay(a, b)
			}

			c.Mem.Write(destAddr+memory.Addr(i), r)
		}

	case isa.VEC_POP:
		sum := 0

		if ok1 {
			for i := 0; i < memory.PageSize; i++ {
				sum += src1.Get(uint8(i)).PopCount()
			}
		}

		c.setReg(rd, trit.FromInt(int64(sum)))

	case isa.SAT_MAC:
		if !ok1 || !ok2 {
			c.setReg(rd, trit.Zero)
			return
		}

		var sum int64

		for i := 0; i < memory.PageSize; i++ {
			sum += src1.Get(uint8(i)).ToInt() * src2.Get(uint8(i)).ToInt()
		}

		c.setReg(rd, trit.FromInt(sum))
	}
}

// execVectorReg implements VLDR, VSTR, VADD, VDOT, VMMUL, VSIGN, VCLIP, VSTRI and VMMSGN, moving
// whole pages between memory and the Vec register file.
func (c *CPU) execVectorReg(op isa.Opcode, rd, rs1 isa.GPR, mode isa.Mode, imm int64, op2reg isa.GPR) {
	vd := vecIndex(rd)
	vs1 := vecIndex(rs1)

	switch op {
	case isa.VLDR:
		base := c.pageBase(op2reg)
		for i := 0; i < memory.PageSize; i++ {
			c.Vec[vd][i] = c.Mem.Read(base + memory.Addr(i))
		}

	case isa.VSTR:
		base := c.pageBase(op2reg)
		for i := 0; i < memory.PageSize; i++ {
			c.Mem.Write(base+memory.Addr(i), c.Vec[vd][i])
		}

	case isa.VADD:
		for i := 0; i < memory.PageSize; i++ {
			a := c.Vec[vs1][i]

			var b trit.Word
			if mode == isa.ModeReg {
				b = c.Vec[vecIndex(op2reg)][i]
			} else {
				b = trit.FromInt(imm)
			}

			c.Vec[vd][i] = trit.Add(a, b)
		}

	case isa.VDOT:
		var sum int64

		for i := 0; i < memory.PageSize; i++ {
			a := c.Vec[vs1][i].ToInt()

			var b int64
			if mode == isa.ModeReg {
				b = c.Vec[vecIndex(op2reg)][i].ToInt()
			} else {
				b = imm
			}

			sum += a * b
		}

		c.Vec[vd] = VecWord{}
		c.Vec[vd][0] = trit.FromInt(sum)

	case isa.VMMUL, isa.VMMSGN:
		base := c.pageBase(op2reg)

		for row := 0; row < memory.PageSize; row++ {
			rowBase := base + memory.Addr(row*memory.PageSize)

			var sum int64
			for col := 0; col < memory.PageSize; col++ {
				sum += c.Vec[vs1][col].ToInt() * c.Mem.Read(rowBase+memory.Addr(col)).ToInt()
			}

			if op == isa.VMMSGN {
				c.Vec[vd][row] = trit.FromInt(int64(sign(sum)))
			} else {
				c.Vec[vd][row] = trit.FromInt(sum)
			}
		}

	case isa.VSIGN:
		for i := 0; i < memory.PageSize; i++ {
			c.Vec[vd][i] = trit.FromInt(int64(sign(c.Vec[vs1][i].ToInt())))
		}

	case isa.VCLIP:
		limit := int64(1)
		if mode != isa.ModeReg {
			limit = imm
		}

		for i := 0; i < memory.PageSize; i++ {
			v := c.Vec[vs1][i].ToInt()

			switch {
			case v > limit:
				v = limit
			case v < -limit:
				v = -limit
			}

			c.Vec[vd][i] = trit.FromInt(v)
		}

	case isa.VSTRI:
		if mode == isa.ModeReg {
			c.VecStride = c.reg(op2reg).ToInt()
		} else {
			c.VecStride = imm
		}
	}
}

func sign(v int64) int64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
