// Package cpu implements the fetch/decode/execute engine: the register file, the status word, the
// per-opcode-family execution semantics, trap handling and per-instruction metrics.
package cpu

import (
	"fmt"

	"github.com/helix9vm/helix9/internal/isa"
	"github.com/helix9vm/helix9/internal/log"
	"github.com/helix9vm/helix9/internal/memory"
	"github.com/helix9vm/helix9/internal/trit"
)

// Metrics accumulates per-instruction counters for the life of a CPU.
type Metrics struct {
	TotalCycles  int64
	ActiveCycles int64 // Non-NOP instructions.
	EnergyProxy  int64 // Instructions + memory ops + trit-flips.
	TritFlips    int64 // XOR popcount of old vs new pos/neg masks on writeback.
}

// CPU is the machine's execution engine: registers, PC, status and a mutable reference to a
// Memory. It executes one agent's context at a time; the scheduler swaps contexts in and out
// between ticks.
type CPU struct {
	Reg    [isa.NumGPR]trit.Word
	PC     uint32
	Status Status
	Mem    *memory.Memory

	Halted bool
	Trap   *Trap

	// Vec holds the four vector registers used by the register-level vector opcodes (VLDR, VSTR,
	// VADD, VDOT, VMMUL, VSIGN, VCLIP, VMMSGN), each the width of a page. VecStride is set by
	// VSTRI; no vector opcode reads it.
	Vec       [4]VecWord
	VecStride int64

	Metrics Metrics

	log *log.Logger
}

// Option configures a CPU at construction.
type Option func(*CPU)

// WithLogger overrides the CPU's logger.
func WithLogger(l *log.Logger) Option {
	return func(c *CPU) { c.log = l }
}

// New creates a CPU bound to mem, PC at 0, all registers and status clear.
func New(mem *memory.Memory, opts ...Option) *CPU {
	cpu := &CPU{
		Mem: mem,
		log: log.DefaultLogger(),
	}

	for _, opt := range opts {
		opt(cpu)
	}

	return cpu
}

// reg reads a register, enforcing that R0 always reads zero.
func (c *CPU) reg(r isa.GPR) trit.Word {
	if r == isa.R0 {
		return trit.Zero
	}

	return c.Reg[r]
}

// setReg writes a register, discarding writes to R0 and counting trit-flips for the metrics.
func (c *CPU) setReg(r isa.GPR, v trit.Word) {
	if r == isa.R0 {
		return
	}

	old := c.Reg[r]
	c.Reg[r] = v
	c.Metrics.TritFlips += int64(trit.Xor(old, v).PopCount())
}

// Step executes up to max instructions, stopping early on HLT or a trap. It returns the number of
// instructions actually executed, counting the HLT or trapping instruction that stopped it.
func (c *CPU) Step(max int) int {
	n := 0

	for n < max && !c.Halted {
		n++

		if !c.step() {
			break
		}
	}

	return n
}

// step executes a single instruction cycle and reports whether the CPU may continue.
func (c *CPU) step() bool {
	word := c.Mem.Read(memory.Addr(c.PC))
	c.PC++

	inst := isa.Decode(word)

	c.Metrics.TotalCycles++

	op := inst.Opcode()
	if !op.Valid() {
		c.fault(TrapIllegal)
		return false
	}

	if op != isa.NOP {
		c.Metrics.ActiveCycles++
	}

	c.Metrics.EnergyProxy++

	rd := inst.Rd()
	rs1 := inst.Rs1()
	mode := inst.Mode()

	op2, op2Reg := c.resolveOp2(inst, mode)

	switch {
	case op == isa.HLT:
		c.Halted = true
		return false
	case op == isa.NOP:
		// Nothing to do.
	case op == isa.MSR:
		c.Status = Status(op2)
	case op == isa.MRS:
		c.setReg(rd, trit.FromInt(int64(c.Status)))

	case isArithmetic(op):
		c.execArithmetic(op, rd, rs1, op2)
	case isLogic(op):
		c.execLogic(op, rd, rs1, op2)
	case isData(op):
		if !c.execData(op, rd, rs1, mode, op2) {
			return false
		}
	case isControl(op):
		if !c.execControl(op, rd, rs1, mode, op2, inst.Imm()) {
			return false
		}
	case isCognitive(op):
		c.execCognitive(op, rd, rs1, op2)
	case isVector(op):
		c.execVector(op, rd, rs1, mode, inst.Imm(), op2Reg)

	default:
		c.fault(TrapIllegal)
		return false
	}

	c.log.Debug("executed", "op", op, "pc", c.PC)

	return true
}

// resolveOp2 resolves the instruction's second operand per its mode. It returns both the integer
// value (used by every family except vector) and the raw register (used by the vector family,
// which always addresses page bases through registers).
func (c *CPU) resolveOp2(inst isa.Instruction, mode isa.Mode) (int64, isa.GPR) {
	switch mode {
	case isa.ModeReg:
		r := inst.Rs2()
		return c.reg(r).ToInt(), r
	default:
		return inst.Imm(), isa.GPR(0)
	}
}

func (c *CPU) fault(kind TrapKind) {
	c.Halted = true
	c.Trap = &Trap{Kind: kind, PC: c.PC}
	c.log.Error("trap", "kind", kind, "pc", c.PC)
}

func (c *CPU) String() string {
	return fmt.Sprintf("PC:%#x STATUS:%s", c.PC, c.Status)
}
