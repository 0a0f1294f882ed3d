package cpu_test

import (
	"testing"

	"github.com/helix9vm/helix9/internal/cpu"
	"github.com/helix9vm/helix9/internal/isa"
	"github.com/helix9vm/helix9/internal/memory"
	"github.com/helix9vm/helix9/internal/trit"
)

func newMachine() (*memory.Memory, *cpu.CPU) {
	m := memory.New()
	m.SetContext(memory.System)

	return m, cpu.New(m)
}

func load(m *memory.Memory, base memory.Addr, insts ...isa.Instruction) {
	for i, inst := range insts {
		m.Write(base+memory.Addr(i), inst.Word)
	}
}

func TestLDIAndHLT(t *testing.T) {
	t.Parallel()

	m, c := newMachine()

	load(m, 0,
		isa.Encode(isa.LDI, isa.ModeImm, isa.R1, isa.R0, 42),
		isa.Encode(isa.HLT, isa.ModeReg, isa.R0, isa.R0, 0),
	)

	n := c.Step(10)

	if n != 2 {
		t.Fatalf("Step executed %d instructions, want 2", n)
	}

	if !c.Halted {
		t.Fatal("expected CPU halted")
	}

	if got := c.Reg[isa.R1].ToInt(); got != 42 {
		t.Fatalf("R1 = %d, want 42", got)
	}
}

func TestAddWrapsWithoutCognitiveMode(t *testing.T) {
	t.Parallel()

	m, c := newMachine()
	// R1 starts at the all-+1 maximum; a register-register ADD's operands come straight from the
	// register file, so this isn't bounded by the 10-trit immediate field the way LDI is.
	c.Reg[isa.R1] = trit.FromInt(trit.Max3)
	c.Reg[isa.R2] = trit.FromInt(1)

	load(m, 0,
		isa.Encode(isa.ADD, isa.ModeReg, isa.R3, isa.R1, int64(isa.R2)),
		isa.Encode(isa.HLT, isa.ModeReg, isa.R0, isa.R0, 0),
	)

	c.Step(10)

	if got := c.Reg[isa.R3].ToInt(); got != -trit.Max3 {
		t.Fatalf("R3 = %d, want wrapped to %d", got, -trit.Max3)
	}
}

func TestAddSaturatesUnderCognitiveMode(t *testing.T) {
	t.Parallel()

	m, c := newMachine()
	c.Status |= cpu.StatusCOG
	c.Reg[isa.R1] = trit.FromInt(trit.Max3)
	c.Reg[isa.R2] = trit.FromInt(1)

	load(m, 0,
		isa.Encode(isa.ADD, isa.ModeReg, isa.R3, isa.R1, int64(isa.R2)),
		isa.Encode(isa.HLT, isa.ModeReg, isa.R0, isa.R0, 0),
	)

	c.Step(10)

	if got := c.Reg[isa.R3].ToInt(); got != trit.Max3 {
		t.Fatalf("R3 = %d, want saturated to %d", got, trit.Max3)
	}
}

func TestDivByZeroTrapsIllegal(t *testing.T) {
	t.Parallel()

	m, c := newMachine()

	load(m, 0,
		isa.Encode(isa.LDI, isa.ModeImm, isa.R1, isa.R0, 10),
		isa.Encode(isa.DIV, isa.ModeImm, isa.R2, isa.R1, 0),
	)

	c.Step(10)

	if c.Trap == nil || c.Trap.Kind != cpu.TrapIllegal {
		t.Fatalf("expected ILLEGAL trap, got %v", c.Trap)
	}
}

func TestCMPUpdatesFlagsOnly(t *testing.T) {
	t.Parallel()

	m, c := newMachine()

	load(m, 0,
		isa.Encode(isa.LDI, isa.ModeImm, isa.R1, isa.R0, 5),
		isa.Encode(isa.LDI, isa.ModeImm, isa.R2, isa.R0, 5),
		isa.Encode(isa.CMP, isa.ModeReg, isa.R0, isa.R1, int64(isa.R2)),
		isa.Encode(isa.HLT, isa.ModeReg, isa.R0, isa.R0, 0),
	)

	c.Step(10)

	if !c.Status.Z() {
		t.Fatal("expected Z flag set after equal compare")
	}
}

func TestBranchesAndCall(t *testing.T) {
	t.Parallel()

	m, c := newMachine()

	load(m, 0,
		isa.Encode(isa.LDI, isa.ModeImm, isa.R1, isa.R0, 0), // sets Z
		isa.Encode(isa.CMP, isa.ModeReg, isa.R0, isa.R1, int64(isa.R0)),
		isa.Encode(isa.BEQ, isa.ModePCRelative, isa.R0, isa.R0, 1), // skip to CALL
		isa.Encode(isa.HLT, isa.ModeReg, isa.R0, isa.R0, 0),        // should be skipped
		isa.Encode(isa.CALL, isa.ModePCRelative, isa.R0, isa.R0, 1),
		isa.Encode(isa.HLT, isa.ModeReg, isa.R0, isa.R0, 0), // landed on after RET
		isa.Encode(isa.LDI, isa.ModeImm, isa.R5, isa.R0, 99),
		isa.Encode(isa.RET, isa.ModeReg, isa.R0, isa.R0, 0),
	)

	c.Step(20)

	if got := c.Reg[isa.R5].ToInt(); got != 99 {
		t.Fatalf("R5 = %d, want 99 (call target should have run)", got)
	}

	if !c.Halted {
		t.Fatal("expected halt after return lands back on the original HLT-skipping path")
	}
}

func TestLDWSTWRoundTrip(t *testing.T) {
	t.Parallel()

	m, c := newMachine()

	addr := memory.Addr(0x1000)

	load(m, 0,
		isa.Encode(isa.LDI, isa.ModeImm, isa.R1, isa.R0, int64(addr)),
		isa.Encode(isa.LDI, isa.ModeImm, isa.R2, isa.R0, 7),
		isa.Encode(isa.STW, isa.ModeMemDisp, isa.R2, isa.R1, 0),
		isa.Encode(isa.LDW, isa.ModeMemDisp, isa.R3, isa.R1, 0),
		isa.Encode(isa.HLT, isa.ModeReg, isa.R0, isa.R0, 0),
	)

	c.Step(10)

	if got := c.Reg[isa.R3].ToInt(); got != 7 {
		t.Fatalf("R3 = %d, want 7", got)
	}
}

func TestCognitivePageWrapSecureFault(t *testing.T) {
	t.Parallel()

	m, c := newMachine()
	c.Status |= cpu.StatusCOG

	load(m, 0,
		// R1 points at the last word of system memory; any cognitive-mode access is out of
		// [0x3000, 0x8000) and must fault.
		isa.Encode(isa.LDI, isa.ModeImm, isa.R1, isa.R0, int64(memory.SystemLimit-1)),
		isa.Encode(isa.LDW, isa.ModeMemDisp, isa.R2, isa.R1, 0),
	)

	c.Step(10)

	if c.Trap == nil || c.Trap.Kind != cpu.TrapSecureFault {
		t.Fatalf("expected SECURE_FAULT trap, got %v", c.Trap)
	}
}

func TestR0AlwaysReadsZero(t *testing.T) {
	t.Parallel()

	m, c := newMachine()

	load(m, 0,
		isa.Encode(isa.LDI, isa.ModeImm, isa.R0, isa.R0, 123),
		isa.Encode(isa.MOV, isa.ModeReg, isa.R1, isa.R0, 0),
		isa.Encode(isa.HLT, isa.ModeReg, isa.R0, isa.R0, 0),
	)

	c.Step(10)

	if got := c.Reg[isa.R1].ToInt(); got != 0 {
		t.Fatalf("R1 = %d, want 0 (R0 writes must be discarded)", got)
	}
}

func TestVectorConsensusPage(t *testing.T) {
	t.Parallel()

	m, c := newMachine()

	p1Addr := memory.Addr(0x3000)
	p2Addr := memory.Addr(0x3100)
	dstAddr := memory.Addr(0x3200)

	m.Write(p1Addr, trit.FromInt(1))
	m.Write(p2Addr, trit.FromInt(1))

	load(m, 0x100,
		isa.Encode(isa.LDI, isa.ModeImm, isa.R1, isa.R0, int64(p1Addr)),
		isa.Encode(isa.LDI, isa.ModeImm, isa.R2, isa.R0, int64(p2Addr)),
		isa.Encode(isa.LDI, isa.ModeImm, isa.R3, isa.R0, int64(dstAddr)),
		isa.Encode(isa.VEC_CNS, isa.ModeReg, isa.R3, isa.R1, int64(isa.R2)),
		isa.Encode(isa.HLT, isa.ModeReg, isa.R0, isa.R0, 0),
	)

	c.PC = 0x100
	c.Step(10)

	if got := m.Read(dstAddr); got.ToInt() != 1 {
		t.Fatalf("consensus dest word 0 = %v, want 1", got)
	}
}
