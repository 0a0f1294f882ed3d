package scheduler_test

import (
	"testing"

	"github.com/helix9vm/helix9/internal/cpu"
	"github.com/helix9vm/helix9/internal/isa"
	"github.com/helix9vm/helix9/internal/memory"
	"github.com/helix9vm/helix9/internal/scheduler"
	"github.com/helix9vm/helix9/internal/trit"
)

func newMachine() (*memory.Memory, *cpu.CPU) {
	m := memory.New()
	m.SetContext(memory.System)

	return m, cpu.New(m)
}

func loadLoop(m *memory.Memory, base memory.Addr) {
	// ldi.w r1, 0; ldi.w r2, 1; loop: add r1, r1, r2; jmp loop
	m.Write(base+0, isa.Encode(isa.LDI, isa.ModeImm, isa.R1, isa.R0, 0).Word)
	m.Write(base+1, isa.Encode(isa.LDI, isa.ModeImm, isa.R2, isa.R0, 1).Word)
	m.Write(base+2, isa.Encode(isa.ADD, isa.ModeReg, isa.R1, isa.R1, int64(isa.R2)).Word)
	m.Write(base+3, isa.Encode(isa.JMP, isa.ModePCRelative, isa.R0, isa.R0, -2).Word)
}

func TestSchedulerFairness(t *testing.T) {
	t.Parallel()

	m, c := newMachine()

	loadLoop(m, 0)
	loadLoop(m, 0x10)
	loadLoop(m, 0x20)

	s := scheduler.New(c, m, 100, 10)

	agents := []*scheduler.Agent{
		scheduler.NewAgent(1, scheduler.PageRange{}, scheduler.PageRange{}, scheduler.PageRange{}),
		scheduler.NewAgent(2, scheduler.PageRange{}, scheduler.PageRange{}, scheduler.PageRange{}),
		scheduler.NewAgent(3, scheduler.PageRange{}, scheduler.PageRange{}, scheduler.PageRange{}),
	}

	bases := []uint32{0, 0x10, 0x20}
	for i, ag := range agents {
		ag.PC = bases[i]
		ag.State = scheduler.Active
		s.Register(ag)
	}

	for i := 0; i < 30; i++ {
		s.Tick()
	}

	for _, ag := range agents {
		if ag.LastTick == 0 {
			t.Fatalf("agent %d never ran", ag.ID)
		}
	}

	r1 := func(ag *scheduler.Agent) int64 { return ag.Reg[isa.R1].ToInt() }

	max, min := r1(agents[0]), r1(agents[0])
	for _, ag := range agents[1:] {
		if v := r1(ag); v > max {
			max = v
		} else if v < min {
			min = v
		}
	}

	if max-min > 5 {
		t.Fatalf("agents diverged: R1 values spread %d, want <= 5", max-min)
	}
}

func TestSchedulerSkipsNonRunnableAgents(t *testing.T) {
	t.Parallel()

	m, c := newMachine()
	loadLoop(m, 0)

	s := scheduler.New(c, m, 100, 10)

	idle := scheduler.NewAgent(1, scheduler.PageRange{}, scheduler.PageRange{}, scheduler.PageRange{})
	idle.State = scheduler.Idle
	s.Register(idle)

	s.Tick()

	if idle.LastTick != 0 {
		t.Fatal("idle agent should not have run")
	}
}

func TestSchedulerContextSwitchesMemory(t *testing.T) {
	t.Parallel()

	m, c := newMachine()

	// ldi.w r2, 5; stw r2, [r1]; hlt -- writes a nonzero value to whatever address R1 holds,
	// under the agent's context.
	m.Write(0, isa.Encode(isa.LDI, isa.ModeImm, isa.R2, isa.R0, 5).Word)
	m.Write(1, isa.Encode(isa.STW, isa.ModeMemDirect, isa.R2, isa.R1, 0).Word)
	m.Write(2, isa.Encode(isa.HLT, isa.ModeReg, isa.R0, isa.R0, 0).Word)

	s := scheduler.New(c, m, 100, 10)

	a := scheduler.NewAgent(7, scheduler.PageRange{Base: memory.PageID(memory.CognitiveBase), Count: 1},
		scheduler.PageRange{}, scheduler.PageRange{})
	a.State = scheduler.Active
	a.Reg[isa.R1] = trit.FromInt(int64(memory.CognitiveBase))

	s.Register(a)
	s.Tick()

	m.SetContext(memory.System)
	page := m.Page(memory.PageID(memory.CognitiveBase))

	if page == nil {
		t.Fatal("expected cognitive page allocated under the agent's context")
	}

	if page.Owner != a.ID {
		t.Fatalf("page owner = %d, want %d", page.Owner, a.ID)
	}
}

// fakeMonitor reports a fixed flux/convergence pair for every agent, letting tests drive the
// scheduler's reward/convergence wiring without a real StabilityMonitor.
type fakeMonitor struct {
	flux      float64
	converged bool
}

func (f fakeMonitor) Observe(agentID uint32, belief scheduler.PageRange) float64 { return f.flux }
func (f fakeMonitor) Converged(agentID uint32) bool                             { return f.converged }

// fakeRewarder records every ApplyReward call it receives.
type fakeRewarder struct {
	calls []float64
}

func (f *fakeRewarder) ApplyReward(a *scheduler.Agent, raw float64) {
	f.calls = append(f.calls, raw)
}

func TestSchedulerAppliesRewardOnlyToLearningAgents(t *testing.T) {
	t.Parallel()

	m, c := newMachine()
	loadLoop(m, 0)
	loadLoop(m, 0x10)

	rewarder := &fakeRewarder{}
	s := scheduler.New(c, m, 100, 10,
		scheduler.WithMonitor(fakeMonitor{flux: 0.5}), scheduler.WithRewarder(rewarder))

	learning := scheduler.NewAgent(1, scheduler.PageRange{}, scheduler.PageRange{}, scheduler.PageRange{})
	learning.PC = 0
	learning.State = scheduler.Learning
	s.Register(learning)

	active := scheduler.NewAgent(2, scheduler.PageRange{}, scheduler.PageRange{}, scheduler.PageRange{})
	active.PC = 0x10
	active.State = scheduler.Active
	s.Register(active)

	s.Tick()

	if len(rewarder.calls) != 1 {
		t.Fatalf("got %d ApplyReward calls, want 1 (only the LEARNING agent)", len(rewarder.calls))
	}

	if got := rewarder.calls[0]; got != -0.5 {
		t.Fatalf("reward = %v, want -0.5 (negative of observed flux)", got)
	}
}

func TestSchedulerTransitionsLearningAgentToConverged(t *testing.T) {
	t.Parallel()

	m, c := newMachine()
	loadLoop(m, 0)

	s := scheduler.New(c, m, 100, 10, scheduler.WithMonitor(fakeMonitor{converged: true}))

	a := scheduler.NewAgent(1, scheduler.PageRange{}, scheduler.PageRange{}, scheduler.PageRange{})
	a.PC = 0
	a.State = scheduler.Learning
	s.Register(a)

	s.Tick()

	if a.State != scheduler.Converged {
		t.Fatalf("state = %v, want Converged", a.State)
	}

	lastTick := a.LastTick

	s.Tick()

	if a.LastTick != lastTick {
		t.Fatal("converged agent should no longer be runnable")
	}
}
