// Package scheduler implements the cooperative multi-agent scheduler: an agent registry,
// round-robin quantum execution with context save/restore, and the hooks that feed each
// tick's belief-page snapshot to the stability monitor and each tick's outcome to the reward
// engine.
package scheduler

import (
	"fmt"

	"github.com/helix9vm/helix9/internal/cpu"
	"github.com/helix9vm/helix9/internal/isa"
	"github.com/helix9vm/helix9/internal/log"
	"github.com/helix9vm/helix9/internal/memory"
)

// Monitor captures and analyzes belief-page flux. Scheduler depends on the interface, not the
// concrete stability monitor, so internal/cognitive need not import internal/scheduler.
type Monitor interface {
	Observe(agentID uint32, belief PageRange) float64
	// Converged reports whether agentID's mean flux has settled below the monitor's convergence
	// threshold over its observation window.
	Converged(agentID uint32) bool
}

// Rewarder applies an intrinsic reward signal to an agent's health and learning state.
type Rewarder interface {
	ApplyReward(a *Agent, raw float64)
}

// Scheduler owns the CPU and the agent registry. Its zero value is not ready to use; construct
// one with New.
type Scheduler struct {
	cpu *cpu.CPU
	mem *memory.Memory

	agents []*Agent
	byID   map[uint32]*Agent

	monitor  Monitor
	rewarder Rewarder

	CPUCyclesPerTick int
	MaxAgentCycles   int

	// TerminateOnTrap decides Open Question #1: whether an agent whose quantum ends in an
	// ILLEGAL or SECURE_FAULT trap is moved straight to Terminated. Default false: a trapped
	// agent is simply left non-runnable (Tick skips it), matching the source machine's "halt but
	// don't touch agent state" behavior, with termination left to an explicit operator decision.
	TerminateOnTrap bool

	tick uint64

	log *log.Logger
}

// Option configures a Scheduler at construction.
type Option func(*Scheduler)

// WithLogger overrides the scheduler's logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithMonitor attaches a stability monitor, consulted once per agent per tick.
func WithMonitor(m Monitor) Option {
	return func(s *Scheduler) { s.monitor = m }
}

// WithRewarder attaches a reward engine, consulted once per LEARNING agent per tick.
func WithRewarder(r Rewarder) Option {
	return func(s *Scheduler) { s.rewarder = r }
}

// New creates a Scheduler bound to cpu/mem, with the given per-tick quantum parameters.
func New(c *cpu.CPU, mem *memory.Memory, cpuCyclesPerTick, maxAgentCycles int, opts ...Option) *Scheduler {
	s := &Scheduler{
		cpu:              c,
		mem:              mem,
		byID:             make(map[uint32]*Agent),
		CPUCyclesPerTick: cpuCyclesPerTick,
		MaxAgentCycles:   maxAgentCycles,
		log:              log.DefaultLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Register adds an agent to the registry, in registration order. Registering an agent already
// present replaces it in place.
func (s *Scheduler) Register(a *Agent) {
	if _, ok := s.byID[a.ID]; ok {
		for i, existing := range s.agents {
			if existing.ID == a.ID {
				s.agents[i] = a
			}
		}

		s.byID[a.ID] = a

		return
	}

	s.agents = append(s.agents, a)
	s.byID[a.ID] = a
}

// Terminate removes an agent from future ticks without touching its saved state.
func (s *Scheduler) Terminate(id uint32) {
	if a, ok := s.byID[id]; ok {
		a.State = Terminated
	}
}

// Agents returns the registry in registration order.
func (s *Scheduler) Agents() []*Agent {
	return s.agents
}

// TickCount returns the number of cognitive ticks executed so far.
func (s *Scheduler) TickCount() uint64 {
	return s.tick
}

// Tick executes one cognitive tick: every runnable agent whose last quantum did not end in a trap,
// in registration order, is granted one quantum; the tick counter is then incremented.
func (s *Scheduler) Tick() {
	for _, a := range s.agents {
		if !a.State.Runnable() || a.trap != nil {
			continue
		}

		s.execute(a)
	}

	s.tick++

	s.log.Debug("tick complete", "tick", s.tick, "agents", len(s.agents))
}

// execute runs one agent's quantum: save system context, load the agent's saved context into the
// CPU, run up to MaxAgentCycles instructions, copy the context back, and restore system context.
func (s *Scheduler) execute(a *Agent) {
	prevCtx := s.mem.SetContext(a.ID)
	sysPC, sysStatus, sysReg := s.cpu.PC, s.cpu.Status, s.cpu.Reg

	s.loadContext(a)

	a.trap = nil
	s.cpu.Halted = false

	s.cpu.Step(s.MaxAgentCycles)

	if s.cpu.Trap != nil {
		a.trap = s.cpu.Trap
		s.cpu.Trap = nil

		if s.TerminateOnTrap {
			a.State = Terminated
		}
	}

	s.saveContext(a)
	a.LastTick = s.tick

	s.cpu.PC, s.cpu.Status, s.cpu.Reg = sysPC, sysStatus, sysReg
	s.mem.SetContext(prevCtx)

	if s.monitor != nil {
		a.StabilityIdx = s.monitor.Observe(a.ID, a.Belief)

		// An agent only earns reward, and only converges, while it's actively LEARNING: an agent
		// that's merely ACTIVE has no intrinsic reward signal to draw on yet.
		if a.State == Learning {
			if s.rewarder != nil {
				s.rewarder.ApplyReward(a, -a.StabilityIdx)
			}

			if a.State != Terminated && s.monitor.Converged(a.ID) {
				a.State = Converged
			}
		}
	}

	s.log.Debug("executed agent quantum", "agent", a.ID, "pc", a.PC, "trap", a.trap)
}

// loadContext swaps an agent's saved PC/status/registers into the CPU.
func (s *Scheduler) loadContext(a *Agent) {
	s.cpu.PC = a.PC
	s.cpu.Status = a.Status
	s.cpu.Reg = a.Reg
}

// saveContext copies the CPU's PC/status/registers back into the agent, mirroring R13 into the
// agent's SP convenience field.
func (s *Scheduler) saveContext(a *Agent) {
	a.PC = s.cpu.PC
	a.Status = s.cpu.Status
	a.Reg = s.cpu.Reg
	a.SP = s.cpu.Reg[isa.SP]
}

func (s *Scheduler) String() string {
	return fmt.Sprintf("scheduler tick=%d agents=%d", s.tick, len(s.agents))
}
