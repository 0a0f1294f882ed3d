package scheduler

import (
	"fmt"

	"github.com/helix9vm/helix9/internal/cpu"
	"github.com/helix9vm/helix9/internal/isa"
	"github.com/helix9vm/helix9/internal/trit"
)

// State is an agent's lifecycle state.
type State uint8

const (
	Init State = iota
	Active
	Learning
	Converged
	Idle
	Terminated

	numStates
)

var stateNames = [numStates]string{
	Init: "INIT", Active: "ACTIVE", Learning: "LEARNING",
	Converged: "CONVERGED", Idle: "IDLE", Terminated: "TERMINATED",
}

func (s State) String() string {
	if s >= numStates {
		return fmt.Sprintf("STATE(%d)", uint8(s))
	}

	return stateNames[s]
}

// Runnable reports whether the scheduler should grant this state a quantum this tick.
func (s State) Runnable() bool {
	return s == Active || s == Learning
}

// PageRange is a half-open range of cognitive page ids, [Base, Base+Count).
type PageRange struct {
	Base  uint32
	Count uint32
}

// Contains reports whether id falls within the range.
func (r PageRange) Contains(id uint32) bool {
	return id >= r.Base && id < r.Base+r.Count
}

// Agent is a cooperative execution context multiplexed onto the CPU by the Scheduler. Its saved
// context (PC, SP, Status, registers) is swapped into the CPU for its quantum and copied back out
// when the quantum ends, mirroring how the teacher's LC3 keeps USP/SSP as a pair of saved stack
// pointers swapped on privilege change.
type Agent struct {
	ID       uint32
	State    State
	Priority int

	LastTick uint64

	Belief PageRange // Exclusive read/write.
	Input  PageRange // Read-only; environment-writable.
	Output PageRange // Write-only from the agent's perspective.

	// Saved CPU context, restored into the CPU at the start of this agent's quantum and captured
	// back at the end of it.
	PC     uint32
	SP     trit.Word
	Status cpu.Status
	Reg    [isa.NumGPR]trit.Word

	Health       float64
	StabilityIdx float64
	LearningRate float64

	trap *cpu.Trap
}

// NewAgent creates an Agent in the INIT state, owning the given page ranges.
func NewAgent(id uint32, belief, input, output PageRange) *Agent {
	return &Agent{
		ID:           id,
		State:        Init,
		Belief:       belief,
		Input:        input,
		Output:       output,
		Health:       100,
		LearningRate: 1,
	}
}

// Trap returns the trap, if any, that halted the agent's most recent quantum.
func (a *Agent) Trap() *cpu.Trap {
	return a.trap
}

func (a *Agent) String() string {
	return fmt.Sprintf("agent %d [%s] health=%.1f stability=%.3f pc=%#x",
		a.ID, a.State, a.Health, a.StabilityIdx, a.PC)
}
