package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/helix9vm/helix9/internal/cli"
	"github.com/helix9vm/helix9/internal/cognitive"
	"github.com/helix9vm/helix9/internal/cpu"
	"github.com/helix9vm/helix9/internal/isa"
	"github.com/helix9vm/helix9/internal/log"
	"github.com/helix9vm/helix9/internal/memory"
	"github.com/helix9vm/helix9/internal/scheduler"
)

// Demo is a demonstration command: it registers a handful of trivial counting agents on their own
// belief pages and runs the scheduler for a fixed number of ticks, printing each agent's state.
func Demo() cli.Command {
	return new(demo)
}

type demo struct {
	debug bool
	ticks int
	count int
}

func (demo) Description() string {
	return "run a small multi-agent counting demo"
}

func (demo) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `demo [-ticks N] [-agents N]

Registers N trivial counting agents, each on its own belief page, and runs
the scheduler for the given number of ticks, printing every agent's state
after each one.`)

	return err
}

func (d *demo) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	fs.BoolVar(&d.debug, "debug", false, "enable debug logging")
	fs.IntVar(&d.ticks, "ticks", 30, "number of scheduler ticks to run")
	fs.IntVar(&d.count, "agents", 3, "number of agents to register")

	return fs
}

func (d *demo) Run(ctx context.Context, args []string, out io.Writer, logger *log.Logger) int {
	if d.debug {
		log.LogLevel.Set(log.Debug)
	}

	mem := memory.New(memory.WithLogger(logger))
	mem.SetContext(memory.System)

	machine := cpu.New(mem, cpu.WithLogger(logger))

	monitor := cognitive.NewStabilityMonitor(mem, cognitive.WithLogger(logger))
	rewards := cognitive.NewRewardEngine(cognitive.DefaultRewardConfig, cognitive.WithRewardLogger(logger))
	sched := scheduler.New(machine, mem, 1000, 10,
		scheduler.WithLogger(logger), scheduler.WithMonitor(monitor), scheduler.WithRewarder(rewards))

	for i := 0; i < d.count; i++ {
		base := memory.Addr(i * 4)
		loadCountingLoop(mem, base)

		belief := scheduler.PageRange{Base: memory.PageID(memory.CognitiveBase) + uint32(i), Count: 1}
		a := scheduler.NewAgent(uint32(i+1), belief, scheduler.PageRange{}, scheduler.PageRange{})
		a.PC = uint32(base)
		a.State = scheduler.Learning

		sched.Register(a)
		rewards.Track(a)
	}

	for t := 0; t < d.ticks; t++ {
		sched.Tick()
		rewards.Decay()

		for _, a := range sched.Agents() {
			fmt.Fprintf(out, "tick %3d %s\n", sched.TickCount(), a)
		}
	}

	logger.Info("demo completed", "ticks", sched.TickCount(), "agents", len(sched.Agents()))

	return 0
}

// loadCountingLoop writes `ldi.w r1, 0; ldi.w r2, 1; loop: add r1, r1, r2; jmp loop` at base.
func loadCountingLoop(mem *memory.Memory, base memory.Addr) {
	mem.Write(base+0, isa.Encode(isa.LDI, isa.ModeImm, isa.R1, isa.R0, 0).Word)
	mem.Write(base+1, isa.Encode(isa.LDI, isa.ModeImm, isa.R2, isa.R0, 1).Word)
	mem.Write(base+2, isa.Encode(isa.ADD, isa.ModeReg, isa.R1, isa.R1, int64(isa.R2)).Word)
	mem.Write(base+3, isa.Encode(isa.JMP, isa.ModePCRelative, isa.R0, isa.R0, -2).Word)
}
