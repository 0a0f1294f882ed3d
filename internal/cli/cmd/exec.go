package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/helix9vm/helix9/internal/cli"
	"github.com/helix9vm/helix9/internal/console"
	"github.com/helix9vm/helix9/internal/cpu"
	"github.com/helix9vm/helix9/internal/log"
	"github.com/helix9vm/helix9/internal/memory"
)

// defaultMaxCycles bounds a run-to-completion invocation when no max_cycles argument is given.
const defaultMaxCycles = 1 << 20

// Executor is the command that loads and runs a linked executable directly on a bare CPU, outside
// the scheduler.
//
//	helix-emu program.hx [max_cycles] [-step] [--trace|-t]
func Executor() cli.Command {
	return &executor{log: log.DefaultLogger()}
}

type executor struct {
	logLevel slog.Level
	step     bool
	trace    bool

	log *log.Logger
}

func (executor) Description() string {
	return "run a linked executable"
}

func (executor) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `exec [-step] [--trace|-t] program.hx [max_cycles]

Runs a linked executable on the CPU, for at most max_cycles instructions
(default unbounded within a generous cap). With -step, drives it one
instruction at a time from the keyboard, printing register and status state
between steps. With --trace/-t, logs at debug level.`)

	return err
}

func (ex *executor) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	fs.BoolVar(&ex.step, "step", false, "single-step under an interactive debugger")
	fs.BoolVar(&ex.trace, "trace", false, "enable debug logging")
	fs.BoolVar(&ex.trace, "t", false, "alias for -trace")
	fs.Func("loglevel", "set log `level`", func(s string) error {
		return ex.logLevel.UnmarshalText([]byte(s))
	})

	return fs
}

// Run loads and executes the program. args is the positional tail left after flag parsing:
// program.hx, optionally followed by a max_cycles override.
func (ex *executor) Run(ctx context.Context, args []string, stdout io.Writer, logger *log.Logger) int {
	log.LogLevel.Set(ex.logLevel)

	if ex.trace {
		log.LogLevel.Set(log.Debug)
	}

	if len(args) < 1 || len(args) > 2 {
		logger.Error("exec takes an executable file and an optional max_cycles")
		return 1
	}

	maxCycles := defaultMaxCycles

	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			logger.Error("invalid max_cycles", "arg", args[1])
			return 1
		}

		maxCycles = n
	}

	mem := memory.New(memory.WithLogger(logger))

	if err := mem.LoadExecutableFile(args[0]); err != nil {
		logger.Error("load failed", "in", args[0], "err", err)
		return 1
	}

	machine := cpu.New(mem, cpu.WithLogger(logger))

	if ex.step {
		return ex.runStepped(ctx, machine, stdout)
	}

	return ex.runToCompletion(machine, maxCycles)
}

func (ex *executor) runToCompletion(machine *cpu.CPU, maxCycles int) int {
	n := machine.Step(maxCycles)

	ex.log.Info("program finished", "instructions", n, "pc", machine.PC, "status", machine.Status)

	if machine.Trap != nil {
		ex.log.Error("program trapped", "trap", machine.Trap)
		return 2
	}

	return 0
}

func (ex *executor) runStepped(ctx context.Context, machine *cpu.CPU, stdout io.Writer) int {
	dbg, err := console.New(os.Stdin, stdout, console.WithLogger(ex.log))
	if err != nil {
		ex.log.Error("single-step debugger unavailable", "err", err)
		return 1
	}

	defer dbg.Restore()

	if err := dbg.Run(ctx, cpuStepper{cpu: machine}); err != nil {
		ex.log.Error("debugger exited", "err", err)
		return 1
	}

	return 0
}

// cpuStepper adapts *cpu.CPU to console.Stepper: one call, one instruction.
type cpuStepper struct {
	cpu *cpu.CPU
}

func (s cpuStepper) Step() (string, bool) {
	s.cpu.Step(1)

	return s.cpu.String(), s.cpu.Halted || s.cpu.Trap != nil
}
