package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/helix9vm/helix9/internal/asm"
	"github.com/helix9vm/helix9/internal/cli"
	"github.com/helix9vm/helix9/internal/log"
)

// Assembler is the command that translates Helix9 assembly source into relocatable object code.
//
//	helix-asm -o a.o FILE.asm
func Assembler() cli.Command {
	return new(assembler)
}

type assembler struct {
	debug  bool
	output string
}

func (assembler) Description() string {
	return "assemble source code into relocatable object code"
}

func (assembler) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `asm [-o file.o] file.asm

Assemble source into a relocatable object file.`)

	return err
}

func (a *assembler) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("asm", flag.ExitOnError)
	fs.BoolVar(&a.debug, "debug", false, "enable debug logging")
	fs.StringVar(&a.output, "o", "a.o", "output `filename`")

	return fs
}

// Run assembles exactly one source file into one object file per invocation (multiple source
// files are assembled independently; internal/link merges them).
func (a *assembler) Run(ctx context.Context, args []string, stdout io.Writer, logger *log.Logger) int {
	if a.debug {
		log.LogLevel.Set(log.Debug)
	}

	if len(args) != 1 {
		logger.Error("asm takes exactly one source file")
		return 1
	}

	f, err := os.Open(args[0])
	if err != nil {
		logger.Error("open failed", "in", args[0], "err", err)
		return 1
	}

	defer f.Close()

	file, err := asm.New(logger).Assemble(f)
	if err != nil {
		logger.Error("assemble failed", "in", args[0], "err", err)
		return 1
	}

	text, err := file.MarshalText()
	if err != nil {
		logger.Error("encode failed", "err", err)
		return 1
	}

	if err := os.WriteFile(a.output, text, 0o644); err != nil {
		logger.Error("write failed", "out", a.output, "err", err)
		return 1
	}

	logger.Debug("assembled object",
		"in", args[0], "out", a.output,
		"sections", len(file.Sections), "symbols", len(file.Symbols), "relocations", len(file.Relocations),
	)

	return 0
}
