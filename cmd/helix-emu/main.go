// helix-emu runs a linked executable on the Helix9 CPU.
//
//	helix-emu <exec.hx> [max_cycles] [--trace|-t]
package main

import (
	"context"
	"os"

	"github.com/helix9vm/helix9/internal/cli/cmd"
	"github.com/helix9vm/helix9/internal/log"
)

func main() {
	logger := log.DefaultLogger()
	emu := cmd.Executor()

	fs := emu.FlagSet()

	// Flags may follow positional arguments, so parse repeatedly, collecting each positional.
	var positional []string
	for args := os.Args[1:]; ; args = fs.Args()[1:] {
		if err := fs.Parse(args); err != nil {
			os.Exit(1)
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
	}

	os.Exit(emu.Run(context.Background(), positional, os.Stdout, logger))
}
