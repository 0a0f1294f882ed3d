// helix-asm assembles Helix9 source into a relocatable object file.
//
//	helix-asm <input.hasm> [-o <out.ht>]
package main

import (
	"context"
	"os"

	"github.com/helix9vm/helix9/internal/cli/cmd"
	"github.com/helix9vm/helix9/internal/log"
)

func main() {
	logger := log.DefaultLogger()
	asm := cmd.Assembler()

	fs := asm.FlagSet()

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

	os.Exit(asm.Run(context.Background(), positional, os.Stdout, logger))
}
