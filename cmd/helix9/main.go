// cmd/helix9 is a combined command-line interface to the Helix9 assembler, linker, emulator and
// multi-agent demo, dispatched by sub-command name.
package main

import (
	"context"
	"os"

	"github.com/helix9vm/helix9/internal/cli"
	"github.com/helix9vm/helix9/internal/cli/cmd"
)

var commands = []cli.Command{
	cmd.Assembler(),
	cmd.Linker(),
	cmd.Executor(),
	cmd.Demo(),
}

// Entry point.
func main() {
	result :=
		cli.New(context.Background()).
			WithLogger(os.Stderr).
			WithCommands(commands).
			WithHelp(cmd.Help(commands)).
			Execute(os.Args[1:])

	os.Exit(result)
}
