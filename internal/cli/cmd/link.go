package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/helix9vm/helix9/internal/cli"
	"github.com/helix9vm/helix9/internal/link"
	"github.com/helix9vm/helix9/internal/log"
	"github.com/helix9vm/helix9/internal/obj"
)

// Linker is the command that merges one or more object files into a single executable.
//
//	helix-ld in1.ht [in2.ht ...] -o a.hx
func Linker() cli.Command {
	return new(linker)
}

type linker struct {
	debug  bool
	output string
}

func (linker) Description() string {
	return "link object files into an executable"
}

func (linker) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `ld [-o a.hx] file.ht...

Link one or more object files into an executable.`)

	return err
}

func (l *linker) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("ld", flag.ExitOnError)
	fs.BoolVar(&l.debug, "debug", false, "enable debug logging")
	fs.StringVar(&l.output, "o", "a.hx", "output `filename`")

	return fs
}

func (l *linker) Run(ctx context.Context, args []string, stdout io.Writer, logger *log.Logger) int {
	if l.debug {
		log.LogLevel.Set(log.Debug)
	}

	if len(args) == 0 {
		logger.Error("ld requires at least one object file")
		return 1
	}

	files := make([]*obj.File, 0, len(args))

	for _, fn := range args {
		data, err := os.ReadFile(fn)
		if err != nil {
			logger.Error("read failed", "in", fn, "err", err)
			return 1
		}

		var file obj.File
		if err := file.UnmarshalText(data); err != nil {
			logger.Error("decode failed", "in", fn, "err", err)
			return 1
		}

		files = append(files, &file)
	}

	exe, err := link.New(logger).Link(files...)
	if err != nil {
		logger.Error("link failed", "err", err)
		return 1
	}

	text, err := exe.MarshalText()
	if err != nil {
		logger.Error("encode failed", "err", err)
		return 1
	}

	if err := os.WriteFile(l.output, text, 0o644); err != nil {
		logger.Error("write failed", "out", l.output, "err", err)
		return 1
	}

	logger.Debug("linked executable", "out", l.output, "sections", len(exe.Sections), "inputs", len(args))

	return 0
}
