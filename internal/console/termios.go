package console

import (
	"golang.org/x/sys/unix"
)

// setSingleByteMode tunes the already-raw terminal to return each keypress as soon as it arrives
// (VMIN=1, VTIME=0), rather than the line-buffered or async-polled behavior term.MakeRaw alone
// doesn't fully pin down.
func setSingleByteMode(fd int) error {
	termIO, err := unix.IoctlGetTermios(fd, getTermiosIoctl)
	if err != nil {
		return err
	}

	termIO.Cc[unix.VMIN] = 1
	termIO.Cc[unix.VTIME] = 0

	return unix.IoctlSetTermios(fd, setTermiosIoctl, termIO)
}
