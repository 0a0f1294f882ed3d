package console_test

import (
	"os"
	"testing"

	"github.com/helix9vm/helix9/internal/console"
)

func TestNewRejectsNonTTY(t *testing.T) {
	t.Parallel()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}

	defer r.Close()
	defer w.Close()

	_, err = console.New(r, w)
	if err == nil {
		t.Fatal("expected New to reject a non-TTY input stream")
	}
}

type fakeStepper struct {
	calls int
	halt  int
}

func (f *fakeStepper) Step() (string, bool) {
	f.calls++
	return "step", f.calls >= f.halt
}

func TestStepperInterfaceSatisfiedByFakeStepper(t *testing.T) {
	t.Parallel()

	var s console.Stepper = &fakeStepper{halt: 3}

	summary, halted := s.Step()
	if summary != "step" || halted {
		t.Fatalf("unexpected first step: %q %v", summary, halted)
	}
}
