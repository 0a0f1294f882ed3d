package cpu

import "fmt"

// TrapKind identifies why the CPU halted outside a normal HLT.
type TrapKind uint8

const (
	TrapReset TrapKind = iota
	TrapIllegal
	TrapSecureFault

	numTraps
)

var trapNames = [numTraps]string{
	TrapReset:       "RESET",
	TrapIllegal:     "ILLEGAL",
	TrapSecureFault: "SECURE_FAULT",
}

func (t TrapKind) String() string {
	if t >= numTraps {
		return fmt.Sprintf("TRAP(%d)", uint8(t))
	}

	return trapNames[t]
}

// Trap records that the CPU halted on something other than HLT: a trap kind and the PC at the
// time of the fault (the trap vector address, in the current design, is simply where execution
// stopped rather than a distinct service routine).
type Trap struct {
	Kind TrapKind
	PC   uint32
}

func (t *Trap) Error() string {
	return fmt.Sprintf("trap %s at pc=%#x", t.Kind, t.PC)
}
